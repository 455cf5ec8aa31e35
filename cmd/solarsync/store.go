package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openmined/solarsync/internal/config"
	"github.com/openmined/solarsync/internal/remote"
	"github.com/openmined/solarsync/internal/remote/blobstore"
	"github.com/openmined/solarsync/internal/remote/drive"
	"github.com/openmined/solarsync/internal/remote/memstore"
)

func newStore(ctx context.Context, cfg *config.Config) (remote.Store, error) {
	switch cfg.Backend {
	case config.BackendDrive:
		return drive.New(ctx, cfg.Credentials)
	case config.BackendS3:
		return newBlobStore(ctx, cfg)
	case config.BackendMem:
		slog.Warn("mem backend is in-process and empty on every run, nothing is persisted")
		return memstore.New(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func newBlobStore(ctx context.Context, cfg *config.Config) (*blobstore.Store, error) {
	return blobstore.New(ctx, &blobstore.S3Config{
		BucketName:    cfg.S3.Bucket,
		Region:        cfg.S3.Region,
		AccessKey:     cfg.S3.AccessKey,
		SecretKey:     cfg.S3.SecretKey,
		Endpoint:      cfg.S3.Endpoint,
		UseAccelerate: cfg.S3.UseAccelerate,
		Prefix:        cfg.S3.Prefix,
	})
}
