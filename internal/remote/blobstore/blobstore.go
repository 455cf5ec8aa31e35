// Package blobstore implements remote.Store on an S3 compatible bucket.
//
// S3 has no folders, so the parent-pointer graph is stored explicitly:
//
//	<prefix>ids/<id>.json        node record
//	<prefix>tree/<parent>/<id>   zero-byte child marker, listed to enumerate children
//	<prefix>data/<id>            file content
//
// Node ids are random UUIDs and never reused.
package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/openmined/solarsync/internal/remote"
	"github.com/openmined/solarsync/internal/utils"
)

const nodeCacheSize = 4096

type record struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Kind     string `json:"kind"`
	MimeType string `json:"mimeType,omitempty"`
	Parent   string `json:"parent,omitempty"`
}

func (r *record) node() *remote.Node {
	kind := remote.KindFile
	if r.Kind == remote.KindFolder.String() {
		kind = remote.KindFolder
	}
	return &remote.Node{ID: r.ID, Title: r.Title, Kind: kind, MimeType: r.MimeType}
}

type Store struct {
	api    objectAPI
	bucket string
	prefix string
	cache  *lru.Cache[string, record]
}

// New connects to the bucket described by cfg.
func New(ctx context.Context, cfg *S3Config) (*Store, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("blobstore: bucket is required")
	}
	client, err := newS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return newStore(client, cfg.BucketName, cfg.Prefix), nil
}

func newStore(api objectAPI, bucket, prefix string) *Store {
	cache, _ := lru.New[string, record](nodeCacheSize)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Store{api: api, bucket: bucket, prefix: prefix, cache: cache}
}

func (s *Store) recordKey(id string) string   { return s.prefix + "ids/" + id + ".json" }
func (s *Store) childPrefix(id string) string { return s.prefix + "tree/" + id + "/" }
func (s *Store) dataKey(id string) string     { return s.prefix + "data/" + id }

// CreateRoot creates a parentless folder and returns it. Its id is what the
// sync commands take as the remote root.
func (s *Store) CreateRoot(ctx context.Context, title string) (*remote.Node, error) {
	rec := record{ID: uuid.NewString(), Title: title, Kind: remote.KindFolder.String()}
	if err := s.putRecord(ctx, rec); err != nil {
		return nil, err
	}
	return rec.node(), nil
}

func (s *Store) ListChildren(ctx context.Context, folderID string, pageSize int, pageToken string) (*remote.Page, error) {
	folder, err := s.getRecord(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if folder.Kind != remote.KindFolder.String() {
		return nil, fmt.Errorf("%w: %s", remote.ErrNotFolder, folderID)
	}

	if pageSize <= 0 {
		pageSize = remote.DefaultPageSize
	}
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(s.childPrefix(folderID)),
		MaxKeys: aws.Int32(int32(pageSize)),
	}
	if pageToken != "" {
		input.ContinuationToken = aws.String(pageToken)
	}

	out, err := s.api.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("list children of %s: %w", folderID, err)
	}

	page := &remote.Page{}
	for _, obj := range out.Contents {
		id := path.Base(aws.ToString(obj.Key))
		rec, err := s.getRecord(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("resolve child %s of %s: %w", id, folderID, err)
		}
		page.Nodes = append(page.Nodes, rec.node())
	}
	if aws.ToBool(out.IsTruncated) {
		page.NextPageToken = aws.ToString(out.NextContinuationToken)
	}
	return page, nil
}

func (s *Store) Metadata(ctx context.Context, id string) (*remote.Node, error) {
	rec, err := s.getRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec.node(), nil
}

func (s *Store) Create(ctx context.Context, parentID string, title string, kind remote.Kind, mimeType string) (*remote.Node, error) {
	parent, err := s.getRecord(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if parent.Kind != remote.KindFolder.String() {
		return nil, fmt.Errorf("%w: parent %s", remote.ErrNotFolder, parentID)
	}

	rec := record{
		ID:       uuid.NewString(),
		Title:    title,
		Kind:     kind.String(),
		MimeType: mimeType,
		Parent:   parentID,
	}
	if err := s.putRecord(ctx, rec); err != nil {
		return nil, err
	}

	// the marker makes the node visible to ListChildren, so it goes last
	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.childPrefix(parentID) + rec.ID),
		Body:          bytes.NewReader(nil),
		ContentLength: aws.Int64(0),
	})
	if err != nil {
		return nil, fmt.Errorf("link %s under %s: %w", rec.ID, parentID, err)
	}
	return rec.node(), nil
}

func (s *Store) Upload(ctx context.Context, id string, localPath string) error {
	rec, err := s.getRecord(ctx, id)
	if err != nil {
		return err
	}
	if rec.Kind == remote.KindFolder.String() {
		return fmt.Errorf("node %s is a folder", id)
	}

	file, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.dataKey(id)),
		Body:          file,
		ContentLength: aws.Int64(info.Size()),
	}
	if rec.MimeType != "" {
		input.ContentType = aws.String(rec.MimeType)
	}
	if _, err := s.api.PutObject(ctx, input); err != nil {
		return fmt.Errorf("put %s: %w", id, err)
	}
	return nil
}

func (s *Store) Download(ctx context.Context, id string, localPath string) error {
	rec, err := s.getRecord(ctx, id)
	if err != nil {
		return err
	}
	if rec.Kind == remote.KindFolder.String() {
		return fmt.Errorf("node %s is a folder", id)
	}

	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.dataKey(id)),
	})
	var body io.Reader
	switch {
	case isNotFound(err):
		// placeholder created but never uploaded
		slog.Debug("blobstore no content, writing empty file", "id", id)
		body = bytes.NewReader(nil)
	case err != nil:
		return fmt.Errorf("get %s: %w", id, err)
	default:
		defer out.Body.Close()
		body = out.Body
	}

	if _, err := utils.WriteFileAtomic(localPath, body); err != nil {
		return fmt.Errorf("write %s: %w", localPath, err)
	}
	return nil
}

func (s *Store) getRecord(ctx context.Context, id string) (record, error) {
	if rec, ok := s.cache.Get(id); ok {
		return rec, nil
	}

	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.recordKey(id)),
	})
	if isNotFound(err) {
		return record{}, fmt.Errorf("%w: %s", remote.ErrNotFound, id)
	} else if err != nil {
		return record{}, fmt.Errorf("get record %s: %w", id, err)
	}
	defer out.Body.Close()

	var rec record
	if err := json.NewDecoder(out.Body).Decode(&rec); err != nil {
		return record{}, fmt.Errorf("decode record %s: %w", id, err)
	}
	s.cache.Add(id, rec)
	return rec, nil
}

func (s *Store) putRecord(ctx context.Context, rec record) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.recordKey(rec.ID)),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put record %s: %w", rec.ID, err)
	}
	s.cache.Add(rec.ID, rec)
	return nil
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nf)
}

var _ remote.Store = (*Store)(nil)
