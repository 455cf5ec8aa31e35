package etl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/openmined/solarsync/internal/dataset"
)

// Standardize converts every vendor data file under sourceDir to the standard
// column set described by remap and writes it under destinationDir.
func Standardize(ctx context.Context, sourceDir, destinationDir string, remap *Remap) (*Result, error) {
	if remap == nil {
		return nil, errors.New("standardize requires a remap configuration")
	}

	files, err := findFiles(ctx, sourceDir, DataPattern)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		sfile := nativePath(sourceDir, rel)
		data, err := dataset.Read(sfile)
		if errors.Is(err, dataset.ErrEmptyData) {
			slog.Info("standardize empty file, skipping", "path", sfile)
			result.Skipped = append(result.Skipped, rel)
			continue
		} else if err != nil {
			return result, fmt.Errorf("read source: %w", err)
		}

		dfile := nativePath(destinationDir, rel)
		out := remap.Apply(data)
		if err := out.Write(dfile); err != nil {
			return result, fmt.Errorf("write %s: %w", dfile, err)
		}
		slog.Info("standardize wrote file", "path", dfile, "columns", len(out.Header), "rows", out.Len())
		result.Written = append(result.Written, rel)
	}

	return result, nil
}
