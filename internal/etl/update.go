package etl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/openmined/solarsync/internal/dataset"
)

// Update merges every data file under latestDir with the file at the same relative
// path under previousDir and writes the result under outputDir.
//
// The merge is previous rows followed by latest rows over the union of columns,
// with exact duplicates dropped keeping the latest copy. A missing or unreadable
// previous file, or one without rows, degrades to latest only. A latest file without any
// header is skipped. remap, when set, is applied to latest data only; previous
// data is already in output form.
func Update(ctx context.Context, previousDir, latestDir, outputDir string, remap *Remap) (*Result, error) {
	files, err := findFiles(ctx, latestDir, DataPattern)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		lfile := nativePath(latestDir, rel)
		slog.Info("update processing latest file", "path", lfile)

		latest, err := dataset.Read(lfile)
		if errors.Is(err, dataset.ErrEmptyData) {
			slog.Info("update empty latest file, skipping", "path", lfile)
			result.Skipped = append(result.Skipped, rel)
			continue
		} else if err != nil {
			return result, fmt.Errorf("read latest: %w", err)
		}
		if remap != nil {
			latest = remap.Apply(latest)
		}

		merged := latest
		if previousDir != "" {
			pfile := nativePath(previousDir, rel)
			previous, err := dataset.Read(pfile)
			if err == nil && previous.Empty() {
				err = dataset.ErrEmptyData
			}
			if err != nil {
				slog.Info("update no usable previous file, using latest", "path", pfile, "reason", err)
			} else {
				slog.Info("update merging previous file", "path", pfile, "previousRows", previous.Len(), "latestRows", latest.Len())
				merged = dataset.Concat(previous, latest).DedupKeepLast()
			}
		}

		ufile := nativePath(outputDir, rel)
		if err := merged.Write(ufile); err != nil {
			return result, fmt.Errorf("write %s: %w", ufile, err)
		}
		slog.Info("update wrote file", "path", ufile, "rows", merged.Len())
		result.Written = append(result.Written, rel)
	}

	return result, nil
}
