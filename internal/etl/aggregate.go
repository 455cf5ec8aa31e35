package etl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/openmined/solarsync/internal/dataset"
)

// DefaultPatterns are the data families produced by the collectors.
var DefaultPatterns = []string{"plants", "realtime", "hourly", "daily", "monthly", "yearly"}

// Aggregate concatenates, for each pattern p, every file matching **/p_*.csv under
// sourceDir into destinationDir/p.csv, ordered by collect_time then plant_code.
// Patterns without data produce no file.
func Aggregate(ctx context.Context, sourceDir, destinationDir string, patterns []string) (*Result, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}

	result := &Result{}
	for _, pattern := range patterns {
		search := "**/" + pattern + "_*.csv"
		files, err := findFiles(ctx, sourceDir, search)
		if err != nil {
			return result, err
		}

		var tables []*dataset.Table
		for _, rel := range files {
			t, err := dataset.Read(nativePath(sourceDir, rel))
			if errors.Is(err, dataset.ErrEmptyData) {
				continue
			} else if err != nil {
				return result, fmt.Errorf("read %s: %w", rel, err)
			}
			tables = append(tables, t)
		}

		aggregated := dataset.Concat(tables...)
		if aggregated.Empty() {
			slog.Info("aggregate no data for pattern", "pattern", search)
			result.Skipped = append(result.Skipped, pattern)
			continue
		}
		aggregated.SortBy("collect_time", "plant_code")

		name := pattern + ".csv"
		dfile := nativePath(destinationDir, name)
		if err := aggregated.Write(dfile); err != nil {
			return result, fmt.Errorf("write %s: %w", dfile, err)
		}
		slog.Info("aggregate wrote file", "path", dfile, "files", len(tables), "rows", aggregated.Len())
		result.Written = append(result.Written, name)
	}

	return result, nil
}
