package tree

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/openmined/solarsync/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, body string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
}

func TestBuildLocal(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "plants.csv", "a")
	writeFile(t, root, "2024/plants_01.csv", "b")
	writeFile(t, root, "2024/05/hourly_05.csv", "c")
	writeFile(t, root, "2024/.DS_Store", "junk")

	t.Run("match all", func(t *testing.T) {
		tr, err := BuildLocal(root, MatchAll, DefaultIgnoreList())
		require.NoError(t, err)
		assert.Equal(t, []PathKey{
			"2024",
			"2024/05",
			"2024/05/hourly_05.csv",
			"2024/plants_01.csv",
			"plants.csv",
		}, tr.Keys())
		assert.Equal(t, remote.KindFolder, tr["2024"].Kind)
		assert.Equal(t, remote.KindFile, tr["plants.csv"].Kind)
		assert.Empty(t, tr["plants.csv"].ID)
	})

	t.Run("top level only", func(t *testing.T) {
		tr, err := BuildLocal(root, "*.csv", nil)
		require.NoError(t, err)
		assert.Equal(t, []PathKey{"plants.csv"}, tr.Keys())
	})

	t.Run("recursive glob", func(t *testing.T) {
		tr, err := BuildLocal(root, "**/plants_*.csv", nil)
		require.NoError(t, err)
		assert.Equal(t, []PathKey{"2024/plants_01.csv"}, tr.Keys())
	})

	t.Run("invalid pattern", func(t *testing.T) {
		_, err := BuildLocal(root, "[", nil)
		assert.Error(t, err)
	})
}

func TestBuildLocal_PrunesIgnoredDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".git/config", "x")
	writeFile(t, root, "keep.csv", "x")

	tr, err := BuildLocal(root, MatchAll, DefaultIgnoreList())
	require.NoError(t, err)
	assert.Equal(t, []PathKey{"keep.csv"}, tr.Keys())
}
