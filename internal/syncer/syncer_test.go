package syncer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/openmined/solarsync/internal/remote"
	"github.com/openmined/solarsync/internal/remote/memstore"
	"github.com/openmined/solarsync/internal/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLocal(t *testing.T, root, rel, body string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
}

// seedStore builds {a, a/b, c, a/x.csv, a/b/y.csv, c/z.csv} below the root.
func seedStore(t *testing.T) *memstore.Store {
	t.Helper()
	s := memstore.New()
	a, err := s.Mkdir(memstore.RootID, "a")
	require.NoError(t, err)
	b, err := s.Mkdir(a.ID, "b")
	require.NoError(t, err)
	c, err := s.Mkdir(memstore.RootID, "c")
	require.NoError(t, err)
	_, err = s.Put(a.ID, "x.csv", []byte("x"))
	require.NoError(t, err)
	_, err = s.Put(b.ID, "y.csv", []byte("y"))
	require.NoError(t, err)
	_, err = s.Put(c.ID, "z.csv", []byte("z"))
	require.NoError(t, err)
	return s
}

func remoteKeys(t *testing.T, s remote.Store) []tree.PathKey {
	t.Helper()
	tr, err := tree.BuildRemote(context.Background(), s, memstore.RootID, tree.MatchAll)
	require.NoError(t, err)
	return tr.Keys()
}

func TestDownload_SubfolderIsRewrittenRelative(t *testing.T) {
	s := seedStore(t)
	local := t.TempDir()

	report, err := New(s).Download(context.Background(), local, memstore.RootID, "a", tree.MatchAll)
	require.NoError(t, err)

	assert.Equal(t, []tree.PathKey{"b/y.csv", "x.csv"}, report.Transferred)
	assert.Equal(t, []tree.PathKey{"b"}, report.Created)

	got, err := os.ReadFile(filepath.Join(local, "b", "y.csv"))
	require.NoError(t, err)
	assert.Equal(t, "y", string(got))
	assert.FileExists(t, filepath.Join(local, "x.csv"))
	assert.NoFileExists(t, filepath.Join(local, "z.csv"))
}

func TestDownload_MatchAndRoot(t *testing.T) {
	tests := []struct {
		name  string
		match string
		want  []tree.PathKey
	}{
		{"everything", tree.MatchAll, []tree.PathKey{"a/b/y.csv", "a/x.csv", "c/z.csv"}},
		{"any depth", "**/z.csv", []tree.PathKey{"c/z.csv"}},
		{"top level only", "*.csv", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := seedStore(t)
			report, err := New(s).Download(context.Background(), t.TempDir(), memstore.RootID, ".", tt.match)
			require.NoError(t, err)
			assert.Equal(t, tt.want, report.Transferred)
		})
	}
}

func TestDownload_EmptySelectionSucceeds(t *testing.T) {
	s := seedStore(t)
	local := t.TempDir()

	report, err := New(s).Download(context.Background(), local, memstore.RootID, "missing", tree.MatchAll)
	require.NoError(t, err)
	assert.Empty(t, report.Plan)
	assert.Zero(t, s.Downloads())

	entries, err := os.ReadDir(local)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDownload_Validation(t *testing.T) {
	s := seedStore(t)
	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	x, err := tree.BuildRemote(context.Background(), s, memstore.RootID, "a/x.csv")
	require.NoError(t, err)

	tests := []struct {
		name   string
		local  string
		rootID string
	}{
		{"missing local", filepath.Join(t.TempDir(), "nope"), memstore.RootID},
		{"local is a file", file, memstore.RootID},
		{"unknown root", t.TempDir(), "no-such-id"},
		{"root is a file", t.TempDir(), x["a/x.csv"].ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(s).Download(context.Background(), tt.local, tt.rootID, ".", tree.MatchAll)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Zero(t, s.Downloads())
		})
	}
}

func TestDownload_PartialFailure(t *testing.T) {
	s := memstore.New()
	for i := 1; i <= 5; i++ {
		_, err := s.Put(memstore.RootID, fmt.Sprintf("f%d.csv", i), []byte("data"))
		require.NoError(t, err)
	}
	boom := errors.New("quota exceeded")
	s.SetHooks(memstore.Hooks{BeforeDownload: func(n *remote.Node) error {
		if n.Title == "f3.csv" {
			return boom
		}
		return nil
	}})

	local := t.TempDir()
	report, err := New(s, WithConcurrency(2)).Download(context.Background(), local, memstore.RootID, ".", tree.MatchAll)

	var failed *TransferFailedError
	require.ErrorAs(t, err, &failed)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []tree.PathKey{"f3.csv"}, failed.Paths())

	require.NotNil(t, report)
	assert.Len(t, report.Transferred, 4)
	assert.NoFileExists(t, filepath.Join(local, "f3.csv"))
	assert.FileExists(t, filepath.Join(local, "f5.csv"))
}

func TestDownload_Idempotent(t *testing.T) {
	s := seedStore(t)
	local := t.TempDir()
	sy := New(s)

	snapshot := func() map[tree.PathKey]string {
		tr, err := tree.BuildLocal(local, tree.MatchAll, nil)
		require.NoError(t, err)
		out := make(map[tree.PathKey]string, len(tr))
		for _, key := range tr.Keys() {
			if tr[key].Kind == remote.KindFolder {
				out[key] = "/"
				continue
			}
			body, err := os.ReadFile(filepath.Join(local, filepath.FromSlash(string(key))))
			require.NoError(t, err)
			out[key] = string(body)
		}
		return out
	}

	first, err := sy.Download(context.Background(), local, memstore.RootID, ".", tree.MatchAll)
	require.NoError(t, err)
	assert.ElementsMatch(t, []tree.PathKey{"a", "a/b", "c"}, first.Created)
	before := snapshot()

	second, err := sy.Download(context.Background(), local, memstore.RootID, ".", tree.MatchAll)
	require.NoError(t, err)
	assert.Empty(t, second.Created)
	assert.Len(t, second.Transferred, 3)
	assert.Empty(t, second.Failed)
	assert.Equal(t, before, snapshot())
}

func TestUpload_CreatesAncestorsBeforeDescendants(t *testing.T) {
	s := memstore.New()
	local := t.TempDir()
	writeLocal(t, local, "a/b/y.csv", "y")
	writeLocal(t, local, "a/x.csv", "x")
	writeLocal(t, local, "top.csv", "t")

	report, err := New(s).Upload(context.Background(), local, memstore.RootID, "in/2024", tree.MatchAll)
	require.NoError(t, err)

	assert.Equal(t, []tree.PathKey{
		"in", "in/2024", "in/2024/a", "in/2024/a/b", "in/2024/a/b/y.csv", "in/2024/a/x.csv", "in/2024/top.csv",
	}, report.Created)
	assert.Len(t, report.Transferred, 3)

	for i, step := range report.Plan {
		for _, prev := range report.Plan[i+1:] {
			_, below := step.Path.RelativeTo(prev.Path)
			assert.False(t, below && step.Path != prev.Path, "%s planned before its ancestor %s", step.Path, prev.Path)
		}
	}

	assert.Equal(t, []tree.PathKey{
		"in", "in/2024", "in/2024/a", "in/2024/a/b", "in/2024/a/b/y.csv", "in/2024/a/x.csv", "in/2024/top.csv",
	}, remoteKeys(t, s))
}

func TestUpload_Idempotent(t *testing.T) {
	s := memstore.New()
	local := t.TempDir()
	writeLocal(t, local, "a/b/y.csv", "y")
	writeLocal(t, local, "a/x.csv", "x")

	sy := New(s)
	_, err := sy.Upload(context.Background(), local, memstore.RootID, "dest", tree.MatchAll)
	require.NoError(t, err)
	creates, nodes := s.Creates(), s.Len()

	writeLocal(t, local, "a/x.csv", "x2")
	report, err := sy.Upload(context.Background(), local, memstore.RootID, "dest", tree.MatchAll)
	require.NoError(t, err)

	assert.Empty(t, report.Created)
	assert.Equal(t, creates, s.Creates())
	assert.Equal(t, nodes, s.Len())

	tr, err := tree.BuildRemote(context.Background(), s, memstore.RootID, "dest/a/x.csv")
	require.NoError(t, err)
	body, ok := s.Content(tr["dest/a/x.csv"].ID)
	require.True(t, ok)
	assert.Equal(t, "x2", string(body))
}

func TestUpload_MatchImpliesParents(t *testing.T) {
	s := memstore.New()
	local := t.TempDir()
	writeLocal(t, local, "a/b/y.csv", "y")
	writeLocal(t, local, "a/notes.txt", "n")

	report, err := New(s).Upload(context.Background(), local, memstore.RootID, ".", "**/*.csv")
	require.NoError(t, err)
	assert.Equal(t, []tree.PathKey{"a/b/y.csv"}, report.Transferred)
	assert.Equal(t, []tree.PathKey{"a", "a/b", "a/b/y.csv"}, remoteKeys(t, s))
}

func TestUpload_PartialFailure(t *testing.T) {
	s := memstore.New()
	local := t.TempDir()
	for i := 1; i <= 5; i++ {
		writeLocal(t, local, fmt.Sprintf("f%d.csv", i), "data")
	}
	boom := errors.New("rate limited")
	s.SetHooks(memstore.Hooks{BeforeUpload: func(n *remote.Node) error {
		if n.Title == "f3.csv" {
			return boom
		}
		return nil
	}})

	report, err := New(s).Upload(context.Background(), local, memstore.RootID, ".", tree.MatchAll)

	var failed *TransferFailedError
	require.ErrorAs(t, err, &failed)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []tree.PathKey{"f3.csv"}, failed.Paths())
	assert.Len(t, report.Transferred, 4)
	assert.EqualValues(t, 4, s.Uploads())
}

func TestUpload_KindMismatchIsPerPath(t *testing.T) {
	s := memstore.New()
	_, err := s.Mkdir(memstore.RootID, "x.csv")
	require.NoError(t, err)

	local := t.TempDir()
	writeLocal(t, local, "x.csv", "x")
	writeLocal(t, local, "ok.csv", "ok")

	report, err := New(s).Upload(context.Background(), local, memstore.RootID, ".", tree.MatchAll)
	var failed *TransferFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, []tree.PathKey{"x.csv"}, failed.Paths())
	assert.Equal(t, []tree.PathKey{"ok.csv"}, report.Transferred)
}

func TestUpload_DryRunTouchesNothing(t *testing.T) {
	s := memstore.New()
	local := t.TempDir()
	writeLocal(t, local, "a/x.csv", "x")

	report, err := New(s, WithDryRun(true)).Upload(context.Background(), local, memstore.RootID, "dest", tree.MatchAll)
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Len(t, report.Plan.Creates(), 3)
	assert.Equal(t, 1, report.Plan.Count(ActionUploadFile))
	assert.Zero(t, s.Creates())
	assert.Zero(t, s.Uploads())
	assert.Equal(t, 1, s.Len())
}

func TestUpload_IgnoresSyncignore(t *testing.T) {
	s := memstore.New()
	local := t.TempDir()
	writeLocal(t, local, ".syncignore", "scratch/\n")
	writeLocal(t, local, "scratch/tmp.csv", "t")
	writeLocal(t, local, "keep.csv", "k")
	writeLocal(t, local, ".DS_Store", "")

	report, err := New(s).Upload(context.Background(), local, memstore.RootID, ".", tree.MatchAll)
	require.NoError(t, err)
	assert.Equal(t, []tree.PathKey{"keep.csv"}, report.Transferred)
}

func TestUpload_Validation(t *testing.T) {
	s := memstore.New()
	_, err := New(s).Upload(context.Background(), filepath.Join(t.TempDir(), "missing"), memstore.RootID, ".", tree.MatchAll)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "does not exist", verr.Reason)

	_, err = New(s).Upload(context.Background(), t.TempDir(), "nope", ".", tree.MatchAll)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "destination id", verr.Subject)
}

func TestUpload_ThenDownloadRoundTrip(t *testing.T) {
	s := memstore.New()
	src := t.TempDir()
	writeLocal(t, src, "plants/p1.csv", "plant_code\nP1\n")
	writeLocal(t, src, "daily/d.csv", "plant_code,v\nP1,3\n")

	_, err := New(s).Upload(context.Background(), src, memstore.RootID, "exchange", tree.MatchAll)
	require.NoError(t, err)

	dst := t.TempDir()
	_, err = New(s).Download(context.Background(), dst, memstore.RootID, "exchange", tree.MatchAll)
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(dst, "daily", "d.csv"))
	require.NoError(t, err)
	assert.Equal(t, "plant_code,v\nP1,3\n", string(got))
}
