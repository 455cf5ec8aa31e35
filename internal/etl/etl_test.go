package etl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/openmined/solarsync/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, root, rel, body string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
}

func readTable(t *testing.T, path string) *dataset.Table {
	t.Helper()
	tbl, err := dataset.Read(path)
	require.NoError(t, err)
	return tbl
}

func TestUpdate_DedupLaw(t *testing.T) {
	prev, latest, out := t.TempDir(), t.TempDir(), t.TempDir()
	writeCSV(t, prev, "2024/daily_2024-01.csv", "k,v\nr1,1\nr2,2\n")
	writeCSV(t, latest, "2024/daily_2024-01.csv", "k,v\nr2,2\nr3,3\n")

	res, err := Update(context.Background(), prev, latest, out, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024/daily_2024-01.csv"}, res.Written)

	got := readTable(t, filepath.Join(out, "2024", "daily_2024-01.csv"))
	assert.ElementsMatch(t, [][]string{{"r1", "1"}, {"r2", "2"}, {"r3", "3"}}, got.Rows)
}

func TestUpdate_InputOrderDoesNotChangeRowSet(t *testing.T) {
	prev, latest, out := t.TempDir(), t.TempDir(), t.TempDir()
	writeCSV(t, prev, "a.csv", "k\nr2\nr1\n")
	writeCSV(t, latest, "a.csv", "k\nr3\nr2\n")

	_, err := Update(context.Background(), prev, latest, out, nil)
	require.NoError(t, err)
	got := readTable(t, filepath.Join(out, "a.csv"))
	assert.ElementsMatch(t, [][]string{{"r1"}, {"r2"}, {"r3"}}, got.Rows)
	assert.Equal(t, 3, got.Len())
}

func TestUpdate_PreviousAbsentOrUnusable(t *testing.T) {
	tests := []struct {
		name     string
		previous func(t *testing.T) string
	}{
		{"no previous dir", func(t *testing.T) string { return filepath.Join(t.TempDir(), "none") }},
		{"unset", func(t *testing.T) string { return "" }},
		{"empty file", func(t *testing.T) string {
			d := t.TempDir()
			writeCSV(t, d, "a.csv", "")
			return d
		}},
		{"header only with other columns", func(t *testing.T) string {
			d := t.TempDir()
			writeCSV(t, d, "a.csv", "k,v,extra\n")
			return d
		}},
		{"corrupt file", func(t *testing.T) string {
			d := t.TempDir()
			writeCSV(t, d, "a.csv", "k,v\n\"r0,0\n")
			return d
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			latest, out := t.TempDir(), t.TempDir()
			writeCSV(t, latest, "a.csv", "k,v\nr1,1\nr2,2\nr2,2\n")

			_, err := Update(context.Background(), tt.previous(t), latest, out, nil)
			require.NoError(t, err)
			assert.Equal(t, readTable(t, filepath.Join(latest, "a.csv")), readTable(t, filepath.Join(out, "a.csv")))
		})
	}
}

func TestUpdate_ShortRowsInPreviousKeepHistory(t *testing.T) {
	prev, latest, out := t.TempDir(), t.TempDir(), t.TempDir()
	writeCSV(t, prev, "a.csv", "k,v,note\nr1,1,x\nr0\n")
	writeCSV(t, latest, "a.csv", "k,v,note\nr2,2,y\n")

	_, err := Update(context.Background(), prev, latest, out, nil)
	require.NoError(t, err)

	got := readTable(t, filepath.Join(out, "a.csv"))
	assert.Equal(t, [][]string{{"r1", "1", "x"}, {"r0", "", ""}, {"r2", "2", "y"}}, got.Rows)
}

func TestUpdate_RemapOntoOneNameKeepsBothColumns(t *testing.T) {
	prev, latest, out := t.TempDir(), t.TempDir(), t.TempDir()
	writeCSV(t, prev, "a.csv", "x,x\n0,0\n")
	writeCSV(t, latest, "a.csv", "a,b\n1,2\n")

	remap := &Remap{Columns: map[string]string{"a": "x", "b": "x"}}
	_, err := Update(context.Background(), prev, latest, out, remap)
	require.NoError(t, err)

	got := readTable(t, filepath.Join(out, "a.csv"))
	assert.Equal(t, []string{"x", "x"}, got.Header)
	assert.Equal(t, [][]string{{"0", "0"}, {"1", "2"}}, got.Rows)
}

func TestUpdate_SkipsEmptyLatest(t *testing.T) {
	latest, out := t.TempDir(), t.TempDir()
	writeCSV(t, latest, "empty.csv", "")
	writeCSV(t, latest, "ok.csv", "k\n1\n")
	writeCSV(t, latest, "notes.txt", "ignored")

	res, err := Update(context.Background(), "", latest, out, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"ok.csv"}, res.Written)
	assert.Equal(t, []string{"empty.csv"}, res.Skipped)
	assert.NoFileExists(t, filepath.Join(out, "empty.csv"))
	assert.NoFileExists(t, filepath.Join(out, "notes.txt"))
}

func TestUpdate_RemapAppliedToLatestOnly(t *testing.T) {
	prev, latest, out := t.TempDir(), t.TempDir(), t.TempDir()
	writeCSV(t, prev, "a.csv", "plant_code,state\nP1,online\n")
	writeCSV(t, latest, "a.csv", "stationCode,status,junk\nP1,1,x\nP2,2,y\n")

	remap, err := LoadRemap(writeConfig(t, "remap.json",
		`{"columns": {"stationCode": "plant_code", "status": "state"}, "values": {"state": {"1": "online", "2": "offline"}}}`))
	require.NoError(t, err)

	_, err = Update(context.Background(), prev, latest, out, remap)
	require.NoError(t, err)

	got := readTable(t, filepath.Join(out, "a.csv"))
	assert.Equal(t, []string{"plant_code", "state"}, got.Header)
	assert.Equal(t, [][]string{{"P1", "online"}, {"P2", "offline"}}, got.Rows)
}

func TestUpdate_UnparseableRemapWritesNothing(t *testing.T) {
	latest, out := t.TempDir(), t.TempDir()
	writeCSV(t, latest, "a.csv", "k\n1\n")

	_, err := LoadRemap(writeConfig(t, "remap.json", "not json"))
	var cerr *ConfigDecodeError
	require.ErrorAs(t, err, &cerr)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStandardize(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeCSV(t, src, "fus/realtime_2024.csv", "stationCode,inverter_state\nP1,512\n")
	writeCSV(t, src, "fus/empty.csv", "")

	remap := &Remap{
		Columns: map[string]string{"stationCode": "plant_code", "inverter_state": "state"},
		Values:  map[string]map[string]string{"state": {"512": "grid"}},
	}
	res, err := Standardize(context.Background(), src, dst, remap)
	require.NoError(t, err)
	assert.Equal(t, []string{"fus/realtime_2024.csv"}, res.Written)

	got := readTable(t, filepath.Join(dst, "fus", "realtime_2024.csv"))
	assert.Equal(t, []string{"plant_code", "state"}, got.Header)
	assert.Equal(t, [][]string{{"P1", "grid"}}, got.Rows)

	_, err = Standardize(context.Background(), src, dst, nil)
	assert.Error(t, err)
}

func TestAggregate(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeCSV(t, src, "fus/daily_2024-02.csv", "plant_code,collect_time,v\nB,200,1\nA,200,2\n")
	writeCSV(t, src, "hfs/daily_2024-01.csv", "plant_code,collect_time,v\nC,100,3\n")
	writeCSV(t, src, "hfs/daily.csv", "plant_code,collect_time,v\nZ,1,9\n")

	res, err := Aggregate(context.Background(), src, dst, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"daily.csv"}, res.Written)
	assert.Contains(t, res.Skipped, "plants")

	got := readTable(t, filepath.Join(dst, "daily.csv"))
	assert.Equal(t, [][]string{{"C", "100", "3"}, {"A", "200", "2"}, {"B", "200", "1"}}, got.Rows)
	assert.NoFileExists(t, filepath.Join(dst, "hourly.csv"))
}
