package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantErr  error
		wantRows int
	}{
		{"zero bytes", "", ErrEmptyData, 0},
		{"whitespace", " \n\n", ErrEmptyData, 0},
		{"header only", "a,b\n", nil, 0},
		{"rows", "a,b\n1,2\n3,4\n", nil, 2},
		{"bom", "\xEF\xBB\xBFa,b\n1,2\n", nil, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := Decode(strings.NewReader(tt.input))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []string{"a", "b"}, tbl.Header)
			assert.Equal(t, tt.wantRows, tbl.Len())
		})
	}
}

func TestDecode_Corrupt(t *testing.T) {
	_, err := Decode(strings.NewReader("a,b\n\"1,2\n"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmptyData)
}

func TestDecode_RaggedRows(t *testing.T) {
	tbl, err := Decode(strings.NewReader("a,b,c\n1,2,3\n4\n5,6,7,8\n"))
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.Len())

	got := Concat(tbl)
	assert.Equal(t, [][]string{{"1", "2", "3"}, {"4", "", ""}, {"5", "6", "7"}}, got.Rows)
}

func TestConcat_RepeatedColumnNames(t *testing.T) {
	prev := &Table{Header: []string{"v", "k", "v"}, Rows: [][]string{{"1", "a", "2"}}}
	latest := &Table{Header: []string{"k", "v", "v"}, Rows: [][]string{{"b", "3", "4"}}}

	got := Concat(prev, latest)
	assert.Equal(t, []string{"v", "k", "v"}, got.Header)
	assert.Equal(t, [][]string{{"1", "a", "2"}, {"3", "b", "4"}}, got.Rows)
}

func TestConcatAlignsColumns(t *testing.T) {
	prev := &Table{Header: []string{"a", "b"}, Rows: [][]string{{"1", "2"}}}
	latest := &Table{Header: []string{"b", "c"}, Rows: [][]string{{"3", "4"}}}

	got := Concat(prev, latest)
	assert.Equal(t, []string{"a", "b", "c"}, got.Header)
	assert.Equal(t, [][]string{{"1", "2", ""}, {"", "3", "4"}}, got.Rows)
}

func TestDedupKeepLast(t *testing.T) {
	tbl := &Table{
		Header: []string{"k", "v"},
		Rows:   [][]string{{"r1", "1"}, {"r2", "2"}, {"r2", "2"}, {"r3", "3"}},
	}
	got := tbl.DedupKeepLast()
	assert.Equal(t, [][]string{{"r1", "1"}, {"r2", "2"}, {"r3", "3"}}, got.Rows)

	tbl = &Table{Header: []string{"k"}, Rows: [][]string{{"x"}, {"y"}, {"x"}}}
	assert.Equal(t, [][]string{{"y"}, {"x"}}, tbl.DedupKeepLast().Rows)
}

func TestDedupKeepLast_CellBoundaries(t *testing.T) {
	tbl := &Table{
		Header: []string{"a", "b"},
		Rows:   [][]string{{"a\x1fb", "c"}, {"a", "b\x1fc"}, {"a:", "b"}, {"a", ":b"}},
	}
	assert.Len(t, tbl.DedupKeepLast().Rows, 4)
}

func TestProjectRenameReplace(t *testing.T) {
	tbl := &Table{
		Header: []string{"stationCode", "junk", "status"},
		Rows:   [][]string{{"P1", "x", "1"}, {"P2", "y", "2"}},
	}
	got := tbl.Project(func(c string) bool { return c != "junk" })
	got.Rename(map[string]string{"stationCode": "plant_code"})
	got.Replace("status", map[string]string{"1": "online"})

	assert.Equal(t, []string{"plant_code", "status"}, got.Header)
	assert.Equal(t, [][]string{{"P1", "online"}, {"P2", "2"}}, got.Rows)
}

func TestSortBy(t *testing.T) {
	tbl := &Table{
		Header: []string{"plant_code", "collect_time"},
		Rows:   [][]string{{"B", "100"}, {"A", "100"}, {"A", "20"}},
	}
	tbl.SortBy("collect_time", "plant_code", "missing")
	assert.Equal(t, [][]string{{"A", "20"}, {"A", "100"}, {"B", "100"}}, tbl.Rows)
}

func TestWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.csv")
	tbl := &Table{Header: []string{"a", "b"}, Rows: [][]string{{"1", "x,y"}}}
	require.NoError(t, tbl.Write(path))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,\"x,y\"\n", string(body))

	back, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, tbl, back)
}
