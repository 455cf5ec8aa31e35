package etl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/openmined/solarsync/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadRemap(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		body    string
		columns map[string]string
		values  map[string]map[string]string
	}{
		{
			name:    "structured json",
			file:    "remap.json",
			body:    `{"columns": {"stationCode": "plant_code", "status": "state"}, "values": {"state": {"1": "online", "2": 0}}}`,
			columns: map[string]string{"stationCode": "plant_code", "status": "state"},
			values:  map[string]map[string]string{"state": {"1": "online", "2": "0"}},
		},
		{
			name:    "flat json",
			file:    "rename.json",
			body:    `{"stationCode": "plant_code"}`,
			columns: map[string]string{"stationCode": "plant_code"},
		},
		{
			name:    "structured yaml with numeric keys",
			file:    "remap.yaml",
			body:    "columns:\n  status: state\nvalues:\n  state:\n    1: online\n",
			columns: map[string]string{"status": "state"},
			values:  map[string]map[string]string{"state": {"1": "online"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := LoadRemap(writeConfig(t, tt.file, tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.columns, r.Columns)
			if tt.values != nil {
				assert.Equal(t, tt.values, r.Values)
			} else {
				assert.Empty(t, r.Values)
			}
		})
	}
}

func TestLoadRemap_Errors(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"missing", filepath.Join(t.TempDir(), "nope.json")},
		{"not json", writeConfig(t, "bad.json", "{columns")},
		{"empty object", writeConfig(t, "empty.json", "{}")},
		{"nested column value", writeConfig(t, "nested.json", `{"columns": {"a": {"b": 1}}}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadRemap(tt.path)
			var cerr *ConfigDecodeError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.path, cerr.Path)
		})
	}
}

func TestRemapApply(t *testing.T) {
	r := &Remap{
		Columns: map[string]string{"stationCode": "plant_code", "status": "state"},
		Values:  map[string]map[string]string{"state": {"1": "online"}},
	}
	in := &dataset.Table{
		Header: []string{"extra", "status", "stationCode"},
		Rows:   [][]string{{"x", "1", "P1"}, {"y", "3", "P2"}},
	}

	out := r.Apply(in)
	assert.Equal(t, []string{"state", "plant_code"}, out.Header)
	assert.Equal(t, [][]string{{"online", "P1"}, {"3", "P2"}}, out.Rows)
	assert.Equal(t, []string{"extra", "status", "stationCode"}, in.Header, "input is not modified")
}
