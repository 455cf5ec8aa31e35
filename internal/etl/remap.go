package etl

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/openmined/solarsync/internal/dataset"
	"gopkg.in/yaml.v3"
)

// Remap projects a table onto a known column set, renames those columns and
// translates coded cell values.
//
// Two on-disk shapes are accepted:
//
//	{"columns": {"stationCode": "plant_code"}, "values": {"status": {"1": "online"}}}
//	{"stationCode": "plant_code"}
//
// Value tables are keyed by the renamed column.
type Remap struct {
	Columns map[string]string
	Values  map[string]map[string]string
}

// LoadRemap reads a JSON or YAML (.yaml, .yml) remap file. Every failure is a
// *ConfigDecodeError.
func LoadRemap(path string) (*Remap, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigDecodeError{Path: path, Err: err}
	}

	var raw map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(body, &raw)
	default:
		err = json.Unmarshal(body, &raw)
	}
	if err != nil {
		return nil, &ConfigDecodeError{Path: path, Err: err}
	}
	if len(raw) == 0 {
		return nil, &ConfigDecodeError{Path: path, Err: errors.New("no columns defined")}
	}

	r, err := parseRemap(raw)
	if err != nil {
		return nil, &ConfigDecodeError{Path: path, Err: err}
	}
	return r, nil
}

func parseRemap(raw map[string]any) (*Remap, error) {
	columns, structured := asObject(raw["columns"])
	if !structured {
		cols, err := stringMap(raw)
		if err != nil {
			return nil, err
		}
		return &Remap{Columns: cols}, nil
	}

	cols, err := stringMap(columns)
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	r := &Remap{Columns: cols, Values: make(map[string]map[string]string)}

	values, ok := raw["values"]
	if !ok || values == nil {
		return r, nil
	}
	byColumn, ok := asObject(values)
	if !ok {
		return nil, fmt.Errorf("values: expected an object, got %T", values)
	}
	for col, v := range byColumn {
		table, ok := asObject(v)
		if !ok {
			return nil, fmt.Errorf("values.%s: expected an object, got %T", col, v)
		}
		mapped, err := stringMap(table)
		if err != nil {
			return nil, fmt.Errorf("values.%s: %w", col, err)
		}
		r.Values[col] = mapped
	}
	return r, nil
}

// asObject accepts both decoded object shapes; YAML yields map[any]any when a
// mapping has non-string keys such as status codes.
func asObject(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	}
	return nil, false
}

func stringMap(m map[string]any) (map[string]string, error) {
	out := make(map[string]string, len(m))
	for k, v := range m {
		switch v := v.(type) {
		case string:
			out[k] = v
		case bool, int, int64, float64:
			out[k] = fmt.Sprint(v)
		default:
			return nil, fmt.Errorf("%s: expected a scalar, got %T", k, v)
		}
	}
	return out, nil
}

// Apply returns a new table holding only the remapped columns, in table order.
func (r *Remap) Apply(t *dataset.Table) *dataset.Table {
	out := t.Project(func(col string) bool {
		_, ok := r.Columns[col]
		return ok
	})
	out.Rename(r.Columns)
	for col, values := range r.Values {
		out.Replace(col, values)
	}
	return out
}
