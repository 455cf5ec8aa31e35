// Package dataset loads and writes the CSV tables exchanged through the shared folders.
// Cells are kept as text; no type inference is applied.
package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/openmined/solarsync/internal/utils"
)

// ErrEmptyData is returned when a file carries no header at all.
var ErrEmptyData = errors.New("empty data")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type Table struct {
	Header []string
	Rows   [][]string
}

// Read loads the table at path. A zero-byte or whitespace-only file yields ErrEmptyData;
// a header-only file yields an empty table.
func Read(path string) (*Table, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	t, err := Decode(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func Decode(r io.Reader) (*Table, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	body = bytes.TrimPrefix(body, utf8BOM)
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrEmptyData
	}

	reader := csv.NewReader(bytes.NewReader(body))
	// short and long rows are kept; missing cells read as empty
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyData
	}

	return &Table{Header: records[0], Rows: records[1:]}, nil
}

// Encode writes the header and rows as CSV.
func (t *Table) Encode(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// Write replaces path atomically, creating parent directories.
func (t *Table) Write(path string) error {
	var buf bytes.Buffer
	if err := t.Encode(&buf); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := utils.EnsureParent(path); err != nil {
		return err
	}
	return utils.WriteBytesAtomic(path, buf.Bytes())
}

func (t *Table) Len() int {
	return len(t.Rows)
}

func (t *Table) Empty() bool {
	return len(t.Rows) == 0
}

// Column returns the index of name, or -1.
func (t *Table) Column(name string) int {
	return slices.Index(t.Header, name)
}

// Project keeps the columns accepted by keep, in table order.
func (t *Table) Project(keep func(column string) bool) *Table {
	var idx []int
	out := &Table{}
	for i, col := range t.Header {
		if keep(col) {
			idx = append(idx, i)
			out.Header = append(out.Header, col)
		}
	}
	out.Rows = make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		projected := make([]string, len(idx))
		for j, i := range idx {
			projected[j] = cell(row, i)
		}
		out.Rows = append(out.Rows, projected)
	}
	return out
}

// Rename changes column names in place. Unknown names are left untouched.
func (t *Table) Rename(names map[string]string) {
	for i, col := range t.Header {
		if to, ok := names[col]; ok {
			t.Header[i] = to
		}
	}
}

// Replace rewrites the cells of column whose text is a key of values.
func (t *Table) Replace(column string, values map[string]string) {
	i := t.Column(column)
	if i < 0 {
		return
	}
	for _, row := range t.Rows {
		if i >= len(row) {
			continue
		}
		if to, ok := values[row[i]]; ok {
			row[i] = to
		}
	}
}

// columnKey identifies a column by name and by how many earlier columns share
// that name, so repeated names keep separate positions.
type columnKey struct {
	name string
	nth  int
}

func columnKeys(header []string) []columnKey {
	counts := make(map[string]int, len(header))
	keys := make([]columnKey, len(header))
	for i, col := range header {
		keys[i] = columnKey{name: col, nth: counts[col]}
		counts[col]++
	}
	return keys
}

// Concat stacks tables vertically over the union of their columns, in first-seen
// order. Cells of missing columns are empty. A name repeated within a header
// matches the same repetition in the other tables.
func Concat(tables ...*Table) *Table {
	out := &Table{}
	seen := make(map[columnKey]int)
	keys := make([][]columnKey, len(tables))
	for ti, t := range tables {
		keys[ti] = columnKeys(t.Header)
		for _, key := range keys[ti] {
			if _, ok := seen[key]; !ok {
				seen[key] = len(out.Header)
				out.Header = append(out.Header, key.name)
			}
		}
	}
	for ti, t := range tables {
		for _, row := range t.Rows {
			aligned := make([]string, len(out.Header))
			for i, key := range keys[ti] {
				aligned[seen[key]] = cell(row, i)
			}
			out.Rows = append(out.Rows, aligned)
		}
	}
	return out
}

// DedupKeepLast drops exact duplicate rows. Among identical rows the last one is
// kept at its position.
func (t *Table) DedupKeepLast() *Table {
	seen := mapset.NewThreadUnsafeSetWithSize[string](len(t.Rows))
	kept := make([][]string, 0, len(t.Rows))
	for i := len(t.Rows) - 1; i >= 0; i-- {
		key := rowKey(t.Rows[i])
		if seen.Contains(key) {
			continue
		}
		seen.Add(key)
		kept = append(kept, t.Rows[i])
	}
	slices.Reverse(kept)
	return &Table{Header: slices.Clone(t.Header), Rows: kept}
}

// SortBy orders rows by the given columns. Columns absent from the table are
// skipped. Cells that both parse as numbers compare numerically.
func (t *Table) SortBy(columns ...string) {
	var idx []int
	for _, col := range columns {
		if i := t.Column(col); i >= 0 {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return
	}
	slices.SortStableFunc(t.Rows, func(a, b []string) int {
		for _, i := range idx {
			if c := compareCells(cell(a, i), cell(b, i)); c != 0 {
				return c
			}
		}
		return 0
	})
}

func compareCells(a, b string) int {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// rowKey length-prefixes every cell so no cell content can fake a boundary.
func rowKey(row []string) string {
	var buf bytes.Buffer
	for _, c := range row {
		buf.WriteString(strconv.Itoa(len(c)))
		buf.WriteByte(':')
		buf.WriteString(c)
	}
	return buf.String()
}
