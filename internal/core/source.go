package core

// source.go provides row sources for batch runs.
//
// CSVSource checks the whole file's structure when it is opened: the
// header must match Columns exactly and every record must have the same
// number of fields. A structural problem fails NewCSVSource with a
// SourceFormatError so that no row of a malformed file is ever processed.
// Rows are then handed out one at a time in file order.

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
)

// utf8BOM is prepended by Excel and other Windows programs.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// RowSource is a lazy, finite, ordered sequence of candidate rows.
// Next returns io.EOF after the last row.
type RowSource interface {
	Next() (Row, error)
}

// CSVSource reads rows from a CSV file in the fixed column layout.
type CSVSource struct {
	name    string
	records [][]string
	lines   []int // Physical record number of each data row, 1-based
	pos     int
}

// NewCSVSource reads and checks the structure of r. name is used in
// messages only.
func NewCSVSource(r io.Reader, name string) (*CSVSource, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", name)
	}
	data = sanitize(data)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	all, err := reader.ReadAll()
	if err != nil {
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			return nil, newSourceFormatError(pe.Line, pe.Err.Error())
		}
		return nil, newSourceFormatError(0, err.Error())
	}
	if len(all) == 0 {
		return nil, newSourceFormatError(0, "empty file: a header row is required")
	}

	if err := checkHeader(all[0]); err != nil {
		return nil, err
	}

	src := &CSVSource{name: name}
	for i, rec := range all[1:] {
		line := i + 2
		if isEmptyRow(rec) {
			continue
		}
		if len(rec) != len(Columns) {
			return nil, newSourceFormatError(line,
				fmt.Sprintf("expected %d columns, found %d", len(Columns), len(rec)))
		}
		src.records = append(src.records, rec)
		src.lines = append(src.lines, line)
	}

	return src, nil
}

// Len returns the number of data rows.
func (s *CSVSource) Len() int {
	return len(s.records)
}

// Name returns the source name.
func (s *CSVSource) Name() string {
	return s.name
}

// Next returns the next row. Row indexes count data rows from 1; blank
// lines are not counted.
func (s *CSVSource) Next() (Row, error) {
	if s.pos >= len(s.records) {
		return Row{}, io.EOF
	}
	rec := s.records[s.pos]
	s.pos++

	values := make(map[string]string, len(Columns))
	for i, c := range Columns {
		values[c] = rec[i]
	}
	row := Row{Index: s.pos, Values: values}
	row.Key = RowKey(row)
	return row, nil
}

// SliceSource serves rows from memory. Indexes are assigned in order when
// a row has none.
type SliceSource struct {
	rows []Row
	pos  int
}

// NewSliceSource creates a source over rows.
func NewSliceSource(rows ...Row) *SliceSource {
	return &SliceSource{rows: rows}
}

// Next returns the next row.
func (s *SliceSource) Next() (Row, error) {
	if s.pos >= len(s.rows) {
		return Row{}, io.EOF
	}
	row := s.rows[s.pos]
	s.pos++
	if row.Index == 0 {
		row.Index = s.pos
	}
	if row.Key == "" {
		row.Key = RowKey(row)
	}
	return row, nil
}

// RowKey fingerprints a row's position, values, platforms and attributes.
func RowKey(r Row) string {
	h := xxhash.New()
	fmt.Fprintf(h, "%d\x1f", r.Index)
	for _, c := range Columns {
		h.WriteString(r.Values[c])
		h.WriteString("\x1f")
	}
	h.WriteString(strings.Join(r.Platforms, ","))
	platforms := make([]string, 0, len(r.Attributes))
	for p := range r.Attributes {
		platforms = append(platforms, p)
	}
	sort.Strings(platforms)
	for _, p := range platforms {
		keys := make([]string, 0, len(r.Attributes[p]))
		for k := range r.Attributes[p] {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(h, "\x1e%s.%s=%s", p, k, r.Attributes[p][k])
		}
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// RowFromRecord renders a committed record as a row-source row.
func RowFromRecord(index int, r Record) Row {
	row := Row{
		Index:  index,
		Values: r.Values(),
	}
	row.Key = RowKey(row)
	return row
}

// checkHeader requires the exact column list, in order.
func checkHeader(header []string) error {
	if len(header) != len(Columns) {
		return newSourceFormatError(1,
			fmt.Sprintf("header has %d columns, expected %d", len(header), len(Columns)))
	}
	for i, want := range Columns {
		got := CleanCell(header[i])
		if !strings.EqualFold(got, want) {
			return newSourceFormatError(1,
				fmt.Sprintf("column %d is %q, expected %q", i+1, got, want))
		}
	}
	return nil
}

// sanitize strips a UTF-8 BOM and replaces invalid UTF-8 sequences.
func sanitize(data []byte) []byte {
	data = bytes.TrimPrefix(data, utf8BOM)
	return bytes.ToValidUTF8(data, []byte("�"))
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
