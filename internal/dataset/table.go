package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// table is a header-indexed view over a delimited file.
type table struct {
	path   string
	header []string
	index  map[string]int // lower-cased header name -> column
	rows   [][]string
}

// readTable reads a delimited file or an .xlsx workbook with a header row.
// Any open or read failure is reported as a FileAccessError.
func readTable(path string, opt Options) (*table, error) {
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return readWorkbook(path, opt.Sheet)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, &FileAccessError{Path: path, Err: err}
	}
	defer f.Close()
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(path)
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comma = delim

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &FileAccessError{Path: path, Err: errEmptyFile}
		}
		return nil, &FileAccessError{Path: path, Err: fmt.Errorf("read header: %w", err)}
	}
	t := newTable(path, header)
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &FileAccessError{Path: path, Err: fmt.Errorf("read row %d: %w", len(t.rows)+1, err)}
		}
		t.add(rec)
	}
	return t, nil
}

var errEmptyFile = errors.New("empty file (no header row)")

func newTable(path string, header []string) *table {
	t := &table{path: path, header: header, index: make(map[string]int, len(header))}
	for i, h := range header {
		// A UTF-8 BOM on the first header cell is common in spreadsheet exports.
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if name == "" {
			continue
		}
		if _, dup := t.index[name]; !dup {
			t.index[name] = i
		}
	}
	return t
}

// add appends a record padded to the header width.
func (t *table) add(rec []string) {
	if len(rec) < len(t.header) {
		tmp := make([]string, len(t.header))
		copy(tmp, rec)
		rec = tmp
	}
	t.rows = append(t.rows, rec)
}

// column resolves the first present name among aliases.
func (t *table) column(aliases ...string) (int, error) {
	for _, a := range aliases {
		if i, ok := t.index[a]; ok {
			return i, nil
		}
	}
	return -1, &FileAccessError{Path: t.path, Err: fmt.Errorf("missing column %q", aliases[0])}
}

// optionalColumn returns -1 when none of the aliases is present.
func (t *table) optionalColumn(aliases ...string) int {
	for _, a := range aliases {
		if i, ok := t.index[a]; ok {
			return i
		}
	}
	return -1
}

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func sniffDelimiter(path string) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}

// parseMeasure parses a numeric measure. With decimal ',' the value is read
// in continental notation ("1.234,5"); otherwise ',' is a thousands
// separator ("1,234.5").
func parseMeasure(s string, decimal rune) (float64, error) {
	raw := strings.TrimSpace(strings.ReplaceAll(s, " ", ""))
	if raw == "" {
		return 0, errors.New("empty value")
	}
	if decimal == ',' {
		raw = strings.ReplaceAll(raw, ".", "")
		raw = strings.ReplaceAll(raw, ",", ".")
	} else {
		raw = strings.ReplaceAll(raw, ",", "")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errNotFinite
	}
	return v, nil
}

var errNotFinite = errors.New("not a finite number")
