package dataset

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
)

// readWorkbook reads one worksheet of an .xlsx file into a table. The first
// non-empty row is the header. An empty sheet name selects the first sheet.
func readWorkbook(p, sheet string) (*table, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, &FileAccessError{Path: p, Err: fmt.Errorf("open workbook: %w", err)}
	}
	defer zr.Close()

	sheets, err := workbookSheets(&zr.Reader)
	if err != nil {
		return nil, &FileAccessError{Path: p, Err: err}
	}
	if len(sheets) == 0 {
		return nil, &FileAccessError{Path: p, Err: errors.New("workbook has no sheets")}
	}
	target := sheets[0].target
	if sheet != "" {
		target = ""
		names := make([]string, 0, len(sheets))
		for _, s := range sheets {
			names = append(names, s.name)
			if strings.EqualFold(s.name, sheet) {
				target = s.target
			}
		}
		if target == "" {
			return nil, &FileAccessError{Path: p, Err: fmt.Errorf("sheet %q not found (available: %s)", sheet, strings.Join(names, ", "))}
		}
	}

	var shared []string
	if b, ok, err := zipEntry(&zr.Reader, "xl/sharedStrings.xml"); err != nil {
		return nil, &FileAccessError{Path: p, Err: err}
	} else if ok {
		if shared, err = sharedStrings(b); err != nil {
			return nil, &FileAccessError{Path: p, Err: fmt.Errorf("shared strings: %w", err)}
		}
	}
	b, ok, err := zipEntry(&zr.Reader, target)
	if err != nil {
		return nil, &FileAccessError{Path: p, Err: err}
	}
	if !ok {
		return nil, &FileAccessError{Path: p, Err: fmt.Errorf("missing worksheet part %s", target)}
	}

	rows, err := sheetRows(b, shared)
	if err != nil {
		return nil, &FileAccessError{Path: p, Err: fmt.Errorf("read worksheet: %w", err)}
	}
	for len(rows) > 0 && blankRow(rows[0]) {
		rows = rows[1:]
	}
	if len(rows) == 0 {
		return nil, &FileAccessError{Path: p, Err: errEmptyFile}
	}
	t := newTable(p, rows[0])
	for _, rec := range rows[1:] {
		if blankRow(rec) {
			continue
		}
		t.add(rec)
	}
	return t, nil
}

type workbookSheet struct {
	name   string
	target string // zip path of the worksheet part
}

// workbookSheets lists sheets in workbook order with their resolved parts.
func workbookSheets(zr *zip.Reader) ([]workbookSheet, error) {
	wb, ok, err := zipEntry(zr, "xl/workbook.xml")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("missing xl/workbook.xml")
	}
	var doc struct {
		Sheets []struct {
			Name string `xml:"name,attr"`
			ID   string `xml:"sheetId,attr"`
			RID  string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
		} `xml:"sheets>sheet"`
	}
	if err := xml.Unmarshal(wb, &doc); err != nil {
		return nil, fmt.Errorf("parse workbook: %w", err)
	}

	rels := map[string]string{}
	if b, ok, err := zipEntry(zr, "xl/_rels/workbook.xml.rels"); err != nil {
		return nil, err
	} else if ok {
		var r struct {
			Items []struct {
				ID     string `xml:"Id,attr"`
				Target string `xml:"Target,attr"`
			} `xml:"Relationship"`
		}
		if err := xml.Unmarshal(b, &r); err != nil {
			return nil, fmt.Errorf("parse workbook relationships: %w", err)
		}
		for _, it := range r.Items {
			rels[it.ID] = it.Target
		}
	}

	out := make([]workbookSheet, 0, len(doc.Sheets))
	for _, s := range doc.Sheets {
		target := "xl/worksheets/sheet" + s.ID + ".xml"
		if rel, ok := rels[s.RID]; ok {
			target = partPath(rel)
		}
		out = append(out, workbookSheet{name: s.Name, target: target})
	}
	return out, nil
}

// partPath turns a relationship target into a zip entry name. Targets are
// relative to xl/ unless they start with a slash.
func partPath(rel string) string {
	if strings.HasPrefix(rel, "/") {
		return strings.TrimPrefix(rel, "/")
	}
	if strings.HasPrefix(rel, "xl/") {
		return rel
	}
	return path.Join("xl", rel)
}

func zipEntry(zr *zip.Reader, name string) ([]byte, bool, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, true, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		b, err := io.ReadAll(rc)
		if err != nil {
			return nil, true, fmt.Errorf("read %s: %w", name, err)
		}
		return b, true, nil
	}
	return nil, false, nil
}

// sharedStrings returns the shared string table. Rich-text runs of one
// entry are concatenated.
func sharedStrings(b []byte) ([]string, error) {
	var doc struct {
		Items []struct {
			T    string `xml:"t"`
			Runs []struct {
				T string `xml:"t"`
			} `xml:"r"`
		} `xml:"si"`
	}
	if err := xml.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	out := make([]string, len(doc.Items))
	for i, si := range doc.Items {
		if len(si.Runs) == 0 {
			out[i] = si.T
			continue
		}
		var sb strings.Builder
		for _, r := range si.Runs {
			sb.WriteString(r.T)
		}
		out[i] = sb.String()
	}
	return out, nil
}

type sheetCell struct {
	Ref    string `xml:"r,attr"`
	Type   string `xml:"t,attr"`
	Value  string `xml:"v"`
	Inline string `xml:"is>t"`
}

// sheetRows returns the cell text of each row, placed by column reference so
// that skipped empty cells keep later values in their columns.
func sheetRows(b []byte, shared []string) ([][]string, error) {
	var doc struct {
		Rows []struct {
			Cells []sheetCell `xml:"c"`
		} `xml:"sheetData>row"`
	}
	if err := xml.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	rows := make([][]string, 0, len(doc.Rows))
	for _, r := range doc.Rows {
		var rec []string
		for i, c := range r.Cells {
			col := i
			if c.Ref != "" {
				col = columnIndex(c.Ref)
			}
			if col < 0 || col >= maxColumns {
				return nil, fmt.Errorf("invalid cell reference %q", c.Ref)
			}
			if col >= len(rec) {
				tmp := make([]string, col+1)
				copy(tmp, rec)
				rec = tmp
			}
			rec[col] = cellText(c, shared)
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func cellText(c sheetCell, shared []string) string {
	switch c.Type {
	case "s":
		i, err := strconv.Atoi(strings.TrimSpace(c.Value))
		if err != nil || i < 0 || i >= len(shared) {
			return ""
		}
		return shared[i]
	case "inlineStr":
		return c.Inline
	default:
		return c.Value
	}
}

// maxColumns is the worksheet width limit (column XFD).
const maxColumns = 16384

// columnIndex maps a cell reference like "C12" to its 0-based column. It
// returns -1 for a reference without letters or past column XFD.
func columnIndex(ref string) int {
	idx := 0
	n := 0
	for _, r := range strings.ToUpper(ref) {
		if r < 'A' || r > 'Z' {
			break
		}
		if n == 3 {
			return -1
		}
		idx = idx*26 + int(r-'A'+1)
		n++
	}
	if n == 0 || idx > maxColumns {
		return -1
	}
	return idx - 1
}

func blankRow(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
