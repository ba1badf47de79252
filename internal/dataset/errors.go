package dataset

import "fmt"

// FileAccessError indicates a source file is missing, unreadable, or not a
// usable table (bad quoting, unreadable workbook, missing header columns).
type FileAccessError struct {
	Path string
	Err  error
}

func (e *FileAccessError) Error() string {
	if e == nil {
		return "file access error"
	}
	return fmt.Sprintf("cannot load %s: %v", e.Path, e.Err)
}

func (e *FileAccessError) Unwrap() error { return e.Err }

// ParseError indicates a value that could not be interpreted: an unparseable
// timestamp or a non-numeric measure.
type ParseError struct {
	Path   string
	Row    int // 1-based data row, header excluded
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	if e == nil {
		return "parse error"
	}
	loc := e.Column
	if e.Row > 0 {
		loc = fmt.Sprintf("row %d, column %s", e.Row, e.Column)
	}
	if e.Path != "" {
		loc = e.Path + ": " + loc
	}
	if e.Err != nil {
		return fmt.Sprintf("parse %s: %q: %v", loc, e.Value, e.Err)
	}
	return fmt.Sprintf("parse %s: %q", loc, e.Value)
}

func (e *ParseError) Unwrap() error { return e.Err }
