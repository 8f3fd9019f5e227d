// Copyright (C) 2023 by Posit Software, PBC
package frf

import (
	"fmt"
	"strings"
)

// DelimitedRecord is a delimiter-separated record backed by one string per
// column. Enclosure tokens are stored as written on the line.
type DelimitedRecord struct {
	typedRecord
	cols []string
}

// NewDelimitedRecord returns a record with every column empty.
func NewDelimitedRecord(s *Schema) *DelimitedRecord {
	r := &DelimitedRecord{cols: make([]string, s.ColumnCount())}
	r.typedRecord = typedRecord{schema: s, s: r}
	return r
}

// ParseDelimitedRecord splits a line on the schema delimiter. Trailing empty
// fields are kept. Splitting is literal: a delimiter inside an enclosed value
// still separates columns.
func ParseDelimitedRecord(s *Schema, line string) (*DelimitedRecord, error) {
	cols := strings.Split(line, s.delimiter)
	if len(cols) < s.minColumns {
		return nil, recordErrorf(ErrTooFewColumns, line, "found %d columns, expected at least %d", len(cols), s.minColumns)
	}
	r := &DelimitedRecord{cols: cols}
	r.typedRecord = typedRecord{schema: s, s: r}
	return r, nil
}

func (r *DelimitedRecord) Columns() int {
	return len(r.cols)
}

func (r *DelimitedRecord) checkPos(pos int) error {
	if pos < 0 || pos >= len(r.cols) {
		return &RecordError{
			Err: ErrInvalidPosition,
			Msg: fmt.Sprintf("%d (max = %d)", pos, len(r.cols)-1),
			Raw: r.String(),
		}
	}
	return nil
}

func (r *DelimitedRecord) getPos(pos int) (string, error) {
	if err := r.checkPos(pos); err != nil {
		return "", err
	}
	v := r.cols[pos]
	if token := r.schema.encloseAt(pos); token != "" && v != "" {
		u, err := unenclose(v, token)
		if err != nil {
			return "", &RecordError{Err: err, Msg: columnLabel(r.schema, pos), Raw: r.String()}
		}
		v = u
	}
	if err := r.checkLength(pos, v); err != nil {
		return "", err
	}
	return v, nil
}

// checkLength enforces the declared width of a column, when it has one.
func (r *DelimitedRecord) checkLength(pos int, val string) error {
	n := len([]rune(val))
	if max := r.schema.lengthAt(pos); max > 0 && n > max {
		return &RecordError{
			Err: ErrValueTooLarge,
			Msg: fmt.Sprintf("pos %d: '%s' has length %d (max: %d)", pos, val, n, max),
			Raw: r.String(),
		}
	}
	return nil
}

func (r *DelimitedRecord) setPos(pos int, val string) error {
	if err := r.checkPos(pos); err != nil {
		return err
	}
	if err := r.checkLength(pos, val); err != nil {
		return err
	}
	if token := r.schema.encloseAt(pos); token != "" {
		val = enclose(val, token)
	}
	r.cols[pos] = val
	return nil
}

func (r *DelimitedRecord) clearPos(pos int) error {
	if err := r.checkPos(pos); err != nil {
		return err
	}
	r.cols[pos] = ""
	return nil
}

func (r *DelimitedRecord) String() string {
	return strings.Join(r.cols, r.schema.delimiter)
}
