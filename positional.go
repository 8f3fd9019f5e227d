// Copyright (C) 2023 by Posit Software, PBC
package frf

import (
	"fmt"
)

// PositionalRecord is a fixed-width record backed by a rune buffer that is
// initialized to spaces.
type PositionalRecord struct {
	typedRecord
	buf []rune
}

// NewPositionalRecord returns a blank record of the schema's total width.
func NewPositionalRecord(s *Schema) *PositionalRecord {
	r := &PositionalRecord{buf: spaces(s.Width())}
	r.typedRecord = typedRecord{schema: s, s: r}
	return r
}

// ParsePositionalRecord builds a record from a line. Lines shorter than the
// schema width are rejected; characters past the width are kept as-is.
func ParsePositionalRecord(s *Schema, line string) (*PositionalRecord, error) {
	runes := []rune(line)
	if len(runes) < s.Width() {
		return nil, recordErrorf(ErrInvalidLength, line, "record has an invalid length: %d (expected %d)", len(runes), s.Width())
	}
	r := &PositionalRecord{buf: runes}
	r.typedRecord = typedRecord{schema: s, s: r}
	return r, nil
}

func spaces(n int) []rune {
	bs := make([]rune, n)
	for i := range bs {
		bs[i] = ' '
	}
	return bs
}

func (r *PositionalRecord) Columns() int {
	return len(r.schema.positions) - 1
}

func (r *PositionalRecord) checkPos(pos int) error {
	if pos < 0 || pos > len(r.schema.positions)-2 {
		return &RecordError{
			Err: ErrInvalidPosition,
			Msg: fmt.Sprintf("%d (max = %d)", pos, len(r.schema.positions)-2),
			Raw: r.String(),
		}
	}
	return nil
}

func (r *PositionalRecord) getPos(pos int) (string, error) {
	if err := r.checkPos(pos); err != nil {
		return "", err
	}
	return string(r.buf[r.schema.positions[pos]:r.schema.positions[pos+1]]), nil
}

// setPos blanks the slot, then writes val left-aligned. A value wider than
// the slot leaves it blank and is reported as too large.
func (r *PositionalRecord) setPos(pos int, val string) error {
	if err := r.clearPos(pos); err != nil {
		return err
	}
	start, end := r.schema.positions[pos], r.schema.positions[pos+1]
	runes := []rune(val)
	if len(runes) > end-start {
		return &RecordError{
			Err: ErrValueTooLarge,
			Msg: fmt.Sprintf("pos %d: '%s' has length %d (max: %d)", pos, val, len(runes), end-start),
			Raw: r.String(),
		}
	}
	copy(r.buf[start:end], runes)
	return nil
}

func (r *PositionalRecord) clearPos(pos int) error {
	if err := r.checkPos(pos); err != nil {
		return err
	}
	for i := r.schema.positions[pos]; i < r.schema.positions[pos+1]; i++ {
		r.buf[i] = ' '
	}
	return nil
}

func (r *PositionalRecord) String() string {
	return string(r.buf)
}
