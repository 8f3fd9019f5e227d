// Copyright (C) 2023 by Posit Software, PBC
package frf

import (
	"strings"
)

/*

A header line describes the columns of a layout. For delimited layouts the
column names are joined with the delimiter:

	id;name;amount

For positional layouts each name is written into its column slot, padded with
spaces, so the header lines up with the records below it:

	id   name      amount

Synthetic gap columns are left blank.

*/

// Header synthesizes a header line from the column names. Columns without a
// Name fall back to their Field.
func (s *Schema) Header() (string, error) {
	switch s.kind {
	case KindDelimited:
		return s.delimitedHeader(), nil
	case KindPositional:
		return s.positionalHeader()
	default:
		return "", schemaErrorf(s.name, "cannot write a header for a %s layout", s.kind)
	}
}

func (s *Schema) delimitedHeader() string {
	names := make([]string, s.ColumnCount())
	for _, c := range s.columns {
		if !c.Synthetic {
			names[c.Index] = headerName(c)
		}
	}
	return strings.Join(names, s.delimiter)
}

func (s *Schema) positionalHeader() (string, error) {
	r := NewPositionalRecord(s)
	for _, c := range s.columns {
		if c.Synthetic {
			continue
		}
		if err := r.setPos(c.Index, headerName(c)); err != nil {
			return "", &SchemaError{Type: s.name, Msg: "column name does not fit in its column", Err: err}
		}
	}
	return r.String(), nil
}

func headerName(c Column) string {
	if c.Name != "" {
		return c.Name
	}
	return c.Field
}
