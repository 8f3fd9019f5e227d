// Copyright (C) 2023 by Posit Software, PBC
package frf

// Column is a compiled column: the declared spec with its formats resolved
// and its index in the record.
type Column struct {
	ColumnSpec

	// Index is the column position used by Record getters and setters.
	Index int
	// DateFormat and BoolFormat are resolved against the compile defaults.
	DateFormat string
	BoolFormat BoolFormat
	// Synthetic marks gap, skip, and pad columns inserted by the compiler.
	Synthetic bool
}

// Schema is a compiled, immutable record layout. It is safe for concurrent
// use; every accessor returns copies.
type Schema struct {
	name string
	kind Kind
	tag  string

	// All columns in position order, synthetic ones included.
	columns []Column
	// Indexes into columns of the declared columns, in declaration order.
	declared []int
	lengths  []int

	// Positional only: positions[i] is the start offset of column i and the
	// last entry is the total width.
	positions []int

	// Delimited only.
	delimiter  string
	minColumns int
	enclose    string
}

func (s *Schema) Name() string { return s.name }
func (s *Schema) Kind() Kind   { return s.kind }

// Tag is the composite type tag of the schema, if it was compiled as a
// sub-record.
func (s *Schema) Tag() string { return s.tag }

func (s *Schema) Delimiter() string { return s.delimiter }
func (s *Schema) MinColumns() int   { return s.minColumns }
func (s *Schema) Enclose() string   { return s.enclose }

// Width is the total width of a positional record, or zero.
func (s *Schema) Width() int {
	if len(s.positions) == 0 {
		return 0
	}
	return s.positions[len(s.positions)-1]
}

// ColumnCount is the number of addressable columns in a fresh record.
func (s *Schema) ColumnCount() int {
	if s.kind == KindDelimited && s.minColumns > len(s.columns) {
		return s.minColumns
	}
	return len(s.columns)
}

// Columns returns the declared columns in declaration order.
func (s *Schema) Columns() []Column {
	out := make([]Column, 0, len(s.declared))
	for _, i := range s.declared {
		out = append(out, s.columns[i])
	}
	return out
}

// AllColumns returns every compiled column, synthetic ones included.
func (s *Schema) AllColumns() []Column {
	return append([]Column(nil), s.columns...)
}

// Lengths returns the width of every compiled column.
func (s *Schema) Lengths() []int {
	return append([]int(nil), s.lengths...)
}

// Positions returns the positional offset table.
func (s *Schema) Positions() []int {
	return append([]int(nil), s.positions...)
}

// lengthAt is the width limit of a column; zero or less means unbounded.
func (s *Schema) lengthAt(pos int) int {
	if pos < 0 || pos >= len(s.lengths) {
		return -1
	}
	return s.lengths[pos]
}

// encloseAt is the enclosure token of a column.
func (s *Schema) encloseAt(pos int) string {
	if pos >= 0 && pos < len(s.columns) {
		return s.columns[pos].Enclose
	}
	return s.enclose
}

// NewRecord returns an empty record ready to be populated and serialized.
func (s *Schema) NewRecord() Record {
	if s.kind == KindPositional {
		return NewPositionalRecord(s)
	}
	return NewDelimitedRecord(s)
}

// Parse builds a record from a line.
func (s *Schema) Parse(line string) (Record, error) {
	if s.kind == KindPositional {
		r, err := ParsePositionalRecord(s, line)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
	r, err := ParseDelimitedRecord(s, line)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Schema) withTag(tag string) *Schema {
	c := *s
	c.tag = tag
	return &c
}
