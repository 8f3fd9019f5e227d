// Copyright (C) 2023 by Posit Software, PBC
package frf

import (
	"fmt"
	"strings"
)

// ColumnType is the semantic type of a column value.
type ColumnType int

const (
	ColumnString ColumnType = iota + 1
	ColumnDate
	ColumnInteger
	ColumnLong
	ColumnDouble
	ColumnDecimal
	ColumnBoolean
	ColumnCustom
)

var columnTypeNames = map[ColumnType]string{
	ColumnString:  "string",
	ColumnDate:    "date",
	ColumnInteger: "integer",
	ColumnLong:    "long",
	ColumnDouble:  "double",
	ColumnDecimal: "decimal",
	ColumnBoolean: "boolean",
	ColumnCustom:  "custom",
}

func (t ColumnType) String() string {
	if s, ok := columnTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("ColumnType(%d)", int(t))
}

// ParseColumnType maps a type name (as used in layout files) to a ColumnType.
func ParseColumnType(s string) (ColumnType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return ColumnString, nil
	}
	for t, n := range columnTypeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown column type %q", s)
}

// ColumnSpec describes one column before compilation.
type ColumnSpec struct {
	// Field identifies the value bound to the column (a struct field name
	// when the spec was discovered from a struct).
	Field string
	// Name is the header token of the column. Optional unless the layout is
	// re-mapped from a header line.
	Name string
	Type ColumnType
	// Length is the fixed width for positional layouts, or the maximum width
	// for delimited layouts where zero or less means unbounded.
	Length int
	// Offset inserts a gap before the column: a filler of Offset characters
	// for positional layouts, Offset skipped columns for delimited ones.
	Offset int
	// Format is the date layout for date columns.
	Format string
	// Bool holds the true and false tokens for boolean columns.
	Bool []string
	// Enclose overrides the layout enclosure token for this column.
	Enclose string
	// Lenient leaves the field unset when the value cannot be coerced,
	// instead of invalidating the whole record.
	Lenient bool
	// Group splices wrapped columns into the parent layout. A column with a
	// group carries no value of its own. Groups cannot be nested.
	Group []ColumnSpec
}

// Layout is the record shape. It is one of Positional, Delimited,
// MultiplePositional or MultipleDelimited.
type Layout interface {
	layoutKind() Kind
}

// Layouter is implemented by record types to declare their layout.
type Layouter interface {
	FlatLayout() Layout
}

// Positional is a fixed-width layout.
type Positional struct {
	// MinLength pads the record with a trailing filler column when the
	// declared columns are narrower.
	MinLength int
}

// Delimited is a delimiter-separated layout.
type Delimited struct {
	Delimiter string
	// MinColumns is the minimum number of columns a line must have. It
	// defaults to the number of declared columns.
	MinColumns int
	// Enclose is the optional quoting token stripped on read and added on write.
	Enclose string
}

// MultiplePositional is a composite of positional sub-records whose type
// tag is read from [TypeBegin, TypeEnd) or by Extractor.
type MultiplePositional struct {
	TypeBegin int
	TypeEnd   int
	Extractor TypeExtractor
}

// MultipleDelimited is a composite of delimited sub-records whose type tag is
// the column at TypePosition after splitting on Delimiter, or is returned by
// Extractor.
type MultipleDelimited struct {
	Delimiter    string
	TypePosition int
	Extractor    TypeExtractor
}

func (Positional) layoutKind() Kind         { return KindPositional }
func (Delimited) layoutKind() Kind          { return KindDelimited }
func (MultiplePositional) layoutKind() Kind { return KindMultiplePositional }
func (MultipleDelimited) layoutKind() Kind  { return KindMultipleDelimited }

// Kind enumerates the layout variants.
type Kind int

const (
	KindPositional Kind = iota + 1
	KindDelimited
	KindMultiplePositional
	KindMultipleDelimited
)

func (k Kind) String() string {
	switch k {
	case KindPositional:
		return "positional"
	case KindDelimited:
		return "delimited"
	case KindMultiplePositional:
		return "multiple-positional"
	case KindMultipleDelimited:
		return "multiple-delimited"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// RecordSpec is the input of the schema compiler for a single record shape.
type RecordSpec struct {
	Name    string
	Layout  Layout
	Columns []ColumnSpec
}

// SubRecordSpec declares one sub-record of a composite.
type SubRecordSpec struct {
	Tag    string
	Schema *Schema
	// List is true when the composite holds any number of these records.
	List  bool
	First bool
	// Field identifies the composite field bound to the sub-record.
	Field string
}

// MultipleSpec is the input of the schema compiler for a composite.
type MultipleSpec struct {
	Name    string
	Layout  Layout
	Records []SubRecordSpec
}
