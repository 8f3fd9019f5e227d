// Copyright (C) 2023 by Posit Software, PBC
package frf

import (
	"time"

	"github.com/shopspring/decimal"
)

// Record is one positional or delimited line bound to a compiled Schema.
// Positions are column indexes in the compiled layout, which includes any
// synthetic gap columns inserted for offsets.
type Record interface {
	// Schema returns the compiled layout the record was built from.
	Schema() *Schema

	// Columns returns the number of addressable columns.
	Columns() int

	// IsBlank reports whether the column holds only whitespace (or nothing).
	IsBlank(pos int) (bool, error)

	// Clear blanks a column. For delimited records the column is written empty.
	Clear(pos int) error

	GetString(pos int) (string, error)
	SetString(pos int, val string) error
	GetDate(pos int, layout string) (time.Time, error)
	SetDate(pos int, val time.Time, layout string) error
	GetInteger(pos int) (int32, error)
	SetInteger(pos int, val int32) error
	GetLong(pos int) (int64, error)
	SetLong(pos int, val int64) error
	GetDouble(pos int) (float64, error)
	SetDouble(pos int, val float64) error
	GetDecimal(pos int) (decimal.Decimal, error)
	SetDecimal(pos int, val decimal.Decimal) error
	GetBoolean(pos int, tokens BoolFormat) (bool, error)
	SetBoolean(pos int, val bool, tokens BoolFormat) error

	// String serializes the record into a line (without a line terminator).
	String() string
}

// Converter is implemented by custom column types. The pointer receiver is
// used when reading, so UnmarshalFlat should normally be declared on *T.
type Converter interface {
	MarshalFlat() (string, error)
	UnmarshalFlat(s string) error
}

// TypeExtractor returns the type tag of a raw composite line.
type TypeExtractor interface {
	ExtractType(line string) (string, error)
}

// ExtractorFunc adapts a function to the TypeExtractor interface.
type ExtractorFunc func(line string) (string, error)

func (f ExtractorFunc) ExtractType(line string) (string, error) {
	return f(line)
}

// Validator is implemented by record and composite types that check
// themselves after reading and before writing.
type Validator interface {
	Validate() error
}

// PostReader is called after all columns of a record type have been read.
type PostReader interface {
	PostRead() error
}

// PreWriter is called before a record type is serialized.
type PreWriter interface {
	PreWrite() error
}

// Constants used by `frf` struct tags
const (
	//
	// Tags:
	//
	// The struct tag used to control the layout
	tagName = "frf"

	//
	// Delimiters:
	//
	// Separates multiple struct tag parameters.
	frfDelim = ","
	// Separates a struct tag parameter that uses the name:value format.
	frfSep = ":"
	// Separates the true and false tokens of a `bool` parameter.
	frfBoolSep = "|"

	//
	// Parameters:
	//
	// When used as the only parameter (e.g., `frf:"-"`), the field is ignored.
	frfIgnore = "-"
	// Column width (`len:8`). Required for positional layouts.
	frfLength = "len"
	// Gap before the column (`offset:2`).
	frfOffset = "offset"
	// Date layout (`format:20060102`).
	frfFormat = "format"
	// Boolean tokens (`bool:Y|N`).
	frfBool = "bool"
	// Leave the field unset instead of invalidating the record on a bad value.
	frfLenient = "lenient"
	// Splice the columns of a struct field into the parent layout.
	frfWrap = "wrap"
	// Marks a composite sub-record and its type tag (`sub:HDR`).
	frfSub = "sub"
	// Marks a sub-record as one that opens a new aggregate.
	frfFirst = "first"
)

// A struct used to record and pass information about `frf` struct tags
type tag struct {
	name    string
	length  int
	offset  int
	format  string
	boolean []string
	lenient bool
	wrap    bool
	sub     string
	first   bool
}
