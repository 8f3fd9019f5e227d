// Copyright (C) 2023 by Posit Software, PBC
package frf

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
)

type CompilerSuite struct {
	suite.Suite
}

func TestCompilerSuite(t *testing.T) {
	suite.Run(t, &CompilerSuite{})
}

func (s *CompilerSuite) compileErr(spec RecordSpec, msg string) {
	_, err := Compile(spec, Defaults{})
	var se *SchemaError
	s.Require().True(errors.As(err, &se), "expected a schema error, got %v", err)
	s.Assert().Equal(spec.Name, se.Type)
	s.Assert().ErrorContains(err, msg)
}

func (s *CompilerSuite) TestPositional() {
	schema, err := Compile(RecordSpec{
		Name:   "detail",
		Layout: Positional{},
		Columns: []ColumnSpec{
			{Field: "Type", Length: 3},
			{Field: "Value", Length: 5},
			{Field: "Amount", Type: ColumnInteger, Length: 4, Offset: 2},
		},
	}, DefaultDefaults())
	s.Require().Nil(err)
	s.Assert().Equal(KindPositional, schema.Kind())
	s.Assert().Equal("detail", schema.Name())
	// The offset inserts a two character gap column.
	s.Assert().Equal([]int{3, 5, 2, 4}, schema.Lengths())
	s.Assert().Equal([]int{0, 3, 8, 10, 14}, schema.Positions())
	s.Assert().Equal(14, schema.Width())

	cols := schema.Columns()
	s.Require().Len(cols, 3)
	s.Assert().Equal([]int{0, 1, 3}, []int{cols[0].Index, cols[1].Index, cols[2].Index})
	s.Assert().Equal(ColumnString, cols[0].Type)
	s.Assert().True(schema.AllColumns()[2].Synthetic)

	// Widths always add up.
	var sum int
	for _, l := range schema.Lengths() {
		sum += l
	}
	s.Assert().Equal(schema.Width(), sum)
}

func (s *CompilerSuite) TestPositionalMinLength() {
	schema, err := Compile(RecordSpec{
		Name:    "short",
		Layout:  Positional{MinLength: 10},
		Columns: []ColumnSpec{{Field: "A", Length: 4}},
	}, Defaults{})
	s.Require().Nil(err)
	s.Assert().Equal([]int{4, 6}, schema.Lengths())
	s.Assert().Equal(10, schema.Width())
	s.Assert().Len(schema.Columns(), 1)

	// A minimum below the declared width adds nothing.
	schema, err = Compile(RecordSpec{
		Name:    "long",
		Layout:  &Positional{MinLength: 2},
		Columns: []ColumnSpec{{Field: "A", Length: 4}},
	}, Defaults{})
	s.Require().Nil(err)
	s.Assert().Equal([]int{4}, schema.Lengths())
}

func (s *CompilerSuite) TestPositionalErrors() {
	s.compileErr(RecordSpec{
		Name:    "bad",
		Layout:  Positional{},
		Columns: []ColumnSpec{{Field: "A", Length: 0}},
	}, "invalid 'length' for column 'A': 0")
	s.compileErr(RecordSpec{
		Name:    "bad",
		Layout:  Positional{},
		Columns: []ColumnSpec{{Field: "A", Length: -3}},
	}, "invalid 'length'")
	s.compileErr(RecordSpec{
		Name:    "bad",
		Layout:  Positional{},
		Columns: []ColumnSpec{{Field: "A", Length: 2, Offset: -1}},
	}, "invalid 'offset'")
	s.compileErr(RecordSpec{
		Name:    "bad",
		Layout:  Positional{MinLength: -1},
		Columns: []ColumnSpec{{Field: "A", Length: 2}},
	}, "invalid 'minLength'")
	s.compileErr(RecordSpec{
		Name:    "bad",
		Layout:  Positional{},
		Columns: []ColumnSpec{{Field: "A", Length: 2, Enclose: `"`}},
	}, "enclosure given for column 'A' of a positional layout")
}

func (s *CompilerSuite) TestDelimited() {
	schema, err := Compile(RecordSpec{
		Name:   "csv",
		Layout: Delimited{Delimiter: ";", Enclose: `"`},
		Columns: []ColumnSpec{
			{Field: "A"},
			{Field: "B", Offset: 2, Enclose: "'"},
			{Field: "C", Length: 3},
		},
	}, Defaults{})
	s.Require().Nil(err)
	s.Assert().Equal(KindDelimited, schema.Kind())
	s.Assert().Equal(";", schema.Delimiter())
	// Two skipped columns are inserted before B.
	s.Assert().Equal([]int{0, -1, -1, 0, 3}, schema.Lengths())
	s.Assert().Equal(5, schema.MinColumns())
	s.Assert().Equal(5, schema.ColumnCount())

	cols := schema.AllColumns()
	s.Assert().Equal(`"`, cols[0].Enclose)
	s.Assert().Equal(`"`, cols[1].Enclose)
	s.Assert().Equal("'", cols[3].Enclose)

	schema, err = Compile(RecordSpec{
		Name:    "wide",
		Layout:  Delimited{Delimiter: ",", MinColumns: 4},
		Columns: []ColumnSpec{{Field: "A"}},
	}, Defaults{})
	s.Require().Nil(err)
	s.Assert().Equal(4, schema.MinColumns())
	s.Assert().Equal(4, schema.ColumnCount())
}

func (s *CompilerSuite) TestDelimitedErrors() {
	s.compileErr(RecordSpec{
		Name:    "bad",
		Layout:  Delimited{},
		Columns: []ColumnSpec{{Field: "A"}},
	}, "invalid 'delimiter'")
	s.compileErr(RecordSpec{
		Name:    "bad",
		Layout:  Delimited{Delimiter: ",", MinColumns: -2},
		Columns: []ColumnSpec{{Field: "A"}},
	}, "invalid 'minColumns'")
}

func (s *CompilerSuite) TestLayoutErrors() {
	s.compileErr(RecordSpec{Name: "none"}, "no layout declared")
	s.compileErr(RecordSpec{
		Name:   "composite",
		Layout: MultiplePositional{TypeBegin: 0, TypeEnd: 1},
	}, "cannot describe a single record")
}

func (s *CompilerSuite) TestColumnFormats() {
	schema, err := Compile(RecordSpec{
		Name:   "formats",
		Layout: Delimited{Delimiter: "|"},
		Columns: []ColumnSpec{
			{Field: "D1", Type: ColumnDate},
			{Field: "D2", Type: ColumnDate, Format: DateFormatCleanInverted},
			{Field: "B1", Type: ColumnBoolean},
			{Field: "B2", Type: ColumnBoolean, Bool: []string{"1", "0"}},
		},
	}, Defaults{DateFormat: DateFormatDash, BoolFormat: BoolTrueFalse})
	s.Require().Nil(err)
	cols := schema.Columns()
	s.Assert().Equal(DateFormatDash, cols[0].DateFormat)
	s.Assert().Equal(DateFormatCleanInverted, cols[1].DateFormat)
	s.Assert().Equal(BoolTrueFalse, cols[2].BoolFormat)
	s.Assert().Equal(BoolFormat{"1", "0"}, cols[3].BoolFormat)

	// Empty defaults fall back to the package defaults.
	schema, err = Compile(RecordSpec{
		Name:    "formats",
		Layout:  Delimited{Delimiter: "|"},
		Columns: []ColumnSpec{{Field: "D", Type: ColumnDate}, {Field: "B", Type: ColumnBoolean}},
	}, Defaults{})
	s.Require().Nil(err)
	s.Assert().Equal(DateFormat, schema.Columns()[0].DateFormat)
	s.Assert().Equal(BoolYN, schema.Columns()[1].BoolFormat)
}

func (s *CompilerSuite) TestColumnErrors() {
	layout := Delimited{Delimiter: ","}
	s.compileErr(RecordSpec{
		Name:    "bad",
		Layout:  layout,
		Columns: []ColumnSpec{{Field: "B", Type: ColumnBoolean, Bool: []string{"Y"}}},
	}, "should be a true and a false token")
	s.compileErr(RecordSpec{
		Name:    "bad",
		Layout:  layout,
		Columns: []ColumnSpec{{Field: "B", Type: ColumnBoolean, Bool: []string{"Y", "Y"}}},
	}, "must differ")
	s.compileErr(RecordSpec{
		Name:    "bad",
		Layout:  layout,
		Columns: []ColumnSpec{{Field: "B", Type: ColumnBoolean, Format: DateFormat}},
	}, "a boolean format should be used instead")
	s.compileErr(RecordSpec{
		Name:    "bad",
		Layout:  layout,
		Columns: []ColumnSpec{{Field: "D", Type: ColumnDate, Bool: []string{"Y", "N"}}},
	}, "invalid boolean format for date column 'D'")
	s.compileErr(RecordSpec{
		Name:    "bad",
		Layout:  layout,
		Columns: []ColumnSpec{{Field: "I", Type: ColumnInteger, Bool: []string{"Y", "N"}}},
	}, "boolean format given for integer column 'I'")
	s.compileErr(RecordSpec{
		Name:    "bad",
		Layout:  layout,
		Columns: []ColumnSpec{{Field: "X", Type: ColumnType(42)}},
	}, "unsupported type ColumnType(42)")
}

func (s *CompilerSuite) TestGroups() {
	schema, err := Compile(RecordSpec{
		Name:   "grouped",
		Layout: Positional{},
		Columns: []ColumnSpec{
			{Field: "A", Length: 2},
			{Field: "Addr", Group: []ColumnSpec{
				{Field: "Street", Length: 10},
				{Field: "Zip", Length: 5},
			}},
			{Field: "B", Length: 1},
		},
	}, Defaults{})
	s.Require().Nil(err)
	var fields []string
	for _, c := range schema.Columns() {
		fields = append(fields, c.Field)
	}
	s.Assert().Equal([]string{"A", "Addr.Street", "Addr.Zip", "B"}, fields)
	s.Assert().Equal(18, schema.Width())

	s.compileErr(RecordSpec{
		Name:   "nested",
		Layout: Positional{},
		Columns: []ColumnSpec{
			{Field: "Outer", Group: []ColumnSpec{
				{Field: "Inner", Group: []ColumnSpec{{Field: "X", Length: 1}}},
			}},
		},
	}, "nested wrapped columns are not allowed")
}

func (s *CompilerSuite) TestMustCompile() {
	s.Assert().Panics(func() {
		MustCompile(RecordSpec{Name: "bad", Layout: Positional{}, Columns: []ColumnSpec{{Field: "A"}}}, Defaults{})
	})
	s.Assert().NotPanics(func() {
		MustCompile(RecordSpec{Name: "ok", Layout: Positional{}, Columns: []ColumnSpec{{Field: "A", Length: 1}}}, Defaults{})
	})
}

func (s *CompilerSuite) TestParseColumnType() {
	t, err := ParseColumnType("Decimal")
	s.Assert().Nil(err)
	s.Assert().Equal(ColumnDecimal, t)

	t, err = ParseColumnType("")
	s.Assert().Nil(err)
	s.Assert().Equal(ColumnString, t)

	_, err = ParseColumnType("money")
	s.Assert().ErrorContains(err, `unknown column type "money"`)
}
