// Copyright (C) 2023 by Posit Software, PBC
package frf

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type PositionalSuite struct {
	suite.Suite
	schema *Schema
}

func TestPositionalSuite(t *testing.T) {
	suite.Run(t, &PositionalSuite{})
}

func (s *PositionalSuite) SetupTest() {
	s.schema = MustCompile(RecordSpec{
		Name:   "detail",
		Layout: Positional{},
		Columns: []ColumnSpec{
			{Field: "Type", Length: 3},
			{Field: "Value", Length: 5},
		},
	}, DefaultDefaults())
}

func (s *PositionalSuite) TestParse() {
	rec, err := ParsePositionalRecord(s.schema, "ABCVALUE")
	s.Require().Nil(err)
	s.Assert().Equal(2, rec.Columns())

	v, err := rec.GetString(0)
	s.Assert().Nil(err)
	s.Assert().Equal("ABC", v)
	v, err = rec.GetString(1)
	s.Assert().Nil(err)
	s.Assert().Equal("VALUE", v)

	_, err = rec.GetString(2)
	s.Assert().True(errors.Is(err, ErrInvalidPosition))
	_, err = rec.GetString(-1)
	s.Assert().True(errors.Is(err, ErrInvalidPosition))
}

func (s *PositionalSuite) TestParseShortLine() {
	_, err := ParsePositionalRecord(s.schema, "ABCVAL")
	s.Assert().True(errors.Is(err, ErrInvalidLength))
	var re *RecordError
	s.Require().True(errors.As(err, &re))
	s.Assert().Equal("ABCVAL", re.Raw)
	s.Assert().ErrorContains(err, "record has an invalid length: 6 (expected 8)")
}

func (s *PositionalSuite) TestParseLongLine() {
	rec, err := s.schema.Parse("ABCVALUEextra")
	s.Require().Nil(err)
	v, _ := rec.GetString(1)
	s.Assert().Equal("VALUE", v)
	s.Assert().Equal("ABCVALUEextra", rec.String())
}

func (s *PositionalSuite) TestWrite() {
	rec := NewPositionalRecord(s.schema)
	s.Assert().Equal("        ", rec.String())

	s.Assert().Nil(rec.SetString(0, "AB"))
	s.Assert().Nil(rec.SetString(1, "XYZ"))
	s.Assert().Equal("AB XYZ  ", rec.String())
	s.Assert().Len(rec.String(), s.schema.Width())

	blank, err := rec.IsBlank(1)
	s.Assert().Nil(err)
	s.Assert().False(blank)
	s.Assert().Nil(rec.Clear(1))
	blank, err = rec.IsBlank(1)
	s.Assert().Nil(err)
	s.Assert().True(blank)
	s.Assert().Equal("AB      ", rec.String())
}

func (s *PositionalSuite) TestValueTooLarge() {
	rec, err := ParsePositionalRecord(s.schema, "ABCVALUE")
	s.Require().Nil(err)

	err = rec.SetString(1, "TOOLONG")
	s.Assert().True(errors.Is(err, ErrValueTooLarge))
	s.Assert().ErrorContains(err, "'TOOLONG' has length 7 (max: 5)")
	// The slot is blanked before the size check.
	s.Assert().Equal("ABC     ", rec.String())

	err = rec.SetString(4, "X")
	s.Assert().True(errors.Is(err, ErrInvalidPosition))
}

func (s *PositionalSuite) TestTypedColumns() {
	schema := MustCompile(RecordSpec{
		Name:   "typed",
		Layout: Positional{},
		Columns: []ColumnSpec{
			{Field: "Count", Type: ColumnInteger, Length: 4},
			{Field: "Total", Type: ColumnLong, Length: 12},
			{Field: "Rate", Type: ColumnDouble, Length: 6},
			{Field: "Price", Type: ColumnDecimal, Length: 8},
			{Field: "Paid", Type: ColumnBoolean, Length: 1},
			{Field: "Day", Type: ColumnDate, Length: 8, Format: DateFormatCleanInverted},
		},
	}, DefaultDefaults())

	rec := NewPositionalRecord(schema)
	day := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
	s.Require().Nil(rec.SetInteger(0, 42))
	s.Require().Nil(rec.SetLong(1, 9876543210))
	s.Require().Nil(rec.SetDouble(2, 1.5))
	s.Require().Nil(rec.SetDecimal(3, decimal.RequireFromString("10.25")))
	s.Require().Nil(rec.SetBoolean(4, true, BoolFormat{}))
	s.Require().Nil(rec.SetDate(5, day, ""))
	s.Assert().Equal("42  9876543210  1.5   10.25   Y20231231", rec.String())

	parsed, err := ParsePositionalRecord(schema, rec.String())
	s.Require().Nil(err)
	i, err := parsed.GetInteger(0)
	s.Assert().Nil(err)
	s.Assert().Equal(int32(42), i)
	l, err := parsed.GetLong(1)
	s.Assert().Nil(err)
	s.Assert().Equal(int64(9876543210), l)
	f, err := parsed.GetDouble(2)
	s.Assert().Nil(err)
	s.Assert().Equal(1.5, f)
	d, err := parsed.GetDecimal(3)
	s.Assert().Nil(err)
	s.Assert().Equal("10.25", d.String())
	b, err := parsed.GetBoolean(4, BoolFormat{})
	s.Assert().Nil(err)
	s.Assert().True(b)
	t, err := parsed.GetDate(5, "")
	s.Assert().Nil(err)
	s.Assert().Equal(day, t)

	// An explicit layout overrides the column format.
	s.Require().Nil(rec.SetDate(5, day, "06.01.02"))
	s.Assert().Equal("23.12.31", rec.String()[len(rec.String())-8:])
}

func (s *PositionalSuite) TestCoercionError() {
	schema := MustCompile(RecordSpec{
		Name:    "typed",
		Layout:  Positional{},
		Columns: []ColumnSpec{{Field: "Count", Type: ColumnInteger, Length: 4}},
	}, DefaultDefaults())
	rec, err := ParsePositionalRecord(schema, "12x4")
	s.Require().Nil(err)

	_, err = rec.GetInteger(0)
	s.Assert().True(errors.Is(err, ErrInvalidValue))
	var re *RecordError
	s.Require().True(errors.As(err, &re))
	s.Assert().Equal("12x4", re.Raw)
	s.Assert().Equal("column 'Count'", re.Msg)
}

func (s *PositionalSuite) TestOffsetGap() {
	schema := MustCompile(RecordSpec{
		Name:   "gap",
		Layout: Positional{MinLength: 8},
		Columns: []ColumnSpec{
			{Field: "A", Length: 2},
			{Field: "B", Length: 2, Offset: 1},
		},
	}, DefaultDefaults())
	rec, err := schema.Parse("AA-BB???")
	s.Require().Nil(err)
	cols := schema.Columns()
	a, _ := rec.GetString(cols[0].Index)
	b, _ := rec.GetString(cols[1].Index)
	s.Assert().Equal("AA", a)
	s.Assert().Equal("BB", b)

	out := schema.NewRecord()
	s.Require().Nil(out.SetString(cols[0].Index, "AA"))
	s.Require().Nil(out.SetString(cols[1].Index, "BB"))
	s.Assert().Equal("AA BB   ", out.String())
}
