// Copyright (C) 2023 by Posit Software, PBC
package frf

import (
	"time"

	"github.com/shopspring/decimal"
)

// slots is the storage side of a record: raw access to column text.
type slots interface {
	getPos(pos int) (string, error)
	setPos(pos int, val string) error
	clearPos(pos int) error
	Columns() int
	String() string
}

// typedRecord layers type coercion over a slots implementation. It is
// embedded by PositionalRecord and DelimitedRecord.
type typedRecord struct {
	schema *Schema
	s      slots
}

func (r *typedRecord) Schema() *Schema {
	return r.schema
}

func (r *typedRecord) coercionError(pos int, err error) error {
	return &RecordError{Err: err, Raw: r.s.String(), Msg: columnLabel(r.schema, pos)}
}

func columnLabel(s *Schema, pos int) string {
	if s != nil && pos >= 0 && pos < len(s.columns) && s.columns[pos].Field != "" {
		return "column '" + s.columns[pos].Field + "'"
	}
	return "pos " + formatInteger(int64(pos))
}

func (r *typedRecord) dateFormat(pos int, layout string) string {
	if layout != "" {
		return layout
	}
	if pos >= 0 && pos < len(r.schema.columns) && r.schema.columns[pos].DateFormat != "" {
		return r.schema.columns[pos].DateFormat
	}
	return DateFormat
}

func (r *typedRecord) boolFormat(pos int, tokens BoolFormat) BoolFormat {
	if tokens != (BoolFormat{}) {
		return tokens
	}
	if pos >= 0 && pos < len(r.schema.columns) && r.schema.columns[pos].BoolFormat != (BoolFormat{}) {
		return r.schema.columns[pos].BoolFormat
	}
	return BoolYN
}

func (r *typedRecord) IsBlank(pos int) (bool, error) {
	v, err := r.s.getPos(pos)
	if err != nil {
		return false, err
	}
	_, ok := trimValue(v)
	return !ok, nil
}

func (r *typedRecord) Clear(pos int) error {
	return r.s.clearPos(pos)
}

func (r *typedRecord) GetString(pos int) (string, error) {
	v, err := r.s.getPos(pos)
	if err != nil {
		return "", err
	}
	t, _ := trimValue(v)
	return t, nil
}

func (r *typedRecord) SetString(pos int, val string) error {
	return r.s.setPos(pos, val)
}

func (r *typedRecord) GetDate(pos int, layout string) (time.Time, error) {
	v, err := r.s.getPos(pos)
	if err != nil {
		return time.Time{}, err
	}
	d, _, err := parseDate(v, r.dateFormat(pos, layout))
	if err != nil {
		return time.Time{}, r.coercionError(pos, err)
	}
	return d, nil
}

func (r *typedRecord) SetDate(pos int, val time.Time, layout string) error {
	return r.s.setPos(pos, formatDate(val, r.dateFormat(pos, layout)))
}

func (r *typedRecord) GetInteger(pos int) (int32, error) {
	v, err := r.s.getPos(pos)
	if err != nil {
		return 0, err
	}
	i, _, err := parseInteger(v, 32)
	if err != nil {
		return 0, r.coercionError(pos, err)
	}
	return int32(i), nil
}

func (r *typedRecord) SetInteger(pos int, val int32) error {
	return r.s.setPos(pos, formatInteger(int64(val)))
}

func (r *typedRecord) GetLong(pos int) (int64, error) {
	v, err := r.s.getPos(pos)
	if err != nil {
		return 0, err
	}
	i, _, err := parseInteger(v, 64)
	if err != nil {
		return 0, r.coercionError(pos, err)
	}
	return i, nil
}

func (r *typedRecord) SetLong(pos int, val int64) error {
	return r.s.setPos(pos, formatInteger(val))
}

func (r *typedRecord) GetDouble(pos int) (float64, error) {
	v, err := r.s.getPos(pos)
	if err != nil {
		return 0, err
	}
	f, _, err := parseDouble(v)
	if err != nil {
		return 0, r.coercionError(pos, err)
	}
	return f, nil
}

func (r *typedRecord) SetDouble(pos int, val float64) error {
	return r.s.setPos(pos, formatDouble(val))
}

func (r *typedRecord) GetDecimal(pos int) (decimal.Decimal, error) {
	v, err := r.s.getPos(pos)
	if err != nil {
		return decimal.Zero, err
	}
	d, _, err := parseDecimal(v)
	if err != nil {
		return decimal.Zero, r.coercionError(pos, err)
	}
	return d, nil
}

func (r *typedRecord) SetDecimal(pos int, val decimal.Decimal) error {
	return r.s.setPos(pos, formatDecimal(val))
}

func (r *typedRecord) GetBoolean(pos int, tokens BoolFormat) (bool, error) {
	v, err := r.s.getPos(pos)
	if err != nil {
		return false, err
	}
	b, _, err := parseBool(v, r.boolFormat(pos, tokens))
	if err != nil {
		return false, r.coercionError(pos, err)
	}
	return b, nil
}

func (r *typedRecord) SetBoolean(pos int, val bool, tokens BoolFormat) error {
	return r.s.setPos(pos, formatBool(val, r.boolFormat(pos, tokens)))
}
