// Copyright (C) 2022 by Posit Software, PBC
package frf

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// preWrite runs the PreWrite and Validate hooks of a value about to be
// written.
func preWrite(rv reflect.Value) error {
	i := rv.Addr().Interface()
	if p, ok := i.(PreWriter); ok {
		if err := p.PreWrite(); err != nil {
			return err
		}
	}
	if v, ok := i.(Validator); ok {
		if err := v.Validate(); err != nil {
			return &RecordError{Err: ErrValidation, Msg: err.Error()}
		}
	}
	return nil
}

// write serializes rv into a new record. rv must be addressable.
func (b *recordBinding) write(rv reflect.Value) (Record, error) {
	if err := preWrite(rv); err != nil {
		return nil, err
	}
	rec := b.schema.NewRecord()
	cols := b.schema.Columns()
	for _, fb := range b.fields {
		c := cols[fb.col]
		err := writeField(rec, c, fb, rv.FieldByIndex(fb.index))
		if err == nil {
			continue
		}
		// A lenient column that cannot be written is left blank.
		var re *RecordError
		if c.Lenient && errors.As(err, &re) {
			if err := rec.Clear(c.Index); err != nil {
				return nil, err
			}
			continue
		}
		return nil, err
	}
	return rec, nil
}

func writeField(rec Record, c Column, fb fieldBinding, fv reflect.Value) error {
	if fb.ptr {
		if fv.IsNil() {
			return rec.Clear(c.Index)
		}
		fv = fv.Elem()
	}

	switch c.Type {
	case ColumnString:
		return rec.SetString(c.Index, fv.String())
	case ColumnDate:
		t := fv.Interface().(time.Time)
		if t.IsZero() {
			return rec.Clear(c.Index)
		}
		return rec.SetDate(c.Index, t, "")
	case ColumnInteger:
		return rec.SetInteger(c.Index, int32(fv.Int()))
	case ColumnLong:
		return rec.SetLong(c.Index, fv.Int())
	case ColumnDouble:
		return rec.SetDouble(c.Index, fv.Float())
	case ColumnDecimal:
		return rec.SetDecimal(c.Index, fv.Interface().(decimal.Decimal))
	case ColumnBoolean:
		return rec.SetBoolean(c.Index, fv.Bool(), BoolFormat{})
	case ColumnCustom:
		s, err := fv.Addr().Interface().(Converter).MarshalFlat()
		if err != nil {
			return &RecordError{Err: fmt.Errorf("%w: %s", ErrInvalidValue, err), Msg: columnLabel(rec.Schema(), c.Index)}
		}
		return rec.SetString(c.Index, s)
	default:
		return fmt.Errorf("unsupported column type %s", c.Type)
	}
}

// write serializes every present sub-record of a composite, in declaration
// order, one per line.
func (b *multipleBinding) write(rv reflect.Value) (string, error) {
	if err := preWrite(rv); err != nil {
		return "", err
	}
	var lines []string
	for _, sb := range b.subs {
		fv := rv.Field(sb.index)
		if !sb.list {
			if sb.ptr && fv.IsNil() {
				continue
			}
			if !sb.ptr && fv.IsZero() {
				continue
			}
			line, err := sb.writeElem(fv)
			if err != nil {
				return "", err
			}
			lines = append(lines, line)
			continue
		}
		for i := 0; i < fv.Len(); i++ {
			ev := fv.Index(i)
			if sb.ptr && ev.IsNil() {
				continue
			}
			line, err := sb.writeElem(ev)
			if err != nil {
				return "", err
			}
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return "", &RecordError{Err: ErrEmptyComposite, Msg: b.schema.Name()}
	}
	return strings.Join(lines, "\n"), nil
}

func (sb subBinding) writeElem(ev reflect.Value) (string, error) {
	if sb.ptr {
		ev = ev.Elem()
	} else if !ev.CanAddr() {
		c := reflect.New(ev.Type()).Elem()
		c.Set(ev)
		ev = c
	}
	rec, err := sb.rec.write(ev)
	if err != nil {
		return "", err
	}
	return rec.String(), nil
}
