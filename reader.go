// Copyright (C) 2023 by Posit Software, PBC
package frf

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// read fills the fields of rv from a parsed record.
func (b *recordBinding) read(rec Record, rv reflect.Value, logger log.Logger) error {
	cols := b.schema.Columns()
	for _, fb := range b.fields {
		c := cols[fb.col]
		err := readField(rec, c, fb, rv.FieldByIndex(fb.index))
		if err == nil {
			continue
		}
		if c.Lenient && (errors.Is(err, ErrInvalidValue) || errors.Is(err, ErrValueTooLarge)) {
			level.Debug(logger).Log("msg", "ignoring invalid value", "type", b.schema.Name(), "field", c.Field, "err", err)
			fv := rv.FieldByIndex(fb.index)
			fv.Set(reflect.Zero(fv.Type()))
			continue
		}
		return err
	}

	if err := postRead(rv, rec.String()); err != nil {
		return err
	}
	return nil
}

// postRead runs the PostRead and Validate hooks of a freshly read value.
func postRead(rv reflect.Value, raw string) error {
	i := rv.Addr().Interface()
	if p, ok := i.(PostReader); ok {
		if err := p.PostRead(); err != nil {
			return err
		}
	}
	if v, ok := i.(Validator); ok {
		if err := v.Validate(); err != nil {
			return &RecordError{Err: ErrValidation, Msg: err.Error(), Raw: raw}
		}
	}
	return nil
}

// target returns the value a column is stored into, allocating pointer
// fields.
func target(fv reflect.Value, fb fieldBinding) reflect.Value {
	if !fb.ptr {
		return fv
	}
	p := reflect.New(fv.Type().Elem())
	fv.Set(p)
	return p.Elem()
}

func readField(rec Record, c Column, fb fieldBinding, fv reflect.Value) error {
	blank, err := rec.IsBlank(c.Index)
	if err != nil {
		return err
	}
	if blank {
		fv.Set(reflect.Zero(fv.Type()))
		return nil
	}

	switch c.Type {
	case ColumnString:
		s, err := rec.GetString(c.Index)
		if err != nil {
			return err
		}
		target(fv, fb).SetString(s)
	case ColumnDate:
		d, err := rec.GetDate(c.Index, "")
		if err != nil {
			return err
		}
		target(fv, fb).Set(reflect.ValueOf(d))
	case ColumnInteger, ColumnLong:
		var i int64
		if c.Type == ColumnInteger {
			var i32 int32
			i32, err = rec.GetInteger(c.Index)
			i = int64(i32)
		} else {
			i, err = rec.GetLong(c.Index)
		}
		if err != nil {
			return err
		}
		if overflows(fv, fb, func(t reflect.Value) bool { return t.OverflowInt(i) }) {
			return overflowError(rec, c, i)
		}
		target(fv, fb).SetInt(i)
	case ColumnDouble:
		f, err := rec.GetDouble(c.Index)
		if err != nil {
			return err
		}
		if overflows(fv, fb, func(t reflect.Value) bool { return t.OverflowFloat(f) }) {
			return overflowError(rec, c, f)
		}
		target(fv, fb).SetFloat(f)
	case ColumnDecimal:
		d, err := rec.GetDecimal(c.Index)
		if err != nil {
			return err
		}
		target(fv, fb).Set(reflect.ValueOf(d))
	case ColumnBoolean:
		v, err := rec.GetBoolean(c.Index, BoolFormat{})
		if err != nil {
			return err
		}
		target(fv, fb).SetBool(v)
	case ColumnCustom:
		s, err := rec.GetString(c.Index)
		if err != nil {
			return err
		}
		conv := target(fv, fb).Addr().Interface().(Converter)
		if err := conv.UnmarshalFlat(s); err != nil {
			fv.Set(reflect.Zero(fv.Type()))
			return &RecordError{
				Err: fmt.Errorf("%w: %s", ErrInvalidValue, err),
				Msg: columnLabel(rec.Schema(), c.Index),
				Raw: rec.String(),
			}
		}
	default:
		return fmt.Errorf("unsupported column type %s", c.Type)
	}
	return nil
}

func overflows(fv reflect.Value, fb fieldBinding, check func(reflect.Value) bool) bool {
	t := fv
	if fb.ptr {
		t = reflect.New(fv.Type().Elem()).Elem()
	}
	return check(t)
}

func overflowError(rec Record, c Column, v any) error {
	return &RecordError{
		Err: fmt.Errorf("%w: %v overflows field '%s'", ErrInvalidValue, v, c.Field),
		Msg: columnLabel(rec.Schema(), c.Index),
		Raw: rec.String(),
	}
}

// readLine reads a single composite line: only the sub-record the
// line's tag selects is set. List fields receive a one-element list.
func (b *multipleBinding) readLine(line string, rv reflect.Value, logger log.Logger) error {
	rt, rec, err := b.schema.Parse(line)
	if err != nil {
		return err
	}
	for _, sb := range b.subs {
		if sb.rt != rt {
			continue
		}
		if err := sb.assign(rv.Field(sb.index), []Record{rec}, logger); err != nil {
			return err
		}
	}
	return nil
}

// readAggregate fills a composite value from an aggregate.
func (b *multipleBinding) readAggregate(a *Aggregate, rv reflect.Value, logger log.Logger) error {
	for _, sb := range b.subs {
		recs := a.Records(sb.rt.Tag)
		if len(recs) == 0 {
			continue
		}
		if err := sb.assign(rv.Field(sb.index), recs, logger); err != nil {
			return err
		}
	}
	return postRead(rv, a.String())
}

// assign reads records into a sub-record field. A singular field keeps the
// last record.
func (sb subBinding) assign(fv reflect.Value, recs []Record, logger log.Logger) error {
	newElem := func(rec Record) (reflect.Value, error) {
		ev := reflect.New(sb.rec.typ)
		if err := sb.rec.read(rec, ev.Elem(), logger); err != nil {
			return reflect.Value{}, err
		}
		if sb.ptr {
			return ev, nil
		}
		return ev.Elem(), nil
	}

	if !sb.list {
		ev, err := newElem(recs[len(recs)-1])
		if err != nil {
			return err
		}
		fv.Set(ev)
		return nil
	}

	list := reflect.MakeSlice(fv.Type(), 0, len(recs))
	for _, rec := range recs {
		ev, err := newElem(rec)
		if err != nil {
			return err
		}
		list = reflect.Append(list, ev)
	}
	fv.Set(list)
	return nil
}
