// Copyright (C) 2023 by Posit Software, PBC
package frf

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	timeType      = reflect.TypeOf(time.Time{})
	decimalType   = reflect.TypeOf(decimal.Decimal{})
	converterType = reflect.TypeOf((*Converter)(nil)).Elem()
	layouterType  = reflect.TypeOf((*Layouter)(nil)).Elem()
	extractorType = reflect.TypeOf((*TypeExtractor)(nil)).Elem()
)

// fieldBinding ties a declared column to a struct field.
type fieldBinding struct {
	// index is the reflect field path; wrapped fields have two entries.
	index []int
	// col is the position of the column in Schema.Columns().
	col int
	ptr bool
}

// recordBinding is a compiled single-record struct type.
type recordBinding struct {
	typ    reflect.Type
	schema *Schema
	fields []fieldBinding
}

// subBinding ties a composite field to one of its sub-record types.
type subBinding struct {
	index int
	rt    *RecordType
	list  bool
	ptr   bool
	rec   *recordBinding
}

// multipleBinding is a compiled composite struct type.
type multipleBinding struct {
	typ    reflect.Type
	schema *MultipleSchema
	subs   []subBinding
}

func getTagInfo(v reflect.Type, index int, t *tag) (bool, error) {
	sf := v.Field(index)
	if !sf.IsExported() {
		return true, nil
	}

	// Get the field tag value
	rawTag := sf.Tag.Get(tagName)
	if rawTag == frfIgnore {
		return true, nil
	}
	if rawTag == "" {
		return false, nil
	}

	tagParts := strings.Split(rawTag, frfDelim)
	t.name = strings.TrimSpace(tagParts[0])
	for j := 1; j < len(tagParts); j++ {
		part := strings.TrimSpace(tagParts[j])
		key, val, hasVal := strings.Cut(part, frfSep)
		key = strings.ToLower(key)
		switch {
		case key == frfLenient && !hasVal:
			t.lenient = true
		case key == frfWrap && !hasVal:
			t.wrap = true
		case key == frfFirst && !hasVal:
			t.first = true
		case key == frfSub && hasVal:
			t.sub = val
		case key == frfLength && hasVal:
			var err error
			t.length, err = strconv.Atoi(val)
			if err != nil {
				return false, schemaErrorf(v.Name(), "invalid '%s' for field '%s': %s", frfLength, sf.Name, val)
			}
		case key == frfOffset && hasVal:
			var err error
			t.offset, err = strconv.Atoi(val)
			if err != nil {
				return false, schemaErrorf(v.Name(), "invalid '%s' for field '%s': %s", frfOffset, sf.Name, val)
			}
		case key == frfFormat && hasVal:
			t.format = val
		case key == frfBool && hasVal:
			t.boolean = strings.Split(val, frfBoolSep)
		default:
			return false, schemaErrorf(v.Name(), "unknown tag parameter '%s' on field '%s'", part, sf.Name)
		}
	}
	return false, nil
}

// columnType maps a field type to a column type. Pointers are unwrapped once
// and make the field nullable.
func columnType(ft reflect.Type) (ColumnType, bool, bool) {
	ptr := false
	if ft.Kind() == reflect.Pointer {
		ptr = true
		ft = ft.Elem()
	}
	switch {
	case reflect.PointerTo(ft).Implements(converterType):
		return ColumnCustom, ptr, true
	case ft == timeType:
		return ColumnDate, ptr, true
	case ft == decimalType:
		return ColumnDecimal, ptr, true
	}
	switch ft.Kind() {
	case reflect.String:
		return ColumnString, ptr, true
	case reflect.Bool:
		return ColumnBoolean, ptr, true
	case reflect.Int8, reflect.Int16, reflect.Int32:
		return ColumnInteger, ptr, true
	case reflect.Int, reflect.Int64:
		return ColumnLong, ptr, true
	case reflect.Float32, reflect.Float64:
		return ColumnDouble, ptr, true
	}
	return 0, ptr, false
}

func columnSpec(typ string, sf reflect.StructField, t *tag) (ColumnSpec, bool, error) {
	ct, ptr, ok := columnType(sf.Type)
	if !ok {
		return ColumnSpec{}, false, schemaErrorf(typ, "unsupported type %s for field '%s'", sf.Type, sf.Name)
	}
	return ColumnSpec{
		Field:   sf.Name,
		Name:    t.name,
		Type:    ct,
		Length:  t.length,
		Offset:  t.offset,
		Format:  t.format,
		Bool:    t.boolean,
		Lenient: t.lenient,
	}, ptr, nil
}

// layoutOf returns the layout a struct type declares through FlatLayout.
func layoutOf(t reflect.Type) (Layout, bool) {
	if t.Kind() != reflect.Struct || !reflect.PointerTo(t).Implements(layouterType) {
		return nil, false
	}
	l := reflect.New(t).Interface().(Layouter).FlatLayout()
	return l, l != nil
}

// recordSpecOf discovers the columns of a single-record struct type.
func recordSpecOf(t reflect.Type, layout Layout) (RecordSpec, []fieldBinding, error) {
	spec := RecordSpec{Name: t.Name(), Layout: layout}
	var fields []fieldBinding
	for i := 0; i < t.NumField(); i++ {
		tg := &tag{}
		skip, err := getTagInfo(t, i, tg)
		if err != nil {
			return spec, nil, err
		}
		if skip {
			continue
		}
		sf := t.Field(i)
		if tg.sub != "" || tg.first {
			return spec, nil, schemaErrorf(t.Name(), "field '%s' declares a sub-record on a single record layout", sf.Name)
		}

		if !tg.wrap {
			c, ptr, err := columnSpec(t.Name(), sf, tg)
			if err != nil {
				return spec, nil, err
			}
			spec.Columns = append(spec.Columns, c)
			fields = append(fields, fieldBinding{index: []int{i}, ptr: ptr})
			continue
		}

		// Splice the columns of a wrapped struct.
		if sf.Type.Kind() != reflect.Struct {
			return spec, nil, schemaErrorf(t.Name(), "wrapped field '%s' is not a struct", sf.Name)
		}
		group := ColumnSpec{Field: sf.Name, Group: []ColumnSpec{}}
		for j := 0; j < sf.Type.NumField(); j++ {
			inner := &tag{}
			skip, err := getTagInfo(sf.Type, j, inner)
			if err != nil {
				return spec, nil, err
			}
			if skip {
				continue
			}
			isf := sf.Type.Field(j)
			if inner.wrap {
				return spec, nil, schemaErrorf(t.Name(), "nested wrapped columns are not allowed ('%s.%s')", sf.Name, isf.Name)
			}
			c, ptr, err := columnSpec(t.Name(), isf, inner)
			if err != nil {
				return spec, nil, err
			}
			group.Group = append(group.Group, c)
			fields = append(fields, fieldBinding{index: []int{i, j}, ptr: ptr})
		}
		spec.Columns = append(spec.Columns, group)
	}
	for k := range fields {
		fields[k].col = k
	}
	return spec, fields, nil
}

// subRecordType validates the type of a composite field and returns the
// sub-record struct type.
func subRecordType(ft reflect.Type) (reflect.Type, bool, bool) {
	list := false
	if ft.Kind() == reflect.Slice {
		list = true
		ft = ft.Elem()
	}
	ptr := false
	if ft.Kind() == reflect.Pointer {
		ptr = true
		ft = ft.Elem()
	}
	return ft, list, ptr
}
