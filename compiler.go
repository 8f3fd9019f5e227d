// Copyright (C) 2023 by Posit Software, PBC
package frf

import (
	"strings"
)

// Compile builds an immutable Schema from a single-record spec. All layout
// errors are reported here as a *SchemaError; parsing never re-validates the
// layout.
func Compile(spec RecordSpec, defaults Defaults) (*Schema, error) {
	if defaults.DateFormat == "" {
		defaults.DateFormat = DateFormat
	}
	if defaults.BoolFormat == (BoolFormat{}) {
		defaults.BoolFormat = BoolYN
	}

	cols, err := flattenColumns(spec.Name, spec.Columns, "", false)
	if err != nil {
		return nil, err
	}

	resolved := make([]Column, 0, len(cols))
	for _, c := range cols {
		col, err := resolveColumn(spec.Name, c, defaults)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, col)
	}

	switch l := spec.Layout.(type) {
	case Positional:
		return compilePositional(spec.Name, l, resolved)
	case *Positional:
		return compilePositional(spec.Name, *l, resolved)
	case Delimited:
		return compileDelimited(spec.Name, l, resolved)
	case *Delimited:
		return compileDelimited(spec.Name, *l, resolved)
	case nil:
		return nil, schemaErrorf(spec.Name, "no layout declared")
	default:
		return nil, schemaErrorf(spec.Name, "layout %s cannot describe a single record", spec.Layout.layoutKind())
	}
}

// MustCompile is like Compile but panics on error.
func MustCompile(spec RecordSpec, defaults Defaults) *Schema {
	s, err := Compile(spec, defaults)
	if err != nil {
		panic(err)
	}
	return s
}

// flattenColumns splices wrapped groups into a single column list. Only one
// level of wrapping is allowed.
func flattenColumns(typ string, cols []ColumnSpec, parent string, nested bool) ([]ColumnSpec, error) {
	out := make([]ColumnSpec, 0, len(cols))
	for _, c := range cols {
		if parent != "" && c.Field != "" {
			c.Field = parent + "." + c.Field
		}
		if c.Group == nil {
			out = append(out, c)
			continue
		}
		if nested {
			return nil, schemaErrorf(typ, "nested wrapped columns are not allowed ('%s')", c.Field)
		}
		sub, err := flattenColumns(typ, c.Group, c.Field, true)
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
	}
	return out, nil
}

func resolveColumn(typ string, c ColumnSpec, defaults Defaults) (Column, error) {
	if c.Type == 0 {
		c.Type = ColumnString
	}
	if _, ok := columnTypeNames[c.Type]; !ok {
		return Column{}, schemaErrorf(typ, "unsupported type %s for column '%s'", c.Type, c.Field)
	}
	if c.Offset < 0 {
		return Column{}, schemaErrorf(typ, "invalid 'offset' for column '%s': %d", c.Field, c.Offset)
	}

	col := Column{ColumnSpec: c}
	switch c.Type {
	case ColumnBoolean:
		if c.Format != "" {
			return Column{}, schemaErrorf(typ, "invalid date format for boolean column '%s', a boolean format should be used instead", c.Field)
		}
		col.BoolFormat = defaults.BoolFormat
		if c.Bool != nil {
			if len(c.Bool) != 2 {
				return Column{}, schemaErrorf(typ, "invalid boolean format [%s] for column '%s', should be a true and a false token", strings.Join(c.Bool, " "), c.Field)
			}
			col.BoolFormat = BoolFormat{c.Bool[0], c.Bool[1]}
		}
		if col.BoolFormat.True() == col.BoolFormat.False() {
			return Column{}, schemaErrorf(typ, "boolean tokens for column '%s' must differ", c.Field)
		}
	case ColumnDate:
		if c.Bool != nil {
			return Column{}, schemaErrorf(typ, "invalid boolean format for date column '%s'", c.Field)
		}
		col.DateFormat = c.Format
		if col.DateFormat == "" {
			col.DateFormat = defaults.DateFormat
		}
	default:
		if c.Bool != nil {
			return Column{}, schemaErrorf(typ, "boolean format given for %s column '%s'", c.Type, c.Field)
		}
	}
	col.Group = nil
	return col, nil
}

func compilePositional(typ string, l Positional, cols []Column) (*Schema, error) {
	s := &Schema{name: typ, kind: KindPositional}
	var width int
	for _, c := range cols {
		if c.Length <= 0 {
			return nil, schemaErrorf(typ, "invalid 'length' for column '%s': %d (expected a positive integer)", c.Field, c.Length)
		}
		if c.Enclose != "" {
			return nil, schemaErrorf(typ, "enclosure given for column '%s' of a positional layout", c.Field)
		}
		if c.Offset > 0 {
			s.addColumn(Column{ColumnSpec: ColumnSpec{Type: ColumnString, Length: c.Offset}, Synthetic: true}, false)
			width += c.Offset
		}
		s.addColumn(c, true)
		width += c.Length
	}
	if l.MinLength < 0 {
		return nil, schemaErrorf(typ, "invalid 'minLength': %d", l.MinLength)
	}
	if l.MinLength > width {
		s.addColumn(Column{ColumnSpec: ColumnSpec{Type: ColumnString, Length: l.MinLength - width}, Synthetic: true}, false)
	}

	s.positions = make([]int, len(s.lengths)+1)
	for i, n := range s.lengths {
		s.positions[i+1] = s.positions[i] + n
	}
	return s, nil
}

func compileDelimited(typ string, l Delimited, cols []Column) (*Schema, error) {
	if l.Delimiter == "" {
		return nil, schemaErrorf(typ, "invalid 'delimiter': value is empty")
	}
	if l.MinColumns < 0 {
		return nil, schemaErrorf(typ, "invalid 'minColumns': %d", l.MinColumns)
	}
	s := &Schema{name: typ, kind: KindDelimited, delimiter: l.Delimiter, enclose: l.Enclose}
	for _, c := range cols {
		for i := 0; i < c.Offset; i++ {
			s.addColumn(Column{ColumnSpec: ColumnSpec{Type: ColumnString, Length: -1, Enclose: l.Enclose}, Synthetic: true}, false)
		}
		if c.Enclose == "" {
			c.Enclose = l.Enclose
		}
		s.addColumn(c, true)
	}
	s.minColumns = len(s.columns)
	if l.MinColumns > 0 {
		s.minColumns = l.MinColumns
	}
	return s, nil
}

func (s *Schema) addColumn(c Column, declared bool) {
	c.Index = len(s.columns)
	if declared {
		s.declared = append(s.declared, c.Index)
	}
	s.columns = append(s.columns, c)
	s.lengths = append(s.lengths, c.Length)
}
