// Copyright (C) 2023 by Posit Software, PBC
package frf

import (
	"strings"
)

// RecordType is one sub-record of a composite.
type RecordType struct {
	Tag    string
	Schema *Schema
	// List is true when an aggregate may hold any number of these records.
	List bool
	// First is true when the arrival of this record opens a new aggregate.
	First bool
	// Index is the declaration order of the sub-record.
	Index int
	Field string
}

// MultipleSchema is a compiled composite layout: a set of tagged sub-record
// schemas and the rule used to read the tag from a raw line.
type MultipleSchema struct {
	name string
	kind Kind

	typeBegin    int
	typeEnd      int
	delimiter    string
	typePosition int
	extractor    TypeExtractor

	types []*RecordType
	byTag map[string]*RecordType
}

// CompileMultiple builds a composite schema. Exactly one tag extraction rule
// must be declared: a position range or column, or an extractor.
//
// The earliest-declared sub-record always opens a new aggregate, in addition
// to any sub-record flagged First.
func CompileMultiple(spec MultipleSpec) (*MultipleSchema, error) {
	ms := &MultipleSchema{name: spec.Name, byTag: make(map[string]*RecordType)}

	var subKind Kind
	switch l := spec.Layout.(type) {
	case MultiplePositional:
		subKind = KindPositional
		if err := ms.positionalRule(l); err != nil {
			return nil, err
		}
	case *MultiplePositional:
		subKind = KindPositional
		if err := ms.positionalRule(*l); err != nil {
			return nil, err
		}
	case MultipleDelimited:
		subKind = KindDelimited
		if err := ms.delimitedRule(l); err != nil {
			return nil, err
		}
	case *MultipleDelimited:
		subKind = KindDelimited
		if err := ms.delimitedRule(*l); err != nil {
			return nil, err
		}
	case nil:
		return nil, schemaErrorf(spec.Name, "no layout declared")
	default:
		return nil, schemaErrorf(spec.Name, "layout %s cannot describe a composite record", spec.Layout.layoutKind())
	}

	if len(spec.Records) == 0 {
		return nil, schemaErrorf(spec.Name, "no sub-records declared")
	}
	for i, sub := range spec.Records {
		if sub.Tag == "" {
			return nil, schemaErrorf(spec.Name, "sub-record '%s' has no type tag", sub.Field)
		}
		if _, dup := ms.byTag[sub.Tag]; dup {
			return nil, schemaErrorf(spec.Name, "duplicate type tag '%s'", sub.Tag)
		}
		if sub.Schema == nil {
			return nil, schemaErrorf(spec.Name, "sub-record '%s' has no layout", sub.Tag)
		}
		if sub.Schema.Kind() != subKind {
			return nil, schemaErrorf(spec.Name, "sub-record '%s' is %s, expected %s", sub.Tag, sub.Schema.Kind(), subKind)
		}
		rt := &RecordType{
			Tag:    sub.Tag,
			Schema: sub.Schema.withTag(sub.Tag),
			List:   sub.List,
			First:  i == 0 || sub.First,
			Index:  i,
			Field:  sub.Field,
		}
		ms.types = append(ms.types, rt)
		ms.byTag[sub.Tag] = rt
	}
	return ms, nil
}

func (ms *MultipleSchema) positionalRule(l MultiplePositional) error {
	ms.kind = KindMultiplePositional
	hasRule := l.TypeBegin != 0 || l.TypeEnd != 0
	if hasRule && l.Extractor != nil {
		return schemaErrorf(ms.name, "both a type position and a type extractor are declared")
	}
	if l.Extractor != nil {
		ms.extractor = l.Extractor
		return nil
	}
	if !hasRule {
		return schemaErrorf(ms.name, "no type position or type extractor declared")
	}
	if l.TypeBegin < 0 || l.TypeBegin >= l.TypeEnd {
		return schemaErrorf(ms.name, "invalid type position [%d, %d)", l.TypeBegin, l.TypeEnd)
	}
	ms.typeBegin, ms.typeEnd = l.TypeBegin, l.TypeEnd
	return nil
}

func (ms *MultipleSchema) delimitedRule(l MultipleDelimited) error {
	ms.kind = KindMultipleDelimited
	hasRule := l.Delimiter != "" || l.TypePosition != 0
	if hasRule && l.Extractor != nil {
		return schemaErrorf(ms.name, "both a type column and a type extractor are declared")
	}
	if l.Extractor != nil {
		ms.extractor = l.Extractor
		return nil
	}
	if l.Delimiter == "" {
		return schemaErrorf(ms.name, "a type delimiter is required with a type column")
	}
	if l.TypePosition < 0 {
		return schemaErrorf(ms.name, "invalid type column %d", l.TypePosition)
	}
	ms.delimiter, ms.typePosition = l.Delimiter, l.TypePosition
	return nil
}

func (ms *MultipleSchema) Name() string { return ms.name }
func (ms *MultipleSchema) Kind() Kind   { return ms.kind }

// Types returns the sub-record types in declaration order.
func (ms *MultipleSchema) Types() []*RecordType {
	return append([]*RecordType(nil), ms.types...)
}

// Type looks up a sub-record type by tag.
func (ms *MultipleSchema) Type(tag string) (*RecordType, bool) {
	rt, ok := ms.byTag[tag]
	return rt, ok
}

// Firsts returns the tags that open a new aggregate.
func (ms *MultipleSchema) Firsts() []string {
	var out []string
	for _, rt := range ms.types {
		if rt.First {
			out = append(out, rt.Tag)
		}
	}
	return out
}

// ExtractType reads the type tag of a raw line. It never falls back to a
// default type.
func (ms *MultipleSchema) ExtractType(line string) (string, error) {
	if ms.extractor != nil {
		tag, err := ms.extractor.ExtractType(line)
		if err != nil {
			return "", &RecordError{Err: ErrTypeExtraction, Msg: err.Error(), Raw: line}
		}
		return tag, nil
	}
	if ms.kind == KindMultiplePositional {
		runes := []rune(line)
		if ms.typeEnd > len(runes) {
			return "", recordErrorf(ErrTypeExtraction, line, "type position [%d, %d) is past the end of a %d character line", ms.typeBegin, ms.typeEnd, len(runes))
		}
		return strings.TrimSpace(string(runes[ms.typeBegin:ms.typeEnd])), nil
	}
	cols := strings.Split(line, ms.delimiter)
	if ms.typePosition >= len(cols) {
		return "", recordErrorf(ErrTypeExtraction, line, "type column %d is past the last of %d columns", ms.typePosition, len(cols))
	}
	return strings.TrimSpace(cols[ms.typePosition]), nil
}

// TypeOf returns the sub-record type a raw line belongs to.
func (ms *MultipleSchema) TypeOf(line string) (*RecordType, error) {
	tag, err := ms.ExtractType(line)
	if err != nil {
		return nil, err
	}
	rt, ok := ms.byTag[tag]
	if !ok {
		return nil, recordErrorf(ErrUnknownType, line, "unknown record type '%s'", tag)
	}
	return rt, nil
}

// Parse reads a raw line as the sub-record its tag selects.
func (ms *MultipleSchema) Parse(line string) (*RecordType, Record, error) {
	rt, err := ms.TypeOf(line)
	if err != nil {
		return nil, nil, err
	}
	r, err := rt.Schema.Parse(line)
	if err != nil {
		return nil, nil, err
	}
	return rt, r, nil
}
