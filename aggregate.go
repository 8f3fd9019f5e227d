// Copyright (C) 2023 by Posit Software, PBC
package frf

import (
	"strings"
)

// Aggregate groups the sub-records of one composite record. Records keep
// their arrival order. An Aggregate is not safe for concurrent use.
type Aggregate struct {
	schema  *MultipleSchema
	order   []*RecordType
	byType  map[*RecordType][]Record
	records []Record
}

func NewAggregate(ms *MultipleSchema) *Aggregate {
	return &Aggregate{schema: ms, byType: make(map[*RecordType][]Record)}
}

func (a *Aggregate) Schema() *MultipleSchema {
	return a.schema
}

// Add appends a record of the given type.
func (a *Aggregate) Add(rt *RecordType, r Record) {
	if _, ok := a.byType[rt]; !ok {
		a.order = append(a.order, rt)
	}
	a.byType[rt] = append(a.byType[rt], r)
	a.records = append(a.records, r)
}

// Records returns the records with the given tag, in arrival order.
func (a *Aggregate) Records(tag string) []Record {
	rt, ok := a.schema.Type(tag)
	if !ok {
		return nil
	}
	return append([]Record(nil), a.byType[rt]...)
}

// First returns the first record with the given tag, or nil.
func (a *Aggregate) First(tag string) Record {
	rs := a.Records(tag)
	if len(rs) == 0 {
		return nil
	}
	return rs[0]
}

func (a *Aggregate) Contains(tag string) bool {
	return len(a.Records(tag)) > 0
}

func (a *Aggregate) ContainsAll(tags ...string) bool {
	for _, t := range tags {
		if !a.Contains(t) {
			return false
		}
	}
	return true
}

// Types returns the sub-record types present, in order of first arrival.
func (a *Aggregate) Types() []*RecordType {
	return append([]*RecordType(nil), a.order...)
}

// Len is the number of records in the aggregate.
func (a *Aggregate) Len() int {
	return len(a.records)
}

// Empty is the default completeness predicate: an aggregate is complete when
// it holds at least one record.
func (a *Aggregate) Empty() bool {
	return len(a.records) == 0
}

// Lines returns the serialized records in arrival order.
func (a *Aggregate) Lines() []string {
	out := make([]string, len(a.records))
	for i, r := range a.records {
		out[i] = r.String()
	}
	return out
}

func (a *Aggregate) String() string {
	return strings.Join(a.Lines(), "\n")
}

// AggregateValidator checks an aggregate before it is handed on.
type AggregateValidator func(a *Aggregate) error

// RequireTypes returns a validator that rejects aggregates missing any of the
// given tags.
func RequireTypes(tags ...string) AggregateValidator {
	return func(a *Aggregate) error {
		for _, t := range tags {
			if !a.Contains(t) {
				return recordErrorf(ErrValidation, a.String(), "missing record of type '%s'", t)
			}
		}
		return nil
	}
}
