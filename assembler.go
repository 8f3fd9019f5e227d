// Copyright (C) 2023 by Posit Software, PBC
package frf

import (
	"errors"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// AggregateHandler receives every completed aggregate. Its errors are
// returned to the caller of Add or Flush unchanged.
type AggregateHandler func(a *Aggregate) error

// Assembler groups a stream of tagged sub-records into aggregates. A record
// whose type is a first type closes the open aggregate and starts a new one.
// An Assembler is not safe for concurrent use.
type Assembler struct {
	schema    *MultipleSchema
	handler   AggregateHandler
	validator AggregateValidator
	logger    log.Logger
	metrics   *Metrics

	current *Aggregate
}

func NewAssembler(ms *MultipleSchema, handler AggregateHandler, opts ...Option) *Assembler {
	o := newOptions(opts)
	return &Assembler{
		schema:    ms,
		handler:   handler,
		validator: o.validator,
		logger:    log.With(o.logger, "component", "assembler", "type", ms.Name()),
		metrics:   o.metrics,
		current:   NewAggregate(ms),
	}
}

// Add appends a record to the open aggregate. A first record flushes the
// open aggregate before starting a new one; the new one is started even when
// the flush fails. Any other record arriving with no open aggregate is out of
// sync.
func (a *Assembler) Add(rt *RecordType, r Record) error {
	if rt.First {
		err := a.Flush()
		a.current.Add(rt, r)
		return err
	}
	if a.current.Empty() {
		a.metrics.recordErrors.WithLabelValues(stageAssemble).Inc()
		return recordErrorf(ErrOutOfSync, r.String(), "record of type '%s' arrived before any first record", rt.Tag)
	}
	a.current.Add(rt, r)
	return nil
}

// AddLine parses a raw line and adds it.
func (a *Assembler) AddLine(line string) error {
	rt, r, err := a.schema.Parse(line)
	if err != nil {
		stage := stageRead
		if errors.Is(err, ErrTypeExtraction) || errors.Is(err, ErrUnknownType) {
			stage = stageTypeMatch
		}
		a.metrics.recordErrors.WithLabelValues(stage).Inc()
		return err
	}
	a.metrics.recordsRead.Inc()
	return a.Add(rt, r)
}

// Flush validates and emits the open aggregate, if any. The assembler always
// starts over with an empty aggregate, even when validation fails.
func (a *Assembler) Flush() error {
	if a.current.Empty() {
		return nil
	}
	agg := a.current
	a.current = NewAggregate(a.schema)

	if a.validator != nil {
		if err := a.validator(agg); err != nil {
			a.metrics.recordErrors.WithLabelValues(stageValidate).Inc()
			level.Debug(a.logger).Log("msg", "aggregate rejected", "records", agg.Len(), "err", err)
			if !errors.Is(err, ErrValidation) {
				err = &RecordError{Err: ErrValidation, Msg: err.Error(), Raw: agg.String()}
			}
			return err
		}
	}

	a.metrics.aggregates.Inc()
	level.Debug(a.logger).Log("msg", "aggregate complete", "records", agg.Len())
	return a.handler(agg)
}

// Pending returns the number of records in the open aggregate.
func (a *Assembler) Pending() int {
	return a.current.Len()
}
