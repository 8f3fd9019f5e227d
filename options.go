// Copyright (C) 2023 by Posit Software, PBC
package frf

import (
	"github.com/go-kit/log"
	"golang.org/x/text/encoding"
)

// Option configures a Manager, Assembler or Framer. Options that do not apply
// to a component are ignored by it.
type Option func(*options)

type options struct {
	logger    log.Logger
	metrics   *Metrics
	registry  *Registry
	defaults  *Defaults
	validator AggregateValidator
	strip     bool
	maxFrame  int
	encoding  encoding.Encoding
}

func newOptions(opts []Option) options {
	o := options{
		logger: log.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.metrics == nil {
		o.metrics = NewMetrics(nil)
	}
	return o
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l log.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics sets the metrics collectors.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithRegistry makes a Manager share an existing schema registry.
func WithRegistry(r *Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithDefaults sets the formats used by columns that declare none. It only
// applies when the Manager creates its own registry.
func WithDefaults(d Defaults) Option {
	return func(o *options) { o.defaults = &d }
}

// WithValidator checks every aggregate before it is handed on.
func WithValidator(v AggregateValidator) Option {
	return func(o *options) { o.validator = v }
}

// WithStripPattern makes the framer emit frames without the leading sync
// pattern.
func WithStripPattern() Option {
	return func(o *options) { o.strip = true }
}

// WithMaxFrameSize bounds the number of bytes the framer buffers without
// finding the next sync pattern. Zero means unbounded.
func WithMaxFrameSize(n int) Option {
	return func(o *options) { o.maxFrame = n }
}

// WithEncoding decodes binary frames from a character set before they are
// parsed as records.
func WithEncoding(e encoding.Encoding) Option {
	return func(o *options) { o.encoding = e }
}
