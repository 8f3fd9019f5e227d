// Copyright (C) 2023 by Posit Software, PBC
package frf

import (
	"bufio"
	"errors"
	"io"
	"reflect"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/text/encoding"
)

// Manager reads and writes struct values through the layouts they declare.
// A Manager is safe for concurrent use; the readers it creates are not.
type Manager struct {
	registry *Registry
	logger   log.Logger
	metrics  *Metrics
	opts     []Option
}

func NewManager(opts ...Option) *Manager {
	o := newOptions(opts)
	reg := o.registry
	if reg == nil {
		defaults := DefaultDefaults()
		if o.defaults != nil {
			defaults = *o.defaults
		}
		reg = NewRegistry(defaults, opts...)
	}
	return &Manager{
		registry: reg,
		logger:   o.logger,
		metrics:  o.metrics,
		opts:     opts,
	}
}

func (m *Manager) Registry() *Registry {
	return m.registry
}

// Schema returns the compiled layout of a single-record type.
func (m *Manager) Schema(v any) (*Schema, error) {
	return m.registry.Schema(v)
}

// MultipleSchema returns the compiled layout of a composite type.
func (m *Manager) MultipleSchema(v any) (*MultipleSchema, error) {
	return m.registry.MultipleSchema(v)
}

// Header returns the header line of a single-record type.
func (m *Manager) Header(v any) (string, error) {
	b, err := m.registry.lookup(typeOf(v))
	if err != nil {
		return "", err
	}
	rb, ok := b.(*recordBinding)
	if !ok {
		return "", schemaErrorf(typeOf(v).Name(), "composite layouts have no header")
	}
	return rb.schema.Header()
}

// Unmarshal reads one line into the struct v points to. For a composite
// type only the sub-record selected by the line's tag is set.
func (m *Manager) Unmarshal(line string, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errors.New("unmarshal target must be a non-nil pointer")
	}
	rv = rv.Elem()

	b, err := m.registry.lookup(rv.Type())
	if err != nil {
		return err
	}
	switch b := b.(type) {
	case *recordBinding:
		rec, err := b.schema.Parse(line)
		if err == nil {
			err = b.read(rec, rv, m.logger)
		}
		m.count(stageRead, err)
		return err
	case *multipleBinding:
		err := b.readLine(line, rv, m.logger)
		m.count(stageRead, err)
		return err
	}
	return nil
}

// Marshal writes v as a line. Composite values produce one line per present
// sub-record, joined with newlines.
func (m *Manager) Marshal(v any) (string, error) {
	rv := addressable(reflect.ValueOf(v))
	if !rv.IsValid() {
		return "", errors.New("cannot marshal a nil value")
	}
	b, err := m.registry.lookup(rv.Type())
	if err != nil {
		return "", err
	}
	var out string
	switch b := b.(type) {
	case *recordBinding:
		var rec Record
		rec, err = b.write(rv)
		if err == nil {
			out = rec.String()
		}
	case *multipleBinding:
		out, err = b.write(rv)
	}
	m.count(stageWrite, err)
	return out, err
}

func addressable(rv reflect.Value) reflect.Value {
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return reflect.Value{}
		}
		return rv.Elem()
	}
	if !rv.IsValid() {
		return rv
	}
	c := reflect.New(rv.Type()).Elem()
	c.Set(rv)
	return c
}

func (m *Manager) count(stage string, err error) {
	if err != nil {
		m.metrics.recordErrors.WithLabelValues(stage).Inc()
		return
	}
	if stage == stageWrite {
		m.metrics.recordsWritten.Inc()
	} else {
		m.metrics.recordsRead.Inc()
	}
}

// MultipleReader assembles composite values of type T from lines.
type MultipleReader[T any] struct {
	binding   *multipleBinding
	assembler *Assembler
	logger    log.Logger
}

// NewMultipleReader returns a reader that calls handler with every complete
// composite value. opts apply to the underlying Assembler.
func NewMultipleReader[T any](m *Manager, handler func(*T) error, opts ...Option) (*MultipleReader[T], error) {
	b, err := m.registry.multipleBinding(reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		return nil, err
	}
	r := &MultipleReader[T]{binding: b, logger: m.logger}
	r.assembler = NewAssembler(b.schema, func(a *Aggregate) error {
		v := new(T)
		if err := b.readAggregate(a, reflect.ValueOf(v).Elem(), r.logger); err != nil {
			return err
		}
		return handler(v)
	}, append(append([]Option(nil), m.opts...), opts...)...)
	return r, nil
}

// ReadLine feeds one line to the assembler.
func (r *MultipleReader[T]) ReadLine(line string) error {
	return r.assembler.AddLine(line)
}

// Flush emits the pending composite value, if any.
func (r *MultipleReader[T]) Flush() error {
	return r.assembler.Flush()
}

// ReadFrom reads lines until EOF and flushes. Record errors are collected
// and reading continues with the next line; any other error stops it.
func (r *MultipleReader[T]) ReadFrom(rd io.Reader) error {
	return readLines(rd, r.ReadLine, r.Flush, r.logger)
}

func readLines(rd io.Reader, line func(string) error, flush func() error, logger log.Logger) error {
	var errs []error
	sc := bufio.NewScanner(rd)
	n := 0
	for sc.Scan() {
		n++
		if err := line(sc.Text()); err != nil {
			if !recoverable(err) {
				return errors.Join(append(errs, err)...)
			}
			level.Warn(logger).Log("msg", "skipping record", "line", n, "err", err)
			errs = append(errs, err)
		}
	}
	if err := sc.Err(); err != nil {
		errs = append(errs, err)
	}
	if err := flush(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// BinaryReader carves a byte stream into frames and reads each frame as a
// value of type T, or as a sub-record of T when T is a composite.
type BinaryReader[T any] struct {
	framer    *Framer
	assembler *Assembler
	decode    func([]byte) (string, error)
}

// NewBinaryReader returns a reader framing on pattern. Options apply to the
// framer and, for composite types, the assembler. WithEncoding decodes
// frames before they are parsed.
func NewBinaryReader[T any](m *Manager, pattern []byte, handler func(*T) error, opts ...Option) (*BinaryReader[T], error) {
	all := append(append([]Option(nil), m.opts...), opts...)
	o := newOptions(all)
	r := &BinaryReader[T]{decode: frameDecoder(o.encoding)}

	t := reflect.TypeOf((*T)(nil)).Elem()
	b, err := m.registry.lookup(t)
	if err != nil {
		return nil, err
	}

	var frame FrameHandler
	switch b := b.(type) {
	case *recordBinding:
		frame = func(bs []byte) error {
			line, err := r.decode(bs)
			if err != nil {
				return err
			}
			v := new(T)
			if err := m.Unmarshal(line, v); err != nil {
				return err
			}
			return handler(v)
		}
	case *multipleBinding:
		r.assembler = NewAssembler(b.schema, func(a *Aggregate) error {
			v := new(T)
			if err := b.readAggregate(a, reflect.ValueOf(v).Elem(), m.logger); err != nil {
				return err
			}
			return handler(v)
		}, all...)
		frame = func(bs []byte) error {
			line, err := r.decode(bs)
			if err != nil {
				return err
			}
			return r.assembler.AddLine(line)
		}
	}

	r.framer, err = NewFramer(pattern, frame, all...)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// frameDecoder returns the function turning a frame into a line. Frames are
// taken as is when enc is nil.
func frameDecoder(enc encoding.Encoding) func([]byte) (string, error) {
	if enc == nil {
		return func(bs []byte) (string, error) { return string(bs), nil }
	}
	dec := enc.NewDecoder()
	return func(bs []byte) (string, error) {
		out, err := dec.Bytes(bs)
		if err != nil {
			return "", &RecordError{Err: ErrInvalidValue, Msg: "cannot decode frame: " + err.Error()}
		}
		return string(out), nil
	}
}

// Write implements io.Writer by feeding p to the framer. Record and
// out-of-sync errors are returned with len(p), since the bytes were consumed.
func (r *BinaryReader[T]) Write(p []byte) (int, error) {
	return len(p), r.framer.Process(p)
}

// Flush emits the final frame and any pending composite value.
func (r *BinaryReader[T]) Flush() error {
	err := r.framer.Flush()
	if r.assembler != nil {
		err = errors.Join(err, r.assembler.Flush())
	}
	return err
}

// ReadFrom copies rd into the reader until EOF, then flushes. Record errors
// do not stop the copy.
func (r *BinaryReader[T]) ReadFrom(rd io.Reader) (int64, error) {
	var errs []error
	var total int64
	buf := make([]byte, 32*1024)
	for {
		n, err := rd.Read(buf)
		if n > 0 {
			total += int64(n)
			if perr := r.framer.Process(buf[:n]); perr != nil {
				if !recoverable(perr) {
					return total, errors.Join(append(errs, perr)...)
				}
				errs = append(errs, perr)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return total, errors.Join(append(errs, err)...)
		}
	}
	if err := r.Flush(); err != nil {
		errs = append(errs, err)
	}
	return total, errors.Join(errs...)
}

// recoverable reports whether every error in err is a per-record error.
func recoverable(err error) bool {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range j.Unwrap() {
			if !recoverable(e) {
				return false
			}
		}
		return true
	}
	var re *RecordError
	var oe *OutOfSyncError
	return errors.As(err, &re) || errors.As(err, &oe) || errors.Is(err, ErrFrameTooLarge)
}

var defaultManager = NewManager()

// Unmarshal reads a line into v with a shared Manager using the default
// formats.
func Unmarshal(line string, v any) error {
	return defaultManager.Unmarshal(line, v)
}

// Marshal writes v with a shared Manager using the default formats.
func Marshal(v any) (string, error) {
	return defaultManager.Marshal(v)
}
