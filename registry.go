// Copyright (C) 2023 by Posit Software, PBC
package frf

import (
	"errors"
	"reflect"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/sync/singleflight"
)

// Registry compiles and caches layouts. Struct types are compiled once, on
// first use, and the result (or the schema error) is returned on every later
// request. Layouts may also be registered by name. A Registry is safe for
// concurrent use.
type Registry struct {
	defaults Defaults
	logger   log.Logger
	metrics  *Metrics

	group singleflight.Group

	mu        sync.RWMutex
	bindings  map[reflect.Type]cachedBinding
	records   map[string]*Schema
	multiples map[string]*MultipleSchema
}

type cachedBinding struct {
	t   reflect.Type
	v   any
	err error
}

func NewRegistry(defaults Defaults, opts ...Option) *Registry {
	o := newOptions(opts)
	if defaults.DateFormat == "" {
		defaults.DateFormat = DateFormat
	}
	if defaults.BoolFormat == (BoolFormat{}) {
		defaults.BoolFormat = BoolYN
	}
	return &Registry{
		defaults:  defaults,
		logger:    log.With(o.logger, "component", "registry"),
		metrics:   o.metrics,
		bindings:  make(map[reflect.Type]cachedBinding),
		records:   make(map[string]*Schema),
		multiples: make(map[string]*MultipleSchema),
	}
}

func (r *Registry) Defaults() Defaults {
	return r.defaults
}

// Register compiles a record spec and stores it under name.
func (r *Registry) Register(name string, spec RecordSpec) (*Schema, error) {
	if spec.Name == "" {
		spec.Name = name
	}
	s, err := Compile(spec, r.defaults)
	if err != nil {
		return nil, err
	}
	r.metrics.schemasCompiled.Inc()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.records[name]; dup {
		return nil, schemaErrorf(name, "a record layout named '%s' is already registered", name)
	}
	r.records[name] = s
	return s, nil
}

// RegisterMultiple compiles a composite spec and stores it under name.
func (r *Registry) RegisterMultiple(name string, spec MultipleSpec) (*MultipleSchema, error) {
	if spec.Name == "" {
		spec.Name = name
	}
	ms, err := CompileMultiple(spec)
	if err != nil {
		return nil, err
	}
	r.metrics.schemasCompiled.Inc()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.multiples[name]; dup {
		return nil, schemaErrorf(name, "a composite layout named '%s' is already registered", name)
	}
	r.multiples[name] = ms
	return ms, nil
}

// Named returns a record layout registered by name.
func (r *Registry) Named(name string) (*Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.records[name]
	return s, ok
}

// NamedMultiple returns a composite layout registered by name.
func (r *Registry) NamedMultiple(name string) (*MultipleSchema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ms, ok := r.multiples[name]
	return ms, ok
}

// Schema returns the compiled layout of a single-record struct type. v may be
// a value, a pointer, or a reflect.Type.
func (r *Registry) Schema(v any) (*Schema, error) {
	b, err := r.recordBinding(typeOf(v))
	if err != nil {
		return nil, err
	}
	return b.schema, nil
}

// MultipleSchema returns the compiled layout of a composite struct type.
func (r *Registry) MultipleSchema(v any) (*MultipleSchema, error) {
	b, err := r.multipleBinding(typeOf(v))
	if err != nil {
		return nil, err
	}
	return b.schema, nil
}

func typeOf(v any) reflect.Type {
	t, ok := v.(reflect.Type)
	if !ok {
		t = reflect.TypeOf(v)
	}
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

func (r *Registry) recordBinding(t reflect.Type) (*recordBinding, error) {
	v, err := r.lookup(t)
	if err != nil {
		return nil, err
	}
	b, ok := v.(*recordBinding)
	if !ok {
		return nil, schemaErrorf(t.Name(), "type declares a composite layout")
	}
	return b, nil
}

func (r *Registry) multipleBinding(t reflect.Type) (*multipleBinding, error) {
	v, err := r.lookup(t)
	if err != nil {
		return nil, err
	}
	b, ok := v.(*multipleBinding)
	if !ok {
		return nil, schemaErrorf(t.Name(), "type declares a single record layout")
	}
	return b, nil
}

// lookup returns either a *recordBinding or a *multipleBinding.
func (r *Registry) lookup(t reflect.Type) (any, error) {
	if t == nil {
		return nil, schemaErrorf("", "nil type")
	}
	if c, ok := r.cached(t); ok {
		return c.v, c.err
	}

	key := t.PkgPath() + "." + t.String()
	v, err, _ := r.group.Do(key, func() (any, error) {
		if c, ok := r.cached(t); ok {
			return c, nil
		}
		return r.compileAndCache(t), nil
	})
	if err != nil {
		return nil, err
	}
	return r.resolve(t, v.(cachedBinding))
}

// resolve returns the binding of t from a shared compile result. Two distinct
// types can share a name, in which case t is compiled on its own.
func (r *Registry) resolve(t reflect.Type, c cachedBinding) (any, error) {
	if c.t != t {
		c = r.compileAndCache(t)
	}
	return c.v, c.err
}

func (r *Registry) compileAndCache(t reflect.Type) cachedBinding {
	v, err := r.compileType(t)
	c := cachedBinding{t: t, v: v, err: err}
	var se *SchemaError
	if err == nil || errors.As(err, &se) {
		r.mu.Lock()
		r.bindings[t] = c
		r.mu.Unlock()
	}
	return c
}

func (r *Registry) cached(t reflect.Type) (cachedBinding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.bindings[t]
	return c, ok
}

func (r *Registry) compileType(t reflect.Type) (any, error) {
	if t.Kind() != reflect.Struct {
		return nil, schemaErrorf(t.String(), "only struct types can be bound to a layout")
	}
	layout, ok := layoutOf(t)
	if !ok {
		return nil, schemaErrorf(t.Name(), "type does not declare a layout (missing FlatLayout method)")
	}

	var v any
	var err error
	switch layout.layoutKind() {
	case KindPositional, KindDelimited:
		v, err = r.compileRecord(t, layout)
	default:
		v, err = r.compileMultiple(t, layout)
	}
	if err != nil {
		level.Debug(r.logger).Log("msg", "layout rejected", "type", t.String(), "err", err)
		return nil, err
	}
	r.metrics.schemasCompiled.Inc()
	level.Debug(r.logger).Log("msg", "layout compiled", "type", t.String(), "kind", layout.layoutKind())
	return v, nil
}

func (r *Registry) compileRecord(t reflect.Type, layout Layout) (*recordBinding, error) {
	spec, fields, err := recordSpecOf(t, layout)
	if err != nil {
		return nil, err
	}
	s, err := Compile(spec, r.defaults)
	if err != nil {
		return nil, err
	}
	return &recordBinding{typ: t, schema: s, fields: fields}, nil
}

func (r *Registry) compileMultiple(t reflect.Type, layout Layout) (*multipleBinding, error) {
	layout = withSelfExtractor(t, layout)
	spec := MultipleSpec{Name: t.Name(), Layout: layout}
	var subs []subBinding
	var recs []*recordBinding
	for i := 0; i < t.NumField(); i++ {
		tg := &tag{}
		skip, err := getTagInfo(t, i, tg)
		if err != nil {
			return nil, err
		}
		if skip || tg.sub == "" {
			continue
		}
		sf := t.Field(i)
		st, list, ptr := subRecordType(sf.Type)
		sl, ok := layoutOf(st)
		if !ok {
			return nil, schemaErrorf(t.Name(), "sub-record field '%s' has no layout", sf.Name)
		}
		if k := sl.layoutKind(); k != KindPositional && k != KindDelimited {
			return nil, schemaErrorf(t.Name(), "sub-record field '%s' is itself a composite", sf.Name)
		}
		rb, err := r.recordBinding(st)
		if err != nil {
			return nil, &SchemaError{Type: t.Name(), Msg: "sub-record '" + tg.sub + "'", Err: err}
		}
		spec.Records = append(spec.Records, SubRecordSpec{
			Tag:    tg.sub,
			Schema: rb.schema,
			List:   list,
			First:  tg.first,
			Field:  sf.Name,
		})
		subs = append(subs, subBinding{index: i, list: list, ptr: ptr})
		recs = append(recs, rb)
	}

	ms, err := CompileMultiple(spec)
	if err != nil {
		return nil, err
	}
	for k, rt := range ms.Types() {
		subs[k].rt = rt
		// Sub-records read with the tagged schema.
		subs[k].rec = &recordBinding{typ: recs[k].typ, schema: rt.Schema, fields: recs[k].fields}
	}
	return &multipleBinding{typ: t, schema: ms, subs: subs}, nil
}

// withSelfExtractor uses the composite type itself as the type extractor
// when it implements TypeExtractor and no other rule is declared.
func withSelfExtractor(t reflect.Type, layout Layout) Layout {
	if !reflect.PointerTo(t).Implements(extractorType) {
		return layout
	}
	self := reflect.New(t).Interface().(TypeExtractor)
	switch l := layout.(type) {
	case MultiplePositional:
		if l.Extractor == nil && l.TypeBegin == 0 && l.TypeEnd == 0 {
			l.Extractor = self
		}
		return l
	case MultipleDelimited:
		if l.Extractor == nil && l.Delimiter == "" && l.TypePosition == 0 {
			l.Extractor = self
		}
		return l
	}
	return layout
}
