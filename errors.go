// Copyright (C) 2023 by Posit Software, PBC
package frf

import (
	"errors"
	"fmt"
	"strings"
)

// Record errors. These are recoverable: the offending line or frame is
// reported and processing continues with the next one.
var (
	ErrInvalidLength   = errors.New("invalid record length")
	ErrInvalidPosition = errors.New("invalid position")
	ErrValueTooLarge   = errors.New("value too large")
	ErrTooFewColumns   = errors.New("too few columns")
	ErrNotEnclosed     = errors.New("value not properly enclosed")
	ErrInvalidValue    = errors.New("invalid value")
	ErrTypeExtraction  = errors.New("unable to extract record type")
	ErrUnknownType     = errors.New("unknown record type")
	ErrOutOfSync       = errors.New("out of sync")
	ErrValidation      = errors.New("record did not pass validation")
	ErrPatternNotFound = errors.New("sync pattern not found")
	ErrFrameTooLarge   = errors.New("frame too large")
	ErrEmptyComposite  = errors.New("composite record has no sub-records")
)

// SchemaError is raised while compiling a layout. It is fatal for the type
// it describes: the same error is returned on every later use of the type.
type SchemaError struct {
	Type string
	Msg  string
	Err  error
}

func (e *SchemaError) Error() string {
	var b strings.Builder
	b.WriteString("schema")
	if e.Type != "" {
		b.WriteString(" ")
		b.WriteString(e.Type)
	}
	b.WriteString(": ")
	b.WriteString(e.Msg)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

func schemaErrorf(typ string, format string, args ...any) *SchemaError {
	return &SchemaError{Type: typ, Msg: fmt.Sprintf(format, args...)}
}

// RecordError describes a line that could not be read or written. Raw holds
// the offending text.
type RecordError struct {
	Msg string
	Raw string
	Err error
}

func (e *RecordError) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = e.Err.Error() + ": " + msg
	}
	if e.Raw != "" {
		return fmt.Sprintf("%s (record: %q)", msg, e.Raw)
	}
	return msg
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

func recordErrorf(err error, raw string, format string, args ...any) *RecordError {
	return &RecordError{Err: err, Raw: raw, Msg: fmt.Sprintf(format, args...)}
}

// OutOfSyncError carries the bytes that preceded the first sync pattern in
// the framer buffer.
type OutOfSyncError struct {
	Junk []byte
}

func (e *OutOfSyncError) Error() string {
	return fmt.Sprintf("%s: %s", ErrOutOfSync, hexString(e.Junk))
}

func (e *OutOfSyncError) Unwrap() error {
	return ErrOutOfSync
}

func hexString(bs []byte) string {
	var b strings.Builder
	for _, c := range bs {
		fmt.Fprintf(&b, "0x%x ", c)
	}
	fmt.Fprintf(&b, "(%d bytes) - ASCII: '%s'", len(bs), string(bs))
	return b.String()
}
