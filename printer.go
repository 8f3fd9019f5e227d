// Copyright (C) 2023 by Posit Software, PBC
package frf

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Printer writes a human-readable dump of records.
type Printer struct {
	w io.Writer
	n int
}

func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

func (p *Printer) banner(title string) error {
	// Add blank newline unless at first object
	if p.n > 0 {
		if _, err := fmt.Fprintln(p.w, ""); err != nil {
			return err
		}
	}
	p.n++

	pad := strings.Repeat(" ", 16)
	header := fmt.Sprintf("%s%s[%d]%s", pad, title, p.n, pad)
	line := strings.Repeat("-", len(header))
	_, err := fmt.Fprintf(p.w, "%s\n%s\n%s\n", line, header, line)
	return err
}

// PrintRecord prints every declared column of a record.
func (p *Printer) PrintRecord(rec Record) error {
	s := rec.Schema()
	title := s.Name()
	if s.Tag() != "" {
		title = s.Tag()
	}
	if err := p.banner(title); err != nil {
		return err
	}
	return printColumns(p.w, rec, 0)
}

// PrintAggregate prints the records of an aggregate in arrival order.
func (p *Printer) PrintAggregate(a *Aggregate) error {
	if err := p.banner(a.Schema().Name()); err != nil {
		return err
	}
	for _, rt := range a.Types() {
		recs := a.Records(rt.Tag)
		kind := rt.Tag
		if rt.List {
			kind = fmt.Sprintf("%s (array(%d))", rt.Tag, len(recs))
		}
		if _, err := fmt.Fprintf(p.w, "%s:\n", kind); err != nil {
			return err
		}
		for _, rec := range recs {
			if _, err := fmt.Fprintf(p.w, "%s-\n", strings.Repeat(" ", 4)); err != nil {
				return err
			}
			if err := printColumns(p.w, rec, 1); err != nil {
				return err
			}
		}
	}
	return nil
}

// PrintError prints a record error in place of a record.
func (p *Printer) PrintError(err error) error {
	_, werr := fmt.Fprintf(p.w, "! %s\n", err)
	return werr
}

func printColumns(w io.Writer, rec Record, indent int) error {
	pad := strings.Repeat(" ", indent*4)
	for _, c := range rec.Schema().Columns() {
		v, err := rec.GetString(c.Index)
		if err != nil {
			return err
		}
		kind := c.Type.String()
		if c.Length > 0 {
			kind = fmt.Sprintf("%s(%d)", kind, c.Length)
		}
		if _, err = fmt.Fprintf(w, "%s%s (%s): %s\n", pad, headerName(c), kind, v); err != nil {
			return err
		}
	}
	return nil
}

// Print reads r line by line and prints each line as a record of s. Lines
// that cannot be parsed are reported and skipped.
func Print(w io.Writer, r io.Reader, s *Schema) error {
	p := NewPrinter(w)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		rec, err := s.Parse(sc.Text())
		if err != nil {
			err = p.PrintError(err)
		} else {
			err = p.PrintRecord(rec)
		}
		if err != nil {
			return err
		}
	}
	return sc.Err()
}

// PrintMultiple reads r line by line, assembles composite records of ms and
// prints each aggregate.
func PrintMultiple(w io.Writer, r io.Reader, ms *MultipleSchema, opts ...Option) error {
	p := NewPrinter(w)
	a := NewAssembler(ms, p.PrintAggregate, opts...)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if err := a.AddLine(sc.Text()); err != nil {
			if !recoverable(err) {
				return err
			}
			if err := p.PrintError(err); err != nil {
				return err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	if err := a.Flush(); err != nil {
		if !recoverable(err) {
			return err
		}
		return p.PrintError(err)
	}
	return nil
}

// PrintBinary frames r on pattern and prints each frame as a record of s,
// or, when s is nil, as a sub-record of the composite ms.
func PrintBinary(w io.Writer, r io.Reader, pattern []byte, s *Schema, ms *MultipleSchema, opts ...Option) error {
	p := NewPrinter(w)
	o := newOptions(opts)

	decode := frameDecoder(o.encoding)

	var a *Assembler
	if s == nil {
		if ms == nil {
			return fmt.Errorf("no layout to print frames with")
		}
		a = NewAssembler(ms, p.PrintAggregate, opts...)
	}

	f, err := NewFramer(pattern, func(frame []byte) error {
		line, err := decode(frame)
		if err != nil {
			return err
		}
		if a != nil {
			return a.AddLine(line)
		}
		rec, err := s.Parse(line)
		if err != nil {
			return err
		}
		return p.PrintRecord(rec)
	}, opts...)
	if err != nil {
		return err
	}

	report := func(err error) error {
		if err == nil {
			return nil
		}
		if !recoverable(err) {
			return err
		}
		return p.PrintError(err)
	}

	buf := bufio.NewReader(r)
	chunk := make([]byte, 4096)
	for {
		n, rerr := buf.Read(chunk)
		if n > 0 {
			if err := report(f.Process(chunk[:n])); err != nil {
				return err
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return rerr
		}
	}
	if err := report(f.Flush()); err != nil {
		return err
	}
	if a != nil {
		return report(a.Flush())
	}
	return nil
}
