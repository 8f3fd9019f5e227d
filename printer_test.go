// Copyright (C) 2023 by Posit Software, PBC
package frf

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
	"golang.org/x/text/encoding/charmap"
)

type PrinterSuite struct {
	suite.Suite
	detail *Schema
	ms     *MultipleSchema
}

func TestPrinterSuite(t *testing.T) {
	suite.Run(t, &PrinterSuite{})
}

func (s *PrinterSuite) SetupTest() {
	s.detail = MustCompile(RecordSpec{
		Name:   "detail",
		Layout: Positional{},
		Columns: []ColumnSpec{
			{Field: "Type", Name: "type", Length: 2},
			{Field: "Amount", Name: "amount", Type: ColumnInteger, Length: 4},
		},
	}, DefaultDefaults())
	header := MustCompile(RecordSpec{
		Name:    "header",
		Layout:  Positional{},
		Columns: []ColumnSpec{{Field: "Type", Length: 2}, {Field: "Batch", Length: 4}},
	}, DefaultDefaults())
	ms, err := CompileMultiple(MultipleSpec{
		Name:   "batch",
		Layout: MultiplePositional{TypeBegin: 0, TypeEnd: 2},
		Records: []SubRecordSpec{
			{Tag: "HD", Schema: header},
			{Tag: "DT", Schema: s.detail, List: true},
		},
	})
	s.Require().Nil(err)
	s.ms = ms
}

func banner(title string, n int) string {
	pad := strings.Repeat(" ", 16)
	header := fmt.Sprintf("%s%s[%d]%s", pad, title, n, pad)
	line := strings.Repeat("-", len(header))
	return line + "\n" + header + "\n" + line + "\n"
}

func (s *PrinterSuite) TestPrint() {
	var out bytes.Buffer
	err := Print(&out, strings.NewReader("DT0042\nDT\nDT0007\n"), s.detail)
	s.Require().Nil(err)

	lines := strings.Split(out.String(), "\n")
	s.Assert().True(strings.HasPrefix(lines[3], "type (string(2)): DT"))
	s.Assert().Equal("amount (integer(4)): 0042", lines[4])
	s.Assert().True(strings.HasPrefix(lines[5], "! "))
	s.Assert().Contains(lines[5], "record has an invalid length: 2 (expected 6)")

	want := banner("detail", 1) +
		"type (string(2)): DT\n" +
		"amount (integer(4)): 0042\n" +
		"! " + lines[5][2:] + "\n" +
		"\n" + banner("detail", 2) +
		"type (string(2)): DT\n" +
		"amount (integer(4)): 0007\n"
	s.Assert().Equal(want, out.String())
}

func (s *PrinterSuite) TestPrintMultiple() {
	var out bytes.Buffer
	input := "HD0001\nDT0010\nDT0020\nXX0000\nHD0002\n"
	err := PrintMultiple(&out, strings.NewReader(input), s.ms)
	s.Require().Nil(err)

	text := out.String()
	s.Assert().Contains(text, banner("batch", 1))
	s.Assert().Contains(text, banner("batch", 2))
	s.Assert().Contains(text, "HD:\n    -\n    Type (string(2)): HD\n    Batch (string(4)): 0001\n")
	s.Assert().Contains(text, "DT (array(2)):\n    -\n    type (string(2)): DT\n    amount (integer(4)): 0010\n    -\n")
	s.Assert().Contains(text, "! unknown record type")
	// The error is printed as soon as the line is read.
	s.Assert().Less(strings.Index(text, "! unknown"), strings.Index(text, "batch[1]"))
}

func (s *PrinterSuite) TestPrintMultipleValidation() {
	var out bytes.Buffer
	err := PrintMultiple(&out, strings.NewReader("HD0001\nHD0002\nDT0001\n"), s.ms,
		WithValidator(RequireTypes("DT")))
	s.Require().Nil(err)
	text := out.String()
	s.Assert().Contains(text, "! record did not pass validation: missing record of type 'DT'")
	s.Assert().Contains(text, banner("batch", 1))
	s.Assert().Contains(text, "Batch (string(4)): 0002")
	s.Assert().NotContains(text, "batch[2]")
}

func (s *PrinterSuite) TestPrintBinary() {
	var out bytes.Buffer
	input := "@@DT0001@@DT0002"
	err := PrintBinary(&out, strings.NewReader(input), []byte("@@"), s.detail, nil, WithStripPattern())
	s.Require().Nil(err)
	s.Assert().Contains(out.String(), "amount (integer(4)): 0001")
	s.Assert().Contains(out.String(), banner("detail", 2))

	// Frames keep the pattern unless it is stripped.
	out.Reset()
	err = PrintBinary(&out, strings.NewReader(input), []byte("@@"), s.detail, nil)
	s.Require().Nil(err)
	s.Assert().Equal(2, strings.Count(out.String(), "type (string(2)): @@"))
}

func (s *PrinterSuite) TestPrintBinaryComposite() {
	enc := charmap.CodePage037.NewEncoder()
	var in bytes.Buffer
	in.WriteString("junk")
	for _, line := range []string{"HD0001", "DT0005", "HD0002"} {
		b, err := enc.String(line)
		s.Require().Nil(err)
		in.WriteString("\x0f\x0f")
		in.WriteString(b)
	}

	var out bytes.Buffer
	err := PrintBinary(&out, &in, []byte("\x0f\x0f"), nil, s.ms,
		WithStripPattern(), WithEncoding(charmap.CodePage037))
	s.Require().Nil(err)
	text := out.String()
	s.Assert().Contains(text, "! out of sync")
	s.Assert().Contains(text, banner("batch", 1))
	s.Assert().Contains(text, "amount (integer(4)): 0005")
	s.Assert().Contains(text, "Batch (string(4)): 0002")

	err = PrintBinary(&out, &in, []byte("@@"), nil, nil)
	s.Assert().NotNil(err)
}

func (s *PrinterSuite) TestWriteErrors() {
	err := Print(failingWriter{}, strings.NewReader("DT0001\n"), s.detail)
	s.Assert().True(errors.Is(err, errWrite))
}

var errWrite = errors.New("write failed")

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errWrite
}
