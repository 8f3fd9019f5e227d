// Copyright (C) 2023 by Posit Software, PBC
package frf

import (
	"strings"
)

// WithHeader re-maps a delimited schema to the column order of a header line.
// Every declared column must have a Name, and every Name must appear among
// the header tokens. Columns not named in the layout are skipped on read.
// The receiver is not modified.
func (s *Schema) WithHeader(line string) (*Schema, error) {
	if s.kind != KindDelimited {
		return nil, schemaErrorf(s.name, "header mapping is only supported for delimited layouts, not %s", s.kind)
	}

	tokens := strings.Split(line, s.delimiter)
	at := make(map[string]int, len(tokens))
	for i, tok := range tokens {
		if s.enclose != "" && tok != "" {
			if u, err := unenclose(tok, s.enclose); err == nil {
				tok = u
			}
		}
		tok = strings.TrimSpace(tok)
		if _, dup := at[tok]; !dup {
			at[tok] = i
		}
	}

	// Map each declared column to its header position.
	declared := s.Columns()
	mapped := make([]int, len(declared))
	width := 0
	for k, c := range declared {
		if c.Name == "" {
			return nil, schemaErrorf(s.name, "column '%s' has no name and cannot be mapped to a header", c.Field)
		}
		i, ok := at[c.Name]
		if !ok {
			return nil, schemaErrorf(s.name, "column '%s' not found in header", c.Name)
		}
		mapped[k] = i
		if i+1 > width {
			width = i + 1
		}
	}

	out := &Schema{
		name:      s.name,
		kind:      s.kind,
		tag:       s.tag,
		delimiter: s.delimiter,
		enclose:   s.enclose,
	}
	out.columns = make([]Column, width)
	out.lengths = make([]int, width)
	for i := range out.columns {
		out.columns[i] = Column{
			ColumnSpec: ColumnSpec{Type: ColumnString, Length: -1, Enclose: s.enclose},
			Index:      i,
			Synthetic:  true,
		}
		out.lengths[i] = -1
	}
	for k, c := range declared {
		i := mapped[k]
		if !out.columns[i].Synthetic {
			return nil, schemaErrorf(s.name, "header column '%s' is mapped twice", c.Name)
		}
		c.Index = i
		out.columns[i] = c
		out.lengths[i] = c.Length
		out.declared = append(out.declared, i)
	}
	out.minColumns = width
	return out, nil
}
