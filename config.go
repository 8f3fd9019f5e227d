// Copyright (C) 2023 by Posit Software, PBC
package frf

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"gopkg.in/yaml.v3"
)

// Config is a layout file. It declares named record and composite layouts
// for data whose shape is not known at compile time.
type Config struct {
	Defaults DefaultsConfig   `yaml:"defaults"`
	Records  []RecordConfig   `yaml:"records"`
	Multiple []MultipleConfig `yaml:"multiple,omitempty"`
	Binary   BinaryConfig     `yaml:"binary,omitempty"`
}

type DefaultsConfig struct {
	DateFormat string   `yaml:"date_format"`
	BoolFormat []string `yaml:"bool_format,flow"`
}

// RecordConfig describes a single record layout. Kind is "positional" or
// "delimited".
type RecordConfig struct {
	Name       string         `yaml:"name"`
	Kind       string         `yaml:"kind"`
	Delimiter  string         `yaml:"delimiter,omitempty"`
	Enclose    string         `yaml:"enclose,omitempty"`
	MinColumns int            `yaml:"min_columns,omitempty"`
	MinLength  int            `yaml:"min_length,omitempty"`
	Columns    []ColumnConfig `yaml:"columns"`
}

type ColumnConfig struct {
	Field   string         `yaml:"field"`
	Name    string         `yaml:"name,omitempty"`
	Type    string         `yaml:"type,omitempty"`
	Length  int            `yaml:"length,omitempty"`
	Offset  int            `yaml:"offset,omitempty"`
	Format  string         `yaml:"format,omitempty"`
	Bool    []string       `yaml:"bool,omitempty,flow"`
	Enclose string         `yaml:"enclose,omitempty"`
	Lenient bool           `yaml:"lenient,omitempty"`
	Group   []ColumnConfig `yaml:"group,omitempty"`
}

// MultipleConfig describes a composite layout. Kind is "positional" or
// "delimited" and selects the extraction rule: TypeBegin and TypeEnd, or
// TypeDelimiter and TypePosition.
type MultipleConfig struct {
	Name          string            `yaml:"name"`
	Kind          string            `yaml:"kind"`
	TypeBegin     int               `yaml:"type_begin,omitempty"`
	TypeEnd       int               `yaml:"type_end,omitempty"`
	TypeDelimiter string            `yaml:"type_delimiter,omitempty"`
	TypePosition  int               `yaml:"type_position,omitempty"`
	Records       []SubRecordConfig `yaml:"records"`
}

type SubRecordConfig struct {
	Tag    string `yaml:"tag"`
	Record string `yaml:"record"`
	List   bool   `yaml:"list,omitempty"`
	First  bool   `yaml:"first,omitempty"`
}

// BinaryConfig configures framing. The sync pattern is given as text or as
// hex, not both.
type BinaryConfig struct {
	Pattern      string `yaml:"pattern,omitempty"`
	PatternHex   string `yaml:"pattern_hex,omitempty"`
	Charset      string `yaml:"charset,omitempty"`
	StripPattern bool   `yaml:"strip_pattern,omitempty"`
	MaxFrameSize int    `yaml:"max_frame_size,omitempty"`
}

// DefaultConfig returns a configuration with the default formats and no
// layouts.
func DefaultConfig() *Config {
	d := DefaultDefaults()
	return &Config{
		Defaults: DefaultsConfig{
			DateFormat: d.DateFormat,
			BoolFormat: []string{d.BoolFormat.True(), d.BoolFormat.False()},
		},
	}
}

// LoadConfig loads a layout file. Unset defaults keep their default values.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, errors.Errorf("config file does not exist: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return ParseConfig(data)
}

// ParseConfig parses a layout file's contents.
func ParseConfig(data []byte) (*Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}
	return config, nil
}

// SaveConfig writes the configuration to configPath.
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}
	return nil
}

// FormatDefaults converts the defaults section.
func (c *Config) FormatDefaults() (Defaults, error) {
	d := DefaultDefaults()
	if c.Defaults.DateFormat != "" {
		d.DateFormat = c.Defaults.DateFormat
	}
	if c.Defaults.BoolFormat != nil {
		if len(c.Defaults.BoolFormat) != 2 {
			return d, errors.Errorf("invalid default boolean format %v: expected a true and a false token", c.Defaults.BoolFormat)
		}
		d.BoolFormat = BoolFormat{c.Defaults.BoolFormat[0], c.Defaults.BoolFormat[1]}
	}
	return d, nil
}

// Registry compiles every layout of the file into a new registry. Composite
// layouts refer to record layouts by name.
func (c *Config) Registry(opts ...Option) (*Registry, error) {
	d, err := c.FormatDefaults()
	if err != nil {
		return nil, err
	}
	reg := NewRegistry(d, opts...)

	for _, rc := range c.Records {
		spec, err := rc.spec()
		if err != nil {
			return nil, errors.Wrapf(err, "record layout '%s'", rc.Name)
		}
		if _, err := reg.Register(rc.Name, spec); err != nil {
			return nil, errors.Wrapf(err, "record layout '%s'", rc.Name)
		}
	}

	for _, mc := range c.Multiple {
		spec, err := mc.spec(reg)
		if err != nil {
			return nil, errors.Wrapf(err, "composite layout '%s'", mc.Name)
		}
		if _, err := reg.RegisterMultiple(mc.Name, spec); err != nil {
			return nil, errors.Wrapf(err, "composite layout '%s'", mc.Name)
		}
	}
	return reg, nil
}

func (rc RecordConfig) spec() (RecordSpec, error) {
	spec := RecordSpec{Name: rc.Name}
	switch strings.ToLower(rc.Kind) {
	case "positional":
		spec.Layout = Positional{MinLength: rc.MinLength}
	case "delimited":
		spec.Layout = Delimited{Delimiter: rc.Delimiter, MinColumns: rc.MinColumns, Enclose: rc.Enclose}
	default:
		return spec, schemaErrorf(rc.Name, "unknown layout kind '%s'", rc.Kind)
	}
	cols, err := columnSpecs(rc.Columns)
	if err != nil {
		return spec, err
	}
	spec.Columns = cols
	return spec, nil
}

func columnSpecs(ccs []ColumnConfig) ([]ColumnSpec, error) {
	out := make([]ColumnSpec, 0, len(ccs))
	for _, cc := range ccs {
		t, err := ParseColumnType(cc.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "column '%s'", cc.Field)
		}
		c := ColumnSpec{
			Field:   cc.Field,
			Name:    cc.Name,
			Type:    t,
			Length:  cc.Length,
			Offset:  cc.Offset,
			Format:  cc.Format,
			Bool:    cc.Bool,
			Enclose: cc.Enclose,
			Lenient: cc.Lenient,
		}
		if cc.Group != nil {
			c.Group, err = columnSpecs(cc.Group)
			if err != nil {
				return nil, err
			}
		}
		out = append(out, c)
	}
	return out, nil
}

func (mc MultipleConfig) spec(reg *Registry) (MultipleSpec, error) {
	spec := MultipleSpec{Name: mc.Name}
	switch strings.ToLower(mc.Kind) {
	case "positional":
		spec.Layout = MultiplePositional{TypeBegin: mc.TypeBegin, TypeEnd: mc.TypeEnd}
	case "delimited":
		spec.Layout = MultipleDelimited{Delimiter: mc.TypeDelimiter, TypePosition: mc.TypePosition}
	default:
		return spec, schemaErrorf(mc.Name, "unknown layout kind '%s'", mc.Kind)
	}
	for _, sc := range mc.Records {
		s, ok := reg.Named(sc.Record)
		if !ok {
			return spec, schemaErrorf(mc.Name, "sub-record '%s' refers to unknown record layout '%s'", sc.Tag, sc.Record)
		}
		spec.Records = append(spec.Records, SubRecordSpec{
			Tag:    sc.Tag,
			Schema: s,
			List:   sc.List,
			First:  sc.First,
			Field:  sc.Record,
		})
	}
	return spec, nil
}

// SyncPattern returns the framing pattern.
func (b BinaryConfig) SyncPattern() ([]byte, error) {
	switch {
	case b.Pattern != "" && b.PatternHex != "":
		return nil, errors.New("both pattern and pattern_hex are set")
	case b.PatternHex != "":
		p, err := hex.DecodeString(b.PatternHex)
		if err != nil {
			return nil, errors.Wrap(err, "invalid pattern_hex")
		}
		return p, nil
	case b.Pattern != "":
		return []byte(b.Pattern), nil
	}
	return nil, errors.New("no sync pattern configured")
}

// Encoding resolves the charset name (an IANA name such as "IBM037"). An
// empty name means frames are used as-is.
func (b BinaryConfig) Encoding() (encoding.Encoding, error) {
	if b.Charset == "" {
		return nil, nil
	}
	e, err := ianaindex.IANA.Encoding(b.Charset)
	if err != nil {
		return nil, errors.Wrapf(err, "unknown charset '%s'", b.Charset)
	}
	if e == nil {
		return nil, errors.Errorf("unsupported charset '%s'", b.Charset)
	}
	return e, nil
}

// Options returns the framer options of the binary section.
func (b BinaryConfig) Options() ([]Option, error) {
	var opts []Option
	e, err := b.Encoding()
	if err != nil {
		return nil, err
	}
	if e != nil {
		opts = append(opts, WithEncoding(e))
	}
	if b.StripPattern {
		opts = append(opts, WithStripPattern())
	}
	if b.MaxFrameSize > 0 {
		opts = append(opts, WithMaxFrameSize(b.MaxFrameSize))
	}
	return opts, nil
}
