// Copyright (C) 2023 by Posit Software, PBC
package frf

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BoolFormat holds the tokens written for true and false, in that order.
type BoolFormat [2]string

func (b BoolFormat) True() string  { return b[0] }
func (b BoolFormat) False() string { return b[1] }

// Common date layouts.
const (
	DateFormat              = "02/01/2006"
	DateFormatInverted      = "2006/01/02"
	DateFormatDash          = "02-01-2006"
	DateFormatDashInverted  = "2006-01-02"
	DateFormatDot           = "02.01.2006"
	DateFormatDotInverted   = "2006.01.02"
	DateFormatClean         = "02012006"
	DateFormatCleanInverted = "20060102"
	DateFormatTimestamp     = "20060102150405"
	DateFormatDateTime      = "02/01/2006 15:04:05.000"
	DateFormatTime          = "15.04"
	DateFormatTimeSeconds   = "15:04:05"
)

// Common boolean token pairs.
var (
	BoolTrueFalse = BoolFormat{"true", "false"}
	BoolYN        = BoolFormat{"Y", "N"}
)

// Defaults apply to columns that do not declare their own format.
type Defaults struct {
	DateFormat string
	BoolFormat BoolFormat
}

// DefaultDefaults returns the defaults used when none are configured.
func DefaultDefaults() Defaults {
	return Defaults{
		DateFormat: DateFormat,
		BoolFormat: BoolYN,
	}
}

// trimValue trims a raw column value. The second return value is false when
// the value is blank, which reads as absent.
func trimValue(s string) (string, bool) {
	t := strings.TrimSpace(s)
	return t, t != ""
}

func stripSign(s string) string {
	return strings.TrimPrefix(s, "+")
}

func invalidValue(kind, s string, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %s %q: %s", ErrInvalidValue, kind, s, err)
	}
	return fmt.Errorf("%w: %s %q", ErrInvalidValue, kind, s)
}

func parseInteger(s string, bits int) (int64, bool, error) {
	t, ok := trimValue(s)
	if !ok {
		return 0, false, nil
	}
	i, err := strconv.ParseInt(stripSign(t), 10, bits)
	if err != nil {
		return 0, false, invalidValue("integer", s, err)
	}
	return i, true, nil
}

func parseDouble(s string) (float64, bool, error) {
	t, ok := trimValue(s)
	if !ok {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(stripSign(t), 64)
	if err != nil {
		return 0, false, invalidValue("double", s, err)
	}
	return f, true, nil
}

func parseDecimal(s string) (decimal.Decimal, bool, error) {
	t, ok := trimValue(s)
	if !ok {
		return decimal.Zero, false, nil
	}
	d, err := decimal.NewFromString(stripSign(strings.ReplaceAll(t, ",", ".")))
	if err != nil {
		return decimal.Zero, false, invalidValue("decimal", s, err)
	}
	return d, true, nil
}

func parseBool(s string, tokens BoolFormat) (bool, bool, error) {
	t, ok := trimValue(s)
	if !ok {
		return false, false, nil
	}
	switch t {
	case tokens.True():
		return true, true, nil
	case tokens.False():
		return false, true, nil
	}
	return false, false, invalidValue("boolean", s, fmt.Errorf("not in [%s %s]", tokens.True(), tokens.False()))
}

// parseDate parses strictly: impossible dates such as 31/02 are rejected
// rather than rolled over.
func parseDate(s, layout string) (time.Time, bool, error) {
	t, ok := trimValue(s)
	if !ok {
		return time.Time{}, false, nil
	}
	d, err := time.ParseInLocation(layout, t, time.UTC)
	if err != nil {
		return time.Time{}, false, invalidValue("date", s, err)
	}
	return d, true, nil
}

func formatInteger(i int64) string {
	return strconv.FormatInt(i, 10)
}

func formatDouble(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatDecimal(d decimal.Decimal) string {
	return d.String()
}

func formatBool(b bool, tokens BoolFormat) string {
	if b {
		return tokens.True()
	}
	return tokens.False()
}

func formatDate(t time.Time, layout string) string {
	return t.Format(layout)
}

// enclose wraps a value with the enclosure token.
func enclose(s, token string) string {
	return token + s + token
}

// unenclose strips the enclosure token. The token must appear at least
// twice; the value is taken between the first and the last occurrence.
func unenclose(s, token string) (string, error) {
	begin := strings.Index(s, token)
	end := strings.LastIndex(s, token)
	if begin < 0 || end < begin+len(token) {
		return "", fmt.Errorf("%w: %q", ErrNotEnclosed, s)
	}
	return s[begin+len(token) : end], nil
}
