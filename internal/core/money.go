// Package core provides money parsing and handling utilities.
//
// Amounts are stored as signed integer cents. Conversion to major units only
// happens at presentation and aggregation boundaries, through decimal values
// so no precision is lost in either direction.
package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

type Money struct {
	Cents int64
}

// Major returns the amount in major units (cents / 100) as an exact decimal.
func (m Money) Major() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// AbsMajor returns the absolute amount in major units. It is exact for
// every int64, math.MinInt64 included.
func (m Money) AbsMajor() decimal.Decimal {
	return m.Major().Abs()
}

// String renders the amount with two decimals, e.g. "-12.34".
func (m Money) String() string {
	return FormatCents(m.Cents)
}

// FormatCents renders cents as a major-unit decimal string with two digits.
// ParseMajorToCents(FormatCents(c)) == c for every c.
func FormatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// ParseMajorToCents is the strict inverse of FormatCents: it accepts a signed
// decimal with at most two fractional digits.
func ParseMajorToCents(s string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, ErrInvalidAmount
	}
	shifted := d.Shift(2)
	if !shifted.IsInteger() {
		return 0, ErrInvalidAmount
	}
	if !shifted.BigInt().IsInt64() {
		return 0, ErrInvalidAmount
	}
	return shifted.IntPart(), nil
}

// ParseDecimalToCents converts user or import input to cents with rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators, an optional
// sign, and rounds half away from zero on the third decimal place. Zero is
// rejected: a transaction always moves money.
//
// Examples:
//
//	ParseDecimalToCents("12.34")  -> 1234, nil
//	ParseDecimalToCents("-12,34") -> -1234, nil
//	ParseDecimalToCents("1.005")  -> 101, nil
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	cents := d.Shift(2).Round(0)
	if !cents.BigInt().IsInt64() {
		return 0, ErrInvalidAmount
	}
	if cents.IsZero() {
		return 0, ErrInvalidAmount
	}
	return cents.IntPart(), nil
}

// SearchRendering is the text an amount is matched against by the search
// filter: the absolute value in major units with two decimals ("12.34").
func SearchRendering(cents int64) string {
	return Money{Cents: cents}.AbsMajor().StringFixed(2)
}
