// Package core provides the domain types of the back-office.
//
// Money is a whole number of CFA francs. The franc has no minor unit in
// practice here: every amount in the store and on the reports is an
// integer, and the rendering contract is zero decimal places.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

type Money struct {
	Francs int64
}

func (m Money) Validate() error {
	if m.Francs <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// String renders the amount the way the reports do: digits only, no
// separators, no decimals.
func (m Money) String() string {
	return strconv.FormatInt(m.Francs, 10)
}

// ParseFrancs converts a user-supplied amount to whole francs.
//
// Decimal input is accepted for tolerance (POS operators sometimes type
// "500.0") and rounded half-up on the first fractional digit. Negative
// and malformed values are rejected.
func ParseFrancs(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	v, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if fracPart != "" && fracPart[0] >= '5' {
		v++
	}
	if v <= 0 {
		return 0, ErrInvalidAmount
	}
	return v, nil
}
