// Package core provides money parsing and handling utilities.
//
// Amounts are stored on the wire with a dot decimal separator and two
// decimals. Reading is tolerant of the comma convention used by hand-edited
// spreadsheets so both "15,70" and "15.70" map to the same value.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of decimals kept for every monetary value.
const AmountScale = 2

// ParseAmount converts a decimal string to a positive amount rounded to cents.
//
// The last '.' or ',' in the string is the decimal separator; the other
// character, when present, is treated as digit grouping. A separator that
// occurs more than once with no other separator is grouping as well.
// Currency prefixes ("S/", "S/.") and spaces are ignored. Half-up rounding
// applies on the third decimal.
//
// Examples:
//
//	ParseAmount("15,70")    -> 15.70
//	ParseAmount("1.234,56") -> 1234.56
//	ParseAmount("1,234.56") -> 1234.56
//	ParseAmount("12.345")   -> 12.35
func ParseAmount(s string) (decimal.Decimal, error) {
	s = cleanAmount(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		// Only positive values allowed
		return decimal.Zero, ErrInvalidAmount
	}

	intPart, fracPart, ok := splitAmount(s)
	if !ok {
		return decimal.Zero, ErrInvalidAmount
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	canonical := intPart
	if fracPart != "" {
		canonical += "." + fracPart
	}
	d, err := decimal.NewFromString(canonical)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	d = d.Round(AmountScale)
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseCap parses a budget cap. Unlike ParseAmount it accepts zero, which
// disables utilization for the category.
func ParseCap(s string) (decimal.Decimal, error) {
	if c := cleanAmount(s); c != "" && strings.Trim(c, "0.,") == "" {
		return decimal.Zero, nil
	}
	return ParseAmount(s)
}

// FormatAmount renders the canonical on-the-wire form: dot separator, two decimals.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(AmountScale)
}

func cleanAmount(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"S/.", "S/"} {
		if strings.HasPrefix(s, prefix) {
			s = s[len(prefix):]
			break
		}
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// splitAmount separates the integer and fractional digits, dropping grouping.
func splitAmount(s string) (intPart, fracPart string, ok bool) {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	var decimalSep, groupSep string
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastDot > lastComma {
			decimalSep, groupSep = ".", ","
		} else {
			decimalSep, groupSep = ",", "."
		}
	case lastDot >= 0:
		if strings.Count(s, ".") > 1 {
			return ungroup(s, ".")
		}
		decimalSep = "."
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			return ungroup(s, ",")
		}
		decimalSep = ","
	default:
		return s, "", true
	}

	if strings.Count(s, decimalSep) > 1 {
		return "", "", false
	}
	idx := strings.LastIndex(s, decimalSep)
	whole, frac := s[:idx], s[idx+len(decimalSep):]
	if groupSep != "" {
		var good bool
		whole, _, good = ungroup(whole, groupSep)
		if !good {
			return "", "", false
		}
	}
	return whole, frac, true
}

// ungroup removes grouping separators, requiring groups of exactly three digits.
func ungroup(s, sep string) (string, string, bool) {
	groups := strings.Split(s, sep)
	if len(groups) == 1 {
		return s, "", true
	}
	if len(groups[0]) == 0 || len(groups[0]) > 3 {
		return "", "", false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return "", "", false
		}
	}
	return strings.Join(groups, ""), "", true
}
