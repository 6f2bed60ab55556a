// Package core defines the budget document: fields, categories,
// subcategories, months and the root AppData, plus their defaults.
//
// This file contains parsing helpers for amounts typed by users.
package core

import (
	"math"
	"strconv"
	"strings"
)

// ParseAmount converts user input to a non-negative amount.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted. A
// string with both uses the last one as the decimal separator, so
// "1.234,56" and "1,234.56" both parse to 1234.56. Empty input is zero.
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	dot, comma := strings.LastIndex(s, "."), strings.LastIndex(s, ",")
	switch {
	case dot >= 0 && comma >= 0 && comma > dot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case dot >= 0 && comma >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !ValidAmount(v) {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// ValidAmount reports whether v is finite and not negative.
func ValidAmount(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
