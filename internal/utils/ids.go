// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import (
	"strconv"
	"strings"
)

// ParseID parses a positive decimal identifier such as a path parameter or a
// form value. Surrounding whitespace is ignored; signs, fractions, zero and
// values that overflow uint are rejected.
//
// Example:
//
//	id, ok := utils.ParseID("42")  // 42, true
//	id, ok = utils.ParseID("0")    // 0, false
//	id, ok = utils.ParseID("-3")   // 0, false
func ParseID(s string) (uint, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s[0] == '+' {
		return 0, false
	}
	n, err := strconv.ParseUint(s, 10, 0)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}
