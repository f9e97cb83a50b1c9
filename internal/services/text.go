package services

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// cleanText NFC-normalizes and trims user-supplied text so that visually
// identical input is stored identically and whitespace-only input is empty.
func cleanText(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}
