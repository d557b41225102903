// Package validation holds the format checks shared by the catalog and
// lending operations.
package validation

import (
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	PatronIDLength  = 6
	ISBNLength      = 13
	MaxTitleLength  = 200
	MaxAuthorLength = 100
)

var validate = validator.New()

// IsPatronID reports whether id is exactly six ASCII digits.
func IsPatronID(id string) bool {
	return validate.Var(id, "len=6,number") == nil
}

// HasISBNLength reports whether isbn is exactly thirteen characters long.
func HasISBNLength(isbn string) bool {
	return utf8.RuneCountInString(isbn) == ISBNLength
}

// IsDigits reports whether s is non-empty and made only of ASCII digits.
func IsDigits(s string) bool {
	return validate.Var(s, "number") == nil
}

// IsISBN reports whether isbn is thirteen ASCII digits.
func IsISBN(isbn string) bool {
	return HasISBNLength(isbn) && IsDigits(isbn)
}

// Text trims s and reports whether the result is non-empty and whether it
// fits within max characters.
func Text(s string, max int) (trimmed string, present, fits bool) {
	trimmed = strings.TrimSpace(s)
	if trimmed == "" {
		return trimmed, false, true
	}
	return trimmed, true, utf8.RuneCountInString(trimmed) <= max
}
