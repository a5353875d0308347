package whatsapp

import (
	"strings"
	"unicode"

	"github.com/ttacon/libphonenumber"
)

// StripWhitespace removes all whitespace from a phone number
func StripWhitespace(phone string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, phone)
}

// IsValidPhone reports whether phone is a valid number for region.
func IsValidPhone(phone, region string) bool {
	num, err := libphonenumber.Parse(phone, region)
	if err != nil {
		return false
	}
	return libphonenumber.IsValidNumber(num)
}
