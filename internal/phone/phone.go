// Package phone normalizes user-entered phone numbers to the digits-only
// international form the backend expects for pairing and test sends.
package phone

import (
	"errors"
	"strings"
)

var (
	// ErrEmpty is returned for blank input.
	ErrEmpty = errors.New("phone number is empty")
	// ErrInvalidCharacters is returned when the input contains letters or symbols.
	ErrInvalidCharacters = errors.New("phone number contains invalid characters")
	// ErrInvalidLength is returned when the result is not 8 to 15 digits.
	ErrInvalidLength = errors.New("phone number must have 8 to 15 digits")
)

const (
	minDigits = 8
	maxDigits = 15
	// maxNationalDigits is the longest national number, trunk prefix excluded.
	maxNationalDigits = 10
)

// Normalize returns the number as country code + subscriber digits.
//
// Spaces, dots, dashes and parentheses are ignored. A leading "+" or "00"
// marks an international number. Anything else is treated as national and
// gets defaultCountryCode prepended after dropping one trunk "0", unless it
// already starts with the country code and is too long to be national. With
// an empty defaultCountryCode national numbers are taken as already complete.
func Normalize(raw, defaultCountryCode string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ErrEmpty
	}

	international := false
	if strings.HasPrefix(s, "+") {
		international = true
		s = s[1:]
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
		default:
			return "", ErrInvalidCharacters
		}
	}

	digits := b.String()
	if !international && strings.HasPrefix(digits, "00") {
		international = true
		digits = digits[2:]
	}

	if !international {
		cc := strings.TrimPrefix(strings.TrimSpace(defaultCountryCode), "+")
		if cc != "" && !hasCountryCode(digits, cc) {
			digits = cc + strings.TrimPrefix(digits, "0")
		}
	}

	if len(digits) < minDigits || len(digits) > maxDigits {
		return "", ErrInvalidLength
	}
	return digits, nil
}

func hasCountryCode(digits, cc string) bool {
	return strings.HasPrefix(digits, cc) && len(digits) > maxNationalDigits
}

// Mask hides all but the last four digits, for log lines.
func Mask(digits string) string {
	if len(digits) <= 4 {
		return digits
	}
	return strings.Repeat("*", len(digits)-4) + digits[len(digits)-4:]
}
