package payment

import (
	"fmt"
	"strings"
	"unicode"
)

const countryCode = "254"

// Normalize rewrites a Kenyan phone number to its 254-prefixed digit form.
// It is defined for every input and Normalize(Normalize(x)) == Normalize(x);
// a 9-digit value already starting with 254 is left alone.
func Normalize(raw string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)

	switch {
	case len(digits) == 10 && digits[0] == '0':
		digits = countryCode + digits[1:]
	case len(digits) == 9 && !strings.HasPrefix(digits, countryCode):
		digits = countryCode + digits
	}
	if len(digits) < 12 && !strings.HasPrefix(digits, countryCode) {
		digits = countryCode + digits
	}
	return digits
}

// NormalizePhone normalizes raw and checks the result is a dialable
// Safaricom number. Separators (space, +, -, dot, parentheses) are allowed;
// letters or an empty number are not.
func NormalizePhone(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: phone number is required", ErrInvalidPaymentParams)
	}
	hasDigit := false
	for _, r := range trimmed {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case unicode.IsSpace(r), strings.ContainsRune("+-.()", r):
		default:
			return "", fmt.Errorf("%w: phone number %q is not numeric", ErrInvalidPaymentParams, raw)
		}
	}
	if !hasDigit {
		return "", fmt.Errorf("%w: phone number %q is not numeric", ErrInvalidPaymentParams, raw)
	}

	phone := Normalize(trimmed)
	if len(phone) != 12 || !(strings.HasPrefix(phone, "2547") || strings.HasPrefix(phone, "2541")) {
		return "", fmt.Errorf("%w: %q is not a valid M-Pesa number", ErrInvalidPaymentParams, raw)
	}
	return phone, nil
}
