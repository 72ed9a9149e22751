package address

import (
	"net/mail"
	"strings"
)

// ValidateEmail reports whether text is a well-formed address.
func ValidateEmail(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	addr, err := mail.ParseAddress(text)
	if err != nil {
		return false
	}
	// Reject display-name forms; the checkout wants a bare address.
	return addr.Address == text && strings.Contains(text, ".")
}

// ValidateTaxID accepts a CPF with exactly 11 digits, masked or not.
func ValidateTaxID(text string) bool {
	return len(DigitsOnly(text)) == 11
}

// ValidatePhone accepts an empty phone or one with 10 or 11 digits.
func ValidatePhone(text string) bool {
	n := len(DigitsOnly(text))
	return n == 0 || n == 10 || n == 11
}

// ValidatePostalCode accepts a CEP with exactly 8 digits, masked or not.
func ValidatePostalCode(text string) bool {
	return len(DigitsOnly(text)) == 8
}

// ValidateState accepts a two-letter state code.
func ValidateState(text string) bool {
	s := strings.TrimSpace(text)
	if len(s) != 2 {
		return false
	}
	for _, r := range s {
		if !((r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')) {
			return false
		}
	}
	return true
}
