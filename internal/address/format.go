// Package address normalizes Brazilian shipping-contact input: postal
// codes, phone numbers and CPF tax ids, plus the postal-code lookup used
// to auto-fill guest addresses.
package address

import "strings"

// DigitsOnly strips every non-digit character from text.
func DigitsOnly(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatPostalCode progressively masks a CEP as NNNNN-NNN. Partial input
// is formatted as far as it goes; extra digits are dropped. Idempotent.
func FormatPostalCode(text string) string {
	d := DigitsOnly(text)
	if len(d) > 8 {
		d = d[:8]
	}
	if len(d) <= 5 {
		return d
	}
	return d[:5] + "-" + d[5:]
}

// FormatPhone masks a phone number as (NN) NNNN-NNNN for 10 digits or
// (NN) NNNNN-NNNN for 11. Shorter input is masked progressively.
func FormatPhone(text string) string {
	d := DigitsOnly(text)
	if len(d) > 11 {
		d = d[:11]
	}
	switch {
	case len(d) == 0:
		return ""
	case len(d) <= 2:
		return "(" + d
	case len(d) <= 6:
		return "(" + d[:2] + ") " + d[2:]
	case len(d) <= 10:
		return "(" + d[:2] + ") " + d[2:6] + "-" + d[6:]
	default:
		return "(" + d[:2] + ") " + d[2:7] + "-" + d[7:]
	}
}

// FormatTaxID masks a CPF as NNN.NNN.NNN-NN, progressively.
func FormatTaxID(text string) string {
	d := DigitsOnly(text)
	if len(d) > 11 {
		d = d[:11]
	}
	switch {
	case len(d) <= 3:
		return d
	case len(d) <= 6:
		return d[:3] + "." + d[3:]
	case len(d) <= 9:
		return d[:3] + "." + d[3:6] + "." + d[6:]
	default:
		return d[:3] + "." + d[3:6] + "." + d[6:9] + "-" + d[9:]
	}
}
