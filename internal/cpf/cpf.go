// Package cpf validates and normalizes Brazilian CPF identifiers.
//
// A CPF is an 11-digit national identifier whose last two digits are
// check digits computed from the first nine via weighted mod-11 sums.
// All functions are pure and never fail beyond returning ok=false.
package cpf

import "strings"

// Length is the number of digits in a normalized CPF.
const Length = 11

// Normalize strips every non-digit character from raw and returns the
// canonical 11-digit form. A 10-digit result is left-padded with a zero
// (a common artifact of spreadsheets dropping leading zeros). Returns
// ok=false when the digit count is anything other than 10 or 11.
func Normalize(raw string) (string, bool) {
	var b strings.Builder
	b.Grow(Length)
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}

	digits := b.String()
	switch len(digits) {
	case Length:
		return digits, true
	case Length - 1:
		return "0" + digits, true
	default:
		return "", false
	}
}

// IsValid reports whether id is a structurally valid CPF: exactly 11
// digits, not an all-repeated sequence, and both check digits matching
// the weighted-sum formula.
func IsValid(id string) bool {
	if len(id) != Length {
		return false
	}

	repeated := true
	for i := 0; i < Length; i++ {
		c := id[i]
		if c < '0' || c > '9' {
			return false
		}
		if c != id[0] {
			repeated = false
		}
	}
	// Sequences like 00000000000 or 11111111111 pass the checksum but
	// are reserved as invalid.
	if repeated {
		return false
	}

	return checkDigit(id, 9) == int(id[9]-'0') && checkDigit(id, 10) == int(id[10]-'0')
}

// checkDigit computes the verification digit over the first n digits of
// id, using descending weights starting at n+1. Remainders below 2 map
// to 0, otherwise the digit is 11 minus the remainder.
func checkDigit(id string, n int) int {
	sum := 0
	for i := 0; i < n; i++ {
		sum += int(id[i]-'0') * (n + 1 - i)
	}
	r := sum % 11
	if r < 2 {
		return 0
	}
	return 11 - r
}
