package payhere

import (
	"fmt"
	"strings"
)

// maxAmountDigits bounds the integer part so cents always fit in an int64.
const maxAmountDigits = 15

// ParseAmount converts a decimal string into minor units (cents).
// Only plain digits with an optional '.' and one or two fraction digits are accepted;
// sub-cent precision, signs, exponents and zero are rejected rather than rounded.
func ParseAmount(s string) (int64, error) {
	raw := s
	s = strings.TrimSpace(s)

	invalid := func(reason string) (int64, error) {
		return 0, &ValidationError{Field: "amount", Value: raw, Reason: reason, Err: ErrInvalidAmount}
	}

	if s == "" {
		return invalid("is required")
	}

	whole, frac, hasDot := strings.Cut(s, ".")
	if whole == "" || (hasDot && frac == "") {
		return invalid("is not a number")
	}
	if !isDigits(whole) || !isDigits(frac) {
		return invalid("is not a number")
	}
	if len(frac) > 2 {
		return invalid("has more than 2 decimal places")
	}
	whole = strings.TrimLeft(whole, "0")
	if len(whole) > maxAmountDigits {
		return invalid("is too large")
	}

	var cents int64
	for _, r := range whole {
		cents = cents*10 + int64(r-'0')
	}
	frac += strings.Repeat("0", 2-len(frac))
	cents = cents*100 + int64(frac[0]-'0')*10 + int64(frac[1]-'0')

	if cents <= 0 {
		return invalid("must be greater than zero")
	}
	return cents, nil
}

// FormatAmount renders cents as a fixed-point string with exactly two fraction digits.
func FormatAmount(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
