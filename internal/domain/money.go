package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var ErrInvalidAmount = errors.New("invalid amount")

// FormatCents renders an amount in cents as a decimal string with two
// fraction digits, e.g. 20000 -> "200.00".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// ParseCents parses a non-negative decimal amount with at most two fraction
// digits ("100", "100.5", "100.50") into cents without going through floats.
func ParseCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" || (hasFrac && (frac == "" || len(frac) > 2)) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	for _, r := range whole + frac {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || units > math.MaxInt64/100 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	var fc int64
	if hasFrac {
		if len(frac) == 1 {
			frac += "0"
		}
		fc, _ = strconv.ParseInt(frac, 10, 64)
	}

	return units*100 + fc, nil
}

// MulCents multiplies a per-unit price by a quantity, failing on overflow.
func MulCents(price int64, qty int) (int64, error) {
	if qty < 0 || price < 0 {
		return 0, ErrInvalidAmount
	}
	if qty != 0 && price > math.MaxInt64/int64(qty) {
		return 0, fmt.Errorf("%w: overflow", ErrInvalidAmount)
	}
	return price * int64(qty), nil
}
