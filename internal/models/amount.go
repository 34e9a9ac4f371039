package models

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// weiPerEther is the decimal exponent between ether and wei
const weiPerEther = 18

// ErrAmountOverflow is returned when a sum of amounts leaves the int64 wei range.
var ErrAmountOverflow = errors.New("amount overflows")

// ParseEther converts a decimal ether string such as "0.003" to wei.
func ParseEther(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid ether amount %q: %w", s, err)
	}
	wei := d.Shift(weiPerEther)
	if !wei.IsInteger() {
		return 0, fmt.Errorf("ether amount %q is finer than 1 wei", s)
	}
	if wei.GreaterThan(decimal.NewFromInt(math.MaxInt64)) || wei.LessThan(decimal.NewFromInt(math.MinInt64)) {
		return 0, fmt.Errorf("ether amount %q overflows", s)
	}
	return Amount(wei.IntPart()), nil
}

// Ether formats a wei amount as a decimal ether string
func (a Amount) Ether() string {
	return decimal.New(int64(a), -weiPerEther).String()
}

// Add returns a+b, failing instead of wrapping past the int64 range.
func (a Amount) Add(b Amount) (Amount, error) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, fmt.Errorf("%w: %d + %d", ErrAmountOverflow, a, b)
	}
	return a + b, nil
}
