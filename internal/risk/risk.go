package risk

import (
	"errors"
	"fmt"
	"math/big"
)

// ErrValueTooHigh is returned when a payable call would exceed the cap.
var ErrValueTooHigh = errors.New("value exceeds configured cap")

// Limits caps the wei a single payable call may carry; a nil MaxValue means no cap.
type Limits struct {
	MaxValue *big.Int
}

func (l Limits) Allow(value *big.Int) bool {
	if l.MaxValue == nil || value == nil {
		return true
	}
	return value.Cmp(l.MaxValue) <= 0
}

// Check is Allow with an error suitable for returning up the stack.
func (l Limits) Check(value *big.Int) error {
	if !l.Allow(value) {
		return fmt.Errorf("%s wei > %s wei: %w", value, l.MaxValue, ErrValueTooHigh)
	}
	return nil
}
