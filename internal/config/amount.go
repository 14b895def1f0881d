package config

import (
	"fmt"
	"math/big"
	"strings"
	"unicode"

	"github.com/ethereum/go-ethereum/params"
)

var units = map[string]*big.Int{
	"":      big.NewInt(params.Wei),
	"wei":   big.NewInt(params.Wei),
	"gwei":  big.NewInt(params.GWei),
	"ether": big.NewInt(params.Ether),
	"eth":   big.NewInt(params.Ether),
}

// ParseWei reads an integer wei amount, optionally followed by a unit such as
// "gwei" or "ether". Fractional unit amounts ("0.5 ether") are accepted as long
// as they resolve to a whole number of wei.
func ParseWei(s string) (*big.Int, error) {
	raw := strings.ToLower(strings.TrimSpace(s))
	if raw == "" {
		return nil, fmt.Errorf("empty amount")
	}
	split := strings.IndexFunc(raw, unicode.IsLetter)
	number, unitName := raw, ""
	if split >= 0 {
		number, unitName = strings.TrimSpace(raw[:split]), strings.TrimSpace(raw[split:])
	}
	unit, ok := units[unitName]
	if !ok {
		return nil, fmt.Errorf("unknown unit %q in amount %q", unitName, s)
	}
	if strings.ContainsAny(number, "/") {
		return nil, fmt.Errorf("invalid amount %q", s)
	}

	amount, ok := new(big.Rat).SetString(number)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("negative amount %q", s)
	}
	amount.Mul(amount, new(big.Rat).SetInt(unit))
	if !amount.IsInt() {
		return nil, fmt.Errorf("amount %q is not a whole number of wei", s)
	}
	return new(big.Int).Set(amount.Num()), nil
}
