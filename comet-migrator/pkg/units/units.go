// Package units scales human-readable decimal amounts into the fixed-point integers
// that Comet contracts take.
package units

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Exp parses value and multiplies it by 10^decimals. Digits beyond the target precision
// are truncated.
func Exp(value string, decimals int32) (*big.Int, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("invalid decimal %q: %w", value, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("negative amount %q", value)
	}
	if decimals < 0 {
		return nil, fmt.Errorf("negative decimals %d", decimals)
	}
	return d.Shift(decimals).Truncate(0).BigInt(), nil
}

// MustExp is Exp for literals known to be valid.
func MustExp(value string, decimals int32) *big.Int {
	v, err := Exp(value, decimals)
	if err != nil {
		panic(err)
	}
	return v
}

// Factor scales a collateral or liquidation factor such as "0.825" to 18 decimals.
func Factor(value string) uint64 {
	v := MustExp(value, 18)
	if !v.IsUint64() {
		panic(fmt.Errorf("factor %q overflows uint64", value))
	}
	return v.Uint64()
}

// Speed converts a per-day reward amount (in COMP) into the per-second tracking speed
// used by Comet, scaled by the base tracking index scale of 1e15.
func Speed(perDay string) uint64 {
	v := MustExp(perDay, 15)
	v.Quo(v, big.NewInt(86400))
	if !v.IsUint64() {
		panic(fmt.Errorf("speed %q overflows uint64", perDay))
	}
	return v.Uint64()
}

// Format renders a fixed-point integer with the given number of decimals.
func Format(v *big.Int, decimals int32) string {
	if v == nil {
		return "<nil>"
	}
	return decimal.NewFromBigInt(v, -decimals).String()
}
