package asset

import (
	"fmt"
	"math/big"
)

// Amount is a fixed-point monetary quantity scaled by Multiplier,
// i.e. 8 decimal places packed into an int64.
type Amount = int64

// Multiplier is the fixed-point scale: 1.00000000 units == 100,000,000.
const Multiplier int64 = 100_000_000

var (
	multiplierBig = big.NewInt(Multiplier)
	// roundingBig is Multiplier-1, added before the scaled divide to round up.
	roundingBig = big.NewInt(Multiplier - 1)
)

// RoundUpScaledMultiply returns ceil(a*b / Multiplier).
// The intermediate product is computed at arbitrary precision so two
// full-range amounts cannot overflow before the scale-down.
// Used whenever under-collecting would short-change the book
// (order commitments and refunds).
func RoundUpScaledMultiply(a, b Amount) Amount {
	product := new(big.Int).Mul(big.NewInt(a), big.NewInt(b))
	product.Add(product, roundingBig)
	return product.Div(product, multiplierBig).Int64()
}

// RoundDownScaledMultiply returns floor(a*b / Multiplier).
// Used whenever crediting a counter-party: never invent value.
func RoundDownScaledMultiply(a, b Amount) Amount {
	product := new(big.Int).Mul(big.NewInt(a), big.NewInt(b))
	return product.Div(product, multiplierBig).Int64()
}

// ScaledDivide returns floor(a*Multiplier / b).
func ScaledDivide(a, b Amount) Amount {
	scaled := new(big.Int).Mul(big.NewInt(a), multiplierBig)
	return scaled.Div(scaled, big.NewInt(b)).Int64()
}

// GCD returns the greatest common divisor of a and b, always non-negative.
func GCD(a, b int64) int64 {
	if b == 0 {
		return absInt64(a)
	}
	if a == 0 {
		return absInt64(b)
	}
	for b != 0 {
		a, b = b, a%b
	}
	return absInt64(a)
}

// Pretty renders an Amount with its full 8 decimal places, e.g. "486.00074844".
func Pretty(a Amount) string {
	return fmt.Sprintf("%d.%08d", a/Multiplier, absInt64(a%Multiplier))
}

func absInt64(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}
