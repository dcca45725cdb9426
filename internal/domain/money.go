package domain

import "math/bits"

// Amounts are unsigned integers in the smallest currency unit. All arithmetic
// on them must be overflow-checked; a wrapped counter here is an accounting
// corruption, not a recoverable condition.

// CheckedAdd returns a+b and whether the sum fits in uint64.
func CheckedAdd(a, b uint64) (uint64, bool) {
	sum, carry := bits.Add64(a, b, 0)
	return sum, carry == 0
}

// CheckedMul returns a*b and whether the product fits in uint64.
func CheckedMul(a, b uint64) (uint64, bool) {
	hi, lo := bits.Mul64(a, b)
	return lo, hi == 0
}

// TotalCost returns pricePerPart*parts and whether the product fits in uint64.
func TotalCost(pricePerPart, parts uint64) (uint64, bool) {
	return CheckedMul(pricePerPart, parts)
}
