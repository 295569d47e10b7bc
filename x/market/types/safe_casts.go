package types

import (
	stdmath "math"

	"cosmossdk.io/math"
)

// SaturateToUint64 bounds an Int before casting to uint64 to avoid overflow:
// nil and negative values become zero, values past MaxUint64 clamp to
// MaxUint64.
func SaturateToUint64(v math.Int) uint64 {
	if v.IsNil() || v.IsNegative() {
		return 0
	}
	if !v.BigInt().IsUint64() {
		return stdmath.MaxUint64
	}
	return v.Uint64()
}
