package types_test

import (
	stdmath "math"
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/tensormesh/tensormesh/x/market/types"
)

func TestSaturateToUint64(t *testing.T) {
	require.Equal(t, uint64(0), types.SaturateToUint64(math.Int{}))
	require.Equal(t, uint64(0), types.SaturateToUint64(math.NewInt(-5)))
	require.Equal(t, uint64(0), types.SaturateToUint64(math.ZeroInt()))
	require.Equal(t, uint64(42), types.SaturateToUint64(math.NewInt(42)))
	require.Equal(t, uint64(stdmath.MaxUint64),
		types.SaturateToUint64(math.NewIntFromUint64(stdmath.MaxUint64)))

	over := math.NewIntFromUint64(stdmath.MaxUint64).Add(math.OneInt())
	require.Equal(t, uint64(stdmath.MaxUint64), types.SaturateToUint64(over))
}
