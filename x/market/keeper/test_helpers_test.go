package keeper_test

import (
	"testing"
	"time"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"
	"github.com/stretchr/testify/require"

	keepertest "github.com/tensormesh/tensormesh/testutil/keeper"
	"github.com/tensormesh/tensormesh/x/market/keeper"
	"github.com/tensormesh/tensormesh/x/market/types"
)

var testGenesisTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// setupKeeper builds a market keeper with a deterministic block time.
func setupKeeper(t testing.TB) (*keeper.Keeper, sdk.Context) {
	k, ctx := keepertest.MarketKeeper(t)
	return k, ctx.WithBlockTime(testGenesisTime)
}

// Helper function to fund accounts in market module tests
func fundTestAccount(t testing.TB, k interface{ GetBankKeeper() types.BankKeeper }, ctx sdk.Context, addr sdk.AccAddress, denom string, amount math.Int) {
	bankKeeper := k.GetBankKeeper()

	// Mint to the module account first, then move out to the target.
	moduleAddr := authtypes.NewModuleAddress(types.ModuleName)
	coins := sdk.NewCoins(sdk.NewCoin(denom, amount))

	err := bankKeeper.MintCoins(ctx, types.ModuleName, coins)
	require.NoError(t, err)

	err = bankKeeper.SendCoins(ctx, moduleAddr, addr, coins)
	require.NoError(t, err)
}

// registerTestHost funds the address and registers it with a single umesh
// price quote.
func registerTestHost(t testing.TB, k *keeper.Keeper, ctx sdk.Context, host sdk.AccAddress, price int64) {
	fundTestAccount(t, k, ctx, host, "umesh", math.NewInt(2_000_000))
	err := k.RegisterHost(ctx, host,
		`{"gpus":8}`,
		"https://host.test:8443",
		[]string{"llama-70b"},
		map[string]math.Int{"umesh": math.NewInt(price)},
	)
	require.NoError(t, err)
}

// createTestSession funds the depositor and opens a session against the host
// at the given price and deposit.
func createTestSession(
	t testing.TB,
	k *keeper.Keeper,
	ctx sdk.Context,
	depositor, host sdk.AccAddress,
	deposit, price int64,
) types.Session {
	fundTestAccount(t, k, ctx, depositor, "umesh", math.NewInt(deposit))
	session, err := k.CreateSession(ctx, depositor, host, "umesh",
		math.NewInt(deposit), math.NewInt(price), 3_600, 60, "")
	require.NoError(t, err)
	return session
}

// proofPayload builds a receipt of the minimum valid size whose content is
// unique per tag.
func proofPayload(tag byte) []byte {
	payload := make([]byte, 64)
	for i := range payload {
		payload[i] = tag
	}
	return payload
}

func testAddr(seed string) sdk.AccAddress {
	bz := make([]byte, 20)
	copy(bz, seed)
	return sdk.AccAddress(bz)
}

func moduleBalance(k *keeper.Keeper, ctx sdk.Context, denom string) math.Int {
	moduleAddr := authtypes.NewModuleAddress(types.ModuleName)
	return k.GetBankKeeper().GetBalance(ctx, moduleAddr, denom).Amount
}
