package keeper_test

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/tensormesh/tensormesh/x/market/types"
)

func TestRegisterHost(t *testing.T) {
	k, ctx := setupKeeper(t)
	host := testAddr("host1")

	registerTestHost(t, k, ctx, host, 100)

	stored, found := k.GetHost(ctx, host)
	require.True(t, found)
	require.True(t, stored.Active)
	require.Equal(t, math.NewInt(1_000_000), stored.Stake)
	require.Equal(t, testGenesisTime, stored.RegisteredAt)
	require.Equal(t, []string{"llama-70b"}, stored.Models)

	// Registration moved exactly the minimum stake into the module account.
	require.Equal(t, math.NewInt(1_000_000),
		k.GetBankKeeper().GetBalance(ctx, host, "umesh").Amount)

	// The model index knows the host.
	addrs := k.HostsForModel(ctx, "llama-70b")
	require.Len(t, addrs, 1)
	require.Equal(t, host, addrs[0])
}

func TestRegisterHostDuplicate(t *testing.T) {
	k, ctx := setupKeeper(t)
	host := testAddr("host1")
	registerTestHost(t, k, ctx, host, 100)

	err := k.RegisterHost(ctx, host, "meta", "https://other.test",
		[]string{"llama-70b"}, map[string]math.Int{"umesh": math.NewInt(50)})
	require.ErrorIs(t, err, types.ErrAlreadyRegistered)
}

func TestRegisterHostValidation(t *testing.T) {
	k, ctx := setupKeeper(t)
	host := testAddr("host1")
	fundTestAccount(t, k, ctx, host, "umesh", math.NewInt(2_000_000))

	prices := map[string]math.Int{"umesh": math.NewInt(100)}

	err := k.RegisterHost(ctx, host, "", "https://h.test", []string{"m"}, prices)
	require.ErrorIs(t, err, types.ErrMetadataRequired)

	err = k.RegisterHost(ctx, host, "meta", "", []string{"m"}, prices)
	require.ErrorIs(t, err, types.ErrEndpointRequired)

	err = k.RegisterHost(ctx, host, "meta", "https://h.test", nil, prices)
	require.ErrorIs(t, err, types.ErrInvalidModel)

	err = k.RegisterHost(ctx, host, "meta", "https://h.test", []string{"m"},
		map[string]math.Int{"uatom": math.NewInt(100)})
	require.ErrorIs(t, err, types.ErrTokenNotAccepted)

	err = k.RegisterHost(ctx, host, "meta", "https://h.test", []string{"m"},
		map[string]math.Int{"umesh": math.NewInt(2_000_000)})
	require.ErrorIs(t, err, types.ErrPriceOutOfRange)
}

func TestRegisterHostModelCatalog(t *testing.T) {
	k, ctx := setupKeeper(t)

	params, err := k.GetParams(ctx)
	require.NoError(t, err)
	params.AllowedModels = []string{"llama-70b"}
	require.NoError(t, k.SetParams(ctx, params))

	host := testAddr("host1")
	fundTestAccount(t, k, ctx, host, "umesh", math.NewInt(2_000_000))

	err = k.RegisterHost(ctx, host, "meta", "https://h.test",
		[]string{"gpt-oss"}, map[string]math.Int{"umesh": math.NewInt(100)})
	require.ErrorIs(t, err, types.ErrInvalidModel)

	err = k.RegisterHost(ctx, host, "meta", "https://h.test",
		[]string{"llama-70b"}, map[string]math.Int{"umesh": math.NewInt(100)})
	require.NoError(t, err)
}

func TestUnregisterHost(t *testing.T) {
	k, ctx := setupKeeper(t)
	host := testAddr("host1")
	registerTestHost(t, k, ctx, host, 100)

	returned, err := k.UnregisterHost(ctx, host)
	require.NoError(t, err)
	require.Equal(t, math.NewInt(1_000_000), returned)

	_, found := k.GetHost(ctx, host)
	require.False(t, found)
	require.Empty(t, k.HostsForModel(ctx, "llama-70b"))

	// Full balance back in the host's hands.
	require.Equal(t, math.NewInt(2_000_000),
		k.GetBankKeeper().GetBalance(ctx, host, "umesh").Amount)

	_, err = k.UnregisterHost(ctx, host)
	require.ErrorIs(t, err, types.ErrNotRegistered)
}

func TestAddStake(t *testing.T) {
	k, ctx := setupKeeper(t)
	host := testAddr("host1")
	registerTestHost(t, k, ctx, host, 100)

	require.NoError(t, k.AddStake(ctx, host, math.NewInt(500_000)))

	stored, _ := k.GetHost(ctx, host)
	require.Equal(t, math.NewInt(1_500_000), stored.Stake)

	err := k.AddStake(ctx, host, math.NewInt(0))
	require.ErrorIs(t, err, types.ErrInvalidAmount)

	err = k.AddStake(ctx, testAddr("nobody"), math.NewInt(1))
	require.ErrorIs(t, err, types.ErrNotRegistered)
}

func TestUpdatePricing(t *testing.T) {
	k, ctx := setupKeeper(t)
	host := testAddr("host1")
	registerTestHost(t, k, ctx, host, 100)

	require.NoError(t, k.UpdatePricing(ctx, host, "umesh", math.NewInt(250), ""))

	stored, _ := k.GetHost(ctx, host)
	price, ok := stored.PriceFor("umesh", "")
	require.True(t, ok)
	require.Equal(t, math.NewInt(250), price)

	err := k.UpdatePricing(ctx, host, "umesh", math.NewInt(2_000_000), "")
	require.ErrorIs(t, err, types.ErrPriceOutOfRange)

	err = k.UpdatePricing(ctx, host, "uatom", math.NewInt(10), "")
	require.ErrorIs(t, err, types.ErrTokenNotAccepted)
}

func TestUpdatePricingModelOverride(t *testing.T) {
	k, ctx := setupKeeper(t)
	host := testAddr("host1")
	registerTestHost(t, k, ctx, host, 100)

	// Set an override, see it resolve, then clear it with a zero price.
	require.NoError(t, k.UpdatePricing(ctx, host, "umesh", math.NewInt(400), "llama-70b"))

	stored, _ := k.GetHost(ctx, host)
	price, ok := stored.PriceFor("umesh", "llama-70b")
	require.True(t, ok)
	require.Equal(t, math.NewInt(400), price)

	price, ok = stored.PriceFor("umesh", "")
	require.True(t, ok)
	require.Equal(t, math.NewInt(100), price)

	require.NoError(t, k.UpdatePricing(ctx, host, "umesh", math.ZeroInt(), "llama-70b"))
	stored, _ = k.GetHost(ctx, host)
	price, _ = stored.PriceFor("umesh", "llama-70b")
	require.Equal(t, math.NewInt(100), price)

	err := k.UpdatePricing(ctx, host, "umesh", math.NewInt(10), "unknown-model")
	require.ErrorIs(t, err, types.ErrModelNotSupported)
}

func TestUpdateHostInfo(t *testing.T) {
	k, ctx := setupKeeper(t)
	host := testAddr("host1")
	registerTestHost(t, k, ctx, host, 100)

	require.NoError(t, k.UpdateHostInfo(ctx, host, "", "https://new.test"))

	stored, _ := k.GetHost(ctx, host)
	require.Equal(t, "https://new.test", stored.Endpoint)
	require.Equal(t, `{"gpus":8}`, stored.Metadata)

	err := k.UpdateHostInfo(ctx, host, "", "")
	require.ErrorIs(t, err, types.ErrMetadataRequired)
}
