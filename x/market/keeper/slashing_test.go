package keeper_test

import (
	"testing"
	"time"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"
	govtypes "github.com/cosmos/cosmos-sdk/x/gov/types"
	"github.com/stretchr/testify/require"

	"github.com/tensormesh/tensormesh/x/market/keeper"
	"github.com/tensormesh/tensormesh/x/market/types"
)

func slashAuthority() sdk.AccAddress {
	return authtypes.NewModuleAddress(govtypes.ModuleName)
}

// setupSlashKeeper registers a host with a small stake and no slash cooldown
// so consecutive slashes can be exercised.
func setupSlashKeeper(t *testing.T, stake, floor int64) (*keeper.Keeper, sdk.Context, sdk.AccAddress) {
	k, ctx := setupKeeper(t)

	params, err := k.GetParams(ctx)
	require.NoError(t, err)
	params.MinStake = math.NewInt(stake)
	params.UnstakeFloor = math.NewInt(floor)
	params.SlashCooldownSeconds = 0
	require.NoError(t, k.SetParams(ctx, params))

	host := testAddr("host1")
	registerTestHost(t, k, ctx, host, 100)
	return k, ctx, host
}

func TestSlashHostAuthorization(t *testing.T) {
	k, ctx, host := setupSlashKeeper(t, 1_000, 100)

	_, err := k.SlashHost(ctx, testAddr("mallory"), host, math.NewInt(100), "ev", "reason")
	require.ErrorIs(t, err, types.ErrNotAuthorized)
}

func TestSlashHostPreconditions(t *testing.T) {
	k, ctx, host := setupSlashKeeper(t, 1_000, 100)
	auth := slashAuthority()

	_, err := k.SlashHost(ctx, auth, host, math.NewInt(100), "", "reason")
	require.ErrorIs(t, err, types.ErrEvidenceRequired)

	_, err = k.SlashHost(ctx, auth, host, math.NewInt(100), "ev", "")
	require.ErrorIs(t, err, types.ErrReasonRequired)

	_, err = k.SlashHost(ctx, auth, host, math.ZeroInt(), "ev", "reason")
	require.ErrorIs(t, err, types.ErrInvalidAmount)

	_, err = k.SlashHost(ctx, auth, testAddr("nobody"), math.NewInt(100), "ev", "reason")
	require.ErrorIs(t, err, types.ErrNotRegistered)

	// Above total stake.
	_, err = k.SlashHost(ctx, auth, host, math.NewInt(1_001), "ev", "reason")
	require.ErrorIs(t, err, types.ErrAmountExceedsStake)

	// Within stake but above the 50% single-event cap.
	_, err = k.SlashHost(ctx, auth, host, math.NewInt(501), "ev", "reason")
	require.ErrorIs(t, err, types.ErrExceedsMaxSlash)
}

func TestSlashHostCooldown(t *testing.T) {
	k, ctx := setupKeeper(t)

	params, err := k.GetParams(ctx)
	require.NoError(t, err)
	params.MinStake = math.NewInt(1_000)
	params.UnstakeFloor = math.NewInt(100)
	require.NoError(t, k.SetParams(ctx, params)) // default cooldown: 24h

	host := testAddr("host1")
	registerTestHost(t, k, ctx, host, 100)
	auth := slashAuthority()

	_, err = k.SlashHost(ctx, auth, host, math.NewInt(100), "ev", "reason")
	require.NoError(t, err)

	_, err = k.SlashHost(ctx, auth, host, math.NewInt(100), "ev", "reason")
	require.ErrorIs(t, err, types.ErrCooldownActive)

	// One second short of the cooldown still fails.
	early := ctx.WithBlockTime(testGenesisTime.Add(24*time.Hour - time.Second))
	_, err = k.SlashHost(early, auth, host, math.NewInt(100), "ev", "reason")
	require.ErrorIs(t, err, types.ErrCooldownActive)

	later := ctx.WithBlockTime(testGenesisTime.Add(24 * time.Hour))
	_, err = k.SlashHost(later, auth, host, math.NewInt(100), "ev", "reason")
	require.NoError(t, err)
}

func TestSlashSequenceAutoDeregisters(t *testing.T) {
	k, ctx, host := setupSlashKeeper(t, 1_000, 100)
	auth := slashAuthority()

	// Three maximal slashes: 1000 -> 500 -> 250 -> 125.
	for _, amount := range []int64{500, 250, 125} {
		record, err := k.SlashHost(ctx, auth, host, math.NewInt(amount), "ev", "downtime")
		require.NoError(t, err)
		require.False(t, record.AutoDeregistered)
	}

	stored, found := k.GetHost(ctx, host)
	require.True(t, found)
	require.Equal(t, math.NewInt(125), stored.Stake)

	balanceBefore := k.GetBankKeeper().GetBalance(ctx, host, "umesh").Amount

	// 125 - 30 = 95 < 100: host is deregistered, remainder returned.
	record, err := k.SlashHost(ctx, auth, host, math.NewInt(30), "ev", "downtime")
	require.NoError(t, err)
	require.True(t, record.AutoDeregistered)
	require.Equal(t, math.NewInt(95), record.Remainder)

	_, found = k.GetHost(ctx, host)
	require.False(t, found)
	require.Empty(t, k.HostsForModel(ctx, "llama-70b"))

	require.Equal(t, balanceBefore.Add(math.NewInt(95)),
		k.GetBankKeeper().GetBalance(ctx, host, "umesh").Amount)

	// All four slashes are in the treasury.
	treasury := authtypes.NewModuleAddress(types.TreasuryPoolName)
	require.Equal(t, math.NewInt(905),
		k.GetBankKeeper().GetBalance(ctx, treasury, "umesh").Amount)
}

func TestSlashToExactFloorStaysRegistered(t *testing.T) {
	k, ctx, host := setupSlashKeeper(t, 1_000, 500)
	auth := slashAuthority()

	// 1000 - 500 = 500 == floor: not below, host stays.
	record, err := k.SlashHost(ctx, auth, host, math.NewInt(500), "ev", "reason")
	require.NoError(t, err)
	require.False(t, record.AutoDeregistered)

	stored, found := k.GetHost(ctx, host)
	require.True(t, found)
	require.True(t, stored.Active)
	require.Equal(t, math.NewInt(500), stored.Stake)
}

func TestSlashRecordsAudit(t *testing.T) {
	k, ctx, host := setupSlashKeeper(t, 1_000, 100)
	auth := slashAuthority()

	record, err := k.SlashHost(ctx, auth, host, math.NewInt(200), "ipfs://evidence", "bad output")
	require.NoError(t, err)
	require.Equal(t, uint64(1), record.Id)

	stored, found := k.GetSlashRecord(ctx, record.Id)
	require.True(t, found)
	require.Equal(t, "ipfs://evidence", stored.EvidenceRef)
	require.Equal(t, "bad output", stored.Reason)
	require.Equal(t, math.NewInt(200), stored.Amount)
	require.Equal(t, testGenesisTime, stored.SlashedAt)

	byHost := k.GetSlashRecordsByHost(ctx, host)
	require.Len(t, byHost, 1)
	require.Equal(t, record.Id, byHost[0].Id)
}

func TestSlashCustomAuthority(t *testing.T) {
	k, ctx, host := setupSlashKeeper(t, 1_000, 100)
	arbiter := testAddr("arbiter")

	params, err := k.GetParams(ctx)
	require.NoError(t, err)
	params.SlashAuthority = arbiter.String()
	require.NoError(t, k.SetParams(ctx, params))

	// The module authority is no longer accepted.
	_, err = k.SlashHost(ctx, slashAuthority(), host, math.NewInt(100), "ev", "reason")
	require.ErrorIs(t, err, types.ErrNotAuthorized)

	_, err = k.SlashHost(ctx, arbiter, host, math.NewInt(100), "ev", "reason")
	require.NoError(t, err)
}
