package keeper_test

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	marketkeeper "github.com/tensormesh/tensormesh/x/market/keeper"
	"github.com/tensormesh/tensormesh/x/market/types"
)

func TestInvariantsHoldAcrossLifecycle(t *testing.T) {
	k, ctx := setupKeeper(t)
	host := testAddr("host1")
	depositor := testAddr("alice")
	challenger := testAddr("carol")

	check := func() {
		msg, broken := marketkeeper.AllInvariants(*k)(ctx)
		require.False(t, broken, msg)
	}

	check()
	registerTestHost(t, k, ctx, host, 100)
	check()

	session := createTestSession(t, k, ctx, depositor, host, 1_000_000, 100)
	check()

	_, err := k.SubmitProofOfWork(ctx, host, session.Id, proofPayload(1), 2)
	require.NoError(t, err)
	check()

	fundTestAccount(t, k, ctx, challenger, "umesh", math.NewInt(100_000))
	_, err = k.OpenChallenge(ctx, challenger, marketkeeper.ProofHash(proofPayload(1)), "ev")
	require.NoError(t, err)
	check()

	_, err = k.CompleteSession(ctx, depositor, session.Id)
	require.NoError(t, err)
	check()

	_, err = k.WithdrawAll(ctx, host, "umesh")
	require.NoError(t, err)
	check()

	_, err = k.SlashHost(ctx, slashAuthority(), host, math.NewInt(1_000), "ev", "reason")
	require.NoError(t, err)
	check()
}

func TestModuleBalanceInvariantBroken(t *testing.T) {
	k, ctx := setupKeeper(t)

	// Claimed earnings with no coins behind them.
	genState := types.DefaultGenesisState()
	genState.Earnings = []types.EarningsBalance{{
		Host:   testAddr("host1").String(),
		Denom:  "umesh",
		Amount: math.NewInt(500),
	}}
	k.InitGenesis(ctx, *genState)

	msg, broken := marketkeeper.ModuleBalanceInvariant(*k)(ctx)
	require.True(t, broken, msg)
}

func TestSessionAccountingInvariantBroken(t *testing.T) {
	k, ctx := setupKeeper(t)

	genState := types.DefaultGenesisState()
	genState.NextSessionId = 2
	genState.Sessions = []types.Session{{
		Id:            1,
		Depositor:     testAddr("alice").String(),
		Host:          testAddr("host1").String(),
		Denom:         "umesh",
		Deposit:       math.NewInt(1_000),
		PricePerUnit:  math.NewInt(100),
		UnitsConsumed: 11,
		Status:        types.SessionStatusCompleted,
	}}
	k.InitGenesis(ctx, *genState)

	msg, broken := marketkeeper.SessionAccountingInvariant(*k)(ctx)
	require.True(t, broken, msg)
}

func TestSessionAccountingInvariantLargeUnits(t *testing.T) {
	k, ctx := setupKeeper(t)

	// A unit count past MaxInt64 overbilling the deposit must still be
	// flagged; an int64 cast would sign-flip the cost negative and hide it.
	genState := types.DefaultGenesisState()
	genState.NextSessionId = 2
	genState.Sessions = []types.Session{{
		Id:            1,
		Depositor:     testAddr("alice").String(),
		Host:          testAddr("host1").String(),
		Denom:         "umesh",
		Deposit:       math.NewInt(1 << 62),
		PricePerUnit:  math.NewInt(1),
		UnitsConsumed: uint64(1) << 63,
		Status:        types.SessionStatusCompleted,
	}}
	k.InitGenesis(ctx, *genState)

	msg, broken := marketkeeper.SessionAccountingInvariant(*k)(ctx)
	require.True(t, broken, msg)
}

func TestHostStakeInvariantBroken(t *testing.T) {
	k, ctx := setupKeeper(t)

	// Active host below the unstake floor.
	genState := types.DefaultGenesisState()
	genState.Hosts = []types.Host{{
		Address:  testAddr("host1").String(),
		Metadata: "{}",
		Endpoint: "https://h.test",
		Models:   []string{"m"},
		Prices:   map[string]math.Int{"umesh": math.NewInt(100)},
		Stake:    math.NewInt(1),
		Active:   true,
	}}
	k.InitGenesis(ctx, *genState)

	msg, broken := marketkeeper.HostStakeInvariant(*k)(ctx)
	require.True(t, broken, msg)
}
