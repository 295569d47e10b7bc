package keeper_test

import (
	"testing"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"

	"github.com/tensormesh/tensormesh/x/market/keeper"
	"github.com/tensormesh/tensormesh/x/market/types"
)

func setupMsgServer(t *testing.T) (types.MsgServer, *keeper.Keeper, sdk.Context) {
	k, ctx := setupKeeper(t)
	return keeper.NewMsgServerImpl(*k), k, ctx
}

func TestMsgServerSessionLifecycle(t *testing.T) {
	srv, k, ctx := setupMsgServer(t)
	host := testAddr("host1")
	depositor := testAddr("alice")

	fundTestAccount(t, k, ctx, host, "umesh", math.NewInt(2_000_000))
	fundTestAccount(t, k, ctx, depositor, "umesh", math.NewInt(1_000_000))

	_, err := srv.RegisterHost(ctx, &types.MsgRegisterHost{
		Creator:  host.String(),
		Metadata: `{"gpus":8}`,
		Endpoint: "https://host.test:8443",
		Models:   []string{"llama-70b"},
		Prices:   map[string]math.Int{"umesh": math.NewInt(100)},
	})
	require.NoError(t, err)

	created, err := srv.CreateSession(ctx, &types.MsgCreateSession{
		Creator:       depositor.String(),
		Host:          host.String(),
		Denom:         "umesh",
		Deposit:       math.NewInt(1_000_000),
		PricePerUnit:  math.NewInt(100),
		MaxDuration:   3_600,
		ProofInterval: 60,
	})
	require.NoError(t, err)
	require.Equal(t, uint64(1), created.SessionId)

	proved, err := srv.SubmitProof(ctx, &types.MsgSubmitProof{
		Creator:   host.String(),
		SessionId: created.SessionId,
		Proof:     proofPayload(1),
		Units:     2,
	})
	require.NoError(t, err)
	require.Equal(t, uint64(2), proved.AcceptedUnits)
	require.Equal(t, uint64(2), proved.TotalUnits)

	settled, err := srv.CompleteSession(ctx, &types.MsgCompleteSession{
		Creator:   depositor.String(),
		SessionId: created.SessionId,
	})
	require.NoError(t, err)
	require.Equal(t, math.NewInt(200), settled.Cost)
	require.Equal(t, math.NewInt(20), settled.Fee)
	require.Equal(t, math.NewInt(180), settled.HostShare)
	require.Equal(t, math.NewInt(999_800), settled.Refund)

	withdrawn, err := srv.WithdrawEarnings(ctx, &types.MsgWithdrawEarnings{
		Creator: host.String(),
		Denom:   "umesh",
	})
	require.NoError(t, err)
	require.Equal(t, math.NewInt(180), withdrawn.Amount)
}

func TestMsgServerSubmitProofBatch(t *testing.T) {
	srv, k, ctx := setupMsgServer(t)
	host := testAddr("host1")
	depositor := testAddr("alice")
	registerTestHost(t, k, ctx, host, 100)
	session := createTestSession(t, k, ctx, depositor, host, 1_000_000, 100)

	resp, err := srv.SubmitProofBatch(ctx, &types.MsgSubmitProofBatch{
		Creator:    host.String(),
		SessionId:  session.Id,
		Proofs:     [][]byte{proofPayload(1), proofPayload(2)},
		UnitCounts: []uint64{3, 4},
	})
	require.NoError(t, err)
	require.Equal(t, uint64(7), resp.AcceptedUnits)
	require.Equal(t, uint64(7), resp.TotalUnits)
}

func TestMsgServerValidateBasicRejected(t *testing.T) {
	srv, _, ctx := setupMsgServer(t)

	_, err := srv.RegisterHost(ctx, &types.MsgRegisterHost{Creator: "not-an-address"})
	require.Error(t, err)

	_, err = srv.AddStake(ctx, &types.MsgAddStake{
		Creator: testAddr("host1").String(),
		Amount:  math.ZeroInt(),
	})
	require.ErrorIs(t, err, types.ErrInvalidAmount)
}

func TestMsgServerUpdateParams(t *testing.T) {
	srv, k, ctx := setupMsgServer(t)

	params := types.DefaultParams()
	params.FeeBps = 500

	// Only the module authority may rewrite parameters.
	_, err := srv.UpdateParams(ctx, &types.MsgUpdateParams{
		Authority: testAddr("mallory").String(),
		Params:    params,
	})
	require.ErrorIs(t, err, types.ErrNotAuthorized)

	_, err = srv.UpdateParams(ctx, &types.MsgUpdateParams{
		Authority: k.GetAuthority(),
		Params:    params,
	})
	require.NoError(t, err)

	stored, err := k.GetParams(ctx)
	require.NoError(t, err)
	require.Equal(t, uint32(500), stored.FeeBps)
}

func TestMsgServerSlashHost(t *testing.T) {
	srv, k, ctx := setupMsgServer(t)
	host := testAddr("host1")
	registerTestHost(t, k, ctx, host, 100)

	resp, err := srv.SlashHost(ctx, &types.MsgSlashHost{
		Creator:     slashAuthority().String(),
		Host:        host.String(),
		Amount:      math.NewInt(1_000),
		EvidenceRef: "ipfs://evidence",
		Reason:      "downtime",
	})
	require.NoError(t, err)
	require.Equal(t, uint64(1), resp.SlashId)
	require.False(t, resp.AutoDeregistered)
}
