package keeper_test

import (
	stdmath "math"
	"testing"
	"time"

	"cosmossdk.io/math"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"
	"github.com/stretchr/testify/require"

	"github.com/tensormesh/tensormesh/x/market/keeper"
	"github.com/tensormesh/tensormesh/x/market/types"
)

func TestCreateSession(t *testing.T) {
	k, ctx := setupKeeper(t)
	host := testAddr("host1")
	depositor := testAddr("alice")
	registerTestHost(t, k, ctx, host, 100)

	session := createTestSession(t, k, ctx, depositor, host, 1_000_000, 100)

	require.Equal(t, uint64(1), session.Id)
	require.Equal(t, types.SessionStatusActive, session.Status)
	require.Equal(t, uint64(0), session.UnitsConsumed)
	require.Equal(t, testGenesisTime.Add(3_600*time.Second), session.Deadline())

	// Deposit locked, depositor emptied.
	require.Equal(t, math.ZeroInt(),
		k.GetBankKeeper().GetBalance(ctx, depositor, "umesh").Amount)

	byDepositor := k.GetSessionsByDepositor(ctx, depositor)
	require.Len(t, byDepositor, 1)
	byHost := k.GetSessionsByHost(ctx, host)
	require.Len(t, byHost, 1)
}

func TestCreateSessionValidation(t *testing.T) {
	k, ctx := setupKeeper(t)
	host := testAddr("host1")
	depositor := testAddr("alice")
	registerTestHost(t, k, ctx, host, 100)
	fundTestAccount(t, k, ctx, depositor, "umesh", math.NewInt(10_000_000))

	deposit := math.NewInt(1_000_000)
	price := math.NewInt(100)

	_, err := k.CreateSession(ctx, depositor, testAddr("ghost"), "umesh", deposit, price, 3_600, 60, "")
	require.ErrorIs(t, err, types.ErrHostNotRegistered)

	_, err = k.CreateSession(ctx, depositor, host, "umesh", deposit, price, 3_600, 60, "unknown-model")
	require.ErrorIs(t, err, types.ErrModelNotSupported)

	_, err = k.CreateSession(ctx, depositor, host, "uatom", deposit, price, 3_600, 60, "")
	require.ErrorIs(t, err, types.ErrTokenNotAccepted)

	// Below the host's quoted price.
	_, err = k.CreateSession(ctx, depositor, host, "umesh", deposit, math.NewInt(99), 3_600, 60, "")
	require.ErrorIs(t, err, types.ErrInvalidPrice)

	_, err = k.CreateSession(ctx, depositor, host, "umesh", deposit, price, 30, 60, "")
	require.ErrorIs(t, err, types.ErrInvalidDuration)

	_, err = k.CreateSession(ctx, depositor, host, "umesh", deposit, price, 3_600, 5, "")
	require.ErrorIs(t, err, types.ErrInvalidProofInterval)

	// Deposit cannot cover a single unit.
	_, err = k.CreateSession(ctx, depositor, host, "umesh", math.NewInt(99), price, 3_600, 60, "")
	require.ErrorIs(t, err, types.ErrInsufficientDeposit)
}

func TestCreateSessionInactiveHost(t *testing.T) {
	k, ctx := setupKeeper(t)
	host := testAddr("host1")
	depositor := testAddr("alice")
	registerTestHost(t, k, ctx, host, 100)
	fundTestAccount(t, k, ctx, depositor, "umesh", math.NewInt(1_000_000))

	_, err := k.UnregisterHost(ctx, host)
	require.NoError(t, err)

	_, err = k.CreateSession(ctx, depositor, host, "umesh",
		math.NewInt(1_000_000), math.NewInt(100), 3_600, 60, "")
	require.ErrorIs(t, err, types.ErrHostNotRegistered)
}

func TestSubmitProofOfWork(t *testing.T) {
	k, ctx := setupKeeper(t)
	host := testAddr("host1")
	depositor := testAddr("alice")
	registerTestHost(t, k, ctx, host, 100)
	session := createTestSession(t, k, ctx, depositor, host, 1_000_000, 100)

	accepted, err := k.SubmitProofOfWork(ctx, host, session.Id, proofPayload(1), 2)
	require.NoError(t, err)
	require.Equal(t, uint64(2), accepted)

	stored, _ := k.GetSession(ctx, session.Id)
	require.Equal(t, uint64(2), stored.UnitsConsumed)
	require.Equal(t, testGenesisTime, stored.LastProofAt)

	// Only the assigned host may meter.
	_, err = k.SubmitProofOfWork(ctx, depositor, session.Id, proofPayload(2), 1)
	require.ErrorIs(t, err, types.ErrNotAssignedHost)

	// Same receipt again is a replay.
	_, err = k.SubmitProofOfWork(ctx, host, session.Id, proofPayload(1), 2)
	require.ErrorIs(t, err, types.ErrReplayedProof)

	// Undersized receipt fails the structural gate.
	_, err = k.SubmitProofOfWork(ctx, host, session.Id, []byte("short"), 1)
	require.ErrorIs(t, err, types.ErrInvalidProof)
}

func TestSubmitProofClampsToDeposit(t *testing.T) {
	k, ctx := setupKeeper(t)
	host := testAddr("host1")
	depositor := testAddr("alice")
	registerTestHost(t, k, ctx, host, 100)

	// 1000 / 100 = 10 billable units.
	session := createTestSession(t, k, ctx, depositor, host, 1_000, 100)

	accepted, err := k.SubmitProofOfWork(ctx, host, session.Id, proofPayload(1), 15)
	require.NoError(t, err)
	require.Equal(t, uint64(10), accepted)

	stored, _ := k.GetSession(ctx, session.Id)
	require.Equal(t, uint64(10), stored.UnitsConsumed)

	// Deposit exhausted: further receipts are recorded but bill nothing.
	accepted, err = k.SubmitProofOfWork(ctx, host, session.Id, proofPayload(2), 3)
	require.NoError(t, err)
	require.Equal(t, uint64(0), accepted)

	stored, _ = k.GetSession(ctx, session.Id)
	require.Equal(t, uint64(10), stored.UnitsConsumed)

	// Records keep both the claimed count and what was actually billed.
	first, _ := k.GetProofRecord(ctx, keeper.ProofHash(proofPayload(1)))
	require.Equal(t, uint64(15), first.Units)
	require.Equal(t, uint64(10), first.CreditedUnits)
	second, _ := k.GetProofRecord(ctx, keeper.ProofHash(proofPayload(2)))
	require.Equal(t, uint64(3), second.Units)
	require.Equal(t, uint64(0), second.CreditedUnits)
}

func TestSubmitProofBatchClampAttribution(t *testing.T) {
	k, ctx := setupKeeper(t)
	host := testAddr("host1")
	depositor := testAddr("alice")
	registerTestHost(t, k, ctx, host, 100)

	// 1000 / 100 = 10 billable units; the batch claims 12.
	session := createTestSession(t, k, ctx, depositor, host, 1_000, 100)

	accepted, err := k.SubmitProofOfWorkBatch(ctx, host, session.Id,
		[][]byte{proofPayload(1), proofPayload(2)}, []uint64{7, 5})
	require.NoError(t, err)
	require.Equal(t, uint64(10), accepted)

	// The credit runs out in submission order: the first receipt bills in
	// full, the second only the remainder.
	first, _ := k.GetProofRecord(ctx, keeper.ProofHash(proofPayload(1)))
	require.Equal(t, uint64(7), first.CreditedUnits)
	second, _ := k.GetProofRecord(ctx, keeper.ProofHash(proofPayload(2)))
	require.Equal(t, uint64(5), second.Units)
	require.Equal(t, uint64(3), second.CreditedUnits)
}

func TestSubmitProofHugeDeposit(t *testing.T) {
	k, ctx := setupKeeper(t)
	host := testAddr("host1")
	depositor := testAddr("alice")
	registerTestHost(t, k, ctx, host, 1)

	// A deposit past uint64 range per unit of price must meter without
	// overflowing the unit counter.
	deposit, ok := math.NewIntFromString("100000000000000000000000000")
	require.True(t, ok)
	fundTestAccount(t, k, ctx, depositor, "umesh", deposit)

	session, err := k.CreateSession(ctx, depositor, host, "umesh",
		deposit, math.NewInt(1), 3_600, 60, "")
	require.NoError(t, err)
	require.Equal(t, uint64(stdmath.MaxUint64), session.MaxBillableUnits())

	accepted, err := k.SubmitProofOfWork(ctx, host, session.Id, proofPayload(1), 5)
	require.NoError(t, err)
	require.Equal(t, uint64(5), accepted)
}

func TestCompleteSessionLargeUnitCount(t *testing.T) {
	k, ctx := setupKeeper(t)
	host := testAddr("host1")
	depositor := testAddr("alice")
	registerTestHost(t, k, ctx, host, 1)

	// A unit count past MaxInt64 must not sign-flip the settlement cost.
	deposit := math.NewIntFromUint64(uint64(1) << 63)
	fundTestAccount(t, k, ctx, depositor, "umesh", deposit)

	session, err := k.CreateSession(ctx, depositor, host, "umesh",
		deposit, math.NewInt(1), 3_600, 60, "")
	require.NoError(t, err)

	accepted, err := k.SubmitProofOfWork(ctx, host, session.Id, proofPayload(1), uint64(1)<<63)
	require.NoError(t, err)
	require.Equal(t, uint64(1)<<63, accepted)

	split, err := k.CompleteSession(ctx, depositor, session.Id)
	require.NoError(t, err)

	cost := math.NewIntFromUint64(uint64(1) << 63)
	fee := cost.QuoRaw(10) // default 10% fee
	require.Equal(t, cost, split.Cost)
	require.Equal(t, fee, split.Fee)
	require.Equal(t, cost.Sub(fee), split.HostShare)
	require.True(t, split.Refund.IsZero())
	require.Equal(t, cost.Sub(fee), k.GetEarnings(ctx, host, "umesh"))
}

func TestSubmitProofAfterDeadline(t *testing.T) {
	k, ctx := setupKeeper(t)
	host := testAddr("host1")
	depositor := testAddr("alice")
	registerTestHost(t, k, ctx, host, 100)
	session := createTestSession(t, k, ctx, depositor, host, 1_000_000, 100)

	late := ctx.WithBlockTime(testGenesisTime.Add(3_601 * time.Second))
	_, err := k.SubmitProofOfWork(late, host, session.Id, proofPayload(1), 1)
	require.ErrorIs(t, err, types.ErrSessionExpired)
}

func TestCompleteSessionSettlement(t *testing.T) {
	k, ctx := setupKeeper(t)
	host := testAddr("host1")
	depositor := testAddr("alice")
	registerTestHost(t, k, ctx, host, 100)
	session := createTestSession(t, k, ctx, depositor, host, 1_000_000, 100)

	_, err := k.SubmitProofOfWork(ctx, host, session.Id, proofPayload(1), 2)
	require.NoError(t, err)

	split, err := k.CompleteSession(ctx, host, session.Id)
	require.NoError(t, err)

	// 2 units x 100 = 200 cost; 10% fee = 20; host 180; refund 999800.
	require.Equal(t, math.NewInt(200), split.Cost)
	require.Equal(t, math.NewInt(20), split.Fee)
	require.Equal(t, math.NewInt(180), split.HostShare)
	require.Equal(t, math.NewInt(999_800), split.Refund)
	require.Equal(t, session.Deposit, split.HostShare.Add(split.Fee).Add(split.Refund))

	stored, _ := k.GetSession(ctx, session.Id)
	require.Equal(t, types.SessionStatusCompleted, stored.Status)

	// Host share accrues to earnings, not to the host's bank balance.
	require.Equal(t, math.NewInt(180), k.GetEarnings(ctx, host, "umesh"))
	require.Equal(t, math.NewInt(999_800),
		k.GetBankKeeper().GetBalance(ctx, depositor, "umesh").Amount)

	feeCollector := authtypes.NewModuleAddress(authtypes.FeeCollectorName)
	require.Equal(t, math.NewInt(20),
		k.GetBankKeeper().GetBalance(ctx, feeCollector, "umesh").Amount)

	// Terminal states are absorbing.
	_, err = k.CompleteSession(ctx, host, session.Id)
	require.ErrorIs(t, err, types.ErrSessionNotActive)
	_, err = k.SubmitProofOfWork(ctx, host, session.Id, proofPayload(9), 1)
	require.ErrorIs(t, err, types.ErrSessionNotActive)
}

func TestCompleteSessionZeroUnits(t *testing.T) {
	k, ctx := setupKeeper(t)
	host := testAddr("host1")
	depositor := testAddr("alice")
	registerTestHost(t, k, ctx, host, 100)
	session := createTestSession(t, k, ctx, depositor, host, 1_000_000, 100)

	split, err := k.CompleteSession(ctx, depositor, session.Id)
	require.NoError(t, err)
	require.True(t, split.Cost.IsZero())
	require.Equal(t, math.NewInt(1_000_000), split.Refund)
	require.True(t, k.GetEarnings(ctx, host, "umesh").IsZero())
}

func TestCompleteSessionThirdParty(t *testing.T) {
	k, ctx := setupKeeper(t)
	host := testAddr("host1")
	depositor := testAddr("alice")
	stranger := testAddr("carol")
	registerTestHost(t, k, ctx, host, 100)
	session := createTestSession(t, k, ctx, depositor, host, 1_000_000, 100)

	// Before the deadline only the parties may settle.
	_, err := k.CompleteSession(ctx, stranger, session.Id)
	require.ErrorIs(t, err, types.ErrDeadlineNotReached)

	// At the deadline anyone may, and the session expires.
	late := ctx.WithBlockTime(session.Deadline())
	_, err = k.CompleteSession(late, stranger, session.Id)
	require.NoError(t, err)

	stored, _ := k.GetSession(ctx, session.Id)
	require.Equal(t, types.SessionStatusExpired, stored.Status)
}

func TestCancelSession(t *testing.T) {
	k, ctx := setupKeeper(t)
	host := testAddr("host1")
	depositor := testAddr("alice")
	registerTestHost(t, k, ctx, host, 100)
	session := createTestSession(t, k, ctx, depositor, host, 1_000_000, 100)

	err := k.CancelSession(ctx, host, session.Id)
	require.ErrorIs(t, err, types.ErrNotDepositor)

	require.NoError(t, k.CancelSession(ctx, depositor, session.Id))

	stored, _ := k.GetSession(ctx, session.Id)
	require.Equal(t, types.SessionStatusCancelled, stored.Status)
	require.Equal(t, math.NewInt(1_000_000),
		k.GetBankKeeper().GetBalance(ctx, depositor, "umesh").Amount)
}

func TestCancelSessionAfterWork(t *testing.T) {
	k, ctx := setupKeeper(t)
	host := testAddr("host1")
	depositor := testAddr("alice")
	registerTestHost(t, k, ctx, host, 100)
	session := createTestSession(t, k, ctx, depositor, host, 1_000_000, 100)

	_, err := k.SubmitProofOfWork(ctx, host, session.Id, proofPayload(1), 1)
	require.NoError(t, err)

	err = k.CancelSession(ctx, depositor, session.Id)
	require.ErrorIs(t, err, types.ErrSessionStarted)
}

func TestEndBlockerSweepsExpiredSessions(t *testing.T) {
	k, ctx := setupKeeper(t)
	host := testAddr("host1")
	depositor := testAddr("alice")
	registerTestHost(t, k, ctx, host, 100)
	session := createTestSession(t, k, ctx, depositor, host, 1_000_000, 100)

	_, err := k.SubmitProofOfWork(ctx, host, session.Id, proofPayload(1), 5)
	require.NoError(t, err)

	// Sweep before the deadline leaves the session alone.
	k.EndBlocker(ctx)
	stored, _ := k.GetSession(ctx, session.Id)
	require.Equal(t, types.SessionStatusActive, stored.Status)

	late := ctx.WithBlockTime(testGenesisTime.Add(3_600 * time.Second))
	k.EndBlocker(late)

	stored, _ = k.GetSession(ctx, session.Id)
	require.Equal(t, types.SessionStatusExpired, stored.Status)
	require.Equal(t, math.NewInt(450), k.GetEarnings(ctx, host, "umesh"))
	require.Equal(t, math.NewInt(999_500),
		k.GetBankKeeper().GetBalance(ctx, depositor, "umesh").Amount)
}

func TestSessionFundConservation(t *testing.T) {
	k, ctx := setupKeeper(t)
	host := testAddr("host1")
	depositor := testAddr("alice")
	registerTestHost(t, k, ctx, host, 100)
	session := createTestSession(t, k, ctx, depositor, host, 1_000_000, 100)

	_, err := k.SubmitProofOfWork(ctx, host, session.Id, proofPayload(1), 7)
	require.NoError(t, err)
	_, err = k.CompleteSession(ctx, depositor, session.Id)
	require.NoError(t, err)
	_, err = k.WithdrawAll(ctx, host, "umesh")
	require.NoError(t, err)

	// Everything minted in this test is still accounted for.
	bank := k.GetBankKeeper()
	feeCollector := authtypes.NewModuleAddress(authtypes.FeeCollectorName)
	total := bank.GetBalance(ctx, depositor, "umesh").Amount.
		Add(bank.GetBalance(ctx, host, "umesh").Amount).
		Add(bank.GetBalance(ctx, feeCollector, "umesh").Amount).
		Add(moduleBalance(k, ctx, "umesh"))
	require.Equal(t, math.NewInt(3_000_000), total)
}
