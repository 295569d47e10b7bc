package keeper

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	errorsmod "cosmossdk.io/errors"
	storetypes "cosmossdk.io/store/types"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"

	"github.com/tensormesh/tensormesh/x/market/types"
)

// GetSession retrieves a session by id.
func (k Keeper) GetSession(ctx context.Context, id uint64) (types.Session, bool) {
	store := k.getStore(ctx)
	bz := store.Get(SessionKey(id))
	if bz == nil {
		return types.Session{}, false
	}

	var session types.Session
	if err := json.Unmarshal(bz, &session); err != nil {
		return types.Session{}, false
	}
	return session, true
}

func (k Keeper) setSession(ctx context.Context, session types.Session) {
	store := k.getStore(ctx)
	store.Set(SessionKey(session.Id), mustMarshal(session))
}

// IterateSessions visits every session in id order.
func (k Keeper) IterateSessions(ctx context.Context, cb func(types.Session) bool) {
	store := k.getStore(ctx)
	iterator := storetypes.KVStorePrefixIterator(store, SessionKeyPrefix)
	defer iterator.Close()

	for ; iterator.Valid(); iterator.Next() {
		var session types.Session
		if err := json.Unmarshal(iterator.Value(), &session); err != nil {
			continue
		}
		if cb(session) {
			break
		}
	}
}

// GetSessionsByDepositor returns every session opened by the depositor.
func (k Keeper) GetSessionsByDepositor(ctx context.Context, depositor sdk.AccAddress) []types.Session {
	return k.sessionsByIndex(ctx, SessionsByDepositorPrefix, depositor)
}

// GetSessionsByHost returns every session assigned to the host.
func (k Keeper) GetSessionsByHost(ctx context.Context, host sdk.AccAddress) []types.Session {
	return k.sessionsByIndex(ctx, SessionsByHostPrefix, host)
}

func (k Keeper) sessionsByIndex(ctx context.Context, indexPrefix []byte, addr sdk.AccAddress) []types.Session {
	store := k.getStore(ctx)
	prefix := append([]byte{}, indexPrefix...)
	prefix = append(prefix, lengthPrefixed(addr)...)
	iterator := storetypes.KVStorePrefixIterator(store, prefix)
	defer iterator.Close()

	var sessions []types.Session
	for ; iterator.Valid(); iterator.Next() {
		id := binary.BigEndian.Uint64(iterator.Key()[len(prefix):])
		if session, found := k.GetSession(ctx, id); found {
			sessions = append(sessions, session)
		}
	}
	return sessions
}

// CreateSession opens a deposit-backed metered session against an active
// host, locking the deposit in the module account. There is one creation path
// for every accepted denom; the bond denom gets no special treatment.
func (k Keeper) CreateSession(
	ctx sdk.Context,
	caller sdk.AccAddress,
	hostAddr sdk.AccAddress,
	denom string,
	deposit math.Int,
	pricePerUnit math.Int,
	maxDuration int64,
	proofInterval int64,
	modelID string,
) (types.Session, error) {
	host, found := k.GetHost(ctx, hostAddr)
	if !found || !host.Active {
		return types.Session{}, errorsmod.Wrapf(types.ErrHostNotRegistered, "host %s", hostAddr)
	}
	if modelID != "" && !host.SupportsModel(modelID) {
		return types.Session{}, errorsmod.Wrapf(types.ErrModelNotSupported, "host %s, model %s", hostAddr, modelID)
	}

	params, err := k.GetParams(ctx)
	if err != nil {
		return types.Session{}, err
	}

	minTransfer, accepted := params.AcceptsDenom(denom)
	if !accepted {
		return types.Session{}, errorsmod.Wrapf(types.ErrTokenNotAccepted, "denom %s", denom)
	}

	hostPrice, quoted := host.PriceFor(denom, modelID)
	if !quoted {
		return types.Session{}, errorsmod.Wrapf(types.ErrInvalidPrice, "host quotes no price in %s", denom)
	}
	if err := validatePriceBounds(params, pricePerUnit); err != nil {
		return types.Session{}, err
	}
	if pricePerUnit.LT(hostPrice) {
		return types.Session{}, errorsmod.Wrapf(types.ErrInvalidPrice,
			"offered %s below host price %s", pricePerUnit, hostPrice)
	}

	if maxDuration < params.MinSessionDuration || maxDuration > params.MaxSessionDuration {
		return types.Session{}, errorsmod.Wrapf(types.ErrInvalidDuration,
			"duration %d outside [%d, %d]", maxDuration, params.MinSessionDuration, params.MaxSessionDuration)
	}
	if proofInterval < params.MinProofInterval || proofInterval > params.MaxProofInterval {
		return types.Session{}, errorsmod.Wrapf(types.ErrInvalidProofInterval,
			"interval %d outside [%d, %d]", proofInterval, params.MinProofInterval, params.MaxProofInterval)
	}
	if proofInterval > maxDuration {
		return types.Session{}, errorsmod.Wrapf(types.ErrInvalidProofInterval,
			"interval %d exceeds session duration %d", proofInterval, maxDuration)
	}

	// The deposit must cover at least one billing unit and clear the denom's
	// minimum transfer.
	if deposit.IsNil() || deposit.LT(pricePerUnit) || deposit.LT(minTransfer) {
		return types.Session{}, errorsmod.Wrapf(types.ErrInsufficientDeposit,
			"deposit %s, price per unit %s, min transfer %s", deposit, pricePerUnit, minTransfer)
	}

	coins := sdk.NewCoins(sdk.NewCoin(denom, deposit))
	if err := k.bankKeeper.SendCoinsFromAccountToModule(ctx, caller, types.ModuleName, coins); err != nil {
		return types.Session{}, errorsmod.Wrapf(types.ErrLedgerFailed, "lock deposit: %v", err)
	}

	store := k.getStore(ctx)
	session := types.Session{
		Id:            nextID(store, NextSessionIDKey),
		Depositor:     caller.String(),
		Host:          hostAddr.String(),
		Denom:         denom,
		Deposit:       deposit,
		PricePerUnit:  pricePerUnit,
		MaxDuration:   maxDuration,
		ProofInterval: proofInterval,
		Status:        types.SessionStatusActive,
		CreatedAt:     ctx.BlockTime(),
		ModelId:       modelID,
	}
	k.setSession(ctx, session)
	store.Set(SessionByDepositorKey(caller, session.Id), []byte{1})
	store.Set(SessionByHostKey(hostAddr, session.Id), []byte{1})
	store.Set(SessionDeadlineKey(session.Deadline(), session.Id), []byte{1})

	k.metrics.SessionsCreated.Inc()
	k.metrics.ActiveSessions.Inc()

	ctx.EventManager().EmitEvent(sdk.NewEvent(
		types.EventTypeSessionCreated,
		sdk.NewAttribute(types.AttributeKeySessionID, fmt.Sprintf("%d", session.Id)),
		sdk.NewAttribute(types.AttributeKeyDepositor, caller.String()),
		sdk.NewAttribute(types.AttributeKeyHost, hostAddr.String()),
		sdk.NewAttribute(types.AttributeKeyDenom, denom),
		sdk.NewAttribute(types.AttributeKeyDeposit, deposit.String()),
		sdk.NewAttribute(types.AttributeKeyPrice, pricePerUnit.String()),
		sdk.NewAttribute(types.AttributeKeyModelID, modelID),
	))
	return session, nil
}

// SubmitProofOfWork meters consumption on an active session. Only the
// assigned host may submit; accepted units are clamped so the billed total
// never exceeds what the deposit can pay for. Returns the units actually
// credited after clamping.
func (k Keeper) SubmitProofOfWork(
	ctx sdk.Context,
	caller sdk.AccAddress,
	sessionID uint64,
	proof []byte,
	units uint64,
) (uint64, error) {
	session, found := k.GetSession(ctx, sessionID)
	if !found {
		return 0, errorsmod.Wrapf(types.ErrSessionNotFound, "session %d", sessionID)
	}
	if session.Status != types.SessionStatusActive {
		return 0, errorsmod.Wrapf(types.ErrSessionNotActive, "session %d is %s", sessionID, session.Status)
	}
	if session.Host != caller.String() {
		return 0, errorsmod.Wrapf(types.ErrNotAssignedHost, "caller %s", caller)
	}
	if !ctx.BlockTime().Before(session.Deadline()) {
		return 0, errorsmod.Wrapf(types.ErrSessionExpired, "session %d deadline passed", sessionID)
	}

	if !k.VerifyProof(ctx, proof, caller.String(), units, sessionID) {
		if _, recorded := k.GetProofRecord(ctx, ProofHash(proof)); recorded {
			return 0, errorsmod.Wrapf(types.ErrReplayedProof, "hash %s", ProofHash(proof))
		}
		return 0, errorsmod.Wrap(types.ErrInvalidProof, "verification failed")
	}

	accepted := k.creditUnits(ctx, &session, units)
	k.setSession(ctx, session)
	k.recordCreditedUnits(ctx, ProofHash(proof), accepted)

	ctx.EventManager().EmitEvent(sdk.NewEvent(
		types.EventTypeProofAccepted,
		sdk.NewAttribute(types.AttributeKeySessionID, fmt.Sprintf("%d", sessionID)),
		sdk.NewAttribute(types.AttributeKeyProofHash, ProofHash(proof)),
		sdk.NewAttribute(types.AttributeKeyUnits, fmt.Sprintf("%d", accepted)),
		sdk.NewAttribute(types.AttributeKeyTotalUnits, fmt.Sprintf("%d", session.UnitsConsumed)),
	))
	return accepted, nil
}

// SubmitProofOfWorkBatch meters several receipts atomically; one invalid
// entry rejects the whole batch and credits nothing.
func (k Keeper) SubmitProofOfWorkBatch(
	ctx sdk.Context,
	caller sdk.AccAddress,
	sessionID uint64,
	proofs [][]byte,
	unitCounts []uint64,
) (uint64, error) {
	session, found := k.GetSession(ctx, sessionID)
	if !found {
		return 0, errorsmod.Wrapf(types.ErrSessionNotFound, "session %d", sessionID)
	}
	if session.Status != types.SessionStatusActive {
		return 0, errorsmod.Wrapf(types.ErrSessionNotActive, "session %d is %s", sessionID, session.Status)
	}
	if session.Host != caller.String() {
		return 0, errorsmod.Wrapf(types.ErrNotAssignedHost, "caller %s", caller)
	}
	if !ctx.BlockTime().Before(session.Deadline()) {
		return 0, errorsmod.Wrapf(types.ErrSessionExpired, "session %d deadline passed", sessionID)
	}

	hashes, totalUnits, err := k.VerifyProofBatch(ctx, proofs, caller.String(), unitCounts, sessionID)
	if err != nil {
		return 0, err
	}

	accepted := k.creditUnits(ctx, &session, totalUnits)
	k.setSession(ctx, session)

	// Attribute the credited total across the batch in submission order so a
	// later challenge rolls back only what each receipt actually billed.
	remaining := accepted
	for i, hash := range hashes {
		credit := unitCounts[i]
		if credit > remaining {
			credit = remaining
		}
		remaining -= credit
		k.recordCreditedUnits(ctx, hash, credit)
	}

	ctx.EventManager().EmitEvent(sdk.NewEvent(
		types.EventTypeProofAccepted,
		sdk.NewAttribute(types.AttributeKeySessionID, fmt.Sprintf("%d", sessionID)),
		sdk.NewAttribute(types.AttributeKeyUnits, fmt.Sprintf("%d", accepted)),
		sdk.NewAttribute(types.AttributeKeyTotalUnits, fmt.Sprintf("%d", session.UnitsConsumed)),
	))
	return accepted, nil
}

// recordCreditedUnits stamps a verified proof record with the unit count the
// session actually billed for it.
func (k Keeper) recordCreditedUnits(ctx sdk.Context, hash string, credited uint64) {
	record, found := k.GetProofRecord(ctx, hash)
	if !found {
		return
	}
	record.CreditedUnits = credited
	k.setProofRecord(ctx, record)
}

// creditUnits adds units to the session clamped to what the deposit covers,
// and stamps the proof time.
func (k Keeper) creditUnits(ctx sdk.Context, session *types.Session, units uint64) uint64 {
	maxBillable := session.MaxBillableUnits()
	accepted := units
	if session.UnitsConsumed >= maxBillable {
		accepted = 0
	} else if session.UnitsConsumed+accepted > maxBillable {
		accepted = maxBillable - session.UnitsConsumed
	}
	session.UnitsConsumed += accepted
	session.LastProofAt = ctx.BlockTime()
	return accepted
}

// CompleteSession settles an active session. Host and depositor may settle at
// any time; once the deadline has passed anyone may. Settlement pays the host
// share into its earnings balance, the protocol fee to the fee collector, and
// refunds the rest of the deposit to the depositor. The split is exact:
// host share + fee + refund equals the deposit.
func (k Keeper) CompleteSession(ctx sdk.Context, caller sdk.AccAddress, sessionID uint64) (types.SettlementBreakdown, error) {
	session, found := k.GetSession(ctx, sessionID)
	if !found {
		return types.SettlementBreakdown{}, errorsmod.Wrapf(types.ErrSessionNotFound, "session %d", sessionID)
	}
	if session.Status != types.SessionStatusActive {
		return types.SettlementBreakdown{}, errorsmod.Wrapf(types.ErrSessionNotActive, "session %d is %s", sessionID, session.Status)
	}

	expired := !ctx.BlockTime().Before(session.Deadline())
	isParty := caller.String() == session.Host || caller.String() == session.Depositor
	if !isParty && !expired {
		return types.SettlementBreakdown{}, errorsmod.Wrapf(types.ErrDeadlineNotReached,
			"session %d may only be settled by its parties before the deadline", sessionID)
	}

	status := types.SessionStatusCompleted
	eventType := types.EventTypeSessionCompleted
	if expired {
		status = types.SessionStatusExpired
		eventType = types.EventTypeSessionExpired
	}
	return k.settleSession(ctx, session, status, eventType)
}

// CancelSession aborts a session on which no work has been billed, refunding
// the full deposit. Depositor only.
func (k Keeper) CancelSession(ctx sdk.Context, caller sdk.AccAddress, sessionID uint64) error {
	session, found := k.GetSession(ctx, sessionID)
	if !found {
		return errorsmod.Wrapf(types.ErrSessionNotFound, "session %d", sessionID)
	}
	if session.Status != types.SessionStatusActive {
		return errorsmod.Wrapf(types.ErrSessionNotActive, "session %d is %s", sessionID, session.Status)
	}
	if session.Depositor != caller.String() {
		return errorsmod.Wrapf(types.ErrNotDepositor, "caller %s", caller)
	}
	if session.UnitsConsumed > 0 {
		return errorsmod.Wrapf(types.ErrSessionStarted, "session %d has %d billed units", sessionID, session.UnitsConsumed)
	}

	_, err := k.settleSession(ctx, session, types.SessionStatusCancelled, types.EventTypeSessionCancelled)
	return err
}

// settleSession freezes the session in a terminal status and distributes the
// deposit. State is written before funds move so a failed transfer aborts the
// whole transaction.
func (k Keeper) settleSession(
	ctx sdk.Context,
	session types.Session,
	status types.SessionStatus,
	eventType string,
) (types.SettlementBreakdown, error) {
	params, err := k.GetParams(ctx)
	if err != nil {
		return types.SettlementBreakdown{}, err
	}

	split := computeSettlement(session, params.FeeBps)

	session.Status = status
	k.setSession(ctx, session)

	store := k.getStore(ctx)
	store.Delete(SessionDeadlineKey(session.Deadline(), session.Id))

	hostAddr := sdk.MustAccAddressFromBech32(session.Host)
	depositorAddr := sdk.MustAccAddressFromBech32(session.Depositor)

	if split.HostShare.IsPositive() {
		if err := k.creditEarnings(ctx, hostAddr, session.Denom, split.HostShare); err != nil {
			return types.SettlementBreakdown{}, err
		}
	}
	if split.Fee.IsPositive() {
		fee := sdk.NewCoins(sdk.NewCoin(session.Denom, split.Fee))
		if err := k.bankKeeper.SendCoinsFromModuleToModule(ctx, types.ModuleName, authtypes.FeeCollectorName, fee); err != nil {
			return types.SettlementBreakdown{}, errorsmod.Wrapf(types.ErrLedgerFailed, "pay fee: %v", err)
		}
	}
	if split.Refund.IsPositive() {
		refund := sdk.NewCoins(sdk.NewCoin(session.Denom, split.Refund))
		if err := k.bankKeeper.SendCoinsFromModuleToAccount(ctx, types.ModuleName, depositorAddr, refund); err != nil {
			return types.SettlementBreakdown{}, errorsmod.Wrapf(types.ErrLedgerFailed, "refund deposit: %v", err)
		}
	}

	k.metrics.ActiveSessions.Dec()
	k.metrics.SessionsSettled.Inc()

	ctx.EventManager().EmitEvent(sdk.NewEvent(
		eventType,
		sdk.NewAttribute(types.AttributeKeySessionID, fmt.Sprintf("%d", session.Id)),
		sdk.NewAttribute(types.AttributeKeyHost, session.Host),
		sdk.NewAttribute(types.AttributeKeyDepositor, session.Depositor),
		sdk.NewAttribute(types.AttributeKeyUnits, fmt.Sprintf("%d", session.UnitsConsumed)),
		sdk.NewAttribute(types.AttributeKeyCost, split.Cost.String()),
		sdk.NewAttribute(types.AttributeKeyFee, split.Fee.String()),
		sdk.NewAttribute(types.AttributeKeyHostShare, split.HostShare.String()),
		sdk.NewAttribute(types.AttributeKeyRefund, split.Refund.String()),
	))
	return split, nil
}

// computeSettlement splits a session deposit. The fee truncates toward zero,
// its remainder stays in the host share; the refund absorbs the unconsumed
// deposit, so the three parts always sum to the deposit exactly. The unit
// count is widened through NewIntFromUint64 so counts past MaxInt64 cannot
// sign-flip the cost.
func computeSettlement(session types.Session, feeBps uint32) types.SettlementBreakdown {
	cost := session.PricePerUnit.Mul(math.NewIntFromUint64(session.UnitsConsumed))
	if cost.GT(session.Deposit) {
		cost = session.Deposit
	}
	fee := cost.MulRaw(int64(feeBps)).QuoRaw(types.BpsDenominator)
	return types.SettlementBreakdown{
		Cost:      cost,
		Fee:       fee,
		HostShare: cost.Sub(fee),
		Refund:    session.Deposit.Sub(cost),
	}
}
