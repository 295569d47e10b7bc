package keeper

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	errorsmod "cosmossdk.io/errors"
	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/tensormesh/tensormesh/x/market/types"
)

// GetChallenge retrieves a challenge by id.
func (k Keeper) GetChallenge(ctx context.Context, id uint64) (types.Challenge, bool) {
	store := k.getStore(ctx)
	bz := store.Get(ChallengeKey(id))
	if bz == nil {
		return types.Challenge{}, false
	}

	var challenge types.Challenge
	if err := json.Unmarshal(bz, &challenge); err != nil {
		return types.Challenge{}, false
	}
	return challenge, true
}

func (k Keeper) setChallenge(ctx context.Context, challenge types.Challenge) {
	store := k.getStore(ctx)
	store.Set(ChallengeKey(challenge.Id), mustMarshal(challenge))
}

// PendingChallengeForProof returns the id of the pending challenge against a
// proof hash, if one exists.
func (k Keeper) PendingChallengeForProof(ctx context.Context, proofHash string) (uint64, bool) {
	store := k.getStore(ctx)
	bz := store.Get(ChallengeByProofKey([]byte(proofHash)))
	if bz == nil {
		return 0, false
	}
	return binary.BigEndian.Uint64(bz), true
}

// IterateChallenges visits every challenge in id order.
func (k Keeper) IterateChallenges(ctx context.Context, cb func(types.Challenge) bool) {
	store := k.getStore(ctx)
	iterator := storetypes.KVStorePrefixIterator(store, ChallengeKeyPrefix)
	defer iterator.Close()

	for ; iterator.Valid(); iterator.Next() {
		var challenge types.Challenge
		if err := json.Unmarshal(iterator.Value(), &challenge); err != nil {
			continue
		}
		if cb(challenge) {
			break
		}
	}
}

// OpenChallenge opens a bonded dispute against a verified proof. The bond is
// locked in the module account until resolution; one pending challenge per
// proof at a time.
func (k Keeper) OpenChallenge(
	ctx sdk.Context,
	caller sdk.AccAddress,
	proofHash string,
	evidenceHash string,
) (types.Challenge, error) {
	if evidenceHash == "" {
		return types.Challenge{}, types.ErrEvidenceRequired
	}

	record, found := k.GetProofRecord(ctx, proofHash)
	if !found {
		return types.Challenge{}, errorsmod.Wrapf(types.ErrProofNotFound, "hash %s", proofHash)
	}
	if record.Status != types.ProofStatusVerified {
		return types.Challenge{}, errorsmod.Wrapf(types.ErrProofNotVerified, "hash %s is %s", proofHash, record.Status)
	}
	if id, pending := k.PendingChallengeForProof(ctx, proofHash); pending {
		return types.Challenge{}, errorsmod.Wrapf(types.ErrChallengeExists, "challenge %d", id)
	}

	params, err := k.GetParams(ctx)
	if err != nil {
		return types.Challenge{}, err
	}

	bond := sdk.NewCoins(sdk.NewCoin(params.BondDenom, params.ChallengeBond))
	if err := k.bankKeeper.SendCoinsFromAccountToModule(ctx, caller, types.ModuleName, bond); err != nil {
		return types.Challenge{}, errorsmod.Wrapf(types.ErrLedgerFailed, "lock bond: %v", err)
	}

	now := ctx.BlockTime()
	store := k.getStore(ctx)
	challenge := types.Challenge{
		Id:           nextID(store, NextChallengeIDKey),
		Challenger:   caller.String(),
		ProofHash:    proofHash,
		EvidenceHash: evidenceHash,
		Bond:         params.ChallengeBond,
		Status:       types.ChallengeStatusPending,
		CreatedAt:    now,
		Deadline:     now.Add(time.Duration(params.ChallengePeriodSeconds) * time.Second),
	}
	k.setChallenge(ctx, challenge)
	store.Set(ChallengeByProofKey([]byte(proofHash)), uint64Bytes(challenge.Id))
	store.Set(ChallengeDeadlineKey(challenge.Deadline, challenge.Id), []byte{1})

	k.metrics.ChallengesOpened.Inc()

	ctx.EventManager().EmitEvent(sdk.NewEvent(
		types.EventTypeChallengeOpened,
		sdk.NewAttribute(types.AttributeKeyChallengeID, fmt.Sprintf("%d", challenge.Id)),
		sdk.NewAttribute(types.AttributeKeyChallenger, caller.String()),
		sdk.NewAttribute(types.AttributeKeyProofHash, proofHash),
		sdk.NewAttribute(types.AttributeKeyBond, challenge.Bond.String()),
		sdk.NewAttribute(types.AttributeKeyDeadline, challenge.Deadline.UTC().Format(time.RFC3339)),
	))
	return challenge, nil
}

// ResolveChallenge finalizes a pending challenge. Only the slash authority
// adjudicates. A successful challenge invalidates the proof, rolls its
// credited units back off the session if it is still active, and returns the
// bond to the challenger; a failed one forfeits the bond to the prover whose
// work was upheld.
func (k Keeper) ResolveChallenge(ctx sdk.Context, caller sdk.AccAddress, challengeID uint64, challengerWins bool) error {
	params, err := k.GetParams(ctx)
	if err != nil {
		return err
	}

	authority := params.SlashAuthority
	if authority == "" {
		authority = k.authority
	}
	if caller.String() != authority {
		return errorsmod.Wrapf(types.ErrNotAuthorized, "caller %s", caller)
	}

	challenge, found := k.GetChallenge(ctx, challengeID)
	if !found {
		return errorsmod.Wrapf(types.ErrChallengeNotFound, "challenge %d", challengeID)
	}
	if challenge.Status != types.ChallengeStatusPending {
		return errorsmod.Wrapf(types.ErrChallengeNotPending, "challenge %d is %s", challengeID, challenge.Status)
	}

	record, found := k.GetProofRecord(ctx, challenge.ProofHash)
	if !found {
		return errorsmod.Wrapf(types.ErrProofNotFound, "hash %s", challenge.ProofHash)
	}

	outcome := types.ChallengeStatusFailed
	bondRecipient := sdk.MustAccAddressFromBech32(record.Prover)

	if challengerWins {
		outcome = types.ChallengeStatusSuccessful
		bondRecipient = sdk.MustAccAddressFromBech32(challenge.Challenger)

		record.Status = types.ProofStatusInvalid
		k.setProofRecord(ctx, record)

		// Roll the discredited units back off a still-running session;
		// settled sessions keep their frozen accounting. Only the units the
		// proof actually billed come off, not the claimed count, which can be
		// higher when the deposit clamped the credit.
		if session, ok := k.GetSession(ctx, record.SessionId); ok && session.Status == types.SessionStatusActive {
			if session.UnitsConsumed > record.CreditedUnits {
				session.UnitsConsumed -= record.CreditedUnits
			} else {
				session.UnitsConsumed = 0
			}
			k.setSession(ctx, session)
		}
	}

	k.closeChallenge(ctx, &challenge, outcome)

	bond := sdk.NewCoins(sdk.NewCoin(params.BondDenom, challenge.Bond))
	if err := k.bankKeeper.SendCoinsFromModuleToAccount(ctx, types.ModuleName, bondRecipient, bond); err != nil {
		return errorsmod.Wrapf(types.ErrLedgerFailed, "release bond: %v", err)
	}

	ctx.EventManager().EmitEvent(sdk.NewEvent(
		types.EventTypeChallengeResolved,
		sdk.NewAttribute(types.AttributeKeyChallengeID, fmt.Sprintf("%d", challengeID)),
		sdk.NewAttribute(types.AttributeKeyProofHash, challenge.ProofHash),
		sdk.NewAttribute(types.AttributeKeyOutcome, string(outcome)),
		sdk.NewAttribute(types.AttributeKeyBond, challenge.Bond.String()),
	))
	return nil
}

// ExpireChallenge fails a pending challenge whose deadline has passed without
// adjudication. Anyone may trigger it; the bond is forfeited to the treasury
// since no verdict was reached.
func (k Keeper) ExpireChallenge(ctx sdk.Context, caller sdk.AccAddress, challengeID uint64) error {
	challenge, found := k.GetChallenge(ctx, challengeID)
	if !found {
		return errorsmod.Wrapf(types.ErrChallengeNotFound, "challenge %d", challengeID)
	}
	if challenge.Status != types.ChallengeStatusPending {
		return errorsmod.Wrapf(types.ErrChallengeNotPending, "challenge %d is %s", challengeID, challenge.Status)
	}
	if ctx.BlockTime().Before(challenge.Deadline) {
		return errorsmod.Wrapf(types.ErrChallengeNotExpired, "deadline %s",
			challenge.Deadline.UTC().Format(time.RFC3339))
	}

	return k.expireChallenge(ctx, challenge)
}

func (k Keeper) expireChallenge(ctx sdk.Context, challenge types.Challenge) error {
	params, err := k.GetParams(ctx)
	if err != nil {
		return err
	}

	k.closeChallenge(ctx, &challenge, types.ChallengeStatusFailed)

	bond := sdk.NewCoins(sdk.NewCoin(params.BondDenom, challenge.Bond))
	if err := k.bankKeeper.SendCoinsFromModuleToModule(ctx, types.ModuleName, types.TreasuryPoolName, bond); err != nil {
		return errorsmod.Wrapf(types.ErrLedgerFailed, "forfeit bond: %v", err)
	}

	ctx.EventManager().EmitEvent(sdk.NewEvent(
		types.EventTypeChallengeExpired,
		sdk.NewAttribute(types.AttributeKeyChallengeID, fmt.Sprintf("%d", challenge.Id)),
		sdk.NewAttribute(types.AttributeKeyProofHash, challenge.ProofHash),
		sdk.NewAttribute(types.AttributeKeyBond, challenge.Bond.String()),
	))
	return nil
}

// closeChallenge moves a challenge into a terminal status and drops its
// pending indexes.
func (k Keeper) closeChallenge(ctx sdk.Context, challenge *types.Challenge, status types.ChallengeStatus) {
	challenge.Status = status
	k.setChallenge(ctx, *challenge)

	store := k.getStore(ctx)
	store.Delete(ChallengeByProofKey([]byte(challenge.ProofHash)))
	store.Delete(ChallengeDeadlineKey(challenge.Deadline, challenge.Id))

	k.metrics.ChallengesResolved.Inc()
}
