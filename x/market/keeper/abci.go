package keeper

import (
	"encoding/binary"
	"time"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/tensormesh/tensormesh/x/market/types"
)

// EndBlocker settles overdue sessions and fails overdue challenges. Lazy
// expiry through CompleteSession / ExpireChallenge remains available; the
// sweep only guarantees an upper bound on how long stale state lingers.
func (k Keeper) EndBlocker(ctx sdk.Context) {
	now := ctx.BlockTime()
	k.sweepExpiredSessions(ctx, now)
	k.sweepExpiredChallenges(ctx, now)
}

// dueIDs collects the ids in a (time, id) index whose timestamp is at or
// before the cutoff. IDs are collected before any mutation so the sweep never
// deletes under a live iterator.
func (k Keeper) dueIDs(ctx sdk.Context, prefix []byte, cutoff time.Time) []uint64 {
	store := k.getStore(ctx)
	end := append(append([]byte{}, prefix...), timeBytes(cutoff.Add(time.Second))...)
	iterator := store.Iterator(prefix, end)
	defer iterator.Close()

	var ids []uint64
	for ; iterator.Valid(); iterator.Next() {
		key := iterator.Key()
		ids = append(ids, binary.BigEndian.Uint64(key[len(key)-8:]))
	}
	return ids
}

func (k Keeper) sweepExpiredSessions(ctx sdk.Context, now time.Time) {
	for _, id := range k.dueIDs(ctx, SessionDeadlinePrefix, now) {
		session, found := k.GetSession(ctx, id)
		if !found || session.Status != types.SessionStatusActive {
			continue
		}
		if now.Before(session.Deadline()) {
			continue
		}

		if _, err := k.settleSession(ctx, session, types.SessionStatusExpired, types.EventTypeSessionExpired); err != nil {
			k.Logger(ctx).Error("failed to settle expired session", "session_id", id, "error", err)
		}
	}
}

func (k Keeper) sweepExpiredChallenges(ctx sdk.Context, now time.Time) {
	for _, id := range k.dueIDs(ctx, ChallengeDeadlinePrefix, now) {
		challenge, found := k.GetChallenge(ctx, id)
		if !found || challenge.Status != types.ChallengeStatusPending {
			continue
		}
		if now.Before(challenge.Deadline) {
			continue
		}

		if err := k.expireChallenge(ctx, challenge); err != nil {
			k.Logger(ctx).Error("failed to expire challenge", "challenge_id", id, "error", err)
		}
	}
}
