package keeper

import (
	"encoding/binary"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/tensormesh/tensormesh/x/market/types"
)

func counterValue(store interface{ Get([]byte) []byte }, key []byte) uint64 {
	if bz := store.Get(key); bz != nil {
		return binary.BigEndian.Uint64(bz)
	}
	return 1
}

// InitGenesis seeds the module state and rebuilds every secondary index from
// the primary records.
func (k Keeper) InitGenesis(ctx sdk.Context, genState types.GenesisState) {
	if err := k.SetParams(ctx, genState.Params); err != nil {
		panic(err)
	}

	store := k.getStore(ctx)
	store.Set(NextSessionIDKey, uint64Bytes(genState.NextSessionId))
	store.Set(NextChallengeIDKey, uint64Bytes(genState.NextChallengeId))
	store.Set(NextSlashIDKey, uint64Bytes(genState.NextSlashId))

	for _, host := range genState.Hosts {
		if err := k.setHost(ctx, host); err != nil {
			panic(err)
		}
	}

	for _, session := range genState.Sessions {
		k.setSession(ctx, session)
		depositor := sdk.MustAccAddressFromBech32(session.Depositor)
		host := sdk.MustAccAddressFromBech32(session.Host)
		store.Set(SessionByDepositorKey(depositor, session.Id), []byte{1})
		store.Set(SessionByHostKey(host, session.Id), []byte{1})
		if session.Status == types.SessionStatusActive {
			store.Set(SessionDeadlineKey(session.Deadline(), session.Id), []byte{1})
		}
	}

	for _, record := range genState.ProofRecords {
		k.setProofRecord(ctx, record)
	}

	for _, challenge := range genState.Challenges {
		k.setChallenge(ctx, challenge)
		if challenge.Status == types.ChallengeStatusPending {
			store.Set(ChallengeByProofKey([]byte(challenge.ProofHash)), uint64Bytes(challenge.Id))
			store.Set(ChallengeDeadlineKey(challenge.Deadline, challenge.Id), []byte{1})
		}
	}

	for _, record := range genState.SlashRecords {
		store.Set(SlashRecordKey(record.Id), mustMarshal(record))
		host := sdk.MustAccAddressFromBech32(record.Host)
		store.Set(SlashRecordByHostKey(host, record.Id), []byte{1})
	}

	for _, balance := range genState.Earnings {
		host := sdk.MustAccAddressFromBech32(balance.Host)
		if err := k.setEarnings(ctx, host, balance.Denom, balance.Amount); err != nil {
			panic(err)
		}
	}
}

// ExportGenesis writes the full module state out for a chain export.
func (k Keeper) ExportGenesis(ctx sdk.Context) *types.GenesisState {
	params, err := k.GetParams(ctx)
	if err != nil {
		panic(err)
	}

	genState := &types.GenesisState{Params: params}

	k.IterateHosts(ctx, func(host types.Host) bool {
		genState.Hosts = append(genState.Hosts, host)
		return false
	})
	k.IterateSessions(ctx, func(session types.Session) bool {
		genState.Sessions = append(genState.Sessions, session)
		return false
	})
	k.IterateProofRecords(ctx, func(record types.ProofRecord) bool {
		genState.ProofRecords = append(genState.ProofRecords, record)
		return false
	})
	k.IterateChallenges(ctx, func(challenge types.Challenge) bool {
		genState.Challenges = append(genState.Challenges, challenge)
		return false
	})
	k.IterateSlashRecords(ctx, func(record types.SlashRecord) bool {
		genState.SlashRecords = append(genState.SlashRecords, record)
		return false
	})
	k.IterateEarnings(ctx, func(balance types.EarningsBalance) bool {
		genState.Earnings = append(genState.Earnings, balance)
		return false
	})

	store := k.getStore(ctx)
	genState.NextSessionId = counterValue(store, NextSessionIDKey)
	genState.NextChallengeId = counterValue(store, NextChallengeIDKey)
	genState.NextSlashId = counterValue(store, NextSlashIDKey)

	return genState
}
