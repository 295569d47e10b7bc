package keeper

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	errorsmod "cosmossdk.io/errors"
	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/tensormesh/tensormesh/x/market/types"
)

// ProofHash returns the canonical hex content hash for a work receipt.
func ProofHash(proof []byte) string {
	sum := sha256.Sum256(proof)
	return hex.EncodeToString(sum[:])
}

// GetProofRecord retrieves the stored verdict for a proof hash.
func (k Keeper) GetProofRecord(ctx context.Context, hash string) (types.ProofRecord, bool) {
	store := k.getStore(ctx)
	bz := store.Get(ProofRecordKey([]byte(hash)))
	if bz == nil {
		return types.ProofRecord{}, false
	}

	var record types.ProofRecord
	if err := json.Unmarshal(bz, &record); err != nil {
		return types.ProofRecord{}, false
	}
	return record, true
}

func (k Keeper) setProofRecord(ctx context.Context, record types.ProofRecord) {
	store := k.getStore(ctx)
	store.Set(ProofRecordKey([]byte(record.Hash)), mustMarshal(record))
}

// IterateProofRecords visits every stored proof verdict.
func (k Keeper) IterateProofRecords(ctx context.Context, cb func(types.ProofRecord) bool) {
	store := k.getStore(ctx)
	iterator := storetypes.KVStorePrefixIterator(store, ProofRecordKeyPrefix)
	defer iterator.Close()

	for ; iterator.Valid(); iterator.Next() {
		var record types.ProofRecord
		if err := json.Unmarshal(iterator.Value(), &record); err != nil {
			continue
		}
		if cb(record) {
			break
		}
	}
}

// verifyProofStructure applies the structural gate without touching state.
func verifyProofStructure(params types.Params, proof []byte, prover string, claimedUnits uint64) bool {
	if len(proof) < int(params.MinProofBytes) {
		return false
	}
	if claimedUnits == 0 {
		return false
	}
	if prover == "" {
		return false
	}
	return true
}

// VerifyProof checks one work receipt and records the verdict. Structural
// failures and replays return false without mutating state; acceptance writes
// a verified ProofRecord keyed by the content hash, which permanently burns
// that hash.
func (k Keeper) VerifyProof(ctx sdk.Context, proof []byte, prover string, claimedUnits uint64, sessionID uint64) bool {
	params, err := k.GetParams(ctx)
	if err != nil {
		return false
	}

	if !verifyProofStructure(params, proof, prover, claimedUnits) {
		k.metrics.ProofsRejected.Inc()
		return false
	}

	hash := ProofHash(proof)
	if _, recorded := k.GetProofRecord(ctx, hash); recorded {
		k.metrics.ProofReplays.Inc()
		return false
	}

	k.setProofRecord(ctx, types.ProofRecord{
		Hash:       hash,
		Prover:     prover,
		SessionId:  sessionID,
		Units:      claimedUnits,
		Status:     types.ProofStatusVerified,
		VerifiedAt: ctx.BlockTime(),
	})

	k.metrics.ProofsVerified.Inc()

	ctx.EventManager().EmitEvent(sdk.NewEvent(
		types.EventTypeProofVerified,
		sdk.NewAttribute(types.AttributeKeyProofHash, hash),
		sdk.NewAttribute(types.AttributeKeyProver, prover),
		sdk.NewAttribute(types.AttributeKeySessionID, fmt.Sprintf("%d", sessionID)),
		sdk.NewAttribute(types.AttributeKeyUnits, fmt.Sprintf("%d", claimedUnits)),
	))
	return true
}

// VerifyProofBatch verifies several receipts atomically. Every entry is
// pre-checked (structure, stored replays, duplicates within the batch) before
// any verdict is written; one failing entry rejects the whole batch. On
// success all records are written and a single aggregate event is emitted.
func (k Keeper) VerifyProofBatch(
	ctx sdk.Context,
	proofs [][]byte,
	prover string,
	unitCounts []uint64,
	sessionID uint64,
) ([]string, uint64, error) {
	params, err := k.GetParams(ctx)
	if err != nil {
		return nil, 0, err
	}

	if len(proofs) == 0 {
		return nil, 0, errorsmod.Wrap(types.ErrBatchMismatch, "empty batch")
	}
	if len(proofs) != len(unitCounts) {
		return nil, 0, errorsmod.Wrapf(types.ErrBatchMismatch,
			"%d proofs, %d unit counts", len(proofs), len(unitCounts))
	}
	if len(proofs) > int(params.MaxProofBatch) {
		return nil, 0, errorsmod.Wrapf(types.ErrBatchTooLarge,
			"%d entries, max %d", len(proofs), params.MaxProofBatch)
	}

	hashes := make([]string, len(proofs))
	seen := make(map[string]struct{}, len(proofs))
	var totalUnits uint64
	for i, proof := range proofs {
		if !verifyProofStructure(params, proof, prover, unitCounts[i]) {
			return nil, 0, errorsmod.Wrapf(types.ErrInvalidProof, "entry %d", i)
		}
		hash := ProofHash(proof)
		if _, dup := seen[hash]; dup {
			return nil, 0, errorsmod.Wrapf(types.ErrReplayedProof, "entry %d duplicated in batch", i)
		}
		if _, recorded := k.GetProofRecord(ctx, hash); recorded {
			return nil, 0, errorsmod.Wrapf(types.ErrReplayedProof, "entry %d hash %s", i, hash)
		}
		seen[hash] = struct{}{}
		hashes[i] = hash
		totalUnits += unitCounts[i]
	}

	now := ctx.BlockTime()
	for i, hash := range hashes {
		k.setProofRecord(ctx, types.ProofRecord{
			Hash:       hash,
			Prover:     prover,
			SessionId:  sessionID,
			Units:      unitCounts[i],
			Status:     types.ProofStatusVerified,
			VerifiedAt: now,
		})
	}

	k.metrics.ProofsVerified.Add(float64(len(hashes)))

	ctx.EventManager().EmitEvent(sdk.NewEvent(
		types.EventTypeProofBatchVerified,
		sdk.NewAttribute(types.AttributeKeyProver, prover),
		sdk.NewAttribute(types.AttributeKeySessionID, fmt.Sprintf("%d", sessionID)),
		sdk.NewAttribute(types.AttributeKeyProofHashes, strings.Join(hashes, ",")),
		sdk.NewAttribute(types.AttributeKeyUnits, fmt.Sprintf("%d", totalUnits)),
	))
	return hashes, totalUnits, nil
}

// VerifyProofBatchView reports the per-entry verdicts the batch would receive
// without recording anything. Duplicates within the batch fail after their
// first occurrence.
func (k Keeper) VerifyProofBatchView(ctx sdk.Context, proofs [][]byte, prover string, unitCounts []uint64) []bool {
	verdicts := make([]bool, len(proofs))
	if len(proofs) != len(unitCounts) {
		return verdicts
	}

	params, err := k.GetParams(ctx)
	if err != nil {
		return verdicts
	}

	seen := make(map[string]struct{}, len(proofs))
	for i, proof := range proofs {
		if !verifyProofStructure(params, proof, prover, unitCounts[i]) {
			continue
		}
		hash := ProofHash(proof)
		if _, dup := seen[hash]; dup {
			continue
		}
		if _, recorded := k.GetProofRecord(ctx, hash); recorded {
			continue
		}
		seen[hash] = struct{}{}
		verdicts[i] = true
	}
	return verdicts
}
