package keeper

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"time"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/math"
	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/tensormesh/tensormesh/x/market/types"
)

// nextID returns the current value of a BigEndian uint64 counter and advances
// it. Counters start at 1.
func nextID(store storetypes.KVStore, key []byte) uint64 {
	id := uint64(1)
	if bz := store.Get(key); bz != nil {
		id = binary.BigEndian.Uint64(bz)
	}
	store.Set(key, uint64Bytes(id+1))
	return id
}

// SlashHost confiscates part of a registered host's stake into the treasury.
// Only the slash authority may call this; a single slash is capped at
// MaxSlashBps of the current stake and slashes are cooldown-gated. When the
// remaining stake falls below the unstake floor the host is deregistered and
// the remainder returned to it.
func (k Keeper) SlashHost(
	ctx sdk.Context,
	caller sdk.AccAddress,
	hostAddr sdk.AccAddress,
	amount math.Int,
	evidenceRef string,
	reason string,
) (types.SlashRecord, error) {
	params, err := k.GetParams(ctx)
	if err != nil {
		return types.SlashRecord{}, err
	}

	authority := params.SlashAuthority
	if authority == "" {
		authority = k.authority
	}
	if caller.String() != authority {
		return types.SlashRecord{}, errorsmod.Wrapf(types.ErrNotAuthorized, "caller %s", caller)
	}

	if evidenceRef == "" {
		return types.SlashRecord{}, types.ErrEvidenceRequired
	}
	if reason == "" {
		return types.SlashRecord{}, types.ErrReasonRequired
	}
	if amount.IsNil() || !amount.IsPositive() {
		return types.SlashRecord{}, types.ErrInvalidAmount
	}

	host, found := k.GetHost(ctx, hostAddr)
	if !found {
		return types.SlashRecord{}, errorsmod.Wrapf(types.ErrNotRegistered, "host %s", hostAddr)
	}

	if amount.GT(host.Stake) {
		return types.SlashRecord{}, errorsmod.Wrapf(types.ErrAmountExceedsStake,
			"amount %s, stake %s", amount, host.Stake)
	}

	maxSlash := host.Stake.MulRaw(int64(params.MaxSlashBps)).QuoRaw(types.BpsDenominator)
	if amount.GT(maxSlash) {
		return types.SlashRecord{}, errorsmod.Wrapf(types.ErrExceedsMaxSlash,
			"amount %s, cap %s (%d bps of %s)", amount, maxSlash, params.MaxSlashBps, host.Stake)
	}

	now := ctx.BlockTime()
	if !host.LastSlashedAt.IsZero() && params.SlashCooldownSeconds > 0 {
		readyAt := host.LastSlashedAt.Add(time.Duration(params.SlashCooldownSeconds) * time.Second)
		if now.Before(readyAt) {
			return types.SlashRecord{}, errorsmod.Wrapf(types.ErrCooldownActive,
				"next slash allowed at %s", readyAt.UTC().Format(time.RFC3339))
		}
	}

	slashed := sdk.NewCoins(sdk.NewCoin(params.BondDenom, amount))
	if err := k.bankKeeper.SendCoinsFromModuleToModule(ctx, types.ModuleName, types.TreasuryPoolName, slashed); err != nil {
		return types.SlashRecord{}, errorsmod.Wrapf(types.ErrLedgerFailed, "move slashed stake: %v", err)
	}

	host.Stake = host.Stake.Sub(amount)
	host.LastSlashedAt = now

	record := types.SlashRecord{
		Host:        host.Address,
		Amount:      amount,
		EvidenceRef: evidenceRef,
		Reason:      reason,
		SlashedAt:   now,
		Remainder:   math.ZeroInt(),
	}

	autoDeregister := host.Stake.LT(params.UnstakeFloor)
	if autoDeregister {
		record.AutoDeregistered = true
		record.Remainder = host.Stake

		k.removeHost(ctx, host)
		if host.Stake.IsPositive() {
			remainder := sdk.NewCoins(sdk.NewCoin(params.BondDenom, host.Stake))
			if err := k.bankKeeper.SendCoinsFromModuleToAccount(ctx, types.ModuleName, hostAddr, remainder); err != nil {
				return types.SlashRecord{}, errorsmod.Wrapf(types.ErrLedgerFailed, "return remainder: %v", err)
			}
		}
		if host.Active {
			k.metrics.ActiveHosts.Dec()
		}
	} else {
		if err := k.setHost(ctx, host); err != nil {
			return types.SlashRecord{}, err
		}
	}

	store := k.getStore(ctx)
	record.Id = nextID(store, NextSlashIDKey)
	store.Set(SlashRecordKey(record.Id), mustMarshal(record))
	store.Set(SlashRecordByHostKey(hostAddr, record.Id), []byte{1})

	k.metrics.SlashesExecuted.Inc()
	if amount.IsInt64() {
		k.metrics.SlashedTotal.Add(float64(amount.Int64()))
	}

	ctx.EventManager().EmitEvent(sdk.NewEvent(
		types.EventTypeHostSlashed,
		sdk.NewAttribute(types.AttributeKeyHost, host.Address),
		sdk.NewAttribute(types.AttributeKeyAmount, amount.String()),
		sdk.NewAttribute(types.AttributeKeyStake, host.Stake.String()),
		sdk.NewAttribute(types.AttributeKeyReason, reason),
		sdk.NewAttribute(types.AttributeKeyEvidence, evidenceRef),
	))
	if autoDeregister {
		ctx.EventManager().EmitEvent(sdk.NewEvent(
			types.EventTypeHostAutoDeregistered,
			sdk.NewAttribute(types.AttributeKeyHost, host.Address),
			sdk.NewAttribute(types.AttributeKeyRemainder, record.Remainder.String()),
			sdk.NewAttribute(types.AttributeKeyReason, reason),
		))
	}

	k.Logger(ctx).Info("host slashed",
		"host", host.Address,
		"amount", amount.String(),
		"remaining_stake", host.Stake.String(),
		"auto_deregistered", autoDeregister,
	)
	return record, nil
}

// GetSlashRecord retrieves a slash audit record by id.
func (k Keeper) GetSlashRecord(ctx context.Context, id uint64) (types.SlashRecord, bool) {
	store := k.getStore(ctx)
	bz := store.Get(SlashRecordKey(id))
	if bz == nil {
		return types.SlashRecord{}, false
	}

	var record types.SlashRecord
	if err := json.Unmarshal(bz, &record); err != nil {
		return types.SlashRecord{}, false
	}
	return record, true
}

// GetSlashRecordsByHost returns every slash record written for the host.
func (k Keeper) GetSlashRecordsByHost(ctx context.Context, hostAddr sdk.AccAddress) []types.SlashRecord {
	store := k.getStore(ctx)
	prefix := SlashRecordsByHostIterPrefix(hostAddr)
	iterator := storetypes.KVStorePrefixIterator(store, prefix)
	defer iterator.Close()

	var records []types.SlashRecord
	for ; iterator.Valid(); iterator.Next() {
		id := binary.BigEndian.Uint64(iterator.Key()[len(prefix):])
		if record, found := k.GetSlashRecord(ctx, id); found {
			records = append(records, record)
		}
	}
	return records
}

// IterateSlashRecords visits every slash record in id order.
func (k Keeper) IterateSlashRecords(ctx context.Context, cb func(types.SlashRecord) bool) {
	store := k.getStore(ctx)
	iterator := storetypes.KVStorePrefixIterator(store, SlashRecordKeyPrefix)
	defer iterator.Close()

	for ; iterator.Valid(); iterator.Next() {
		var record types.SlashRecord
		if err := json.Unmarshal(iterator.Value(), &record); err != nil {
			continue
		}
		if cb(record) {
			break
		}
	}
}
