package keeper

import (
	"context"

	errorsmod "cosmossdk.io/errors"
	storetypes "cosmossdk.io/store/types"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/tensormesh/tensormesh/x/market/types"
)

// GetEarnings returns a host's withdrawable balance in one denom. Missing
// entries read as zero.
func (k Keeper) GetEarnings(ctx context.Context, host sdk.AccAddress, denom string) math.Int {
	store := k.getStore(ctx)
	bz := store.Get(EarningsKey(host, denom))
	if bz == nil {
		return math.ZeroInt()
	}

	var amount math.Int
	if err := amount.Unmarshal(bz); err != nil {
		return math.ZeroInt()
	}
	return amount
}

func (k Keeper) setEarnings(ctx context.Context, host sdk.AccAddress, denom string, amount math.Int) error {
	store := k.getStore(ctx)
	key := EarningsKey(host, denom)
	if amount.IsZero() {
		store.Delete(key)
		return nil
	}

	bz, err := amount.Marshal()
	if err != nil {
		return errorsmod.Wrapf(types.ErrStorageFailed, "earnings: %v", err)
	}
	store.Set(key, bz)
	return nil
}

// GetEarningsByHost returns all of a host's non-zero balances.
func (k Keeper) GetEarningsByHost(ctx context.Context, host sdk.AccAddress) []types.EarningsBalance {
	store := k.getStore(ctx)
	prefix := EarningsByHostPrefix(host)
	iterator := storetypes.KVStorePrefixIterator(store, prefix)
	defer iterator.Close()

	var balances []types.EarningsBalance
	for ; iterator.Valid(); iterator.Next() {
		var amount math.Int
		if err := amount.Unmarshal(iterator.Value()); err != nil {
			continue
		}
		balances = append(balances, types.EarningsBalance{
			Host:   host.String(),
			Denom:  string(iterator.Key()[len(prefix):]),
			Amount: amount,
		})
	}
	return balances
}

// IterateEarnings visits every (host, denom) balance in the store.
func (k Keeper) IterateEarnings(ctx context.Context, cb func(types.EarningsBalance) bool) {
	store := k.getStore(ctx)
	iterator := storetypes.KVStorePrefixIterator(store, EarningsKeyPrefix)
	defer iterator.Close()

	for ; iterator.Valid(); iterator.Next() {
		key := iterator.Key()[len(EarningsKeyPrefix):]
		addrLen := int(key[0])
		host := sdk.AccAddress(key[1 : 1+addrLen])
		denom := string(key[1+addrLen:])

		var amount math.Int
		if err := amount.Unmarshal(iterator.Value()); err != nil {
			continue
		}
		if cb(types.EarningsBalance{Host: host.String(), Denom: denom, Amount: amount}) {
			break
		}
	}
}

// creditEarnings accumulates settlement value for a host. The funds remain in
// the module account until withdrawn.
func (k Keeper) creditEarnings(ctx sdk.Context, host sdk.AccAddress, denom string, amount math.Int) error {
	if amount.IsNil() || !amount.IsPositive() {
		return types.ErrInvalidAmount
	}

	balance := k.GetEarnings(ctx, host, denom)
	if err := k.setEarnings(ctx, host, denom, balance.Add(amount)); err != nil {
		return err
	}

	ctx.EventManager().EmitEvent(sdk.NewEvent(
		types.EventTypeEarningsCredited,
		sdk.NewAttribute(types.AttributeKeyHost, host.String()),
		sdk.NewAttribute(types.AttributeKeyDenom, denom),
		sdk.NewAttribute(types.AttributeKeyAmount, amount.String()),
	))
	return nil
}

// Withdraw pays out part of the caller's accumulated earnings in one denom.
// A nil amount withdraws the full balance.
func (k Keeper) Withdraw(ctx sdk.Context, caller sdk.AccAddress, denom string, amount math.Int) (math.Int, error) {
	balance := k.GetEarnings(ctx, caller, denom)

	if amount.IsNil() {
		amount = balance
	}
	if !amount.IsPositive() {
		return math.ZeroInt(), errorsmod.Wrapf(types.ErrInsufficientBalance, "no earnings in %s", denom)
	}
	if amount.GT(balance) {
		return math.ZeroInt(), errorsmod.Wrapf(types.ErrInsufficientBalance,
			"requested %s, available %s", amount, balance)
	}

	if err := k.setEarnings(ctx, caller, denom, balance.Sub(amount)); err != nil {
		return math.ZeroInt(), err
	}

	coins := sdk.NewCoins(sdk.NewCoin(denom, amount))
	if err := k.bankKeeper.SendCoinsFromModuleToAccount(ctx, types.ModuleName, caller, coins); err != nil {
		return math.ZeroInt(), errorsmod.Wrapf(types.ErrLedgerFailed, "pay out earnings: %v", err)
	}

	k.metrics.WithdrawalsProcessed.Inc()

	ctx.EventManager().EmitEvent(sdk.NewEvent(
		types.EventTypeEarningsWithdrawn,
		sdk.NewAttribute(types.AttributeKeyHost, caller.String()),
		sdk.NewAttribute(types.AttributeKeyDenom, denom),
		sdk.NewAttribute(types.AttributeKeyAmount, amount.String()),
	))
	return amount, nil
}

// WithdrawAll pays out the caller's full balance in one denom.
func (k Keeper) WithdrawAll(ctx sdk.Context, caller sdk.AccAddress, denom string) (math.Int, error) {
	return k.Withdraw(ctx, caller, denom, math.Int{})
}

// WithdrawMultiple pays out the caller's full balance in each listed denom in
// one call. Denoms with no balance fail the whole batch.
func (k Keeper) WithdrawMultiple(ctx sdk.Context, caller sdk.AccAddress, denoms []string) (sdk.Coins, error) {
	withdrawn := sdk.NewCoins()
	for _, denom := range denoms {
		amount, err := k.WithdrawAll(ctx, caller, denom)
		if err != nil {
			return nil, err
		}
		withdrawn = withdrawn.Add(sdk.NewCoin(denom, amount))
	}
	return withdrawn, nil
}
