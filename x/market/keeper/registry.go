package keeper

import (
	"context"
	"encoding/json"
	"strings"

	errorsmod "cosmossdk.io/errors"
	storetypes "cosmossdk.io/store/types"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/tensormesh/tensormesh/x/market/types"
)

// GetHost retrieves a host record by address.
func (k Keeper) GetHost(ctx context.Context, addr sdk.AccAddress) (types.Host, bool) {
	store := k.getStore(ctx)
	bz := store.Get(HostKey(addr))
	if bz == nil {
		return types.Host{}, false
	}

	var host types.Host
	if err := json.Unmarshal(bz, &host); err != nil {
		return types.Host{}, false
	}
	return host, true
}

// setHost writes the host record and refreshes its secondary indexes.
func (k Keeper) setHost(ctx context.Context, host types.Host) error {
	addr, err := sdk.AccAddressFromBech32(host.Address)
	if err != nil {
		return errorsmod.Wrapf(types.ErrInvalidHost, "%v", err)
	}

	store := k.getStore(ctx)
	store.Set(HostKey(addr), mustMarshal(host))

	if host.Active {
		store.Set(ActiveHostKey(addr), []byte{1})
		for _, model := range host.Models {
			store.Set(ModelHostKey(model, addr), []byte{1})
		}
	} else {
		store.Delete(ActiveHostKey(addr))
		for _, model := range host.Models {
			store.Delete(ModelHostKey(model, addr))
		}
	}
	return nil
}

// removeHost deletes a host record and every index entry pointing at it.
func (k Keeper) removeHost(ctx context.Context, host types.Host) {
	addr := sdk.MustAccAddressFromBech32(host.Address)

	store := k.getStore(ctx)
	store.Delete(HostKey(addr))
	store.Delete(ActiveHostKey(addr))
	for _, model := range host.Models {
		store.Delete(ModelHostKey(model, addr))
	}
}

// IterateHosts visits every host record. The callback returns true to stop.
func (k Keeper) IterateHosts(ctx context.Context, cb func(types.Host) bool) {
	store := k.getStore(ctx)
	iterator := storetypes.KVStorePrefixIterator(store, HostKeyPrefix)
	defer iterator.Close()

	for ; iterator.Valid(); iterator.Next() {
		var host types.Host
		if err := json.Unmarshal(iterator.Value(), &host); err != nil {
			continue
		}
		if cb(host) {
			break
		}
	}
}

// GetAllHosts returns every host record, registered order not guaranteed.
func (k Keeper) GetAllHosts(ctx context.Context) []types.Host {
	var hosts []types.Host
	k.IterateHosts(ctx, func(host types.Host) bool {
		hosts = append(hosts, host)
		return false
	})
	return hosts
}

// HostsForModel returns the addresses of active hosts serving the model.
func (k Keeper) HostsForModel(ctx context.Context, modelID string) []sdk.AccAddress {
	store := k.getStore(ctx)
	prefix := ModelIndexPrefix(modelID)
	iterator := storetypes.KVStorePrefixIterator(store, prefix)
	defer iterator.Close()

	var addrs []sdk.AccAddress
	for ; iterator.Valid(); iterator.Next() {
		addrs = append(addrs, sdk.AccAddress(iterator.Key()[len(prefix):]))
	}
	return addrs
}

// RegisterHost admits the caller to the registry, locking the minimum stake
// into the module account. Pricing must quote at least one accepted denom.
func (k Keeper) RegisterHost(
	ctx sdk.Context,
	caller sdk.AccAddress,
	metadata string,
	endpoint string,
	models []string,
	prices map[string]math.Int,
) error {
	if metadata == "" {
		return types.ErrMetadataRequired
	}
	if endpoint == "" {
		return types.ErrEndpointRequired
	}
	if len(models) == 0 {
		return errorsmod.Wrap(types.ErrInvalidModel, "at least one model required")
	}

	if _, found := k.GetHost(ctx, caller); found {
		return errorsmod.Wrapf(types.ErrAlreadyRegistered, "host %s", caller)
	}

	params, err := k.GetParams(ctx)
	if err != nil {
		return err
	}

	// An empty catalog leaves model ids unrestricted.
	if len(params.AllowedModels) > 0 {
		for _, model := range models {
			if !params.ModelAllowed(model) {
				return errorsmod.Wrapf(types.ErrInvalidModel, "model %s", model)
			}
		}
	}

	if len(prices) == 0 {
		return errorsmod.Wrap(types.ErrInvalidPrice, "at least one price required")
	}
	for denom, price := range prices {
		if _, ok := params.AcceptsDenom(denom); !ok {
			return errorsmod.Wrapf(types.ErrTokenNotAccepted, "denom %s", denom)
		}
		if err := validatePriceBounds(params, price); err != nil {
			return err
		}
	}

	stake := sdk.NewCoins(sdk.NewCoin(params.BondDenom, params.MinStake))
	if err := k.bankKeeper.SendCoinsFromAccountToModule(ctx, caller, types.ModuleName, stake); err != nil {
		return errorsmod.Wrapf(types.ErrLedgerFailed, "lock stake: %v", err)
	}

	host := types.Host{
		Address:      caller.String(),
		Stake:        params.MinStake,
		Active:       true,
		Metadata:     metadata,
		Endpoint:     endpoint,
		Models:       models,
		Prices:       prices,
		RegisteredAt: ctx.BlockTime(),
	}
	if err := k.setHost(ctx, host); err != nil {
		return err
	}

	k.metrics.HostsRegistered.Inc()
	k.metrics.ActiveHosts.Inc()

	ctx.EventManager().EmitEvent(sdk.NewEvent(
		types.EventTypeHostRegistered,
		sdk.NewAttribute(types.AttributeKeyHost, caller.String()),
		sdk.NewAttribute(types.AttributeKeyStake, params.MinStake.String()),
		sdk.NewAttribute(types.AttributeKeyEndpoint, endpoint),
		sdk.NewAttribute(types.AttributeKeyModels, strings.Join(models, ",")),
	))
	return nil
}

// UnregisterHost removes the caller from the registry and returns its full
// remaining stake.
func (k Keeper) UnregisterHost(ctx sdk.Context, caller sdk.AccAddress) (math.Int, error) {
	host, found := k.GetHost(ctx, caller)
	if !found {
		return math.ZeroInt(), errorsmod.Wrapf(types.ErrNotRegistered, "host %s", caller)
	}

	params, err := k.GetParams(ctx)
	if err != nil {
		return math.ZeroInt(), err
	}

	// State first, transfer after: a failed refund aborts the whole tx.
	k.removeHost(ctx, host)

	if host.Stake.IsPositive() {
		refund := sdk.NewCoins(sdk.NewCoin(params.BondDenom, host.Stake))
		if err := k.bankKeeper.SendCoinsFromModuleToAccount(ctx, types.ModuleName, caller, refund); err != nil {
			return math.ZeroInt(), errorsmod.Wrapf(types.ErrLedgerFailed, "return stake: %v", err)
		}
	}

	if host.Active {
		k.metrics.ActiveHosts.Dec()
	}

	ctx.EventManager().EmitEvent(sdk.NewEvent(
		types.EventTypeHostUnregistered,
		sdk.NewAttribute(types.AttributeKeyHost, caller.String()),
		sdk.NewAttribute(types.AttributeKeyStake, host.Stake.String()),
	))
	return host.Stake, nil
}

// AddStake tops up the caller's locked stake.
func (k Keeper) AddStake(ctx sdk.Context, caller sdk.AccAddress, amount math.Int) error {
	if amount.IsNil() || !amount.IsPositive() {
		return types.ErrInvalidAmount
	}

	host, found := k.GetHost(ctx, caller)
	if !found {
		return errorsmod.Wrapf(types.ErrNotRegistered, "host %s", caller)
	}

	params, err := k.GetParams(ctx)
	if err != nil {
		return err
	}

	coins := sdk.NewCoins(sdk.NewCoin(params.BondDenom, amount))
	if err := k.bankKeeper.SendCoinsFromAccountToModule(ctx, caller, types.ModuleName, coins); err != nil {
		return errorsmod.Wrapf(types.ErrLedgerFailed, "lock stake: %v", err)
	}

	host.Stake = host.Stake.Add(amount)
	if err := k.setHost(ctx, host); err != nil {
		return err
	}

	ctx.EventManager().EmitEvent(sdk.NewEvent(
		types.EventTypeHostStaked,
		sdk.NewAttribute(types.AttributeKeyHost, caller.String()),
		sdk.NewAttribute(types.AttributeKeyAmount, amount.String()),
		sdk.NewAttribute(types.AttributeKeyStake, host.Stake.String()),
	))
	return nil
}

// UpdatePricing sets the caller's price per unit for a denom. A non-empty
// modelID targets the per-model override; a zero price there clears the
// override so the model falls back to the default.
func (k Keeper) UpdatePricing(ctx sdk.Context, caller sdk.AccAddress, denom string, price math.Int, modelID string) error {
	host, found := k.GetHost(ctx, caller)
	if !found {
		return errorsmod.Wrapf(types.ErrNotRegistered, "host %s", caller)
	}

	params, err := k.GetParams(ctx)
	if err != nil {
		return err
	}
	if _, ok := params.AcceptsDenom(denom); !ok {
		return errorsmod.Wrapf(types.ErrTokenNotAccepted, "denom %s", denom)
	}

	if modelID != "" {
		if !host.SupportsModel(modelID) {
			return errorsmod.Wrapf(types.ErrModelNotSupported, "model %s", modelID)
		}
		if price.IsNil() || price.IsZero() {
			if overrides, ok := host.ModelPrices[modelID]; ok {
				delete(overrides, denom)
				if len(overrides) == 0 {
					delete(host.ModelPrices, modelID)
				}
			}
		} else {
			if err := validatePriceBounds(params, price); err != nil {
				return err
			}
			if host.ModelPrices == nil {
				host.ModelPrices = make(map[string]map[string]math.Int)
			}
			if host.ModelPrices[modelID] == nil {
				host.ModelPrices[modelID] = make(map[string]math.Int)
			}
			host.ModelPrices[modelID][denom] = price
		}
	} else {
		if err := validatePriceBounds(params, price); err != nil {
			return err
		}
		if host.Prices == nil {
			host.Prices = make(map[string]math.Int)
		}
		host.Prices[denom] = price
	}

	if err := k.setHost(ctx, host); err != nil {
		return err
	}

	ctx.EventManager().EmitEvent(sdk.NewEvent(
		types.EventTypeHostPricingUpdated,
		sdk.NewAttribute(types.AttributeKeyHost, caller.String()),
		sdk.NewAttribute(types.AttributeKeyDenom, denom),
		sdk.NewAttribute(types.AttributeKeyPrice, price.String()),
		sdk.NewAttribute(types.AttributeKeyModelID, modelID),
	))
	return nil
}

// UpdateHostInfo replaces the caller's metadata and/or endpoint. Empty fields
// keep their current value.
func (k Keeper) UpdateHostInfo(ctx sdk.Context, caller sdk.AccAddress, metadata, endpoint string) error {
	host, found := k.GetHost(ctx, caller)
	if !found {
		return errorsmod.Wrapf(types.ErrNotRegistered, "host %s", caller)
	}
	if metadata == "" && endpoint == "" {
		return errorsmod.Wrap(types.ErrMetadataRequired, "nothing to update")
	}

	if metadata != "" {
		host.Metadata = metadata
	}
	if endpoint != "" {
		host.Endpoint = endpoint
	}
	if err := k.setHost(ctx, host); err != nil {
		return err
	}

	ctx.EventManager().EmitEvent(sdk.NewEvent(
		types.EventTypeHostInfoUpdated,
		sdk.NewAttribute(types.AttributeKeyHost, caller.String()),
		sdk.NewAttribute(types.AttributeKeyEndpoint, host.Endpoint),
	))
	return nil
}

func validatePriceBounds(params types.Params, price math.Int) error {
	if price.IsNil() || !price.IsPositive() {
		return errorsmod.Wrap(types.ErrInvalidPrice, "price must be positive")
	}
	if price.LT(params.MinPricePerUnit) || price.GT(params.MaxPricePerUnit) {
		return errorsmod.Wrapf(types.ErrPriceOutOfRange,
			"price %s outside [%s, %s]", price, params.MinPricePerUnit, params.MaxPricePerUnit)
	}
	return nil
}
