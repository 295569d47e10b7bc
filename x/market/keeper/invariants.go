package keeper

import (
	"fmt"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/tensormesh/tensormesh/x/market/types"
)

// RegisterInvariants registers the market module invariants
func RegisterInvariants(ir sdk.InvariantRegistry, k Keeper) {
	ir.RegisterRoute(types.ModuleName, "module-balance", ModuleBalanceInvariant(k))
	ir.RegisterRoute(types.ModuleName, "session-accounting", SessionAccountingInvariant(k))
	ir.RegisterRoute(types.ModuleName, "host-stake", HostStakeInvariant(k))
}

// AllInvariants runs every market invariant in sequence.
func AllInvariants(k Keeper) sdk.Invariant {
	return func(ctx sdk.Context) (string, bool) {
		if msg, broken := ModuleBalanceInvariant(k)(ctx); broken {
			return msg, broken
		}
		if msg, broken := SessionAccountingInvariant(k)(ctx); broken {
			return msg, broken
		}
		return HostStakeInvariant(k)(ctx)
	}
}

// ModuleBalanceInvariant checks that the module account holds at least the
// sum of locked stakes, active session deposits, accumulated earnings and
// pending challenge bonds, per denom.
func ModuleBalanceInvariant(k Keeper) sdk.Invariant {
	return func(ctx sdk.Context) (string, bool) {
		params, err := k.GetParams(ctx)
		if err != nil {
			return sdk.FormatInvariant(types.ModuleName, "module-balance",
				fmt.Sprintf("failed to load params: %v", err)), true
		}

		expected := make(map[string]math.Int)
		add := func(denom string, amount math.Int) {
			cur, ok := expected[denom]
			if !ok {
				cur = math.ZeroInt()
			}
			expected[denom] = cur.Add(amount)
		}

		k.IterateHosts(ctx, func(host types.Host) bool {
			add(params.BondDenom, host.Stake)
			return false
		})
		k.IterateSessions(ctx, func(session types.Session) bool {
			if session.Status == types.SessionStatusActive {
				add(session.Denom, session.Deposit)
			}
			return false
		})
		k.IterateEarnings(ctx, func(balance types.EarningsBalance) bool {
			add(balance.Denom, balance.Amount)
			return false
		})
		k.IterateChallenges(ctx, func(challenge types.Challenge) bool {
			if challenge.Status == types.ChallengeStatusPending {
				add(params.BondDenom, challenge.Bond)
			}
			return false
		})

		moduleAddr := k.accountKeeper.GetModuleAddress(types.ModuleName)
		for denom, want := range expected {
			held := k.bankKeeper.GetBalance(ctx, moduleAddr, denom).Amount
			if held.LT(want) {
				return sdk.FormatInvariant(types.ModuleName, "module-balance",
					fmt.Sprintf("module account holds %s%s, obligations total %s%s",
						held, denom, want, denom)), true
			}
		}
		return sdk.FormatInvariant(types.ModuleName, "module-balance",
			"module account covers all obligations"), false
	}
}

// SessionAccountingInvariant checks that no session has billed more than its
// deposit can pay for.
func SessionAccountingInvariant(k Keeper) sdk.Invariant {
	return func(ctx sdk.Context) (string, bool) {
		var msg string
		broken := false
		k.IterateSessions(ctx, func(session types.Session) bool {
			cost := session.PricePerUnit.Mul(math.NewIntFromUint64(session.UnitsConsumed))
			if cost.GT(session.Deposit) {
				msg = fmt.Sprintf("session %d billed %s, deposit %s",
					session.Id, cost, session.Deposit)
				broken = true
				return true
			}
			return false
		})
		if broken {
			return sdk.FormatInvariant(types.ModuleName, "session-accounting", msg), true
		}
		return sdk.FormatInvariant(types.ModuleName, "session-accounting",
			"all sessions within deposit coverage"), false
	}
}

// HostStakeInvariant checks that active hosts sit at or above the unstake
// floor and that no stake is negative.
func HostStakeInvariant(k Keeper) sdk.Invariant {
	return func(ctx sdk.Context) (string, bool) {
		params, err := k.GetParams(ctx)
		if err != nil {
			return sdk.FormatInvariant(types.ModuleName, "host-stake",
				fmt.Sprintf("failed to load params: %v", err)), true
		}

		var msg string
		broken := false
		k.IterateHosts(ctx, func(host types.Host) bool {
			if host.Stake.IsNegative() {
				msg = fmt.Sprintf("host %s has negative stake %s", host.Address, host.Stake)
				broken = true
				return true
			}
			if host.Active && host.Stake.LT(params.UnstakeFloor) {
				msg = fmt.Sprintf("active host %s below unstake floor: %s < %s",
					host.Address, host.Stake, params.UnstakeFloor)
				broken = true
				return true
			}
			return false
		})
		if broken {
			return sdk.FormatInvariant(types.ModuleName, "host-stake", msg), true
		}
		return sdk.FormatInvariant(types.ModuleName, "host-stake",
			"all host stakes consistent"), false
	}
}
