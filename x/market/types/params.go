package types

import (
	"fmt"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// Basis-point denominator used by fee and slash-cap math.
const BpsDenominator = 10_000

// AcceptedDenom is an asset the marketplace settles in, with the smallest
// transfer the ledger will carry for it.
type AcceptedDenom struct {
	Denom       string   `json:"denom"`
	MinTransfer math.Int `json:"min_transfer"`
}

// Params holds the marketplace configuration. Parameter changes arrive as
// already-validated writes from the module authority.
type Params struct {
	// Host staking.
	MinStake     math.Int `json:"min_stake"`
	UnstakeFloor math.Int `json:"unstake_floor"`

	// Slashing.
	MaxSlashBps          uint32 `json:"max_slash_bps"`
	SlashCooldownSeconds int64  `json:"slash_cooldown_seconds"`
	// SlashAuthority is the only address allowed to execute slashes. Empty
	// delegates to the module authority.
	SlashAuthority string `json:"slash_authority,omitempty"`

	// Settlement.
	FeeBps uint32 `json:"fee_bps"`

	// Pricing bounds, applied per unit in every accepted denom.
	MinPricePerUnit math.Int `json:"min_price_per_unit"`
	MaxPricePerUnit math.Int `json:"max_price_per_unit"`

	// Catalog of model ids hosts may register for.
	AllowedModels []string `json:"allowed_models"`

	// BondDenom is the native staking/bonding asset; AcceptedDenoms lists
	// every asset sessions may be paid in (the bond denom included).
	BondDenom      string          `json:"bond_denom"`
	AcceptedDenoms []AcceptedDenom `json:"accepted_denoms"`

	// Session bounds, in seconds.
	MinSessionDuration int64 `json:"min_session_duration"`
	MaxSessionDuration int64 `json:"max_session_duration"`
	MinProofInterval   int64 `json:"min_proof_interval"`
	MaxProofInterval   int64 `json:"max_proof_interval"`

	// Proof verification.
	MinProofBytes uint32 `json:"min_proof_bytes"`
	MaxProofBatch uint32 `json:"max_proof_batch"`

	// Challenges.
	ChallengeBond          math.Int `json:"challenge_bond"`
	ChallengePeriodSeconds int64    `json:"challenge_period_seconds"`
}

// DefaultParams returns the default marketplace parameters.
func DefaultParams() Params {
	return Params{
		MinStake:             math.NewInt(1_000_000), // 1 MESH
		UnstakeFloor:         math.NewInt(100_000),
		MaxSlashBps:          5_000, // a single slash takes at most half the stake
		SlashCooldownSeconds: 86_400,
		FeeBps:               1_000, // 10%
		MinPricePerUnit:      math.NewInt(1),
		MaxPricePerUnit:      math.NewInt(1_000_000),
		AllowedModels:        []string{},
		BondDenom:            "umesh",
		AcceptedDenoms: []AcceptedDenom{
			{Denom: "umesh", MinTransfer: math.NewInt(1)},
		},
		MinSessionDuration:     60,
		MaxSessionDuration:     86_400,
		MinProofInterval:       10,
		MaxProofInterval:       3_600,
		MinProofBytes:          64,
		MaxProofBatch:          32,
		ChallengeBond:          math.NewInt(100_000),
		ChallengePeriodSeconds: 3_600,
	}
}

// AcceptsDenom reports whether the denom is configured for settlement and
// returns its minimum transfer amount.
func (p Params) AcceptsDenom(denom string) (math.Int, bool) {
	for _, d := range p.AcceptedDenoms {
		if d.Denom == denom {
			return d.MinTransfer, true
		}
	}
	return math.ZeroInt(), false
}

// ModelAllowed reports whether the model id is in the approved catalog.
func (p Params) ModelAllowed(modelID string) bool {
	for _, m := range p.AllowedModels {
		if m == modelID {
			return true
		}
	}
	return false
}

// Validate performs basic sanity checks on the parameter set.
func (p Params) Validate() error {
	if p.MinStake.IsNil() || !p.MinStake.IsPositive() {
		return fmt.Errorf("min stake must be positive, got %s", p.MinStake)
	}
	if p.UnstakeFloor.IsNil() || p.UnstakeFloor.IsNegative() {
		return fmt.Errorf("unstake floor must be non-negative, got %s", p.UnstakeFloor)
	}
	if p.UnstakeFloor.GT(p.MinStake) {
		return fmt.Errorf("unstake floor %s exceeds min stake %s", p.UnstakeFloor, p.MinStake)
	}
	if p.MaxSlashBps == 0 || p.MaxSlashBps > BpsDenominator {
		return fmt.Errorf("max slash bps must be in (0, %d], got %d", BpsDenominator, p.MaxSlashBps)
	}
	if p.SlashCooldownSeconds < 0 {
		return fmt.Errorf("slash cooldown must be non-negative, got %d", p.SlashCooldownSeconds)
	}
	if p.SlashAuthority != "" {
		if _, err := sdk.AccAddressFromBech32(p.SlashAuthority); err != nil {
			return fmt.Errorf("invalid slash authority address: %w", err)
		}
	}
	if p.FeeBps > BpsDenominator {
		return fmt.Errorf("fee bps must not exceed %d, got %d", BpsDenominator, p.FeeBps)
	}
	if p.MinPricePerUnit.IsNil() || !p.MinPricePerUnit.IsPositive() {
		return fmt.Errorf("min price per unit must be positive, got %s", p.MinPricePerUnit)
	}
	if p.MaxPricePerUnit.IsNil() || p.MaxPricePerUnit.LT(p.MinPricePerUnit) {
		return fmt.Errorf("max price per unit %s below min %s", p.MaxPricePerUnit, p.MinPricePerUnit)
	}
	if err := sdk.ValidateDenom(p.BondDenom); err != nil {
		return fmt.Errorf("invalid bond denom: %w", err)
	}
	bondAccepted := false
	seen := make(map[string]struct{}, len(p.AcceptedDenoms))
	for _, d := range p.AcceptedDenoms {
		if err := sdk.ValidateDenom(d.Denom); err != nil {
			return fmt.Errorf("invalid accepted denom %q: %w", d.Denom, err)
		}
		if _, dup := seen[d.Denom]; dup {
			return fmt.Errorf("duplicate accepted denom %q", d.Denom)
		}
		seen[d.Denom] = struct{}{}
		if d.MinTransfer.IsNil() || d.MinTransfer.IsNegative() {
			return fmt.Errorf("min transfer for %q must be non-negative", d.Denom)
		}
		if d.Denom == p.BondDenom {
			bondAccepted = true
		}
	}
	if !bondAccepted {
		return fmt.Errorf("bond denom %q must be in the accepted denom list", p.BondDenom)
	}
	if p.MinSessionDuration <= 0 || p.MaxSessionDuration < p.MinSessionDuration {
		return fmt.Errorf("invalid session duration bounds [%d, %d]", p.MinSessionDuration, p.MaxSessionDuration)
	}
	if p.MinProofInterval <= 0 || p.MaxProofInterval < p.MinProofInterval {
		return fmt.Errorf("invalid proof interval bounds [%d, %d]", p.MinProofInterval, p.MaxProofInterval)
	}
	if p.MinProofBytes == 0 {
		return fmt.Errorf("min proof bytes must be positive")
	}
	if p.MaxProofBatch == 0 {
		return fmt.Errorf("max proof batch must be positive")
	}
	if p.ChallengeBond.IsNil() || !p.ChallengeBond.IsPositive() {
		return fmt.Errorf("challenge bond must be positive, got %s", p.ChallengeBond)
	}
	if p.ChallengePeriodSeconds <= 0 {
		return fmt.Errorf("challenge period must be positive, got %d", p.ChallengePeriodSeconds)
	}
	return nil
}
