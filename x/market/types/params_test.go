package types_test

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/tensormesh/tensormesh/x/market/types"
)

func TestDefaultParamsValidate(t *testing.T) {
	require.NoError(t, types.DefaultParams().Validate())
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*types.Params)
		contains string
	}{
		{"zero min stake", func(p *types.Params) { p.MinStake = math.ZeroInt() }, "min stake"},
		{"negative floor", func(p *types.Params) { p.UnstakeFloor = math.NewInt(-1) }, "unstake floor"},
		{"floor above min stake", func(p *types.Params) { p.UnstakeFloor = p.MinStake.AddRaw(1) }, "exceeds min stake"},
		{"zero slash cap", func(p *types.Params) { p.MaxSlashBps = 0 }, "max slash bps"},
		{"slash cap over 100%", func(p *types.Params) { p.MaxSlashBps = 10_001 }, "max slash bps"},
		{"negative cooldown", func(p *types.Params) { p.SlashCooldownSeconds = -1 }, "slash cooldown"},
		{"bad slash authority", func(p *types.Params) { p.SlashAuthority = "not-bech32" }, "slash authority"},
		{"fee over 100%", func(p *types.Params) { p.FeeBps = 10_001 }, "fee bps"},
		{"zero min price", func(p *types.Params) { p.MinPricePerUnit = math.ZeroInt() }, "min price"},
		{"max price below min", func(p *types.Params) { p.MaxPricePerUnit = math.ZeroInt() }, "max price"},
		{"bad bond denom", func(p *types.Params) { p.BondDenom = "" }, "bond denom"},
		{"duplicate accepted denom", func(p *types.Params) {
			p.AcceptedDenoms = append(p.AcceptedDenoms, p.AcceptedDenoms[0])
		}, "duplicate"},
		{"bond denom not accepted", func(p *types.Params) {
			p.AcceptedDenoms = []types.AcceptedDenom{{Denom: "uatom", MinTransfer: math.NewInt(1)}}
		}, "must be in the accepted denom list"},
		{"inverted session bounds", func(p *types.Params) { p.MaxSessionDuration = 1 }, "session duration"},
		{"inverted interval bounds", func(p *types.Params) { p.MaxProofInterval = 1 }, "proof interval"},
		{"zero proof bytes", func(p *types.Params) { p.MinProofBytes = 0 }, "proof bytes"},
		{"zero batch cap", func(p *types.Params) { p.MaxProofBatch = 0 }, "proof batch"},
		{"zero challenge bond", func(p *types.Params) { p.ChallengeBond = math.ZeroInt() }, "challenge bond"},
		{"zero challenge period", func(p *types.Params) { p.ChallengePeriodSeconds = 0 }, "challenge period"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			params := types.DefaultParams()
			tc.mutate(&params)
			err := params.Validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.contains)
		})
	}
}

func TestParamsAcceptsDenom(t *testing.T) {
	params := types.DefaultParams()

	minTransfer, ok := params.AcceptsDenom("umesh")
	require.True(t, ok)
	require.Equal(t, math.NewInt(1), minTransfer)

	_, ok = params.AcceptsDenom("uatom")
	require.False(t, ok)
}

func TestParamsModelAllowed(t *testing.T) {
	params := types.DefaultParams()
	require.False(t, params.ModelAllowed("llama-70b"))

	params.AllowedModels = []string{"llama-70b"}
	require.True(t, params.ModelAllowed("llama-70b"))
	require.False(t, params.ModelAllowed("gpt-oss"))
}
