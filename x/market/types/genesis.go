package types

import (
	"fmt"

	sdk "github.com/cosmos/cosmos-sdk/types"
)

// GenesisState is the full exported state of the market module.
type GenesisState struct {
	Params          Params            `json:"params"`
	Hosts           []Host            `json:"hosts,omitempty"`
	Sessions        []Session         `json:"sessions,omitempty"`
	ProofRecords    []ProofRecord     `json:"proof_records,omitempty"`
	Challenges      []Challenge       `json:"challenges,omitempty"`
	SlashRecords    []SlashRecord     `json:"slash_records,omitempty"`
	Earnings        []EarningsBalance `json:"earnings,omitempty"`
	NextSessionId   uint64            `json:"next_session_id"`
	NextChallengeId uint64            `json:"next_challenge_id"`
	NextSlashId     uint64            `json:"next_slash_id"`
}

// DefaultGenesisState returns the default genesis state with empty
// collections and default parameters.
func DefaultGenesisState() *GenesisState {
	return &GenesisState{
		Params:          DefaultParams(),
		NextSessionId:   1,
		NextChallengeId: 1,
		NextSlashId:     1,
	}
}

// Validate checks the genesis state for internal consistency.
func (gs GenesisState) Validate() error {
	if err := gs.Params.Validate(); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}

	hostSeen := make(map[string]struct{}, len(gs.Hosts))
	for _, host := range gs.Hosts {
		if _, err := sdk.AccAddressFromBech32(host.Address); err != nil {
			return fmt.Errorf("invalid host address %q: %w", host.Address, err)
		}
		if _, dup := hostSeen[host.Address]; dup {
			return fmt.Errorf("duplicate host %s", host.Address)
		}
		hostSeen[host.Address] = struct{}{}
		if host.Stake.IsNil() || host.Stake.IsNegative() {
			return fmt.Errorf("host %s has negative stake", host.Address)
		}
	}

	sessionSeen := make(map[uint64]struct{}, len(gs.Sessions))
	for _, session := range gs.Sessions {
		if session.Id == 0 || session.Id >= gs.NextSessionId {
			return fmt.Errorf("session id %d outside counter range", session.Id)
		}
		if _, dup := sessionSeen[session.Id]; dup {
			return fmt.Errorf("duplicate session %d", session.Id)
		}
		sessionSeen[session.Id] = struct{}{}
		if session.Deposit.IsNil() || session.Deposit.IsNegative() {
			return fmt.Errorf("session %d has negative deposit", session.Id)
		}
		if session.PricePerUnit.IsNil() || !session.PricePerUnit.IsPositive() {
			return fmt.Errorf("session %d has non-positive price", session.Id)
		}
		if session.UnitsConsumed > session.MaxBillableUnits() {
			return fmt.Errorf("session %d consumed units exceed deposit coverage", session.Id)
		}
	}

	proofSeen := make(map[string]struct{}, len(gs.ProofRecords))
	for _, record := range gs.ProofRecords {
		if record.Hash == "" {
			return fmt.Errorf("proof record with empty hash")
		}
		if _, dup := proofSeen[record.Hash]; dup {
			return fmt.Errorf("duplicate proof record %s", record.Hash)
		}
		proofSeen[record.Hash] = struct{}{}
		if record.CreditedUnits > record.Units {
			return fmt.Errorf("proof record %s credits %d units but claims %d",
				record.Hash, record.CreditedUnits, record.Units)
		}
	}

	challengeSeen := make(map[uint64]struct{}, len(gs.Challenges))
	for _, challenge := range gs.Challenges {
		if challenge.Id == 0 || challenge.Id >= gs.NextChallengeId {
			return fmt.Errorf("challenge id %d outside counter range", challenge.Id)
		}
		if _, dup := challengeSeen[challenge.Id]; dup {
			return fmt.Errorf("duplicate challenge %d", challenge.Id)
		}
		challengeSeen[challenge.Id] = struct{}{}
		if _, recorded := proofSeen[challenge.ProofHash]; !recorded {
			return fmt.Errorf("challenge %d references unknown proof %s", challenge.Id, challenge.ProofHash)
		}
		if challenge.Bond.IsNil() || challenge.Bond.IsNegative() {
			return fmt.Errorf("challenge %d has negative bond", challenge.Id)
		}
	}

	for _, balance := range gs.Earnings {
		if _, err := sdk.AccAddressFromBech32(balance.Host); err != nil {
			return fmt.Errorf("invalid earnings host %q: %w", balance.Host, err)
		}
		if err := sdk.ValidateDenom(balance.Denom); err != nil {
			return fmt.Errorf("invalid earnings denom %q: %w", balance.Denom, err)
		}
		if balance.Amount.IsNil() || balance.Amount.IsNegative() {
			return fmt.Errorf("negative earnings for %s/%s", balance.Host, balance.Denom)
		}
	}

	if gs.NextSessionId == 0 || gs.NextChallengeId == 0 || gs.NextSlashId == 0 {
		return fmt.Errorf("id counters must start at 1")
	}
	return nil
}
