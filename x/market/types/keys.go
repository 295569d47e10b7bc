package types

const (
	// ModuleName defines the module name
	ModuleName = "market"

	// StoreKey defines the primary module store key
	StoreKey = ModuleName

	// TreasuryPoolName is the module account that accumulates slashed stake
	// and forfeited challenge bonds.
	TreasuryPoolName = "market_treasury"
)
