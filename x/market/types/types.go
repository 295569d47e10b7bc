package types

import (
	"time"

	"cosmossdk.io/math"
)

// SessionStatus is the lifecycle state of a session. Terminal states are
// absorbing: once a session leaves StatusActive its accounting is frozen.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusCancelled SessionStatus = "cancelled"
	SessionStatusExpired   SessionStatus = "expired"
)

// IsTerminal reports whether the status admits no further transitions.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusCancelled || s == SessionStatusExpired
}

// ProofStatus is the recorded verdict for a proof hash.
type ProofStatus string

const (
	ProofStatusVerified ProofStatus = "verified"
	ProofStatusInvalid  ProofStatus = "invalid"
)

// ChallengeStatus is the lifecycle state of a bonded challenge.
type ChallengeStatus string

const (
	ChallengeStatusPending    ChallengeStatus = "pending"
	ChallengeStatusSuccessful ChallengeStatus = "successful"
	ChallengeStatusFailed     ChallengeStatus = "failed"
)

// Host is a staked inference provider eligible to serve sessions.
//
// Invariants: Active implies Stake >= the registration minimum at the time of
// registration and Stake >= the unstake floor thereafter; Stake is never
// negative.
type Host struct {
	Address  string   `json:"address"`
	Stake    math.Int `json:"stake"`
	Active   bool     `json:"active"`
	Metadata string   `json:"metadata"`
	Endpoint string   `json:"endpoint"`
	Models   []string `json:"models"`

	// Prices maps an accepted denom to the host's default price per inference
	// unit in that denom.
	Prices map[string]math.Int `json:"prices"`

	// ModelPrices holds per-model price overrides keyed by model id, then
	// denom. A missing entry inherits the default from Prices.
	ModelPrices map[string]map[string]math.Int `json:"model_prices,omitempty"`

	LastSlashedAt time.Time `json:"last_slashed_at"`
	RegisteredAt  time.Time `json:"registered_at"`
}

// PriceFor resolves the host's effective price per unit for a denom, honoring
// a per-model override when modelID is non-empty. The second return is false
// when the host quotes no price for the denom at all.
func (h Host) PriceFor(denom, modelID string) (math.Int, bool) {
	if modelID != "" {
		if overrides, ok := h.ModelPrices[modelID]; ok {
			if p, ok := overrides[denom]; ok && !p.IsNil() && p.IsPositive() {
				return p, true
			}
		}
	}
	p, ok := h.Prices[denom]
	if !ok || p.IsNil() {
		return math.ZeroInt(), false
	}
	return p, true
}

// SupportsModel reports whether the host lists the given model id.
func (h Host) SupportsModel(modelID string) bool {
	for _, m := range h.Models {
		if m == modelID {
			return true
		}
	}
	return false
}

// Session is a deposit-backed, metered unit of work between one depositor and
// one host. UnitsConsumed * PricePerUnit never exceeds Deposit.
type Session struct {
	Id            uint64        `json:"id"`
	Depositor     string        `json:"depositor"`
	Host          string        `json:"host"`
	Denom         string        `json:"denom"`
	Deposit       math.Int      `json:"deposit"`
	PricePerUnit  math.Int      `json:"price_per_unit"`
	MaxDuration   int64         `json:"max_duration"`
	ProofInterval int64         `json:"proof_interval"`
	UnitsConsumed uint64        `json:"units_consumed"`
	Status        SessionStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	LastProofAt   time.Time     `json:"last_proof_at"`
	ModelId       string        `json:"model_id,omitempty"`
}

// Deadline is the instant after which anyone may settle the session.
func (s Session) Deadline() time.Time {
	return s.CreatedAt.Add(time.Duration(s.MaxDuration) * time.Second)
}

// MaxBillableUnits is the largest cumulative unit count the deposit can pay
// for at the session price, saturating at MaxUint64 for deposits past what a
// uint64 counter can meter.
func (s Session) MaxBillableUnits() uint64 {
	if s.PricePerUnit.IsNil() || !s.PricePerUnit.IsPositive() {
		return 0
	}
	return SaturateToUint64(s.Deposit.Quo(s.PricePerUnit))
}

// ProofRecord is the stored verdict for a single work receipt. A given hash
// is recorded at most once; later submissions of the same hash are replays.
//
// Units is the count the prover claimed; CreditedUnits is what the session
// actually billed after deposit clamping, and is what a successful challenge
// rolls back.
type ProofRecord struct {
	Hash          string      `json:"hash"`
	Prover        string      `json:"prover"`
	SessionId     uint64      `json:"session_id"`
	Units         uint64      `json:"units"`
	CreditedUnits uint64      `json:"credited_units"`
	Status        ProofStatus `json:"status"`
	VerifiedAt    time.Time   `json:"verified_at"`
}

// Challenge is a bonded dispute against a previously verified proof.
// Resolution is final; unresolved challenges fail at the deadline.
type Challenge struct {
	Id           uint64          `json:"id"`
	Challenger   string          `json:"challenger"`
	ProofHash    string          `json:"proof_hash"`
	EvidenceHash string          `json:"evidence_hash"`
	Bond         math.Int        `json:"bond"`
	Status       ChallengeStatus `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	Deadline     time.Time       `json:"deadline"`
}

// SlashRecord is the audit entry written for every executed slash.
type SlashRecord struct {
	Id               uint64    `json:"id"`
	Host             string    `json:"host"`
	Amount           math.Int  `json:"amount"`
	EvidenceRef      string    `json:"evidence_ref"`
	Reason           string    `json:"reason"`
	SlashedAt        time.Time `json:"slashed_at"`
	AutoDeregistered bool      `json:"auto_deregistered"`
	Remainder        math.Int  `json:"remainder"`
}

// EarningsBalance is a host's accumulated withdrawable settlement value in a
// single denom. Exported for genesis round-trips; live balances are stored
// under composite (host, denom) keys.
type EarningsBalance struct {
	Host   string   `json:"host"`
	Denom  string   `json:"denom"`
	Amount math.Int `json:"amount"`
}

// SettlementBreakdown reports the exact split produced by settling a session.
// HostShare + Fee + Refund always equals the session deposit.
type SettlementBreakdown struct {
	Cost      math.Int `json:"cost"`
	Fee       math.Int `json:"fee"`
	HostShare math.Int `json:"host_share"`
	Refund    math.Int `json:"refund"`
}
