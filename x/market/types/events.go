package types

// Event types for the market module, module_action format.
const (
	EventTypeHostRegistered       = "market_host_registered"
	EventTypeHostUnregistered     = "market_host_unregistered"
	EventTypeHostStaked           = "market_host_staked"
	EventTypeHostPricingUpdated   = "market_host_pricing_updated"
	EventTypeHostInfoUpdated      = "market_host_info_updated"
	EventTypeHostSlashed          = "market_host_slashed"
	EventTypeHostAutoDeregistered = "market_host_auto_deregistered"

	EventTypeSessionCreated   = "market_session_created"
	EventTypeProofAccepted    = "market_proof_accepted"
	EventTypeSessionCompleted = "market_session_completed"
	EventTypeSessionCancelled = "market_session_cancelled"
	EventTypeSessionExpired   = "market_session_expired"

	EventTypeProofVerified      = "market_proof_verified"
	EventTypeProofBatchVerified = "market_proof_batch_verified"

	EventTypeChallengeOpened   = "market_challenge_opened"
	EventTypeChallengeResolved = "market_challenge_resolved"
	EventTypeChallengeExpired  = "market_challenge_expired"

	EventTypeEarningsCredited  = "market_earnings_credited"
	EventTypeEarningsWithdrawn = "market_earnings_withdrawn"
)

// Event attribute keys.
const (
	AttributeKeyHost        = "host"
	AttributeKeyDepositor   = "depositor"
	AttributeKeyEndpoint    = "endpoint"
	AttributeKeyModels      = "models"
	AttributeKeyModelID     = "model_id"
	AttributeKeyStake       = "stake"
	AttributeKeyAmount      = "amount"
	AttributeKeyRemainder   = "remainder"
	AttributeKeyReason      = "reason"
	AttributeKeyEvidence    = "evidence"
	AttributeKeyDenom       = "denom"
	AttributeKeySessionID   = "session_id"
	AttributeKeyDeposit     = "deposit"
	AttributeKeyPrice       = "price_per_unit"
	AttributeKeyUnits       = "units"
	AttributeKeyTotalUnits  = "total_units"
	AttributeKeyCost        = "cost"
	AttributeKeyFee         = "fee"
	AttributeKeyHostShare   = "host_share"
	AttributeKeyRefund      = "refund"
	AttributeKeyProofHash   = "proof_hash"
	AttributeKeyProofHashes = "proof_hashes"
	AttributeKeyProver      = "prover"
	AttributeKeyChallengeID = "challenge_id"
	AttributeKeyChallenger  = "challenger"
	AttributeKeyBond        = "bond"
	AttributeKeyOutcome     = "outcome"
	AttributeKeyDeadline    = "deadline"
)
