package types

import (
	errorsmod "cosmossdk.io/errors"
)

// Marketplace sentinel errors. Every mutating operation fails with exactly one
// of these, wrapped with call-site context.
var (
	// Registry errors
	ErrAlreadyRegistered = errorsmod.Register(ModuleName, 2, "host already registered")
	ErrNotRegistered     = errorsmod.Register(ModuleName, 3, "host not registered")
	ErrInvalidModel      = errorsmod.Register(ModuleName, 4, "model not in approved catalog")
	ErrPriceOutOfRange   = errorsmod.Register(ModuleName, 5, "price outside allowed bounds")
	ErrMetadataRequired  = errorsmod.Register(ModuleName, 6, "metadata must not be empty")
	ErrEndpointRequired  = errorsmod.Register(ModuleName, 7, "endpoint must not be empty")

	// Slashing errors
	ErrNotAuthorized      = errorsmod.Register(ModuleName, 10, "caller not authorized")
	ErrAmountExceedsStake = errorsmod.Register(ModuleName, 11, "slash amount exceeds stake")
	ErrExceedsMaxSlash    = errorsmod.Register(ModuleName, 12, "slash amount exceeds per-event cap")
	ErrCooldownActive     = errorsmod.Register(ModuleName, 13, "slash cooldown has not elapsed")
	ErrEvidenceRequired   = errorsmod.Register(ModuleName, 14, "slash evidence must not be empty")
	ErrReasonRequired     = errorsmod.Register(ModuleName, 15, "slash reason must not be empty")

	// Session errors
	ErrInvalidHost          = errorsmod.Register(ModuleName, 20, "invalid host address")
	ErrHostNotRegistered    = errorsmod.Register(ModuleName, 21, "host not registered or inactive")
	ErrInvalidPrice         = errorsmod.Register(ModuleName, 22, "invalid price per unit")
	ErrInvalidDuration      = errorsmod.Register(ModuleName, 23, "session duration out of bounds")
	ErrInvalidProofInterval = errorsmod.Register(ModuleName, 24, "proof interval out of bounds")
	ErrTokenNotAccepted     = errorsmod.Register(ModuleName, 25, "denom not accepted for settlement")
	ErrInsufficientDeposit  = errorsmod.Register(ModuleName, 26, "deposit cannot cover a billing unit")
	ErrModelNotSupported    = errorsmod.Register(ModuleName, 27, "host does not serve the model")
	ErrSessionNotFound      = errorsmod.Register(ModuleName, 28, "session not found")
	ErrSessionNotActive     = errorsmod.Register(ModuleName, 29, "session is not active")
	ErrNotAssignedHost      = errorsmod.Register(ModuleName, 30, "caller is not the session host")
	ErrNotDepositor         = errorsmod.Register(ModuleName, 31, "caller is not the session depositor")
	ErrSessionExpired       = errorsmod.Register(ModuleName, 32, "session deadline has passed")
	ErrSessionStarted       = errorsmod.Register(ModuleName, 33, "session has accepted proofs already")
	ErrDeadlineNotReached   = errorsmod.Register(ModuleName, 34, "session deadline has not passed")

	// Proof errors
	ErrInvalidProof  = errorsmod.Register(ModuleName, 40, "proof failed structural verification")
	ErrReplayedProof = errorsmod.Register(ModuleName, 41, "proof hash already verified")
	ErrBatchTooLarge = errorsmod.Register(ModuleName, 42, "proof batch exceeds maximum size")
	ErrBatchMismatch = errorsmod.Register(ModuleName, 43, "proof batch arrays do not line up")

	// Challenge errors
	ErrProofNotFound       = errorsmod.Register(ModuleName, 50, "proof hash not recorded")
	ErrProofNotVerified    = errorsmod.Register(ModuleName, 51, "proof is not in verified state")
	ErrChallengeNotFound   = errorsmod.Register(ModuleName, 52, "challenge not found")
	ErrChallengeNotPending = errorsmod.Register(ModuleName, 53, "challenge already resolved")
	ErrChallengeExists     = errorsmod.Register(ModuleName, 54, "proof already under challenge")
	ErrChallengeNotExpired = errorsmod.Register(ModuleName, 55, "challenge deadline has not passed")

	// Earnings errors
	ErrInsufficientBalance = errorsmod.Register(ModuleName, 60, "withdrawal exceeds accumulated earnings")

	// Generic validation / infrastructure errors
	ErrInvalidAmount = errorsmod.Register(ModuleName, 70, "amount must be positive")
	ErrInvalidParams = errorsmod.Register(ModuleName, 71, "invalid module parameters")
	ErrStorageFailed = errorsmod.Register(ModuleName, 72, "state encoding failed")
	ErrLedgerFailed  = errorsmod.Register(ModuleName, 73, "ledger transfer failed")
)
