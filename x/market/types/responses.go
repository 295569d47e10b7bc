package types

import (
	"context"

	"cosmossdk.io/math"
)

// Msg handler responses.

type MsgRegisterHostResponse struct{}

type MsgUnregisterHostResponse struct {
	ReturnedStake math.Int `json:"returned_stake"`
}

type MsgAddStakeResponse struct {
	NewStake math.Int `json:"new_stake"`
}

type MsgUpdatePricingResponse struct{}

type MsgUpdateHostInfoResponse struct{}

type MsgCreateSessionResponse struct {
	SessionId uint64 `json:"session_id"`
}

type MsgSubmitProofResponse struct {
	// AcceptedUnits is the unit count actually billed after clamping to the
	// deposit; TotalUnits is the session's cumulative billed total.
	AcceptedUnits uint64 `json:"accepted_units"`
	TotalUnits    uint64 `json:"total_units"`
}

type MsgSubmitProofBatchResponse struct {
	AcceptedUnits uint64 `json:"accepted_units"`
	TotalUnits    uint64 `json:"total_units"`
}

type MsgCompleteSessionResponse struct {
	Cost      math.Int `json:"cost"`
	Fee       math.Int `json:"fee"`
	HostShare math.Int `json:"host_share"`
	Refund    math.Int `json:"refund"`
}

type MsgCancelSessionResponse struct{}

type MsgOpenChallengeResponse struct {
	ChallengeId uint64 `json:"challenge_id"`
}

type MsgResolveChallengeResponse struct{}

type MsgExpireChallengeResponse struct{}

type MsgWithdrawEarningsResponse struct {
	Amount math.Int `json:"amount"`
}

type MsgWithdrawAllEarningsResponse struct {
	Withdrawn []EarningsBalance `json:"withdrawn"`
}

type MsgSlashHostResponse struct {
	SlashId          uint64   `json:"slash_id"`
	AutoDeregistered bool     `json:"auto_deregistered"`
	Remainder        math.Int `json:"remainder"`
}

type MsgUpdateParamsResponse struct{}

// MsgServer is the transaction surface of the market module.
type MsgServer interface {
	RegisterHost(context.Context, *MsgRegisterHost) (*MsgRegisterHostResponse, error)
	UnregisterHost(context.Context, *MsgUnregisterHost) (*MsgUnregisterHostResponse, error)
	AddStake(context.Context, *MsgAddStake) (*MsgAddStakeResponse, error)
	UpdatePricing(context.Context, *MsgUpdatePricing) (*MsgUpdatePricingResponse, error)
	UpdateHostInfo(context.Context, *MsgUpdateHostInfo) (*MsgUpdateHostInfoResponse, error)
	CreateSession(context.Context, *MsgCreateSession) (*MsgCreateSessionResponse, error)
	SubmitProof(context.Context, *MsgSubmitProof) (*MsgSubmitProofResponse, error)
	SubmitProofBatch(context.Context, *MsgSubmitProofBatch) (*MsgSubmitProofBatchResponse, error)
	CompleteSession(context.Context, *MsgCompleteSession) (*MsgCompleteSessionResponse, error)
	CancelSession(context.Context, *MsgCancelSession) (*MsgCancelSessionResponse, error)
	OpenChallenge(context.Context, *MsgOpenChallenge) (*MsgOpenChallengeResponse, error)
	ResolveChallenge(context.Context, *MsgResolveChallenge) (*MsgResolveChallengeResponse, error)
	ExpireChallenge(context.Context, *MsgExpireChallenge) (*MsgExpireChallengeResponse, error)
	WithdrawEarnings(context.Context, *MsgWithdrawEarnings) (*MsgWithdrawEarningsResponse, error)
	WithdrawAllEarnings(context.Context, *MsgWithdrawAllEarnings) (*MsgWithdrawAllEarningsResponse, error)
	SlashHost(context.Context, *MsgSlashHost) (*MsgSlashHostResponse, error)
	UpdateParams(context.Context, *MsgUpdateParams) (*MsgUpdateParamsResponse, error)
}
