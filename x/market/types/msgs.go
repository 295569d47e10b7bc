package types

import (
	"encoding/hex"
	"fmt"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// Message type URLs
const (
	TypeMsgRegisterHost        = "register_host"
	TypeMsgUnregisterHost      = "unregister_host"
	TypeMsgAddStake            = "add_stake"
	TypeMsgUpdatePricing       = "update_pricing"
	TypeMsgUpdateHostInfo      = "update_host_info"
	TypeMsgCreateSession       = "create_session"
	TypeMsgSubmitProof         = "submit_proof"
	TypeMsgSubmitProofBatch    = "submit_proof_batch"
	TypeMsgCompleteSession     = "complete_session"
	TypeMsgCancelSession       = "cancel_session"
	TypeMsgOpenChallenge       = "open_challenge"
	TypeMsgResolveChallenge    = "resolve_challenge"
	TypeMsgExpireChallenge     = "expire_challenge"
	TypeMsgWithdrawEarnings    = "withdraw_earnings"
	TypeMsgWithdrawAllEarnings = "withdraw_all_earnings"
	TypeMsgSlashHost           = "slash_host"
	TypeMsgUpdateParams        = "update_params"
)

// MsgRegisterHost registers the signer as a host, locking the minimum stake.
type MsgRegisterHost struct {
	Creator  string              `json:"creator"`
	Metadata string              `json:"metadata"`
	Endpoint string              `json:"endpoint"`
	Models   []string            `json:"models"`
	Prices   map[string]math.Int `json:"prices"`
}

// MsgUnregisterHost removes the signer from the registry and returns its stake.
type MsgUnregisterHost struct {
	Creator string `json:"creator"`
}

// MsgAddStake tops up the signer's stake.
type MsgAddStake struct {
	Creator string   `json:"creator"`
	Amount  math.Int `json:"amount"`
}

// MsgUpdatePricing sets the signer's price per unit for a denom. A non-empty
// ModelId targets the per-model override; a zero price there clears the
// override so the model inherits the default again.
type MsgUpdatePricing struct {
	Creator string   `json:"creator"`
	Denom   string   `json:"denom"`
	Price   math.Int `json:"price"`
	ModelId string   `json:"model_id,omitempty"`
}

// MsgUpdateHostInfo replaces the signer's metadata and/or endpoint. Empty
// fields are left unchanged.
type MsgUpdateHostInfo struct {
	Creator  string `json:"creator"`
	Metadata string `json:"metadata,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
}

// MsgCreateSession opens a deposit-backed session against a host.
type MsgCreateSession struct {
	Creator       string   `json:"creator"`
	Host          string   `json:"host"`
	Denom         string   `json:"denom"`
	Deposit       math.Int `json:"deposit"`
	PricePerUnit  math.Int `json:"price_per_unit"`
	MaxDuration   int64    `json:"max_duration"`
	ProofInterval int64    `json:"proof_interval"`
	ModelId       string   `json:"model_id,omitempty"`
}

// MsgSubmitProof submits a single work receipt for an active session.
type MsgSubmitProof struct {
	Creator   string `json:"creator"`
	SessionId uint64 `json:"session_id"`
	Proof     []byte `json:"proof"`
	Units     uint64 `json:"units"`
}

// MsgSubmitProofBatch submits several work receipts atomically; if any entry
// fails verification the whole batch is rejected.
type MsgSubmitProofBatch struct {
	Creator    string   `json:"creator"`
	SessionId  uint64   `json:"session_id"`
	Proofs     [][]byte `json:"proofs"`
	UnitCounts []uint64 `json:"unit_counts"`
}

// MsgCompleteSession settles a session. Host and depositor may settle at any
// time; any signer may settle once the deadline has passed.
type MsgCompleteSession struct {
	Creator   string `json:"creator"`
	SessionId uint64 `json:"session_id"`
}

// MsgCancelSession aborts a session before any proof was accepted, refunding
// the full deposit. Depositor only.
type MsgCancelSession struct {
	Creator   string `json:"creator"`
	SessionId uint64 `json:"session_id"`
}

// MsgOpenChallenge opens a bonded dispute against a verified proof.
type MsgOpenChallenge struct {
	Creator      string `json:"creator"`
	ProofHash    string `json:"proof_hash"`
	EvidenceHash string `json:"evidence_hash"`
}

// MsgResolveChallenge finalizes a pending challenge. Authority only.
type MsgResolveChallenge struct {
	Creator        string `json:"creator"`
	ChallengeId    uint64 `json:"challenge_id"`
	ChallengerWins bool   `json:"challenger_wins"`
}

// MsgExpireChallenge fails a pending challenge whose deadline has passed.
type MsgExpireChallenge struct {
	Creator     string `json:"creator"`
	ChallengeId uint64 `json:"challenge_id"`
}

// MsgWithdrawEarnings withdraws accumulated earnings in one denom. A nil
// amount withdraws the full balance.
type MsgWithdrawEarnings struct {
	Creator string   `json:"creator"`
	Denom   string   `json:"denom"`
	Amount  math.Int `json:"amount"`
}

// MsgWithdrawAllEarnings withdraws the full balance in each listed denom.
type MsgWithdrawAllEarnings struct {
	Creator string   `json:"creator"`
	Denoms  []string `json:"denoms"`
}

// MsgSlashHost confiscates part of a host's stake. Slash authority only.
type MsgSlashHost struct {
	Creator     string   `json:"creator"`
	Host        string   `json:"host"`
	Amount      math.Int `json:"amount"`
	EvidenceRef string   `json:"evidence_ref"`
	Reason      string   `json:"reason"`
}

// MsgUpdateParams replaces the module parameters. Module authority only.
type MsgUpdateParams struct {
	Authority string `json:"authority"`
	Params    Params `json:"params"`
}

var (
	_ sdk.Msg = &MsgRegisterHost{}
	_ sdk.Msg = &MsgUnregisterHost{}
	_ sdk.Msg = &MsgAddStake{}
	_ sdk.Msg = &MsgUpdatePricing{}
	_ sdk.Msg = &MsgUpdateHostInfo{}
	_ sdk.Msg = &MsgCreateSession{}
	_ sdk.Msg = &MsgSubmitProof{}
	_ sdk.Msg = &MsgSubmitProofBatch{}
	_ sdk.Msg = &MsgCompleteSession{}
	_ sdk.Msg = &MsgCancelSession{}
	_ sdk.Msg = &MsgOpenChallenge{}
	_ sdk.Msg = &MsgResolveChallenge{}
	_ sdk.Msg = &MsgExpireChallenge{}
	_ sdk.Msg = &MsgWithdrawEarnings{}
	_ sdk.Msg = &MsgWithdrawAllEarnings{}
	_ sdk.Msg = &MsgSlashHost{}
	_ sdk.Msg = &MsgUpdateParams{}
)

// ValidateBasic performs stateless validation of MsgRegisterHost.
func (msg *MsgRegisterHost) ValidateBasic() error {
	if _, err := sdk.AccAddressFromBech32(msg.Creator); err != nil {
		return fmt.Errorf("invalid creator address: %w", err)
	}
	if msg.Metadata == "" {
		return ErrMetadataRequired
	}
	if msg.Endpoint == "" {
		return ErrEndpointRequired
	}
	if len(msg.Models) == 0 {
		return ErrInvalidModel.Wrap("at least one model required")
	}
	if len(msg.Prices) == 0 {
		return ErrInvalidPrice.Wrap("at least one price required")
	}
	for denom, price := range msg.Prices {
		if err := sdk.ValidateDenom(denom); err != nil {
			return fmt.Errorf("invalid price denom %q: %w", denom, err)
		}
		if price.IsNil() || !price.IsPositive() {
			return ErrInvalidPrice.Wrapf("price for %s must be positive", denom)
		}
	}
	return nil
}

// ValidateBasic performs stateless validation of MsgUnregisterHost.
func (msg *MsgUnregisterHost) ValidateBasic() error {
	_, err := sdk.AccAddressFromBech32(msg.Creator)
	return err
}

// ValidateBasic performs stateless validation of MsgAddStake.
func (msg *MsgAddStake) ValidateBasic() error {
	if _, err := sdk.AccAddressFromBech32(msg.Creator); err != nil {
		return fmt.Errorf("invalid creator address: %w", err)
	}
	if msg.Amount.IsNil() || !msg.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// ValidateBasic performs stateless validation of MsgUpdatePricing.
func (msg *MsgUpdatePricing) ValidateBasic() error {
	if _, err := sdk.AccAddressFromBech32(msg.Creator); err != nil {
		return fmt.Errorf("invalid creator address: %w", err)
	}
	if err := sdk.ValidateDenom(msg.Denom); err != nil {
		return fmt.Errorf("invalid denom: %w", err)
	}
	if msg.Price.IsNil() || msg.Price.IsNegative() {
		return ErrInvalidPrice.Wrap("price must be non-negative")
	}
	if msg.ModelId == "" && msg.Price.IsZero() {
		return ErrInvalidPrice.Wrap("default price must be positive")
	}
	return nil
}

// ValidateBasic performs stateless validation of MsgUpdateHostInfo.
func (msg *MsgUpdateHostInfo) ValidateBasic() error {
	if _, err := sdk.AccAddressFromBech32(msg.Creator); err != nil {
		return fmt.Errorf("invalid creator address: %w", err)
	}
	if msg.Metadata == "" && msg.Endpoint == "" {
		return fmt.Errorf("nothing to update")
	}
	return nil
}

// ValidateBasic performs stateless validation of MsgCreateSession.
func (msg *MsgCreateSession) ValidateBasic() error {
	if _, err := sdk.AccAddressFromBech32(msg.Creator); err != nil {
		return fmt.Errorf("invalid creator address: %w", err)
	}
	if _, err := sdk.AccAddressFromBech32(msg.Host); err != nil {
		return ErrInvalidHost.Wrap(err.Error())
	}
	if err := sdk.ValidateDenom(msg.Denom); err != nil {
		return fmt.Errorf("invalid denom: %w", err)
	}
	if msg.Deposit.IsNil() || !msg.Deposit.IsPositive() {
		return ErrInsufficientDeposit.Wrap("deposit must be positive")
	}
	if msg.PricePerUnit.IsNil() || !msg.PricePerUnit.IsPositive() {
		return ErrInvalidPrice.Wrap("price per unit must be positive")
	}
	if msg.MaxDuration <= 0 {
		return ErrInvalidDuration.Wrapf("got %d", msg.MaxDuration)
	}
	if msg.ProofInterval <= 0 {
		return ErrInvalidProofInterval.Wrapf("got %d", msg.ProofInterval)
	}
	return nil
}

// ValidateBasic performs stateless validation of MsgSubmitProof.
func (msg *MsgSubmitProof) ValidateBasic() error {
	if _, err := sdk.AccAddressFromBech32(msg.Creator); err != nil {
		return fmt.Errorf("invalid creator address: %w", err)
	}
	if len(msg.Proof) == 0 {
		return ErrInvalidProof.Wrap("empty proof")
	}
	if msg.Units == 0 {
		return ErrInvalidProof.Wrap("claimed units must be positive")
	}
	return nil
}

// ValidateBasic performs stateless validation of MsgSubmitProofBatch.
func (msg *MsgSubmitProofBatch) ValidateBasic() error {
	if _, err := sdk.AccAddressFromBech32(msg.Creator); err != nil {
		return fmt.Errorf("invalid creator address: %w", err)
	}
	if len(msg.Proofs) == 0 {
		return ErrBatchMismatch.Wrap("empty batch")
	}
	if len(msg.Proofs) != len(msg.UnitCounts) {
		return ErrBatchMismatch.Wrapf("%d proofs, %d unit counts", len(msg.Proofs), len(msg.UnitCounts))
	}
	return nil
}

// ValidateBasic performs stateless validation of MsgCompleteSession.
func (msg *MsgCompleteSession) ValidateBasic() error {
	_, err := sdk.AccAddressFromBech32(msg.Creator)
	return err
}

// ValidateBasic performs stateless validation of MsgCancelSession.
func (msg *MsgCancelSession) ValidateBasic() error {
	_, err := sdk.AccAddressFromBech32(msg.Creator)
	return err
}

// ValidateBasic performs stateless validation of MsgOpenChallenge.
func (msg *MsgOpenChallenge) ValidateBasic() error {
	if _, err := sdk.AccAddressFromBech32(msg.Creator); err != nil {
		return fmt.Errorf("invalid creator address: %w", err)
	}
	if _, err := hex.DecodeString(msg.ProofHash); err != nil || msg.ProofHash == "" {
		return ErrProofNotFound.Wrap("proof hash must be hex")
	}
	if msg.EvidenceHash == "" {
		return ErrEvidenceRequired
	}
	return nil
}

// ValidateBasic performs stateless validation of MsgResolveChallenge.
func (msg *MsgResolveChallenge) ValidateBasic() error {
	_, err := sdk.AccAddressFromBech32(msg.Creator)
	return err
}

// ValidateBasic performs stateless validation of MsgExpireChallenge.
func (msg *MsgExpireChallenge) ValidateBasic() error {
	_, err := sdk.AccAddressFromBech32(msg.Creator)
	return err
}

// ValidateBasic performs stateless validation of MsgWithdrawEarnings.
func (msg *MsgWithdrawEarnings) ValidateBasic() error {
	if _, err := sdk.AccAddressFromBech32(msg.Creator); err != nil {
		return fmt.Errorf("invalid creator address: %w", err)
	}
	if err := sdk.ValidateDenom(msg.Denom); err != nil {
		return fmt.Errorf("invalid denom: %w", err)
	}
	if !msg.Amount.IsNil() && !msg.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// ValidateBasic performs stateless validation of MsgWithdrawAllEarnings.
func (msg *MsgWithdrawAllEarnings) ValidateBasic() error {
	if _, err := sdk.AccAddressFromBech32(msg.Creator); err != nil {
		return fmt.Errorf("invalid creator address: %w", err)
	}
	if len(msg.Denoms) == 0 {
		return fmt.Errorf("at least one denom required")
	}
	for _, denom := range msg.Denoms {
		if err := sdk.ValidateDenom(denom); err != nil {
			return fmt.Errorf("invalid denom %q: %w", denom, err)
		}
	}
	return nil
}

// ValidateBasic performs stateless validation of MsgSlashHost.
func (msg *MsgSlashHost) ValidateBasic() error {
	if _, err := sdk.AccAddressFromBech32(msg.Creator); err != nil {
		return fmt.Errorf("invalid creator address: %w", err)
	}
	if _, err := sdk.AccAddressFromBech32(msg.Host); err != nil {
		return ErrInvalidHost.Wrap(err.Error())
	}
	if msg.Amount.IsNil() || !msg.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if msg.EvidenceRef == "" {
		return ErrEvidenceRequired
	}
	if msg.Reason == "" {
		return ErrReasonRequired
	}
	return nil
}

// ValidateBasic performs stateless validation of MsgUpdateParams.
func (msg *MsgUpdateParams) ValidateBasic() error {
	if _, err := sdk.AccAddressFromBech32(msg.Authority); err != nil {
		return fmt.Errorf("invalid authority address: %w", err)
	}
	return msg.Params.Validate()
}

// GetSigners implementations - addresses are validated in ValidateBasic.

func (msg *MsgRegisterHost) GetSigners() []sdk.AccAddress {
	creator, _ := sdk.AccAddressFromBech32(msg.Creator)
	return []sdk.AccAddress{creator}
}

func (msg *MsgUnregisterHost) GetSigners() []sdk.AccAddress {
	creator, _ := sdk.AccAddressFromBech32(msg.Creator)
	return []sdk.AccAddress{creator}
}

func (msg *MsgAddStake) GetSigners() []sdk.AccAddress {
	creator, _ := sdk.AccAddressFromBech32(msg.Creator)
	return []sdk.AccAddress{creator}
}

func (msg *MsgUpdatePricing) GetSigners() []sdk.AccAddress {
	creator, _ := sdk.AccAddressFromBech32(msg.Creator)
	return []sdk.AccAddress{creator}
}

func (msg *MsgUpdateHostInfo) GetSigners() []sdk.AccAddress {
	creator, _ := sdk.AccAddressFromBech32(msg.Creator)
	return []sdk.AccAddress{creator}
}

func (msg *MsgCreateSession) GetSigners() []sdk.AccAddress {
	creator, _ := sdk.AccAddressFromBech32(msg.Creator)
	return []sdk.AccAddress{creator}
}

func (msg *MsgSubmitProof) GetSigners() []sdk.AccAddress {
	creator, _ := sdk.AccAddressFromBech32(msg.Creator)
	return []sdk.AccAddress{creator}
}

func (msg *MsgSubmitProofBatch) GetSigners() []sdk.AccAddress {
	creator, _ := sdk.AccAddressFromBech32(msg.Creator)
	return []sdk.AccAddress{creator}
}

func (msg *MsgCompleteSession) GetSigners() []sdk.AccAddress {
	creator, _ := sdk.AccAddressFromBech32(msg.Creator)
	return []sdk.AccAddress{creator}
}

func (msg *MsgCancelSession) GetSigners() []sdk.AccAddress {
	creator, _ := sdk.AccAddressFromBech32(msg.Creator)
	return []sdk.AccAddress{creator}
}

func (msg *MsgOpenChallenge) GetSigners() []sdk.AccAddress {
	creator, _ := sdk.AccAddressFromBech32(msg.Creator)
	return []sdk.AccAddress{creator}
}

func (msg *MsgResolveChallenge) GetSigners() []sdk.AccAddress {
	creator, _ := sdk.AccAddressFromBech32(msg.Creator)
	return []sdk.AccAddress{creator}
}

func (msg *MsgExpireChallenge) GetSigners() []sdk.AccAddress {
	creator, _ := sdk.AccAddressFromBech32(msg.Creator)
	return []sdk.AccAddress{creator}
}

func (msg *MsgWithdrawEarnings) GetSigners() []sdk.AccAddress {
	creator, _ := sdk.AccAddressFromBech32(msg.Creator)
	return []sdk.AccAddress{creator}
}

func (msg *MsgWithdrawAllEarnings) GetSigners() []sdk.AccAddress {
	creator, _ := sdk.AccAddressFromBech32(msg.Creator)
	return []sdk.AccAddress{creator}
}

func (msg *MsgSlashHost) GetSigners() []sdk.AccAddress {
	creator, _ := sdk.AccAddressFromBech32(msg.Creator)
	return []sdk.AccAddress{creator}
}

func (msg *MsgUpdateParams) GetSigners() []sdk.AccAddress {
	authority, _ := sdk.AccAddressFromBech32(msg.Authority)
	return []sdk.AccAddress{authority}
}

// proto.Message conformance for the transaction router.

func (msg *MsgRegisterHost) Reset()         { *msg = MsgRegisterHost{} }
func (msg *MsgRegisterHost) ProtoMessage()  {}
func (msg *MsgRegisterHost) String() string { return fmt.Sprintf("%s(%s)", TypeMsgRegisterHost, msg.Creator) }

func (msg *MsgUnregisterHost) Reset()         { *msg = MsgUnregisterHost{} }
func (msg *MsgUnregisterHost) ProtoMessage()  {}
func (msg *MsgUnregisterHost) String() string { return fmt.Sprintf("%s(%s)", TypeMsgUnregisterHost, msg.Creator) }

func (msg *MsgAddStake) Reset()         { *msg = MsgAddStake{} }
func (msg *MsgAddStake) ProtoMessage()  {}
func (msg *MsgAddStake) String() string { return fmt.Sprintf("%s(%s)", TypeMsgAddStake, msg.Creator) }

func (msg *MsgUpdatePricing) Reset()         { *msg = MsgUpdatePricing{} }
func (msg *MsgUpdatePricing) ProtoMessage()  {}
func (msg *MsgUpdatePricing) String() string { return fmt.Sprintf("%s(%s)", TypeMsgUpdatePricing, msg.Creator) }

func (msg *MsgUpdateHostInfo) Reset()         { *msg = MsgUpdateHostInfo{} }
func (msg *MsgUpdateHostInfo) ProtoMessage()  {}
func (msg *MsgUpdateHostInfo) String() string { return fmt.Sprintf("%s(%s)", TypeMsgUpdateHostInfo, msg.Creator) }

func (msg *MsgCreateSession) Reset()         { *msg = MsgCreateSession{} }
func (msg *MsgCreateSession) ProtoMessage()  {}
func (msg *MsgCreateSession) String() string { return fmt.Sprintf("%s(%s)", TypeMsgCreateSession, msg.Creator) }

func (msg *MsgSubmitProof) Reset()         { *msg = MsgSubmitProof{} }
func (msg *MsgSubmitProof) ProtoMessage()  {}
func (msg *MsgSubmitProof) String() string { return fmt.Sprintf("%s(%d)", TypeMsgSubmitProof, msg.SessionId) }

func (msg *MsgSubmitProofBatch) Reset()         { *msg = MsgSubmitProofBatch{} }
func (msg *MsgSubmitProofBatch) ProtoMessage()  {}
func (msg *MsgSubmitProofBatch) String() string { return fmt.Sprintf("%s(%d)", TypeMsgSubmitProofBatch, msg.SessionId) }

func (msg *MsgCompleteSession) Reset()         { *msg = MsgCompleteSession{} }
func (msg *MsgCompleteSession) ProtoMessage()  {}
func (msg *MsgCompleteSession) String() string { return fmt.Sprintf("%s(%d)", TypeMsgCompleteSession, msg.SessionId) }

func (msg *MsgCancelSession) Reset()         { *msg = MsgCancelSession{} }
func (msg *MsgCancelSession) ProtoMessage()  {}
func (msg *MsgCancelSession) String() string { return fmt.Sprintf("%s(%d)", TypeMsgCancelSession, msg.SessionId) }

func (msg *MsgOpenChallenge) Reset()         { *msg = MsgOpenChallenge{} }
func (msg *MsgOpenChallenge) ProtoMessage()  {}
func (msg *MsgOpenChallenge) String() string { return fmt.Sprintf("%s(%s)", TypeMsgOpenChallenge, msg.ProofHash) }

func (msg *MsgResolveChallenge) Reset()         { *msg = MsgResolveChallenge{} }
func (msg *MsgResolveChallenge) ProtoMessage()  {}
func (msg *MsgResolveChallenge) String() string { return fmt.Sprintf("%s(%d)", TypeMsgResolveChallenge, msg.ChallengeId) }

func (msg *MsgExpireChallenge) Reset()         { *msg = MsgExpireChallenge{} }
func (msg *MsgExpireChallenge) ProtoMessage()  {}
func (msg *MsgExpireChallenge) String() string { return fmt.Sprintf("%s(%d)", TypeMsgExpireChallenge, msg.ChallengeId) }

func (msg *MsgWithdrawEarnings) Reset()         { *msg = MsgWithdrawEarnings{} }
func (msg *MsgWithdrawEarnings) ProtoMessage()  {}
func (msg *MsgWithdrawEarnings) String() string { return fmt.Sprintf("%s(%s)", TypeMsgWithdrawEarnings, msg.Creator) }

func (msg *MsgWithdrawAllEarnings) Reset()         { *msg = MsgWithdrawAllEarnings{} }
func (msg *MsgWithdrawAllEarnings) ProtoMessage()  {}
func (msg *MsgWithdrawAllEarnings) String() string { return fmt.Sprintf("%s(%s)", TypeMsgWithdrawAllEarnings, msg.Creator) }

func (msg *MsgSlashHost) Reset()         { *msg = MsgSlashHost{} }
func (msg *MsgSlashHost) ProtoMessage()  {}
func (msg *MsgSlashHost) String() string { return fmt.Sprintf("%s(%s)", TypeMsgSlashHost, msg.Host) }

func (msg *MsgUpdateParams) Reset()         { *msg = MsgUpdateParams{} }
func (msg *MsgUpdateParams) ProtoMessage()  {}
func (msg *MsgUpdateParams) String() string { return fmt.Sprintf("%s(%s)", TypeMsgUpdateParams, msg.Authority) }
