package keeper

import (
	"context"

	errorsmod "cosmossdk.io/errors"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/tensormesh/tensormesh/x/market/types"
)

type msgServer struct {
	Keeper
}

// NewMsgServerImpl returns an implementation of the market MsgServer.
func NewMsgServerImpl(keeper Keeper) types.MsgServer {
	return &msgServer{Keeper: keeper}
}

var _ types.MsgServer = msgServer{}

func (m msgServer) RegisterHost(goCtx context.Context, msg *types.MsgRegisterHost) (*types.MsgRegisterHostResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	ctx := sdk.UnwrapSDKContext(goCtx)
	creator := sdk.MustAccAddressFromBech32(msg.Creator)

	if err := m.Keeper.RegisterHost(ctx, creator, msg.Metadata, msg.Endpoint, msg.Models, msg.Prices); err != nil {
		return nil, err
	}
	return &types.MsgRegisterHostResponse{}, nil
}

func (m msgServer) UnregisterHost(goCtx context.Context, msg *types.MsgUnregisterHost) (*types.MsgUnregisterHostResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	ctx := sdk.UnwrapSDKContext(goCtx)
	creator := sdk.MustAccAddressFromBech32(msg.Creator)

	returned, err := m.Keeper.UnregisterHost(ctx, creator)
	if err != nil {
		return nil, err
	}
	return &types.MsgUnregisterHostResponse{ReturnedStake: returned}, nil
}

func (m msgServer) AddStake(goCtx context.Context, msg *types.MsgAddStake) (*types.MsgAddStakeResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	ctx := sdk.UnwrapSDKContext(goCtx)
	creator := sdk.MustAccAddressFromBech32(msg.Creator)

	if err := m.Keeper.AddStake(ctx, creator, msg.Amount); err != nil {
		return nil, err
	}
	host, _ := m.Keeper.GetHost(ctx, creator)
	return &types.MsgAddStakeResponse{NewStake: host.Stake}, nil
}

func (m msgServer) UpdatePricing(goCtx context.Context, msg *types.MsgUpdatePricing) (*types.MsgUpdatePricingResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	ctx := sdk.UnwrapSDKContext(goCtx)
	creator := sdk.MustAccAddressFromBech32(msg.Creator)

	if err := m.Keeper.UpdatePricing(ctx, creator, msg.Denom, msg.Price, msg.ModelId); err != nil {
		return nil, err
	}
	return &types.MsgUpdatePricingResponse{}, nil
}

func (m msgServer) UpdateHostInfo(goCtx context.Context, msg *types.MsgUpdateHostInfo) (*types.MsgUpdateHostInfoResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	ctx := sdk.UnwrapSDKContext(goCtx)
	creator := sdk.MustAccAddressFromBech32(msg.Creator)

	if err := m.Keeper.UpdateHostInfo(ctx, creator, msg.Metadata, msg.Endpoint); err != nil {
		return nil, err
	}
	return &types.MsgUpdateHostInfoResponse{}, nil
}

func (m msgServer) CreateSession(goCtx context.Context, msg *types.MsgCreateSession) (*types.MsgCreateSessionResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	ctx := sdk.UnwrapSDKContext(goCtx)
	creator := sdk.MustAccAddressFromBech32(msg.Creator)
	host := sdk.MustAccAddressFromBech32(msg.Host)

	session, err := m.Keeper.CreateSession(ctx, creator, host, msg.Denom, msg.Deposit,
		msg.PricePerUnit, msg.MaxDuration, msg.ProofInterval, msg.ModelId)
	if err != nil {
		return nil, err
	}
	return &types.MsgCreateSessionResponse{SessionId: session.Id}, nil
}

func (m msgServer) SubmitProof(goCtx context.Context, msg *types.MsgSubmitProof) (*types.MsgSubmitProofResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	ctx := sdk.UnwrapSDKContext(goCtx)
	creator := sdk.MustAccAddressFromBech32(msg.Creator)

	accepted, err := m.Keeper.SubmitProofOfWork(ctx, creator, msg.SessionId, msg.Proof, msg.Units)
	if err != nil {
		return nil, err
	}
	session, _ := m.Keeper.GetSession(ctx, msg.SessionId)
	return &types.MsgSubmitProofResponse{
		AcceptedUnits: accepted,
		TotalUnits:    session.UnitsConsumed,
	}, nil
}

func (m msgServer) SubmitProofBatch(goCtx context.Context, msg *types.MsgSubmitProofBatch) (*types.MsgSubmitProofBatchResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	ctx := sdk.UnwrapSDKContext(goCtx)
	creator := sdk.MustAccAddressFromBech32(msg.Creator)

	accepted, err := m.Keeper.SubmitProofOfWorkBatch(ctx, creator, msg.SessionId, msg.Proofs, msg.UnitCounts)
	if err != nil {
		return nil, err
	}
	session, _ := m.Keeper.GetSession(ctx, msg.SessionId)
	return &types.MsgSubmitProofBatchResponse{
		AcceptedUnits: accepted,
		TotalUnits:    session.UnitsConsumed,
	}, nil
}

func (m msgServer) CompleteSession(goCtx context.Context, msg *types.MsgCompleteSession) (*types.MsgCompleteSessionResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	ctx := sdk.UnwrapSDKContext(goCtx)
	creator := sdk.MustAccAddressFromBech32(msg.Creator)

	split, err := m.Keeper.CompleteSession(ctx, creator, msg.SessionId)
	if err != nil {
		return nil, err
	}
	return &types.MsgCompleteSessionResponse{
		Cost:      split.Cost,
		Fee:       split.Fee,
		HostShare: split.HostShare,
		Refund:    split.Refund,
	}, nil
}

func (m msgServer) CancelSession(goCtx context.Context, msg *types.MsgCancelSession) (*types.MsgCancelSessionResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	ctx := sdk.UnwrapSDKContext(goCtx)
	creator := sdk.MustAccAddressFromBech32(msg.Creator)

	if err := m.Keeper.CancelSession(ctx, creator, msg.SessionId); err != nil {
		return nil, err
	}
	return &types.MsgCancelSessionResponse{}, nil
}

func (m msgServer) OpenChallenge(goCtx context.Context, msg *types.MsgOpenChallenge) (*types.MsgOpenChallengeResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	ctx := sdk.UnwrapSDKContext(goCtx)
	creator := sdk.MustAccAddressFromBech32(msg.Creator)

	challenge, err := m.Keeper.OpenChallenge(ctx, creator, msg.ProofHash, msg.EvidenceHash)
	if err != nil {
		return nil, err
	}
	return &types.MsgOpenChallengeResponse{ChallengeId: challenge.Id}, nil
}

func (m msgServer) ResolveChallenge(goCtx context.Context, msg *types.MsgResolveChallenge) (*types.MsgResolveChallengeResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	ctx := sdk.UnwrapSDKContext(goCtx)
	creator := sdk.MustAccAddressFromBech32(msg.Creator)

	if err := m.Keeper.ResolveChallenge(ctx, creator, msg.ChallengeId, msg.ChallengerWins); err != nil {
		return nil, err
	}
	return &types.MsgResolveChallengeResponse{}, nil
}

func (m msgServer) ExpireChallenge(goCtx context.Context, msg *types.MsgExpireChallenge) (*types.MsgExpireChallengeResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	ctx := sdk.UnwrapSDKContext(goCtx)
	creator := sdk.MustAccAddressFromBech32(msg.Creator)

	if err := m.Keeper.ExpireChallenge(ctx, creator, msg.ChallengeId); err != nil {
		return nil, err
	}
	return &types.MsgExpireChallengeResponse{}, nil
}

func (m msgServer) WithdrawEarnings(goCtx context.Context, msg *types.MsgWithdrawEarnings) (*types.MsgWithdrawEarningsResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	ctx := sdk.UnwrapSDKContext(goCtx)
	creator := sdk.MustAccAddressFromBech32(msg.Creator)

	amount, err := m.Keeper.Withdraw(ctx, creator, msg.Denom, msg.Amount)
	if err != nil {
		return nil, err
	}
	return &types.MsgWithdrawEarningsResponse{Amount: amount}, nil
}

func (m msgServer) WithdrawAllEarnings(goCtx context.Context, msg *types.MsgWithdrawAllEarnings) (*types.MsgWithdrawAllEarningsResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	ctx := sdk.UnwrapSDKContext(goCtx)
	creator := sdk.MustAccAddressFromBech32(msg.Creator)

	withdrawn, err := m.Keeper.WithdrawMultiple(ctx, creator, msg.Denoms)
	if err != nil {
		return nil, err
	}

	resp := &types.MsgWithdrawAllEarningsResponse{}
	for _, coin := range withdrawn {
		resp.Withdrawn = append(resp.Withdrawn, types.EarningsBalance{
			Host:   msg.Creator,
			Denom:  coin.Denom,
			Amount: coin.Amount,
		})
	}
	return resp, nil
}

func (m msgServer) SlashHost(goCtx context.Context, msg *types.MsgSlashHost) (*types.MsgSlashHostResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	ctx := sdk.UnwrapSDKContext(goCtx)
	creator := sdk.MustAccAddressFromBech32(msg.Creator)
	host := sdk.MustAccAddressFromBech32(msg.Host)

	record, err := m.Keeper.SlashHost(ctx, creator, host, msg.Amount, msg.EvidenceRef, msg.Reason)
	if err != nil {
		return nil, err
	}
	return &types.MsgSlashHostResponse{
		SlashId:          record.Id,
		AutoDeregistered: record.AutoDeregistered,
		Remainder:        record.Remainder,
	}, nil
}

func (m msgServer) UpdateParams(goCtx context.Context, msg *types.MsgUpdateParams) (*types.MsgUpdateParamsResponse, error) {
	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	ctx := sdk.UnwrapSDKContext(goCtx)

	if msg.Authority != m.Keeper.GetAuthority() {
		return nil, errorsmod.Wrapf(types.ErrNotAuthorized,
			"expected %s, got %s", m.Keeper.GetAuthority(), msg.Authority)
	}
	if err := m.Keeper.SetParams(ctx, msg.Params); err != nil {
		return nil, err
	}
	return &types.MsgUpdateParamsResponse{}, nil
}
