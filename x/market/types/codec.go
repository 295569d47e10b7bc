package types

import (
	"github.com/cosmos/cosmos-sdk/codec"
	cdctypes "github.com/cosmos/cosmos-sdk/codec/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// RegisterLegacyAminoCodec registers the market module's concrete types on the
// provided LegacyAmino codec for Amino JSON serialization.
func RegisterLegacyAminoCodec(cdc *codec.LegacyAmino) {
	cdc.RegisterConcrete(&MsgRegisterHost{}, "market/MsgRegisterHost", nil)
	cdc.RegisterConcrete(&MsgUnregisterHost{}, "market/MsgUnregisterHost", nil)
	cdc.RegisterConcrete(&MsgAddStake{}, "market/MsgAddStake", nil)
	cdc.RegisterConcrete(&MsgUpdatePricing{}, "market/MsgUpdatePricing", nil)
	cdc.RegisterConcrete(&MsgUpdateHostInfo{}, "market/MsgUpdateHostInfo", nil)
	cdc.RegisterConcrete(&MsgCreateSession{}, "market/MsgCreateSession", nil)
	cdc.RegisterConcrete(&MsgSubmitProof{}, "market/MsgSubmitProof", nil)
	cdc.RegisterConcrete(&MsgSubmitProofBatch{}, "market/MsgSubmitProofBatch", nil)
	cdc.RegisterConcrete(&MsgCompleteSession{}, "market/MsgCompleteSession", nil)
	cdc.RegisterConcrete(&MsgCancelSession{}, "market/MsgCancelSession", nil)
	cdc.RegisterConcrete(&MsgOpenChallenge{}, "market/MsgOpenChallenge", nil)
	cdc.RegisterConcrete(&MsgResolveChallenge{}, "market/MsgResolveChallenge", nil)
	cdc.RegisterConcrete(&MsgExpireChallenge{}, "market/MsgExpireChallenge", nil)
	cdc.RegisterConcrete(&MsgWithdrawEarnings{}, "market/MsgWithdrawEarnings", nil)
	cdc.RegisterConcrete(&MsgWithdrawAllEarnings{}, "market/MsgWithdrawAllEarnings", nil)
	cdc.RegisterConcrete(&MsgSlashHost{}, "market/MsgSlashHost", nil)
	cdc.RegisterConcrete(&MsgUpdateParams{}, "market/MsgUpdateParams", nil)
}

// RegisterInterfaces registers the market module's message types with the
// interface registry.
func RegisterInterfaces(registry cdctypes.InterfaceRegistry) {
	registry.RegisterImplementations((*sdk.Msg)(nil),
		&MsgRegisterHost{},
		&MsgUnregisterHost{},
		&MsgAddStake{},
		&MsgUpdatePricing{},
		&MsgUpdateHostInfo{},
		&MsgCreateSession{},
		&MsgSubmitProof{},
		&MsgSubmitProofBatch{},
		&MsgCompleteSession{},
		&MsgCancelSession{},
		&MsgOpenChallenge{},
		&MsgResolveChallenge{},
		&MsgExpireChallenge{},
		&MsgWithdrawEarnings{},
		&MsgWithdrawAllEarnings{},
		&MsgSlashHost{},
		&MsgUpdateParams{},
	)
}
