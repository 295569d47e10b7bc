package cli

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"cosmossdk.io/math"
	"github.com/spf13/cobra"

	"github.com/cosmos/cosmos-sdk/client"
	"github.com/cosmos/cosmos-sdk/client/flags"
	"github.com/cosmos/cosmos-sdk/client/tx"

	"github.com/tensormesh/tensormesh/x/market/types"
)

// GetTxCmd returns the transaction commands for the market module
func GetTxCmd() *cobra.Command {
	marketTxCmd := &cobra.Command{
		Use:                        types.ModuleName,
		Short:                      "Market transaction subcommands",
		DisableFlagParsing:         true,
		SuggestionsMinimumDistance: 2,
		RunE:                       client.ValidateCmd,
	}

	marketTxCmd.AddCommand(
		CmdRegisterHost(),
		CmdUnregisterHost(),
		CmdAddStake(),
		CmdUpdatePricing(),
		CmdUpdateHostInfo(),
		CmdCreateSession(),
		CmdSubmitProof(),
		CmdCompleteSession(),
		CmdCancelSession(),
		CmdOpenChallenge(),
		CmdResolveChallenge(),
		CmdExpireChallenge(),
		CmdWithdrawEarnings(),
		CmdSlashHost(),
	)

	return marketTxCmd
}

func parsePrices(raw string) (map[string]math.Int, error) {
	prices := make(map[string]math.Int)
	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("price %q not in denom=amount form", pair)
		}
		amount, ok := math.NewIntFromString(parts[1])
		if !ok {
			return nil, fmt.Errorf("invalid price amount %q", parts[1])
		}
		prices[parts[0]] = amount
	}
	return prices, nil
}

func parseInt(raw, name string) (math.Int, error) {
	amount, ok := math.NewIntFromString(raw)
	if !ok {
		return math.Int{}, fmt.Errorf("invalid %s %q", name, raw)
	}
	return amount, nil
}

// CmdRegisterHost returns a CLI command handler for registering as a host
func CmdRegisterHost() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register-host [metadata] [endpoint] [models] [prices]",
		Short: "Register as an inference host, locking the minimum stake",
		Long: `Register as an inference host. Models is a comma-separated list of
model ids; prices is a comma-separated denom=amount list quoting the price per
inference unit.

Example:
  $ tensormeshd tx market register-host \
    '{"gpus":8}' https://host.example.com llama-70b,mixtral umesh=5 --from mykey`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			prices, err := parsePrices(args[3])
			if err != nil {
				return err
			}

			msg := &types.MsgRegisterHost{
				Creator:  clientCtx.GetFromAddress().String(),
				Metadata: args[0],
				Endpoint: args[1],
				Models:   strings.Split(args[2], ","),
				Prices:   prices,
			}
			if err := msg.ValidateBasic(); err != nil {
				return err
			}
			return tx.GenerateOrBroadcastTxCLI(clientCtx, cmd.Flags(), msg)
		},
	}

	flags.AddTxFlagsToCmd(cmd)
	return cmd
}

// CmdUnregisterHost returns a CLI command handler for leaving the registry
func CmdUnregisterHost() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unregister-host",
		Short: "Leave the registry and recover the remaining stake",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			msg := &types.MsgUnregisterHost{Creator: clientCtx.GetFromAddress().String()}
			if err := msg.ValidateBasic(); err != nil {
				return err
			}
			return tx.GenerateOrBroadcastTxCLI(clientCtx, cmd.Flags(), msg)
		},
	}

	flags.AddTxFlagsToCmd(cmd)
	return cmd
}

// CmdAddStake returns a CLI command handler for topping up stake
func CmdAddStake() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-stake [amount]",
		Short: "Add stake on top of the registration minimum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			amount, err := parseInt(args[0], "amount")
			if err != nil {
				return err
			}

			msg := &types.MsgAddStake{
				Creator: clientCtx.GetFromAddress().String(),
				Amount:  amount,
			}
			if err := msg.ValidateBasic(); err != nil {
				return err
			}
			return tx.GenerateOrBroadcastTxCLI(clientCtx, cmd.Flags(), msg)
		},
	}

	flags.AddTxFlagsToCmd(cmd)
	return cmd
}

// CmdUpdatePricing returns a CLI command handler for updating per-unit prices
func CmdUpdatePricing() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update-pricing [denom] [price]",
		Short: "Set the price per inference unit for a denom",
		Long: `Set the price per inference unit for a denom. With --model the price
applies only to that model; a zero price clears the per-model override.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			price, err := parseInt(args[1], "price")
			if err != nil {
				return err
			}
			modelID, err := cmd.Flags().GetString(FlagModel)
			if err != nil {
				return err
			}

			msg := &types.MsgUpdatePricing{
				Creator: clientCtx.GetFromAddress().String(),
				Denom:   args[0],
				Price:   price,
				ModelId: modelID,
			}
			if err := msg.ValidateBasic(); err != nil {
				return err
			}
			return tx.GenerateOrBroadcastTxCLI(clientCtx, cmd.Flags(), msg)
		},
	}

	cmd.Flags().String(FlagModel, "", "model id for a per-model price override")
	flags.AddTxFlagsToCmd(cmd)
	return cmd
}

// CmdUpdateHostInfo returns a CLI command handler for updating host details
func CmdUpdateHostInfo() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update-host-info",
		Short: "Update host metadata and/or endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			metadata, err := cmd.Flags().GetString(FlagMetadata)
			if err != nil {
				return err
			}
			endpoint, err := cmd.Flags().GetString(FlagEndpoint)
			if err != nil {
				return err
			}

			msg := &types.MsgUpdateHostInfo{
				Creator:  clientCtx.GetFromAddress().String(),
				Metadata: metadata,
				Endpoint: endpoint,
			}
			if err := msg.ValidateBasic(); err != nil {
				return err
			}
			return tx.GenerateOrBroadcastTxCLI(clientCtx, cmd.Flags(), msg)
		},
	}

	cmd.Flags().String(FlagMetadata, "", "replacement metadata blob")
	cmd.Flags().String(FlagEndpoint, "", "replacement serving endpoint")
	flags.AddTxFlagsToCmd(cmd)
	return cmd
}

// CmdCreateSession returns a CLI command handler for opening a session
func CmdCreateSession() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-session [host] [denom] [deposit] [price-per-unit] [max-duration] [proof-interval]",
		Short: "Open a deposit-backed inference session against a host",
		Args:  cobra.ExactArgs(6),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			deposit, err := parseInt(args[2], "deposit")
			if err != nil {
				return err
			}
			price, err := parseInt(args[3], "price per unit")
			if err != nil {
				return err
			}
			maxDuration, err := strconv.ParseInt(args[4], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid max duration: %w", err)
			}
			proofInterval, err := strconv.ParseInt(args[5], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid proof interval: %w", err)
			}
			modelID, err := cmd.Flags().GetString(FlagModel)
			if err != nil {
				return err
			}

			msg := &types.MsgCreateSession{
				Creator:       clientCtx.GetFromAddress().String(),
				Host:          args[0],
				Denom:         args[1],
				Deposit:       deposit,
				PricePerUnit:  price,
				MaxDuration:   maxDuration,
				ProofInterval: proofInterval,
				ModelId:       modelID,
			}
			if err := msg.ValidateBasic(); err != nil {
				return err
			}
			return tx.GenerateOrBroadcastTxCLI(clientCtx, cmd.Flags(), msg)
		},
	}

	cmd.Flags().String(FlagModel, "", "model id to pin the session to")
	flags.AddTxFlagsToCmd(cmd)
	return cmd
}

// CmdSubmitProof returns a CLI command handler for submitting a work receipt
func CmdSubmitProof() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit-proof [session-id] [units] [proof-hex]",
		Short: "Submit a hex-encoded work receipt for an active session",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			sessionID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid session id: %w", err)
			}
			units, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid units: %w", err)
			}
			proof, err := hex.DecodeString(args[2])
			if err != nil {
				return fmt.Errorf("invalid proof hex: %w", err)
			}

			msg := &types.MsgSubmitProof{
				Creator:   clientCtx.GetFromAddress().String(),
				SessionId: sessionID,
				Proof:     proof,
				Units:     units,
			}
			if err := msg.ValidateBasic(); err != nil {
				return err
			}
			return tx.GenerateOrBroadcastTxCLI(clientCtx, cmd.Flags(), msg)
		},
	}

	flags.AddTxFlagsToCmd(cmd)
	return cmd
}

// CmdCompleteSession returns a CLI command handler for settling a session
func CmdCompleteSession() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "complete-session [session-id]",
		Short: "Settle a session, splitting the deposit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			sessionID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid session id: %w", err)
			}

			msg := &types.MsgCompleteSession{
				Creator:   clientCtx.GetFromAddress().String(),
				SessionId: sessionID,
			}
			if err := msg.ValidateBasic(); err != nil {
				return err
			}
			return tx.GenerateOrBroadcastTxCLI(clientCtx, cmd.Flags(), msg)
		},
	}

	flags.AddTxFlagsToCmd(cmd)
	return cmd
}

// CmdCancelSession returns a CLI command handler for aborting an unused session
func CmdCancelSession() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancel-session [session-id]",
		Short: "Cancel a session no work was billed on, refunding the deposit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			sessionID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid session id: %w", err)
			}

			msg := &types.MsgCancelSession{
				Creator:   clientCtx.GetFromAddress().String(),
				SessionId: sessionID,
			}
			if err := msg.ValidateBasic(); err != nil {
				return err
			}
			return tx.GenerateOrBroadcastTxCLI(clientCtx, cmd.Flags(), msg)
		},
	}

	flags.AddTxFlagsToCmd(cmd)
	return cmd
}

// CmdOpenChallenge returns a CLI command handler for disputing a proof
func CmdOpenChallenge() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "open-challenge [proof-hash] [evidence-hash]",
		Short: "Open a bonded challenge against a verified proof",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			msg := &types.MsgOpenChallenge{
				Creator:      clientCtx.GetFromAddress().String(),
				ProofHash:    args[0],
				EvidenceHash: args[1],
			}
			if err := msg.ValidateBasic(); err != nil {
				return err
			}
			return tx.GenerateOrBroadcastTxCLI(clientCtx, cmd.Flags(), msg)
		},
	}

	flags.AddTxFlagsToCmd(cmd)
	return cmd
}

// CmdResolveChallenge returns a CLI command handler for adjudicating a challenge
func CmdResolveChallenge() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve-challenge [challenge-id] [challenger-wins]",
		Short: "Resolve a pending challenge (slash authority only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			challengeID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid challenge id: %w", err)
			}
			wins, err := strconv.ParseBool(args[1])
			if err != nil {
				return fmt.Errorf("invalid verdict: %w", err)
			}

			msg := &types.MsgResolveChallenge{
				Creator:        clientCtx.GetFromAddress().String(),
				ChallengeId:    challengeID,
				ChallengerWins: wins,
			}
			if err := msg.ValidateBasic(); err != nil {
				return err
			}
			return tx.GenerateOrBroadcastTxCLI(clientCtx, cmd.Flags(), msg)
		},
	}

	flags.AddTxFlagsToCmd(cmd)
	return cmd
}

// CmdExpireChallenge returns a CLI command handler for failing an overdue challenge
func CmdExpireChallenge() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expire-challenge [challenge-id]",
		Short: "Fail a pending challenge whose deadline has passed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			challengeID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid challenge id: %w", err)
			}

			msg := &types.MsgExpireChallenge{
				Creator:     clientCtx.GetFromAddress().String(),
				ChallengeId: challengeID,
			}
			if err := msg.ValidateBasic(); err != nil {
				return err
			}
			return tx.GenerateOrBroadcastTxCLI(clientCtx, cmd.Flags(), msg)
		},
	}

	flags.AddTxFlagsToCmd(cmd)
	return cmd
}

// CmdWithdrawEarnings returns a CLI command handler for withdrawing earnings
func CmdWithdrawEarnings() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "withdraw-earnings [denom]",
		Short: "Withdraw accumulated earnings in a denom",
		Long:  `Withdraw accumulated earnings. Without --amount the full balance is paid out.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			amount := math.Int{}
			if raw, err := cmd.Flags().GetString(FlagAmount); err != nil {
				return err
			} else if raw != "" {
				amount, err = parseInt(raw, "amount")
				if err != nil {
					return err
				}
			}

			msg := &types.MsgWithdrawEarnings{
				Creator: clientCtx.GetFromAddress().String(),
				Denom:   args[0],
				Amount:  amount,
			}
			if err := msg.ValidateBasic(); err != nil {
				return err
			}
			return tx.GenerateOrBroadcastTxCLI(clientCtx, cmd.Flags(), msg)
		},
	}

	cmd.Flags().String(FlagAmount, "", "partial amount to withdraw")
	flags.AddTxFlagsToCmd(cmd)
	return cmd
}

// CmdSlashHost returns a CLI command handler for slashing a host
func CmdSlashHost() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slash-host [host] [amount] [evidence-ref] [reason]",
		Short: "Confiscate part of a host's stake (slash authority only)",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientTxContext(cmd)
			if err != nil {
				return err
			}

			amount, err := parseInt(args[1], "amount")
			if err != nil {
				return err
			}

			msg := &types.MsgSlashHost{
				Creator:     clientCtx.GetFromAddress().String(),
				Host:        args[0],
				Amount:      amount,
				EvidenceRef: args[2],
				Reason:      args[3],
			}
			if err := msg.ValidateBasic(); err != nil {
				return err
			}
			return tx.GenerateOrBroadcastTxCLI(clientCtx, cmd.Flags(), msg)
		},
	}

	flags.AddTxFlagsToCmd(cmd)
	return cmd
}
