package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"cosmossdk.io/math"
	"github.com/cosmos/cosmos-sdk/client"
	"github.com/cosmos/cosmos-sdk/client/flags"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/tensormesh/tensormesh/x/market/keeper"
	"github.com/tensormesh/tensormesh/x/market/types"
)

// GetQueryCmd returns the cli query commands for the market module. Records
// are stored as JSON, so the commands read them straight out of the module
// store and print them as-is.
func GetQueryCmd() *cobra.Command {
	marketQueryCmd := &cobra.Command{
		Use:                        types.ModuleName,
		Short:                      "Querying commands for the market module",
		DisableFlagParsing:         true,
		SuggestionsMinimumDistance: 2,
		RunE:                       client.ValidateCmd,
	}

	marketQueryCmd.AddCommand(
		GetCmdQueryParams(),
		GetCmdQueryHost(),
		GetCmdQuerySession(),
		GetCmdQueryProof(),
		GetCmdQueryChallenge(),
		GetCmdQueryEarnings(),
		GetCmdQuerySlashRecord(),
	)

	return marketQueryCmd
}

// queryStoreJSON fetches one record from the market store and returns it as a
// printable JSON document.
func queryStoreJSON(clientCtx client.Context, key []byte, what string) (json.RawMessage, error) {
	res, _, err := clientCtx.QueryStore(key, types.StoreKey)
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return nil, fmt.Errorf("%s not found", what)
	}
	return json.RawMessage(res), nil
}

// GetCmdQueryParams returns the command to query module parameters
func GetCmdQueryParams() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "params",
		Short: "Query the current market module parameters",
		Long: `Query the current parameters of the market module.

Example:
  $ tensormeshd query market params`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientQueryContext(cmd)
			if err != nil {
				return err
			}

			raw, err := queryStoreJSON(clientCtx, keeper.ParamsKey, "params")
			if err != nil {
				return err
			}
			return clientCtx.PrintRaw(raw)
		},
	}

	flags.AddQueryFlagsToCmd(cmd)
	return cmd
}

// GetCmdQueryHost returns the command to query a host by address
func GetCmdQueryHost() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "host [address]",
		Short: "Query host details by address",
		Long: `Query detailed information about a registered inference host.

Example:
  $ tensormeshd query market host tensor1abcdef...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientQueryContext(cmd)
			if err != nil {
				return err
			}

			addr, err := sdk.AccAddressFromBech32(args[0])
			if err != nil {
				return fmt.Errorf("invalid host address: %w", err)
			}

			raw, err := queryStoreJSON(clientCtx, keeper.HostKey(addr), fmt.Sprintf("host %s", args[0]))
			if err != nil {
				return err
			}
			return clientCtx.PrintRaw(raw)
		},
	}

	flags.AddQueryFlagsToCmd(cmd)
	return cmd
}

// GetCmdQuerySession returns the command to query a session by ID
func GetCmdQuerySession() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session [session-id]",
		Short: "Query session details by ID",
		Long: `Query detailed information about an inference session.

Example:
  $ tensormeshd query market session 1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientQueryContext(cmd)
			if err != nil {
				return err
			}

			sessionID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid session ID: %w", err)
			}

			raw, err := queryStoreJSON(clientCtx, keeper.SessionKey(sessionID), fmt.Sprintf("session %d", sessionID))
			if err != nil {
				return err
			}
			return clientCtx.PrintRaw(raw)
		},
	}

	flags.AddQueryFlagsToCmd(cmd)
	return cmd
}

// GetCmdQueryProof returns the command to query a proof verdict by hash
func GetCmdQueryProof() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proof [proof-hash]",
		Short: "Query the stored verdict for a proof hash",
		Long: `Query the stored verdict for a work receipt by its content hash.

Example:
  $ tensormeshd query market proof deadbeef...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientQueryContext(cmd)
			if err != nil {
				return err
			}

			raw, err := queryStoreJSON(clientCtx, keeper.ProofRecordKey([]byte(args[0])), fmt.Sprintf("proof %s", args[0]))
			if err != nil {
				return err
			}
			return clientCtx.PrintRaw(raw)
		},
	}

	flags.AddQueryFlagsToCmd(cmd)
	return cmd
}

// GetCmdQueryChallenge returns the command to query a challenge by ID
func GetCmdQueryChallenge() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "challenge [challenge-id]",
		Short: "Query challenge details by ID",
		Long: `Query detailed information about a bonded challenge.

Example:
  $ tensormeshd query market challenge 1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientQueryContext(cmd)
			if err != nil {
				return err
			}

			challengeID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid challenge ID: %w", err)
			}

			raw, err := queryStoreJSON(clientCtx, keeper.ChallengeKey(challengeID), fmt.Sprintf("challenge %d", challengeID))
			if err != nil {
				return err
			}
			return clientCtx.PrintRaw(raw)
		},
	}

	flags.AddQueryFlagsToCmd(cmd)
	return cmd
}

// GetCmdQueryEarnings returns the command to query a host's earnings balance
func GetCmdQueryEarnings() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "earnings [address] [denom]",
		Short: "Query a host's withdrawable earnings in a denom",
		Long: `Query a host's accumulated withdrawable earnings in a single denom.

Example:
  $ tensormeshd query market earnings tensor1abcdef... umesh`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientQueryContext(cmd)
			if err != nil {
				return err
			}

			addr, err := sdk.AccAddressFromBech32(args[0])
			if err != nil {
				return fmt.Errorf("invalid host address: %w", err)
			}

			res, _, err := clientCtx.QueryStore(keeper.EarningsKey(addr, args[1]), types.StoreKey)
			if err != nil {
				return err
			}

			amount := math.ZeroInt()
			if len(res) > 0 {
				if err := amount.Unmarshal(res); err != nil {
					return fmt.Errorf("corrupt earnings entry: %w", err)
				}
			}
			return clientCtx.PrintString(fmt.Sprintf("%s%s\n", amount, args[1]))
		},
	}

	flags.AddQueryFlagsToCmd(cmd)
	return cmd
}

// GetCmdQuerySlashRecord returns the command to query a slash record by ID
func GetCmdQuerySlashRecord() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slash-record [slash-id]",
		Short: "Query slash record by ID",
		Long: `Query the audit entry written for an executed slash.

Example:
  $ tensormeshd query market slash-record 1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientQueryContext(cmd)
			if err != nil {
				return err
			}

			slashID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid slash ID: %w", err)
			}

			raw, err := queryStoreJSON(clientCtx, keeper.SlashRecordKey(slashID), fmt.Sprintf("slash record %d", slashID))
			if err != nil {
				return err
			}
			return clientCtx.PrintRaw(raw)
		},
	}

	flags.AddQueryFlagsToCmd(cmd)
	return cmd
}
