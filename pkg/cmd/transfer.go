package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/alphasec-trade/alphasec-go/pkg/alphasecapi"
)

func init() {
	transferCmd.Flags().String("token", "", "token symbol or id, native when empty")

	RootCmd.AddCommand(transferCmd)
	RootCmd.AddCommand(withdrawCmd)
	RootCmd.AddCommand(transferHistoryCmd)
}

// go run ./cmd/alphasec transfer 0xrecipient 12.5 --token=USDT
var transferCmd = &cobra.Command{
	Use:          "transfer [to] [amount]",
	Short:        "transfer tokens to another address on the exchange chain",
	Args:         cobra.ExactArgs(2),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		amount, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid amount: %s", args[1])
		}

		token, err := cmd.Flags().GetString("token")
		if err != nil {
			return err
		}

		agent, err := newAgent(ctx)
		if err != nil {
			return err
		}

		var txHash string
		if token == "" {
			txHash, err = agent.Transfer(ctx, args[0], amount)
		} else {
			txHash, err = agent.TokenTransfer(ctx, args[0], amount, token)
		}
		if err != nil {
			return err
		}

		fmt.Printf("transfer submitted: %s\n", txHash)
		return nil
	},
}

// go run ./cmd/alphasec withdraw KAIA 2.5
var withdrawCmd = &cobra.Command{
	Use:          "withdraw [token] [amount]",
	Short:        "withdraw tokens back to the owner address on the settlement chain",
	Args:         cobra.ExactArgs(2),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		amount, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid amount: %s", args[1])
		}

		agent, err := newAgent(ctx)
		if err != nil {
			return err
		}

		txHash, err := agent.Withdraw(ctx, args[0], amount)
		if err != nil {
			return err
		}

		fmt.Printf("withdrawal submitted: %s\n", txHash)
		return nil
	},
}

var transferHistoryCmd = &cobra.Command{
	Use:          "transfer-history",
	Short:        "show the account's transfer records",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		agent, err := newAgent(ctx)
		if err != nil {
			return err
		}

		transfers, err := agent.TransferHistory(ctx, alphasecapi.TransferHistoryQuery{Limit: 100})
		if err != nil {
			return err
		}

		for _, transfer := range transfers {
			created := time.UnixMilli(int64(transfer.CreatedAt))
			fmt.Printf("%-20s token: %-4s amount: %-16s %s -> %s\n",
				created.Format(time.RFC3339), transfer.TokenID, transfer.Amount,
				transfer.FromAddress, transfer.ToAddress)
		}

		return nil
	},
}
