package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(balancesCmd)
}

// go run ./cmd/alphasec balances
var balancesCmd = &cobra.Command{
	Use:          "balances",
	Short:        "show the account balances",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		agent, err := newAgent(ctx)
		if err != nil {
			return err
		}

		balances, err := agent.Balances(ctx)
		if err != nil {
			return err
		}

		meta := agent.RestClient().Metadata()
		for _, balance := range balances {
			symbol := balance.TokenID
			decimals := uint32(18)
			if meta != nil {
				if d, err := meta.TokenDecimals(balance.TokenID); err == nil {
					decimals = d
				}
				if s, err := meta.TokenSymbol(balance.TokenID); err == nil {
					symbol = s
				}
			}

			available, err := balance.Available(int32(decimals))
			if err != nil {
				return err
			}

			fmt.Printf("%-8s available: %-20s locked: %s\n", symbol, available.String(), balance.Locked)
		}

		return nil
	},
}
