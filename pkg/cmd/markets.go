package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	tradesCmd.Flags().String("market", "", "market symbol or id, e.g. KAIA/USDT")
	tradesCmd.Flags().Uint32("limit", 20, "number of trades")

	RootCmd.AddCommand(marketsCmd)
	RootCmd.AddCommand(tickersCmd)
	RootCmd.AddCommand(tradesCmd)
}

// go run ./cmd/alphasec markets
var marketsCmd = &cobra.Command{
	Use:          "markets",
	Short:        "list the markets of the exchange",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		agent, err := newAgent(ctx)
		if err != nil {
			return err
		}

		markets, err := agent.Markets(ctx)
		if err != nil {
			return err
		}

		for _, market := range markets {
			symbol, _ := agent.RestClient().Metadata().MarketSymbol(market.MarketID)
			fmt.Printf("%-8s %-12s maker fee: %-8s taker fee: %s\n",
				market.MarketID, symbol, market.MakerFee, market.TakerFee)
		}

		return nil
	},
}

var tickersCmd = &cobra.Command{
	Use:          "tickers",
	Short:        "print the 24h tickers of every market",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		agent, err := newAgent(ctx)
		if err != nil {
			return err
		}

		tickers, err := agent.Tickers(ctx)
		if err != nil {
			return err
		}

		for _, ticker := range tickers {
			fmt.Printf("%-8s price: %-14s high: %-14s low: %-14s volume: %s\n",
				ticker.MarketID, ticker.Price, ticker.High24H, ticker.Low24H, ticker.Volume24H)
		}

		return nil
	},
}

// go run ./cmd/alphasec trades --market=KAIA/USDT
var tradesCmd = &cobra.Command{
	Use:          "trades --market=[market]",
	Short:        "print the recent trades of a market",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		market, err := cmd.Flags().GetString("market")
		if err != nil {
			return err
		}
		if market == "" {
			return fmt.Errorf("--market option is required")
		}

		limit, err := cmd.Flags().GetUint32("limit")
		if err != nil {
			return err
		}

		agent, err := newAgent(ctx)
		if err != nil {
			return err
		}

		trades, err := agent.Trades(ctx, market, limit)
		if err != nil {
			return err
		}

		for _, trade := range trades {
			fmt.Printf("%-12s price: %-14s qty: %-14s buyer maker: %v\n",
				trade.TradeID, trade.Price, trade.Quantity, trade.IsBuyerMaker)
		}

		return nil
	},
}
