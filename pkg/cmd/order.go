package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alphasec-trade/alphasec-go/pkg/alphasec"
)

func init() {
	placeOrderCmd.Flags().String("market", "", "market symbol or id, e.g. KAIA/USDT")
	placeOrderCmd.Flags().String("side", "", "buy or sell")
	placeOrderCmd.Flags().Float64("price", 0, "limit price, ignored for market orders")
	placeOrderCmd.Flags().Float64("quantity", 0, "order quantity")
	placeOrderCmd.Flags().Bool("market-order", false, "submit a market order")
	placeOrderCmd.Flags().Bool("quote", false, "quantity is denominated in the quote token")
	placeOrderCmd.Flags().Float64("tp-limit", 0, "take profit limit price")
	placeOrderCmd.Flags().Float64("sl-trigger", 0, "stop loss trigger price")
	placeOrderCmd.Flags().Float64("sl-limit", 0, "stop loss limit price")

	cancelOrderCmd.Flags().Bool("all", false, "cancel every open order")

	RootCmd.AddCommand(placeOrderCmd)
	RootCmd.AddCommand(cancelOrderCmd)
	RootCmd.AddCommand(modifyOrderCmd)
}

func parseSide(s string) (alphasec.OrderSide, error) {
	switch strings.ToLower(s) {
	case "buy":
		return alphasec.SideBuy, nil
	case "sell":
		return alphasec.SideSell, nil
	}

	return 0, fmt.Errorf("invalid side: %s, expected buy or sell", s)
}

// go run ./cmd/alphasec order --market=KAIA/USDT --side=buy --price=0.15 --quantity=1000
var placeOrderCmd = &cobra.Command{
	Use:          "order --market=[market] --side=[buy|sell] --price=[price] --quantity=[quantity]",
	Short:        "place an order",
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

		sideStr, err := cmd.Flags().GetString("side")
		if err != nil {
			return err
		}
		side, err := parseSide(sideStr)
		if err != nil {
			return err
		}

		price, err := cmd.Flags().GetFloat64("price")
		if err != nil {
			return err
		}

		quantity, err := cmd.Flags().GetFloat64("quantity")
		if err != nil {
			return err
		}

		isMarket, err := cmd.Flags().GetBool("market-order")
		if err != nil {
			return err
		}

		isQuote, err := cmd.Flags().GetBool("quote")
		if err != nil {
			return err
		}

		orderType := alphasec.OrderTypeLimit
		if isMarket {
			orderType = alphasec.OrderTypeMarket
		}

		orderMode := alphasec.OrderModeBase
		if isQuote {
			orderMode = alphasec.OrderModeQuote
		}

		var tpsl *alphasec.TPSL
		tpLimit, _ := cmd.Flags().GetFloat64("tp-limit")
		slTrigger, _ := cmd.Flags().GetFloat64("sl-trigger")
		slLimit, _ := cmd.Flags().GetFloat64("sl-limit")
		if tpLimit > 0 || slTrigger > 0 || slLimit > 0 {
			tpsl = &alphasec.TPSL{}
			if tpLimit > 0 {
				tpsl.TakeProfitLimit = &tpLimit
			}
			if slTrigger > 0 {
				tpsl.StopLossTrigger = &slTrigger
			}
			if slLimit > 0 {
				tpsl.StopLossLimit = &slLimit
			}
		}

		agent, err := newAgent(ctx)
		if err != nil {
			return err
		}

		orderID, err := agent.Order(ctx, market, side, price, quantity, orderType, orderMode, tpsl)
		if err != nil {
			return err
		}

		fmt.Printf("order submitted: %s\n", orderID)
		return nil
	},
}

// go run ./cmd/alphasec cancel 0xabc...
var cancelOrderCmd = &cobra.Command{
	Use:          "cancel [orderID]",
	Short:        "cancel one order, or every open order with --all",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		all, err := cmd.Flags().GetBool("all")
		if err != nil {
			return err
		}

		agent, err := newAgent(ctx)
		if err != nil {
			return err
		}

		var txHash string
		if all {
			txHash, err = agent.CancelAll(ctx)
		} else {
			if len(args) != 1 {
				return fmt.Errorf("an order id is required unless --all is given")
			}
			txHash, err = agent.Cancel(ctx, args[0])
		}
		if err != nil {
			return err
		}

		fmt.Printf("cancel submitted: %s\n", txHash)
		return nil
	},
}

// go run ./cmd/alphasec modify 0xabc... 0.16 1200
var modifyOrderCmd = &cobra.Command{
	Use:          "modify [orderID] [newPrice] [newQuantity]",
	Short:        "replace the price and quantity of a resting order",
	Args:         cobra.ExactArgs(3),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		newPrice, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid price: %s", args[1])
		}

		newQuantity, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return fmt.Errorf("invalid quantity: %s", args[2])
		}

		agent, err := newAgent(ctx)
		if err != nil {
			return err
		}

		txHash, err := agent.Modify(ctx, args[0], newPrice, newQuantity, alphasec.OrderModeBase)
		if err != nil {
			return err
		}

		fmt.Printf("modify submitted: %s\n", txHash)
		return nil
	},
}
