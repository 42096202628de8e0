package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alphasec-trade/alphasec-go/pkg/alphasecapi"
)

func init() {
	ordersCmd.Flags().String("market", "", "limit to one market symbol or id")
	ordersCmd.Flags().Uint32("limit", 50, "number of orders")
	ordersCmd.Flags().Bool("closed", false, "show filled and canceled orders instead of open ones")

	RootCmd.AddCommand(ordersCmd)
	RootCmd.AddCommand(getOrderCmd)
}

// go run ./cmd/alphasec orders --market=KAIA/USDT
var ordersCmd = &cobra.Command{
	Use:          "orders [--market MARKET] [--closed]",
	Short:        "list the account's orders",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		market, err := cmd.Flags().GetString("market")
		if err != nil {
			return err
		}

		limit, err := cmd.Flags().GetUint32("limit")
		if err != nil {
			return err
		}

		closed, err := cmd.Flags().GetBool("closed")
		if err != nil {
			return err
		}

		agent, err := newAgent(ctx)
		if err != nil {
			return err
		}

		var orders []alphasecapi.Order
		if closed {
			orders, err = agent.ClosedOrders(ctx, market, limit)
		} else {
			orders, err = agent.OpenOrders(ctx, market, limit)
		}
		if err != nil {
			return err
		}

		for _, order := range orders {
			printOrder(order)
		}

		return nil
	},
}

// go run ./cmd/alphasec get-order 0xabc...
var getOrderCmd = &cobra.Command{
	Use:          "get-order [orderID]",
	Short:        "show one order by id",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		agent, err := newAgent(ctx)
		if err != nil {
			return err
		}

		order, err := agent.GetOrder(ctx, args[0])
		if err != nil {
			return err
		}

		printOrder(*order)
		return nil
	},
}

func printOrder(order alphasecapi.Order) {
	fmt.Printf("%-20s %-8s %-4s %-6s price: %-14s qty: %-14s filled: %-14s %s\n",
		order.OrderID, order.MarketID, order.Side, order.OrderType,
		order.Price, order.OrigQty, order.ExecutedQty, order.Status)
}
