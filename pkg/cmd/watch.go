package cmd

import (
	"context"
	"fmt"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/alphasec-trade/alphasec-go/pkg/alphasec"
	"github.com/alphasec-trade/alphasec-go/pkg/cmd/cmdutil"
)

func init() {
	watchCmd.Flags().StringSlice("channel", nil, "channels to subscribe, e.g. ticker@KAIA/USDT, depth@KAIA/USDT, userEvent")

	RootCmd.AddCommand(watchCmd)
}

// go run ./cmd/alphasec watch --channel=ticker@KAIA/USDT --channel=userEvent
var watchCmd = &cobra.Command{
	Use:          "watch --channel=[type@target]...",
	Short:        "connect to the streaming service and print events",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		channels, err := cmd.Flags().GetStringSlice("channel")
		if err != nil {
			return err
		}
		if len(channels) == 0 {
			return fmt.Errorf("at least one --channel option is required")
		}

		agent, err := newAgent(ctx)
		if err != nil {
			return err
		}
		defer agent.Close()

		receiver, err := agent.TakeMessageReceiver()
		if err != nil {
			return err
		}

		if err := agent.Connect(ctx); err != nil {
			return err
		}

		for _, channel := range channels {
			// bare userEvent means the user's own event channel
			if channel == "userEvent" {
				channel = "userEvent@" + agent.Address()
			}

			if _, err := agent.Subscribe(channel); err != nil {
				return err
			}
		}

		go func() {
			for msg := range receiver {
				printStreamMessage(msg)
			}
			cancel()
		}()

		cmdutil.WaitForSignal(ctx, syscall.SIGINT, syscall.SIGTERM)
		return nil
	},
}

func printStreamMessage(msg alphasec.StreamMessage) {
	switch m := msg.(type) {
	case *alphasec.TickerEvent:
		for _, ticker := range m.Tickers {
			log.Infof("ticker %s price: %s volume: %s", ticker.MarketID, ticker.Price, ticker.Volume24H)
		}

	case *alphasec.TradeEvent:
		for _, trade := range m.Trades {
			log.Infof("trade %s price: %s qty: %s", trade.MarketID, trade.Price, trade.Quantity)
		}

	case *alphasec.DepthEvent:
		log.Infof("depth %s bids: %d asks: %d", m.Depth.MarketID, len(m.Depth.Bids), len(m.Depth.Asks))

	case *alphasec.UserEvent:
		switch {
		case m.Order != nil:
			log.Infof("order %s %s %s price: %s qty: %s status: %s",
				m.Order.OrderID, m.Order.MarketID, m.Order.Side,
				m.Order.OrigPrice, m.Order.OrigQty, m.Order.Status)
		case m.Account != nil:
			log.Infof("account %s token: %s amount: %s",
				m.Account.EventType, m.Account.TokenID, m.Account.Amount)
		}

	case *alphasec.DisconnectedEvent:
		log.Warnf("stream disconnected, reconnect attempts exhausted")

	default:
		log.Debugf("event: %+v", msg)
	}
}
