package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	createSessionCmd.Flags().Duration("ttl", 24*time.Hour, "session lifetime")
	createSessionCmd.Flags().String("metadata", "", "opaque metadata stored with the session")
	updateSessionCmd.Flags().Duration("ttl", 24*time.Hour, "new session lifetime")
	updateSessionCmd.Flags().String("metadata", "", "opaque metadata stored with the session")

	RootCmd.AddCommand(sessionsCmd)
	RootCmd.AddCommand(createSessionCmd)
	RootCmd.AddCommand(updateSessionCmd)
	RootCmd.AddCommand(deleteSessionCmd)
}

// go run ./cmd/alphasec sessions
var sessionsCmd = &cobra.Command{
	Use:          "sessions",
	Short:        "list the registered session wallets",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		agent, err := newAgent(ctx)
		if err != nil {
			return err
		}

		sessions, err := agent.Sessions(ctx)
		if err != nil {
			return err
		}

		for _, session := range sessions {
			expiry := time.UnixMilli(int64(session.Expiry))
			fmt.Printf("%-16s %s expires: %s applied: %v\n",
				session.Name, session.SessionAddress, expiry.Format(time.RFC3339), session.Applied)
		}

		return nil
	},
}

// go run ./cmd/alphasec create-session bot-1 --ttl=24h
var createSessionCmd = &cobra.Command{
	Use:          "create-session [sessionID]",
	Short:        "register the configured session key with the exchange",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		ttl, err := cmd.Flags().GetDuration("ttl")
		if err != nil {
			return err
		}

		metadata, err := cmd.Flags().GetString("metadata")
		if err != nil {
			return err
		}

		agent, err := newAgent(ctx)
		if err != nil {
			return err
		}

		now := time.Now()
		txHash, err := agent.CreateSession(ctx, args[0], nil,
			uint64(now.UnixMilli()), uint64(now.Add(ttl).UnixMilli()), []byte(metadata))
		if err != nil {
			return err
		}

		fmt.Printf("session %s registered: %s\n", args[0], txHash)
		return nil
	},
}

var updateSessionCmd = &cobra.Command{
	Use:          "update-session [sessionID]",
	Short:        "update the expiry and metadata of a registered session",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		ttl, err := cmd.Flags().GetDuration("ttl")
		if err != nil {
			return err
		}

		metadata, err := cmd.Flags().GetString("metadata")
		if err != nil {
			return err
		}

		agent, err := newAgent(ctx)
		if err != nil {
			return err
		}

		now := time.Now()
		txHash, err := agent.UpdateSession(ctx, args[0], nil,
			uint64(now.UnixMilli()), uint64(now.Add(ttl).UnixMilli()), []byte(metadata))
		if err != nil {
			return err
		}

		fmt.Printf("session %s updated: %s\n", args[0], txHash)
		return nil
	},
}

var deleteSessionCmd = &cobra.Command{
	Use:          "delete-session [sessionID]",
	Short:        "revoke a registered session wallet",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		agent, err := newAgent(ctx)
		if err != nil {
			return err
		}

		txHash, err := agent.DeleteSession(ctx, args[0], nil, uint64(time.Now().UnixMilli()))
		if err != nil {
			return err
		}

		fmt.Printf("session %s deleted: %s\n", args[0], txHash)
		return nil
	},
}
