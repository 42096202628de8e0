package cmd

import (
	"context"
	"os"
	"strings"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/alphasec-trade/alphasec-go/pkg/alphasec"
)

var RootCmd = &cobra.Command{
	Use:   "alphasec",
	Short: "alphasec exchange client",

	// SilenceUsage is an option to silence usage when an error occurs.
	SilenceUsage: true,

	RunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
}

func init() {
	RootCmd.PersistentFlags().Bool("debug", false, "debug flag")
	RootCmd.PersistentFlags().String("env", ".env.local", "the dotenv file to load")

	RootCmd.PersistentFlags().String("api-url", "", "rest endpoint, defaults to the production endpoint")
	RootCmd.PersistentFlags().String("ws-url", "", "websocket endpoint, derived from the rest endpoint when empty")
	RootCmd.PersistentFlags().String("network", "mainnet", "network, mainnet or kairos")
	RootCmd.PersistentFlags().String("address", "", "owner address, derived from the l1 key when empty")
	RootCmd.PersistentFlags().String("l1-private-key", "", "owner private key in hex")
	RootCmd.PersistentFlags().String("l2-private-key", "", "session private key in hex")
	RootCmd.PersistentFlags().Bool("session", false, "sign trading transactions with the session key")
}

// newAgent builds an agent from the flags and the environment and loads the
// token metadata.
func newAgent(ctx context.Context) (*alphasec.Agent, error) {
	network, err := alphasec.ParseNetwork(viper.GetString("network"))
	if err != nil {
		return nil, err
	}

	agent, err := alphasec.New(&alphasec.Config{
		APIURL:         viper.GetString("api-url"),
		WSURL:          viper.GetString("ws-url"),
		Network:        network,
		Address:        viper.GetString("address"),
		L1PrivateKey:   viper.GetString("l1-private-key"),
		L2PrivateKey:   viper.GetString("l2-private-key"),
		SessionEnabled: viper.GetBool("session"),
	})
	if err != nil {
		return nil, err
	}

	if err := agent.Initialize(ctx); err != nil {
		return nil, err
	}

	return agent, nil
}

func Execute() {
	viper.SetEnvPrefix("alphasec")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.BindPFlags(RootCmd.PersistentFlags()); err != nil {
		log.WithError(err).Errorf("failed to bind persistent flags. please check the flag settings.")
	}

	if viper.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}

	if envFile := viper.GetString("env"); envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				log.WithError(err).Fatalf("failed to load %s", envFile)
			}
		}
	}

	if err := RootCmd.Execute(); err != nil {
		log.WithError(err).Fatalf("cannot execute command")
	}
}
