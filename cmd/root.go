// Package cmd wires the chat widget's CLI commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"chatwidget/internal/config"
	"chatwidget/internal/store"
)

var (
	flagEndpoint  string
	flagAPIKey    string
	flagStore     string
	flagStatePath string
	flagVerbose   bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "chatwidget",
	Short: "Streaming chat client with persistent sessions",
	Long: `An interactive chat client that streams assistant replies from a
chat backend and keeps every conversation in a local session store.

Sessions survive restarts; switch between them, start new ones, or
inspect them with the sessions subcommands.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(flagVerbose)

		cfg = config.FromEnvironment()
		if flagEndpoint != "" {
			cfg.EndpointURL = flagEndpoint
		}
		if flagAPIKey != "" {
			cfg.APIKey = flagAPIKey
		}
		if flagStore != "" {
			cfg.StoreBackend = flagStore
		}
		if flagStatePath != "" {
			cfg.StatePath = flagStatePath
		}
		cfg.Verbose = flagVerbose
		return cfg.Validate()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagEndpoint, "endpoint", "", "Chat backend URL (default from CHAT_ENDPOINT_URL)")
	rootCmd.PersistentFlags().StringVar(&flagAPIKey, "api-key", "", "API key sent with every request")
	rootCmd.PersistentFlags().StringVar(&flagStore, "store", "", "State store backend: file, sqlite or memory")
	rootCmd.PersistentFlags().StringVar(&flagStatePath, "state-path", "", "Path to the state file or database")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")
}

func setupLogging(verbose bool) {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

// openStore builds the configured persistent store. The returned close
// function is a no-op for backends without resources to release.
func openStore() (store.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.StoreMemory:
		return store.NewMemoryStore(), func() {}, nil
	case config.StoreSQLite:
		s, err := store.NewSQLiteStore(cfg.StatePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	default:
		s, err := store.NewFileStore(cfg.StatePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	}
}
