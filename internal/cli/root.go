package cli

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfg    *Config
	client *Client
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	loadDotEnv()
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "draftctl",
		Short: "CLI tool for the draftroom API",
		Long: `draftctl is a CLI tool for interacting with the draftroom JSON API.

It supports creating drafts, managing teams, submitting bans and picks,
and streaming a draft's events in real time.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load token from file if not provided via flag/env
			if err := cfg.LoadToken(); err != nil {
				return err
			}

			// Create HTTP client
			client = NewClient(cfg.ServerURL, cfg.Token)
			return nil
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Server URL (env: DRAFTCTL_SERVER)")
	rootCmd.PersistentFlags().StringVar(&cfg.Token, "token", cfg.Token, "Identity token (env: DRAFTCTL_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&cfg.TokenFile, "token-file", cfg.TokenFile, "Token file path (env: DRAFTCTL_TOKEN_FILE)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose output")

	// Add subcommands
	rootCmd.AddCommand(newTemplatesCmd())
	rootCmd.AddCommand(newCreateCmd())
	rootCmd.AddCommand(newShowCmd())
	rootCmd.AddCommand(newTurnCmd("ban", "BAN"))
	rootCmd.AddCommand(newTurnCmd("pick", "PICK"))
	rootCmd.AddCommand(newAssignCmd())
	rootCmd.AddCommand(newUnassignCmd())
	rootCmd.AddCommand(newReadyCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newTokenCmd())
	rootCmd.AddCommand(newHealthCmd())

	return rootCmd
}

// loadDotEnv reads DRAFTCTL_ENV_FILE (default .env) into the environment
// without overriding variables that are already set
func loadDotEnv() {
	path := os.Getenv("DRAFTCTL_ENV_FILE")
	if path == "" {
		path = ".env"
	}
	_ = godotenv.Load(path)
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
