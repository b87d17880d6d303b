// Package cli defines the Cobra commands for the companion binary.
package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	logx "github.com/Chative-core-poc-v1/companion/pkg/logger"
)

var (
	envFile string
	version = "dev" // set via ldflags at build time

	cfg AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "companion",
	Short: "Conversational companion that turns chat into habits, goals and reminders",
	Long: `Companion routes each user message through an intent-driven flow engine.
It collects answers step by step, survives topic changes mid-flow, and
saves confirmed habits, goals and reminders to the configured store.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(envFile); err != nil && cmd.Flags().Changed("env-file") {
			return fmt.Errorf("loading %s: %w", envFile, err)
		}
		loaded, err := LoadConfig()
		if err != nil {
			return err
		}
		cfg = loaded
		logx.Init(cfg.LoggerOpts())
		return nil
	},
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(recordsCmd)
}
