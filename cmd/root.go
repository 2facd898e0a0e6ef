package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "zubi",
	Short: "Zubi, the WhatsApp nutrition assistant",
	Long: `Zubi collects a patient's profile over WhatsApp, computes daily
nutrition targets and keeps a running food journal.

Configuration is read from ZUBI_* environment variables and an optional .env file.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "path to an optional .env file")
	rootCmd.AddCommand(newServeCmd(), newChatCmd(), newMigrateCmd(), newTokenCmd())
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
