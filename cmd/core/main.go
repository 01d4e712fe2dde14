package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	serverAddr string
)

var rootCmd = &cobra.Command{
	Use:   "core",
	Short: "Pooled card wallet ledger",
	Long: `core runs the pooled card ledger service and talks to a running instance.
Without a subcommand it starts the server.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to yaml config (default $LEDGER_CONFIG or config/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverAddr, "addr", "localhost:50051", "ledger gRPC address for client commands")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
