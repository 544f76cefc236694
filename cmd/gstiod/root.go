package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "gstiod",
	Short: "GSTIO resource governance daemon",
	Long: `Gstiod meters and governs the chain's three named resources:

  - CPU: windowed moving average of billed execution time
  - NET: windowed moving average of consumed bandwidth
  - RAM: absolute byte quota for stored state

Accounts stake weights that entitle them to a proportional share of the
chain's elastic block capacity, which expands when the chain is idle and
contracts under congestion. The daemon also enforces the prepaid resource
model, checkpoints ledger state to SQLite, and serves a read-only status
API.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
