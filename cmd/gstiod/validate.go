package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gstchain/gstio/pkg/chain"
	"github.com/gstchain/gstio/pkg/cli"
	"github.com/gstchain/gstio/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate the configuration file without starting the daemon.

Checks the YAML structure, field values, and the derived block parameters
(elastic targets, averaging windows) that the daemon would run with.

Examples:
  gstiod validate
  gstiod validate --config /etc/gstio/config.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
		if err != nil {
			return cli.NewConfigError("", err.Error())
		}

		cpu, net, err := chain.BlockParams(cfg.Chain)
		if err != nil {
			return cli.NewConfigError("chain", err.Error())
		}

		fmt.Printf("✓ Configuration valid: %s\n", cfgFile)
		fmt.Printf("  block interval:        %s\n", cfg.Chain.BlockInterval)
		fmt.Printf("  cpu: max=%d target=%d periods=%d\n", cpu.Max, cpu.Target, cpu.Periods)
		fmt.Printf("  net: max=%d target=%d periods=%d\n", net.Max, net.Target, net.Periods)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
