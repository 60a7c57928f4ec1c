// Package main implements the agrinexus CLI for running evaluation cycles locally.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "agrinexus",
	Short: "Soil monitoring and remediation research pipeline",
	Long: `agrinexus reads soil sensors, flags zones outside the crop's optimal ranges,
researches remediation for each problem and prints an advisory.

Configuration is read from AGRINEXUS_* environment variables and the YAML file
named by AGRINEXUS_CONFIG_FILE; flags override both.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.AddCommand(cycleCmd)
	rootCmd.AddCommand(cropsCmd)
}
