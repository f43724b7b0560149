package main

import (
	"github.com/spf13/cobra"

	"github.com/frozenpine/ip4view/log"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "ip4view",
	Short: "Inspect and rewrite IPv4 headers in place",
	Long: `ip4view reads captured frames, interprets their IPv4 headers in place
and optionally rewrites TTL and addresses before re-stamping the header checksum.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return log.SetLevel(logLevel)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info",
		"log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(rewriteCmd)
}
