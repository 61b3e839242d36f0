// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leseb/smartsearch-gw/pkg/core/config"
)

var (
	// Version is set via ldflags during build
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "smartsearch",
	Short: "SmartSearch CLI - ask questions answered from live web search",
	Long: `smartsearch runs the retrieval-augmented answer pipeline in-process:
it fetches results from SearchCans, builds a numbered context and asks an
LLM to answer with [Source N] citations.

Examples:
  smartsearch ask what is the capital of France
  smartsearch ask --engine bing --provider qwen latest Go release
  smartsearch config`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().StringP("config", "c", "config.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "smartsearch %s (built %s)\n", Version, BuildTime)
	},
}

// loadConfig reads the --config file. A missing default file falls back to
// defaults and environment; an explicitly named file must exist. A file
// that exists but is broken is always an error.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if cmd.Flags().Changed("config") {
		return config.Load(path)
	}
	cfg, _, err := config.LoadOrEnv(path)
	return cfg, err
}
