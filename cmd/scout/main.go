// Package main is the scout command line interface.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose     bool
	projectRoot string

	// Logger for CLI-level diagnostics. Engine internals log through
	// internal/logging into .scout/logs.
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "scout",
	Short: "scout - cascading research engine for software projects",
	Long: `scout answers natural-language questions about a software project
by cascading through evidence tiers, cheapest first:

  1. Project files (manifests, configs, decision records)
  2. Recorded decisions (local knowledge graph)
  3. The live environment (docker, kubectl, oc, ansible, host tools)
  4. Web search (only when explicitly authorized)

Every answer carries an overall confidence score and full source
attribution, so you can see exactly which evidence it rests on.

Run without arguments to start the interactive session.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// The interactive session owns the terminal; keep zap quiet there.
		if cmd.Use == "scout" && cmd.CalledAs() == "scout" {
			return nil
		}

		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSession()
	},
}

// versionCmd prints the build version
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the scout version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("scout %s\n", scoutVersion)
	},
}

const scoutVersion = "0.4.1"

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&projectRoot, "project", "p", "", "Project root the questions are about (default: current directory)")

	// Ask flags
	askCmd.Flags().Float64Var(&askThreshold, "threshold", 0, "Confidence threshold to clear before stopping the cascade (default from config)")
	askCmd.Flags().BoolVar(&askWeb, "web", true, "Authorize a web search when local evidence falls short")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "Emit the full answer as JSON instead of rendered markdown")
	askCmd.Flags().DurationVar(&askTimeout, "timeout", 0, "Overall deadline for this question (default from config)")

	// Graph flags
	graphAddCmd.Flags().StringVar(&graphBody, "body", "", "Decision body text")
	graphAddCmd.Flags().Float64Var(&graphConfidence, "confidence", 0, "Stored confidence in [0,1] (default 0.7)")
	graphLinkCmd.Flags().Float64Var(&graphWeight, "weight", 1.0, "Link weight in [0,1]")

	// Graph subcommands
	graphCmd.AddCommand(graphAddCmd)
	graphCmd.AddCommand(graphLinkCmd)
	graphCmd.AddCommand(graphRelatedCmd)
	graphCmd.AddCommand(graphStatsCmd)

	// Cache subcommands
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)

	// Add commands to root
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(envCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
