/*
root.go - CLI entry point

PURPOSE:
  Declares the root cobra command and the shared --config flag. Each
  subcommand loads configuration and builds its own dependencies; the
  root only dispatches.

SEE ALSO:
  - serve.go: HTTP server subcommand
  - import.go: Bank statement import subcommand
  - reconcile.go: Reconciliation suggestions subcommand
*/
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atlas/compta-engine/config"
	"github.com/atlas/compta-engine/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "compta",
	Short: "Accounting core for Moroccan SMEs",
	Long: `compta is a CGNC accounting engine: it posts commercial documents
to an append-only ledger, reconciles bank statements against open
documents, and aggregates VAT declarations and statement rubrics.`,
	SilenceUsage: true,
}

// Execute runs the CLI. It is the only symbol main needs.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default: ./compta.yaml if present)")
}

// bootstrap loads configuration and builds the logger. Every subcommand
// starts here.
func bootstrap() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}
