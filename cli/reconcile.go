/*
reconcile.go - Reconciliation subcommand

PURPOSE:
  Runs the automatic matcher over unreconciled bank transactions and
  outstanding documents. By default it only prints the suggestions;
  with --apply it records them as reconciliations.
*/
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atlas/compta-engine/reconcile"
	"github.com/atlas/compta-engine/store/sqlite"
)

var reconcileApply bool

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Suggest or apply bank reconciliation matches",
	Example: `  # Print suggestions only
  compta reconcile

  # Record every suggestion
  compta reconcile --apply`,
	RunE: runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
	reconcileCmd.Flags().BoolVar(&reconcileApply, "apply", false, "apply the suggested matches")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()

	store, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	ctx := cmd.Context()
	txns, err := store.ListUnreconciledBankTransactions(ctx)
	if err != nil {
		return err
	}
	docs, err := store.ListOutstanding(ctx, "")
	if err != nil {
		return err
	}

	matcher := reconcile.NewMatcher(cfg.MatcherParams())
	matches := matcher.AutoMatch(txns, docs)
	if len(matches) == 0 {
		fmt.Println("No matches above threshold.")
		return nil
	}

	for _, m := range matches {
		fmt.Printf("%-20s -> %-20s score %.2f\n", m.BankID, m.DocID, m.Score)
	}

	if !reconcileApply {
		fmt.Printf("%d suggestion(s). Re-run with --apply to record them.\n", len(matches))
		return nil
	}

	reconciler := reconcile.NewReconciler(store)
	if err := reconciler.ApplyAll(ctx, matches); err != nil {
		return err
	}
	log.Info("reconciliations applied", zap.Int("count", len(matches)))
	fmt.Printf("Applied %d reconciliation(s).\n", len(matches))
	return nil
}
