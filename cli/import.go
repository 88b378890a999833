/*
import.go - Bank statement import subcommand

PURPOSE:
  Reads a bank statement file (CSV with semicolon separators, or JSON)
  and loads its transactions into the store. Import is all-or-nothing:
  one bad row rejects the file and reports the row index.
*/
package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atlas/compta-engine/bankfeed"
	"github.com/atlas/compta-engine/compta"
	"github.com/atlas/compta-engine/store/sqlite"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a bank statement file",
	Long: `Import bank transactions from a CSV or JSON file.

CSV files use semicolon separators with a header row naming at least
date, amount and label columns (a reference column is optional). A
UTF-8 byte order mark is tolerated. Dates are RFC3339 or yyyy-mm-dd.`,
	Example: `  compta import statement.csv
  compta import transactions.json`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	var txns []compta.BankTransaction
	switch strings.ToLower(filepath.Ext(args[0])) {
	case ".json":
		txns, err = bankfeed.ParseJSON(f)
	default:
		txns, err = bankfeed.ParseCSV(f)
	}
	if err != nil {
		var rowErr *compta.RowError
		if errors.As(err, &rowErr) {
			return fmt.Errorf("row %d: %w", rowErr.Index, err)
		}
		return err
	}

	store, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	if err := store.AddBankTransactions(cmd.Context(), txns); err != nil {
		return err
	}

	log.Info("bank transactions imported",
		zap.String("file", args[0]),
		zap.Int("count", len(txns)))
	fmt.Printf("Imported %d transactions from %s\n", len(txns), args[0])
	return nil
}
