/*
export.go - CSV export subcommand

PURPOSE:
  Writes the reconciliation record list or a VAT period summary as CSV
  (semicolon-delimited, UTF-8 with BOM) to a file or stdout.
*/
package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/atlas/compta-engine/reporting"
	"github.com/atlas/compta-engine/store/sqlite"
)

var (
	exportOut  string
	exportFrom string
	exportTo   string
)

var exportCmd = &cobra.Command{
	Use:   "export <vat|reconciliation>",
	Short: "Export a report as CSV",
	Long: `Export a report as semicolon-delimited CSV with a UTF-8 byte order
mark, the format spreadsheet tools expect.

The vat report requires --from and --to (yyyy-mm-dd, inclusive). The
reconciliation report exports every applied pairing.`,
	Example: `  compta export reconciliation --out lettrage.csv
  compta export vat --from 2025-03-01 --to 2025-03-31`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"vat", "reconciliation"},
	RunE:      runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file (default: stdout)")
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "period start, yyyy-mm-dd (vat only)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "period end, yyyy-mm-dd (vat only)")
}

func runExport(cmd *cobra.Command, args []string) error {
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

	var out io.Writer = os.Stdout
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	ctx := cmd.Context()
	switch args[0] {
	case "reconciliation":
		records, err := store.ListReconciliations(ctx)
		if err != nil {
			return err
		}
		return reporting.WriteReconciliationCSV(out, records)

	case "vat":
		if exportFrom == "" || exportTo == "" {
			return fmt.Errorf("vat export requires --from and --to")
		}
		from, err := time.Parse("2006-01-02", exportFrom)
		if err != nil {
			return fmt.Errorf("--from must be yyyy-mm-dd")
		}
		to, err := time.Parse("2006-01-02", exportTo)
		if err != nil {
			return fmt.Errorf("--to must be yyyy-mm-dd")
		}
		to = to.Add(24*time.Hour - time.Nanosecond)

		ag := reporting.NewAggregator(store, cfg.Regime())
		summary, err := ag.VATSummary(ctx, from, to)
		if err != nil {
			return err
		}
		return reporting.WriteVATCSV(out, summary)

	default:
		return fmt.Errorf("unknown report %q (want vat or reconciliation)", args[0])
	}
}
