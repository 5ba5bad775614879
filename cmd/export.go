package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/brickwatch/internal/catalog"
	"github.com/sells-group/brickwatch/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the full price history to an xlsx sheet",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		out, _ := cmd.Flags().GetString("out")

		ledger, err := initLedger(ctx)
		if err != nil {
			return err
		}
		defer ledger.Close() //nolint:errcheck

		records, err := ledger.History(ctx, store.HistoryFilter{})
		if err != nil {
			return eris.Wrap(err, "export")
		}
		loc, err := cfg.Reconcile.Location()
		if err != nil {
			return err
		}
		if err := catalog.WriteHistoryXLSX(out, records, loc); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d record(s) to %s\n", len(records), out)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("out", "prix_lego.xlsx", "output xlsx path")
	rootCmd.AddCommand(exportCmd)
}
