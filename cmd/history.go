package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/brickwatch/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded prices, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		ledger, err := initLedger(ctx)
		if err != nil {
			return err
		}
		defer ledger.Close() //nolint:errcheck

		item, _ := cmd.Flags().GetString("item")
		merchant, _ := cmd.Flags().GetString("merchant")
		limit, _ := cmd.Flags().GetInt("limit")

		records, err := ledger.History(ctx, store.HistoryFilter{ItemID: item, Merchant: merchant, Limit: limit})
		if err != nil {
			return eris.Wrap(err, "history")
		}
		if len(records) == 0 {
			fmt.Fprintln(os.Stderr, "No prices recorded.")
			return nil
		}

		loc, err := cfg.Reconcile.Location()
		if err != nil {
			return err
		}
		t := newTable()
		t.AppendHeader(table.Row{"Recorded", "Set", "Name", "Merchant", "Price"})
		for _, r := range records {
			t.AppendRow(table.Row{r.RecordedAt.In(loc).Format(time.DateTime), r.ItemID, r.ItemName, r.Merchant, r.Price.StringFixed(2) + "€"})
		}
		t.Render()
		return nil
	},
}

func init() {
	historyCmd.Flags().String("item", "", "filter by set ID")
	historyCmd.Flags().String("merchant", "", "filter by merchant")
	historyCmd.Flags().Int("limit", 50, "maximum rows (0 for all)")
	rootCmd.AddCommand(historyCmd)
}
