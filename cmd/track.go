package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/sells-group/brickwatch/internal/fetcher"
	"github.com/sells-group/brickwatch/internal/model"
	"github.com/sells-group/brickwatch/internal/monitoring"
	"github.com/sells-group/brickwatch/internal/notify"
	"github.com/sells-group/brickwatch/internal/tracker"
)

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Fetch current prices, record changes and notify drops",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rec, err := newReconciler()
		if err != nil {
			return err
		}
		collector, err := fetcher.FromConfig(cfg)
		if err != nil {
			return err
		}
		ledger, err := initLedger(ctx)
		if err != nil {
			return err
		}
		defer ledger.Close() //nolint:errcheck

		t := tracker.New(loadCatalog, collector, ledger, rec, notify.FromConfig(cfg),
			tracker.WithHealthChecker(monitoring.NewAlerter(cfg.Monitoring)),
		)
		sum, err := t.Run(ctx)
		if err != nil {
			return err
		}

		printSummary(sum)
		if len(sum.Deals) > 0 {
			printDeals(sum.Deals)
		}
		return nil
	},
}

func printSummary(sum tracker.Summary) {
	t := newTable()
	t.AppendHeader(table.Row{"Items", "Observations", "Failures", "Recorded", "Rejected", "Deals", "Duration"})
	t.AppendRow(table.Row{sum.Items, sum.Observations, sum.Failures, sum.Recorded, sum.Rejected, len(sum.Deals), sum.Duration.Round(time.Millisecond)})
	t.Render()
}

func printDeals(deals []model.Deal) {
	t := newTable()
	t.AppendHeader(table.Row{"Set", "Merchant", "Previous", "New", "Quality", "Link"})
	for _, d := range deals {
		quality := string(d.Quality)
		if d.MarketBest {
			quality += " (market best)"
		}
		t.AppendRow(table.Row{d.DisplayName, d.Merchant, fmt.Sprintf("%s€", d.PreviousPrice.StringFixed(2)), fmt.Sprintf("%s€", d.NewPrice.StringFixed(2)), quality, d.SourceURL})
	}
	t.Render()
}

func init() {
	rootCmd.AddCommand(trackCmd)
}
