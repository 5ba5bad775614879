package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/brickwatch/internal/fetcher"
	"github.com/sells-group/brickwatch/internal/notify"
	"github.com/sells-group/brickwatch/internal/promo"
)

var promosCmd = &cobra.Command{
	Use:   "promos",
	Short: "Check the aggregator promotions page and email new offers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		ledger, err := initLedger(ctx)
		if err != nil {
			return err
		}
		defer ledger.Close() //nolint:errcheck

		client := fetcher.NewClient(fetcher.ClientOptions{
			UserAgent:         cfg.Fetch.UserAgent,
			AcceptLanguage:    cfg.Fetch.AcceptLanguage,
			Timeout:           time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
			MaxRetries:        cfg.Fetch.MaxRetries,
			RequestsPerSecond: cfg.Fetch.RequestsPerSecond,
		})
		w := promo.NewWatcher(client, ledger, notify.FromConfig(cfg), cfg.Avenue.PromotionsURL)

		report, err := w.Run(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d promotion(s) listed, %d new\n", report.Listed, len(report.New))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(promosCmd)
}
