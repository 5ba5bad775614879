package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/brickwatch/internal/catalog"
)

var importPath string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Append a legacy xlsx price history to the ledger",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if importPath == "" {
			return eris.New("xlsx path is required (--xlsx)")
		}
		loc, err := cfg.Reconcile.Location()
		if err != nil {
			return err
		}
		records, err := catalog.ReadHistoryXLSX(importPath, loc)
		if err != nil {
			return eris.Wrap(err, "import xlsx")
		}

		ledger, err := initLedger(ctx)
		if err != nil {
			return err
		}
		defer ledger.Close() //nolint:errcheck

		if err := ledger.Append(ctx, records); err != nil {
			return eris.Wrap(err, "import xlsx")
		}

		zap.L().Info("import complete",
			zap.Int("records", len(records)),
			zap.String("xlsx", importPath),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importPath, "xlsx", "", "path to the history sheet (required)")
	_ = importCmd.MarkFlagRequired("xlsx")
	rootCmd.AddCommand(importCmd)
}
