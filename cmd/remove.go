package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var removeCmd = &cobra.Command{
	Use:   "remove <set-id>",
	Short: "Delete every recorded price of a set",
	Long:  "Deletes the whole price history of a set. Use it after removing the set from the tracking sheet.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		ledger, err := initLedger(ctx)
		if err != nil {
			return err
		}
		defer ledger.Close() //nolint:errcheck

		n, err := ledger.RemoveItem(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "remove")
		}
		zap.L().Info("removed price history", zap.String("item", args[0]), zap.Int("records", n))
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d record(s) for %s\n", n, args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(removeCmd)
}
