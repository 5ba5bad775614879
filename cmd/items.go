package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/sells-group/brickwatch/internal/catalog"
	"github.com/sells-group/brickwatch/internal/model"
	"github.com/sells-group/brickwatch/internal/reconcile"
	"github.com/sells-group/brickwatch/internal/store"
)

// itemView is a catalog item with its current market position.
type itemView struct {
	model.TrackedItem
	Merchants    int              `json:"merchants"`
	BestPrice    *decimal.Decimal `json:"best_price,omitempty"`
	BestMerchant string           `json:"best_merchant,omitempty"`
	FairPrice    *decimal.Decimal `json:"fair_price,omitempty"`
	Quality      model.Quality    `json:"quality,omitempty"`
}

// buildItemViews joins the catalog with the newest price of every series.
// Items keep sheet order; items never priced have no best price.
func buildItemViews(ctx context.Context, cat *catalog.Catalog, ledger store.Ledger, policy reconcile.Policy) ([]itemView, error) {
	latest, err := ledger.Latest(ctx, time.Time{})
	if err != nil {
		return nil, eris.Wrap(err, "items: latest prices")
	}

	type best struct {
		price    decimal.Decimal
		merchant string
	}
	bests := make(map[string]best)
	for _, r := range latest {
		b, ok := bests[r.ItemID]
		if !ok || r.Price.LessThan(b.price) || (r.Price.Equal(b.price) && r.Merchant < b.merchant) {
			bests[r.ItemID] = best{price: r.Price, merchant: r.Merchant}
		}
	}

	views := make([]itemView, 0, cat.Len())
	for _, id := range cat.IDs() {
		it := cat.Items[id]
		v := itemView{TrackedItem: it, Merchants: len(it.URLs)}
		if fair, ok := policy.FairPrice(it); ok {
			v.FairPrice = &fair
		}
		if b, ok := bests[id]; ok {
			p := b.price
			v.BestPrice = &p
			v.BestMerchant = b.merchant
			if v.FairPrice != nil {
				v.Quality = policy.Classify(p, *v.FairPrice)
			}
		}
		views = append(views, v)
	}
	return views, nil
}

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "List tracked sets with their best current price",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		cat, err := loadCatalog()
		if err != nil {
			return err
		}
		policy, err := loadPolicy()
		if err != nil {
			return err
		}
		ledger, err := initLedger(ctx)
		if err != nil {
			return err
		}
		defer ledger.Close() //nolint:errcheck

		views, err := buildItemViews(ctx, cat, ledger, policy)
		if err != nil {
			return err
		}
		if len(views) == 0 {
			fmt.Fprintln(os.Stderr, "Catalog is empty.")
			return nil
		}

		t := newTable()
		t.AppendHeader(table.Row{"Set", "Name", "Collection", "Merchants", "Best", "At", "Fair", "Quality"})
		for _, v := range views {
			t.AppendRow(table.Row{v.ID, v.DisplayName(), v.Collection, v.Merchants,
				euros(v.BestPrice), v.BestMerchant, euros(v.FairPrice), string(v.Quality)})
		}
		t.Render()
		return nil
	},
}

func euros(d *decimal.Decimal) string {
	if d == nil {
		return "-"
	}
	return d.StringFixed(2) + "€"
}

func init() {
	rootCmd.AddCommand(itemsCmd)
}
