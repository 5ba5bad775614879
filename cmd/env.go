package main

import (
	"context"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rotisserie/eris"

	"github.com/sells-group/brickwatch/internal/catalog"
	"github.com/sells-group/brickwatch/internal/config"
	"github.com/sells-group/brickwatch/internal/reconcile"
	"github.com/sells-group/brickwatch/internal/store"
)

func initLedger(ctx context.Context) (store.Ledger, error) {
	l, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open ledger")
	}
	return l, nil
}

func loadCatalog() (*catalog.Catalog, error) {
	return catalog.Load(cfg.Catalog.Path, cfg.Catalog.SheetName)
}

func loadPolicy() (reconcile.Policy, error) {
	p, err := config.LoadPricing(cfg.RatesFile)
	if err != nil {
		return reconcile.Policy{}, err
	}
	return reconcile.NewPolicy(p), nil
}

func newReconciler() (*reconcile.Reconciler, error) {
	policy, err := loadPolicy()
	if err != nil {
		return nil, err
	}
	mode, err := reconcile.ParseMode(cfg.Reconcile.Mode)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Reconcile.Location()
	if err != nil {
		return nil, err
	}
	return reconcile.New(policy, mode,
		reconcile.WithLocation(loc),
		reconcile.WithMerchants(cfg.MerchantNames()...),
	), nil
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}
