// Package tracker runs one price tracking pass: collect, reconcile,
// record, notify.
package tracker

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/brickwatch/internal/catalog"
	"github.com/sells-group/brickwatch/internal/fetcher"
	"github.com/sells-group/brickwatch/internal/model"
	"github.com/sells-group/brickwatch/internal/notify"
	"github.com/sells-group/brickwatch/internal/reconcile"
	"github.com/sells-group/brickwatch/internal/store"
)

// CatalogLoader returns the current tracking sheet.
type CatalogLoader func() (*catalog.Catalog, error)

// Collector reads current prices. *fetcher.Collector implements it.
type Collector interface {
	Collect(ctx context.Context, cat *catalog.Catalog) (fetcher.Result, error)
}

// HealthChecker inspects the fetch outcome of a run.
type HealthChecker interface {
	CheckRun(ctx context.Context, res fetcher.Result) int
}

// Summary reports what a run did.
type Summary struct {
	Items        int
	Observations int
	Failures     int
	Recorded     int
	Rejected     int
	Deals        []model.Deal
	Duration     time.Duration
}

// Tracker wires the stages of a run together.
type Tracker struct {
	loadCatalog CatalogLoader
	collector   Collector
	ledger      store.Ledger
	reconciler  *reconcile.Reconciler
	notifier    notify.Notifier
	health      HealthChecker
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithHealthChecker reports fetch health after collection.
func WithHealthChecker(h HealthChecker) Option {
	return func(t *Tracker) { t.health = h }
}

// New creates a Tracker. notifier may be nil.
func New(loadCatalog CatalogLoader, collector Collector, ledger store.Ledger, reconciler *reconcile.Reconciler, notifier notify.Notifier, opts ...Option) *Tracker {
	t := &Tracker{
		loadCatalog: loadCatalog,
		collector:   collector,
		ledger:      ledger,
		reconciler:  reconciler,
		notifier:    notifier,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run performs one tracking pass. Prices are recorded before deals are
// sent; a notification failure is logged and never undoes the recording.
func (t *Tracker) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	log := zap.L().With(zap.String("component", "tracker"), zap.String("mode", string(t.reconciler.Mode())))

	cat, err := t.loadCatalog()
	if err != nil {
		return Summary{}, eris.Wrap(err, "tracker: load catalog")
	}
	sum := Summary{Items: cat.Len()}
	log.Info("tracker: run started", zap.Int("items", sum.Items))

	collected, err := t.collector.Collect(ctx, cat)
	if err != nil {
		return sum, eris.Wrap(err, "tracker: collect prices")
	}
	sum.Observations = len(collected.Observations)
	sum.Failures = len(collected.Failures)
	if t.health != nil {
		t.health.CheckRun(ctx, collected)
	}

	history, err := t.loadHistory(ctx)
	if err != nil {
		return sum, err
	}

	res := t.reconciler.Reconcile(collected.Observations, history, cat.Items)
	sum.Rejected = len(res.Rejected)
	sum.Deals = res.Deals

	if err := t.ledger.Append(ctx, res.NewRecords); err != nil {
		return sum, eris.Wrap(err, "tracker: record prices")
	}
	sum.Recorded = len(res.NewRecords)

	if len(res.Deals) > 0 && t.notifier != nil {
		if err := t.notifier.Notify(ctx, res.Deals); err != nil {
			log.Error("tracker: deal notification failed, prices are recorded", zap.Error(err))
		}
	}

	sum.Duration = time.Since(start)
	log.Info("tracker: run complete",
		zap.Int("observations", sum.Observations),
		zap.Int("failures", sum.Failures),
		zap.Int("recorded", sum.Recorded),
		zap.Int("rejected", sum.Rejected),
		zap.Int("deals", len(sum.Deals)),
		zap.Duration("duration", sum.Duration),
	)
	return sum, nil
}

// loadHistory reads the baselines the reconciler needs: the latest record
// of every series, plus in market mode the latest record before today.
func (t *Tracker) loadHistory(ctx context.Context) (*reconcile.History, error) {
	latest, err := t.ledger.Latest(ctx, time.Time{})
	if err != nil {
		return nil, eris.Wrap(err, "tracker: load latest prices")
	}
	if t.reconciler.Mode() != reconcile.ModeMarket {
		return reconcile.NewHistory(latest), nil
	}

	before, err := t.ledger.Latest(ctx, t.reconciler.MarketCutoff())
	if err != nil {
		return nil, eris.Wrap(err, "tracker: load prices before today")
	}
	return reconcile.NewHistory(append(before, latest...)), nil
}
