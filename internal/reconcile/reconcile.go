// Package reconcile compares fresh price observations with the ledger and
// decides which rows to append and which price drops to announce.
package reconcile

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sells-group/brickwatch/internal/model"
)

// Mode selects how deals are detected.
type Mode string

const (
	// ModeMerchant announces every drop of an (item, merchant) series.
	ModeMerchant Mode = "merchant"
	// ModeMarket announces an item only when today's cheapest offer across
	// all merchants beats yesterday's cheapest offer.
	ModeMarket Mode = "market"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeMerchant, ModeMarket:
		return m, nil
	default:
		return "", eris.Errorf("reconcile: unknown mode %q", s)
	}
}

// Rejection is an observation that violated the fetcher contract.
type Rejection struct {
	Observation model.PriceObservation
	Reason      string
}

// Result is the outcome of one reconciliation pass.
type Result struct {
	NewRecords []model.PriceHistoryRecord
	Deals      []model.Deal
	Rejected   []Rejection
}

// Reconciler turns a batch of observations into ledger rows and deals. It
// performs no I/O and never mutates its inputs.
type Reconciler struct {
	policy    Policy
	mode      Mode
	clock     func() time.Time
	loc       *time.Location
	merchants map[string]bool
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithClock overrides the timestamp source for appended records.
func WithClock(clock func() time.Time) Option {
	return func(r *Reconciler) { r.clock = clock }
}

// WithLocation sets the time zone that defines "today" in market mode.
func WithLocation(loc *time.Location) Option {
	return func(r *Reconciler) { r.loc = loc }
}

// WithMerchants restricts observations to a known merchant set.
func WithMerchants(names ...string) Option {
	return func(r *Reconciler) {
		r.merchants = make(map[string]bool, len(names))
		for _, n := range names {
			r.merchants[n] = true
		}
	}
}

// New creates a Reconciler.
func New(policy Policy, mode Mode, opts ...Option) *Reconciler {
	r := &Reconciler{
		policy: policy,
		mode:   mode,
		clock:  time.Now,
		loc:    time.UTC,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Mode returns the configured deal detection mode.
func (r *Reconciler) Mode() Mode { return r.mode }

// MarketCutoff returns the start of the current day in the configured
// zone. Market mode compares against prices known before it.
func (r *Reconciler) MarketCutoff() time.Time {
	return startOfDay(r.clock(), r.loc)
}

// Reconcile processes observations in order against history.
func (r *Reconciler) Reconcile(observations []model.PriceObservation, history *History, items map[string]model.TrackedItem) Result {
	if history == nil {
		history = NewHistory(nil)
	}
	now := r.clock()

	var res Result
	// Rows appended earlier in this batch shadow the ledger.
	pending := make(map[model.PriceKey]model.PriceHistoryRecord)
	var accepted []model.PriceObservation

	for _, o := range observations {
		if reason := r.validate(o); reason != "" {
			zap.L().Error("reconcile: rejected observation",
				zap.String("item", o.ItemID),
				zap.String("merchant", o.Merchant),
				zap.String("price", o.Price.String()),
				zap.String("reason", reason),
			)
			res.Rejected = append(res.Rejected, Rejection{Observation: o, Reason: reason})
			continue
		}
		accepted = append(accepted, o)

		k := o.Key()
		base, ok := pending[k]
		if !ok {
			base, ok = history.Baseline(k)
		}

		if ok && !r.policy.changed(o.Price, base.Price) {
			zap.L().Debug("reconcile: price unchanged",
				zap.String("item", o.ItemID),
				zap.String("merchant", o.Merchant),
				zap.String("price", o.Price.String()),
			)
			continue
		}

		rec := model.PriceHistoryRecord{
			ItemID:     o.ItemID,
			ItemName:   items[o.ItemID].Name,
			Merchant:   o.Merchant,
			Price:      o.Price,
			SourceURL:  o.SourceURL,
			RecordedAt: now,
		}
		res.NewRecords = append(res.NewRecords, rec)
		pending[k] = rec

		if !ok {
			zap.L().Info("reconcile: first price recorded",
				zap.String("item", o.ItemID),
				zap.String("merchant", o.Merchant),
				zap.String("price", o.Price.String()),
			)
			continue
		}

		zap.L().Info("reconcile: price changed",
			zap.String("item", o.ItemID),
			zap.String("merchant", o.Merchant),
			zap.String("previous", base.Price.String()),
			zap.String("price", o.Price.String()),
		)

		if r.mode == ModeMerchant && r.policy.dropped(o.Price, base.Price) {
			res.Deals = append(res.Deals, r.buildDeal(o, base.Price, items))
		}
	}

	if r.mode == ModeMarket {
		res.Deals = r.marketDeals(accepted, history, items, startOfDay(now, r.loc))
	}
	return res
}

// marketDeals compares each item's cheapest offer in this batch with the
// cheapest of the per-merchant prices known before cutoff.
func (r *Reconciler) marketDeals(observations []model.PriceObservation, history *History, items map[string]model.TrackedItem, cutoff time.Time) []model.Deal {
	var order []string
	best := make(map[string]model.PriceObservation)
	for _, o := range observations {
		cur, seen := best[o.ItemID]
		if !seen {
			order = append(order, o.ItemID)
		}
		if !seen || o.Price.LessThan(cur.Price) {
			best[o.ItemID] = o
		}
	}

	var deals []model.Deal
	for _, id := range order {
		today := best[id]
		yesterday, ok := r.previousMarketMin(id, history, cutoff)
		if !ok {
			zap.L().Debug("reconcile: no previous market price",
				zap.String("item", id),
			)
			continue
		}
		if !r.policy.dropped(today.Price, yesterday) {
			continue
		}
		d := r.buildDeal(today, yesterday, items)
		d.MarketBest = true
		deals = append(deals, d)
	}
	return deals
}

func (r *Reconciler) previousMarketMin(itemID string, history *History, cutoff time.Time) (decimal.Decimal, bool) {
	var (
		lowest decimal.Decimal
		found  bool
	)
	for _, m := range history.Merchants(itemID) {
		rec, ok := history.BaselineBefore(model.PriceKey{ItemID: itemID, Merchant: m}, cutoff)
		if !ok {
			continue
		}
		if !found || rec.Price.LessThan(lowest) {
			lowest = rec.Price
			found = true
		}
	}
	return lowest, found
}

// buildDeal assembles a deal. A missing catalog entry or piece count
// degrades the deal to standard quality rather than dropping it.
func (r *Reconciler) buildDeal(o model.PriceObservation, previous decimal.Decimal, items map[string]model.TrackedItem) model.Deal {
	d := model.Deal{
		ItemID:        o.ItemID,
		DisplayName:   o.ItemID,
		Merchant:      o.Merchant,
		NewPrice:      o.Price,
		PreviousPrice: previous,
		SourceURL:     o.SourceURL,
		Quality:       model.QualityStandard,
	}

	item, ok := items[o.ItemID]
	if !ok {
		zap.L().Warn("reconcile: no catalog entry for deal, skipping fair price",
			zap.String("item", o.ItemID),
		)
		return d
	}
	d.DisplayName = item.DisplayName()
	d.ImageURL = item.ImageURL

	fair, ok := r.policy.FairPrice(item)
	if !ok {
		return d
	}
	d.FairPrice = &fair
	d.Quality = r.policy.Classify(o.Price, fair)
	return d
}

func (r *Reconciler) validate(o model.PriceObservation) string {
	switch {
	case o.ItemID == "":
		return "empty item id"
	case o.Merchant == "":
		return "empty merchant"
	case r.merchants != nil && !r.merchants[o.Merchant]:
		return "unknown merchant"
	case !o.Price.IsPositive():
		return "non-positive price"
	}
	return ""
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}
