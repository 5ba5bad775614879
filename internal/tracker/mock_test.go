package tracker

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/sells-group/brickwatch/internal/catalog"
	"github.com/sells-group/brickwatch/internal/fetcher"
	"github.com/sells-group/brickwatch/internal/model"
	"github.com/sells-group/brickwatch/internal/store"
)

type stubCollector struct {
	result fetcher.Result
	err    error
}

func (s stubCollector) Collect(context.Context, *catalog.Catalog) (fetcher.Result, error) {
	return s.result, s.err
}

// memLedger is an in-memory store.Ledger.
type memLedger struct {
	records   []model.PriceHistoryRecord
	appendErr error
	latestAt  []time.Time // before arguments seen by Latest
}

var _ store.Ledger = (*memLedger)(nil)

func (m *memLedger) Append(_ context.Context, records []model.PriceHistoryRecord) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.records = append(m.records, records...)
	return nil
}

func (m *memLedger) Latest(_ context.Context, before time.Time) ([]model.PriceHistoryRecord, error) {
	m.latestAt = append(m.latestAt, before)
	latest := make(map[model.PriceKey]model.PriceHistoryRecord)
	for _, r := range m.records {
		if !before.IsZero() && !r.RecordedAt.Before(before) {
			continue
		}
		if cur, ok := latest[r.Key()]; !ok || !r.RecordedAt.Before(cur.RecordedAt) {
			latest[r.Key()] = r
		}
	}
	out := make([]model.PriceHistoryRecord, 0, len(latest))
	for _, r := range latest {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ItemID != out[j].ItemID {
			return out[i].ItemID < out[j].ItemID
		}
		return out[i].Merchant < out[j].Merchant
	})
	return out, nil
}

func (m *memLedger) History(context.Context, store.HistoryFilter) ([]model.PriceHistoryRecord, error) {
	return nil, errors.New("not implemented")
}

func (m *memLedger) RemoveItem(context.Context, string) (int, error) { return 0, nil }

func (m *memLedger) SeenPromotions(context.Context, []string) (map[string]bool, error) {
	return map[string]bool{}, nil
}

func (m *memLedger) MarkPromotionsSeen(context.Context, []string) error { return nil }
func (m *memLedger) Migrate(context.Context) error                      { return nil }
func (m *memLedger) Close() error                                       { return nil }

type recordingNotifier struct {
	batches [][]model.Deal
	err     error
}

func (r *recordingNotifier) Notify(_ context.Context, deals []model.Deal) error {
	r.batches = append(r.batches, deals)
	return r.err
}

type countingHealth struct {
	runs int
}

func (c *countingHealth) CheckRun(context.Context, fetcher.Result) int {
	c.runs++
	return 0
}
