package reconcile

import (
	"sort"
	"time"

	"github.com/sells-group/brickwatch/internal/model"
)

// History indexes ledger records by series for baseline lookups. It does
// not need the full ledger: the latest record per series (and, for market
// mode, the latest before the start of the day) is enough.
type History struct {
	series map[model.PriceKey][]model.PriceHistoryRecord
	byItem map[string][]string
}

// NewHistory indexes records. Input order is irrelevant except for equal
// timestamps, where the later record wins.
func NewHistory(records []model.PriceHistoryRecord) *History {
	h := &History{
		series: make(map[model.PriceKey][]model.PriceHistoryRecord),
		byItem: make(map[string][]string),
	}
	for _, rec := range records {
		k := rec.Key()
		if _, ok := h.series[k]; !ok {
			h.byItem[k.ItemID] = append(h.byItem[k.ItemID], k.Merchant)
		}
		h.series[k] = append(h.series[k], rec)
	}
	for k, recs := range h.series {
		sort.SliceStable(recs, func(i, j int) bool {
			return recs[i].RecordedAt.Before(recs[j].RecordedAt)
		})
		h.series[k] = recs
	}
	for id := range h.byItem {
		sort.Strings(h.byItem[id])
	}
	return h
}

// Baseline returns the most recent record of a series.
func (h *History) Baseline(k model.PriceKey) (model.PriceHistoryRecord, bool) {
	recs := h.series[k]
	if len(recs) == 0 {
		return model.PriceHistoryRecord{}, false
	}
	return recs[len(recs)-1], true
}

// BaselineBefore returns the most recent record of a series strictly
// before cutoff.
func (h *History) BaselineBefore(k model.PriceKey, cutoff time.Time) (model.PriceHistoryRecord, bool) {
	recs := h.series[k]
	i := sort.Search(len(recs), func(i int) bool {
		return !recs[i].RecordedAt.Before(cutoff)
	})
	if i == 0 {
		return model.PriceHistoryRecord{}, false
	}
	return recs[i-1], true
}

// Merchants lists the merchants with history for an item, sorted.
func (h *History) Merchants(itemID string) []string {
	return h.byItem[itemID]
}

// Len returns the number of indexed series.
func (h *History) Len() int {
	return len(h.series)
}
