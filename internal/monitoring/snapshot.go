package monitoring

import (
	"time"

	"github.com/sells-group/brickwatch/internal/fetcher"
)

// MetricsSnapshot holds the fetch health of one tracking run.
type MetricsSnapshot struct {
	PagesTotal   int     `json:"pages_total"`
	PagesFailed  int     `json:"pages_failed"`
	FailRate     float64 `json:"fail_rate"`
	Observations int     `json:"observations"`

	// BlockedMerchants tripped their block breaker.
	BlockedMerchants []string `json:"blocked_merchants,omitempty"`
	// DownMerchants failed every page without being blocked.
	DownMerchants []string `json:"down_merchants,omitempty"`

	CollectedAt time.Time `json:"collected_at"`
}

// Snapshot summarizes a collection result.
func Snapshot(res fetcher.Result, now time.Time) *MetricsSnapshot {
	snap := &MetricsSnapshot{
		Observations: len(res.Observations),
		CollectedAt:  now,
	}
	for _, s := range res.Stats {
		snap.PagesTotal += s.Pages
		snap.PagesFailed += s.Failed
		switch {
		case s.Tripped:
			snap.BlockedMerchants = append(snap.BlockedMerchants, s.Merchant)
		case s.Pages > 0 && s.Failed == s.Pages:
			snap.DownMerchants = append(snap.DownMerchants, s.Merchant)
		}
	}
	if snap.PagesTotal > 0 {
		snap.FailRate = float64(snap.PagesFailed) / float64(snap.PagesTotal)
	}
	return snap
}
