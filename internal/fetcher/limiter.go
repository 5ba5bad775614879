package fetcher

import (
	"context"
	"net/url"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// AdaptiveLimiter wraps a rate.Limiter that slows down after 429 responses
// and recovers gradually on success, never exceeding its initial rate.
type AdaptiveLimiter struct {
	mu          sync.Mutex
	limiter     *rate.Limiter
	maxRate     rate.Limit
	minRate     rate.Limit
	currentRate rate.Limit
}

// NewAdaptiveLimiter creates a limiter with burst 1.
func NewAdaptiveLimiter(initialRate rate.Limit) *AdaptiveLimiter {
	return &AdaptiveLimiter{
		limiter:     rate.NewLimiter(initialRate, 1),
		maxRate:     initialRate,
		minRate:     initialRate / 4,
		currentRate: initialRate,
	}
}

// Wait blocks until the limiter allows a request or ctx is done.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// OnSuccess raises the rate by 20%, up to the initial rate.
func (a *AdaptiveLimiter) OnSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.setLocked(min(a.currentRate*1.2, a.maxRate))
}

// OnRateLimit halves the rate, down to a quarter of the initial rate.
func (a *AdaptiveLimiter) OnRateLimit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.setLocked(max(a.currentRate*0.5, a.minRate))
	zap.L().Warn("fetcher: rate limited, slowing down",
		zap.Float64("new_rate", float64(a.currentRate)),
	)
}

func (a *AdaptiveLimiter) setLocked(r rate.Limit) {
	a.currentRate = r
	a.limiter.SetLimit(r)
}

// Limit returns the current rate.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentRate
}

// hostLimiters hands out one limiter per host, created on first use.
type hostLimiters struct {
	mu       sync.Mutex
	rate     rate.Limit
	limiters map[string]*AdaptiveLimiter
}

func newHostLimiters(r rate.Limit) *hostLimiters {
	return &hostLimiters{rate: r, limiters: make(map[string]*AdaptiveLimiter)}
}

func (h *hostLimiters) forURL(rawURL string) *AdaptiveLimiter {
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = u.Host
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	lim, ok := h.limiters[host]
	if !ok {
		lim = NewAdaptiveLimiter(h.rate)
		h.limiters[host] = lim
	}
	return lim
}
