package resilience

import (
	"sync"

	"github.com/rotisserie/eris"
)

// ErrBreakerOpen is returned by Allow once a breaker has tripped.
var ErrBreakerOpen = eris.New("breaker open")

// Breaker trips after a number of consecutive failures and stays open for
// its lifetime. A tracking run creates one per merchant so that a site
// serving block pages is not hit for every remaining item.
type Breaker struct {
	mu        sync.Mutex
	threshold int
	failures  int
	open      bool
}

// NewBreaker creates a breaker. A threshold <= 0 disables tripping.
func NewBreaker(threshold int) *Breaker {
	return &Breaker{threshold: threshold}
}

// Allow returns ErrBreakerOpen once the breaker has tripped.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.open {
		return ErrBreakerOpen
	}
	return nil
}

// Record counts a call outcome. Success resets the failure streak.
func (b *Breaker) Record(failed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !failed {
		b.failures = 0
		return
	}
	b.failures++
	if b.threshold > 0 && b.failures >= b.threshold {
		b.open = true
	}
}

// Open reports whether the breaker has tripped.
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}
