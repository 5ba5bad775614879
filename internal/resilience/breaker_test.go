package resilience

import (
	"errors"
	"testing"
)

func TestBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	b := NewBreaker(2)
	b.Record(true)
	if b.Open() {
		t.Fatal("breaker opened after one failure")
	}
	b.Record(true)
	if !b.Open() {
		t.Fatal("breaker should be open after two failures")
	}
	if err := b.Allow(); !errors.Is(err, ErrBreakerOpen) {
		t.Errorf("expected ErrBreakerOpen, got %v", err)
	}
}

func TestBreaker_SuccessResetsStreak(t *testing.T) {
	b := NewBreaker(2)
	b.Record(true)
	b.Record(false)
	b.Record(true)
	if b.Open() {
		t.Fatal("failures were not consecutive")
	}
	if err := b.Allow(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestBreaker_ZeroThresholdNeverTrips(t *testing.T) {
	b := NewBreaker(0)
	for i := 0; i < 10; i++ {
		b.Record(true)
	}
	if b.Open() {
		t.Fatal("disabled breaker tripped")
	}
}
