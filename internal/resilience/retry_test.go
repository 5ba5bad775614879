package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestDo_SuccessOnFirstAttempt(t *testing.T) {
	var calls int
	err := Do(context.Background(), fastRetry(3), func(_ context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_SuccessAfterRetry(t *testing.T) {
	var calls int
	err := Do(context.Background(), fastRetry(3), func(_ context.Context) error {
		calls++
		if calls < 3 {
			return NewTransientError(errors.New("temporary"), 503)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_ExhaustsRetries(t *testing.T) {
	var calls int
	err := Do(context.Background(), fastRetry(3), func(_ context.Context) error {
		calls++
		return NewTransientError(errors.New("always fails"), 500)
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_NonTransientError_NoRetry(t *testing.T) {
	var calls int
	err := Do(context.Background(), fastRetry(5), func(_ context.Context) error {
		calls++
		return errors.New("blocked by captcha")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_ContextCancelled_StopsRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastRetry(5)
	cfg.InitialBackoff = time.Second
	cfg.MaxBackoff = time.Second

	var calls int
	cfg.OnRetry = func(int, error) { cancel() }
	err := Do(ctx, cfg, func(_ context.Context) error {
		calls++
		return NewTransientError(errors.New("busy"), 503)
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call before cancellation, got %d", calls)
	}
}

func TestDo_CustomShouldRetry(t *testing.T) {
	cfg := fastRetry(3)
	cfg.ShouldRetry = func(err error) bool { return err.Error() == "retry me" }

	var calls int
	_ = Do(context.Background(), cfg, func(_ context.Context) error {
		calls++
		return errors.New("retry me")
	})
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_OnRetryCallback(t *testing.T) {
	cfg := fastRetry(3)
	var attempts []int
	cfg.OnRetry = func(attempt int, _ error) { attempts = append(attempts, attempt) }

	_ = Do(context.Background(), cfg, func(_ context.Context) error {
		return NewTransientError(errors.New("busy"), 429)
	})
	if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
		t.Errorf("unexpected retry attempts: %v", attempts)
	}
}

func TestDoVal_ReturnsValueOnSuccess(t *testing.T) {
	var calls int
	got, err := DoVal(context.Background(), fastRetry(3), func(_ context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", NewTransientError(errors.New("busy"), 503)
		}
		return "<html>", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "<html>" {
		t.Errorf("expected body, got %q", got)
	}
}

func TestDoVal_ReturnsZeroOnFailure(t *testing.T) {
	got, err := DoVal(context.Background(), fastRetry(2), func(_ context.Context) (int, error) {
		return 42, errors.New("permanent")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if got != 0 {
		t.Errorf("expected zero value, got %d", got)
	}
}

func TestWithRetries(t *testing.T) {
	if got := WithRetries(2).MaxAttempts; got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
	if got := WithRetries(-1).MaxAttempts; got != 1 {
		t.Errorf("expected 1 attempt, got %d", got)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := applyDefaults(RetryConfig{JitterFraction: -1})
	def := DefaultRetryConfig()
	if cfg.MaxAttempts != def.MaxAttempts || cfg.InitialBackoff != def.InitialBackoff ||
		cfg.MaxBackoff != def.MaxBackoff || cfg.Multiplier != def.Multiplier {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.JitterFraction != 0 {
		t.Errorf("negative jitter should clamp to 0, got %v", cfg.JitterFraction)
	}
}

func TestComputeBackoff_ExponentialGrowth(t *testing.T) {
	cfg := RetryConfig{InitialBackoff: 100 * time.Millisecond, MaxBackoff: time.Minute, Multiplier: 2}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}
	for i, w := range want {
		if got := computeBackoff(i, cfg); got != w {
			t.Errorf("attempt %d: expected %v, got %v", i, w, got)
		}
	}
}

func TestComputeBackoff_CapsAtMax(t *testing.T) {
	cfg := RetryConfig{InitialBackoff: time.Second, MaxBackoff: 3 * time.Second, Multiplier: 10}
	if got := computeBackoff(5, cfg); got != 3*time.Second {
		t.Errorf("expected cap of 3s, got %v", got)
	}
}

func TestComputeBackoff_WithJitter(t *testing.T) {
	cfg := RetryConfig{InitialBackoff: time.Second, MaxBackoff: time.Minute, Multiplier: 2, JitterFraction: 0.5}
	for i := 0; i < 50; i++ {
		got := computeBackoff(0, cfg)
		if got < 500*time.Millisecond || got > 1500*time.Millisecond {
			t.Fatalf("jittered backoff out of range: %v", got)
		}
	}
}

func TestRetryLogger(t *testing.T) {
	fn := RetryLogger("fetcher", "https://www.lego.com")
	fn(1, errors.New("busy")) // must not panic with the no-op global logger
}
