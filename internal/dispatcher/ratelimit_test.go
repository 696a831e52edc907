package dispatcher

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiter_Wait(t *testing.T) {
	rl := NewRateLimiter(10.0, 1)

	start := time.Now()
	if err := rl.Wait(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	// first request is within burst
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("expected immediate response, got %v", elapsed)
	}
}

func TestRateLimiter_Wait_ContextCanceled(t *testing.T) {
	rl := NewRateLimiter(0.1, 1)
	_ = rl.Wait(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := rl.Wait(ctx); err == nil {
		t.Error("expected error due to context timeout, got nil")
	}
}

func TestRateLimiter_PauseFor(t *testing.T) {
	rl := NewRateLimiter(10.0, 1)
	rl.PauseFor(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := rl.Wait(ctx)
	elapsed := time.Since(start)

	if err != context.DeadlineExceeded {
		t.Errorf("expected DeadlineExceeded during pause, got %v", err)
	}
	if elapsed < 80*time.Millisecond {
		t.Errorf("expected to wait for the context deadline, got %v", elapsed)
	}
}

func TestRateLimiter_PauseNeverShortens(t *testing.T) {
	rl := NewRateLimiter(10.0, 1)
	rl.PauseFor(time.Second)
	rl.PauseFor(time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := rl.Wait(ctx); err != context.DeadlineExceeded {
		t.Errorf("expected the longer pause to hold, got %v", err)
	}
}

func TestRateLimiter_RateLimiting(t *testing.T) {
	rl := NewRateLimiter(10.0, 1)

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := rl.Wait(context.Background()); err != nil {
			t.Fatalf("request %d: unexpected error: %v", i, err)
		}
	}

	// 3 requests at 10 rps, burst 1: at least ~200ms
	if elapsed := time.Since(start); elapsed < 180*time.Millisecond {
		t.Errorf("expected throttling, got %v", elapsed)
	}
}

func TestRateLimiter_Unlimited(t *testing.T) {
	rl := NewRateLimiter(0, 0)

	start := time.Now()
	for i := 0; i < 50; i++ {
		if err := rl.Wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("expected no throttling, got %v", elapsed)
	}
}
