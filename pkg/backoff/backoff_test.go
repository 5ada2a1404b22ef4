package backoff

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testPolicy(attempts int) *Policy {
	p := New(attempts, time.Millisecond, 4*time.Millisecond)
	p.Jitter = false
	return p
}

func TestDoSucceedsFirstTry(t *testing.T) {
	calls := 0
	err := testPolicy(3).Do(context.Background(), func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	pol := testPolicy(5)
	var retries []int
	pol.OnRetry = func(attempt int, err error) {
		retries = append(retries, attempt)
	}

	calls := 0
	err := pol.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	if len(retries) != 2 || retries[0] != 1 || retries[1] != 2 {
		t.Fatalf("OnRetry attempts = %v, want [1 2]", retries)
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	base := errors.New("still down")
	calls := 0
	err := testPolicy(3).Do(context.Background(), func() error {
		calls++
		return base
	})
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	if !errors.Is(err, base) {
		t.Fatalf("err = %v, want wrapped %v", err, base)
	}
}

func TestDoStopsOnFatal(t *testing.T) {
	base := errors.New("bad credentials")
	calls := 0
	err := testPolicy(5).Do(context.Background(), func() error {
		calls++
		return &Fatal{Err: base}
	})
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if !errors.Is(err, base) {
		t.Fatalf("err = %v, want wrapped %v", err, base)
	}
}

func TestAddJitterTinyDelay(t *testing.T) {
	for _, d := range []time.Duration{0, 1, 2, 3} {
		if got := addJitter(d); got != d {
			t.Fatalf("addJitter(%d) = %d, want %d", d, got, d)
		}
	}
	if got := addJitter(100 * time.Millisecond); got < 100*time.Millisecond || got >= 125*time.Millisecond {
		t.Fatalf("addJitter(100ms) = %s, want within [100ms, 125ms)", got)
	}
}

func TestDoHonorsContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	pol := New(10, 50*time.Millisecond, time.Second)
	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- pol.Do(ctx, func() error {
			calls++
			return errors.New("transient")
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Do did not return after cancel")
	}
}
