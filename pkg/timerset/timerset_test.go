package timerset

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestSetFires(t *testing.T) {
	ts := New()
	fired := make(chan struct{})

	ts.Set("a", 10*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}

	if ts.Active("a") {
		t.Fatal("fired timer should be removed")
	}
}

func TestCancelPreventsFire(t *testing.T) {
	ts := New()
	var fired atomic.Bool

	ts.Set("a", 20*time.Millisecond, func() { fired.Store(true) })

	if !ts.Cancel("a") {
		t.Fatal("expected Cancel to stop the armed timer")
	}

	time.Sleep(50 * time.Millisecond)
	if fired.Load() {
		t.Fatal("cancelled timer fired")
	}
	if ts.Cancel("a") {
		t.Fatal("second Cancel should report no timer")
	}
}

func TestSetReplacesExisting(t *testing.T) {
	ts := New()
	var first, second atomic.Bool

	ts.Set("a", 20*time.Millisecond, func() { first.Store(true) })
	ts.Set("a", 20*time.Millisecond, func() { second.Store(true) })

	time.Sleep(60 * time.Millisecond)
	if first.Load() {
		t.Fatal("replaced timer fired")
	}
	if !second.Load() {
		t.Fatal("replacement timer did not fire")
	}
}

func TestCancelAll(t *testing.T) {
	ts := New()
	var count atomic.Int32

	for _, name := range []string{"a", "b", "c"} {
		ts.Set(name, 20*time.Millisecond, func() { count.Add(1) })
	}
	ts.CancelAll()

	time.Sleep(50 * time.Millisecond)
	if n := count.Load(); n != 0 {
		t.Fatalf("expected no timers to fire, got %d", n)
	}
}
