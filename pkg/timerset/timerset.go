// Package timerset provides named, cancellable one-shot timers with
// in-memory tracking, used for grace periods and idle timeouts.
//
// Typical usage:
//
//	ts := timerset.New()
//	ts.Set("room:123", 15*time.Second, func() {
//	    deleteRoom("123")
//	})
//
//	// a member re-joined...
//	ts.Cancel("room:123")
//
// The package is intentionally minimal: no persistence, no rescheduling.
// A fired or cancelled timer is removed automatically.
package timerset

import (
	"sync"
	"time"
)

// Set tracks named timers. It is safe for concurrent use.
type Set struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

// New creates an empty Set.
func New() *Set {
	return &Set{timers: make(map[string]*time.Timer)}
}

// Set arms a timer under name, replacing any timer already armed under
// the same name. fn runs in its own goroutine when the timer fires.
func (s *Set) Set(name string, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[name]; ok {
		t.Stop()
	}

	s.timers[name] = time.AfterFunc(d, func() {
		s.mu.Lock()
		delete(s.timers, name)
		s.mu.Unlock()
		fn()
	})
}

// Cancel stops the named timer. It reports whether a timer was armed
// and stopped before firing.
func (s *Set) Cancel(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.timers[name]
	if !ok {
		return false
	}
	delete(s.timers, name)
	return t.Stop()
}

// Active reports whether a timer is currently armed under name.
func (s *Set) Active(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[name]
	return ok
}

// CancelAll stops every armed timer.
func (s *Set) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, t := range s.timers {
		t.Stop()
		delete(s.timers, name)
	}
}
