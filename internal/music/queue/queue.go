package queue

import (
	"errors"
	"math/rand"
	"slices"
	"sync"
	"time"
)

// historyLimit bounds how many consumed tracks are kept for display and
// back-navigation.
const historyLimit = 25

var ErrOutOfRange = errors.New("track index out of range")

// Track is a single queued item. Immutable once enqueued.
type Track struct {
	URL       string
	Title     string
	Duration  time.Duration
	Requester string
}

type LoopMode int

const (
	LoopOff LoopMode = iota
	LoopTrack
	LoopQueue
)

func (m LoopMode) String() string {
	switch m {
	case LoopTrack:
		return "track"
	case LoopQueue:
		return "queue"
	default:
		return "off"
	}
}

// TrackQueue is the ordered pending sequence for one guild plus a bounded
// history of consumed tracks. All methods are safe for concurrent use and
// appear atomic to readers.
type TrackQueue struct {
	mu      sync.Mutex
	pending []Track
	history []Track
	current *Track
	mode    LoopMode
	shuffle bool
	rng     *rand.Rand
}

func New() *TrackQueue {
	return &TrackQueue{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Enqueue appends a track, or inserts it at the front of the pending
// sequence when priority is set.
func (q *TrackQueue) Enqueue(t Track, priority bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if priority {
		q.pending = append([]Track{t}, q.pending...)
		return
	}
	q.pending = append(q.pending, t)
}

// DequeueNext retires the current track according to the loop mode and
// returns the next one to play. Under LoopTrack the current track is
// returned again without consuming anything.
func (q *TrackQueue) DequeueNext() (Track, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.advance(false)
}

// DequeueSkip behaves like DequeueNext but always advances, even under
// LoopTrack. Used for explicit skip commands.
func (q *TrackQueue) DequeueSkip() (Track, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.advance(true)
}

// advance must be called with q.mu held.
func (q *TrackQueue) advance(force bool) (Track, bool) {
	if q.mode == LoopTrack && !force && q.current != nil {
		return *q.current, true
	}

	// Retire the finished track: loop-queue re-appends it to the tail,
	// otherwise it moves to the bounded history.
	if q.current != nil {
		if q.mode == LoopQueue {
			q.pending = append(q.pending, *q.current)
		} else {
			q.pushHistory(*q.current)
		}
		q.current = nil
	}

	if len(q.pending) == 0 {
		return Track{}, false
	}

	idx := 0
	if q.shuffle && len(q.pending) > 1 {
		idx = q.rng.Intn(len(q.pending))
	}

	next := q.pending[idx]
	q.pending = slices.Delete(q.pending, idx, idx+1)
	q.current = &next
	return next, true
}

// Retire moves the current track out of the playing slot without picking
// a successor. Loop modes do not apply; the track always goes to history.
func (q *TrackQueue) Retire() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.current != nil {
		q.pushHistory(*q.current)
		q.current = nil
	}
}

func (q *TrackQueue) pushHistory(t Track) {
	q.history = append(q.history, t)
	if len(q.history) > historyLimit {
		q.history = q.history[len(q.history)-historyLimit:]
	}
}

// Peek returns the next pending track without consuming it.
func (q *TrackQueue) Peek() (Track, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return Track{}, false
	}
	return q.pending[0], true
}

// Remove deletes the pending track at index.
func (q *TrackQueue) Remove(index int) (Track, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if index < 0 || index >= len(q.pending) {
		return Track{}, ErrOutOfRange
	}
	t := q.pending[index]
	q.pending = slices.Delete(q.pending, index, index+1)
	return t, nil
}

// Shuffle permutes the pending sequence in place. The currently playing
// track and the history are never touched.
func (q *TrackQueue) Shuffle() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.rng.Shuffle(len(q.pending), func(i, j int) {
		q.pending[i], q.pending[j] = q.pending[j], q.pending[i]
	})
}

// Clear drops every pending track. Current track and history survive.
func (q *TrackQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = nil
}

// Reset drops pending, history and the current pointer.
func (q *TrackQueue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = nil
	q.history = nil
	q.current = nil
}

func (q *TrackQueue) SetLoopMode(mode LoopMode) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.mode = mode
}

func (q *TrackQueue) LoopMode() LoopMode {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.mode
}

// SetShuffleMode toggles sticky shuffle: when on, DequeueNext picks a
// random pending track instead of the head. The original insert order of
// the pending sequence is preserved, so turning shuffle off restores it.
func (q *TrackQueue) SetShuffleMode(on bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.shuffle = on
}

func (q *TrackQueue) ShuffleMode() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.shuffle
}

// Len returns the number of pending tracks.
func (q *TrackQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Current returns the currently playing track, if any.
func (q *TrackQueue) Current() (Track, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.current == nil {
		return Track{}, false
	}
	return *q.current, true
}

// Pending returns a copy of the pending sequence.
func (q *TrackQueue) Pending() []Track {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.pending)
}

// History returns a copy of the consumed-track history, oldest first.
func (q *TrackQueue) History() []Track {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.history)
}
