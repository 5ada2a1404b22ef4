// Package session owns the per-guild playback state machine. Every
// session runs a single consumer goroutine draining an inbox of commands
// and node events, so all state transitions for one guild happen in
// arrival order while different guilds proceed independently.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"harmonia/internal/music/node"
	"harmonia/internal/music/queue"
	"harmonia/pkg/backoff"
	"harmonia/pkg/timerset"
)

var (
	ErrBlacklistedTrack  = errors.New("track is blacklisted")
	ErrNoResults         = errors.New("no tracks found for query")
	ErrNothingPlaying    = errors.New("nothing is playing")
	ErrIllegalTransition = errors.New("illegal state transition")
	ErrClosed            = errors.New("session is closed")
	ErrConnection        = errors.New("could not reach voice or audio node")
)

type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnectedIdle
	StatePlaying
	StatePaused
	StateDisconnecting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateConnecting:
		return "CONNECTING"
	case StateConnectedIdle:
		return "CONNECTED_IDLE"
	case StatePlaying:
		return "PLAYING"
	case StatePaused:
		return "PAUSED"
	case StateDisconnecting:
		return "DISCONNECTING"
	default:
		return "UNKNOWN"
	}
}

// transitions is the explicit table of legal state moves. Anything not
// listed is rejected, never silently tolerated.
var transitions = map[State][]State{
	StateIdle:          {StateConnecting},
	StateConnecting:    {StateConnectedIdle, StateIdle, StateDisconnecting},
	StateConnectedIdle: {StatePlaying, StateDisconnecting},
	StatePlaying:       {StatePlaying, StatePaused, StateConnectedIdle, StateDisconnecting},
	StatePaused:        {StatePlaying, StateConnectedIdle, StateDisconnecting},
	StateDisconnecting: {StateIdle},
}

// Blacklist rejects tracks before they may enter a queue.
type Blacklist interface {
	IsBlacklisted(ctx context.Context, url string) (bool, error)
}

// Notifier delivers one user-visible message per failed or notable
// operation. Implementations must not block.
type Notifier interface {
	Notify(guildID, message string)
}

// Config controls timing behavior of a session.
type Config struct {
	IdleTimeout       time.Duration // teardown after this long in CONNECTED_IDLE
	ReconnectAttempts int
	ReconnectInitial  time.Duration
	ReconnectMax      time.Duration
	DefaultVolume     int
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.IdleTimeout <= 0 {
		out.IdleTimeout = 3 * time.Minute
	}
	if out.ReconnectAttempts <= 0 {
		out.ReconnectAttempts = 3
	}
	if out.ReconnectInitial <= 0 {
		out.ReconnectInitial = time.Second
	}
	if out.ReconnectMax <= 0 {
		out.ReconnectMax = 10 * time.Second
	}
	if out.DefaultVolume <= 0 {
		out.DefaultVolume = 70
	}
	return out
}

// Session is the per-guild playback state machine. All fields below the
// inbox are owned by the run goroutine and never touched from outside it.
type Session struct {
	guildID   string
	cfg       Config
	node      node.Client
	blacklist Blacklist
	notifier  Notifier
	onClose   func(guildID string, s *Session)

	queue *queue.TrackQueue

	inbox     chan func()
	closed    chan struct{}
	closeOnce sync.Once

	state        State
	conn         node.Conn
	channelID    string
	volume       int
	autoplay     bool
	lastActivity time.Time
	timers       *timerset.Set
}

// New creates a session and starts its consumer goroutine. onClose runs
// exactly once when the session tears down, whatever triggered it.
func New(guildID string, cfg Config, client node.Client, blacklist Blacklist, notifier Notifier, onClose func(string, *Session)) *Session {
	s := &Session{
		guildID:      guildID,
		cfg:          cfg.withDefaults(),
		node:         client,
		blacklist:    blacklist,
		notifier:     notifier,
		onClose:      onClose,
		queue:        queue.New(),
		inbox:        make(chan func(), 64),
		closed:       make(chan struct{}),
		state:        StateIdle,
		lastActivity: time.Now(),
		timers:       timerset.New(),
	}
	s.volume = s.cfg.DefaultVolume
	go s.run()
	return s
}

func (s *Session) GuildID() string { return s.guildID }

// Closed reports whether the session has been torn down.
func (s *Session) Closed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

func (s *Session) run() {
	for {
		select {
		case fn := <-s.inbox:
			fn()
		case <-s.closed:
			return
		}
	}
}

// post hands an event closure to the consumer goroutine without waiting
// for a result. Used for node events and timer callbacks.
func (s *Session) post(fn func()) {
	select {
	case s.inbox <- fn:
	case <-s.closed:
	}
}

// do runs op on the consumer goroutine and waits for its result.
func (s *Session) do(op func() error) error {
	errCh := make(chan error, 1)
	select {
	case s.inbox <- func() { errCh <- op() }:
	case <-s.closed:
		return ErrClosed
	}
	select {
	case err := <-errCh:
		return err
	case <-s.closed:
		return ErrClosed
	}
}

// transition moves the state machine, rejecting moves not in the table.
func (s *Session) transition(to State) error {
	for _, legal := range transitions[s.state] {
		if legal == to {
			log.Printf("[DEBUG] [Session %s] %s -> %s", s.guildID, s.state, to)
			s.state = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, s.state, to)
}

// Enqueue resolves query against the node, filters it through the
// blacklist and appends the results to the queue, starting playback if
// the session is idle. Resolution and filtering happen before any voice
// or node connection, so a rejected request never drags the bot into
// voice. channelID is the voice channel to join on first use. Returns
// the enqueued tracks.
func (s *Session) Enqueue(ctx context.Context, channelID, query, requester string, priority bool) ([]queue.Track, error) {
	var added []queue.Track
	err := s.do(func() error {
		infos, err := s.node.Resolve(ctx, query)
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			return ErrNoResults
		}

		// A URL resolves to one track; a search query may return several
		// candidates of which only the first is wanted.
		if !strings.Contains(query, "://") && len(infos) > 1 {
			infos = infos[:1]
		}

		for _, info := range infos {
			banned, err := s.blacklist.IsBlacklisted(ctx, info.URL)
			if err != nil {
				return fmt.Errorf("blacklist lookup: %w", err)
			}
			if banned {
				return fmt.Errorf("%w: %s", ErrBlacklistedTrack, info.URL)
			}
		}

		if err := s.ensureConnected(ctx, channelID); err != nil {
			return err
		}

		for _, info := range infos {
			t := queue.Track{
				URL:       info.URL,
				Title:     info.Title,
				Duration:  info.Duration,
				Requester: requester,
			}
			s.queue.Enqueue(t, priority)
			added = append(added, t)
		}

		s.lastActivity = time.Now()
		if s.state == StateConnectedIdle {
			return s.startNext()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// ensureConnected opens the node control session on first use.
// Runs on the consumer goroutine.
func (s *Session) ensureConnected(ctx context.Context, channelID string) error {
	if s.state != StateIdle {
		return nil
	}

	if err := s.transition(StateConnecting); err != nil {
		return err
	}

	conn, err := s.node.Connect(ctx, s.guildID, channelID)
	if err != nil {
		s.state = StateIdle
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}

	s.conn = conn
	s.channelID = channelID
	if err := s.transition(StateConnectedIdle); err != nil {
		return err
	}
	if err := conn.SetVolume(ctx, s.volume); err != nil {
		log.Printf("[WARN] [Session %s] Failed to set initial volume: %v", s.guildID, err)
	}

	go s.pumpEvents(conn)
	s.armIdleTimer()
	return nil
}

// pumpEvents forwards node events into the inbox, preserving order.
func (s *Session) pumpEvents(conn node.Conn) {
	for evt := range conn.Events() {
		evt := evt
		s.post(func() { s.handleNodeEvent(conn, evt) })
	}
}

// handleNodeEvent runs on the consumer goroutine. Events referring to a
// replaced or closed connection are ignored: a teardown or reconnect
// racing an in-flight event must no-op rather than double-fire.
func (s *Session) handleNodeEvent(from node.Conn, evt node.Event) {
	if s.conn != from || s.state == StateDisconnecting || s.state == StateIdle {
		return
	}

	switch evt.Type {
	case node.EventTrackStart:
		log.Printf("[INFO] [Session %s] Track started", s.guildID)

	case node.EventTrackEnd:
		if s.state != StatePlaying {
			return
		}
		s.advance(false)

	case node.EventTrackError:
		log.Printf("[ERR] [Session %s] Track error: %s", s.guildID, evt.Reason)
		s.notify("Playback failed for the current track, skipping.")
		if s.state == StatePlaying || s.state == StatePaused {
			s.advance(true)
		}

	case node.EventDisconnected:
		log.Printf("[WARN] [Session %s] Node connection lost: %s", s.guildID, evt.Reason)
		s.reconnect()

	default:
		// Malformed or unknown node event: logged, ignored, never fatal.
		log.Printf("[WARN] [Session %s] Ignoring unknown node event %q", s.guildID, evt.Type)
	}
}

// maxPlayFailures bounds how many rejected play commands advance will
// absorb in a row before the session gives up and goes idle.
const maxPlayFailures = 5

// advance plays the next queued track, honoring loop modes unless skip
// is set. Tracks the node refuses to play are retired from rotation so
// a loop mode cannot feed them back. An empty queue falls back to
// autoplay or CONNECTED_IDLE.
// Runs on the consumer goroutine.
func (s *Session) advance(skip bool) {
	force := skip
	for failures := 0; failures < maxPlayFailures; failures++ {
		var (
			next queue.Track
			ok   bool
		)
		if force {
			next, ok = s.queue.DequeueSkip()
		} else {
			next, ok = s.queue.DequeueNext()
		}
		force = false

		if !ok && s.autoplay {
			if t, found := s.autoplayNext(); found {
				next, ok = t, true
			}
		}
		if !ok {
			s.goIdle()
			return
		}

		if s.playTrack(next) == nil {
			return
		}
		// The rejected track occupies the playing slot; retire it so
		// loop-queue cannot re-append it on the next pass.
		s.queue.Retire()
	}

	log.Printf("[ERR] [Session %s] %d play failures in a row, going idle", s.guildID, maxPlayFailures)
	s.goIdle()
}

// goIdle halts playback and returns to CONNECTED_IDLE with the idle
// timer armed. Runs on the consumer goroutine.
func (s *Session) goIdle() {
	s.queue.Retire()
	if s.state == StatePlaying || s.state == StatePaused {
		if err := s.conn.Stop(context.Background()); err != nil {
			log.Printf("[WARN] [Session %s] Stop after queue drain: %v", s.guildID, err)
		}
		if err := s.transition(StateConnectedIdle); err != nil {
			log.Printf("[ERR] [Session %s] %v", s.guildID, err)
			return
		}
	}
	s.armIdleTimer()
}

// autoplayNext asks the node for a related track based on the last
// played item and enqueues it.
func (s *Session) autoplayNext() (queue.Track, bool) {
	seed, ok := s.queue.Current()
	if !ok {
		if hist := s.queue.History(); len(hist) > 0 {
			seed, ok = hist[len(hist)-1], true
		}
	}
	if !ok {
		return queue.Track{}, false
	}

	info, err := s.node.Related(context.Background(), seed.URL)
	if err != nil || info == nil {
		if err != nil {
			log.Printf("[WARN] [Session %s] Autoplay lookup failed: %v", s.guildID, err)
		}
		return queue.Track{}, false
	}

	t := queue.Track{URL: info.URL, Title: info.Title, Duration: info.Duration, Requester: "autoplay"}
	s.queue.Enqueue(t, false)
	next, ok := s.queue.DequeueNext()
	return next, ok
}

// playTrack issues the play command and moves to PLAYING. A rejected
// play is reported to the caller; the track stays in the playing slot.
// Runs on the consumer goroutine.
func (s *Session) playTrack(t queue.Track) error {
	if err := s.conn.Play(context.Background(), t.URL); err != nil {
		log.Printf("[ERR] [Session %s] Play %q failed: %v", s.guildID, t.Title, err)
		s.notify(fmt.Sprintf("Could not play %q, skipping.", t.Title))
		return err
	}
	if s.state != StatePlaying {
		if err := s.transition(StatePlaying); err != nil {
			log.Printf("[ERR] [Session %s] %v", s.guildID, err)
			return nil
		}
	}
	s.lastActivity = time.Now()
	s.timers.Cancel("idle")
	log.Printf("[INFO] [Session %s] Now playing %q", s.guildID, t.Title)
	return nil
}

// startNext kicks playback from CONNECTED_IDLE.
// Runs on the consumer goroutine.
func (s *Session) startNext() error {
	s.advance(false)
	return nil
}

// reconnect runs the bounded retry sequence after a node-reported
// connection loss. Exhausting retries tears the session down; the queue
// lives and dies with the session object.
// Runs on the consumer goroutine.
func (s *Session) reconnect() {
	if s.state != StatePlaying && s.state != StatePaused {
		// Connection loss while idle is not worth fighting for.
		s.teardown("node connection lost")
		return
	}

	resumeFrom, hasTrack := s.queue.Current()
	old := s.conn

	pol := backoff.New(s.cfg.ReconnectAttempts, s.cfg.ReconnectInitial, s.cfg.ReconnectMax)
	pol.OnRetry = func(attempt int, err error) {
		log.Printf("[WARN] [Session %s] Reconnect attempt %d failed: %v", s.guildID, attempt, err)
	}

	err := pol.Do(context.Background(), func() error {
		conn, err := s.node.Connect(context.Background(), s.guildID, s.channelID)
		if err != nil {
			return err
		}
		s.conn = conn
		go s.pumpEvents(conn)
		return nil
	})
	_ = old.Close()

	if err != nil {
		log.Printf("[ERR] [Session %s] Reconnect retries exhausted: %v", s.guildID, err)
		s.notify("Lost the audio connection and could not recover. Stopping playback.")
		s.teardown("reconnect failed")
		return
	}

	if err := s.conn.SetVolume(context.Background(), s.volume); err != nil {
		log.Printf("[WARN] [Session %s] Restore volume: %v", s.guildID, err)
	}
	if hasTrack {
		if s.playTrack(resumeFrom) != nil {
			s.queue.Retire()
			s.advance(false)
		}
	}
	log.Printf("[INFO] [Session %s] Node connection restored", s.guildID)
}

// Skip advances to the next track regardless of loop-track mode.
func (s *Session) Skip() error {
	return s.do(func() error {
		if s.state != StatePlaying && s.state != StatePaused {
			return ErrNothingPlaying
		}
		s.advance(true)
		return nil
	})
}

// Pause suspends playback. Legal only from PLAYING.
func (s *Session) Pause(ctx context.Context) error {
	return s.do(func() error {
		if err := s.transitionChecked(StatePlaying, StatePaused); err != nil {
			return err
		}
		return s.conn.Pause(ctx)
	})
}

// Resume continues playback. Legal only from PAUSED.
func (s *Session) Resume(ctx context.Context) error {
	return s.do(func() error {
		if err := s.transitionChecked(StatePaused, StatePlaying); err != nil {
			return err
		}
		return s.conn.Resume(ctx)
	})
}

func (s *Session) transitionChecked(from, to State) error {
	if s.state != from {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, s.state, to)
	}
	return s.transition(to)
}

// Stop tears the session down: playback halted, voice released, the
// session removed from its registry. Safe to call concurrently with an
// idle timeout or node failure; teardown happens exactly once.
func (s *Session) Stop() error {
	err := s.do(func() error {
		s.teardown("stopped by request")
		return nil
	})
	if errors.Is(err, ErrClosed) {
		// Already torn down, which is what Stop wanted.
		return nil
	}
	return err
}

// teardown runs on the consumer goroutine and is idempotent: a second
// trigger finds the state already DISCONNECTING/IDLE and no-ops.
func (s *Session) teardown(reason string) {
	select {
	case <-s.closed:
		return
	default:
	}
	if s.state == StateDisconnecting {
		return
	}

	log.Printf("[INFO] [Session %s] Tearing down: %s", s.guildID, reason)
	s.state = StateDisconnecting
	s.timers.CancelAll()

	if s.conn != nil {
		_ = s.conn.Stop(context.Background())
		_ = s.conn.Close()
		s.conn = nil
	}
	s.state = StateIdle

	s.closeOnce.Do(func() {
		close(s.closed)
		if s.onClose != nil {
			s.onClose(s.guildID, s)
		}
	})
}

// armIdleTimer schedules teardown after the configured idle period.
// Re-arming replaces the previous timer.
func (s *Session) armIdleTimer() {
	s.timers.Set("idle", s.cfg.IdleTimeout, func() {
		s.post(func() {
			if s.state != StateConnectedIdle {
				return
			}
			s.notify(fmt.Sprintf("Playback idle for %s. Goodbye!", s.cfg.IdleTimeout))
			s.teardown("idle timeout")
		})
	})
}

func (s *Session) notify(msg string) {
	if s.notifier != nil {
		s.notifier.Notify(s.guildID, msg)
	}
}

// SetLoopMode changes the loop flag on the queue.
func (s *Session) SetLoopMode(mode queue.LoopMode) error {
	return s.do(func() error {
		s.queue.SetLoopMode(mode)
		return nil
	})
}

// SetShuffle toggles sticky shuffle on the queue.
func (s *Session) SetShuffle(on bool) error {
	return s.do(func() error {
		s.queue.SetShuffleMode(on)
		return nil
	})
}

// SetAutoplay toggles fetching a related track when the queue drains.
func (s *Session) SetAutoplay(on bool) error {
	return s.do(func() error {
		s.autoplay = on
		return nil
	})
}

// SetVolume adjusts playback volume (0-100).
func (s *Session) SetVolume(ctx context.Context, percent int) error {
	return s.do(func() error {
		if percent < 0 || percent > 100 {
			return fmt.Errorf("volume %d out of range 0-100", percent)
		}
		s.volume = percent
		if s.conn == nil {
			return nil
		}
		return s.conn.SetVolume(ctx, percent)
	})
}

// Remove drops a pending track by index.
func (s *Session) Remove(index int) (queue.Track, error) {
	var removed queue.Track
	err := s.do(func() error {
		t, err := s.queue.Remove(index)
		removed = t
		return err
	})
	return removed, err
}

// Shuffle permutes the pending queue once.
func (s *Session) Shuffle() error {
	return s.do(func() error {
		s.queue.Shuffle()
		return nil
	})
}

// Clear drops all pending tracks.
func (s *Session) Clear() error {
	return s.do(func() error {
		s.queue.Clear()
		return nil
	})
}

// Snapshot is a consistent view of the session for status displays.
type Snapshot struct {
	State    State
	Current  *queue.Track
	Pending  []queue.Track
	History  []queue.Track
	LoopMode queue.LoopMode
	Shuffle  bool
	Autoplay bool
	Volume   int
}

// Snapshot captures session state atomically with respect to mutations.
func (s *Session) Snapshot() (Snapshot, error) {
	var snap Snapshot
	err := s.do(func() error {
		snap = Snapshot{
			State:    s.state,
			Pending:  s.queue.Pending(),
			History:  s.queue.History(),
			LoopMode: s.queue.LoopMode(),
			Shuffle:  s.queue.ShuffleMode(),
			Autoplay: s.autoplay,
			Volume:   s.volume,
		}
		if cur, ok := s.queue.Current(); ok {
			snap.Current = &cur
		}
		return nil
	})
	return snap, err
}
