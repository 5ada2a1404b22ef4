package rooms

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"harmonia/pkg/timerset"
)

// room is the manager's private record of one live temporary channel.
type room struct {
	id                string
	hubID             string
	ownerID           string
	createdAt         time.Time
	transferOwnership bool
	state             RoomState

	// members maps user id to join time, the join time drives
	// longest-resident ownership transfer.
	members map[string]time.Time
}

// Manager tracks the temporary rooms of one guild. Voice events for the
// guild are delivered in arrival order by the event router; the mutex
// additionally guards timer callbacks and command-layer reads.
type Manager struct {
	guildID   string
	platform  Platform
	snapshots Snapshotter
	grace     time.Duration

	mu       sync.Mutex
	policies map[string]Policy // hub channel id -> policy
	rooms    map[string]*room  // room channel id -> record
	timers   *timerset.Set
}

func NewManager(guildID string, platform Platform, snapshots Snapshotter, grace time.Duration) *Manager {
	if grace <= 0 {
		grace = 15 * time.Second
	}
	return &Manager{
		guildID:   guildID,
		platform:  platform,
		snapshots: snapshots,
		grace:     grace,
		policies:  make(map[string]Policy),
		rooms:     make(map[string]*room),
		timers:    timerset.New(),
	}
}

// SetPolicy registers or replaces the hub configuration for a channel.
func (m *Manager) SetPolicy(p Policy) {
	if p.NameTemplate == "" {
		p.NameTemplate = DefaultNameTemplate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policies[p.HubChannelID] = p
}

// RemovePolicy drops a hub configuration. Rooms already spawned from it
// live out their normal lifecycle.
func (m *Manager) RemovePolicy(hubChannelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.policies[hubChannelID]; !ok {
		return ErrNoPolicy
	}
	delete(m.policies, hubChannelID)
	return nil
}

// Policies lists the configured hubs.
func (m *Manager) Policies() []Policy {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Policy, 0, len(m.policies))
	for _, p := range m.policies {
		out = append(out, p)
	}
	return out
}

// Rooms lists the live temporary rooms.
func (m *Manager) Rooms() []Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, Room{
			ID:        r.id,
			GuildID:   m.guildID,
			HubID:     r.hubID,
			OwnerID:   r.ownerID,
			CreatedAt: r.createdAt,
			Members:   len(r.members),
			State:     r.state,
		})
	}
	return out
}

// HandleVoice processes one voice-state change: a user moved from
// channel before to channel after (either may be empty). Duplicate or
// out-of-order events are tolerated; occupancy is a member set, so a
// repeated leave never drives the count negative.
func (m *Manager) HandleVoice(ctx context.Context, userID, username, before, after string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if before == after {
		return nil
	}

	if r, ok := m.rooms[before]; ok {
		m.handleLeave(ctx, r, userID)
	}
	if r, ok := m.rooms[after]; ok {
		m.handleJoin(r, userID)
		return nil
	}

	if pol, ok := m.policies[after]; ok {
		// A duplicate hub join from a user who already owns a live room
		// spawned by this hub reuses that room instead of stacking up
		// another channel.
		for _, r := range m.rooms {
			if r.ownerID == userID && r.hubID == pol.HubChannelID {
				log.Printf("[INFO] [Rooms %s] %s rejoined hub %s, moving back to room %s", m.guildID, userID, after, r.id)
				if err := m.platform.MoveMember(ctx, m.guildID, userID, r.id); err != nil {
					log.Printf("[WARN] [Rooms %s] Move %s back into %s: %v", m.guildID, userID, r.id, err)
				}
				return nil
			}
		}
		return m.createRoom(ctx, pol, userID, username)
	}
	return nil
}

// createRoom spawns a channel from the hub policy, grants the creator
// elevated permissions and moves them in. Platform failure surfaces as
// RoomCreationError and leaves no local record.
// Called with m.mu held.
func (m *Manager) createRoom(ctx context.Context, pol Policy, userID, username string) error {
	name := strings.ReplaceAll(pol.NameTemplate, "%username", username)

	channelID, err := m.platform.CreateVoiceChannel(ctx, m.guildID, name)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRoomCreation, err)
	}

	if err := m.platform.GrantRoomOwner(ctx, m.guildID, channelID, userID); err != nil {
		log.Printf("[WARN] [Rooms %s] Grant owner on %s: %v", m.guildID, channelID, err)
	}
	if err := m.platform.MoveMember(ctx, m.guildID, userID, channelID); err != nil {
		log.Printf("[WARN] [Rooms %s] Move %s into %s: %v", m.guildID, userID, channelID, err)
	}

	r := &room{
		id:                channelID,
		hubID:             pol.HubChannelID,
		ownerID:           userID,
		createdAt:         time.Now(),
		transferOwnership: pol.TransferOwnership,
		state:             StateCreated,
		members:           make(map[string]time.Time),
	}
	m.rooms[channelID] = r

	// Until the move-in is confirmed by a voice event the room counts
	// as empty; the grace timer catches a move that never lands.
	m.armGrace(r)
	m.saveSnapshot()

	log.Printf("[INFO] [Rooms %s] Created room %s (%q) for %s", m.guildID, channelID, name, userID)
	return nil
}

// handleJoin records a member entering a tracked room.
// Called with m.mu held.
func (m *Manager) handleJoin(r *room, userID string) {
	if _, ok := r.members[userID]; !ok {
		r.members[userID] = time.Now()
	}
	if r.state == StateCreated || r.state == StateEmptyGrace {
		r.state = StateOccupied
		m.timers.Cancel(r.id)
	}
}

// handleLeave records a member leaving a tracked room, transferring
// ownership or starting the empty-grace timer as needed.
// Called with m.mu held.
func (m *Manager) handleLeave(ctx context.Context, r *room, userID string) {
	if _, ok := r.members[userID]; !ok {
		return
	}
	delete(r.members, userID)

	if userID == r.ownerID && len(r.members) > 0 && r.transferOwnership {
		m.transferOwner(ctx, r)
	}

	if len(r.members) == 0 && r.state == StateOccupied {
		r.state = StateEmptyGrace
		m.armGrace(r)
		log.Printf("[INFO] [Rooms %s] Room %s empty, grace timer armed", m.guildID, r.id)
	}
}

// transferOwner hands the room to the longest-resident remaining member.
// Called with m.mu held.
func (m *Manager) transferOwner(ctx context.Context, r *room) {
	var (
		heir     string
		earliest time.Time
	)
	for id, joined := range r.members {
		if heir == "" || joined.Before(earliest) {
			heir, earliest = id, joined
		}
	}

	r.ownerID = heir
	if err := m.platform.GrantRoomOwner(ctx, m.guildID, r.id, heir); err != nil {
		log.Printf("[WARN] [Rooms %s] Transfer ownership of %s to %s: %v", m.guildID, r.id, heir, err)
		return
	}
	m.saveSnapshot()
	log.Printf("[INFO] [Rooms %s] Room %s ownership passed to %s", m.guildID, r.id, heir)
}

// armGrace schedules deletion once the grace period elapses.
// Called with m.mu held.
func (m *Manager) armGrace(r *room) {
	id := r.id
	m.timers.Set(id, m.grace, func() {
		m.expireRoom(id)
	})
}

// expireRoom runs on the timer goroutine when grace elapses. A join
// that raced in meanwhile cancels deletion.
func (m *Manager) expireRoom(channelID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[channelID]
	if !ok || len(r.members) > 0 || r.state == StateOccupied {
		return
	}
	m.deleteRoom(context.Background(), r, "grace elapsed")
}

// DeleteRoom removes a room immediately, bypassing the grace period.
func (m *Manager) DeleteRoom(ctx context.Context, channelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[channelID]
	if !ok {
		return ErrUnknownRoom
	}
	m.deleteRoom(ctx, r, "manual deletion")
	return nil
}

// deleteRoom tears down the platform channel and the local record.
// Called with m.mu held.
func (m *Manager) deleteRoom(ctx context.Context, r *room, reason string) {
	m.timers.Cancel(r.id)
	if err := m.platform.DeleteChannel(ctx, m.guildID, r.id); err != nil {
		log.Printf("[WARN] [Rooms %s] Delete channel %s: %v", m.guildID, r.id, err)
	}
	r.state = StateDeleted
	delete(m.rooms, r.id)
	m.saveSnapshot()
	log.Printf("[INFO] [Rooms %s] Room %s deleted: %s", m.guildID, r.id, reason)
}

// Reconcile rebuilds the live-room set from the persisted snapshot and
// current platform state. Channels that vanished while the process was
// down are dropped; surviving empty rooms go straight to grace. Must run
// before the first voice event is accepted.
func (m *Manager) Reconcile(ctx context.Context) error {
	if m.snapshots == nil {
		return nil
	}
	snaps, err := m.snapshots.Load(m.guildID)
	if err != nil {
		return fmt.Errorf("load room snapshot: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, snap := range snaps {
		exists, err := m.platform.ChannelExists(ctx, m.guildID, snap.ID)
		if err != nil {
			return fmt.Errorf("check channel %s: %w", snap.ID, err)
		}
		if !exists {
			log.Printf("[INFO] [Rooms %s] Dropping vanished room %s from snapshot", m.guildID, snap.ID)
			continue
		}

		occupants, err := m.platform.ChannelOccupants(ctx, m.guildID, snap.ID)
		if err != nil {
			return fmt.Errorf("list occupants of %s: %w", snap.ID, err)
		}

		r := &room{
			id:                snap.ID,
			hubID:             snap.HubID,
			ownerID:           snap.OwnerID,
			createdAt:         snap.CreatedAt,
			transferOwnership: snap.TransferOwnership,
			members:           make(map[string]time.Time),
		}
		// Residency order is lost across a restart; everyone present
		// counts as joined now.
		now := time.Now()
		for _, id := range occupants {
			r.members[id] = now
		}

		if len(r.members) == 0 {
			r.state = StateEmptyGrace
			m.armGrace(r)
		} else {
			r.state = StateOccupied
		}
		m.rooms[snap.ID] = r
	}

	m.saveSnapshot()
	log.Printf("[INFO] [Rooms %s] Reconciled %d live room(s)", m.guildID, len(m.rooms))
	return nil
}

// saveSnapshot persists the live-room set. Called with m.mu held.
func (m *Manager) saveSnapshot() {
	if m.snapshots == nil {
		return
	}
	snaps := make([]RoomSnapshot, 0, len(m.rooms))
	for _, r := range m.rooms {
		snaps = append(snaps, RoomSnapshot{
			ID:                r.id,
			HubID:             r.hubID,
			OwnerID:           r.ownerID,
			CreatedAt:         r.createdAt,
			TransferOwnership: r.transferOwnership,
		})
	}
	if err := m.snapshots.Save(m.guildID, snaps); err != nil {
		log.Printf("[WARN] [Rooms %s] Save room snapshot: %v", m.guildID, err)
	}
}

// Close cancels pending grace timers. Live rooms stay on the platform
// and are picked up again by Reconcile.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timers.CancelAll()
}
