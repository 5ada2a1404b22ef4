package rooms

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakePlatform struct {
	mu       sync.Mutex
	nextID   int
	channels map[string][]string // channel id -> occupants
	owners   map[string]string   // channel id -> owner user id
	created  []string            // channel names, in creation order
	failNext error
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		channels: make(map[string][]string),
		owners:   make(map[string]string),
	}
}

func (p *fakePlatform) CreateVoiceChannel(ctx context.Context, guildID, name string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failNext != nil {
		err := p.failNext
		p.failNext = nil
		return "", err
	}
	p.nextID++
	id := fmt.Sprintf("chan-%d", p.nextID)
	p.channels[id] = nil
	p.created = append(p.created, name)
	return id, nil
}

func (p *fakePlatform) DeleteChannel(ctx context.Context, guildID, channelID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.channels[channelID]; !ok {
		return errors.New("unknown channel")
	}
	delete(p.channels, channelID)
	delete(p.owners, channelID)
	return nil
}

func (p *fakePlatform) MoveMember(ctx context.Context, guildID, userID, channelID string) error {
	return nil
}

func (p *fakePlatform) GrantRoomOwner(ctx context.Context, guildID, channelID, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.owners[channelID] = userID
	return nil
}

func (p *fakePlatform) ChannelExists(ctx context.Context, guildID, channelID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.channels[channelID]
	return ok, nil
}

func (p *fakePlatform) ChannelOccupants(ctx context.Context, guildID, channelID string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.channels[channelID], nil
}

func (p *fakePlatform) channelCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.channels)
}

func (p *fakePlatform) ownerOf(channelID string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.owners[channelID]
}

type memorySnapshots struct {
	mu   sync.Mutex
	data map[string][]RoomSnapshot
}

func newMemorySnapshots() *memorySnapshots {
	return &memorySnapshots{data: make(map[string][]RoomSnapshot)}
}

func (s *memorySnapshots) Save(guildID string, rooms []RoomSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[guildID] = rooms
	return nil
}

func (s *memorySnapshots) Load(guildID string) ([]RoomSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[guildID], nil
}

const hubID = "hub-1"

func testManager(t *testing.T, grace time.Duration) (*Manager, *fakePlatform) {
	t.Helper()
	p := newFakePlatform()
	m := NewManager("g1", p, newMemorySnapshots(), grace)
	m.SetPolicy(Policy{
		GuildID:           "g1",
		HubChannelID:      hubID,
		NameTemplate:      DefaultNameTemplate,
		TransferOwnership: true,
	})
	t.Cleanup(m.Close)
	return m, p
}

func waitForRooms(t *testing.T, m *Manager, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(m.Rooms()) == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("room count never reached %d, have %d", want, len(m.Rooms()))
}

func TestHubJoinCreatesRoom(t *testing.T) {
	m, p := testManager(t, time.Hour)
	ctx := context.Background()

	if err := m.HandleVoice(ctx, "u1", "alice", "", hubID); err != nil {
		t.Fatalf("hub join: %v", err)
	}

	rooms := m.Rooms()
	if len(rooms) != 1 {
		t.Fatalf("rooms = %d, want 1", len(rooms))
	}
	r := rooms[0]
	if r.OwnerID != "u1" {
		t.Fatalf("owner = %q, want u1", r.OwnerID)
	}
	if got := p.ownerOf(r.ID); got != "u1" {
		t.Fatalf("platform owner grant = %q, want u1", got)
	}
	if want := "⏳ | alice"; p.created[0] != want {
		t.Fatalf("channel name = %q, want %q", p.created[0], want)
	}
}

func TestDuplicateHubJoinReusesOwnedRoom(t *testing.T) {
	m, p := testManager(t, time.Hour)
	ctx := context.Background()

	if err := m.HandleVoice(ctx, "u1", "alice", "", hubID); err != nil {
		t.Fatalf("hub join: %v", err)
	}
	roomID := m.Rooms()[0].ID
	if err := m.HandleVoice(ctx, "u1", "alice", hubID, roomID); err != nil {
		t.Fatalf("move-in: %v", err)
	}

	// The owner wanders back into the hub; no second room may spawn.
	if err := m.HandleVoice(ctx, "u1", "alice", roomID, hubID); err != nil {
		t.Fatalf("repeat hub join: %v", err)
	}

	if n := len(m.Rooms()); n != 1 {
		t.Fatalf("rooms = %d after repeat hub join, want 1", n)
	}
	if n := len(p.created); n != 1 {
		t.Fatalf("channels created = %d, want 1", n)
	}
}

func TestCreationFailureLeavesNoRecord(t *testing.T) {
	m, p := testManager(t, time.Hour)
	p.failNext = errors.New("channel quota reached")

	err := m.HandleVoice(context.Background(), "u1", "alice", "", hubID)
	if !errors.Is(err, ErrRoomCreation) {
		t.Fatalf("err = %v, want ErrRoomCreation", err)
	}
	if len(m.Rooms()) != 0 {
		t.Fatal("failed creation left a room record")
	}
}

func TestJoinConfirmationOccupiesRoom(t *testing.T) {
	m, _ := testManager(t, time.Hour)
	ctx := context.Background()

	if err := m.HandleVoice(ctx, "u1", "alice", "", hubID); err != nil {
		t.Fatalf("hub join: %v", err)
	}
	roomID := m.Rooms()[0].ID

	if err := m.HandleVoice(ctx, "u1", "alice", hubID, roomID); err != nil {
		t.Fatalf("move-in: %v", err)
	}

	r := m.Rooms()[0]
	if r.State != StateOccupied || r.Members != 1 {
		t.Fatalf("room = %s with %d member(s), want OCCUPIED with 1", r.State, r.Members)
	}
}

func TestEmptyRoomDeletedAfterGrace(t *testing.T) {
	m, p := testManager(t, 30*time.Millisecond)
	ctx := context.Background()

	if err := m.HandleVoice(ctx, "u1", "alice", "", hubID); err != nil {
		t.Fatalf("hub join: %v", err)
	}
	roomID := m.Rooms()[0].ID
	if err := m.HandleVoice(ctx, "u1", "alice", hubID, roomID); err != nil {
		t.Fatalf("move-in: %v", err)
	}
	if err := m.HandleVoice(ctx, "u1", "alice", roomID, ""); err != nil {
		t.Fatalf("leave: %v", err)
	}

	waitForRooms(t, m, 0)
	if p.channelCount() != 0 {
		t.Fatal("platform channel survived grace deletion")
	}
}

func TestRejoinDuringGraceCancelsDeletion(t *testing.T) {
	m, p := testManager(t, 40*time.Millisecond)
	ctx := context.Background()

	if err := m.HandleVoice(ctx, "u1", "alice", "", hubID); err != nil {
		t.Fatalf("hub join: %v", err)
	}
	roomID := m.Rooms()[0].ID
	_ = m.HandleVoice(ctx, "u1", "alice", hubID, roomID)
	_ = m.HandleVoice(ctx, "u1", "alice", roomID, "")

	if got := m.Rooms()[0].State; got != StateEmptyGrace {
		t.Fatalf("state = %s, want EMPTY_GRACE", got)
	}

	// Rejoin before grace expiry.
	_ = m.HandleVoice(ctx, "u1", "alice", "", roomID)
	if got := m.Rooms()[0].State; got != StateOccupied {
		t.Fatalf("state = %s, want OCCUPIED", got)
	}

	time.Sleep(80 * time.Millisecond)
	if len(m.Rooms()) != 1 || p.channelCount() != 1 {
		t.Fatal("room was deleted despite rejoin during grace")
	}
}

func TestDuplicateLeaveNeverGoesNegative(t *testing.T) {
	m, _ := testManager(t, time.Hour)
	ctx := context.Background()

	_ = m.HandleVoice(ctx, "u1", "alice", "", hubID)
	roomID := m.Rooms()[0].ID
	_ = m.HandleVoice(ctx, "u1", "alice", hubID, roomID)
	_ = m.HandleVoice(ctx, "u2", "bob", "", roomID)

	for i := 0; i < 3; i++ {
		_ = m.HandleVoice(ctx, "u2", "bob", roomID, "")
	}

	if got := m.Rooms()[0].Members; got != 1 {
		t.Fatalf("members = %d after duplicate leaves, want 1", got)
	}
}

func TestOwnershipTransfersToLongestResident(t *testing.T) {
	m, p := testManager(t, time.Hour)
	ctx := context.Background()

	_ = m.HandleVoice(ctx, "u1", "alice", "", hubID)
	roomID := m.Rooms()[0].ID
	_ = m.HandleVoice(ctx, "u1", "alice", hubID, roomID)

	time.Sleep(5 * time.Millisecond)
	_ = m.HandleVoice(ctx, "u2", "bob", "", roomID)
	time.Sleep(5 * time.Millisecond)
	_ = m.HandleVoice(ctx, "u3", "carol", "", roomID)

	// Owner leaves; the longest-resident remaining member inherits.
	_ = m.HandleVoice(ctx, "u1", "alice", roomID, "")

	if got := m.Rooms()[0].OwnerID; got != "u2" {
		t.Fatalf("owner = %q, want u2", got)
	}
	if got := p.ownerOf(roomID); got != "u2" {
		t.Fatalf("platform owner = %q, want u2", got)
	}
}

func TestOwnershipStaysVacantWithoutTransferPolicy(t *testing.T) {
	p := newFakePlatform()
	m := NewManager("g1", p, nil, time.Hour)
	defer m.Close()
	m.SetPolicy(Policy{GuildID: "g1", HubChannelID: hubID, TransferOwnership: false})
	ctx := context.Background()

	_ = m.HandleVoice(ctx, "u1", "alice", "", hubID)
	roomID := m.Rooms()[0].ID
	_ = m.HandleVoice(ctx, "u1", "alice", hubID, roomID)
	_ = m.HandleVoice(ctx, "u2", "bob", "", roomID)
	_ = m.HandleVoice(ctx, "u1", "alice", roomID, "")

	if got := m.Rooms()[0].OwnerID; got != "u1" {
		t.Fatalf("owner = %q, want vacant original u1", got)
	}
}

func TestManualDeletion(t *testing.T) {
	m, p := testManager(t, time.Hour)
	ctx := context.Background()

	_ = m.HandleVoice(ctx, "u1", "alice", "", hubID)
	roomID := m.Rooms()[0].ID
	_ = m.HandleVoice(ctx, "u1", "alice", hubID, roomID)

	if err := m.DeleteRoom(ctx, roomID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(m.Rooms()) != 0 || p.channelCount() != 0 {
		t.Fatal("manual deletion left room or channel behind")
	}

	if err := m.DeleteRoom(ctx, roomID); !errors.Is(err, ErrUnknownRoom) {
		t.Fatalf("second delete: err = %v, want ErrUnknownRoom", err)
	}
}

func TestReconcileDropsVanishedAndAdoptsLive(t *testing.T) {
	p := newFakePlatform()
	snaps := newMemorySnapshots()

	// Simulate a previous process: one channel still exists and is
	// occupied, another is occupied no more, a third vanished entirely.
	p.channels["chan-live"] = []string{"u1", "u2"}
	p.channels["chan-empty"] = nil
	_ = snaps.Save("g1", []RoomSnapshot{
		{ID: "chan-live", HubID: hubID, OwnerID: "u1", CreatedAt: time.Now()},
		{ID: "chan-empty", HubID: hubID, OwnerID: "u3", CreatedAt: time.Now()},
		{ID: "chan-gone", HubID: hubID, OwnerID: "u4", CreatedAt: time.Now()},
	})

	m := NewManager("g1", p, snaps, 30*time.Millisecond)
	defer m.Close()
	if err := m.Reconcile(context.Background()); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	byID := make(map[string]Room)
	for _, r := range m.Rooms() {
		byID[r.ID] = r
	}
	if len(byID) != 2 {
		t.Fatalf("reconciled rooms = %d, want 2", len(byID))
	}
	if _, ok := byID["chan-gone"]; ok {
		t.Fatal("vanished channel survived reconciliation")
	}
	if r := byID["chan-live"]; r.State != StateOccupied || r.Members != 2 {
		t.Fatalf("live room = %s with %d members, want OCCUPIED with 2", r.State, r.Members)
	}
	if r := byID["chan-empty"]; r.State != StateEmptyGrace {
		t.Fatalf("empty room = %s, want EMPTY_GRACE", r.State)
	}

	// The empty survivor is cleaned up after grace.
	waitForRooms(t, m, 1)
}

func TestServiceRoutesPerGuild(t *testing.T) {
	p := newFakePlatform()
	svc := NewService(p, nil, time.Hour)
	defer svc.CloseAll()

	svc.Manager("g1").SetPolicy(Policy{GuildID: "g1", HubChannelID: hubID})
	ctx := context.Background()

	if err := svc.HandleVoice(ctx, "g1", "u1", "alice", "", hubID); err != nil {
		t.Fatalf("g1 hub join: %v", err)
	}
	// Same channel id in another guild has no policy there.
	if err := svc.HandleVoice(ctx, "g2", "u2", "bob", "", hubID); err != nil {
		t.Fatalf("g2 join: %v", err)
	}

	if n := len(svc.Manager("g1").Rooms()); n != 1 {
		t.Fatalf("g1 rooms = %d, want 1", n)
	}
	if n := len(svc.Manager("g2").Rooms()); n != 0 {
		t.Fatalf("g2 rooms = %d, want 0", n)
	}
}
