package rooms

import (
	"context"
	"sync"
	"time"
)

// Service hands out one Manager per guild, created on first use.
type Service struct {
	platform  Platform
	snapshots Snapshotter
	grace     time.Duration

	mu       sync.Mutex
	managers map[string]*Manager
}

func NewService(platform Platform, snapshots Snapshotter, grace time.Duration) *Service {
	return &Service{
		platform:  platform,
		snapshots: snapshots,
		grace:     grace,
		managers:  make(map[string]*Manager),
	}
}

// Manager returns the guild's room manager, creating it if absent.
func (s *Service) Manager(guildID string) *Manager {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.managers[guildID]
	if !ok {
		m = NewManager(guildID, s.platform, s.snapshots, s.grace)
		s.managers[guildID] = m
	}
	return m
}

// HandleVoice routes one voice-state change to the owning guild manager.
func (s *Service) HandleVoice(ctx context.Context, guildID, userID, username, before, after string) error {
	return s.Manager(guildID).HandleVoice(ctx, userID, username, before, after)
}

// CloseAll cancels every manager's pending timers, used at shutdown.
func (s *Service) CloseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.managers {
		m.Close()
	}
}
