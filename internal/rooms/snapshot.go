package rooms

import (
	"context"

	"github.com/keshon/datastore"
)

// SnapshotStore persists per-guild live-room sets in a JSON datastore
// file, keyed by guild id.
type SnapshotStore struct {
	ds     *datastore.DataStore
	cancel context.CancelFunc
}

type guildSnapshot struct {
	Rooms []RoomSnapshot `json:"rooms"`
}

func NewSnapshotStore(filePath string) (*SnapshotStore, error) {
	// The context drives the datastore's autosave goroutine; Close
	// cancels it so the final save in ds.Close can run.
	ctx, cancel := context.WithCancel(context.Background())
	ds, err := datastore.New(ctx, filePath)
	if err != nil {
		cancel()
		return nil, err
	}
	return &SnapshotStore{ds: ds, cancel: cancel}, nil
}

func (s *SnapshotStore) Save(guildID string, rooms []RoomSnapshot) error {
	return s.ds.Set(guildID, &guildSnapshot{Rooms: rooms})
}

func (s *SnapshotStore) Load(guildID string) ([]RoomSnapshot, error) {
	var record guildSnapshot
	exists, err := s.ds.Get(guildID, &record)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	return record.Rooms, nil
}

func (s *SnapshotStore) Close() error {
	s.cancel()
	return s.ds.Close()
}
