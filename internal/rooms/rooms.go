// Package rooms manages temporary voice rooms: channels created on
// demand when a user joins a configured hub channel and deleted once
// they sit empty past a grace period.
package rooms

import (
	"context"
	"errors"
	"time"
)

var (
	ErrRoomCreation = errors.New("could not create temporary room")
	ErrUnknownRoom  = errors.New("no such temporary room")
	ErrNoPolicy     = errors.New("no hub configured for this channel")
)

// Policy configures one hub channel. Joining the hub spawns a room
// named from the template, with %username replaced by the joining
// user's display name.
type Policy struct {
	GuildID           string `json:"guild_id"`
	HubChannelID      string `json:"hub_channel_id"`
	NameTemplate      string `json:"name_template"`
	TransferOwnership bool   `json:"transfer_ownership"`
}

// DefaultNameTemplate is used when a hub is configured without one.
const DefaultNameTemplate = "⏳ | %username"

type RoomState int

const (
	StateCreated RoomState = iota
	StateOccupied
	StateEmptyGrace
	StateDeleted
)

func (s RoomState) String() string {
	switch s {
	case StateCreated:
		return "CREATED"
	case StateOccupied:
		return "OCCUPIED"
	case StateEmptyGrace:
		return "EMPTY_GRACE"
	case StateDeleted:
		return "DELETED"
	default:
		return "UNKNOWN"
	}
}

// Room is a read-only view of a live temporary room.
type Room struct {
	ID        string
	GuildID   string
	HubID     string
	OwnerID   string
	CreatedAt time.Time
	Members   int
	State     RoomState
}

// Platform is the slice of the chat platform the room lifecycle needs.
// Implemented over the real gateway in the discord package and faked in
// tests.
type Platform interface {
	CreateVoiceChannel(ctx context.Context, guildID, name string) (channelID string, err error)
	DeleteChannel(ctx context.Context, guildID, channelID string) error
	MoveMember(ctx context.Context, guildID, userID, channelID string) error
	GrantRoomOwner(ctx context.Context, guildID, channelID, userID string) error
	ChannelExists(ctx context.Context, guildID, channelID string) (bool, error)
	ChannelOccupants(ctx context.Context, guildID, channelID string) ([]string, error)
}

// RoomSnapshot is the persisted identity of one live room, enough to
// re-derive its state from the platform after a restart.
type RoomSnapshot struct {
	ID                string    `json:"id"`
	HubID             string    `json:"hub_id"`
	OwnerID           string    `json:"owner_id"`
	CreatedAt         time.Time `json:"created_at"`
	TransferOwnership bool      `json:"transfer_ownership"`
}

// Snapshotter persists the live-room set per guild so a restarted
// process can reconcile instead of leaking orphaned channels.
type Snapshotter interface {
	Save(guildID string, rooms []RoomSnapshot) error
	Load(guildID string) ([]RoomSnapshot, error)
}
