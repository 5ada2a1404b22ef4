// Package node speaks the control protocol of the external audio
// streaming node. The node does the actual decoding and mixing; this
// package only issues playback commands and relays node-pushed events.
package node

import (
	"context"
	"errors"
	"time"
)

var (
	ErrConnection = errors.New("audio node unreachable")
	ErrProtocol   = errors.New("malformed node event")
)

type EventType string

const (
	EventTrackStart   EventType = "trackStart"
	EventTrackEnd     EventType = "trackEnd"
	EventTrackError   EventType = "trackException"
	EventDisconnected EventType = "disconnected"
)

// Event is a node-pushed notification for one guild session.
type Event struct {
	Type    EventType
	GuildID string
	Reason  string
}

// TrackInfo is the node's description of a resolvable track.
type TrackInfo struct {
	URL      string
	Title    string
	Duration time.Duration
}

// Client opens per-guild control sessions against one node endpoint.
// Track resolution goes through the node's REST surface and needs no
// live control session.
type Client interface {
	// Connect opens a control session bound to a guild voice channel.
	// Returns ErrConnection (wrapped) if the node is unreachable.
	Connect(ctx context.Context, guildID, channelID string) (Conn, error)

	// Resolve turns a URL or search query into playable tracks.
	// At most five candidates are returned for plain queries; a URL
	// resolves to exactly one.
	Resolve(ctx context.Context, query string) ([]TrackInfo, error)

	// Related asks the node for a recommendation based on a track,
	// used by autoplay when the queue runs dry.
	Related(ctx context.Context, trackURL string) (*TrackInfo, error)
}

// Conn is a live control session. Events delivers node-pushed
// notifications until Close; the channel is closed when the underlying
// transport dies.
type Conn interface {
	Play(ctx context.Context, trackURL string) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Stop(ctx context.Context) error
	SetVolume(ctx context.Context, percent int) error

	Events() <-chan Event
	Close() error
}
