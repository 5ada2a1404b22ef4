package node

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	dialTimeout    = 10 * time.Second
	requestTimeout = 15 * time.Second
	eventBuffer    = 32
)

// WSClient talks to the node over a websocket control socket plus a
// small REST surface for track resolution.
type WSClient struct {
	addr     string // host:port
	password string
	http     *http.Client
}

func NewWSClient(addr, password string) *WSClient {
	return &WSClient{
		addr:     addr,
		password: password,
		http:     &http.Client{Timeout: requestTimeout},
	}
}

// Connect opens one control socket per guild session.
func (c *WSClient) Connect(ctx context.Context, guildID, channelID string) (Conn, error) {
	u := url.URL{Scheme: "ws", Host: c.addr, Path: "/v1/session"}

	header := http.Header{}
	header.Set("Authorization", c.password)
	header.Set("Guild-Id", guildID)
	header.Set("Session-Id", uuid.NewString())

	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	ws, _, err := dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrConnection, c.addr, err)
	}

	conn := &wsConn{
		ws:        ws,
		guildID:   guildID,
		channelID: channelID,
		events:    make(chan Event, eventBuffer),
		done:      make(chan struct{}),
	}

	if err := conn.send(opMessage{Op: "connect", GuildID: guildID, ChannelID: channelID}); err != nil {
		ws.Close()
		return nil, fmt.Errorf("%w: handshake: %v", ErrConnection, err)
	}

	go conn.readLoop()
	return conn, nil
}

// opMessage is a client-issued control frame.
type opMessage struct {
	Op        string `json:"op"`
	GuildID   string `json:"guildId,omitempty"`
	ChannelID string `json:"channelId,omitempty"`
	Track     string `json:"track,omitempty"`
	Volume    int    `json:"volume,omitempty"`
	Paused    bool   `json:"paused,omitempty"`
}

// eventMessage is a node-pushed frame.
type eventMessage struct {
	Op      string `json:"op"`
	Type    string `json:"type"`
	GuildID string `json:"guildId"`
	Reason  string `json:"reason"`
}

type wsConn struct {
	guildID   string
	channelID string

	writeMu sync.Mutex
	ws      *websocket.Conn

	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
}

func (c *wsConn) send(msg opMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(msg)
}

func (c *wsConn) Play(ctx context.Context, trackURL string) error {
	if err := c.send(opMessage{Op: "play", GuildID: c.guildID, Track: trackURL}); err != nil {
		return fmt.Errorf("%w: play: %v", ErrConnection, err)
	}
	return nil
}

func (c *wsConn) Pause(ctx context.Context) error {
	if err := c.send(opMessage{Op: "pause", GuildID: c.guildID, Paused: true}); err != nil {
		return fmt.Errorf("%w: pause: %v", ErrConnection, err)
	}
	return nil
}

func (c *wsConn) Resume(ctx context.Context) error {
	if err := c.send(opMessage{Op: "pause", GuildID: c.guildID, Paused: false}); err != nil {
		return fmt.Errorf("%w: resume: %v", ErrConnection, err)
	}
	return nil
}

func (c *wsConn) Stop(ctx context.Context) error {
	if err := c.send(opMessage{Op: "stop", GuildID: c.guildID}); err != nil {
		return fmt.Errorf("%w: stop: %v", ErrConnection, err)
	}
	return nil
}

func (c *wsConn) SetVolume(ctx context.Context, percent int) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if err := c.send(opMessage{Op: "volume", GuildID: c.guildID, Volume: percent}); err != nil {
		return fmt.Errorf("%w: volume: %v", ErrConnection, err)
	}
	return nil
}

// loadResponse is the REST resolution payload.
type loadResponse struct {
	Tracks []struct {
		URL        string `json:"url"`
		Title      string `json:"title"`
		DurationMS int64  `json:"durationMs"`
	} `json:"tracks"`
}

func (c *WSClient) Resolve(ctx context.Context, query string) ([]TrackInfo, error) {
	return c.rest(ctx, "/v1/tracks", query)
}

func (c *WSClient) Related(ctx context.Context, trackURL string) (*TrackInfo, error) {
	tracks, err := c.rest(ctx, "/v1/related", trackURL)
	if err != nil {
		return nil, err
	}
	if len(tracks) == 0 {
		return nil, nil
	}
	return &tracks[0], nil
}

func (c *WSClient) rest(ctx context.Context, path, query string) ([]TrackInfo, error) {
	u := url.URL{
		Scheme:   "http",
		Host:     c.addr,
		Path:     path,
		RawQuery: url.Values{"q": {query}}.Encode(),
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.password)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConnection, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %s returned %d: %s", ErrConnection, path, resp.StatusCode, body)
	}

	var payload loadResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrProtocol, path, err)
	}

	const maxCandidates = 5
	out := make([]TrackInfo, 0, len(payload.Tracks))
	for _, t := range payload.Tracks {
		out = append(out, TrackInfo{
			URL:      t.URL,
			Title:    t.Title,
			Duration: time.Duration(t.DurationMS) * time.Millisecond,
		})
		if len(out) == maxCandidates {
			break
		}
	}
	return out, nil
}

func (c *wsConn) Events() <-chan Event { return c.events }

// readLoop relays node-pushed frames into the events channel. Malformed
// frames are logged and skipped; a dead transport emits a final
// disconnected event and closes the channel.
func (c *wsConn) readLoop() {
	defer close(c.events)

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				// Deliberate close, no disconnect event.
			default:
				c.events <- Event{Type: EventDisconnected, GuildID: c.guildID, Reason: err.Error()}
			}
			return
		}

		var msg eventMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.Op != "event" {
			log.Printf("[WARN] [Node] Dropping malformed event for guild %s: %v", c.guildID, err)
			continue
		}

		var typ EventType
		switch msg.Type {
		case string(EventTrackStart):
			typ = EventTrackStart
		case string(EventTrackEnd):
			typ = EventTrackEnd
		case string(EventTrackError):
			typ = EventTrackError
		case string(EventDisconnected):
			typ = EventDisconnected
		default:
			log.Printf("[WARN] [Node] Unknown event type %q for guild %s", msg.Type, c.guildID)
			continue
		}

		select {
		case c.events <- Event{Type: typ, GuildID: c.guildID, Reason: msg.Reason}:
		default:
			log.Printf("[WARN] [Node] Event buffer full, dropping %s for guild %s", typ, c.guildID)
		}
	}
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.send(opMessage{Op: "disconnect", GuildID: c.guildID})
		err = c.ws.Close()
	})
	return err
}
