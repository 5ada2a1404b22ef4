package discord

import (
	"context"
	"log"
	"sync"

	"github.com/bwmarrin/discordgo"
)

const voiceInboxSize = 64

// voiceEvent is one voice-state change for one user.
type voiceEvent struct {
	guildID  string
	userID   string
	username string
	before   string
	after    string
}

// voiceRouter serializes voice events per guild: one inbox and one
// consumer goroutine per guild, so events for a guild are handled in
// arrival order while guilds proceed independently.
type voiceRouter struct {
	handler func(voiceEvent)

	mu      sync.Mutex
	inboxes map[string]chan voiceEvent
	done    chan struct{}
}

func newVoiceRouter(handler func(voiceEvent)) *voiceRouter {
	return &voiceRouter{
		handler: handler,
		inboxes: make(map[string]chan voiceEvent),
		done:    make(chan struct{}),
	}
}

// dispatch enqueues an event on its guild's inbox. A full inbox drops
// the event rather than stalling the gateway handler.
func (r *voiceRouter) dispatch(evt voiceEvent) {
	r.mu.Lock()
	inbox, ok := r.inboxes[evt.guildID]
	if !ok {
		inbox = make(chan voiceEvent, voiceInboxSize)
		r.inboxes[evt.guildID] = inbox
		go r.drain(inbox)
	}
	r.mu.Unlock()

	select {
	case inbox <- evt:
	default:
		log.Printf("[WARN] [Voice %s] Inbox full, dropping event for %s", evt.guildID, evt.userID)
	}
}

func (r *voiceRouter) drain(inbox chan voiceEvent) {
	for {
		select {
		case evt := <-inbox:
			r.handler(evt)
		case <-r.done:
			return
		}
	}
}

func (r *voiceRouter) close() {
	close(r.done)
}

// onVoiceStateUpdate feeds gateway voice events into the router.
func (b *Bot) onVoiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	evt := voiceEvent{
		guildID: v.GuildID,
		userID:  v.UserID,
		after:   v.ChannelID,
	}
	if v.BeforeUpdate != nil {
		evt.before = v.BeforeUpdate.ChannelID
	}
	if v.Member != nil && v.Member.User != nil {
		evt.username = v.Member.User.Username
	} else {
		evt.username = v.UserID
	}
	b.router.dispatch(evt)
}

// handleVoiceEvent runs on the guild's router goroutine. The bot's own
// departure from voice tears down the music session; everything else is
// room occupancy bookkeeping.
func (b *Bot) handleVoiceEvent(evt voiceEvent) {
	if b.dg.State.User != nil && evt.userID == b.dg.State.User.ID {
		if evt.after == "" {
			if sess, ok := b.music.Get(evt.guildID); ok {
				log.Printf("[INFO] [Voice %s] Bot removed from voice, stopping session", evt.guildID)
				if err := sess.Stop(); err != nil {
					log.Printf("[WARN] [Voice %s] Stop session: %v", evt.guildID, err)
				}
			}
		}
		return
	}

	if err := b.rooms.HandleVoice(context.Background(), evt.guildID, evt.userID, evt.username, evt.before, evt.after); err != nil {
		log.Printf("[ERR] [Voice %s] Room handling: %v", evt.guildID, err)
		b.Notify(evt.guildID, "Could not create your temporary room, sorry.")
	}
}
