package discord

import (
	"fmt"

	"harmonia/internal/command"
	"harmonia/internal/music/session"
)

// The Bot is the command layer's MusicAPI.
var _ command.MusicAPI = (*Bot)(nil)

func (b *Bot) OpenSession(guildID string) *session.Session {
	return b.music.GetOrCreate(guildID)
}

func (b *Bot) Session(guildID string) (*session.Session, bool) {
	return b.music.Get(guildID)
}

// FindUserVoiceState locates the voice channel a user occupies, from
// gateway state.
func (b *Bot) FindUserVoiceState(guildID, userID string) (*command.VoiceState, error) {
	guild, err := b.dg.State.Guild(guildID)
	if err != nil {
		return nil, fmt.Errorf("guild %s not in state: %w", guildID, err)
	}
	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID {
			return &command.VoiceState{ChannelID: vs.ChannelID, UserID: userID}, nil
		}
	}
	return nil, fmt.Errorf("user %s is not in a voice channel", userID)
}
