package command

import "harmonia/internal/music/session"

// VoiceState holds minimal voice channel state for a user.
type VoiceState struct {
	ChannelID string
	UserID    string
}

// MusicAPI is the slice of the Discord bot the music commands need.
type MusicAPI interface {
	// OpenSession returns the guild's playback session, creating one if
	// absent.
	OpenSession(guildID string) *session.Session
	// Session returns the live session, if any.
	Session(guildID string) (*session.Session, bool)
	// FindUserVoiceState locates the voice channel a user currently
	// occupies.
	FindUserVoiceState(guildID, userID string) (*VoiceState, error)
}
