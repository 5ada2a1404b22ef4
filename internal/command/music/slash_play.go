package music

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"harmonia/internal/command"
	"harmonia/internal/music/session"

	"github.com/bwmarrin/discordgo"
)

type PlayCommand struct {
	Bot command.MusicAPI
}

func (c *PlayCommand) Name() string        { return "play" }
func (c *PlayCommand) Description() string { return "Queue a track by link or search query" }
func (c *PlayCommand) Group() string       { return "music" }
func (c *PlayCommand) RequireAdmin() bool  { return false }

func (c *PlayCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "input",
				Description: "Track link or song name",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionBoolean,
				Name:        "next",
				Description: "Put the track at the front of the queue",
				Required:    false,
			},
		},
	}
}

func (c *PlayCommand) Run(ctx interface{}) error {
	sctx, ok := ctx.(*command.SlashContext)
	if !ok {
		return nil
	}

	s, event := sctx.Session, sctx.Event
	var input string
	var priority bool
	for _, opt := range event.ApplicationCommandData().Options {
		switch opt.Name {
		case "input":
			input = opt.StringValue()
		case "next":
			priority = opt.BoolValue()
		}
	}
	if strings.TrimSpace(input) == "" {
		return command.RespondEphemeral(s, event, "🎵 Error: input is required")
	}

	voiceState, err := c.Bot.FindUserVoiceState(event.GuildID, event.Member.User.ID)
	if err != nil {
		return command.RespondEphemeral(s, event, "🎵 Join a voice channel first.")
	}

	if err := command.Defer(s, event); err != nil {
		return fmt.Errorf("failed to send deferred response: %w", err)
	}

	sess := c.Bot.OpenSession(event.GuildID)
	added, err := sess.Enqueue(context.Background(), voiceState.ChannelID, input, event.Member.User.ID, priority)
	if err != nil {
		return command.FollowUp(s, event, playErrorMessage(err))
	}

	if len(added) == 1 {
		return command.FollowUp(s, event, fmt.Sprintf("🎵 Queued: **%s**", added[0].Title))
	}
	return command.FollowUp(s, event, fmt.Sprintf("🎵 Queued %d tracks", len(added)))
}

func playErrorMessage(err error) string {
	switch {
	case errors.Is(err, session.ErrBlacklistedTrack):
		return "🎵 That track is blacklisted here."
	case errors.Is(err, session.ErrNoResults):
		return "🎵 Nothing found for that query."
	case errors.Is(err, session.ErrConnection):
		return "🎵 Could not reach the audio node, try again shortly."
	default:
		return fmt.Sprintf("🎵 Error: %v", err)
	}
}
