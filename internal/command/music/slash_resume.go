package music

import (
	"context"
	"errors"

	"harmonia/internal/command"
	"harmonia/internal/music/session"

	"github.com/bwmarrin/discordgo"
)

type ResumeCommand struct {
	Bot command.MusicAPI
}

func (c *ResumeCommand) Name() string        { return "resume" }
func (c *ResumeCommand) Description() string { return "Resume paused playback" }
func (c *ResumeCommand) Group() string       { return "music" }
func (c *ResumeCommand) RequireAdmin() bool  { return false }

func (c *ResumeCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
	}
}

func (c *ResumeCommand) Run(ctx interface{}) error {
	sctx, ok := ctx.(*command.SlashContext)
	if !ok {
		return nil
	}

	sess, ok := c.Bot.Session(sctx.Event.GuildID)
	if !ok {
		return command.RespondEphemeral(sctx.Session, sctx.Event, "🎵 Nothing is paused.")
	}
	if err := sess.Resume(context.Background()); err != nil {
		if errors.Is(err, session.ErrIllegalTransition) || errors.Is(err, session.ErrClosed) {
			return command.RespondEphemeral(sctx.Session, sctx.Event, "🎵 Nothing is paused.")
		}
		return err
	}
	return command.Respond(sctx.Session, sctx.Event, "🎵 Resumed.")
}
