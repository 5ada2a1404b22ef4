package music

import (
	"context"
	"errors"

	"harmonia/internal/command"
	"harmonia/internal/music/session"

	"github.com/bwmarrin/discordgo"
)

// PauseCommand toggles: it pauses a playing session and resumes a
// paused one.
type PauseCommand struct {
	Bot command.MusicAPI
}

func (c *PauseCommand) Name() string        { return "pause" }
func (c *PauseCommand) Description() string { return "Pause or resume playback" }
func (c *PauseCommand) Group() string       { return "music" }
func (c *PauseCommand) RequireAdmin() bool  { return false }

func (c *PauseCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
	}
}

func (c *PauseCommand) Run(ctx interface{}) error {
	sctx, ok := ctx.(*command.SlashContext)
	if !ok {
		return nil
	}

	sess, ok := c.Bot.Session(sctx.Event.GuildID)
	if !ok {
		return command.RespondEphemeral(sctx.Session, sctx.Event, "🎵 Nothing is playing.")
	}

	snap, err := sess.Snapshot()
	if err != nil {
		return err
	}
	switch snap.State {
	case session.StatePlaying:
		if err := sess.Pause(context.Background()); err != nil {
			if errors.Is(err, session.ErrIllegalTransition) {
				return command.RespondEphemeral(sctx.Session, sctx.Event, "🎵 Nothing to pause.")
			}
			return err
		}
		return command.Respond(sctx.Session, sctx.Event, "🎵 Paused.")
	case session.StatePaused:
		if err := sess.Resume(context.Background()); err != nil {
			return err
		}
		return command.Respond(sctx.Session, sctx.Event, "🎵 Resumed.")
	default:
		return command.RespondEphemeral(sctx.Session, sctx.Event, "🎵 Nothing is playing.")
	}
}
