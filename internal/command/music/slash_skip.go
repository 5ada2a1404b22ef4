package music

import (
	"errors"

	"harmonia/internal/command"
	"harmonia/internal/music/session"

	"github.com/bwmarrin/discordgo"
)

type SkipCommand struct {
	Bot command.MusicAPI
}

func (c *SkipCommand) Name() string        { return "skip" }
func (c *SkipCommand) Description() string { return "Skip to the next track" }
func (c *SkipCommand) Group() string       { return "music" }
func (c *SkipCommand) RequireAdmin() bool  { return false }

func (c *SkipCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
	}
}

func (c *SkipCommand) Run(ctx interface{}) error {
	sctx, ok := ctx.(*command.SlashContext)
	if !ok {
		return nil
	}

	sess, ok := c.Bot.Session(sctx.Event.GuildID)
	if !ok {
		return command.RespondEphemeral(sctx.Session, sctx.Event, "🎵 Nothing is playing.")
	}
	if err := sess.Skip(); err != nil {
		if errors.Is(err, session.ErrNothingPlaying) {
			return command.RespondEphemeral(sctx.Session, sctx.Event, "🎵 Nothing is playing.")
		}
		return err
	}
	return command.Respond(sctx.Session, sctx.Event, "🎵 Skipped.")
}
