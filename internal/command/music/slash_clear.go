package music

import (
	"harmonia/internal/command"

	"github.com/bwmarrin/discordgo"
)

type ClearCommand struct {
	Bot command.MusicAPI
}

func (c *ClearCommand) Name() string        { return "clear" }
func (c *ClearCommand) Description() string { return "Drop all pending tracks, keep the current one" }
func (c *ClearCommand) Group() string       { return "music" }
func (c *ClearCommand) RequireAdmin() bool  { return false }

func (c *ClearCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
	}
}

func (c *ClearCommand) Run(ctx interface{}) error {
	sctx, ok := ctx.(*command.SlashContext)
	if !ok {
		return nil
	}

	sess, ok := c.Bot.Session(sctx.Event.GuildID)
	if !ok {
		return command.RespondEphemeral(sctx.Session, sctx.Event, "🎵 The queue is already empty.")
	}
	if err := sess.Clear(); err != nil {
		return err
	}
	return command.Respond(sctx.Session, sctx.Event, "🎵 Queue cleared.")
}
