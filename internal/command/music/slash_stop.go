package music

import (
	"harmonia/internal/command"

	"github.com/bwmarrin/discordgo"
)

type StopCommand struct {
	Bot command.MusicAPI
}

func (c *StopCommand) Name() string        { return "stop" }
func (c *StopCommand) Description() string { return "Stop playback and leave the voice channel" }
func (c *StopCommand) Group() string       { return "music" }
func (c *StopCommand) RequireAdmin() bool  { return false }

func (c *StopCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
	}
}

func (c *StopCommand) Run(ctx interface{}) error {
	sctx, ok := ctx.(*command.SlashContext)
	if !ok {
		return nil
	}

	sess, ok := c.Bot.Session(sctx.Event.GuildID)
	if !ok {
		return command.RespondEphemeral(sctx.Session, sctx.Event, "🎵 Nothing to stop.")
	}
	if err := sess.Stop(); err != nil {
		return err
	}
	return command.Respond(sctx.Session, sctx.Event, "🎵 Stopped, queue dropped. Bye!")
}
