package music

import (
	"harmonia/internal/command"

	"github.com/bwmarrin/discordgo"
)

type AutoplayCommand struct {
	Bot command.MusicAPI
}

func (c *AutoplayCommand) Name() string { return "autoplay" }
func (c *AutoplayCommand) Description() string {
	return "Keep playing related tracks when the queue runs out"
}
func (c *AutoplayCommand) Group() string      { return "music" }
func (c *AutoplayCommand) RequireAdmin() bool { return false }

func (c *AutoplayCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionBoolean,
				Name:        "enabled",
				Description: "Turn autoplay on or off",
				Required:    true,
			},
		},
	}
}

func (c *AutoplayCommand) Run(ctx interface{}) error {
	sctx, ok := ctx.(*command.SlashContext)
	if !ok {
		return nil
	}

	sess, ok := c.Bot.Session(sctx.Event.GuildID)
	if !ok {
		return command.RespondEphemeral(sctx.Session, sctx.Event, "🎵 Nothing is playing.")
	}

	on := sctx.Event.ApplicationCommandData().Options[0].BoolValue()
	if err := sess.SetAutoplay(on); err != nil {
		return err
	}
	if on {
		return command.Respond(sctx.Session, sctx.Event, "🎵 Autoplay on.")
	}
	return command.Respond(sctx.Session, sctx.Event, "🎵 Autoplay off.")
}
