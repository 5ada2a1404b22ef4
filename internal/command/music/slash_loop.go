package music

import (
	"fmt"

	"harmonia/internal/command"
	"harmonia/internal/music/queue"

	"github.com/bwmarrin/discordgo"
)

type LoopCommand struct {
	Bot command.MusicAPI
}

func (c *LoopCommand) Name() string        { return "loop" }
func (c *LoopCommand) Description() string { return "Set the loop mode" }
func (c *LoopCommand) Group() string       { return "music" }
func (c *LoopCommand) RequireAdmin() bool  { return false }

func (c *LoopCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "mode",
				Description: "off, track or queue",
				Required:    true,
				Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "off", Value: "off"},
					{Name: "track", Value: "track"},
					{Name: "queue", Value: "queue"},
				},
			},
		},
	}
}

func (c *LoopCommand) Run(ctx interface{}) error {
	sctx, ok := ctx.(*command.SlashContext)
	if !ok {
		return nil
	}

	sess, ok := c.Bot.Session(sctx.Event.GuildID)
	if !ok {
		return command.RespondEphemeral(sctx.Session, sctx.Event, "🎵 Nothing is playing.")
	}

	var mode queue.LoopMode
	switch sctx.Event.ApplicationCommandData().Options[0].StringValue() {
	case "track":
		mode = queue.LoopTrack
	case "queue":
		mode = queue.LoopQueue
	default:
		mode = queue.LoopOff
	}

	if err := sess.SetLoopMode(mode); err != nil {
		return err
	}
	return command.Respond(sctx.Session, sctx.Event, fmt.Sprintf("🎵 Loop mode: %s", mode))
}
