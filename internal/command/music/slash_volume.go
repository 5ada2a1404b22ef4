package music

import (
	"context"
	"fmt"

	"harmonia/internal/command"

	"github.com/bwmarrin/discordgo"
)

type VolumeCommand struct {
	Bot command.MusicAPI
}

func (c *VolumeCommand) Name() string        { return "volume" }
func (c *VolumeCommand) Description() string { return "Set playback volume (0-100)" }
func (c *VolumeCommand) Group() string       { return "music" }
func (c *VolumeCommand) RequireAdmin() bool  { return false }

func (c *VolumeCommand) SlashDefinition() *discordgo.ApplicationCommand {
	minValue := 0.0
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "percent",
				Description: "Volume percentage",
				Required:    true,
				MinValue:    &minValue,
				MaxValue:    100,
			},
		},
	}
}

func (c *VolumeCommand) Run(ctx interface{}) error {
	sctx, ok := ctx.(*command.SlashContext)
	if !ok {
		return nil
	}

	sess, ok := c.Bot.Session(sctx.Event.GuildID)
	if !ok {
		return command.RespondEphemeral(sctx.Session, sctx.Event, "🎵 Nothing is playing.")
	}

	percent := int(sctx.Event.ApplicationCommandData().Options[0].IntValue())
	if err := sess.SetVolume(context.Background(), percent); err != nil {
		return command.RespondEphemeral(sctx.Session, sctx.Event, fmt.Sprintf("🎵 Error: %v", err))
	}
	return command.Respond(sctx.Session, sctx.Event, fmt.Sprintf("🎵 Volume set to %d%%", percent))
}
