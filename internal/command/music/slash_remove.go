package music

import (
	"errors"
	"fmt"

	"harmonia/internal/command"
	"harmonia/internal/music/queue"

	"github.com/bwmarrin/discordgo"
)

type RemoveCommand struct {
	Bot command.MusicAPI
}

func (c *RemoveCommand) Name() string        { return "remove" }
func (c *RemoveCommand) Description() string { return "Remove a pending track by queue position" }
func (c *RemoveCommand) Group() string       { return "music" }
func (c *RemoveCommand) RequireAdmin() bool  { return false }

func (c *RemoveCommand) SlashDefinition() *discordgo.ApplicationCommand {
	minValue := 1.0
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "position",
				Description: "Position in the queue, as shown by /queue",
				Required:    true,
				MinValue:    &minValue,
			},
		},
	}
}

func (c *RemoveCommand) Run(ctx interface{}) error {
	sctx, ok := ctx.(*command.SlashContext)
	if !ok {
		return nil
	}

	sess, ok := c.Bot.Session(sctx.Event.GuildID)
	if !ok {
		return command.RespondEphemeral(sctx.Session, sctx.Event, "🎵 The queue is empty.")
	}

	// /queue numbers tracks from 1.
	position := int(sctx.Event.ApplicationCommandData().Options[0].IntValue())
	removed, err := sess.Remove(position - 1)
	if err != nil {
		if errors.Is(err, queue.ErrOutOfRange) {
			return command.RespondEphemeral(sctx.Session, sctx.Event, "🎵 No track at that position.")
		}
		return err
	}
	return command.Respond(sctx.Session, sctx.Event, fmt.Sprintf("🎵 Removed: **%s**", removed.Title))
}
