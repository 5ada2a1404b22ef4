package music

import (
	"harmonia/internal/command"

	"github.com/bwmarrin/discordgo"
)

type ShuffleCommand struct {
	Bot command.MusicAPI
}

func (c *ShuffleCommand) Name() string        { return "shuffle" }
func (c *ShuffleCommand) Description() string { return "Shuffle the queue once or toggle shuffle mode" }
func (c *ShuffleCommand) Group() string       { return "music" }
func (c *ShuffleCommand) RequireAdmin() bool  { return false }

func (c *ShuffleCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionBoolean,
				Name:        "sticky",
				Description: "Keep picking random tracks instead of shuffling once",
				Required:    false,
			},
		},
	}
}

func (c *ShuffleCommand) Run(ctx interface{}) error {
	sctx, ok := ctx.(*command.SlashContext)
	if !ok {
		return nil
	}

	sess, ok := c.Bot.Session(sctx.Event.GuildID)
	if !ok {
		return command.RespondEphemeral(sctx.Session, sctx.Event, "🎵 Nothing is playing.")
	}

	for _, opt := range sctx.Event.ApplicationCommandData().Options {
		if opt.Name == "sticky" {
			if err := sess.SetShuffle(opt.BoolValue()); err != nil {
				return err
			}
			if opt.BoolValue() {
				return command.Respond(sctx.Session, sctx.Event, "🎵 Shuffle mode on.")
			}
			return command.Respond(sctx.Session, sctx.Event, "🎵 Shuffle mode off.")
		}
	}

	if err := sess.Shuffle(); err != nil {
		return err
	}
	return command.Respond(sctx.Session, sctx.Event, "🎵 Queue shuffled.")
}
