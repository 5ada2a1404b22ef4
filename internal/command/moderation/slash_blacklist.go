package moderation

import (
	"context"
	"errors"
	"fmt"

	"harmonia/internal/command"
	"harmonia/internal/storage"

	"github.com/bwmarrin/discordgo"
)

// BlacklistCommand manages the shared track deny-list.
type BlacklistCommand struct{}

func (c *BlacklistCommand) Name() string        { return "blacklist" }
func (c *BlacklistCommand) Description() string { return "Manage the track blacklist" }
func (c *BlacklistCommand) Group() string       { return "moderation" }
func (c *BlacklistCommand) RequireAdmin() bool  { return true }

func (c *BlacklistCommand) SlashDefinition() *discordgo.ApplicationCommand {
	urlOption := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "url",
		Description: "Track URL",
		Required:    true,
	}
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "add",
				Description: "Ban a track URL from every queue",
				Options:     []*discordgo.ApplicationCommandOption{urlOption},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "remove",
				Description: "Allow a previously banned track URL",
				Options:     []*discordgo.ApplicationCommandOption{urlOption},
			},
		},
	}
}

func (c *BlacklistCommand) Run(ctx interface{}) error {
	sctx, ok := ctx.(*command.SlashContext)
	if !ok {
		return nil
	}

	sub := sctx.Event.ApplicationCommandData().Options[0]
	url := sub.Options[0].StringValue()

	switch sub.Name {
	case "add":
		if err := sctx.Storage.BlacklistTrack(context.Background(), url, sctx.Event.Member.User.ID); err != nil {
			return err
		}
		return command.Respond(sctx.Session, sctx.Event, fmt.Sprintf("⛔ Blacklisted %s", url))
	case "remove":
		err := sctx.Storage.UnblacklistTrack(context.Background(), url)
		if errors.Is(err, storage.ErrNotFound) {
			return command.RespondEphemeral(sctx.Session, sctx.Event, "That URL is not blacklisted.")
		}
		if err != nil {
			return err
		}
		return command.Respond(sctx.Session, sctx.Event, fmt.Sprintf("✅ Unblacklisted %s", url))
	default:
		return nil
	}
}
