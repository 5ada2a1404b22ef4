package temproom

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"harmonia/internal/command"
	"harmonia/internal/rooms"
	"harmonia/internal/storage"

	"github.com/bwmarrin/discordgo"
)

// TempRoomCommand configures hub channels and inspects live rooms.
type TempRoomCommand struct{}

func (c *TempRoomCommand) Name() string        { return "temproom" }
func (c *TempRoomCommand) Description() string { return "Manage temporary voice room hubs" }
func (c *TempRoomCommand) Group() string       { return "rooms" }
func (c *TempRoomCommand) RequireAdmin() bool  { return true }

func (c *TempRoomCommand) SlashDefinition() *discordgo.ApplicationCommand {
	channelOption := &discordgo.ApplicationCommandOption{
		Type:         discordgo.ApplicationCommandOptionChannel,
		Name:         "channel",
		Description:  "Hub voice channel",
		Required:     true,
		ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildVoice},
	}
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "add",
				Description: "Make a voice channel a temporary-room hub",
				Options: []*discordgo.ApplicationCommandOption{
					channelOption,
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "template",
						Description: "Room name template, %username is replaced",
						Required:    false,
					},
					{
						Type:        discordgo.ApplicationCommandOptionBoolean,
						Name:        "transfer",
						Description: "Pass ownership to the longest resident when the owner leaves",
						Required:    false,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "edit",
				Description: "Change an existing hub's template or transfer policy",
				Options: []*discordgo.ApplicationCommandOption{
					channelOption,
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "template",
						Description: "Room name template, %username is replaced",
						Required:    false,
					},
					{
						Type:        discordgo.ApplicationCommandOptionBoolean,
						Name:        "transfer",
						Description: "Pass ownership to the longest resident when the owner leaves",
						Required:    false,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "remove",
				Description: "Stop spawning rooms from a hub channel",
				Options:     []*discordgo.ApplicationCommandOption{channelOption},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "list",
				Description: "Show configured hubs and live rooms",
			},
		},
	}
}

func (c *TempRoomCommand) Run(ctx interface{}) error {
	sctx, ok := ctx.(*command.SlashContext)
	if !ok {
		return nil
	}

	sub := sctx.Event.ApplicationCommandData().Options[0]
	switch sub.Name {
	case "add":
		return c.add(sctx, sub)
	case "edit":
		return c.edit(sctx, sub)
	case "remove":
		return c.remove(sctx, sub)
	case "list":
		return c.list(sctx)
	default:
		return nil
	}
}

func (c *TempRoomCommand) add(sctx *command.SlashContext, sub *discordgo.ApplicationCommandInteractionDataOption) error {
	// Ownership passes on by default unless the admin opts out.
	pol := rooms.Policy{GuildID: sctx.Event.GuildID, TransferOwnership: true}
	for _, opt := range sub.Options {
		switch opt.Name {
		case "channel":
			pol.HubChannelID = opt.ChannelValue(nil).ID
		case "template":
			pol.NameTemplate = opt.StringValue()
		case "transfer":
			pol.TransferOwnership = opt.BoolValue()
		}
	}
	if pol.NameTemplate == "" {
		pol.NameTemplate = rooms.DefaultNameTemplate
	}

	// Persist first, then apply to the live manager.
	if err := sctx.Storage.SetHub(context.Background(), pol); err != nil {
		return err
	}
	sctx.Rooms.Manager(pol.GuildID).SetPolicy(pol)

	return command.Respond(sctx.Session, sctx.Event,
		fmt.Sprintf("⏳ Hub configured on <#%s> with template %q", pol.HubChannelID, pol.NameTemplate))
}

func (c *TempRoomCommand) edit(sctx *command.SlashContext, sub *discordgo.ApplicationCommandInteractionDataOption) error {
	var channelID string
	for _, opt := range sub.Options {
		if opt.Name == "channel" {
			channelID = opt.ChannelValue(nil).ID
		}
	}

	hubs, err := sctx.Storage.ListHubs(context.Background(), sctx.Event.GuildID)
	if err != nil {
		return err
	}
	var pol *rooms.Policy
	for i := range hubs {
		if hubs[i].HubChannelID == channelID {
			pol = &hubs[i]
			break
		}
	}
	if pol == nil {
		return command.RespondEphemeral(sctx.Session, sctx.Event, "That channel is not a hub.")
	}

	// Only the options actually given override the stored policy.
	for _, opt := range sub.Options {
		switch opt.Name {
		case "template":
			pol.NameTemplate = opt.StringValue()
		case "transfer":
			pol.TransferOwnership = opt.BoolValue()
		}
	}

	if err := sctx.Storage.SetHub(context.Background(), *pol); err != nil {
		return err
	}
	sctx.Rooms.Manager(pol.GuildID).SetPolicy(*pol)

	return command.Respond(sctx.Session, sctx.Event,
		fmt.Sprintf("⏳ Hub on <#%s> now uses template %q, transfer ownership: %v",
			pol.HubChannelID, pol.NameTemplate, pol.TransferOwnership))
}

func (c *TempRoomCommand) remove(sctx *command.SlashContext, sub *discordgo.ApplicationCommandInteractionDataOption) error {
	channelID := sub.Options[0].ChannelValue(nil).ID

	err := sctx.Storage.RemoveHub(context.Background(), sctx.Event.GuildID, channelID)
	if errors.Is(err, storage.ErrNotFound) {
		return command.RespondEphemeral(sctx.Session, sctx.Event, "That channel is not a hub.")
	}
	if err != nil {
		return err
	}
	_ = sctx.Rooms.Manager(sctx.Event.GuildID).RemovePolicy(channelID)

	return command.Respond(sctx.Session, sctx.Event,
		fmt.Sprintf("⏳ Hub removed from <#%s>", channelID))
}

func (c *TempRoomCommand) list(sctx *command.SlashContext) error {
	mgr := sctx.Rooms.Manager(sctx.Event.GuildID)

	var sb strings.Builder
	policies := mgr.Policies()
	if len(policies) == 0 {
		sb.WriteString("No hubs configured.\n")
	} else {
		sb.WriteString("Hubs:\n")
		for _, p := range policies {
			fmt.Fprintf(&sb, "- <#%s> template %q, transfer ownership: %v\n",
				p.HubChannelID, p.NameTemplate, p.TransferOwnership)
		}
	}

	live := mgr.Rooms()
	if len(live) > 0 {
		sb.WriteString("Live rooms:\n")
		for _, r := range live {
			fmt.Fprintf(&sb, "- <#%s> owner <@%s>, %d member(s), %s\n",
				r.ID, r.OwnerID, r.Members, r.State)
		}
	}
	return command.RespondEphemeral(sctx.Session, sctx.Event, sb.String())
}
