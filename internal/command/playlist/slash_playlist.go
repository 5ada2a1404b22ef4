package playlist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"harmonia/internal/command"
	"harmonia/internal/storage"

	"github.com/bwmarrin/discordgo"
)

// PlaylistCommand groups the personal playlist operations under one
// slash command with subcommands.
type PlaylistCommand struct {
	Bot command.MusicAPI
}

func (c *PlaylistCommand) Name() string        { return "playlist" }
func (c *PlaylistCommand) Description() string { return "Save, load and manage personal playlists" }
func (c *PlaylistCommand) Group() string       { return "music" }
func (c *PlaylistCommand) RequireAdmin() bool  { return false }

func (c *PlaylistCommand) SlashDefinition() *discordgo.ApplicationCommand {
	nameOption := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "name",
		Description: "Playlist name",
		Required:    true,
	}
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "save",
				Description: "Save the current queue as a playlist",
				Options:     []*discordgo.ApplicationCommandOption{nameOption},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "load",
				Description: "Queue every track of a playlist",
				Options:     []*discordgo.ApplicationCommandOption{nameOption},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "list",
				Description: "List your playlists",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "delete",
				Description: "Delete one of your playlists",
				Options:     []*discordgo.ApplicationCommandOption{nameOption},
			},
		},
	}
}

func (c *PlaylistCommand) Run(ctx interface{}) error {
	sctx, ok := ctx.(*command.SlashContext)
	if !ok {
		return nil
	}

	sub := sctx.Event.ApplicationCommandData().Options[0]
	switch sub.Name {
	case "save":
		return c.save(sctx, sub.Options[0].StringValue())
	case "load":
		return c.load(sctx, sub.Options[0].StringValue())
	case "list":
		return c.list(sctx)
	case "delete":
		return c.delete(sctx, sub.Options[0].StringValue())
	default:
		return nil
	}
}

func (c *PlaylistCommand) save(sctx *command.SlashContext, name string) error {
	userID := sctx.Event.Member.User.ID

	sess, ok := c.Bot.Session(sctx.Event.GuildID)
	if !ok {
		return command.RespondEphemeral(sctx.Session, sctx.Event, "🎵 Nothing to save, the queue is empty.")
	}
	snap, err := sess.Snapshot()
	if err != nil {
		return err
	}

	var entries []storage.PlaylistEntry
	if snap.Current != nil {
		entries = append(entries, storage.PlaylistEntry{Name: snap.Current.Title, URL: snap.Current.URL})
	}
	for _, t := range snap.Pending {
		entries = append(entries, storage.PlaylistEntry{Name: t.Title, URL: t.URL})
	}
	if len(entries) == 0 {
		return command.RespondEphemeral(sctx.Session, sctx.Event, "🎵 Nothing to save, the queue is empty.")
	}

	if _, err := sctx.Storage.SavePlaylist(context.Background(), name, userID, entries); err != nil {
		return command.RespondEphemeral(sctx.Session, sctx.Event,
			fmt.Sprintf("🎵 Could not save %q: %v", name, err))
	}
	return command.Respond(sctx.Session, sctx.Event,
		fmt.Sprintf("🎵 Saved %d tracks as **%s**", len(entries), name))
}

func (c *PlaylistCommand) load(sctx *command.SlashContext, name string) error {
	userID := sctx.Event.Member.User.ID

	pl, err := sctx.Storage.LoadPlaylist(context.Background(), name, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return command.RespondEphemeral(sctx.Session, sctx.Event, fmt.Sprintf("🎵 You have no playlist named %q.", name))
		}
		return err
	}

	voiceState, err := c.Bot.FindUserVoiceState(sctx.Event.GuildID, userID)
	if err != nil {
		return command.RespondEphemeral(sctx.Session, sctx.Event, "🎵 Join a voice channel first.")
	}

	if err := command.Defer(sctx.Session, sctx.Event); err != nil {
		return err
	}

	// Entries are copied into the queue; later queue edits never touch
	// the stored playlist.
	sess := c.Bot.OpenSession(sctx.Event.GuildID)
	queued := 0
	for _, e := range pl.Entries {
		if _, err := sess.Enqueue(context.Background(), voiceState.ChannelID, e.URL, userID, false); err != nil {
			continue
		}
		queued++
	}
	return command.FollowUp(sctx.Session, sctx.Event,
		fmt.Sprintf("🎵 Queued %d/%d tracks from **%s**", queued, len(pl.Entries), pl.Name))
}

func (c *PlaylistCommand) list(sctx *command.SlashContext) error {
	lists, err := sctx.Storage.ListPlaylists(context.Background(), sctx.Event.Member.User.ID)
	if err != nil {
		return err
	}
	if len(lists) == 0 {
		return command.RespondEphemeral(sctx.Session, sctx.Event, "🎵 You have no playlists yet.")
	}

	var sb strings.Builder
	sb.WriteString("🎵 Your playlists:\n")
	for _, p := range lists {
		fmt.Fprintf(&sb, "- **%s** (created %s)\n", p.Name, p.Created.Format("2006-01-02"))
	}
	return command.RespondEphemeral(sctx.Session, sctx.Event, sb.String())
}

func (c *PlaylistCommand) delete(sctx *command.SlashContext, name string) error {
	userID := sctx.Event.Member.User.ID

	pl, err := sctx.Storage.LoadPlaylist(context.Background(), name, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return command.RespondEphemeral(sctx.Session, sctx.Event, fmt.Sprintf("🎵 You have no playlist named %q.", name))
		}
		return err
	}
	if err := sctx.Storage.DeletePlaylist(context.Background(), pl.ID); err != nil {
		return err
	}
	return command.Respond(sctx.Session, sctx.Event, fmt.Sprintf("🎵 Deleted **%s**", pl.Name))
}
