package music

import (
	"fmt"
	"strings"

	"harmonia/internal/command"

	"github.com/bwmarrin/discordgo"
)

const queueDisplayLimit = 10

type QueueCommand struct {
	Bot command.MusicAPI
}

func (c *QueueCommand) Name() string        { return "queue" }
func (c *QueueCommand) Description() string { return "Show the current queue" }
func (c *QueueCommand) Group() string       { return "music" }
func (c *QueueCommand) RequireAdmin() bool  { return false }

func (c *QueueCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        discordgo.ChatApplicationCommand,
	}
}

func (c *QueueCommand) Run(ctx interface{}) error {
	sctx, ok := ctx.(*command.SlashContext)
	if !ok {
		return nil
	}

	sess, ok := c.Bot.Session(sctx.Event.GuildID)
	if !ok {
		return command.RespondEphemeral(sctx.Session, sctx.Event, "🎵 The queue is empty.")
	}
	snap, err := sess.Snapshot()
	if err != nil {
		return err
	}

	var sb strings.Builder
	if snap.Current != nil {
		fmt.Fprintf(&sb, "▶️ **%s** (requested by <@%s>)\n", snap.Current.Title, snap.Current.Requester)
	}
	for i, t := range snap.Pending {
		if i == queueDisplayLimit {
			fmt.Fprintf(&sb, "… and %d more\n", len(snap.Pending)-queueDisplayLimit)
			break
		}
		fmt.Fprintf(&sb, "%d. %s\n", i+1, t.Title)
	}
	if sb.Len() == 0 {
		return command.RespondEphemeral(sctx.Session, sctx.Event, "🎵 The queue is empty.")
	}

	fmt.Fprintf(&sb, "\nLoop: %s | Shuffle: %v | Autoplay: %v | Volume: %d%%",
		snap.LoopMode, snap.Shuffle, snap.Autoplay, snap.Volume)
	return command.Respond(sctx.Session, sctx.Event, sb.String())
}
