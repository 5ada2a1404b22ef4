package discord

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"harmonia/internal/command"
	"harmonia/internal/config"
	"harmonia/internal/music/node"
	"harmonia/internal/music/registry"
	"harmonia/internal/music/session"
	"harmonia/internal/rooms"
	"harmonia/internal/storage"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"
)

// Bot ties the Discord gateway to the music sessions and the temporary
// room managers.
type Bot struct {
	dg      *discordgo.Session
	cfg     *config.Config
	storage *storage.Storage
	music   *registry.Registry
	rooms   *rooms.Service
	router  *voiceRouter

	mu             sync.RWMutex
	noticeChannels map[string]string // guild id -> last command channel
}

// NewBot wires the full stack: gateway session, audio node client,
// music session registry and room service.
func NewBot(cfg *config.Config, store *storage.Storage, snapshots rooms.Snapshotter) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	b := &Bot{
		dg:             dg,
		cfg:            cfg,
		storage:        store,
		noticeChannels: make(map[string]string),
	}
	b.rooms = rooms.NewService(&guildPlatform{dg: dg}, snapshots, cfg.RoomGrace)
	b.router = newVoiceRouter(b.handleVoiceEvent)

	nodeClient := node.NewWSClient(cfg.NodeAddr, cfg.NodePassword)
	sessCfg := session.Config{
		IdleTimeout:       cfg.IdleTimeout,
		ReconnectAttempts: cfg.ReconnectAttempts,
		DefaultVolume:     cfg.DefaultVolume,
	}
	b.music = registry.New(func(guildID string, onClose func(string, *session.Session)) *session.Session {
		return session.New(guildID, sessCfg, nodeClient, store, b, onClose)
	})

	return b, nil
}

// Rooms exposes the room service for command wiring.
func (b *Bot) Rooms() *rooms.Service { return b.rooms }

// Run opens the gateway and blocks until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	b.configureIntents()
	b.dg.AddHandler(b.onReady)
	b.dg.AddHandler(b.onGuildCreate)
	b.dg.AddHandler(b.onInteractionCreate)
	b.dg.AddHandler(b.onVoiceStateUpdate)

	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer b.dg.Close()

	<-ctx.Done()
	log.Println("[INFO] ❎ Shutdown signal received. Cleaning up...")
	b.music.StopAll()
	b.rooms.CloseAll()
	b.router.close()
	return nil
}

func (b *Bot) configureIntents() {
	b.dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsGuildMessages
}

// onReady loads persisted hub policies, reconciles live rooms against
// platform state and registers slash commands.
func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	botInfo, err := s.User("@me")
	if err != nil {
		log.Println("[WARN] Error retrieving bot user:", err)
		return
	}

	for _, g := range r.Guilds {
		b.setupGuild(g.ID)
	}

	log.Printf("[INFO] ✅ Discord bot %v is running.", botInfo.Username)
}

func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	log.Printf("[INFO] Bot added to guild: %s (%s)", g.Guild.ID, g.Guild.Name)
	b.setupGuild(g.Guild.ID)
}

func (b *Bot) setupGuild(guildID string) {
	mgr := b.rooms.Manager(guildID)

	hubs, err := b.storage.ListHubs(context.Background(), guildID)
	if err != nil {
		log.Printf("[ERR] [%s] Load hub policies: %v", guildID, err)
	}
	for _, pol := range hubs {
		mgr.SetPolicy(pol)
	}

	// Rooms must be re-derived from platform state before the first
	// voice event is accepted, or orphaned channels leak.
	if err := mgr.Reconcile(context.Background()); err != nil {
		log.Printf("[ERR] [%s] Reconcile rooms: %v", guildID, err)
	}

	if b.cfg.InitSlashCommands {
		if err := b.registerCommands(guildID); err != nil {
			log.Println("[ERR] Error registering slash commands for guild", guildID, ":", err)
		}
	} else {
		log.Println("[INFO] Registering slash commands skipped")
	}
}

// onInteractionCreate dispatches slash commands through the registry.
func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	cmdName := i.ApplicationCommandData().Name
	cmd, ok := command.Get(cmdName)
	if !ok {
		log.Printf("[WARN] Unknown command: %s", cmdName)
		return
	}

	// Playback notices land in the channel the last command came from.
	if i.GuildID != "" {
		b.setNoticeChannel(i.GuildID, i.ChannelID)
	}

	ctx := &command.SlashContext{
		Session: s,
		Event:   i,
		Storage: b.storage,
		Rooms:   b.rooms,
	}
	if err := cmd.Run(ctx); err != nil {
		log.Println("[ERR] Error running slash command:", err)
		_ = command.RespondEphemeral(s, i, fmt.Sprintf("Error running command: %v", err))
	}
}

// registerCommands reconciles the guild's slash commands with the local
// registry, rate limited to stay under the API's create budget.
func (b *Bot) registerCommands(guildID string) error {
	appID := b.dg.State.User.ID
	if appID == "" {
		user, err := b.dg.User("@me")
		if err != nil {
			return err
		}
		appID = user.ID
	}

	wanted := make(map[string]*discordgo.ApplicationCommand)
	for _, cmd := range command.All() {
		if slash, ok := cmd.(command.SlashProvider); ok {
			if def := slash.SlashDefinition(); def != nil {
				wanted[def.Name] = def
			}
		}
	}

	existing, _ := b.dg.ApplicationCommands(appID, guildID)
	for _, old := range existing {
		if _, ok := wanted[old.Name]; !ok {
			log.Printf("[INFO] [%s] Deleting obsolete command: %s", guildID, old.Name)
			if err := b.dg.ApplicationCommandDelete(appID, guildID, old.ID); err != nil {
				log.Printf("[ERR] [%s] Failed to delete %s: %v", guildID, old.Name, err)
			}
		}
	}

	limiter := rate.NewLimiter(rate.Every(time.Second/40), 1)
	for _, def := range wanted {
		if err := limiter.Wait(context.Background()); err != nil {
			return err
		}
		if _, err := b.dg.ApplicationCommandCreate(appID, guildID, def); err != nil {
			log.Printf("[ERR] Can't create command %s: %v", def.Name, err)
		}
	}
	return nil
}

func (b *Bot) setNoticeChannel(guildID, channelID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.noticeChannels[guildID] = channelID
}

// Notify implements session.Notifier. Delivery happens off the caller's
// goroutine; the session must never block on a user message.
func (b *Bot) Notify(guildID, message string) {
	b.mu.RLock()
	channelID, ok := b.noticeChannels[guildID]
	b.mu.RUnlock()
	if !ok {
		log.Printf("[WARN] [%s] No notice channel known, dropping message: %s", guildID, message)
		return
	}
	go func() {
		if _, err := b.dg.ChannelMessageSend(channelID, message); err != nil {
			log.Printf("[WARN] [%s] Failed to send notice: %v", guildID, err)
		}
	}()
}
