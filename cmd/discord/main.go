// cmd/discord/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"harmonia/internal/command"
	"harmonia/internal/command/moderation"
	"harmonia/internal/command/music"
	"harmonia/internal/command/playlist"
	"harmonia/internal/command/temproom"
	"harmonia/internal/config"
	"harmonia/internal/discord"
	"harmonia/internal/rooms"
	"harmonia/internal/storage"
)

func main() {
	log.Println("[INFO] Starting harmonia bot...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.New()
	if err != nil {
		log.Fatal(err)
	}

	store, err := storage.New(cfg.StoragePath)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	snapshots, err := rooms.NewSnapshotStore(cfg.SnapshotPath)
	if err != nil {
		log.Fatal(err)
	}
	defer snapshots.Close()

	bot, err := discord.NewBot(cfg, store, snapshots)
	if err != nil {
		log.Fatal(err)
	}
	registerCommands(bot)

	errCh := make(chan error, 1)
	go func() {
		if err := bot.Run(ctx); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.Printf("[INFO] Received signal %s, shutting down...\n", s)
		cancel()
	case err := <-errCh:
		if err != nil {
			log.Println("[ERR] Discord bot error:", err)
		}
		cancel()
	case <-ctx.Done():
	}

	log.Println("[INFO] Discord bot exited cleanly")
}

func registerCommands(bot *discord.Bot) {
	command.Register(&music.PlayCommand{Bot: bot}, command.WithGuildOnly)
	command.Register(&music.SkipCommand{Bot: bot}, command.WithGuildOnly)
	command.Register(&music.StopCommand{Bot: bot}, command.WithGuildOnly)
	command.Register(&music.PauseCommand{Bot: bot}, command.WithGuildOnly)
	command.Register(&music.ResumeCommand{Bot: bot}, command.WithGuildOnly)
	command.Register(&music.QueueCommand{Bot: bot}, command.WithGuildOnly)
	command.Register(&music.LoopCommand{Bot: bot}, command.WithGuildOnly)
	command.Register(&music.ShuffleCommand{Bot: bot}, command.WithGuildOnly)
	command.Register(&music.VolumeCommand{Bot: bot}, command.WithGuildOnly)
	command.Register(&music.AutoplayCommand{Bot: bot}, command.WithGuildOnly)
	command.Register(&music.RemoveCommand{Bot: bot}, command.WithGuildOnly)
	command.Register(&music.ClearCommand{Bot: bot}, command.WithGuildOnly)
	command.Register(&playlist.PlaylistCommand{Bot: bot}, command.WithGuildOnly)
	command.Register(&moderation.BlacklistCommand{}, command.WithAdminCheck, command.WithGuildOnly)
	command.Register(&temproom.TempRoomCommand{}, command.WithAdminCheck, command.WithGuildOnly)
}
