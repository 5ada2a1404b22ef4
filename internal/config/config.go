// /internal/config/config.go
package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

func init() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found, falling back to system environment variables")
	}
}

type Config struct {
	DiscordToken string `env:"DISCORD_TOKEN,required"`

	// Local persistence.
	StoragePath  string `env:"STORAGE_PATH" envDefault:"harmonia.db"`
	SnapshotPath string `env:"SNAPSHOT_PATH" envDefault:"rooms.json"`

	// Audio node endpoint.
	NodeAddr     string `env:"NODE_ADDR" envDefault:"127.0.0.1:2333"`
	NodePassword string `env:"NODE_PASSWORD"`

	// Session behavior.
	IdleTimeout       time.Duration `env:"IDLE_TIMEOUT" envDefault:"3m"`
	ReconnectAttempts int           `env:"RECONNECT_ATTEMPTS" envDefault:"3"`
	DefaultVolume     int           `env:"DEFAULT_VOLUME" envDefault:"70"`

	// Temporary room behavior.
	RoomGrace time.Duration `env:"ROOM_GRACE" envDefault:"15s"`

	// Re-register slash commands on startup.
	InitSlashCommands bool `env:"INIT_SLASH_COMMANDS" envDefault:"true"`
}

func New() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return &cfg, nil
}
