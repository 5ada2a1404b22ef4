// Package storage persists playlists, the track blacklist and per-guild
// hub configuration in a local sqlite database.
package storage

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS playlist (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	name    TEXT NOT NULL,
	user_id TEXT NOT NULL,
	created TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (name, user_id)
);

CREATE TABLE IF NOT EXISTS playlist_entry (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	playlist_id INTEGER NOT NULL REFERENCES playlist(id) ON DELETE CASCADE,
	name        TEXT NOT NULL,
	url         TEXT NOT NULL,
	position    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS track_blacklist (
	url         TEXT PRIMARY KEY,
	reviewer_id TEXT NOT NULL,
	added       TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS guild_hub (
	guild_id           TEXT NOT NULL,
	channel_id         TEXT NOT NULL,
	name_template      TEXT NOT NULL,
	transfer_ownership INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (guild_id, channel_id)
);
`

type Storage struct {
	db *sql.DB
}

// New opens (and creates if needed) the database at path. Use ":memory:"
// for an ephemeral store in tests.
func New(path string) (*Storage, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}
