package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Playlist is a named, user-owned ordered track list. Loading a playlist
// into a queue copies its entries; queue mutations never touch the
// stored playlist.
type Playlist struct {
	ID      int64
	Name    string
	OwnerID string
	Created time.Time
	Entries []PlaylistEntry
}

type PlaylistEntry struct {
	Name string
	URL  string
}

// SavePlaylist creates a playlist with its entries in one transaction.
// A (name, owner) pair may exist only once.
func (s *Storage) SavePlaylist(ctx context.Context, name, ownerID string, entries []PlaylistEntry) (*Playlist, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO playlist (name, user_id) VALUES (?, ?)`, name, ownerID)
	if err != nil {
		return nil, fmt.Errorf("insert playlist %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	if err := insertEntries(ctx, tx, id, 0, entries); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &Playlist{ID: id, Name: name, OwnerID: ownerID, Created: time.Now(), Entries: entries}, nil
}

// LoadPlaylist fetches a playlist with its entries in stored order.
// Returns ErrNotFound if the owner has no playlist by that name.
func (s *Storage) LoadPlaylist(ctx context.Context, name, ownerID string) (*Playlist, error) {
	var p Playlist
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, user_id, created FROM playlist WHERE name = ? AND user_id = ?`,
		name, ownerID).Scan(&p.ID, &p.Name, &p.OwnerID, &p.Created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: playlist %q", ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT name, url FROM playlist_entry WHERE playlist_id = ? ORDER BY position`, p.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var e PlaylistEntry
		if err := rows.Scan(&e.Name, &e.URL); err != nil {
			return nil, err
		}
		p.Entries = append(p.Entries, e)
	}
	return &p, rows.Err()
}

// AppendEntries adds entries to the end of an existing playlist.
func (s *Storage) AppendEntries(ctx context.Context, playlistID int64, entries []PlaylistEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var next int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), -1) + 1 FROM playlist_entry WHERE playlist_id = ?`,
		playlistID).Scan(&next)
	if err != nil {
		return err
	}

	if err := insertEntries(ctx, tx, playlistID, next, entries); err != nil {
		return err
	}
	return tx.Commit()
}

func insertEntries(ctx context.Context, tx *sql.Tx, playlistID int64, from int, entries []PlaylistEntry) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO playlist_entry (playlist_id, name, url, position) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, e := range entries {
		if _, err := stmt.ExecContext(ctx, playlistID, e.Name, e.URL, from+i); err != nil {
			return fmt.Errorf("insert entry %q: %w", e.URL, err)
		}
	}
	return nil
}

// DeletePlaylist removes a playlist; entries go with it via cascade.
func (s *Storage) DeletePlaylist(ctx context.Context, playlistID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM playlist WHERE id = ?`, playlistID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: playlist id %d", ErrNotFound, playlistID)
	}
	return nil
}

// ListPlaylists returns the owner's playlists without entries.
func (s *Storage) ListPlaylists(ctx context.Context, ownerID string) ([]Playlist, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, user_id, created FROM playlist WHERE user_id = ? ORDER BY created`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Playlist
	for rows.Next() {
		var p Playlist
		if err := rows.Scan(&p.ID, &p.Name, &p.OwnerID, &p.Created); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
