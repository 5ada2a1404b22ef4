package storage

import (
	"context"
	"fmt"
)

// IsBlacklisted reports whether a track URL is on the deny-list. This is
// the check every enqueue passes through.
func (s *Storage) IsBlacklisted(ctx context.Context, url string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM track_blacklist WHERE url = ?`, url).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("blacklist lookup: %w", err)
	}
	return n > 0, nil
}

// BlacklistTrack adds a URL to the deny-list. Re-adding is a no-op.
func (s *Storage) BlacklistTrack(ctx context.Context, url, reviewerID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO track_blacklist (url, reviewer_id) VALUES (?, ?)`,
		url, reviewerID)
	return err
}

// UnblacklistTrack removes a URL from the deny-list.
func (s *Storage) UnblacklistTrack(ctx context.Context, url string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM track_blacklist WHERE url = ?`, url)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s is not blacklisted", ErrNotFound, url)
	}
	return nil
}
