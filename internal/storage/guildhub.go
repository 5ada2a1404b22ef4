package storage

import (
	"context"
	"fmt"

	"harmonia/internal/rooms"
)

// SetHub stores or replaces the hub policy for one channel.
func (s *Storage) SetHub(ctx context.Context, p rooms.Policy) error {
	if p.NameTemplate == "" {
		p.NameTemplate = rooms.DefaultNameTemplate
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO guild_hub (guild_id, channel_id, name_template, transfer_ownership)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (guild_id, channel_id)
		DO UPDATE SET name_template = excluded.name_template,
		              transfer_ownership = excluded.transfer_ownership`,
		p.GuildID, p.HubChannelID, p.NameTemplate, p.TransferOwnership)
	return err
}

// RemoveHub drops the hub policy for one channel.
func (s *Storage) RemoveHub(ctx context.Context, guildID, channelID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM guild_hub WHERE guild_id = ? AND channel_id = ?`, guildID, channelID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: no hub on channel %s", ErrNotFound, channelID)
	}
	return nil
}

// ListHubs returns every hub policy of a guild.
func (s *Storage) ListHubs(ctx context.Context, guildID string) ([]rooms.Policy, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT guild_id, channel_id, name_template, transfer_ownership
		FROM guild_hub WHERE guild_id = ?`, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []rooms.Policy
	for rows.Next() {
		var p rooms.Policy
		if err := rows.Scan(&p.GuildID, &p.HubChannelID, &p.NameTemplate, &p.TransferOwnership); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
