package storage

import (
	"context"
	"time"
)

type ReactionEntry struct {
	UserID string
	Count  int
}

// IncrementReaction adjusts a user's guild-wide reaction tally. delta
// may be negative (reaction removed); totals are clamped at zero.
func (s *Store) IncrementReaction(ctx context.Context, guildID, userID string, delta int) error {
	if delta == 0 {
		return nil
	}
	day := time.Now().UTC().Format(dayFormat)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO reaction_counts_daily (guild_id, user_id, day, count)
		VALUES (?, ?, ?, MAX(0, ?))
		ON CONFLICT(guild_id, user_id, day) DO UPDATE SET count = MAX(0, count + ?)
	`, guildID, userID, day, delta, delta)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO reaction_counts_total (guild_id, user_id, count)
		VALUES (?, ?, MAX(0, ?))
		ON CONFLICT(guild_id, user_id) DO UPDATE SET count = MAX(0, count + ?)
	`, guildID, userID, delta, delta)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// IncrementMessageReaction adjusts a user's tally on one specific
// message, used for per-message stats and raffles.
func (s *Store) IncrementMessageReaction(ctx context.Context, guildID, channelID, messageID, userID string, delta int) error {
	if delta == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reaction_message_users (guild_id, channel_id, message_id, user_id, count)
		VALUES (?, ?, ?, ?, MAX(0, ?))
		ON CONFLICT(guild_id, message_id, user_id) DO UPDATE SET
			channel_id = excluded.channel_id,
			count = MAX(0, count + ?)
	`, guildID, channelID, messageID, userID, delta, delta)
	return err
}

func (s *Store) ReactionTotal(ctx context.Context, guildID, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(count), 0) FROM reaction_counts_total
		WHERE guild_id = ? AND user_id = ?`, guildID, userID).Scan(&count)
	return count, err
}

func (s *Store) ReactionSumSince(ctx context.Context, guildID, userID string, days int) (int, error) {
	if days <= 0 {
		return 0, nil
	}
	start := time.Now().UTC().AddDate(0, 0, -(days - 1)).Format(dayFormat)
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(count), 0) FROM reaction_counts_daily
		WHERE guild_id = ? AND user_id = ? AND day >= ?`, guildID, userID, start).Scan(&count)
	return count, err
}

// ReactionRank returns the guild's users ordered by tally, zero tallies
// excluded. days <= 0 means all-time.
func (s *Store) ReactionRank(ctx context.Context, guildID string, days int) ([]ReactionEntry, error) {
	var query string
	args := []any{guildID}
	if days > 0 {
		query = `
			SELECT user_id, SUM(count) AS total FROM reaction_counts_daily
			WHERE guild_id = ? AND day >= ?
			GROUP BY user_id HAVING total > 0
			ORDER BY total DESC, user_id ASC`
		args = append(args, time.Now().UTC().AddDate(0, 0, -(days-1)).Format(dayFormat))
	} else {
		query = `
			SELECT user_id, count FROM reaction_counts_total
			WHERE guild_id = ? AND count > 0
			ORDER BY count DESC, user_id ASC`
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ReactionEntry
	for rows.Next() {
		var e ReactionEntry
		if err := rows.Scan(&e.UserID, &e.Count); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MessageReactionRank returns who reacted to a message, ordered by
// count, zero rows excluded.
func (s *Store) MessageReactionRank(ctx context.Context, guildID, messageID string) ([]ReactionEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, count FROM reaction_message_users
		WHERE guild_id = ? AND message_id = ? AND count > 0
		ORDER BY count DESC, user_id ASC`, guildID, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ReactionEntry
	for rows.Next() {
		var e ReactionEntry
		if err := rows.Scan(&e.UserID, &e.Count); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
