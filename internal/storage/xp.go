package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type XPEntry struct {
	UserID string
	XP     int
}

// ApplyGain performs the cooldown check and XP increment as one
// transaction, so two near-simultaneous messages from the same user
// cannot both be judged eligible. Returns the applied gain (0 when the
// cooldown has not elapsed) and the resulting total.
func (s *Store) ApplyGain(ctx context.Context, guildID, userID string, now time.Time, cooldown time.Duration, gain int) (int, int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var total int
	var lastAt sql.NullInt64
	err = tx.QueryRowContext(ctx, `
		SELECT xp, last_message_at FROM xp_users WHERE guild_id = ? AND user_id = ?`,
		guildID, userID).Scan(&total, &lastAt)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, 0, err
	}

	eligible := true
	if lastAt.Valid && now.Sub(time.Unix(lastAt.Int64, 0)) < cooldown {
		eligible = false
	}

	gained := 0
	if eligible {
		gained = gain
		total += gain
		_, err = tx.ExecContext(ctx, `
			INSERT INTO xp_users (guild_id, user_id, xp, last_message_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(guild_id, user_id) DO UPDATE SET
				xp = excluded.xp,
				last_message_at = excluded.last_message_at
		`, guildID, userID, total, now.Unix())
	} else {
		// Still materialize the zero row for absent users.
		_, err = tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO xp_users (guild_id, user_id, xp, last_message_at)
			VALUES (?, ?, 0, NULL)`, guildID, userID)
	}
	if err != nil {
		return 0, 0, err
	}
	return gained, total, tx.Commit()
}

func (s *Store) XPTotal(ctx context.Context, guildID, userID string) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, `
		SELECT xp FROM xp_users WHERE guild_id = ? AND user_id = ?`, guildID, userID).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return total, err
}

func (s *Store) CountXPGreater(ctx context.Context, guildID string, threshold int) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM xp_users WHERE guild_id = ? AND xp > ?`, guildID, threshold).Scan(&count)
	return count, err
}

func (s *Store) CountXPUsers(ctx context.Context, guildID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM xp_users WHERE guild_id = ?`, guildID).Scan(&count)
	return count, err
}

// TopXP returns up to limit users ordered by total, highest first.
func (s *Store) TopXP(ctx context.Context, guildID string, limit int) ([]XPEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, xp FROM xp_users
		WHERE guild_id = ?
		ORDER BY xp DESC, user_id ASC
		LIMIT ?`, guildID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []XPEntry
	for rows.Next() {
		var e XPEntry
		if err := rows.Scan(&e.UserID, &e.XP); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
