package storage

import (
	"context"
	"time"
)

// The nine event keys the bot aggregates per guild.
const (
	EventMessageTotal    = "message_total"
	EventBlockedEveryone = "blocked_everyone"
	EventBlockedInvite   = "blocked_invite"
	EventBlockedSpam     = "blocked_spam"
	EventProfanityWarn   = "profanity_warn"
	EventProfanityDelete = "profanity_delete"
	EventMemberJoin      = "member_join"
	EventMemberLeave     = "member_leave"
	EventAutoAddWaitlist = "auto_add_waitlist"
)

// EventKeys lists every counter key in display order.
var EventKeys = []string{
	EventMessageTotal,
	EventBlockedEveryone,
	EventBlockedInvite,
	EventBlockedSpam,
	EventProfanityWarn,
	EventProfanityDelete,
	EventMemberJoin,
	EventMemberLeave,
	EventAutoAddWaitlist,
}

const dayFormat = "2006-01-02"

// IncrementEvent bumps both the daily and the all-time counter for a
// guild/key pair.
func (s *Store) IncrementEvent(ctx context.Context, guildID, key string, n int) error {
	if key == "" || n == 0 {
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
		INSERT INTO event_counts_daily (guild_id, key, day, count)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(guild_id, key, day) DO UPDATE SET count = count + excluded.count
	`, guildID, key, day, n)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO event_counts_total (guild_id, key, count)
		VALUES (?, ?, ?)
		ON CONFLICT(guild_id, key) DO UPDATE SET count = count + excluded.count
	`, guildID, key, n)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// SumEventsSince sums the daily counters over the last days days
// (inclusive of today), keyed by event key.
func (s *Store) SumEventsSince(ctx context.Context, guildID string, days int) (map[string]int, error) {
	if days <= 0 {
		return map[string]int{}, nil
	}
	start := time.Now().UTC().AddDate(0, 0, -(days - 1)).Format(dayFormat)

	rows, err := s.db.QueryContext(ctx, `
		SELECT key, SUM(count) FROM event_counts_daily
		WHERE guild_id = ? AND day >= ?
		GROUP BY key`, guildID, start)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		out[key] = count
	}
	return out, rows.Err()
}

// TotalEvents returns the all-time counters keyed by event key.
func (s *Store) TotalEvents(ctx context.Context, guildID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, count FROM event_counts_total WHERE guild_id = ?`, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		out[key] = count
	}
	return out, rows.Err()
}
