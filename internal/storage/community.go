package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type WaitlistEntry struct {
	UserID   string
	UserName string
	JoinedAt time.Time
}

// AddWaitlist appends a user to the guild's waitlist. Returns false
// when the user is already queued.
func (s *Store) AddWaitlist(ctx context.Context, guildID, userID, userName string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO waitlist (guild_id, user_id, user_name, joined_at)
		VALUES (?, ?, ?, ?)`, guildID, userID, userName, time.Now().UnixNano())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) RemoveWaitlist(ctx context.Context, guildID, userID string) (bool, error) {
	return s.deletePair(ctx, `DELETE FROM waitlist WHERE guild_id = ? AND user_id = ?`, guildID, userID)
}

func (s *Store) ClearWaitlist(ctx context.Context, guildID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM waitlist WHERE guild_id = ?`, guildID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// ListWaitlist returns the queue in arrival order.
func (s *Store) ListWaitlist(ctx context.Context, guildID string) ([]WaitlistEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, user_name, joined_at FROM waitlist
		WHERE guild_id = ? ORDER BY joined_at ASC`, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []WaitlistEntry
	for rows.Next() {
		var e WaitlistEntry
		var joined int64
		if err := rows.Scan(&e.UserID, &e.UserName, &joined); err != nil {
			return nil, err
		}
		e.JoinedAt = time.Unix(0, joined)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// PopWaitlist removes and returns the longest-waiting entry. The bool
// result is false when the queue is empty.
func (s *Store) PopWaitlist(ctx context.Context, guildID string) (WaitlistEntry, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return WaitlistEntry{}, false, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var e WaitlistEntry
	var joined int64
	err = tx.QueryRowContext(ctx, `
		SELECT user_id, user_name, joined_at FROM waitlist
		WHERE guild_id = ? ORDER BY joined_at ASC LIMIT 1`, guildID).Scan(&e.UserID, &e.UserName, &joined)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return WaitlistEntry{}, false, nil
		}
		return WaitlistEntry{}, false, err
	}
	e.JoinedAt = time.Unix(0, joined)

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM waitlist WHERE guild_id = ? AND user_id = ?`, guildID, e.UserID); err != nil {
		return WaitlistEntry{}, false, err
	}
	return e, true, tx.Commit()
}

// SetAutoChannel configures the voice channel whose joiners are queued
// automatically. Empty string clears it.
func (s *Store) SetAutoChannel(ctx context.Context, guildID, channelID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO auto_channels (guild_id, channel_id) VALUES (?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET channel_id = excluded.channel_id
	`, guildID, channelID)
	return err
}

func (s *Store) GetAutoChannel(ctx context.Context, guildID string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT channel_id FROM auto_channels WHERE guild_id = ?`, guildID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return id, err
}

// SetMoveChannel configures the voice channel waitlisted users are
// moved into. Empty string clears it.
func (s *Store) SetMoveChannel(ctx context.Context, guildID, channelID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO auto_channels (guild_id, channel_id, move_channel_id) VALUES (?, '', ?)
		ON CONFLICT(guild_id) DO UPDATE SET move_channel_id = excluded.move_channel_id
	`, guildID, channelID)
	return err
}

func (s *Store) GetMoveChannel(ctx context.Context, guildID string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT move_channel_id FROM auto_channels WHERE guild_id = ?`, guildID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return id, err
}

func (s *Store) SetAutoRole(ctx context.Context, guildID, roleID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO autorole_settings (guild_id, role_id) VALUES (?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET role_id = excluded.role_id
	`, guildID, roleID)
	return err
}

func (s *Store) ClearAutoRole(ctx context.Context, guildID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM autorole_settings WHERE guild_id = ?`, guildID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) GetAutoRole(ctx context.Context, guildID string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT role_id FROM autorole_settings WHERE guild_id = ?`, guildID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return id, err
}

func (s *Store) SetWelcomeMessage(ctx context.Context, guildID, message string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO welcome_messages (guild_id, message) VALUES (?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET message = excluded.message
	`, guildID, message)
	return err
}

func (s *Store) ClearWelcomeMessage(ctx context.Context, guildID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM welcome_messages WHERE guild_id = ?`, guildID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) GetWelcomeMessage(ctx context.Context, guildID string) (string, error) {
	var message string
	err := s.db.QueryRowContext(ctx, `
		SELECT message FROM welcome_messages WHERE guild_id = ?`, guildID).Scan(&message)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return message, err
}
