package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"guildwarden/internal/wordmatch"
)

// ModerationAction selects what happens when a banned word matches.
type ModerationAction int

const (
	ActionWarn ModerationAction = iota
	ActionDelete
)

func (a ModerationAction) String() string {
	if a == ActionDelete {
		return "delete"
	}
	return "warn"
}

func ParseModerationAction(s string) (ModerationAction, bool) {
	switch strings.ToLower(s) {
	case "warn":
		return ActionWarn, true
	case "delete":
		return ActionDelete, true
	}
	return ActionWarn, false
}

type ModerationSetting struct {
	GuildID string
	Enabled bool
	Action  ModerationAction
}

type BannedWord struct {
	Word      string
	AddedBy   string
	CreatedAt time.Time
}

// GetModerationSetting returns the guild's profanity-filter setting,
// creating the default row (enabled, warn) on first read.
func (s *Store) GetModerationSetting(ctx context.Context, guildID string) (ModerationSetting, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT enabled, action FROM moderation_settings WHERE guild_id = ?`, guildID)

	result := ModerationSetting{GuildID: guildID, Enabled: true, Action: ActionWarn}
	var enabled, action int
	err := row.Scan(&enabled, &action)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_, err = s.db.ExecContext(ctx, `
				INSERT OR IGNORE INTO moderation_settings (guild_id, enabled, action, updated_at)
				VALUES (?, 1, 0, ?)`, guildID, time.Now().Unix())
			return result, err
		}
		return ModerationSetting{}, err
	}
	result.Enabled = enabled == 1
	result.Action = ModerationAction(action)
	return result, nil
}

func (s *Store) SetModerationEnabled(ctx context.Context, guildID string, enabled bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO moderation_settings (guild_id, enabled, action, updated_at)
		VALUES (?, ?, 0, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`, guildID, boolToInt(enabled), time.Now().Unix())
	return err
}

func (s *Store) SetModerationAction(ctx context.Context, guildID string, action ModerationAction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO moderation_settings (guild_id, enabled, action, updated_at)
		VALUES (?, 1, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			action = excluded.action,
			updated_at = excluded.updated_at
	`, guildID, int(action), time.Now().Unix())
	return err
}

// AddBannedWord stores a word for the guild in its normalized form, so
// spelling variants that match the same content collapse into one row.
// Returns false when the word already exists or normalizes to nothing;
// the (guild_id, word) unique constraint is the deduplication layer.
func (s *Store) AddBannedWord(ctx context.Context, guildID, word, addedBy string) (bool, error) {
	word = wordmatch.Normalize(word)
	if word == "" {
		return false, nil
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO banned_words (guild_id, word, added_by, created_at)
		VALUES (?, ?, ?, ?)`, guildID, word, addedBy, time.Now().Unix())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RenameBannedWord replaces one word with another, keeping delete and
// insert inside a transaction so a crash cannot drop the old word
// without registering the new one. Returns false when the old word is
// absent or the new word already exists.
func (s *Store) RenameBannedWord(ctx context.Context, guildID, oldWord, newWord string) (bool, error) {
	oldWord = wordmatch.Normalize(oldWord)
	newWord = wordmatch.Normalize(newWord)
	if newWord == "" {
		return false, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.ExecContext(ctx, `
		DELETE FROM banned_words WHERE guild_id = ? AND word = ?`, guildID, oldWord)
	if err != nil {
		return false, err
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return false, err
	}

	res, err = tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO banned_words (guild_id, word, added_by, created_at)
		VALUES (?, ?, '', ?)`, guildID, newWord, time.Now().Unix())
	if err != nil {
		return false, err
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return false, err
	}
	return true, tx.Commit()
}

func (s *Store) DeleteBannedWord(ctx context.Context, guildID, word string) (bool, error) {
	word = wordmatch.Normalize(word)
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM banned_words WHERE guild_id = ? AND word = ?`, guildID, word)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ClearBannedWords removes every banned word in the guild and reports
// how many were deleted.
func (s *Store) ClearBannedWords(ctx context.Context, guildID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM banned_words WHERE guild_id = ?`, guildID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *Store) CountBannedWords(ctx context.Context, guildID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM banned_words WHERE guild_id = ?`, guildID).Scan(&count)
	return count, err
}

// ListBannedWords returns the guild's words in insertion order.
func (s *Store) ListBannedWords(ctx context.Context, guildID string) ([]BannedWord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT word, COALESCE(added_by, ''), created_at
		FROM banned_words
		WHERE guild_id = ?
		ORDER BY created_at ASC, id ASC`, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var words []BannedWord
	for rows.Next() {
		var w BannedWord
		var created int64
		if err := rows.Scan(&w.Word, &w.AddedBy, &created); err != nil {
			return nil, err
		}
		w.CreatedAt = time.Unix(created, 0)
		words = append(words, w)
	}
	return words, rows.Err()
}

// ImportBannedWords inserts a batch of words in normalized form,
// skipping duplicates and words that normalize to nothing, and reports
// how many were actually added.
func (s *Store) ImportBannedWords(ctx context.Context, guildID string, words []string, addedBy string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().Unix()
	added := 0
	for _, word := range words {
		word = wordmatch.Normalize(word)
		if word == "" {
			continue
		}
		res, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO banned_words (guild_id, word, added_by, created_at)
			VALUES (?, ?, ?, ?)`, guildID, word, addedBy, now)
		if err != nil {
			return 0, err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			added++
		}
	}
	return added, tx.Commit()
}

func (s *Store) AddBypassRole(ctx context.Context, guildID, roleID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO bypass_roles (guild_id, role_id) VALUES (?, ?)`, guildID, roleID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) RemoveBypassRole(ctx context.Context, guildID, roleID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM bypass_roles WHERE guild_id = ? AND role_id = ?`, guildID, roleID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) ListBypassRoleIDs(ctx context.Context, guildID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT role_id FROM bypass_roles WHERE guild_id = ? ORDER BY role_id`, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		roles = append(roles, id)
	}
	return roles, rows.Err()
}
