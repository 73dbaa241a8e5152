package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Spam tuning bounds enforced by the configuration layer, not by the
// detector itself.
const (
	SpamWindowMin    = 2
	SpamWindowMax    = 120
	SpamThresholdMin = 2
	SpamThresholdMax = 50
)

type SecuritySettings struct {
	GuildID       string
	LogChannelID  string
	BlockEveryone bool
	BlockInvites  bool
	BlockSpam     bool
	SpamWindowSec int
	SpamThreshold int
}

// SecurityUpdate names every option a settings update may carry. Nil
// fields are left untouched; there is no dynamic merge.
type SecurityUpdate struct {
	LogChannelID  *string
	BlockEveryone *bool
	BlockInvites  *bool
	BlockSpam     *bool
	SpamWindowSec *int
	SpamThreshold *int
}

type SecurityTimeouts struct {
	GuildID     string
	EveryoneMin int
	InviteMin   int
	SpamMin     int
}

type TimeoutUpdate struct {
	EveryoneMin *int
	InviteMin   *int
	SpamMin     *int
}

func defaultSecuritySettings(guildID string) SecuritySettings {
	return SecuritySettings{
		GuildID:       guildID,
		BlockEveryone: true,
		BlockInvites:  true,
		BlockSpam:     true,
		SpamWindowSec: 7,
		SpamThreshold: 5,
	}
}

// GetSecuritySettings returns the guild's security row, creating the
// default one on first read.
func (s *Store) GetSecuritySettings(ctx context.Context, guildID string) (SecuritySettings, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT log_channel_id, block_everyone, block_invites, block_spam,
		spam_window_sec, spam_threshold
		FROM security_settings WHERE guild_id = ?`, guildID)

	result := defaultSecuritySettings(guildID)
	var everyone, invites, spam int
	err := row.Scan(&result.LogChannelID, &everyone, &invites, &spam, &result.SpamWindowSec, &result.SpamThreshold)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_, err = s.db.ExecContext(ctx, `
				INSERT OR IGNORE INTO security_settings (guild_id, updated_at) VALUES (?, ?)`,
				guildID, time.Now().Unix())
			return result, err
		}
		return SecuritySettings{}, err
	}
	result.BlockEveryone = everyone == 1
	result.BlockInvites = invites == 1
	result.BlockSpam = spam == 1
	return result, nil
}

// UpdateSecuritySettings applies the named fields of the update on top
// of the current (or default) row. Spam tuning is clamped to the
// supported range here so the detector never sees an absurd window.
func (s *Store) UpdateSecuritySettings(ctx context.Context, guildID string, update SecurityUpdate) (SecuritySettings, error) {
	current, err := s.GetSecuritySettings(ctx, guildID)
	if err != nil {
		return SecuritySettings{}, err
	}

	if update.LogChannelID != nil {
		current.LogChannelID = *update.LogChannelID
	}
	if update.BlockEveryone != nil {
		current.BlockEveryone = *update.BlockEveryone
	}
	if update.BlockInvites != nil {
		current.BlockInvites = *update.BlockInvites
	}
	if update.BlockSpam != nil {
		current.BlockSpam = *update.BlockSpam
	}
	if update.SpamWindowSec != nil {
		current.SpamWindowSec = clamp(*update.SpamWindowSec, SpamWindowMin, SpamWindowMax)
	}
	if update.SpamThreshold != nil {
		current.SpamThreshold = clamp(*update.SpamThreshold, SpamThresholdMin, SpamThresholdMax)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO security_settings (
			guild_id, log_channel_id, block_everyone, block_invites, block_spam,
			spam_window_sec, spam_threshold, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			log_channel_id = excluded.log_channel_id,
			block_everyone = excluded.block_everyone,
			block_invites = excluded.block_invites,
			block_spam = excluded.block_spam,
			spam_window_sec = excluded.spam_window_sec,
			spam_threshold = excluded.spam_threshold,
			updated_at = excluded.updated_at
	`,
		guildID,
		current.LogChannelID,
		boolToInt(current.BlockEveryone),
		boolToInt(current.BlockInvites),
		boolToInt(current.BlockSpam),
		current.SpamWindowSec,
		current.SpamThreshold,
		time.Now().Unix(),
	)
	if err != nil {
		return SecuritySettings{}, err
	}
	return current, nil
}

// GetSecurityTimeouts returns the guild's timeout durations (minutes),
// creating the default row (10/30/15) on first read.
func (s *Store) GetSecurityTimeouts(ctx context.Context, guildID string) (SecurityTimeouts, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT everyone_min, invite_min, spam_min
		FROM security_timeouts WHERE guild_id = ?`, guildID)

	result := SecurityTimeouts{GuildID: guildID, EveryoneMin: 10, InviteMin: 30, SpamMin: 15}
	err := row.Scan(&result.EveryoneMin, &result.InviteMin, &result.SpamMin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_, err = s.db.ExecContext(ctx, `
				INSERT OR IGNORE INTO security_timeouts (guild_id, updated_at) VALUES (?, ?)`,
				guildID, time.Now().Unix())
			return result, err
		}
		return SecurityTimeouts{}, err
	}
	return result, nil
}

func (s *Store) UpdateSecurityTimeouts(ctx context.Context, guildID string, update TimeoutUpdate) (SecurityTimeouts, error) {
	current, err := s.GetSecurityTimeouts(ctx, guildID)
	if err != nil {
		return SecurityTimeouts{}, err
	}

	if update.EveryoneMin != nil && *update.EveryoneMin > 0 {
		current.EveryoneMin = *update.EveryoneMin
	}
	if update.InviteMin != nil && *update.InviteMin > 0 {
		current.InviteMin = *update.InviteMin
	}
	if update.SpamMin != nil && *update.SpamMin > 0 {
		current.SpamMin = *update.SpamMin
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO security_timeouts (guild_id, everyone_min, invite_min, spam_min, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			everyone_min = excluded.everyone_min,
			invite_min = excluded.invite_min,
			spam_min = excluded.spam_min,
			updated_at = excluded.updated_at
	`, guildID, current.EveryoneMin, current.InviteMin, current.SpamMin, time.Now().Unix())
	if err != nil {
		return SecurityTimeouts{}, err
	}
	return current, nil
}

func (s *Store) AddWhitelistUser(ctx context.Context, guildID, userID string) (bool, error) {
	return s.insertPair(ctx, `INSERT OR IGNORE INTO whitelist_users (guild_id, user_id) VALUES (?, ?)`, guildID, userID)
}

func (s *Store) RemoveWhitelistUser(ctx context.Context, guildID, userID string) (bool, error) {
	return s.deletePair(ctx, `DELETE FROM whitelist_users WHERE guild_id = ? AND user_id = ?`, guildID, userID)
}

func (s *Store) AddWhitelistRole(ctx context.Context, guildID, roleID string) (bool, error) {
	return s.insertPair(ctx, `INSERT OR IGNORE INTO whitelist_roles (guild_id, role_id) VALUES (?, ?)`, guildID, roleID)
}

func (s *Store) RemoveWhitelistRole(ctx context.Context, guildID, roleID string) (bool, error) {
	return s.deletePair(ctx, `DELETE FROM whitelist_roles WHERE guild_id = ? AND role_id = ?`, guildID, roleID)
}

func (s *Store) AddWhitelistChannel(ctx context.Context, guildID, channelID string) (bool, error) {
	return s.insertPair(ctx, `INSERT OR IGNORE INTO whitelist_channels (guild_id, channel_id) VALUES (?, ?)`, guildID, channelID)
}

func (s *Store) RemoveWhitelistChannel(ctx context.Context, guildID, channelID string) (bool, error) {
	return s.deletePair(ctx, `DELETE FROM whitelist_channels WHERE guild_id = ? AND channel_id = ?`, guildID, channelID)
}

// WhitelistLists returns the guild's user, role and channel whitelists.
func (s *Store) WhitelistLists(ctx context.Context, guildID string) (users, roles, channels []string, err error) {
	users, err = s.listPair(ctx, `SELECT user_id FROM whitelist_users WHERE guild_id = ? ORDER BY user_id`, guildID)
	if err != nil {
		return nil, nil, nil, err
	}
	roles, err = s.listPair(ctx, `SELECT role_id FROM whitelist_roles WHERE guild_id = ? ORDER BY role_id`, guildID)
	if err != nil {
		return nil, nil, nil, err
	}
	channels, err = s.listPair(ctx, `SELECT channel_id FROM whitelist_channels WHERE guild_id = ? ORDER BY channel_id`, guildID)
	if err != nil {
		return nil, nil, nil, err
	}
	return users, roles, channels, nil
}

// IsWhitelisted reports whether the author, any of their roles, or the
// channel is exempt from the mention/invite/spam checks.
func (s *Store) IsWhitelisted(ctx context.Context, guildID, userID string, roleIDs []string, channelID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM whitelist_users WHERE guild_id = ? AND user_id = ?`, guildID, userID).Scan(&one)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, err
	}

	for _, roleID := range roleIDs {
		err = s.db.QueryRowContext(ctx, `
			SELECT 1 FROM whitelist_roles WHERE guild_id = ? AND role_id = ?`, guildID, roleID).Scan(&one)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return false, err
		}
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT 1 FROM whitelist_channels WHERE guild_id = ? AND channel_id = ?`, guildID, channelID).Scan(&one)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, err
	}
	return false, nil
}

func (s *Store) insertPair(ctx context.Context, query, guildID, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, query, guildID, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) deletePair(ctx context.Context, query, guildID, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, query, guildID, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) listPair(ctx context.Context, query, guildID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func clamp(value, low, high int) int {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}
