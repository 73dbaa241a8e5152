package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"guildwarden/internal/modcache"
	"guildwarden/internal/spam"
	"guildwarden/internal/storage"
	"guildwarden/internal/utils"
	"guildwarden/internal/wordmatch"

	"go.uber.org/zap"
)

// Verdict is the single terminal outcome of one message evaluation.
type Verdict int

const (
	VerdictSkip Verdict = iota
	VerdictAllow
	VerdictBlockMention
	VerdictBlockInvite
	VerdictBlockSpam
	VerdictWarn
	VerdictWarnAndDelete
)

func (v Verdict) String() string {
	switch v {
	case VerdictSkip:
		return "skip"
	case VerdictAllow:
		return "allow"
	case VerdictBlockMention:
		return "block_mention"
	case VerdictBlockInvite:
		return "block_invite"
	case VerdictBlockSpam:
		return "block_spam"
	case VerdictWarn:
		return "warn"
	case VerdictWarnAndDelete:
		return "warn_and_delete"
	}
	return "unknown"
}

// Message is one fully-formed inbound event from the platform layer.
// The engine has no subscription mechanism of its own.
type Message struct {
	GuildID       string
	ChannelID     string
	MessageID     string
	AuthorID      string
	AuthorBot     bool
	AuthorRoleIDs []string
	Content       string
	Timestamp     time.Time
}

// Effects are the side-effect requests the caller executes best-effort.
// A failed delete or timeout is reported by the caller but never aborts
// the rest of the requests.
type Effects struct {
	DeleteMessage  bool
	TimeoutMinutes int
	TimeoutReason  string
	LogText        string
	CounterKey     string
	ReplyText      string
	NoticeText     string
	NotifyText     string
}

type Result struct {
	Verdict Verdict
	Effects Effects
	Hits    []string
}

// Store is the persistence the engine consults per message.
type Store interface {
	IsWhitelisted(ctx context.Context, guildID, userID string, roleIDs []string, channelID string) (bool, error)
	GetSecuritySettings(ctx context.Context, guildID string) (storage.SecuritySettings, error)
	GetSecurityTimeouts(ctx context.Context, guildID string) (storage.SecurityTimeouts, error)
}

// SnapshotSource provides the guild's compiled moderation view.
type SnapshotSource interface {
	GetOrLoad(ctx context.Context, guildID string) (*modcache.Snapshot, error)
}

// InviteResolver looks up which guild an invite code belongs to. An
// error means the code could not be verified.
type InviteResolver interface {
	ResolveInviteGuild(ctx context.Context, code string) (string, error)
}

// Engine evaluates messages in a fixed priority order, short-circuiting
// on the first violation: whitelist, mass mention, invite link, spam,
// profanity.
type Engine struct {
	store    Store
	cache    SnapshotSource
	spam     *spam.Tracker
	resolver InviteResolver
	logger   *zap.Logger
}

func New(store Store, cache SnapshotSource, tracker *spam.Tracker, resolver InviteResolver, logger *zap.Logger) *Engine {
	return &Engine{store: store, cache: cache, spam: tracker, resolver: resolver, logger: logger}
}

// Evaluate runs the pipeline for one message and returns the terminal
// decision plus its side-effect requests. Persistence failures inside
// the pipeline degrade to safe fallbacks and never propagate; one bad
// message must not take down the handler loop.
func (e *Engine) Evaluate(ctx context.Context, msg Message) Result {
	if msg.AuthorBot || msg.GuildID == "" {
		return Result{Verdict: VerdictSkip}
	}

	whitelisted, err := e.store.IsWhitelisted(ctx, msg.GuildID, msg.AuthorID, msg.AuthorRoleIDs, msg.ChannelID)
	if err != nil {
		e.logger.Warn("whitelist lookup failed", zap.String("guild_id", msg.GuildID), zap.Error(err))
		whitelisted = false
	}

	if !whitelisted {
		sec, err := e.store.GetSecuritySettings(ctx, msg.GuildID)
		if err != nil {
			e.logger.Warn("security settings lookup failed", zap.String("guild_id", msg.GuildID), zap.Error(err))
			sec = storage.SecuritySettings{GuildID: msg.GuildID}
		}

		if sec.BlockEveryone && utils.ContainsBroadcastMention(msg.Content) {
			timeouts := e.timeouts(ctx, msg.GuildID)
			return Result{
				Verdict: VerdictBlockMention,
				Effects: Effects{
					DeleteMessage:  true,
					TimeoutMinutes: timeouts.EveryoneMin,
					TimeoutReason:  "mass mention blocked",
					LogText:        fmt.Sprintf("mass mention blocked: <@%s> in <#%s>", msg.AuthorID, msg.ChannelID),
					CounterKey:     storage.EventBlockedEveryone,
				},
			}
		}

		if sec.BlockInvites {
			if code, ok := utils.ExtractInviteCode(msg.Content); ok {
				if !e.inviteAllowed(ctx, msg.GuildID, code) {
					timeouts := e.timeouts(ctx, msg.GuildID)
					return Result{
						Verdict: VerdictBlockInvite,
						Effects: Effects{
							DeleteMessage:  true,
							TimeoutMinutes: timeouts.InviteMin,
							TimeoutReason:  "external invite link",
							LogText:        fmt.Sprintf("invite link removed: <@%s> posted `%s` in <#%s>", msg.AuthorID, code, msg.ChannelID),
							CounterKey:     storage.EventBlockedInvite,
						},
					}
				}
			}
		}

		if sec.BlockSpam && e.spam.RecordAndCheck(msg.GuildID, msg.AuthorID, msg.Timestamp, sec.SpamWindowSec, sec.SpamThreshold) {
			timeouts := e.timeouts(ctx, msg.GuildID)
			return Result{
				Verdict: VerdictBlockSpam,
				Effects: Effects{
					DeleteMessage:  true,
					TimeoutMinutes: timeouts.SpamMin,
					TimeoutReason:  "message flood",
					LogText:        fmt.Sprintf("spam detected: <@%s> in <#%s>", msg.AuthorID, msg.ChannelID),
					CounterKey:     storage.EventBlockedSpam,
				},
			}
		}
	}

	return e.evaluateProfanity(ctx, msg)
}

// evaluateProfanity runs the banned-word filter. The bypass-role
// exemption applies here only; the general whitelist above covers the
// mention, invite and spam checks but not this one.
func (e *Engine) evaluateProfanity(ctx context.Context, msg Message) Result {
	snap, err := e.cache.GetOrLoad(ctx, msg.GuildID)
	if err != nil {
		e.logger.Warn("moderation cache load failed", zap.String("guild_id", msg.GuildID), zap.Error(err))
		return Result{Verdict: VerdictAllow}
	}
	if !snap.Enabled || snap.HasBypassRole(msg.AuthorRoleIDs) {
		return Result{Verdict: VerdictAllow}
	}

	norm := wordmatch.Normalize(msg.Content)
	if norm == "" {
		return Result{Verdict: VerdictAllow}
	}
	hits := wordmatch.FindHits(norm, snap.Matchers, wordmatch.DefaultHitLimit)
	if len(hits) == 0 {
		return Result{Verdict: VerdictAllow}
	}

	preview := hitPreview(hits, 5)
	notify := fmt.Sprintf("banned expression detected\nguild: %s\nchannel: <#%s>\nuser: <@%s>\nterms: %s\nmessage: %s",
		msg.GuildID, msg.ChannelID, msg.AuthorID, preview, messageLink(msg))

	if snap.Action == storage.ActionDelete {
		return Result{
			Verdict: VerdictWarnAndDelete,
			Hits:    hits,
			Effects: Effects{
				DeleteMessage: true,
				NoticeText:    fmt.Sprintf("<@%s> your message was removed for a banned expression.", msg.AuthorID),
				NotifyText:    notify,
				CounterKey:    storage.EventProfanityDelete,
			},
		}
	}
	return Result{
		Verdict: VerdictWarn,
		Hits:    hits,
		Effects: Effects{
			ReplyText:  fmt.Sprintf("a banned expression was detected, please edit your message.\ndetected: %s", preview),
			NotifyText: notify,
			CounterKey: storage.EventProfanityWarn,
		},
	}
}

// inviteAllowed reports whether the invite points at this guild.
// Resolution failure means the code cannot be verified, and absence of
// proof of safety is not proof of safety.
func (e *Engine) inviteAllowed(ctx context.Context, guildID, code string) bool {
	resolved, err := e.resolver.ResolveInviteGuild(ctx, code)
	if err != nil {
		e.logger.Info("invite resolution failed, blocking",
			zap.String("guild_id", guildID), zap.String("code", code), zap.Error(err))
		return false
	}
	return resolved == guildID
}

func (e *Engine) timeouts(ctx context.Context, guildID string) storage.SecurityTimeouts {
	timeouts, err := e.store.GetSecurityTimeouts(ctx, guildID)
	if err != nil {
		e.logger.Warn("timeout settings lookup failed", zap.String("guild_id", guildID), zap.Error(err))
		return storage.SecurityTimeouts{GuildID: guildID, EveryoneMin: 10, InviteMin: 30, SpamMin: 15}
	}
	return timeouts
}

func hitPreview(hits []string, limit int) string {
	if len(hits) <= limit {
		return strings.Join(hits, ", ")
	}
	return strings.Join(hits[:limit], ", ") + " ..."
}

func messageLink(msg Message) string {
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", msg.GuildID, msg.ChannelID, msg.MessageID)
}
