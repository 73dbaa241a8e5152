package modcache

import (
	"context"
	"sync"

	"guildwarden/internal/storage"
	"guildwarden/internal/wordmatch"

	"go.uber.org/zap"
)

// Loader is the slice of persistence a snapshot is built from.
type Loader interface {
	GetModerationSetting(ctx context.Context, guildID string) (storage.ModerationSetting, error)
	ListBannedWords(ctx context.Context, guildID string) ([]storage.BannedWord, error)
	ListBypassRoleIDs(ctx context.Context, guildID string) ([]string, error)
}

// Snapshot is a guild's materialized moderation view. It is immutable
// after construction; readers share it and reloads swap in a fresh one
// wholesale, so a reader can never observe a new word list with an old
// enabled flag.
type Snapshot struct {
	Enabled     bool
	Action      storage.ModerationAction
	Words       map[string]struct{}
	Matchers    []wordmatch.Matcher
	BypassRoles map[string]struct{}
}

// HasBypassRole reports whether any of the member's roles is a
// profanity-bypass role.
func (s *Snapshot) HasBypassRole(roleIDs []string) bool {
	for _, id := range roleIDs {
		if _, ok := s.BypassRoles[id]; ok {
			return true
		}
	}
	return false
}

// Cache holds one snapshot per guild. Loads are serialized per guild so
// concurrent first messages collapse into a single store round trip.
type Cache struct {
	loader Loader
	logger *zap.Logger

	mu      sync.RWMutex
	entries map[string]*Snapshot

	loadMu sync.Mutex
	loads  map[string]*sync.Mutex
}

func New(loader Loader, logger *zap.Logger) *Cache {
	return &Cache{
		loader:  loader,
		logger:  logger,
		entries: make(map[string]*Snapshot),
		loads:   make(map[string]*sync.Mutex),
	}
}

// GetOrLoad returns the guild's snapshot, loading it synchronously on
// first use. The first message per guild after process start pays the
// reload cost; everything after is a cache hit until Invalidate or
// Reload.
func (c *Cache) GetOrLoad(ctx context.Context, guildID string) (*Snapshot, error) {
	c.mu.RLock()
	snap := c.entries[guildID]
	c.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}

	lock := c.guildLock(guildID)
	lock.Lock()
	defer lock.Unlock()

	// Another goroutine may have finished the load while we waited.
	c.mu.RLock()
	snap = c.entries[guildID]
	c.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}
	return c.load(ctx, guildID)
}

// Reload rebuilds the guild's snapshot from the store and swaps it in.
// Call after any banned-word, moderation-setting or bypass-role
// mutation; the cache has no TTL or background refresh.
func (c *Cache) Reload(ctx context.Context, guildID string) (*Snapshot, error) {
	lock := c.guildLock(guildID)
	lock.Lock()
	defer lock.Unlock()
	return c.load(ctx, guildID)
}

// Invalidate drops the guild's snapshot; the next message triggers a
// lazy reload.
func (c *Cache) Invalidate(guildID string) {
	c.mu.Lock()
	delete(c.entries, guildID)
	c.mu.Unlock()
}

func (c *Cache) load(ctx context.Context, guildID string) (*Snapshot, error) {
	setting, err := c.loader.GetModerationSetting(ctx, guildID)
	if err != nil {
		return nil, err
	}
	banned, err := c.loader.ListBannedWords(ctx, guildID)
	if err != nil {
		return nil, err
	}
	roleIDs, err := c.loader.ListBypassRoleIDs(ctx, guildID)
	if err != nil {
		return nil, err
	}

	words := make([]string, 0, len(banned))
	wordSet := make(map[string]struct{}, len(banned))
	for _, w := range banned {
		words = append(words, w.Word)
		wordSet[w.Word] = struct{}{}
	}
	roleSet := make(map[string]struct{}, len(roleIDs))
	for _, id := range roleIDs {
		roleSet[id] = struct{}{}
	}

	snap := &Snapshot{
		Enabled:     setting.Enabled,
		Action:      setting.Action,
		Words:       wordSet,
		Matchers:    wordmatch.Compile(words),
		BypassRoles: roleSet,
	}

	c.mu.Lock()
	c.entries[guildID] = snap
	c.mu.Unlock()

	c.logger.Info("moderation cache loaded",
		zap.String("guild_id", guildID),
		zap.Bool("enabled", snap.Enabled),
		zap.String("action", snap.Action.String()),
		zap.Int("words", len(snap.Matchers)))
	return snap, nil
}

func (c *Cache) guildLock(guildID string) *sync.Mutex {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()
	lock := c.loads[guildID]
	if lock == nil {
		lock = &sync.Mutex{}
		c.loads[guildID] = lock
	}
	return lock
}
