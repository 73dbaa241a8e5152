package xp

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

const (
	// CooldownSeconds is the minimum gap between two XP-earning
	// messages from the same user in the same guild.
	CooldownSeconds = 60

	gainMin = 15
	gainMax = 25
)

// Store is the slice of persistence the XP service needs. ApplyGain is
// responsible for making the cooldown check and increment atomic per
// (guild, user); two near-simultaneous messages must not both gain.
type Store interface {
	ApplyGain(ctx context.Context, guildID, userID string, now time.Time, cooldown time.Duration, gain int) (gained int, total int, err error)
	XPTotal(ctx context.Context, guildID, userID string) (int, error)
	CountXPGreater(ctx context.Context, guildID string, threshold int) (int, error)
	CountXPUsers(ctx context.Context, guildID string) (int, error)
}

// Award reports the outcome of one message-XP attempt.
type Award struct {
	Gained    int
	Total     int
	LeveledUp bool
	Level     int
	InLevel   int
	ToNext    int
}

// Rank is a user's 1-based leaderboard position within a guild.
type Rank struct {
	Position   int
	TotalUsers int
	UserTotal  int
}

type Service struct {
	store Store

	randMu sync.Mutex
	rand   *rand.Rand
}

// NewService builds an XP service around the given store and random
// source. Tests pass a seeded source for deterministic gains.
func NewService(store Store, src rand.Source) *Service {
	return &Service{store: store, rand: rand.New(src)}
}

// AwardMessage grants message XP if the user's cooldown has elapsed.
// The gain is a uniform integer in [15, 25]; the store decides
// eligibility atomically and reports the applied gain and new total.
func (s *Service) AwardMessage(ctx context.Context, guildID, userID string, now time.Time) (Award, error) {
	s.randMu.Lock()
	gain := gainMin + s.rand.Intn(gainMax-gainMin+1)
	s.randMu.Unlock()

	gained, total, err := s.store.ApplyGain(ctx, guildID, userID, now, CooldownSeconds*time.Second, gain)
	if err != nil {
		return Award{}, err
	}

	beforeLevel, _, _ := LevelFromTotal(total - gained)
	level, inLevel, toNext := LevelFromTotal(total)
	return Award{
		Gained:    gained,
		Total:     total,
		LeveledUp: level > beforeLevel,
		Level:     level,
		InLevel:   inLevel,
		ToNext:    toNext,
	}, nil
}

// Rank computes the user's 1-based rank by counting users with a
// strictly greater total, so equal totals share the same rank number.
func (s *Service) Rank(ctx context.Context, guildID, userID string) (Rank, error) {
	total, err := s.store.XPTotal(ctx, guildID, userID)
	if err != nil {
		return Rank{}, err
	}
	higher, err := s.store.CountXPGreater(ctx, guildID, total)
	if err != nil {
		return Rank{}, err
	}
	users, err := s.store.CountXPUsers(ctx, guildID)
	if err != nil {
		return Rank{}, err
	}
	return Rank{Position: higher + 1, TotalUsers: users, UserTotal: total}, nil
}
