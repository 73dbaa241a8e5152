package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"guildwarden/internal/modcache"
	"guildwarden/internal/spam"
	"guildwarden/internal/storage"
	"guildwarden/internal/wordmatch"

	"go.uber.org/zap"
)

type fakeStore struct {
	whitelisted  bool
	whitelistErr error
	settings     storage.SecuritySettings
	timeouts     storage.SecurityTimeouts
}

func (f *fakeStore) IsWhitelisted(_ context.Context, _, _ string, _ []string, _ string) (bool, error) {
	return f.whitelisted, f.whitelistErr
}

func (f *fakeStore) GetSecuritySettings(_ context.Context, _ string) (storage.SecuritySettings, error) {
	return f.settings, nil
}

func (f *fakeStore) GetSecurityTimeouts(_ context.Context, _ string) (storage.SecurityTimeouts, error) {
	return f.timeouts, nil
}

type fakeCache struct {
	snap *modcache.Snapshot
	err  error
}

func (f *fakeCache) GetOrLoad(_ context.Context, _ string) (*modcache.Snapshot, error) {
	return f.snap, f.err
}

type fakeResolver struct {
	guildID string
	err     error
}

func (f *fakeResolver) ResolveInviteGuild(_ context.Context, _ string) (string, error) {
	return f.guildID, f.err
}

func defaultSettings() storage.SecuritySettings {
	return storage.SecuritySettings{
		GuildID:       "g1",
		BlockEveryone: true,
		BlockInvites:  true,
		BlockSpam:     true,
		SpamWindowSec: 7,
		SpamThreshold: 5,
	}
}

func defaultTimeouts() storage.SecurityTimeouts {
	return storage.SecurityTimeouts{GuildID: "g1", EveryoneMin: 10, InviteMin: 30, SpamMin: 15}
}

func emptySnapshot() *modcache.Snapshot {
	return &modcache.Snapshot{Words: map[string]struct{}{}, BypassRoles: map[string]struct{}{}}
}

func newTestEngine(store Store, cache SnapshotSource, resolver InviteResolver) *Engine {
	return New(store, cache, spam.NewTracker(), resolver, zap.NewNop())
}

func baseMessage(content string) Message {
	return Message{
		GuildID:   "g1",
		ChannelID: "c1",
		MessageID: "m1",
		AuthorID:  "u1",
		Content:   content,
		Timestamp: time.Unix(1000, 0),
	}
}

func TestEvaluateSkipsBots(t *testing.T) {
	e := newTestEngine(&fakeStore{settings: defaultSettings()}, &fakeCache{snap: emptySnapshot()}, &fakeResolver{})

	msg := baseMessage("@everyone")
	msg.AuthorBot = true
	res := e.Evaluate(context.Background(), msg)
	if res.Verdict != VerdictSkip {
		t.Fatalf("verdict = %v, want skip", res.Verdict)
	}

	msg = baseMessage("@everyone")
	msg.GuildID = ""
	if got := e.Evaluate(context.Background(), msg).Verdict; got != VerdictSkip {
		t.Fatalf("dm verdict = %v, want skip", got)
	}
}

func TestEvaluateMentionOutranksInvite(t *testing.T) {
	store := &fakeStore{settings: defaultSettings(), timeouts: defaultTimeouts()}
	e := newTestEngine(store, &fakeCache{snap: emptySnapshot()}, &fakeResolver{guildID: "other"})

	res := e.Evaluate(context.Background(), baseMessage("@everyone https://discord.gg/abc"))
	if res.Verdict != VerdictBlockMention {
		t.Fatalf("verdict = %v, want block_mention", res.Verdict)
	}
	if !res.Effects.DeleteMessage {
		t.Fatal("expected delete request")
	}
	if res.Effects.TimeoutMinutes != 10 {
		t.Fatalf("timeout = %d, want 10", res.Effects.TimeoutMinutes)
	}
	if res.Effects.CounterKey != storage.EventBlockedEveryone {
		t.Fatalf("counter = %q, want %q", res.Effects.CounterKey, storage.EventBlockedEveryone)
	}
}

func TestEvaluateWhitelistSkipsSecurityChecks(t *testing.T) {
	store := &fakeStore{whitelisted: true, settings: defaultSettings(), timeouts: defaultTimeouts()}
	e := newTestEngine(store, &fakeCache{snap: emptySnapshot()}, &fakeResolver{guildID: "other"})

	res := e.Evaluate(context.Background(), baseMessage("@everyone https://discord.gg/abc"))
	if res.Verdict != VerdictAllow {
		t.Fatalf("verdict = %v, want allow", res.Verdict)
	}
	if res.Effects != (Effects{}) {
		t.Fatalf("expected no effects, got %+v", res.Effects)
	}
}

func TestEvaluateInvite(t *testing.T) {
	cases := []struct {
		name     string
		resolver *fakeResolver
		want     Verdict
	}{
		{"foreign guild blocked", &fakeResolver{guildID: "other"}, VerdictBlockInvite},
		{"same guild allowed", &fakeResolver{guildID: "g1"}, VerdictAllow},
		{"unresolvable blocked", &fakeResolver{err: errors.New("unknown invite")}, VerdictBlockInvite},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeStore{settings: defaultSettings(), timeouts: defaultTimeouts()}
			e := newTestEngine(store, &fakeCache{snap: emptySnapshot()}, tc.resolver)

			res := e.Evaluate(context.Background(), baseMessage("join https://discord.gg/abc"))
			if res.Verdict != tc.want {
				t.Fatalf("verdict = %v, want %v", res.Verdict, tc.want)
			}
			if tc.want == VerdictBlockInvite && res.Effects.TimeoutMinutes != 30 {
				t.Fatalf("timeout = %d, want 30", res.Effects.TimeoutMinutes)
			}
		})
	}
}

func TestEvaluateSpamFiresAtThreshold(t *testing.T) {
	settings := defaultSettings()
	settings.SpamThreshold = 3
	store := &fakeStore{settings: settings, timeouts: defaultTimeouts()}
	e := newTestEngine(store, &fakeCache{snap: emptySnapshot()}, &fakeResolver{})

	base := time.Unix(1000, 0)
	for i := 0; i < 2; i++ {
		msg := baseMessage("hello")
		msg.Timestamp = base.Add(time.Duration(i) * time.Second)
		if got := e.Evaluate(context.Background(), msg).Verdict; got != VerdictAllow {
			t.Fatalf("message %d verdict = %v, want allow", i, got)
		}
	}
	msg := baseMessage("hello")
	msg.Timestamp = base.Add(2 * time.Second)
	res := e.Evaluate(context.Background(), msg)
	if res.Verdict != VerdictBlockSpam {
		t.Fatalf("verdict = %v, want block_spam", res.Verdict)
	}
	if res.Effects.TimeoutMinutes != 15 {
		t.Fatalf("timeout = %d, want 15", res.Effects.TimeoutMinutes)
	}
	if res.Effects.CounterKey != storage.EventBlockedSpam {
		t.Fatalf("counter = %q", res.Effects.CounterKey)
	}
}

func profanitySnapshot(action storage.ModerationAction, bypassRoles []string, words ...string) *modcache.Snapshot {
	snap := &modcache.Snapshot{
		Enabled:     true,
		Action:      action,
		Words:       map[string]struct{}{},
		Matchers:    wordmatch.Compile(words),
		BypassRoles: map[string]struct{}{},
	}
	for _, w := range words {
		snap.Words[w] = struct{}{}
	}
	for _, r := range bypassRoles {
		snap.BypassRoles[r] = struct{}{}
	}
	return snap
}

func TestEvaluateProfanityWarn(t *testing.T) {
	snap := profanitySnapshot(storage.ActionWarn, nil, "바보")
	store := &fakeStore{settings: storage.SecuritySettings{GuildID: "g1"}}
	e := newTestEngine(store, &fakeCache{snap: snap}, &fakeResolver{})

	res := e.Evaluate(context.Background(), baseMessage("너 바 보 야"))
	if res.Verdict != VerdictWarn {
		t.Fatalf("verdict = %v, want warn", res.Verdict)
	}
	if res.Effects.DeleteMessage {
		t.Fatal("warn must not delete")
	}
	if !strings.Contains(res.Effects.ReplyText, "바보") {
		t.Fatalf("reply %q missing detected term", res.Effects.ReplyText)
	}
	if !strings.Contains(res.Effects.NotifyText, "https://discord.com/channels/g1/c1/m1") {
		t.Fatalf("notify %q missing jump link", res.Effects.NotifyText)
	}
	if res.Effects.CounterKey != storage.EventProfanityWarn {
		t.Fatalf("counter = %q", res.Effects.CounterKey)
	}
}

func TestEvaluateProfanityDelete(t *testing.T) {
	snap := profanitySnapshot(storage.ActionDelete, nil, "badword")
	store := &fakeStore{settings: storage.SecuritySettings{GuildID: "g1"}}
	e := newTestEngine(store, &fakeCache{snap: snap}, &fakeResolver{})

	res := e.Evaluate(context.Background(), baseMessage("such a badword here"))
	if res.Verdict != VerdictWarnAndDelete {
		t.Fatalf("verdict = %v, want warn_and_delete", res.Verdict)
	}
	if !res.Effects.DeleteMessage {
		t.Fatal("delete action must request delete")
	}
	if res.Effects.NoticeText == "" {
		t.Fatal("expected transient notice")
	}
	if res.Effects.CounterKey != storage.EventProfanityDelete {
		t.Fatalf("counter = %q", res.Effects.CounterKey)
	}
}

func TestEvaluateProfanityBypassRole(t *testing.T) {
	snap := profanitySnapshot(storage.ActionDelete, []string{"r9"}, "badword")
	store := &fakeStore{settings: storage.SecuritySettings{GuildID: "g1"}}
	e := newTestEngine(store, &fakeCache{snap: snap}, &fakeResolver{})

	msg := baseMessage("such a badword here")
	msg.AuthorRoleIDs = []string{"r9"}
	if got := e.Evaluate(context.Background(), msg).Verdict; got != VerdictAllow {
		t.Fatalf("verdict = %v, want allow for bypass role", got)
	}
}

func TestEvaluateStoreFailureDegradesToAllow(t *testing.T) {
	store := &fakeStore{whitelistErr: errors.New("db closed"), settings: storage.SecuritySettings{GuildID: "g1"}}
	e := newTestEngine(store, &fakeCache{err: errors.New("db closed")}, &fakeResolver{})

	res := e.Evaluate(context.Background(), baseMessage("hello"))
	if res.Verdict != VerdictAllow {
		t.Fatalf("verdict = %v, want allow", res.Verdict)
	}
}
