package storage

import (
	"context"
	"testing"
)

func boolPtr(v bool) *bool    { return &v }
func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func TestSecuritySettingsDefaults(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	settings, err := store.GetSecuritySettings(ctx, "g1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !settings.BlockEveryone || !settings.BlockInvites || !settings.BlockSpam {
		t.Fatalf("block flags should default on: %+v", settings)
	}
	if settings.SpamWindowSec != 7 || settings.SpamThreshold != 5 {
		t.Fatalf("unexpected spam defaults: %+v", settings)
	}
}

func TestSecuritySettingsUpdateAndClamp(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	updated, err := store.UpdateSecuritySettings(ctx, "g1", SecurityUpdate{
		LogChannelID:  strPtr("c9"),
		BlockInvites:  boolPtr(false),
		SpamWindowSec: intPtr(500),
		SpamThreshold: intPtr(1),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.LogChannelID != "c9" || updated.BlockInvites {
		t.Fatalf("named fields not applied: %+v", updated)
	}
	if updated.SpamWindowSec != SpamWindowMax || updated.SpamThreshold != SpamThresholdMin {
		t.Fatalf("clamping not applied: %+v", updated)
	}
	if !updated.BlockEveryone {
		t.Fatalf("untouched field changed: %+v", updated)
	}

	got, err := store.GetSecuritySettings(ctx, "g1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != updated {
		t.Fatalf("persisted settings differ: %+v != %+v", got, updated)
	}
}

func TestSecurityTimeoutsDefaults(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	timeouts, err := store.GetSecurityTimeouts(ctx, "g1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if timeouts.EveryoneMin != 10 || timeouts.InviteMin != 30 || timeouts.SpamMin != 15 {
		t.Fatalf("unexpected defaults: %+v", timeouts)
	}

	updated, err := store.UpdateSecurityTimeouts(ctx, "g1", TimeoutUpdate{SpamMin: intPtr(45)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.SpamMin != 45 || updated.EveryoneMin != 10 {
		t.Fatalf("partial update wrong: %+v", updated)
	}
}

func TestWhitelist(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if added, _ := store.AddWhitelistUser(ctx, "g1", "u1"); !added {
		t.Fatalf("add user failed")
	}
	if added, _ := store.AddWhitelistRole(ctx, "g1", "r1"); !added {
		t.Fatalf("add role failed")
	}
	if added, _ := store.AddWhitelistChannel(ctx, "g1", "c1"); !added {
		t.Fatalf("add channel failed")
	}

	cases := []struct {
		name     string
		userID   string
		roles    []string
		chanID   string
		expected bool
	}{
		{"user match", "u1", nil, "cX", true},
		{"role match", "uX", []string{"r0", "r1"}, "cX", true},
		{"channel match", "uX", nil, "c1", true},
		{"no match", "uX", []string{"r9"}, "cX", false},
	}
	for _, tc := range cases {
		ok, err := store.IsWhitelisted(ctx, "g1", tc.userID, tc.roles, tc.chanID)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if ok != tc.expected {
			t.Fatalf("%s: got %v, want %v", tc.name, ok, tc.expected)
		}
	}

	users, roles, channels, err := store.WhitelistLists(ctx, "g1")
	if err != nil {
		t.Fatalf("lists: %v", err)
	}
	if len(users) != 1 || len(roles) != 1 || len(channels) != 1 {
		t.Fatalf("unexpected lists: %v %v %v", users, roles, channels)
	}
}
