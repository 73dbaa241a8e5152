package storage

import (
	"context"
	"testing"
	"time"
)

func TestApplyGainCooldown(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	gained, total, err := store.ApplyGain(ctx, "g1", "u1", now, 60*time.Second, 20)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if gained != 20 || total != 20 {
		t.Fatalf("first gain = (%d,%d), want (20,20)", gained, total)
	}

	gained, total, err = store.ApplyGain(ctx, "g1", "u1", now.Add(10*time.Second), 60*time.Second, 18)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if gained != 0 || total != 20 {
		t.Fatalf("cooldown gain = (%d,%d), want (0,20)", gained, total)
	}

	gained, total, err = store.ApplyGain(ctx, "g1", "u1", now.Add(61*time.Second), 60*time.Second, 15)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if gained != 15 || total != 35 {
		t.Fatalf("post-cooldown gain = (%d,%d), want (15,35)", gained, total)
	}
}

func TestApplyGainCreatesZeroRow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// cooldown of zero never blocks, so force ineligibility by a
	// prior gain with a long cooldown, then verify the row exists.
	if _, _, err := store.ApplyGain(ctx, "g1", "u1", time.Now(), time.Hour, 10); err != nil {
		t.Fatalf("apply: %v", err)
	}
	users, err := store.CountXPUsers(ctx, "g1")
	if err != nil || users != 1 {
		t.Fatalf("users = %d err=%v", users, err)
	}
}

func TestXPRankQueries(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	if _, _, err := store.ApplyGain(ctx, "g1", "a", now, 0, 300); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, _, err := store.ApplyGain(ctx, "g1", "b", now, 0, 300); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, _, err := store.ApplyGain(ctx, "g1", "c", now, 0, 100); err != nil {
		t.Fatalf("apply: %v", err)
	}

	higher, err := store.CountXPGreater(ctx, "g1", 300)
	if err != nil || higher != 0 {
		t.Fatalf("greater than 300 = %d err=%v", higher, err)
	}
	higher, err = store.CountXPGreater(ctx, "g1", 100)
	if err != nil || higher != 2 {
		t.Fatalf("greater than 100 = %d err=%v", higher, err)
	}

	top, err := store.TopXP(ctx, "g1", 2)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 2 || top[0].XP != 300 || top[1].XP != 300 {
		t.Fatalf("unexpected top: %+v", top)
	}

	total, err := store.XPTotal(ctx, "g1", "missing")
	if err != nil || total != 0 {
		t.Fatalf("missing user total = %d err=%v", total, err)
	}
}
