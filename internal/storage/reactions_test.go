package storage

import (
	"context"
	"testing"
)

func TestReactionIncrementAndClamp(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := store.IncrementReaction(ctx, "g1", "u1", 1); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}
	if err := store.IncrementReaction(ctx, "g1", "u1", -1); err != nil {
		t.Fatalf("decrement: %v", err)
	}

	total, err := store.ReactionTotal(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	if total != 2 {
		t.Fatalf("total = %d, want 2", total)
	}

	today, err := store.ReactionSumSince(ctx, "g1", "u1", 1)
	if err != nil {
		t.Fatalf("sum since: %v", err)
	}
	if today != 2 {
		t.Fatalf("today = %d, want 2", today)
	}

	// removals never push a tally below zero
	if err := store.IncrementReaction(ctx, "g1", "u2", -5); err != nil {
		t.Fatalf("decrement fresh user: %v", err)
	}
	total, err = store.ReactionTotal(ctx, "g1", "u2")
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	if total != 0 {
		t.Fatalf("clamped total = %d, want 0", total)
	}
}

func TestReactionRank(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seed := map[string]int{"u1": 3, "u2": 5, "u3": 1}
	for user, n := range seed {
		if err := store.IncrementReaction(ctx, "g1", user, n); err != nil {
			t.Fatalf("seed %s: %v", user, err)
		}
	}
	if err := store.IncrementReaction(ctx, "g2", "outsider", 9); err != nil {
		t.Fatalf("seed other guild: %v", err)
	}

	entries, err := store.ReactionRank(ctx, "g1", 0)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[0].UserID != "u2" || entries[0].Count != 5 {
		t.Fatalf("top = %+v, want u2 with 5", entries[0])
	}
	if entries[2].UserID != "u3" {
		t.Fatalf("last = %+v, want u3", entries[2])
	}

	windowed, err := store.ReactionRank(ctx, "g1", 7)
	if err != nil {
		t.Fatalf("windowed rank: %v", err)
	}
	if len(windowed) != 3 || windowed[0].UserID != "u2" {
		t.Fatalf("windowed = %+v, want u2 first of 3", windowed)
	}
}

func TestMessageReactionRank(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.IncrementMessageReaction(ctx, "g1", "c1", "m1", "u1", 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := store.IncrementMessageReaction(ctx, "g1", "c1", "m1", "u2", 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := store.IncrementMessageReaction(ctx, "g1", "c1", "m1", "u2", 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	// u1 retracts; zero rows drop out of the rank
	if err := store.IncrementMessageReaction(ctx, "g1", "c1", "m1", "u1", -1); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := store.IncrementMessageReaction(ctx, "g1", "c1", "m2", "u3", 1); err != nil {
		t.Fatalf("other message: %v", err)
	}

	entries, err := store.MessageReactionRank(ctx, "g1", "m1")
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].UserID != "u2" || entries[0].Count != 2 {
		t.Fatalf("entry = %+v, want u2 with 2", entries[0])
	}
}
