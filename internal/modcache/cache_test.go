package modcache

import (
	"context"
	"sync"
	"testing"

	"guildwarden/internal/storage"

	"go.uber.org/zap"
)

type fakeLoader struct {
	mu      sync.Mutex
	loads   int
	setting storage.ModerationSetting
	words   []storage.BannedWord
	roles   []string
}

func (f *fakeLoader) GetModerationSetting(_ context.Context, guildID string) (storage.ModerationSetting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	s := f.setting
	s.GuildID = guildID
	return s, nil
}

func (f *fakeLoader) ListBannedWords(context.Context, string) ([]storage.BannedWord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.words, nil
}

func (f *fakeLoader) ListBypassRoleIDs(context.Context, string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.roles, nil
}

func TestGetOrLoadCaches(t *testing.T) {
	loader := &fakeLoader{
		setting: storage.ModerationSetting{Enabled: true, Action: storage.ActionWarn},
		words:   []storage.BannedWord{{Word: "바보"}, {Word: "!!!"}},
		roles:   []string{"r1"},
	}
	cache := New(loader, zap.NewNop())
	ctx := context.Background()

	snap, err := cache.GetOrLoad(ctx, "g1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !snap.Enabled || len(snap.Matchers) != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if !snap.HasBypassRole([]string{"r0", "r1"}) {
		t.Fatalf("bypass role not recognized")
	}
	if snap.HasBypassRole([]string{"r9"}) {
		t.Fatalf("unexpected bypass role match")
	}

	again, err := cache.GetOrLoad(ctx, "g1")
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if again != snap {
		t.Fatalf("expected cache hit to return same snapshot")
	}
	if loader.loads != 1 {
		t.Fatalf("expected 1 store load, got %d", loader.loads)
	}
}

func TestInvalidateForcesReload(t *testing.T) {
	loader := &fakeLoader{setting: storage.ModerationSetting{Enabled: true}}
	cache := New(loader, zap.NewNop())
	ctx := context.Background()

	first, _ := cache.GetOrLoad(ctx, "g1")

	loader.mu.Lock()
	loader.words = []storage.BannedWord{{Word: "멍청이"}}
	loader.mu.Unlock()

	cache.Invalidate("g1")
	second, err := cache.GetOrLoad(ctx, "g1")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if second == first {
		t.Fatalf("invalidate did not drop snapshot")
	}
	if len(second.Matchers) != 1 {
		t.Fatalf("new words not compiled: %+v", second)
	}
}

func TestReloadSwapsWholesale(t *testing.T) {
	loader := &fakeLoader{setting: storage.ModerationSetting{Enabled: true, Action: storage.ActionWarn}}
	cache := New(loader, zap.NewNop())
	ctx := context.Background()

	if _, err := cache.GetOrLoad(ctx, "g1"); err != nil {
		t.Fatalf("load: %v", err)
	}

	loader.mu.Lock()
	loader.setting = storage.ModerationSetting{Enabled: false, Action: storage.ActionDelete}
	loader.words = []storage.BannedWord{{Word: "바보"}}
	loader.mu.Unlock()

	snap, err := cache.Reload(ctx, "g1")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if snap.Enabled || snap.Action != storage.ActionDelete || len(snap.Matchers) != 1 {
		t.Fatalf("reload did not reflect all source tables: %+v", snap)
	}
}

func TestConcurrentFirstLoad(t *testing.T) {
	loader := &fakeLoader{setting: storage.ModerationSetting{Enabled: true}}
	cache := New(loader, zap.NewNop())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.GetOrLoad(ctx, "g1"); err != nil {
				t.Errorf("load: %v", err)
			}
		}()
	}
	wg.Wait()

	if loader.loads != 1 {
		t.Fatalf("concurrent first loads did not collapse: %d loads", loader.loads)
	}
}
