package spam

import (
	"sync"
	"time"
)

// maxEntries bounds each per-user ring independently of the window, so
// a pathological flood cannot grow the slice without limit.
const maxEntries = 50

type window struct {
	mu   sync.Mutex
	hits []time.Time
}

// Tracker keeps one rolling timestamp window per (guild, user) pair.
// State lives only in process memory; spam detection is a short-horizon
// heuristic and restarting the process simply forgets recent bursts.
type Tracker struct {
	mu      sync.Mutex
	windows map[string]*window
}

func NewTracker() *Tracker {
	return &Tracker{windows: make(map[string]*window)}
}

// RecordAndCheck appends now to the pair's window, evicts timestamps
// older than the window size, and reports whether the remaining count
// reached the threshold. Every call mutates state: a user who keeps
// flooding after a first hit keeps registering hits until enough time
// passes for eviction to drop the count back below the threshold.
func (t *Tracker) RecordAndCheck(guildID, userID string, now time.Time, windowSec, threshold int) bool {
	w := t.getWindow(guildID + ":" + userID)

	w.mu.Lock()
	defer w.mu.Unlock()

	w.hits = append(w.hits, now)
	if len(w.hits) > maxEntries {
		w.hits = w.hits[len(w.hits)-maxEntries:]
	}

	// only hits strictly older than the cutoff leave; a hit exactly
	// windowSec old still counts toward the threshold
	cutoff := now.Add(-time.Duration(windowSec) * time.Second)
	idx := 0
	for _, hit := range w.hits {
		if !hit.Before(cutoff) {
			break
		}
		idx++
	}
	w.hits = w.hits[idx:]

	return len(w.hits) >= threshold
}

// Reset drops the window for a pair, if any.
func (t *Tracker) Reset(guildID, userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.windows, guildID+":"+userID)
}

func (t *Tracker) getWindow(key string) *window {
	t.mu.Lock()
	defer t.mu.Unlock()
	w := t.windows[key]
	if w == nil {
		w = &window{}
		t.windows[key] = w
	}
	return w
}
