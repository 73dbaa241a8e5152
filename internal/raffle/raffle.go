package raffle

import (
	"math/rand"
	"sync"
)

// Entrant is one candidate with a ticket count. Zero or negative
// weights never win.
type Entrant struct {
	UserID string
	Weight int
}

// Drawer picks raffle winners weighted by ticket count, without
// replacement. The randomness source is injected so draws can be
// deterministic under test.
type Drawer struct {
	mu   sync.Mutex
	rand *rand.Rand
}

func NewDrawer(src rand.Source) *Drawer {
	return &Drawer{rand: rand.New(src)}
}

// Draw returns up to n distinct winners. Each pick is proportional to
// remaining weight; a winner's tickets leave the pool. The entrants
// slice is not modified.
func (d *Drawer) Draw(entrants []Entrant, n int) []string {
	pool := make([]Entrant, 0, len(entrants))
	total := 0
	for _, e := range entrants {
		if e.Weight > 0 {
			pool = append(pool, e)
			total += e.Weight
		}
	}
	if n > len(pool) {
		n = len(pool)
	}
	if n <= 0 {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	winners := make([]string, 0, n)
	for len(winners) < n {
		pick := d.rand.Intn(total)
		for i, e := range pool {
			pick -= e.Weight
			if pick < 0 {
				winners = append(winners, e.UserID)
				total -= e.Weight
				pool[i] = pool[len(pool)-1]
				pool = pool[:len(pool)-1]
				break
			}
		}
	}
	return winners
}
