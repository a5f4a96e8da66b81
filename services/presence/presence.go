package presence

import (
	"sort"
	"strings"
	"sync"
)

// Tracker is the set of players currently known to be in the housing world.
// It is transient state: rebuilt from the live player list on every
// (re)connect and updated incrementally from join/leave signals.
type Tracker struct {
	mu      sync.RWMutex
	players map[string]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{players: make(map[string]struct{})}
}

func (t *Tracker) Add(name string) {
	if name == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.players[name] = struct{}{}
}

func (t *Tracker) Remove(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.players, name)
}

// Rebuild replaces the whole set with the transport's live player list.
func (t *Tracker) Rebuild(names []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.players = make(map[string]struct{}, len(names))
	for _, name := range names {
		if name != "" {
			t.players[name] = struct{}{}
		}
	}
}

func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.players = make(map[string]struct{})
}

func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.players)
}

// Sorted returns the current players sorted alphabetically,
// case-insensitively.
func (t *Tracker) Sorted() []string {
	t.mu.RLock()
	names := make([]string, 0, len(t.players))
	for name := range t.players {
		names = append(names, name)
	}
	t.mu.RUnlock()

	sort.Slice(names, func(i, j int) bool {
		li, lj := strings.ToLower(names[i]), strings.ToLower(names[j])
		if li == lj {
			return names[i] < names[j]
		}
		return li < lj
	})
	return names
}
