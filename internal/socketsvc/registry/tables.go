package registry

import (
	"sort"
	"sync"
)

// Tables holds the occupancy flag of every table referenced so far.
// Entries are created lazily and never removed; unknown ids read as inactive.
type Tables struct {
	mu     sync.RWMutex
	status map[int]bool
}

func NewTables() *Tables {
	return &Tables{status: make(map[int]bool)}
}

func (t *Tables) SetActive(tableID int, isActive bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status[tableID] = isActive
}

func (t *Tables) IsActive(tableID int) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status[tableID]
}

// ActiveTableIDs returns a sorted snapshot of the tables currently flagged active.
func (t *Tables) ActiveTableIDs() []int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := make([]int, 0, len(t.status))
	for id, active := range t.status {
		if active {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}
