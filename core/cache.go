package core

import (
	"sort"
	"sync"
	"time"

	"github.com/evcc-io/cdrive/api"
	"github.com/evcc-io/cdrive/util/tree"
)

// Snapshot is the projected state of a vehicle as of its last successful fetch
type Snapshot struct {
	VIN       string
	AccountID string
	Vehicle   api.VehicleRef
	Status    tree.Mapping
	States    []api.State
	Updated   time.Time
}

// Cache is the vehicle snapshot store
type Cache struct {
	mu  sync.RWMutex
	val map[string]Snapshot
}

// NewCache creates cache
func NewCache() *Cache {
	return &Cache{
		val: make(map[string]Snapshot),
	}
}

// Put replaces the snapshot of a vehicle
func (c *Cache) Put(s Snapshot) {
	states := make([]api.State, len(s.States))
	copy(states, s.States)
	s.States = states

	c.mu.Lock()
	defer c.mu.Unlock()

	c.val[s.VIN] = s
}

// Get returns the snapshot of a vehicle
func (c *Cache) Get(vin string) (Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.val[vin]
	return s, ok
}

// List provides a copy of all snapshots ordered by VIN
func (c *Cache) List() []Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	res := make([]Snapshot, 0, len(c.val))
	for _, s := range c.val {
		res = append(res, s)
	}

	sort.Slice(res, func(i, j int) bool {
		return res[i].VIN < res[j].VIN
	})

	return res
}

// Remove drops all snapshots owned by an account
func (c *Cache) Remove(account string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for vin, s := range c.val {
		if s.AccountID == account {
			delete(c.val, vin)
		}
	}
}
