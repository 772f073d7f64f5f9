package dogs

import (
	"context"
	"fmt"
	"sync"

	"github.com/vyrodovalexey/doglist-api/internal/model"
	"github.com/vyrodovalexey/doglist-api/internal/store"
)

// Snapshot is a full, immutable view of the collection at one version.
// Dogs is shared between readers and must not be modified.
type Snapshot struct {
	Version uint64
	Dogs    []model.Dog
}

// Collection caches the persistence provider's rows and publishes every new
// full snapshot to its observers. It performs no filtering or validation.
type Collection struct {
	store store.Store

	// refreshMu serialises reloads so versions are published in order.
	refreshMu sync.Mutex

	mu      sync.RWMutex
	snap    Snapshot
	subs    map[uint64]chan Snapshot
	nextSub uint64
}

// NewCollection creates an empty Collection over s. Call Refresh to load it.
func NewCollection(s store.Store) *Collection {
	return &Collection{
		store: s,
		snap:  Snapshot{Dogs: []model.Dog{}},
		subs:  make(map[uint64]chan Snapshot),
	}
}

// Refresh reloads the full collection from the store, swaps it in and
// publishes it. On error the previous snapshot stays in place.
func (c *Collection) Refresh(ctx context.Context) (Snapshot, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	dogs, err := c.store.List(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("refresh collection: %w", err)
	}
	if dogs == nil {
		dogs = []model.Dog{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.snap = Snapshot{Version: c.snap.Version + 1, Dogs: dogs}
	for _, ch := range c.subs {
		offer(ch, c.snap)
	}

	stats := Stats(dogs)
	dogsTotal.Set(float64(stats.Total))
	favoritesTotal.Set(float64(stats.Favorites))

	return c.snap, nil
}

// Snapshot returns the current snapshot.
func (c *Collection) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// Subscribe registers an observer. The returned channel immediately holds
// the current snapshot and afterwards always holds the latest one: a slow
// reader skips versions but never sees them out of order. The cancel func
// unregisters the observer and closes the channel.
func (c *Collection) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.snap
	c.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			close(ch)
			c.mu.Unlock()
		})
	}

	return ch, cancel
}

// Subscribers returns the number of registered observers.
func (c *Collection) Subscribers() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subs)
}

// offer replaces whatever is buffered in ch with snap. Only the publisher
// sends, under c.mu, so the second send cannot block.
func offer(ch chan Snapshot, snap Snapshot) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}

// hasName reports whether the current snapshot has a dog with the given
// name, ignoring case.
func (c *Collection) hasName(name string) bool {
	key := model.NameKey(name)

	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, dog := range c.snap.Dogs {
		if model.NameKey(dog.Name) == key {
			return true
		}
	}
	return false
}

// find returns the dog with id from the current snapshot.
func (c *Collection) find(id int64) (model.Dog, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, dog := range c.snap.Dogs {
		if dog.ID == id {
			return dog, true
		}
	}
	return model.Dog{}, false
}
