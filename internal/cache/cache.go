// Package cache holds the in-memory canonical copy of each watched
// collection. It performs no I/O: the subscription layer replaces whole
// collections from authoritative snapshots, and the mutation pipeline applies
// targeted patches after successful writes.
package cache

import (
	"sync"

	"github.com/campushub/backend/internal/domain"
)

// Entity is anything keyed by a stable id within its collection.
type Entity interface {
	EntityID() string
}

// Collection is an ordered id-to-record mapping. When an incoming batch
// repeats an id, the first occurrence wins, matching the ordering dedup the
// subscription layer applies.
type Collection[T Entity] struct {
	mu       sync.Mutex
	index    map[string]int
	items    []T
	onChange func()
}

func newCollection[T Entity](onChange func()) *Collection[T] {
	return &Collection[T]{index: map[string]int{}, onChange: onChange}
}

// Replace swaps the collection's contents for the batch wholesale. Used for
// subscription snapshots, which always carry the complete matching set.
func (c *Collection[T]) Replace(items []T) {
	c.mu.Lock()
	c.index = make(map[string]int, len(items))
	c.items = c.items[:0]
	for _, item := range items {
		if _, dup := c.index[item.EntityID()]; dup {
			continue
		}
		c.index[item.EntityID()] = len(c.items)
		c.items = append(c.items, item)
	}
	c.mu.Unlock()
	c.notify()
}

// UpsertMany merges a batch, overwriting entries with identical ids and
// preserving entries not present in the batch.
func (c *Collection[T]) UpsertMany(items []T) {
	c.mu.Lock()
	seen := map[string]bool{}
	for _, item := range items {
		id := item.EntityID()
		if seen[id] {
			continue
		}
		seen[id] = true
		if i, ok := c.index[id]; ok {
			c.items[i] = item
		} else {
			c.index[id] = len(c.items)
			c.items = append(c.items, item)
		}
	}
	c.mu.Unlock()
	c.notify()
}

func (c *Collection[T]) Upsert(item T) {
	c.UpsertMany([]T{item})
}

func (c *Collection[T]) Remove(id string) {
	c.mu.Lock()
	i, ok := c.index[id]
	if !ok {
		c.mu.Unlock()
		return
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	delete(c.index, id)
	for j := i; j < len(c.items); j++ {
		c.index[c.items[j].EntityID()] = j
	}
	c.mu.Unlock()
	c.notify()
}

// Patch applies a pure transform to one entry; a no-op if the id is absent.
// Used for optimistic local reflection after a successful remote write.
func (c *Collection[T]) Patch(id string, fn func(T) T) bool {
	c.mu.Lock()
	i, ok := c.index[id]
	if !ok {
		c.mu.Unlock()
		return false
	}
	c.items[i] = fn(c.items[i])
	c.mu.Unlock()
	c.notify()
	return true
}

func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	i, ok := c.index[id]
	if !ok {
		return zero, false
	}
	return c.items[i], true
}

// Items returns a copy of the collection in order.
func (c *Collection[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.items...)
}

func (c *Collection[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Collection[T]) notify() {
	if c.onChange != nil {
		c.onChange()
	}
}

// Change announces that a collection's contents moved; subscribers re-read
// from the cache rather than diffing payloads.
type Change struct {
	Collection string `json:"collection"`
}

// Cache is the full local state: one collection per entity type plus a change
// broadcast for live consumers.
type Cache struct {
	Articles      *Collection[domain.Article]
	Events        *Collection[domain.Event]
	Projects      *Collection[domain.Project]
	Users         *Collection[domain.UserProfile]
	Notifications *Collection[domain.Notification]

	mu      sync.Mutex
	subs    map[int]chan Change
	nextSub int
}

func New() *Cache {
	c := &Cache{subs: map[int]chan Change{}}
	c.Articles = newCollection[domain.Article](func() { c.broadcast(domain.CollectionArticles) })
	c.Events = newCollection[domain.Event](func() { c.broadcast(domain.CollectionEvents) })
	c.Projects = newCollection[domain.Project](func() { c.broadcast(domain.CollectionProjects) })
	c.Users = newCollection[domain.UserProfile](func() { c.broadcast(domain.CollectionUsers) })
	c.Notifications = newCollection[domain.Notification](func() { c.broadcast(domain.CollectionNotifications) })
	return c
}

// Subscribe returns a change channel and its cancel func. Slow consumers drop
// notifications rather than blocking writers; a dropped Change is harmless
// because consumers re-read the whole collection.
func (c *Cache) Subscribe() (<-chan Change, func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	ch := make(chan Change, 16)
	c.subs[id] = ch
	c.mu.Unlock()

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
}

// Subscribers reports how many change subscriptions are active.
func (c *Cache) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

func (c *Cache) broadcast(collection string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- Change{Collection: collection}:
		default:
		}
	}
}
