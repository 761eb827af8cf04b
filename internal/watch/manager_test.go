package watch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/backend/internal/cache"
	"github.com/campushub/backend/internal/domain"
	"github.com/campushub/backend/internal/store"
)

// stubStore hands crafted snapshots to its listeners, so tests control
// exactly what one delivery contains (including duplicated ids).
type stubStore struct {
	store.DocumentStore
	listeners map[string]store.SnapshotFunc
	errFns    map[string]func(error)
	stopped   int
}

func newStubStore() *stubStore {
	return &stubStore{
		listeners: map[string]store.SnapshotFunc{},
		errFns:    map[string]func(error){},
	}
}

func (s *stubStore) Listen(ctx context.Context, q store.Query, fn store.SnapshotFunc, errFn func(error)) store.Handle {
	s.listeners[q.Collection] = fn
	s.errFns[q.Collection] = errFn
	return stubHandle{stopped: &s.stopped}
}

type stubHandle struct{ stopped *int }

func (h stubHandle) Stop() { *h.stopped++ }

func (s *stubStore) deliver(collection string, docs []store.Document) {
	s.listeners[collection](docs)
}

func TestManager_ArticleSnapshots(t *testing.T) {
	st := newStubStore()
	c := cache.New()
	m := NewManager(st, c)
	m.Start(context.Background())
	defer m.Stop()

	t.Run("single document lands in the cache", func(t *testing.T) {
		st.deliver(domain.CollectionArticles, []store.Document{
			{ID: "a1", Data: map[string]any{"description": "hi"}},
		})
		require.Equal(t, 1, c.Articles.Len())
		got, _ := c.Articles.Get("a1")
		assert.Equal(t, "hi", got.Description)
	})

	t.Run("duplicated ids keep the first occurrence", func(t *testing.T) {
		st.deliver(domain.CollectionArticles, []store.Document{
			{ID: "a1", Data: map[string]any{"description": "first"}},
			{ID: "a1", Data: map[string]any{"description": "second"}},
		})
		require.Equal(t, 1, c.Articles.Len())
		got, _ := c.Articles.Get("a1")
		assert.Equal(t, "first", got.Description)
	})

	t.Run("articles are sorted by post time descending", func(t *testing.T) {
		old := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
		newer := old.Add(time.Hour)
		st.deliver(domain.CollectionArticles, []store.Document{
			{ID: "old", Data: map[string]any{"actor": map[string]any{"date": old}}},
			{ID: "new", Data: map[string]any{"actor": map[string]any{"date": newer}}},
		})
		items := c.Articles.Items()
		require.Len(t, items, 2)
		assert.Equal(t, "new", items[0].ID)
		assert.Equal(t, "old", items[1].ID)
	})

	t.Run("snapshot replaces the collection wholesale", func(t *testing.T) {
		st.deliver(domain.CollectionArticles, []store.Document{
			{ID: "a9", Data: map[string]any{"description": "only"}},
		})
		require.Equal(t, 1, c.Articles.Len())
		_, ok := c.Articles.Get("a1")
		assert.False(t, ok)
	})
}

func TestManager_OtherCollections(t *testing.T) {
	st := newStubStore()
	c := cache.New()
	m := NewManager(st, c)
	m.Start(context.Background())
	defer m.Stop()

	st.deliver(domain.CollectionEvents, []store.Document{
		{ID: "e1", Data: map[string]any{"name": "hackathon"}},
	})
	st.deliver(domain.CollectionProjects, []store.Document{
		{ID: "p1", Data: map[string]any{"name": "robot"}},
	})
	st.deliver(domain.CollectionNotifications, []store.Document{
		{ID: "n1", Data: map[string]any{"text": "welcome"}},
	})

	e, ok := c.Events.Get("e1")
	require.True(t, ok)
	assert.Equal(t, "hackathon", e.Name)
	p, ok := c.Projects.Get("p1")
	require.True(t, ok)
	assert.Equal(t, "robot", p.Name)
	n, ok := c.Notifications.Get("n1")
	require.True(t, ok)
	assert.Equal(t, "welcome", n.Text)
}

func TestManager_Lifecycle(t *testing.T) {
	st := newStubStore()
	c := cache.New()
	m := NewManager(st, c)

	m.Start(context.Background())
	m.Start(context.Background()) // second start is a no-op
	require.Len(t, st.listeners, 4)

	m.Stop()
	assert.Equal(t, 4, st.stopped)
	m.Stop() // idempotent
	assert.Equal(t, 4, st.stopped)
}

func TestManager_ListenerErrorKeepsLastSnapshot(t *testing.T) {
	st := newStubStore()
	c := cache.New()
	m := NewManager(st, c)
	m.Start(context.Background())
	defer m.Stop()

	st.deliver(domain.CollectionEvents, []store.Document{
		{ID: "e1", Data: map[string]any{"name": "standing"}},
	})

	// A stream fault is logged, not propagated; the cache keeps its
	// last-known-good content.
	require.NotPanics(t, func() {
		st.errFns[domain.CollectionEvents](errors.New("stream dropped"))
	})
	assert.Equal(t, 1, c.Events.Len())
}

func TestManager_MemoryStoreEndToEnd(t *testing.T) {
	mem := store.NewMemory()
	c := cache.New()
	m := NewManager(mem, c)

	ctx := context.Background()
	_, err := mem.Add(ctx, domain.CollectionEvents, map[string]any{"name": "before start"})
	require.NoError(t, err)

	m.Start(ctx)
	require.Equal(t, 1, c.Events.Len(), "initial snapshot delivered on subscribe")

	_, err = mem.Add(ctx, domain.CollectionEvents, map[string]any{"name": "after start"})
	require.NoError(t, err)
	assert.Equal(t, 2, c.Events.Len(), "change re-delivers the full result set")

	m.Stop()
	_, err = mem.Add(ctx, domain.CollectionEvents, map[string]any{"name": "after stop"})
	require.NoError(t, err)
	assert.Equal(t, 2, c.Events.Len(), "stopped manager no longer feeds the cache")
}
