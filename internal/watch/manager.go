// Package watch owns the long-lived listeners on the remote store: one per
// watched collection, opened on Start and torn down exactly once on Stop.
package watch

import (
	"context"
	"log"
	"sort"
	"sync"

	"github.com/campushub/backend/internal/cache"
	"github.com/campushub/backend/internal/domain"
	"github.com/campushub/backend/internal/store"
)

type Manager struct {
	store store.DocumentStore
	cache *cache.Cache

	mu      sync.Mutex
	handles []store.Handle
	started bool
}

func NewManager(st store.DocumentStore, c *cache.Cache) *Manager {
	return &Manager{store: st, cache: c}
}

// Start opens the collection listeners. Calling Start on a running manager is
// a no-op; lifecycle callers invoke it on mount and on identity change.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.started = true

	m.handles = []store.Handle{
		m.store.Listen(ctx,
			store.Query{Collection: domain.CollectionArticles, OrderBy: "actor.date", Desc: true},
			m.onArticles, listenErr(domain.CollectionArticles)),
		m.store.Listen(ctx,
			store.Query{Collection: domain.CollectionEvents},
			m.onEvents, listenErr(domain.CollectionEvents)),
		m.store.Listen(ctx,
			store.Query{Collection: domain.CollectionProjects},
			m.onProjects, listenErr(domain.CollectionProjects)),
		m.store.Listen(ctx,
			store.Query{Collection: domain.CollectionNotifications},
			m.onNotifications, listenErr(domain.CollectionNotifications)),
	}
}

// Stop tears down every listener. Idempotent; must run on unmount and on
// sign-out so listeners never leak across mounts.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return
	}
	m.started = false
	for _, h := range m.handles {
		h.Stop()
	}
	m.handles = nil
}

// onArticles normalizes an article snapshot: map to entities, dedup by id
// keeping the first occurrence, then sort by post time descending. Ordering is
// applied here, not trusted from the store.
func (m *Manager) onArticles(docs []store.Document) {
	articles := make([]domain.Article, 0, len(docs))
	for _, d := range dedup(docs) {
		articles = append(articles, domain.ArticleFromDoc(d.ID, d.Data))
	}
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].Actor.PostedAt.After(articles[j].Actor.PostedAt)
	})
	m.cache.Articles.Replace(articles)
}

func (m *Manager) onEvents(docs []store.Document) {
	events := make([]domain.Event, 0, len(docs))
	for _, d := range dedup(docs) {
		events = append(events, domain.EventFromDoc(d.ID, d.Data))
	}
	m.cache.Events.Replace(events)
}

func (m *Manager) onProjects(docs []store.Document) {
	projects := make([]domain.Project, 0, len(docs))
	for _, d := range dedup(docs) {
		projects = append(projects, domain.ProjectFromDoc(d.ID, d.Data))
	}
	m.cache.Projects.Replace(projects)
}

func (m *Manager) onNotifications(docs []store.Document) {
	notifications := make([]domain.Notification, 0, len(docs))
	for _, d := range dedup(docs) {
		notifications = append(notifications, domain.NotificationFromDoc(d.ID, d.Data))
	}
	m.cache.Notifications.Replace(notifications)
}

// dedup keeps the first occurrence of each id. Overlapping pages from the
// store can repeat documents within one snapshot.
func dedup(docs []store.Document) []store.Document {
	seen := make(map[string]bool, len(docs))
	out := docs[:0:0]
	for _, d := range docs {
		if seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		out = append(out, d)
	}
	return out
}

// A listener fault is logged and the stream stays down until the transport
// recovers on its own; the cache keeps its last-known-good snapshot.
func listenErr(collection string) func(error) {
	return func(err error) {
		log.Printf("%s listener error: %v", collection, err)
	}
}
