package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/campushub/backend/internal/domain"
)

// Memory is an in-process DocumentStore with the same streaming-snapshot
// contract as the Firestore implementation: every change re-delivers the full
// matching result set to all listeners on the collection. It backs the tests
// and local development without credentials.
type Memory struct {
	mu          sync.Mutex
	collections map[string]map[string]map[string]any
	order       map[string][]string
	listeners   map[int]*memListener
	nextID      int
	writeErr    error
}

type memListener struct {
	query Query
	fn    SnapshotFunc
	errFn func(error)
	done  bool
}

func NewMemory() *Memory {
	return &Memory{
		collections: map[string]map[string]map[string]any{},
		order:       map[string][]string{},
		listeners:   map[int]*memListener{},
	}
}

// FailWrites makes every following Add/Set/Update/Delete return err. Pass nil
// to restore normal behavior.
func (s *Memory) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}

// FailListeners faults every active listener on collection, as a dropped
// stream would.
func (s *Memory) FailListeners(collection string, err error) {
	s.mu.Lock()
	var failed []*memListener
	for _, l := range s.listeners {
		if l.query.Collection == collection && !l.done {
			l.done = true
			failed = append(failed, l)
		}
	}
	s.mu.Unlock()

	for _, l := range failed {
		if l.errFn != nil {
			l.errFn(err)
		}
	}
}

func (s *Memory) Get(ctx context.Context, collection, id string) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.collections[collection][id]
	if !ok {
		return Document{}, domain.ErrNotFound
	}
	return Document{ID: id, Data: copyMap(data)}, nil
}

func (s *Memory) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	id := uuid.NewString()
	if err := s.put(collection, id, copyMap(data)); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Memory) Set(ctx context.Context, collection, id string, data map[string]any, merge bool) error {
	s.mu.Lock()
	if s.writeErr != nil {
		err := s.writeErr
		s.mu.Unlock()
		return err
	}
	existing, ok := s.collections[collection][id]
	next := copyMap(data)
	if merge && ok {
		merged := copyMap(existing)
		for k, v := range next {
			merged[k] = v
		}
		next = merged
	}
	s.storeLocked(collection, id, next)
	fns := s.snapshotDeliveriesLocked(collection)
	s.mu.Unlock()

	deliver(fns)
	return nil
}

func (s *Memory) Update(ctx context.Context, collection, id string, updates []Update) error {
	s.mu.Lock()
	if s.writeErr != nil {
		err := s.writeErr
		s.mu.Unlock()
		return err
	}
	data, ok := s.collections[collection][id]
	if !ok {
		s.mu.Unlock()
		return domain.ErrNotFound
	}
	next := copyMap(data)
	for _, u := range updates {
		if err := applyUpdate(next, u); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("update %s/%s: %w", collection, id, err)
		}
	}
	s.storeLocked(collection, id, next)
	fns := s.snapshotDeliveriesLocked(collection)
	s.mu.Unlock()

	deliver(fns)
	return nil
}

func (s *Memory) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	if s.writeErr != nil {
		err := s.writeErr
		s.mu.Unlock()
		return err
	}
	if _, ok := s.collections[collection][id]; ok {
		delete(s.collections[collection], id)
		ids := s.order[collection]
		for i, existing := range ids {
			if existing == id {
				s.order[collection] = append(ids[:i:i], ids[i+1:]...)
				break
			}
		}
	}
	fns := s.snapshotDeliveriesLocked(collection)
	s.mu.Unlock()

	deliver(fns)
	return nil
}

func (s *Memory) Listen(ctx context.Context, q Query, fn SnapshotFunc, errFn func(error)) Handle {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	l := &memListener{query: q, fn: fn, errFn: errFn}
	s.listeners[id] = l
	docs := s.queryLocked(q)
	s.mu.Unlock()

	// Initial snapshot, like the streaming store delivers on subscribe.
	fn(docs)

	return handleFunc(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	})
}

func (s *Memory) put(collection, id string, data map[string]any) error {
	s.mu.Lock()
	if s.writeErr != nil {
		err := s.writeErr
		s.mu.Unlock()
		return err
	}
	s.storeLocked(collection, id, data)
	fns := s.snapshotDeliveriesLocked(collection)
	s.mu.Unlock()

	deliver(fns)
	return nil
}

func (s *Memory) storeLocked(collection, id string, data map[string]any) {
	if s.collections[collection] == nil {
		s.collections[collection] = map[string]map[string]any{}
	}
	if _, exists := s.collections[collection][id]; !exists {
		s.order[collection] = append(s.order[collection], id)
	}
	s.collections[collection][id] = data
}

func (s *Memory) queryLocked(q Query) []Document {
	var docs []Document
	for _, id := range s.order[q.Collection] {
		docs = append(docs, Document{ID: id, Data: copyMap(s.collections[q.Collection][id])})
	}
	if q.OrderBy != "" {
		sort.SliceStable(docs, func(i, j int) bool {
			less := lessValue(getPath(docs[i].Data, q.OrderBy), getPath(docs[j].Data, q.OrderBy))
			if q.Desc {
				return !less
			}
			return less
		})
	}
	return docs
}

// snapshotDeliveriesLocked captures the callbacks and their result sets while
// the lock is held; the caller invokes them after unlocking so listener code
// can call back into the store.
func (s *Memory) snapshotDeliveriesLocked(collection string) []func() {
	var fns []func()
	for _, l := range s.listeners {
		if l.query.Collection != collection || l.done {
			continue
		}
		l := l
		docs := s.queryLocked(l.query)
		fns = append(fns, func() { l.fn(docs) })
	}
	return fns
}

func deliver(fns []func()) {
	for _, fn := range fns {
		fn()
	}
}

func applyUpdate(data map[string]any, u Update) error {
	parent := data
	parts := strings.Split(u.Path, ".")
	for _, p := range parts[:len(parts)-1] {
		child, ok := parent[p].(map[string]any)
		if !ok {
			child = map[string]any{}
			parent[p] = child
		}
		parent = child
	}
	field := parts[len(parts)-1]

	switch op := u.Value.(type) {
	case Union:
		arr := toAnySlice(parent[field])
		for _, v := range op.Values {
			if !containsEqual(arr, v) {
				arr = append(arr, copyValue(v))
			}
		}
		parent[field] = arr
	case Remove:
		arr := toAnySlice(parent[field])
		kept := arr[:0]
		for _, existing := range arr {
			if !containsEqual(op.Values, existing) {
				kept = append(kept, existing)
			}
		}
		parent[field] = append([]any(nil), kept...)
	case Increment:
		switch n := parent[field].(type) {
		case int64:
			parent[field] = n + op.N
		case int:
			parent[field] = int64(n) + op.N
		case float64:
			parent[field] = n + float64(op.N)
		case nil:
			parent[field] = op.N
		default:
			return fmt.Errorf("increment on non-numeric field %s", u.Path)
		}
	default:
		parent[field] = copyValue(u.Value)
	}
	return nil
}

func toAnySlice(v any) []any {
	switch arr := v.(type) {
	case []any:
		return arr
	case []string:
		out := make([]any, 0, len(arr))
		for _, s := range arr {
			out = append(out, s)
		}
		return out
	case nil:
		return nil
	default:
		return []any{arr}
	}
}

func containsEqual(arr []any, v any) bool {
	for _, e := range arr {
		if reflect.DeepEqual(e, v) {
			return true
		}
	}
	return false
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return copyMap(val)
	case []any:
		out := make([]any, 0, len(val))
		for _, e := range val {
			out = append(out, copyValue(e))
		}
		return out
	case []string:
		return append([]string(nil), val...)
	default:
		return v
	}
}

func getPath(data map[string]any, path string) any {
	parts := strings.Split(path, ".")
	var cur any = data
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[p]
	}
	return cur
}

func lessValue(a, b any) bool {
	switch av := a.(type) {
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Before(bv)
		}
	case string:
		if bv, ok := b.(string); ok {
			return av < bv
		}
	case int64:
		if bv, ok := b.(int64); ok {
			return av < bv
		}
	case float64:
		if bv, ok := b.(float64); ok {
			return av < bv
		}
	}
	return false
}

// MemoryBlobs is the in-process BlobStore counterpart to Memory.
type MemoryBlobs struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func NewMemoryBlobs() *MemoryBlobs {
	return &MemoryBlobs{blobs: map[string][]byte{}}
}

func (b *MemoryBlobs) Put(ctx context.Context, path string, r io.Reader, size int64, progress func(written, total int64)) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", fmt.Errorf("upload %s: %w", path, err)
	}
	if progress != nil {
		progress(int64(buf.Len()), size)
	}

	url := "mem://" + path
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blobs[url] = buf.Bytes()
	return url, nil
}

func (b *MemoryBlobs) DeleteByURL(ctx context.Context, url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.blobs[url]; !ok {
		return fmt.Errorf("blob %s: %w", url, domain.ErrNotFound)
	}
	delete(b.blobs, url)
	return nil
}

// Has reports whether a blob is stored under url.
func (b *MemoryBlobs) Has(url string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.blobs[url]
	return ok
}
