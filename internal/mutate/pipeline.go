// Package mutate executes the fetch-modify-write sequences that change nested
// collection fields in the remote store, then reflects each success into the
// entity cache. The cache is never touched before the remote write completes,
// so failures need no rollback.
//
// There is no mutual exclusion across concurrent operations on the same
// document: two writers can both read the pre-mutation value of an ordered
// list (comments, roles, members) and silently discard each other's change.
// Likes and certificates avoid that race by using the store's atomic array
// and increment operators.
package mutate

import (
	"errors"
	"fmt"
	"time"

	"github.com/campushub/backend/internal/cache"
	"github.com/campushub/backend/internal/domain"
	"github.com/campushub/backend/internal/store"
)

type Pipeline struct {
	store store.DocumentStore
	blobs store.BlobStore
	cache *cache.Cache

	now func() time.Time
}

func NewPipeline(st store.DocumentStore, blobs store.BlobStore, c *cache.Cache) *Pipeline {
	return &Pipeline{store: st, blobs: blobs, cache: c, now: time.Now}
}

// classify folds store failures into the error taxonomy: not-found passes
// through, anything else on a write becomes write-rejected.
func classify(err error) error {
	if err == nil || errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrWriteRejected, err)
}
