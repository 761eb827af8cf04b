// Package store defines the remote document store and blob store the sync
// layer is written against, with production implementations backed by
// Firestore and Cloud Storage and an in-memory implementation for tests.
package store

import (
	"context"
	"io"
)

// Document is one record from a collection, id attached.
type Document struct {
	ID   string
	Data map[string]any
}

// Query selects a whole collection, optionally ordered by a field path.
type Query struct {
	Collection string
	OrderBy    string
	Desc       bool
}

// SnapshotFunc receives the complete matching result set. The store re-delivers
// the full set on every change to the collection.
type SnapshotFunc func(docs []Document)

// Handle stops a running listener. Stop is idempotent.
type Handle interface {
	Stop()
}

// Update is one field change in an update write. Value may be a plain value or
// one of the Union / Remove / Increment operators, which the store applies
// atomically server-side.
type Update struct {
	Path  string
	Value any
}

// Union adds values to an array field, skipping values already present
// (whole-record equality).
type Union struct {
	Values []any
}

// Remove deletes exactly-equal values from an array field.
type Remove struct {
	Values []any
}

// Increment adds N to a numeric field.
type Increment struct {
	N int64
}

// DocumentStore is the remote collection store. Get returns
// domain.ErrNotFound for absent documents; Update fails the same way when the
// target vanished.
type DocumentStore interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	Add(ctx context.Context, collection string, data map[string]any) (string, error)
	Set(ctx context.Context, collection, id string, data map[string]any, merge bool) error
	Update(ctx context.Context, collection, id string, updates []Update) error
	Delete(ctx context.Context, collection, id string) error

	// Listen opens a streaming subscription for q. fn is invoked with the
	// full result set on every change; errFn is invoked once if the stream
	// fails, after which no further snapshots arrive.
	Listen(ctx context.Context, q Query, fn SnapshotFunc, errFn func(error)) Handle
}

// BlobStore is the content-addressed file store. Put streams r to path and
// returns a durable URL; progress, when non-nil, is called as bytes land.
type BlobStore interface {
	Put(ctx context.Context, path string, r io.Reader, size int64, progress func(written, total int64)) (string, error)
	DeleteByURL(ctx context.Context, url string) error
}
