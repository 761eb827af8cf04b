package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/campushub/backend/internal/domain"
)

// Firestore implements DocumentStore on a Cloud Firestore database.
type Firestore struct {
	client *firestore.Client
}

func NewFirestore(client *firestore.Client) *Firestore {
	return &Firestore{client: client}
}

func (s *Firestore) Get(ctx context.Context, collection, id string) (Document, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return Document{}, domain.ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return Document{ID: snap.Ref.ID, Data: snap.Data()}, nil
}

func (s *Firestore) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	ref, _, err := s.client.Collection(collection).Add(ctx, data)
	if err != nil {
		return "", fmt.Errorf("add to %s: %w", collection, err)
	}
	return ref.ID, nil
}

func (s *Firestore) Set(ctx context.Context, collection, id string, data map[string]any, merge bool) error {
	var opts []firestore.SetOption
	if merge {
		opts = append(opts, firestore.MergeAll)
	}
	if _, err := s.client.Collection(collection).Doc(id).Set(ctx, data, opts...); err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Firestore) Update(ctx context.Context, collection, id string, updates []Update) error {
	fsUpdates := make([]firestore.Update, 0, len(updates))
	for _, u := range updates {
		fsUpdates = append(fsUpdates, firestore.Update{Path: u.Path, Value: translateValue(u.Value)})
	}
	_, err := s.client.Collection(collection).Doc(id).Update(ctx, fsUpdates)
	if status.Code(err) == codes.NotFound {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Firestore) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.client.Collection(collection).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Firestore) Listen(ctx context.Context, q Query, fn SnapshotFunc, errFn func(error)) Handle {
	ctx, cancel := context.WithCancel(ctx)

	query := s.client.Collection(q.Collection).Query
	if q.OrderBy != "" {
		dir := firestore.Asc
		if q.Desc {
			dir = firestore.Desc
		}
		query = query.OrderBy(q.OrderBy, dir)
	}

	it := query.Snapshots(ctx)
	go func() {
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				if status.Code(err) != codes.Canceled && errFn != nil {
					errFn(err)
				}
				return
			}
			docs, err := drainSnapshot(snap)
			if err != nil {
				if errFn != nil {
					errFn(err)
				}
				return
			}
			fn(docs)
		}
	}()

	return handleFunc(cancel)
}

func drainSnapshot(snap *firestore.QuerySnapshot) ([]Document, error) {
	var docs []Document
	for {
		d, err := snap.Documents.Next()
		if err == iterator.Done {
			return docs, nil
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, Document{ID: d.Ref.ID, Data: d.Data()})
	}
}

func translateValue(v any) any {
	switch op := v.(type) {
	case Union:
		return firestore.ArrayUnion(op.Values...)
	case Remove:
		return firestore.ArrayRemove(op.Values...)
	case Increment:
		return firestore.Increment(op.N)
	default:
		return v
	}
}

type handleFunc func()

func (h handleFunc) Stop() { h() }
