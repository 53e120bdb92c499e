package docstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreCollection stores documents in a Cloud Firestore collection.
// createdAt is filled by the server through the serverTimestamp tag option,
// so it stays zero on the value passed to Add.
type FirestoreCollection[T any, PT DocPtr[T]] struct {
	client *firestore.Client
	name   string
}

// NewFirestoreCollection binds a typed collection to client.
func NewFirestoreCollection[T any, PT DocPtr[T]](client *firestore.Client, name string) *FirestoreCollection[T, PT] {
	return &FirestoreCollection[T, PT]{client: client, name: name}
}

func (c *FirestoreCollection[T, PT]) Name() string { return c.name }

func (c *FirestoreCollection[T, PT]) ref() *firestore.CollectionRef {
	return c.client.Collection(c.name)
}

func (c *FirestoreCollection[T, PT]) Add(ctx context.Context, doc *T) (string, error) {
	ref, _, err := c.ref().Add(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("add to %s: %w", c.name, err)
	}
	PT(doc).SetDocID(ref.ID)
	return ref.ID, nil
}

func (c *FirestoreCollection[T, PT]) Get(ctx context.Context, id string) (*T, error) {
	snap, err := c.ref().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s/%s: %w", c.name, id, err)
	}
	out, err := c.decode(snap)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *FirestoreCollection[T, PT]) Find(ctx context.Context, q Query) ([]T, error) {
	iter := c.query(q).Documents(ctx)
	defer iter.Stop()

	out := make([]T, 0)
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", c.name, err)
		}
		doc, err := c.decode(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func (c *FirestoreCollection[T, PT]) Subscribe(ctx context.Context, q Query, onUpdate func([]T), onError func(error)) (Unsubscribe, error) {
	ctx, cancel := context.WithCancel(ctx)
	it := c.query(q).Snapshots(ctx)

	// The first snapshot is read synchronously so that a listener that cannot
	// be established is reported to the caller instead of onError.
	first, err := it.Next()
	if err != nil {
		it.Stop()
		cancel()
		return nil, fmt.Errorf("listen %s: %w", c.name, err)
	}
	docs, err := c.snapshotDocs(first)
	if err != nil {
		it.Stop()
		cancel()
		return nil, err
	}
	onUpdate(docs)

	go func() {
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				if ctx.Err() != nil || status.Code(err) == codes.Canceled {
					return
				}
				if onError != nil {
					onError(fmt.Errorf("listen %s: %w", c.name, err))
				}
				return
			}
			docs, err := c.snapshotDocs(snap)
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			onUpdate(docs)
		}
	}()

	var once sync.Once
	return func() { once.Do(cancel) }, nil
}

func (c *FirestoreCollection[T, PT]) Update(ctx context.Context, id string, fields map[string]any) error {
	_, err := c.ref().Doc(id).Update(ctx, toUpdates(fields))
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		return fmt.Errorf("update %s/%s: %w", c.name, id, err)
	}
	return nil
}

// Delete without preconditions succeeds when the document is already gone.
func (c *FirestoreCollection[T, PT]) Delete(ctx context.Context, id string) error {
	if _, err := c.ref().Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("delete %s/%s: %w", c.name, id, err)
	}
	return nil
}

// BatchUpdate runs every update in one transaction. Firestore caps a
// transaction at 500 writes.
func (c *FirestoreCollection[T, PT]) BatchUpdate(ctx context.Context, ids []string, fields map[string]any) error {
	if len(ids) == 0 {
		return nil
	}
	updates := toUpdates(fields)
	err := c.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		for _, id := range ids {
			if err := tx.Update(c.ref().Doc(id), updates); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("batch update %s: %w", c.name, ErrNotFound)
		}
		return fmt.Errorf("batch update %s: %w", c.name, err)
	}
	return nil
}

func (c *FirestoreCollection[T, PT]) query(q Query) firestore.Query {
	fq := c.ref().Query
	for _, f := range q.Filters {
		fq = fq.Where(f.Field, string(f.Op), f.Value)
	}
	if q.OrderBy != "" {
		dir := firestore.Asc
		if q.Direction == Desc {
			dir = firestore.Desc
		}
		fq = fq.OrderBy(q.OrderBy, dir)
	}
	if q.Limit > 0 {
		fq = fq.Limit(q.Limit)
	}
	return fq
}

func (c *FirestoreCollection[T, PT]) snapshotDocs(snap *firestore.QuerySnapshot) ([]T, error) {
	snaps, err := snap.Documents.GetAll()
	if err != nil {
		return nil, fmt.Errorf("read %s snapshot: %w", c.name, err)
	}
	return c.decodeAll(snaps)
}

func (c *FirestoreCollection[T, PT]) decodeAll(snaps []*firestore.DocumentSnapshot) ([]T, error) {
	out := make([]T, 0, len(snaps))
	for _, s := range snaps {
		doc, err := c.decode(s)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func (c *FirestoreCollection[T, PT]) decode(snap *firestore.DocumentSnapshot) (T, error) {
	var out T
	if err := snap.DataTo(&out); err != nil {
		return out, fmt.Errorf("decode %s/%s: %w", c.name, snap.Ref.ID, err)
	}
	PT(&out).SetDocID(snap.Ref.ID)
	return out, nil
}

func toUpdates(fields map[string]any) []firestore.Update {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	updates := make([]firestore.Update, 0, len(keys))
	for _, k := range keys {
		updates = append(updates, firestore.Update{Path: k, Value: fields[k]})
	}
	return updates
}
