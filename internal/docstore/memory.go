package docstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

// MemoryCollection keeps documents in process. Documents are held as bson.M
// so reads always hand out fresh copies, and listeners are notified
// synchronously after every committed write.
type MemoryCollection[T any, PT DocPtr[T]] struct {
	name string
	now  func() time.Time

	mu        sync.Mutex
	docs      map[string]memoryDoc
	seq       int64
	version   int64
	listeners map[int64]*memoryListener[T]
	nextLis   int64
}

type memoryDoc struct {
	seq    int64
	fields bson.M
}

type memoryListener[T any] struct {
	query    Query
	onUpdate func([]T)
	onError  func(error)

	mu      sync.Mutex
	latest  int64
	pending *pendingSnapshot[T]
	running bool
	closed  atomic.Bool
}

type pendingSnapshot[T any] struct {
	docs []T
	err  error
}

// MemoryOption configures a MemoryCollection.
type MemoryOption func(*memoryOptions)

type memoryOptions struct {
	now func() time.Time
}

// WithClock overrides the timestamp source used for createdAt.
func WithClock(now func() time.Time) MemoryOption {
	return func(o *memoryOptions) { o.now = now }
}

// NewMemoryCollection creates an empty in-memory collection.
func NewMemoryCollection[T any, PT DocPtr[T]](name string, opts ...MemoryOption) *MemoryCollection[T, PT] {
	o := memoryOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &MemoryCollection[T, PT]{
		name:      name,
		now:       o.now,
		docs:      make(map[string]memoryDoc),
		listeners: make(map[int64]*memoryListener[T]),
	}
}

func (c *MemoryCollection[T, PT]) Name() string { return c.name }

func (c *MemoryCollection[T, PT]) Add(ctx context.Context, doc *T) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p := PT(doc)
	id := uuid.NewString()
	p.SetDocID(id)
	p.StampCreated(c.now().UTC())

	fields, err := toFields(doc)
	if err != nil {
		return "", fmt.Errorf("encode %s document: %w", c.name, err)
	}

	c.mu.Lock()
	c.seq++
	c.docs[id] = memoryDoc{seq: c.seq, fields: fields}
	c.mu.Unlock()

	c.publish()
	return id, nil
}

func (c *MemoryCollection[T, PT]) Get(ctx context.Context, id string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	d, ok := c.docs[id]
	c.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	out, err := fromFields[T](d.fields)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *MemoryCollection[T, PT]) Find(ctx context.Context, q Query) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.findLocked(q)
}

func (c *MemoryCollection[T, PT]) findLocked(q Query) ([]T, error) {
	matched := make([]memoryDoc, 0, len(c.docs))
	for _, d := range c.docs {
		if matchesAll(q.Filters, d.fields) {
			matched = append(matched, d)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if q.OrderBy != "" {
			r, _ := compareValues(matched[i].fields[q.OrderBy], matched[j].fields[q.OrderBy])
			if r != 0 {
				if q.Direction == Desc {
					return r > 0
				}
				return r < 0
			}
			if q.Direction == Desc {
				return matched[i].seq > matched[j].seq
			}
		}
		return matched[i].seq < matched[j].seq
	})

	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	out := make([]T, 0, len(matched))
	for _, d := range matched {
		t, err := fromFields[T](d.fields)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (c *MemoryCollection[T, PT]) Subscribe(ctx context.Context, q Query, onUpdate func([]T), onError func(error)) (Unsubscribe, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l := &memoryListener[T]{query: q, onUpdate: onUpdate, onError: onError}

	c.mu.Lock()
	c.nextLis++
	key := c.nextLis
	c.listeners[key] = l
	snapshot, err := c.findLocked(q)
	version := c.version
	c.mu.Unlock()
	if err != nil {
		c.remove(key)
		return nil, err
	}

	l.deliver(version, snapshot, nil)

	var once sync.Once
	stop := context.AfterFunc(ctx, func() { c.remove(key) })
	return func() {
		once.Do(func() {
			stop()
			c.remove(key)
		})
	}, nil
}

func (c *MemoryCollection[T, PT]) Update(ctx context.Context, id string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	d, ok := c.docs[id]
	if !ok {
		c.mu.Unlock()
		return ErrNotFound
	}
	merged, err := mergeFields[T](d.fields, fields)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("update %s/%s: %w", c.name, id, err)
	}
	d.fields = merged
	c.docs[id] = d
	c.mu.Unlock()

	c.publish()
	return nil
}

func (c *MemoryCollection[T, PT]) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	_, ok := c.docs[id]
	delete(c.docs, id)
	c.mu.Unlock()

	if ok {
		c.publish()
	}
	return nil
}

// BatchUpdate fails without writing anything when one of ids is missing.
func (c *MemoryCollection[T, PT]) BatchUpdate(ctx context.Context, ids []string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	c.mu.Lock()
	staged := make(map[string]memoryDoc, len(ids))
	for _, id := range ids {
		d, ok := c.docs[id]
		if !ok {
			c.mu.Unlock()
			return fmt.Errorf("batch update %s/%s: %w", c.name, id, ErrNotFound)
		}
		merged, err := mergeFields[T](d.fields, fields)
		if err != nil {
			c.mu.Unlock()
			return fmt.Errorf("batch update %s/%s: %w", c.name, id, err)
		}
		d.fields = merged
		staged[id] = d
	}
	for id, d := range staged {
		c.docs[id] = d
	}
	c.mu.Unlock()

	c.publish()
	return nil
}

// Len reports how many documents are stored.
func (c *MemoryCollection[T, PT]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.docs)
}

func (c *MemoryCollection[T, PT]) remove(key int64) {
	c.mu.Lock()
	l, ok := c.listeners[key]
	delete(c.listeners, key)
	c.mu.Unlock()
	if ok {
		l.close()
	}
}

type pendingDelivery[T any] struct {
	listener *memoryListener[T]
	docs     []T
	err      error
}

func (c *MemoryCollection[T, PT]) publish() {
	c.mu.Lock()
	c.version++
	version := c.version
	pending := make([]pendingDelivery[T], 0, len(c.listeners))
	for _, l := range c.listeners {
		docs, err := c.findLocked(l.query)
		pending = append(pending, pendingDelivery[T]{listener: l, docs: docs, err: err})
	}
	c.mu.Unlock()

	for _, p := range pending {
		p.listener.deliver(version, p.docs, p.err)
	}
}

// deliver drops snapshots older than the last one accepted, so concurrent
// writers cannot make a listener go back in time. Only one goroutine runs the
// callbacks of a listener at a time; snapshots arriving meanwhile, including
// from writes made inside a callback, are coalesced and handed to it.
func (l *memoryListener[T]) deliver(version int64, docs []T, err error) {
	l.mu.Lock()
	if version < l.latest {
		l.mu.Unlock()
		return
	}
	l.latest = version
	l.pending = &pendingSnapshot[T]{docs: docs, err: err}
	if l.running {
		l.mu.Unlock()
		return
	}
	l.running = true
	for l.pending != nil {
		next := l.pending
		l.pending = nil
		l.mu.Unlock()

		if !l.closed.Load() {
			if next.err != nil {
				if l.onError != nil {
					l.onError(next.err)
				}
			} else {
				l.onUpdate(next.docs)
			}
		}

		l.mu.Lock()
	}
	l.running = false
	l.mu.Unlock()
}

func (l *memoryListener[T]) close() {
	l.closed.Store(true)
}

func matchesAll(filters []Filter, doc bson.M) bool {
	for _, f := range filters {
		if !f.matches(doc) {
			return false
		}
	}
	return true
}

func toFields(doc any) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func fromFields[T any](m bson.M) (T, error) {
	var out T
	raw, err := bson.Marshal(m)
	if err != nil {
		return out, err
	}
	err = bson.Unmarshal(raw, &out)
	return out, err
}

// mergeFields applies fields on top of current and round-trips the result
// through T so that field values are stored with their canonical bson types.
func mergeFields[T any](current bson.M, fields map[string]any) (bson.M, error) {
	merged := make(bson.M, len(current)+len(fields))
	for k, v := range current {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	typed, err := fromFields[T](merged)
	if err != nil {
		return nil, err
	}
	return toFields(&typed)
}
