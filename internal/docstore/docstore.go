// Package docstore is a small document-database abstraction over Firestore,
// MongoDB and an in-memory backend. Collections are typed, queries are limited
// to what the community features need: equality and range filters, a single
// order-by field and a limit.
package docstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get and Update when the document does not exist.
var ErrNotFound = errors.New("docstore: document not found")

// IsNotFound reports whether err means the document does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Document is implemented by every stored model. IDs are assigned by the
// backend on Add.
type Document interface {
	DocID() string
	SetDocID(id string)
	StampCreated(now time.Time)
}

// DocPtr constrains PT to be *T implementing Document.
type DocPtr[T any] interface {
	*T
	Document
}

// Unsubscribe stops a live query. Calling it more than once is safe.
type Unsubscribe func()

// Collection is a typed handle on one document collection.
type Collection[T any] interface {
	Name() string
	// Add inserts doc, assigns its ID and returns it.
	Add(ctx context.Context, doc *T) (string, error)
	Get(ctx context.Context, id string) (*T, error)
	Find(ctx context.Context, q Query) ([]T, error)
	// Subscribe delivers the complete result of q now and after every change
	// until unsubscribed or ctx is done. A non-nil error means the listener
	// could not be established and nothing will be delivered.
	Subscribe(ctx context.Context, q Query, onUpdate func([]T), onError func(error)) (Unsubscribe, error)
	// Update merges fields into an existing document.
	Update(ctx context.Context, id string, fields map[string]any) error
	// Delete removes the document if it exists.
	Delete(ctx context.Context, id string) error
	// BatchUpdate merges fields into every listed document atomically.
	BatchUpdate(ctx context.Context, ids []string, fields map[string]any) error
}

// Op is a filter comparison operator.
type Op string

const (
	Eq  Op = "=="
	Lt  Op = "<"
	Lte Op = "<="
	Gt  Op = ">"
	Gte Op = ">="
)

// Direction is a sort direction.
type Direction int

const (
	Asc Direction = iota
	Desc
)

// Filter compares one document field against Value.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Query describes a read. The zero Query returns every document in
// insertion order.
type Query struct {
	Filters   []Filter
	OrderBy   string
	Direction Direction
	Limit     int
}

// Where returns a copy of q with an extra filter.
func (q Query) Where(field string, op Op, value any) Query {
	filters := make([]Filter, 0, len(q.Filters)+1)
	filters = append(filters, q.Filters...)
	q.Filters = append(filters, Filter{Field: field, Op: op, Value: value})
	return q
}

// Order returns a copy of q sorted by field.
func (q Query) Order(field string, dir Direction) Query {
	q.OrderBy = field
	q.Direction = dir
	return q
}

// Take returns a copy of q limited to n documents. n <= 0 means no limit.
func (q Query) Take(n int) Query {
	q.Limit = n
	return q
}
