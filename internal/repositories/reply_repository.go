package repositories

import (
	"context"

	"github.com/anonto42/motorhub/backend/internal/apperrors"
	"github.com/anonto42/motorhub/backend/internal/docstore"
	"github.com/anonto42/motorhub/backend/internal/models"
)

// ReplyRepository defines the interface for replies under board messages
type ReplyRepository interface {
	CreateReply(ctx context.Context, reply *models.Reply) error
	GetReplyByID(ctx context.Context, id string) (*models.Reply, error)
	GetReplies(ctx context.Context) ([]models.Reply, error)
	GetRepliesByParentID(ctx context.Context, parentID string) ([]models.Reply, error)
	SubscribeReplies(ctx context.Context, onUpdate func([]models.Reply), onError func(error)) (docstore.Unsubscribe, error)
	DeleteReply(ctx context.Context, id string) error
}

// DocstoreReplyRepository implements ReplyRepository on a document collection
type DocstoreReplyRepository struct {
	collection docstore.Collection[models.Reply]
}

// NewDocstoreReplyRepository creates a new DocstoreReplyRepository
func NewDocstoreReplyRepository(collection docstore.Collection[models.Reply]) *DocstoreReplyRepository {
	return &DocstoreReplyRepository{collection: collection}
}

var oldestFirst = docstore.Query{}.Order(models.FieldCreatedAt, docstore.Asc)

func (r *DocstoreReplyRepository) CreateReply(ctx context.Context, reply *models.Reply) error {
	_, err := r.collection.Add(ctx, reply)
	return err
}

// GetReplyByID returns apperrors.ErrNotFound when the reply is gone
func (r *DocstoreReplyRepository) GetReplyByID(ctx context.Context, id string) (*models.Reply, error) {
	reply, err := r.collection.Get(ctx, id)
	if docstore.IsNotFound(err) {
		return nil, apperrors.ErrNotFound
	}
	return reply, err
}

func (r *DocstoreReplyRepository) GetReplies(ctx context.Context) ([]models.Reply, error) {
	return r.collection.Find(ctx, oldestFirst)
}

// GetRepliesByParentID is unordered so it needs no composite index.
func (r *DocstoreReplyRepository) GetRepliesByParentID(ctx context.Context, parentID string) ([]models.Reply, error) {
	return r.collection.Find(ctx, docstore.Query{}.Where(models.FieldParentID, docstore.Eq, parentID))
}

func (r *DocstoreReplyRepository) SubscribeReplies(ctx context.Context, onUpdate func([]models.Reply), onError func(error)) (docstore.Unsubscribe, error) {
	return r.collection.Subscribe(ctx, oldestFirst, onUpdate, onError)
}

func (r *DocstoreReplyRepository) DeleteReply(ctx context.Context, id string) error {
	return r.collection.Delete(ctx, id)
}
