package repositories

import (
	"context"

	"github.com/anonto42/motorhub/backend/internal/apperrors"
	"github.com/anonto42/motorhub/backend/internal/docstore"
	"github.com/anonto42/motorhub/backend/internal/models"
)

// MessageRepository defines the interface for community board messages
type MessageRepository interface {
	CreateMessage(ctx context.Context, msg *models.Message) error
	GetMessageByID(ctx context.Context, id string) (*models.Message, error)
	GetMessagesNewestFirst(ctx context.Context) ([]models.Message, error)
	SubscribeMessages(ctx context.Context, onUpdate func([]models.Message), onError func(error)) (docstore.Unsubscribe, error)
	DeleteMessage(ctx context.Context, id string) error
}

// DocstoreMessageRepository implements MessageRepository on a document collection
type DocstoreMessageRepository struct {
	collection docstore.Collection[models.Message]
}

// NewDocstoreMessageRepository creates a new DocstoreMessageRepository
func NewDocstoreMessageRepository(collection docstore.Collection[models.Message]) *DocstoreMessageRepository {
	return &DocstoreMessageRepository{collection: collection}
}

var newestFirst = docstore.Query{}.Order(models.FieldCreatedAt, docstore.Desc)

// CreateMessage stores msg and fills in its ID
func (r *DocstoreMessageRepository) CreateMessage(ctx context.Context, msg *models.Message) error {
	_, err := r.collection.Add(ctx, msg)
	return err
}

// GetMessageByID returns apperrors.ErrNotFound when the message is gone
func (r *DocstoreMessageRepository) GetMessageByID(ctx context.Context, id string) (*models.Message, error) {
	msg, err := r.collection.Get(ctx, id)
	if docstore.IsNotFound(err) {
		return nil, apperrors.ErrNotFound
	}
	return msg, err
}

func (r *DocstoreMessageRepository) GetMessagesNewestFirst(ctx context.Context) ([]models.Message, error) {
	return r.collection.Find(ctx, newestFirst)
}

func (r *DocstoreMessageRepository) SubscribeMessages(ctx context.Context, onUpdate func([]models.Message), onError func(error)) (docstore.Unsubscribe, error) {
	return r.collection.Subscribe(ctx, newestFirst, onUpdate, onError)
}

func (r *DocstoreMessageRepository) DeleteMessage(ctx context.Context, id string) error {
	return r.collection.Delete(ctx, id)
}
