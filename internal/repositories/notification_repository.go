package repositories

import (
	"context"

	"github.com/anonto42/motorhub/backend/internal/apperrors"
	"github.com/anonto42/motorhub/backend/internal/docstore"
	"github.com/anonto42/motorhub/backend/internal/models"
)

// NotificationRepository defines the interface for notification operations
type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification *models.Notification) error
	GetByID(ctx context.Context, id string) (*models.Notification, error)
	GetByRecipientID(ctx context.Context, recipientID string, limit int) ([]models.Notification, error)
	GetUnreadByRecipientID(ctx context.Context, recipientID string) ([]models.Notification, error)
	SubscribeByRecipientID(ctx context.Context, recipientID string, limit int, onUpdate func([]models.Notification), onError func(error)) (docstore.Unsubscribe, error)
	MarkAsRead(ctx context.Context, id string) error
	MarkManyAsRead(ctx context.Context, ids []string) error
}

// DocstoreNotificationRepository implements NotificationRepository on a document collection
type DocstoreNotificationRepository struct {
	collection docstore.Collection[models.Notification]
}

// NewDocstoreNotificationRepository creates a new DocstoreNotificationRepository
func NewDocstoreNotificationRepository(collection docstore.Collection[models.Notification]) *DocstoreNotificationRepository {
	return &DocstoreNotificationRepository{collection: collection}
}

func byRecipient(recipientID string) docstore.Query {
	return docstore.Query{}.
		Where(models.FieldRecipientUserID, docstore.Eq, recipientID).
		Order(models.FieldCreatedAt, docstore.Desc)
}

func (r *DocstoreNotificationRepository) CreateNotification(ctx context.Context, notification *models.Notification) error {
	_, err := r.collection.Add(ctx, notification)
	return err
}

func (r *DocstoreNotificationRepository) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	n, err := r.collection.Get(ctx, id)
	if docstore.IsNotFound(err) {
		return nil, apperrors.ErrNotFound
	}
	return n, err
}

// GetByRecipientID returns the newest notifications first. limit <= 0 means all.
func (r *DocstoreNotificationRepository) GetByRecipientID(ctx context.Context, recipientID string, limit int) ([]models.Notification, error) {
	return r.collection.Find(ctx, byRecipient(recipientID).Take(limit))
}

func (r *DocstoreNotificationRepository) GetUnreadByRecipientID(ctx context.Context, recipientID string) ([]models.Notification, error) {
	return r.collection.Find(ctx, byRecipient(recipientID).Where(models.FieldIsRead, docstore.Eq, false))
}

func (r *DocstoreNotificationRepository) SubscribeByRecipientID(ctx context.Context, recipientID string, limit int, onUpdate func([]models.Notification), onError func(error)) (docstore.Unsubscribe, error) {
	return r.collection.Subscribe(ctx, byRecipient(recipientID).Take(limit), onUpdate, onError)
}

// MarkAsRead returns apperrors.ErrNotFound when the notification is gone
func (r *DocstoreNotificationRepository) MarkAsRead(ctx context.Context, id string) error {
	err := r.collection.Update(ctx, id, map[string]any{models.FieldIsRead: true})
	if docstore.IsNotFound(err) {
		return apperrors.ErrNotFound
	}
	return err
}

// MarkManyAsRead flips every listed notification in one atomic write.
func (r *DocstoreNotificationRepository) MarkManyAsRead(ctx context.Context, ids []string) error {
	return r.collection.BatchUpdate(ctx, ids, map[string]any{models.FieldIsRead: true})
}
