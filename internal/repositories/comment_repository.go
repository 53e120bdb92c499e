package repositories

import (
	"context"
	"time"

	"github.com/anonto42/motorhub/backend/internal/apperrors"
	"github.com/anonto42/motorhub/backend/internal/docstore"
	"github.com/anonto42/motorhub/backend/internal/models"
)

// CommentRepository defines the interface for review comment operations
type CommentRepository interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetCommentByID(ctx context.Context, id string) (*models.Comment, error)
	GetCommentsByReviewID(ctx context.Context, reviewID string) ([]models.Comment, error)
	UpdateCommentContent(ctx context.Context, id, content string, updatedAt time.Time) error
	DeleteComment(ctx context.Context, id string) error
}

// DocstoreCommentRepository implements CommentRepository on a document collection
type DocstoreCommentRepository struct {
	collection docstore.Collection[models.Comment]
}

// NewDocstoreCommentRepository creates a new DocstoreCommentRepository
func NewDocstoreCommentRepository(collection docstore.Collection[models.Comment]) *DocstoreCommentRepository {
	return &DocstoreCommentRepository{collection: collection}
}

// CreateComment creates a new comment
func (r *DocstoreCommentRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	_, err := r.collection.Add(ctx, comment)
	return err
}

// GetCommentByID retrieves a comment by ID
func (r *DocstoreCommentRepository) GetCommentByID(ctx context.Context, id string) (*models.Comment, error) {
	comment, err := r.collection.Get(ctx, id)
	if docstore.IsNotFound(err) {
		return nil, apperrors.ErrNotFound
	}
	return comment, err
}

// GetCommentsByReviewID retrieves all comments for a review, oldest first
func (r *DocstoreCommentRepository) GetCommentsByReviewID(ctx context.Context, reviewID string) ([]models.Comment, error) {
	q := docstore.Query{}.
		Where(models.FieldReviewID, docstore.Eq, reviewID).
		Order(models.FieldCreatedAt, docstore.Asc)
	return r.collection.Find(ctx, q)
}

// UpdateCommentContent rewrites the content of a comment
func (r *DocstoreCommentRepository) UpdateCommentContent(ctx context.Context, id, content string, updatedAt time.Time) error {
	err := r.collection.Update(ctx, id, map[string]any{
		models.FieldContent:   content,
		models.FieldUpdatedAt: updatedAt,
	})
	if docstore.IsNotFound(err) {
		return apperrors.ErrNotFound
	}
	return err
}

// DeleteComment deletes a comment by ID
func (r *DocstoreCommentRepository) DeleteComment(ctx context.Context, id string) error {
	return r.collection.Delete(ctx, id)
}
