// Package comments implements owner-gated comments on reviews.
package comments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anonto42/motorhub/backend/internal/apperrors"
	"github.com/anonto42/motorhub/backend/internal/models"
	"github.com/anonto42/motorhub/backend/internal/repositories"
	"github.com/rs/zerolog"
)

// Service handles review comments.
type Service struct {
	repo   repositories.CommentRepository
	logger zerolog.Logger
	now    func() time.Time
}

// NewService creates a new comment Service
func NewService(repo repositories.CommentRepository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("component", "comments").Logger(),
		now:    time.Now,
	}
}

// Create adds a comment by author to reviewID.
func (s *Service) Create(ctx context.Context, reviewID string, author models.Author, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.ErrEmptyBody
	}
	if reviewID == "" {
		return nil, apperrors.ErrMissingID
	}
	if author.ID == "" {
		return nil, apperrors.ErrUnauthorized
	}

	comment := &models.Comment{
		ReviewID:   reviewID,
		UserID:     author.ID,
		UserName:   author.Name,
		UserAvatar: author.Avatar,
		Content:    content,
	}
	if err := s.repo.CreateComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return comment, nil
}

// ListByReview returns the comments on reviewID, oldest first. Read failures
// are logged and reported as none.
func (s *Service) ListByReview(ctx context.Context, reviewID string) []models.Comment {
	list, err := s.repo.GetCommentsByReviewID(ctx, reviewID)
	if err != nil {
		s.logger.Error().Err(err).Str("reviewID", reviewID).Msg("Failed to list comments")
		return []models.Comment{}
	}
	return list
}

// Update replaces the content of a comment owned by userID. It reports false
// when the comment no longer exists.
func (s *Service) Update(ctx context.Context, id, userID, content string) (bool, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return false, apperrors.ErrEmptyBody
	}
	comment, ok, err := s.owned(ctx, id, userID)
	if err != nil || !ok {
		return false, err
	}

	err = s.repo.UpdateCommentContent(ctx, comment.ID, content, s.now().UTC())
	if errors.Is(err, apperrors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("update comment %s: %w", id, err)
	}
	return true, nil
}

// Delete removes a comment owned by userID if it still exists.
func (s *Service) Delete(ctx context.Context, id, userID string) error {
	comment, ok, err := s.owned(ctx, id, userID)
	if err != nil || !ok {
		return err
	}
	if err := s.repo.DeleteComment(ctx, comment.ID); err != nil {
		return fmt.Errorf("delete comment %s: %w", id, err)
	}
	return nil
}

func (s *Service) owned(ctx context.Context, id, userID string) (*models.Comment, bool, error) {
	if id == "" {
		return nil, false, apperrors.ErrMissingID
	}
	comment, err := s.repo.GetCommentByID(ctx, id)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load comment %s: %w", id, err)
	}
	if comment.UserID != userID {
		return nil, false, apperrors.ErrNotOwner
	}
	return comment, true, nil
}
