// Package notifications writes reply notifications and keeps per-user feed
// state in step with the store.
package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/anonto42/motorhub/backend/internal/apperrors"
	"github.com/anonto42/motorhub/backend/internal/docstore"
	"github.com/anonto42/motorhub/backend/internal/metrics"
	"github.com/anonto42/motorhub/backend/internal/models"
	"github.com/anonto42/motorhub/backend/internal/repositories"
	"github.com/anonto42/motorhub/backend/internal/textutil"
	"github.com/rs/zerolog"
)

const (
	DefaultListLimit  = 20
	MaxListLimit      = 50
	SubscriptionLimit = 50
)

// Fanout creates notifications and serves a user's notification lists.
type Fanout struct {
	repo   repositories.NotificationRepository
	logger zerolog.Logger
}

// NewFanout creates a new Fanout
func NewFanout(repo repositories.NotificationRepository, logger zerolog.Logger) *Fanout {
	return &Fanout{
		repo:   repo,
		logger: logger.With().Str("component", "notification_fanout").Logger(),
	}
}

// URLFor is the community route that shows relatedID.
func URLFor(relatedID string) string {
	return "/community#" + relatedID
}

// NotifyOnReply tells recipientID that sender replied with body. Nobody is
// notified about their own replies; that case returns nil, nil.
func (f *Fanout) NotifyOnReply(ctx context.Context, recipientID string, sender models.Author, body, relatedID string) (*models.Notification, error) {
	if recipientID == "" {
		metrics.NotificationsSkipped.WithLabelValues("no_recipient").Inc()
		f.logger.Debug().Str("senderID", sender.ID).Msg("Reply notification without recipient, skipping")
		return nil, nil
	}
	if recipientID == sender.ID {
		metrics.NotificationsSkipped.WithLabelValues("self").Inc()
		f.logger.Debug().Str("userID", sender.ID).Str("relatedID", relatedID).Msg("Skipping self notification")
		return nil, nil
	}

	n := &models.Notification{
		RecipientUserID:  recipientID,
		Type:             models.TypeReply,
		SenderUserID:     sender.ID,
		SenderUserName:   sender.Name,
		SenderUserAvatar: sender.Avatar,
		ContentPreview:   textutil.Preview(body),
		RelatedMessageID: relatedID,
		IsRead:           false,
		URL:              URLFor(relatedID),
	}
	if err := f.repo.CreateNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	metrics.NotificationsCreated.WithLabelValues(string(n.Type)).Inc()
	return n, nil
}

// ListUnread returns userID's unread notifications, newest first. Read
// failures are logged and reported as none.
func (f *Fanout) ListUnread(ctx context.Context, userID string) []models.Notification {
	list, err := f.repo.GetUnreadByRecipientID(ctx, userID)
	if err != nil {
		f.logger.Error().Err(err).Str("userID", userID).Msg("Failed to list unread notifications")
		return []models.Notification{}
	}
	return list
}

// ListAll returns up to limit of userID's notifications, newest first.
// limit defaults to DefaultListLimit and is capped at MaxListLimit.
func (f *Fanout) ListAll(ctx context.Context, userID string, limit int) []models.Notification {
	list, err := f.listAll(ctx, userID, limit)
	if err != nil {
		f.logger.Error().Err(err).Str("userID", userID).Msg("Failed to list notifications")
		return []models.Notification{}
	}
	return list
}

func (f *Fanout) listAll(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	return f.repo.GetByRecipientID(ctx, userID, clampLimit(limit))
}

// SubscribeAll streams userID's newest notifications on every change. When
// the live query cannot be opened the current list is delivered once.
func (f *Fanout) SubscribeAll(ctx context.Context, userID string, onUpdate func([]models.Notification), onError func(error)) docstore.Unsubscribe {
	unsubscribe, err := f.repo.SubscribeByRecipientID(ctx, userID, SubscriptionLimit, onUpdate, onError)
	if err != nil {
		f.logger.Warn().Err(err).Str("userID", userID).Msg("Live notification query unavailable, falling back to one-shot fetch")
		if onError != nil {
			onError(err)
		}
		onUpdate(f.ListAll(ctx, userID, SubscriptionLimit))
		return func() {}
	}
	return metrics.TrackSubscription(models.CollectionNotifications, unsubscribe)
}

// MarkAsRead marks one notification read. It reports false when the
// notification no longer exists. When userID is set it must be the recipient.
func (f *Fanout) MarkAsRead(ctx context.Context, id, userID string) (bool, error) {
	if id == "" {
		return false, apperrors.ErrMissingID
	}
	n, err := f.repo.GetByID(ctx, id)
	if errors.Is(err, apperrors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load notification %s: %w", id, err)
	}
	if userID != "" && n.RecipientUserID != userID {
		return false, apperrors.ErrNotOwner
	}
	if n.IsRead {
		return true, nil
	}

	err = f.repo.MarkAsRead(ctx, id)
	if errors.Is(err, apperrors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("mark notification %s read: %w", id, err)
	}
	return true, nil
}

// MarkAllAsRead marks every unread notification of userID read in one atomic
// write and returns how many changed. With nothing unread it writes nothing.
func (f *Fanout) MarkAllAsRead(ctx context.Context, userID string) (int, error) {
	unread, err := f.repo.GetUnreadByRecipientID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("load unread notifications: %w", err)
	}
	if len(unread) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(unread))
	for _, n := range unread {
		ids = append(ids, n.ID)
	}
	if err := f.repo.MarkManyAsRead(ctx, ids); err != nil {
		return 0, fmt.Errorf("mark %d notifications read: %w", len(ids), err)
	}
	return len(ids), nil
}

// UnreadCount counts the unread notifications in list.
func UnreadCount(list []models.Notification) int {
	count := 0
	for _, n := range list {
		if !n.IsRead {
			count++
		}
	}
	return count
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
