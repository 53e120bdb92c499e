// Package community implements the community board: top-level messages,
// flat reply threads under them and the per-viewer thread projection.
package community

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/anonto42/motorhub/backend/internal/apperrors"
	"github.com/anonto42/motorhub/backend/internal/docstore"
	"github.com/anonto42/motorhub/backend/internal/metrics"
	"github.com/anonto42/motorhub/backend/internal/models"
	"github.com/anonto42/motorhub/backend/internal/repositories"
	"github.com/rs/zerolog"
)

// MessageStore owns message writes and the cascade to their replies.
type MessageStore struct {
	messages repositories.MessageRepository
	replies  repositories.ReplyRepository
	logger   zerolog.Logger
}

// NewMessageStore creates a new MessageStore
func NewMessageStore(messages repositories.MessageRepository, replies repositories.ReplyRepository, logger zerolog.Logger) *MessageStore {
	return &MessageStore{
		messages: messages,
		replies:  replies,
		logger:   logger.With().Str("component", "message_store").Logger(),
	}
}

// CreateMessage posts body to the board as author. The stored body is trimmed.
func (s *MessageStore) CreateMessage(ctx context.Context, author models.Author, body string) (*models.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.ErrEmptyBody
	}
	if author.ID == "" {
		return nil, apperrors.ErrUnauthorized
	}

	msg := &models.Message{
		Body:         body,
		AuthorID:     author.ID,
		AuthorName:   author.Name,
		AuthorAvatar: author.Avatar,
	}
	if err := s.messages.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	return msg, nil
}

// ListMessages returns every message, newest first. Read failures are logged
// and reported as an empty board.
func (s *MessageStore) ListMessages(ctx context.Context) []models.Message {
	msgs, err := s.messages.GetMessagesNewestFirst(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list messages")
		return []models.Message{}
	}
	return msgs
}

// SubscribeMessages streams the full message list, newest first, on every
// change. When the live query cannot be opened the current list is delivered
// once and the returned Unsubscribe does nothing.
func (s *MessageStore) SubscribeMessages(ctx context.Context, onUpdate func([]models.Message), onError func(error)) docstore.Unsubscribe {
	unsubscribe, err := s.messages.SubscribeMessages(ctx, onUpdate, onError)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Live message query unavailable, falling back to one-shot fetch")
		if onError != nil {
			onError(err)
		}
		onUpdate(s.ListMessages(ctx))
		return func() {}
	}
	return metrics.TrackSubscription(models.CollectionMessages, unsubscribe)
}

// DeleteMessage removes a message owned by requesterID, then each reply
// under it. Reply deletes are independent: one failing neither stops the rest
// nor restores the message, and all failures are returned together.
func (s *MessageStore) DeleteMessage(ctx context.Context, id, requesterID string) error {
	if id == "" {
		return apperrors.ErrMissingID
	}

	msg, err := s.messages.GetMessageByID(ctx, id)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load message %s: %w", id, err)
	}
	if msg.AuthorID != requesterID {
		return apperrors.ErrNotOwner
	}

	if err := s.messages.DeleteMessage(ctx, id); err != nil {
		return fmt.Errorf("delete message %s: %w", id, err)
	}

	replies, err := s.replies.GetRepliesByParentID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("messageID", id).Msg("Failed to load replies for cascade delete")
		return fmt.Errorf("load replies of %s: %w", id, err)
	}

	var errs []error
	for _, reply := range replies {
		if err := s.replies.DeleteReply(ctx, reply.ID); err != nil {
			metrics.CascadeDeletes.WithLabelValues("failed").Inc()
			s.logger.Error().Err(err).Str("messageID", id).Str("replyID", reply.ID).Msg("Failed to delete reply during cascade")
			errs = append(errs, fmt.Errorf("delete reply %s: %w", reply.ID, err))
			continue
		}
		metrics.CascadeDeletes.WithLabelValues("deleted").Inc()
	}
	return errors.Join(errs...)
}

// SortMessagesOldestFirst returns a chronologically ordered copy of msgs,
// which arrive newest first. Equal timestamps keep write order. Messages still
// waiting for a server timestamp sort last.
func SortMessagesOldestFirst(msgs []models.Message) []models.Message {
	out := make([]models.Message, len(msgs))
	for i, m := range msgs {
		out[len(msgs)-1-i] = m
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].CreatedAt, out[j].CreatedAt
		switch {
		case a.IsZero():
			return false
		case b.IsZero():
			return true
		}
		return a.Before(b)
	})
	return out
}
