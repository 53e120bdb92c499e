package community

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anonto42/motorhub/backend/internal/apperrors"
	"github.com/anonto42/motorhub/backend/internal/docstore"
	"github.com/anonto42/motorhub/backend/internal/metrics"
	"github.com/anonto42/motorhub/backend/internal/models"
	"github.com/anonto42/motorhub/backend/internal/repositories"
	"github.com/anonto42/motorhub/backend/internal/textutil"
	"github.com/rs/zerolog"
)

// Snapshot is the board state the caller currently has loaded. Recipient
// resolution reads it instead of the store.
type Snapshot interface {
	FindMessage(id string) (models.Message, bool)
	FindReply(id string) (models.Reply, bool)
}

// ReplyNotifier is told about every reply that was written.
type ReplyNotifier interface {
	NotifyOnReply(ctx context.Context, recipientID string, sender models.Author, body, relatedID string) (*models.Notification, error)
}

// ReplyInput describes a new reply. ParentID names the root message even
// when ReplyToID points at another reply.
type ReplyInput struct {
	ParentID  string
	ReplyToID string
	Author    models.Author
	Body      string
}

// ReplyStore owns reply writes.
type ReplyStore struct {
	messages repositories.MessageRepository
	replies  repositories.ReplyRepository
	notifier ReplyNotifier
	logger   zerolog.Logger
}

// NewReplyStore creates a new ReplyStore. notifier may be nil.
func NewReplyStore(messages repositories.MessageRepository, replies repositories.ReplyRepository, notifier ReplyNotifier, logger zerolog.Logger) *ReplyStore {
	return &ReplyStore{
		messages: messages,
		replies:  replies,
		notifier: notifier,
		logger:   logger.With().Str("component", "reply_store").Logger(),
	}
}

// CreateReply writes a reply and then notifies the author of whatever it
// answers. Quote fields are filled on a best-effort basis and notification
// failures never fail the reply.
func (s *ReplyStore) CreateReply(ctx context.Context, in ReplyInput, snap Snapshot) (*models.Reply, error) {
	body := strings.TrimSpace(in.Body)
	if body == "" {
		return nil, apperrors.ErrEmptyBody
	}
	if in.ParentID == "" {
		return nil, apperrors.ErrMissingParent
	}
	if in.Author.ID == "" {
		return nil, apperrors.ErrUnauthorized
	}
	if snap == nil {
		snap = emptySnapshot{}
	}

	reply := &models.Reply{
		Body:         body,
		AuthorID:     in.Author.ID,
		AuthorName:   in.Author.Name,
		AuthorAvatar: in.Author.Avatar,
		ParentID:     in.ParentID,
		ReplyToID:    in.ReplyToID,
	}

	var recipientID string
	if in.ReplyToID != "" {
		target, found := snap.FindReply(in.ReplyToID)
		if !found {
			if fetched, err := s.replies.GetReplyByID(ctx, in.ReplyToID); err == nil {
				target, found = *fetched, true
			} else {
				s.logger.Warn().Err(err).Str("replyToID", in.ReplyToID).Msg("Reply target not found, writing without quote")
			}
		}
		if found {
			if target.ParentID != in.ParentID {
				return nil, apperrors.ErrParentMismatch
			}
			recipientID = target.AuthorID
			reply.ReplyToAuthorName = target.AuthorName
			reply.ReplyToPreview = textutil.Preview(target.Body)
		}
	}

	root, err := s.findMessage(ctx, in.ParentID, snap)
	if err != nil {
		return nil, err
	}
	if in.ReplyToID == "" {
		recipientID = root.AuthorID
	}

	if err := s.replies.CreateReply(ctx, reply); err != nil {
		return nil, fmt.Errorf("create reply: %w", err)
	}

	s.notify(ctx, recipientID, in, reply)
	return reply, nil
}

// findMessage resolves the root message from the snapshot, then the store.
// A reply id passed as parent is not a message and reports ErrNotFound.
func (s *ReplyStore) findMessage(ctx context.Context, id string, snap Snapshot) (models.Message, error) {
	if msg, ok := snap.FindMessage(id); ok {
		return msg, nil
	}
	msg, err := s.messages.GetMessageByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return models.Message{}, fmt.Errorf("parent message %s: %w", id, apperrors.ErrNotFound)
		}
		return models.Message{}, fmt.Errorf("load parent message %s: %w", id, err)
	}
	return *msg, nil
}

func (s *ReplyStore) notify(ctx context.Context, recipientID string, in ReplyInput, reply *models.Reply) {
	if s.notifier == nil {
		return
	}
	if recipientID == "" {
		s.logger.Debug().Str("replyID", reply.ID).Msg("No loaded recipient for reply, skipping notification")
		return
	}
	relatedID := in.ReplyToID
	if relatedID == "" {
		relatedID = in.ParentID
	}
	if _, err := s.notifier.NotifyOnReply(ctx, recipientID, in.Author, reply.Body, relatedID); err != nil {
		s.logger.Error().Err(err).Str("replyID", reply.ID).Str("recipientID", recipientID).Msg("Failed to send reply notification")
	}
}

// ListReplies returns every reply, oldest first. Read failures are logged
// and reported as no replies.
func (s *ReplyStore) ListReplies(ctx context.Context) []models.Reply {
	replies, err := s.replies.GetReplies(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list replies")
		return []models.Reply{}
	}
	return replies
}

// SubscribeReplies streams the full reply list, oldest first, on every
// change, with the same one-shot fallback as SubscribeMessages.
func (s *ReplyStore) SubscribeReplies(ctx context.Context, onUpdate func([]models.Reply), onError func(error)) docstore.Unsubscribe {
	unsubscribe, err := s.replies.SubscribeReplies(ctx, onUpdate, onError)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Live reply query unavailable, falling back to one-shot fetch")
		if onError != nil {
			onError(err)
		}
		onUpdate(s.ListReplies(ctx))
		return func() {}
	}
	return metrics.TrackSubscription(models.CollectionReplies, unsubscribe)
}

// DeleteReply removes a single reply owned by requesterID. Replies quoting
// it keep their denormalized quote.
func (s *ReplyStore) DeleteReply(ctx context.Context, id, requesterID string) error {
	if id == "" {
		return apperrors.ErrMissingID
	}
	reply, err := s.replies.GetReplyByID(ctx, id)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load reply %s: %w", id, err)
	}
	if reply.AuthorID != requesterID {
		return apperrors.ErrNotOwner
	}
	if err := s.replies.DeleteReply(ctx, id); err != nil {
		return fmt.Errorf("delete reply %s: %w", id, err)
	}
	return nil
}

type emptySnapshot struct{}

func (emptySnapshot) FindMessage(string) (models.Message, bool) { return models.Message{}, false }
func (emptySnapshot) FindReply(string) (models.Reply, bool)     { return models.Reply{}, false }
