package community_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/anonto42/motorhub/backend/internal/apperrors"
	"github.com/anonto42/motorhub/backend/internal/community"
	"github.com/anonto42/motorhub/backend/internal/docstore"
	"github.com/anonto42/motorhub/backend/internal/models"
	"github.com/anonto42/motorhub/backend/internal/notifications"
	"github.com/anonto42/motorhub/backend/internal/repositories"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = models.Author{ID: "alice", Name: "Alice"}
	bob   = models.Author{ID: "bob", Name: "Bob"}
	carol = models.Author{ID: "carol", Name: "Carol", Avatar: "https://cdn.example.com/carol.png"}
)

type harness struct {
	messageRepo      repositories.MessageRepository
	replyRepo        repositories.ReplyRepository
	notificationRepo repositories.NotificationRepository
	messages         *community.MessageStore
	replies          *community.ReplyStore
	board            *community.Board
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := zerolog.Nop()

	h := &harness{
		messageRepo: repositories.NewDocstoreMessageRepository(
			docstore.NewMemoryCollection[models.Message](models.CollectionMessages)),
		replyRepo: repositories.NewDocstoreReplyRepository(
			docstore.NewMemoryCollection[models.Reply](models.CollectionReplies)),
		notificationRepo: repositories.NewDocstoreNotificationRepository(
			docstore.NewMemoryCollection[models.Notification](models.CollectionNotifications)),
	}
	fanout := notifications.NewFanout(h.notificationRepo, logger)
	h.messages = community.NewMessageStore(h.messageRepo, h.replyRepo, logger)
	h.replies = community.NewReplyStore(h.messageRepo, h.replyRepo, fanout, logger)
	h.board = community.NewBoard(h.messages, h.replies, logger)
	h.board.Start(context.Background())
	t.Cleanup(h.board.Close)
	return h
}

func (h *harness) notificationsFor(t *testing.T, userID string) []models.Notification {
	t.Helper()
	list, err := h.notificationRepo.GetByRecipientID(context.Background(), userID, 0)
	require.NoError(t, err)
	return list
}

func TestCreateMessage_RejectsBlankBody(t *testing.T) {
	h := newHarness(t)

	for _, body := range []string{"", "   ", "\n\t"} {
		_, err := h.messages.CreateMessage(context.Background(), alice, body)
		assert.ErrorIs(t, err, apperrors.ErrEmptyBody)
	}
	msgs, _ := h.board.Snapshot()
	assert.Empty(t, msgs)
}

func TestCreateReply_RejectsBadInput(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.replies.CreateReply(ctx, community.ReplyInput{ParentID: "m1", Author: bob, Body: " "}, h.board)
	assert.ErrorIs(t, err, apperrors.ErrEmptyBody)

	_, err = h.replies.CreateReply(ctx, community.ReplyInput{Author: bob, Body: "hi"}, h.board)
	assert.ErrorIs(t, err, apperrors.ErrMissingParent)

	_, err = h.replies.CreateReply(ctx, community.ReplyInput{ParentID: "m1", Body: "hi"}, h.board)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestPostThenReply_NotifiesMessageAuthor(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	msg, err := h.messages.CreateMessage(ctx, alice, "Hello")
	require.NoError(t, err)

	_, err = h.replies.CreateReply(ctx, community.ReplyInput{ParentID: msg.ID, Author: bob, Body: "Hi A"}, h.board)
	require.NoError(t, err)

	got := h.notificationsFor(t, alice.ID)
	require.Len(t, got, 1)
	assert.Equal(t, alice.ID, got[0].RecipientUserID)
	assert.Equal(t, models.TypeReply, got[0].Type)
	assert.Equal(t, "Hi A", got[0].ContentPreview)
	assert.False(t, got[0].IsRead)
	assert.Equal(t, bob.ID, got[0].SenderUserID)
	assert.Equal(t, msg.ID, got[0].RelatedMessageID)
	assert.Equal(t, "/community#"+msg.ID, got[0].URL)
}

func TestReplyToReply_FlattensAndNotifiesReplyAuthor(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	msg, err := h.messages.CreateMessage(ctx, alice, "Best track car under 30k?")
	require.NoError(t, err)
	reply1, err := h.replies.CreateReply(ctx, community.ReplyInput{ParentID: msg.ID, Author: bob, Body: "Miata, always."}, h.board)
	require.NoError(t, err)

	reply2, err := h.replies.CreateReply(ctx, community.ReplyInput{
		ParentID:  msg.ID,
		ReplyToID: reply1.ID,
		Author:    carol,
		Body:      "Seconded",
	}, h.board)
	require.NoError(t, err)

	assert.Equal(t, msg.ID, reply2.ParentID)
	assert.Equal(t, "Bob", reply2.ReplyToAuthorName)
	assert.Equal(t, "Miata, always.", reply2.ReplyToPreview)

	toBob := h.notificationsFor(t, bob.ID)
	require.Len(t, toBob, 1)
	assert.Equal(t, carol.ID, toBob[0].SenderUserID)
	assert.Equal(t, carol.Avatar, toBob[0].SenderUserAvatar)
	assert.Equal(t, reply1.ID, toBob[0].RelatedMessageID)

	// alice only heard about bob's reply
	assert.Len(t, h.notificationsFor(t, alice.ID), 1)
}

func TestReplyToReply_FetchesTargetMissingFromSnapshot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	msg, err := h.messages.CreateMessage(ctx, alice, "Hello")
	require.NoError(t, err)
	reply1, err := h.replies.CreateReply(ctx, community.ReplyInput{ParentID: msg.ID, Author: bob, Body: strings.Repeat("b", 150)}, nil)
	require.NoError(t, err)

	reply2, err := h.replies.CreateReply(ctx, community.ReplyInput{ParentID: msg.ID, ReplyToID: reply1.ID, Author: carol, Body: "ok"}, nil)
	require.NoError(t, err)
	assert.Len(t, reply2.ReplyToPreview, 100)
	assert.True(t, strings.HasSuffix(reply2.ReplyToPreview, "..."))
	assert.Len(t, h.notificationsFor(t, bob.ID), 1)
}

func TestReplyToMissingTarget_StillWrites(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	msg, err := h.messages.CreateMessage(ctx, alice, "Hello")
	require.NoError(t, err)

	reply, err := h.replies.CreateReply(ctx, community.ReplyInput{ParentID: msg.ID, ReplyToID: "gone", Author: bob, Body: "hm"}, h.board)
	require.NoError(t, err)
	assert.Empty(t, reply.ReplyToPreview)
	assert.Empty(t, h.notificationsFor(t, alice.ID))
}

func TestCreateReply_ParentMustBeMessage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	msg, err := h.messages.CreateMessage(ctx, alice, "Hello")
	require.NoError(t, err)
	reply1, err := h.replies.CreateReply(ctx, community.ReplyInput{ParentID: msg.ID, Author: bob, Body: "first"}, h.board)
	require.NoError(t, err)

	_, err = h.replies.CreateReply(ctx, community.ReplyInput{ParentID: reply1.ID, Author: carol, Body: "nested"}, h.board)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = h.replies.CreateReply(ctx, community.ReplyInput{ParentID: "never-existed", Author: carol, Body: "hi"}, nil)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	stored := h.replies.ListReplies(ctx)
	require.Len(t, stored, 1)
	assert.Len(t, h.notificationsFor(t, alice.ID), 1)
}

func TestCreateReply_TargetUnderOtherMessage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	m1, err := h.messages.CreateMessage(ctx, alice, "first thread")
	require.NoError(t, err)
	m2, err := h.messages.CreateMessage(ctx, alice, "second thread")
	require.NoError(t, err)
	r1, err := h.replies.CreateReply(ctx, community.ReplyInput{ParentID: m1.ID, Author: bob, Body: "under m1"}, h.board)
	require.NoError(t, err)

	for _, snap := range []community.Snapshot{h.board, nil} {
		_, err = h.replies.CreateReply(ctx, community.ReplyInput{ParentID: m2.ID, ReplyToID: r1.ID, Author: carol, Body: "crossed"}, snap)
		assert.ErrorIs(t, err, apperrors.ErrParentMismatch)
		assert.True(t, apperrors.IsValidation(err))
	}

	assert.Len(t, h.replies.ListReplies(ctx), 1)
	assert.Empty(t, h.notificationsFor(t, bob.ID))
}

func TestSelfReply_CreatesNoNotification(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	msg, err := h.messages.CreateMessage(ctx, alice, "Hello")
	require.NoError(t, err)
	reply, err := h.replies.CreateReply(ctx, community.ReplyInput{ParentID: msg.ID, Author: alice, Body: "bump"}, h.board)
	require.NoError(t, err)
	_, err = h.replies.CreateReply(ctx, community.ReplyInput{ParentID: msg.ID, ReplyToID: reply.ID, Author: alice, Body: "bump again"}, h.board)
	require.NoError(t, err)

	assert.Empty(t, h.notificationsFor(t, alice.ID))
}

func TestDeleteMessage_CascadesToReplies(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	msg, err := h.messages.CreateMessage(ctx, alice, "Hello")
	require.NoError(t, err)
	other, err := h.messages.CreateMessage(ctx, bob, "Other thread")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := h.replies.CreateReply(ctx, community.ReplyInput{ParentID: msg.ID, Author: bob, Body: "reply"}, h.board)
		require.NoError(t, err)
	}
	_, err = h.replies.CreateReply(ctx, community.ReplyInput{ParentID: other.ID, Author: alice, Body: "stays"}, h.board)
	require.NoError(t, err)

	require.NoError(t, h.messages.DeleteMessage(ctx, msg.ID, alice.ID))

	left, err := h.replyRepo.GetRepliesByParentID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Empty(t, left)

	msgs, reps := h.board.Snapshot()
	require.Len(t, msgs, 1)
	assert.Equal(t, other.ID, msgs[0].ID)
	require.Len(t, reps, 1)
	assert.Equal(t, other.ID, reps[0].ParentID)
}

func TestDeleteMessage_OwnerAndMissing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	msg, err := h.messages.CreateMessage(ctx, alice, "Hello")
	require.NoError(t, err)

	assert.ErrorIs(t, h.messages.DeleteMessage(ctx, msg.ID, bob.ID), apperrors.ErrNotOwner)
	_, found := h.board.FindMessage(msg.ID)
	assert.True(t, found)

	assert.ErrorIs(t, h.messages.DeleteMessage(ctx, "", alice.ID), apperrors.ErrMissingID)
	assert.NoError(t, h.messages.DeleteMessage(ctx, "never-existed", alice.ID))
}

type flakyReplyRepo struct {
	repositories.ReplyRepository
	failID string
}

func (r *flakyReplyRepo) DeleteReply(ctx context.Context, id string) error {
	if id == r.failID {
		return errors.New("unavailable")
	}
	return r.ReplyRepository.DeleteReply(ctx, id)
}

func TestDeleteMessage_PartialCascadeFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	msg, err := h.messages.CreateMessage(ctx, alice, "Hello")
	require.NoError(t, err)
	var ids []string
	for i := 0; i < 3; i++ {
		r, err := h.replies.CreateReply(ctx, community.ReplyInput{ParentID: msg.ID, Author: bob, Body: "reply"}, h.board)
		require.NoError(t, err)
		ids = append(ids, r.ID)
	}

	flaky := &flakyReplyRepo{ReplyRepository: h.replyRepo, failID: ids[1]}
	store := community.NewMessageStore(h.messageRepo, flaky, zerolog.Nop())

	err = store.DeleteMessage(ctx, msg.ID, alice.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ids[1])

	_, err = h.messageRepo.GetMessageByID(ctx, msg.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	left, err := h.replyRepo.GetRepliesByParentID(ctx, msg.ID)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, ids[1], left[0].ID)
}

func TestDeleteReply_OwnerOnlyNoCascade(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	msg, err := h.messages.CreateMessage(ctx, alice, "Hello")
	require.NoError(t, err)
	target, err := h.replies.CreateReply(ctx, community.ReplyInput{ParentID: msg.ID, Author: bob, Body: "first"}, h.board)
	require.NoError(t, err)
	quoting, err := h.replies.CreateReply(ctx, community.ReplyInput{ParentID: msg.ID, ReplyToID: target.ID, Author: carol, Body: "second"}, h.board)
	require.NoError(t, err)

	assert.ErrorIs(t, h.replies.DeleteReply(ctx, target.ID, carol.ID), apperrors.ErrNotOwner)
	require.NoError(t, h.replies.DeleteReply(ctx, target.ID, bob.ID))
	require.NoError(t, h.replies.DeleteReply(ctx, target.ID, bob.ID))

	_, found := h.board.FindReply(quoting.ID)
	require.True(t, found)
	threads := h.board.Threads(community.NewThreadView(alice.ID))
	require.Len(t, threads, 1)
	require.Len(t, threads[0].Replies, 1)
	assert.Equal(t, "first", threads[0].Replies[0].QuotedPreview)
}

type brokenSubscribeRepo struct {
	repositories.MessageRepository
}

func (brokenSubscribeRepo) SubscribeMessages(context.Context, func([]models.Message), func(error)) (docstore.Unsubscribe, error) {
	return nil, errors.New("listen: permission denied")
}

func TestSubscribeMessages_FallsBackToOneShotFetch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.messages.CreateMessage(ctx, alice, "first")
	require.NoError(t, err)
	_, err = h.messages.CreateMessage(ctx, bob, "second")
	require.NoError(t, err)

	store := community.NewMessageStore(brokenSubscribeRepo{h.messageRepo}, h.replyRepo, zerolog.Nop())
	var got []models.Message
	var subErr error
	unsubscribe := store.SubscribeMessages(ctx, func(msgs []models.Message) { got = msgs }, func(err error) { subErr = err })
	require.NotNil(t, unsubscribe)
	unsubscribe()

	assert.Error(t, subErr)
	require.Len(t, got, 2)
	assert.Equal(t, "second", got[0].Body)
}

func TestBoard_IgnoresUpdatesAfterClose(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	changes := 0
	h.board.OnChange(func() { changes++ })
	_, err := h.messages.CreateMessage(ctx, alice, "one")
	require.NoError(t, err)
	assert.Equal(t, 1, changes)

	h.board.Close()
	_, err = h.messages.CreateMessage(ctx, alice, "two")
	require.NoError(t, err)
	assert.Equal(t, 1, changes)
	msgs, _ := h.board.Snapshot()
	assert.Len(t, msgs, 1)
}
