package comments_test

import (
	"context"
	"testing"

	"github.com/anonto42/motorhub/backend/internal/apperrors"
	"github.com/anonto42/motorhub/backend/internal/comments"
	"github.com/anonto42/motorhub/backend/internal/docstore"
	"github.com/anonto42/motorhub/backend/internal/models"
	"github.com/anonto42/motorhub/backend/internal/repositories"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = models.Author{ID: "alice", Name: "Alice"}
	bob   = models.Author{ID: "bob", Name: "Bob"}
)

func newService() *comments.Service {
	coll := docstore.NewMemoryCollection[models.Comment](models.CollectionComments)
	return comments.NewService(repositories.NewDocstoreCommentRepository(coll), zerolog.Nop())
}

func TestCreateAndList(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	_, err := svc.Create(ctx, "review-1", alice, "  Great write-up  ")
	require.NoError(t, err)
	_, err = svc.Create(ctx, "review-1", bob, "Disagree on the gearbox")
	require.NoError(t, err)
	_, err = svc.Create(ctx, "review-2", bob, "Elsewhere")
	require.NoError(t, err)

	list := svc.ListByReview(ctx, "review-1")
	require.Len(t, list, 2)
	assert.Equal(t, "Great write-up", list[0].Content)
	assert.Equal(t, alice.ID, list[0].UserID)
	assert.Equal(t, bob.ID, list[1].UserID)

	assert.Empty(t, svc.ListByReview(ctx, "review-3"))
}

func TestCreate_Validation(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	_, err := svc.Create(ctx, "review-1", alice, " ")
	assert.ErrorIs(t, err, apperrors.ErrEmptyBody)
	_, err = svc.Create(ctx, "", alice, "text")
	assert.ErrorIs(t, err, apperrors.ErrMissingID)
}

func TestUpdate_OwnerGated(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	c, err := svc.Create(ctx, "review-1", alice, "first draft")
	require.NoError(t, err)

	_, err = svc.Update(ctx, c.ID, bob.ID, "hijacked")
	assert.ErrorIs(t, err, apperrors.ErrNotOwner)

	ok, err := svc.Update(ctx, c.ID, alice.ID, "final")
	require.NoError(t, err)
	assert.True(t, ok)

	list := svc.ListByReview(ctx, "review-1")
	require.Len(t, list, 1)
	assert.Equal(t, "final", list[0].Content)
	assert.False(t, list[0].UpdatedAt.IsZero())

	ok, err = svc.Update(ctx, "missing", alice.ID, "text")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestDelete_OwnerGatedAndIdempotent(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	c, err := svc.Create(ctx, "review-1", alice, "bye")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, c.ID, bob.ID), apperrors.ErrNotOwner)
	require.NoError(t, svc.Delete(ctx, c.ID, alice.ID))
	require.NoError(t, svc.Delete(ctx, c.ID, alice.ID))
	assert.Empty(t, svc.ListByReview(ctx, "review-1"))
}
