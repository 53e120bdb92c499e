package notifications_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anonto42/motorhub/backend/internal/models"
	"github.com/anonto42/motorhub/backend/internal/notifications"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeed_UnreadCountIsDerived(t *testing.T) {
	f, _ := newFanout(t)
	ctx := context.Background()
	feed := notifications.NewFeed(f, alice.ID, zerolog.Nop())
	t.Cleanup(feed.Close)

	var states []notifications.FeedState
	feed.OnChange(func(s notifications.FeedState) { states = append(states, s) })
	feed.Start(ctx)

	seed(t, f, alice.ID, 3)
	first := f.ListAll(ctx, alice.ID, 1)[0]
	_, err := f.MarkAsRead(ctx, first.ID, alice.ID)
	require.NoError(t, err)

	require.NotEmpty(t, states)
	for _, s := range states {
		assert.Equal(t, notifications.UnreadCount(s.Notifications), s.UnreadCount)
	}
	assert.Equal(t, 2, feed.UnreadCount())
	assert.Equal(t, 2, feed.State().UnreadCount)
}

func TestFeed_DetectsNewNotificationsAfterPriming(t *testing.T) {
	f, _ := newFanout(t)
	ctx := context.Background()
	seed(t, f, alice.ID, 2)

	feed := notifications.NewFeed(f, alice.ID, zerolog.Nop())
	t.Cleanup(feed.Close)
	var fresh [][]models.Notification
	feed.OnNew(func(list []models.Notification) { fresh = append(fresh, list) })
	feed.Start(ctx)
	assert.Empty(t, fresh)

	n, err := f.NotifyOnReply(ctx, alice.ID, bob, "new one", "m2")
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	require.Len(t, fresh[0], 1)
	assert.Equal(t, n.ID, fresh[0][0].ID)

	_, err = f.MarkAsRead(ctx, n.ID, alice.ID)
	require.NoError(t, err)
	assert.Len(t, fresh, 1)

	require.NoError(t, feed.Refresh(ctx))
	assert.Len(t, fresh, 1)
}

func TestFeed_OpenPanelMarksEverythingRead(t *testing.T) {
	f, _ := newFanout(t)
	ctx := context.Background()
	seed(t, f, alice.ID, 4)

	feed := notifications.NewFeed(f, alice.ID, zerolog.Nop())
	t.Cleanup(feed.Close)
	feed.Start(ctx)
	require.Equal(t, 4, feed.UnreadCount())

	changed, err := feed.OpenPanel(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, changed)
	assert.Zero(t, feed.UnreadCount())
	assert.Empty(t, f.ListUnread(ctx, alice.ID))

	changed, err = feed.OpenPanel(ctx)
	require.NoError(t, err)
	assert.Zero(t, changed)
}

func TestFeed_MarkAsReadUpdatesLocally(t *testing.T) {
	f, _ := newFanout(t)
	ctx := context.Background()
	seed(t, f, alice.ID, 2)

	feed := notifications.NewFeed(f, alice.ID, zerolog.Nop())
	t.Cleanup(feed.Close)
	require.NoError(t, feed.Refresh(ctx))
	require.Equal(t, 2, feed.UnreadCount())

	target := feed.State().Notifications[0].ID
	ok, err := feed.MarkAsRead(ctx, target)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, feed.UnreadCount())
}

func TestFeed_NoCallbacksAfterClose(t *testing.T) {
	f, _ := newFanout(t)
	ctx := context.Background()

	feed := notifications.NewFeed(f, alice.ID, zerolog.Nop())
	calls := 0
	feed.OnChange(func(notifications.FeedState) { calls++ })
	feed.Start(ctx)
	require.Equal(t, 1, calls)

	feed.Close()
	feed.Close()
	seed(t, f, alice.ID, 1)
	require.NoError(t, feed.Refresh(ctx))
	assert.Equal(t, 1, calls)
	assert.Zero(t, feed.UnreadCount())
}

func TestFeed_CloseWaitsForInFlightCallback(t *testing.T) {
	f, _ := newFanout(t)
	ctx := context.Background()

	feed := notifications.NewFeed(f, alice.ID, zerolog.Nop())
	feed.Start(ctx)

	entered, release := make(chan struct{}), make(chan struct{})
	var calls atomic.Int32
	feed.OnChange(func(notifications.FeedState) {
		if calls.Add(1) == 1 {
			close(entered)
			<-release
		}
	})
	go func() { _ = feed.Refresh(ctx) }()
	<-entered

	closed := make(chan struct{})
	go func() {
		feed.Close()
		close(closed)
	}()
	select {
	case <-closed:
		t.Fatal("Close returned while a callback was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close did not return after the callback finished")
	}

	require.NoError(t, feed.Refresh(ctx))
	assert.Equal(t, int32(1), calls.Load())
}
