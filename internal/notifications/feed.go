package notifications

import (
	"context"
	"sync"
	"time"

	"github.com/anonto42/motorhub/backend/internal/docstore"
	"github.com/anonto42/motorhub/backend/internal/models"
	"github.com/rs/zerolog"
)

// DefaultPollInterval is how often a Feed re-reads the store alongside its
// live query.
const DefaultPollInterval = 30 * time.Second

// FeedState is what a notification panel renders.
type FeedState struct {
	Notifications []models.Notification `json:"notifications"`
	UnreadCount   int                   `json:"unreadCount"`
}

// Feed is one user's view of their notifications. The unread count is always
// derived from the last list received; the live query and the poller both
// replace that list and the later write wins.
type Feed struct {
	fanout *Fanout
	userID string
	logger zerolog.Logger

	// emit serializes callback delivery so Close can wait for it.
	emit sync.Mutex

	mu       sync.Mutex
	list     []models.Notification
	known    map[string]struct{}
	primed   bool
	closed   bool
	onChange func(FeedState)
	onNew    func([]models.Notification)
	unsub    docstore.Unsubscribe
	stopPoll context.CancelFunc
}

// NewFeed creates a Feed for userID.
func NewFeed(fanout *Fanout, userID string, logger zerolog.Logger) *Feed {
	return &Feed{
		fanout: fanout,
		userID: userID,
		logger: logger.With().Str("component", "notification_feed").Str("userID", userID).Logger(),
		list:   []models.Notification{},
		known:  make(map[string]struct{}),
	}
}

// OnChange sets the callback run after every list change.
func (f *Feed) OnChange(fn func(FeedState)) {
	f.mu.Lock()
	f.onChange = fn
	f.mu.Unlock()
}

// OnNew sets the callback run with notifications that were not in the
// previous list. The first list received only primes the feed.
func (f *Feed) OnNew(fn func([]models.Notification)) {
	f.mu.Lock()
	f.onNew = fn
	f.mu.Unlock()
}

// Start opens the live query. Calling it again does nothing.
func (f *Feed) Start(ctx context.Context) {
	f.mu.Lock()
	if f.unsub != nil || f.closed {
		f.mu.Unlock()
		return
	}
	f.unsub = func() {}
	f.mu.Unlock()

	unsubscribe := f.fanout.SubscribeAll(ctx, f.userID, f.apply, func(err error) {
		f.logger.Error().Err(err).Msg("Notification subscription error")
	})

	f.mu.Lock()
	closed := f.closed
	if !closed {
		f.unsub = unsubscribe
	}
	f.mu.Unlock()
	if closed {
		unsubscribe()
	}
}

// StartPolling refreshes the feed every interval until ctx is done or the
// feed is closed.
func (f *Feed) StartPolling(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ctx, cancel := context.WithCancel(ctx)

	f.mu.Lock()
	if f.closed || f.stopPoll != nil {
		f.mu.Unlock()
		cancel()
		return
	}
	f.stopPoll = cancel
	f.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := f.Refresh(ctx); err != nil && ctx.Err() == nil {
					f.logger.Warn().Err(err).Msg("Notification poll failed")
				}
			}
		}
	}()
}

// Refresh re-reads the newest notifications from the store.
func (f *Feed) Refresh(ctx context.Context) error {
	list, err := f.fanout.listAll(ctx, f.userID, SubscriptionLimit)
	if err != nil {
		return err
	}
	f.apply(list)
	return nil
}

// State returns the current list and unread count.
func (f *Feed) State() FeedState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stateLocked()
}

// UnreadCount counts unread notifications in the current list.
func (f *Feed) UnreadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return UnreadCount(f.list)
}

// OpenPanel is called when the user opens the notification panel. Opening it
// with unread notifications marks all of them read.
func (f *Feed) OpenPanel(ctx context.Context) (int, error) {
	if f.UnreadCount() == 0 {
		return 0, nil
	}
	n, err := f.fanout.MarkAllAsRead(ctx, f.userID)
	if err != nil {
		return 0, err
	}
	f.update(func(list []models.Notification) {
		for i := range list {
			list[i].IsRead = true
		}
	})
	return n, nil
}

// MarkAsRead marks one notification read in the store and in the local list.
func (f *Feed) MarkAsRead(ctx context.Context, id string) (bool, error) {
	ok, err := f.fanout.MarkAsRead(ctx, id, f.userID)
	if err != nil {
		return false, err
	}
	f.update(func(list []models.Notification) {
		for i := range list {
			if list[i].ID == id {
				list[i].IsRead = true
			}
		}
	})
	return ok, nil
}

// Close stops the live query and the poller and waits for a callback already
// in flight. Callbacks are not run after Close returns, so Close must not be
// called from inside one.
func (f *Feed) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	unsub, stopPoll := f.unsub, f.stopPoll
	f.onChange, f.onNew = nil, nil
	f.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	if stopPoll != nil {
		stopPoll()
	}
	f.emit.Lock()
	f.emit.Unlock()
}

func (f *Feed) apply(list []models.Notification) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}

	known := make(map[string]struct{}, len(list))
	var fresh []models.Notification
	for _, n := range list {
		known[n.ID] = struct{}{}
		if _, seen := f.known[n.ID]; f.primed && !seen {
			fresh = append(fresh, n)
		}
	}
	f.list = append([]models.Notification(nil), list...)
	f.known = known
	f.primed = true

	state := f.stateLocked()
	f.mu.Unlock()

	f.emit.Lock()
	defer f.emit.Unlock()
	onChange, onNew, open := f.callbacks()
	if !open {
		return
	}
	if onChange != nil {
		onChange(state)
	}
	if onNew != nil && len(fresh) > 0 {
		onNew(fresh)
	}
}

func (f *Feed) update(mutate func([]models.Notification)) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	mutate(f.list)
	state := f.stateLocked()
	f.mu.Unlock()

	f.emit.Lock()
	defer f.emit.Unlock()
	if onChange, _, open := f.callbacks(); open && onChange != nil {
		onChange(state)
	}
}

// callbacks re-reads the callbacks after emit is held; Close may have run in
// between.
func (f *Feed) callbacks() (func(FeedState), func([]models.Notification), bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.onChange, f.onNew, !f.closed
}

func (f *Feed) stateLocked() FeedState {
	list := make([]models.Notification, len(f.list))
	copy(list, f.list)
	return FeedState{Notifications: list, UnreadCount: UnreadCount(list)}
}
