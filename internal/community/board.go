package community

import (
	"context"
	"sync"

	"github.com/anonto42/motorhub/backend/internal/docstore"
	"github.com/anonto42/motorhub/backend/internal/models"
	"github.com/rs/zerolog"
)

// Board is the process-wide projection of the community collections. It
// follows both live queries and is discarded and rebuilt freely; the store
// stays the source of truth. The two streams are not ordered relative to
// each other.
type Board struct {
	messages *MessageStore
	replies  *ReplyStore
	logger   zerolog.Logger

	mu        sync.RWMutex
	msgs      []models.Message
	reps      []models.Reply
	msgIndex  map[string]models.Message
	repIndex  map[string]models.Reply
	listeners map[int]func()
	nextID    int
	started   bool
	closed    bool
	unsubs    []docstore.Unsubscribe
}

// NewBoard creates an empty Board. Call Start to begin following the store.
func NewBoard(messages *MessageStore, replies *ReplyStore, logger zerolog.Logger) *Board {
	return &Board{
		messages:  messages,
		replies:   replies,
		logger:    logger.With().Str("component", "board").Logger(),
		msgIndex:  make(map[string]models.Message),
		repIndex:  make(map[string]models.Reply),
		listeners: make(map[int]func()),
	}
}

// Start subscribes to messages and replies. It is a no-op after the first
// call or after Close.
func (b *Board) Start(ctx context.Context) {
	b.mu.Lock()
	if b.started || b.closed {
		b.mu.Unlock()
		return
	}
	b.started = true
	b.mu.Unlock()

	unsubMessages := b.messages.SubscribeMessages(ctx, b.setMessages, b.streamError("messages"))
	unsubReplies := b.replies.SubscribeReplies(ctx, b.setReplies, b.streamError("replies"))

	b.mu.Lock()
	closed := b.closed
	if !closed {
		b.unsubs = append(b.unsubs, unsubMessages, unsubReplies)
	}
	b.mu.Unlock()
	if closed {
		unsubMessages()
		unsubReplies()
	}
}

// Close stops both subscriptions. Updates arriving afterwards are dropped.
func (b *Board) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	unsubs := b.unsubs
	b.unsubs = nil
	b.listeners = make(map[int]func())
	b.mu.Unlock()

	for _, unsubscribe := range unsubs {
		unsubscribe()
	}
}

// OnChange registers fn to run after every accepted update. The returned
// func removes it.
func (b *Board) OnChange(fn func()) (remove func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.listeners[id] = fn
	return func() {
		b.mu.Lock()
		delete(b.listeners, id)
		b.mu.Unlock()
	}
}

// FindMessage looks a message up in the loaded snapshot.
func (b *Board) FindMessage(id string) (models.Message, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	m, ok := b.msgIndex[id]
	return m, ok
}

// FindReply looks a reply up in the loaded snapshot.
func (b *Board) FindReply(id string) (models.Reply, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r, ok := b.repIndex[id]
	return r, ok
}

// Snapshot returns copies of the loaded lists in store order.
func (b *Board) Snapshot() ([]models.Message, []models.Reply) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	msgs := make([]models.Message, len(b.msgs))
	copy(msgs, b.msgs)
	reps := make([]models.Reply, len(b.reps))
	copy(reps, b.reps)
	return msgs, reps
}

// Threads assembles the loaded snapshot for view.
func (b *Board) Threads(view *ThreadView) []Thread {
	msgs, reps := b.Snapshot()
	return view.Assemble(msgs, reps)
}

func (b *Board) setMessages(msgs []models.Message) {
	index := make(map[string]models.Message, len(msgs))
	for _, m := range msgs {
		index[m.ID] = m
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.msgs = msgs
	b.msgIndex = index
	listeners := b.snapshotListeners()
	b.mu.Unlock()
	notifyAll(listeners)
}

func (b *Board) setReplies(reps []models.Reply) {
	index := make(map[string]models.Reply, len(reps))
	for _, r := range reps {
		index[r.ID] = r
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.reps = reps
	b.repIndex = index
	listeners := b.snapshotListeners()
	b.mu.Unlock()
	notifyAll(listeners)
}

func (b *Board) snapshotListeners() []func() {
	out := make([]func(), 0, len(b.listeners))
	for _, fn := range b.listeners {
		out = append(out, fn)
	}
	return out
}

func (b *Board) streamError(stream string) func(error) {
	return func(err error) {
		b.logger.Error().Err(err).Str("stream", stream).Msg("Community subscription error")
	}
}

func notifyAll(listeners []func()) {
	for _, fn := range listeners {
		fn()
	}
}
