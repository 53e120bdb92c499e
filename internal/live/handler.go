package live

import (
	"context"
	"time"

	"github.com/anonto42/motorhub/backend/internal/community"
	"github.com/anonto42/motorhub/backend/internal/metrics"
	"github.com/anonto42/motorhub/backend/internal/middleware"
	"github.com/anonto42/motorhub/backend/internal/models"
	"github.com/anonto42/motorhub/backend/internal/notifications"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const (
	channelCommunity     = "community"
	channelNotifications = "notifications"
)

// Handler upgrades requests to WebSocket sessions.
type Handler struct {
	board        *community.Board
	fanout       *notifications.Fanout
	pollInterval time.Duration
	logger       zerolog.Logger
}

// NewHandler creates a new live Handler. pollInterval drives the fallback
// refresh of notification feeds.
func NewHandler(board *community.Board, fanout *notifications.Fanout, pollInterval time.Duration, logger zerolog.Logger) *Handler {
	return &Handler{
		board:        board,
		fanout:       fanout,
		pollInterval: pollInterval,
		logger:       logger.With().Str("component", "live").Logger(),
	}
}

// RegisterPublicRoutes registers the community stream, which also serves
// signed-out viewers.
func (h *Handler) RegisterPublicRoutes(g *echo.Group) {
	g.GET("/ws/community", h.ServeCommunity)
}

// RegisterRoutes registers streams that need a signed-in user.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/ws/notifications", h.ServeNotifications)
}

// ServeCommunity streams assembled threads. Every board change sends a
// fresh "threads" event; a {"type":"toggle","id":...} command flips one
// thread between collapsed and expanded for this connection only.
func (h *Handler) ServeCommunity(c echo.Context) error {
	viewer, _ := middleware.CurrentIdentity(c)

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade connection")
		return nil
	}
	client := newClient(conn, h.logger.With().Str("channel", channelCommunity).Str("userID", viewer.UID).Logger())
	metrics.WebSocketConnections.WithLabelValues(channelCommunity).Inc()
	defer metrics.WebSocketConnections.WithLabelValues(channelCommunity).Dec()

	view := community.NewThreadView(viewer.UID)
	push := func() {
		client.Send(Event{Type: "threads", Data: h.board.Threads(view)})
	}

	remove := h.board.OnChange(push)
	defer remove()

	go client.writePump()
	push()

	client.readPump(func(cmd Command) {
		switch cmd.Type {
		case "toggle":
			if cmd.ID == "" {
				client.Send(Event{Type: "error", Data: "toggle needs an id"})
				return
			}
			view.Toggle(cmd.ID)
			push()
		case "ping":
			client.Send(Event{Type: "pong"})
		default:
			client.Send(Event{Type: "error", Data: "unknown command"})
		}
	})
	return nil
}

// ServeNotifications streams the caller's notification feed. "feed" events
// carry the list and unread badge, "new" events the notifications that just
// arrived. Commands: open_panel marks everything read, mark_read marks one.
func (h *Handler) ServeNotifications(c echo.Context) error {
	identity, err := middleware.MustIdentity(c)
	if err != nil {
		return err
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade connection")
		return nil
	}
	client := newClient(conn, h.logger.With().Str("channel", channelNotifications).Str("userID", identity.UID).Logger())
	metrics.WebSocketConnections.WithLabelValues(channelNotifications).Inc()
	defer metrics.WebSocketConnections.WithLabelValues(channelNotifications).Dec()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	feed := notifications.NewFeed(h.fanout, identity.UID, h.logger)
	defer feed.Close()
	feed.OnChange(func(state notifications.FeedState) {
		client.Send(Event{Type: "feed", Data: state})
	})
	feed.OnNew(func(fresh []models.Notification) {
		client.Send(Event{Type: "new", Data: fresh})
	})

	go client.writePump()
	feed.Start(ctx)
	feed.StartPolling(ctx, h.pollInterval)

	client.readPump(func(cmd Command) {
		switch cmd.Type {
		case "open_panel":
			if _, err := feed.OpenPanel(ctx); err != nil {
				client.Send(Event{Type: "error", Data: "could not open panel"})
			}
		case "mark_read":
			if cmd.ID == "" {
				client.Send(Event{Type: "error", Data: "mark_read needs an id"})
				return
			}
			if _, err := feed.MarkAsRead(ctx, cmd.ID); err != nil {
				client.Send(Event{Type: "error", Data: "could not mark notification as read"})
			}
		case "refresh":
			if err := feed.Refresh(ctx); err != nil {
				client.Send(Event{Type: "error", Data: "refresh failed"})
			}
		case "ping":
			client.Send(Event{Type: "pong"})
		default:
			client.Send(Event{Type: "error", Data: "unknown command"})
		}
	})
	return nil
}
