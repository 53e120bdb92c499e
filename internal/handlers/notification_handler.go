package handlers

import (
	"net/http"
	"strconv"

	"github.com/anonto42/motorhub/backend/internal/middleware"
	"github.com/anonto42/motorhub/backend/internal/notifications"
	"github.com/labstack/echo/v4"
)

// NotificationHandler handles HTTP requests related to notifications
type NotificationHandler struct {
	fanout *notifications.Fanout
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(fanout *notifications.Fanout) *NotificationHandler {
	return &NotificationHandler{fanout: fanout}
}

// RegisterNotificationRoutes registers notification-related routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.GetNotifications)
	g.GET("/notifications/unread-count", h.GetUnreadCount)
	g.PUT("/notifications/read-all", h.MarkAllAsRead)
	g.PUT("/notifications/:id/read", h.MarkAsRead)
}

// GetNotifications returns the caller's notifications, newest first.
// ?unread=true limits the list to unread ones.
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	identity, err := middleware.MustIdentity(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	if unread, _ := strconv.ParseBool(c.QueryParam("unread")); unread {
		return c.JSON(http.StatusOK, h.fanout.ListUnread(ctx, identity.UID))
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid limit")
		}
	}
	return c.JSON(http.StatusOK, h.fanout.ListAll(ctx, identity.UID, limit))
}

// GetUnreadCount returns the number of unread notifications
func (h *NotificationHandler) GetUnreadCount(c echo.Context) error {
	identity, err := middleware.MustIdentity(c)
	if err != nil {
		return err
	}
	unread := h.fanout.ListUnread(c.Request().Context(), identity.UID)
	return c.JSON(http.StatusOK, echo.Map{"unreadCount": len(unread)})
}

// MarkAsRead marks a notification as read
func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	identity, err := middleware.MustIdentity(c)
	if err != nil {
		return err
	}
	updated, err := h.fanout.MarkAsRead(c.Request().Context(), c.Param("id"), identity.UID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"updated": updated})
}

// MarkAllAsRead marks all of the caller's notifications as read
func (h *NotificationHandler) MarkAllAsRead(c echo.Context) error {
	identity, err := middleware.MustIdentity(c)
	if err != nil {
		return err
	}
	count, err := h.fanout.MarkAllAsRead(c.Request().Context(), identity.UID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"updated": count})
}
