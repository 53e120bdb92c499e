package handlers

import (
	"net/http"
	"strings"

	"github.com/anonto42/motorhub/backend/internal/community"
	"github.com/anonto42/motorhub/backend/internal/middleware"
	"github.com/anonto42/motorhub/backend/internal/models"
	"github.com/labstack/echo/v4"
)

// CommunityHandler handles HTTP requests for the community board
type CommunityHandler struct {
	messages *community.MessageStore
	replies  *community.ReplyStore
	board    *community.Board
}

// NewCommunityHandler creates a new CommunityHandler
func NewCommunityHandler(messages *community.MessageStore, replies *community.ReplyStore, board *community.Board) *CommunityHandler {
	return &CommunityHandler{messages: messages, replies: replies, board: board}
}

// RegisterPublicCommunityRoutes registers read routes that work signed out
func (h *CommunityHandler) RegisterPublicCommunityRoutes(g *echo.Group) {
	g.GET("/community/threads", h.GetThreads)
	g.GET("/community/messages", h.GetMessages)
}

// RegisterCommunityRoutes registers routes that need a signed-in user
func (h *CommunityHandler) RegisterCommunityRoutes(g *echo.Group) {
	g.POST("/community/messages", h.CreateMessage)
	g.DELETE("/community/messages/:id", h.DeleteMessage)
	g.POST("/community/messages/:id/replies", h.CreateReply)
	g.DELETE("/community/replies/:id", h.DeleteReply)
}

// GetThreads assembles the board for the caller. Threads listed in the
// comma separated expanded parameter are returned uncollapsed.
func (h *CommunityHandler) GetThreads(c echo.Context) error {
	viewer, _ := middleware.CurrentIdentity(c)

	expanded := make(map[string]bool)
	for _, id := range strings.Split(c.QueryParam("expanded"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			expanded[id] = true
		}
	}

	msgs, reps := h.board.Snapshot()
	return c.JSON(http.StatusOK, community.Assemble(msgs, reps, viewer.UID, expanded))
}

// GetMessages returns every message oldest first
func (h *CommunityHandler) GetMessages(c echo.Context) error {
	msgs := h.messages.ListMessages(c.Request().Context())
	return c.JSON(http.StatusOK, community.SortMessagesOldestFirst(msgs))
}

// CreateMessage posts a new message
func (h *CommunityHandler) CreateMessage(c echo.Context) error {
	identity, err := middleware.MustIdentity(c)
	if err != nil {
		return err
	}

	var req models.CreateMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	msg, err := h.messages.CreateMessage(c.Request().Context(), identity.Author(), req.Body)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, msg)
}

// DeleteMessage deletes the caller's message and its replies
func (h *CommunityHandler) DeleteMessage(c echo.Context) error {
	identity, err := middleware.MustIdentity(c)
	if err != nil {
		return err
	}
	if err := h.messages.DeleteMessage(c.Request().Context(), c.Param("id"), identity.UID); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// CreateReply replies to a message, or to a reply under it when replyToId
// is set
func (h *CommunityHandler) CreateReply(c echo.Context) error {
	identity, err := middleware.MustIdentity(c)
	if err != nil {
		return err
	}

	var req models.CreateReplyRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	reply, err := h.replies.CreateReply(c.Request().Context(), community.ReplyInput{
		ParentID:  c.Param("id"),
		ReplyToID: req.ReplyToID,
		Author:    identity.Author(),
		Body:      req.Body,
	}, h.board)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, reply)
}

// DeleteReply deletes one of the caller's replies
func (h *CommunityHandler) DeleteReply(c echo.Context) error {
	identity, err := middleware.MustIdentity(c)
	if err != nil {
		return err
	}
	if err := h.replies.DeleteReply(c.Request().Context(), c.Param("id"), identity.UID); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
