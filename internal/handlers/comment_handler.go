package handlers

import (
	"net/http"

	"github.com/anonto42/motorhub/backend/internal/comments"
	"github.com/anonto42/motorhub/backend/internal/middleware"
	"github.com/anonto42/motorhub/backend/internal/models"
	"github.com/labstack/echo/v4"
)

// CommentHandler handles HTTP requests related to review comments
type CommentHandler struct {
	comments *comments.Service
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(svc *comments.Service) *CommentHandler {
	return &CommentHandler{comments: svc}
}

// RegisterPublicCommentRoutes registers read-only comment routes
func (h *CommentHandler) RegisterPublicCommentRoutes(g *echo.Group) {
	g.GET("/reviews/:review_id/comments", h.GetCommentsByReviewID)
}

// RegisterCommentRoutes registers comment-related routes
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group) {
	g.POST("/reviews/:review_id/comments", h.CreateComment)
	g.PUT("/comments/:id", h.UpdateComment)
	g.DELETE("/comments/:id", h.DeleteComment)
}

// CreateComment creates a new comment on a review
func (h *CommentHandler) CreateComment(c echo.Context) error {
	identity, err := middleware.MustIdentity(c)
	if err != nil {
		return err
	}

	var req models.CreateCommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	comment, err := h.comments.Create(c.Request().Context(), c.Param("review_id"), identity.Author(), req.Content)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, comment)
}

// GetCommentsByReviewID retrieves all comments for a specific review
func (h *CommentHandler) GetCommentsByReviewID(c echo.Context) error {
	return c.JSON(http.StatusOK, h.comments.ListByReview(c.Request().Context(), c.Param("review_id")))
}

// UpdateComment updates an existing comment
func (h *CommentHandler) UpdateComment(c echo.Context) error {
	identity, err := middleware.MustIdentity(c)
	if err != nil {
		return err
	}

	var req models.UpdateCommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	updated, err := h.comments.Update(c.Request().Context(), c.Param("id"), identity.UID, req.Content)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"updated": updated})
}

// DeleteComment deletes a comment
func (h *CommentHandler) DeleteComment(c echo.Context) error {
	identity, err := middleware.MustIdentity(c)
	if err != nil {
		return err
	}
	if err := h.comments.Delete(c.Request().Context(), c.Param("id"), identity.UID); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
