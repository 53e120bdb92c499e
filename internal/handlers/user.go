package handlers

import (
	"errors"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/motorhub/backend/internal/apperrors"
	"github.com/anonto42/motorhub/backend/internal/middleware"
	"github.com/anonto42/motorhub/backend/internal/models"
	"github.com/anonto42/motorhub/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// UserHandler handles HTTP requests related to the caller's profile
type UserHandler struct {
	users    repositories.UserRepository
	provider AuthProvider
	logger   zerolog.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(users repositories.UserRepository, provider AuthProvider, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		users:    users,
		provider: provider,
		logger:   logger.With().Str("component", "profile").Logger(),
	}
}

// RegisterProfileRoutes registers user profile-related routes
func (h *UserHandler) RegisterProfileRoutes(g *echo.Group) {
	g.GET("/profile", h.GetProfile)
	g.PUT("/profile", h.UpdateProfile)
}

// GetProfile retrieves the authenticated user's profile. Callers that
// authenticated with a raw Firebase token get their mirror row created here.
func (h *UserHandler) GetProfile(c echo.Context) error {
	user, err := h.profile(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateProfile updates the display name and photo. Firebase accounts are
// updated at the provider first so both copies agree.
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	var req models.UpdateProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	req.DisplayName = strings.TrimSpace(req.DisplayName)

	user, err := h.profile(c)
	if err != nil {
		return err
	}

	if h.provider != nil && !isLocalUID(user.FirebaseUID) && (req.DisplayName != "" || req.PhotoURL != "") {
		params := &auth.UserToUpdate{}
		if req.DisplayName != "" {
			params = params.DisplayName(req.DisplayName)
		}
		if req.PhotoURL != "" {
			params = params.PhotoURL(req.PhotoURL)
		}
		if _, err := h.provider.UpdateUser(c.Request().Context(), user.FirebaseUID, params); err != nil {
			h.logger.Error().Err(err).Str("uid", user.FirebaseUID).Msg("failed to update firebase profile")
			return echo.NewHTTPError(http.StatusBadGateway, "Failed to update profile")
		}
	}

	if req.DisplayName != "" {
		user.DisplayName = req.DisplayName
	}
	if req.PhotoURL != "" {
		user.PhotoURL = req.PhotoURL
	}
	if err := h.users.UpdateUser(user); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *UserHandler) profile(c echo.Context) (*models.User, error) {
	identity, err := middleware.MustIdentity(c)
	if err != nil {
		return nil, err
	}
	user, err := h.users.GetUserByFirebaseUID(identity.UID)
	if errors.Is(err, apperrors.ErrNotFound) && !isLocalUID(identity.UID) {
		user, err = h.users.UpsertFromIdentity(identity.UID, identity.Name, identity.Email, identity.Avatar)
	}
	if err != nil {
		return nil, toHTTPError(err)
	}
	return user, nil
}
