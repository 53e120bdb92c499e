package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/motorhub/backend/internal/apperrors"
	"github.com/anonto42/motorhub/backend/internal/middleware"
	"github.com/anonto42/motorhub/backend/internal/models"
	"github.com/anonto42/motorhub/backend/internal/repositories"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// localUIDPrefix marks accounts created with email and password rather than
// through Firebase.
const localUIDPrefix = "local:"

// AuthProvider is the part of the Firebase auth client the handlers use.
// *auth.Client implements it.
type AuthProvider interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
	RevokeRefreshTokens(ctx context.Context, uid string) error
	PasswordResetLink(ctx context.Context, email string) (string, error)
	UpdateUser(ctx context.Context, uid string, user *auth.UserToUpdate) (*auth.UserRecord, error)
}

// AuthOptions configures AuthHandler
type AuthOptions struct {
	JWTSecret string
	TokenTTL  time.Duration
	// ExposeResetLinks returns generated password reset links in the
	// response body. Only for development, where no mailer is configured.
	ExposeResetLinks bool
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	users    repositories.UserRepository
	provider AuthProvider
	opts     AuthOptions
	logger   zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler. provider may be nil, in which
// case only local accounts are supported.
func NewAuthHandler(users repositories.UserRepository, provider AuthProvider, opts AuthOptions, logger zerolog.Logger) *AuthHandler {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 72 * time.Hour
	}
	return &AuthHandler{
		users:    users,
		provider: provider,
		opts:     opts,
		logger:   logger.With().Str("component", "auth").Logger(),
	}
}

// RegisterAuthRoutes registers authentication-related routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/signup", h.Signup)
	g.POST("/signin", h.SignIn)
	g.POST("/firebase-login", h.FirebaseLogin)
	g.POST("/password-reset", h.PasswordReset)
}

// RegisterSessionRoutes registers routes that act on the signed-in account
func (h *AuthHandler) RegisterSessionRoutes(g *echo.Group) {
	g.POST("/signout", h.SignOut)
	g.PUT("/password", h.UpdatePassword)
}

// Signup handles local user registration with email and password
func (h *AuthHandler) Signup(c echo.Context) error {
	var req models.CreateLocalUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	_, err := h.users.GetUserByEmail(email)
	if err == nil {
		return echo.NewHTTPError(http.StatusConflict, "User with this email already registered")
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return toHTTPError(err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to hash password")
	}

	user := &models.User{
		FirebaseUID: localUIDPrefix + uuid.NewString(),
		DisplayName: strings.TrimSpace(req.DisplayName),
		Email:       email,
		Password:    string(hashedPassword),
	}
	if err := h.users.CreateUser(user); err != nil {
		return toHTTPError(err)
	}
	h.logger.Info().Str("uid", user.FirebaseUID).Msg("local account created")

	return h.session(c, http.StatusCreated, user)
}

// SignIn handles local user authentication with email and password
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req models.SignInRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.users.GetUserByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
		}
		return toHTTPError(err)
	}
	// Firebase-backed accounts have no local password.
	if user.Password == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	}

	return h.session(c, http.StatusOK, user)
}

// FirebaseLoginRequest defines the request body for Firebase login
type FirebaseLoginRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

// FirebaseLogin verifies a Firebase ID token, mirrors the identity into the
// profile table and issues a local JWT
func (h *AuthHandler) FirebaseLogin(c echo.Context) error {
	if h.provider == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Firebase sign-in is not configured")
	}

	var req FirebaseLoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	token, err := h.provider.VerifyIDToken(c.Request().Context(), req.IDToken)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Firebase ID token")
	}

	name, _ := token.Claims["name"].(string)
	email, _ := token.Claims["email"].(string)
	picture, _ := token.Claims["picture"].(string)

	user, err := h.users.UpsertFromIdentity(token.UID, name, email, picture)
	if err != nil {
		return toHTTPError(err)
	}
	return h.session(c, http.StatusOK, user)
}

// SignOut revokes Firebase refresh tokens. Local sessions are stateless and
// end when the client drops the token.
func (h *AuthHandler) SignOut(c echo.Context) error {
	identity, err := middleware.MustIdentity(c)
	if err != nil {
		return err
	}
	if h.provider != nil && !isLocalUID(identity.UID) {
		if err := h.provider.RevokeRefreshTokens(c.Request().Context(), identity.UID); err != nil {
			h.logger.Error().Err(err).Str("uid", identity.UID).Msg("failed to revoke refresh tokens")
			return echo.NewHTTPError(http.StatusBadGateway, "Failed to sign out")
		}
	}
	return c.NoContent(http.StatusNoContent)
}

// PasswordReset generates a Firebase password reset link. The response does
// not reveal whether the account exists.
func (h *AuthHandler) PasswordReset(c echo.Context) error {
	if h.provider == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Password reset is not configured")
	}

	var req models.PasswordResetRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	resp := echo.Map{"message": "If the account exists, a reset link has been sent"}
	link, err := h.provider.PasswordResetLink(c.Request().Context(), req.Email)
	if err != nil {
		h.logger.Warn().Err(err).Msg("password reset link not generated")
		return c.JSON(http.StatusAccepted, resp)
	}
	if h.opts.ExposeResetLinks {
		resp["link"] = link
	}
	return c.JSON(http.StatusAccepted, resp)
}

// UpdatePassword changes the caller's password
func (h *AuthHandler) UpdatePassword(c echo.Context) error {
	identity, err := middleware.MustIdentity(c)
	if err != nil {
		return err
	}

	var req models.UpdatePasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if !isLocalUID(identity.UID) {
		if h.provider == nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "Firebase is not configured")
		}
		params := (&auth.UserToUpdate{}).Password(req.Password)
		if _, err := h.provider.UpdateUser(c.Request().Context(), identity.UID, params); err != nil {
			h.logger.Error().Err(err).Str("uid", identity.UID).Msg("failed to update firebase password")
			return echo.NewHTTPError(http.StatusBadGateway, "Failed to update password")
		}
		return c.NoContent(http.StatusNoContent)
	}

	user, err := h.users.GetUserByFirebaseUID(identity.UID)
	if err != nil {
		return toHTTPError(err)
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to hash password")
	}
	user.Password = string(hashedPassword)
	if err := h.users.UpdateUser(user); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) session(c echo.Context, status int, user *models.User) error {
	token, err := middleware.IssueToken(h.opts.JWTSecret, h.opts.TokenTTL, middleware.Identity{
		UID:    user.FirebaseUID,
		Name:   user.DisplayName,
		Avatar: user.PhotoURL,
		Email:  user.Email,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token")
	}
	return c.JSON(status, echo.Map{"token": token, "user": user})
}

func isLocalUID(uid string) bool {
	return strings.HasPrefix(uid, localUIDPrefix)
}
