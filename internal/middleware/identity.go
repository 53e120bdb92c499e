package middleware

import (
	"context"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/motorhub/backend/internal/models"
	"github.com/labstack/echo/v4"
)

const identityKey = "identity"

// Identity is the signed-in user behind a request.
type Identity struct {
	UID    string `json:"uid"`
	Name   string `json:"displayName"`
	Avatar string `json:"photoURL,omitempty"`
	Email  string `json:"email,omitempty"`
}

// Author is the snapshot stamped onto documents this user writes.
func (i Identity) Author() models.Author {
	return models.Author{ID: i.UID, Name: i.Name, Avatar: i.Avatar}
}

// TokenVerifier checks Firebase ID tokens. *auth.Client implements it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// AuthConfig says which credentials are accepted.
type AuthConfig struct {
	JWTSecret string
	Firebase  TokenVerifier
}

// Authenticate accepts a locally issued JWT or a Firebase ID token, taken
// from the Authorization header or, for WebSocket upgrades, the token query
// parameter.
func Authenticate(cfg AuthConfig) echo.MiddlewareFunc {
	return authenticate(cfg, true)
}

// OptionalAuthenticate is Authenticate for routes that also serve anonymous
// callers. A bad token is still rejected.
func OptionalAuthenticate(cfg AuthConfig) echo.MiddlewareFunc {
	return authenticate(cfg, false)
}

func authenticate(cfg AuthConfig, required bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := bearerToken(c)
			if err != nil {
				return err
			}
			if token == "" {
				if required {
					return echo.NewHTTPError(http.StatusUnauthorized, "Authorization header is missing")
				}
				return next(c)
			}

			identity, err := resolve(c.Request().Context(), cfg, token)
			if err != nil {
				return err
			}
			c.Set(identityKey, identity)
			c.Set("firebaseUID", identity.UID)
			return next(c)
		}
	}
}

func resolve(ctx context.Context, cfg AuthConfig, token string) (Identity, error) {
	if cfg.JWTSecret != "" {
		if identity, err := parseLocalJWT(cfg.JWTSecret, token); err == nil {
			return identity, nil
		}
	}
	if cfg.Firebase != nil {
		return verifyFirebaseToken(ctx, cfg.Firebase, token)
	}
	return Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
}

func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return c.QueryParam("token"), nil
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Authorization header must be in Bearer format")
	}
	return parts[1], nil
}

// CurrentIdentity returns the identity Authenticate stored on c.
func CurrentIdentity(c echo.Context) (Identity, bool) {
	identity, ok := c.Get(identityKey).(Identity)
	return identity, ok && identity.UID != ""
}

// MustIdentity is CurrentIdentity for routes behind Authenticate.
func MustIdentity(c echo.Context) (Identity, error) {
	identity, ok := CurrentIdentity(c)
	if !ok {
		return Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
	}
	return identity, nil
}
