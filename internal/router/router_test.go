package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anonto42/motorhub/backend/internal/middleware"
	"github.com/anonto42/motorhub/backend/pkg/config"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "router-test-secret-with-enough-bytes"

func newTestEcho(t *testing.T) *echo.Echo {
	t.Helper()
	e := echo.New()
	board, err := SetupRoutes(e, Dependencies{
		Config: &config.Config{
			Env:                      "development",
			DocstoreDriver:           config.DriverMemory,
			JWTSecret:                testSecret,
			JWTTTL:                   time.Hour,
			ContentAPIURL:            "http://127.0.0.1:1",
			ContentAPITimeout:        time.Second,
			NotificationPollInterval: time.Minute,
		},
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)
	require.NotNil(t, board)
	return e
}

func TestSetupRoutes_UnknownAPIPathIsNotFound(t *testing.T) {
	e := newTestEcho(t)
	token, err := middleware.IssueToken(testSecret, time.Hour, middleware.Identity{UID: "alice", Name: "Alice"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"unknown path without token", http.MethodGet, "/api/v1/does-not-exist", "", http.StatusNotFound},
		{"unknown path with token", http.MethodGet, "/api/v1/does-not-exist", token, http.StatusNotFound},
		{"unknown auth path", http.MethodPost, "/api/v1/auth/unknown", "", http.StatusNotFound},
		{"protected route without token", http.MethodGet, "/api/v1/notifications", "", http.StatusUnauthorized},
		{"protected route with token", http.MethodGet, "/api/v1/notifications", token, http.StatusOK},
		{"public route", http.MethodGet, "/api/v1/community/threads", "", http.StatusOK},
		{"health", http.MethodGet, "/health", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set(echo.HeaderAuthorization, "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
