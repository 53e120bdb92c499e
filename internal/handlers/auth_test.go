package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/motorhub/backend/internal/apperrors"
	"github.com/anonto42/motorhub/backend/internal/handlers"
	"github.com/anonto42/motorhub/backend/internal/middleware"
	"github.com/anonto42/motorhub/backend/internal/models"
	"github.com/anonto42/motorhub/backend/validators"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryUsers struct {
	mu    sync.Mutex
	byUID map[string]models.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byUID: make(map[string]models.User)}
}

func (m *memoryUsers) CreateUser(user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byUID[user.FirebaseUID] = *user
	return nil
}

func (m *memoryUsers) GetUserByFirebaseUID(uid string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byUID[uid]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &u, nil
}

func (m *memoryUsers) GetUserByEmail(email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byUID {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *memoryUsers) UpdateUser(user *models.User) error {
	return m.CreateUser(user)
}

func (m *memoryUsers) UpsertFromIdentity(uid, name, email, photo string) (*models.User, error) {
	u, err := m.GetUserByFirebaseUID(uid)
	if errors.Is(err, apperrors.ErrNotFound) {
		u = &models.User{FirebaseUID: uid}
	}
	if name != "" {
		u.DisplayName = name
	}
	if email != "" {
		u.Email = email
	}
	if photo != "" {
		u.PhotoURL = photo
	}
	return u, m.CreateUser(u)
}

type fakeProvider struct {
	mu      sync.Mutex
	revoked []string
	updates []string
}

func (p *fakeProvider) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	if idToken != "good-firebase-token" {
		return nil, errors.New("bad token")
	}
	return &auth.Token{UID: "fb-1", Claims: map[string]interface{}{
		"name":  "Fiona",
		"email": "fiona@example.com",
	}}, nil
}

func (p *fakeProvider) RevokeRefreshTokens(_ context.Context, uid string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revoked = append(p.revoked, uid)
	return nil
}

func (p *fakeProvider) PasswordResetLink(_ context.Context, email string) (string, error) {
	return "https://reset.example.com/?email=" + email, nil
}

func (p *fakeProvider) UpdateUser(_ context.Context, uid string, _ *auth.UserToUpdate) (*auth.UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, uid)
	return &auth.UserRecord{}, nil
}

// newAuthServer mounts the auth and profile handlers. provider may be nil.
func newAuthServer(t *testing.T, provider handlers.AuthProvider) *testServer {
	t.Helper()
	logger := zerolog.Nop()
	users := newMemoryUsers()

	e := echo.New()
	e.Validator = validators.NewValidator()
	api := e.Group("/api/v1", middleware.Authenticate(middleware.AuthConfig{JWTSecret: testSecret}))

	authHandler := handlers.NewAuthHandler(users, provider, handlers.AuthOptions{
		JWTSecret:        testSecret,
		TokenTTL:         time.Hour,
		ExposeResetLinks: true,
	}, logger)
	authHandler.RegisterAuthRoutes(e.Group("/api/v1/auth"))
	authHandler.RegisterSessionRoutes(api.Group("/auth"))
	handlers.NewUserHandler(users, provider, logger).RegisterProfileRoutes(api)

	return &testServer{e: e}
}

type sessionResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func TestAuth_LocalSignupAndSignIn(t *testing.T) {
	s := newAuthServer(t, nil)

	signup := map[string]string{"displayName": "Dana", "email": "Dana@Example.com", "password": "hunter2hunter2"}
	rec := s.do(t, http.MethodPost, "/api/v1/auth/signup", "", signup)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	session := decode[sessionResponse](t, rec)
	require.NotEmpty(t, session.Token)
	assert.True(t, strings.HasPrefix(session.User.FirebaseUID, "local:"))
	assert.Equal(t, "dana@example.com", session.User.Email)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/signup", "", signup)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/signin", "", map[string]string{"email": "dana@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/signin", "", map[string]string{"email": "dana@example.com", "password": "hunter2hunter2"})
	require.Equal(t, http.StatusOK, rec.Code)
	token := decode[sessionResponse](t, rec).Token

	rec = s.do(t, http.MethodGet, "/api/v1/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Dana", decode[models.User](t, rec).DisplayName)

	rec = s.do(t, http.MethodPut, "/api/v1/auth/password", token, map[string]string{"password": "correct-horse"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/signin", "", map[string]string{"email": "dana@example.com", "password": "correct-horse"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_SignupValidation(t *testing.T) {
	s := newAuthServer(t, nil)

	rec := s.do(t, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{"displayName": "D", "email": "nope", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuth_FirebaseFlows(t *testing.T) {
	provider := &fakeProvider{}
	s := newAuthServer(t, provider)

	rec := s.do(t, http.MethodPost, "/api/v1/auth/firebase-login", "", map[string]string{"idToken": "forged"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/firebase-login", "", map[string]string{"idToken": "good-firebase-token"})
	require.Equal(t, http.StatusOK, rec.Code)
	session := decode[sessionResponse](t, rec)
	assert.Equal(t, "fb-1", session.User.FirebaseUID)
	assert.Equal(t, "Fiona", session.User.DisplayName)

	rec = s.do(t, http.MethodPut, "/api/v1/profile", session.Token, map[string]string{"displayName": "Fi"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Fi", decode[models.User](t, rec).DisplayName)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/signout", session.Token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/password-reset", "", map[string]string{"email": "fiona@example.com"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, decode[map[string]string](t, rec)["link"], "fiona@example.com")

	provider.mu.Lock()
	defer provider.mu.Unlock()
	assert.Equal(t, []string{"fb-1"}, provider.revoked)
	assert.Equal(t, []string{"fb-1"}, provider.updates)
}

func TestAuth_LocalSignOutDoesNotTouchFirebase(t *testing.T) {
	provider := &fakeProvider{}
	s := newAuthServer(t, provider)

	rec := s.do(t, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{"displayName": "Lee", "email": "lee@example.com", "password": "longenough"})
	require.Equal(t, http.StatusCreated, rec.Code)
	token := decode[sessionResponse](t, rec).Token

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodPost, "/api/v1/auth/signout", token, nil).Code)

	provider.mu.Lock()
	defer provider.mu.Unlock()
	assert.Empty(t, provider.revoked)
}

func TestAuth_FirebaseUnavailableWithoutProvider(t *testing.T) {
	s := newAuthServer(t, nil)

	rec := s.do(t, http.MethodPost, "/api/v1/auth/firebase-login", "", map[string]string{"idToken": "anything"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/password-reset", "", map[string]string{"email": "a@example.com"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
