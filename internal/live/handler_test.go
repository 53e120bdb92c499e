package live_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/anonto42/motorhub/backend/internal/community"
	"github.com/anonto42/motorhub/backend/internal/docstore"
	"github.com/anonto42/motorhub/backend/internal/live"
	"github.com/anonto42/motorhub/backend/internal/middleware"
	"github.com/anonto42/motorhub/backend/internal/models"
	"github.com/anonto42/motorhub/backend/internal/notifications"
	"github.com/anonto42/motorhub/backend/internal/repositories"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "live-test-secret"

type harness struct {
	url      string
	messages *community.MessageStore
	fanout   *notifications.Fanout
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := zerolog.Nop()

	replyRepo := repositories.NewDocstoreReplyRepository(docstore.NewMemoryCollection[models.Reply](models.CollectionReplies))
	messageRepo := repositories.NewDocstoreMessageRepository(docstore.NewMemoryCollection[models.Message](models.CollectionMessages))
	fanout := notifications.NewFanout(repositories.NewDocstoreNotificationRepository(
		docstore.NewMemoryCollection[models.Notification](models.CollectionNotifications)), logger)

	messages := community.NewMessageStore(messageRepo, replyRepo, logger)
	board := community.NewBoard(messages, community.NewReplyStore(messageRepo, replyRepo, fanout, logger), logger)
	board.Start(context.Background())
	t.Cleanup(board.Close)

	e := echo.New()
	authCfg := middleware.AuthConfig{JWTSecret: secret}
	h := live.NewHandler(board, fanout, time.Hour, logger)
	h.RegisterPublicRoutes(e.Group("/api/v1", middleware.OptionalAuthenticate(authCfg)))
	h.RegisterRoutes(e.Group("/api/v1", middleware.Authenticate(authCfg)))

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	return &harness{
		url:      "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1",
		messages: messages,
		fanout:   fanout,
	}
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// next reads frames until one of type want arrives.
func next(t *testing.T, conn *websocket.Conn, want string) json.RawMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var f frame
		require.NoError(t, conn.ReadJSON(&f))
		if f.Type == want {
			return f.Data
		}
	}
}

func threadsFrom(t *testing.T, raw json.RawMessage) []community.Thread {
	t.Helper()
	var threads []community.Thread
	require.NoError(t, json.Unmarshal(raw, &threads))
	return threads
}

func TestCommunityStream_PushesBoardChangesAndToggles(t *testing.T) {
	h := newHarness(t)
	conn := dial(t, h.url+"/ws/community")

	assert.Empty(t, threadsFrom(t, next(t, conn, "threads")))

	msg, err := h.messages.CreateMessage(context.Background(), models.Author{ID: "alice", Name: "Alice"}, "Track day on Saturday")
	require.NoError(t, err)

	threads := threadsFrom(t, next(t, conn, "threads"))
	require.Len(t, threads, 1)
	assert.Equal(t, msg.ID, threads[0].Message.ID)
	assert.False(t, threads[0].Expanded)
	assert.False(t, threads[0].IsOwn)

	require.NoError(t, conn.WriteJSON(live.Command{Type: "toggle", ID: msg.ID}))
	threads = threadsFrom(t, next(t, conn, "threads"))
	require.Len(t, threads, 1)
	assert.True(t, threads[0].Expanded)

	require.NoError(t, conn.WriteJSON(live.Command{Type: "bogus"}))
	next(t, conn, "error")
}

func TestNotificationStream_RequiresAuth(t *testing.T) {
	h := newHarness(t)

	_, resp, err := websocket.DefaultDialer.Dial(h.url+"/ws/notifications", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestNotificationStream_FeedNewAndOpenPanel(t *testing.T) {
	h := newHarness(t)
	token, err := middleware.IssueToken(secret, time.Hour, middleware.Identity{UID: "alice", Name: "Alice"})
	require.NoError(t, err)

	conn := dial(t, h.url+"/ws/notifications?token="+token)

	var state notifications.FeedState
	require.NoError(t, json.Unmarshal(next(t, conn, "feed"), &state))
	assert.Zero(t, state.UnreadCount)

	_, err = h.fanout.NotifyOnReply(context.Background(), "alice", models.Author{ID: "bob", Name: "Bob"}, "Count me in", "m1")
	require.NoError(t, err)

	var fresh []models.Notification
	require.NoError(t, json.Unmarshal(next(t, conn, "new"), &fresh))
	require.Len(t, fresh, 1)
	assert.Equal(t, "bob", fresh[0].SenderUserID)

	require.NoError(t, conn.WriteJSON(live.Command{Type: "open_panel"}))
	// The local update and the store round trip each push a feed frame.
	for i := 0; ; i++ {
		require.Less(t, i, 5, "unread count never reached zero")
		var s notifications.FeedState
		require.NoError(t, json.Unmarshal(next(t, conn, "feed"), &s))
		if s.UnreadCount == 0 {
			assert.Len(t, s.Notifications, 1)
			break
		}
	}
}
