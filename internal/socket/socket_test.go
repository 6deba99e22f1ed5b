package socket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moodchat/infrastructure"
	"moodchat/internal/auth"
	"moodchat/internal/chat"
	"moodchat/internal/events"
	"moodchat/internal/presence"
	"moodchat/internal/user"
	"moodchat/pkg/jwt"
)

type stack struct {
	server   *httptest.Server
	registry *presence.Registry
	tokens   *jwt.JWT
}

func newStack(t *testing.T, withAuth bool, opts Options) *stack {
	t.Helper()
	logger := infrastructure.DiscardLogger()
	registry := presence.NewRegistry(logger)
	svc := chat.NewChatService(chat.NewMemoryRepository(), registry, user.NewStaticDirectory(), logger, chat.Options{})

	s := &stack{registry: registry, tokens: jwt.NewJWT([]byte("secret"), time.Minute)}
	var mw *auth.Middleware
	if withAuth {
		mw = auth.NewMiddleware(s.tokens)
	}
	if opts.EventRate == 0 {
		opts.EventRate, opts.EventBurst = 100, 100
	}
	if opts.AllowedOrigins == nil {
		opts.AllowedOrigins = []string{"*"}
	}
	s.server = httptest.NewServer(NewHandler(chat.NewSocketHandler(svc, registry, logger), mw, opts, logger))
	t.Cleanup(s.server.Close)
	return s
}

func (s *stack) dial(t *testing.T, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.server.URL, "http") + query
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func emit(t *testing.T, ws *websocket.Conn, event string, payload any) {
	t.Helper()
	frame, err := events.Encode(event, payload)
	require.NoError(t, err)
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, frame))
}

// await reads frames until one named event arrives and decodes it into v.
func await(t *testing.T, ws *websocket.Conn, event string, v any) {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		_, frame, err := ws.ReadMessage()
		require.NoError(t, err, "waiting for %s", event)
		env, err := events.Decode(frame)
		require.NoError(t, err)
		if env.Event == event {
			if v != nil {
				require.NoError(t, json.Unmarshal(env.Data, v))
			}
			return
		}
	}
}

func TestEndToEndDelivery(t *testing.T) {
	s := newStack(t, false, Options{})

	alice := s.dial(t, "")
	emit(t, alice, events.Join, "u1")
	await(t, alice, events.OnlineUsers, nil)

	bob := s.dial(t, "")
	emit(t, bob, events.Join, map[string]string{"userId": "u2"})
	var online []string
	await(t, bob, events.OnlineUsers, &online)
	assert.ElementsMatch(t, []string{"u1", "u2"}, online)

	emit(t, alice, events.SendMessage, events.SendMessageRequest{SenderID: "u1", ReceiverID: "u2", TempID: "t1", Content: "hi"})

	var received chat.Message
	await(t, bob, events.MessageReceived, &received)
	assert.Equal(t, "u1", received.SenderID)
	assert.Equal(t, chat.StatusDelivered, received.Status)

	var ack events.Delivered
	await(t, alice, events.MessageDelivered, &ack)
	assert.Equal(t, received.ID, ack.PersistedID)
	assert.Equal(t, "t1", ack.TempID)

	require.NoError(t, bob.Close())
	var gone string
	await(t, alice, events.UserOffline, &gone)
	assert.Equal(t, "u2", gone)
	assert.Eventually(t, func() bool { return !s.registry.IsOnline("u2") }, 2*time.Second, 10*time.Millisecond)
}

func TestMalformedFrameGetsErrorEvent(t *testing.T) {
	s := newStack(t, false, Options{})
	ws := s.dial(t, "")

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("{nope")))
	var failure events.Failure
	await(t, ws, events.Error, &failure)
	assert.Contains(t, failure.Message, "malformed")
}

func TestRateLimitedEvents(t *testing.T) {
	s := newStack(t, false, Options{EventRate: 0.001, EventBurst: 1})
	ws := s.dial(t, "")

	emit(t, ws, events.Join, "u1")
	await(t, ws, events.OnlineUsers, nil)

	emit(t, ws, events.Typing, events.TypingRequest{SenderID: "u1", ReceiverID: "u2"})
	var failure events.Failure
	await(t, ws, events.Error, &failure)
	assert.Equal(t, "rate limit exceeded", failure.Message)
}

func TestAuthRequiresToken(t *testing.T) {
	s := newStack(t, true, Options{})
	url := "ws" + strings.TrimPrefix(s.server.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token, err := s.tokens.GenerateToken("u1")
	require.NoError(t, err)
	ws := s.dial(t, "?token="+token)

	emit(t, ws, events.Join, "u2")
	var failure events.Failure
	await(t, ws, events.Error, &failure)
	assert.Equal(t, events.Join, failure.Event)

	emit(t, ws, events.Join, "u1")
	await(t, ws, events.OnlineUsers, nil)
}

func TestOriginCheck(t *testing.T) {
	s := newStack(t, false, Options{AllowedOrigins: []string{"https://chat.example"}})
	url := "ws" + strings.TrimPrefix(s.server.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	ws, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://chat.example"}})
	require.NoError(t, err)
	ws.Close()
}
