package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moodchat/config"
	"moodchat/infrastructure"
	"moodchat/internal/auth"
	"moodchat/internal/chat"
	"moodchat/internal/health"
	"moodchat/internal/presence"
	"moodchat/internal/presence/presencetest"
	"moodchat/internal/socket"
	"moodchat/internal/user"
	"moodchat/pkg/jwt"
)

func newTestServer(t *testing.T, cfg *config.Config) (*Server, *presence.Registry) {
	t.Helper()
	logger := infrastructure.DiscardLogger()
	registry := presence.NewRegistry(logger)
	repo := chat.NewMemoryRepository()
	svc := chat.NewChatService(repo, registry, user.NewStaticDirectory(), logger, chat.Options{})
	authMiddleware := auth.ProvideMiddleware(cfg)
	sock := socket.NewHandler(chat.NewSocketHandler(svc, registry, logger), authMiddleware, socket.ProvideOptions(cfg), logger)
	monitor := health.NewMonitor(logger, health.Check{Name: "store", Ping: repo.Ping})
	grpcWeb := health.NewGRPCWeb(health.NewGRPCServer(monitor), cfg.AllowedOrigins)

	return NewServer(cfg, chat.NewJSONChatHandler(svc), sock, registry, monitor, grpcWeb, authMiddleware, logger), registry
}

func serve(s *Server, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthAndMetrics(t *testing.T) {
	s, _ := newTestServer(t, config.Default())

	rec := serve(s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = serve(s, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "moodchat_online_users")
}

func TestOnlineUsers(t *testing.T) {
	s, registry := newTestServer(t, config.Default())
	require.NoError(t, registry.Register("u2", presencetest.NewConn("c2")))
	require.NoError(t, registry.Register("u1", presencetest.NewConn("c1")))

	rec := serve(s, http.MethodGet, "/api/presence/online", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["u1","u2"]`, rec.Body.String())
}

func TestAPIRequiresTokenWhenConfigured(t *testing.T) {
	cfg := config.Default()
	cfg.JWTSecret = []byte("secret")
	s, _ := newTestServer(t, cfg)

	rec := serve(s, http.MethodGet, "/api/chat/recent/u1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := jwt.NewJWT(cfg.JWTSecret, time.Minute).GenerateToken("u1")
	require.NoError(t, err)
	rec = serve(s, http.MethodGet, "/api/chat/recent/u1", "", http.Header{"Authorization": {"Bearer " + token}})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "health stays public")
}

func TestRateLimit(t *testing.T) {
	cfg := config.Default()
	cfg.HTTPRate = 1
	s, _ := newTestServer(t, cfg)

	assert.Equal(t, http.StatusOK, serve(s, http.MethodGet, "/api/presence/online", "", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(s, http.MethodGet, "/api/presence/online", "", nil).Code)
}

func TestCORSPreflight(t *testing.T) {
	cfg := config.Default()
	cfg.AllowedOrigins = []string{"https://chat.example"}
	s, _ := newTestServer(t, cfg)

	rec := serve(s, http.MethodOptions, "/api/chat/send", "", http.Header{
		"Origin":                        {"https://chat.example"},
		"Access-Control-Request-Method": {"POST"},
	})
	assert.Equal(t, "https://chat.example", rec.Header().Get("Access-Control-Allow-Origin"))
}
