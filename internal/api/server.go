package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/improbable-eng/grpc-web/go/grpcweb"

	"moodchat/config"
	"moodchat/infrastructure"
	"moodchat/internal/auth"
	"moodchat/internal/chat"
	"moodchat/internal/health"
	"moodchat/internal/metrics"
	"moodchat/internal/presence"
	"moodchat/internal/socket"
)

type Server struct {
	router   *mux.Router
	handler  http.Handler
	addr     string
	registry *presence.Registry
	logger   *slog.Logger
}

func NewServer(
	cfg *config.Config,
	chatHandler *chat.JSONHandler,
	socketHandler *socket.Handler,
	registry *presence.Registry,
	monitor *health.Monitor,
	grpcWeb *grpcweb.WrappedGrpcServer,
	authMiddleware *auth.Middleware,
	logger *slog.Logger,
) *Server {
	router := mux.NewRouter()
	router.Use(Logger(logger))

	server := &Server{
		router:   router,
		addr:     cfg.HTTPAddr,
		registry: registry,
		logger:   logger,
	}

	router.Handle("/health", monitor).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	router.Handle("/ws", socketHandler)

	apiRoute := router.PathPrefix("/api").Subrouter()
	apiRoute.Use(RateLimitMiddleware(cfg.HTTPRate))
	if authMiddleware != nil {
		apiRoute.Use(authMiddleware.Handler)
	}
	chatHandler.Register(apiRoute.PathPrefix("/chat").Subrouter())
	apiRoute.HandleFunc("/presence/online", server.onlineUsers).Methods(http.MethodGet)

	root := CORS(cfg.AllowedOrigins).Handler(router)
	server.handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if grpcWeb != nil && (grpcWeb.IsGrpcWebRequest(r) || grpcWeb.IsAcceptableGrpcCorsRequest(r)) {
			grpcWeb.ServeHTTP(w, r)
			return
		}
		root.ServeHTTP(w, r)
	})
	return server
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) onlineUsers(w http.ResponseWriter, r *http.Request) {
	infrastructure.WriteJSON(w, http.StatusOK, s.registry.OnlineUsers())
}
