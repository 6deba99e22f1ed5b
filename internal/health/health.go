// Package health reports dependency status over HTTP, gRPC and grpc-web.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/improbable-eng/grpc-web/go/grpcweb"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"moodchat/infrastructure"
)

const checkTimeout = 2 * time.Second

// Check probes one dependency.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// Monitor runs the checks and mirrors the results into a gRPC health server.
// The empty service name carries the overall status.
type Monitor struct {
	checks []Check
	server *grpchealth.Server
	logger *slog.Logger
}

func NewMonitor(logger *slog.Logger, checks ...Check) *Monitor {
	return &Monitor{
		checks: checks,
		server: grpchealth.NewServer(),
		logger: logger,
	}
}

// Probe runs every check once and reports whether all passed.
func (m *Monitor) Probe(ctx context.Context) (map[string]string, bool) {
	results := make(map[string]string, len(m.checks))
	healthy := true
	for _, c := range m.checks {
		cctx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := c.Ping(cctx)
		cancel()

		status := healthpb.HealthCheckResponse_SERVING
		results[c.Name] = "ok"
		if err != nil {
			healthy = false
			status = healthpb.HealthCheckResponse_NOT_SERVING
			results[c.Name] = err.Error()
			m.logger.Warn("health check failed", "check", c.Name, "error", err)
		}
		m.server.SetServingStatus(c.Name, status)
	}
	overall := healthpb.HealthCheckResponse_SERVING
	if !healthy {
		overall = healthpb.HealthCheckResponse_NOT_SERVING
	}
	m.server.SetServingStatus("", overall)
	return results, healthy
}

// Run probes every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	m.Probe(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.server.Shutdown()
			return
		case <-ticker.C:
			m.Probe(ctx)
		}
	}
}

// ServeHTTP probes synchronously and answers 200 or 503.
func (m *Monitor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	results, healthy := m.Probe(r.Context())
	code, status := http.StatusOK, "ok"
	if !healthy {
		code, status = http.StatusServiceUnavailable, "degraded"
	}
	infrastructure.WriteJSON(w, code, map[string]interface{}{
		"status": status,
		"checks": results,
	})
}

// NewGRPCServer serves the health service with reflection enabled.
func NewGRPCServer(m *Monitor) *grpc.Server {
	s := grpc.NewServer(grpc.UnaryInterceptor(LoggingInterceptor(m.logger)))
	healthpb.RegisterHealthServer(s, m.server)
	reflection.Register(s)
	return s
}

// NewGRPCWeb exposes s to browsers on the HTTP listener.
func NewGRPCWeb(s *grpc.Server, allowedOrigins []string) *grpcweb.WrappedGrpcServer {
	return grpcweb.WrapServer(s, grpcweb.WithOriginFunc(func(origin string) bool {
		for _, o := range allowedOrigins {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}))
}
