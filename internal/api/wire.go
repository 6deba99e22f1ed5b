package api

import (
	"github.com/google/wire"
	"github.com/improbable-eng/grpc-web/go/grpcweb"
	"google.golang.org/grpc"

	"moodchat/config"
	"moodchat/internal/health"
)

// ProvideGRPCWeb is a Wire provider function that wraps the health gRPC server
func ProvideGRPCWeb(s *grpc.Server, cfg *config.Config) *grpcweb.WrappedGrpcServer {
	return health.NewGRPCWeb(s, cfg.AllowedOrigins)
}

var Set = wire.NewSet(ProvideGRPCWeb, NewServer)
