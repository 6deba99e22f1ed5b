package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"moodchat/config"
	"moodchat/infrastructure"
	"moodchat/internal/api"
	"moodchat/internal/health"
)

const healthInterval = 15 * time.Second

type App struct {
	Server  *api.Server
	GRPC    *grpc.Server
	Monitor *health.Monitor
}

func ProvideApp(server *api.Server, grpcServer *grpc.Server, monitor *health.Monitor) *App {
	return &App{
		Server:  server,
		GRPC:    grpcServer,
		Monitor: monitor,
	}
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := infrastructure.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := InitializeApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize app", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	if err := run(ctx, cfg, app, logger); err != nil {
		logger.Error("server stopped", "error", err)
		cleanup()
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, app *App, logger *slog.Logger) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.Monitor.Run(ctx, healthInterval)
		return nil
	})
	g.Go(func() error {
		return app.Server.Run(ctx)
	})

	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return err
		}
		g.Go(func() error {
			logger.Info("starting gRPC server", "addr", cfg.GRPCAddr)
			if err := app.GRPC.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			app.GRPC.GracefulStop()
			return nil
		})
	}

	return g.Wait()
}
