//go:build wireinject
// +build wireinject

package main

import (
	"context"
	"log/slog"

	"github.com/google/wire"

	"moodchat/config"
	"moodchat/internal/api"
	"moodchat/internal/auth"
	"moodchat/internal/cache"
	"moodchat/internal/chat"
	"moodchat/internal/database"
	"moodchat/internal/health"
	"moodchat/internal/presence"
	"moodchat/internal/socket"
	"moodchat/internal/user"
)

var AppSet = wire.NewSet(
	database.Set,
	cache.Set,
	user.Set,
	presence.Set,
	chat.Set,
	auth.Set,
	socket.Set,
	health.Set,
	api.Set,
	ProvideApp,
)

func InitializeApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, func(), error) {
	wire.Build(AppSet)

	return &App{}, nil, nil
}
