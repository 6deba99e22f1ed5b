package cache

import (
	"context"
	"log/slog"

	"github.com/google/wire"

	"moodchat/config"
)

// ProvideRedisCache is a Wire provider function that returns nil when no
// REDIS_ADDR is configured.
func ProvideRedisCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*RedisCache, func(), error) {
	if cfg.RedisAddr == "" {
		return nil, func() {}, nil
	}
	c, err := NewRedisCache(ctx, cfg.RedisAddr, cfg.DBConnectTimeout)
	if err != nil {
		return nil, nil, err
	}
	return c, func() {
		if err := c.Close(); err != nil {
			logger.Error("error closing redis connection", "error", err)
		}
	}, nil
}

var Set = wire.NewSet(ProvideRedisCache)
