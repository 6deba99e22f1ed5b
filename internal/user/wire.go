package user

import (
	"database/sql"
	"log/slog"

	"github.com/google/wire"

	"moodchat/config"
	"moodchat/internal/cache"
)

// ProvideDirectory is a Wire provider function that picks the profile source
// for the configured store and puts the redis cache in front when available.
func ProvideDirectory(cfg *config.Config, db *sql.DB, redis *cache.RedisCache, logger *slog.Logger) Directory {
	var dir Directory = NewStaticDirectory()
	if db != nil {
		dir = NewPostgresDirectory(db)
	}
	if redis != nil {
		dir = NewCachedDirectory(dir, redis, cfg.ProfileCacheTTL, logger)
	}
	return dir
}

var Set = wire.NewSet(ProvideDirectory)
