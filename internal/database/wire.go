package database

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/wire"
	"gorm.io/gorm"

	"moodchat/config"
)

// ProvideDatabase is a Wire provider function that opens the gorm pool.
// It returns nil for the memory store driver.
func ProvideDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Database, func(), error) {
	if cfg.StoreDriver != config.StoreDriverPostgres {
		return nil, func() {}, nil
	}
	db, err := NewDatabase(ctx, cfg.DatabaseURL, cfg.DBConnectTimeout, logger)
	if err != nil {
		return nil, nil, err
	}
	return db, func() {
		if err := db.Close(); err != nil {
			logger.Error("error closing database connection", "error", err)
		}
	}, nil
}

// ProvideGormDB is a Wire provider function that unwraps the gorm handle
func ProvideGormDB(db *Database) *gorm.DB {
	if db == nil {
		return nil
	}
	return db.DB
}

// ProvideSQL is a Wire provider function that opens the lib/pq handle used
// for profile lookups. It returns nil for the memory store driver.
func ProvideSQL(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sql.DB, func(), error) {
	if cfg.StoreDriver != config.StoreDriverPostgres {
		return nil, func() {}, nil
	}
	db, err := OpenSQL(ctx, cfg.DatabaseURL, cfg.DBConnectTimeout, logger)
	if err != nil {
		return nil, nil, err
	}
	return db, func() {
		if err := db.Close(); err != nil {
			logger.Error("error closing database connection", "error", err)
		}
	}, nil
}

var Set = wire.NewSet(ProvideDatabase, ProvideGormDB, ProvideSQL)
