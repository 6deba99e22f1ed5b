package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Database struct {
	*gorm.DB
}

// NewDatabase opens a pooled gorm connection and waits up to maxWait for
// the server to answer.
func NewDatabase(ctx context.Context, dsn string, maxWait time.Duration, log *slog.Logger) (*Database, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	configurePool(sqlDB)

	if err := waitFor(ctx, sqlDB, maxWait, log); err != nil {
		return nil, err
	}

	log.Info("connected to database")

	return &Database{db}, nil
}

// OpenSQL opens a plain lib/pq handle for queries that do not go through gorm.
func OpenSQL(ctx context.Context, dsn string, maxWait time.Duration, log *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxIdleConns(2)
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(time.Hour)

	if err := waitFor(ctx, db, maxWait, log); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (db *Database) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func configurePool(sqlDB *sql.DB) {
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)
}

func waitFor(ctx context.Context, db *sql.DB, maxWait time.Duration, log *slog.Logger) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxWait
	err := backoff.RetryNotify(func() error {
		return db.PingContext(ctx)
	}, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		log.Warn("database not ready", "error", err, "retry_in", next)
	})
	if err != nil {
		return fmt.Errorf("failed to reach database: %w", err)
	}
	return nil
}
