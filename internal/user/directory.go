package user

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"moodchat/infrastructure"
	"moodchat/internal/cache"
)

// Directory resolves user profiles. Implementations return
// infrastructure.ErrUserNotFound for unknown ids.
type Directory interface {
	Profile(ctx context.Context, userID string) (*Profile, error)
}

// PostgresDirectory reads the users table maintained by the account service.
type PostgresDirectory struct {
	db *sql.DB
}

func NewPostgresDirectory(db *sql.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

func (d *PostgresDirectory) Profile(ctx context.Context, userID string) (*Profile, error) {
	var (
		p         Profile
		avatarURL sql.NullString
		mood      sql.NullString
	)
	err := d.db.QueryRowContext(ctx, `
		SELECT id, username, profile_url, current_mood
		FROM users WHERE id = $1
	`, userID).Scan(&p.ID, &p.Username, &avatarURL, &mood)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, infrastructure.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}
	p.AvatarURL = avatarURL.String
	p.Mood = ParseMood(mood.String)
	return &p, nil
}

// ProfileCache is the subset of cache.RedisCache used by CachedDirectory.
type ProfileCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// CachedDirectory puts a read-through cache in front of another Directory.
// Cache failures degrade to a direct lookup.
type CachedDirectory struct {
	next   Directory
	cache  ProfileCache
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedDirectory(next Directory, c ProfileCache, ttl time.Duration, logger *slog.Logger) *CachedDirectory {
	return &CachedDirectory{next: next, cache: c, ttl: ttl, logger: logger}
}

func (d *CachedDirectory) Profile(ctx context.Context, userID string) (*Profile, error) {
	key := "profile:" + userID
	raw, err := d.cache.Get(ctx, key)
	switch {
	case err == nil:
		var p Profile
		if jerr := json.Unmarshal([]byte(raw), &p); jerr == nil {
			return &p, nil
		}
		d.logger.Warn("discarding corrupt cached profile", "user", userID)
	case !errors.Is(err, cache.ErrMiss):
		d.logger.Warn("profile cache read failed", "user", userID, "error", err)
	}

	p, err := d.next.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if data, jerr := json.Marshal(p); jerr == nil {
		if serr := d.cache.Set(ctx, key, data, d.ttl); serr != nil {
			d.logger.Warn("profile cache write failed", "user", userID, "error", serr)
		}
	}
	return p, nil
}

// StaticDirectory serves profiles from memory. It backs the memory store
// driver and tests.
type StaticDirectory struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

func NewStaticDirectory(profiles ...Profile) *StaticDirectory {
	d := &StaticDirectory{profiles: make(map[string]Profile, len(profiles))}
	for _, p := range profiles {
		d.Put(p)
	}
	return d
}

func (d *StaticDirectory) Put(p Profile) {
	p.Mood = ParseMood(string(p.Mood))
	d.mu.Lock()
	d.profiles[p.ID] = p
	d.mu.Unlock()
}

func (d *StaticDirectory) Profile(_ context.Context, userID string) (*Profile, error) {
	d.mu.RLock()
	p, ok := d.profiles[userID]
	d.mu.RUnlock()
	if !ok {
		return nil, infrastructure.ErrUserNotFound
	}
	return &p, nil
}
