package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moodchat/infrastructure"
	"moodchat/internal/cache"
)

type mapCache struct {
	data    map[string]string
	failGet bool
	sets    int
}

func (c *mapCache) Get(_ context.Context, key string) (string, error) {
	if c.failGet {
		return "", errors.New("connection refused")
	}
	v, ok := c.data[key]
	if !ok {
		return "", cache.ErrMiss
	}
	return v, nil
}

func (c *mapCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.sets++
	c.data[key] = string(value.([]byte))
	return nil
}

type countingDirectory struct {
	Directory
	calls int
}

func (d *countingDirectory) Profile(ctx context.Context, id string) (*Profile, error) {
	d.calls++
	return d.Directory.Profile(ctx, id)
}

func TestParseMood(t *testing.T) {
	assert.Equal(t, MoodHappy, ParseMood(" Happy "))
	assert.Equal(t, MoodDefault, ParseMood(""))
	assert.Equal(t, MoodDefault, ParseMood("grumpy"))
}

func TestStaticDirectory(t *testing.T) {
	d := NewStaticDirectory(Profile{ID: "u1", Username: "ana", Mood: "calm"})

	p, err := d.Profile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, MoodCalm, p.Mood)

	_, err = d.Profile(context.Background(), "u2")
	assert.ErrorIs(t, err, infrastructure.ErrUserNotFound)
}

func TestCachedDirectoryReadsThrough(t *testing.T) {
	backing := &countingDirectory{Directory: NewStaticDirectory(Profile{ID: "u1", Username: "ana", Mood: MoodDark})}
	c := &mapCache{data: map[string]string{}}
	d := NewCachedDirectory(backing, c, time.Minute, infrastructure.DiscardLogger())

	for i := 0; i < 3; i++ {
		p, err := d.Profile(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, "ana", p.Username)
		assert.Equal(t, MoodDark, p.Mood)
	}
	assert.Equal(t, 1, backing.calls)
	assert.Equal(t, 1, c.sets)
}

func TestCachedDirectoryDegradesOnCacheFailure(t *testing.T) {
	backing := &countingDirectory{Directory: NewStaticDirectory(Profile{ID: "u1", Username: "ana"})}
	c := &mapCache{data: map[string]string{}, failGet: true}
	d := NewCachedDirectory(backing, c, time.Minute, infrastructure.DiscardLogger())

	_, err := d.Profile(context.Background(), "u1")
	require.NoError(t, err)
	_, err = d.Profile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, backing.calls)
}

func TestCachedDirectoryDoesNotCacheMisses(t *testing.T) {
	c := &mapCache{data: map[string]string{}}
	d := NewCachedDirectory(NewStaticDirectory(), c, time.Minute, infrastructure.DiscardLogger())

	_, err := d.Profile(context.Background(), "ghost")
	assert.ErrorIs(t, err, infrastructure.ErrUserNotFound)
	assert.Zero(t, c.sets)
}
