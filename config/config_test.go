package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefaultsValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.False(t, cfg.AuthEnabled())
	assert.True(t, cfg.DeliverOnFetch)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(envOf(map[string]string{
		"HTTP_ADDR":         ":8080",
		"STORE_DRIVER":      "memory",
		"JWT_SECRET":        "s3cret",
		"ALLOWED_ORIGINS":   "https://a.example, https://b.example,",
		"PROFILE_CACHE_TTL": "90s",
		"EVENT_RATE":        "5.5",
		"DELIVER_ON_FETCH":  "false",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.True(t, cfg.AuthEnabled())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 90*time.Second, cfg.ProfileCacheTTL)
	assert.Equal(t, 5.5, cfg.EventRate)
	assert.False(t, cfg.DeliverOnFetch)
}

func TestApplyEnvRejectsBadNumbers(t *testing.T) {
	err := Default().applyEnv(envOf(map[string]string{"EVENT_BURST": "lots"}))
	assert.ErrorContains(t, err, "EVENT_BURST")
}

func TestYAMLFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moodchat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http_addr: ":7000"
store_driver: memory
jwt_secret: from-file
db_connect_timeout: 5s
allowed_origins: ["https://chat.example"]
`), 0o600))

	cfg := Default()
	require.NoError(t, cfg.loadFile(path))
	assert.Equal(t, ":7000", cfg.HTTPAddr)
	assert.Equal(t, []byte("from-file"), cfg.JWTSecret)
	assert.Equal(t, 5*time.Second, cfg.DBConnectTimeout)
	assert.Equal(t, []string{"https://chat.example"}, cfg.AllowedOrigins)
	assert.Equal(t, ":5001", cfg.GRPCAddr, "unset keys keep their defaults")

	require.NoError(t, cfg.applyEnv(envOf(map[string]string{"HTTP_ADDR": ":9000"})))
	assert.Equal(t, ":9000", cfg.HTTPAddr)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.StoreDriver = "mongo"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.DatabaseURL = ""
	assert.Error(t, cfg.Validate())

	cfg.StoreDriver = StoreDriverMemory
	assert.NoError(t, cfg.Validate())

	cfg.EventBurst = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsNonPositiveHTTPRate(t *testing.T) {
	for _, rps := range []int{0, -1} {
		cfg := Default()
		cfg.HTTPRate = rps
		assert.Error(t, cfg.Validate(), "HTTP_RATE=%d", rps)
	}

	cfg := Default()
	require.NoError(t, cfg.applyEnv(envOf(map[string]string{"HTTP_RATE": "0"})))
	assert.EqualError(t, cfg.Validate(), "HTTP_RATE must be positive")
}
