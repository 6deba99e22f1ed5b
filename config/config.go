package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	HTTPAddr string `yaml:"http_addr"`
	GRPCAddr string `yaml:"grpc_addr"`

	StoreDriver      string        `yaml:"store_driver"`
	DatabaseURL      string        `yaml:"database_url"`
	DBConnectTimeout time.Duration `yaml:"db_connect_timeout"`

	RedisAddr       string        `yaml:"redis_addr"`
	ProfileCacheTTL time.Duration `yaml:"profile_cache_ttl"`

	JWTSecret      []byte   `yaml:"-"`
	AllowedOrigins []string `yaml:"allowed_origins"`

	EventRate  float64 `yaml:"event_rate"`
	EventBurst int     `yaml:"event_burst"`
	HTTPRate   int     `yaml:"http_rate"`

	DeliverOnFetch bool `yaml:"deliver_on_fetch"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

func Default() *Config {
	return &Config{
		HTTPAddr:         ":5000",
		GRPCAddr:         ":5001",
		StoreDriver:      StoreDriverPostgres,
		DatabaseURL:      "host=localhost user=postgres password=postgres dbname=moodchat port=5432 sslmode=disable",
		DBConnectTimeout: 30 * time.Second,
		ProfileCacheTTL:  5 * time.Minute,
		AllowedOrigins:   []string{"*"},
		EventRate:        20,
		EventBurst:       40,
		HTTPRate:         50,
		DeliverOnFetch:   true,
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// LoadConfig layers defaults, the optional YAML file named by CONFIG_FILE,
// a .env file and the process environment, in that order.
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return c.parseYAML(data)
}

func (c *Config) parseYAML(data []byte) error {
	var raw struct {
		Config    `yaml:",inline"`
		JWTSecret string `yaml:"jwt_secret"`
	}
	raw.Config = *c
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	*c = raw.Config
	if raw.JWTSecret != "" {
		c.JWTSecret = []byte(raw.JWTSecret)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	setString := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	setString("HTTP_ADDR", &c.HTTPAddr)
	setString("GRPC_ADDR", &c.GRPCAddr)
	setString("STORE_DRIVER", &c.StoreDriver)
	setString("DATABASE_URL", &c.DatabaseURL)
	setString("REDIS_ADDR", &c.RedisAddr)
	setString("LOG_LEVEL", &c.LogLevel)
	setString("LOG_FORMAT", &c.LogFormat)

	if v := getenv("JWT_SECRET"); v != "" {
		c.JWTSecret = []byte(v)
	}
	if v := getenv("ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = splitList(v)
	}

	var err error
	if v := getenv("DB_CONNECT_TIMEOUT"); v != "" {
		if c.DBConnectTimeout, err = time.ParseDuration(v); err != nil {
			return fmt.Errorf("DB_CONNECT_TIMEOUT: %w", err)
		}
	}
	if v := getenv("PROFILE_CACHE_TTL"); v != "" {
		if c.ProfileCacheTTL, err = time.ParseDuration(v); err != nil {
			return fmt.Errorf("PROFILE_CACHE_TTL: %w", err)
		}
	}
	if v := getenv("EVENT_RATE"); v != "" {
		if c.EventRate, err = strconv.ParseFloat(v, 64); err != nil {
			return fmt.Errorf("EVENT_RATE: %w", err)
		}
	}
	if v := getenv("EVENT_BURST"); v != "" {
		if c.EventBurst, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("EVENT_BURST: %w", err)
		}
	}
	if v := getenv("HTTP_RATE"); v != "" {
		if c.HTTPRate, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("HTTP_RATE: %w", err)
		}
	}
	if v := getenv("DELIVER_ON_FETCH"); v != "" {
		if c.DeliverOnFetch, err = strconv.ParseBool(v); err != nil {
			return fmt.Errorf("DELIVER_ON_FETCH: %w", err)
		}
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s store", c.StoreDriver)
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.HTTPAddr == "" {
		return fmt.Errorf("HTTP_ADDR is required")
	}
	if c.EventRate <= 0 || c.EventBurst <= 0 {
		return fmt.Errorf("EVENT_RATE and EVENT_BURST must be positive")
	}
	if c.HTTPRate <= 0 {
		return fmt.Errorf("HTTP_RATE must be positive")
	}
	return nil
}

// AuthEnabled reports whether bearer tokens are required.
func (c *Config) AuthEnabled() bool {
	return len(c.JWTSecret) > 0
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
