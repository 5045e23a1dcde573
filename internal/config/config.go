package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	ListenAddr string

	// slot service
	SlotsBaseURL     string
	SlotsHTTPTimeout time.Duration
	SlotsMaxAttempts int
	SlotsRatePerSec  float64

	// sessions
	SessionStore  string
	SessionTTL    time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CookieHashKey  []byte
	CookieBlockKey []byte

	// DatabaseURL enables the booking journal when set.
	DatabaseURL string

	TelegramToken string

	LogLevel string
	LogDev   bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("LISTEN_ADDR", ":8080")
	v.SetDefault("SLOTS_BASE_URL", "https://restaurantslots.azurewebsites.net/api/")
	v.SetDefault("SLOTS_HTTP_TIMEOUT", "10s")
	v.SetDefault("SLOTS_MAX_ATTEMPTS", 3)
	v.SetDefault("SLOTS_RATE_PER_SEC", 0)
	v.SetDefault("SESSION_STORE", "memory")
	v.SetDefault("SESSION_TTL", "30m")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("COOKIE_HASH_KEY", "")
	v.SetDefault("COOKIE_BLOCK_KEY", "")
	v.SetDefault("TELEGRAM_BOT_TOKEN", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_DEV", false)
}

// FromEnv reads .env (if present), an optional tablebot.yaml, then the
// environment. Environment wins.
func FromEnv() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("tablebot")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}
	return load(v)
}

func load(v *viper.Viper) (Config, error) {
	cfg := Config{
		ListenAddr:       v.GetString("LISTEN_ADDR"),
		SlotsBaseURL:     v.GetString("SLOTS_BASE_URL"),
		SlotsHTTPTimeout: v.GetDuration("SLOTS_HTTP_TIMEOUT"),
		SlotsMaxAttempts: v.GetInt("SLOTS_MAX_ATTEMPTS"),
		SlotsRatePerSec:  v.GetFloat64("SLOTS_RATE_PER_SEC"),
		SessionStore:     strings.ToLower(strings.TrimSpace(v.GetString("SESSION_STORE"))),
		SessionTTL:       v.GetDuration("SESSION_TTL"),
		RedisAddr:        v.GetString("REDIS_ADDR"),
		RedisPassword:    v.GetString("REDIS_PASSWORD"),
		RedisDB:          v.GetInt("REDIS_DB"),
		DatabaseURL:      strings.TrimSpace(v.GetString("DATABASE_URL")),
		TelegramToken:    strings.TrimSpace(v.GetString("TELEGRAM_BOT_TOKEN")),
		LogLevel:         v.GetString("LOG_LEVEL"),
		LogDev:           v.GetBool("LOG_DEV"),
	}

	if cfg.SlotsHTTPTimeout <= 0 {
		return Config{}, fmt.Errorf("invalid SLOTS_HTTP_TIMEOUT")
	}
	if cfg.SlotsMaxAttempts < 1 {
		return Config{}, fmt.Errorf("invalid SLOTS_MAX_ATTEMPTS")
	}
	if cfg.SessionTTL <= 0 {
		return Config{}, fmt.Errorf("invalid SESSION_TTL")
	}
	switch cfg.SessionStore {
	case "memory", "redis":
	default:
		return Config{}, fmt.Errorf("SESSION_STORE must be memory or redis (got %q)", cfg.SessionStore)
	}

	var err error
	if cfg.CookieHashKey, err = optionalKey(v.GetString("COOKIE_HASH_KEY")); err != nil {
		return Config{}, fmt.Errorf("COOKIE_HASH_KEY: %w", err)
	}
	if cfg.CookieBlockKey, err = optionalKey(v.GetString("COOKIE_BLOCK_KEY")); err != nil {
		return Config{}, fmt.Errorf("COOKIE_BLOCK_KEY: %w", err)
	}
	return cfg, nil
}

// RequireCookieKeys is checked by the commands that serve the web channel.
func (c Config) RequireCookieKeys() error {
	if len(c.CookieHashKey) == 0 || len(c.CookieBlockKey) == 0 {
		return fmt.Errorf("COOKIE_HASH_KEY and COOKIE_BLOCK_KEY are required (32 and 32/16/24/32 bytes base64); run `tablebot keys`")
	}
	switch len(c.CookieBlockKey) {
	case 16, 24, 32:
	default:
		return fmt.Errorf("COOKIE_BLOCK_KEY must decode to 16, 24 or 32 bytes (got %d)", len(c.CookieBlockKey))
	}
	return nil
}

func optionalKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	return decodeB64(s)
}

func decodeB64(s string) ([]byte, error) {
	if b, err := os.ReadFile(s); err == nil {
		// allow pointing to file path for k8s secret mounts
		s = strings.TrimSpace(string(b))
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}
