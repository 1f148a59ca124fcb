package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageLocal = "local"
	StorageGCS   = "gcs"
)

type Config struct {
	Port        int
	DatabaseURL string
	DBMaxConns  int32

	LogLevel  string
	LogFormat string

	JWTSecret         string
	TokenHourLifespan int

	UploadsDir      string
	StorageProvider string
	GCSBucket       string

	RedisAddress         string
	PublicRateLimit      int
	PublicRateWindow     time.Duration
	AllowCancelDelivered bool

	DefaultAdminEmail    string
	DefaultAdminPassword string
}

// Load reads the process environment, falling back to a .env file in the
// working directory for keys the environment leaves empty.
func Load() (Config, error) {
	envPath := filepath.Join(".", ".env")

	values := map[string]string{}
	if _, err := os.Stat(envPath); err == nil {
		fileValues, err := godotenv.Read(envPath)
		if err != nil {
			return Config{}, fmt.Errorf("read %s: %w", envPath, err)
		}
		values = fileValues
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("stat %s: %w", envPath, err)
	}
	return FromMap(values)
}

// FromMap builds a Config from file values, with the process environment
// taking precedence.
func FromMap(values map[string]string) (Config, error) {
	get := func(key string) string {
		return firstNonEmpty(os.Getenv(key), values[key])
	}

	cfg := Config{
		Port:                 8080,
		DBMaxConns:           20,
		LogLevel:             "info",
		LogFormat:            "json",
		TokenHourLifespan:    24,
		UploadsDir:           "./uploads",
		StorageProvider:      StorageLocal,
		PublicRateLimit:      30,
		PublicRateWindow:     time.Minute,
		AllowCancelDelivered: true,
	}

	var err error
	if cfg.Port, err = positiveInt("PORT", get("PORT"), cfg.Port); err != nil {
		return Config{}, err
	}
	maxConns, err := positiveInt("DB_MAX_CONNS", get("DB_MAX_CONNS"), int(cfg.DBMaxConns))
	if err != nil {
		return Config{}, err
	}
	cfg.DBMaxConns = int32(maxConns)

	cfg.DatabaseURL = get("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required (environment variable or .env)")
	}
	cfg.JWTSecret = get("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required (environment variable or .env)")
	}
	if cfg.TokenHourLifespan, err = positiveInt("TOKEN_HOUR_LIFESPAN", get("TOKEN_HOUR_LIFESPAN"), cfg.TokenHourLifespan); err != nil {
		return Config{}, err
	}

	if v := get("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := get("LOG_FORMAT"); v != "" {
		cfg.LogFormat = strings.ToLower(v)
		if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
			return Config{}, fmt.Errorf("invalid LOG_FORMAT: %q", v)
		}
	}

	if v := get("UPLOADS_DIR"); v != "" {
		cfg.UploadsDir = v
	}
	if v := get("STORAGE_PROVIDER"); v != "" {
		cfg.StorageProvider = strings.ToLower(v)
	}
	switch cfg.StorageProvider {
	case StorageLocal:
	case StorageGCS:
		cfg.GCSBucket = get("GCS_BUCKET")
		if cfg.GCSBucket == "" {
			return Config{}, fmt.Errorf("GCS_BUCKET is required when STORAGE_PROVIDER=gcs")
		}
	default:
		return Config{}, fmt.Errorf("invalid STORAGE_PROVIDER: %q", cfg.StorageProvider)
	}

	cfg.RedisAddress = get("REDIS_ADDRESS")
	if cfg.PublicRateLimit, err = positiveInt("PUBLIC_RATE_LIMIT", get("PUBLIC_RATE_LIMIT"), cfg.PublicRateLimit); err != nil {
		return Config{}, err
	}
	if v := get("PUBLIC_RATE_WINDOW"); v != "" {
		window, err := time.ParseDuration(v)
		if err != nil || window <= 0 {
			return Config{}, fmt.Errorf("invalid PUBLIC_RATE_WINDOW: %q", v)
		}
		cfg.PublicRateWindow = window
	}
	if v := get("ALLOW_CANCEL_DELIVERED"); v != "" {
		allow, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid ALLOW_CANCEL_DELIVERED: %q", v)
		}
		cfg.AllowCancelDelivered = allow
	}

	cfg.DefaultAdminEmail = firstNonEmpty(get("DEFAULT_ADMIN_EMAIL"), "admin@example.com")
	cfg.DefaultAdminPassword = get("DEFAULT_ADMIN_PASSWORD")

	return cfg, nil
}

func (c Config) TokenLifespan() time.Duration {
	return time.Duration(c.TokenHourLifespan) * time.Hour
}

func positiveInt(key, raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return v, nil
}

func firstNonEmpty(candidates ...string) string {
	for _, candidate := range candidates {
		if value := strings.TrimSpace(candidate); value != "" {
			return value
		}
	}
	return ""
}
