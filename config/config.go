package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"piazza/models"
)

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"

	localJWTSecret = "local-dev-secret"
)

type Config struct {
	Port    string
	Env     string // "local" or "prod"
	GinMode string

	Store    string // "mongo" or "memory"
	MongoURI string
	MongoDB  string

	JWTSecret string
	TokenTTL  time.Duration

	PostExpiration time.Duration
	Topics         models.Taxonomy
	SweepInterval  time.Duration

	RedisAddr     string
	MostActiveTTL time.Duration
	NatsURL       string
	OtelEndpoint  string

	CORSOrigins []string
}

// Load reads .env when present, then the environment.
func Load() (Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := Config{
		Port:         getEnv("PORT", "8080"),
		Env:          getEnv("APP_ENV", "local"),
		GinMode:      getEnv("GIN_MODE", "debug"),
		Store:        strings.ToLower(getEnv("STORE", StoreMongo)),
		MongoURI:     getEnv("MONGODB_URI", "mongodb://127.0.0.1:27017"),
		MongoDB:      getEnv("MONGODB_DB", "piazza"),
		JWTSecret:    getEnv("JWT_SECRET", ""),
		Topics:       models.ParseTaxonomy(getEnv("TOPICS", "Politics,Health,Sport,Tech")),
		RedisAddr:    getEnv("REDIS_ADDR", ""),
		NatsURL:      getEnv("NATS_URL", ""),
		OtelEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		CORSOrigins:  splitList(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080")),
	}

	var err error
	if cfg.TokenTTL, err = getDuration("TOKEN_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.PostExpiration, err = getDuration("POST_EXPIRATION", 5*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.SweepInterval, err = getDuration("SWEEP_INTERVAL", 0); err != nil {
		return Config{}, err
	}
	if cfg.MostActiveTTL, err = getDuration("MOST_ACTIVE_TTL", time.Minute); err != nil {
		return Config{}, err
	}

	if cfg.Store != StoreMongo && cfg.Store != StoreMemory {
		return Config{}, fmt.Errorf("STORE must be %q or %q, got %q", StoreMongo, StoreMemory, cfg.Store)
	}
	if cfg.PostExpiration <= 0 {
		return Config{}, fmt.Errorf("POST_EXPIRATION must be positive")
	}
	if cfg.JWTSecret == "" {
		if !cfg.IsLocal() {
			return Config{}, fmt.Errorf("JWT_SECRET must be set when APP_ENV=%s", cfg.Env)
		}
		cfg.JWTSecret = localJWTSecret
	}
	return cfg, nil
}

func (c Config) IsLocal() bool {
	return c.Env == "local"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(csv string) []string {
	var out []string
	for _, part := range strings.Split(csv, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}
