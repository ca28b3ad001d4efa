// Package config loads service configuration from the environment. A .env
// file in the working directory is honored when present; real deployments
// set the variables directly.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full service configuration.
type Config struct {
	Addr string

	PGDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	KeysDir string

	Issuer   string
	Audience string

	AccessTTL  time.Duration
	RefreshTTL time.Duration

	KeySetTTL time.Duration
	RegionTTL time.Duration
	TenantTTL time.Duration

	RefreshWindow int

	RateBurst  int
	RatePerSec int

	// RecursiveResolver switches region resolution to the single-query
	// traversal on Postgres.
	RecursiveResolver bool
}

// Load reads configuration from the environment with sane defaults.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:              getenv("HAZYNA_ADDR", ":8080"),
		PGDSN:             os.Getenv("HAZYNA_PG_DSN"),
		RedisAddr:         os.Getenv("HAZYNA_REDIS_ADDR"),
		RedisPassword:     os.Getenv("HAZYNA_REDIS_PASSWORD"),
		RedisDB:           atoi(getenv("HAZYNA_REDIS_DB", "0")),
		KeysDir:           getenv("HAZYNA_KEYS_DIR", "keys"),
		Issuer:            getenv("HAZYNA_ISSUER", "hazyna"),
		Audience:          getenv("HAZYNA_AUDIENCE", "hazyna:core"),
		AccessTTL:         parseDur(getenv("HAZYNA_ACCESS_TTL", "15m")),
		RefreshTTL:        parseDur(getenv("HAZYNA_REFRESH_TTL", "336h")),
		KeySetTTL:         parseDur(getenv("HAZYNA_KEYSET_TTL", "1h")),
		RegionTTL:         parseDur(getenv("HAZYNA_REGION_TTL", "1h")),
		TenantTTL:         parseDur(getenv("HAZYNA_TENANT_TTL", "30m")),
		RefreshWindow:     atoi(getenv("HAZYNA_REFRESH_WINDOW", "20")),
		RateBurst:         atoi(getenv("HAZYNA_RATE_BURST", "20")),
		RatePerSec:        atoi(getenv("HAZYNA_RATE_PER_SEC", "10")),
		RecursiveResolver: getenv("HAZYNA_RECURSIVE_RESOLVER", "false") == "true",
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoi(s string) int {
	i, _ := strconv.Atoi(s)
	return i
}

func parseDur(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return time.Minute
	}
	return d
}
