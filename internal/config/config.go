package config // package config loads application configuration from environment variables

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the runtime configuration shared by the server and the CLI
// tools. Each field corresponds to an environment variable.
type Config struct {
	Env              string        // application environment (dev, test, prod)
	Port             string        // HTTP port to listen on
	DBUser           string        // database username
	DBPass           string        // database password (optional)
	DBHost           string        // database host address
	DBPort           string        // database port number
	DBName           string        // database name
	DBMaxOpenConns   int           // pool size
	StatementTimeout time.Duration // upper bound for one statement or transaction
	BcryptCost       int           // bcrypt cost for password hashing
	LogLevel         string
	LogFormat        string
	AutoMigrate      bool // run EnsureSchema on startup
}

// ETLConfig carries the settings of the ingestion engine and its catalog
// source client.
type ETLConfig struct {
	TMDBAPIKey           string
	TMDBBaseURL          string
	RequestTimeout       time.Duration // per HTTP request
	MaxRetries           int           // attempts per page or detail fetch beyond the first
	RatePerSecond        float64
	RateBurst            int
	BreakerFailures      int           // consecutive failures that open the breaker
	BreakerOpenFor       time.Duration // how long the breaker stays open
	Pages                int           // default pages per kind
	MinVoteCount         int           // records below are skipped
	RequirePoster        bool
	MaxCast              int
	MaxEpisodesPerSeason int
	PersonDetailsTop     int // cast members per title enriched with biography and birthday
	PublishEvents        bool
}

// LoadDotEnv loads a .env file from the working directory when present.
// A missing file is not an error.
func LoadDotEnv() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}
}

// Load reads the core configuration. Missing required variables are collected
// into one error so the operator sees all of them at once.
func Load() (Config, error) {
	var missing []string
	must := func(key string) string {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg := Config{
		Env:              envStr("APP_ENV", "dev"),
		Port:             envStr("APP_PORT", "8080"),
		DBUser:           must("DB_USER"),
		DBPass:           os.Getenv("DB_PASS"), // empty allowed
		DBHost:           must("DB_HOST"),
		DBPort:           envStr("DB_PORT", "3306"),
		DBName:           must("DB_NAME"),
		DBMaxOpenConns:   envInt("DB_MAX_OPEN_CONNS", 25),
		StatementTimeout: envDur("DB_STATEMENT_TIMEOUT", 10*time.Second),
		BcryptCost:       envInt("BCRYPT_COST", 10),
		LogLevel:         envStr("LOG_LEVEL", "info"),
		LogFormat:        envStr("LOG_FORMAT", "json"),
		AutoMigrate:      envBool("DB_AUTO_MIGRATE", true),
	}
	if len(missing) > 0 {
		return cfg, fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	if cfg.StatementTimeout <= 0 {
		cfg.StatementTimeout = 10 * time.Second
	}
	return cfg, nil
}

// LoadETLConfig reads the ingestion settings. The API key is required only by
// callers that actually contact the catalog source, so it is not enforced here.
func LoadETLConfig() ETLConfig {
	c := ETLConfig{
		TMDBAPIKey:           os.Getenv("TMDB_API_KEY"),
		TMDBBaseURL:          envStr("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		RequestTimeout:       envDur("TMDB_TIMEOUT", 20*time.Second),
		MaxRetries:           envInt("TMDB_MAX_RETRIES", 3),
		RatePerSecond:        envFloat("TMDB_RATE_PER_SEC", 4),
		RateBurst:            envInt("TMDB_RATE_BURST", 8),
		BreakerFailures:      envInt("TMDB_BREAKER_FAILURES", 5),
		BreakerOpenFor:       envDur("TMDB_BREAKER_OPEN_FOR", 30*time.Second),
		Pages:                envInt("ETL_PAGES", 3),
		MinVoteCount:         envInt("ETL_MIN_VOTE_COUNT", 0),
		RequirePoster:        envBool("ETL_REQUIRE_POSTER", false),
		MaxCast:              envInt("ETL_MAX_CAST", 25),
		MaxEpisodesPerSeason: envInt("ETL_MAX_EPISODES_PER_SEASON", 50),
		PersonDetailsTop:     envInt("ETL_PERSON_DETAILS_TOP", 0),
		PublishEvents:        envBool("ETL_PUBLISH_EVENTS", true),
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.Pages < 1 {
		c.Pages = 1
	}
	if c.RateBurst < 1 {
		c.RateBurst = 1
	}
	return c
}

func envFloat(k string, d float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return d
}
