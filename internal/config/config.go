package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Port        string
	Store       string
	DatabaseURL string
	DBMaxConns  int32
	// MigrationsDir overrides the embedded migrations when set.
	MigrationsDir string

	JWTSecret   string
	TokenTTL    time.Duration
	CORSOrigins []string

	GeminiAPIKey    string
	GeminiModel     string
	QuestAITimeout  time.Duration
	GoalAITimeout   time.Duration
	RedisURL        string
	TextgenCacheTTL time.Duration

	QuestTTL           time.Duration
	QuestSweepSchedule string

	LogLevel  string
	LogFormat string
}

// Load reads the environment, after merging a .env file from the working
// directory when one exists. Variables already set win over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return fromEnv(os.Getenv)
}

func fromEnv(getenv func(string) string) (Config, error) {
	var errs []error
	env := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}
	dur := func(key string, def time.Duration) time.Duration {
		raw := env(key, "")
		if raw == "" {
			return def
		}
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("%s: invalid duration %q", key, raw))
			return def
		}
		return d
	}

	cfg := Config{
		Port:               env("PORT", "8080"),
		Store:              strings.ToLower(env("STORE", StorePostgres)),
		DatabaseURL:        env("DATABASE_URL", ""),
		MigrationsDir:      env("MIGRATIONS_DIR", ""),
		JWTSecret:          env("JWT_SECRET", ""),
		TokenTTL:           dur("TOKEN_TTL", 24*time.Hour),
		CORSOrigins:        splitList(env("CORS_ORIGINS", "http://localhost:5173")),
		GeminiAPIKey:       env("GEMINI_API_KEY", ""),
		GeminiModel:        env("GEMINI_MODEL", ""),
		QuestAITimeout:     dur("QUEST_AI_TIMEOUT", 15*time.Second),
		GoalAITimeout:      dur("GOAL_AI_TIMEOUT", 30*time.Second),
		RedisURL:           env("REDIS_URL", ""),
		TextgenCacheTTL:    dur("TEXTGEN_CACHE_TTL", time.Hour),
		QuestTTL:           dur("QUEST_TTL", 7*24*time.Hour),
		QuestSweepSchedule: env("QUEST_SWEEP_SCHEDULE", "@every 1h"),
		LogLevel:           env("LOG_LEVEL", "info"),
		LogFormat:          env("LOG_FORMAT", "json"),
	}

	if raw := env("DB_MAX_CONNS", ""); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || n <= 0 {
			errs = append(errs, fmt.Errorf("DB_MAX_CONNS: invalid value %q", raw))
		} else {
			cfg.DBMaxConns = int32(n)
		}
	}

	if cfg.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch cfg.Store {
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE: unknown store %q", cfg.Store))
	}
	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
