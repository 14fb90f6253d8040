package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Roster backends.
const (
	RosterBackendMemory   = "memory"
	RosterBackendPostgres = "postgres"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	Cache     CacheConfig
	Auth      AuthConfig
	CORS      CORSConfig
	Log       LogConfig
	Roster    RosterConfig
	Scheduler SchedulerConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// CacheConfig governs the dashboard cache.
type CacheConfig struct {
	Enabled      bool
	Prefix       string
	DashboardTTL time.Duration
}

// AuthConfig toggles bearer-token protection of mutating routes.
type AuthConfig struct {
	Enabled    bool
	Secret     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// RosterConfig selects where teachers, classes, rules and requirements live.
type RosterConfig struct {
	Backend string
	Seed    bool
}

// SchedulerConfig tunes the timetable generator.
type SchedulerConfig struct {
	DayStart   string
	DayEnd     string
	SlotStep   time.Duration
	StepDelay  time.Duration
	Seed       int64
	MaxRetries int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Cache = CacheConfig{
		Enabled:      v.GetBool("ENABLE_CACHE"),
		Prefix:       v.GetString("CACHE_PREFIX"),
		DashboardTTL: parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), time.Minute),
	}

	cfg.Auth = AuthConfig{
		Enabled:    v.GetBool("AUTH_ENABLED"),
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	backend := strings.ToLower(strings.TrimSpace(v.GetString("ROSTER_BACKEND")))
	if backend != RosterBackendPostgres {
		backend = RosterBackendMemory
	}
	cfg.Roster = RosterConfig{
		Backend: backend,
		Seed:    v.GetBool("ROSTER_SEED"),
	}

	cfg.Scheduler = SchedulerConfig{
		DayStart:   v.GetString("SCHEDULER_DAY_START"),
		DayEnd:     v.GetString("SCHEDULER_DAY_END"),
		SlotStep:   parseDuration(v.GetString("SCHEDULER_SLOT_STEP"), time.Hour),
		StepDelay:  parseDuration(v.GetString("SCHEDULER_STEP_DELAY"), 0),
		Seed:       v.GetInt64("SCHEDULER_SEED"),
		MaxRetries: v.GetInt("SCHEDULER_MAX_RETRIES"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "sma_timetable")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("CACHE_PREFIX", "timetable")
	v.SetDefault("DASHBOARD_CACHE_TTL", "1m")

	v.SetDefault("AUTH_ENABLED", false)
	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ROSTER_BACKEND", RosterBackendMemory)
	v.SetDefault("ROSTER_SEED", false)

	v.SetDefault("SCHEDULER_DAY_START", "08:00")
	v.SetDefault("SCHEDULER_DAY_END", "16:00")
	v.SetDefault("SCHEDULER_SLOT_STEP", "60m")
	v.SetDefault("SCHEDULER_STEP_DELAY", "0s")
	v.SetDefault("SCHEDULER_SEED", 0)
	v.SetDefault("SCHEDULER_MAX_RETRIES", 1)
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
