package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database     DatabaseConfig
	Redis        RedisConfig
	CORS         CORSConfig
	Log          LogConfig
	Recurrence   RecurrenceConfig
	Availability AvailabilityConfig
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

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// RecurrenceConfig governs the recurring-lesson extension job. LookaheadDays
// is the low-water mark that selects groups for extension; HorizonDays caps
// how far ahead instances are materialized; BatchSize caps instances per
// group per run.
type RecurrenceConfig struct {
	Enabled       bool
	RunInterval   time.Duration
	LookaheadDays int
	HorizonDays   int
	BatchSize     int
	WorkerRetries int
}

// AvailabilityConfig tunes the slot availability resolver.
type AvailabilityConfig struct {
	FetchTimeout time.Duration
	CacheEnabled bool
	CacheTTL     time.Duration
	SlotDuration time.Duration
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
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

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

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Recurrence = RecurrenceConfig{
		Enabled:       v.GetBool("ENABLE_RECURRENCE_JOB"),
		RunInterval:   parseDuration(v.GetString("RECURRENCE_RUN_INTERVAL"), 24*time.Hour),
		LookaheadDays: v.GetInt("RECURRENCE_LOOKAHEAD_DAYS"),
		HorizonDays:   v.GetInt("RECURRENCE_HORIZON_DAYS"),
		BatchSize:     v.GetInt("RECURRENCE_BATCH_SIZE"),
		WorkerRetries: v.GetInt("RECURRENCE_WORKER_RETRIES"),
	}

	cfg.Availability = AvailabilityConfig{
		FetchTimeout: parseDuration(v.GetString("AVAILABILITY_FETCH_TIMEOUT"), 5*time.Second),
		CacheEnabled: v.GetBool("ENABLE_AVAILABILITY_CACHE"),
		CacheTTL:     parseDuration(v.GetString("AVAILABILITY_CACHE_TTL"), time.Minute),
		SlotDuration: parseDuration(v.GetString("AVAILABILITY_SLOT_DURATION"), time.Hour),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "scheduling")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_RECURRENCE_JOB", true)
	v.SetDefault("RECURRENCE_RUN_INTERVAL", "24h")
	v.SetDefault("RECURRENCE_LOOKAHEAD_DAYS", 7)
	v.SetDefault("RECURRENCE_HORIZON_DAYS", 90)
	v.SetDefault("RECURRENCE_BATCH_SIZE", 20)
	v.SetDefault("RECURRENCE_WORKER_RETRIES", 3)

	v.SetDefault("AVAILABILITY_FETCH_TIMEOUT", "5s")
	v.SetDefault("ENABLE_AVAILABILITY_CACHE", false)
	v.SetDefault("AVAILABILITY_CACHE_TTL", "1m")
	v.SetDefault("AVAILABILITY_SLOT_DURATION", "1h")
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
