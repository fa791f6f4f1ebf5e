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

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Storage       StorageConfig
	Contributions ContributionsConfig
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

// JWTConfig holds verification parameters for session tokens issued by the
// identity service.
type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience []string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// StorageConfig locates the intake and materials buckets and bounds
// individual object operations.
type StorageConfig struct {
	IntakeDir    string
	MaterialsDir string
	OpTimeout    time.Duration
}

// ContributionsConfig tunes the review workflow.
type ContributionsConfig struct {
	MigrationWorkers  int
	CleanupRetries    int
	CleanupRetryDelay time.Duration
	ListCacheTTL      time.Duration
	DownloadURLSecret string
	DownloadURLTTL    time.Duration
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

	cfg.JWT = JWTConfig{
		Secret:   v.GetString("JWT_SECRET"),
		Issuer:   v.GetString("JWT_ISSUER"),
		Audience: splitAndTrim(v.GetString("JWT_AUDIENCE")),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Storage = StorageConfig{
		IntakeDir:    v.GetString("STORAGE_INTAKE_DIR"),
		MaterialsDir: v.GetString("STORAGE_MATERIALS_DIR"),
		OpTimeout:    parseDuration(v.GetString("STORAGE_OP_TIMEOUT"), 30*time.Second),
	}

	workers := v.GetInt("CONTRIB_MIGRATION_WORKERS")
	if workers <= 0 {
		workers = 4
	}
	cfg.Contributions = ContributionsConfig{
		MigrationWorkers:  workers,
		CleanupRetries:    v.GetInt("CONTRIB_CLEANUP_RETRIES"),
		CleanupRetryDelay: parseDuration(v.GetString("CONTRIB_CLEANUP_RETRY_DELAY"), 5*time.Second),
		ListCacheTTL:      parseDuration(v.GetString("CONTRIB_LIST_CACHE_TTL"), time.Minute),
		DownloadURLSecret: v.GetString("CONTRIB_DOWNLOAD_URL_SECRET"),
		DownloadURLTTL:    parseDuration(v.GetString("CONTRIB_DOWNLOAD_URL_TTL"), 30*time.Minute),
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
	v.SetDefault("DB_NAME", "labhub")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "labhub-identity")
	v.SetDefault("JWT_AUDIENCE", "labhub-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("STORAGE_INTAKE_DIR", "./data/intake")
	v.SetDefault("STORAGE_MATERIALS_DIR", "./data/materials")
	v.SetDefault("STORAGE_OP_TIMEOUT", "30s")

	v.SetDefault("CONTRIB_MIGRATION_WORKERS", 4)
	v.SetDefault("CONTRIB_CLEANUP_RETRIES", 3)
	v.SetDefault("CONTRIB_CLEANUP_RETRY_DELAY", "5s")
	v.SetDefault("CONTRIB_LIST_CACHE_TTL", "1m")
	v.SetDefault("CONTRIB_DOWNLOAD_URL_SECRET", "dev_download_secret")
	v.SetDefault("CONTRIB_DOWNLOAD_URL_TTL", "30m")
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
