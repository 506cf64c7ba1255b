package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Storage  StorageConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values and the stats cache lifetime.
type RedisConfig struct {
	Addr            string
	Password        string
	DB              int
	StatsTTLSeconds int
	KeyPrefix       string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level       string
	Development bool
	Service     string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int

	// Bootstrap admin created at startup when both are set.
	AdminEmail    string
	AdminPassword string
}

// StorageConfig locates attachment files and bounds upload size.
type StorageConfig struct {
	AttachmentDir  string
	MaxUploadBytes int64
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	appName := getEnv("APP_NAME", "helpdesk")

	cfg := &Config{
		App: AppConfig{
			Name:                  appName,
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:            os.Getenv("REDIS_ADDR"),
			Password:        os.Getenv("REDIS_PASSWORD"),
			DB:              redisDB,
			StatsTTLSeconds: getEnvAsInt("REDIS_STATS_TTL_SECONDS", 60),
			KeyPrefix:       getEnv("REDIS_KEY_PREFIX", "helpdesk"),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
			Service:     appName,
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
			AdminEmail:            os.Getenv("AUTH_ADMIN_EMAIL"),
			AdminPassword:         os.Getenv("AUTH_ADMIN_PASSWORD"),
		},
		Storage: StorageConfig{
			AttachmentDir:  getEnv("STORAGE_ATTACHMENT_DIR", "storage/attachments"),
			MaxUploadBytes: int64(getEnvAsInt("STORAGE_MAX_UPLOAD_BYTES", 10<<20)),
		},
	}

	if cfg.App.Env == "production" && cfg.Auth.JWTSecret == "dev-secret" {
		return nil, fmt.Errorf("AUTH_JWT_SECRET must be set in production")
	}

	return cfg, nil
}

// StatsTTL returns how long cached stats stay valid.
func (r RedisConfig) StatsTTL() time.Duration {
	if r.StatsTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(r.StatsTTLSeconds) * time.Second
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
