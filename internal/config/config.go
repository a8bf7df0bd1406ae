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
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Line         LineConfig
	Notification NotificationConfig
	Storage      StorageConfig
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

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters for staff sessions.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// LineConfig carries chat-platform credentials and bot behavior.
type LineConfig struct {
	ChannelSecret      string
	ChannelAccessToken string
	APIEndpoint        string
	// IntakeFormURL is the deep link the bot replies with when a contact
	// asks to create a repair request.
	IntakeFormURL string
	ContactText   string
	FAQURL        string
}

// NotificationConfig tunes outbound delivery.
type NotificationConfig struct {
	// MaxRetries is the number of additional attempts after the first send.
	MaxRetries int
	RetryDelay time.Duration
	CodePrefix string
	// LinkTokenTTL bounds how long a linking code stays redeemable.
	LinkTokenTTL time.Duration
	// RushSweepInterval is how often the background worker looks for stale
	// urgent tickets; RushStaleAfter is how long one may sit untouched
	// before assignees get a reminder.
	RushSweepInterval time.Duration
	RushStaleAfter    time.Duration
}

// StorageConfig configures the blob store used for attachments.
type StorageConfig struct {
	BaseDir string
	BaseURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "repair-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Line: LineConfig{
			ChannelSecret:      os.Getenv("LINE_CHANNEL_SECRET"),
			ChannelAccessToken: os.Getenv("LINE_CHANNEL_ACCESS_TOKEN"),
			APIEndpoint:        getEnv("LINE_API_ENDPOINT", "https://api.line.me"),
			IntakeFormURL:      getEnv("LINE_INTAKE_FORM_URL", ""),
			ContactText:        getEnv("LINE_CONTACT_TEXT", "IT support desk: ext. 1234"),
			FAQURL:             getEnv("LINE_FAQ_URL", ""),
		},
		Notification: NotificationConfig{
			MaxRetries:        getEnvAsInt("NOTIFY_MAX_RETRIES", 2),
			RetryDelay:        time.Duration(getEnvAsInt("NOTIFY_RETRY_DELAY_MS", 500)) * time.Millisecond,
			CodePrefix:        getEnv("TICKET_CODE_PREFIX", "RP"),
			LinkTokenTTL:      time.Duration(getEnvAsInt("LINK_TOKEN_TTL_MINUTES", 30)) * time.Minute,
			RushSweepInterval: time.Duration(getEnvAsInt("RUSH_SWEEP_INTERVAL_MINUTES", 30)) * time.Minute,
			RushStaleAfter:    time.Duration(getEnvAsInt("RUSH_STALE_AFTER_MINUTES", 240)) * time.Minute,
		},
		Storage: StorageConfig{
			BaseDir: getEnv("STORAGE_BASE_DIR", "uploads"),
			BaseURL: getEnv("STORAGE_BASE_URL", "http://localhost:8080/uploads"),
		},
	}

	return cfg, nil
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
