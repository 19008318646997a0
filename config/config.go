package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Mail      MailConfig
	Telegram  TelegramConfig
	Queue     QueueConfig
	RateLimit RateLimitConfig
	Scheduler SchedulerConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP listener
type ServerConfig struct {
	Port            string        `env:"SERVER_PORT" envDefault:"5250"`
	Mode            string        `env:"GIN_MODE" envDefault:"release"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"15s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Origins allowed by CORS, "*" allows any origin
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	// Proxies whose X-Forwarded-For header is trusted when resolving the client IP
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`
}

// DatabaseConfig selects and tunes the entity store
type DatabaseConfig struct {
	// Either "sqlite" or "postgres"
	Driver string `env:"DB_DRIVER" envDefault:"sqlite"`
	DSN    string `env:"DB_DSN" envDefault:"database/realestate.db"`

	// Retries for transactions that fail on lock contention or serialization errors
	MaxRetries int           `env:"DB_MAX_RETRIES" envDefault:"3"`
	RetryDelay time.Duration `env:"DB_RETRY_DELAY" envDefault:"50ms"`

	// silent, error, warn or info
	LogLevel string `env:"DB_LOG_LEVEL" envDefault:"warn"`
}

type AuthConfig struct {
	JWTSecret string        `env:"JWT_SECRET,required,notEmpty"`
	TokenTTL  time.Duration `env:"JWT_TTL" envDefault:"24h"`
}

// MailConfig configures outbound mail for enquiries
type MailConfig struct {
	// log, smtp or redis
	Backend string `env:"MAIL_BACKEND" envDefault:"log"`

	// Address enquiries are delivered to
	DefaultFrom string `env:"DEFAULT_FROM_EMAIL" envDefault:"info@real-estate.com"`

	SMTPHost     string `env:"EMAIL_HOST"`
	SMTPPort     int    `env:"EMAIL_PORT" envDefault:"587"`
	SMTPUsername string `env:"EMAIL_HOST_USER"`
	SMTPPassword string `env:"EMAIL_HOST_PASSWORD"`

	RedisAddr     string `env:"MAIL_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"MAIL_REDIS_PASSWORD"`
	RedisDB       int    `env:"MAIL_REDIS_DB" envDefault:"0"`
	RedisKey      string `env:"MAIL_REDIS_KEY" envDefault:"mail:outbox"`
	RedisMaxLen   int64  `env:"MAIL_REDIS_MAX_LEN" envDefault:"1000"`
}

// TelegramConfig enables staff chat notifications for new enquiries
type TelegramConfig struct {
	Enabled  bool   `env:"TELEGRAM_ENABLED" envDefault:"false"`
	BotToken string `env:"TELEGRAM_BOT_TOKEN"`
	ChatID   string `env:"TELEGRAM_CHAT_ID"`
	APIURL   string `env:"TELEGRAM_API_URL" envDefault:"https://api.telegram.org"`
}

type QueueConfig struct {
	// Buffered notifications before pushes start failing with ErrQueueFull
	BufferSize int `env:"NOTIFICATION_QUEUE_SIZE" envDefault:"100"`
}

// RateLimitConfig bounds public write endpoints per client IP
type RateLimitConfig struct {
	RequestsPerSecond float64 `env:"RATE_LIMIT_RPS" envDefault:"1"`
	Burst             int     `env:"RATE_LIMIT_BURST" envDefault:"5"`
}

// SchedulerConfig sets how often maintenance jobs run
type SchedulerConfig struct {
	RatingReconcileInterval time.Duration `env:"RATING_RECONCILE_INTERVAL" envDefault:"1h"`
	LimiterCleanupInterval  time.Duration `env:"RATE_LIMIT_CLEANUP_INTERVAL" envDefault:"5m"`
}

type LogConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
}

// LoadConfig reads an optional .env file and parses the environment
func LoadConfig() (*Config, error) {
	// A missing .env file is fine, the environment may already be populated
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings env tags cannot express
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}

	switch c.Mail.Backend {
	case "log", "redis":
	case "smtp":
		if c.Mail.SMTPHost == "" {
			return fmt.Errorf("EMAIL_HOST is required when MAIL_BACKEND=smtp")
		}
	default:
		return fmt.Errorf("unsupported MAIL_BACKEND %q", c.Mail.Backend)
	}

	if c.Telegram.Enabled && (c.Telegram.BotToken == "" || c.Telegram.ChatID == "") {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID are required when TELEGRAM_ENABLED=true")
	}

	if c.Database.MaxRetries < 0 {
		return fmt.Errorf("DB_MAX_RETRIES must not be negative")
	}
	if c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.Scheduler.RatingReconcileInterval <= 0 || c.Scheduler.LimiterCleanupInterval <= 0 {
		return fmt.Errorf("scheduler intervals must be positive")
	}
	return nil
}
