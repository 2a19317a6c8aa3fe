// Package config loads application settings from the environment.
package config

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	BotToken    string `env:"BOT_TOKEN" env-required:"true"`
	PostgresDSN string `env:"POSTGRES_DSN" env-default:""`

	RedisAddr     string `env:"REDIS_ADDR" env-default:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" env-default:""`
	RedisDB       int    `env:"REDIS_DB" env-default:"0"`

	// DialogueTTL bounds how long an abandoned sub-flow survives before the
	// checkpoint expires and the user falls back to idle.
	DialogueTTLHours int `env:"DIALOGUE_TTL_HOURS" env-default:"24"`

	GeminiAPIKey   string        `env:"GEMINI_API_KEY" env-default:""`
	GeminiModel    string        `env:"GEMINI_MODEL" env-default:"gemini-2.0-flash"`
	ExtractTimeout time.Duration `env:"EXTRACT_TIMEOUT" env-default:"20s"`
	// ExtractRPS caps outbound LLM calls across all users.
	ExtractRPS float64 `env:"EXTRACT_RPS" env-default:"5"`

	GoogleSTTAPIKey string        `env:"GOOGLE_STT_API_KEY" env-default:""`
	STTTimeout      time.Duration `env:"STT_TIMEOUT" env-default:"30s"`

	ZibalMerchant   string        `env:"ZIBAL_MERCHANT" env-default:""`
	CallbackBaseURL string        `env:"PAYMENT_CALLBACK_URL_BASE" env-default:""`
	CallbackAddr    string        `env:"PAYMENT_CALLBACK_ADDR" env-default:":8090"`
	PaymentAmount   int64         `env:"PAYMENT_AMOUNT_RIALS" env-default:"1000000"`
	PaymentTimeout  time.Duration `env:"PAYMENT_TIMEOUT" env-default:"15s"`

	FreeLimit     int `env:"TIER_LIMIT_FREE" env-default:"2"`
	StandardLimit int `env:"TIER_LIMIT_STANDARD" env-default:"10"`
	PremiumLimit  int `env:"TIER_LIMIT_PREMIUM" env-default:"100"`

	// DefaultHour/DefaultMinute is the assumed time of day when the user
	// gives a date with no time.
	DefaultHour   int `env:"DEFAULT_REMINDER_HOUR" env-default:"9"`
	DefaultMinute int `env:"DEFAULT_REMINDER_MINUTE" env-default:"0"`

	DefaultTimezone string `env:"DEFAULT_TIMEZONE" env-default:"Asia/Tehran"`
	DefaultLocale   string `env:"DEFAULT_LOCALE" env-default:"fa"`

	NotifyInterval time.Duration `env:"NOTIFY_INTERVAL" env-default:"30s"`
	NotifyWorkers  int           `env:"NOTIFY_WORKERS" env-default:"3"`
}

// Load reads config.env (if present) and then the process environment.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		_ = godotenv.Load(envFile)
	}
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// TierLimit maps a subscription tier name to its active-reminder cap.
func (c *Config) TierLimit(tier string) int {
	switch tier {
	case "STANDARD":
		return c.StandardLimit
	case "PREMIUM":
		return c.PremiumLimit
	default:
		return c.FreeLimit
	}
}
