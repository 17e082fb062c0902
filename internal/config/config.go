package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"currency-converter/internal/domain/model"
)

type Config struct {
	Server    ServerConfig       `envconfig:"SERVER"`
	Provider  ProviderConfig     `envconfig:"PROVIDER"`
	Countries CountriesConfig    `envconfig:"COUNTRIES"`
	Rates     ExchangeRateConfig `envconfig:"EXCHANGE_RATE"`
	Cache     CacheConfig        `envconfig:"CACHE"`
	RateLimit RateLimitConfig    `envconfig:"RATE_LIMIT"`
	Scheduler SchedulerConfig    `envconfig:"SCHEDULER"`
	CORS      CORSConfig         `envconfig:"CORS"`
	Log       LogConfig          `envconfig:"LOG"`
}

type ServerConfig struct {
	Port            int           `envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"5s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `envconfig:"IDLE_TIMEOUT" default:"120s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

type ProviderConfig struct {
	Timeout time.Duration `envconfig:"TIMEOUT" default:"10s"`
}

type CountriesConfig struct {
	BaseURL           string `envconfig:"API_URL" default:"https://restcountries.com/v3.1"`
	RequestsPerSecond int    `envconfig:"REQUESTS_PER_SECOND" default:"0"`
}

type ExchangeRateConfig struct {
	APIKey            string `envconfig:"API_KEY" required:"true"`
	BaseURL           string `envconfig:"API_URL" default:"https://v6.exchangerate-api.com/v6"`
	RequestsPerSecond int    `envconfig:"REQUESTS_PER_SECOND" default:"0"`
}

type CacheConfig struct {
	CountryTTL     time.Duration `envconfig:"COUNTRY_TTL" default:"24h"`
	CountryMaxSize int           `envconfig:"COUNTRY_MAX_SIZE" default:"500"`
	RateTTL        time.Duration `envconfig:"RATE_TTL" default:"1h"`
	RateMaxSize    int           `envconfig:"RATE_MAX_SIZE" default:"1000"`
}

type RateLimitConfig struct {
	DailyLimit      int           `envconfig:"DAILY_LIMIT" default:"1000"`
	CleanupInterval time.Duration `envconfig:"CLEANUP_INTERVAL" default:"5m"`
	GracePeriod     time.Duration `envconfig:"GRACE_PERIOD" default:"24h"`
}

type SchedulerConfig struct {
	SweepSchedule string `envconfig:"SWEEP_SCHEDULE" default:"@every 5m"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"*"`
}

type LogConfig struct {
	Level  string `envconfig:"LEVEL" default:"info"`
	Format string `envconfig:"FORMAT" default:"text"`
}

// LoadConfig reads the given .env files (or ./.env when none are named) into
// the process environment and then decodes the environment into Config.
// Missing .env files are not an error; variables already set take precedence.
func LoadConfig(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, model.ConfigError("failed to read env file", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, model.ConfigError("failed to load environment", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.Rates.APIKey == "":
		return model.ConfigError("EXCHANGE_RATE_API_KEY must be set", nil)
	case c.Server.Port <= 0 || c.Server.Port > 65535:
		return model.ConfigError("SERVER_PORT must be between 1 and 65535", nil)
	case c.Cache.CountryTTL <= 0 || c.Cache.RateTTL <= 0:
		return model.ConfigError("cache TTLs must be positive", nil)
	case c.Cache.CountryMaxSize <= 0 || c.Cache.RateMaxSize <= 0:
		return model.ConfigError("cache sizes must be positive", nil)
	case c.RateLimit.DailyLimit <= 0:
		return model.ConfigError("RATE_LIMIT_DAILY_LIMIT must be positive", nil)
	case c.Provider.Timeout <= 0:
		return model.ConfigError("PROVIDER_TIMEOUT must be positive", nil)
	}
	return nil
}
