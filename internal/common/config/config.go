package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/SoftwareFuze/ScrapBook/internal/common/constants"
	commonerrors "github.com/SoftwareFuze/ScrapBook/internal/common/errors"
)

type APIConfig struct {
	HTTPPort    string `yaml:"http_port" env:"HTTP_PORT" env-default:"8080"`
	DatabaseURL string `yaml:"database_url" env:"DATABASE_URL"`
	RedisURL    string `yaml:"redis_url" env:"REDIS_URL"`
	JWTSecret   string `yaml:"jwt_secret" env:"JWT_SECRET"`
	CORSOrigin  string `yaml:"cors_origin" env:"CORS_ORIGIN" env-default:"http://localhost:3000"`

	AccessTokenTTL          time.Duration `yaml:"access_token_ttl" env:"ACCESS_TOKEN_TTL" env-default:"15m"`
	RefreshTokenTTL         time.Duration `yaml:"refresh_token_ttl" env:"REFRESH_TOKEN_TTL" env-default:"168h"`
	MaxRefreshTokensPerUser int           `yaml:"max_refresh_tokens_per_user" env:"MAX_REFRESH_TOKENS_PER_USER" env-default:"5"`

	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT" env-default:"5s"`
	CacheTTL       time.Duration `yaml:"cache_ttl" env:"CACHE_TTL" env-default:"5m"`

	CircuitBreakerThreshold int32         `yaml:"circuit_breaker_threshold" env:"CIRCUIT_BREAKER_THRESHOLD" env-default:"500"`
	CircuitBreakerTimeout   time.Duration `yaml:"circuit_breaker_timeout" env:"CIRCUIT_BREAKER_TIMEOUT" env-default:"15s"`
	CircuitBreakerReset     time.Duration `yaml:"circuit_breaker_reset" env:"CIRCUIT_BREAKER_RESET" env-default:"10s"`

	MigrateOnStart bool `yaml:"migrate_on_start" env:"MIGRATE_ON_START" env-default:"false"`

	LogDir   string `yaml:"log_dir" env:"LOG_DIR"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
}

// LoadAPIConfig reads CONFIG_PATH (YAML) when set and lets the environment override it.
func LoadAPIConfig() (APIConfig, error) {
	var cfg APIConfig

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return APIConfig{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return APIConfig{}, fmt.Errorf("failed to read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return APIConfig{}, err
	}

	return cfg, nil
}

func (c APIConfig) Validate() error {
	if c.JWTSecret == "" {
		return commonerrors.ErrMissingRequiredEnv.WithMessage("missing required environment variable: JWT_SECRET")
	}
	if err := validateJWTSecret(c.JWTSecret); err != nil {
		return err
	}
	if c.DatabaseURL == "" {
		return commonerrors.ErrMissingRequiredEnv.WithMessage("missing required environment variable: DATABASE_URL")
	}
	if c.MaxRefreshTokensPerUser < 1 {
		return fmt.Errorf("MAX_REFRESH_TOKENS_PER_USER must be positive, got %d", c.MaxRefreshTokensPerUser)
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= c.AccessTokenTTL {
		return fmt.Errorf("REFRESH_TOKEN_TTL (%v) must exceed ACCESS_TOKEN_TTL (%v)", c.RefreshTokenTTL, c.AccessTokenTTL)
	}
	return nil
}

func validateJWTSecret(secret string) error {
	if len(secret) < constants.JWTSecretMinLength {
		return commonerrors.ErrInvalidJWTSecret.WithCause(fmt.Errorf("got %d bytes", len(secret)))
	}
	return nil
}
