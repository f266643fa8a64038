package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/SoftwareFuze/ScrapBook/internal/common/clock"
	"github.com/SoftwareFuze/ScrapBook/internal/common/config"
	commoncrypto "github.com/SoftwareFuze/ScrapBook/internal/common/crypto"
	"github.com/SoftwareFuze/ScrapBook/internal/common/db"
	"github.com/SoftwareFuze/ScrapBook/internal/common/logger"
	"github.com/SoftwareFuze/ScrapBook/internal/common/resilience"
)

// App holds the process-wide dependencies every component is built from.
type App struct {
	Log            *logger.Logger
	Config         config.APIConfig
	Pool           *pgxpool.Pool
	Clock          clock.Clock
	IDs            commoncrypto.IDGenerator
	CircuitBreaker *resilience.CircuitBreaker
}

func NewAPIApp(ctx context.Context, serviceName string) (*App, error) {
	cfg, err := config.LoadAPIConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.LogDir, serviceName, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	pool, err := db.NewPool(ctx, log, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	realClock := clock.NewRealClock()
	return &App{
		Log:    log,
		Config: cfg,
		Pool:   pool,
		Clock:  realClock,
		IDs:    commoncrypto.NewUUIDGenerator(),
		CircuitBreaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Threshold:  cfg.CircuitBreakerThreshold,
			Timeout:    cfg.CircuitBreakerTimeout,
			ResetAfter: cfg.CircuitBreakerReset,
			Name:       "postgres",
			Clock:      realClock,
			Logger:     log,
		}),
	}, nil
}

func (a *App) Close() {
	a.Pool.Close()
}
