//go:build integration

// Package dbtest starts a disposable Postgres for integration tests.
package dbtest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/SoftwareFuze/ScrapBook/internal/migrations"
	userdomain "github.com/SoftwareFuze/ScrapBook/internal/user/domain"
	userrepo "github.com/SoftwareFuze/ScrapBook/internal/user/repository"
)

// StartPostgres runs a migrated Postgres container for the test and returns a pool on it.
// The test is skipped when no container runtime is available.
func StartPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("scrapbook_test"),
		postgres.WithUsername("scrapbook"),
		postgres.WithPassword("scrapbook"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(ctx, connStr, "up"))

	poolCfg, err := pgxpool.ParseConfig(connStr)
	require.NoError(t, err)
	poolCfg.MaxConns = 20

	pool, err := pgxpool.ConnectConfig(ctx, poolCfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

// CreateAccount inserts a user row and returns the account.
func CreateAccount(t *testing.T, pool *pgxpool.Pool, username string) userdomain.Account {
	t.Helper()
	account := userdomain.Account{
		ID:           userdomain.ID(uuid.NewString()),
		Username:     username,
		PasswordHash: "x",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, userrepo.NewPgRepository(pool).Create(context.Background(), account))
	return account
}
