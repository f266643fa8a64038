package repository

import (
	"context"

	pgx "github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/SoftwareFuze/ScrapBook/internal/common/db"
)

type RefreshTokenTxManagerInterface interface {
	WithTx(ctx context.Context, fn func(context.Context, RefreshTokenTx) error) error
}

type RefreshTokenTxManager struct {
	pool *pgxpool.Pool
}

func NewRefreshTokenTxManager(pool *pgxpool.Pool) *RefreshTokenTxManager {
	return &RefreshTokenTxManager{pool: pool}
}

func (m *RefreshTokenTxManager) WithTx(ctx context.Context, fn func(context.Context, RefreshTokenTx) error) error {
	return db.RunInTx(ctx, m.pool, pgx.TxOptions{}, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &pgRefreshTokenTx{tx: tx})
	})
}
