package repository

import (
	"context"
	"time"

	pgx "github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	authdomain "github.com/SoftwareFuze/ScrapBook/internal/auth/domain"
	"github.com/SoftwareFuze/ScrapBook/internal/common/constants"
	"github.com/SoftwareFuze/ScrapBook/internal/common/db"
	commonerrors "github.com/SoftwareFuze/ScrapBook/internal/common/errors"
)

var ErrRefreshTokenNotFound = commonerrors.NewDomainError(
	"REFRESH_TOKEN_NOT_FOUND",
	commonerrors.CategoryUnauthorized,
	401,
	"refresh token not found",
)

type RefreshTokenRepository interface {
	DeleteByTokenHash(ctx context.Context, hash string) error
	DeleteExpired(ctx context.Context) (int64, error)
	TxManager() RefreshTokenTxManagerInterface
}

// RefreshTokenTx is the set of operations available while a rotation holds the row lock.
type RefreshTokenTx interface {
	FindByTokenHashForUpdate(ctx context.Context, hash string) (authdomain.RefreshToken, error)
	DeleteByTokenHash(ctx context.Context, hash string) error
	Create(ctx context.Context, token authdomain.RefreshToken) error
	DeleteExcessByUserID(ctx context.Context, userID string, keep int) error
}

type PgRefreshTokenRepository struct {
	pool  *pgxpool.Pool
	txMgr *RefreshTokenTxManager
}

func NewPgRefreshTokenRepository(pool *pgxpool.Pool) *PgRefreshTokenRepository {
	return &PgRefreshTokenRepository{
		pool:  pool,
		txMgr: NewRefreshTokenTxManager(pool),
	}
}

func (r *PgRefreshTokenRepository) TxManager() RefreshTokenTxManagerInterface {
	return r.txMgr
}

func (r *PgRefreshTokenRepository) DeleteByTokenHash(ctx context.Context, hash string) error {
	return deleteRefreshToken(ctx, r.pool, hash, "delete refresh token")
}

func (r *PgRefreshTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DBQueryTimeout)
	defer cancel()

	start := time.Now()
	res, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at < NOW()`)
	if err != nil {
		return 0, db.HandleExecError(err, "delete expired refresh tokens", start)
	}
	db.MeasureQueryDuration("delete expired refresh tokens", start)
	return res.RowsAffected(), nil
}

type pgRefreshTokenTx struct {
	tx pgx.Tx
}

func (t *pgRefreshTokenTx) FindByTokenHashForUpdate(ctx context.Context, hash string) (authdomain.RefreshToken, error) {
	start := time.Now()
	row := t.tx.QueryRow(
		ctx,
		`SELECT id::text, token_hash, user_id::text, expires_at, created_at
		 FROM refresh_tokens
		 WHERE token_hash = $1
		 FOR UPDATE`,
		hash,
	)
	return scanRefreshToken(row, "find refresh token in tx", start)
}

func (t *pgRefreshTokenTx) DeleteByTokenHash(ctx context.Context, hash string) error {
	return deleteRefreshToken(ctx, t.tx, hash, "delete refresh token in tx")
}

func (t *pgRefreshTokenTx) Create(ctx context.Context, token authdomain.RefreshToken) error {
	return createRefreshToken(ctx, t.tx, token)
}

func (t *pgRefreshTokenTx) DeleteExcessByUserID(ctx context.Context, userID string, keep int) error {
	return deleteExcessRefreshTokens(ctx, t.tx, userID, keep)
}

func scanRefreshToken(row pgx.Row, operation string, start time.Time) (authdomain.RefreshToken, error) {
	var token authdomain.RefreshToken
	err := row.Scan(&token.ID, &token.TokenHash, &token.UserID, &token.ExpiresAt, &token.CreatedAt)
	if err := db.HandleQueryError(err, ErrRefreshTokenNotFound, operation, start); err != nil {
		return authdomain.RefreshToken{}, err
	}
	return token, nil
}

func createRefreshToken(ctx context.Context, q db.Querier, token authdomain.RefreshToken) error {
	start := time.Now()
	_, err := q.Exec(
		ctx,
		`INSERT INTO refresh_tokens (id, token_hash, user_id, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		token.ID,
		token.TokenHash,
		token.UserID,
		token.ExpiresAt,
		token.CreatedAt,
	)
	return db.HandleExecError(err, "create refresh token", start)
}

func deleteRefreshToken(ctx context.Context, q db.Querier, hash, operation string) error {
	start := time.Now()
	_, err := q.Exec(ctx, `DELETE FROM refresh_tokens WHERE token_hash = $1`, hash)
	return db.HandleExecError(err, operation, start)
}

func deleteExcessRefreshTokens(ctx context.Context, q db.Querier, userID string, keep int) error {
	start := time.Now()
	_, err := q.Exec(
		ctx,
		`DELETE FROM refresh_tokens
		 WHERE id IN (
		 	SELECT id
		 	FROM refresh_tokens
		 	WHERE user_id = $1
		 	ORDER BY created_at DESC
		 	OFFSET $2
		 )`,
		userID,
		keep,
	)
	return db.HandleExecError(err, "delete excess refresh tokens", start)
}
