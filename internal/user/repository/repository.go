package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/SoftwareFuze/ScrapBook/internal/common/constants"
	"github.com/SoftwareFuze/ScrapBook/internal/common/db"
	commonerrors "github.com/SoftwareFuze/ScrapBook/internal/common/errors"
	"github.com/SoftwareFuze/ScrapBook/internal/user/domain"
)

type Repository interface {
	Create(ctx context.Context, account domain.Account) error
	FindByUsername(ctx context.Context, username string) (domain.Account, error)
	FindByID(ctx context.Context, id domain.ID) (domain.Account, error)
	Delete(ctx context.Context, id domain.ID) error
}

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const selectAccount = `
SELECT u.id::text, u.username, u.password_hash, u.avatar, u.created_at,
       COALESCE(array_agg(m.community_id::text ORDER BY m.joined_at) FILTER (WHERE m.community_id IS NOT NULL), '{}')
FROM users u
LEFT JOIN community_members m ON m.user_id = u.id
`

func (r *PgRepository) Create(ctx context.Context, account domain.Account) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DBQueryTimeout)
	defer cancel()

	start := time.Now()
	_, err := r.pool.Exec(
		ctx,
		`INSERT INTO users (id, username, password_hash, avatar, created_at) VALUES ($1, $2, $3, $4, $5)`,
		string(account.ID),
		account.Username,
		account.PasswordHash,
		account.Avatar,
		account.CreatedAt,
	)
	if db.IsUniqueViolation(err) {
		db.MeasureQueryDuration("create user", start)
		return commonerrors.ErrUsernameAlreadyExists
	}
	return db.HandleExecError(err, "create user", start)
}

func (r *PgRepository) FindByUsername(ctx context.Context, username string) (domain.Account, error) {
	return r.findOne(ctx, "find user by username", selectAccount+`WHERE u.username = $1 GROUP BY u.id`, username)
}

func (r *PgRepository) FindByID(ctx context.Context, id domain.ID) (domain.Account, error) {
	return r.findOne(ctx, "find user by id", selectAccount+`WHERE u.id = $1 GROUP BY u.id`, string(id))
}

func (r *PgRepository) findOne(ctx context.Context, operation, query string, arg string) (domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DBQueryTimeout)
	defer cancel()

	start := time.Now()
	var account domain.Account
	var id string
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&id,
		&account.Username,
		&account.PasswordHash,
		&account.Avatar,
		&account.CreatedAt,
		&account.Communities,
	)
	if err := db.HandleQueryError(err, commonerrors.ErrUserNotFound, operation, start); err != nil {
		return domain.Account{}, err
	}
	account.ID = domain.ID(id)
	return account, nil
}

func (r *PgRepository) Delete(ctx context.Context, id domain.ID) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DBQueryTimeout)
	defer cancel()

	start := time.Now()
	_, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, string(id))
	return db.HandleExecError(err, "delete user", start)
}
