package repository

import (
	"context"
	"time"

	pgx "github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/SoftwareFuze/ScrapBook/internal/common/constants"
	"github.com/SoftwareFuze/ScrapBook/internal/common/db"
	"github.com/SoftwareFuze/ScrapBook/internal/common/logger"
	"github.com/SoftwareFuze/ScrapBook/internal/community/domain"
)

// MutateFunc runs inside the transaction that holds the community row lock. It reports
// whether it changed the aggregate; only then is the version bumped.
type MutateFunc func(ctx context.Context, q db.Querier, current domain.Community) (changed bool, err error)

type Repository interface {
	Create(ctx context.Context, community domain.Community, creatorID string) (domain.Community, error)
	FindByID(ctx context.Context, id string) (domain.Community, error)
	FindByTitle(ctx context.Context, title string) (domain.Community, error)
	Mutate(ctx context.Context, id string, fn MutateFunc) (domain.Community, error)
	AddMember(ctx context.Context, q db.Querier, communityID, userID string) (bool, error)
	RemoveMember(ctx context.Context, q db.Querier, communityID, userID string) (bool, error)
}

type PgRepository struct {
	pool  *pgxpool.Pool
	log   *logger.Logger
	retry db.RetryConfig
}

func NewPgRepository(pool *pgxpool.Pool, log *logger.Logger) *PgRepository {
	return &PgRepository{pool: pool, log: log, retry: db.DefaultRetryConfig}
}

func (r *PgRepository) Create(ctx context.Context, community domain.Community, creatorID string) (domain.Community, error) {
	var created domain.Community
	err := db.RunInTx(ctx, r.pool, pgx.TxOptions{}, func(ctx context.Context, tx pgx.Tx) error {
		start := time.Now()
		_, err := tx.Exec(
			ctx,
			`INSERT INTO communities (id, title, details, interests, version, created_at)
			 VALUES ($1, $2, $3, $4, 1, $5)`,
			community.ID,
			community.Title,
			community.Details,
			community.Interests,
			community.CreatedAt,
		)
		if db.IsUniqueViolation(err) {
			db.MeasureQueryDuration("create community", start)
			return domain.ErrTitleTaken
		}
		if err := db.HandleExecError(err, "create community", start); err != nil {
			return err
		}

		if _, err := r.AddMember(ctx, tx, community.ID, creatorID); err != nil {
			return err
		}

		created, err = loadCommunity(ctx, tx, community.ID, false)
		return err
	})
	if err != nil {
		return domain.Community{}, err
	}
	return created, nil
}

func (r *PgRepository) FindByID(ctx context.Context, id string) (domain.Community, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DBQueryTimeout)
	defer cancel()

	return loadCommunity(ctx, r.pool, id, false)
}

func (r *PgRepository) FindByTitle(ctx context.Context, title string) (domain.Community, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DBQueryTimeout)
	defer cancel()

	start := time.Now()
	var id string
	err := r.pool.QueryRow(ctx, `SELECT id::text FROM communities WHERE title = $1`, title).Scan(&id)
	if err := db.HandleQueryError(err, domain.ErrCommunityNotFound, "find community by title", start); err != nil {
		return domain.Community{}, err
	}

	return loadCommunity(ctx, r.pool, id, false)
}

// Mutate serializes writers on the community row with SELECT ... FOR UPDATE, runs fn, bumps
// the version when fn changed something and returns the reloaded aggregate. Serialization
// failures and deadlocks rerun the whole transaction.
func (r *PgRepository) Mutate(ctx context.Context, id string, fn MutateFunc) (domain.Community, error) {
	var result domain.Community
	err := db.RetryWithBackoff(ctx, r.log, r.retry, func(ctx context.Context) error {
		return db.RunInTx(ctx, r.pool, pgx.TxOptions{}, func(ctx context.Context, tx pgx.Tx) error {
			current, err := loadCommunity(ctx, tx, id, true)
			if err != nil {
				return err
			}

			changed, err := fn(ctx, tx, current)
			if err != nil {
				return err
			}
			if !changed {
				result = current
				return nil
			}

			start := time.Now()
			_, err = tx.Exec(ctx, `UPDATE communities SET version = version + 1 WHERE id = $1`, id)
			if err := db.HandleExecError(err, "bump community version", start); err != nil {
				return err
			}

			result, err = loadCommunity(ctx, tx, id, false)
			return err
		})
	})
	if err != nil {
		return domain.Community{}, err
	}
	return result, nil
}

// AddMember reports false when userID already belonged to the community.
func (r *PgRepository) AddMember(ctx context.Context, q db.Querier, communityID, userID string) (bool, error) {
	start := time.Now()
	tag, err := q.Exec(
		ctx,
		`INSERT INTO community_members (community_id, user_id)
		 VALUES ($1, $2)
		 ON CONFLICT (community_id, user_id) DO NOTHING`,
		communityID,
		userID,
	)
	if err := db.HandleExecError(err, "add community member", start); err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// RemoveMember reports false when userID was not a member.
func (r *PgRepository) RemoveMember(ctx context.Context, q db.Querier, communityID, userID string) (bool, error) {
	start := time.Now()
	tag, err := q.Exec(
		ctx,
		`DELETE FROM community_members WHERE community_id = $1 AND user_id = $2`,
		communityID,
		userID,
	)
	if err := db.HandleExecError(err, "remove community member", start); err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
