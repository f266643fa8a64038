package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/SoftwareFuze/ScrapBook/internal/common/constants"
	"github.com/SoftwareFuze/ScrapBook/internal/common/db"
	"github.com/SoftwareFuze/ScrapBook/internal/post/domain"
)

// Store writes posts and their children. Methods taking a Querier run inside the
// transaction that holds the owning community's row lock.
type Store interface {
	CommunityOfPost(ctx context.Context, postID string) (string, error)
	CommunityOfComment(ctx context.Context, commentID string) (communityID, postID string, err error)

	Insert(ctx context.Context, q db.Querier, post domain.Post) error
	UpdateBody(ctx context.Context, q db.Querier, postID, body string, at time.Time) error
	Delete(ctx context.Context, q db.Querier, postID string) error
	AddLike(ctx context.Context, q db.Querier, postID, userID string) (bool, error)
	RemoveLike(ctx context.Context, q db.Querier, postID, userID string) (bool, error)
	InsertComment(ctx context.Context, q db.Querier, comment domain.Comment) error
	AddCommentLike(ctx context.Context, q db.Querier, commentID, userID string) (bool, error)
}

type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func (s *PgStore) CommunityOfPost(ctx context.Context, postID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DBQueryTimeout)
	defer cancel()

	start := time.Now()
	var communityID string
	err := s.pool.QueryRow(ctx, `SELECT community_id::text FROM posts WHERE id = $1`, postID).Scan(&communityID)
	if err := db.HandleQueryError(err, domain.ErrPostNotFound, "find post community", start); err != nil {
		return "", err
	}
	return communityID, nil
}

func (s *PgStore) CommunityOfComment(ctx context.Context, commentID string) (string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DBQueryTimeout)
	defer cancel()

	start := time.Now()
	var communityID, postID string
	err := s.pool.QueryRow(
		ctx,
		`SELECT p.community_id::text, p.id::text
		 FROM comments c
		 JOIN posts p ON p.id = c.post_id
		 WHERE c.id = $1`,
		commentID,
	).Scan(&communityID, &postID)
	if err := db.HandleQueryError(err, domain.ErrCommentNotFound, "find comment community", start); err != nil {
		return "", "", err
	}
	return communityID, postID, nil
}

func (s *PgStore) Insert(ctx context.Context, q db.Querier, post domain.Post) error {
	images, err := encodeImages(post.Images)
	if err != nil {
		return err
	}

	start := time.Now()
	_, err = q.Exec(
		ctx,
		`INSERT INTO posts (id, community_id, user_id, body, images, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		post.ID,
		post.CommunityID,
		string(post.User.ID),
		post.Body,
		images,
		post.CreatedAt,
	)
	return db.HandleExecError(err, "create post", start)
}

func (s *PgStore) UpdateBody(ctx context.Context, q db.Querier, postID, body string, at time.Time) error {
	start := time.Now()
	tag, err := q.Exec(ctx, `UPDATE posts SET body = $2, updated_at = $3 WHERE id = $1`, postID, body, at)
	if err := db.HandleExecError(err, "update post", start); err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPostNotFound
	}
	return nil
}

func (s *PgStore) Delete(ctx context.Context, q db.Querier, postID string) error {
	start := time.Now()
	tag, err := q.Exec(ctx, `DELETE FROM posts WHERE id = $1`, postID)
	if err := db.HandleExecError(err, "delete post", start); err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPostNotFound
	}
	return nil
}

// AddLike reports false when userID already liked the post.
func (s *PgStore) AddLike(ctx context.Context, q db.Querier, postID, userID string) (bool, error) {
	start := time.Now()
	tag, err := q.Exec(
		ctx,
		`INSERT INTO post_likes (post_id, user_id) VALUES ($1, $2)
		 ON CONFLICT (post_id, user_id) DO NOTHING`,
		postID,
		userID,
	)
	if err := db.HandleExecError(err, "add post like", start); err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PgStore) RemoveLike(ctx context.Context, q db.Querier, postID, userID string) (bool, error) {
	start := time.Now()
	tag, err := q.Exec(ctx, `DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2`, postID, userID)
	if err := db.HandleExecError(err, "remove post like", start); err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PgStore) InsertComment(ctx context.Context, q db.Querier, comment domain.Comment) error {
	start := time.Now()
	_, err := q.Exec(
		ctx,
		`INSERT INTO comments (id, post_id, user_id, body, created_at) VALUES ($1, $2, $3, $4, $5)`,
		comment.ID,
		comment.PostID,
		string(comment.User.ID),
		comment.Body,
		comment.CreatedAt,
	)
	return db.HandleExecError(err, "create comment", start)
}

func (s *PgStore) AddCommentLike(ctx context.Context, q db.Querier, commentID, userID string) (bool, error) {
	start := time.Now()
	tag, err := q.Exec(
		ctx,
		`INSERT INTO comment_likes (comment_id, user_id) VALUES ($1, $2)
		 ON CONFLICT (comment_id, user_id) DO NOTHING`,
		commentID,
		userID,
	)
	if err := db.HandleExecError(err, "add comment like", start); err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func encodeImages(images []domain.Image) ([]byte, error) {
	if images == nil {
		images = []domain.Image{}
	}
	raw, err := json.Marshal(images)
	if err != nil {
		return nil, fmt.Errorf("encode post images: %w", err)
	}
	return raw, nil
}
