package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/SoftwareFuze/ScrapBook/internal/common/db"
	"github.com/SoftwareFuze/ScrapBook/internal/community/domain"
	postdomain "github.com/SoftwareFuze/ScrapBook/internal/post/domain"
	userdomain "github.com/SoftwareFuze/ScrapBook/internal/user/domain"
)

const (
	selectCommunity = `
SELECT id::text, title, details, interests, version, created_at
FROM communities
WHERE id = $1`

	selectMembers = `
SELECT u.id::text, u.username, u.avatar
FROM community_members m
JOIN users u ON u.id = m.user_id
WHERE m.community_id = $1
ORDER BY m.joined_at, m.user_id`

	selectPosts = `
SELECT p.id::text, p.community_id::text, p.body, p.images, p.created_at, p.updated_at,
       u.id::text, u.username, u.avatar,
       COALESCE(array_agg(l.user_id::text ORDER BY l.liked_at) FILTER (WHERE l.user_id IS NOT NULL), '{}')
FROM posts p
JOIN users u ON u.id = p.user_id
LEFT JOIN post_likes l ON l.post_id = p.id
WHERE p.community_id = $1
GROUP BY p.id, u.id
ORDER BY p.created_at, p.id`

	selectComments = `
SELECT c.id::text, c.post_id::text, c.body, c.created_at,
       u.id::text, u.username, u.avatar,
       COALESCE(array_agg(cl.user_id::text ORDER BY cl.liked_at) FILTER (WHERE cl.user_id IS NOT NULL), '{}')
FROM comments c
JOIN posts p ON p.id = c.post_id
JOIN users u ON u.id = c.user_id
LEFT JOIN comment_likes cl ON cl.comment_id = c.id
WHERE p.community_id = $1
GROUP BY c.id, u.id
ORDER BY c.created_at, c.id`
)

// loadCommunity reads the whole aggregate. With forUpdate the community row stays locked
// until the surrounding transaction ends.
func loadCommunity(ctx context.Context, q db.Querier, id string, forUpdate bool) (domain.Community, error) {
	query := selectCommunity
	operation := "find community"
	if forUpdate {
		query += "\nFOR UPDATE"
		operation = "lock community"
	}

	start := time.Now()
	var c domain.Community
	err := q.QueryRow(ctx, query, id).Scan(&c.ID, &c.Title, &c.Details, &c.Interests, &c.Version, &c.CreatedAt)
	if err := db.HandleQueryError(err, domain.ErrCommunityNotFound, operation, start); err != nil {
		return domain.Community{}, err
	}

	members, err := loadMembers(ctx, q, id)
	if err != nil {
		return domain.Community{}, err
	}
	c.MembersUser = members
	c.Members = make([]string, 0, len(members))
	for _, m := range members {
		c.Members = append(c.Members, string(m.ID))
	}

	posts, err := loadPosts(ctx, q, id)
	if err != nil {
		return domain.Community{}, err
	}
	c.Posts = posts

	if c.Interests == nil {
		c.Interests = []string{}
	}
	return c, nil
}

func loadMembers(ctx context.Context, q db.Querier, communityID string) ([]userdomain.Summary, error) {
	start := time.Now()
	rows, err := q.Query(ctx, selectMembers, communityID)
	if err != nil {
		return nil, db.HandleQueryError(err, nil, "list community members", start)
	}
	defer rows.Close()

	members := make([]userdomain.Summary, 0)
	for rows.Next() {
		var id string
		var m userdomain.Summary
		if err := rows.Scan(&id, &m.Username, &m.Avatar); err != nil {
			return nil, db.HandleQueryError(err, nil, "scan community member", start)
		}
		m.ID = userdomain.ID(id)
		members = append(members, m)
	}
	if err := db.HandleQueryError(rows.Err(), nil, "list community members", start); err != nil {
		return nil, err
	}
	return members, nil
}

func loadPosts(ctx context.Context, q db.Querier, communityID string) ([]postdomain.Post, error) {
	start := time.Now()
	rows, err := q.Query(ctx, selectPosts, communityID)
	if err != nil {
		return nil, db.HandleQueryError(err, nil, "list posts", start)
	}

	posts := make([]postdomain.Post, 0)
	index := make(map[string]int)
	for rows.Next() {
		var (
			p      postdomain.Post
			userID string
			images []byte
		)
		if err := rows.Scan(
			&p.ID,
			&p.CommunityID,
			&p.Body,
			&images,
			&p.CreatedAt,
			&p.UpdatedAt,
			&userID,
			&p.User.Username,
			&p.User.Avatar,
			&p.Likes,
		); err != nil {
			rows.Close()
			return nil, db.HandleQueryError(err, nil, "scan post", start)
		}
		p.User.ID = userdomain.ID(userID)
		if err := decodeImages(images, &p.Images); err != nil {
			rows.Close()
			return nil, fmt.Errorf("post %s: %w", p.ID, err)
		}
		p.Comments = make([]postdomain.Comment, 0)
		index[p.ID] = len(posts)
		posts = append(posts, p)
	}
	rows.Close()
	if err := db.HandleQueryError(rows.Err(), nil, "list posts", start); err != nil {
		return nil, err
	}

	if len(posts) == 0 {
		return posts, nil
	}

	comments, err := loadComments(ctx, q, communityID)
	if err != nil {
		return nil, err
	}
	for _, c := range comments {
		if i, ok := index[c.PostID]; ok {
			posts[i].Comments = append(posts[i].Comments, c)
		}
	}
	return posts, nil
}

func loadComments(ctx context.Context, q db.Querier, communityID string) ([]postdomain.Comment, error) {
	start := time.Now()
	rows, err := q.Query(ctx, selectComments, communityID)
	if err != nil {
		return nil, db.HandleQueryError(err, nil, "list comments", start)
	}
	defer rows.Close()

	comments := make([]postdomain.Comment, 0)
	for rows.Next() {
		var c postdomain.Comment
		var userID string
		if err := rows.Scan(
			&c.ID,
			&c.PostID,
			&c.Body,
			&c.CreatedAt,
			&userID,
			&c.User.Username,
			&c.User.Avatar,
			&c.Likes,
		); err != nil {
			return nil, db.HandleQueryError(err, nil, "scan comment", start)
		}
		c.User.ID = userdomain.ID(userID)
		comments = append(comments, c)
	}
	if err := db.HandleQueryError(rows.Err(), nil, "list comments", start); err != nil {
		return nil, err
	}
	return comments, nil
}

func decodeImages(raw []byte, dst *[]postdomain.Image) error {
	*dst = make([]postdomain.Image, 0)
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to decode images: %w", err)
	}
	return nil
}
