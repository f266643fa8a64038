package service

import (
	"context"
	"strings"
	"time"

	"github.com/SoftwareFuze/ScrapBook/internal/common/clock"
	commoncrypto "github.com/SoftwareFuze/ScrapBook/internal/common/crypto"
	"github.com/SoftwareFuze/ScrapBook/internal/common/db"
	commonerrors "github.com/SoftwareFuze/ScrapBook/internal/common/errors"
	"github.com/SoftwareFuze/ScrapBook/internal/common/logger"
	communitydomain "github.com/SoftwareFuze/ScrapBook/internal/community/domain"
	communityrepo "github.com/SoftwareFuze/ScrapBook/internal/community/repository"
	"github.com/SoftwareFuze/ScrapBook/internal/observability/metrics"
	"github.com/SoftwareFuze/ScrapBook/internal/post/domain"
	"github.com/SoftwareFuze/ScrapBook/internal/post/repository"
	userdomain "github.com/SoftwareFuze/ScrapBook/internal/user/domain"
)

var ErrEmptyContent = commonerrors.ErrInvalidPayload.WithMessage("content is required")

// Communities is the read and publish side of the community service.
type Communities interface {
	FindByID(ctx context.Context, id string) (communitydomain.Community, error)
	AfterCommit(ctx context.Context, community communitydomain.Community)
}

// Result is the committed aggregate plus the post the operation touched. Post is nil
// after a delete.
type Result struct {
	Post      *domain.Post
	Community communitydomain.Community
}

type CreateInput struct {
	CommunityID string
	Content     string
	Images      []string
}

type Service struct {
	repo        communityrepo.Repository
	posts       repository.Store
	communities Communities
	idGenerator commoncrypto.IDGenerator
	clock       clock.Clock
	log         *logger.Logger
}

func NewService(
	repo communityrepo.Repository,
	posts repository.Store,
	communities Communities,
	idGenerator commoncrypto.IDGenerator,
	clock clock.Clock,
	log *logger.Logger,
) *Service {
	return &Service{
		repo:        repo,
		posts:       posts,
		communities: communities,
		idGenerator: idGenerator,
		clock:       clock,
		log:         log,
	}
}

func (s *Service) Create(ctx context.Context, account userdomain.Account, input CreateInput) (Result, error) {
	body := strings.TrimSpace(input.Content)
	if body == "" {
		return Result{}, ErrEmptyContent
	}

	id, err := s.idGenerator.NewID()
	if err != nil {
		return Result{}, err
	}

	images := make([]domain.Image, 0, len(input.Images))
	for _, url := range input.Images {
		images = append(images, domain.Image{URL: url})
	}

	now := s.clock.Now()
	post := domain.Post{
		ID:          id,
		CommunityID: input.CommunityID,
		Body:        body,
		Images:      images,
		User:        account.Summary(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	userID := string(account.ID)
	community, err := s.mutate(ctx, "post_create", userID, input.CommunityID, func(ctx context.Context, q db.Querier, current communitydomain.Community) (bool, error) {
		if !current.HasMember(userID) {
			return false, communitydomain.ErrNotAMember
		}
		return true, s.posts.Insert(ctx, q, post)
	})
	if err != nil {
		return Result{}, err
	}
	return resultFor(community, id), nil
}

// Like is a set insert; liking a post twice leaves the version unchanged.
func (s *Service) Like(ctx context.Context, account userdomain.Account, postID string) (Result, error) {
	userID := string(account.ID)
	return s.mutatePost(ctx, "post_like", userID, postID, func(ctx context.Context, q db.Querier, current communitydomain.Community, post domain.Post) (bool, error) {
		if !current.HasMember(userID) {
			return false, communitydomain.ErrNotAMember
		}
		if post.LikedBy(userID) {
			return false, nil
		}
		return s.posts.AddLike(ctx, q, postID, userID)
	})
}

// Unlike does not require membership so former members can still withdraw a like.
func (s *Service) Unlike(ctx context.Context, account userdomain.Account, postID string) (Result, error) {
	userID := string(account.ID)
	return s.mutatePost(ctx, "post_unlike", userID, postID, func(ctx context.Context, q db.Querier, current communitydomain.Community, post domain.Post) (bool, error) {
		if !post.LikedBy(userID) {
			return false, nil
		}
		return s.posts.RemoveLike(ctx, q, postID, userID)
	})
}

func (s *Service) Comment(ctx context.Context, account userdomain.Account, postID, content string) (Result, error) {
	body := strings.TrimSpace(content)
	if body == "" {
		return Result{}, ErrEmptyContent
	}

	id, err := s.idGenerator.NewID()
	if err != nil {
		return Result{}, err
	}

	userID := string(account.ID)
	return s.mutatePost(ctx, "post_comment", userID, postID, func(ctx context.Context, q db.Querier, current communitydomain.Community, post domain.Post) (bool, error) {
		if !current.HasMember(userID) {
			return false, communitydomain.ErrNotAMember
		}
		comment := domain.Comment{
			ID:        id,
			PostID:    postID,
			Body:      body,
			User:      account.Summary(),
			CreatedAt: s.clock.Now(),
		}
		return true, s.posts.InsertComment(ctx, q, comment)
	})
}

func (s *Service) LikeComment(ctx context.Context, account userdomain.Account, commentID string) (Result, error) {
	communityID, postID, err := s.posts.CommunityOfComment(ctx, commentID)
	if err != nil {
		return Result{}, err
	}

	userID := string(account.ID)
	community, err := s.mutate(ctx, "comment_like", userID, communityID, func(ctx context.Context, q db.Querier, current communitydomain.Community) (bool, error) {
		post, ok := current.Post(postID)
		if !ok {
			return false, domain.ErrPostNotFound
		}
		comment, ok := post.Comment(commentID)
		if !ok {
			return false, domain.ErrCommentNotFound
		}
		if !current.HasMember(userID) {
			return false, communitydomain.ErrNotAMember
		}
		if comment.LikedBy(userID) {
			return false, nil
		}
		return s.posts.AddCommentLike(ctx, q, commentID, userID)
	})
	if err != nil {
		return Result{}, err
	}
	return resultFor(community, postID), nil
}

func (s *Service) Edit(ctx context.Context, account userdomain.Account, postID, content string) (Result, error) {
	body := strings.TrimSpace(content)
	if body == "" {
		return Result{}, ErrEmptyContent
	}

	userID := string(account.ID)
	return s.mutatePost(ctx, "post_edit", userID, postID, func(ctx context.Context, q db.Querier, current communitydomain.Community, post domain.Post) (bool, error) {
		if string(post.User.ID) != userID {
			return false, domain.ErrForbidden
		}
		if post.Body == body {
			return false, nil
		}
		return true, s.posts.UpdateBody(ctx, q, postID, body, s.clock.Now())
	})
}

func (s *Service) Delete(ctx context.Context, account userdomain.Account, postID string) (Result, error) {
	userID := string(account.ID)
	res, err := s.mutatePost(ctx, "post_delete", userID, postID, func(ctx context.Context, q db.Querier, current communitydomain.Community, post domain.Post) (bool, error) {
		if string(post.User.ID) != userID {
			return false, domain.ErrForbidden
		}
		return true, s.posts.Delete(ctx, q, postID)
	})
	res.Post = nil
	return res, err
}

// Find reads through the community cache; it needs no session.
func (s *Service) Find(ctx context.Context, postID string) (domain.Post, error) {
	communityID, err := s.posts.CommunityOfPost(ctx, postID)
	if err != nil {
		return domain.Post{}, err
	}

	community, err := s.communities.FindByID(ctx, communityID)
	if err != nil {
		return domain.Post{}, err
	}

	post, ok := community.Post(postID)
	if !ok {
		return domain.Post{}, domain.ErrPostNotFound
	}
	return post, nil
}

type postMutateFunc func(ctx context.Context, q db.Querier, current communitydomain.Community, post domain.Post) (bool, error)

func (s *Service) mutatePost(ctx context.Context, action, userID, postID string, fn postMutateFunc) (Result, error) {
	communityID, err := s.posts.CommunityOfPost(ctx, postID)
	if err != nil {
		return Result{}, err
	}

	community, err := s.mutate(ctx, action, userID, communityID, func(ctx context.Context, q db.Querier, current communitydomain.Community) (bool, error) {
		post, ok := current.Post(postID)
		if !ok {
			return false, domain.ErrPostNotFound
		}
		return fn(ctx, q, current, post)
	})
	if err != nil {
		return Result{}, err
	}
	return resultFor(community, postID), nil
}

func (s *Service) mutate(ctx context.Context, action, userID, communityID string, fn communityrepo.MutateFunc) (communitydomain.Community, error) {
	start := time.Now()
	community, err := s.repo.Mutate(ctx, communityID, fn)
	metrics.ObserveCommunityMutation(action, start, err)

	fields := logger.Fields{
		"user_id":      userID,
		"community_id": communityID,
		"action":       action,
	}
	if err != nil {
		fields["action"] = action + "_failed"
		if _, ok := commonerrors.AsDomainError(err); ok {
			s.log.WithFields(ctx, fields).Warnf("%s rejected: %v", action, err)
		} else {
			s.log.WithFields(ctx, fields).Errorf("%s failed: %v", action, err)
		}
		return communitydomain.Community{}, err
	}

	fields["version"] = community.Version
	s.log.WithFields(ctx, fields).Info("community updated")

	s.communities.AfterCommit(ctx, community)
	return community, nil
}

func resultFor(community communitydomain.Community, postID string) Result {
	res := Result{Community: community}
	if post, ok := community.Post(postID); ok {
		res.Post = &post
	}
	return res
}
