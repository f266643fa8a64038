package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/SoftwareFuze/ScrapBook/internal/common/clock"
	"github.com/SoftwareFuze/ScrapBook/internal/common/constants"
	commoncrypto "github.com/SoftwareFuze/ScrapBook/internal/common/crypto"
	"github.com/SoftwareFuze/ScrapBook/internal/common/db"
	commonerrors "github.com/SoftwareFuze/ScrapBook/internal/common/errors"
	"github.com/SoftwareFuze/ScrapBook/internal/common/logger"
	"github.com/SoftwareFuze/ScrapBook/internal/community/cache"
	"github.com/SoftwareFuze/ScrapBook/internal/community/domain"
	"github.com/SoftwareFuze/ScrapBook/internal/community/repository"
	"github.com/SoftwareFuze/ScrapBook/internal/observability/metrics"
	userdomain "github.com/SoftwareFuze/ScrapBook/internal/user/domain"
)

var ErrInterestsTooLong = commonerrors.ErrInvalidPayload.WithMessage("interests must be at most 255 characters in total")

// Publisher receives every committed snapshot.
type Publisher interface {
	Publish(community domain.Community)
}

type CreateInput struct {
	Title     string
	Details   string
	Interests []string
}

type Service struct {
	repo        repository.Repository
	cache       cache.Cache
	titles      *cache.TitleIndex
	publisher   Publisher
	idGenerator commoncrypto.IDGenerator
	clock       clock.Clock
	log         *logger.Logger
}

func NewService(
	repo repository.Repository,
	c cache.Cache,
	titles *cache.TitleIndex,
	publisher Publisher,
	idGenerator commoncrypto.IDGenerator,
	clock clock.Clock,
	log *logger.Logger,
) *Service {
	if c == nil {
		c = cache.NoopCache{}
	}
	return &Service{
		repo:        repo,
		cache:       c,
		titles:      titles,
		publisher:   publisher,
		idGenerator: idGenerator,
		clock:       clock,
		log:         log,
	}
}

// Join is idempotent: joining a community the account already belongs to returns the
// current aggregate without bumping its version.
func (s *Service) Join(ctx context.Context, account userdomain.Account, communityID string) (domain.Community, error) {
	start := time.Now()
	userID := string(account.ID)

	community, err := s.repo.Mutate(ctx, communityID, func(ctx context.Context, q db.Querier, current domain.Community) (bool, error) {
		if current.HasMember(userID) {
			return false, nil
		}
		return s.repo.AddMember(ctx, q, communityID, userID)
	})
	metrics.ObserveCommunityMutation("join", start, err)
	if err != nil {
		s.logMutationError(ctx, "join", userID, communityID, err)
		return domain.Community{}, err
	}

	s.log.WithFields(ctx, logger.Fields{
		"user_id":      userID,
		"community_id": communityID,
		"version":      community.Version,
		"action":       "community_join",
	}).Info("joined community")

	s.AfterCommit(ctx, community)
	return community, nil
}

func (s *Service) Leave(ctx context.Context, account userdomain.Account, communityID string) (domain.Community, error) {
	start := time.Now()
	userID := string(account.ID)

	community, err := s.repo.Mutate(ctx, communityID, func(ctx context.Context, q db.Querier, current domain.Community) (bool, error) {
		if !current.HasMember(userID) {
			return false, domain.ErrNotAMember
		}
		removed, err := s.repo.RemoveMember(ctx, q, communityID, userID)
		if err != nil {
			return false, err
		}
		if !removed {
			return false, domain.ErrNotAMember
		}
		return true, nil
	})
	metrics.ObserveCommunityMutation("leave", start, err)
	if err != nil {
		s.logMutationError(ctx, "leave", userID, communityID, err)
		return domain.Community{}, err
	}

	s.log.WithFields(ctx, logger.Fields{
		"user_id":      userID,
		"community_id": communityID,
		"version":      community.Version,
		"action":       "community_leave",
	}).Info("left community")

	s.AfterCommit(ctx, community)
	return community, nil
}

// Create inserts the community with its creator as the first member.
func (s *Service) Create(ctx context.Context, account userdomain.Account, input CreateInput) (domain.Community, error) {
	start := time.Now()

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return domain.Community{}, commonerrors.ErrInvalidPayload.WithMessage("title is required")
	}

	interests := make([]string, 0, len(input.Interests))
	total := 0
	for _, interest := range input.Interests {
		interest = strings.TrimSpace(interest)
		if interest == "" {
			continue
		}
		total += len(interest)
		interests = append(interests, interest)
	}
	if len(interests) == 0 {
		return domain.Community{}, commonerrors.ErrInvalidPayload.WithMessage("interests must have at least 1 items")
	}
	if total > constants.CommunityInterestsMaxLength {
		return domain.Community{}, ErrInterestsTooLong
	}

	id, err := s.idGenerator.NewID()
	if err != nil {
		return domain.Community{}, err
	}

	community, err := s.repo.Create(ctx, domain.Community{
		ID:        id,
		Title:     title,
		Details:   input.Details,
		Interests: interests,
		CreatedAt: s.clock.Now(),
	}, string(account.ID))
	metrics.ObserveCommunityMutation("create", start, err)
	if err != nil {
		if !errors.Is(err, domain.ErrTitleTaken) {
			s.logMutationError(ctx, "create", string(account.ID), id, err)
		}
		return domain.Community{}, err
	}

	s.log.WithFields(ctx, logger.Fields{
		"user_id":      string(account.ID),
		"community_id": community.ID,
		"action":       "community_create",
	}).Info("community created")

	s.titles.Store(community.Title, community.ID)
	s.AfterCommit(ctx, community)
	return community, nil
}

func (s *Service) FindByTitle(ctx context.Context, title string) (domain.Community, error) {
	if id, ok := s.titles.Lookup(title); ok {
		community, err := s.FindByID(ctx, id)
		if !errors.Is(err, domain.ErrCommunityNotFound) {
			return community, err
		}
		s.titles.Forget(title)
	}

	community, err := s.repo.FindByTitle(ctx, title)
	if err != nil {
		return domain.Community{}, err
	}

	s.titles.Store(community.Title, community.ID)
	s.cacheSnapshot(ctx, community)
	return community, nil
}

func (s *Service) FindByID(ctx context.Context, id string) (domain.Community, error) {
	community, ok, err := s.cache.Get(ctx, id)
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"community_id": id,
			"action":       "community_cache_get_failed",
		}).Warnf("community cache read failed: %v", err)
	}
	if ok {
		return community, nil
	}

	community, err = s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Community{}, err
	}

	s.cacheSnapshot(ctx, community)
	return community, nil
}

// AfterCommit refreshes the cache and pushes the snapshot to feed subscribers. Failures are
// logged only; the database already holds the committed state.
func (s *Service) AfterCommit(ctx context.Context, community domain.Community) {
	s.cacheSnapshot(ctx, community)
	if s.publisher != nil {
		s.publisher.Publish(community)
	}
}

func (s *Service) cacheSnapshot(ctx context.Context, community domain.Community) {
	if err := s.cache.Set(ctx, community); err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"community_id": community.ID,
			"action":       "community_cache_set_failed",
		}).Warnf("community cache write failed: %v", err)

		// An older snapshot may still be cached; readers must fall back to the database.
		if err := s.cache.Delete(ctx, community.ID); err != nil {
			s.log.WithFields(ctx, logger.Fields{
				"community_id": community.ID,
				"action":       "community_cache_delete_failed",
			}).Warnf("community cache evict failed: %v", err)
		}
	}
}

func (s *Service) logMutationError(ctx context.Context, action, userID, communityID string, err error) {
	fields := logger.Fields{
		"user_id":      userID,
		"community_id": communityID,
		"action":       "community_" + action + "_failed",
	}
	if _, ok := commonerrors.AsDomainError(err); ok {
		s.log.WithFields(ctx, fields).Warnf("community %s rejected: %v", action, err)
		return
	}
	s.log.WithFields(ctx, fields).Errorf("community %s failed: %v", action, err)
}
