package service

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	authrepo "github.com/SoftwareFuze/ScrapBook/internal/auth/repository"
	"github.com/SoftwareFuze/ScrapBook/internal/common/constants"
	"github.com/SoftwareFuze/ScrapBook/internal/common/resilience"
	"github.com/SoftwareFuze/ScrapBook/internal/observability/metrics"
)

// RevocationList answers "was this jti revoked" with an in-process cache in front of
// revoked_tokens. Only positive answers are cached; a jti never becomes un-revoked.
type RevocationList struct {
	repo             authrepo.RevokedTokenRepository
	dbCircuitBreaker resilience.CircuitBreakerInterface
	revoked          *expirable.LRU[string, struct{}]
}

func NewRevocationList(
	repo authrepo.RevokedTokenRepository,
	dbCircuitBreaker resilience.CircuitBreakerInterface,
	accessTokenTTL time.Duration,
) *RevocationList {
	return &RevocationList{
		repo:             repo,
		dbCircuitBreaker: dbCircuitBreaker,
		revoked:          expirable.NewLRU[string, struct{}](constants.RevokedTokenCacheSize, nil, accessTokenTTL),
	}
}

func (l *RevocationList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if _, ok := l.revoked.Get(jti); ok {
		metrics.CacheHitsTotal.WithLabelValues("revoked_tokens").Inc()
		return true, nil
	}
	metrics.CacheMissesTotal.WithLabelValues("revoked_tokens").Inc()

	var revoked bool
	err := l.dbCircuitBreaker.Call(ctx, func(ctx context.Context) error {
		var err error
		revoked, err = l.repo.IsRevoked(ctx, jti)
		return err
	})
	if err != nil {
		return false, handleCircuitBreakerError(err)
	}
	if revoked {
		l.revoked.Add(jti, struct{}{})
	}
	return revoked, nil
}

func (l *RevocationList) Revoke(ctx context.Context, jti, userID string, expiresAt time.Time) error {
	err := l.dbCircuitBreaker.Call(ctx, func(ctx context.Context) error {
		return l.repo.Revoke(ctx, jti, userID, expiresAt)
	})
	if err != nil {
		return handleCircuitBreakerError(err)
	}
	l.revoked.Add(jti, struct{}{})
	incrementAccessTokensRevoked()
	return nil
}
