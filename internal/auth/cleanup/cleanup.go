package cleanup

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/SoftwareFuze/ScrapBook/internal/common/logger"
	"github.com/SoftwareFuze/ScrapBook/internal/observability/metrics"
)

type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

type Target struct {
	Name    string
	Repo    ExpiredDeleter
	Deleted prometheus.Counter
}

func RefreshTokens(repo ExpiredDeleter) Target {
	return Target{Name: "refresh token", Repo: repo, Deleted: metrics.RefreshTokensCleanupDeleted}
}

func RevokedTokens(repo ExpiredDeleter) Target {
	return Target{Name: "revoked token", Repo: repo, Deleted: metrics.RevokedTokensCleanupDeleted}
}

// Start sweeps every target once per interval until ctx is cancelled.
func Start(ctx context.Context, interval time.Duration, log *logger.Logger, targets ...Target) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			RunOnce(ctx, log, targets...)
		}
	}
}

func RunOnce(ctx context.Context, log *logger.Logger, targets ...Target) {
	for _, target := range targets {
		deleted, err := target.Repo.DeleteExpired(ctx)
		if err != nil {
			log.WithFields(ctx, logger.Fields{
				"target": target.Name,
				"action": "token_cleanup_failed",
			}).Errorf("%s cleanup failed: %v", target.Name, err)
			continue
		}
		if deleted > 0 {
			if target.Deleted != nil {
				target.Deleted.Add(float64(deleted))
			}
			log.Infof("%s cleanup: deleted %d expired tokens", target.Name, deleted)
		}
	}
}
