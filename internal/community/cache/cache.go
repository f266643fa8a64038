package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/SoftwareFuze/ScrapBook/internal/common/constants"
	"github.com/SoftwareFuze/ScrapBook/internal/community/domain"
	"github.com/SoftwareFuze/ScrapBook/internal/observability/metrics"
)

// Cache holds the latest committed snapshot of each community aggregate.
type Cache interface {
	Get(ctx context.Context, id string) (domain.Community, bool, error)
	Set(ctx context.Context, community domain.Community) error
	Delete(ctx context.Context, id string) error
}

type NoopCache struct{}

func (NoopCache) Get(context.Context, string) (domain.Community, bool, error) {
	return domain.Community{}, false, nil
}

func (NoopCache) Set(context.Context, domain.Community) error { return nil }

func (NoopCache) Delete(context.Context, string) error { return nil }

// TitleIndex maps community titles to ids so title lookups can skip the title query.
type TitleIndex struct {
	lru *expirable.LRU[string, string]
}

func NewTitleIndex(ttl time.Duration) *TitleIndex {
	return &TitleIndex{lru: expirable.NewLRU[string, string](constants.TitleIndexSize, nil, ttl)}
}

func (i *TitleIndex) Lookup(title string) (string, bool) {
	id, ok := i.lru.Get(title)
	if ok {
		metrics.CacheHitsTotal.WithLabelValues("title_index").Inc()
	} else {
		metrics.CacheMissesTotal.WithLabelValues("title_index").Inc()
	}
	return id, ok
}

func (i *TitleIndex) Store(title, id string) {
	i.lru.Add(title, id)
}

func (i *TitleIndex) Forget(title string) {
	i.lru.Remove(title)
}
