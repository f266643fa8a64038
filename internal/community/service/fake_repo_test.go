package service_test

import (
	"context"
	"sync"
	"time"

	"github.com/SoftwareFuze/ScrapBook/internal/common/db"
	"github.com/SoftwareFuze/ScrapBook/internal/community/domain"
	"github.com/SoftwareFuze/ScrapBook/internal/community/repository"
	userdomain "github.com/SoftwareFuze/ScrapBook/internal/user/domain"
)

// memoryRepo is an in-memory community store. Mutate holds mu for the whole callback, so
// AddMember and RemoveMember assume the lock is already held.
type memoryRepo struct {
	mu          sync.Mutex
	communities map[string]domain.Community
	users       map[string]userdomain.Summary
	mutations   int
}

var _ repository.Repository = (*memoryRepo)(nil)

func newMemoryRepo(users ...userdomain.Account) *memoryRepo {
	r := &memoryRepo{
		communities: make(map[string]domain.Community),
		users:       make(map[string]userdomain.Summary),
	}
	for _, u := range users {
		r.users[string(u.ID)] = u.Summary()
	}
	return r
}

func (r *memoryRepo) seed(c domain.Community) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.MembersUser = nil
	for _, id := range c.Members {
		c.MembersUser = append(c.MembersUser, r.users[id])
	}
	r.communities[c.ID] = c
}

func (r *memoryRepo) drop(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.communities, id)
}

func (r *memoryRepo) Create(ctx context.Context, c domain.Community, creatorID string) (domain.Community, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.communities {
		if existing.Title == c.Title {
			return domain.Community{}, domain.ErrTitleTaken
		}
	}
	c.Version = 1
	c.Members = []string{creatorID}
	c.MembersUser = []userdomain.Summary{r.users[creatorID]}
	r.communities[c.ID] = c
	return c, nil
}

func (r *memoryRepo) FindByID(ctx context.Context, id string) (domain.Community, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.communities[id]
	if !ok {
		return domain.Community{}, domain.ErrCommunityNotFound
	}
	return c, nil
}

func (r *memoryRepo) FindByTitle(ctx context.Context, title string) (domain.Community, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.communities {
		if c.Title == title {
			return c, nil
		}
	}
	return domain.Community{}, domain.ErrCommunityNotFound
}

func (r *memoryRepo) Mutate(ctx context.Context, id string, fn repository.MutateFunc) (domain.Community, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.communities[id]
	if !ok {
		return domain.Community{}, domain.ErrCommunityNotFound
	}
	snapshot := current

	changed, err := fn(ctx, nil, current)
	if err != nil {
		r.communities[id] = snapshot
		return domain.Community{}, err
	}
	if !changed {
		return current, nil
	}

	next := r.communities[id]
	next.Version++
	r.communities[id] = next
	r.mutations++
	return next, nil
}

func (r *memoryRepo) AddMember(ctx context.Context, q db.Querier, communityID, userID string) (bool, error) {
	c := r.communities[communityID]
	for _, id := range c.Members {
		if id == userID {
			return false, nil
		}
	}
	c.Members = append(append([]string{}, c.Members...), userID)
	c.MembersUser = append(append([]userdomain.Summary{}, c.MembersUser...), r.users[userID])
	r.communities[communityID] = c
	return true, nil
}

func (r *memoryRepo) RemoveMember(ctx context.Context, q db.Querier, communityID, userID string) (bool, error) {
	c := r.communities[communityID]
	members := make([]string, 0, len(c.Members))
	summaries := make([]userdomain.Summary, 0, len(c.MembersUser))
	removed := false
	for i, id := range c.Members {
		if id == userID {
			removed = true
			continue
		}
		members = append(members, id)
		summaries = append(summaries, c.MembersUser[i])
	}
	c.Members = members
	c.MembersUser = summaries
	r.communities[communityID] = c
	return removed, nil
}

type recordingPublisher struct {
	mu        sync.Mutex
	snapshots []domain.Community
}

func (p *recordingPublisher) Publish(c domain.Community) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshots = append(p.snapshots, c)
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.snapshots)
}

type fixedIDs struct {
	ids []string
}

func (g *fixedIDs) NewID() (string, error) {
	id := g.ids[0]
	g.ids = g.ids[1:]
	return id, nil
}

var (
	u1 = userdomain.Account{ID: "u1", Username: "alice"}
	u2 = userdomain.Account{ID: "u2", Username: "bob"}
	u3 = userdomain.Account{ID: "u3", Username: "carol"}

	testNow = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
)
