package service_test

import (
	"context"
	"sync"
	"time"

	"github.com/SoftwareFuze/ScrapBook/internal/common/db"
	communitydomain "github.com/SoftwareFuze/ScrapBook/internal/community/domain"
	communityrepo "github.com/SoftwareFuze/ScrapBook/internal/community/repository"
	"github.com/SoftwareFuze/ScrapBook/internal/post/domain"
	"github.com/SoftwareFuze/ScrapBook/internal/post/repository"
	userdomain "github.com/SoftwareFuze/ScrapBook/internal/user/domain"
)

// memoryStore backs both the community repository and the post store. Mutate holds mu
// for the whole callback, so the Querier-taking methods assume the lock is held.
type memoryStore struct {
	mu          sync.Mutex
	communities map[string]communitydomain.Community
}

var (
	_ communityrepo.Repository = (*memoryStore)(nil)
	_ repository.Store         = (*memoryStore)(nil)
)

func newMemoryStore(communities ...communitydomain.Community) *memoryStore {
	s := &memoryStore{communities: make(map[string]communitydomain.Community)}
	for _, c := range communities {
		s.communities[c.ID] = c
	}
	return s
}

func (s *memoryStore) get(id string) communitydomain.Community {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.communities[id]
}

func (s *memoryStore) Create(ctx context.Context, c communitydomain.Community, creatorID string) (communitydomain.Community, error) {
	panic("not used")
}

func (s *memoryStore) FindByID(ctx context.Context, id string) (communitydomain.Community, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.communities[id]
	if !ok {
		return communitydomain.Community{}, communitydomain.ErrCommunityNotFound
	}
	return c, nil
}

func (s *memoryStore) FindByTitle(ctx context.Context, title string) (communitydomain.Community, error) {
	panic("not used")
}

func (s *memoryStore) AddMember(ctx context.Context, q db.Querier, communityID, userID string) (bool, error) {
	panic("not used")
}

func (s *memoryStore) RemoveMember(ctx context.Context, q db.Querier, communityID, userID string) (bool, error) {
	panic("not used")
}

func (s *memoryStore) Mutate(ctx context.Context, id string, fn communityrepo.MutateFunc) (communitydomain.Community, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.communities[id]
	if !ok {
		return communitydomain.Community{}, communitydomain.ErrCommunityNotFound
	}

	changed, err := fn(ctx, nil, current)
	if err != nil {
		s.communities[id] = current
		return communitydomain.Community{}, err
	}
	if !changed {
		return current, nil
	}

	next := s.communities[id]
	next.Version++
	s.communities[id] = next
	return next, nil
}

func (s *memoryStore) CommunityOfPost(ctx context.Context, postID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.communities {
		if _, ok := c.Post(postID); ok {
			return c.ID, nil
		}
	}
	return "", domain.ErrPostNotFound
}

func (s *memoryStore) CommunityOfComment(ctx context.Context, commentID string) (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.communities {
		for _, p := range c.Posts {
			if _, ok := p.Comment(commentID); ok {
				return c.ID, p.ID, nil
			}
		}
	}
	return "", "", domain.ErrCommentNotFound
}

func (s *memoryStore) Insert(ctx context.Context, q db.Querier, post domain.Post) error {
	c := s.communities[post.CommunityID]
	post.Likes = []string{}
	post.Comments = []domain.Comment{}
	c.Posts = append(append([]domain.Post{}, c.Posts...), post)
	s.communities[post.CommunityID] = c
	return nil
}

// updatePost copies the posts slice so snapshots handed out earlier stay untouched.
func (s *memoryStore) updatePost(postID string, fn func(p *domain.Post)) bool {
	for id, c := range s.communities {
		posts := append([]domain.Post{}, c.Posts...)
		for i := range posts {
			if posts[i].ID == postID {
				fn(&posts[i])
				c.Posts = posts
				s.communities[id] = c
				return true
			}
		}
	}
	return false
}

func (s *memoryStore) UpdateBody(ctx context.Context, q db.Querier, postID, body string, at time.Time) error {
	if !s.updatePost(postID, func(p *domain.Post) {
		p.Body = body
		p.UpdatedAt = at
	}) {
		return domain.ErrPostNotFound
	}
	return nil
}

func (s *memoryStore) Delete(ctx context.Context, q db.Querier, postID string) error {
	for id, c := range s.communities {
		posts := make([]domain.Post, 0, len(c.Posts))
		for _, p := range c.Posts {
			if p.ID != postID {
				posts = append(posts, p)
			}
		}
		if len(posts) != len(c.Posts) {
			c.Posts = posts
			s.communities[id] = c
			return nil
		}
	}
	return domain.ErrPostNotFound
}

func (s *memoryStore) AddLike(ctx context.Context, q db.Querier, postID, userID string) (bool, error) {
	added := false
	s.updatePost(postID, func(p *domain.Post) {
		if !p.LikedBy(userID) {
			p.Likes = append(append([]string{}, p.Likes...), userID)
			added = true
		}
	})
	return added, nil
}

func (s *memoryStore) RemoveLike(ctx context.Context, q db.Querier, postID, userID string) (bool, error) {
	removed := false
	s.updatePost(postID, func(p *domain.Post) {
		likes := make([]string, 0, len(p.Likes))
		for _, id := range p.Likes {
			if id == userID {
				removed = true
				continue
			}
			likes = append(likes, id)
		}
		p.Likes = likes
	})
	return removed, nil
}

func (s *memoryStore) InsertComment(ctx context.Context, q db.Querier, comment domain.Comment) error {
	comment.Likes = []string{}
	if !s.updatePost(comment.PostID, func(p *domain.Post) {
		p.Comments = append(append([]domain.Comment{}, p.Comments...), comment)
	}) {
		return domain.ErrPostNotFound
	}
	return nil
}

func (s *memoryStore) AddCommentLike(ctx context.Context, q db.Querier, commentID, userID string) (bool, error) {
	added := false
	for _, c := range s.communities {
		for _, p := range c.Posts {
			if _, ok := p.Comment(commentID); !ok {
				continue
			}
			s.updatePost(p.ID, func(p *domain.Post) {
				comments := append([]domain.Comment{}, p.Comments...)
				for i := range comments {
					if comments[i].ID == commentID && !comments[i].LikedBy(userID) {
						comments[i].Likes = append(append([]string{}, comments[i].Likes...), userID)
						added = true
					}
				}
				p.Comments = comments
			})
			return added, nil
		}
	}
	return false, domain.ErrCommentNotFound
}

// recordingCommunities stands in for the community service.
type recordingCommunities struct {
	store     *memoryStore
	mu        sync.Mutex
	committed []communitydomain.Community
}

func (r *recordingCommunities) FindByID(ctx context.Context, id string) (communitydomain.Community, error) {
	return r.store.FindByID(ctx, id)
}

func (r *recordingCommunities) AfterCommit(ctx context.Context, c communitydomain.Community) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, c)
}

func (r *recordingCommunities) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

type fixedIDs struct {
	mu  sync.Mutex
	ids []string
}

func (g *fixedIDs) NewID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.ids[0]
	g.ids = g.ids[1:]
	return id, nil
}

var (
	u1 = userdomain.Account{ID: "u1", Username: "alice", Avatar: "https://img/alice.png"}
	u2 = userdomain.Account{ID: "u2", Username: "bob"}
	u3 = userdomain.Account{ID: "u3", Username: "carol"}

	testNow = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
)
