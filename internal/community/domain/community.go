package domain

import (
	"time"

	postdomain "github.com/SoftwareFuze/ScrapBook/internal/post/domain"
	userdomain "github.com/SoftwareFuze/ScrapBook/internal/user/domain"
)

// Community is the aggregate returned by every mutation. Members and MembersUser are built
// from the same rows, so they always hold the same ids in the same order.
type Community struct {
	ID          string               `json:"id"`
	Title       string               `json:"title"`
	Details     string               `json:"details"`
	Interests   []string             `json:"interests"`
	Members     []string             `json:"members"`
	MembersUser []userdomain.Summary `json:"membersUser"`
	Posts       []postdomain.Post    `json:"posts"`
	Version     int64                `json:"version"`
	CreatedAt   time.Time            `json:"createdAt"`
}

func (c Community) HasMember(userID string) bool {
	for _, id := range c.Members {
		if id == userID {
			return true
		}
	}
	return false
}

func (c Community) Post(id string) (postdomain.Post, bool) {
	for _, p := range c.Posts {
		if p.ID == id {
			return p, true
		}
	}
	return postdomain.Post{}, false
}
