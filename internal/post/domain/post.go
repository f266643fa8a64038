package domain

import (
	"time"

	userdomain "github.com/SoftwareFuze/ScrapBook/internal/user/domain"
)

type Image struct {
	URL string `json:"url"`
}

type Comment struct {
	ID        string             `json:"id"`
	PostID    string             `json:"postID"`
	Body      string             `json:"body"`
	User      userdomain.Summary `json:"user"`
	Likes     []string           `json:"likes"`
	CreatedAt time.Time          `json:"createdAt"`
}

type Post struct {
	ID          string             `json:"id"`
	CommunityID string             `json:"communityID"`
	Body        string             `json:"body"`
	Images      []Image            `json:"images"`
	User        userdomain.Summary `json:"user"`
	Likes       []string           `json:"likes"`
	Comments    []Comment          `json:"comments"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

func (p Post) LikedBy(userID string) bool {
	return contains(p.Likes, userID)
}

func (p Post) Comment(id string) (Comment, bool) {
	for _, c := range p.Comments {
		if c.ID == id {
			return c, true
		}
	}
	return Comment{}, false
}

func (c Comment) LikedBy(userID string) bool {
	return contains(c.Likes, userID)
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
