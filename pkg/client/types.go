package client

import "time"

type Summary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

type Account struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Avatar      string    `json:"avatar"`
	Communities []string  `json:"communities"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Image struct {
	URL string `json:"url"`
}

type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"postID"`
	Body      string    `json:"body"`
	User      Summary   `json:"user"`
	Likes     []string  `json:"likes"`
	CreatedAt time.Time `json:"createdAt"`
}

type Post struct {
	ID          string    `json:"id"`
	CommunityID string    `json:"communityID"`
	Body        string    `json:"body"`
	Images      []Image   `json:"images"`
	User        Summary   `json:"user"`
	Likes       []string  `json:"likes"`
	Comments    []Comment `json:"comments"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Community struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Details     string    `json:"details"`
	Interests   []string  `json:"interests"`
	Members     []string  `json:"members"`
	MembersUser []Summary `json:"membersUser"`
	Posts       []Post    `json:"posts"`
	Version     int64     `json:"version"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (c Community) HasMember(userID string) bool {
	for _, id := range c.Members {
		if id == userID {
			return true
		}
	}
	return false
}

// Response is the union of every body the API returns, success or failure.
type Response struct {
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
	Code     string `json:"code,omitempty"`
	Redirect string `json:"redirect,omitempty"`

	LoggedIn     bool     `json:"loggedIn,omitempty"`
	Account      *Account `json:"account,omitempty"`
	AccessToken  string   `json:"accessToken,omitempty"`
	RefreshToken string   `json:"refreshToken,omitempty"`

	GenerateNewTokens bool   `json:"generateNewTokens,omitempty"`
	NewAccessToken    string `json:"newAccessToken,omitempty"`
	NewRefreshToken   string `json:"newRefreshToken,omitempty"`

	Community *Community `json:"community,omitempty"`
	Post      *Post      `json:"post,omitempty"`
}

// Rotated returns the replacement pair when the server consumed the caller's refresh token.
func (r Response) Rotated() (TokenPair, bool) {
	if !r.GenerateNewTokens {
		return TokenPair{}, false
	}
	return TokenPair{AccessToken: r.NewAccessToken, RefreshToken: r.NewRefreshToken}, true
}
