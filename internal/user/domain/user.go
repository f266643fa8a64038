package domain

import "time"

type ID string

type Account struct {
	ID           ID        `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Avatar       string    `json:"avatar"`
	Communities  []string  `json:"communities"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Summary is the public subset of an account embedded in communities, posts and comments.
type Summary struct {
	ID       ID     `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

func (a Account) Summary() Summary {
	return Summary{ID: a.ID, Username: a.Username, Avatar: a.Avatar}
}

func (a Account) IsMemberOf(communityID string) bool {
	for _, id := range a.Communities {
		if id == communityID {
			return true
		}
	}
	return false
}
