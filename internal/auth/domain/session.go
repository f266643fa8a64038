package domain

import (
	"time"

	userdomain "github.com/SoftwareFuze/ScrapBook/internal/user/domain"
)

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

func (p TokenPair) Empty() bool {
	return p.AccessToken == "" && p.RefreshToken == ""
}

// Session is a freshly issued token pair together with the account it belongs to.
type Session struct {
	Account          userdomain.Account
	Tokens           TokenPair
	RefreshExpiresAt time.Time
}

// Verification is the outcome of checking a client's token pair. Rotated is set only when
// the refresh token was consumed and the caller must hand the new pair back to the client.
type Verification struct {
	LoggedIn bool
	Account  userdomain.Account
	Redirect string
	Rotated  *TokenPair
}
