package http

import (
	"context"

	authdomain "github.com/SoftwareFuze/ScrapBook/internal/auth/domain"
	"github.com/SoftwareFuze/ScrapBook/internal/auth/service"
	commonhttp "github.com/SoftwareFuze/ScrapBook/internal/common/http"
)

// SessionTokens is embedded in every authenticated request body.
type SessionTokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (t SessionTokens) Pair() authdomain.TokenPair {
	return authdomain.TokenPair{AccessToken: t.AccessToken, RefreshToken: t.RefreshToken}
}

// RotatedTokens is embedded in responses; it is empty unless the request consumed the
// caller's refresh token.
type RotatedTokens struct {
	GenerateNewTokens bool   `json:"generateNewTokens,omitempty"`
	NewAccessToken    string `json:"newAccessToken,omitempty"`
	NewRefreshToken   string `json:"newRefreshToken,omitempty"`
}

func RotatedFrom(v authdomain.Verification) RotatedTokens {
	if v.Rotated == nil {
		return RotatedTokens{}
	}
	return RotatedTokens{
		GenerateNewTokens: true,
		NewAccessToken:    v.Rotated.AccessToken,
		NewRefreshToken:   v.Rotated.RefreshToken,
	}
}

// Envelope carries the rotated pair into an error response so the client can still store it.
func (t RotatedTokens) Envelope() commonhttp.EnvelopeOption {
	return func(env *commonhttp.ErrorEnvelope) {
		env.GenerateNewTokens = t.GenerateNewTokens
		env.NewAccessToken = t.NewAccessToken
		env.NewRefreshToken = t.NewRefreshToken
	}
}

type Authenticator interface {
	Verify(ctx context.Context, accessToken, refreshToken string) (authdomain.Verification, error)
}

// Authenticate verifies tokens and turns a logged-out result into service.ErrNotLoggedIn.
func Authenticate(ctx context.Context, a Authenticator, tokens SessionTokens) (authdomain.Verification, error) {
	v, err := a.Verify(ctx, tokens.AccessToken, tokens.RefreshToken)
	if err != nil {
		return authdomain.Verification{}, err
	}
	if !v.LoggedIn {
		return v, service.ErrNotLoggedIn
	}
	return v, nil
}
