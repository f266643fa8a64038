package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/SoftwareFuze/ScrapBook/internal/common/clock"
	commoncrypto "github.com/SoftwareFuze/ScrapBook/internal/common/crypto"
	"github.com/SoftwareFuze/ScrapBook/internal/common/jwtverify"
	userdomain "github.com/SoftwareFuze/ScrapBook/internal/user/domain"
)

type AccessToken struct {
	Token     string
	JTI       string
	ExpiresAt time.Time
}

type TokenIssuer struct {
	jwtSecret      []byte
	idGenerator    commoncrypto.IDGenerator
	clock          clock.Clock
	accessTokenTTL time.Duration
}

func NewTokenIssuer(
	jwtSecret string,
	idGenerator commoncrypto.IDGenerator,
	accessTokenTTL time.Duration,
	clock clock.Clock,
) *TokenIssuer {
	return &TokenIssuer{
		jwtSecret:      []byte(jwtSecret),
		idGenerator:    idGenerator,
		clock:          clock,
		accessTokenTTL: accessTokenTTL,
	}
}

func (ti *TokenIssuer) IssueAccessToken(account userdomain.Account) (AccessToken, error) {
	jti, err := ti.idGenerator.NewID()
	if err != nil {
		return AccessToken{}, err
	}

	now := ti.clock.Now()
	expiresAt := now.Add(ti.accessTokenTTL)
	claims := jwt.MapClaims{
		"sub": string(account.ID),
		"usr": account.Username,
		"jti": jti,
		"exp": expiresAt.Unix(),
		"iat": now.Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := t.SignedString(ti.jwtSecret)
	if err != nil {
		return AccessToken{}, err
	}

	incrementAccessTokensIssued()
	return AccessToken{Token: tokenString, JTI: jti, ExpiresAt: expiresAt}, nil
}

func (ti *TokenIssuer) ParseToken(tokenString string) (jwtverify.Claims, error) {
	return jwtverify.ParseToken(tokenString, ti.jwtSecret, ti.clock.Now)
}
