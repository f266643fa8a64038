package jwtverify

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	commonerrors "github.com/SoftwareFuze/ScrapBook/internal/common/errors"
)

type Claims struct {
	UserID    string
	Username  string
	JTI       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ParseToken validates signature and expiry of an HS256 access token against now.
func ParseToken(tokenString string, secret []byte, now func() time.Time) (Claims, error) {
	parsed, err := jwt.Parse(
		tokenString,
		func(token *jwt.Token) (any, error) {
			if token.Method != jwt.SigningMethodHS256 {
				return nil, commonerrors.ErrInvalidTokenSigningMethod
			}
			return secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(now),
	)
	if err != nil {
		return Claims{}, commonerrors.ErrInvalidToken.WithCause(err)
	}
	if !parsed.Valid {
		return Claims{}, commonerrors.ErrInvalidToken
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, commonerrors.ErrInvalidTokenClaims
	}

	sub, _ := mapClaims["sub"].(string)
	username, _ := mapClaims["usr"].(string)
	jti, _ := mapClaims["jti"].(string)
	if sub == "" || username == "" || jti == "" {
		return Claims{}, commonerrors.ErrMissingTokenClaims
	}

	claims := Claims{
		UserID:   sub,
		Username: username,
		JTI:      jti,
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	if iat, err := mapClaims.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}

	return claims, nil
}
