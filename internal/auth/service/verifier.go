package service

import (
	"context"
	"errors"

	authdomain "github.com/SoftwareFuze/ScrapBook/internal/auth/domain"
	"github.com/SoftwareFuze/ScrapBook/internal/common/constants"
	commonerrors "github.com/SoftwareFuze/ScrapBook/internal/common/errors"
	"github.com/SoftwareFuze/ScrapBook/internal/common/logger"
	"github.com/SoftwareFuze/ScrapBook/internal/common/resilience"
	userdomain "github.com/SoftwareFuze/ScrapBook/internal/user/domain"
	userrepo "github.com/SoftwareFuze/ScrapBook/internal/user/repository"
)

type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type Verifier struct {
	issuer           *TokenIssuer
	rotator          RefreshTokenRotatorInterface
	revocations      RevocationChecker
	users            userrepo.Repository
	dbCircuitBreaker resilience.CircuitBreakerInterface
	log              *logger.Logger
}

func NewVerifier(
	issuer *TokenIssuer,
	rotator RefreshTokenRotatorInterface,
	revocations RevocationChecker,
	users userrepo.Repository,
	dbCircuitBreaker resilience.CircuitBreakerInterface,
	log *logger.Logger,
) *Verifier {
	return &Verifier{
		issuer:           issuer,
		rotator:          rotator,
		revocations:      revocations,
		users:            users,
		dbCircuitBreaker: dbCircuitBreaker,
		log:              log,
	}
}

// Verify resolves the caller from the access token, falling back to rotating the refresh
// token. Bad or stale tokens produce LoggedIn=false; only infrastructure failures are errors.
func (v *Verifier) Verify(ctx context.Context, accessToken, refreshToken string) (authdomain.Verification, error) {
	if accessToken != "" {
		account, ok, err := v.verifyAccessToken(ctx, accessToken)
		if err != nil {
			observeVerification("error")
			return authdomain.Verification{}, err
		}
		if ok {
			observeVerification("access_token")
			return authdomain.Verification{LoggedIn: true, Account: account}, nil
		}
	}

	if refreshToken != "" {
		session, err := v.rotator.Rotate(ctx, refreshToken)
		switch {
		case err == nil:
			observeVerification("rotated")
			tokens := session.Tokens
			return authdomain.Verification{
				LoggedIn: true,
				Account:  session.Account,
				Rotated:  &tokens,
			}, nil
		case errors.Is(err, ErrInvalidRefreshToken), errors.Is(err, ErrRefreshTokenExpired):
		default:
			observeVerification("error")
			return authdomain.Verification{}, err
		}
	}

	observeVerification("logged_out")
	return authdomain.Verification{Redirect: constants.LoginRedirectPath}, nil
}

func (v *Verifier) verifyAccessToken(ctx context.Context, accessToken string) (userdomain.Account, bool, error) {
	claims, err := v.issuer.ParseToken(accessToken)
	observeJWTValidation(err == nil)
	if err != nil {
		if v.log.ShouldLog(logger.DEBUG) {
			v.log.WithFields(ctx, logger.Fields{
				"action": "access_token_rejected",
			}).Debugf("access token rejected: %v", err)
		}
		return userdomain.Account{}, false, nil
	}

	revoked, err := v.revocations.IsRevoked(ctx, claims.JTI)
	if err != nil {
		v.log.WithFields(ctx, logger.Fields{
			"user_id": claims.UserID,
			"action":  "revocation_check_failed",
		}).Errorf("revocation check failed: %v", err)
		return userdomain.Account{}, false, err
	}
	if revoked {
		v.log.WithFields(ctx, logger.Fields{
			"user_id": claims.UserID,
			"action":  "access_token_revoked",
		}).Warn("access token was revoked")
		return userdomain.Account{}, false, nil
	}

	var account userdomain.Account
	err = v.dbCircuitBreaker.Call(ctx, func(ctx context.Context) error {
		var err error
		account, err = v.users.FindByID(ctx, userdomain.ID(claims.UserID))
		return err
	})
	if err != nil {
		if errors.Is(err, commonerrors.ErrUserNotFound) {
			return userdomain.Account{}, false, nil
		}
		return userdomain.Account{}, false, handleCircuitBreakerError(err)
	}

	return account, true, nil
}
