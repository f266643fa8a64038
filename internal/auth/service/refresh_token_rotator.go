package service

import (
	"context"
	"errors"
	"time"

	authdomain "github.com/SoftwareFuze/ScrapBook/internal/auth/domain"
	authrepo "github.com/SoftwareFuze/ScrapBook/internal/auth/repository"
	"github.com/SoftwareFuze/ScrapBook/internal/common/clock"
	"github.com/SoftwareFuze/ScrapBook/internal/common/constants"
	commoncrypto "github.com/SoftwareFuze/ScrapBook/internal/common/crypto"
	commonerrors "github.com/SoftwareFuze/ScrapBook/internal/common/errors"
	"github.com/SoftwareFuze/ScrapBook/internal/common/logger"
	"github.com/SoftwareFuze/ScrapBook/internal/common/resilience"
	userdomain "github.com/SoftwareFuze/ScrapBook/internal/user/domain"
	userrepo "github.com/SoftwareFuze/ScrapBook/internal/user/repository"
)

type RefreshTokenRotatorInterface interface {
	Issue(ctx context.Context, account userdomain.Account) (authdomain.Session, error)
	Rotate(ctx context.Context, rawToken string) (authdomain.Session, error)
}

type RefreshTokenRotator struct {
	refreshTokenRepo authrepo.RefreshTokenRepository
	users            userrepo.Repository
	issuer           *TokenIssuer
	dbCircuitBreaker resilience.CircuitBreakerInterface
	idGenerator      commoncrypto.IDGenerator
	clock            clock.Clock
	maxRefreshTokens int
	refreshTokenTTL  time.Duration
	log              *logger.Logger
}

func NewRefreshTokenRotator(
	refreshTokenRepo authrepo.RefreshTokenRepository,
	users userrepo.Repository,
	issuer *TokenIssuer,
	dbCircuitBreaker resilience.CircuitBreakerInterface,
	idGenerator commoncrypto.IDGenerator,
	refreshTokenTTL time.Duration,
	maxRefreshTokens int,
	clock clock.Clock,
	log *logger.Logger,
) *RefreshTokenRotator {
	return &RefreshTokenRotator{
		refreshTokenRepo: refreshTokenRepo,
		users:            users,
		issuer:           issuer,
		dbCircuitBreaker: dbCircuitBreaker,
		idGenerator:      idGenerator,
		clock:            clock,
		maxRefreshTokens: maxRefreshTokens,
		refreshTokenTTL:  refreshTokenTTL,
		log:              log,
	}
}

// Issue starts a new session for account, trimming the user's oldest refresh tokens so at
// most maxRefreshTokens stay valid.
func (rtr *RefreshTokenRotator) Issue(ctx context.Context, account userdomain.Account) (authdomain.Session, error) {
	next, err := rtr.newRefreshToken(string(account.ID))
	if err != nil {
		return authdomain.Session{}, err
	}

	err = rtr.dbCircuitBreaker.Call(ctx, func(ctx context.Context) error {
		return rtr.refreshTokenRepo.TxManager().WithTx(ctx, func(ctx context.Context, tx authrepo.RefreshTokenTx) error {
			if err := tx.Create(ctx, next); err != nil {
				return err
			}
			return tx.DeleteExcessByUserID(ctx, next.UserID, rtr.maxRefreshTokens)
		})
	})
	if err != nil {
		if errors.Is(err, commonerrors.ErrCircuitOpen) {
			rtr.log.WithFields(ctx, logger.Fields{
				"user_id": string(account.ID),
				"action":  "create_refresh_token_db_circuit_open",
			}).Error("failed to create refresh token: database circuit breaker is open")
		}
		return authdomain.Session{}, handleCircuitBreakerError(err)
	}

	incrementRefreshTokensIssued()
	return rtr.session(account, next)
}

// Rotate consumes rawToken and returns a replacement pair. The old row is deleted in the same
// transaction that inserts the new one, so a refresh token can be exchanged at most once.
func (rtr *RefreshTokenRotator) Rotate(ctx context.Context, rawToken string) (authdomain.Session, error) {
	if rawToken == "" {
		return authdomain.Session{}, ErrInvalidRefreshToken
	}

	hash := commoncrypto.SHA256Hex(rawToken)

	var (
		account userdomain.Account
		next    authdomain.RefreshToken
		expired bool
		userID  string
	)

	err := rtr.dbCircuitBreaker.Call(ctx, func(ctx context.Context) error {
		return rtr.refreshTokenRepo.TxManager().WithTx(ctx, func(ctx context.Context, tx authrepo.RefreshTokenTx) error {
			stored, err := tx.FindByTokenHashForUpdate(ctx, hash)
			if err != nil {
				return err
			}
			userID = stored.UserID

			if err := tx.DeleteByTokenHash(ctx, hash); err != nil {
				return err
			}

			if stored.ExpiredAt(rtr.clock.Now()) {
				expired = true
				return nil
			}

			account, err = rtr.users.FindByID(ctx, userdomain.ID(stored.UserID))
			if err != nil {
				return err
			}

			next, err = rtr.newRefreshToken(stored.UserID)
			if err != nil {
				return err
			}
			if err := tx.Create(ctx, next); err != nil {
				return err
			}
			return tx.DeleteExcessByUserID(ctx, stored.UserID, rtr.maxRefreshTokens)
		})
	})
	if err != nil {
		mapped := handleRefreshTokenError(err)
		if errors.Is(mapped, ErrInvalidRefreshToken) {
			rtr.log.WithFields(ctx, logger.Fields{
				"action": "refresh_token_not_found",
			}).Warn("refresh token rotation failed: token not found")
		} else {
			rtr.log.WithFields(ctx, logger.Fields{
				"user_id": userID,
				"action":  "refresh_token_rotation_failed",
			}).Errorf("refresh token rotation failed: %v", err)
		}
		return authdomain.Session{}, mapped
	}

	if expired {
		rtr.log.WithFields(ctx, logger.Fields{
			"user_id": userID,
			"action":  "refresh_token_expired",
		}).Warn("refresh token expired")
		incrementRefreshTokensExpired()
		return authdomain.Session{}, ErrRefreshTokenExpired
	}

	incrementRefreshTokensUsed()
	incrementRefreshTokensIssued()

	session, err := rtr.session(account, next)
	if err != nil {
		return authdomain.Session{}, err
	}

	rtr.log.WithFields(ctx, logger.Fields{
		"user_id": userID,
		"action":  "refresh_token_rotated",
	}).Info("refresh token rotated")

	return session, nil
}

func (rtr *RefreshTokenRotator) newRefreshToken(userID string) (authdomain.RefreshToken, error) {
	rawToken, err := commoncrypto.RandomHex(constants.RefreshTokenSize)
	if err != nil {
		return authdomain.RefreshToken{}, err
	}

	id, err := rtr.idGenerator.NewID()
	if err != nil {
		return authdomain.RefreshToken{}, err
	}

	now := rtr.clock.Now()
	return authdomain.RefreshToken{
		ID:        id,
		TokenHash: commoncrypto.SHA256Hex(rawToken),
		UserID:    userID,
		ExpiresAt: now.Add(rtr.refreshTokenTTL),
		CreatedAt: now,
		RawToken:  rawToken,
	}, nil
}

func (rtr *RefreshTokenRotator) session(account userdomain.Account, refresh authdomain.RefreshToken) (authdomain.Session, error) {
	access, err := rtr.issuer.IssueAccessToken(account)
	if err != nil {
		return authdomain.Session{}, err
	}

	return authdomain.Session{
		Account: account,
		Tokens: authdomain.TokenPair{
			AccessToken:  access.Token,
			RefreshToken: refresh.RawToken,
		},
		RefreshExpiresAt: refresh.ExpiresAt,
	}, nil
}
