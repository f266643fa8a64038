package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	authdomain "github.com/SoftwareFuze/ScrapBook/internal/auth/domain"
	authrepo "github.com/SoftwareFuze/ScrapBook/internal/auth/repository"
	"github.com/SoftwareFuze/ScrapBook/internal/common/clock"
	commoncrypto "github.com/SoftwareFuze/ScrapBook/internal/common/crypto"
	commonerrors "github.com/SoftwareFuze/ScrapBook/internal/common/errors"
	"github.com/SoftwareFuze/ScrapBook/internal/common/logger"
	"github.com/SoftwareFuze/ScrapBook/internal/common/resilience"
	userdomain "github.com/SoftwareFuze/ScrapBook/internal/user/domain"
	userrepo "github.com/SoftwareFuze/ScrapBook/internal/user/repository"
)

type Revoker interface {
	Revoke(ctx context.Context, jti, userID string, expiresAt time.Time) error
}

type AuthService struct {
	repo             userrepo.Repository
	refreshTokenRepo authrepo.RefreshTokenRepository
	rotator          RefreshTokenRotatorInterface
	issuer           *TokenIssuer
	revoker          Revoker
	hasher           commoncrypto.PasswordHasher
	idGenerator      commoncrypto.IDGenerator
	validator        CredentialValidator
	dbCircuitBreaker resilience.CircuitBreakerInterface
	clock            clock.Clock
	log              *logger.Logger
}

func NewAuthService(
	repo userrepo.Repository,
	refreshTokenRepo authrepo.RefreshTokenRepository,
	rotator RefreshTokenRotatorInterface,
	issuer *TokenIssuer,
	revoker Revoker,
	hasher commoncrypto.PasswordHasher,
	idGenerator commoncrypto.IDGenerator,
	dbCircuitBreaker resilience.CircuitBreakerInterface,
	clock clock.Clock,
	log *logger.Logger,
) *AuthService {
	return &AuthService{
		repo:             repo,
		refreshTokenRepo: refreshTokenRepo,
		rotator:          rotator,
		issuer:           issuer,
		revoker:          revoker,
		hasher:           hasher,
		idGenerator:      idGenerator,
		validator:        NewCredentialValidator(),
		dbCircuitBreaker: dbCircuitBreaker,
		clock:            clock,
		log:              log,
	}
}

type RegisterInput struct {
	Username string
	Password string
	Avatar   string
}

type LoginInput struct {
	Username string
	Password string
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (authdomain.Session, error) {
	s.log.WithFields(ctx, logger.Fields{
		"username": input.Username,
		"action":   "register_attempt",
	}).Info("register attempt")

	if err := s.validator.Validate(input.Username, input.Password); err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"username": input.Username,
			"action":   "register_validation_failed",
		}).Warnf("register validation failed: %v", err)
		return authdomain.Session{}, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"username": input.Username,
			"action":   "register_hash_failed",
		}).Errorf("register failed: password hash error: %v", err)
		return authdomain.Session{}, fmt.Errorf("failed to hash password: %w", err)
	}

	id, err := s.idGenerator.NewID()
	if err != nil {
		return authdomain.Session{}, fmt.Errorf("failed to generate user id: %w", err)
	}

	account := userdomain.Account{
		ID:           userdomain.ID(id),
		Username:     input.Username,
		PasswordHash: hash,
		Avatar:       input.Avatar,
		Communities:  []string{},
		CreatedAt:    s.clock.Now(),
	}

	err = s.dbCircuitBreaker.Call(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, account)
	})
	if err != nil {
		if errors.Is(err, commonerrors.ErrUsernameAlreadyExists) {
			s.log.WithFields(ctx, logger.Fields{
				"username": input.Username,
				"action":   "register_username_exists",
			}).Warn("register failed: already exists")
			return authdomain.Session{}, ErrUsernameTaken
		}
		s.log.WithFields(ctx, logger.Fields{
			"username": input.Username,
			"action":   "register_create_failed",
		}).Errorf("register failed: %v", err)
		return authdomain.Session{}, handleCircuitBreakerError(err)
	}

	session, err := s.rotator.Issue(ctx, account)
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"user_id": string(account.ID),
			"action":  "register_token_issue_failed",
		}).Errorf("register failed: token issue error: %v", err)
		return authdomain.Session{}, err
	}

	s.log.WithFields(ctx, logger.Fields{
		"username": account.Username,
		"user_id":  string(account.ID),
		"action":   "register_success",
	}).Info("register success")

	return session, nil
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (authdomain.Session, error) {
	s.log.WithFields(ctx, logger.Fields{
		"username": input.Username,
		"action":   "login_attempt",
	}).Info("login attempt")

	if input.Username == "" || input.Password == "" {
		observeLoginAttempt("invalid")
		return authdomain.Session{}, ErrInvalidCredentials
	}

	var account userdomain.Account
	err := s.dbCircuitBreaker.Call(ctx, func(ctx context.Context) error {
		var err error
		account, err = s.repo.FindByUsername(ctx, input.Username)
		return err
	})
	if err != nil {
		if errors.Is(err, commonerrors.ErrUserNotFound) {
			s.log.WithFields(ctx, logger.Fields{
				"username": input.Username,
				"action":   "login_user_not_found",
			}).Warn("login failed: not found")
			observeLoginAttempt("invalid")
			return authdomain.Session{}, ErrInvalidCredentials
		}
		s.log.WithFields(ctx, logger.Fields{
			"username": input.Username,
			"action":   "login_fetch_failed",
		}).Errorf("login failed: %v", err)
		observeLoginAttempt("error")
		return authdomain.Session{}, handleCircuitBreakerError(err)
	}

	if err := s.hasher.Compare(account.PasswordHash, input.Password); err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"username": input.Username,
			"action":   "login_invalid_password",
		}).Warn("login failed: invalid password")
		observeLoginAttempt("invalid")
		return authdomain.Session{}, ErrInvalidCredentials
	}

	session, err := s.rotator.Issue(ctx, account)
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"user_id": string(account.ID),
			"action":  "login_token_issue_failed",
		}).Errorf("login failed: token issue error: %v", err)
		observeLoginAttempt("error")
		return authdomain.Session{}, err
	}

	s.log.WithFields(ctx, logger.Fields{
		"username": account.Username,
		"user_id":  string(account.ID),
		"action":   "login_success",
	}).Info("login success")
	observeLoginAttempt("success")

	return session, nil
}

// Logout revokes the access token's jti and deletes the refresh token. Tokens that no longer
// parse or no longer exist are ignored so logout always succeeds for the client.
func (s *AuthService) Logout(ctx context.Context, tokens authdomain.TokenPair) error {
	if tokens.AccessToken != "" {
		claims, err := s.issuer.ParseToken(tokens.AccessToken)
		if err == nil {
			if err := s.revoker.Revoke(ctx, claims.JTI, claims.UserID, claims.ExpiresAt); err != nil {
				s.log.WithFields(ctx, logger.Fields{
					"user_id": claims.UserID,
					"action":  "logout_revoke_failed",
				}).Errorf("logout failed to revoke access token: %v", err)
				return err
			}
		}
	}

	if tokens.RefreshToken != "" {
		hash := commoncrypto.SHA256Hex(tokens.RefreshToken)
		err := s.dbCircuitBreaker.Call(ctx, func(ctx context.Context) error {
			return s.refreshTokenRepo.DeleteByTokenHash(ctx, hash)
		})
		if err != nil {
			s.log.WithFields(ctx, logger.Fields{
				"action": "logout_refresh_delete_failed",
			}).Errorf("logout failed to delete refresh token: %v", err)
			return handleCircuitBreakerError(err)
		}
		incrementRefreshTokensRevoked()
	}

	s.log.WithFields(ctx, logger.Fields{
		"action": "logout_success",
	}).Info("logout success")

	return nil
}
