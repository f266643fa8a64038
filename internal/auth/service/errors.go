package service

import (
	"errors"
	"net/http"

	authrepo "github.com/SoftwareFuze/ScrapBook/internal/auth/repository"
	commonerrors "github.com/SoftwareFuze/ScrapBook/internal/common/errors"
)

var (
	ErrInvalidCredentials = commonerrors.NewDomainError(
		"INVALID_CREDENTIALS",
		commonerrors.CategoryUnauthorized,
		http.StatusUnauthorized,
		"invalid username or password",
	)

	ErrUsernameTaken = commonerrors.NewDomainError(
		"USERNAME_TAKEN",
		commonerrors.CategoryConflict,
		http.StatusConflict,
		"username already exists",
	)

	ErrInvalidRefreshToken = commonerrors.NewDomainError(
		"INVALID_REFRESH_TOKEN",
		commonerrors.CategoryUnauthorized,
		http.StatusUnauthorized,
		"invalid refresh token",
	)

	ErrRefreshTokenExpired = commonerrors.NewDomainError(
		"REFRESH_TOKEN_EXPIRED",
		commonerrors.CategoryUnauthorized,
		http.StatusUnauthorized,
		"refresh token expired",
	)

	ErrNotLoggedIn = commonerrors.NewDomainError(
		"NOT_LOGGED_IN",
		commonerrors.CategoryUnauthorized,
		http.StatusUnauthorized,
		"You must be logged in to do that",
	)

	ErrServiceUnavailable = commonerrors.NewDomainError(
		"SERVICE_UNAVAILABLE",
		commonerrors.CategoryExternal,
		http.StatusServiceUnavailable,
		"service temporarily unavailable",
	)

	ErrValidationUsernameLength = commonerrors.NewDomainError(
		"VALIDATION_USERNAME_LENGTH",
		commonerrors.CategoryValidation,
		http.StatusBadRequest,
		"username must be between 3 and 32 characters",
	)

	ErrValidationUsernameChars = commonerrors.NewDomainError(
		"VALIDATION_USERNAME_CHARS",
		commonerrors.CategoryValidation,
		http.StatusBadRequest,
		"username may contain letters, digits, '_' and '-', and must start and end with a letter or digit",
	)

	ErrValidationPasswordLength = commonerrors.NewDomainError(
		"VALIDATION_PASSWORD_LENGTH",
		commonerrors.CategoryValidation,
		http.StatusBadRequest,
		"password must be between 8 and 72 characters",
	)

	ErrValidationPasswordLatinDigit = commonerrors.NewDomainError(
		"VALIDATION_PASSWORD_LETTER_DIGIT",
		commonerrors.CategoryValidation,
		http.StatusBadRequest,
		"password must contain at least one letter and one digit",
	)
)

func handleCircuitBreakerError(err error) error {
	if errors.Is(err, commonerrors.ErrCircuitOpen) {
		return ErrServiceUnavailable.WithCause(err)
	}
	return err
}

func handleRefreshTokenError(err error) error {
	switch {
	case errors.Is(err, ErrRefreshTokenExpired):
		return ErrRefreshTokenExpired
	case errors.Is(err, authrepo.ErrRefreshTokenNotFound), errors.Is(err, commonerrors.ErrUserNotFound):
		return ErrInvalidRefreshToken
	}
	return handleCircuitBreakerError(err)
}
