package service

import (
	"regexp"
	"unicode"

	"github.com/SoftwareFuze/ScrapBook/internal/common/constants"
	commonerrors "github.com/SoftwareFuze/ScrapBook/internal/common/errors"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*[a-zA-Z0-9]$`)

type credentialRule struct {
	ok  func(username, password string) bool
	err commonerrors.DomainError
}

// credentialRules run in order; the first failing rule decides the error shown at sign-up.
var credentialRules = []credentialRule{
	{
		ok: func(username, _ string) bool {
			return len(username) >= constants.UsernameMinLength && len(username) <= constants.UsernameMaxLength
		},
		err: ErrValidationUsernameLength,
	},
	{
		ok: func(_, password string) bool {
			return len(password) >= constants.PasswordMinLength && len(password) <= constants.PasswordMaxLength
		},
		err: ErrValidationPasswordLength,
	},
	{
		ok:  func(username, _ string) bool { return usernamePattern.MatchString(username) },
		err: ErrValidationUsernameChars,
	},
	{
		ok:  func(_, password string) bool { return hasLetterAndDigit(password) },
		err: ErrValidationPasswordLatinDigit,
	},
}

type CredentialValidator struct{}

func NewCredentialValidator() CredentialValidator {
	return CredentialValidator{}
}

func (CredentialValidator) Validate(username, password string) error {
	for _, rule := range credentialRules {
		if !rule.ok(username, password) {
			return rule.err
		}
	}
	return nil
}

func hasLetterAndDigit(value string) bool {
	var letter, digit bool
	for _, r := range value {
		letter = letter || unicode.IsLetter(r)
		digit = digit || unicode.IsDigit(r)
		if letter && digit {
			return true
		}
	}
	return false
}
