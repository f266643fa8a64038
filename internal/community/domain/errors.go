package domain

import (
	"net/http"

	commonerrors "github.com/SoftwareFuze/ScrapBook/internal/common/errors"
)

var (
	ErrCommunityNotFound = commonerrors.NewDomainError(
		"COMMUNITY_NOT_FOUND",
		commonerrors.CategoryNotFound,
		http.StatusNotFound,
		"Community not found",
	)

	ErrNotAMember = commonerrors.NewDomainError(
		"NOT_A_MEMBER",
		commonerrors.CategoryConflict,
		http.StatusConflict,
		"You are not a member of this community",
	)

	ErrTitleTaken = commonerrors.NewDomainError(
		"TITLE_TAKEN",
		commonerrors.CategoryConflict,
		http.StatusConflict,
		"A community with this title already exists",
	)
)
