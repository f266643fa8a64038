package domain

import (
	"net/http"

	commonerrors "github.com/SoftwareFuze/ScrapBook/internal/common/errors"
)

var (
	ErrPostNotFound = commonerrors.NewDomainError(
		"POST_NOT_FOUND",
		commonerrors.CategoryNotFound,
		http.StatusNotFound,
		"Post not found",
	)

	ErrCommentNotFound = commonerrors.NewDomainError(
		"COMMENT_NOT_FOUND",
		commonerrors.CategoryNotFound,
		http.StatusNotFound,
		"Comment not found",
	)

	ErrForbidden = commonerrors.NewDomainError(
		"FORBIDDEN",
		commonerrors.CategoryForbidden,
		http.StatusForbidden,
		"Only the author can change this post",
	)
)
