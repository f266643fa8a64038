package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/SoftwareFuze/ScrapBook/internal/common/constants"
	commonerrors "github.com/SoftwareFuze/ScrapBook/internal/common/errors"
	"github.com/SoftwareFuze/ScrapBook/internal/common/httpmetrics"
	"github.com/SoftwareFuze/ScrapBook/internal/common/logger"
	"github.com/SoftwareFuze/ScrapBook/internal/observability/metrics"
)

type ErrorHandler struct {
	log *logger.Logger
}

func NewErrorHandler(log *logger.Logger) *ErrorHandler {
	return &ErrorHandler{log: log}
}

func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error, opts ...EnvelopeOption) {
	if err == nil {
		return
	}

	if domainErr, ok := commonerrors.AsDomainError(err); ok {
		h.handleDomainError(w, r, domainErr, opts)
		return
	}

	ctx := r.Context()
	traceID := TraceIDFromContext(ctx)

	h.log.WithFields(ctx, logger.Fields{
		"path":   r.URL.Path,
		"action": "unhandled_error",
	}).Errorf("unhandled error: %v", err)

	metrics.HTTPErrorsTotal.WithLabelValues(
		strconv.Itoa(http.StatusInternalServerError),
		httpmetrics.NormalizePath(r.URL.Path),
		r.Method,
	).Inc()

	env := ErrorEnvelope{
		Error:   "internal server error",
		Code:    CodeInternal,
		TraceID: traceID,
	}
	for _, opt := range opts {
		opt(&env)
	}
	WriteErrorEnvelope(w, http.StatusInternalServerError, env)
}

func (h *ErrorHandler) handleDomainError(w http.ResponseWriter, r *http.Request, err commonerrors.DomainError, opts []EnvelopeOption) {
	ctx := r.Context()
	status := err.HTTPStatus()

	fields := logger.Fields{
		"error_code": err.Code(),
		"category":   string(err.Category()),
		"status":     status,
		"path":       r.URL.Path,
		"action":     "domain_error",
	}
	if status >= http.StatusInternalServerError {
		h.log.WithFields(ctx, fields).Errorf("domain error: %s", err.Error())
	} else if h.log.ShouldLog(logger.DEBUG) {
		h.log.WithFields(ctx, fields).Debugf("domain error: %s", err.Error())
	}

	metrics.DomainErrorsTotal.WithLabelValues(
		string(err.Category()),
		err.Code(),
		strconv.Itoa(status),
	).Inc()

	metrics.HTTPErrorsTotal.WithLabelValues(
		strconv.Itoa(status),
		httpmetrics.NormalizePath(r.URL.Path),
		r.Method,
	).Inc()

	env := ErrorEnvelope{
		Error:   err.Message(),
		Code:    err.Code(),
		TraceID: TraceIDFromContext(ctx),
	}
	if err.Category() == commonerrors.CategoryUnauthorized {
		env.Redirect = constants.LoginRedirectPath
	}
	for _, opt := range opts {
		opt(&env)
	}

	WriteErrorEnvelope(w, status, env)
}

func TraceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	traceID, _ := ctx.Value(constants.TraceIDKey).(string)
	return traceID
}
