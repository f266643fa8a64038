package http

import (
	"net/http"

	"github.com/SoftwareFuze/ScrapBook/internal/common/constants"
	"github.com/SoftwareFuze/ScrapBook/internal/common/httpmetrics"
	"github.com/SoftwareFuze/ScrapBook/internal/common/logger"
)

func BuildBaseHandler(log *logger.Logger, corsOrigin string, handler http.Handler) http.Handler {
	collector := httpmetrics.New()
	recovery := RecoveryMiddleware(log)
	cors := CORSMiddleware(corsOrigin)
	maxRequestSize := MaxRequestSizeMiddleware(constants.DefaultMaxRequestSize)

	return SecurityHeadersMiddleware(cors(TraceIDMiddleware(recovery(maxRequestSize(collector.Wrap(handler))))))
}
