package service

import (
	"github.com/SoftwareFuze/ScrapBook/internal/observability/metrics"
)

func incrementRefreshTokensIssued() {
	metrics.RefreshTokensIssued.Inc()
}

func incrementRefreshTokensUsed() {
	metrics.RefreshTokensUsed.Inc()
}

func incrementRefreshTokensRevoked() {
	metrics.RefreshTokensRevoked.Inc()
}

func incrementRefreshTokensExpired() {
	metrics.RefreshTokensExpired.Inc()
}

func incrementAccessTokensRevoked() {
	metrics.AccessTokensRevoked.Inc()
}

func incrementAccessTokensIssued() {
	metrics.AccessTokensIssued.Inc()
}

func observeVerification(result string) {
	metrics.AuthVerificationsTotal.WithLabelValues(result).Inc()
}

func observeJWTValidation(ok bool) {
	metrics.JWTValidationsTotal.Inc()
	if !ok {
		metrics.JWTValidationsFailed.Inc()
	}
}

func observeLoginAttempt(result string) {
	metrics.LoginAttemptsTotal.WithLabelValues(result).Inc()
}
