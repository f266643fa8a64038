package constants

import "time"

const (
	UsernameMinLength  = 3
	UsernameMaxLength  = 32
	PasswordMinLength  = 8
	PasswordMaxLength  = 72
	JWTSecretMinLength = 32
	RefreshTokenSize   = 32

	CommunityInterestsMaxLength = 255

	DefaultMaxRequestSize = 2_621_440

	BcryptCost = 12

	DBPoolMaxConns        = 25
	DBPoolMinConns        = 5
	DBPoolConnMaxLifetime = time.Hour
	DBPoolConnMaxIdleTime = 30 * time.Minute
	DBPoolHealthCheck     = time.Minute
	DBPoolConnectTimeout  = 5 * time.Second
	DBPoolMaxAttempts     = 10
	DBPoolRetryDelay      = time.Second
	DBPoolMetricsInterval = 30 * time.Second
	DBQueryTimeout        = 30 * time.Second

	ServerReadHeaderTimeout = 10 * time.Second
	ServerReadTimeout       = 30 * time.Second
	ServerWriteTimeout      = 30 * time.Second
	ServerIdleTimeout       = 120 * time.Second

	ShutdownTimeout = 30 * time.Second
	DrainTimeout    = 10 * time.Second

	TokenCleanupInterval = time.Hour

	RateLimitCleanupInterval = 10 * time.Minute

	RateLimitLoginRequestsPerSecond    = 0.2
	RateLimitLoginBurst                = 5
	RateLimitRegisterRequestsPerSecond = 0.1
	RateLimitRegisterBurst             = 3
	RateLimitAccountRequestsPerSecond  = 5
	RateLimitAccountBurst              = 20
	RateLimitLogoutRequestsPerSecond   = 1
	RateLimitLogoutBurst               = 5
	RateLimitGeneralRequestsPerSecond  = 20
	RateLimitGeneralBurst              = 40

	TitleIndexSize        = 4096
	RevokedTokenCacheSize = 10_000

	FeedWriteWait      = 10 * time.Second
	FeedPongWait       = 60 * time.Second
	FeedPingPeriod     = (FeedPongWait * 9) / 10
	FeedMaxMessageSize = 4096
	FeedSendBufSize    = 16
	FeedLatestSize     = 4096

	LoginRedirectPath = "/login"

	LoggerMaxSize    = 100
	LoggerMaxBackups = 3
	LoggerMaxAge     = 28
)

type TraceIDKeyType string

const TraceIDKey TraceIDKeyType = "trace_id"
