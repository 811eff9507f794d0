package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "staytax"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort = "8080"

	DefaultRateLimitRequestsPerMinute = 60

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultGatewayBaseURL = "http://localhost:8091"

	DefaultStorageTokenMaxTTL = 1 * time.Hour

	DefaultRateCacheTTL        = 10 * time.Minute
	DefaultReservationCacheTTL = 30 * time.Second
	DefaultStatusCacheTTL      = 3 * time.Second

	DefaultPollInterval    = 5 * time.Second
	DefaultPollBatchSize   = 50
	DefaultPollMaxAttempts = 120
	DefaultPaymentDeadline = 30 * time.Minute

	DefaultHTTPRetryAttempts  = 3
	DefaultHTTPRetryBaseDelay = 250 * time.Millisecond

	DefaultPaginationLimit = 100
)
