package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvKafkaBrokers = "KAFKA_BROKERS"
	EnvAuditTopic   = "AUDIT_TOPIC"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvCORSAllowedOrigins = "CORS_ALLOWED_ORIGINS"

	EnvRateLimitRequestsPerMinute = "RATE_LIMIT_REQUESTS_PER_MINUTE"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvGatewayBaseURL      = "GATEWAY_BASE_URL"
	EnvGatewayNotifySecret = "GATEWAY_NOTIFY_SECRET"
	EnvGatewayNotifyURL    = "GATEWAY_NOTIFY_URL"

	EnvStorageTokenSecret = "STORAGE_TOKEN_SECRET"
	EnvStorageTokenMaxTTL = "STORAGE_TOKEN_MAX_TTL"

	EnvRateCacheTTL        = "RATE_CACHE_TTL"
	EnvReservationCacheTTL = "RESERVATION_CACHE_TTL"
	EnvStatusCacheTTL      = "STATUS_CACHE_TTL"

	EnvPollInterval    = "POLL_INTERVAL"
	EnvPollBatchSize   = "POLL_BATCH_SIZE"
	EnvPollMaxAttempts = "POLL_MAX_ATTEMPTS"
	EnvPaymentDeadline = "PAYMENT_DEADLINE"

	EnvHTTPRetryAttempts  = "HTTP_RETRY_ATTEMPTS"
	EnvHTTPRetryBaseDelay = "HTTP_RETRY_BASE_DELAY"
)
