package config

import (
	"fmt"
	"os"
	"regexp"
	"staytax/pkg/client"
	"staytax/pkg/logger"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	KafkaBrokers []string
	AuditTopic   string

	Port string

	CORSAllowedOrigins []string

	RateLimitRequestsPerMinute int

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	GatewayBaseURL      string
	GatewayNotifySecret string
	GatewayNotifyURL    string

	StorageTokenSecret string
	StorageTokenMaxTTL time.Duration

	RateCacheTTL        time.Duration
	ReservationCacheTTL time.Duration
	StatusCacheTTL      time.Duration

	PollInterval    time.Duration
	PollBatchSize   int
	PollMaxAttempts int
	PaymentDeadline time.Duration

	HTTPRetryAttempts  int
	HTTPRetryBaseDelay time.Duration

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		RedisAddr:     getEnvStr(EnvRedisAddr, ""),
		RedisPassword: getEnvStr(EnvRedisPassword, ""),
		RedisDB:       getEnvNum(EnvRedisDB, 0),

		KafkaBrokers: getEnvList(EnvKafkaBrokers),
		AuditTopic:   getEnvStr(EnvAuditTopic, "staytax.audit"),

		Port: getEnvStr(EnvPort, DefaultPort),

		CORSAllowedOrigins: getEnvList(EnvCORSAllowedOrigins),

		RateLimitRequestsPerMinute: getEnvNum(EnvRateLimitRequestsPerMinute, DefaultRateLimitRequestsPerMinute),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		GatewayBaseURL:      getEnvStr(EnvGatewayBaseURL, DefaultGatewayBaseURL),
		GatewayNotifySecret: getEnvStr(EnvGatewayNotifySecret, ""),
		GatewayNotifyURL:    getEnvStr(EnvGatewayNotifyURL, ""),

		StorageTokenSecret: getEnvStr(EnvStorageTokenSecret, ""),
		StorageTokenMaxTTL: getEnvDuration(EnvStorageTokenMaxTTL, DefaultStorageTokenMaxTTL),

		RateCacheTTL:        getEnvDuration(EnvRateCacheTTL, DefaultRateCacheTTL),
		ReservationCacheTTL: getEnvDuration(EnvReservationCacheTTL, DefaultReservationCacheTTL),
		StatusCacheTTL:      getEnvDuration(EnvStatusCacheTTL, DefaultStatusCacheTTL),

		PollInterval:    getEnvDuration(EnvPollInterval, DefaultPollInterval),
		PollBatchSize:   getEnvNum(EnvPollBatchSize, DefaultPollBatchSize),
		PollMaxAttempts: getEnvNum(EnvPollMaxAttempts, DefaultPollMaxAttempts),
		PaymentDeadline: getEnvDuration(EnvPaymentDeadline, DefaultPaymentDeadline),

		HTTPRetryAttempts:  getEnvNum(EnvHTTPRetryAttempts, DefaultHTTPRetryAttempts),
		HTTPRetryBaseDelay: getEnvDuration(EnvHTTPRetryBaseDelay, DefaultHTTPRetryBaseDelay),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, logger.INFO),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetRedis() {
	if cfg.RedisAddr == "" {
		cfg.Log.Info("Redis not configured, shared cache tier disabled")
		return
	}
	cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", cfg.MongoURI))
	}

	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}

	if cfg.MongoConnTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}
	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.IdempotencyTTL <= 0 {
		errors = append(errors, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	if cfg.RateLimitRequestsPerMinute <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequestsPerMinute must be positive, got: %d", cfg.RateLimitRequestsPerMinute))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	if cfg.StorageTokenMaxTTL <= 0 {
		errors = append(errors, fmt.Sprintf("StorageTokenMaxTTL must be positive, got: %s", cfg.StorageTokenMaxTTL))
	}

	if cfg.PollInterval <= 0 {
		errors = append(errors, fmt.Sprintf("PollInterval must be positive, got: %s", cfg.PollInterval))
	}
	if cfg.PollBatchSize <= 0 {
		errors = append(errors, fmt.Sprintf("PollBatchSize must be positive, got: %d", cfg.PollBatchSize))
	}
	if cfg.PollMaxAttempts <= 0 {
		errors = append(errors, fmt.Sprintf("PollMaxAttempts must be positive, got: %d", cfg.PollMaxAttempts))
	}
	if cfg.PaymentDeadline <= 0 {
		errors = append(errors, fmt.Sprintf("PaymentDeadline must be positive, got: %s", cfg.PaymentDeadline))
	}

	if cfg.HTTPRetryAttempts <= 0 {
		errors = append(errors, fmt.Sprintf("HTTPRetryAttempts must be positive, got: %d", cfg.HTTPRetryAttempts))
	}
	if cfg.HTTPRetryBaseDelay <= 0 {
		errors = append(errors, fmt.Sprintf("HTTPRetryBaseDelay must be positive, got: %s", cfg.HTTPRetryBaseDelay))
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"redis_addr", cfg.RedisAddr,
		"kafka_brokers", strings.Join(cfg.KafkaBrokers, ","),
		"audit_topic", cfg.AuditTopic,
		"port", cfg.Port,
		"cors_allowed_origins", strings.Join(cfg.CORSAllowedOrigins, ","),
		"rate_limit_requests_per_minute", cfg.RateLimitRequestsPerMinute,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"gateway_base_url", cfg.GatewayBaseURL,
		"gateway_notify_secret_set", cfg.GatewayNotifySecret != "",
		"storage_token_secret_set", cfg.StorageTokenSecret != "",
		"storage_token_max_ttl", cfg.StorageTokenMaxTTL,
		"rate_cache_ttl", cfg.RateCacheTTL,
		"reservation_cache_ttl", cfg.ReservationCacheTTL,
		"status_cache_ttl", cfg.StatusCacheTTL,
		"poll_interval", cfg.PollInterval,
		"poll_batch_size", cfg.PollBatchSize,
		"poll_max_attempts", cfg.PollMaxAttempts,
		"payment_deadline", cfg.PaymentDeadline,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
