package config

const EnvPrefix = "UNIMART"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv       = "UNIMART_APP_ENV"
	EnvPort         = "UNIMART_APP_PORT"
	EnvLogLevel     = "UNIMART_LOG_LEVEL"
	EnvLogWarnStack = "UNIMART_LOG_WARN_STACK"
	EnvServiceKind  = "UNIMART_SERVICE_KIND"

	EnvDBDSN      = "UNIMART_DB_DSN"
	EnvDBDriver   = "UNIMART_DB_DRIVER"
	EnvDBHost     = "UNIMART_DB_HOST"
	EnvDBPort     = "UNIMART_DB_PORT"
	EnvDBUser     = "UNIMART_DB_USER"
	EnvDBPassword = "UNIMART_DB_PASSWORD"
	EnvDBName     = "UNIMART_DB_NAME"
	EnvDBSSLMode  = "UNIMART_DB_SSLMODE"

	EnvRedisURL  = "UNIMART_REDIS_URL"
	EnvRedisAddr = "UNIMART_REDIS_ADDR"

	EnvStripeSecretKey     = "UNIMART_STRIPE_SECRET_KEY"
	EnvStripeWebhookSecret = "UNIMART_STRIPE_WEBHOOK_SECRET"

	EnvGCPProjectID       = "UNIMART_GCP_PROJECT_ID"
	EnvPubSubVendorTopic  = "UNIMART_PUBSUB_VENDOR_TOPIC"
	EnvPubSubSettleTopic  = "UNIMART_PUBSUB_SETTLEMENT_TOPIC"
	EnvOutboxBatchSize    = "UNIMART_OUTBOX_PUBLISH_BATCH_SIZE"
	EnvOutboxMaxAttempts  = "UNIMART_OUTBOX_MAX_ATTEMPTS"
	EnvWebhookIdemTTL     = "UNIMART_WEBHOOK_IDEMPOTENCY_TTL"
	EnvCronInterval       = "UNIMART_CRON_INTERVAL"
	EnvCronLockTTL        = "UNIMART_CRON_LOCK_TTL"
	EnvCronExpiryBatch    = "UNIMART_CRON_EXPIRY_BATCH_SIZE"
	EnvAutoMigrate        = "UNIMART_AUTO_MIGRATE"
	EnvCheckoutRateLimit  = "UNIMART_CHECKOUT_RATE_LIMIT_PER_MINUTE"
	EnvPendingOrderTTL    = "UNIMART_CRON_PENDING_ORDER_TTL"
	EnvCORSAllowedOrigins = "UNIMART_CORS_ALLOWED_ORIGINS"
)
