package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is read from UNIMART_* variables. Tags carry the full variable
// name because envconfig falls back to the bare tag when the nested
// prefixed key is unset.
type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	HTTP         HTTPConfig
	Webhooks     WebhookConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Stripe       StripeConfig
	Outbox       OutboxConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.resolveDSN(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.Redis.URL == "" && c.Redis.Address == "" {
		errs = append(errs, fmt.Errorf("%s or %s is required", EnvRedisURL, EnvRedisAddr))
	}
	if c.Outbox.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1", EnvOutboxMaxAttempts))
	}
	if c.Cron.Interval <= 0 || c.Cron.LockTTL <= 0 {
		errs = append(errs, fmt.Errorf("%s and %s must be positive", EnvCronInterval, EnvCronLockTTL))
	}
	if c.HTTP.CheckoutRateLimit < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1", EnvCheckoutRateLimit))
	}
	return errors.Join(errs...)
}

type AppConfig struct {
	Env          string `envconfig:"UNIMART_APP_ENV" required:"true"`
	Port         string `envconfig:"UNIMART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"UNIMART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"UNIMART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool  { return strings.EqualFold(a.Env, AppEnvDev) }
func (a AppConfig) IsProd() bool { return strings.EqualFold(a.Env, AppEnvProd) }

// ServiceConfig.Kind is overwritten by each binary at startup.
type ServiceConfig struct {
	Kind string `envconfig:"UNIMART_SERVICE_KIND" default:"api"`
}

// DBConfig takes a DSN, or the discrete Host/User/Name parts to build one.
type DBConfig struct {
	DSN    string `envconfig:"UNIMART_DB_DSN"`
	Driver string `envconfig:"UNIMART_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"UNIMART_DB_HOST"`
	Port     int    `envconfig:"UNIMART_DB_PORT" default:"5432"`
	User     string `envconfig:"UNIMART_DB_USER"`
	Password string `envconfig:"UNIMART_DB_PASSWORD"`
	Name     string `envconfig:"UNIMART_DB_NAME"`
	SSLMode  string `envconfig:"UNIMART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"UNIMART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"UNIMART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"UNIMART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"UNIMART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (db *DBConfig) resolveDSN() error {
	if db.DSN != "" {
		return nil
	}
	var missing []string
	for env, val := range map[string]string{EnvDBHost: db.Host, EnvDBUser: db.User, EnvDBName: db.Name} {
		if val == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	dsn := url.URL{
		Scheme: "postgres",
		User:   url.User(db.User),
		Host:   db.Host + ":" + strconv.Itoa(db.Port),
		Path:   db.Name,
	}
	if db.Password != "" {
		dsn.User = url.UserPassword(db.User, db.Password)
	}
	if db.SSLMode != "" {
		dsn.RawQuery = url.Values{"sslmode": {db.SSLMode}}.Encode()
	}
	db.DSN = dsn.String()
	return nil
}

// RedisConfig: URL wins over Address when both are set.
type RedisConfig struct {
	URL          string        `envconfig:"UNIMART_REDIS_URL"`
	Address      string        `envconfig:"UNIMART_REDIS_ADDR"`
	Password     string        `envconfig:"UNIMART_REDIS_PASSWORD"`
	DB           int           `envconfig:"UNIMART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"UNIMART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"UNIMART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"UNIMART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"UNIMART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"UNIMART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"UNIMART_AUTO_MIGRATE" default:"false"`
}

type HTTPConfig struct {
	CORSAllowedOrigins []string      `envconfig:"UNIMART_CORS_ALLOWED_ORIGINS" default:"*"`
	ReadTimeout        time.Duration `envconfig:"UNIMART_HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout       time.Duration `envconfig:"UNIMART_HTTP_WRITE_TIMEOUT" default:"15s"`
	CheckoutRateLimit  int64         `envconfig:"UNIMART_CHECKOUT_RATE_LIMIT_PER_MINUTE" default:"20"`
}

// WebhookConfig.IdempotencyTTL is how long a processed gateway event id is
// remembered.
type WebhookConfig struct {
	IdempotencyTTL time.Duration `envconfig:"UNIMART_WEBHOOK_IDEMPOTENCY_TTL" default:"168h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"UNIMART_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"UNIMART_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	VendorTopic     string `envconfig:"UNIMART_PUBSUB_VENDOR_TOPIC" default:"unimart-vendor-events"`
	SettlementTopic string `envconfig:"UNIMART_PUBSUB_SETTLEMENT_TOPIC" default:"unimart-settlement-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"UNIMART_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"UNIMART_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"UNIMART_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (o OutboxConfig) PollInterval() time.Duration {
	if o.PollIntervalMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(o.PollIntervalMS) * time.Millisecond
}

type CronConfig struct {
	Interval        time.Duration `envconfig:"UNIMART_CRON_INTERVAL" default:"15m"`
	LockTTL         time.Duration `envconfig:"UNIMART_CRON_LOCK_TTL" default:"10m"`
	ExpiryBatchSize int           `envconfig:"UNIMART_CRON_EXPIRY_BATCH_SIZE" default:"200"`
	PendingOrderTTL time.Duration `envconfig:"UNIMART_CRON_PENDING_ORDER_TTL" default:"24h"`
	OutboxRetention int           `envconfig:"UNIMART_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
}

type StripeConfig struct {
	SecretKey     string `envconfig:"UNIMART_STRIPE_SECRET_KEY"`
	WebhookSecret string `envconfig:"UNIMART_STRIPE_WEBHOOK_SECRET"`
	Env           string `envconfig:"UNIMART_STRIPE_ENV" default:"test"`
}

// Environment is the lower-cased STRIPE_ENV, "test" when unset.
func (s StripeConfig) Environment() string {
	if env := strings.ToLower(strings.TrimSpace(s.Env)); env != "" {
		return env
	}
	return "test"
}
