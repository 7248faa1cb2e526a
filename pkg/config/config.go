package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	CORS         CORSConfig
	Idempotency  IdempotencyConfig
	Alerts       AlertsConfig
	Deals        DealsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOCKDESK_APP_ENV" required:"true"`
	Port         string `envconfig:"STOCKDESK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STOCKDESK_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"STOCKDESK_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"STOCKDESK_LOG_WARN_STACK" default:"false"`
	// MetricsAddr is the listen address for /metrics in the background
	// workers. Empty disables the listener.
	MetricsAddr  string `envconfig:"STOCKDESK_METRICS_ADDR"`
}

func (a AppConfig) ConsoleLogs() bool {
	return strings.EqualFold(strings.TrimSpace(a.LogFormat), "console")
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev) || strings.EqualFold(a.Env, AppEnvLocal)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"STOCKDESK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"STOCKDESK_DB_DSN"`
	Driver string `envconfig:"STOCKDESK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STOCKDESK_DB_HOST"`
	LegacyPort     int    `envconfig:"STOCKDESK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOCKDESK_DB_USER"`
	LegacyPassword string `envconfig:"STOCKDESK_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOCKDESK_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOCKDESK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOCKDESK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOCKDESK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOCKDESK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOCKDESK_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"STOCKDESK_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOCKDESK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STOCKDESK_REDIS_ADDR"`
	Password     string        `envconfig:"STOCKDESK_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOCKDESK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOCKDESK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOCKDESK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOCKDESK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOCKDESK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOCKDESK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"STOCKDESK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"STOCKDESK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"STOCKDESK_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STOCKDESK_AUTO_MIGRATE" default:"false"`
	PortalOpen  bool `envconfig:"STOCKDESK_FEATURE_PORTAL" default:"true"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"STOCKDESK_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type IdempotencyConfig struct {
	TTL time.Duration `envconfig:"STOCKDESK_IDEMPOTENCY_TTL" default:"24h"`
}

type AlertsConfig struct {
	DefaultLowStockThreshold int `envconfig:"STOCKDESK_ALERTS_LOW_STOCK_THRESHOLD" default:"3"`
}

type DealsConfig struct {
	QuoteCacheTTL    time.Duration `envconfig:"STOCKDESK_DEALS_QUOTE_CACHE_TTL" default:"30s"`
	ClaimWindow      time.Duration `envconfig:"STOCKDESK_DEALS_CLAIM_WINDOW" default:"1m"`
	ClaimLimitPerWin int           `envconfig:"STOCKDESK_DEALS_CLAIM_LIMIT" default:"5"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"STOCKDESK_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"STOCKDESK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"STOCKDESK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	EventTopic string `envconfig:"STOCKDESK_PUBSUB_EVENT_TOPIC" default:"stockdesk-domain-events"`
	AlertTopic string `envconfig:"STOCKDESK_PUBSUB_ALERT_TOPIC" default:"stockdesk-alerts"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"STOCKDESK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"STOCKDESK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"STOCKDESK_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"STOCKDESK_OUTBOX_RETENTION" default:"168h"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"STOCKDESK_CRON_INTERVAL" default:"5m"`
	LockTTL  time.Duration `envconfig:"STOCKDESK_CRON_LOCK_TTL" default:"4m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
