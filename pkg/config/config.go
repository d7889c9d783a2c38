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
	FeatureFlags FeatureFlagsConfig
	Webhooks     WebhooksConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Webhooks.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PRINTBRIDGE_APP_ENV" required:"true"`
	Port         string `envconfig:"PRINTBRIDGE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PRINTBRIDGE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PRINTBRIDGE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PRINTBRIDGE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PRINTBRIDGE_DB_DSN"`
	Driver string `envconfig:"PRINTBRIDGE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PRINTBRIDGE_DB_HOST"`
	LegacyPort     int    `envconfig:"PRINTBRIDGE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PRINTBRIDGE_DB_USER"`
	LegacyPassword string `envconfig:"PRINTBRIDGE_DB_PASSWORD"`
	LegacyName     string `envconfig:"PRINTBRIDGE_DB_NAME"`
	LegacySSLMode  string `envconfig:"PRINTBRIDGE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PRINTBRIDGE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PRINTBRIDGE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PRINTBRIDGE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PRINTBRIDGE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PRINTBRIDGE_REDIS_URL"`
	Address      string        `envconfig:"PRINTBRIDGE_REDIS_ADDR"`
	Password     string        `envconfig:"PRINTBRIDGE_REDIS_PASSWORD"`
	DB           int           `envconfig:"PRINTBRIDGE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PRINTBRIDGE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PRINTBRIDGE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PRINTBRIDGE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PRINTBRIDGE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PRINTBRIDGE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a redis endpoint was configured at all.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PRINTBRIDGE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PRINTBRIDGE_AUTO_MIGRATE" default:"false"`
}

// WebhooksConfig controls how inbound storefront deliveries are trusted and bounded.
type WebhooksConfig struct {
	Secret            string        `envconfig:"PRINTBRIDGE_WEBHOOK_SECRET"`
	StrictSignature   bool          `envconfig:"PRINTBRIDGE_WEBHOOK_STRICT_SIGNATURE" default:"true"`
	AllowUnsigned     bool          `envconfig:"PRINTBRIDGE_WEBHOOK_ALLOW_UNSIGNED" default:"false"`
	ProcessingTimeout time.Duration `envconfig:"PRINTBRIDGE_WEBHOOK_PROCESSING_TIMEOUT" default:"20s"`
	MaxBodyBytes      int64         `envconfig:"PRINTBRIDGE_WEBHOOK_MAX_BODY_BYTES" default:"2097152"`
	DeliveryTTL       time.Duration `envconfig:"PRINTBRIDGE_WEBHOOK_DELIVERY_TTL" default:"72h"`
}

func (w WebhooksConfig) validate() error {
	if w.StrictSignature && strings.TrimSpace(w.Secret) == "" {
		return fmt.Errorf("%s is required when %s is enabled", EnvWebhookSecret, EnvWebhookStrict)
	}
	if w.ProcessingTimeout < 0 {
		return fmt.Errorf("%s must be non-negative", EnvWebhookTimeout)
	}
	return nil
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PRINTBRIDGE_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"PRINTBRIDGE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PRINTBRIDGE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	WalletTopic string `envconfig:"PRINTBRIDGE_PUBSUB_WALLET_TOPIC" default:"pb-wallet-events"`
	OrdersTopic string `envconfig:"PRINTBRIDGE_PUBSUB_ORDERS_TOPIC" default:"pb-order-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"PRINTBRIDGE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"PRINTBRIDGE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"PRINTBRIDGE_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN(sqlite bool) error {
	if db.DSN != "" {
		return nil
	}
	if sqlite {
		db.DSN = DefaultSQLiteDSN
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
