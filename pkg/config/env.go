package config

// EnvPrefix is handed to envconfig; every field carries its full variable name.
const EnvPrefix = "PRINTBRIDGE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DefaultSQLiteDSN = "file:printbridge.db?_busy_timeout=5000"
)

const (
	EnvAppEnv   = "PRINTBRIDGE_APP_ENV"
	EnvPort     = "PRINTBRIDGE_APP_PORT"
	EnvLogLevel = "PRINTBRIDGE_LOG_LEVEL"

	EnvDBDSN  = "PRINTBRIDGE_DB_DSN"
	EnvDBHost = "PRINTBRIDGE_DB_HOST"
	EnvDBUser = "PRINTBRIDGE_DB_USER"
	EnvDBName = "PRINTBRIDGE_DB_NAME"

	EnvRedisURL  = "PRINTBRIDGE_REDIS_URL"
	EnvUseSQLite = "PRINTBRIDGE_USE_SQLITE"

	EnvWebhookSecret        = "PRINTBRIDGE_WEBHOOK_SECRET"
	EnvWebhookStrict        = "PRINTBRIDGE_WEBHOOK_STRICT_SIGNATURE"
	EnvWebhookAllowUnsigned = "PRINTBRIDGE_WEBHOOK_ALLOW_UNSIGNED"
	EnvWebhookTimeout       = "PRINTBRIDGE_WEBHOOK_PROCESSING_TIMEOUT"

	EnvGCPProjectID      = "PRINTBRIDGE_GCP_PROJECT_ID"
	EnvPubSubWalletTopic = "PRINTBRIDGE_PUBSUB_WALLET_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
