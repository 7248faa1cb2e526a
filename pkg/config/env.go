package config

// Environment variable names referenced outside of struct tags.
const (
	EnvPrefix = "STOCKDESK"

	EnvAppEnv   = "STOCKDESK_APP_ENV"
	EnvPort     = "STOCKDESK_APP_PORT"
	EnvLogLevel = "STOCKDESK_LOG_LEVEL"

	EnvDBDSN  = "STOCKDESK_DB_DSN"
	EnvDBHost = "STOCKDESK_DB_HOST"
	EnvDBUser = "STOCKDESK_DB_USER"
	EnvDBName = "STOCKDESK_DB_NAME"

	EnvRedisURL = "STOCKDESK_REDIS_URL"

	EnvJWTSecret = "STOCKDESK_JWT_SECRET"
	EnvJWTIssuer = "STOCKDESK_JWT_ISSUER"

	EnvGCPProjectID     = "STOCKDESK_GCP_PROJECT_ID"
	EnvPubSubEventTopic = "STOCKDESK_PUBSUB_EVENT_TOPIC"
)

const (
	AppEnvDev   = "dev"
	AppEnvProd  = "prod"
	AppEnvLocal = "local"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
