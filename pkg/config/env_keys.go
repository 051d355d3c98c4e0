package config

// EnvPrefix namespaces every environment variable read by envconfig.
const EnvPrefix = "checkout"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "CHECKOUT_APP_ENV"
	EnvPort     = "CHECKOUT_APP_PORT"
	EnvDBDSN    = "CHECKOUT_DB_DSN"
	EnvDBHost   = "CHECKOUT_DB_HOST"
	EnvDBUser   = "CHECKOUT_DB_USER"
	EnvDBName   = "CHECKOUT_DB_NAME"
	EnvRedisURL = "CHECKOUT_REDIS_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
