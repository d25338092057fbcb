package config

// EnvPrefix is handed to envconfig; every field carries an explicit name so it only
// matters for error messages.
const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// remember to keep these in sync with the struct tags in config.go
const (
	EnvAppEnv       = "STOREFRONT_APP_ENV"
	EnvPort         = "STOREFRONT_APP_PORT"
	EnvLogLevel     = "STOREFRONT_LOG_LEVEL"
	EnvLogFormat    = "STOREFRONT_LOG_FORMAT"
	EnvDBDSN        = "STOREFRONT_DB_DSN"
	EnvDBHost       = "STOREFRONT_DB_HOST"
	EnvDBUser       = "STOREFRONT_DB_USER"
	EnvDBPassword   = "STOREFRONT_DB_PASSWORD"
	EnvDBName       = "STOREFRONT_DB_NAME"
	EnvRedisURL     = "STOREFRONT_REDIS_URL"
	EnvRedisAddr    = "STOREFRONT_REDIS_ADDR"
	EnvStoreTimeout = "STOREFRONT_STORE_TIMEOUT"
	EnvAdminToken   = "STOREFRONT_ADMIN_TOKEN"

	EnvWorkerThreshold = "STOREFRONT_WORKER_LOW_STOCK_THRESHOLD"
)

var splitDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
