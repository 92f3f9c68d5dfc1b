package config

const (
	EnvPrefix = "NUTRIFLOW"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres   = "postgres"
	DriverSQLite     = "sqlite"
	DefaultSQLiteDSN = "file:nutriflow.db?_foreign_keys=on"

	EnvAppEnv      = "NUTRIFLOW_APP_ENV"
	EnvPort        = "NUTRIFLOW_APP_PORT"
	EnvLogLevel    = "NUTRIFLOW_LOG_LEVEL"
	EnvDBDSN       = "NUTRIFLOW_DB_DSN"
	EnvDBDriver    = "NUTRIFLOW_DB_DRIVER"
	EnvDBHost      = "NUTRIFLOW_DB_HOST"
	EnvDBUser      = "NUTRIFLOW_DB_USER"
	EnvDBName      = "NUTRIFLOW_DB_NAME"
	EnvDBPass      = "NUTRIFLOW_DB_PASSWORD"
	EnvRedisURL    = "NUTRIFLOW_REDIS_URL"
	EnvUseSQLite   = "NUTRIFLOW_USE_SQLITE"
	EnvCronEvery   = "NUTRIFLOW_CRON_INTERVAL"
	EnvCronLockTTL = "NUTRIFLOW_CRON_LOCK_TTL"
	EnvCronBatch   = "NUTRIFLOW_CRON_REFRESH_BATCH_SIZE"

	maxRefreshBatch = 5000
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
