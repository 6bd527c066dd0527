package config

// EnvPrefix is passed to envconfig; every field carries an explicit name so the
// prefix only matters for fields without one.
const EnvPrefix = "NEWSAPI"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	EnvAppEnv     = "NEWSAPI_APP_ENV"
	EnvPort       = "NEWSAPI_APP_PORT"
	EnvLogLevel   = "NEWSAPI_LOG_LEVEL"
	EnvDBDSN      = "NEWSAPI_DB_DSN"
	EnvDBHost     = "NEWSAPI_DB_HOST"
	EnvDBUser     = "NEWSAPI_DB_USER"
	EnvDBName     = "NEWSAPI_DB_NAME"
	EnvSQLitePath = "NEWSAPI_SQLITE_PATH"
	EnvUseSQLite  = "NEWSAPI_USE_SQLITE"
	EnvRedisURL   = "NEWSAPI_REDIS_URL"
	EnvJWTSecret  = "NEWSAPI_JWT_SECRET"
	EnvJWTIssuer  = "NEWSAPI_JWT_ISSUER"
	EnvPlanTTL    = "NEWSAPI_PLAN_CACHE_TTL"
	EnvCronPeriod = "NEWSAPI_CRON_INTERVAL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
