package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	FeatureFlags  FeatureFlagsConfig
	Subscriptions SubscriptionsConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"NEWSAPI_APP_ENV" required:"true"`
	Port         string   `envconfig:"NEWSAPI_APP_PORT" default:"8080"`
	LogLevel     string   `envconfig:"NEWSAPI_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"NEWSAPI_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"NEWSAPI_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"NEWSAPI_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"NEWSAPI_DB_DSN"`
	Driver string `envconfig:"NEWSAPI_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"NEWSAPI_DB_HOST"`
	LegacyPort     int    `envconfig:"NEWSAPI_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"NEWSAPI_DB_USER"`
	LegacyPassword string `envconfig:"NEWSAPI_DB_PASSWORD"`
	LegacyName     string `envconfig:"NEWSAPI_DB_NAME"`
	LegacySSLMode  string `envconfig:"NEWSAPI_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"NEWSAPI_SQLITE_PATH" default:"newsapi.db"`

	MaxOpenConns    int           `envconfig:"NEWSAPI_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"NEWSAPI_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"NEWSAPI_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"NEWSAPI_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"NEWSAPI_REDIS_URL"`
	Address      string        `envconfig:"NEWSAPI_REDIS_ADDR"`
	Password     string        `envconfig:"NEWSAPI_REDIS_PASSWORD"`
	DB           int           `envconfig:"NEWSAPI_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"NEWSAPI_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"NEWSAPI_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"NEWSAPI_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"NEWSAPI_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"NEWSAPI_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"NEWSAPI_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"NEWSAPI_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"NEWSAPI_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"NEWSAPI_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"NEWSAPI_AUTO_MIGRATE" default:"false"`
}

type SubscriptionsConfig struct {
	PlanCacheTTL      time.Duration `envconfig:"NEWSAPI_PLAN_CACHE_TTL" default:"5m"`
	SweepBatchSize    int           `envconfig:"NEWSAPI_SWEEP_BATCH_SIZE" default:"500"`
	TransitionRetries int           `envconfig:"NEWSAPI_TRANSITION_RETRIES" default:"1"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"NEWSAPI_CRON_INTERVAL" default:"15m"`
	LockTTL  time.Duration `envconfig:"NEWSAPI_CRON_LOCK_TTL" default:"14m"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		if strings.TrimSpace(db.SQLitePath) == "" {
			return fmt.Errorf("%s is required when %s is set", EnvSQLitePath, EnvUseSQLite)
		}
		db.Driver = DriverSQLite
		return nil
	}
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
