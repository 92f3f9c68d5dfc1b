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
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.DB.validateDriver(); err != nil {
		return nil, err
	}
	if err := cfg.Cron.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"NUTRIFLOW_APP_ENV" required:"true"`
	Port         string   `envconfig:"NUTRIFLOW_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"NUTRIFLOW_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"NUTRIFLOW_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"NUTRIFLOW_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"NUTRIFLOW_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"NUTRIFLOW_DB_DSN"`
	Driver string `envconfig:"NUTRIFLOW_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"NUTRIFLOW_DB_HOST"`
	LegacyPort     int    `envconfig:"NUTRIFLOW_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"NUTRIFLOW_DB_USER"`
	LegacyPassword string `envconfig:"NUTRIFLOW_DB_PASSWORD"`
	LegacyName     string `envconfig:"NUTRIFLOW_DB_NAME"`
	LegacySSLMode  string `envconfig:"NUTRIFLOW_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"NUTRIFLOW_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"NUTRIFLOW_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"NUTRIFLOW_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"NUTRIFLOW_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"NUTRIFLOW_REDIS_URL"`
	Address      string        `envconfig:"NUTRIFLOW_REDIS_ADDR"`
	Password     string        `envconfig:"NUTRIFLOW_REDIS_PASSWORD"`
	DB           int           `envconfig:"NUTRIFLOW_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"NUTRIFLOW_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"NUTRIFLOW_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"NUTRIFLOW_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"NUTRIFLOW_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"NUTRIFLOW_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether any redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"NUTRIFLOW_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"NUTRIFLOW_AUTO_MIGRATE" default:"false"`
}

type CronConfig struct {
	Interval    time.Duration `envconfig:"NUTRIFLOW_CRON_INTERVAL" default:"24h"`
	LockTTL     time.Duration `envconfig:"NUTRIFLOW_CRON_LOCK_TTL" default:"25h"`
	RefreshSize int           `envconfig:"NUTRIFLOW_CRON_REFRESH_BATCH_SIZE" default:"500"`
}

// validate rejects cron settings that would hammer the database or let two
// replicas overlap.
func (c CronConfig) validate() error {
	if c.Interval < time.Minute {
		return fmt.Errorf("%s must be at least 1m, got %s", EnvCronEvery, c.Interval)
	}
	if c.LockTTL < c.Interval {
		return fmt.Errorf("%s (%s) must not be shorter than %s (%s)", EnvCronLockTTL, c.LockTTL, EnvCronEvery, c.Interval)
	}
	if c.RefreshSize <= 0 || c.RefreshSize > maxRefreshBatch {
		return fmt.Errorf("%s must be between 1 and %d, got %d", EnvCronBatch, maxRefreshBatch, c.RefreshSize)
	}
	return nil
}

func (db DBConfig) validateDriver() error {
	switch strings.ToLower(strings.TrimSpace(db.Driver)) {
	case "", DriverPostgres, DriverSQLite:
		return nil
	default:
		return fmt.Errorf("unsupported %s %q", EnvDBDriver, db.Driver)
	}
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" {
		return nil
	}
	if useSQLite {
		db.Driver = DriverSQLite
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
