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
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	RateLimit     RateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Idempotency   IdempotencyConfig
	Calculator    CalculatorConfig
	Entitlement   EntitlementConfig
	Cron          CronConfig
	Seed          SeedConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Calculator.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"ROASAPP_APP_ENV" required:"true"`
	Port         string   `envconfig:"ROASAPP_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"ROASAPP_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"ROASAPP_LOG_WARN_STACK" default:"false"`
	LogFormat    string   `envconfig:"ROASAPP_LOG_FORMAT" default:"json"`
	CORSOrigins  []string `envconfig:"ROASAPP_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"ROASAPP_DB_DSN"`
	Driver string `envconfig:"ROASAPP_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ROASAPP_DB_HOST"`
	LegacyPort     int    `envconfig:"ROASAPP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ROASAPP_DB_USER"`
	LegacyPassword string `envconfig:"ROASAPP_DB_PASSWORD"`
	LegacyName     string `envconfig:"ROASAPP_DB_NAME"`
	LegacySSLMode  string `envconfig:"ROASAPP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ROASAPP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ROASAPP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ROASAPP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ROASAPP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver is the embedded sqlite driver.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"ROASAPP_REDIS_URL"`
	Address      string        `envconfig:"ROASAPP_REDIS_ADDR"`
	Password     string        `envconfig:"ROASAPP_REDIS_PASSWORD"`
	DB           int           `envconfig:"ROASAPP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ROASAPP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ROASAPP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ROASAPP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ROASAPP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ROASAPP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"ROASAPP_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"ROASAPP_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"ROASAPP_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"ROASAPP_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"ROASAPP_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"ROASAPP_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"ROASAPP_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"ROASAPP_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"ROASAPP_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow           time.Duration `envconfig:"ROASAPP_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginUsernameLimit    int           `envconfig:"ROASAPP_AUTH_RATE_LIMIT_LOGIN_USERNAME_LIMIT" default:"5"`
	LoginIPLimit          int           `envconfig:"ROASAPP_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow        time.Duration `envconfig:"ROASAPP_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterUsernameLimit int           `envconfig:"ROASAPP_AUTH_RATE_LIMIT_REGISTER_USERNAME_LIMIT" default:"3"`
	RegisterIPLimit       int           `envconfig:"ROASAPP_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

// RateLimitConfig drives the in-process token bucket in front of the calculator routes.
type RateLimitConfig struct {
	CalculatorRPS   float64 `envconfig:"ROASAPP_RATE_LIMIT_CALCULATOR_RPS" default:"5"`
	CalculatorBurst int     `envconfig:"ROASAPP_RATE_LIMIT_CALCULATOR_BURST" default:"10"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"ROASAPP_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"ROASAPP_AUTO_MIGRATE" default:"false"`
}

// IdempotencyConfig controls how long replayable responses are kept.
type IdempotencyConfig struct {
	TTL time.Duration `envconfig:"ROASAPP_IDEMPOTENCY_TTL" default:"24h"`
}

// CalculatorConfig holds the default cost assumptions and batch upload knobs.
type CalculatorConfig struct {
	ProductCostRatio float64       `envconfig:"ROASAPP_CALC_PRODUCT_COST_RATIO" default:"0.5"`
	FeePct           float64       `envconfig:"ROASAPP_CALC_FEE_PCT" default:"0.05"`
	AdditionalCost   float64       `envconfig:"ROASAPP_CALC_ADDITIONAL_COST" default:"1000"`
	TargetProfitPct  float64       `envconfig:"ROASAPP_CALC_TARGET_PROFIT_PCT" default:"0.1"`
	SnapshotTTL      time.Duration `envconfig:"ROASAPP_CALC_SNAPSHOT_TTL" default:"2h"`
	MaxUploadMB      int           `envconfig:"ROASAPP_CALC_MAX_UPLOAD_MB" default:"10"`
	AppSlug          string        `envconfig:"ROASAPP_CALC_APP_SLUG" default:"roas_calculator"`
}

// MaxUploadBytes converts the configured upload ceiling to bytes.
func (c CalculatorConfig) MaxUploadBytes() int64 {
	if c.MaxUploadMB <= 0 {
		return 10 << 20
	}
	return int64(c.MaxUploadMB) << 20
}

func (c CalculatorConfig) validate() error {
	switch {
	case c.ProductCostRatio < 0:
		return fmt.Errorf("%s must not be negative", EnvCalcProductCostRatio)
	case c.FeePct < 0 || c.FeePct >= 1:
		return fmt.Errorf("%s must be within [0,1)", EnvCalcFeePct)
	case c.AdditionalCost < 0:
		return fmt.Errorf("%s must not be negative", EnvCalcAdditionalCost)
	case c.TargetProfitPct < 0 || c.TargetProfitPct >= 1:
		return fmt.Errorf("%s must be within [0,1)", EnvCalcTargetProfitPct)
	}
	return nil
}

type EntitlementConfig struct {
	TrialWindow     time.Duration `envconfig:"ROASAPP_ENTITLEMENT_TRIAL_WINDOW" default:"24h"`
	ContactWhatsApp string        `envconfig:"ROASAPP_ENTITLEMENT_CONTACT_WHATSAPP" default:"6289679538444"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"ROASAPP_CRON_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"ROASAPP_CRON_LOCK_TTL" default:"5m"`
}

type SeedConfig struct {
	CatalogPath   string `envconfig:"ROASAPP_SEED_CATALOG_PATH" default:"configs/catalog.yaml"`
	AdminUsername string `envconfig:"ROASAPP_SEED_ADMIN_USERNAME" default:"admin"`
	AdminPassword string `envconfig:"ROASAPP_SEED_ADMIN_PASSWORD"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		db.Driver = DBDriverSQLite
	}
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
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
