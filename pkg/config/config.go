package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "CLIPBOOST_DB_DSN"
	EnvDBHost = "CLIPBOOST_DB_HOST"
	EnvDBUser = "CLIPBOOST_DB_USER"
	EnvDBName = "CLIPBOOST_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Fees         FeesConfig
	Payout       PayoutConfig
	Payments     PaymentsConfig
	Pacing       PacingConfig
	Confidence   ConfidenceConfig
	Tokens       TokensConfig
	RateLimit    RateLimitConfig
	Cron         CronConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CLIPBOOST_APP_ENV" required:"true"`
	Port         string `envconfig:"CLIPBOOST_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CLIPBOOST_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CLIPBOOST_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"CLIPBOOST_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"CLIPBOOST_DB_DSN"`
	Driver string `envconfig:"CLIPBOOST_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CLIPBOOST_DB_HOST"`
	LegacyPort     int    `envconfig:"CLIPBOOST_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CLIPBOOST_DB_USER"`
	LegacyPassword string `envconfig:"CLIPBOOST_DB_PASSWORD"`
	LegacyName     string `envconfig:"CLIPBOOST_DB_NAME"`
	LegacySSLMode  string `envconfig:"CLIPBOOST_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CLIPBOOST_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CLIPBOOST_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CLIPBOOST_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CLIPBOOST_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CLIPBOOST_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CLIPBOOST_REDIS_ADDR"`
	Password     string        `envconfig:"CLIPBOOST_REDIS_PASSWORD"`
	DB           int           `envconfig:"CLIPBOOST_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CLIPBOOST_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CLIPBOOST_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CLIPBOOST_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CLIPBOOST_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CLIPBOOST_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"CLIPBOOST_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"CLIPBOOST_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"CLIPBOOST_JWT_EXPIRATION_MINUTES" default:"60"`
}

// FeesConfig is the injected platform-fee-rate source. The fee is read at
// withdrawal-request time, never from ambient global state.
type FeesConfig struct {
	PlatformFeeBps int `envconfig:"CLIPBOOST_PLATFORM_FEE_BPS" default:"500"`
}

type PayoutConfig struct {
	BaseURL string        `envconfig:"CLIPBOOST_PAYOUT_BASE_URL"`
	APIKey  string        `envconfig:"CLIPBOOST_PAYOUT_API_KEY"`
	Timeout time.Duration `envconfig:"CLIPBOOST_PAYOUT_TIMEOUT" default:"10s"`
}

// PaymentsConfig covers the external payment provider that settles token
// purchases. The webhook secret signs the settlement callbacks.
type PaymentsConfig struct {
	WebhookSecret string        `envconfig:"CLIPBOOST_PAYMENTS_WEBHOOK_SECRET"`
	WebhookTTL    time.Duration `envconfig:"CLIPBOOST_PAYMENTS_WEBHOOK_TTL" default:"168h"`
}

// PacingConfig carries the policy thresholds for delivery-variance
// classification. Values are variance percentage points.
type PacingConfig struct {
	OverDeliveryVariance  float64 `envconfig:"CLIPBOOST_PACING_OVER_VARIANCE" default:"20"`
	UnderDeliveryVariance float64 `envconfig:"CLIPBOOST_PACING_UNDER_VARIANCE" default:"-50"`
	MaintainBand          float64 `envconfig:"CLIPBOOST_PACING_MAINTAIN_BAND" default:"10"`

	AcceleratedOverVariance  float64 `envconfig:"CLIPBOOST_PACING_ACCELERATED_OVER_VARIANCE" default:"35"`
	ConservativeOverVariance float64 `envconfig:"CLIPBOOST_PACING_CONSERVATIVE_OVER_VARIANCE" default:"10"`
}

// ConfidenceConfig carries scorer penalty thresholds and the trailing window.
// The reserve holdback and spike heuristics are configurable defaults, not
// contractual constants.
type ConfidenceConfig struct {
	WindowDays           int     `envconfig:"CLIPBOOST_CONFIDENCE_WINDOW_DAYS" default:"7"`
	ReserveHoldbackPct   float64 `envconfig:"CLIPBOOST_RESERVE_HOLDBACK_PCT" default:"20"`
	SpikeGrowthFactor    float64 `envconfig:"CLIPBOOST_CONFIDENCE_SPIKE_GROWTH_FACTOR" default:"3"`
	SpikeFloorCents      int64   `envconfig:"CLIPBOOST_CONFIDENCE_SPIKE_FLOOR_CENTS" default:"10000"`
	AlertOnRisk          bool    `envconfig:"CLIPBOOST_CONFIDENCE_ALERT_ON_RISK" default:"true"`
	AlertOnPacingActions bool    `envconfig:"CLIPBOOST_CONFIDENCE_ALERT_ON_PACING" default:"true"`
}

type TokensConfig struct {
	SignupGrantTokens int64 `envconfig:"CLIPBOOST_TOKENS_SIGNUP_GRANT" default:"100"`
}

// RateLimitConfig throttles authenticated API traffic per caller. A zero
// Requests value disables the limiter.
type RateLimitConfig struct {
	Requests int64         `envconfig:"CLIPBOOST_RATE_LIMIT_REQUESTS" default:"120"`
	Window   time.Duration `envconfig:"CLIPBOOST_RATE_LIMIT_WINDOW" default:"1m"`
}

type CronConfig struct {
	Interval        time.Duration `envconfig:"CLIPBOOST_CRON_INTERVAL" default:"15m"`
	LockTTL         time.Duration `envconfig:"CLIPBOOST_CRON_LOCK_TTL" default:"30m"`
	ReconcileBatch  int           `envconfig:"CLIPBOOST_CRON_RECONCILE_BATCH" default:"500"`
	PacingSweepSize int           `envconfig:"CLIPBOOST_CRON_PACING_SWEEP_SIZE" default:"200"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"CLIPBOOST_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"CLIPBOOST_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
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
