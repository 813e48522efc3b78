package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Numbering    NumberingConfig
	Insurance    InsuranceConfig
	Cron         CronConfig
	Ops          OpsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Numbering.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Insurance.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"COVERLEDGER_APP_ENV" required:"true"`
	LogLevel     string `envconfig:"COVERLEDGER_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"COVERLEDGER_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"COVERLEDGER_LOG_FORMAT" default:"json"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"COVERLEDGER_SERVICE_KIND" default:"ledger"`
}

type DBConfig struct {
	DSN    string `envconfig:"COVERLEDGER_DB_DSN"`
	Driver string `envconfig:"COVERLEDGER_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"COVERLEDGER_DB_HOST"`
	LegacyPort     int    `envconfig:"COVERLEDGER_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"COVERLEDGER_DB_USER"`
	LegacyPassword string `envconfig:"COVERLEDGER_DB_PASSWORD"`
	LegacyName     string `envconfig:"COVERLEDGER_DB_NAME"`
	LegacySSLMode  string `envconfig:"COVERLEDGER_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"COVERLEDGER_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"COVERLEDGER_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"COVERLEDGER_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"COVERLEDGER_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"COVERLEDGER_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
}

// IsSQLite reports whether the sqlite dialector should be used.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"COVERLEDGER_REDIS_URL"`
	Address      string        `envconfig:"COVERLEDGER_REDIS_ADDR"`
	Password     string        `envconfig:"COVERLEDGER_REDIS_PASSWORD"`
	DB           int           `envconfig:"COVERLEDGER_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"COVERLEDGER_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"COVERLEDGER_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"COVERLEDGER_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"COVERLEDGER_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"COVERLEDGER_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"COVERLEDGER_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"COVERLEDGER_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"COVERLEDGER_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"COVERLEDGER_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"COVERLEDGER_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	NotificationTopic        string `envconfig:"COVERLEDGER_PUBSUB_NOTIFICATION_TOPIC" default:"cl-notification-events"`
	NotificationSubscription string `envconfig:"COVERLEDGER_PUBSUB_NOTIFICATION_SUBSCRIPTION" default:"cl-notification-events-sub"`
	PaymentsTopic            string `envconfig:"COVERLEDGER_PUBSUB_PAYMENTS_TOPIC" default:"cl-claim-payments"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"COVERLEDGER_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"COVERLEDGER_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"COVERLEDGER_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type NumberingConfig struct {
	Backend string `envconfig:"COVERLEDGER_NUMBERING_BACKEND" default:"db"`
}

func (n NumberingConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(n.Backend)) {
	case NumberingBackendDB, NumberingBackendRedis:
		return nil
	}
	return fmt.Errorf("%s must be %q or %q", EnvNumberingBackend, NumberingBackendDB, NumberingBackendRedis)
}

type CronConfig struct {
	Interval                  time.Duration `envconfig:"COVERLEDGER_CRON_INTERVAL" default:"1h"`
	OutboxRetentionDays       int           `envconfig:"COVERLEDGER_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
	NotificationRetentionDays int           `envconfig:"COVERLEDGER_CRON_NOTIFICATION_RETENTION_DAYS" default:"90"`
	RiskReassessBatch         int           `envconfig:"COVERLEDGER_CRON_RISK_REASSESS_BATCH" default:"200"`
}

// OpsConfig controls the health and metrics listener each worker exposes.
// An empty Addr disables it.
type OpsConfig struct {
	Addr            string        `envconfig:"COVERLEDGER_OPS_ADDR" default:":9090"`
	ShutdownTimeout time.Duration `envconfig:"COVERLEDGER_OPS_SHUTDOWN_TIMEOUT" default:"10s"`
}

// InsuranceConfig carries the underwriting knobs of the ledger.
type InsuranceConfig struct {
	HighClaimRatio         float64       `envconfig:"COVERLEDGER_RISK_HIGH_CLAIM_RATIO" default:"0.10"`
	HighClaimRatioPoints   int           `envconfig:"COVERLEDGER_RISK_HIGH_CLAIM_RATIO_POINTS" default:"30"`
	NoviceJobThreshold     int           `envconfig:"COVERLEDGER_RISK_NOVICE_JOB_THRESHOLD" default:"5"`
	NovicePoints           int           `envconfig:"COVERLEDGER_RISK_NOVICE_POINTS" default:"20"`
	PriorEntityClaimPoints int           `envconfig:"COVERLEDGER_RISK_PRIOR_ENTITY_CLAIM_POINTS" default:"30"`
	MediumRiskAt           int           `envconfig:"COVERLEDGER_RISK_MEDIUM_AT" default:"30"`
	HighRiskAt             int           `envconfig:"COVERLEDGER_RISK_HIGH_AT" default:"50"`
	CriticalRiskAt         int           `envconfig:"COVERLEDGER_RISK_CRITICAL_AT" default:"70"`
	ReassessAfter          time.Duration `envconfig:"COVERLEDGER_RISK_REASSESS_AFTER" default:"2160h"`

	LowRiskMultiplier      decimal.Decimal `envconfig:"COVERLEDGER_PREMIUM_LOW_MULTIPLIER" default:"0.8"`
	MediumRiskMultiplier   decimal.Decimal `envconfig:"COVERLEDGER_PREMIUM_MEDIUM_MULTIPLIER" default:"1.0"`
	HighRiskMultiplier     decimal.Decimal `envconfig:"COVERLEDGER_PREMIUM_HIGH_MULTIPLIER" default:"1.5"`
	CriticalRiskMultiplier decimal.Decimal `envconfig:"COVERLEDGER_PREMIUM_CRITICAL_MULTIPLIER" default:"2.0"`

	DeliveryCoverageDuration time.Duration   `envconfig:"COVERLEDGER_DELIVERY_COVERAGE_DURATION" default:"720h"`
	DefaultDeliveryBudget    decimal.Decimal `envconfig:"COVERLEDGER_DELIVERY_DEFAULT_BUDGET" default:"100"`
	DeliveryDamageFactor     decimal.Decimal `envconfig:"COVERLEDGER_DELIVERY_DAMAGE_FACTOR" default:"2"`
	DeliveryDamageCap        decimal.Decimal `envconfig:"COVERLEDGER_DELIVERY_DAMAGE_CAP" default:"1000"`
	DeliveryLossFactor       decimal.Decimal `envconfig:"COVERLEDGER_DELIVERY_LOSS_FACTOR" default:"1.5"`
	DeliveryLossCap          decimal.Decimal `envconfig:"COVERLEDGER_DELIVERY_LOSS_CAP" default:"500"`

	ServiceCoverageDuration    time.Duration   `envconfig:"COVERLEDGER_SERVICE_COVERAGE_DURATION" default:"2160h"`
	ServiceLiabilityFactor     decimal.Decimal `envconfig:"COVERLEDGER_SERVICE_LIABILITY_FACTOR" default:"3"`
	ServiceLiabilityCap        decimal.Decimal `envconfig:"COVERLEDGER_SERVICE_LIABILITY_CAP" default:"5000"`
	DefaultServiceLiability    decimal.Decimal `envconfig:"COVERLEDGER_SERVICE_DEFAULT_LIABILITY" default:"1000"`
	ServiceWarrantyCap         decimal.Decimal `envconfig:"COVERLEDGER_SERVICE_WARRANTY_CAP" default:"1000"`
	DeliveryWarrantyCap        decimal.Decimal `envconfig:"COVERLEDGER_DELIVERY_WARRANTY_CAP" default:"500"`
	DefaultServiceWarrantyDays int             `envconfig:"COVERLEDGER_SERVICE_WARRANTY_DAYS" default:"30"`

	PaymentMethod string   `envconfig:"COVERLEDGER_CLAIM_PAYMENT_METHOD" default:"bank_transfer"`
	ReviewerIDs   []string `envconfig:"COVERLEDGER_CLAIM_REVIEWER_IDS"`
}

// DefaultInsurance returns the knobs with their documented defaults, for
// embedders that do not load the environment.
func DefaultInsurance() InsuranceConfig {
	return InsuranceConfig{
		HighClaimRatio:             0.10,
		HighClaimRatioPoints:       30,
		NoviceJobThreshold:         5,
		NovicePoints:               20,
		PriorEntityClaimPoints:     30,
		MediumRiskAt:               30,
		HighRiskAt:                 50,
		CriticalRiskAt:             70,
		ReassessAfter:              90 * 24 * time.Hour,
		LowRiskMultiplier:          decimal.RequireFromString("0.8"),
		MediumRiskMultiplier:       decimal.RequireFromString("1.0"),
		HighRiskMultiplier:         decimal.RequireFromString("1.5"),
		CriticalRiskMultiplier:     decimal.RequireFromString("2.0"),
		DeliveryCoverageDuration:   30 * 24 * time.Hour,
		DefaultDeliveryBudget:      decimal.NewFromInt(100),
		DeliveryDamageFactor:       decimal.NewFromInt(2),
		DeliveryDamageCap:          decimal.NewFromInt(1000),
		DeliveryLossFactor:         decimal.RequireFromString("1.5"),
		DeliveryLossCap:            decimal.NewFromInt(500),
		ServiceCoverageDuration:    90 * 24 * time.Hour,
		ServiceLiabilityFactor:     decimal.NewFromInt(3),
		ServiceLiabilityCap:        decimal.NewFromInt(5000),
		DefaultServiceLiability:    decimal.NewFromInt(1000),
		ServiceWarrantyCap:         decimal.NewFromInt(1000),
		DeliveryWarrantyCap:        decimal.NewFromInt(500),
		DefaultServiceWarrantyDays: 30,
		PaymentMethod:              "bank_transfer",
	}
}

// Validate checks that thresholds are ordered and durations are usable.
func (i InsuranceConfig) Validate() error {
	if i.HighClaimRatio < 0 {
		return fmt.Errorf("high claim ratio must be non-negative")
	}
	if !(i.MediumRiskAt < i.HighRiskAt && i.HighRiskAt < i.CriticalRiskAt) {
		return fmt.Errorf("risk level thresholds must be strictly increasing (medium=%d high=%d critical=%d)", i.MediumRiskAt, i.HighRiskAt, i.CriticalRiskAt)
	}
	if i.ReassessAfter <= 0 {
		return fmt.Errorf("risk reassessment interval must be positive")
	}
	if i.DeliveryCoverageDuration <= 0 || i.ServiceCoverageDuration <= 0 {
		return fmt.Errorf("coverage durations must be positive")
	}
	for name, m := range map[string]decimal.Decimal{
		"low":      i.LowRiskMultiplier,
		"medium":   i.MediumRiskMultiplier,
		"high":     i.HighRiskMultiplier,
		"critical": i.CriticalRiskMultiplier,
	} {
		if !m.IsPositive() {
			return fmt.Errorf("%s risk multiplier must be positive", name)
		}
	}
	if strings.TrimSpace(i.PaymentMethod) == "" {
		return fmt.Errorf("claim payment method is required")
	}
	return nil
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
