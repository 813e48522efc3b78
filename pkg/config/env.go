package config

const EnvPrefix = "COVERLEDGER"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	NumberingBackendDB    = "db"
	NumberingBackendRedis = "redis"
)

const (
	EnvAppEnv           = "COVERLEDGER_APP_ENV"
	EnvLogLevel         = "COVERLEDGER_LOG_LEVEL"
	EnvDBDSN            = "COVERLEDGER_DB_DSN"
	EnvDBDriver         = "COVERLEDGER_DB_DRIVER"
	EnvDBHost           = "COVERLEDGER_DB_HOST"
	EnvDBUser           = "COVERLEDGER_DB_USER"
	EnvDBName           = "COVERLEDGER_DB_NAME"
	EnvDBPassword       = "COVERLEDGER_DB_PASSWORD"
	EnvRedisURL         = "COVERLEDGER_REDIS_URL"
	EnvGCPProjectID     = "COVERLEDGER_GCP_PROJECT_ID"
	EnvNumberingBackend = "COVERLEDGER_NUMBERING_BACKEND"
	EnvRiskMediumAt     = "COVERLEDGER_RISK_MEDIUM_AT"
	EnvRiskHighAt       = "COVERLEDGER_RISK_HIGH_AT"
	EnvHighMultiplier   = "COVERLEDGER_PREMIUM_HIGH_MULTIPLIER"
	EnvReviewerIDs      = "COVERLEDGER_CLAIM_REVIEWER_IDS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
