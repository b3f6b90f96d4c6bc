package config

const EnvPrefix = "ROASAPP"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	DefaultSQLiteDSN = "file:roasapp.db?cache=shared"
)

const (
	EnvAppEnv = "ROASAPP_APP_ENV"
	EnvPort   = "ROASAPP_APP_PORT"

	EnvDBDSN    = "ROASAPP_DB_DSN"
	EnvDBDriver = "ROASAPP_DB_DRIVER"
	EnvDBHost   = "ROASAPP_DB_HOST"
	EnvDBUser   = "ROASAPP_DB_USER"
	EnvDBName   = "ROASAPP_DB_NAME"

	EnvRedisURL = "ROASAPP_REDIS_URL"

	EnvJWTSecret              = "ROASAPP_JWT_SECRET"
	EnvJWTIssuer              = "ROASAPP_JWT_ISSUER"
	EnvJWTExpMins             = "ROASAPP_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "ROASAPP_REFRESH_TOKEN_TTL_MINUTES"

	EnvUseSQLite = "ROASAPP_USE_SQLITE"

	EnvCalcProductCostRatio = "ROASAPP_CALC_PRODUCT_COST_RATIO"
	EnvCalcFeePct           = "ROASAPP_CALC_FEE_PCT"
	EnvCalcAdditionalCost   = "ROASAPP_CALC_ADDITIONAL_COST"
	EnvCalcTargetProfitPct  = "ROASAPP_CALC_TARGET_PROFIT_PCT"
	EnvCalcSnapshotTTL      = "ROASAPP_CALC_SNAPSHOT_TTL"

	EnvEntitlementTrialWindow = "ROASAPP_ENTITLEMENT_TRIAL_WINDOW"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
