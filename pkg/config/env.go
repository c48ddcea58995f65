package config

const EnvPrefix = "ORDERBOOK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

// Environment variable names shared with tests and tooling.
const (
	EnvAppEnv                 = "ORDERBOOK_APP_ENV"
	EnvPort                   = "ORDERBOOK_APP_PORT"
	EnvDBDSN                  = "ORDERBOOK_DB_DSN"
	EnvDBHost                 = "ORDERBOOK_DB_HOST"
	EnvDBUser                 = "ORDERBOOK_DB_USER"
	EnvDBName                 = "ORDERBOOK_DB_NAME"
	EnvRedisURL               = "ORDERBOOK_REDIS_URL"
	EnvJWTSecret              = "ORDERBOOK_JWT_SECRET"
	EnvJWTIssuer              = "ORDERBOOK_JWT_ISSUER"
	EnvJWTExpMins             = "ORDERBOOK_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "ORDERBOOK_REFRESH_TOKEN_TTL_MINUTES"
	EnvGCPProjectID           = "ORDERBOOK_GCP_PROJECT_ID"
	EnvGCSBucket              = "ORDERBOOK_GCS_BUCKET_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
