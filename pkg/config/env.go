package config

import "github.com/angelmondragon/bakery-backend/pkg/env"

// EnvPrefix is passed to envconfig; every field carries an explicit envconfig tag.
const EnvPrefix = env.Prefix

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "BAKERY_APP_ENV"
	EnvPort     = "BAKERY_APP_PORT"
	EnvLogLevel = "BAKERY_LOG_LEVEL"

	EnvDBDSN  = "BAKERY_DB_DSN"
	EnvDBHost = "BAKERY_DB_HOST"
	EnvDBUser = "BAKERY_DB_USER"
	EnvDBName = "BAKERY_DB_NAME"

	EnvRedisURL = "BAKERY_REDIS_URL"

	EnvJWTSecret = "BAKERY_JWT_SECRET"
	EnvJWTIssuer = "BAKERY_JWT_ISSUER"

	EnvCartStoreDriver   = "BAKERY_CART_STORE_DRIVER"
	EnvCartGuestTTL      = "BAKERY_CART_GUEST_TTL"
	EnvOrderNumberPrefix = "BAKERY_ORDER_NUMBER_PREFIX"
	EnvOrderNumberSource = "BAKERY_ORDER_NUMBER_BACKEND"
	EnvPromoPolicy       = "BAKERY_PROMO_POLICY"
	EnvRestockOnCancel   = "BAKERY_RESTOCK_ON_CANCEL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

const (
	CartStoreRedis  = "redis"
	CartStoreMemory = "memory"

	OrderNumberBackendDB    = "db"
	OrderNumberBackendRedis = "redis"

	PromoPolicySoft   = "soft"
	PromoPolicyStrict = "strict"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)
