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
	API           APIConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	FeatureFlags  FeatureFlagsConfig
	Cart          CartConfig
	Orders        OrdersConfig
	Notifications NotificationsConfig
	Eventing      EventingConfig
	Outbox        OutboxConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DBDriverSQLite
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch strings.ToLower(c.Cart.StoreDriver) {
	case CartStoreRedis, CartStoreMemory:
	default:
		return fmt.Errorf("%s must be %q or %q, got %q", EnvCartStoreDriver, CartStoreRedis, CartStoreMemory, c.Cart.StoreDriver)
	}
	switch strings.ToLower(c.Orders.NumberBackend) {
	case OrderNumberBackendDB, OrderNumberBackendRedis:
	default:
		return fmt.Errorf("%s must be %q or %q, got %q", EnvOrderNumberSource, OrderNumberBackendDB, OrderNumberBackendRedis, c.Orders.NumberBackend)
	}
	switch strings.ToLower(c.Orders.PromoPolicy) {
	case PromoPolicySoft, PromoPolicyStrict:
	default:
		return fmt.Errorf("%s must be %q or %q, got %q", EnvPromoPolicy, PromoPolicySoft, PromoPolicyStrict, c.Orders.PromoPolicy)
	}
	if c.Cart.GuestTTL <= 0 {
		return fmt.Errorf("%s must be positive", EnvCartGuestTTL)
	}
	if _, err := c.Orders.Location(); err != nil {
		return err
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"BAKERY_APP_ENV" required:"true"`
	Port         string `envconfig:"BAKERY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BAKERY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BAKERY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"BAKERY_SERVICE_KIND" default:"api"`
}

// APIConfig tunes the HTTP edge of cmd/api.
type APIConfig struct {
	CORSOrigins    []string      `envconfig:"BAKERY_API_CORS_ORIGINS" default:"http://localhost:3000"`
	IdempotencyTTL time.Duration `envconfig:"BAKERY_API_IDEMPOTENCY_TTL" default:"24h"`
	// CheckoutIdempotencyTTL covers order placement and cancellation.
	CheckoutIdempotencyTTL time.Duration `envconfig:"BAKERY_API_CHECKOUT_IDEMPOTENCY_TTL" default:"168h"`
	TrackRateWindow        time.Duration `envconfig:"BAKERY_API_TRACK_RATE_WINDOW" default:"1m"`
	TrackRateLimit         int           `envconfig:"BAKERY_API_TRACK_RATE_LIMIT" default:"20"`
	ShutdownTimeout        time.Duration `envconfig:"BAKERY_API_SHUTDOWN_TIMEOUT" default:"15s"`
	ReadHeaderTimeout      time.Duration `envconfig:"BAKERY_API_READ_HEADER_TIMEOUT" default:"5s"`
}

type DBConfig struct {
	DSN    string `envconfig:"BAKERY_DB_DSN"`
	Driver string `envconfig:"BAKERY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BAKERY_DB_HOST"`
	LegacyPort     int    `envconfig:"BAKERY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BAKERY_DB_USER"`
	LegacyPassword string `envconfig:"BAKERY_DB_PASSWORD"`
	LegacyName     string `envconfig:"BAKERY_DB_NAME"`
	LegacySSLMode  string `envconfig:"BAKERY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BAKERY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BAKERY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BAKERY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BAKERY_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// TxIsolation is applied to every transaction opened through db.Client.WithTx.
	TxIsolation string `envconfig:"BAKERY_DB_TX_ISOLATION" default:"read_committed"`
	// SlowQueryThreshold logs statements above it at warn; zero disables.
	SlowQueryThreshold time.Duration `envconfig:"BAKERY_DB_SLOW_QUERY_THRESHOLD" default:"250ms"`
}

// IsSQLite reports whether the sqlite dialector should be used.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"BAKERY_REDIS_URL"`
	Address      string        `envconfig:"BAKERY_REDIS_ADDR"`
	Password     string        `envconfig:"BAKERY_REDIS_PASSWORD"`
	DB           int           `envconfig:"BAKERY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BAKERY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BAKERY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BAKERY_REDIS_DIAL_TIMEOUT" default:"2s"`
	ReadTimeout  time.Duration `envconfig:"BAKERY_REDIS_READ_TIMEOUT" default:"500ms"`
	WriteTimeout time.Duration `envconfig:"BAKERY_REDIS_WRITE_TIMEOUT" default:"500ms"`
}

// JWTConfig verifies bearer tokens minted by the external auth service.
type JWTConfig struct {
	Secret string `envconfig:"BAKERY_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"BAKERY_JWT_ISSUER" required:"true"`
}

type FeatureFlagsConfig struct {
	UseSQLite       bool `envconfig:"BAKERY_USE_SQLITE" default:"false"`
	AutoMigrate     bool `envconfig:"BAKERY_AUTO_MIGRATE" default:"false"`
	RestockOnCancel bool `envconfig:"BAKERY_RESTOCK_ON_CANCEL" default:"false"`
}

type CartConfig struct {
	StoreDriver  string        `envconfig:"BAKERY_CART_STORE_DRIVER" default:"redis"`
	CacheTimeout time.Duration `envconfig:"BAKERY_CART_CACHE_TIMEOUT" default:"150ms"`
	GuestTTL     time.Duration `envconfig:"BAKERY_CART_GUEST_TTL" default:"168h"`
	// BreakerFailures consecutive cache failures open the breaker for BreakerCooldown.
	BreakerFailures     uint32        `envconfig:"BAKERY_CART_BREAKER_FAILURES" default:"5"`
	BreakerCooldown     time.Duration `envconfig:"BAKERY_CART_BREAKER_COOLDOWN" default:"30s"`
	GuestSessionHeader  string        `envconfig:"BAKERY_CART_GUEST_SESSION_HEADER" default:"X-Guest-Session"`
	GuestSessionKeySalt string        `envconfig:"BAKERY_CART_GUEST_SESSION_SALT" default:"bakery-guest"`
}

// UsesRedis reports whether the networked cache backs carts.
func (c CartConfig) UsesRedis() bool {
	return strings.EqualFold(c.StoreDriver, CartStoreRedis)
}

type OrdersConfig struct {
	NumberPrefix  string `envconfig:"BAKERY_ORDER_NUMBER_PREFIX" default:"BK"`
	NumberBackend string `envconfig:"BAKERY_ORDER_NUMBER_BACKEND" default:"db"`
	PromoPolicy   string `envconfig:"BAKERY_PROMO_POLICY" default:"soft"`
	Timezone      string `envconfig:"BAKERY_ORDER_TIMEZONE" default:"UTC"`
}

// Location resolves the timezone that defines a calendar day for order numbering.
func (o OrdersConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(o.Timezone)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid order timezone %q: %w", name, err)
	}
	return loc, nil
}

type NotificationsConfig struct {
	DispatchTimeout time.Duration `envconfig:"BAKERY_NOTIFICATIONS_DISPATCH_TIMEOUT" default:"5s"`
	// Retention applies to notifications already marked sent.
	Retention time.Duration `envconfig:"BAKERY_NOTIFICATIONS_RETENTION" default:"720h"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"BAKERY_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"BAKERY_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"BAKERY_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"BAKERY_OUTBOX_MAX_ATTEMPTS" default:"10"`
	MaxBackoff     time.Duration `envconfig:"BAKERY_OUTBOX_MAX_BACKOFF" default:"10s"`
	Retention      time.Duration `envconfig:"BAKERY_OUTBOX_RETENTION" default:"720h"`
}

type CronConfig struct {
	Interval       time.Duration `envconfig:"BAKERY_CRON_INTERVAL" default:"1h"`
	SweepBatchSize int64         `envconfig:"BAKERY_CRON_SWEEP_BATCH_SIZE" default:"200"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = "file:bakery.db?cache=shared"
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
