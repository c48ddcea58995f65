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
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	GCS           GCSConfig
	Bills         BillsConfig
	AuthRateLimit AuthRateLimitConfig
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
	Env          string `envconfig:"ORDERBOOK_APP_ENV" required:"true"`
	Port         string `envconfig:"ORDERBOOK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ORDERBOOK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ORDERBOOK_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"ORDERBOOK_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"ORDERBOOK_DB_DSN"`
	Driver string `envconfig:"ORDERBOOK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ORDERBOOK_DB_HOST"`
	LegacyPort     int    `envconfig:"ORDERBOOK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ORDERBOOK_DB_USER"`
	LegacyPassword string `envconfig:"ORDERBOOK_DB_PASSWORD"`
	LegacyName     string `envconfig:"ORDERBOOK_DB_NAME"`
	LegacySSLMode  string `envconfig:"ORDERBOOK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ORDERBOOK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ORDERBOOK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ORDERBOOK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ORDERBOOK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ORDERBOOK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ORDERBOOK_REDIS_ADDR"`
	Password     string        `envconfig:"ORDERBOOK_REDIS_PASSWORD"`
	DB           int           `envconfig:"ORDERBOOK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ORDERBOOK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ORDERBOOK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ORDERBOOK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ORDERBOOK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ORDERBOOK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"ORDERBOOK_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"ORDERBOOK_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"ORDERBOOK_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"ORDERBOOK_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"ORDERBOOK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"ORDERBOOK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"ORDERBOOK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"ORDERBOOK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"ORDERBOOK_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"ORDERBOOK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"ORDERBOOK_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"ORDERBOOK_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"ORDERBOOK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"ORDERBOOK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName        string        `envconfig:"ORDERBOOK_GCS_BUCKET_NAME" required:"true"`
	DownloadURLExpiry time.Duration `envconfig:"ORDERBOOK_GCS_DOWNLOAD_URL_EXPIRY" default:"24h"`
}

// BillsConfig bounds transport document uploads and the post-upload
// reachability probe.
type BillsConfig struct {
	MaxUploadMB             int           `envconfig:"ORDERBOOK_BILL_MAX_UPLOAD_MB" default:"25"`
	AccessibilityTimeout    time.Duration `envconfig:"ORDERBOOK_BILL_ACCESSIBILITY_TIMEOUT" default:"5s"`
	AccessibilityCheck      bool          `envconfig:"ORDERBOOK_BILL_ACCESSIBILITY_CHECK" default:"true"`
	OrderLockTTL            time.Duration `envconfig:"ORDERBOOK_ORDER_LOCK_TTL" default:"30s"`
	OrderLockRetryInterval  time.Duration `envconfig:"ORDERBOOK_ORDER_LOCK_RETRY_INTERVAL" default:"50ms"`
	OrderLockAcquireTimeout time.Duration `envconfig:"ORDERBOOK_ORDER_LOCK_ACQUIRE_TIMEOUT" default:"5s"`
}

// AuthRateLimitConfig bounds repeated credential attempts per window.
type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"ORDERBOOK_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"ORDERBOOK_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"ORDERBOOK_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"ORDERBOOK_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"ORDERBOOK_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"ORDERBOOK_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
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
