package config

import (
	"fmt"     // For DSN formatting
	"strings" // For splitting list values
	"time"    // For durations

	"github.com/joho/godotenv"             // For loading .env files
	"github.com/kelseyhightower/envconfig" // For typed environment parsing
	"github.com/shopspring/decimal"        // For money settings
)

// Config holds the application configuration
type Config struct {
	AppPort string `envconfig:"APP_PORT" default:"8080"` // Application port
	IsProd  bool   `envconfig:"IS_PROD" default:"false"` // Is production environment

	DBDriver   string `envconfig:"DB_DRIVER" default:"mysql"` // mysql or postgres
	DBUser     string `envconfig:"DB_USER"`                   // Database user
	DBPassword string `envconfig:"DB_PASSWORD"`               // Database password
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT"` // Database port, driver default when empty
	DBName     string `envconfig:"DB_NAME" default:"notes"`

	JWTSecret string        `envconfig:"JWT_SECRET" required:"true"` // JWT secret key
	JWTTTL    time.Duration `envconfig:"JWT_TTL" default:"24h"`      // Token lifetime

	RedisAddr string        `envconfig:"REDIS_ADDR" default:"localhost:6379"` // Redis server address
	RedisPass string        `envconfig:"REDIS_PASS"`                          // Redis password
	RedisDB   int           `envconfig:"REDIS_DB" default:"0"`                // Redis database number
	CacheTTL  time.Duration `envconfig:"CACHE_TTL" default:"60s"`             // Read-through cache TTL

	S3Endpoint      string `envconfig:"S3_ENDPOINT" default:"localhost:9000"`
	S3AccessKey     string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey     string `envconfig:"S3_SECRET_KEY"`
	S3UseSSL        bool   `envconfig:"S3_USE_SSL" default:"false"`
	S3Bucket        string `envconfig:"S3_BUCKET" default:"notes"`
	S3Region        string `envconfig:"S3_REGION" default:"us-east-1"`
	DefaultCoverURL string `envconfig:"DEFAULT_COVER_URL"`
	MaxUploadMB     int64  `envconfig:"MAX_UPLOAD_MB" default:"50"`

	MoyasarBaseURL      string `envconfig:"MOYASAR_BASE_URL" default:"https://api.moyasar.com/v1"`
	MoyasarSecretKey    string `envconfig:"MOYASAR_SECRET_KEY"`
	MoyasarWebhookToken string `envconfig:"MOYASAR_WEBHOOK_TOKEN"`
	PublicBaseURL       string `envconfig:"PUBLIC_BASE_URL" default:"http://localhost:8080"` // Where the gateway calls back
	FrontendURL         string `envconfig:"FRONTEND_URL" default:"http://localhost:3000"`    // Where buyers are redirected
	Currency            string `envconfig:"CURRENCY" default:"SAR"`

	PlatformFeeRate decimal.Decimal `envconfig:"PLATFORM_FEE_RATE" default:"0.15"`
	EditionTax      decimal.Decimal `envconfig:"EDITION_TAX" default:"2"`
	MinWithdrawal   decimal.Decimal `envconfig:"MIN_WITHDRAWAL" default:"3"`
	WithdrawalTimes int             `envconfig:"WITHDRAWAL_TIMES" default:"2"`

	CORSOrigins string `envconfig:"CORS_ORIGINS" default:"http://localhost:3000"` // Comma separated list, "*" disables credentials
}

// LoadConfig loads configuration from the environment, reading a .env file first if present
func LoadConfig() (*Config, error) {
	_ = godotenv.Load() // Load .env file if present
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.DBDriver != "mysql" && cfg.DBDriver != "postgres" {
		return nil, fmt.Errorf("load config: unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	return &cfg, nil
}

// DSN builds the data source name for the configured driver
func (c *Config) DSN() string {
	if c.DBDriver == "postgres" {
		port := c.DBPort
		if port == "" {
			port = "5432"
		}
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			c.DBHost, port, c.DBUser, c.DBPassword, c.DBName)
	}
	port := c.DBPort
	if port == "" {
		port = "3306"
	}
	// MySQL DSN pinned to UTC
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + port + ")/" + c.DBName + "?parseTime=true&loc=UTC"
}

// AllowedOrigins returns the CORS origins as a list
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// AllowCredentials reports whether browsers may send cookies and auth headers cross-origin.
// Never with a wildcard origin.
func (c *Config) AllowCredentials() bool {
	for _, o := range c.AllowedOrigins() {
		if o == "*" {
			return false
		}
	}
	return true
}

// MaxUploadBytes is the upload size limit in bytes
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}
