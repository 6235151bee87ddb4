package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Placeholder secrets are only accepted when APP_ENV is development.
const (
	placeholderSecret   = "change-me"
	devJWTSecret        = "dev-only-jwt-secret"
	devCallbackSecret   = "dev-only-callback-secret"
	developmentEnv      = "development"
	minProductionSecret = 32
)

// Config captures runtime configuration grouped by concern.
type Config struct {
	Env      string
	HTTP     HTTPConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Assets   AssetsConfig
	Payments PaymentsConfig
	Auth     AuthConfig
	Pricing  PricingConfig
}

type HTTPConfig struct {
	Port               string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64
}

// DatabaseConfig selects the SQL backend. Driver is "postgres" or "sqlite";
// SQLitePath is only read for sqlite.
type DatabaseConfig struct {
	Driver            string
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SQLitePath        string
	MigrationsDirPath string
}

type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	SessionTTL time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// AssetsConfig chooses where customization images are written. Backend is
// "fs" or "gcs".
type AssetsConfig struct {
	Backend    string
	Dir        string
	Bucket     string
	PublicBase string
	MaxBytes   int64
}

// PaymentsConfig.CallbackSecret keys the HMAC that gateway callbacks must
// carry.
type PaymentsConfig struct {
	Simulate           bool
	SimulationDelay    time.Duration
	SimulationSuccess  float64
	BankAccountDetails string
	CallbackSecret     string
	BreakerFailures    uint32
	BreakerCooldown    time.Duration
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type PricingConfig struct {
	TaxRate          decimal.Decimal
	StandardShipping string
	ExpressShipping  string
}

func (c *Config) Development() bool {
	return c.Env == developmentEnv
}

// Load reads an optional .env file and then the process environment.
// Outside development JWT_SECRET and PAYMENT_CALLBACK_SECRET must be set.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := strings.ToLower(getEnv("APP_ENV", "production"))
	jwtSecret, err := getSecret("JWT_SECRET", devJWTSecret, env)
	if err != nil {
		return nil, err
	}
	callbackSecret, err := getSecret("PAYMENT_CALLBACK_SECRET", devCallbackSecret, env)
	if err != nil {
		return nil, err
	}

	var durations durationSet
	requestTimeout := durations.get("HTTP_REQUEST_TIMEOUT", 30*time.Second)
	shutdownTimeout := durations.get("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second)
	sessionTTL := durations.get("CART_SESSION_TTL", 7*24*time.Hour)
	simulationDelay := durations.get("MPESA_SIMULATION_DELAY", 10*time.Second)
	tokenTTL := durations.get("JWT_TTL", 24*time.Hour)
	breakerCooldown := durations.get("PAYMENT_BREAKER_COOLDOWN", 30*time.Second)
	if err := durations.err(); err != nil {
		return nil, err
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	maxBytes, err := strconv.ParseInt(getEnv("ASSET_MAX_BYTES", "5242880"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ASSET_MAX_BYTES: %w", err)
	}
	success, err := strconv.ParseFloat(getEnv("MPESA_SIMULATION_SUCCESS_RATE", "0.9"), 64)
	if err != nil || success < 0 || success > 1 {
		return nil, fmt.Errorf("invalid MPESA_SIMULATION_SUCCESS_RATE: must be within [0,1]")
	}
	taxRate, err := decimal.NewFromString(getEnv("TAX_RATE", "0.16"))
	if err != nil {
		return nil, fmt.Errorf("invalid TAX_RATE: %w", err)
	}
	simulate, err := strconv.ParseBool(getEnv("MPESA_SIMULATE", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid MPESA_SIMULATE: %w", err)
	}
	breakerFailures, err := strconv.ParseUint(getEnv("PAYMENT_BREAKER_FAILURES", "5"), 10, 32)
	if err != nil || breakerFailures == 0 {
		return nil, fmt.Errorf("invalid PAYMENT_BREAKER_FAILURES: must be a positive integer")
	}

	return &Config{
		Env: env,
		HTTP: HTTPConfig{
			Port:               getEnv("HTTP_PORT", "8080"),
			RequestTimeout:     requestTimeout,
			ShutdownTimeout:    shutdownTimeout,
			MaxRequestBodySize: 8 << 20,
		},
		Database: DatabaseConfig{
			Driver:            getEnv("DB_DRIVER", "postgres"),
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              dbPort,
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", "postgres"),
			Name:              getEnv("DB_NAME", "storefront"),
			SQLitePath:        getEnv("SQLITE_PATH", "./storefront.db"),
			MigrationsDirPath: getEnv("MIGRATIONS_PATH", ""),
		},
		Redis: RedisConfig{
			Addr:       getEnv("REDIS_ADDR", "localhost:6379"),
			Password:   getEnv("REDIS_PASSWORD", ""),
			DB:         redisDB,
			SessionTTL: sessionTTL,
		},
		Kafka: KafkaConfig{
			Brokers: splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
			Topic:   getEnv("KAFKA_TOPIC", "storefront-events"),
		},
		Assets: AssetsConfig{
			Backend:    getEnv("ASSET_BACKEND", "fs"),
			Dir:        getEnv("ASSET_DIR", "./uploads/customizations"),
			Bucket:     getEnv("ASSET_BUCKET", ""),
			PublicBase: getEnv("ASSET_PUBLIC_BASE_URL", "/uploads/customizations"),
			MaxBytes:   maxBytes,
		},
		Payments: PaymentsConfig{
			Simulate:           simulate,
			SimulationDelay:    simulationDelay,
			SimulationSuccess:  success,
			BankAccountDetails: getEnv("BANK_ACCOUNT_DETAILS", "Equity Bank, A/C 0000000000, Branch: Nairobi"),
			CallbackSecret:     callbackSecret,
			BreakerFailures:    uint32(breakerFailures),
			BreakerCooldown:    breakerCooldown,
		},
		Auth: AuthConfig{
			JWTSecret: jwtSecret,
			TokenTTL:  tokenTTL,
		},
		Pricing: PricingConfig{
			TaxRate:          taxRate,
			StandardShipping: getEnv("SHIPPING_STANDARD", "350.00"),
			ExpressShipping:  getEnv("SHIPPING_EXPRESS", "550.00"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getSecret returns key's value. Development falls back to devDefault;
// elsewhere an unset, placeholder or short secret is an error.
func getSecret(key, devDefault, env string) (string, error) {
	value := os.Getenv(key)
	if env == developmentEnv {
		if value == "" || value == placeholderSecret {
			return devDefault, nil
		}
		return value, nil
	}
	switch {
	case value == "":
		return "", fmt.Errorf("%s is required unless APP_ENV=development", key)
	case value == placeholderSecret:
		return "", fmt.Errorf("%s is still the placeholder value", key)
	case len(value) < minProductionSecret:
		return "", fmt.Errorf("%s must be at least %d characters", key, minProductionSecret)
	}
	return value, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return d, nil
}

// durationSet collects every malformed duration so Load reports them together.
type durationSet struct {
	errs []error
}

func (s *durationSet) get(key string, defaultValue time.Duration) time.Duration {
	d, err := getDuration(key, defaultValue)
	if err != nil {
		s.errs = append(s.errs, err)
	}
	return d
}

func (s *durationSet) err() error {
	return errors.Join(s.errs...)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
