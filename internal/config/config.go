package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration, loaded from the environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Payment  PaymentConfig
	Mail     MailConfig
	Sweeper  SweeperConfig
	CORS     CORSConfig
}

type ServerConfig struct {
	Port            string
	Environment     string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

type JWTConfig struct {
	Secret string
	Expiry time.Duration
	Issuer string
}

// PaymentConfig configures the hosted-checkout payment gateway client.
type PaymentConfig struct {
	Environment   string // sandbox or production
	MerchantKey   string
	MerchantToken string
	BusinessKey   string
	BusinessToken string
	NotifyURL     string
	ReturnURL     string
	Currency      string
}

type MailConfig struct {
	FromAddress string
	FromName    string
}

// SweeperConfig controls the pending-booking expiration job.
type SweeperConfig struct {
	Enabled      bool
	Schedule     string
	SharedSecret string
	PendingTTL   time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

// Load reads configuration from the environment. A .env file is applied
// first when present, which is the local development path.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Environment:     getEnv("ENVIRONMENT", "development"),
			ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Name:         getEnv("DB_NAME", "maikekai"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", ""),
			Expiry: getEnvDuration("JWT_EXPIRY", 24*time.Hour),
			Issuer: getEnv("JWT_ISSUER", "maikekai-surf-house"),
		},
		Payment: PaymentConfig{
			Environment:   getEnv("PAYMENT_ENV", "sandbox"),
			MerchantKey:   getEnv("PAYMENT_MERCHANT_KEY", ""),
			MerchantToken: getEnv("PAYMENT_MERCHANT_TOKEN", ""),
			BusinessKey:   getEnv("PAYMENT_BUSINESS_KEY", ""),
			BusinessToken: getEnv("PAYMENT_BUSINESS_TOKEN", ""),
			NotifyURL:     getEnv("PAYMENT_NOTIFY_URL", ""),
			ReturnURL:     getEnv("PAYMENT_RETURN_URL", ""),
			Currency:      getEnv("PAYMENT_CURRENCY", "USD"),
		},
		Mail: MailConfig{
			FromAddress: getEnv("MAIL_FROM_ADDRESS", "bookings@maikekai.surf"),
			FromName:    getEnv("MAIL_FROM_NAME", "Mai Ke Kai Surf House"),
		},
		Sweeper: SweeperConfig{
			Enabled:      getEnvBool("SWEEPER_ENABLED", true),
			Schedule:     getEnv("SWEEPER_SCHEDULE", "0 * * * *"),
			SharedSecret: getEnv("SWEEPER_SHARED_SECRET", ""),
			PendingTTL:   getEnvDuration("SWEEPER_PENDING_TTL", 24*time.Hour),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations that cannot serve requests safely.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if c.Database.Password == "" && c.Server.Environment == "production" {
		return fmt.Errorf("DB_PASSWORD is required in production")
	}
	if c.Sweeper.Enabled && c.Sweeper.SharedSecret == "" {
		return fmt.Errorf("SWEEPER_SHARED_SECRET is required when the sweeper is enabled")
	}
	switch c.Payment.Environment {
	case "sandbox", "production":
	default:
		return fmt.Errorf("PAYMENT_ENV must be sandbox or production, got %q", c.Payment.Environment)
	}
	return nil
}

// DSN builds the postgres connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return fallback
}
