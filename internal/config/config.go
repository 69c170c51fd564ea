package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	ProviderInstamojo = "instamojo"
	ProviderRazorpay  = "razorpay"
	ProviderStripe    = "stripe"
)

var ErrMissingCredentials = errors.New("missing gateway credentials")

type Config struct {
	Server   ServerConfig
	Gateway  GatewayConfig
	Pricing  PricingConfig
	Storage  StorageConfig
	Kafka    KafkaConfig
	Redis    RedisConfig
	SMTP     SMTPConfig
	LogLevel string
}

type ServerConfig struct {
	Port          string
	PublicBaseURL string
	StaticDir     string
	EventName     string
	SupportPhone  string
	RateLimitRPS  int
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
}

type GatewayConfig struct {
	Provider    string
	Timeout     time.Duration
	FallbackURL string
	Instamojo   InstamojoConfig
	Razorpay    RazorpayConfig
	Stripe      StripeConfig
}

type InstamojoConfig struct {
	APIKey    string
	AuthToken string
	BaseURL   string
}

type RazorpayConfig struct {
	KeyID     string
	KeySecret string
	BaseURL   string
}

type StripeConfig struct {
	SecretKey string
	BaseURL   string
}

// PricingConfig holds fixed prices per registration type. A zero price
// means the client-supplied amount is charged for that type.
type PricingConfig struct {
	SoloPrice  decimal.Decimal
	GroupPrice decimal.Decimal
}

type StorageConfig struct {
	Driver string
	Dir    string
}

type KafkaConfig struct {
	Enabled bool
	Brokers []string
	GroupID string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	OrderTTL time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// Load reads the configuration from the environment. Call godotenv first
// if a .env file should be honoured.
func Load() *Config {
	port := getEnv("PORT", "3001")
	return &Config{
		Server: ServerConfig{
			Port:          port,
			PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:"+port), "/"),
			StaticDir:     getEnv("STATIC_DIR", "public"),
			EventName:     getEnv("EVENT_NAME", "Heritage Fest 2025"),
			SupportPhone:  os.Getenv("SUPPORT_PHONE"),
			RateLimitRPS:  getEnvInt("RATE_LIMIT_RPS", 100),
			ReadTimeout:   getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:  getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:   getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Gateway: GatewayConfig{
			Provider:    strings.ToLower(getEnv("PAYMENT_PROVIDER", ProviderInstamojo)),
			Timeout:     getEnvDuration("GATEWAY_TIMEOUT", 15*time.Second),
			FallbackURL: getEnv("FALLBACK_PAYMENT_URL", "https://www.instamojo.com/@heritagefest2025/"),
			Instamojo: InstamojoConfig{
				APIKey:    os.Getenv("INSTAMOJO_API_KEY"),
				AuthToken: os.Getenv("INSTAMOJO_AUTH_TOKEN"),
				BaseURL:   getEnv("INSTAMOJO_BASE_URL", "https://www.instamojo.com/api/1.1/"),
			},
			Razorpay: RazorpayConfig{
				KeyID:     os.Getenv("RAZORPAY_KEY_ID"),
				KeySecret: os.Getenv("RAZORPAY_KEY_SECRET"),
				BaseURL:   getEnv("RAZORPAY_BASE_URL", "https://api.razorpay.com/v1/"),
			},
			Stripe: StripeConfig{
				SecretKey: os.Getenv("STRIPE_SECRET_KEY"),
				BaseURL:   getEnv("STRIPE_BASE_URL", "https://api.stripe.com"),
			},
		},
		Pricing: PricingConfig{
			SoloPrice:  getEnvDecimal("SOLO_PRICE", decimal.NewFromInt(300)),
			GroupPrice: getEnvDecimal("GROUP_PRICE", decimal.NewFromInt(1000)),
		},
		Storage: StorageConfig{
			Driver: strings.ToLower(getEnv("STORAGE_DRIVER", "file")),
			Dir:    getEnv("REGISTRATIONS_DIR", "registrations"),
		},
		Kafka: KafkaConfig{
			Enabled: getEnvBool("KAFKA_ENABLED", false),
			Brokers: splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
			GroupID: getEnv("KAFKA_GROUP_ID", "registration-gateway"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvInt("REDIS_DB", 0),
			OrderTTL: getEnvDuration("ORDER_TTL", 24*time.Hour),
		},
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getEnv("SMTP_PORT", "587"),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("SMTP_FROM"),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate reports configuration that must stop the process from starting.
func (c *Config) Validate() error {
	g := c.Gateway
	switch g.Provider {
	case ProviderInstamojo:
		if g.Instamojo.APIKey == "" || g.Instamojo.AuthToken == "" {
			return fmt.Errorf("%w: INSTAMOJO_API_KEY and INSTAMOJO_AUTH_TOKEN are required", ErrMissingCredentials)
		}
	case ProviderRazorpay:
		if g.Razorpay.KeyID == "" || g.Razorpay.KeySecret == "" {
			return fmt.Errorf("%w: RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET are required", ErrMissingCredentials)
		}
	case ProviderStripe:
		if g.Stripe.SecretKey == "" {
			return fmt.Errorf("%w: STRIPE_SECRET_KEY is required", ErrMissingCredentials)
		}
	default:
		return fmt.Errorf("unknown PAYMENT_PROVIDER %q", g.Provider)
	}

	if g.Timeout <= 0 {
		return fmt.Errorf("GATEWAY_TIMEOUT must be positive")
	}
	if g.FallbackURL == "" {
		return fmt.Errorf("FALLBACK_PAYMENT_URL must not be empty")
	}
	switch c.Storage.Driver {
	case "file", "memory":
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}
	return nil
}

func (c *Config) SMTPEnabled() bool {
	return c.SMTP.Host != "" && c.SMTP.From != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	v, err := decimal.NewFromString(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
