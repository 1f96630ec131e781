package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// StoreProfile is the static seller identity printed on invoices.
type StoreProfile struct {
	Name     string
	Address  string
	Phone    string
	Email    string
	TaxID    string
	LogoPath string
}

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	RedisURL           string
	CORSAllowedOrigins []string

	StripeSecretKey string
	StripeBaseURL   string
	PaymentTimeout  time.Duration

	CurrencyCode    string
	TaxRateBPS      int
	ShippingFlatFee int64

	CartTTL         time.Duration
	CatalogCacheTTL time.Duration
	InvoiceCacheTTL time.Duration
	CheckoutLockTTL time.Duration
	IdempotencyTTL  time.Duration

	RelayRateWindow time.Duration
	RelayRateMax    int

	DefaultLocale string
	Store         StoreProfile
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		StripeSecretKey: k.String("STRIPE_SECRET_KEY"),
		StripeBaseURL:   valueOrDefault(k.String("STRIPE_BASE_URL"), "https://api.stripe.com"),
		PaymentTimeout:  parseDuration(k.String("PAYMENT_HTTP_TIMEOUT"), "30s"),

		CurrencyCode:    valueOrDefault(k.String("CURRENCY_CODE"), "JPY"),
		TaxRateBPS:      intOrDefault(k.String("PRICING_TAX_RATE_BPS"), 1000),
		ShippingFlatFee: int64(intOrDefault(k.String("SHIPPING_FLAT_FEE"), 0)),

		CartTTL:         parseDuration(k.String("CART_TTL"), "168h"),
		CatalogCacheTTL: parseDuration(k.String("CATALOG_CACHE_TTL"), "5m"),
		InvoiceCacheTTL: parseDuration(k.String("INVOICE_CACHE_TTL"), "24h"),
		CheckoutLockTTL: parseDuration(k.String("CHECKOUT_LOCK_TTL"), "2m"),
		IdempotencyTTL:  parseDuration(k.String("IDEMPOTENCY_TTL"), "10m"),

		RelayRateWindow: parseDuration(k.String("RELAY_RATE_WINDOW"), "1m"),
		RelayRateMax:    intOrDefault(k.String("RELAY_RATE_MAX"), 30),

		DefaultLocale: valueOrDefault(k.String("DEFAULT_LOCALE"), "vi"),
		Store: StoreProfile{
			Name:     valueOrDefault(k.String("STORE_NAME"), "Sakura Store"),
			Address:  valueOrDefault(k.String("STORE_ADDRESS"), "2-11-3 Meguro, Meguro-ku, Tokyo"),
			Phone:    valueOrDefault(k.String("STORE_PHONE"), "+81 3-1234-5678"),
			Email:    valueOrDefault(k.String("STORE_EMAIL"), "support@sakura-store.example"),
			TaxID:    k.String("STORE_TAX_ID"),
			LogoPath: k.String("STORE_LOGO_PATH"),
		},
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.StripeSecretKey == "" {
		return nil, errors.New("STRIPE_SECRET_KEY is required")
	}
	if cfg.TaxRateBPS < 0 {
		return nil, errors.New("PRICING_TAX_RATE_BPS must be non-negative")
	}
	if cfg.ShippingFlatFee < 0 {
		return nil, errors.New("SHIPPING_FLAT_FEE must be non-negative")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func intOrDefault(value string, fallback int) int {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	var parsed int
	if _, err := fmt.Sscanf(trimmed, "%d", &parsed); err != nil {
		return fallback
	}
	return parsed
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
