package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/acp-checkout/internal/store"
)

type Config struct {
	HTTPPort        string
	LogLevel        string
	DefaultCurrency string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	UpstreamTimeout time.Duration

	ShopifyShop        string
	ShopifyAccessToken string
	ShopifyBaseURL     string
	SkuMap             string
	SkuDBPath          string
	SkuMigrationsPath  string

	PayPalBaseURL      string
	PayPalClientID     string
	PayPalClientSecret string

	SessionBackend     string
	SessionTTL         time.Duration
	SessionMax         int
	IdempotencyBackend string
	IdempotencyTTL     time.Duration
	IdempotencyMax     int

	RedisAddr      string
	RedisPassword  string
	Postgres       store.Credentials
	KafkaBrokers   []string
	AllowedOrigins []string

	RateLimitPerMinute int
	DebugEndpoints     bool
	DebugToken         string
}

func loadConfig() (*Config, error) {
	cfg := &Config{
		HTTPPort:        getEnv("PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		DefaultCurrency: strings.ToUpper(getEnv("DEFAULT_CURRENCY", store.DefaultCurrency)),
		ShutdownTimeout: 10 * time.Second,

		ShopifyShop:        getEnv("SHOPIFY_SHOP", ""),
		ShopifyAccessToken: getEnv("SHOPIFY_ADMIN_API_ACCESS_TOKEN", ""),
		ShopifyBaseURL:     getEnv("SHOPIFY_BASE_URL", ""),
		SkuMap:             getEnv("SHOPIFY_SKU_MAP", ""),
		SkuDBPath:          getEnv("SKU_DB_PATH", "./skumap.db"),
		SkuMigrationsPath:  getEnv("SKU_MIGRATIONS_PATH", "./internal/catalog/migrations"),

		PayPalBaseURL:      getEnv("PAYPAL_BASE_URL", ""),
		PayPalClientID:     getEnv("PAYPAL_CLIENT_ID", ""),
		PayPalClientSecret: getEnv("PAYPAL_CLIENT_SECRET", ""),

		SessionBackend:     strings.ToLower(getEnv("SESSION_BACKEND", "memory")),
		IdempotencyBackend: strings.ToLower(getEnv("IDEMPOTENCY_BACKEND", "memory")),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		KafkaBrokers:       splitList(getEnv("KAFKA_BROKERS", "")),
		AllowedOrigins:     splitList(getEnv("ALLOWED_ORIGINS", "https://chat.openai.com,https://chatgpt.com")),
		DebugToken:         getEnv("DEBUG_TOKEN", ""),
	}

	var err error
	if cfg.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.UpstreamTimeout, err = getDuration("UPSTREAM_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", store.DefaultSessionTTL); err != nil {
		return nil, err
	}
	if cfg.IdempotencyTTL, err = getDuration("IDEMPOTENCY_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.SessionMax, err = getInt("SESSION_MAX", 10000); err != nil {
		return nil, err
	}
	if cfg.IdempotencyMax, err = getInt("IDEMPOTENCY_MAX", 10000); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerMinute, err = getInt("RATE_LIMIT_PER_MINUTE", 60); err != nil {
		return nil, err
	}
	if cfg.DebugEndpoints, err = strconv.ParseBool(getEnv("DEBUG_ENDPOINTS", "false")); err != nil {
		return nil, fmt.Errorf("invalid DEBUG_ENDPOINTS: %w", err)
	}

	port, err := getInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}
	cfg.Postgres = store.Credentials{
		Host:              getEnv("DB_HOST", "localhost"),
		Port:              port,
		User:              getEnv("DB_USER", "postgres"),
		Password:          getEnv("DB_PASSWORD", "postgres"),
		DBName:            getEnv("DB_NAME", "acp_checkout"),
		MigrationsDirPath: getEnv("MIGRATIONS_PATH", "./internal/store/migrations"),
	}

	switch cfg.SessionBackend {
	case "memory", "redis", "postgres":
	default:
		return nil, fmt.Errorf("unknown SESSION_BACKEND %q", cfg.SessionBackend)
	}
	switch cfg.IdempotencyBackend {
	case "memory", "redis":
	default:
		return nil, fmt.Errorf("unknown IDEMPOTENCY_BACKEND %q", cfg.IdempotencyBackend)
	}

	return cfg, nil
}

// warnings lists missing credentials. The server still starts so the
// boundary can be exercised without upstream accounts.
func (c *Config) warnings() []string {
	var out []string
	if c.ShopifyShop == "" && c.ShopifyBaseURL == "" {
		out = append(out, "SHOPIFY_SHOP is not set")
	}
	if c.ShopifyAccessToken == "" {
		out = append(out, "SHOPIFY_ADMIN_API_ACCESS_TOKEN is not set")
	}
	if c.PayPalClientID == "" || c.PayPalClientSecret == "" {
		out = append(out, "PAYPAL_CLIENT_ID or PAYPAL_CLIENT_SECRET is not set")
	}
	if c.DebugEndpoints && c.DebugToken == "" {
		out = append(out, "DEBUG_ENDPOINTS is enabled without DEBUG_TOKEN")
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

// getDuration accepts Go durations ("90s") or a bare number of seconds.
func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
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
