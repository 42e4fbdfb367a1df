package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPPort int

	DBConfig struct {
		Host     string
		Port     int
		User     string
		Password string
		Name     string
		SSLMode  string
	}

	// Shared secret the SMS-forwarding agent must present on every webhook
	// call. Empty means unconfigured: the webhook then rejects everything.
	WebhookSecret string

	// Bank transfer instructions surfaced to the buyer at checkout.
	BankName          string
	BankAccountNumber string
	BankAccountHolder string

	PaymentRefPrefix string

	AmountTolerancePercent float64

	RateLimitMax    int
	RateLimitWindow time.Duration

	// Upper bound on any single order-store round trip inside the webhook
	// path; the handler fails closed on expiry.
	DBOpTimeout time.Duration

	KafkaBrokerURL         string
	KafkaPaymentEventTopic string

	OutboxPollInterval time.Duration
	OutboxPollTimeout  time.Duration

	MigrationsPath string
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}

	cfg.HTTPPort = getEnvAsInt("PAYMENTS_HTTP_PORT", 8080)

	cfg.DBConfig.Host = getEnvOrDefault("PAYMENTS_DB_HOST", "localhost")
	cfg.DBConfig.Port = getEnvAsInt("PAYMENTS_DB_PORT", 5432)
	cfg.DBConfig.User = getEnvOrDefault("PAYMENTS_DB_USER", "user")
	cfg.DBConfig.Password = getEnvOrDefault("PAYMENTS_DB_PASSWORD", "password")
	cfg.DBConfig.Name = getEnvOrDefault("PAYMENTS_DB_NAME", "selly_payments")
	cfg.DBConfig.SSLMode = getEnvOrDefault("PAYMENTS_DB_SSLMODE", "disable")

	cfg.WebhookSecret = os.Getenv("PAYMENT_WEBHOOK_SECRET")

	cfg.BankName = getEnvOrDefault("BANK_NAME", "Khan Bank")
	cfg.BankAccountNumber = getEnvOrDefault("BANK_ACCOUNT_NUMBER", "")
	cfg.BankAccountHolder = getEnvOrDefault("BANK_ACCOUNT_HOLDER", "")

	cfg.PaymentRefPrefix = getEnvOrDefault("PAYMENT_REF_PREFIX", "SF")

	cfg.AmountTolerancePercent = getEnvAsFloat("AMOUNT_TOLERANCE_PERCENT", 5)

	cfg.RateLimitMax = getEnvAsInt("WEBHOOK_RATE_LIMIT_MAX", 10)
	cfg.RateLimitWindow = getEnvAsDuration("WEBHOOK_RATE_LIMIT_WINDOW", 60*time.Second)

	cfg.DBOpTimeout = getEnvAsDuration("DB_OP_TIMEOUT", 3*time.Second)

	cfg.KafkaBrokerURL = getEnvOrDefault("KAFKA_BROKER_URL", "localhost:9092")
	cfg.KafkaPaymentEventTopic = getEnvOrDefault("KAFKA_PAYMENT_EVENT_TOPIC", "payment_events")

	cfg.OutboxPollInterval = getEnvAsDuration("OUTBOX_POLL_INTERVAL", 1*time.Second)
	cfg.OutboxPollTimeout = getEnvAsDuration("OUTBOX_POLL_TIMEOUT", 500*time.Millisecond)

	cfg.MigrationsPath = getEnvOrDefault("MIGRATIONS_PATH", "file://migrations")

	return cfg, nil
}

func (c *Config) GetDBConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DBConfig.Host, c.DBConfig.Port, c.DBConfig.User, c.DBConfig.Password, c.DBConfig.Name, c.DBConfig.SSLMode)
}

func (c *Config) GetDBMigrationConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBConfig.User, c.DBConfig.Password, c.DBConfig.Host, c.DBConfig.Port, c.DBConfig.Name, c.DBConfig.SSLMode)
}

func (c *Config) GetKafkaBrokers() []string {
	return strings.Split(c.KafkaBrokerURL, ",")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnvOrDefault(key, strconv.Itoa(defaultValue))
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnvOrDefault(key, strconv.FormatFloat(defaultValue, 'f', -1, 64))
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnvOrDefault(key, defaultValue.String())
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
