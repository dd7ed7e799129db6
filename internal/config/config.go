package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/konekt/standardbooks-sync/internal/standardbooks"
	postgres "github.com/konekt/standardbooks-sync/internal/storage/postgres"
)

// Config aggregates runtime configuration grouped by concern. Connection
// and credential data lives in the environment; the merchant-facing sync
// settings (invoice defaults, tax mapping) live in the settings file, see
// settings.go.
type Config struct {
	ServiceName  string
	SettingsFile string
	HTTP         HTTPConfig
	Kafka        KafkaConfig
	Redis        RedisConfig
	Database     postgres.DatabaseConfig
	API          standardbooks.Config
}

type HTTPConfig struct {
	Addr string
}

type KafkaConfig struct {
	Brokers          []string
	OrderStatusTopic string
	InvoiceTopic     string
	ConsumerGroup    string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Load reads configuration from environment variables, applying sensible
// defaults. A local .env file is honored when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		ServiceName:  getEnv("SERVICE_NAME", "standardbooks-sync"),
		SettingsFile: getEnv("SETTINGS_FILE", "settings.yaml"),
		HTTP: HTTPConfig{
			Addr: getEnv("HTTP_LISTEN_ADDR", ":3000"),
		},
		Kafka: KafkaConfig{
			Brokers:          splitAndTrim(getEnv("KAFKA_BROKERS", "localhost:9092")),
			OrderStatusTopic: getEnv("KAFKA_ORDER_STATUS_TOPIC", "orders.status.v1"),
			InvoiceTopic:     getEnv("KAFKA_INVOICE_TOPIC", "invoices.v1"),
			ConsumerGroup:    getEnv("KAFKA_SYNC_GROUP_ID", "standardbooks-sync"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		API: standardbooks.Config{
			BaseURL:  getEnv("SB_API_URL", ""),
			Username: getEnv("SB_API_USERNAME", ""),
			Password: getEnv("SB_API_PASSWORD", ""),
		},
	}

	port, err := strconv.Atoi(getEnv("SHOP_DB_PORT", "5432"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SHOP_DB_PORT: %w", err)
	}
	cfg.Database = postgres.DatabaseConfig{
		Host:     getEnv("SHOP_DB_HOST", "localhost"),
		Port:     port,
		Database: getEnv("SHOP_DB_NAME", "shop"),
		User:     getEnv("SHOP_DB_USER", "shop"),
		Password: getEnv("SHOP_DB_PASSWORD", ""),
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("SB_API_URL is required")
	}
	if c.API.Username == "" || c.API.Password == "" {
		return fmt.Errorf("SB_API_USERNAME and SB_API_PASSWORD are required")
	}
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is empty")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
