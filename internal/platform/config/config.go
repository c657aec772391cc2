package config

import (
	"os"
	"strings"
	"time"

	"github.com/subosito/gotenv"
)

// Config captures process-level configuration. Built from environment
// variables so main stays lean; a .env file is honored in development.
type Config struct {
	Addr          string
	DatabaseURL   string
	JWTSigningKey string
	JWTTTL        time.Duration

	Redis   RedisConfig
	Kafka   KafkaConfig
	Gateway GatewayConfig
}

// RedisConfig configures the optional Redis client. Redis backs the
// distributed per-payer reconciliation lock; leaving URL empty falls back to
// in-process locking.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the optional webhook inbox topic. With no brokers
// the webhook handler feeds the reconciliation worker in process.
type KafkaConfig struct {
	Brokers       []string
	WebhookTopic  string
	ConsumerGroup string
}

// GatewayConfig holds the payment gateway credentials and endpoints.
type GatewayConfig struct {
	BaseURL      string
	PublicKey    string
	SecretKey    string
	EncryptedKey string
	CallbackURL  string
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	_ = gotenv.Load()

	cfg := Config{
		Addr:          envOr("SCHOOLPAY_ADDR", ":8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		JWTSigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTTTL:        durationOr("JWT_TTL", 24*time.Hour),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			WebhookTopic:  envOr("KAFKA_WEBHOOK_TOPIC", "payment.webhooks"),
			ConsumerGroup: envOr("KAFKA_CONSUMER_GROUP", "schoolpay-reconciler"),
		},
		Gateway: GatewayConfig{
			BaseURL:      envOr("SEERBIT_BASE_URL", "https://seerbitapi.com/api/v2"),
			PublicKey:    os.Getenv("SEERBIT_PUBLIC_KEY"),
			SecretKey:    os.Getenv("SEERBIT_SECRET_KEY"),
			EncryptedKey: os.Getenv("SEERBIT_ENCRYPTED_KEY"),
			CallbackURL:  envOr("SEERBIT_CALLBACK_URL", "http://localhost:8080"),
		},
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = strings.Split(brokers, ",")
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
