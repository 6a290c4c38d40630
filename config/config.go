package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	App               AppConfig
	HTTP              ServerConfig
	GRPC              ServerConfig
	MySQL             MySQLConfig
	Log               LogConfig
	InternalEndpoints InternalEndpointsConfig
	Auth              AuthConfig
	Payments          PaymentsConfig
	Refund            RefundConfig
	Outbox            OutboxConfig
	Kafka             KafkaConfig
	Webhook           WebhookConfig
	Cloudinary        CloudinaryConfig
	Redis             RedisConfig
	Jobs              JobsConfig
}

type AppConfig struct {
	ServiceName string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level string
}

type InternalEndpointsConfig struct {
	AuthGRPCAddr string
}

type AuthConfig struct {
	JWTSecret string
	JWTIssuer string
}

type PaymentsConfig struct {
	ClaimTimeout  time.Duration
	JobBatchSize  int32
	AuditLookback time.Duration
}

// RefundConfig is the policy applied to doctors without a stored refund policy.
type RefundConfig struct {
	DefaultCutoffMinutes                int64
	DefaultDeductionPercent             decimal.Decimal
	AllowFullRefundOnDoctorCancellation bool
}

type OutboxConfig struct {
	Publisher     string
	MaxAttempts   int32
	RetryInterval time.Duration
	RatePerSecond float64
	Burst         int
}

type KafkaConfig struct {
	Brokers     []string
	TopicPrefix string
	ClientID    string
}

type WebhookConfig struct {
	URL     string
	Secret  string
	Timeout time.Duration
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
}

type RedisConfig struct {
	Addr          string
	Password      string
	DB            int
	ReceiptURLTTL time.Duration
}

type JobsConfig struct {
	ReleaseStaleInterval   time.Duration
	OutboxDispatchInterval time.Duration
	DisputeAuditInterval   time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "payment-verification-service"),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		GRPC: ServerConfig{
			Host: getEnv("GRPC_HOST", "0.0.0.0"),
			Port: getEnv("GRPC_PORT", "9090"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		InternalEndpoints: InternalEndpointsConfig{
			AuthGRPCAddr: getEnv("AUTH_SERVICE_GRPC_ADDR", "localhost:9090"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", ""),
			JWTIssuer: getEnv("AUTH_JWT_ISSUER", ""),
		},
		Payments: PaymentsConfig{
			ClaimTimeout:  getMinutesEnv("VERIFICATION_CLAIM_TIMEOUT_MINUTES", 30*time.Minute),
			JobBatchSize:  int32(getIntEnv("PAYMENTS_JOB_BATCH_SIZE", 100)),
			AuditLookback: getMinutesEnv("DISPUTE_AUDIT_LOOKBACK_MINUTES", 24*time.Hour),
		},
		Refund: RefundConfig{
			DefaultCutoffMinutes:                int64(getIntEnv("REFUND_DEFAULT_CUTOFF_MINUTES", 1440)),
			DefaultDeductionPercent:             getDecimalEnv("REFUND_DEFAULT_DEDUCTION_PERCENT", decimal.NewFromInt(20)),
			AllowFullRefundOnDoctorCancellation: getBoolEnv("REFUND_DEFAULT_FULL_ON_DOCTOR_CANCELLATION", true),
		},
		Outbox: OutboxConfig{
			Publisher:     strings.ToLower(getEnv("OUTBOX_PUBLISHER", "log")),
			MaxAttempts:   int32(getIntEnv("OUTBOX_MAX_ATTEMPTS", 10)),
			RetryInterval: getSecondsEnv("OUTBOX_RETRY_INTERVAL_SECONDS", time.Minute),
			RatePerSecond: getFloatEnv("OUTBOX_RATE_PER_SECOND", 50),
			Burst:         getIntEnv("OUTBOX_BURST", 10),
		},
		Kafka: KafkaConfig{
			Brokers:     getListEnv("KAFKA_BROKERS"),
			TopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", "payments"),
			ClientID:    getEnv("KAFKA_CLIENT_ID", "payment-verification-service"),
		},
		Webhook: WebhookConfig{
			URL:     getEnv("WEBHOOK_URL", ""),
			Secret:  getEnv("WEBHOOK_SECRET", ""),
			Timeout: getSecondsEnv("WEBHOOK_TIMEOUT_SECONDS", 10*time.Second),
		},
		Cloudinary: CloudinaryConfig{
			CloudName: getEnv("CLOUDINARY_CLOUD_NAME", ""),
			APIKey:    getEnv("CLOUDINARY_API_KEY", ""),
			APISecret: getEnv("CLOUDINARY_API_SECRET", ""),
		},
		Redis: RedisConfig{
			Addr:          getEnv("REDIS_ADDR", ""),
			Password:      getEnv("REDIS_PASSWORD", ""),
			DB:            getIntEnv("REDIS_DB", 0),
			ReceiptURLTTL: getMinutesEnv("RECEIPT_URL_TTL_MINUTES", 10*time.Minute),
		},
		Jobs: JobsConfig{
			ReleaseStaleInterval:   getMinutesEnv("VERIFICATION_RELEASE_STALE_INTERVAL_MINUTES", 5*time.Minute),
			OutboxDispatchInterval: getSecondsEnv("OUTBOX_DISPATCH_INTERVAL_SECONDS", 10*time.Second),
			DisputeAuditInterval:   getMinutesEnv("DISPUTE_AUDIT_INTERVAL_MINUTES", 60*time.Minute),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDecimalEnv(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getListEnv(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	items := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
