package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the root, env-var-driven configuration for the dispatcher.
type Config struct {
	Environment string
	Debug       bool
	LogLevel    string

	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	SMTP     SMTPConfig
	Push     PushConfig
	SMS      SMSConfig
	Queue    QueueConfig
}

// ServerConfig configures the HTTP/websocket listener.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig configures the relational store connection pool.
type DatabaseConfig struct {
	Host            string
	Port            int
	Username        string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// RedisConfig configures the channel work queue / rate limit backing store.
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	Database     int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the event transport.
type KafkaConfig struct {
	Brokers         []string
	ConsumerGroup   string
	SASLMechanism   string
	SASLUsername    string
	SASLPassword    string
	EnableTLS       bool
	SessionTimeout  time.Duration
	HeartbeatInterval time.Duration
	MaxWait         time.Duration
	MinBytes        int
	MaxBytesPerFetch int
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	RequiredAcks    int
	RetryBackoff    time.Duration
	RetryAttempts   int
}

// SMTPConfig configures the email channel adapter.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// PushConfig configures the push channel adapter.
type PushConfig struct {
	CredentialsPath string
	Timeout         time.Duration
}

// SMSConfig configures the SMS channel adapter.
type SMSConfig struct {
	BrokerURL string
	Timeout   time.Duration
}

// QueueConfig configures the channel work queue behaviour.
type QueueConfig struct {
	StalledInterval time.Duration
	MaxStalledCount int
	MaxAttempts     int
	RetryBaseDelay  time.Duration
	KeepCompleted   int
	KeepFailed      int
	WorkerCount     int
}

// Load builds a Config from environment variables, defaulting anything unset.
func Load() *Config {
	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Debug:       getBoolEnv("DEBUG", false),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getIntEnv("SERVER_PORT", 8085),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
		},

		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getIntEnv("DB_PORT", 5432),
			Username:        getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "notifications"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
			ConnMaxIdleTime: getDurationEnv("DB_CONN_MAX_IDLE_TIME", 10*time.Minute),
		},

		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getIntEnv("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			Database:     getIntEnv("REDIS_DB", 0),
			PoolSize:     getIntEnv("REDIS_POOL_SIZE", 50),
			MinIdleConns: getIntEnv("REDIS_MIN_IDLE_CONNS", 10),
			DialTimeout:  getDurationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDurationEnv("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDurationEnv("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},

		Kafka: KafkaConfig{
			Brokers:           strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			ConsumerGroup:     getEnv("KAFKA_CONSUMER_GROUP", "notification-dispatcher"),
			SASLMechanism:     getEnv("KAFKA_SASL_MECHANISM", ""),
			SASLUsername:      getEnv("KAFKA_SASL_USERNAME", ""),
			SASLPassword:      getEnv("KAFKA_SASL_PASSWORD", ""),
			EnableTLS:         getBoolEnv("KAFKA_ENABLE_TLS", false),
			SessionTimeout:    getDurationEnv("KAFKA_SESSION_TIMEOUT", 30*time.Second),
			HeartbeatInterval: getDurationEnv("KAFKA_HEARTBEAT_INTERVAL", 3*time.Second),
			MaxWait:           getDurationEnv("KAFKA_MAX_WAIT", 100*time.Millisecond),
			MinBytes:          getIntEnv("KAFKA_MIN_BYTES", 1),
			MaxBytesPerFetch:  getIntEnv("KAFKA_MAX_BYTES_PER_FETCH", 1<<20),
			WriteTimeout:      getDurationEnv("KAFKA_WRITE_TIMEOUT", 10*time.Second),
			ReadTimeout:       getDurationEnv("KAFKA_READ_TIMEOUT", 10*time.Second),
			RequiredAcks:      getIntEnv("KAFKA_REQUIRED_ACKS", -1),
			RetryBackoff:      getDurationEnv("KAFKA_RETRY_BACKOFF", 100*time.Millisecond),
			RetryAttempts:     getIntEnv("KAFKA_RETRY_ATTEMPTS", 8),
		},

		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "localhost"),
			Port:     getIntEnv("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "no-reply@example.com"),
			Timeout:  getDurationEnv("SMTP_TIMEOUT", 30*time.Second),
		},

		Push: PushConfig{
			CredentialsPath: getEnv("PUSH_CREDENTIALS_PATH", ""),
			Timeout:         getDurationEnv("PUSH_TIMEOUT", 30*time.Second),
		},

		SMS: SMSConfig{
			BrokerURL: getEnv("SMS_BROKER_URL", ""),
			Timeout:   getDurationEnv("SMS_TIMEOUT", 30*time.Second),
		},

		Queue: QueueConfig{
			StalledInterval: getDurationEnv("QUEUE_STALLED_INTERVAL", 5*time.Second),
			MaxStalledCount: getIntEnv("QUEUE_MAX_STALLED_COUNT", 1),
			MaxAttempts:     getIntEnv("QUEUE_MAX_ATTEMPTS", 3),
			RetryBaseDelay:  getDurationEnv("QUEUE_RETRY_BASE_DELAY", 1*time.Second),
			KeepCompleted:   getIntEnv("QUEUE_KEEP_COMPLETED", 5),
			KeepFailed:      getIntEnv("QUEUE_KEEP_FAILED", 3),
			WorkerCount:     getIntEnv("QUEUE_WORKER_COUNT", 4),
		},
	}
}

// MustLoad calls Load. It exists for symmetry with the wider corpus's
// Load/MustLoad pairing; Load itself never fails since every variable has a
// default.
func MustLoad() *Config {
	return Load()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getIntEnv(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return parsed
}
