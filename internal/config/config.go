package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// HTTP holds HTTP server configuration.
type HTTP struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
}

// GRPC configures the optional gRPC endpoint exposing health and read operations.
type GRPC struct {
	Enabled        bool
	Host           string
	Port           int
	HealthInterval time.Duration
}

// Storage locates the orders file and its snapshot archive.
type Storage struct {
	Path         string
	SnapshotName string
	SnapshotDir  string
}

// Lock configures the optional writer guard around mutating operations.
type Lock struct {
	Driver       string
	Key          string
	TTL          time.Duration
	Wait         time.Duration
	PollInterval time.Duration
	Redis        Redis
}

// Redis contains redis-specific connection settings.
type Redis struct {
	Addr     string
	Password string
	DB       int
}

// Messaging configures the message bus used for audit events.
type Messaging struct {
	Driver        string
	Enabled       bool
	Kafka         Kafka
	ConsumerGroup string
	Workers       Worker
}

// Kafka holds Kafka connection details.
type Kafka struct {
	Brokers        []string
	ClientID       string
	Topic          string
	CommitInterval time.Duration
	MinBytes       int
	MaxBytes       int
	ConnectTimeout time.Duration
}

// Worker configures background worker concurrency and polling.
type Worker struct {
	Enabled      bool
	PollInterval time.Duration
	Concurrency  int
}

// Observability contains logging, tracing, and metrics configuration.
type Observability struct {
	ServiceName        string
	Environment        string
	LogLevel           string
	LogEncoding        string
	AuditLogPath       string
	AuditLogMaxSizeMB  int
	AuditLogMaxBackups int
	EnableTracing      bool
	TraceExporter      string
	TraceEndpoint      string
	TraceInsecure      bool
	EnableMetrics      bool
	MetricsExporter    string
	PrometheusPath     string
}

// Config wraps all application configuration knobs.
type Config struct {
	HTTP          HTTP
	GRPC          GRPC
	Storage       Storage
	Lock          Lock
	Messaging     Messaging
	Observability Observability
}

// Module wires the configuration loader into the Fx graph.
var Module = fx.Provide(New)

var loadEnvOnce sync.Once

// New builds a Config from environment variables or defaults.
func New() (Config, error) {
	loadEnvOnce.Do(func() {
		_ = godotenv.Load()
	})

	cfg := Config{
		HTTP: HTTP{
			Host:         getEnv("HTTP_HOST", "0.0.0.0"),
			Port:         getEnvAsInt("HTTP_PORT", 8000),
			ReadTimeout:  getEnvAsDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvAsDuration("HTTP_WRITE_TIMEOUT", 30*time.Second),
			CORSOrigins:  getEnvAsStringSlice("HTTP_CORS_ORIGINS", []string{"*"}),
		},
		GRPC: GRPC{
			Enabled:        getEnvAsBool("GRPC_ENABLED", false),
			Host:           getEnv("GRPC_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("GRPC_PORT", 9090),
			HealthInterval: getEnvAsDuration("GRPC_HEALTH_INTERVAL", 10*time.Second),
		},
		Storage: Storage{
			Path:         getEnvStrict("ORDERS_CSV_PATH", "database.csv"),
			SnapshotName: getEnv("ORDERS_SNAPSHOT_NAME", "database.zip"),
			SnapshotDir:  getEnv("ORDERS_SNAPSHOT_DIR", ""),
		},
		Lock: Lock{
			Driver:       getEnv("LOCK_DRIVER", "none"),
			Key:          getEnv("LOCK_KEY", "orderdesk:orders:writer"),
			TTL:          getEnvAsDuration("LOCK_TTL", 10*time.Second),
			Wait:         getEnvAsDuration("LOCK_WAIT", 5*time.Second),
			PollInterval: getEnvAsDuration("LOCK_POLL_INTERVAL", 50*time.Millisecond),
			Redis: Redis{
				Addr:     getEnvStrict("REDIS_ADDR", "127.0.0.1:6379"),
				Password: getEnv("REDIS_PASSWORD", ""),
				DB:       getEnvAsInt("REDIS_DB", 0),
			},
		},
		Messaging: Messaging{
			Driver:  getEnv("MESSAGING_DRIVER", "kafka"),
			Enabled: getEnvAsBool("MESSAGING_ENABLED", false),
			Kafka: Kafka{
				Brokers:        getEnvAsStringSlice("KAFKA_BROKERS", []string{"127.0.0.1:9092"}),
				ClientID:       getEnv("KAFKA_CLIENT_ID", "orderdesk"),
				Topic:          getEnvStrict("KAFKA_TOPIC", "orders.audit"),
				CommitInterval: getEnvAsDuration("KAFKA_COMMIT_INTERVAL", time.Second),
				MinBytes:       getEnvAsInt("KAFKA_MIN_BYTES", 10e3),
				MaxBytes:       getEnvAsInt("KAFKA_MAX_BYTES", 10e6),
				ConnectTimeout: getEnvAsDuration("KAFKA_CONNECT_TIMEOUT", 5*time.Second),
			},
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "orderdesk-audit"),
			Workers: Worker{
				Enabled:      getEnvAsBool("WORKER_ENABLED", true),
				PollInterval: getEnvAsDuration("WORKER_POLL_INTERVAL", time.Second),
				Concurrency:  getEnvAsInt("WORKER_CONCURRENCY", 1),
			},
		},
		Observability: Observability{
			ServiceName:        getEnv("OBS_SERVICE_NAME", "orderdesk"),
			Environment:        getEnv("OBS_ENVIRONMENT", "local"),
			LogLevel:           getEnv("OBS_LOG_LEVEL", "info"),
			LogEncoding:        getEnv("OBS_LOG_ENCODING", "json"),
			AuditLogPath:       getEnv("OBS_AUDIT_LOG_PATH", "api_operations.log"),
			AuditLogMaxSizeMB:  getEnvAsInt("OBS_AUDIT_LOG_MAX_SIZE_MB", 5),
			AuditLogMaxBackups: getEnvAsInt("OBS_AUDIT_LOG_MAX_BACKUPS", 3),
			EnableTracing:      getEnvAsBool("OBS_ENABLE_TRACING", false),
			TraceExporter:      getEnv("OBS_TRACE_EXPORTER", "stdout"),
			TraceEndpoint:      getEnv("OBS_OTLP_ENDPOINT", "localhost:4317"),
			TraceInsecure:      getEnvAsBool("OBS_OTLP_INSECURE", true),
			EnableMetrics:      getEnvAsBool("OBS_ENABLE_METRICS", true),
			MetricsExporter:    getEnv("OBS_METRICS_EXPORTER", "prometheus"),
			PrometheusPath:     getEnv("OBS_PROMETHEUS_PATH", "/metrics"),
		},
	}

	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg *Config) normalize() error {
	if cfg.HTTP.Port <= 0 {
		return fmt.Errorf("invalid HTTP port: %d", cfg.HTTP.Port)
	}
	if len(cfg.HTTP.CORSOrigins) == 0 {
		cfg.HTTP.CORSOrigins = []string{"*"}
	}
	if cfg.GRPC.Enabled && cfg.GRPC.Port <= 0 {
		return fmt.Errorf("invalid gRPC port: %d", cfg.GRPC.Port)
	}
	if cfg.GRPC.HealthInterval <= 0 {
		cfg.GRPC.HealthInterval = 10 * time.Second
	}

	cfg.Storage.Path = strings.TrimSpace(cfg.Storage.Path)
	if cfg.Storage.Path == "" {
		return fmt.Errorf("missing ORDERS_CSV_PATH")
	}
	cfg.Storage.SnapshotName = filepath.Base(strings.TrimSpace(cfg.Storage.SnapshotName))
	if cfg.Storage.SnapshotName == "" || cfg.Storage.SnapshotName == "." {
		cfg.Storage.SnapshotName = "database.zip"
	}

	cfg.Lock.Driver = strings.ToLower(strings.TrimSpace(cfg.Lock.Driver))
	switch cfg.Lock.Driver {
	case "", "none":
		cfg.Lock.Driver = "none"
	case "local":
		// supported
	case "redis":
		if cfg.Lock.Redis.Addr == "" {
			return fmt.Errorf("missing REDIS_ADDR for redis lock")
		}
	default:
		return fmt.Errorf("unsupported lock driver: %s", cfg.Lock.Driver)
	}
	if cfg.Lock.Key == "" {
		cfg.Lock.Key = "orderdesk:orders:writer"
	}
	if cfg.Lock.TTL <= 0 {
		cfg.Lock.TTL = 10 * time.Second
	}
	if cfg.Lock.PollInterval <= 0 {
		cfg.Lock.PollInterval = 50 * time.Millisecond
	}

	obs := &cfg.Observability
	obs.LogLevel = strings.ToLower(strings.TrimSpace(obs.LogLevel))
	if obs.LogLevel == "" {
		obs.LogLevel = "info"
	}
	obs.LogEncoding = strings.ToLower(strings.TrimSpace(obs.LogEncoding))
	if obs.LogEncoding == "" {
		obs.LogEncoding = "json"
	}
	if strings.EqualFold(obs.AuditLogPath, "off") {
		obs.AuditLogPath = ""
	}
	if obs.AuditLogMaxSizeMB <= 0 {
		obs.AuditLogMaxSizeMB = 5
	}
	if obs.AuditLogMaxBackups < 0 {
		obs.AuditLogMaxBackups = 0
	}
	obs.TraceExporter = strings.ToLower(strings.TrimSpace(obs.TraceExporter))
	if obs.TraceExporter == "" {
		obs.TraceExporter = "stdout"
	}
	obs.MetricsExporter = strings.ToLower(strings.TrimSpace(obs.MetricsExporter))
	if obs.MetricsExporter == "" {
		obs.MetricsExporter = "prometheus"
	}
	if obs.PrometheusPath == "" {
		obs.PrometheusPath = "/metrics"
	} else if !strings.HasPrefix(obs.PrometheusPath, "/") {
		obs.PrometheusPath = "/" + obs.PrometheusPath
	}

	if !cfg.Messaging.Enabled {
		cfg.Messaging.Driver = "noop"
	}
	switch cfg.Messaging.Driver {
	case "kafka", "noop":
		// supported
	default:
		return fmt.Errorf("unsupported messaging driver: %s", cfg.Messaging.Driver)
	}
	if cfg.Messaging.Driver == "kafka" {
		if len(cfg.Messaging.Kafka.Brokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS must be provided")
		}
		if cfg.Messaging.Kafka.Topic == "" {
			return fmt.Errorf("KAFKA_TOPIC must be provided")
		}
		if cfg.Messaging.ConsumerGroup == "" {
			return fmt.Errorf("KAFKA_CONSUMER_GROUP must be provided")
		}
	}
	if cfg.Messaging.Workers.Concurrency <= 0 {
		cfg.Messaging.Workers.Concurrency = 1
	}
	if cfg.Messaging.Workers.PollInterval <= 0 {
		cfg.Messaging.Workers.PollInterval = time.Second
	}

	return nil
}
