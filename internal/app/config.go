package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/service/ledger"
	"github.com/vladislavdragonenkov/storefront/internal/service/profile"
)

const (
	StorageDriverMemory   = "memory"
	StorageDriverSQLite   = "sqlite"
	StorageDriverPostgres = "postgres"

	defaultSQLitePath       = "data/storefront.db"
	defaultProfileIdleTTL   = 30 * time.Minute
	defaultEvictionInterval = 5 * time.Minute
	envPrefix               = "STOREFRONT_"
)

// Config описывает настройки запуска приложения.
type Config struct {
	HTTPAddr    string
	GRPCAddr    string
	MetricsAddr string

	StorageDriver       string
	SQLitePath          string
	PostgresDSN         string
	PostgresAutoMigrate bool

	// KafkaBrokers — список брокеров через запятую; пусто = forwarder выключен.
	KafkaBrokers  string
	KafkaTopic    string
	KafkaDLQTopic string

	Currency string
	Limits   profile.Limits

	// ProfileIdleTTL — простой, после которого профиль выгружается из памяти; 0 отключает выгрузку.
	ProfileIdleTTL   time.Duration
	EvictionInterval time.Duration

	LogLevel  string
	LogFormat string
}

// DefaultConfig возвращает базовые адреса и хранилище в памяти.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:            ":8080",
		GRPCAddr:            ":50051",
		MetricsAddr:         ":9090",
		StorageDriver:       StorageDriverMemory,
		SQLitePath:          defaultSQLitePath,
		PostgresAutoMigrate: true,
		KafkaTopic:          kafka.TopicStateEvents,
		KafkaDLQTopic:       kafka.TopicDeadLetterQueue,
		Currency:            ledger.DefaultCurrency,
		Limits:              profile.DefaultLimits(),
		ProfileIdleTTL:      defaultProfileIdleTTL,
		EvictionInterval:    defaultEvictionInterval,
		LogLevel:            "info",
		LogFormat:           "text",
	}
}

// LoadConfig читает необязательный .env, затем переменные окружения STOREFRONT_*.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return configFromEnv(os.LookupEnv)
}

func configFromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := DefaultConfig()

	str := func(name string, dst *string) {
		if v, ok := lookup(envPrefix + name); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	var errs []error
	num := func(name string, dst *int) {
		v, ok := lookup(envPrefix + name)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n < 0 {
			errs = append(errs, fmt.Errorf("%s%s must be a non-negative integer, got %q", envPrefix, name, v))
			return
		}
		*dst = n
	}
	dur := func(name string, dst *time.Duration) {
		v, ok := lookup(envPrefix + name)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil || d < 0 {
			errs = append(errs, fmt.Errorf("%s%s must be a non-negative duration, got %q", envPrefix, name, v))
			return
		}
		*dst = d
	}

	str("HTTP_ADDR", &cfg.HTTPAddr)
	str("GRPC_ADDR", &cfg.GRPCAddr)
	str("METRICS_ADDR", &cfg.MetricsAddr)
	str("STORAGE_DRIVER", &cfg.StorageDriver)
	str("SQLITE_PATH", &cfg.SQLitePath)
	str("POSTGRES_DSN", &cfg.PostgresDSN)
	str("KAFKA_BROKERS", &cfg.KafkaBrokers)
	str("KAFKA_TOPIC", &cfg.KafkaTopic)
	str("KAFKA_DLQ_TOPIC", &cfg.KafkaDLQTopic)
	str("CURRENCY", &cfg.Currency)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("LOG_FORMAT", &cfg.LogFormat)

	if v, ok := lookup(envPrefix + "POSTGRES_AUTO_MIGRATE"); ok && strings.TrimSpace(v) != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%sPOSTGRES_AUTO_MIGRATE must be a boolean, got %q", envPrefix, v))
		} else {
			cfg.PostgresAutoMigrate = b
		}
	}

	num("COMPARISON_LIMIT", &cfg.Limits.Comparison)
	num("WISHLIST_LIMIT", &cfg.Limits.Wishlist)
	num("RECENT_LIMIT", &cfg.Limits.RecentlyViewed)
	num("SEARCH_LIMIT", &cfg.Limits.SearchHistory)
	dur("PROFILE_IDLE_TTL", &cfg.ProfileIdleTTL)
	dur("EVICTION_INTERVAL", &cfg.EvictionInterval)

	cfg.StorageDriver = strings.ToLower(cfg.StorageDriver)
	cfg.Currency = strings.ToUpper(cfg.Currency)

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Validate проверяет согласованность настроек хранилища и логирования.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverSQLite:
		if c.SQLitePath == "" {
			return errors.New("sqlite path is required for sqlite storage driver")
		}
	case StorageDriverPostgres:
		if c.PostgresDSN == "" {
			return errors.New("postgres dsn is required for postgres storage driver")
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", c.StorageDriver)
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("unsupported log format %q", c.LogFormat)
	}
	return nil
}

// Brokers разбирает KafkaBrokers в список адресов.
func (c Config) Brokers() []string {
	var brokers []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// ConfigureLogger применяет уровень и формат логирования к стандартному логгеру logrus.
func ConfigureLogger(cfg Config) {
	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
