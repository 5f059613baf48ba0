package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/shop/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/shop/internal/service/lifecycle"
)

// Поддерживаемые драйверы хранилища.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

// ErrInvalidConfig возвращается, если конфигурация не проходит проверку.
var ErrInvalidConfig = errors.New("invalid config")

// Config описывает настройки запуска сервиса.
type Config struct {
	GRPCAddr    string
	MetricsAddr string

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool

	// Пустой RedisAddr отключает кеш акций.
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	PromotionCacheTTL time.Duration

	// KafkaBrokers — список брокеров через запятую. Пустое значение отключает публикацию outbox.
	KafkaBrokers       string
	KafkaClientID      string
	OutboxTopic        string
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration

	RetryMaxAttempts int
	RequestTimeout   time.Duration
	ShutdownTimeout  time.Duration
}

// DefaultConfig возвращает настройки для локального запуска в памяти.
func DefaultConfig() Config {
	return Config{
		GRPCAddr:            ":50051",
		MetricsAddr:         ":9090",
		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,
		PromotionCacheTTL:   30 * time.Second,
		KafkaClientID:       "shop-service",
		OutboxTopic:         kafka.TopicOrderEvents,
		OutboxPollInterval:  time.Second,
		OutboxBatchSize:     100,
		OutboxMaxAttempts:   3,
		OutboxRetryDelay:    100 * time.Millisecond,
		RetryMaxAttempts:    lifecycle.DefaultRetryConfig().MaxAttempts,
		RequestTimeout:      10 * time.Second,
		ShutdownTimeout:     5 * time.Second,
	}
}

// LoadConfigFromEnv накладывает переменные окружения SHOP_* и KAFKA_BROKERS на DefaultConfig.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	env := envReader{}

	env.str("SHOP_GRPC_ADDR", &cfg.GRPCAddr)
	env.str("SHOP_METRICS_ADDR", &cfg.MetricsAddr)
	env.str("SHOP_STORAGE_DRIVER", &cfg.StorageDriver)
	env.str("SHOP_POSTGRES_DSN", &cfg.PostgresDSN)
	env.boolean("SHOP_POSTGRES_AUTO_MIGRATE", &cfg.PostgresAutoMigrate)

	env.str("SHOP_REDIS_ADDR", &cfg.RedisAddr)
	env.str("SHOP_REDIS_PASSWORD", &cfg.RedisPassword)
	env.integer("SHOP_REDIS_DB", &cfg.RedisDB)
	env.duration("SHOP_PROMOTION_CACHE_TTL", &cfg.PromotionCacheTTL)

	env.str("KAFKA_BROKERS", &cfg.KafkaBrokers)
	env.str("SHOP_KAFKA_CLIENT_ID", &cfg.KafkaClientID)
	env.str("SHOP_OUTBOX_TOPIC", &cfg.OutboxTopic)
	env.duration("SHOP_OUTBOX_POLL_INTERVAL", &cfg.OutboxPollInterval)
	env.integer("SHOP_OUTBOX_BATCH_SIZE", &cfg.OutboxBatchSize)
	env.integer("SHOP_OUTBOX_MAX_ATTEMPTS", &cfg.OutboxMaxAttempts)
	env.duration("SHOP_OUTBOX_RETRY_DELAY", &cfg.OutboxRetryDelay)

	env.integer("SHOP_RETRY_MAX_ATTEMPTS", &cfg.RetryMaxAttempts)
	env.duration("SHOP_REQUEST_TIMEOUT", &cfg.RequestTimeout)
	env.duration("SHOP_SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout)

	if len(env.errs) > 0 {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(env.errs...))
	}
	return cfg, cfg.Validate()
}

// Validate проверяет согласованность настроек.
func (c Config) Validate() error {
	var errs []error

	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			errs = append(errs, errors.New("SHOP_POSTGRES_DSN is required for postgres storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported storage driver %q", c.StorageDriver))
	}
	if c.GRPCAddr == "" {
		errs = append(errs, errors.New("grpc address is empty"))
	}
	if c.OutboxBatchSize <= 0 {
		errs = append(errs, errors.New("outbox batch size must be positive"))
	}
	if c.OutboxPollInterval <= 0 {
		errs = append(errs, errors.New("outbox poll interval must be positive"))
	}
	if c.RetryMaxAttempts <= 0 {
		errs = append(errs, errors.New("retry max attempts must be positive"))
	}
	if c.RedisDB < 0 {
		errs = append(errs, errors.New("redis db must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Brokers разбирает KafkaBrokers в список адресов.
func (c Config) Brokers() []string {
	var brokers []string
	for _, broker := range strings.Split(c.KafkaBrokers, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	return brokers
}

func (c Config) retryConfig() lifecycle.RetryConfig {
	retry := lifecycle.DefaultRetryConfig()
	if c.RetryMaxAttempts > 0 {
		retry.MaxAttempts = c.RetryMaxAttempts
	}
	return retry
}

// envReader копит ошибки разбора, чтобы сообщить обо всех сразу.
type envReader struct {
	errs []error
}

func (r *envReader) lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (r *envReader) str(key string, dst *string) {
	if v, ok := r.lookup(key); ok {
		*dst = v
	}
}

func (r *envReader) boolean(key string, dst *bool) {
	v, ok := r.lookup(key)
	if !ok {
		return
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = parsed
}

func (r *envReader) integer(key string, dst *int) {
	v, ok := r.lookup(key)
	if !ok {
		return
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = parsed
}

func (r *envReader) duration(key string, dst *time.Duration) {
	v, ok := r.lookup(key)
	if !ok {
		return
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = parsed
}
