package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop/internal/cache"
	"github.com/vladislavdragonenkov/shop/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/shop/internal/health"
	"github.com/vladislavdragonenkov/shop/internal/storage/memory"
	"github.com/vladislavdragonenkov/shop/internal/storage/postgres"
)

const startupPingTimeout = 3 * time.Second

// Storage объединяет то, что сервису нужно от хранилища: транзакции, чтение и проверку доступности.
type Storage interface {
	domain.UnitOfWork
	Repositories() domain.Repositories
	Ping(ctx context.Context) error
}

// runtimeDependencies содержит инфраструктуру, созданную по конфигурации.
type runtimeDependencies struct {
	storage        Storage
	promotionCache cache.PromotionCache
	storageChecker healthcheck.Checker
	cacheChecker   healthcheck.Checker
	closeFns       []func() error
}

// initRuntimeDependencies открывает хранилище и кеш акций.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}
	deps := &runtimeDependencies{}

	if err := deps.initStorage(ctx, cfg, logger); err != nil {
		return nil, err
	}
	deps.initPromotionCache(ctx, cfg, logger)

	return deps, nil
}

func (d *runtimeDependencies) initStorage(ctx context.Context, cfg Config, logger *log.Entry) error {
	switch cfg.StorageDriver {
	case StorageDriverMemory, "":
		store := memory.NewStore()
		d.storage = store
		d.storageChecker = healthcheck.PingChecker("storage", store)
		logger.WithField("driver", StorageDriverMemory).Info("storage initialized")
		return nil

	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return fmt.Errorf("postgres storage requires dsn: %w", ErrInvalidConfig)
		}
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("open postgres storage: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return fmt.Errorf("apply postgres migrations: %w", err)
			}
		}
		d.storage = store
		d.storageChecker = healthcheck.PingChecker("storage", store)
		d.closeFns = append(d.closeFns, store.Close)
		logger.WithFields(log.Fields{
			"driver":       StorageDriverPostgres,
			"auto_migrate": cfg.PostgresAutoMigrate,
		}).Info("storage initialized")
		return nil

	default:
		return fmt.Errorf("unsupported storage driver %q: %w", cfg.StorageDriver, ErrInvalidConfig)
	}
}

// initPromotionCache подключает Redis. Недоступный Redis не мешает старту: кеш только ускоряет чтение.
func (d *runtimeDependencies) initPromotionCache(ctx context.Context, cfg Config, logger *log.Entry) {
	if cfg.RedisAddr == "" {
		d.promotionCache = cache.NoopPromotionCache{}
		return
	}

	redisCache := cache.NewRedisPromotionCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.PromotionCacheTTL)
	pingCtx, cancel := context.WithTimeout(ctx, startupPingTimeout)
	defer cancel()
	if err := redisCache.Ping(pingCtx); err != nil {
		logger.WithError(err).WithField("addr", cfg.RedisAddr).Warn("redis is unavailable, promotion cache will retry on demand")
	} else {
		logger.WithField("addr", cfg.RedisAddr).Info("promotion cache initialized")
	}

	d.promotionCache = redisCache
	d.cacheChecker = healthcheck.NewOptionalChecker("promotion_cache", redisCache.Ping)
	d.closeFns = append(d.closeFns, redisCache.Close)
}

// registerCheckers добавляет проверки хранилища и кеша в health handler.
func (d *runtimeDependencies) registerCheckers(handler *healthcheck.Handler) {
	handler.RegisterChecker("storage", d.storageChecker)
	if d.cacheChecker != nil {
		handler.RegisterChecker("promotion_cache", d.cacheChecker)
	}
}

// Close освобождает ресурсы в обратном порядке.
func (d *runtimeDependencies) Close() error {
	var errs []error
	for i := len(d.closeFns) - 1; i >= 0; i-- {
		if err := d.closeFns[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closeFns = nil
	return errors.Join(errs...)
}
