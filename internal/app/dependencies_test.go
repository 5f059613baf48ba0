package app

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/shop/internal/cache"
	"github.com/vladislavdragonenkov/shop/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/shop/internal/health"
)

func TestInitRuntimeDependencies_Memory(t *testing.T) {
	t.Parallel()

	logger, _ := test.NewNullLogger()
	deps, err := initRuntimeDependencies(context.Background(), Config{
		StorageDriver: StorageDriverMemory,
	}, logger.WithField("test", "memory-storage"))
	require.NoError(t, err)
	defer func() { _ = deps.Close() }()

	require.NotNil(t, deps.storage)
	repos := deps.storage.Repositories()
	assert.NotNil(t, repos.Products)
	assert.NotNil(t, repos.Promotions)
	assert.NotNil(t, repos.Orders)
	assert.NotNil(t, repos.Timeline)
	assert.NotNil(t, repos.Outbox)

	assert.IsType(t, cache.NoopPromotionCache{}, deps.promotionCache)
	assert.Nil(t, deps.cacheChecker)
	require.NotNil(t, deps.storageChecker)
	assert.Equal(t, healthcheck.StatusHealthy, deps.storageChecker.Check(context.Background()).Status)
}

func TestInitRuntimeDependencies_IndependentStores(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	first, err := initRuntimeDependencies(ctx, DefaultConfig(), nil)
	require.NoError(t, err)
	second, err := initRuntimeDependencies(ctx, DefaultConfig(), nil)
	require.NoError(t, err)

	require.NoError(t, first.storage.Repositories().Products.Create(ctx, domain.Product{ID: "p1", PriceMinor: 100}))

	_, err = second.storage.Repositories().Products.Get(ctx, "p1")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestInitRuntimeDependencies_PostgresRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := initRuntimeDependencies(context.Background(), Config{
		StorageDriver: StorageDriverPostgres,
	}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestInitRuntimeDependencies_UnsupportedDriver(t *testing.T) {
	t.Parallel()

	_, err := initRuntimeDependencies(context.Background(), Config{
		StorageDriver: "sqlite",
	}, nil)
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "unsupported storage driver")
}

func TestInitRuntimeDependencies_UnreachableRedisDegrades(t *testing.T) {
	t.Parallel()

	logger, hook := test.NewNullLogger()
	cfg := DefaultConfig()
	cfg.RedisAddr = "127.0.0.1:1"

	deps, err := initRuntimeDependencies(context.Background(), cfg, logger.WithField("test", "redis"))
	require.NoError(t, err)
	defer func() { _ = deps.Close() }()

	assert.IsType(t, &cache.RedisPromotionCache{}, deps.promotionCache)
	require.NotNil(t, deps.cacheChecker)
	assert.Equal(t, healthcheck.StatusDegraded, deps.cacheChecker.Check(context.Background()).Status)

	var warned bool
	for _, entry := range hook.AllEntries() {
		if entry.Message == "redis is unavailable, promotion cache will retry on demand" {
			warned = true
		}
	}
	assert.True(t, warned, "expected a warning about unavailable redis")

	handler := healthcheck.NewHandler("test")
	deps.registerCheckers(handler)
	assert.Equal(t, healthcheck.StatusDegraded, handler.Evaluate(context.Background()).Status)
}

func TestRuntimeDependencies_CloseOrder(t *testing.T) {
	var order []string
	deps := &runtimeDependencies{
		closeFns: []func() error{
			func() error { order = append(order, "storage"); return nil },
			func() error { order = append(order, "cache"); return errors.New("cache close failed") },
		},
	}

	err := deps.Close()
	require.Error(t, err)
	assert.Equal(t, []string{"cache", "storage"}, order)

	require.NoError(t, deps.Close())
}
