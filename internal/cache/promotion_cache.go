// Package cache кэширует список активных акций для read-only запросов.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

// ActivePromotionsKey — ключ со списком активных акций.
const ActivePromotionsKey = "shop:promotions:active"

// PromotionCache хранит снимок ListActive. Промах кэша не ошибка.
type PromotionCache interface {
	GetActive(ctx context.Context) ([]domain.Promotion, bool, error)
	SetActive(ctx context.Context, promotions []domain.Promotion) error
	Invalidate(ctx context.Context) error
}

// NoopPromotionCache ничего не кэширует.
type NoopPromotionCache struct{}

func (NoopPromotionCache) GetActive(context.Context) ([]domain.Promotion, bool, error) {
	return nil, false, nil
}

func (NoopPromotionCache) SetActive(context.Context, []domain.Promotion) error { return nil }

func (NoopPromotionCache) Invalidate(context.Context) error { return nil }

// RedisPromotionCache хранит список акций в Redis в виде JSON с TTL.
type RedisPromotionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisPromotionCache создаёт кэш поверх отдельного клиента Redis.
func NewRedisPromotionCache(addr, password string, db int, ttl time.Duration) *RedisPromotionCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewRedisPromotionCacheWithClient(client, ttl)
}

// NewRedisPromotionCacheWithClient использует уже созданный клиент.
func NewRedisPromotionCacheWithClient(client *redis.Client, ttl time.Duration) *RedisPromotionCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisPromotionCache{client: client, ttl: ttl}
}

// Ping проверяет соединение с Redis.
func (c *RedisPromotionCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close закрывает клиент.
func (c *RedisPromotionCache) Close() error {
	return c.client.Close()
}

// GetActive читает снимок активных акций.
func (c *RedisPromotionCache) GetActive(ctx context.Context) ([]domain.Promotion, bool, error) {
	val, err := c.client.Get(ctx, ActivePromotionsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var promotions []domain.Promotion
	if err := json.Unmarshal(val, &promotions); err != nil {
		return nil, false, err
	}
	return promotions, true, nil
}

// SetActive сохраняет снимок активных акций на ttl.
func (c *RedisPromotionCache) SetActive(ctx context.Context, promotions []domain.Promotion) error {
	if promotions == nil {
		promotions = []domain.Promotion{}
	}
	payload, err := json.Marshal(promotions)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, ActivePromotionsKey, payload, c.ttl).Err()
}

// Invalidate удаляет снимок, чтобы следующий запрос перечитал хранилище.
func (c *RedisPromotionCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, ActivePromotionsKey).Err()
}

var (
	_ PromotionCache = NoopPromotionCache{}
	_ PromotionCache = (*RedisPromotionCache)(nil)
)
