package adapters

import (
	"context"
	"time"

	"github.com/egov-portal/reserve-service/internal/database"
	"github.com/egov-portal/reserve-service/internal/storage"
	"github.com/egov-portal/reserve-service/pkg/metrics"
)

// CacheAdapter адаптирует database.RedisClient для storage.CacheInterface и storage.QueueInterface
type CacheAdapter struct {
	redis *database.RedisClient
}

var (
	_ storage.CacheInterface = (*CacheAdapter)(nil)
	_ storage.QueueInterface = (*CacheAdapter)(nil)
)

// NewCacheAdapter создает новый адаптер для Redis
func NewCacheAdapter(redis *database.RedisClient) *CacheAdapter {
	return &CacheAdapter{redis: redis}
}

// Get получает значение по ключу
func (a *CacheAdapter) Get(ctx context.Context, key string) (string, error) {
	val, err := a.redis.Get(ctx, key)
	metrics.RecordRedisOperation("get", status(err))
	return val, err
}

// Set устанавливает значение с TTL
func (a *CacheAdapter) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	err := a.redis.Set(ctx, key, value, ttl)
	metrics.RecordRedisOperation("set", status(err))
	return err
}

// Del удаляет ключ
func (a *CacheAdapter) Del(ctx context.Context, key string) error {
	err := a.redis.Delete(ctx, key)
	metrics.RecordRedisOperation("del", status(err))
	return err
}

// PushTail добавляет значения в конец списка
func (a *CacheAdapter) PushTail(ctx context.Context, key string, values ...string) error {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	err := a.redis.PushTail(ctx, key, args...)
	metrics.RecordRedisOperation("rpush", status(err))
	return err
}

// PopHead извлекает до n значений из начала списка
func (a *CacheAdapter) PopHead(ctx context.Context, key string, n int) ([]string, error) {
	vals, err := a.redis.PopHead(ctx, key, n)
	metrics.RecordRedisOperation("lpop", status(err))
	return vals, err
}

// Len возвращает длину списка
func (a *CacheAdapter) Len(ctx context.Context, key string) (int64, error) {
	n, err := a.redis.Len(ctx, key)
	metrics.RecordRedisOperation("llen", status(err))
	return n, err
}

// Health проверяет состояние Redis
func (a *CacheAdapter) Health(ctx context.Context) error {
	return a.redis.Health(ctx)
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
