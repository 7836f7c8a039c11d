// Пакет cache предоставляет обёртку для работы с Redis как кешем чтения
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrCacheMiss возвращается, когда запрошенный ключ отсутствует в кеше Redis
// Позволяет отличить кэш-промах от реальной ошибки Redis
var ErrCacheMiss = errors.New("cache miss")

// RedisClient представляет собой обёртку над *redis.Client
// с методами Set, Get и Invalidate
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient создаёт новый RedisClient с заданными опциями подключения
func NewRedisClient(opts *redis.Options) *RedisClient {
	return &RedisClient{client: redis.NewClient(opts)}
}

// Set сохраняет значение value под ключом key с временем жизни expiration
func (r *RedisClient) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	return r.client.Set(ctx, key, value, expiration).Err()
}

// Get возвращает значение по ключу key
// Если ключ не найден (Redis возвращает redis.Nil), возвращается ErrCacheMiss,
// другие ошибки Redis передаются без изменений
func (r *RedisClient) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		// кэш-промах: ключ отсутствует
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Invalidate удаляет ключ key из кеша
// Используется после мутаций, чтобы читатели не видели устаревшие данные
func (r *RedisClient) Invalidate(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// Close закрывает подключение к Redis
func (r *RedisClient) Close() error {
	return r.client.Close()
}
