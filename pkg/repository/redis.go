package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/example/onlineshop/pkg/config"
	"github.com/example/onlineshop/pkg/models"
	"github.com/example/onlineshop/pkg/order"
	"github.com/go-redis/redis/v8"
)

const ProductListKey = "products:all"

type RedisRepository struct {
	client *redis.Client
	config *config.RedisConfig
}

func NewRedisRepository(cfg *config.RedisConfig) *RedisRepository {
	return &RedisRepository{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
			PoolSize: cfg.PoolSize,
		}),
		config: cfg,
	}
}

func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRepository) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return r.client.Set(ctx, key, value, expiration).Err()
}

func (r *RedisRepository) Get(ctx context.Context, key string) (string, error) {
	return r.client.Get(ctx, key).Result()
}

func (r *RedisRepository) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisRepository) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return r.client.Expire(ctx, key, expiration).Err()
}

func (r *RedisRepository) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, expiration).Err()
}

func (r *RedisRepository) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}

// Sessions map an opaque token to a user id. Each request resolves its own
// token; nothing about the current user is ever held in process state.

func sessionKey(token string) string {
	return "session:" + token
}

func (r *RedisRepository) SaveSession(ctx context.Context, token string, userID uint, ttl time.Duration) error {
	return r.client.Set(ctx, sessionKey(token), strconv.FormatUint(uint64(userID), 10), ttl).Err()
}

func (r *RedisRepository) SessionUserID(ctx context.Context, token string) (uint, error) {
	val, err := r.client.Get(ctx, sessionKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, order.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, order.ErrNotFound
	}
	return uint(id), nil
}

// TouchSession slides the session expiry on activity.
func (r *RedisRepository) TouchSession(ctx context.Context, token string, ttl time.Duration) error {
	return r.client.Expire(ctx, sessionKey(token), ttl).Err()
}

func (r *RedisRepository) DeleteSession(ctx context.Context, token string) error {
	return r.client.Del(ctx, sessionKey(token)).Err()
}

// Read-through cache for the catalog listing.

func (r *RedisRepository) CachedProducts(ctx context.Context) ([]models.Product, bool) {
	var products []models.Product
	if err := r.GetJSON(ctx, ProductListKey, &products); err != nil {
		return nil, false
	}
	return products, true
}

func (r *RedisRepository) CacheProducts(ctx context.Context, products []models.Product, ttl time.Duration) error {
	return r.SetJSON(ctx, ProductListKey, products, ttl)
}

func (r *RedisRepository) InvalidateProducts(ctx context.Context) error {
	return r.client.Del(ctx, ProductListKey).Err()
}
