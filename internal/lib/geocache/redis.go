package geocache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"home_compare/internal/domain"
	"home_compare/internal/lib/logger/sl"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "geocode:"

// Redis — постоянный слой кэша. Хранит только успешные результаты с TTL;
// ошибки Redis не прерывают геокодирование и считаются промахом.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	log    *slog.Logger
}

// NewRedis создаёт слой кэша поверх клиента Redis.
func NewRedis(client *redis.Client, ttl time.Duration, log *slog.Logger) *Redis {
	return &Redis{client: client, ttl: ttl, log: log}
}

func (r *Redis) Get(ctx context.Context, key string) (*domain.Coordinates, bool) {
	const op = "geocache.Redis.Get"

	raw, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warn("redis get failed", slog.String("op", op), sl.Err(err))
		}
		return nil, false
	}

	var coords domain.Coordinates
	if err := json.Unmarshal(raw, &coords); err != nil {
		r.log.Warn("corrupted geocode cache entry", slog.String("op", op), sl.Err(err))
		return nil, false
	}
	return &coords, true
}

func (r *Redis) Set(ctx context.Context, key string, coords *domain.Coordinates) {
	const op = "geocache.Redis.Set"

	if coords == nil {
		return
	}

	raw, err := json.Marshal(coords)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, redisKeyPrefix+key, raw, r.ttl).Err(); err != nil {
		r.log.Warn("redis set failed", slog.String("op", op), sl.Err(err))
	}
}

// Ping проверяет доступность Redis.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
