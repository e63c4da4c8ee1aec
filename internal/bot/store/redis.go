package store

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"panterabot/internal/bot/settings"
)

// Redis keeps the settings blob under a single key.
type Redis struct {
	rdb *redis.Client
	key string
}

// NewRedis creates a Redis-backed store for a profile.
func NewRedis(rdb *redis.Client, profile string) *Redis {
	return &Redis{rdb: rdb, key: Key(profile)}
}

// Load reads the stored settings.
func (s *Redis) Load(ctx context.Context) (settings.Config, error) {
	data, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return settings.Config{}, ErrNotFound
	}
	if err != nil {
		return settings.Config{}, err
	}
	return decode(data)
}

// Save overwrites the stored settings.
func (s *Redis) Save(ctx context.Context, cfg settings.Config) error {
	data, err := encode(cfg)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key, data, 0).Err()
}
