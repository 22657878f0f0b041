package infra_redis_kv

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis"
	"github.com/humanbelnik/soundbyte/internal/model"
)

type Driver struct {
	client *redis.Client
	key    string
}

func New(
	client *redis.Client,
	key string,
) *Driver {
	return &Driver{
		client: client,
		key:    key,
	}
}

func (d *Driver) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := d.client.WithContext(ctx).Set(d.getFullKey(key), value, ttl).Err(); err != nil {
		return errors.Join(model.ErrUpstreamUnavailable, err)
	}
	return nil
}

// Get returns "" for a missing key.
func (d *Driver) Get(ctx context.Context, key string) (string, error) {
	val, err := d.client.WithContext(ctx).Get(d.getFullKey(key)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", errors.Join(model.ErrUpstreamUnavailable, err)
	}

	return val, nil
}

func (d *Driver) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	fullKeys := make([]string, 0, len(keys))
	for _, k := range keys {
		fullKeys = append(fullKeys, d.getFullKey(k))
	}

	if err := d.client.WithContext(ctx).Del(fullKeys...).Err(); err != nil {
		return errors.Join(model.ErrUpstreamUnavailable, err)
	}
	return nil
}

func (d *Driver) getFullKey(key string) string {
	if d.key != "" {
		return d.key + ":" + key
	}
	return key
}
