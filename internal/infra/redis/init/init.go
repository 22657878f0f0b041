package infra_redis_init

import (
	"fmt"
	"log"
	"log/slog"

	"github.com/go-redis/redis"
	"github.com/humanbelnik/soundbyte/internal/config"
)

// EstablishConn dials the cache and checks it answers a ping.
func EstablishConn(cfg config.RedisCache) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:       fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:   cfg.Password,
		DB:         0,
		MaxRetries: 2,
	})

	if err := client.Ping().Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s:%s: %w", cfg.Host, cfg.Port, err)
	}

	slog.Info("redis connected", "addr", client.Options().Addr)
	return client, nil
}

func MustEstablishConn(cfg config.RedisCache) *redis.Client {
	client, err := EstablishConn(cfg)
	if err != nil {
		log.Fatal(err)
	}
	return client
}
