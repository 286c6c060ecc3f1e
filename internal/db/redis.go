package db

import (
	"context"
	"time"

	"billhub-service/internal/config"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis opens a single-node Redis client. Redis is an accelerator
// here, never the source of truth, so the caller may choose to continue
// without it when the ping fails.
func ConnectRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
