package cache

import (
	"context"
	"fmt"
	"time"

	"una/internal/shared/config"
	"una/internal/shared/logger"

	"github.com/redis/go-redis/v9"
)

// NewRedis подключается к Redis и проверяет соединение, повторяя ping с растущей паузой
func NewRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	delay := 500 * time.Millisecond
	var err error
	for attempt := 1; attempt <= 5; attempt++ {
		if err = client.Ping(ctx).Err(); err == nil {
			log.Info(logger.Entry{
				Action:  "redis_connected",
				Message: cfg.Address,
			})
			return client, nil
		}

		log.Warn(logger.Entry{
			Action:  "redis_ping_failed",
			Message: err.Error(),
			Additional: map[string]any{
				"attempt": attempt,
			},
		})

		select {
		case <-ctx.Done():
			_ = client.Close()
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	_ = client.Close()
	return nil, fmt.Errorf("redis ping %s: %w", cfg.Address, err)
}
