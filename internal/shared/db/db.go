package db_conn

import (
	"context"
	"fmt"
	"time"

	"una/internal/shared/config"
	"una/internal/shared/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pingAttempts = 5
	pingTimeout  = 5 * time.Second
)

// NewPool создает connection pool и ждёт, пока БД ответит на ping.
// Postgres в docker-compose поднимается дольше сервиса, поэтому ping повторяется.
func NewPool(ctx context.Context, cfg config.DBConfig, log *logger.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	// preference/presence запросы короткие, большой пул не нужен
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 15 * time.Minute
	poolCfg.HealthCheckPeriod = time.Minute
	if name := log.Service(); name != "" {
		poolCfg.ConnConfig.RuntimeParams["application_name"] = name
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	delay := 500 * time.Millisecond
	for attempt := 1; ; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err = pool.Ping(pingCtx)
		cancel()
		if err == nil {
			break
		}

		log.Warn(logger.Entry{
			Action:  "db_ping_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
			Additional: map[string]any{
				"attempt":      attempt,
				"max_attempts": pingAttempts,
			},
		})

		if attempt == pingAttempts {
			pool.Close()
			return nil, fmt.Errorf("ping db after %d attempts: %w", pingAttempts, err)
		}

		select {
		case <-ctx.Done():
			pool.Close()
			return nil, ctx.Err()
		case <-time.After(delay):
			delay *= 2
		}
	}

	log.Info(logger.Entry{
		Action:  "db_connected",
		Message: fmt.Sprintf("connected to %s:%d/%s", cfg.Host, cfg.Port, cfg.Database),
	})

	return pool, nil
}

// Close безопасно закрывает пул с логированием
func Close(pool *pgxpool.Pool, log *logger.Logger) {
	if pool != nil {
		pool.Close()
		log.Info(logger.Entry{Action: "db_closed", Message: "database pool closed"})
	}
}
