package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"una/internal/market/adapters/in/transport"
	marketamqp "una/internal/market/adapters/out/amqp"
	"una/internal/market/adapters/out/cache"
	"una/internal/market/adapters/out/ipapi"
	"una/internal/market/adapters/out/repo"
	marketws "una/internal/market/adapters/out/ws"
	"una/internal/market/application/usecase"
	"una/internal/shared/auth"
	sharedcache "una/internal/shared/cache"
	"una/internal/shared/config"
	db_conn "una/internal/shared/db"
	"una/internal/shared/httpx"
	"una/internal/shared/logger"
	"una/internal/shared/mq"
	"una/internal/shared/ws"
)

// Run запускает Market Service
func Run(ctx context.Context, cfg config.Config, log *logger.Logger) {
	log.Info(logger.Entry{Action: "market_service_starting", Message: "initializing market service"})

	// 1. PostgreSQL
	dbPool, err := db_conn.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal(logger.Entry{
			Action:  "db_connection_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}
	defer db_conn.Close(dbPool, log)

	if err := db_conn.Migrate(ctx, dbPool, log); err != nil {
		log.Fatal(logger.Entry{
			Action:  "db_migration_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}

	// 2. Redis — кеши устройств
	redisClient, err := sharedcache.NewRedis(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal(logger.Entry{
			Action:  "redis_connection_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}
	defer redisClient.Close()

	// 3. RabbitMQ
	mqConn, err := mq.NewRabbitMQ(ctx, cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal(logger.Entry{
			Action:  "rabbitmq_connection_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}
	defer mqConn.Close()

	if err := mq.SetupTopology(ctx, mqConn, log); err != nil {
		log.Error(logger.Entry{
			Action:  "rabbitmq_topology_setup_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}

	// 4. WebSocket hub для тостов
	jwtService := auth.NewJWTService(cfg.JWT)
	hub := ws.NewHub(jwtService.ExtractUserID, log)
	go hub.Run(ctx)

	// 5. Use case
	resolver := usecase.NewResolver(
		repo.NewPreferencePgRepository(dbPool),
		ipapi.NewClient(cfg.GeoIP),
		marketws.NewToastNotifier(hub, log),
		log,
		usecase.WithEventPublisher(marketamqp.NewEventPublisher(mqConn, log)),
		usecase.WithIPTimeout(cfg.GeoIP.Timeout),
	)

	// 6. HTTP
	handler := NewHTTPHandler(resolver, cache.NewRedisStore(redisClient, cfg.Redis.TTL), hub, jwtService, log)

	addr := fmt.Sprintf(":%d", cfg.Services.MarketServicePort)
	if err := httpx.Serve(ctx, addr, handler, log); err != nil {
		log.Error(logger.Entry{
			Action:  "http_server_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}

	log.Info(logger.Entry{Action: "market_service_stopped", Message: "market service stopped"})
}

// NewHTTPHandler собирает роутер сервиса с общими middleware
func NewHTTPHandler(
	resolver *usecase.Resolver,
	caches *cache.RedisStore,
	hub *ws.Hub,
	tokens httpx.TokenValidator,
	log *logger.Logger,
) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", httpx.Health("market"))
	mux.HandleFunc("GET /ws", hub.ServeWS)

	transport.NewHTTPHandler(resolver, caches, log).
		RegisterRoutes(mux, httpx.OptionalAuth(tokens, log))

	return httpx.RequestID(httpx.Logging(log)(mux))
}
