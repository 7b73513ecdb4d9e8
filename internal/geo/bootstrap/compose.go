package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"una/internal/geo/adapters/in/transport"
	geoamqp "una/internal/geo/adapters/out/amqp"
	"una/internal/geo/adapters/out/repo"
	geows "una/internal/geo/adapters/out/ws"
	"una/internal/geo/application/usecase"
	"una/internal/geo/domain"
	"una/internal/shared/auth"
	"una/internal/shared/config"
	db_conn "una/internal/shared/db"
	"una/internal/shared/httpx"
	"una/internal/shared/logger"
	"una/internal/shared/mq"
	"una/internal/shared/ws"
)

// Run запускает Geo Service
func Run(ctx context.Context, cfg config.Config, log *logger.Logger) {
	log.Info(logger.Entry{Action: "geo_service_starting", Message: "initializing geo service"})

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

	// 2. RabbitMQ
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

	// 3. WebSocket hub: запросы координат и рассылка присутствия
	jwtService := auth.NewJWTService(cfg.JWT)
	hub := ws.NewHub(jwtService.ExtractUserID, log)
	go hub.Run(ctx)

	broker := geows.NewPositionBroker(hub, log)

	// 4. Use cases
	stages := StagesFromConfig(cfg.Geo)
	locator := usecase.NewLocator(stages, log)
	presence := usecase.NewPresenceService(
		locator,
		broker,
		repo.NewPresencePgRepository(dbPool),
		log,
		usecase.WithPublisher(geoamqp.NewPresencePublisher(mqConn, log)),
		usecase.WithBroadcaster(geows.NewPresenceBroadcaster(hub, log)),
		usecase.WithShareInterval(cfg.Geo.ShareInterval),
		usecase.WithPresenceTTL(cfg.Geo.PresenceTTL),
		usecase.WithFlightTimeout(domain.MaxWait(stages)+10*time.Second),
	)

	// 5. HTTP
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", httpx.Health("geo"))
	mux.HandleFunc("GET /ws", hub.ServeWS)
	transport.NewHTTPHandler(locator, presence, broker, log).
		RegisterRoutes(mux, httpx.RequireAuth(jwtService, log))

	handler := httpx.RequestID(httpx.Logging(log)(mux))

	addr := fmt.Sprintf(":%d", cfg.Services.GeoServicePort)
	if err := httpx.Serve(ctx, addr, handler, log); err != nil {
		log.Error(logger.Entry{
			Action:  "http_server_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}

	log.Info(logger.Entry{Action: "geo_service_stopped", Message: "geo service stopped"})
}

// StagesFromConfig — шаги каскада из geo.yaml; незаданный таймаут берётся по умолчанию
func StagesFromConfig(cfg config.GeoConfig) []domain.Stage {
	stages := domain.DefaultStages()
	for i, sc := range []config.StageConfig{cfg.Quick, cfg.GPS, cfg.Fallback} {
		if sc.Timeout <= 0 {
			continue
		}
		stages[i].Options = domain.PositionOptions{
			HighAccuracy: sc.HighAccuracy,
			Timeout:      sc.Timeout,
			MaximumAge:   sc.MaximumAge,
		}
	}
	return stages
}
