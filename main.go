package main

import (
	"context"
	"flag"
	"os/signal"
	"sync"
	"syscall"

	"una/internal/shared/config"
	"una/internal/shared/logger"

	geoboot "una/internal/geo/bootstrap"
	marketboot "una/internal/market/bootstrap"
)

func main() {
	svc := flag.String("service", "market", "market|geo|all")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log := logger.NewLogger("bootstrap")
		log.Fatal(logger.Entry{Action: "config_load_failed", Message: err.Error(), Error: &logger.ErrObj{Msg: err.Error()}})
	}

	switch *svc {
	case "market":
		marketboot.Run(ctx, cfg, logger.NewLogger("market-service"))

	case "geo":
		geoboot.Run(ctx, cfg, logger.NewLogger("geo-service"))

	case "all":
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			marketboot.Run(ctx, cfg, logger.NewLogger("market-service"))
		}()
		go func() {
			defer wg.Done()
			geoboot.Run(ctx, cfg, logger.NewLogger("geo-service"))
		}()
		wg.Wait()

	default:
		log := logger.NewLogger("bootstrap")
		log.Fatal(logger.Entry{Action: "invalid_service", Message: *svc})
	}
}
