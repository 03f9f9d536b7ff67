package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/sleeping-barber/internal/barbershop"
	"github.com/iliyamo/sleeping-barber/internal/config"
	"github.com/iliyamo/sleeping-barber/internal/handler"
	"github.com/iliyamo/sleeping-barber/internal/queue"
	"github.com/iliyamo/sleeping-barber/internal/repository"
	"github.com/iliyamo/sleeping-barber/internal/router"
	"github.com/iliyamo/sleeping-barber/internal/service"
	"github.com/iliyamo/sleeping-barber/internal/simulation"
	"github.com/iliyamo/sleeping-barber/internal/stream"
)

func main() {
	cfg := config.Load()
	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(log.INFO)
	lg := e.Logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var seq repository.Sequence = repository.NewMemorySequence()
	rdb, err := config.NewRedisClient(ctx)
	if err != nil {
		lg.Warnf("redis unavailable, numbering clients in-process and rate limiting disabled: %v", err)
	} else {
		defer rdb.Close()
		seq = repository.NewRedisSequence(rdb, "")
	}

	hub := stream.NewHub(cfg.StreamOrigins...)
	go hub.Run(ctx)

	publisher := service.NewEventPublisher(cfg.RabbitURL, 1024)
	go publisher.Run(ctx)
	go func() {
		if err := queue.StartEventConsumer(ctx, cfg.RabbitURL, cfg.EventLogDir); err != nil && !errors.Is(err, context.Canceled) {
			lg.Errorf("event consumer stopped: %v", err)
		}
	}()

	haircut := simulation.Haircut(simulation.RandomDuration(cfg.ServiceMin, cfg.ServiceMax))
	shop, err := barbershop.New(cfg.Capacity, haircut,
		barbershop.WithLogger(lg),
		barbershop.WithObserver(hub),
		barbershop.WithObserver(publisher),
	)
	if err != nil {
		lg.Fatal(err)
	}
	if cfg.AutoStart {
		if err := shop.SpawnConsumerLoop(ctx); err != nil {
			lg.Fatal(err)
		}
	}
	if cfg.Simulate {
		arrivals := &simulation.Arrivals{
			Shop: shop,
			Seq:  seq,
			Gap:  simulation.RandomDuration(cfg.ArrivalMin, cfg.ArrivalMax),
		}
		go func() { _ = arrivals.Run(ctx) }()
	}

	router.RegisterRoutes(e, router.Deps{
		Shop:      handler.NewShopHandler(shop, seq, ctx),
		Auth:      handler.NewAuthHandler(cfg),
		Hub:       hub,
		Redis:     rdb,
		RateLimit: config.LoadRateLimitConfig(),
		JWTSecret: cfg.JWTSecret,
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			lg.Errorf("shutdown: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	lg.Infof("listening on %s (env=%s, seats=%d)", addr, cfg.Env, cfg.Capacity)
	if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		lg.Fatal(err)
	}
	lg.Infof("dropped %d events while the broker was unavailable", publisher.Dropped())
}
