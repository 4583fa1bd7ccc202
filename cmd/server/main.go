package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/restaurant-seating/internal/config"
	"github.com/iliyamo/restaurant-seating/internal/database"
	"github.com/iliyamo/restaurant-seating/internal/handler"
	"github.com/iliyamo/restaurant-seating/internal/middleware"
	"github.com/iliyamo/restaurant-seating/internal/queue"
	"github.com/iliyamo/restaurant-seating/internal/repository"
	"github.com/iliyamo/restaurant-seating/internal/router"
	"github.com/iliyamo/restaurant-seating/internal/service"
)

func main() {
	cfg := config.Load()

	db, dialect, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	seats := repository.NewSeatRepo(db, dialect)
	occupants := repository.NewOccupantRepo(db, dialect)
	claims := repository.NewAllocationRepo(db, dialect)

	pub, closePub := publisher(cfg.Notify)
	defer closePub()
	dispatcher := queue.NewDispatcher(pub, cfg.Notify.Buffer)

	ctl := service.NewController(db, seats, occupants, claims, cfg.Venue.DiningDuration,
		service.WithNotifier(dispatcher))
	calc := service.NewCalculator(seats, occupants, claims, cfg.Venue)

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis: unavailable; rate limit and cache disabled")
	} else {
		defer rdb.Close()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	seatHandler := handler.NewSeatHandler(seats, claims)
	router.RegisterRoutes(e, db)
	router.RegisterPublic(e, seatHandler, handler.NewAvailabilityHandler(calc),
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	router.RegisterStaff(e, handler.NewSeatingHandler(ctl, cfg.Venue.Location), handler.NewOccupantHandler(occupants), cfg.JWTSecret)
	router.RegisterAdmin(e, seatHandler, cfg.JWTSecret)

	addr := ":" + cfg.Port
	go func() {
		log.Printf("listening on %s (env=%s, db=%s, notify=%s)", addr, cfg.Env, dialect, cfg.Notify.Backend)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	if err := dispatcher.Close(ctx); err != nil {
		log.Printf("notify: pending events dropped: %v", err)
	}
}

// publisher picks the confirmation sink named by NOTIFY_BACKEND.
func publisher(cfg config.NotifyConfig) (queue.Publisher, func()) {
	switch cfg.Backend {
	case "amqp":
		return queue.NewAMQPPublisher(cfg.AMQPURL, cfg.Queue), func() {}
	case "kafka":
		p, err := queue.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Fatalf("notify: %v", err)
		}
		return p, func() { _ = p.Close() }
	case "log", "":
		return queue.LogPublisher{}, func() {}
	default:
		log.Fatalf("invalid NOTIFY_BACKEND: %q (want log, amqp or kafka)", cfg.Backend)
		return nil, nil
	}
}
