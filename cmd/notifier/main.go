package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/iliyamo/restaurant-seating/internal/config"
	"github.com/iliyamo/restaurant-seating/internal/queue"
)

// notifier consumes seating-confirmed events from RabbitMQ and appends one
// line per confirmation to logs/notifications.log.  Actual SMS or mail
// delivery is out of reach here; the log is what a delivery worker tails.
func main() {
	_ = godotenv.Load()
	cfg := config.LoadNotifyConfig()
	dir := os.Getenv("NOTIFY_LOG_DIR")
	if dir == "" {
		dir = "logs"
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("notifier: consuming %s", cfg.Queue)
	err := queue.StartSeatingConsumer(ctx, cfg.AMQPURL, cfg.Queue, queue.NotificationLog{Dir: dir})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("notifier: %v", err)
	}
	log.Printf("notifier: stopped")
}
