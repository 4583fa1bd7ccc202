package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// NotificationLog appends one line per confirmed seating to
// <Dir>/notifications.log.  It stands in for the email and SMS gateway.
type NotificationLog struct {
	Dir string
}

// Write formats ev and appends it to the log file.
func (l NotificationLog) Write(ev SeatingConfirmedEvent) error {
	if err := os.MkdirAll(l.Dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", l.Dir, err)
	}
	f, err := os.OpenFile(filepath.Join(l.Dir, "notifications.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	seats := make([]string, len(ev.SeatIDs))
	for i, id := range ev.SeatIDs {
		seats[i] = fmt.Sprint(id)
	}
	channel := "none"
	switch {
	case ev.ContactEmail != "" && ev.ContactPhone != "":
		channel = "email+sms"
	case ev.ContactEmail != "":
		channel = "email"
	case ev.ContactPhone != "":
		channel = "sms"
	}
	line := fmt.Sprintf("[%s] Seating %s | event_id=%s | %s_id=%d | guest=%q | party=%d | seats=[%s] | from=%s | to=%s | via=%s\n",
		ev.ConfirmedAt, ev.Status, ev.EventID, ev.OccupantType, ev.OccupantID, ev.ContactName, ev.PartySize,
		strings.Join(seats, ","), ev.StartsAt, ev.EndsAt, channel)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// handleMessage decodes one delivery body and records it.
func (l NotificationLog) handleMessage(body []byte) error {
	var ev SeatingConfirmedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.EventID == "" || ev.OccupantID == 0 {
		return errors.New("event missing event_id or occupant_id")
	}
	return l.Write(ev)
}

// StartSeatingConsumer connects to RabbitMQ, declares queue (durable) and
// records every delivery through sink.  It reconnects with backoff until
// ctx is cancelled, which is the only way it returns.  A message that
// cannot be handled is rejected without requeue so it cannot spin.
func StartSeatingConsumer(ctx context.Context, url, queue string, sink NotificationLog) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("notifier-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = consumeLoop(ctx, conn, queue, sink)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("notifier-consumer: consume loop ended: %v; reconnecting", err)
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, queue string, sink NotificationLog) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("notifier-consumer: set QoS failed: %v", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := sink.handleMessage(d.Body); err != nil {
				log.Printf("notifier-consumer: handle message failed: %v", err)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
