package queue

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher delivers one event to a downstream system.
type Publisher interface {
	Publish(ctx context.Context, ev SeatingConfirmedEvent) error
}

// AMQPPublisher publishes events to a durable RabbitMQ queue through the
// default exchange.  It dials per publish, which keeps it free of
// connection state at the cost of a handshake per event.
type AMQPPublisher struct {
	URL   string
	Queue string
}

// NewAMQPPublisher returns a publisher for the given broker and queue.
func NewAMQPPublisher(url, queue string) *AMQPPublisher {
	return &AMQPPublisher{URL: url, Queue: queue}
}

// Publish declares the queue (idempotent) and publishes ev as a persistent
// JSON message.  Any error is logged and returned.
func (p *AMQPPublisher) Publish(ctx context.Context, ev SeatingConfirmedEvent) error {
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// durable so messages survive broker restarts
	if _, err := ch.QueueDeclare(p.Queue, true, false, false, false, nil); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.EventID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	// routing key = queue name on the default exchange
	if err := ch.PublishWithContext(ctx, "", p.Queue, false, false, pub); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}
	return nil
}

// LogPublisher writes events to the process log.  It is the default
// backend for local runs without a broker.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, ev SeatingConfirmedEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	log.Printf("notify: seating confirmed %s", body)
	return nil
}
