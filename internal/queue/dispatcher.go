package queue

import (
	"context"
	"log"
	"sync"
	"time"
)

// Dispatcher decouples publishing from the request that confirmed the
// seating.  Notify never blocks: when the buffer is full the event is
// dropped and logged.
type Dispatcher struct {
	pub     Publisher
	events  chan SeatingConfirmedEvent
	timeout time.Duration

	once sync.Once
	done chan struct{}
}

// NewDispatcher starts a worker that publishes through pub.  buffer bounds
// the number of events waiting to be published.
func NewDispatcher(pub Publisher, buffer int) *Dispatcher {
	if buffer < 1 {
		buffer = 1
	}
	d := &Dispatcher{
		pub:     pub,
		events:  make(chan SeatingConfirmedEvent, buffer),
		timeout: 10 * time.Second,
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

// Notify queues ev for publishing.  It stamps an event id and confirmation
// time when the caller left them empty.
func (d *Dispatcher) Notify(ev SeatingConfirmedEvent) {
	if ev.EventID == "" {
		ev.EventID = NewEventID()
	}
	if ev.ConfirmedAt == "" {
		ev.ConfirmedAt = FormatTime(time.Now())
	}
	defer func() {
		// Notify after Close must not take the caller down
		if r := recover(); r != nil {
			log.Printf("notify: dispatcher closed, dropping event %s", ev.EventID)
		}
	}()
	select {
	case d.events <- ev:
	default:
		log.Printf("notify: buffer full, dropping event %s for %s/%d", ev.EventID, ev.OccupantType, ev.OccupantID)
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for ev := range d.events {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		if err := d.pub.Publish(ctx, ev); err != nil {
			log.Printf("notify: publish event %s for %s/%d failed: %v", ev.EventID, ev.OccupantType, ev.OccupantID, err)
		}
		cancel()
	}
}

// Close stops accepting events and waits for queued ones to be published
// or for ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.once.Do(func() { close(d.events) })
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
