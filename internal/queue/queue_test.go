package queue

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []SeatingConfirmedEvent
	err    error
	block  chan struct{}
}

func (p *recordingPublisher) Publish(_ context.Context, ev SeatingConfirmedEvent) error {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func sampleEvent() SeatingConfirmedEvent {
	return SeatingConfirmedEvent{
		OccupantType: "reservation",
		OccupantID:   7,
		Status:       "reserved",
		ContactName:  "Ana Cruz",
		ContactEmail: "ana@example.com",
		PartySize:    2,
		SeatIDs:      []uint64{4, 5},
		StartsAt:     "2026-03-14T07:00:00Z",
		EndsAt:       "2026-03-14T08:00:00Z",
	}
}

func TestDispatcher_PublishesAndStampsIDs(t *testing.T) {
	pub := &recordingPublisher{}
	d := NewDispatcher(pub, 4)
	d.Notify(sampleEvent())
	d.Notify(sampleEvent())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))

	require.Equal(t, 2, pub.count())
	assert.NotEmpty(t, pub.events[0].EventID)
	assert.NotEqual(t, pub.events[0].EventID, pub.events[1].EventID)
	assert.NotEmpty(t, pub.events[0].ConfirmedAt)
}

func TestDispatcher_FailuresDoNotSurface(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	d := NewDispatcher(pub, 1)
	d.Notify(sampleEvent())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))
	assert.Equal(t, 1, pub.count())
}

func TestDispatcher_NotifyNeverBlocks(t *testing.T) {
	pub := &recordingPublisher{block: make(chan struct{})}
	d := NewDispatcher(pub, 1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			d.Notify(sampleEvent())
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a full buffer")
	}
	close(pub.block)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))
	// one in flight plus one buffered; the rest were dropped
	assert.LessOrEqual(t, pub.count(), 2)

	assert.NotPanics(t, func() { d.Notify(sampleEvent()) })
}

type fakeWriter struct {
	fails int
	msgs  []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.fails > 0 {
		w.fails--
		return errors.New("leader not available")
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaPublisher_RetriesAndKeysByOccupant(t *testing.T) {
	w := &fakeWriter{fails: 1}
	p := &KafkaPublisher{writer: w, maxAttempts: 3}

	require.NoError(t, p.Publish(context.Background(), sampleEvent()))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "reservation:7", string(w.msgs[0].Key))

	var ev SeatingConfirmedEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &ev))
	assert.Equal(t, []uint64{4, 5}, ev.SeatIDs)
}

func TestKafkaPublisher_GivesUp(t *testing.T) {
	p := &KafkaPublisher{writer: &fakeWriter{fails: 5}, maxAttempts: 2}
	err := p.Publish(context.Background(), sampleEvent())
	assert.ErrorContains(t, err, "after 2 attempts")
}

func TestNewKafkaPublisher_RequiresBrokersAndTopic(t *testing.T) {
	_, err := NewKafkaPublisher(nil, "seating.confirmed")
	assert.Error(t, err)
	_, err = NewKafkaPublisher([]string{"localhost:9092"}, "")
	assert.Error(t, err)
}

func TestNotificationLog_HandleMessage(t *testing.T) {
	dir := t.TempDir()
	sink := NotificationLog{Dir: filepath.Join(dir, "logs")}

	ev := sampleEvent()
	ev.EventID = "e-1"
	ev.ConfirmedAt = "2026-03-14T06:55:00Z"
	body, err := json.Marshal(ev)
	require.NoError(t, err)
	require.NoError(t, sink.handleMessage(body))

	raw, err := os.ReadFile(filepath.Join(dir, "logs", "notifications.log"))
	require.NoError(t, err)
	line := string(raw)
	assert.Contains(t, line, "Seating reserved")
	assert.Contains(t, line, "reservation_id=7")
	assert.Contains(t, line, "seats=[4,5]")
	assert.Contains(t, line, "via=email")

	assert.Error(t, sink.handleMessage([]byte("{not json")))
	assert.Error(t, sink.handleMessage([]byte(`{"occupant_id": 3}`)))
}

func TestLogPublisher(t *testing.T) {
	assert.NoError(t, LogPublisher{}.Publish(context.Background(), sampleEvent()))
}
