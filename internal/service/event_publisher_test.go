package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/khainghsuthwe/ReserveMyTable/internal/domain"
	"github.com/khainghsuthwe/ReserveMyTable/pkg/kafka"
	"github.com/khainghsuthwe/ReserveMyTable/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProducer fails the first failures calls, then records messages
type fakeProducer struct {
	mu       sync.Mutex
	failures int
	calls    int
	messages []*kafka.Message
	closed   bool
}

func (p *fakeProducer) Produce(ctx context.Context, msg *kafka.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.calls <= p.failures {
		return errors.New("broker not available")
	}
	p.messages = append(p.messages, msg)
	return nil
}

func (p *fakeProducer) Close() { p.closed = true }

func fastRetry() *retry.Config {
	return &retry.Config{
		MaxRetries:      2,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		Multiplier:      2,
	}
}

func TestKafkaEventPublisher_ReservationConfirmed(t *testing.T) {
	fp := &fakeProducer{}
	pub := newKafkaEventPublisher(fp, &EventPublisherConfig{Retry: fastRetry()})

	r := &domain.Reservation{
		ID:           "res-1",
		RestaurantID: "golden-lotus",
		Date:         "2025-03-14",
		SlotID:       "dinner-1800",
		TableType:    "2-person",
		PartySize:    2,
		Status:       domain.ReservationStatusConfirmed,
	}
	require.NoError(t, pub.PublishReservationConfirmed(context.Background(), r))

	require.Len(t, fp.messages, 1)
	msg := fp.messages[0]
	assert.Equal(t, "reservation-events", msg.Topic)
	assert.Equal(t, "golden-lotus", string(msg.Key))
	assert.Equal(t, string(domain.EventReservationConfirmed), msg.Headers["event_type"])
	assert.Equal(t, "reservemytable", msg.Headers["source"])

	var body struct {
		ID           string          `json:"id"`
		Type         string          `json:"type"`
		RestaurantID string          `json:"restaurant_id"`
		Payload      json.RawMessage `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, msg.Headers["event_id"], body.ID)
	assert.Equal(t, "reservation.confirmed", body.Type)
	assert.Contains(t, string(body.Payload), `"res-1"`)
}

func TestKafkaEventPublisher_RetriesTransientFailures(t *testing.T) {
	fp := &fakeProducer{failures: 2}
	pub := newKafkaEventPublisher(fp, &EventPublisherConfig{Topic: "events", Retry: fastRetry()})

	err := pub.PublishReviewAdded(context.Background(), &domain.Review{ID: "rv-1", RestaurantID: "sakura-tei", Rating: 5})
	require.NoError(t, err)
	assert.Equal(t, 3, fp.calls)
	require.Len(t, fp.messages, 1)
	assert.Equal(t, "events", fp.messages[0].Topic)
	assert.Equal(t, "sakura-tei", string(fp.messages[0].Key))
}

func TestKafkaEventPublisher_GivesUp(t *testing.T) {
	fp := &fakeProducer{failures: 10}
	pub := newKafkaEventPublisher(fp, &EventPublisherConfig{Retry: fastRetry()})

	err := pub.PublishCapacityResized(context.Background(), &CapacityChange{Key: testKey, TableType: "family", Delta: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(domain.EventCapacityResized))
	assert.Equal(t, 3, fp.calls)
	assert.Empty(t, fp.messages)
}

func TestKafkaEventPublisher_Close(t *testing.T) {
	fp := &fakeProducer{}
	pub := newKafkaEventPublisher(fp, &EventPublisherConfig{})
	require.NoError(t, pub.Close())
	assert.True(t, fp.closed)
}

func TestNewKafkaEventPublisher_RequiresBrokers(t *testing.T) {
	_, err := NewKafkaEventPublisher(context.Background(), &EventPublisherConfig{})
	assert.Error(t, err)

	_, err = NewKafkaEventPublisher(context.Background(), nil)
	assert.Error(t, err)
}
