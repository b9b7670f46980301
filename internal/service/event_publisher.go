package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/khainghsuthwe/ReserveMyTable/internal/domain"
	"github.com/khainghsuthwe/ReserveMyTable/pkg/kafka"
	"github.com/khainghsuthwe/ReserveMyTable/pkg/retry"
)

// EventPublisher defines the interface for publishing reservation and review events
type EventPublisher interface {
	// PublishReservationConfirmed publishes a reservation confirmed event
	PublishReservationConfirmed(ctx context.Context, r *domain.Reservation) error

	// PublishReservationCancelled publishes a reservation cancelled event
	PublishReservationCancelled(ctx context.Context, r *domain.Reservation) error

	// PublishReviewAdded publishes a review added event
	PublishReviewAdded(ctx context.Context, r *domain.Review) error

	// PublishCapacityResized publishes an owner capacity change
	PublishCapacityResized(ctx context.Context, change *CapacityChange) error

	// Close closes the event publisher
	Close() error
}

// CapacityChange is the payload of an availability.resized event
type CapacityChange struct {
	Key       domain.SlotKey    `json:"key"`
	TableType string            `json:"table_type"`
	Delta     int               `json:"delta"`
	OwnerID   string            `json:"owner_id"`
	Table     domain.TableCount `json:"table"`
}

// producer is the subset of *kafka.Producer used for publishing
type producer interface {
	Produce(ctx context.Context, msg *kafka.Message) error
	Close()
}

// KafkaEventPublisher implements EventPublisher using Kafka
type KafkaEventPublisher struct {
	producer    producer
	topic       string
	serviceName string
	retry       *retry.Retrier
}

// EventPublisherConfig contains configuration for the event publisher
type EventPublisherConfig struct {
	Brokers     []string
	Topic       string
	ServiceName string
	ClientID    string
	Retry       *retry.Config
}

// NewKafkaEventPublisher creates a new Kafka event publisher
func NewKafkaEventPublisher(ctx context.Context, cfg *EventPublisherConfig) (*KafkaEventPublisher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("event publisher config is required")
	}

	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "reservemytable-producer"
	}

	p, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
		Brokers:       cfg.Brokers,
		ClientID:      clientID,
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
		BatchSize:     100,
		LingerMs:      10,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return newKafkaEventPublisher(p, cfg), nil
}

func newKafkaEventPublisher(p producer, cfg *EventPublisherConfig) *KafkaEventPublisher {
	topic := cfg.Topic
	if topic == "" {
		topic = "reservation-events"
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "reservemytable"
	}

	retryCfg := cfg.Retry
	if retryCfg == nil {
		retryCfg = &retry.Config{
			MaxRetries:      2,
			InitialInterval: 50 * time.Millisecond,
			MaxInterval:     500 * time.Millisecond,
			Multiplier:      2,
			JitterFactor:    0.1,
		}
	}

	return &KafkaEventPublisher{
		producer:    p,
		topic:       topic,
		serviceName: serviceName,
		retry:       retry.New(retryCfg),
	}
}

// PublishReservationConfirmed publishes a reservation confirmed event
func (p *KafkaEventPublisher) PublishReservationConfirmed(ctx context.Context, r *domain.Reservation) error {
	return p.publishEvent(ctx, domain.EventReservationConfirmed, r.RestaurantID, r)
}

// PublishReservationCancelled publishes a reservation cancelled event
func (p *KafkaEventPublisher) PublishReservationCancelled(ctx context.Context, r *domain.Reservation) error {
	return p.publishEvent(ctx, domain.EventReservationCancelled, r.RestaurantID, r)
}

// PublishReviewAdded publishes a review added event
func (p *KafkaEventPublisher) PublishReviewAdded(ctx context.Context, r *domain.Review) error {
	return p.publishEvent(ctx, domain.EventReviewAdded, r.RestaurantID, r)
}

// PublishCapacityResized publishes an owner capacity change
func (p *KafkaEventPublisher) PublishCapacityResized(ctx context.Context, change *CapacityChange) error {
	return p.publishEvent(ctx, domain.EventCapacityResized, change.Key.RestaurantID, change)
}

// Close closes the event publisher
func (p *KafkaEventPublisher) Close() error {
	if p.producer != nil {
		p.producer.Close()
	}
	return nil
}

// publishEvent publishes an event to Kafka, retrying transient failures
func (p *KafkaEventPublisher) publishEvent(ctx context.Context, eventType domain.EventType, restaurantID string, payload interface{}) error {
	event := &domain.Event{
		ID:           uuid.New().String(),
		Type:         eventType,
		RestaurantID: restaurantID,
		OccurredAt:   time.Now(),
		Payload:      payload,
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	headers := map[string]string{
		"event_type":   string(eventType),
		"event_id":     event.ID,
		"source":       p.serviceName,
		"content_type": "application/json",
	}

	msg := &kafka.Message{
		Topic:     p.topic,
		Key:       []byte(event.Key()),
		Value:     value,
		Headers:   headers,
		Timestamp: event.OccurredAt,
	}

	result := p.retry.Do(ctx, func(ctx context.Context) error {
		return p.producer.Produce(ctx, msg)
	}, nil)
	if result.Err != nil {
		return fmt.Errorf("failed to publish %s event after %d attempts: %w (last error: %v)", eventType, result.Attempts, result.Err, result.LastError)
	}

	return nil
}

// NoOpEventPublisher is a no-op implementation of EventPublisher for testing
type NoOpEventPublisher struct{}

// NewNoOpEventPublisher creates a new no-op event publisher
func NewNoOpEventPublisher() *NoOpEventPublisher {
	return &NoOpEventPublisher{}
}

// PublishReservationConfirmed is a no-op
func (p *NoOpEventPublisher) PublishReservationConfirmed(ctx context.Context, r *domain.Reservation) error {
	return nil
}

// PublishReservationCancelled is a no-op
func (p *NoOpEventPublisher) PublishReservationCancelled(ctx context.Context, r *domain.Reservation) error {
	return nil
}

// PublishReviewAdded is a no-op
func (p *NoOpEventPublisher) PublishReviewAdded(ctx context.Context, r *domain.Review) error {
	return nil
}

// PublishCapacityResized is a no-op
func (p *NoOpEventPublisher) PublishCapacityResized(ctx context.Context, change *CapacityChange) error {
	return nil
}

// Close is a no-op
func (p *NoOpEventPublisher) Close() error {
	return nil
}
