package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alem-hub/lms-enrollment/internal/domain/shared"
	"github.com/alem-hub/lms-enrollment/pkg/circuitbreaker"
	"github.com/alem-hub/lms-enrollment/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// AUDIT LOG
// ══════════════════════════════════════════════════════════════════════════════

// AuditLogHandler returns a handler that writes every event to the log.
func AuditLogHandler(log *logger.Logger) shared.EventHandler {
	log = log.Named("audit")
	return func(event shared.Event) error {
		fields := []logger.Field{
			logger.String("event_type", string(event.EventType())),
			logger.String("aggregate_id", event.AggregateID()),
			logger.Time("occurred_at", event.OccurredAt()),
		}
		for k, v := range event.Payload() {
			fields = append(fields, logger.Any(k, v))
		}
		log.Info("domain event", fields...)
		return nil
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// REDIS FAN-OUT
// ══════════════════════════════════════════════════════════════════════════════

// DefaultEventChannel is the Redis channel events are forwarded to.
const DefaultEventChannel = "lms:events"

// ChannelPublisher is the subset of the go-redis client used for fan-out.
type ChannelPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Envelope is the wire form of a forwarded event.
type Envelope struct {
	InstanceID  string                 `json:"instance_id"`
	EventType   shared.EventType       `json:"event_type"`
	AggregateID string                 `json:"aggregate_id"`
	OccurredAt  time.Time              `json:"occurred_at"`
	Payload     map[string]interface{} `json:"payload"`
}

// RedisForwarder publishes events to a Redis channel so that collaborators
// outside this process (reporting, notifications) can consume them.
type RedisForwarder struct {
	client     ChannelPublisher
	channel    string
	instanceID string
	timeout    time.Duration
	breaker    *circuitbreaker.CircuitBreaker
}

// NewRedisForwarder creates a RedisForwarder. An empty channel uses DefaultEventChannel.
func NewRedisForwarder(client ChannelPublisher, channel, instanceID string) *RedisForwarder {
	if channel == "" {
		channel = DefaultEventChannel
	}
	return &RedisForwarder{
		client:     client,
		channel:    channel,
		instanceID: instanceID,
		timeout:    2 * time.Second,
	}
}

// WithBreaker routes publishes through cb. While cb is open events are
// dropped with circuitbreaker.ErrCircuitOpen instead of waiting on Redis.
func (f *RedisForwarder) WithBreaker(cb *circuitbreaker.CircuitBreaker) *RedisForwarder {
	f.breaker = cb
	return f
}

// Handle implements shared.EventHandler.
func (f *RedisForwarder) Handle(event shared.Event) error {
	data, err := json.Marshal(Envelope{
		InstanceID:  f.instanceID,
		EventType:   event.EventType(),
		AggregateID: event.AggregateID(),
		OccurredAt:  event.OccurredAt(),
		Payload:     event.Payload(),
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()

	publish := func(ctx context.Context) error {
		return f.client.Publish(ctx, f.channel, data).Err()
	}
	if f.breaker != nil {
		err = f.breaker.Execute(ctx, publish)
	} else {
		err = publish(ctx)
	}
	if err != nil {
		return fmt.Errorf("publish to %s: %w", f.channel, err)
	}
	return nil
}
