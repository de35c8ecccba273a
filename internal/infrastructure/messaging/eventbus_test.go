package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/lms-enrollment/internal/domain/shared"
	"github.com/alem-hub/lms-enrollment/pkg/circuitbreaker"
	"github.com/alem-hub/lms-enrollment/pkg/logger"
)

func syncBus() *InMemoryEventBus {
	return NewInMemoryEventBus(InMemoryEventBusConfig{EnableMetrics: true})
}

func TestInMemoryEventBus_RoutesByType(t *testing.T) {
	bus := syncBus()

	var enrolled, all int
	require.NoError(t, bus.Subscribe(shared.EventStudentEnrolled, func(shared.Event) error {
		enrolled++
		return nil
	}))
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		all++
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewStudentEnrolledEvent(1, 2, 3, 4)))
	require.NoError(t, bus.Publish(shared.NewStudentUnenrolledEvent(1, 2, 3)))

	assert.Equal(t, 1, enrolled)
	assert.Equal(t, 2, all)

	snap := bus.Metrics().Snapshot()
	assert.Equal(t, int64(2), snap.TotalPublished)
	assert.Equal(t, int64(3), snap.TotalHandlerExecs)
}

func TestInMemoryEventBus_HandlerFailuresAreContained(t *testing.T) {
	bus := syncBus()

	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { return errors.New("boom") }))
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { panic("bad handler") }))

	var reached bool
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		reached = true
		return nil
	}))

	assert.NoError(t, bus.Publish(shared.NewStudentEnrolledEvent(1, 2, 3, 0)))
	assert.True(t, reached)

	snap := bus.Metrics().Snapshot()
	assert.Equal(t, int64(2), snap.HandlerFailures)
}

func TestInMemoryEventBus_AsyncCloseDrains(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: true, WorkerPoolSize: 2})

	var count atomic.Int32
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		count.Add(1)
		return nil
	}))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_ = bus.Publish(shared.NewStudentEnrolledEvent(id, 1, 1, 0))
		}(int64(i))
	}
	wg.Wait()

	require.NoError(t, bus.Close())
	assert.Equal(t, int32(20), count.Load())

	assert.ErrorIs(t, bus.Publish(shared.NewStudentEnrolledEvent(99, 1, 1, 0)), ErrEventBusClosed)
	assert.ErrorIs(t, bus.SubscribeAll(func(shared.Event) error { return nil }), ErrEventBusClosed)
	assert.NoError(t, bus.Close())
}

func TestInMemoryEventBus_RejectsNil(t *testing.T) {
	bus := syncBus()
	assert.Error(t, bus.Publish(nil))
	assert.Error(t, bus.Subscribe(shared.EventStudentEnrolled, nil))
	assert.Error(t, bus.SubscribeAll(nil))
}

type fakeChannel struct {
	channel string
	payload []byte
	err     error
	calls   int
}

func (f *fakeChannel) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	f.calls++
	f.channel = channel
	f.payload, _ = message.([]byte)
	return redis.NewIntResult(1, f.err)
}

func TestRedisForwarder_Handle(t *testing.T) {
	ch := &fakeChannel{}
	fwd := NewRedisForwarder(ch, "", "node-1")

	event := shared.NewModuleStatusChangedEvent(7, 1, 101, "NOT_STARTED", "IN_PROGRESS")
	require.NoError(t, fwd.Handle(event))
	assert.Equal(t, DefaultEventChannel, ch.channel)

	var env Envelope
	require.NoError(t, json.Unmarshal(ch.payload, &env))
	assert.Equal(t, "node-1", env.InstanceID)
	assert.Equal(t, shared.EventModuleStatusChanged, env.EventType)
	assert.Equal(t, "7", env.AggregateID)
	assert.Equal(t, "IN_PROGRESS", env.Payload["new_status"])

	ch.err = errors.New("redis down")
	assert.Error(t, fwd.Handle(event))
}

func TestRedisForwarder_BreakerStopsPublishing(t *testing.T) {
	ch := &fakeChannel{err: errors.New("redis down")}
	cb := circuitbreaker.New("events", circuitbreaker.WithFailureThreshold(2), circuitbreaker.WithCoolDown(time.Hour))
	fwd := NewRedisForwarder(ch, "lms:test", "node-1").WithBreaker(cb)

	event := shared.NewStudentUnenrolledEvent(1, 2, 3)
	for i := 0; i < 4; i++ {
		assert.Error(t, fwd.Handle(event))
	}

	assert.Equal(t, 2, ch.calls)
	assert.Equal(t, circuitbreaker.StateOpen, cb.State())
	assert.ErrorIs(t, fwd.Handle(event), circuitbreaker.ErrCircuitOpen)
}

func TestAuditLogHandler(t *testing.T) {
	h := AuditLogHandler(logger.Nop())
	assert.NoError(t, h(shared.NewStudentUnenrolledEvent(1, 2, 3)))
}
