package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestCompositeHealthChecker_NoChecks(t *testing.T) {
	status := NewCompositeHealthChecker("1.0.0").Check(context.Background())
	assert.True(t, status.Healthy)
	assert.Equal(t, "1.0.0", status.Version)
	assert.Equal(t, "No health checks registered", status.Message)
}

func TestCompositeHealthChecker_AggregatesFailures(t *testing.T) {
	hc := NewCompositeHealthChecker("test")
	hc.AddCheck("postgres", NewPingCheck(pingerFunc(func(context.Context) error { return nil })))
	hc.AddCheck("redis", func(context.Context) error { return errors.New("connection refused") })
	hc.AddCheck("broker", func(context.Context) error { return errors.New("down") })

	status := hc.Check(context.Background())
	require.Len(t, status.Checks, 3)
	assert.False(t, status.Healthy)
	assert.True(t, status.Checks["postgres"].Healthy)
	assert.Equal(t, "connection refused", status.Checks["redis"].Message)
	assert.Equal(t, "Some checks failed: broker, redis", status.Message)
}

func TestCompositeHealthChecker_TimesOutSlowChecks(t *testing.T) {
	hc := NewCompositeHealthChecker("test")
	hc.SetTimeout(20 * time.Millisecond)
	hc.AddCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	status := hc.Check(context.Background())
	assert.False(t, status.Healthy)
	assert.Equal(t, context.DeadlineExceeded.Error(), status.Checks["slow"].Message)
}
