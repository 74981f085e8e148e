package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"chronoutil/pkg/chrono"
)

// deadClient points at a port nothing listens on.
func deadClient() *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestStore_BreakerTripsOnDeadServer(t *testing.T) {
	trips := prometheus.NewCounter(prometheus.CounterOpts{Name: "trips"})
	state := prometheus.NewGauge(prometheus.GaugeOpts{Name: "state"})
	clock := chrono.NewManualClock(chrono.FromDate(2024, 1, 1))

	s := NewWithClient(deadClient(), Config{
		MaxFailures:  2,
		ResetTimeout: chrono.Second,
		Clock:        clock,
		BreakerTrips: trips,
		BreakerState: state,
	})
	defer s.Close()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := s.SetInstant(ctx, "k", chrono.FromDate(2024, 1, 1), 0); err == nil || errors.Is(err, ErrCircuitOpen) {
			t.Fatalf("attempt %d: expected dial error, got %v", i, err)
		}
	}
	if err := s.PublishClock(ctx, 1, chrono.FromDate(2024, 1, 1), "x"); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if _, err := s.GetInstant(ctx, "k"); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen on read, got %v", err)
	}
	if got := testutil.ToFloat64(trips); got != 1 {
		t.Errorf("trips = %v, want 1", got)
	}
	if got := testutil.ToFloat64(state); got != float64(StateOpen) {
		t.Errorf("state gauge = %v, want %v", got, float64(StateOpen))
	}

	clock.Advance(2 * chrono.Second)
	if err := s.SetInstant(ctx, "k", chrono.FromDate(2024, 1, 1), 0); err == nil || errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("half-open probe should reach the server, got %v", err)
	}
	if s.Breaker().CurrentState() != StateOpen {
		t.Errorf("failed probe should reopen, got %v", s.Breaker().CurrentState())
	}
}
