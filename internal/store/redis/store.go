package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"

	"chronoutil/pkg/chrono"
	"chronoutil/pkg/conversion"
)

const (
	// ClockChannel carries every broadcast clock sample.
	ClockChannel = "pub:clock"

	instantPrefix      = "instant:"
	defaultMaxFailures = 5
)

// ErrNotFound is returned by GetInstant for unknown keys.
var ErrNotFound = errors.New("redis: instant not found")

// Config configures the Redis store.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int

	// Circuit breaker tuning. Zero values select 5 failures and 10s.
	MaxFailures  int
	ResetTimeout chrono.TimeSpan
	Clock        chrono.Clock

	// Optional instrumentation.
	WriteDur     prometheus.Observer
	BreakerState prometheus.Gauge
	BreakerTrips prometheus.Counter
}

// ClockMessage is the payload published on ClockChannel.
type ClockMessage struct {
	Seq   uint64 `json:"seq"`
	Ticks uint64 `json:"ticks"`
	Text  string `json:"text"`
}

// Store caches named instants and publishes clock samples. Every command
// goes through a CircuitBreaker so that a dead Redis costs one error per
// call instead of a dial timeout.
type Store struct {
	client   *goredis.Client
	breaker  *CircuitBreaker
	writeDur prometheus.Observer
}

// Client returns the underlying Redis client for health checks.
func (s *Store) Client() *goredis.Client { return s.client }

// Breaker returns the circuit breaker guarding the client.
func (s *Store) Breaker() *CircuitBreaker { return s.breaker }

// New connects to Redis and pings the server.
func New(cfg Config) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return NewWithClient(client, cfg), nil
}

// NewWithClient wraps an existing client without pinging it.
func NewWithClient(client *goredis.Client, cfg Config) *Store {
	maxFailures := cfg.MaxFailures
	if maxFailures <= 0 {
		maxFailures = defaultMaxFailures
	}
	resetTimeout := cfg.ResetTimeout
	if resetTimeout <= 0 {
		resetTimeout = 10 * chrono.Second
	}

	breaker := NewCircuitBreaker(maxFailures, resetTimeout, cfg.Clock)
	breaker.OnStateChange = func(from, to State) {
		log.Printf("[redis] circuit breaker %s -> %s", from, to)
		if cfg.BreakerState != nil {
			cfg.BreakerState.Set(float64(to))
		}
		if to == StateOpen && cfg.BreakerTrips != nil {
			cfg.BreakerTrips.Inc()
		}
	}
	return &Store{client: client, breaker: breaker, writeDur: cfg.WriteDur}
}

// SetInstant stores dt under key. A zero ttl keeps the key forever.
func (s *Store) SetInstant(ctx context.Context, key string, dt chrono.DateTime, ttl chrono.TimeSpan) error {
	return s.write(func() error {
		return s.client.Set(ctx, instantPrefix+key, dt.Ticks(), ttl.Duration()).Err()
	})
}

// GetInstant loads the instant stored under key.
func (s *Store) GetInstant(ctx context.Context, key string) (chrono.DateTime, error) {
	var raw string
	err := s.breaker.Execute(func() error {
		v, err := s.client.Get(ctx, instantPrefix+key).Result()
		if errors.Is(err, goredis.Nil) {
			return nil
		}
		raw = v
		return err
	})
	if err != nil {
		return 0, err
	}
	if raw == "" {
		return 0, ErrNotFound
	}
	ticks, err := conversion.StringToNumber[uint64](raw, 10)
	if err != nil {
		return 0, fmt.Errorf("redis instant %s: %w", key, err)
	}
	return chrono.DateTime(ticks), nil
}

// PublishClock publishes one clock sample on ClockChannel.
func (s *Store) PublishClock(ctx context.Context, seq uint64, dt chrono.DateTime, text string) error {
	payload, err := json.Marshal(ClockMessage{Seq: seq, Ticks: dt.Ticks(), Text: text})
	if err != nil {
		return err
	}
	return s.write(func() error {
		return s.client.Publish(ctx, ClockChannel, payload).Err()
	})
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) write(fn func() error) error {
	start := time.Now()
	err := s.breaker.Execute(fn)
	if err == nil && s.writeDur != nil {
		s.writeDur.Observe(time.Since(start).Seconds())
	}
	return err
}
