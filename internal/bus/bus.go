// Package bus is the general-purpose inter-service channel: Redis
// pub/sub for fire-and-forget broadcast (game state, signals,
// opportunities, kill switch) plus a request/response helper built on
// top of it for the team-matcher and discovery RPCs. Since this
// engine's services are separate processes, "publish" has to cross
// the network, so this wraps Redis pub/sub with the same
// reconnect-with-backoff discipline a resilient subscriber needs.
package bus

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/charleschow/arb-engine/internal/alerts"
	"github.com/charleschow/arb-engine/internal/busproto"
	"github.com/charleschow/arb-engine/internal/telemetry"
)

// Bus wraps a redis client with the publish/subscribe/request helpers
// every service needs.
type Bus struct {
	rdb      *redis.Client
	breaker  *gobreaker.CircuitBreaker
	notifier *alerts.Notifier

	subBreaker *gobreaker.CircuitBreaker
	baseDelay  time.Duration
	maxDelay   time.Duration
	jitterPct  float64
}

// New wires a Redis client plus two independent circuit breakers: one
// around Publish (unchanged, trips after 5 consecutive failures within
// its own 30s window), and one around Subscribe's reconnect loop that
// trips after maxFailures consecutive connect failures and fires
// alerts.BusConnectivityIssue, since a subscriber stuck reconnecting
// forever is as much an operator-visible outage as a failed publish.
func New(addr, password string, db int, notifier *alerts.Notifier, maxFailures int, baseDelay, maxDelay time.Duration, jitterPct float64) *Bus {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "bus-publish",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			telemetry.Metrics.CircuitState.WithLabelValues(name).Set(float64(to))
			telemetry.Warnf("bus: circuit %s %s -> %s", name, from, to)
		},
	})

	subCB := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "bus-subscribe",
		MaxRequests: 1,
		Interval:    0,
		Timeout:     maxDelay,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(maxFailures)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			telemetry.Metrics.CircuitState.WithLabelValues(name).Set(float64(to))
			telemetry.Warnf("bus: circuit %s %s -> %s", name, from, to)
			if to == gobreaker.StateOpen && notifier != nil {
				notifier.Send(alerts.BusConnectivityIssue, fmt.Sprintf("subscribe reconnect loop tripped after %d consecutive failures", maxFailures), nil)
			}
		},
	})

	return &Bus{
		rdb:        rdb,
		breaker:    cb,
		notifier:   notifier,
		subBreaker: subCB,
		baseDelay:  baseDelay,
		maxDelay:   maxDelay,
		jitterPct:  jitterPct,
	}
}

// Publish wraps payload in a busproto envelope and publishes it to
// channel, through a circuit breaker so a Redis outage fails fast
// instead of piling up blocked publishers.
func (b *Bus) Publish(ctx context.Context, channel, msgType, id string, sequence uint64, payload any) error {
	data, err := busproto.Marshal(msgType, id, sequence, payload)
	if err != nil {
		return err
	}
	_, err = b.breaker.Execute(func() (any, error) {
		return nil, b.rdb.Publish(ctx, channel, data).Err()
	})
	if err != nil {
		return fmt.Errorf("bus: publish %s: %w", channel, err)
	}
	telemetry.Metrics.EventsProcessed.WithLabelValues(channel).Inc()
	return nil
}

// Handler processes one decoded envelope from a subscription.
type Handler func(env busproto.Envelope, raw []byte)

// Subscribe runs handler for every message on channel until ctx is
// cancelled, reconnecting with jittered exponential backoff on any
// Redis error, following a connect/retry split.
func (b *Bus) Subscribe(ctx context.Context, channel string, handler Handler) {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}

		connStart := time.Now()
		_, err := b.subBreaker.Execute(func() (any, error) {
			return nil, b.subscribeOnce(ctx, channel, handler)
		})
		if ctx.Err() != nil {
			return
		}

		if time.Since(connStart) > time.Minute {
			attempt = 0
		}
		attempt++
		telemetry.Metrics.ReconnectAttempts.WithLabelValues(channel).Inc()

		backoff := b.jitteredBackoff(attempt)
		if errors.Is(err, gobreaker.ErrOpenState) {
			backoff = b.maxDelay
		}
		if err != nil {
			telemetry.Warnf("bus: subscription to %s lost (attempt %d): %v — retrying in %s", channel, attempt, err, backoff)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
	}
}

func (b *Bus) subscribeOnce(ctx context.Context, channel string, handler Handler) error {
	sub := b.rdb.Subscribe(ctx, channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", channel, err)
	}
	telemetry.Infof("bus: subscribed to %s", channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("subscription channel %s closed", channel)
			}
			env, err := busproto.Unmarshal([]byte(msg.Payload), nil)
			if err != nil {
				telemetry.Warnf("bus: malformed envelope on %s: %v", channel, err)
				continue
			}
			handler(env, []byte(msg.Payload))
		}
	}
}

// Request subscribes to replyChannel, publishes a request envelope
// tagged with requestID on reqChannel, then waits up to timeout for
// exactly one reply on replyChannel. Used by the team-matcher and
// discovery RPCs, which are request/response despite living on an
// otherwise broadcast-only bus.
func (b *Bus) Request(ctx context.Context, reqChannel string, replyChannel string, msgType, requestID string, payload any, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sub := b.rdb.Subscribe(ctx, replyChannel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return nil, fmt.Errorf("bus: subscribe reply channel: %w", err)
	}

	if err := b.Publish(ctx, reqChannel, msgType, requestID, 0, payload); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("bus: request %s timed out: %w", msgType, ctx.Err())
	case msg := <-sub.Channel():
		return []byte(msg.Payload), nil
	}
}

func (b *Bus) Close() error { return b.rdb.Close() }

func (b *Bus) jitteredBackoff(attempt int) time.Duration {
	capped := min(attempt-1, 6)
	backoff := time.Duration(float64(b.baseDelay) * math.Pow(2, float64(capped)))
	if backoff > b.maxDelay {
		backoff = b.maxDelay
	}
	span := int64(float64(backoff) * b.jitterPct)
	if span <= 0 {
		return backoff
	}
	return backoff + time.Duration(rand.Int63n(span))
}
