// Package dbpool wraps *sqlx.DB in a bounded-resource-plus-policy
// shape: a small struct holding the raw resource plus the knobs that
// govern how callers may use it, exposed through a handful of named
// presets instead of scattering tuning constants at call sites.
package dbpool

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/charleschow/arb-engine/internal/alerts"
	"github.com/charleschow/arb-engine/internal/errs"
	"github.com/charleschow/arb-engine/internal/telemetry"
)

// Bounds configures a pool's connection limits.
type Bounds struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// HighThroughput favors many concurrent short queries (discovery,
// orchestrator's audit writes).
var HighThroughput = Bounds{
	MaxOpenConns:    50,
	MaxIdleConns:    20,
	ConnMaxLifetime: 30 * time.Minute,
	ConnMaxIdleTime: 5 * time.Minute,
}

// LowLatency favors a small hot pool of long-lived connections
// (execution service, where a queued connection acquisition would
// blow the reconciliation deadline).
var LowLatency = Bounds{
	MaxOpenConns:    8,
	MaxIdleConns:    8,
	ConnMaxLifetime: 0, // never recycle
	ConnMaxIdleTime: 0,
}

// Pool is a bounded, monitored database handle.
type Pool struct {
	DB *sqlx.DB
}

// Open connects to dsn with sqlx/lib-pq and applies bounds.
func Open(dsn string, bounds Bounds) (*Pool, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, errs.Wrap(errs.External, fmt.Errorf("dbpool: connect: %w", err))
	}

	db.SetMaxOpenConns(bounds.MaxOpenConns)
	db.SetMaxIdleConns(bounds.MaxIdleConns)
	db.SetConnMaxLifetime(bounds.ConnMaxLifetime)
	db.SetConnMaxIdleTime(bounds.ConnMaxIdleTime)

	return &Pool{DB: db}, nil
}

// HealthMonitor runs SELECT 1 every interval until ctx is cancelled,
// logging a warning on each failure and firing
// alerts.DatabaseConnectivityIssue once failureThreshold consecutive
// checks have failed. A single blip logs but doesn't page; a sustained
// outage does.
func (p *Pool) HealthMonitor(ctx context.Context, notifier *alerts.Notifier, interval time.Duration, failureThreshold int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	consecutiveFailures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			qctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			_, err := p.DB.ExecContext(qctx, "SELECT 1")
			cancel()
			if err == nil {
				consecutiveFailures = 0
				continue
			}
			consecutiveFailures++
			telemetry.Warnf("dbpool: health check failed (%d consecutive): %v", consecutiveFailures, err)
			if consecutiveFailures == failureThreshold && notifier != nil {
				notifier.Send(alerts.DatabaseConnectivityIssue, fmt.Sprintf("database health check failed %d consecutive times: %v", consecutiveFailures, err), nil)
			}
		}
	}
}

// Retry runs fn up to attempts times, retrying only when the error
// classifies as errs.Transient — a validation or fatal error is never
// worth retrying. The wait after the first transient failure is
// backoff and doubles after each further one (100ms gives
// 100/200/400ms).
func Retry(ctx context.Context, attempts int, backoff time.Duration, fn func(ctx context.Context) error) error {
	var lastErr error
	for i := 0; i < attempts; i++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !errs.Is(lastErr, errs.Transient) {
			return lastErr
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return fmt.Errorf("dbpool: exhausted %d retries: %w", attempts, lastErr)
}

// transientPQCodes are the Postgres error codes worth a retry:
// 40P01 (deadlock_detected) and 53300 (too_many_connections) are both
// conditions that clear on their own shortly after.
var transientPQCodes = map[string]bool{
	"40P01": true,
	"53300": true,
}

// transientSubstrings catches the network-layer failures that never
// make it into a *pq.Error — the connection drops before Postgres gets
// a chance to say anything.
var transientSubstrings = []string{
	"connection reset",
	"broken pipe",
	"i/o timeout",
}

// Classify maps a raw database/sql error to an errs.Kind so callers
// can decide retryability without knowing pq's error shapes directly.
// Only a narrow, named set of errors is Transient; anything else
// propagates on first occurrence rather than being retried blind.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows {
		return errs.Wrap(errs.Validation, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && transientPQCodes[string(pqErr.Code)] {
		return errs.Wrap(errs.Transient, err)
	}

	msg := err.Error()
	for _, substr := range transientSubstrings {
		if strings.Contains(msg, substr) {
			return errs.Wrap(errs.Transient, err)
		}
	}

	return errs.Wrap(errs.External, err)
}

func (p *Pool) Close() error { return p.DB.Close() }
