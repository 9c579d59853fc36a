package dbpool

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/charleschow/arb-engine/internal/errs"
)

func TestRetryStopsOnNonTransient(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Retry(context.Background(), 5, time.Millisecond, func(ctx context.Context) error {
		calls++
		return errs.New(errs.Validation, "bad input")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls, "a validation error must not be retried")
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Retry(context.Background(), 5, time.Millisecond, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errs.New(errs.Transient, "connection reset")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryExhausted(t *testing.T) {
	t.Parallel()

	err := Retry(context.Background(), 3, time.Millisecond, func(ctx context.Context) error {
		return errs.New(errs.Transient, "down")
	})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "exhausted 3 retries")
}

func TestClassifyNilIsNil(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Classify(nil))
}

func TestClassifyPropagatesUnknownErrors(t *testing.T) {
	t.Parallel()
	err := Classify(errors.New("connection refused"))
	assert.NotEqual(t, errs.Transient, errs.KindOf(err), "an unrecognized error must not be retried")
	assert.Equal(t, errs.External, errs.KindOf(err))
}

func TestClassifyMatchesKnownTransientStrings(t *testing.T) {
	t.Parallel()
	for _, msg := range []string{"connection reset by peer", "write: broken pipe", "read tcp: i/o timeout"} {
		err := Classify(errors.New(msg))
		assert.Equal(t, errs.Transient, errs.KindOf(err), "message %q should classify as transient", msg)
	}
}

func TestClassifyMatchesTransientPostgresCodes(t *testing.T) {
	t.Parallel()
	for _, code := range []pq.ErrorCode{"40P01", "53300"} {
		err := Classify(&pq.Error{Code: code, Message: "boom"})
		assert.Equal(t, errs.Transient, errs.KindOf(err), "pq code %s should classify as transient", code)
	}
}

func TestClassifyPropagatesOtherPostgresCodes(t *testing.T) {
	t.Parallel()
	err := Classify(&pq.Error{Code: "23505", Message: "duplicate key"})
	assert.NotEqual(t, errs.Transient, errs.KindOf(err))
}
