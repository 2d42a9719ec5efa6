package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
)

func TestDoSucceedsFirstTry(t *testing.T) {
	mock := clock.NewMock()
	p := DefaultPolicy(mock)
	deadline := NewDeadline(mock, time.Minute)

	calls := 0
	err := Do(context.Background(), p, "probe", deadline, nil, nil, func(ctx context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	mock := clock.NewMock()
	p := DefaultPolicy(mock)
	p.Jitter = false
	deadline := NewDeadline(mock, time.Minute)

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- Do(context.Background(), p, "probe", deadline, nil, nil, func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("not ready")
			}
			return nil
		})
	}()

	// Advance the mock clock past each backoff sleep so the goroutine can
	// make progress deterministically.
	for i := 0; i < 5; i++ {
		mock.Add(p.MaxDelay)
	}

	err := <-done
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestDoGivesUpAfterMaxAttempts(t *testing.T) {
	mock := clock.NewMock()
	p := DefaultPolicy(mock)
	p.MaxAttempts = 3
	p.Jitter = false
	deadline := NewDeadline(mock, time.Minute)

	var events []Event
	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- Do(context.Background(), p, "probe", deadline, nil, func(e Event) { events = append(events, e) }, func(ctx context.Context) error {
			calls++
			return errors.New("still failing")
		})
	}()

	for i := 0; i < 5; i++ {
		mock.Add(p.MaxDelay)
	}

	err := <-done
	require.Error(t, err)
	require.Equal(t, 3, calls)

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	require.Equal(t, EventGaveUp, last.Kind)
}

func TestDoRespectsNonRetryableClassification(t *testing.T) {
	mock := clock.NewMock()
	p := DefaultPolicy(mock)
	deadline := NewDeadline(mock, time.Minute)

	calls := 0
	classify := func(err error) (bool, string) { return false, "FATAL" }
	err := Do(context.Background(), p, "probe", deadline, classify, nil, func(ctx context.Context) error {
		calls++
		return errors.New("fatal")
	})
	require.Error(t, err)
	require.Equal(t, 1, calls)
}

func TestDoStopsWhenContextCanceled(t *testing.T) {
	mock := clock.NewMock()
	p := DefaultPolicy(mock)
	p.Jitter = false
	deadline := NewDeadline(mock, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Do(ctx, p, "probe", deadline, nil, nil, func(ctx context.Context) error {
			return errors.New("not ready")
		})
	}()

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		mock.Add(p.MaxDelay)
		err := <-done
		require.Error(t, err)
	}
}

func TestDeadlineRemainingAndExpiry(t *testing.T) {
	mock := clock.NewMock()
	d := NewDeadline(mock, 5*time.Second)
	require.False(t, d.IsExpired())
	require.Equal(t, int64(5000), d.RemainingMs())

	mock.Add(6 * time.Second)
	require.True(t, d.IsExpired())
	require.Equal(t, int64(0), d.RemainingMs())
}
