package lakesync

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryWithBackoff(t *testing.T) {
	persistent := errors.New("persistent error")

	tests := []struct {
		name        string
		maxAttempts int
		failures    int
		wantErr     error
		wantCalls   int
	}{
		{"first try", 3, 0, nil, 1},
		{"eventual success", 5, 2, nil, 3},
		{"all attempts fail", 3, 100, persistent, 3},
		{"zero attempts", 0, 0, ErrInvalidMaxAttempts, 0},
		{"negative attempts", -1, 0, ErrInvalidMaxAttempts, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := retryWithBackoff(context.Background(), slog.Default(), tt.maxAttempts, time.Millisecond, func() error {
				calls++
				if calls <= tt.failures {
					return persistent
				}
				return nil
			})
			if tt.wantErr == nil {
				require.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Equal(t, tt.wantCalls, calls)
		})
	}
}

func TestRetryWithBackoffContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := retryWithBackoff(ctx, slog.Default(), 10, 10*time.Millisecond, func() error {
		calls++
		if calls == 2 {
			cancel()
		}
		return errors.New("error")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, calls)
}

func TestRetryWithBackoffDelaysGrow(t *testing.T) {
	calls := 0
	var delays []time.Duration
	last := time.Now()

	err := retryWithBackoff(context.Background(), slog.Default(), 5, 10*time.Millisecond, func() error {
		calls++
		if calls > 1 {
			delays = append(delays, time.Since(last))
		}
		last = time.Now()
		if calls < 4 {
			return errors.New("error")
		}
		return nil
	})
	require.NoError(t, err)
	require.Len(t, delays, 3)
	assert.Greater(t, delays[1], delays[0])
	assert.Greater(t, delays[2], delays[1])
}
