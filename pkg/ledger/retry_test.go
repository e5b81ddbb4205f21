package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/clmmcore/engine/pkg/dexerrors"
)

func TestWithRetrySucceedsImmediately(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), 3, time.Millisecond, func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestWithRetryRetriesOnlyConflicts(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), 3, time.Millisecond, func(context.Context) error {
		calls++
		if calls < 3 {
			return dexerrors.NewConflict("optimistic lock lost", nil)
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestWithRetryStopsImmediatelyOnNonConflict(t *testing.T) {
	calls := 0
	sentinel := dexerrors.NewValidation("bad input", nil)
	err := WithRetry(context.Background(), 3, time.Millisecond, func(context.Context) error {
		calls++
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)
	require.Equal(t, 1, calls)
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), 3, time.Millisecond, func(context.Context) error {
		calls++
		return dexerrors.NewConflict("optimistic lock lost", nil)
	})
	require.Error(t, err)
	require.Equal(t, 3, calls)
	require.True(t, dexerrors.Is(err, dexerrors.Conflict), "exhausted-attempts error must wrap the last conflict")
}

func TestWithRetryRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := WithRetry(ctx, 3, time.Millisecond, func(context.Context) error {
		calls++
		return nil
	})
	require.Error(t, err)
	require.Equal(t, 0, calls)
}
