package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/clmmcore/engine/pkg/dexerrors"
)

// WithRetry bounds the client-side retry loop around a ledger transaction
// that loses an MVCC race: two swaps that touch the same pool serialize,
// one commits and the other is rejected by the ledger and retried by the
// client. The wrapped call here is a whole transaction attempt, and what
// is bounded is the number of conflict-retries rather than a request rate.
//
// Only Conflict-kind errors are retried — Validation/NotFound/Unauthorized/
// Inconsistent failures are never transient and are returned immediately.
func WithRetry(ctx context.Context, attempts int, backoff time.Duration, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !dexerrors.Is(lastErr, dexerrors.Conflict) {
			return lastErr
		}
		if i < attempts-1 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("exhausted %d attempts: %w", attempts, lastErr)
}
