package adapters

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rowguard-labs/rowguard/internal/guard"
)

func TestExecuteWithRetry_SucceedsFirstTry(t *testing.T) {
	result := ExecuteWithRetry(context.Background(), DefaultRetryConfig(), func() error {
		return nil
	})
	if !result.Success || result.Attempts != 1 {
		t.Errorf("unexpected result: %+v", result)
	}
}

// TestExecuteWithRetry_StopsOnNonRetryable proves errors are not retried by
// default: a semantic failure must surface immediately.
func TestExecuteWithRetry_StopsOnNonRetryable(t *testing.T) {
	calls := 0
	failure := errors.New("syntax error")
	result := ExecuteWithRetry(context.Background(), DefaultRetryConfig(), func() error {
		calls++
		return failure
	})
	if result.Success {
		t.Fatal("expected failure")
	}
	if calls != 1 {
		t.Errorf("expected exactly one attempt, got %d", calls)
	}
	if !errors.Is(result.LastError, failure) {
		t.Errorf("expected original error, got %v", result.LastError)
	}
}

func TestExecuteWithRetry_RespectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	result := ExecuteWithRetry(ctx, DefaultRetryConfig(), func() error {
		called = true
		return nil
	})
	if result.Success || called {
		t.Error("expected no attempt on a cancelled context")
	}
	if !errors.Is(result.LastError, context.Canceled) {
		t.Errorf("expected context error, got %v", result.LastError)
	}
}

// TestIsRetryable_SentinelAbortNeverRetries: re-running a tripped statement
// would re-read the canary and re-trip; the abort must stand.
func TestIsRetryable_SentinelAbortNeverRetries(t *testing.T) {
	abort := guard.NewRule(16389, 2, "SENTINEL", false).Abort()
	if IsRetryable(abort) {
		t.Fatal("a sentinel abort must never be retryable")
	}
	if IsRetryable(nil) {
		t.Error("nil is not retryable")
	}
	if IsRetryable(context.DeadlineExceeded) {
		t.Error("deadline errors are not retryable")
	}
}

func TestRetryResult_String(t *testing.T) {
	ok := RetryResult{Success: true, Attempts: 1}
	if ok.String() != "succeeded on first attempt" {
		t.Errorf("got %q", ok.String())
	}
	fail := RetryResult{Attempts: 3, LastError: errors.New("down")}
	if fail.String() != "failed after 3 attempts: down" {
		t.Errorf("got %q", fail.String())
	}
}

func TestExecuteWithRetry_DefaultsZeroConfig(t *testing.T) {
	start := time.Now()
	result := ExecuteWithRetry(context.Background(), RetryConfig{}, func() error {
		return nil
	})
	if !result.Success {
		t.Fatal("expected success")
	}
	if time.Since(start) > time.Second {
		t.Error("a successful first attempt must not wait")
	}
}
