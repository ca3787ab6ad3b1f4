package errors

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError(t *testing.T) {
	t.Run("new error", func(t *testing.T) {
		err := New(ErrCodeModelInvalid, "bad model")

		assert.Equal(t, ErrCodeModelInvalid, err.Code)
		assert.Equal(t, SeverityError, err.Severity)
		assert.Contains(t, err.Error(), "MF3003")
		assert.Contains(t, err.Error(), "bad model")
		assert.NotEmpty(t, err.Stack)
	})

	t.Run("wrap preserves cause", func(t *testing.T) {
		cause := fmt.Errorf("boom")
		err := Wrap(cause, ErrCodeSQLExecution, "statement failed")

		assert.Equal(t, cause, err.Unwrap())
		assert.Contains(t, err.Error(), "Caused by: boom")
	})

	t.Run("wrap nil returns nil", func(t *testing.T) {
		assert.Nil(t, Wrap(nil, ErrCodeSQLExecution, "ignored"))
	})

	t.Run("wrap inherits context", func(t *testing.T) {
		inner := New(ErrCodeSQLSyntax, "syntax").WithContext("model", "mart_user_sessions")
		outer := Wrap(inner, ErrCodeSQLExecution, "run failed")

		assert.Equal(t, "mart_user_sessions", outer.Context["model"])
	})

	t.Run("is compares by code", func(t *testing.T) {
		a := New(ErrCodeUnknownRef, "a")
		b := New(ErrCodeUnknownRef, "b")
		c := New(ErrCodeModelNotFound, "c")

		assert.True(t, a.Is(b))
		assert.False(t, a.Is(c))
	})

	t.Run("suggestions included in message", func(t *testing.T) {
		err := New(ErrCodeConfigInvalid, "missing target").
			WithSuggestions("Run 'martforge setup'")

		assert.Contains(t, err.Error(), "Suggestions:")
		assert.Contains(t, err.Error(), "martforge setup")
	})
}

func TestErrorHelpers(t *testing.T) {
	t.Run("recoverable detection", func(t *testing.T) {
		err := ValidationError("threshold", -1, "must be positive")

		assert.True(t, IsRecoverable(err))
		assert.False(t, IsRecoverable(fmt.Errorf("plain")))
	})

	t.Run("error code extraction", func(t *testing.T) {
		assert.Equal(t, ErrCodeConnectionFailed, GetErrorCode(ConnectionError("no route", fmt.Errorf("dial"))))
		assert.Equal(t, ErrCodeInternal, GetErrorCode(fmt.Errorf("plain")))
	})

	t.Run("sql error classifies permission", func(t *testing.T) {
		err := SQLError("access denied for role", "SELECT 1", fmt.Errorf("denied"))
		assert.Equal(t, ErrCodeSQLPermission, err.Code)
	})

	t.Run("sql error truncates query context", func(t *testing.T) {
		long := make([]byte, 500)
		for i := range long {
			long[i] = 'x'
		}
		err := SQLError("failed", string(long), fmt.Errorf("bad"))
		q := err.Context["query"].(string)
		assert.LessOrEqual(t, len(q), 203)
	})
}

func TestRetry(t *testing.T) {
	t.Run("succeeds after transient failures", func(t *testing.T) {
		config := &RetryConfig{
			MaxRetries:     3,
			InitialDelay:   time.Millisecond,
			MaxDelay:       5 * time.Millisecond,
			Multiplier:     2.0,
			RetryableError: func(error) bool { return true },
		}

		attempts := 0
		err := Retry(context.Background(), config, func(ctx context.Context) error {
			attempts++
			if attempts < 3 {
				return New(ErrCodeConnectionTimeout, "timeout")
			}
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("gives up on non-retryable error", func(t *testing.T) {
		config := DefaultRetryConfig()
		config.InitialDelay = time.Millisecond

		attempts := 0
		err := Retry(context.Background(), config, func(ctx context.Context) error {
			attempts++
			return New(ErrCodeSQLSyntax, "syntax error")
		})

		assert.Error(t, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("exhausts retries", func(t *testing.T) {
		config := &RetryConfig{
			MaxRetries:     2,
			InitialDelay:   time.Millisecond,
			MaxDelay:       2 * time.Millisecond,
			Multiplier:     1.0,
			RetryableError: func(error) bool { return true },
		}

		attempts := 0
		err := Retry(context.Background(), config, func(ctx context.Context) error {
			attempts++
			return New(ErrCodeTimeout, "slow")
		})

		assert.Error(t, err)
		assert.Equal(t, 3, attempts)
		assert.Equal(t, ErrCodeResourceExhausted, GetErrorCode(err))
	})

	t.Run("honors context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		config := &RetryConfig{
			MaxRetries:     5,
			InitialDelay:   50 * time.Millisecond,
			MaxDelay:       time.Second,
			Multiplier:     2.0,
			RetryableError: func(error) bool { return true },
		}

		err := Retry(ctx, config, func(ctx context.Context) error {
			return New(ErrCodeTimeout, "slow")
		})

		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestCircuitBreaker(t *testing.T) {
	t.Run("opens after max failures", func(t *testing.T) {
		cb := NewCircuitBreaker("warehouse", 2, time.Minute)
		failing := func() error { return fmt.Errorf("down") }

		_ = cb.Execute(context.Background(), failing)
		_ = cb.Execute(context.Background(), failing)

		assert.Equal(t, "open", cb.GetState())

		err := cb.Execute(context.Background(), func() error { return nil })
		assert.Error(t, err)
		assert.Equal(t, ErrCodeServiceUnavailable, GetErrorCode(err))
	})

	t.Run("half-open recovers on success", func(t *testing.T) {
		cb := NewCircuitBreaker("warehouse", 1, 10*time.Millisecond)
		_ = cb.Execute(context.Background(), func() error { return fmt.Errorf("down") })
		require.Equal(t, "open", cb.GetState())

		time.Sleep(15 * time.Millisecond)

		err := cb.Execute(context.Background(), func() error { return nil })
		assert.NoError(t, err)
		assert.Equal(t, "closed", cb.GetState())
	})
}

func TestTransactionHandler(t *testing.T) {
	var buf bytes.Buffer
	handler := NewErrorHandler(&buf)

	t.Run("rolls back on failure", func(t *testing.T) {
		rolledBack := false
		th := handler.NewTransactionHandler(func() error {
			rolledBack = true
			return nil
		})

		err := th.Execute(func() error { return fmt.Errorf("statement failed") })

		assert.Error(t, err)
		assert.True(t, rolledBack)
	})

	t.Run("commits skip rollback", func(t *testing.T) {
		rolledBack := false
		th := handler.NewTransactionHandler(func() error {
			rolledBack = true
			return nil
		})

		err := th.Execute(func() error { return nil })

		assert.NoError(t, err)
		assert.False(t, rolledBack)
	})
}
