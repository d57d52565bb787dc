package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursechat-io/coursechat/internal/coursechat/metrics"
)

func TestCircuitBreaker_ClosedState(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig())
	assert.Equal(t, StateClosed, cb.State())

	err := cb.Execute(func() error { return nil })
	require.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_OpenOnMaxFailures(t *testing.T) {
	config := &CircuitBreakerConfig{
		MaxFailures:      3,
		Timeout:          1 * time.Second,
		HalfOpenMaxCalls: 1,
	}
	cb := NewCircuitBreaker(config)

	testErr := errors.New("test error")
	for i := 0; i < 3; i++ {
		err := cb.Execute(func() error { return testErr })
		assert.Error(t, err)
	}

	assert.Equal(t, StateOpen, cb.State())

	err := cb.Execute(func() error { return nil })
	assert.ErrorIs(t, err, ErrCircuitBreakerOpen)
}

func TestCircuitBreaker_HalfOpenTransition(t *testing.T) {
	config := &CircuitBreakerConfig{
		MaxFailures:      2,
		Timeout:          100 * time.Millisecond,
		HalfOpenMaxCalls: 1,
	}
	cb := NewCircuitBreaker(config)

	testErr := errors.New("test error")
	for i := 0; i < 2; i++ {
		_ = cb.Execute(func() error { return testErr })
	}
	assert.Equal(t, StateOpen, cb.State())

	time.Sleep(150 * time.Millisecond)

	// A successful probe in the half-open state closes the breaker.
	err := cb.Execute(func() error { return nil })
	require.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailure(t *testing.T) {
	config := &CircuitBreakerConfig{
		MaxFailures:      2,
		Timeout:          100 * time.Millisecond,
		HalfOpenMaxCalls: 1,
	}
	cb := NewCircuitBreaker(config)

	testErr := errors.New("test error")
	for i := 0; i < 2; i++ {
		_ = cb.Execute(func() error { return testErr })
	}

	time.Sleep(150 * time.Millisecond)

	err := cb.Execute(func() error { return testErr })
	assert.Error(t, err)
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig())

	testErr := errors.New("test error")
	for i := 0; i < 5; i++ {
		_ = cb.Execute(func() error { return testErr })
	}
	assert.Equal(t, StateOpen, cb.State())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())

	err := cb.Execute(func() error { return nil })
	require.NoError(t, err)
}

func TestCircuitBreaker_Stats(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig())

	stats := cb.Stats()
	assert.Equal(t, "closed", stats["state"])
	assert.Equal(t, 0, stats["failures"])

	testErr := errors.New("test error")
	_ = cb.Execute(func() error { return testErr })

	stats = cb.Stats()
	assert.Equal(t, 1, stats["failures"])
}

func TestRetryWithBackoff_Success(t *testing.T) {
	ctx := context.Background()
	config := DefaultRetryConfig()

	callCount := 0
	err := RetryWithBackoff(ctx, config, func() error {
		callCount++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, callCount)
}

func TestRetryWithBackoff_EventualSuccess(t *testing.T) {
	ctx := context.Background()
	config := &RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     100 * time.Millisecond,
		Multiplier:   2.0,
		RetryableErrors: func(_ error) bool {
			return true
		},
	}

	callCount := 0
	testErr := errors.New("temporary error")

	err := RetryWithBackoff(ctx, config, func() error {
		callCount++
		if callCount < 3 {
			return testErr
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, callCount)
}

func TestRetryWithBackoff_MaxAttemptsReached(t *testing.T) {
	ctx := context.Background()
	config := &RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     100 * time.Millisecond,
		Multiplier:   2.0,
		RetryableErrors: func(_ error) bool {
			return true
		},
	}

	callCount := 0
	testErr := errors.New("persistent error")

	err := RetryWithBackoff(ctx, config, func() error {
		callCount++
		return testErr
	})

	require.Error(t, err)
	assert.Equal(t, 3, callCount)
	assert.Contains(t, err.Error(), "max retry attempts")
}

func TestRetryWithBackoff_NonRetryableError(t *testing.T) {
	ctx := context.Background()
	config := &RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     100 * time.Millisecond,
		Multiplier:   2.0,
		RetryableErrors: func(err error) bool {
			return err.Error() != "non-retryable"
		},
	}

	callCount := 0
	nonRetryableErr := errors.New("non-retryable")

	err := RetryWithBackoff(ctx, config, func() error {
		callCount++
		return nonRetryableErr
	})

	require.Error(t, err)
	assert.Equal(t, 1, callCount)
	assert.Equal(t, nonRetryableErr, err)
}

func TestRetryWithBackoff_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	config := &RetryConfig{
		MaxAttempts:  5,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
		RetryableErrors: func(_ error) bool {
			return true
		},
	}

	callCount := 0
	testErr := errors.New("test error")

	// Cancel during the first retry delay.
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := RetryWithBackoff(ctx, config, func() error {
		callCount++
		return testErr
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, callCount, 2)
}

func TestRetryWithBackoff_ExponentialBackoff(t *testing.T) {
	ctx := context.Background()
	config := &RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
		RetryableErrors: func(_ error) bool {
			return true
		},
	}

	testErr := errors.New("test error")
	start := time.Now()

	_ = RetryWithBackoff(ctx, config, func() error {
		return testErr
	})

	elapsed := time.Since(start)

	// Two delays at 100ms and 200ms, plus scheduling slack.
	assert.Greater(t, elapsed, 250*time.Millisecond)
	assert.Less(t, elapsed, 500*time.Millisecond)
}

func TestRetryWithCircuitBreaker(t *testing.T) {
	ctx := context.Background()
	retryConfig := &RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     100 * time.Millisecond,
		Multiplier:   2.0,
		RetryableErrors: func(err error) bool {
			return !errors.Is(err, ErrCircuitBreakerOpen)
		},
	}

	cbConfig := &CircuitBreakerConfig{
		MaxFailures:      2,
		Timeout:          100 * time.Millisecond,
		HalfOpenMaxCalls: 1,
	}
	cb := NewCircuitBreaker(cbConfig)

	testErr := errors.New("test error")

	err := RetryWithCircuitBreaker(ctx, retryConfig, cb, func() error {
		return testErr
	})
	require.Error(t, err)
	assert.Equal(t, StateOpen, cb.State())

	err = RetryWithCircuitBreaker(ctx, retryConfig, cb, func() error {
		return testErr
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCircuitBreakerOpen)
}

func TestResilienceMetricsRecorded(t *testing.T) {
	m := metrics.Get()
	m.Reset()

	ctx := context.Background()
	retryConfig := &RetryConfig{
		MaxAttempts:  2,
		InitialDelay: time.Millisecond,
		MaxDelay:     10 * time.Millisecond,
		Multiplier:   2.0,
		RetryableErrors: func(_ error) bool {
			return true
		},
	}
	cb := NewCircuitBreaker(&CircuitBreakerConfig{
		MaxFailures:      1,
		Timeout:          50 * time.Millisecond,
		HalfOpenMaxCalls: 1,
	})

	testErr := errors.New("test error")
	err := RetryWithCircuitBreaker(ctx, retryConfig, cb, func() error {
		return testErr
	})
	require.Error(t, err)

	stats := m.Stats()
	llmStats := stats["llm"].(map[string]interface{})
	assert.Equal(t, uint64(1), llmStats["retries"])

	breaker := stats["circuit_breaker"].(map[string]interface{})
	assert.Equal(t, "open", breaker["state"])
	assert.Equal(t, uint64(1), breaker["opens"])

	// After the open timeout a successful probe closes the breaker and
	// the state gauge follows it through half-open.
	time.Sleep(80 * time.Millisecond)
	require.NoError(t, cb.Execute(func() error { return nil }))

	breaker = m.Stats()["circuit_breaker"].(map[string]interface{})
	assert.Equal(t, "closed", breaker["state"])

	m.Reset()
}

func TestDefaultConfigs(t *testing.T) {
	retryConfig := DefaultRetryConfig()
	assert.Equal(t, 3, retryConfig.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, retryConfig.InitialDelay)
	assert.Equal(t, 10*time.Second, retryConfig.MaxDelay)
	assert.Equal(t, 2.0, retryConfig.Multiplier)

	cbConfig := DefaultCircuitBreakerConfig()
	assert.Equal(t, 5, cbConfig.MaxFailures)
	assert.Equal(t, 60*time.Second, cbConfig.Timeout)
	assert.Equal(t, 1, cbConfig.HalfOpenMaxCalls)
}

func BenchmarkCircuitBreaker_Execute(b *testing.B) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cb.Execute(func() error {
			return nil
		})
	}
}

func BenchmarkRetryWithBackoff_NoRetry(b *testing.B) {
	ctx := context.Background()
	config := DefaultRetryConfig()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = RetryWithBackoff(ctx, config, func() error {
			return nil
		})
	}
}
