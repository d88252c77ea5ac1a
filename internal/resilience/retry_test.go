package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() Policy {
	return Policy{
		Attempts:  3,
		BaseDelay: time.Millisecond,
		MaxDelay:  5 * time.Millisecond,
		Jitter:    0,
	}
}

func TestDoVal_SucceedsFirstTry(t *testing.T) {
	t.Parallel()

	calls := 0
	got, err := DoVal(context.Background(), fastPolicy(), func(ctx context.Context) (string, error) {
		calls++
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 1, calls)
}

func TestDoVal_RetriesUpstreamError(t *testing.T) {
	t.Parallel()

	calls := 0
	got, err := DoVal(context.Background(), fastPolicy(), func(ctx context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, NewUpstreamError(eris.New("price oracle overloaded"), 503)
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestDoVal_StopsOnPermanentError(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := DoVal(context.Background(), fastPolicy(), func(ctx context.Context) (int, error) {
		calls++
		return 0, eris.New("product not found")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoVal_ExhaustsAttempts(t *testing.T) {
	t.Parallel()

	calls := 0
	retries := 0
	p := fastPolicy()
	p.OnRetry = func(attempt int, err error) { retries++ }

	_, err := DoVal(context.Background(), p, func(ctx context.Context) (int, error) {
		calls++
		return 0, NewUpstreamError(eris.New("still down"), 500)
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, retries)
}

func TestDoVal_RespectsCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := DoVal(ctx, fastPolicy(), func(ctx context.Context) (int, error) {
		calls++
		cancel()
		return 0, NewUpstreamError(eris.New("timeout"), 504)
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_WrapsErrorOnlyFunctions(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Do(context.Background(), fastPolicy(), func(ctx context.Context) error {
		calls++
		if calls < 2 {
			return NewUpstreamError(eris.New("flaky"), 429)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDoVal_CustomClassifier(t *testing.T) {
	t.Parallel()

	calls := 0
	p := fastPolicy()
	p.Classify = func(err error) bool { return true }

	_, err := DoVal(context.Background(), p, func(ctx context.Context) (int, error) {
		calls++
		return 0, eris.New("normally permanent")
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
}
