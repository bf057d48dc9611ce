package google

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRateLimiter_Defaults(t *testing.T) {
	for service := range DefaultRateLimits {
		r := NewRateLimiter(service)
		assert.Equal(t, service, r.Service())
		assert.True(t, r.Allow(), service)
	}

	unknown := NewRateLimiter("bing")
	assert.True(t, unknown.Allow())
}

func TestRateLimiter_Backoff(t *testing.T) {
	r := NewRateLimiterWithConfig(RateLimitConfig{RequestsPerSecond: 100, BurstSize: 10})
	r.RecordRateLimitError(30)

	assert.False(t, r.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Wait(ctx), context.DeadlineExceeded)
}

func TestRateLimiter_Wait(t *testing.T) {
	r := NewRateLimiterWithConfig(RateLimitConfig{RequestsPerSecond: 1000, BurstSize: 2})
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, r.Wait(ctx))
	}
	assert.Less(t, time.Since(start), time.Second)
}
