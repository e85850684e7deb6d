package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter(t *testing.T) {
	ctx := context.Background()

	t.Run("allows up to the limit", func(t *testing.T) {
		l := NewMemoryLimiter(3, time.Minute)

		for i := 0; i < 3; i++ {
			ok, _, err := l.Allow(ctx, "login:1.2.3.4")
			require.NoError(t, err)
			assert.True(t, ok)
		}

		ok, retryAfter, err := l.Allow(ctx, "login:1.2.3.4")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Greater(t, retryAfter, time.Duration(0))
		assert.LessOrEqual(t, retryAfter, time.Minute)
	})

	t.Run("keys are independent", func(t *testing.T) {
		l := NewMemoryLimiter(1, time.Minute)

		ok, _, err := l.Allow(ctx, "login:1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, _, err = l.Allow(ctx, "challenge:1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, _, err = l.Allow(ctx, "login:5.6.7.8")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, _, err = l.Allow(ctx, "login:1.2.3.4")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("window resets", func(t *testing.T) {
		l := NewMemoryLimiter(1, 10*time.Millisecond)

		ok, _, err := l.Allow(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, _, _ = l.Allow(ctx, "k")
		assert.False(t, ok)

		time.Sleep(15 * time.Millisecond)

		ok, _, err = l.Allow(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
	})
}
