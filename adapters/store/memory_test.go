package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muralhq/walletgate/core"
)

func seedNonce(t *testing.T, s *MemoryStore, value string, expiresAt time.Time) {
	t.Helper()
	err := s.SaveNonce(context.Background(), &core.Nonce{
		Value:         value,
		WalletAddress: "0x52908400098527886E0F7030069857D2E4169EE7",
		CreatedAt:     time.Now(),
		ExpiresAt:     expiresAt,
	})
	require.NoError(t, err)
}

func TestConsumeNonce(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown value", func(t *testing.T) {
		s := NewMemoryStore()
		_, err := s.ConsumeNonce(ctx, "missing")
		assert.ErrorIs(t, err, core.ErrUnknownNonce)
	})

	t.Run("consumes exactly once", func(t *testing.T) {
		s := NewMemoryStore()
		seedNonce(t, s, "n1", time.Now().Add(time.Minute))

		nonce, err := s.ConsumeNonce(ctx, "n1")
		require.NoError(t, err)
		assert.True(t, nonce.Used)
		assert.False(t, nonce.UsedAt.IsZero())

		_, err = s.ConsumeNonce(ctx, "n1")
		assert.ErrorIs(t, err, core.ErrNonceAlreadyUsed)
	})

	t.Run("concurrent consumers race to one winner", func(t *testing.T) {
		s := NewMemoryStore()
		seedNonce(t, s, "contested", time.Now().Add(time.Minute))

		const attempts = 32
		var wg sync.WaitGroup
		results := make(chan error, attempts)

		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.ConsumeNonce(ctx, "contested")
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		var successes, replays int
		for err := range results {
			switch {
			case err == nil:
				successes++
			case errors.Is(err, core.ErrNonceAlreadyUsed):
				replays++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}

		assert.Equal(t, 1, successes)
		assert.Equal(t, attempts-1, replays)
	})
}

func TestNonceCleanupPredicates(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now()

	// One expired-unused, one live-unused, one used 8 days ago, one used
	// 1 day ago. Cleanup must remove exactly the first and third.
	seedNonce(t, s, "expired-unused", now.Add(-time.Minute))
	seedNonce(t, s, "live-unused", now.Add(time.Hour))

	for value, usedAt := range map[string]time.Time{
		"used-8d": now.Add(-8 * 24 * time.Hour),
		"used-1d": now.Add(-1 * 24 * time.Hour),
	} {
		require.NoError(t, s.SaveNonce(ctx, &core.Nonce{
			Value:         value,
			WalletAddress: "0x52908400098527886E0F7030069857D2E4169EE7",
			CreatedAt:     usedAt.Add(-time.Minute),
			ExpiresAt:     now.Add(time.Hour),
			Used:          true,
			UsedAt:        usedAt,
		}))
	}

	expired, err := s.DeleteExpiredNonces(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), expired)

	oldUsed, err := s.DeleteUsedNoncesBefore(ctx, now.Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), oldUsed)

	_, ok := s.GetNonce("live-unused")
	assert.True(t, ok)
	_, ok = s.GetNonce("used-1d")
	assert.True(t, ok)
	_, ok = s.GetNonce("expired-unused")
	assert.False(t, ok)
	_, ok = s.GetNonce("used-8d")
	assert.False(t, ok)
}

func TestNonceCounts(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now()

	seedNonce(t, s, "expired", now.Add(-time.Minute))
	seedNonce(t, s, "live", now.Add(time.Hour))

	n, err := s.CountExpiredNonces(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// Counting must not mutate.
	n, err = s.CountExpiredNonces(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestAttemptLog(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now()

	for i, age := range []time.Duration{0, time.Hour, 31 * 24 * time.Hour} {
		require.NoError(t, s.RecordAttempt(ctx, &core.AuthAttempt{
			ID:            string(rune('a' + i)),
			WalletAddress: "0x52908400098527886E0F7030069857D2E4169EE7",
			Success:       i == 0,
			CreatedAt:     now.Add(-age),
		}))
	}

	recent, err := s.ListRecentAttempts(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "a", recent[0].ID)
	assert.Equal(t, "b", recent[1].ID)

	deleted, err := s.DeleteAttemptsBefore(ctx, now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	remaining, err := s.ListRecentAttempts(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, remaining, 2)
}

func TestBlacklist(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	revoked, err := s.IsTokenRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	entry := &core.BlacklistedToken{
		JTI:           "jti-1",
		Reason:        "logout",
		ExpiresAt:     time.Now().Add(time.Hour),
		BlacklistedAt: time.Now(),
	}
	require.NoError(t, s.RevokeToken(ctx, entry))

	// Duplicate revocation is harmless.
	require.NoError(t, s.RevokeToken(ctx, entry))

	revoked, err = s.IsTokenRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
}
