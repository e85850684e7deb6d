package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muralhq/walletgate/adapters/events"
	"github.com/muralhq/walletgate/adapters/store"
	"github.com/muralhq/walletgate/core"
)

func seedJanitorState(t *testing.T, s *store.MemoryStore) {
	t.Helper()
	ctx := context.Background()
	now := time.Now()

	nonces := []*core.Nonce{
		{Value: "expired-unused", ExpiresAt: now.Add(-time.Minute)},
		{Value: "live-unused", ExpiresAt: now.Add(time.Hour)},
		{Value: "used-8d", ExpiresAt: now.Add(time.Hour), Used: true, UsedAt: now.Add(-8 * 24 * time.Hour)},
		{Value: "used-1d", ExpiresAt: now.Add(time.Hour), Used: true, UsedAt: now.Add(-24 * time.Hour)},
	}
	for _, n := range nonces {
		n.WalletAddress = "0x52908400098527886E0F7030069857D2E4169EE7"
		n.CreatedAt = now.Add(-9 * 24 * time.Hour)
		require.NoError(t, s.SaveNonce(ctx, n))
	}

	attempts := []*core.AuthAttempt{
		{ID: "fresh", CreatedAt: now.Add(-time.Hour)},
		{ID: "stale", CreatedAt: now.Add(-31 * 24 * time.Hour)},
	}
	for _, a := range attempts {
		require.NoError(t, s.RecordAttempt(ctx, a))
	}
}

func newJanitor(s *store.MemoryStore) *Janitor {
	return NewJanitor(s, s, events.NewNoopPublisher(), testLogger(),
		7*24*time.Hour, 30*24*time.Hour)
}

func TestRunCleanup(t *testing.T) {
	ctx := context.Background()
	memStore := store.NewMemoryStore()
	seedJanitorState(t, memStore)

	report := newJanitor(memStore).RunCleanup(ctx)
	require.NoError(t, report.Err())
	assert.False(t, report.DryRun)

	assert.Equal(t, int64(1), report.ExpiredNonces)
	assert.Equal(t, int64(1), report.OldUsedNonces)
	assert.Equal(t, int64(1), report.OldAuthAttempts)

	// Exactly the matching rows are gone; everything else is untouched.
	_, ok := memStore.GetNonce("expired-unused")
	assert.False(t, ok)
	_, ok = memStore.GetNonce("used-8d")
	assert.False(t, ok)
	_, ok = memStore.GetNonce("live-unused")
	assert.True(t, ok)
	_, ok = memStore.GetNonce("used-1d")
	assert.True(t, ok)

	attempts, err := memStore.ListRecentAttempts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, "fresh", attempts[0].ID)
}

func TestDryRunDoesNotMutate(t *testing.T) {
	ctx := context.Background()
	memStore := store.NewMemoryStore()
	seedJanitorState(t, memStore)

	janitor := newJanitor(memStore)

	report := janitor.DryRun(ctx)
	require.NoError(t, report.Err())
	assert.True(t, report.DryRun)
	assert.Equal(t, int64(1), report.ExpiredNonces)
	assert.Equal(t, int64(1), report.OldUsedNonces)
	assert.Equal(t, int64(1), report.OldAuthAttempts)

	// A second dry run sees the same state.
	again := janitor.DryRun(ctx)
	assert.Equal(t, report.ExpiredNonces, again.ExpiredNonces)
	assert.Equal(t, report.OldUsedNonces, again.OldUsedNonces)
	assert.Equal(t, report.OldAuthAttempts, again.OldAuthAttempts)

	_, ok := memStore.GetNonce("expired-unused")
	assert.True(t, ok)
}

func TestCleanupIdempotent(t *testing.T) {
	ctx := context.Background()
	memStore := store.NewMemoryStore()
	seedJanitorState(t, memStore)

	janitor := newJanitor(memStore)
	janitor.RunCleanup(ctx)

	second := janitor.RunCleanup(ctx)
	require.NoError(t, second.Err())
	assert.Zero(t, second.ExpiredNonces)
	assert.Zero(t, second.OldUsedNonces)
	assert.Zero(t, second.OldAuthAttempts)
}

func TestJanitorRunStopsOnCancel(t *testing.T) {
	memStore := store.NewMemoryStore()
	janitor := newJanitor(memStore)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		janitor.Run(ctx, time.Millisecond)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop on cancel")
	}
}
