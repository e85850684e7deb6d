package directory

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muralhq/walletgate/core"
	"github.com/muralhq/walletgate/ports"
)

// countingDirectory wraps a MemoryDirectory and counts backing lookups.
type countingDirectory struct {
	*MemoryDirectory
	lookups atomic.Int64
}

func (d *countingDirectory) FindByID(ctx context.Context, id string) (*core.User, error) {
	d.lookups.Add(1)
	return d.MemoryDirectory.FindByID(ctx, id)
}

func (d *countingDirectory) FindByWalletAddress(ctx context.Context, address string) (*core.User, error) {
	d.lookups.Add(1)
	return d.MemoryDirectory.FindByWalletAddress(ctx, address)
}

var _ ports.UserDirectory = (*countingDirectory)(nil)

func TestCachedDirectory(t *testing.T) {
	ctx := context.Background()

	t.Run("serves repeat reads from cache", func(t *testing.T) {
		backing := &countingDirectory{MemoryDirectory: NewMemoryDirectory()}
		backing.Put(&core.User{ID: "u1", WalletAddress: "0x52908400098527886E0F7030069857D2E4169EE7"})

		cached := NewCachedDirectory(backing, time.Minute)

		for i := 0; i < 5; i++ {
			user, err := cached.FindByID(ctx, "u1")
			require.NoError(t, err)
			require.NotNil(t, user)
		}
		assert.Equal(t, int64(1), backing.lookups.Load())
	})

	t.Run("caches misses", func(t *testing.T) {
		backing := &countingDirectory{MemoryDirectory: NewMemoryDirectory()}
		cached := NewCachedDirectory(backing, time.Minute)

		for i := 0; i < 3; i++ {
			user, err := cached.FindByID(ctx, "absent")
			require.NoError(t, err)
			assert.Nil(t, user)
		}
		assert.Equal(t, int64(1), backing.lookups.Load())
	})

	t.Run("expired entries are refetched", func(t *testing.T) {
		backing := &countingDirectory{MemoryDirectory: NewMemoryDirectory()}
		backing.Put(&core.User{ID: "u1"})
		cached := NewCachedDirectory(backing, time.Millisecond)

		_, err := cached.FindByID(ctx, "u1")
		require.NoError(t, err)

		time.Sleep(5 * time.Millisecond)

		_, err = cached.FindByID(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), backing.lookups.Load())
	})

	t.Run("create refreshes the cache", func(t *testing.T) {
		const addr = "0x8617E340B3D01FA5F11F306F4090FD50E238070D"
		backing := &countingDirectory{MemoryDirectory: NewMemoryDirectory()}
		cached := NewCachedDirectory(backing, time.Minute)

		created, err := cached.CreateIfAbsent(ctx, addr)
		require.NoError(t, err)

		user, err := cached.FindByWalletAddress(ctx, addr)
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, created.ID, user.ID)
		assert.Equal(t, int64(0), backing.lookups.Load())
	})
}
