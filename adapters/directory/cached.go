package directory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/muralhq/walletgate/core"
	"github.com/muralhq/walletgate/ports"
)

type cacheEntry struct {
	user      *core.User // nil caches a miss
	expiresAt time.Time
}

// CachedDirectory is a read-through TTL cache over a UserDirectory. Session
// verification runs on every authenticated request; the cache keeps the
// directory off that hot path. Ban and admin flag changes take effect within
// one TTL. CreateIfAbsent always goes to the backing directory.
type CachedDirectory struct {
	next ports.UserDirectory
	ttl  time.Duration

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

// NewCachedDirectory wraps next with a read-through cache holding entries
// for ttl.
func NewCachedDirectory(next ports.UserDirectory, ttl time.Duration) *CachedDirectory {
	return &CachedDirectory{
		next:    next,
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

var _ ports.UserDirectory = (*CachedDirectory)(nil)

func (d *CachedDirectory) get(key string) (*core.User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	entry, ok := d.entries[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	if entry.user == nil {
		return nil, true
	}
	cp := *entry.user
	return &cp, true
}

func (d *CachedDirectory) put(key string, user *core.User) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var cp *core.User
	if user != nil {
		c := *user
		cp = &c
	}
	d.entries[key] = cacheEntry{user: cp, expiresAt: time.Now().Add(d.ttl)}
}

// FindByWalletAddress resolves through the cache by address.
func (d *CachedDirectory) FindByWalletAddress(ctx context.Context, address string) (*core.User, error) {
	key := "addr:" + strings.ToLower(address)
	if user, ok := d.get(key); ok {
		return user, nil
	}

	user, err := d.next.FindByWalletAddress(ctx, address)
	if err != nil {
		// Errors are not cached; the next request retries the directory.
		return nil, err
	}

	d.put(key, user)
	return user, nil
}

// FindByID resolves through the cache by user id.
func (d *CachedDirectory) FindByID(ctx context.Context, id string) (*core.User, error) {
	key := "id:" + id
	if user, ok := d.get(key); ok {
		return user, nil
	}

	user, err := d.next.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	d.put(key, user)
	return user, nil
}

// CreateIfAbsent bypasses the cache and refreshes it with the result.
func (d *CachedDirectory) CreateIfAbsent(ctx context.Context, address string) (*core.User, error) {
	user, err := d.next.CreateIfAbsent(ctx, address)
	if err != nil {
		return nil, err
	}

	d.put("addr:"+strings.ToLower(address), user)
	if user != nil {
		d.put("id:"+user.ID, user)
	}
	return user, nil
}
