// Package directory provides UserDirectory adapters. The directory itself
// is an external service; this package only implements the boundary.
package directory

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/muralhq/walletgate/core"
	"github.com/muralhq/walletgate/ports"
)

// MemoryDirectory is an in-process UserDirectory for tests and development.
// Addresses are keyed case-insensitively, matching checksummed and
// lowercased forms of the same wallet.
type MemoryDirectory struct {
	mu     sync.RWMutex
	byAddr map[string]*core.User
	byID   map[string]*core.User
}

// NewMemoryDirectory creates an empty directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		byAddr: make(map[string]*core.User),
		byID:   make(map[string]*core.User),
	}
}

var _ ports.UserDirectory = (*MemoryDirectory)(nil)

// Put inserts or replaces a user, for test seeding.
func (d *MemoryDirectory) Put(user *core.User) {
	d.mu.Lock()
	defer d.mu.Unlock()

	cp := *user
	d.byID[user.ID] = &cp
	if user.WalletAddress != "" {
		d.byAddr[strings.ToLower(user.WalletAddress)] = &cp
	}
}

// FindByWalletAddress returns the user for an address, or (nil, nil).
func (d *MemoryDirectory) FindByWalletAddress(ctx context.Context, address string) (*core.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	user, ok := d.byAddr[strings.ToLower(address)]
	if !ok {
		return nil, nil
	}
	cp := *user
	return &cp, nil
}

// FindByID returns the user for an id, or (nil, nil).
func (d *MemoryDirectory) FindByID(ctx context.Context, id string) (*core.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	user, ok := d.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *user
	return &cp, nil
}

// CreateIfAbsent resolves the user for a wallet address, creating one on
// first login.
func (d *MemoryDirectory) CreateIfAbsent(ctx context.Context, address string) (*core.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := strings.ToLower(address)
	if user, ok := d.byAddr[key]; ok {
		cp := *user
		return &cp, nil
	}

	user := &core.User{
		ID:            uuid.New().String(),
		WalletAddress: address,
	}
	d.byAddr[key] = user
	d.byID[user.ID] = user

	cp := *user
	return &cp, nil
}
