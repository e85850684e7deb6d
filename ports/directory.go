package ports

import (
	"context"

	"github.com/muralhq/walletgate/core"
)

// UserDirectory is the external account service, consumed at its interface
// boundary only. Lookups return (nil, nil) when no user exists.
type UserDirectory interface {
	FindByWalletAddress(ctx context.Context, address string) (*core.User, error)
	FindByID(ctx context.Context, id string) (*core.User, error)

	// CreateIfAbsent resolves the user for a wallet address, creating one on
	// first login.
	CreateIfAbsent(ctx context.Context, address string) (*core.User, error)
}
