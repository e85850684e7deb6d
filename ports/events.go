package ports

import (
	"context"

	"github.com/muralhq/walletgate/core"
)

// EventPublisher notifies other instances and audit consumers. Publishing is
// best-effort: failures are logged by callers, never propagated to clients.
type EventPublisher interface {
	PublishLoginSucceeded(ctx context.Context, address, userID string) error
	PublishLoginFailed(ctx context.Context, address, reason string) error
	PublishSessionRevoked(ctx context.Context, jti, reason string) error
	PublishCleanupCompleted(ctx context.Context, report *core.CleanupReport) error
}
