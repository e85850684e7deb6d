package events

import (
	"context"

	"github.com/muralhq/walletgate/core"
	"github.com/muralhq/walletgate/ports"
)

// NoopPublisher drops all events. Used when no broker is configured and in
// tests that don't assert on events.
type NoopPublisher struct{}

// NewNoopPublisher creates a publisher that discards everything.
func NewNoopPublisher() ports.EventPublisher {
	return NoopPublisher{}
}

func (NoopPublisher) PublishLoginSucceeded(ctx context.Context, address, userID string) error {
	return nil
}

func (NoopPublisher) PublishLoginFailed(ctx context.Context, address, reason string) error {
	return nil
}

func (NoopPublisher) PublishSessionRevoked(ctx context.Context, jti, reason string) error {
	return nil
}

func (NoopPublisher) PublishCleanupCompleted(ctx context.Context, report *core.CleanupReport) error {
	return nil
}
