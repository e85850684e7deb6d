package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/muralhq/walletgate/core"
	"github.com/muralhq/walletgate/ports"
)

// Topics carrying authentication audit events.
const (
	TopicLogin   = "walletgate.login"
	TopicRevoked = "walletgate.session_revoked"
	TopicCleanup = "walletgate.cleanup"
)

// LoginEvent records a login outcome. Failed logins carry the failure
// reason; successful ones the resolved user.
type LoginEvent struct {
	Address string    `json:"address"`
	UserID  string    `json:"user_id,omitempty"`
	Success bool      `json:"success"`
	Reason  string    `json:"reason,omitempty"`
	At      time.Time `json:"at"`
}

// RevokedEvent records a session revocation.
type RevokedEvent struct {
	JTI    string    `json:"jti"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// CleanupEvent records a completed janitor run.
type CleanupEvent struct {
	ExpiredNonces   int64     `json:"expired_nonces"`
	OldUsedNonces   int64     `json:"old_used_nonces"`
	OldAuthAttempts int64     `json:"old_auth_attempts"`
	DryRun          bool      `json:"dry_run"`
	At              time.Time `json:"at"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill.
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher.
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

func (p *WatermillPublisher) publish(topic string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// PublishLoginSucceeded publishes a successful login event.
func (p *WatermillPublisher) PublishLoginSucceeded(ctx context.Context, address, userID string) error {
	return p.publish(TopicLogin, LoginEvent{
		Address: address,
		UserID:  userID,
		Success: true,
		At:      time.Now(),
	})
}

// PublishLoginFailed publishes a failed login event.
func (p *WatermillPublisher) PublishLoginFailed(ctx context.Context, address, reason string) error {
	return p.publish(TopicLogin, LoginEvent{
		Address: address,
		Reason:  reason,
		At:      time.Now(),
	})
}

// PublishSessionRevoked publishes a revocation event so other instances can
// drop any cached view of the session.
func (p *WatermillPublisher) PublishSessionRevoked(ctx context.Context, jti, reason string) error {
	return p.publish(TopicRevoked, RevokedEvent{
		JTI:    jti,
		Reason: reason,
		At:     time.Now(),
	})
}

// PublishCleanupCompleted publishes the outcome of a janitor run.
func (p *WatermillPublisher) PublishCleanupCompleted(ctx context.Context, report *core.CleanupReport) error {
	return p.publish(TopicCleanup, CleanupEvent{
		ExpiredNonces:   report.ExpiredNonces,
		OldUsedNonces:   report.OldUsedNonces,
		OldAuthAttempts: report.OldAuthAttempts,
		DryRun:          report.DryRun,
		At:              time.Now(),
	})
}
