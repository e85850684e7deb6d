package ports

import (
	"context"
	"time"

	"github.com/muralhq/walletgate/core"
)

// NonceStore persists single-use challenge values against the durable store
// shared by all serving instances.
type NonceStore interface {
	// SaveNonce stores a freshly issued nonce.
	SaveNonce(ctx context.Context, nonce *core.Nonce) error

	// ConsumeNonce atomically marks the nonce used and returns it. The
	// check-not-used and mark-used steps are a single conditional update:
	// of two concurrent calls for the same value, exactly one succeeds and
	// the other gets core.ErrNonceAlreadyUsed. Returns core.ErrUnknownNonce
	// when no nonce exists for the value. Expiry is not checked here; the
	// caller inspects the returned nonce.
	ConsumeNonce(ctx context.Context, value string) (*core.Nonce, error)

	// DeleteExpiredNonces removes nonces with ExpiresAt before now,
	// regardless of used state. Returns the number deleted.
	DeleteExpiredNonces(ctx context.Context, now time.Time) (int64, error)

	// DeleteUsedNoncesBefore removes consumed nonces with UsedAt before
	// cutoff. Returns the number deleted.
	DeleteUsedNoncesBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// CountExpiredNonces and CountUsedNoncesBefore report what the matching
	// delete would remove, without mutating state.
	CountExpiredNonces(ctx context.Context, now time.Time) (int64, error)
	CountUsedNoncesBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// AttemptLog records login attempts for audit and abuse detection.
type AttemptLog interface {
	// RecordAttempt appends one attempt. Attempts are never mutated.
	RecordAttempt(ctx context.Context, attempt *core.AuthAttempt) error

	// ListRecentAttempts returns the most recent attempts, newest first.
	ListRecentAttempts(ctx context.Context, limit int) ([]core.AuthAttempt, error)

	// DeleteAttemptsBefore removes attempts created before cutoff.
	DeleteAttemptsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// CountAttemptsBefore reports what DeleteAttemptsBefore would remove.
	CountAttemptsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// BlacklistStore records revoked session identifiers.
type BlacklistStore interface {
	// RevokeToken inserts a blacklist row for the jti. Revoking an already
	// revoked jti is harmless.
	RevokeToken(ctx context.Context, token *core.BlacklistedToken) error

	// IsTokenRevoked reports whether the jti has been revoked.
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}
