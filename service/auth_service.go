package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/muralhq/walletgate/core"
	"github.com/muralhq/walletgate/internal/eth"
	"github.com/muralhq/walletgate/ports"
)

// Rate-limit key classes. Challenge issuance and login completion are
// limited independently per client.
const (
	limitClassChallenge = "challenge"
	limitClassLogin     = "login"
)

// AuthService issues challenges and verifies signed logins.
type AuthService struct {
	nonces    ports.NonceStore
	attempts  ports.AttemptLog
	directory ports.UserDirectory
	limiter   ports.RateLimiter
	events    ports.EventPublisher
	log       *slog.Logger

	domain       string
	challengeTTL time.Duration
}

// NewAuthService creates a new authentication service. domain is the origin
// identifier bound into every challenge message.
func NewAuthService(
	nonces ports.NonceStore,
	attempts ports.AttemptLog,
	directory ports.UserDirectory,
	limiter ports.RateLimiter,
	events ports.EventPublisher,
	log *slog.Logger,
	domain string,
	challengeTTL time.Duration,
) *AuthService {
	return &AuthService{
		nonces:       nonces,
		attempts:     attempts,
		directory:    directory,
		limiter:      limiter,
		events:       events,
		log:          log,
		domain:       domain,
		challengeTTL: challengeTTL,
	}
}

// CreateChallenge generates a new single-use challenge for the address and
// stores it with a short expiry. Previously issued, still-valid challenges
// for the same address remain usable; single-use is enforced per nonce at
// login time.
func (s *AuthService) CreateChallenge(ctx context.Context, address, clientIP string) (*core.Nonce, error) {
	if !eth.ValidAddress(address) {
		return nil, fmt.Errorf("%w: malformed wallet address", core.ErrInvalidInput)
	}

	if err := s.allow(ctx, limitClassChallenge, clientIP); err != nil {
		return nil, err
	}

	// 32 random bytes, well above the 128-bit unguessability floor.
	nonceBytes := make([]byte, 32)
	if _, err := rand.Read(nonceBytes); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	now := time.Now()
	nonce := &core.Nonce{
		Value:         hex.EncodeToString(nonceBytes),
		WalletAddress: address,
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.challengeTTL),
	}

	if err := s.nonces.SaveNonce(ctx, nonce); err != nil {
		return nil, fmt.Errorf("failed to store nonce: %w", err)
	}

	return nonce, nil
}

// CompleteLogin consumes the nonce exactly once, verifies the signature,
// and resolves the user identity. Every outcome except a rate-limit
// rejection is recorded as an AuthAttempt.
func (s *AuthService) CompleteLogin(ctx context.Context, nonceValue, signature, address, clientIP string) (*core.User, error) {
	if err := s.allow(ctx, limitClassLogin, clientIP); err != nil {
		return nil, err
	}

	if !eth.ValidAddress(address) {
		return nil, fmt.Errorf("%w: malformed wallet address", core.ErrInvalidInput)
	}

	user, err := s.completeLogin(ctx, nonceValue, signature, address)
	if err != nil {
		s.recordAttempt(ctx, address, clientIP, "", err)
		return nil, err
	}

	s.recordAttempt(ctx, address, clientIP, user.ID, nil)
	return user, nil
}

// completeLogin runs the ordered verification steps, each short-circuiting
// to failure. The consume step settles the check-not-used/mark-used race
// atomically inside the store.
func (s *AuthService) completeLogin(ctx context.Context, nonceValue, signature, address string) (*core.User, error) {
	nonce, err := s.nonces.ConsumeNonce(ctx, nonceValue)
	if err != nil {
		return nil, err
	}

	if nonce.Expired(nonce.UsedAt) {
		return nil, core.ErrNonceExpired
	}

	// The challenge was issued for one address; a valid signature from a
	// different key is still a mismatch.
	if !eth.EqualAddresses(nonce.WalletAddress, address) {
		return nil, core.ErrInvalidSignature
	}

	if !eth.VerifySignature(s.domain, nonce.Value, signature, address) {
		return nil, core.ErrInvalidSignature
	}

	user, err := s.directory.CreateIfAbsent(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to resolve user: %v", core.ErrStoreUnavailable, err)
	}
	if user.IsBanned {
		return nil, core.ErrUserBanned
	}

	return user, nil
}

// recordAttempt appends an AuthAttempt and publishes the audit event. Both
// are best-effort: a failed write never masks the login outcome.
func (s *AuthService) recordAttempt(ctx context.Context, address, clientIP, userID string, cause error) {
	reason := ""
	if cause != nil {
		reason = attemptReason(cause)
	}

	attempt := &core.AuthAttempt{
		ID:            uuid.New().String(),
		WalletAddress: address,
		ClientIP:      clientIP,
		Success:       cause == nil,
		Reason:        reason,
		CreatedAt:     time.Now(),
	}

	if err := s.attempts.RecordAttempt(ctx, attempt); err != nil {
		s.log.Error("failed to record auth attempt", "error", err, "address", truncate(address))
	}

	var pubErr error
	if cause == nil {
		pubErr = s.events.PublishLoginSucceeded(ctx, address, userID)
	} else {
		pubErr = s.events.PublishLoginFailed(ctx, address, reason)
	}
	if pubErr != nil {
		s.log.Warn("failed to publish login event", "error", pubErr)
	}
}

func (s *AuthService) allow(ctx context.Context, class, clientIP string) error {
	ok, retryAfter, err := s.limiter.Allow(ctx, class+":"+clientIP)
	if err != nil {
		// Fail closed: a broken limiter rejects rather than waves through.
		s.log.Error("rate limiter unavailable", "error", err, "class", class)
		return &core.RateLimitError{RetryAfter: time.Second}
	}
	if !ok {
		return &core.RateLimitError{RetryAfter: retryAfter}
	}
	return nil
}

func attemptReason(err error) string {
	switch {
	case errors.Is(err, core.ErrUnknownNonce):
		return "unknown_nonce"
	case errors.Is(err, core.ErrNonceAlreadyUsed):
		return "nonce_already_used"
	case errors.Is(err, core.ErrNonceExpired):
		return "nonce_expired"
	case errors.Is(err, core.ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, core.ErrUserBanned):
		return "user_banned"
	case errors.Is(err, core.ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "internal_error"
	}
}

// truncate shortens an identifier for log lines; full credential values
// never reach the logs.
func truncate(s string) string {
	if len(s) <= 10 {
		return s
	}
	return s[:10] + "..."
}
