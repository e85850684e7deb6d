package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/muralhq/walletgate/core"
	"github.com/muralhq/walletgate/ports"
)

// SessionService mints and validates self-verifying session credentials.
// The server keeps no session table; validity is the credential's own
// integrity plus the blacklist and directory checks.
type SessionService struct {
	tokenizer ports.SessionTokenizer
	blacklist ports.BlacklistStore
	directory ports.UserDirectory
	events    ports.EventPublisher
	log       *slog.Logger

	ttl time.Duration
}

// NewSessionService creates a new session service.
func NewSessionService(
	tokenizer ports.SessionTokenizer,
	blacklist ports.BlacklistStore,
	directory ports.UserDirectory,
	events ports.EventPublisher,
	log *slog.Logger,
	ttl time.Duration,
) *SessionService {
	return &SessionService{
		tokenizer: tokenizer,
		blacklist: blacklist,
		directory: directory,
		events:    events,
		log:       log,
		ttl:       ttl,
	}
}

// Issue mints a credential for an authenticated user.
func (s *SessionService) Issue(user *core.User) (string, *core.Session, error) {
	now := time.Now()
	session := &core.Session{
		UserID:    user.ID,
		JTI:       uuid.New().String(),
		Address:   user.WalletAddress,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}

	token, err := s.tokenizer.SessionToToken(session)
	if err != nil {
		return "", nil, fmt.Errorf("failed to mint session credential: %w", err)
	}

	return token, session, nil
}

// Verify validates a credential and loads the user behind it. Any failure
// short of a store outage maps to ErrUnauthenticated; a store outage is
// ErrStoreUnavailable, and the caller still denies access.
func (s *SessionService) Verify(ctx context.Context, token string) (*core.User, *core.Session, error) {
	session, err := s.tokenizer.TokenToSession(token)
	if err != nil {
		return nil, nil, core.ErrUnauthenticated
	}

	revoked, err := s.blacklist.IsTokenRevoked(ctx, session.JTI)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to check blacklist: %v", core.ErrStoreUnavailable, err)
	}
	if revoked {
		return nil, nil, core.ErrUnauthenticated
	}

	user, err := s.directory.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to load user: %v", core.ErrStoreUnavailable, err)
	}
	if user == nil || user.IsBanned {
		return nil, nil, core.ErrUnauthenticated
	}

	return user, session, nil
}

// Revoke blacklists the session's jti; subsequent Verify calls fail
// immediately regardless of remaining TTL. Revoking twice is harmless.
func (s *SessionService) Revoke(ctx context.Context, session *core.Session, reason string) error {
	entry := &core.BlacklistedToken{
		JTI:           session.JTI,
		Reason:        reason,
		ExpiresAt:     session.ExpiresAt,
		BlacklistedAt: time.Now(),
	}

	if err := s.blacklist.RevokeToken(ctx, entry); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	if err := s.events.PublishSessionRevoked(ctx, session.JTI, reason); err != nil {
		s.log.Warn("failed to publish revocation event", "error", err, "jti", session.JTI)
	}

	return nil
}

// RevokeToken parses a raw credential and revokes it. Expired or otherwise
// invalid credentials revoke nothing but report success: the session is
// already unusable.
func (s *SessionService) RevokeToken(ctx context.Context, token, reason string) error {
	session, err := s.tokenizer.TokenToSession(token)
	if err != nil {
		return nil
	}

	return s.Revoke(ctx, session, reason)
}
