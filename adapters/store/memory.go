package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/muralhq/walletgate/core"
)

// MemoryStore is an in-memory implementation of the store ports with the
// same semantics as the Postgres adapter, for tests and single-process
// development. The consume path holds the lock across check and mark, which
// is the in-process equivalent of the conditional update.
type MemoryStore struct {
	mu        sync.Mutex
	nonces    map[string]*core.Nonce
	attempts  []core.AuthAttempt
	blacklist map[string]*core.BlacklistedToken
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nonces:    make(map[string]*core.Nonce),
		blacklist: make(map[string]*core.BlacklistedToken),
	}
}

// SaveNonce stores a freshly issued nonce.
func (s *MemoryStore) SaveNonce(ctx context.Context, nonce *core.Nonce) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *nonce
	s.nonces[nonce.Value] = &cp
	return nil
}

// ConsumeNonce atomically marks the nonce used and returns a copy.
func (s *MemoryStore) ConsumeNonce(ctx context.Context, value string) (*core.Nonce, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nonce, ok := s.nonces[value]
	if !ok {
		return nil, core.ErrUnknownNonce
	}
	if nonce.Used {
		return nil, core.ErrNonceAlreadyUsed
	}

	nonce.Used = true
	nonce.UsedAt = time.Now()

	cp := *nonce
	return &cp, nil
}

// DeleteExpiredNonces removes nonces past their expiry, used or not.
func (s *MemoryStore) DeleteExpiredNonces(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for value, nonce := range s.nonces {
		if nonce.ExpiresAt.Before(now) {
			delete(s.nonces, value)
			n++
		}
	}
	return n, nil
}

// DeleteUsedNoncesBefore removes consumed nonces older than cutoff.
func (s *MemoryStore) DeleteUsedNoncesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for value, nonce := range s.nonces {
		if nonce.Used && nonce.UsedAt.Before(cutoff) {
			delete(s.nonces, value)
			n++
		}
	}
	return n, nil
}

// CountExpiredNonces reports what DeleteExpiredNonces would remove.
func (s *MemoryStore) CountExpiredNonces(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, nonce := range s.nonces {
		if nonce.ExpiresAt.Before(now) {
			n++
		}
	}
	return n, nil
}

// CountUsedNoncesBefore reports what DeleteUsedNoncesBefore would remove.
func (s *MemoryStore) CountUsedNoncesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, nonce := range s.nonces {
		if nonce.Used && nonce.UsedAt.Before(cutoff) {
			n++
		}
	}
	return n, nil
}

// GetNonce returns a copy of the stored nonce, for tests.
func (s *MemoryStore) GetNonce(value string) (*core.Nonce, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nonce, ok := s.nonces[value]
	if !ok {
		return nil, false
	}
	cp := *nonce
	return &cp, true
}

// RecordAttempt appends one login attempt.
func (s *MemoryStore) RecordAttempt(ctx context.Context, attempt *core.AuthAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempts = append(s.attempts, *attempt)
	return nil
}

// ListRecentAttempts returns the most recent attempts, newest first.
func (s *MemoryStore) ListRecentAttempts(ctx context.Context, limit int) ([]core.AuthAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.AuthAttempt, len(s.attempts))
	copy(out, s.attempts)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// DeleteAttemptsBefore removes attempts created before cutoff.
func (s *MemoryStore) DeleteAttemptsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.attempts[:0]
	var n int64
	for _, a := range s.attempts {
		if a.CreatedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, a)
	}
	s.attempts = kept
	return n, nil
}

// CountAttemptsBefore reports what DeleteAttemptsBefore would remove.
func (s *MemoryStore) CountAttemptsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, a := range s.attempts {
		if a.CreatedAt.Before(cutoff) {
			n++
		}
	}
	return n, nil
}

// RevokeToken inserts a blacklist entry; the first revocation wins.
func (s *MemoryStore) RevokeToken(ctx context.Context, token *core.BlacklistedToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.blacklist[token.JTI]; exists {
		return nil
	}
	cp := *token
	s.blacklist[token.JTI] = &cp
	return nil
}

// IsTokenRevoked reports whether the jti has been revoked.
func (s *MemoryStore) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, revoked := s.blacklist[jti]
	return revoked, nil
}
