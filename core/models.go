package core

import "time"

// Nonce is a single-use authentication challenge. It transitions
// ISSUED -> CONSUMED at most once; the consume step is an atomic
// conditional update in the store, never a read followed by a write.
type Nonce struct {
	Value         string    // Random token, unique, lookup key
	WalletAddress string    // Address the challenge was issued for
	CreatedAt     time.Time // When the challenge was created
	ExpiresAt     time.Time // Unusable after this instant
	Used          bool      // Set exactly once, on first consumption
	UsedAt        time.Time // Zero until consumed
}

// Expired reports whether the nonce is past its expiry at the given instant.
func (n *Nonce) Expired(now time.Time) bool {
	return !now.Before(n.ExpiresAt)
}

// AuthAttempt records one login attempt, success or failure, for audit
// and abuse detection. Attempts are append-only.
type AuthAttempt struct {
	ID            string
	WalletAddress string
	ClientIP      string
	Success       bool
	Reason        string // Failure reason, empty on success
	CreatedAt     time.Time
}

// Session is the logical view of a self-verifying session credential.
// The server holds no session row; validity is the credential's signature
// plus expiry plus the blacklist check.
type Session struct {
	UserID    string
	JTI       string // Unique session identifier, the revocation key
	Address   string // Wallet address used to authenticate, may be empty
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// BlacklistedToken records a revoked session identifier. Rows are kept
// for audit and only pruned by retention policy, never by normal flows.
type BlacklistedToken struct {
	JTI           string
	Reason        string
	ExpiresAt     time.Time // Expiry of the underlying credential
	BlacklistedAt time.Time
}

// User is the directory's view of an account, the only fields this
// subsystem consumes from it.
type User struct {
	ID            string
	WalletAddress string
	IsAdmin       bool
	IsBanned      bool
}

// CleanupReport carries per-category results of a janitor run. Categories
// are independent: a failure in one does not abort the others, and the
// counts always reflect what actually happened.
type CleanupReport struct {
	ExpiredNonces   int64
	OldUsedNonces   int64
	OldAuthAttempts int64

	ExpiredNoncesErr   error
	OldUsedNoncesErr   error
	OldAuthAttemptsErr error

	DryRun bool
}

// Err returns the first per-category error, if any.
func (r *CleanupReport) Err() error {
	switch {
	case r.ExpiredNoncesErr != nil:
		return r.ExpiredNoncesErr
	case r.OldUsedNoncesErr != nil:
		return r.OldUsedNoncesErr
	case r.OldAuthAttemptsErr != nil:
		return r.OldAuthAttemptsErr
	}
	return nil
}
