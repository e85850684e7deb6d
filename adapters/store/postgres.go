package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/muralhq/walletgate/core"
)

// PostgresStore is the durable system of record for nonces, auth attempts,
// and blacklisted tokens. It implements ports.NonceStore, ports.AttemptLog,
// and ports.BlacklistStore so all serving instances share one source of
// truth and the service scales horizontally.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens the database, configures the pool, and bootstraps
// the schema.
func NewPostgresStore(connString string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *PostgresStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS auth_nonces (
		value VARCHAR(128) PRIMARY KEY,
		wallet_address VARCHAR(42) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		used BOOLEAN NOT NULL DEFAULT FALSE,
		used_at TIMESTAMPTZ
	);
	CREATE INDEX IF NOT EXISTS idx_auth_nonces_expires_at ON auth_nonces(expires_at);
	CREATE INDEX IF NOT EXISTS idx_auth_nonces_used_at ON auth_nonces(used_at) WHERE used;

	CREATE TABLE IF NOT EXISTS auth_attempts (
		id VARCHAR(36) PRIMARY KEY,
		wallet_address VARCHAR(42) NOT NULL,
		client_ip VARCHAR(45) NOT NULL DEFAULT '',
		success BOOLEAN NOT NULL,
		reason VARCHAR(64) NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_auth_attempts_created_at ON auth_attempts(created_at);
	CREATE INDEX IF NOT EXISTS idx_auth_attempts_wallet ON auth_attempts(wallet_address);

	CREATE TABLE IF NOT EXISTS blacklisted_tokens (
		jti VARCHAR(36) PRIMARY KEY,
		reason VARCHAR(64) NOT NULL DEFAULT '',
		expires_at TIMESTAMPTZ NOT NULL,
		blacklisted_at TIMESTAMPTZ NOT NULL
	);
	`

	_, err := s.db.Exec(query)
	return err
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// SaveNonce stores a freshly issued nonce.
func (s *PostgresStore) SaveNonce(ctx context.Context, nonce *core.Nonce) error {
	query := `
		INSERT INTO auth_nonces (value, wallet_address, created_at, expires_at, used)
		VALUES ($1, $2, $3, $4, FALSE)
	`

	if _, err := s.db.ExecContext(ctx, query, nonce.Value, nonce.WalletAddress, nonce.CreatedAt, nonce.ExpiresAt); err != nil {
		return fmt.Errorf("%w: failed to save nonce: %v", core.ErrStoreUnavailable, err)
	}

	return nil
}

// ConsumeNonce marks the nonce used with a single conditional update. Two
// concurrent consumptions of the same value race on the used flag inside
// the database; exactly one UPDATE matches.
func (s *PostgresStore) ConsumeNonce(ctx context.Context, value string) (*core.Nonce, error) {
	query := `
		UPDATE auth_nonces
		SET used = TRUE, used_at = NOW()
		WHERE value = $1 AND used = FALSE
		RETURNING wallet_address, created_at, expires_at, used_at
	`

	nonce := &core.Nonce{Value: value, Used: true}
	err := s.db.QueryRowContext(ctx, query, value).Scan(
		&nonce.WalletAddress, &nonce.CreatedAt, &nonce.ExpiresAt, &nonce.UsedAt,
	)
	if err == nil {
		return nonce, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: failed to consume nonce: %v", core.ErrStoreUnavailable, err)
	}

	// No row matched: distinguish a missing nonce from an already consumed
	// one. This read is purely for error classification; the consume itself
	// already settled atomically above.
	var used bool
	err = s.db.QueryRowContext(ctx, `SELECT used FROM auth_nonces WHERE value = $1`, value).Scan(&used)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, core.ErrUnknownNonce
	case err != nil:
		return nil, fmt.Errorf("%w: failed to inspect nonce: %v", core.ErrStoreUnavailable, err)
	case used:
		return nil, core.ErrNonceAlreadyUsed
	default:
		// The nonce reappeared unused between the two statements; treat it
		// as a lost race rather than retrying.
		return nil, core.ErrNonceAlreadyUsed
	}
}

// DeleteExpiredNonces removes nonces past their expiry, used or not.
func (s *PostgresStore) DeleteExpiredNonces(ctx context.Context, now time.Time) (int64, error) {
	return s.execCount(ctx, `DELETE FROM auth_nonces WHERE expires_at < $1`, now)
}

// DeleteUsedNoncesBefore removes consumed nonces whose consumption is older
// than cutoff.
func (s *PostgresStore) DeleteUsedNoncesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.execCount(ctx, `DELETE FROM auth_nonces WHERE used = TRUE AND used_at < $1`, cutoff)
}

// CountExpiredNonces reports what DeleteExpiredNonces would remove.
func (s *PostgresStore) CountExpiredNonces(ctx context.Context, now time.Time) (int64, error) {
	return s.queryCount(ctx, `SELECT COUNT(*) FROM auth_nonces WHERE expires_at < $1`, now)
}

// CountUsedNoncesBefore reports what DeleteUsedNoncesBefore would remove.
func (s *PostgresStore) CountUsedNoncesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.queryCount(ctx, `SELECT COUNT(*) FROM auth_nonces WHERE used = TRUE AND used_at < $1`, cutoff)
}

// RecordAttempt appends one login attempt.
func (s *PostgresStore) RecordAttempt(ctx context.Context, attempt *core.AuthAttempt) error {
	query := `
		INSERT INTO auth_attempts (id, wallet_address, client_ip, success, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.db.ExecContext(ctx, query,
		attempt.ID, attempt.WalletAddress, attempt.ClientIP, attempt.Success, attempt.Reason, attempt.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: failed to record attempt: %v", core.ErrStoreUnavailable, err)
	}

	return nil
}

// ListRecentAttempts returns the most recent attempts, newest first.
func (s *PostgresStore) ListRecentAttempts(ctx context.Context, limit int) ([]core.AuthAttempt, error) {
	query := `
		SELECT id, wallet_address, client_ip, success, reason, created_at
		FROM auth_attempts
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list attempts: %v", core.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var attempts []core.AuthAttempt
	for rows.Next() {
		var a core.AuthAttempt
		if err := rows.Scan(&a.ID, &a.WalletAddress, &a.ClientIP, &a.Success, &a.Reason, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: failed to scan attempt: %v", core.ErrStoreUnavailable, err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to iterate attempts: %v", core.ErrStoreUnavailable, err)
	}

	return attempts, nil
}

// DeleteAttemptsBefore removes attempts created before cutoff.
func (s *PostgresStore) DeleteAttemptsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.execCount(ctx, `DELETE FROM auth_attempts WHERE created_at < $1`, cutoff)
}

// CountAttemptsBefore reports what DeleteAttemptsBefore would remove.
func (s *PostgresStore) CountAttemptsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.queryCount(ctx, `SELECT COUNT(*) FROM auth_attempts WHERE created_at < $1`, cutoff)
}

// RevokeToken inserts a blacklist row. A duplicate jti keeps the original
// row: revocation records are append-only audit state.
func (s *PostgresStore) RevokeToken(ctx context.Context, token *core.BlacklistedToken) error {
	query := `
		INSERT INTO blacklisted_tokens (jti, reason, expires_at, blacklisted_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (jti) DO NOTHING
	`

	_, err := s.db.ExecContext(ctx, query, token.JTI, token.Reason, token.ExpiresAt, token.BlacklistedAt)
	if err != nil {
		return fmt.Errorf("%w: failed to revoke token: %v", core.ErrStoreUnavailable, err)
	}

	return nil
}

// IsTokenRevoked reports whether the jti has been revoked.
func (s *PostgresStore) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM blacklisted_tokens WHERE jti = $1)`, jti).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: failed to check blacklist: %v", core.ErrStoreUnavailable, err)
	}

	return exists, nil
}

func (s *PostgresStore) execCount(ctx context.Context, query string, args ...interface{}) (int64, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}

	return n, nil
}

func (s *PostgresStore) queryCount(ctx context.Context, query string, args ...interface{}) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}

	return n, nil
}
