package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/muralhq/walletgate/core"
	"github.com/muralhq/walletgate/ports"
)

// Janitor reclaims credential hygiene state on a schedule: expired nonces,
// long-consumed nonces, and stale auth attempts. Deletes are commutative
// and safe against live traffic; a cancelled run leaves the remainder for
// the next one.
type Janitor struct {
	nonces   ports.NonceStore
	attempts ports.AttemptLog
	events   ports.EventPublisher
	log      *slog.Logger

	usedNonceRetention time.Duration
	attemptRetention   time.Duration
}

// NewJanitor creates a janitor with the given retention windows.
func NewJanitor(
	nonces ports.NonceStore,
	attempts ports.AttemptLog,
	events ports.EventPublisher,
	log *slog.Logger,
	usedNonceRetention, attemptRetention time.Duration,
) *Janitor {
	return &Janitor{
		nonces:             nonces,
		attempts:           attempts,
		events:             events,
		log:                log,
		usedNonceRetention: usedNonceRetention,
		attemptRetention:   attemptRetention,
	}
}

// RunCleanup deletes expired nonces, used nonces past the used-nonce
// retention, and attempts past the attempt retention. The categories are
// independent: one failing delete never aborts the others, and the report
// carries both the counts that succeeded and the errors that occurred.
func (j *Janitor) RunCleanup(ctx context.Context) *core.CleanupReport {
	now := time.Now()
	report := &core.CleanupReport{}

	report.ExpiredNonces, report.ExpiredNoncesErr = j.nonces.DeleteExpiredNonces(ctx, now)
	report.OldUsedNonces, report.OldUsedNoncesErr = j.nonces.DeleteUsedNoncesBefore(ctx, now.Add(-j.usedNonceRetention))
	report.OldAuthAttempts, report.OldAuthAttemptsErr = j.attempts.DeleteAttemptsBefore(ctx, now.Add(-j.attemptRetention))

	j.logReport(report)

	if err := j.events.PublishCleanupCompleted(ctx, report); err != nil {
		j.log.Warn("failed to publish cleanup event", "error", err)
	}

	return report
}

// DryRun reports what RunCleanup would delete without mutating state.
func (j *Janitor) DryRun(ctx context.Context) *core.CleanupReport {
	now := time.Now()
	report := &core.CleanupReport{DryRun: true}

	report.ExpiredNonces, report.ExpiredNoncesErr = j.nonces.CountExpiredNonces(ctx, now)
	report.OldUsedNonces, report.OldUsedNoncesErr = j.nonces.CountUsedNoncesBefore(ctx, now.Add(-j.usedNonceRetention))
	report.OldAuthAttempts, report.OldAuthAttemptsErr = j.attempts.CountAttemptsBefore(ctx, now.Add(-j.attemptRetention))

	return report
}

// Run executes cleanup on the given interval until ctx is cancelled. The
// first run happens after one full interval, not at startup.
func (j *Janitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.log.Info("janitor stopped")
			return
		case <-ticker.C:
			j.RunCleanup(ctx)
		}
	}
}

func (j *Janitor) logReport(report *core.CleanupReport) {
	j.log.Info("cleanup run completed",
		"expired_nonces", report.ExpiredNonces,
		"old_used_nonces", report.OldUsedNonces,
		"old_auth_attempts", report.OldAuthAttempts)

	if err := report.ExpiredNoncesErr; err != nil {
		j.log.Error("cleanup: expired nonce delete failed", "error", err)
	}
	if err := report.OldUsedNoncesErr; err != nil {
		j.log.Error("cleanup: used nonce delete failed", "error", err)
	}
	if err := report.OldAuthAttemptsErr; err != nil {
		j.log.Error("cleanup: attempt delete failed", "error", err)
	}
}
