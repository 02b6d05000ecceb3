package auth

import (
	"context"
	"time"

	"github.com/stylistai/auth-service/internal/model"
)

// AccountStore is the persistence contract for credential records. The
// SQL implementation lives in internal/repository; tests substitute an
// in-memory version. Lookup methods return repository.ErrNotFound when no
// row matches; Create returns repository.ErrUsernameExists or
// repository.ErrEmailExists on a uniqueness conflict.
type AccountStore interface {
	Create(ctx context.Context, acct *model.Account) error
	Count(ctx context.Context) (int64, error)
	GetByIdentifier(ctx context.Context, identifier string) (model.Account, error)
	GetByID(ctx context.Context, id string) (model.Account, error)

	// RecordFailure atomically increments the failure counter and, when
	// the new count reaches maxAttempts, sets locked_until = now + lockFor.
	// It returns the post-increment counter and lock timestamp.
	RecordFailure(ctx context.Context, userID string, maxAttempts int, lockFor time.Duration) (int, *time.Time, error)

	// RecordSuccess resets the failure counter, clears any lock and stamps
	// last_login.
	RecordSuccess(ctx context.Context, userID string, at time.Time) error

	SetResetToken(ctx context.Context, userID, tokenHash string, expires time.Time) error
	GetByResetToken(ctx context.Context, tokenHash string) (model.Account, error)

	// UpdatePassword swaps in new credential material, clears any
	// outstanding reset token and resets the lockout state.
	UpdatePassword(ctx context.Context, userID, passwordHash, salt string) error
}

// SessionStore is the persistence contract for issued sessions.
type SessionStore interface {
	// Create inserts the session and deactivates every previously active
	// session for the same account as one atomic unit.
	Create(ctx context.Context, sess *model.Session) error

	GetActive(ctx context.Context, sessionID string) (model.Session, error)
	Touch(ctx context.Context, sessionID string, at time.Time) error

	// Deactivate flips is_active on a single session. It reports the owner
	// and whether a row actually changed, so logout stays idempotent.
	Deactivate(ctx context.Context, sessionID string) (userID string, deactivated bool, err error)

	DeactivateAllFor(ctx context.Context, userID string) (int64, error)
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// AuditStore is the persistence contract for the append-only audit log.
type AuditStore interface {
	Append(ctx context.Context, ev *model.AuditEvent) error
	Recent(ctx context.Context, limit int) ([]model.AuditEvent, error)

	// PruneBeyond deletes the oldest entries so that at most keep rows
	// remain. Entries are never mutated in place.
	PruneBeyond(ctx context.Context, keep int) (int64, error)
}
