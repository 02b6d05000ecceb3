package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/stylistai/auth-service/internal/model"
)

// AccountRepo persists credential records in the 'user_auth' table.
// Identifier comparisons are exact-match as stored; normalization is the
// caller's concern.
type AccountRepo struct{ DB *sql.DB }

func NewAccountRepo(db *sql.DB) *AccountRepo { return &AccountRepo{DB: db} }

const accountColumns = `user_id, username, email, password_hash, salt, is_admin, is_active,
	failed_login_attempts, locked_until, password_reset_token, password_reset_expires,
	last_login, created_at`

func scanAccount(row *sql.Row) (model.Account, error) {
	var (
		a            model.Account
		lockedUntil  sql.NullTime
		resetToken   sql.NullString
		resetExpires sql.NullTime
		lastLogin    sql.NullTime
	)
	err := row.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.Salt, &a.IsAdmin, &a.IsActive,
		&a.FailedAttempts, &lockedUntil, &resetToken, &resetExpires, &lastLogin, &a.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.Account{}, ErrNotFound
		}
		return model.Account{}, err
	}
	if lockedUntil.Valid {
		t := lockedUntil.Time
		a.LockedUntil = &t
	}
	if resetToken.Valid {
		v := resetToken.String
		a.ResetTokenHash = &v
	}
	if resetExpires.Valid {
		t := resetExpires.Time
		a.ResetExpiresAt = &t
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		a.LastLogin = &t
	}
	return a, nil
}

// Create inserts a new credential record. Uniqueness of username and email
// is enforced here: a pre-check names the conflicting field, and the table's
// unique indexes back it up against concurrent registrations.
func (r *AccountRepo) Create(ctx context.Context, acct *model.Account) error {
	var existingUser, existingEmail string
	err := r.DB.QueryRowContext(ctx,
		"SELECT username, email FROM user_auth WHERE username=? OR email=? LIMIT 1",
		acct.Username, acct.Email).Scan(&existingUser, &existingEmail)
	switch {
	case err == nil:
		if existingUser == acct.Username {
			return ErrUsernameExists
		}
		return ErrEmailExists
	case err != sql.ErrNoRows:
		return err
	}

	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO user_auth (user_id, username, email, password_hash, salt, is_admin, is_active, failed_login_attempts, created_at)
		 VALUES (?,?,?,?,?,?,?,0,?)`,
		acct.ID, acct.Username, acct.Email, acct.PasswordHash, acct.Salt, acct.IsAdmin, acct.IsActive, acct.CreatedAt)
	if err != nil {
		if msg := strings.ToLower(err.Error()); strings.Contains(msg, "1062") {
			if strings.Contains(msg, "email") {
				return ErrEmailExists
			}
			return ErrUsernameExists
		}
		return err
	}
	return nil
}

// Count returns the total number of credential records.
func (r *AccountRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM user_auth").Scan(&n)
	return n, err
}

// GetByIdentifier fetches an account by username or email.
func (r *AccountRepo) GetByIdentifier(ctx context.Context, identifier string) (model.Account, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM user_auth WHERE username=? OR email=? LIMIT 1",
		identifier, identifier)
	return scanAccount(row)
}

// GetByID fetches an account by its user ID.
func (r *AccountRepo) GetByID(ctx context.Context, id string) (model.Account, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM user_auth WHERE user_id=? LIMIT 1", id)
	return scanAccount(row)
}

// RecordFailure bumps the failure counter and applies the lock when the
// new count reaches maxAttempts, all in one statement so two concurrent
// failed logins cannot under-count. MySQL applies SET assignments left to
// right, so failed_login_attempts already holds the incremented value when
// the IF runs.
func (r *AccountRepo) RecordFailure(ctx context.Context, userID string, maxAttempts int, lockFor time.Duration) (int, *time.Time, error) {
	lockAt := time.Now().UTC().Add(lockFor)
	_, err := r.DB.ExecContext(ctx,
		`UPDATE user_auth
		    SET failed_login_attempts = failed_login_attempts + 1,
		        locked_until = IF(failed_login_attempts >= ?, ?, locked_until)
		  WHERE user_id = ?`,
		maxAttempts, lockAt, userID)
	if err != nil {
		return 0, nil, err
	}

	var (
		attempts    int
		lockedUntil sql.NullTime
	)
	err = r.DB.QueryRowContext(ctx,
		"SELECT failed_login_attempts, locked_until FROM user_auth WHERE user_id=?",
		userID).Scan(&attempts, &lockedUntil)
	if err != nil {
		return 0, nil, err
	}
	if lockedUntil.Valid {
		t := lockedUntil.Time
		return attempts, &t, nil
	}
	return attempts, nil, nil
}

// RecordSuccess resets the lockout state and stamps last_login.
func (r *AccountRepo) RecordSuccess(ctx context.Context, userID string, at time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE user_auth SET failed_login_attempts=0, locked_until=NULL, last_login=? WHERE user_id=?",
		at, userID)
	return err
}

// SetResetToken stores the hash and expiry of a freshly issued password
// reset token, replacing any previous one.
func (r *AccountRepo) SetResetToken(ctx context.Context, userID, tokenHash string, expires time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE user_auth SET password_reset_token=?, password_reset_expires=? WHERE user_id=?",
		tokenHash, expires, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByResetToken fetches the account holding a non-expired reset token
// hash. Expired tokens behave as if they never existed.
func (r *AccountRepo) GetByResetToken(ctx context.Context, tokenHash string) (model.Account, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM user_auth WHERE password_reset_token=? LIMIT 1", tokenHash)
	acct, err := scanAccount(row)
	if err != nil {
		return model.Account{}, err
	}
	if acct.ResetExpiresAt == nil || time.Now().UTC().After(*acct.ResetExpiresAt) {
		return model.Account{}, ErrNotFound
	}
	return acct, nil
}

// UpdatePassword installs new credential material, consumes the reset
// token and clears the lockout state in one statement.
func (r *AccountRepo) UpdatePassword(ctx context.Context, userID, passwordHash, salt string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE user_auth
		    SET password_hash=?, salt=?,
		        password_reset_token=NULL, password_reset_expires=NULL,
		        failed_login_attempts=0, locked_until=NULL
		  WHERE user_id=?`,
		passwordHash, salt, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
