package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/stylistai/auth-service/internal/model"
)

// SessionRepo persists sessions in the 'user_sessions' table. The session
// token itself is the primary key; callers generate it with enough entropy
// that it is unguessable.
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

// Create deactivates every active session of the owning account and
// inserts the new one inside a single transaction, keeping the
// one-active-session-per-account invariant under concurrent logins.
func (r *SessionRepo) Create(ctx context.Context, sess *model.Session) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"UPDATE user_sessions SET is_active=0 WHERE user_id=? AND is_active=1",
		sess.UserID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO user_sessions (session_id, user_id, created_at, last_activity, expires_at, ip_address, user_agent, is_active)
		 VALUES (?,?,?,?,?,?,?,1)`,
		sess.ID, sess.UserID, sess.CreatedAt, sess.LastActivity, sess.ExpiresAt,
		sess.SourceAddr, sess.ClientDesc); err != nil {
		return err
	}
	return tx.Commit()
}

// GetActive fetches a session by token, active rows only. Expiry is the
// service's call; the row is returned even when expires_at has passed so
// the service can deactivate it as a side effect of reading.
func (r *SessionRepo) GetActive(ctx context.Context, sessionID string) (model.Session, error) {
	var s model.Session
	var active int
	err := r.DB.QueryRowContext(ctx,
		`SELECT session_id, user_id, created_at, last_activity, expires_at, ip_address, user_agent, is_active
		   FROM user_sessions WHERE session_id=? AND is_active=1 LIMIT 1`,
		sessionID).Scan(&s.ID, &s.UserID, &s.CreatedAt, &s.LastActivity, &s.ExpiresAt,
		&s.SourceAddr, &s.ClientDesc, &active)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.Session{}, ErrNotFound
		}
		return model.Session{}, err
	}
	s.IsActive = active == 1
	return s, nil
}

// Touch bumps last_activity. expires_at is never moved: sessions carry an
// absolute expiry fixed at creation.
func (r *SessionRepo) Touch(ctx context.Context, sessionID string, at time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE user_sessions SET last_activity=? WHERE session_id=?", at, sessionID)
	return err
}

// Deactivate flips a single session inactive. It reports the owner and
// whether a row actually changed; a second call on the same session
// changes nothing and reports false.
func (r *SessionRepo) Deactivate(ctx context.Context, sessionID string) (string, bool, error) {
	var userID string
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id FROM user_sessions WHERE session_id=? LIMIT 1", sessionID).Scan(&userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, err
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE user_sessions SET is_active=0 WHERE session_id=? AND is_active=1", sessionID)
	if err != nil {
		return "", false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", false, err
	}
	return userID, n > 0, nil
}

// DeactivateAllFor revokes every active session of one account.
func (r *SessionRepo) DeactivateAllFor(ctx context.Context, userID string) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE user_sessions SET is_active=0 WHERE user_id=? AND is_active=1", userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeactivateExpired bulk-deactivates every active session past its expiry.
// Run by the background sweeper.
func (r *SessionRepo) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE user_sessions SET is_active=0 WHERE is_active=1 AND expires_at < ?", now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteOlderThan prunes session rows created before the cutoff. Inactive
// rows are kept until then for audit continuity.
func (r *SessionRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM user_sessions WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
