package model

import "time"

// Account represents a principal's credential record as stored in the
// `user_auth` table. Each field corresponds to a column in the database.
// The json tags are omitted because these structs are used internally by
// the repository layer; handlers define separate response types with
// appropriate JSON tags.
//
// Fields:
//  ID              – opaque identifier generated at registration, immutable.
//  Username        – unique login handle, immutable.
//  Email           – unique email address, immutable.
//  PasswordHash    – PBKDF2 hex digest of the password.
//  Salt            – per-account hex salt fed into the derivation.
//  IsAdmin         – whether the account may read the audit log.
//  IsActive        – false disables authentication without deleting history.
//  FailedAttempts  – consecutive failed logins since the last success.
//  LockedUntil     – login is rejected while now < LockedUntil (nullable).
//  ResetTokenHash  – SHA-256 hex digest of an outstanding password reset token (nullable).
//  ResetExpiresAt  – when the outstanding reset token expires (nullable).
//  LastLogin       – timestamp of the last successful login (nullable).
//  CreatedAt       – timestamp of creation.
type Account struct {
	ID             string     // user_auth.user_id
	Username       string     // user_auth.username
	Email          string     // user_auth.email
	PasswordHash   string     // user_auth.password_hash
	Salt           string     // user_auth.salt
	IsAdmin        bool       // user_auth.is_admin
	IsActive       bool       // user_auth.is_active
	FailedAttempts int        // user_auth.failed_login_attempts
	LockedUntil    *time.Time // user_auth.locked_until (nullable)
	ResetTokenHash *string    // user_auth.password_reset_token (nullable)
	ResetExpiresAt *time.Time // user_auth.password_reset_expires (nullable)
	LastLogin      *time.Time // user_auth.last_login (nullable)
	CreatedAt      time.Time  // user_auth.created_at
}
