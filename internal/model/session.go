package model

import "time"

// Session models an entry in the `user_sessions` table. A session is a
// time-bounded, revocable proof of a prior successful login, referenced
// by an opaque random token. Only one session per account is active at a
// time; issuing a new one deactivates the rest. Revoked and expired rows
// are kept (is_active = false) until the retention sweep deletes them.
//
// Fields:
//  ID           – opaque random token, primary key.
//  UserID       – owner of the session.
//  CreatedAt    – when the session was issued.
//  LastActivity – refreshed on every successful validation.
//  ExpiresAt    – absolute expiry, fixed at creation (no sliding window).
//  SourceAddr   – client address recorded at login.
//  ClientDesc   – client descriptor (user agent) recorded at login.
//  IsActive     – false once revoked, superseded or expired.
type Session struct {
	ID           string    // user_sessions.session_id
	UserID       string    // user_sessions.user_id
	CreatedAt    time.Time // user_sessions.created_at
	LastActivity time.Time // user_sessions.last_activity
	ExpiresAt    time.Time // user_sessions.expires_at
	SourceAddr   string    // user_sessions.ip_address
	ClientDesc   string    // user_sessions.user_agent
	IsActive     bool      // user_sessions.is_active
}
