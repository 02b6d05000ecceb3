package model

import "time"

// Audit actions recorded by the authentication service. Stored as plain
// strings in the `security_audit_log` table.
const (
	ActionUserCreated        = "USER_CREATED"
	ActionLoginSuccess       = "LOGIN_SUCCESS"
	ActionLoginFailed        = "LOGIN_FAILED"
	ActionLogout             = "LOGOUT"
	ActionPasswordResetBegin = "PASSWORD_RESET_REQUESTED"
	ActionPasswordReset      = "PASSWORD_RESET"
	ActionAuditAccess        = "AUDIT_ACCESS"
)

// AuditEvent is an append-only record of a security-relevant action.
// Rows are never updated in place; retention is bounded by the sweep,
// which prunes the oldest entries beyond a configured cap.
//
// Fields:
//  ID         – monotonic identifier (AUTO_INCREMENT).
//  UserID     – acting principal; empty when the actor is unknown,
//               e.g. a failed login with an unknown identifier.
//  Action     – one of the Action* constants above.
//  Success    – whether the recorded action succeeded.
//  Details    – free-text description of the event.
//  SourceAddr – caller-supplied client address, stored verbatim.
//  ClientDesc – caller-supplied client descriptor, stored verbatim.
//  Timestamp  – when the event occurred (UTC).
type AuditEvent struct {
	ID         uint64    // security_audit_log.id
	UserID     string    // security_audit_log.user_id (empty when unknown)
	Action     string    // security_audit_log.action
	Success    bool      // security_audit_log.success
	Details    string    // security_audit_log.details
	SourceAddr string    // security_audit_log.ip_address
	ClientDesc string    // security_audit_log.user_agent
	Timestamp  time.Time // security_audit_log.timestamp
}
