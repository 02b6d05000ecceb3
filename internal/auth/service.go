// Package auth implements the authentication service: registration, login
// with attempt throttling and temporary lockout, session issuance and
// validation, password reset tokens, and the security audit trail. It is
// the only entry point the HTTP layer uses; the stores never get called
// directly by handlers.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/stylistai/auth-service/internal/model"
	"github.com/stylistai/auth-service/internal/queue"
	"github.com/stylistai/auth-service/internal/repository"
	"github.com/stylistai/auth-service/internal/utils"
)

// Config carries the tunable policy knobs of the service. Zero values are
// replaced with the defaults below by NewService.
type Config struct {
	MaxAttempts      int           // failed logins before lockout
	LockoutDuration  time.Duration // how long a lock holds
	SessionTTL       time.Duration // absolute session lifetime
	HashIterations   int           // PBKDF2 rounds
	ResetTokenTTL    time.Duration // password reset token lifetime
	AuditRetention   int           // max audit rows kept by Sweep
	SessionRetention time.Duration // Sweep deletes sessions older than this
}

const (
	defaultMaxAttempts      = 5
	defaultLockoutDuration  = 15 * time.Minute
	defaultSessionTTL       = 24 * time.Hour
	defaultResetTokenTTL    = time.Hour
	defaultAuditRetention   = 10000
	defaultSessionRetention = 30 * 24 * time.Hour
)

// PublishFunc fans an audit event out to the message broker. The return
// value is ignored by the service; publish failures must never affect the
// primary operation.
type PublishFunc func(ctx context.Context, ev queue.SecurityEvent) error

// Service orchestrates the credential store, session store and audit log.
// All methods are safe for concurrent use; per-account atomicity is
// delegated to the stores.
type Service struct {
	accounts AccountStore
	sessions SessionStore
	audit    AuditStore
	cfg      Config
	publish  PublishFunc
	now      func() time.Time
}

// NewService wires the three stores together under the given policy
// configuration, filling in defaults for unset fields.
func NewService(accounts AccountStore, sessions SessionStore, audit AuditStore, cfg Config) *Service {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = defaultLockoutDuration
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaultSessionTTL
	}
	if cfg.HashIterations <= 0 {
		cfg.HashIterations = utils.DefaultIterations
	}
	if cfg.ResetTokenTTL <= 0 {
		cfg.ResetTokenTTL = defaultResetTokenTTL
	}
	if cfg.AuditRetention <= 0 {
		cfg.AuditRetention = defaultAuditRetention
	}
	if cfg.SessionRetention <= 0 {
		cfg.SessionRetention = defaultSessionRetention
	}
	return &Service{
		accounts: accounts,
		sessions: sessions,
		audit:    audit,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetPublisher attaches an optional best-effort audit fan-out. A nil
// publisher disables fan-out entirely.
func (s *Service) SetPublisher(fn PublishFunc) { s.publish = fn }

// RegisterInput is the full set of values accepted at registration.
// SourceAddr and ClientDesc are opaque caller context passed through to
// the audit trail.
type RegisterInput struct {
	Username   string
	Email      string
	Password   string
	IsAdmin    bool
	SourceAddr string
	ClientDesc string
}

// Register validates the input, creates the credential record and returns
// the new account's ID. Identifier uniqueness is enforced by the store at
// creation time; a conflict surfaces as repository.ErrUsernameExists or
// repository.ErrEmailExists.
func (s *Service) Register(ctx context.Context, in RegisterInput) (string, error) {
	if err := ValidateUsername(in.Username); err != nil {
		return "", err
	}
	if err := ValidateEmail(in.Email); err != nil {
		return "", err
	}
	if err := ValidatePassword(in.Password); err != nil {
		return "", err
	}

	// The very first account becomes the administrator, matching the
	// initial-setup flow of a fresh self-hosted install.
	if !in.IsAdmin {
		total, err := s.accounts.Count(ctx)
		if err != nil {
			return "", storeErr(err)
		}
		in.IsAdmin = total == 0
	}

	hash, salt, err := utils.HashPassword(in.Password, s.cfg.HashIterations)
	if err != nil {
		return "", storeErr(err)
	}
	acct := model.Account{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Salt:         salt,
		IsAdmin:      in.IsAdmin,
		IsActive:     true,
		CreatedAt:    s.now(),
	}
	if err := s.accounts.Create(ctx, &acct); err != nil {
		if errors.Is(err, repository.ErrUsernameExists) || errors.Is(err, repository.ErrEmailExists) {
			return "", err
		}
		return "", storeErr(err)
	}

	s.recordAudit(ctx, model.AuditEvent{
		UserID:     acct.ID,
		Action:     model.ActionUserCreated,
		Success:    true,
		Details:    fmt.Sprintf("user %q created", in.Username),
		SourceAddr: in.SourceAddr,
		ClientDesc: in.ClientDesc,
	})
	return acct.ID, nil
}

// Login runs the attempt state machine: unknown identifier, disabled
// account, active lock, password mismatch, or success. Every branch writes
// exactly one audit event before returning. A successful login is the only
// path that resets the failure counter and the only operation that issues
// a session.
func (s *Service) Login(ctx context.Context, identifier, password, sourceAddr, clientDesc string) (string, error) {
	acct, err := s.accounts.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.recordAudit(ctx, model.AuditEvent{
				Action:     model.ActionLoginFailed,
				Details:    fmt.Sprintf("identifier %q not found", identifier),
				SourceAddr: sourceAddr,
				ClientDesc: clientDesc,
			})
			return "", ErrInvalidCredentials
		}
		return "", storeErr(err)
	}

	if !acct.IsActive {
		s.recordAudit(ctx, model.AuditEvent{
			UserID:     acct.ID,
			Action:     model.ActionLoginFailed,
			Details:    "account is disabled",
			SourceAddr: sourceAddr,
			ClientDesc: clientDesc,
		})
		return "", ErrAccountDisabled
	}

	now := s.now()
	if d := EvaluateLockout(acct.FailedAttempts, acct.LockedUntil, now, s.cfg.MaxAttempts); !d.Allow {
		s.recordAudit(ctx, model.AuditEvent{
			UserID:     acct.ID,
			Action:     model.ActionLoginFailed,
			Details:    "account is locked",
			SourceAddr: sourceAddr,
			ClientDesc: clientDesc,
		})
		return "", &AccountLockedError{Remaining: d.Remaining}
	}

	if !utils.VerifyPassword(password, acct.PasswordHash, acct.Salt, s.cfg.HashIterations) {
		attempts, lockedUntil, err := s.accounts.RecordFailure(ctx, acct.ID, s.cfg.MaxAttempts, s.cfg.LockoutDuration)
		if err != nil {
			return "", storeErr(err)
		}
		s.recordAudit(ctx, model.AuditEvent{
			UserID:     acct.ID,
			Action:     model.ActionLoginFailed,
			Details:    fmt.Sprintf("invalid password (attempt %d)", attempts),
			SourceAddr: sourceAddr,
			ClientDesc: clientDesc,
		})
		if lockedUntil != nil && now.Before(*lockedUntil) {
			return "", &AccountLockedError{Remaining: lockedUntil.Sub(now)}
		}
		return "", ErrInvalidCredentials
	}

	if err := s.accounts.RecordSuccess(ctx, acct.ID, now); err != nil {
		return "", storeErr(err)
	}

	token, err := utils.NewSessionToken()
	if err != nil {
		return "", storeErr(err)
	}
	sess := model.Session{
		ID:           token,
		UserID:       acct.ID,
		CreatedAt:    now,
		LastActivity: now,
		ExpiresAt:    now.Add(s.cfg.SessionTTL),
		SourceAddr:   sourceAddr,
		ClientDesc:   clientDesc,
		IsActive:     true,
	}
	if err := s.sessions.Create(ctx, &sess); err != nil {
		return "", storeErr(err)
	}

	s.recordAudit(ctx, model.AuditEvent{
		UserID:     acct.ID,
		Action:     model.ActionLoginSuccess,
		Success:    true,
		Details:    "user logged in",
		SourceAddr: sourceAddr,
		ClientDesc: clientDesc,
	})
	return token, nil
}

// Validate resolves a session token to its owning account ID. It reports
// false for unknown, inactive or expired sessions and for sessions whose
// owner has been deactivated. Reading an expired session marks it inactive
// as a side effect. A hit refreshes last_activity but never extends
// expires_at.
func (s *Service) Validate(ctx context.Context, sessionID string) (string, bool) {
	if sessionID == "" {
		return "", false
	}
	sess, err := s.sessions.GetActive(ctx, sessionID)
	if err != nil {
		return "", false
	}
	acct, err := s.accounts.GetByID(ctx, sess.UserID)
	if err != nil || !acct.IsActive {
		return "", false
	}
	now := s.now()
	if now.After(sess.ExpiresAt) {
		if _, _, err := s.sessions.Deactivate(ctx, sessionID); err != nil {
			log.Printf("auth: deactivate expired session failed: %v", err)
		}
		return "", false
	}
	if err := s.sessions.Touch(ctx, sessionID, now); err != nil {
		log.Printf("auth: touch session failed: %v", err)
	}
	return sess.UserID, true
}

// Logout deactivates the session if it is still active and reports whether
// anything changed. Logging out twice is not an error; the second call
// returns false and writes no audit event.
func (s *Service) Logout(ctx context.Context, sessionID, sourceAddr, clientDesc string) bool {
	userID, deactivated, err := s.sessions.Deactivate(ctx, sessionID)
	if err != nil {
		log.Printf("auth: logout failed: %v", err)
		return false
	}
	if !deactivated {
		return false
	}
	s.recordAudit(ctx, model.AuditEvent{
		UserID:     userID,
		Action:     model.ActionLogout,
		Success:    true,
		Details:    "user logged out",
		SourceAddr: sourceAddr,
		ClientDesc: clientDesc,
	})
	return true
}

// Sweep deactivates expired sessions and prunes session and audit history
// beyond the retention limits. It runs periodically from a background
// goroutine, independent of any request, and tolerates partial failure.
func (s *Service) Sweep(ctx context.Context) error {
	now := s.now()
	var errs []error

	expired, err := s.sessions.DeactivateExpired(ctx, now)
	if err != nil {
		errs = append(errs, fmt.Errorf("deactivate expired sessions: %w", err))
	}
	deleted, err := s.sessions.DeleteOlderThan(ctx, now.Add(-s.cfg.SessionRetention))
	if err != nil {
		errs = append(errs, fmt.Errorf("prune sessions: %w", err))
	}
	pruned, err := s.audit.PruneBeyond(ctx, s.cfg.AuditRetention)
	if err != nil {
		errs = append(errs, fmt.Errorf("prune audit log: %w", err))
	}

	if len(errs) == 0 {
		log.Printf("auth: sweep expired=%d sessions_deleted=%d audit_pruned=%d", expired, deleted, pruned)
	}
	return errors.Join(errs...)
}

// Profile is the subset of an account safe to hand to the presentation
// layer. Credential material never leaves the service.
type Profile struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	IsAdmin   bool       `json:"is_admin"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

// GetProfile returns display data for an account.
func (s *Service) GetProfile(ctx context.Context, userID string) (Profile, error) {
	acct, err := s.accounts.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Profile{}, err
		}
		return Profile{}, storeErr(err)
	}
	return Profile{
		ID:        acct.ID,
		Username:  acct.Username,
		Email:     acct.Email,
		IsAdmin:   acct.IsAdmin,
		CreatedAt: acct.CreatedAt,
		LastLogin: acct.LastLogin,
	}, nil
}

// IsAdmin reports whether the account exists, is active and carries the
// admin flag.
func (s *Service) IsAdmin(ctx context.Context, userID string) bool {
	acct, err := s.accounts.GetByID(ctx, userID)
	return err == nil && acct.IsActive && acct.IsAdmin
}

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 500
)

// RecentAuditEvents returns up to limit audit entries, newest first. Only
// admin principals may read the log; the check lives here, not in the UI.
// The read itself is audited.
func (s *Service) RecentAuditEvents(ctx context.Context, callerID string, limit int) ([]model.AuditEvent, error) {
	caller, err := s.accounts.GetByID(ctx, callerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrForbidden
		}
		return nil, storeErr(err)
	}
	if !caller.IsActive || !caller.IsAdmin {
		return nil, ErrForbidden
	}
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}
	events, err := s.audit.Recent(ctx, limit)
	if err != nil {
		return nil, storeErr(err)
	}
	s.recordAudit(ctx, model.AuditEvent{
		UserID:  callerID,
		Action:  model.ActionAuditAccess,
		Success: true,
		Details: fmt.Sprintf("read %d audit events", len(events)),
	})
	return events, nil
}

// BeginPasswordReset issues a single-use reset token for the identified
// account and returns the raw token for out-of-band delivery. An unknown
// or disabled identifier yields an empty token with no error, so the
// endpoint reveals nothing about which identifiers exist.
func (s *Service) BeginPasswordReset(ctx context.Context, identifier, sourceAddr, clientDesc string) (string, error) {
	acct, err := s.accounts.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.recordAudit(ctx, model.AuditEvent{
				Action:     model.ActionPasswordResetBegin,
				Details:    fmt.Sprintf("identifier %q not found", identifier),
				SourceAddr: sourceAddr,
				ClientDesc: clientDesc,
			})
			return "", nil
		}
		return "", storeErr(err)
	}
	if !acct.IsActive {
		s.recordAudit(ctx, model.AuditEvent{
			UserID:     acct.ID,
			Action:     model.ActionPasswordResetBegin,
			Details:    "account is disabled",
			SourceAddr: sourceAddr,
			ClientDesc: clientDesc,
		})
		return "", nil
	}

	raw, err := utils.NewResetToken()
	if err != nil {
		return "", storeErr(err)
	}
	expires := s.now().Add(s.cfg.ResetTokenTTL)
	if err := s.accounts.SetResetToken(ctx, acct.ID, utils.HashToken(raw), expires); err != nil {
		return "", storeErr(err)
	}
	s.recordAudit(ctx, model.AuditEvent{
		UserID:     acct.ID,
		Action:     model.ActionPasswordResetBegin,
		Success:    true,
		Details:    "password reset token issued",
		SourceAddr: sourceAddr,
		ClientDesc: clientDesc,
	})
	return raw, nil
}

// CompletePasswordReset consumes a reset token, installs the new password
// and revokes every active session for the account. The token is single
// use: the store clears it together with the password swap.
func (s *Service) CompletePasswordReset(ctx context.Context, token, newPassword, sourceAddr, clientDesc string) error {
	if token == "" {
		return ErrInvalidResetToken
	}
	acct, err := s.accounts.GetByResetToken(ctx, utils.HashToken(token))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return storeErr(err)
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	hash, salt, err := utils.HashPassword(newPassword, s.cfg.HashIterations)
	if err != nil {
		return storeErr(err)
	}
	if err := s.accounts.UpdatePassword(ctx, acct.ID, hash, salt); err != nil {
		return storeErr(err)
	}
	if _, err := s.sessions.DeactivateAllFor(ctx, acct.ID); err != nil {
		log.Printf("auth: revoke sessions after reset failed: %v", err)
	}
	s.recordAudit(ctx, model.AuditEvent{
		UserID:     acct.ID,
		Action:     model.ActionPasswordReset,
		Success:    true,
		Details:    "password reset completed",
		SourceAddr: sourceAddr,
		ClientDesc: clientDesc,
	})
	return nil
}

// recordAudit appends the event synchronously so it is durable before the
// primary operation reports its result, then fans it out to the broker in
// the background. An append failure is logged and swallowed: losing an
// audit side channel must not fail a login or logout that already
// committed.
func (s *Service) recordAudit(ctx context.Context, ev model.AuditEvent) {
	ev.Timestamp = s.now()
	if err := s.audit.Append(ctx, &ev); err != nil {
		log.Printf("audit: append %s failed: %v", ev.Action, err)
	}
	if s.publish == nil {
		return
	}
	msg := queue.SecurityEvent{
		UserID:     ev.UserID,
		Action:     ev.Action,
		Success:    ev.Success,
		Details:    ev.Details,
		SourceAddr: ev.SourceAddr,
		ClientDesc: ev.ClientDesc,
		Timestamp:  ev.Timestamp.Format(time.RFC3339),
	}
	go func() {
		pctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.publish(pctx, msg)
	}()
}
