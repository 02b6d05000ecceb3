package auth

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stylistai/auth-service/internal/model"
	"github.com/stylistai/auth-service/internal/repository"
)

// ----- in-memory store fakes -----

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type memAccounts struct {
	mu   sync.Mutex
	byID map[string]*model.Account
	now  func() time.Time
}

func (m *memAccounts) Create(_ context.Context, acct *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.Username == acct.Username {
			return repository.ErrUsernameExists
		}
		if a.Email == acct.Email {
			return repository.ErrEmailExists
		}
	}
	cp := *acct
	m.byID[acct.ID] = &cp
	return nil
}

func (m *memAccounts) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.byID)), nil
}

func (m *memAccounts) GetByIdentifier(_ context.Context, identifier string) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.Username == identifier || a.Email == identifier {
			return *a, nil
		}
	}
	return model.Account{}, repository.ErrNotFound
}

func (m *memAccounts) GetByID(_ context.Context, id string) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.byID[id]; ok {
		return *a, nil
	}
	return model.Account{}, repository.ErrNotFound
}

func (m *memAccounts) RecordFailure(_ context.Context, userID string, maxAttempts int, lockFor time.Duration) (int, *time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[userID]
	if !ok {
		return 0, nil, repository.ErrNotFound
	}
	a.FailedAttempts++
	if a.FailedAttempts >= maxAttempts {
		lockAt := m.now().Add(lockFor)
		a.LockedUntil = &lockAt
	}
	return a.FailedAttempts, a.LockedUntil, nil
}

func (m *memAccounts) RecordSuccess(_ context.Context, userID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[userID]
	if !ok {
		return repository.ErrNotFound
	}
	a.FailedAttempts = 0
	a.LockedUntil = nil
	t := at
	a.LastLogin = &t
	return nil
}

func (m *memAccounts) SetResetToken(_ context.Context, userID, tokenHash string, expires time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[userID]
	if !ok {
		return repository.ErrNotFound
	}
	h, e := tokenHash, expires
	a.ResetTokenHash = &h
	a.ResetExpiresAt = &e
	return nil
}

func (m *memAccounts) GetByResetToken(_ context.Context, tokenHash string) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.ResetTokenHash != nil && *a.ResetTokenHash == tokenHash {
			if a.ResetExpiresAt == nil || m.now().After(*a.ResetExpiresAt) {
				return model.Account{}, repository.ErrNotFound
			}
			return *a, nil
		}
	}
	return model.Account{}, repository.ErrNotFound
}

func (m *memAccounts) UpdatePassword(_ context.Context, userID, passwordHash, salt string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[userID]
	if !ok {
		return repository.ErrNotFound
	}
	a.PasswordHash = passwordHash
	a.Salt = salt
	a.ResetTokenHash = nil
	a.ResetExpiresAt = nil
	a.FailedAttempts = 0
	a.LockedUntil = nil
	return nil
}

type memSessions struct {
	mu   sync.Mutex
	byID map[string]*model.Session
}

func (m *memSessions) Create(_ context.Context, sess *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.byID {
		if s.UserID == sess.UserID && s.IsActive {
			s.IsActive = false
		}
	}
	cp := *sess
	m.byID[sess.ID] = &cp
	return nil
}

func (m *memSessions) GetActive(_ context.Context, id string) (model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.byID[id]; ok && s.IsActive {
		return *s, nil
	}
	return model.Session{}, repository.ErrNotFound
}

func (m *memSessions) Touch(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.byID[id]; ok {
		s.LastActivity = at
	}
	return nil
}

func (m *memSessions) Deactivate(_ context.Context, id string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return "", false, nil
	}
	if !s.IsActive {
		return s.UserID, false, nil
	}
	s.IsActive = false
	return s.UserID, true, nil
}

func (m *memSessions) DeactivateAllFor(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, s := range m.byID {
		if s.UserID == userID && s.IsActive {
			s.IsActive = false
			n++
		}
	}
	return n, nil
}

func (m *memSessions) DeactivateExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, s := range m.byID {
		if s.IsActive && now.After(s.ExpiresAt) {
			s.IsActive = false
			n++
		}
	}
	return n, nil
}

func (m *memSessions) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.byID {
		if s.CreatedAt.Before(cutoff) {
			delete(m.byID, id)
			n++
		}
	}
	return n, nil
}

type memAudit struct {
	mu        sync.Mutex
	events    []model.AuditEvent
	nextID    uint64
	appendErr error
}

func (m *memAudit) Append(_ context.Context, ev *model.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.nextID++
	ev.ID = m.nextID
	m.events = append(m.events, *ev)
	return nil
}

func (m *memAudit) Recent(_ context.Context, limit int) ([]model.AuditEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.AuditEvent, len(m.events))
	copy(out, m.events)
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memAudit) PruneBeyond(_ context.Context, keep int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.events) <= keep {
		return 0, nil
	}
	n := int64(len(m.events) - keep)
	m.events = append([]model.AuditEvent(nil), m.events[len(m.events)-keep:]...)
	return n, nil
}

// byAction returns all recorded events with the given action, oldest first.
func (m *memAudit) byAction(action string) []model.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.AuditEvent
	for _, ev := range m.events {
		if ev.Action == action {
			out = append(out, ev)
		}
	}
	return out
}

// ----- fixture -----

type fixture struct {
	svc      *Service
	accounts *memAccounts
	sessions *memSessions
	audit    *memAudit
	clock    *fakeClock
}

func newFixture(cfg Config) *fixture {
	clock := newFakeClock()
	accounts := &memAccounts{byID: make(map[string]*model.Account), now: clock.Now}
	sessions := &memSessions{byID: make(map[string]*model.Session)}
	audit := &memAudit{}
	if cfg.HashIterations == 0 {
		cfg.HashIterations = 256
	}
	svc := NewService(accounts, sessions, audit, cfg)
	svc.now = clock.Now
	return &fixture{svc: svc, accounts: accounts, sessions: sessions, audit: audit, clock: clock}
}

func (f *fixture) register(t *testing.T, username, email, password string) string {
	t.Helper()
	id, err := f.svc.Register(context.Background(), RegisterInput{
		Username: username,
		Email:    email,
		Password: password,
	})
	require.NoError(t, err)
	return id
}

const (
	goodPassword = "Str0ng!Pass"
	otherGood    = "An0ther#Good"
)

// ----- tests -----

func TestRegisterLoginValidate_EndToEnd(t *testing.T) {
	f := newFixture(Config{})
	ctx := context.Background()

	userID := f.register(t, "alice", "a@x.com", goodPassword)
	require.NotEmpty(t, userID)

	sessionID, err := f.svc.Login(ctx, "alice", goodPassword, "10.0.0.1", "test-agent")
	require.NoError(t, err)
	require.NotEmpty(t, sessionID)

	got, ok := f.svc.Validate(ctx, sessionID)
	require.True(t, ok)
	assert.Equal(t, userID, got)

	// Login works with the email identifier, too.
	sessionID2, err := f.svc.Login(ctx, "a@x.com", goodPassword, "10.0.0.1", "test-agent")
	require.NoError(t, err)
	require.NotEmpty(t, sessionID2)

	created := f.audit.byAction(model.ActionUserCreated)
	require.Len(t, created, 1)
	assert.True(t, created[0].Success)
	assert.Equal(t, userID, created[0].UserID)
	assert.Len(t, f.audit.byAction(model.ActionLoginSuccess), 2)
}

func TestRegister_FirstAccountBecomesAdmin(t *testing.T) {
	f := newFixture(Config{})
	ctx := context.Background()

	firstID := f.register(t, "alice", "a@x.com", goodPassword)
	secondID := f.register(t, "bob", "b@x.com", goodPassword)

	first, err := f.accounts.GetByID(ctx, firstID)
	require.NoError(t, err)
	second, err := f.accounts.GetByID(ctx, secondID)
	require.NoError(t, err)
	assert.True(t, first.IsAdmin)
	assert.False(t, second.IsAdmin)
}

func TestRegister_Rejections(t *testing.T) {
	f := newFixture(Config{})
	ctx := context.Background()
	f.register(t, "alice", "a@x.com", goodPassword)

	_, err := f.svc.Register(ctx, RegisterInput{Username: "ab", Email: "c@x.com", Password: goodPassword})
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)

	_, err = f.svc.Register(ctx, RegisterInput{Username: "carol", Email: "c@x.com", Password: "alllowercase1!"})
	assert.ErrorAs(t, err, &ve)

	_, err = f.svc.Register(ctx, RegisterInput{Username: "carol", Email: "c@x.com", Password: "Password1!"})
	assert.ErrorAs(t, err, &ve)

	_, err = f.svc.Register(ctx, RegisterInput{Username: "alice", Email: "c@x.com", Password: goodPassword})
	assert.ErrorIs(t, err, repository.ErrUsernameExists)

	// Same email under a different username is still a conflict.
	_, err = f.svc.Register(ctx, RegisterInput{Username: "alice2", Email: "a@x.com", Password: goodPassword})
	assert.ErrorIs(t, err, repository.ErrEmailExists)
}

func TestLogin_UnknownIdentifier(t *testing.T) {
	f := newFixture(Config{})

	_, err := f.svc.Login(context.Background(), "nobody", goodPassword, "10.0.0.1", "test-agent")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	failed := f.audit.byAction(model.ActionLoginFailed)
	require.Len(t, failed, 1)
	assert.Empty(t, failed[0].UserID)
	assert.False(t, failed[0].Success)
}

func TestLogin_DisabledAccount(t *testing.T) {
	f := newFixture(Config{})
	ctx := context.Background()
	userID := f.register(t, "alice", "a@x.com", goodPassword)
	f.accounts.byID[userID].IsActive = false

	_, err := f.svc.Login(ctx, "alice", goodPassword, "10.0.0.1", "test-agent")
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestLogin_LockoutAfterMaxAttempts(t *testing.T) {
	f := newFixture(Config{MaxAttempts: 5, LockoutDuration: 15 * time.Minute})
	ctx := context.Background()
	f.register(t, "alice", "a@x.com", goodPassword)

	// Four failures stay plain invalid-credential rejections.
	for i := 0; i < 4; i++ {
		_, err := f.svc.Login(ctx, "alice", "Wr0ng!Pass", "10.0.0.1", "test-agent")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}

	// The fifth failure crosses the threshold and reports the lock.
	_, err := f.svc.Login(ctx, "alice", "Wr0ng!Pass", "10.0.0.1", "test-agent")
	var locked *AccountLockedError
	require.ErrorAs(t, err, &locked)
	assert.Greater(t, locked.Remaining, time.Duration(0))

	// Even the correct password is rejected while the lock holds.
	_, err = f.svc.Login(ctx, "alice", goodPassword, "10.0.0.1", "test-agent")
	require.ErrorAs(t, err, &locked)

	// One audit event per attempt, all failures.
	assert.Len(t, f.audit.byAction(model.ActionLoginFailed), 6)
	assert.Empty(t, f.audit.byAction(model.ActionLoginSuccess))
}

func TestLogin_SuccessAfterLockExpiryResetsCounter(t *testing.T) {
	f := newFixture(Config{MaxAttempts: 5, LockoutDuration: 15 * time.Minute})
	ctx := context.Background()
	userID := f.register(t, "alice", "a@x.com", goodPassword)

	for i := 0; i < 5; i++ {
		_, _ = f.svc.Login(ctx, "alice", "Wr0ng!Pass", "10.0.0.1", "test-agent")
	}
	f.clock.Advance(16 * time.Minute)

	sessionID, err := f.svc.Login(ctx, "alice", goodPassword, "10.0.0.1", "test-agent")
	require.NoError(t, err)
	require.NotEmpty(t, sessionID)

	acct, err := f.accounts.GetByID(ctx, userID)
	require.NoError(t, err)
	assert.Zero(t, acct.FailedAttempts)
	assert.Nil(t, acct.LockedUntil)
	require.NotNil(t, acct.LastLogin)
}

func TestLogin_CounterPersistsAcrossLockExpiry(t *testing.T) {
	f := newFixture(Config{MaxAttempts: 5, LockoutDuration: 15 * time.Minute})
	ctx := context.Background()
	f.register(t, "alice", "a@x.com", goodPassword)

	for i := 0; i < 5; i++ {
		_, _ = f.svc.Login(ctx, "alice", "Wr0ng!Pass", "10.0.0.1", "test-agent")
	}
	f.clock.Advance(16 * time.Minute)

	// The counter was not reset by expiry, so one more failure re-locks.
	_, err := f.svc.Login(ctx, "alice", "Wr0ng!Pass", "10.0.0.1", "test-agent")
	var locked *AccountLockedError
	assert.ErrorAs(t, err, &locked)
}

func TestLogin_SecondSessionSupersedesFirst(t *testing.T) {
	f := newFixture(Config{})
	ctx := context.Background()
	userID := f.register(t, "alice", "a@x.com", goodPassword)

	first, err := f.svc.Login(ctx, "alice", goodPassword, "10.0.0.1", "test-agent")
	require.NoError(t, err)
	second, err := f.svc.Login(ctx, "alice", goodPassword, "10.0.0.2", "test-agent")
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	_, ok := f.svc.Validate(ctx, first)
	assert.False(t, ok)

	got, ok := f.svc.Validate(ctx, second)
	require.True(t, ok)
	assert.Equal(t, userID, got)
}

func TestValidate_ExpiredSessionDeactivated(t *testing.T) {
	f := newFixture(Config{SessionTTL: 24 * time.Hour})
	ctx := context.Background()
	f.register(t, "alice", "a@x.com", goodPassword)

	sessionID, err := f.svc.Login(ctx, "alice", goodPassword, "10.0.0.1", "test-agent")
	require.NoError(t, err)

	f.clock.Advance(25 * time.Hour)

	_, ok := f.svc.Validate(ctx, sessionID)
	assert.False(t, ok)

	// Reading the expired session flipped it inactive.
	sess := f.sessions.byID[sessionID]
	require.NotNil(t, sess)
	assert.False(t, sess.IsActive)
}

func TestValidate_RefreshesActivityNotExpiry(t *testing.T) {
	f := newFixture(Config{SessionTTL: 24 * time.Hour})
	ctx := context.Background()
	f.register(t, "alice", "a@x.com", goodPassword)

	sessionID, err := f.svc.Login(ctx, "alice", goodPassword, "10.0.0.1", "test-agent")
	require.NoError(t, err)
	expiresAt := f.sessions.byID[sessionID].ExpiresAt

	f.clock.Advance(2 * time.Hour)
	_, ok := f.svc.Validate(ctx, sessionID)
	require.True(t, ok)

	sess := f.sessions.byID[sessionID]
	assert.Equal(t, f.clock.Now(), sess.LastActivity)
	assert.Equal(t, expiresAt, sess.ExpiresAt, "validation must not extend expiry")
}

func TestValidate_InactivePrincipal(t *testing.T) {
	f := newFixture(Config{})
	ctx := context.Background()
	userID := f.register(t, "alice", "a@x.com", goodPassword)

	sessionID, err := f.svc.Login(ctx, "alice", goodPassword, "10.0.0.1", "test-agent")
	require.NoError(t, err)

	f.accounts.byID[userID].IsActive = false
	_, ok := f.svc.Validate(ctx, sessionID)
	assert.False(t, ok)
}

func TestLogout_Idempotent(t *testing.T) {
	f := newFixture(Config{})
	ctx := context.Background()
	f.register(t, "alice", "a@x.com", goodPassword)

	sessionID, err := f.svc.Login(ctx, "alice", goodPassword, "10.0.0.1", "test-agent")
	require.NoError(t, err)

	assert.True(t, f.svc.Logout(ctx, sessionID, "10.0.0.1", "test-agent"))
	assert.False(t, f.svc.Logout(ctx, sessionID, "10.0.0.1", "test-agent"))
	assert.False(t, f.svc.Logout(ctx, "no-such-session", "10.0.0.1", "test-agent"))

	// Only the effective logout is audited.
	assert.Len(t, f.audit.byAction(model.ActionLogout), 1)

	_, ok := f.svc.Validate(ctx, sessionID)
	assert.False(t, ok)
}

func TestSweep(t *testing.T) {
	f := newFixture(Config{
		SessionTTL:       time.Hour,
		AuditRetention:   3,
		SessionRetention: 24 * time.Hour,
	})
	ctx := context.Background()
	f.register(t, "alice", "a@x.com", goodPassword)

	old, err := f.svc.Login(ctx, "alice", goodPassword, "10.0.0.1", "test-agent")
	require.NoError(t, err)

	// Generate more audit rows than the retention cap.
	for i := 0; i < 5; i++ {
		_, _ = f.svc.Login(ctx, "alice", "Wr0ng!Pass", "10.0.0.1", "test-agent")
	}

	f.clock.Advance(2 * time.Hour)
	require.NoError(t, f.svc.Sweep(ctx))

	sess := f.sessions.byID[old]
	require.NotNil(t, sess)
	assert.False(t, sess.IsActive)

	events, err := f.audit.Recent(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, events, 3)

	// A day later the deactivated session row is pruned entirely.
	f.clock.Advance(25 * time.Hour)
	require.NoError(t, f.svc.Sweep(ctx))
	assert.Nil(t, f.sessions.byID[old])
}

func TestRecentAuditEvents_AdminOnly(t *testing.T) {
	f := newFixture(Config{})
	ctx := context.Background()
	adminID := f.register(t, "alice", "a@x.com", goodPassword) // first account is admin
	userID := f.register(t, "bob", "b@x.com", goodPassword)

	_, err := f.svc.RecentAuditEvents(ctx, userID, 10)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.RecentAuditEvents(ctx, "ghost", 10)
	assert.ErrorIs(t, err, ErrForbidden)

	events, err := f.svc.RecentAuditEvents(ctx, adminID, 10)
	require.NoError(t, err)
	require.NotEmpty(t, events)
	for i := 1; i < len(events); i++ {
		assert.Greater(t, events[i-1].ID, events[i].ID, "events must be newest-first")
	}

	// The read itself left a trace.
	assert.Len(t, f.audit.byAction(model.ActionAuditAccess), 1)
}

func TestPasswordReset_Flow(t *testing.T) {
	f := newFixture(Config{ResetTokenTTL: time.Hour})
	ctx := context.Background()
	f.register(t, "alice", "a@x.com", goodPassword)

	sessionID, err := f.svc.Login(ctx, "alice", goodPassword, "10.0.0.1", "test-agent")
	require.NoError(t, err)

	token, err := f.svc.BeginPasswordReset(ctx, "a@x.com", "10.0.0.1", "test-agent")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// Weak replacement is rejected and the token survives for a retry.
	err = f.svc.CompletePasswordReset(ctx, token, "weak", "10.0.0.1", "test-agent")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	require.NoError(t, f.svc.CompletePasswordReset(ctx, token, otherGood, "10.0.0.1", "test-agent"))

	// Old password dead, new one works, old session revoked.
	_, err = f.svc.Login(ctx, "alice", goodPassword, "10.0.0.1", "test-agent")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, ok := f.svc.Validate(ctx, sessionID)
	assert.False(t, ok)
	_, err = f.svc.Login(ctx, "alice", otherGood, "10.0.0.1", "test-agent")
	require.NoError(t, err)

	// The token was single use.
	err = f.svc.CompletePasswordReset(ctx, token, goodPassword, "10.0.0.1", "test-agent")
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestPasswordReset_ExpiredToken(t *testing.T) {
	f := newFixture(Config{ResetTokenTTL: time.Hour})
	ctx := context.Background()
	f.register(t, "alice", "a@x.com", goodPassword)

	token, err := f.svc.BeginPasswordReset(ctx, "alice", "10.0.0.1", "test-agent")
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	err = f.svc.CompletePasswordReset(ctx, token, otherGood, "10.0.0.1", "test-agent")
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestPasswordReset_UnknownIdentifierRevealsNothing(t *testing.T) {
	f := newFixture(Config{})

	token, err := f.svc.BeginPasswordReset(context.Background(), "nobody@x.com", "10.0.0.1", "test-agent")
	assert.NoError(t, err)
	assert.Empty(t, token)
}

func TestAuditAppendFailure_DoesNotFailLogin(t *testing.T) {
	f := newFixture(Config{})
	ctx := context.Background()
	f.register(t, "alice", "a@x.com", goodPassword)

	f.audit.mu.Lock()
	f.audit.appendErr = context.DeadlineExceeded
	f.audit.mu.Unlock()

	sessionID, err := f.svc.Login(ctx, "alice", goodPassword, "10.0.0.1", "test-agent")
	require.NoError(t, err)
	assert.NotEmpty(t, sessionID)
}
