package auth

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidCredentials covers both an unknown identifier and a wrong
// password. The two cases are deliberately indistinguishable to the
// caller so usernames cannot be enumerated.
var ErrInvalidCredentials = errors.New("invalid username or password")

// ErrAccountDisabled is returned when the account exists but has been
// administratively deactivated.
var ErrAccountDisabled = errors.New("account is disabled")

// ErrForbidden is returned when a non-admin principal requests the audit
// log.
var ErrForbidden = errors.New("forbidden")

// ErrInvalidResetToken is returned when a password reset token is unknown,
// already used, or expired.
var ErrInvalidResetToken = errors.New("invalid or expired reset token")

// ErrStoreUnavailable wraps persistence failures. Handlers surface it as a
// generic "try again" response; the underlying cause stays in the server
// log.
var ErrStoreUnavailable = errors.New("store unavailable")

// AccountLockedError is returned while a lockout is in force. Remaining is
// exposed to the caller so the UI can show a wait time.
type AccountLockedError struct {
	Remaining time.Duration
}

func (e *AccountLockedError) Error() string {
	mins := int(e.Remaining.Minutes())
	if mins < 1 {
		mins = 1
	}
	return fmt.Sprintf("account locked, try again in %d minutes", mins)
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
