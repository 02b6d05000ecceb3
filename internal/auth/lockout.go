package auth

import "time"

// LockDecision is the outcome of evaluating an account's lockout state
// ahead of a login attempt.
//
// Fields:
//  Allow              – the attempt may proceed to password verification.
//  Remaining          – how long the lock still holds when Allow is false.
//  WouldLockOnFailure – one more failed verification reaches the attempt cap.
type LockDecision struct {
	Allow              bool
	Remaining          time.Duration
	WouldLockOnFailure bool
}

// EvaluateLockout decides whether a login attempt is admitted given the
// account's failure counter and lock timestamp. It is a pure function over
// its inputs and performs no I/O.
//
// An expired lock admits new attempts but does not reset the failure
// counter; only a successful login does. A single further failure after
// expiry therefore re-locks the account immediately once the counter sits
// at or above maxAttempts.
func EvaluateLockout(failedAttempts int, lockedUntil *time.Time, now time.Time, maxAttempts int) LockDecision {
	if lockedUntil != nil && now.Before(*lockedUntil) {
		return LockDecision{Remaining: lockedUntil.Sub(now)}
	}
	return LockDecision{
		Allow:              true,
		WouldLockOnFailure: failedAttempts+1 >= maxAttempts,
	}
}
