package session

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked after too many failed login attempts")
	ErrLockedOut          = errors.New("account temporarily locked")
	ErrSessionExpired     = errors.New("session expired")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrNetworkUnavailable = errors.New("network unavailable")
)

// LockoutError is returned while an email is rate-limited. It unwraps to
// ErrAccountLocked when the failure that triggered the lockout just happened,
// and to ErrLockedOut when an earlier lockout is still in force.
type LockoutError struct {
	Err       error
	Remaining time.Duration
}

func (e *LockoutError) Error() string {
	return fmt.Sprintf("%s, try again in %d minutes", e.Err, e.Minutes())
}

func (e *LockoutError) Unwrap() error { return e.Err }

// Minutes is the remaining lockout rounded up to whole minutes.
func (e *LockoutError) Minutes() int {
	return int(math.Ceil(e.Remaining.Minutes()))
}
