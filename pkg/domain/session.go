package domain

import "time"

// Session is the authenticated state of one client process.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	User         User      `json:"user"`
	LoginAt      time.Time `json:"login_at"`
}

// LoginAttempts tracks consecutive failed logins for one email.
type LoginAttempts struct {
	Count       int       `json:"count"`
	LockedUntil time.Time `json:"locked_until,omitempty"`
}

// Locked reports whether the lockout is still in force at now.
func (a LoginAttempts) Locked(now time.Time) bool {
	return !a.LockedUntil.IsZero() && now.Before(a.LockedUntil)
}
