// Package session decides whether this client may reach protected screens
// and keeps that decision fresh: login with per-email lockout, token expiry,
// inactivity timeout and a local audit trail.
package session

//go:generate mockgen -destination=../mocks/mock_authenticator.go -package=mocks github.com/scoutcursos/cursos/internal/session Authenticator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/scoutcursos/cursos/pkg/client"
	"github.com/scoutcursos/cursos/pkg/domain"
)

// Storage keys.
const (
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
	keyUser         = "user"
	keyLoginAt      = "login_at"
	keyAuditLog     = "audit_log"
	attemptsPrefix  = "login_attempts:"
)

// sessionKeys are cleared on logout and expiry. Attempt counters and the
// audit log outlive the session.
var sessionKeys = []string{keyAccessToken, keyRefreshToken, keyUser, keyLoginAt}

const minPasswordLen = 8

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Store is the transient key/value storage holding session state.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
}

// Authenticator performs the remote credential check.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*domain.LoginResult, error)
}

// Reason says why a session ended.
type Reason string

const (
	ReasonUser           Reason = "USER_LOGOUT"
	ReasonSessionTimeout Reason = "SESSION_TIMEOUT"
)

// State is the position in the session lifecycle.
type State int

const (
	StateAnonymous State = iota
	StateAuthenticating
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// Options tunes a Manager. Zero values take the defaults.
type Options struct {
	InactivityTimeout time.Duration // default 15m
	MaxAttempts       int           // default 5
	LockoutWindow     time.Duration // default 1h
	AuditCapacity     int           // default 50
	UserAgent         string
	LoginPath         string // default "/login"

	// Navigate is called with the login path after an inactivity logout.
	Navigate func(path string)
	Logger   *slog.Logger
	Now      func() time.Time
}

func (o Options) withDefaults() Options {
	if o.InactivityTimeout <= 0 {
		o.InactivityTimeout = 15 * time.Minute
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.LockoutWindow <= 0 {
		o.LockoutWindow = time.Hour
	}
	if o.AuditCapacity <= 0 {
		o.AuditCapacity = 50
	}
	if o.UserAgent == "" {
		o.UserAgent = "cursos"
	}
	if o.LoginPath == "" {
		o.LoginPath = "/login"
	}
	if o.Navigate == nil {
		o.Navigate = func(string) {}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Manager owns the session of one client process. Create it at startup and
// pass it to whatever needs to authenticate or stamp requests.
type Manager struct {
	store  Store
	auth   Authenticator
	opts   Options
	logger *slog.Logger

	mu             sync.Mutex
	authenticating bool
	timer          *time.Timer
	timerGen       uint64
}

// NewManager creates a session manager over store.
func NewManager(store Store, auth Authenticator, opts Options) *Manager {
	opts = opts.withDefaults()
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:  store,
		auth:   auth,
		opts:   opts,
		logger: logger.With("component", "session"),
	}
}

// State reports the current lifecycle state without checking token expiry.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.authenticating:
		return StateAuthenticating
	case m.hasTokenLocked():
		return StateAuthenticated
	default:
		return StateAnonymous
	}
}

// IsAuthenticated reports whether a live session exists. A token whose exp
// claim has passed ends the session. Malformed tokens count as no session.
func (m *Manager) IsAuthenticated() bool {
	_, err := m.Current()
	return err == nil
}

// Current returns the live session, ErrNotAuthenticated, or ErrSessionExpired.
func (m *Manager) Current() (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tok, ok := m.store.Get(keyAccessToken)
	if !ok || tok == "" {
		return nil, ErrNotAuthenticated
	}
	exp, err := tokenExpiry(tok)
	if err != nil {
		m.logger.Warn("unreadable access token", "error", err)
		return nil, ErrNotAuthenticated
	}
	if !exp.IsZero() && !m.opts.Now().Before(exp) {
		m.clearLocked()
		m.auditLocked(domain.ActionSessionExpired, map[string]any{"expired_at": exp.Format(time.RFC3339)})
		return nil, ErrSessionExpired
	}

	s := &domain.Session{AccessToken: tok}
	s.RefreshToken, _ = m.store.Get(keyRefreshToken)
	if raw, ok := m.store.Get(keyUser); ok {
		if err := json.Unmarshal([]byte(raw), &s.User); err != nil {
			m.logger.Warn("unreadable user record", "error", err)
		}
	}
	if raw, ok := m.store.Get(keyLoginAt); ok {
		s.LoginAt, _ = time.Parse(time.RFC3339Nano, raw)
	}
	return s, nil
}

// AccessToken returns the stored bearer token, or "" when logged out.
func (m *Manager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	tok, _ := m.store.Get(keyAccessToken)
	return tok
}

// Attempts returns the failed-login bookkeeping for email.
func (m *Manager) Attempts(email string) domain.LoginAttempts {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attemptsLocked(email)
}

// Login validates the credentials locally, enforces the per-email lockout and
// then asks the backend. On success the session is stored and the inactivity
// countdown starts.
func (m *Manager) Login(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	if err := validateCredentials(email, password); err != nil {
		m.mu.Lock()
		m.auditLocked(domain.ActionLoginFailed, map[string]any{"email": email, "reason": "invalid_input"})
		m.mu.Unlock()
		return nil, err
	}

	m.mu.Lock()
	now := m.opts.Now()
	attempts := m.attemptsLocked(email)
	if attempts.Locked(now) {
		lockErr := &LockoutError{Err: ErrLockedOut, Remaining: attempts.LockedUntil.Sub(now)}
		m.auditLocked(domain.ActionAccountLocked, map[string]any{"email": email, "remaining_minutes": lockErr.Minutes()})
		m.mu.Unlock()
		return nil, lockErr
	}
	if !attempts.LockedUntil.IsZero() {
		// The lockout has run out; start counting afresh.
		m.store.Delete(attemptsKey(email))
	}
	m.authenticating = true
	m.mu.Unlock()

	res, err := m.auth.Login(ctx, email, password)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.authenticating = false

	if err == nil && (res == nil || res.Access == "") {
		err = fmt.Errorf("login response carried no access token")
	}
	if err != nil {
		return nil, m.loginFailedLocked(email, err)
	}

	m.store.Set(keyAccessToken, res.Access)
	m.store.Set(keyRefreshToken, res.Refresh)
	if data, err := json.Marshal(res.User); err == nil {
		m.store.Set(keyUser, string(data))
	}
	m.store.Set(keyLoginAt, m.opts.Now().Format(time.RFC3339Nano))
	m.store.Delete(attemptsKey(email))
	m.armTimerLocked()
	m.auditLocked(domain.ActionLoginSuccess, map[string]any{"email": email, "user_id": res.User.ID})

	user := res.User
	return &user, nil
}

func (m *Manager) loginFailedLocked(email string, cause error) error {
	if client.IsUnreachable(cause) {
		m.logger.Warn("login: backend unreachable", "error", cause)
		m.auditLocked(domain.ActionLoginFailed, map[string]any{"email": email, "reason": "network"})
		return fmt.Errorf("%w: the server could not be reached", ErrNetworkUnavailable)
	}

	attempts := m.attemptsLocked(email)
	attempts.Count++
	if attempts.Count >= m.opts.MaxAttempts {
		attempts.LockedUntil = m.opts.Now().Add(m.opts.LockoutWindow)
		m.saveAttemptsLocked(email, attempts)
		lockErr := &LockoutError{Err: ErrAccountLocked, Remaining: m.opts.LockoutWindow}
		m.auditLocked(domain.ActionAccountLocked, map[string]any{"email": email, "attempts": attempts.Count})
		return lockErr
	}
	m.saveAttemptsLocked(email, attempts)
	m.auditLocked(domain.ActionLoginFailed, map[string]any{"email": email, "attempts": attempts.Count})
	m.logger.Debug("login rejected", "email", email, "error", cause)
	return ErrInvalidCredentials
}

// Logout ends the session. Only an inactivity logout navigates to the login
// path, flagged so the login screen can explain what happened.
func (m *Manager) Logout(reason Reason) {
	m.mu.Lock()
	m.logoutLocked(reason)
	m.mu.Unlock()

	if reason == ReasonSessionTimeout {
		m.navigateTimeout()
	}
}

func (m *Manager) logoutLocked(reason Reason) {
	m.clearLocked()
	m.auditLocked(domain.ActionLogout, map[string]any{"reason": string(reason)})
}

func (m *Manager) navigateTimeout() {
	m.opts.Navigate(m.opts.LoginPath + "?reason=timeout")
}

// Touch records user interaction. It re-arms the inactivity countdown while a
// session exists and does nothing otherwise.
func (m *Manager) Touch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasTokenLocked() {
		return
	}
	m.armTimerLocked()
}

func (m *Manager) armTimerLocked() {
	m.stopTimerLocked()
	m.timerGen++
	gen := m.timerGen
	m.timer = time.AfterFunc(m.opts.InactivityTimeout, func() { m.inactivityElapsed(gen) })
}

func (m *Manager) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// inactivityElapsed ends the session unless a Touch or logout superseded the
// timer that fired. The check and the clear share one critical section.
func (m *Manager) inactivityElapsed(gen uint64) {
	m.mu.Lock()
	if gen != m.timerGen || !m.hasTokenLocked() {
		m.mu.Unlock()
		return
	}
	m.logoutLocked(ReasonSessionTimeout)
	m.mu.Unlock()

	m.navigateTimeout()
}

func (m *Manager) clearLocked() {
	for _, k := range sessionKeys {
		m.store.Delete(k)
	}
	m.stopTimerLocked()
	m.timerGen++
}

func (m *Manager) hasTokenLocked() bool {
	tok, ok := m.store.Get(keyAccessToken)
	return ok && tok != ""
}

func (m *Manager) attemptsLocked(email string) domain.LoginAttempts {
	var a domain.LoginAttempts
	raw, ok := m.store.Get(attemptsKey(email))
	if !ok {
		return a
	}
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		m.logger.Warn("discarding unreadable attempt counter", "email", email, "error", err)
		return domain.LoginAttempts{}
	}
	return a
}

func (m *Manager) saveAttemptsLocked(email string, a domain.LoginAttempts) {
	data, err := json.Marshal(a)
	if err != nil {
		m.logger.Error("encode attempt counter", "error", err)
		return
	}
	m.store.Set(attemptsKey(email), string(data))
}

func attemptsKey(email string) string {
	return attemptsPrefix + strings.ToLower(email)
}

func validateCredentials(email, password string) error {
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("%w: enter a valid email address", ErrInvalidInput)
	}
	if utf8.RuneCountInString(password) < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLen)
	}
	return nil
}
