package domain

import (
	"time"

	"github.com/google/uuid"
)

// Audit actions.
const (
	ActionLoginSuccess   = "LOGIN_SUCCESS"
	ActionLoginFailed    = "LOGIN_FAILED"
	ActionAccountLocked  = "ACCOUNT_LOCKED"
	ActionLogout         = "LOGOUT"
	ActionSessionExpired = "SESSION_EXPIRED"
)

// AuditEntry is a security-relevant client action.
type AuditEntry struct {
	ID        uuid.UUID      `json:"id"`
	Action    string         `json:"action"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	UserAgent string         `json:"user_agent"`
}
