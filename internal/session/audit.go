package session

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/scoutcursos/cursos/pkg/domain"
)

// auditLocked appends an entry to the capped audit buffer and mirrors it to
// the structured log. Entries stay on this machine.
func (m *Manager) auditLocked(action string, details map[string]any) {
	entry := domain.AuditEntry{
		ID:        uuid.New(),
		Action:    action,
		Details:   details,
		Timestamp: m.opts.Now(),
		UserAgent: m.opts.UserAgent,
	}

	entries := append(m.readAuditLocked(), entry)
	if over := len(entries) - m.opts.AuditCapacity; over > 0 {
		entries = entries[over:]
	}
	data, err := json.Marshal(entries)
	if err != nil {
		m.logger.Error("encode audit log", "error", err)
		return
	}
	m.store.Set(keyAuditLog, string(data))

	m.logger.LogAttrs(context.Background(), slog.LevelInfo, "audit",
		slog.String("action", action),
		slog.String("entry_id", entry.ID.String()),
		slog.Any("details", details),
	)
}

func (m *Manager) readAuditLocked() []domain.AuditEntry {
	raw, ok := m.store.Get(keyAuditLog)
	if !ok || raw == "" {
		return nil
	}
	var entries []domain.AuditEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		m.logger.Warn("discarding unreadable audit log", "error", err)
		return nil
	}
	return entries
}

// AuditLog returns a copy of the buffered audit entries, oldest first.
func (m *Manager) AuditLog() []domain.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readAuditLocked()
}
