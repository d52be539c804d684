package tui

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/scoutcursos/cursos/pkg/domain"
)

func TestAuditRefreshShowsNewestFirst(t *testing.T) {
	s := &fakeSession{audit: []domain.AuditEntry{
		auditEntry(domain.ActionLoginFailed, map[string]any{"attempts": 1}),
		auditEntry(domain.ActionLoginSuccess, nil),
	}}
	m := newAuditModel(s).refresh()

	if m.entries[0].Action != domain.ActionLoginSuccess {
		t.Errorf("expected newest first, got %s", m.entries[0].Action)
	}
	view := m.View()
	if !strings.Contains(view, "2 entries") || !strings.Contains(view, "attempts=1") {
		t.Errorf("unexpected view:\n%s", view)
	}
	if !strings.Contains(view, "2m ago") {
		t.Errorf("expected relative time, got:\n%s", view)
	}
}

func TestAuditEmpty(t *testing.T) {
	m := newAuditModel(&fakeSession{}).refresh()
	if !strings.Contains(m.View(), "nothing recorded yet") {
		t.Error("expected empty state")
	}
}

func TestAuditCopyWritesJSON(t *testing.T) {
	var copied string
	orig := copyToClipboard
	copyToClipboard = func(s string) error { copied = s; return nil }
	defer func() { copyToClipboard = orig }()

	s := &fakeSession{audit: []domain.AuditEntry{auditEntry(domain.ActionLogout, map[string]any{"reason": "USER_LOGOUT"})}}
	m := newAuditModel(s).refresh()

	m, cmd := m.Update(keyMsg("c"))
	if cmd == nil {
		t.Fatal("expected copy command")
	}
	m, _ = m.Update(cmd())

	var entries []domain.AuditEntry
	if err := json.Unmarshal([]byte(copied), &entries); err != nil {
		t.Fatalf("clipboard is not JSON: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != domain.ActionLogout {
		t.Errorf("unexpected clipboard contents: %s", copied)
	}
	if m.status != "copied 1 entries" {
		t.Errorf("status = %q", m.status)
	}
}

func TestAuditCopyFailure(t *testing.T) {
	orig := copyToClipboard
	copyToClipboard = func(string) error { return errors.New("no clipboard") }
	defer func() { copyToClipboard = orig }()

	m := newAuditModel(&fakeSession{}).refresh()
	m, cmd := m.Update(keyMsg("c"))
	m, _ = m.Update(cmd())
	if !strings.Contains(m.status, "no clipboard") {
		t.Errorf("status = %q", m.status)
	}
}

func TestAuditScroll(t *testing.T) {
	s := &fakeSession{audit: []domain.AuditEntry{
		auditEntry(domain.ActionLoginSuccess, nil),
		auditEntry(domain.ActionLogout, nil),
	}}
	m := newAuditModel(s).refresh()
	m, _ = m.Update(keyMsg("j"))
	m, _ = m.Update(keyMsg("j"))
	if m.scroll != 1 {
		t.Errorf("expected scroll clamped to 1, got %d", m.scroll)
	}
	m, _ = m.Update(keyMsg("k"))
	if m.scroll != 0 {
		t.Errorf("expected scroll 0, got %d", m.scroll)
	}
}

func TestActionStyleRendersText(t *testing.T) {
	for _, action := range []string{domain.ActionLoginSuccess, domain.ActionAccountLocked, "SOMETHING_ELSE"} {
		if got := ActionStyle(action).Render(action); !strings.Contains(got, action) {
			t.Errorf("ActionStyle(%q) rendered %q", action, got)
		}
	}
}
