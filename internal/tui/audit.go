package tui

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/scoutcursos/cursos/pkg/domain"
)

type auditCopiedMsg struct {
	n   int
	err error
}

// copyToClipboard is swapped out in tests.
var copyToClipboard = clipboard.WriteAll

type auditModel struct {
	session Session
	entries []domain.AuditEntry
	scroll  int
	status  string
}

func newAuditModel(s Session) auditModel {
	return auditModel{session: s}
}

// refresh reloads the buffer, newest first.
func (m auditModel) refresh() auditModel {
	log := m.session.AuditLog()
	m.entries = make([]domain.AuditEntry, len(log))
	for i, e := range log {
		m.entries[len(log)-1-i] = e
	}
	m.scroll = 0
	m.status = ""
	return m
}

func (m auditModel) Update(msg tea.Msg) (auditModel, tea.Cmd) {
	switch msg := msg.(type) {
	case auditCopiedMsg:
		if msg.err != nil {
			m.status = "copy failed: " + msg.err.Error()
		} else {
			m.status = fmt.Sprintf("copied %d entries", msg.n)
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "j", "down":
			if m.scroll < len(m.entries)-1 {
				m.scroll++
			}
		case "k", "up":
			if m.scroll > 0 {
				m.scroll--
			}
		case "r":
			return m.refresh(), nil
		case "c":
			entries := m.entries
			return m, func() tea.Msg {
				data, err := json.MarshalIndent(entries, "", "  ")
				if err == nil {
					err = copyToClipboard(string(data))
				}
				return auditCopiedMsg{n: len(entries), err: err}
			}
		}
	}
	return m, nil
}

func (m auditModel) View() string {
	var b strings.Builder
	b.WriteString(" " + sectionHeaderStyle.Render(fmt.Sprintf("audit log · %d entries · kept on this machine", len(m.entries))) + "\n\n")

	if len(m.entries) == 0 {
		b.WriteString("  " + dimStyle.Render("nothing recorded yet") + "\n")
	}
	for _, e := range m.entries[m.scroll:] {
		details := ""
		if len(e.Details) > 0 {
			details = formatFields(domain.Fields(e.Details))
		}
		fmt.Fprintf(&b, "  %s  %s  %s\n",
			metaStyle.Render(fmt.Sprintf("%-9s", formatTime(e.Timestamp))),
			ActionStyle(e.Action).Render(fmt.Sprintf("%-15s", e.Action)),
			dimStyle.Render(truncStr(details, 90)))
	}
	if m.status != "" {
		b.WriteString("\n " + okStyle.Render(m.status) + "\n")
	}
	return b.String()
}

func (m auditModel) helpKeys() string {
	return helpEntry("j/k", "scroll") + "  " + helpEntry("c", "copy json") + "  " + helpEntry("r", "reload") + "  " +
		helpEntry("esc", "back") + "  " + helpEntry("q", "quit")
}
