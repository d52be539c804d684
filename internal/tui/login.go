package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/scoutcursos/cursos/pkg/domain"
)

type loginField int

const (
	fieldEmail loginField = iota
	fieldPassword
	numLoginFields
)

// loginDoneMsg carries the result of a login attempt.
type loginDoneMsg struct {
	user *domain.User
	err  error
}

type loginModel struct {
	session    Session
	fields     [numLoginFields]string
	focus      loginField
	err        error
	notice     string
	submitting bool
	frame      int
}

func newLoginModel(s Session) loginModel {
	return loginModel{session: s}
}

// withNotice returns a fresh form explaining why the user landed here.
func (m loginModel) withNotice(notice string) loginModel {
	fresh := newLoginModel(m.session)
	fresh.fields[fieldEmail] = m.fields[fieldEmail]
	fresh.notice = notice
	return fresh
}

func (m loginModel) Update(msg tea.Msg) (loginModel, tea.Cmd) {
	switch msg := msg.(type) {
	case loginDoneMsg:
		m.submitting = false
		if msg.err != nil {
			m.err = msg.err
			m.fields[fieldPassword] = ""
			m.focus = fieldPassword
		}
		return m, nil

	case shimmerTickMsg:
		m.frame++
		return m, nil

	case tea.KeyMsg:
		if m.submitting {
			return m, nil
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m loginModel) updateKeys(msg tea.KeyMsg) (loginModel, tea.Cmd) {
	switch msg.String() {
	case "tab", "down", "shift+tab", "up":
		m.focus = (m.focus + 1) % numLoginFields
	case "enter":
		if m.focus == fieldEmail {
			m.focus = fieldPassword
			return m, nil
		}
		return m.submit()
	default:
		f := &m.fields[m.focus]
		*f = editRune(*f, msg.String())
	}
	return m, nil
}

func (m loginModel) submit() (loginModel, tea.Cmd) {
	email := strings.TrimSpace(m.fields[fieldEmail])
	password := m.fields[fieldPassword]
	m.err = nil
	m.notice = ""
	m.submitting = true

	s := m.session
	return m, func() tea.Msg {
		user, err := s.Login(context.Background(), email, password)
		return loginDoneMsg{user: user, err: err}
	}
}

func (m loginModel) View() string {
	var b strings.Builder
	b.WriteString("\n")
	if m.notice != "" {
		fmt.Fprintf(&b, "  %s\n\n", noticeStyle.Render(m.notice))
	}

	labels := [numLoginFields]string{"email", "password"}
	placeholders := [numLoginFields]string{"dirigente@scouts.cl", "at least 8 characters"}
	for i := loginField(0); i < numLoginFields; i++ {
		value := m.fields[i]
		if i == fieldPassword {
			value = strings.Repeat("•", len([]rune(value)))
		}
		cursor := " "
		style := metaStyle
		if i == m.focus {
			cursor = inputPromptStyle.Render(">")
			style = selectedStyle
		}
		fmt.Fprintf(&b, "  %s %s  %s\n", cursor, style.Render(fmt.Sprintf("%-8s", labels[i])),
			renderInput(value, placeholders[i], i == m.focus, m.frame))
	}

	b.WriteString("\n")
	switch {
	case m.submitting:
		b.WriteString("  " + dimStyle.Render("signing in..."))
	case m.err != nil:
		b.WriteString("  " + errorStyle.Render(m.err.Error()))
	}
	return b.String()
}
