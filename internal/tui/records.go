package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/scoutcursos/cursos/internal/gateway"
	"github.com/scoutcursos/cursos/pkg/domain"
)

type recordsLoadedMsg struct {
	resource string
	records  []domain.Record
}

type pendingLoadedMsg struct {
	counts map[string]int
	err    error
}

type recordSavedMsg struct {
	resource string
	record   domain.Record
	err      error
}

type recordDeletedMsg struct {
	resource string
	id       int64
}

type syncDoneMsg struct {
	report gateway.SyncReport
	err    error
}

type recordsModel struct {
	gateway   Gateway
	resources []domain.Resource
	tab       int
	records   []domain.Record
	cursor    int
	pending   map[string]int
	composing bool
	editing   int64 // id of the record being edited; 0 while composing a new one
	input     string
	status    string
	statusErr bool
	busy      bool
	frame     int
	height    int
}

func newRecordsModel(g Gateway, resources []domain.Resource) recordsModel {
	return recordsModel{gateway: g, resources: resources, pending: map[string]int{}}
}

func (m recordsModel) current() domain.Resource { return m.resources[m.tab] }

func (m recordsModel) Init() tea.Cmd {
	return tea.Batch(m.load(), m.loadPending())
}

func (m recordsModel) load() tea.Cmd {
	g, res := m.gateway, m.current()
	return func() tea.Msg {
		return recordsLoadedMsg{resource: res.Name, records: g.List(context.Background(), res)}
	}
}

func (m recordsModel) loadPending() tea.Cmd {
	g := m.gateway
	return func() tea.Msg {
		counts, err := g.Pending(context.Background())
		return pendingLoadedMsg{counts: counts, err: err}
	}
}

func (m recordsModel) Update(msg tea.Msg) (recordsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height

	case shimmerTickMsg:
		m.frame++

	case recordsLoadedMsg:
		if msg.resource != m.current().Name {
			return m, nil // stale answer for a tab we already left
		}
		m.records = msg.records
		if m.cursor >= len(m.records) {
			m.cursor = max(len(m.records)-1, 0)
		}

	case pendingLoadedMsg:
		if msg.err == nil {
			m.pending = msg.counts
		}

	case recordSavedMsg:
		m.busy = false
		if msg.err != nil {
			m.setStatus("save failed: "+msg.err.Error(), true)
			return m, nil
		}
		m.setStatus(fmt.Sprintf("saved #%d", msg.record.ID), false)
		return m, tea.Batch(m.load(), m.loadPending())

	case recordDeletedMsg:
		m.busy = false
		m.setStatus(fmt.Sprintf("deleted #%d", msg.id), false)
		return m, tea.Batch(m.load(), m.loadPending())

	case syncDoneMsg:
		m.busy = false
		m.setStatus(syncSummary(msg.report, msg.err), msg.err != nil)
		return m, tea.Batch(m.load(), m.loadPending())

	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		if m.composing {
			return m.updateCompose(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m *recordsModel) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
}

func (m recordsModel) updateKeys(msg tea.KeyMsg) (recordsModel, tea.Cmd) {
	key := msg.String()
	switch key {
	case "j", "down":
		if m.cursor < len(m.records)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "l", "right", "tab":
		return m.switchTab((m.tab + 1) % len(m.resources))
	case "left", "shift+tab":
		return m.switchTab((m.tab - 1 + len(m.resources)) % len(m.resources))
	case "r":
		m.setStatus("", false)
		return m, tea.Batch(m.load(), m.loadPending())
	case "n":
		m.composing = true
		m.editing = 0
		m.input = ""
		m.setStatus("", false)
	case "e":
		if len(m.records) == 0 {
			return m, nil
		}
		rec := m.records[m.cursor]
		m.composing = true
		m.editing = rec.ID
		m.input = fieldsInput(rec.Fields)
		m.setStatus("", false)
	case "d":
		if len(m.records) == 0 {
			return m, nil
		}
		m.busy = true
		g, res, id := m.gateway, m.current(), m.records[m.cursor].ID
		return m, func() tea.Msg {
			g.Delete(context.Background(), res, id)
			return recordDeletedMsg{resource: res.Name, id: id}
		}
	case "s":
		m.busy = true
		m.setStatus("syncing offline records...", false)
		g := m.gateway
		return m, func() tea.Msg {
			report, err := g.SyncOffline(context.Background())
			return syncDoneMsg{report: report, err: err}
		}
	default:
		if len(key) == 1 && key[0] >= '1' && int(key[0]-'1') < len(m.resources) {
			return m.switchTab(int(key[0] - '1'))
		}
	}
	return m, nil
}

func (m recordsModel) switchTab(tab int) (recordsModel, tea.Cmd) {
	if tab == m.tab {
		return m, nil
	}
	m.tab = tab
	m.records = nil
	m.cursor = 0
	m.setStatus("", false)
	return m, m.load()
}

func (m recordsModel) updateCompose(msg tea.KeyMsg) (recordsModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.composing = false
		m.editing = 0
		m.input = ""
	case "enter":
		fields, err := parseFields(m.input)
		if err != nil {
			m.setStatus(err.Error(), true)
			return m, nil
		}
		g, res, id := m.gateway, m.current(), m.editing
		m.composing = false
		m.editing = 0
		m.input = ""
		m.busy = true
		if id != 0 {
			return m, func() tea.Msg {
				rec, err := g.Update(context.Background(), res, id, fields)
				return recordSavedMsg{resource: res.Name, record: rec, err: err}
			}
		}
		return m, func() tea.Msg {
			rec, err := g.Create(context.Background(), res, fields)
			return recordSavedMsg{resource: res.Name, record: rec, err: err}
		}
	default:
		m.input = editRune(m.input, msg.String())
	}
	return m, nil
}

// tabLabel renders a resource tab with its pending badge.
func (m recordsModel) tabLabel(i int) string {
	res := m.resources[i]
	key := fmt.Sprintf("%d", i+1)
	var label string
	if i == m.tab {
		label = accentStyle.Render(key) + " " + selectedStyle.Underline(true).Render(res.Label)
	} else {
		label = metaStyle.Render(key) + " " + dimStyle.Render(res.Label)
	}
	if n := m.pending[res.Name]; n > 0 {
		label += " " + pendingDotStyle.Render("●") + dimStyle.Render(fmt.Sprintf("%d", n))
	}
	return label
}

func (m recordsModel) View() string {
	var b strings.Builder

	tabs := make([]string, len(m.resources))
	for i := range m.resources {
		tabs[i] = m.tabLabel(i)
	}
	b.WriteString(" " + strings.Join(tabs, "   ") + "\n\n")

	if len(m.records) == 0 {
		b.WriteString("  " + dimStyle.Render("no records") + "\n")
	}
	for i, rec := range m.records {
		line := fmt.Sprintf("%-15s %s", fmt.Sprintf("#%d", rec.ID), truncStr(formatFields(rec.Fields), 100))
		if i == m.cursor {
			b.WriteString(inputPromptStyle.Render(" > ") + selectedRowBg.Render(selectedStyle.Render(line)) + "\n")
		} else {
			b.WriteString("   " + normalStyle.Render(line) + "\n")
		}
	}

	b.WriteString("\n")
	if m.composing {
		prompt := "new " + m.current().Name + " > "
		if m.editing != 0 {
			prompt = fmt.Sprintf("edit #%d > ", m.editing)
		}
		b.WriteString(" " + inputPromptStyle.Render(prompt) +
			renderInput(m.input, "descripcion=Curso X, monto=15000", true, m.frame) + "\n")
	}
	if m.status != "" {
		style := okStyle
		if m.statusErr {
			style = errorStyle
		}
		b.WriteString(" " + style.Render(m.status) + "\n")
	}
	return b.String()
}

func (m recordsModel) helpKeys() string {
	if m.composing {
		return helpEntry("enter", "save") + "  " + helpEntry("esc", "cancel")
	}
	return helpEntry("1-5", "tabs") + "  " + helpEntry("j/k", "nav") + "  " + helpEntry("n", "new") + "  " + helpEntry("e", "edit") + "  " +
		helpEntry("d", "delete") + "  " + helpEntry("r", "refresh") + "  " + helpEntry("s", "sync") + "  " +
		helpEntry("a", "audit") + "  " + helpEntry("o", "logout") + "  " + helpEntry("h", "help") + "  " + helpEntry("q", "quit")
}

func syncSummary(report gateway.SyncReport, err error) string {
	if err != nil {
		return "sync failed: " + err.Error()
	}
	names := make([]string, 0, len(report.Synced))
	for name, n := range report.Synced {
		if n > 0 {
			names = append(names, fmt.Sprintf("%s %d", name, n))
		}
	}
	sort.Strings(names)
	left := 0
	for _, n := range report.Failed {
		left += n
	}

	s := fmt.Sprintf("synced %d", report.Total())
	if len(names) > 0 {
		s += " (" + strings.Join(names, ", ") + ")"
	}
	if left > 0 {
		s += fmt.Sprintf(", %d still pending", left)
	}
	return s
}
