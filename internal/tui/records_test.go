package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/scoutcursos/cursos/internal/gateway"
	"github.com/scoutcursos/cursos/pkg/domain"
)

func newTestRecords(g *fakeGateway) recordsModel {
	m := newRecordsModel(g, domain.MirroredResources)
	m.height = 30
	return m
}

// drain runs cmd and feeds its messages back, following batches.
func drain(m recordsModel, cmd tea.Cmd) recordsModel {
	if cmd == nil {
		return m
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			m = drain(m, c)
		}
		return m
	case nil:
		return m
	default:
		var next tea.Cmd
		m, next = m.Update(msg)
		return drain(m, next)
	}
}

func press(m recordsModel, keys ...string) (recordsModel, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		m, cmd = m.Update(keyMsg(k))
	}
	return m, cmd
}

func TestRecordsLoadedRendersFields(t *testing.T) {
	g := newFakeGateway()
	g.records[domain.Payments.Name] = []domain.Record{
		{ID: 1700000000000, Fields: domain.Fields{"descripcion": "Curso X", "monto": 15000}},
	}
	m := drain(newTestRecords(g), newTestRecords(g).Init())

	view := m.View()
	for _, want := range []string{"#1700000000000", "descripcion=Curso X", "monto=15000"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestRecordsEmptyState(t *testing.T) {
	m := drain(newTestRecords(newFakeGateway()), newTestRecords(newFakeGateway()).load())
	if !strings.Contains(m.View(), "no records") {
		t.Error("expected empty state")
	}
}

func TestRecordsPendingBadge(t *testing.T) {
	g := newFakeGateway()
	g.pending[domain.Receipts.Name] = 3
	m := drain(newTestRecords(g), newTestRecords(g).loadPending())

	if got := m.tabLabel(1); !strings.Contains(got, "●") || !strings.Contains(got, "3") {
		t.Errorf("expected pending badge on receipts tab, got %q", got)
	}
	if got := m.tabLabel(0); strings.Contains(got, "●") {
		t.Errorf("expected no badge on payments tab, got %q", got)
	}
}

func TestRecordsTabSwitching(t *testing.T) {
	g := newFakeGateway()
	g.records[domain.Prepayments.Name] = []domain.Record{{ID: 9, Fields: domain.Fields{"x": 1}}}
	m := newTestRecords(g)

	m, cmd := press(m, "3")
	if m.current().Name != domain.Prepayments.Name {
		t.Fatalf("expected prepagos tab, got %s", m.current().Name)
	}
	m = drain(m, cmd)
	if len(m.records) != 1 {
		t.Errorf("expected 1 record after switching, got %d", len(m.records))
	}

	m, _ = press(m, "right")
	if m.tab != 3 {
		t.Errorf("expected tab 3, got %d", m.tab)
	}
	m, _ = press(m, "left", "left", "left", "left")
	if m.tab != 4 {
		t.Errorf("expected wrap-around to tab 4, got %d", m.tab)
	}
}

func TestRecordsIgnoresStaleLoad(t *testing.T) {
	m := newTestRecords(newFakeGateway())
	m, _ = m.Update(recordsLoadedMsg{resource: domain.Receipts.Name, records: []domain.Record{{ID: 1}}})
	if len(m.records) != 0 {
		t.Error("records for another tab must be ignored")
	}
}

func TestRecordsCreate(t *testing.T) {
	g := newFakeGateway()
	m := newTestRecords(g)

	m, _ = press(m, "n")
	if !m.composing {
		t.Fatal("expected compose mode")
	}
	for _, r := range "descripcion=Curso X, monto=15000" {
		m, _ = m.Update(keyMsg(string(r)))
	}
	m, cmd := press(m, "enter")
	if m.composing || !m.busy {
		t.Fatal("expected submit to leave compose mode and mark busy")
	}
	m = drain(m, cmd)

	if len(g.created) != 1 {
		t.Fatalf("expected one create, got %d", len(g.created))
	}
	if g.created[0]["descripcion"] != "Curso X" || g.created[0]["monto"] != int64(15000) {
		t.Errorf("unexpected fields %v", g.created[0])
	}
	if !strings.Contains(m.View(), "saved #1") {
		t.Errorf("expected saved status, got:\n%s", m.View())
	}
	if len(m.records) != 1 {
		t.Errorf("expected list reloaded with 1 record, got %d", len(m.records))
	}
}

func TestRecordsCreateInvalidInput(t *testing.T) {
	g := newFakeGateway()
	m, _ := press(newTestRecords(g), "n", "o", "o", "p", "s", "enter")
	if !m.composing {
		t.Error("expected to stay in compose mode on bad input")
	}
	if len(g.created) != 0 {
		t.Error("expected no create call")
	}
	if !strings.Contains(m.View(), "key=value") {
		t.Errorf("expected parse error in view:\n%s", m.View())
	}
}

func TestRecordsCreateEscCancels(t *testing.T) {
	m, _ := press(newTestRecords(newFakeGateway()), "n", "x", "esc")
	if m.composing || m.input != "" {
		t.Error("expected esc to cancel compose")
	}
}

func TestRecordsSaveError(t *testing.T) {
	m := newTestRecords(newFakeGateway())
	m.busy = true
	m, _ = m.Update(recordSavedMsg{err: errors.New("boom")})
	if m.busy || !m.statusErr || !strings.Contains(m.View(), "save failed: boom") {
		t.Errorf("expected error status, got %q", m.status)
	}
}

func TestRecordsEditSelected(t *testing.T) {
	g := newFakeGateway()
	g.records[domain.Payments.Name] = []domain.Record{
		{ID: 1, Fields: domain.Fields{"descripcion": "Curso X", "monto": 1000}},
		{ID: 2, Fields: domain.Fields{"descripcion": "Curso Y", "monto": 2000}},
	}
	m := drain(newTestRecords(g), newTestRecords(g).load())

	m, _ = press(m, "j", "e")
	if !m.composing || m.editing != 2 {
		t.Fatalf("expected edit of #2, composing=%v editing=%d", m.composing, m.editing)
	}
	if m.input != "descripcion=Curso Y, monto=2000" {
		t.Errorf("input = %q", m.input)
	}
	if !strings.Contains(m.View(), "edit #2") {
		t.Errorf("expected edit prompt:\n%s", m.View())
	}

	for range "2000" {
		m, _ = m.Update(keyMsg("backspace"))
	}
	for _, r := range "2500" {
		m, _ = m.Update(keyMsg(string(r)))
	}
	m, cmd := press(m, "enter")
	if m.composing || m.editing != 0 || !m.busy {
		t.Fatal("expected submit to leave edit mode and mark busy")
	}
	m = drain(m, cmd)

	if len(g.created) != 0 {
		t.Errorf("edit must not create, got %v", g.created)
	}
	got := g.updated[2]
	if got["descripcion"] != "Curso Y" || got["monto"] != int64(2500) {
		t.Errorf("unexpected update fields %v", got)
	}
	if !strings.Contains(m.View(), "saved #2") {
		t.Errorf("expected saved status:\n%s", m.View())
	}
}

func TestRecordsEditEscThenNewCreates(t *testing.T) {
	g := newFakeGateway()
	g.records[domain.Payments.Name] = []domain.Record{{ID: 5, Fields: domain.Fields{"x": 1}}}
	m := drain(newTestRecords(g), newTestRecords(g).load())

	m, cmd := press(m, "e", "esc", "n", "y", "=", "2", "enter")
	if m.editing != 0 || !m.busy {
		t.Fatalf("expected a create in flight, editing=%d", m.editing)
	}
	drain(m, cmd)
	if len(g.created) != 1 || len(g.updated) != 0 {
		t.Errorf("expected one create and no update, got created=%v updated=%v", g.created, g.updated)
	}
}

func TestRecordsEditOnEmptyListDoesNothing(t *testing.T) {
	m, _ := press(newTestRecords(newFakeGateway()), "e")
	if m.composing {
		t.Error("expected no edit form without records")
	}
}

func TestRecordsDeleteSelected(t *testing.T) {
	g := newFakeGateway()
	g.records[domain.Payments.Name] = []domain.Record{{ID: 1}, {ID: 2}}
	m := drain(newTestRecords(g), newTestRecords(g).load())

	m, _ = press(m, "j")
	m, cmd := press(m, "d")
	m = drain(m, cmd)

	if len(g.deleted) != 1 || g.deleted[0] != 2 {
		t.Errorf("expected delete of #2, got %v", g.deleted)
	}
	if !strings.Contains(m.View(), "deleted #2") {
		t.Error("expected delete status")
	}
}

func TestRecordsDeleteOnEmptyListDoesNothing(t *testing.T) {
	_, cmd := press(newTestRecords(newFakeGateway()), "d")
	if cmd != nil {
		t.Error("expected no command")
	}
}

func TestRecordsSync(t *testing.T) {
	g := newFakeGateway()
	g.report = gateway.SyncReport{
		Synced: map[string]int{"pagos": 2, "comprobantes": 1, "prepagos": 0},
		Failed: map[string]int{"pagos": 1},
	}
	m, cmd := press(newTestRecords(g), "s")
	if !m.busy {
		t.Fatal("expected busy while syncing")
	}
	m = drain(m, cmd)

	want := "synced 3 (comprobantes 1, pagos 2), 1 still pending"
	if m.status != want {
		t.Errorf("status = %q, want %q", m.status, want)
	}
}

func TestRecordsKeysIgnoredWhileBusy(t *testing.T) {
	m := newTestRecords(newFakeGateway())
	m.busy = true
	_, cmd := press(m, "s")
	if cmd != nil {
		t.Error("expected no command while busy")
	}
}

func TestSyncSummaryError(t *testing.T) {
	got := syncSummary(gateway.SyncReport{}, errors.New("disk full"))
	if got != "sync failed: disk full" {
		t.Errorf("got %q", got)
	}
}
