package tui

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scoutcursos/cursos/internal/gateway"
	"github.com/scoutcursos/cursos/internal/session"
	"github.com/scoutcursos/cursos/pkg/domain"
)

type fakeSession struct {
	mu        sync.Mutex
	user      *domain.User
	loginErr  error
	touches   int
	logouts   []session.Reason
	audit     []domain.AuditEntry
	lastEmail string
}

func (f *fakeSession) Login(_ context.Context, email, _ string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastEmail = email
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	f.user = &domain.User{ID: 1, Email: email, FirstName: "Ana"}
	return f.user, nil
}

func (f *fakeSession) Logout(reason session.Reason) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.user = nil
	f.logouts = append(f.logouts, reason)
}

func (f *fakeSession) Touch() {
	f.mu.Lock()
	f.touches++
	f.mu.Unlock()
}

func (f *fakeSession) Current() (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.user == nil {
		return nil, session.ErrNotAuthenticated
	}
	return &domain.Session{AccessToken: "tok", User: *f.user}, nil
}

func (f *fakeSession) AuditLog() []domain.AuditEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.AuditEntry{}, f.audit...)
}

type fakeGateway struct {
	mu      sync.Mutex
	records map[string][]domain.Record
	pending map[string]int
	created []domain.Fields
	updated map[int64]domain.Fields
	deleted []int64
	report  gateway.SyncReport
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{records: map[string][]domain.Record{}, pending: map[string]int{}}
}

func (f *fakeGateway) List(_ context.Context, res domain.Resource) []domain.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Record{}, f.records[res.Name]...)
}

func (f *fakeGateway) Create(_ context.Context, res domain.Resource, fields domain.Fields) (domain.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, fields)
	rec := domain.Record{ID: int64(len(f.created)), Fields: fields}
	f.records[res.Name] = append(f.records[res.Name], rec)
	return rec, nil
}

func (f *fakeGateway) Update(_ context.Context, res domain.Resource, id int64, fields domain.Fields) (domain.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updated == nil {
		f.updated = map[int64]domain.Fields{}
	}
	f.updated[id] = fields
	for i, rec := range f.records[res.Name] {
		if rec.ID == id {
			f.records[res.Name][i].Fields = fields
		}
	}
	return domain.Record{ID: id, Fields: fields}, nil
}

func (f *fakeGateway) Delete(_ context.Context, _ domain.Resource, id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
}

func (f *fakeGateway) SyncOffline(context.Context) (gateway.SyncReport, error) {
	return f.report, nil
}

func (f *fakeGateway) Pending(context.Context) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int, len(f.pending))
	for k, v := range f.pending {
		out[k] = v
	}
	return out, nil
}

func auditEntry(action string, details map[string]any) domain.AuditEntry {
	return domain.AuditEntry{
		ID:        uuid.New(),
		Action:    action,
		Details:   details,
		Timestamp: time.Now().Add(-2 * time.Minute),
		UserAgent: "cursos",
	}
}
