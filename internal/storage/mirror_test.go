package storage

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutcursos/cursos/pkg/domain"
)

func openTestMirror(t *testing.T) *Mirror {
	t.Helper()
	m, err := OpenMirror(filepath.Join(t.TempDir(), "mirror.db"))
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() }) //nolint:errcheck
	return m
}

func TestMirror_PutList(t *testing.T) {
	ctx := context.Background()
	m := openTestMirror(t)

	require.NoError(t, m.Put(ctx, "pagos", domain.Record{ID: 1, Fields: domain.Fields{"monto": 5000}}))
	require.NoError(t, m.Put(ctx, "pagos", domain.Record{ID: 2, Fields: domain.Fields{"monto": 7000}}))
	require.NoError(t, m.Put(ctx, "prepagos", domain.Record{ID: 3, Fields: domain.Fields{"monto": 1}}))

	recs, err := m.List(ctx, "pagos")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, int64(1), recs[0].ID)
	assert.Equal(t, json.Number("5000"), recs[0].Fields["monto"])
	assert.Equal(t, int64(2), recs[1].ID)

	empty, err := m.List(ctx, "comprobantes")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMirror_PutReplacesSameID(t *testing.T) {
	ctx := context.Background()
	m := openTestMirror(t)

	require.NoError(t, m.Put(ctx, "pagos", domain.Record{ID: 1, Fields: domain.Fields{"monto": 1}}))
	require.NoError(t, m.Put(ctx, "pagos", domain.Record{ID: 1, Fields: domain.Fields{"monto": 2}}))

	recs, err := m.List(ctx, "pagos")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, json.Number("2"), recs[0].Fields["monto"])
}

func TestMirror_PutRejectsNilFields(t *testing.T) {
	m := openTestMirror(t)
	err := m.Put(context.Background(), "pagos", domain.Record{ID: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestMirror_Merge(t *testing.T) {
	ctx := context.Background()
	m := openTestMirror(t)
	require.NoError(t, m.Put(ctx, "pagos", domain.Record{ID: 9, Fields: domain.Fields{"monto": 1, "glosa": "inscripción"}}))

	rec, found, err := m.Merge(ctx, "pagos", 9, domain.Fields{"monto": 2})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(9), rec.ID)
	assert.Equal(t, json.Number("2"), rec.Fields["monto"])
	assert.Equal(t, "inscripción", rec.Fields["glosa"])

	recs, err := m.List(ctx, "pagos")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, rec, recs[0])
}

func TestMirror_MergeMissing(t *testing.T) {
	m := openTestMirror(t)
	_, found, err := m.Merge(context.Background(), "pagos", 404, domain.Fields{"monto": 2})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMirror_Delete(t *testing.T) {
	ctx := context.Background()
	m := openTestMirror(t)
	require.NoError(t, m.Put(ctx, "pagos", domain.Record{ID: 1, Fields: domain.Fields{"a": 1}}))
	require.NoError(t, m.Put(ctx, "pagos", domain.Record{ID: 2, Fields: domain.Fields{"a": 2}}))

	require.NoError(t, m.Delete(ctx, "pagos", 1))
	require.NoError(t, m.Delete(ctx, "pagos", 1), "deleting a missing record is not an error")

	recs, err := m.List(ctx, "pagos")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, int64(2), recs[0].ID)
}

func TestMirror_Counts(t *testing.T) {
	ctx := context.Background()
	m := openTestMirror(t)
	require.NoError(t, m.Put(ctx, "pagos", domain.Record{ID: 1, Fields: domain.Fields{}}))
	require.NoError(t, m.Put(ctx, "pagos", domain.Record{ID: 2, Fields: domain.Fields{}}))
	require.NoError(t, m.Put(ctx, "pagocambios", domain.Record{ID: 3, Fields: domain.Fields{}}))

	counts, err := m.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"pagos": 2, "pagocambios": 1}, counts)
}

func TestMirror_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "mirror.db")

	m, err := OpenMirror(path)
	require.NoError(t, err)
	require.NoError(t, m.Put(ctx, "comprobantes", domain.Record{ID: 5, Fields: domain.Fields{"numero": "A-1"}}))
	require.NoError(t, m.Close())

	m, err = OpenMirror(path)
	require.NoError(t, err)
	defer m.Close() //nolint:errcheck

	recs, err := m.List(ctx, "comprobantes")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "A-1", recs[0].Fields["numero"])
}

func TestValidatePayload(t *testing.T) {
	tests := []struct {
		payload string
		valid   bool
	}{
		{`{}`, true},
		{` {"a":1}`, true},
		{`[]`, false},
		{`null`, false},
		{`{"a":`, false},
		{``, false},
	}
	for _, tt := range tests {
		err := validatePayload(tt.payload)
		if tt.valid {
			assert.NoError(t, err, tt.payload)
		} else {
			assert.ErrorIs(t, err, ErrInvalidPayload, tt.payload)
		}
	}
}

func TestOpenMirror_CreatesMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".cursos", "nested", "mirror.db")
	m, err := OpenMirror(path)
	require.NoError(t, err)
	defer m.Close() //nolint:errcheck

	require.NoError(t, m.Put(context.Background(), "pagos", domain.Record{ID: 1, Fields: domain.Fields{"monto": 1}}))
	assert.FileExists(t, path)
}
