package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/scoutcursos/cursos/pkg/domain"
)

// ErrInvalidPayload is returned when a mirror payload is not a JSON object.
var ErrInvalidPayload = errors.New("mirror payload must be a JSON object")

// mirrorRow is one pending record. The identifier is a column, never part of
// the payload.
type mirrorRow struct {
	Resource  string `gorm:"primaryKey;size:64"`
	RecordID  int64  `gorm:"primaryKey;autoIncrement:false"`
	Payload   string `gorm:"type:text;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (mirrorRow) TableName() string { return "mirror_records" }

// BeforeSave rejects payloads that are not JSON objects.
func (r *mirrorRow) BeforeSave(*gorm.DB) error {
	return validatePayload(r.Payload)
}

func validatePayload(payload string) error {
	trimmed := bytes.TrimSpace([]byte(payload))
	if !json.Valid(trimmed) || len(trimmed) == 0 || trimmed[0] != '{' {
		return ErrInvalidPayload
	}
	return nil
}

// Mirror is the durable store of records written while the backend was
// unreachable. Every operation touches a single record atomically.
type Mirror struct {
	db *gorm.DB
}

// OpenMirror opens (creating if needed) the SQLite mirror at path, along with
// its parent directory.
func OpenMirror(path string) (*Mirror, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("storage.OpenMirror: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("storage.OpenMirror: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("storage.OpenMirror: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps ":memory:" coherent.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&mirrorRow{}); err != nil {
		sqlDB.Close() //nolint:errcheck
		return nil, fmt.Errorf("storage.OpenMirror: migrate: %w", err)
	}
	return &Mirror{db: db}, nil
}

// Close releases the database handle.
func (m *Mirror) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// List returns the pending records of a resource in insertion order.
func (m *Mirror) List(ctx context.Context, resource string) ([]domain.Record, error) {
	var rows []mirrorRow
	err := m.db.WithContext(ctx).
		Where("resource = ?", resource).
		Order("created_at, record_id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("storage.List %s: %w", resource, err)
	}

	records := make([]domain.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := row.record()
		if err != nil {
			return nil, fmt.Errorf("storage.List %s: %w", resource, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Put inserts rec, replacing any record with the same id.
func (m *Mirror) Put(ctx context.Context, resource string, rec domain.Record) error {
	payload, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("storage.Put %s: %w", resource, err)
	}
	row := mirrorRow{Resource: resource, RecordID: rec.ID, Payload: string(payload)}
	err = m.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "resource"}, {Name: "record_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("storage.Put %s/%d: %w", resource, rec.ID, err)
	}
	return nil
}

// Merge overlays fields onto the record with the given id and returns the
// result. found is false when no such record exists; nothing is written then.
func (m *Mirror) Merge(ctx context.Context, resource string, id int64, fields domain.Fields) (rec domain.Record, found bool, err error) {
	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row mirrorRow
		err := tx.Where("resource = ? AND record_id = ?", resource, id).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		current, err := row.record()
		if err != nil {
			return err
		}
		for k, v := range fields {
			current.Fields[k] = v
		}
		payload, err := json.Marshal(current.Fields)
		if err != nil {
			return err
		}
		row.Payload = string(payload)
		if err := tx.Save(&row).Error; err != nil {
			return err
		}

		rec, err = row.record()
		found = err == nil
		return err
	})
	if err != nil {
		return domain.Record{}, false, fmt.Errorf("storage.Merge %s/%d: %w", resource, id, err)
	}
	return rec, found, nil
}

// Delete removes the record with the given id. Missing records are ignored.
func (m *Mirror) Delete(ctx context.Context, resource string, id int64) error {
	err := m.db.WithContext(ctx).
		Where("resource = ? AND record_id = ?", resource, id).
		Delete(&mirrorRow{}).Error
	if err != nil {
		return fmt.Errorf("storage.Delete %s/%d: %w", resource, id, err)
	}
	return nil
}

// Counts returns the number of pending records per resource. Resources with
// nothing pending are absent.
func (m *Mirror) Counts(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		Resource string
		N        int
	}
	err := m.db.WithContext(ctx).
		Model(&mirrorRow{}).
		Select("resource, count(*) AS n").
		Group("resource").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("storage.Counts: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.Resource] = r.N
	}
	return counts, nil
}

func (r mirrorRow) record() (domain.Record, error) {
	fields, err := domain.DecodeFields([]byte(r.Payload))
	if err != nil {
		return domain.Record{}, err
	}
	return domain.Record{ID: r.RecordID, Fields: fields}, nil
}
