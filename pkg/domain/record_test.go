package domain

import (
	"encoding/json"
	"testing"
)

func TestRecordFromWire(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		idField string
		wantID  int64
	}{
		{"resource id field", `{"pap_id": 12, "monto": 100}`, "pap_id", 12},
		{"generic id fallback", `{"id": 7, "monto": 100}`, "pap_id", 7},
		{"resource field wins", `{"pap_id": 3, "id": 9}`, "pap_id", 3},
		{"string id", `{"com_id": "42"}`, "com_id", 42},
		{"no id", `{"monto": 1}`, "pap_id", 0},
		{"non numeric id", `{"pap_id": "abc"}`, "pap_id", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := RecordFromWire([]byte(tt.body), tt.idField)
			if err != nil {
				t.Fatalf("RecordFromWire() error: %v", err)
			}
			if rec.ID != tt.wantID {
				t.Errorf("ID = %d, want %d", rec.ID, tt.wantID)
			}
			if _, ok := rec.Fields[tt.idField]; ok {
				t.Errorf("Fields still contains %q", tt.idField)
			}
			if _, ok := rec.Fields["id"]; ok {
				t.Error("Fields still contains \"id\"")
			}
		})
	}
}

func TestRecordFromWire_RejectsNonObject(t *testing.T) {
	for _, body := range []string{`[1,2]`, `null`, `"x"`, `{`} {
		if _, err := RecordFromWire([]byte(body), "pap_id"); err == nil {
			t.Errorf("RecordFromWire(%s) expected error", body)
		}
	}
}

func TestRecordWire(t *testing.T) {
	rec := Record{ID: 5, Fields: Fields{"descripcion": "Curso X"}}
	wire := rec.Wire("pap_id")
	if wire["pap_id"] != int64(5) {
		t.Errorf("pap_id = %v, want 5", wire["pap_id"])
	}
	if wire["descripcion"] != "Curso X" {
		t.Errorf("descripcion = %v, want %q", wire["descripcion"], "Curso X")
	}
	if _, ok := rec.Fields["pap_id"]; ok {
		t.Error("Wire mutated the record's fields")
	}

	if _, ok := (Record{Fields: Fields{"a": 1}}).Wire("pap_id")["pap_id"]; ok {
		t.Error("zero ID should be omitted")
	}
}

func TestNormalizeFields(t *testing.T) {
	got, err := NormalizeFields(Fields{"monto": 100, "nombre": "Ana", "activo": true})
	if err != nil {
		t.Fatalf("NormalizeFields() error: %v", err)
	}
	if got["monto"] != json.Number("100") {
		t.Errorf("monto = %#v, want json.Number(\"100\")", got["monto"])
	}
	if got["nombre"] != "Ana" {
		t.Errorf("nombre = %#v, want %q", got["nombre"], "Ana")
	}
	if got["activo"] != true {
		t.Errorf("activo = %#v, want true", got["activo"])
	}

	empty, err := NormalizeFields(nil)
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("NormalizeFields(nil) = %v, %v; want empty map", empty, err)
	}
}
