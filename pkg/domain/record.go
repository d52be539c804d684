package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Fields is a JSON object payload as exchanged with the backend.
type Fields map[string]any

// Record is a backend entity with its identifier lifted out of the payload.
// The wire id field differs per resource (pap_id, com_id, ...); ID is the only
// identifier code past the wire boundary looks at.
type Record struct {
	ID     int64
	Fields Fields
}

// RecordFromWire decodes a JSON object received for a resource whose
// identifier lives under idField. A generic "id" key is accepted when idField
// is absent. Both keys are removed from Fields.
func RecordFromWire(data []byte, idField string) (Record, error) {
	f, err := DecodeFields(data)
	if err != nil {
		return Record{}, err
	}
	return RecordFromFields(f, idField), nil
}

// RecordFromFields lifts the identifier out of an already decoded payload.
func RecordFromFields(f Fields, idField string) Record {
	rec := Record{Fields: make(Fields, len(f))}
	for k, v := range f {
		rec.Fields[k] = v
	}
	if id, ok := parseID(rec.Fields[idField]); ok {
		rec.ID = id
	} else if id, ok := parseID(rec.Fields["id"]); ok {
		rec.ID = id
	}
	delete(rec.Fields, idField)
	delete(rec.Fields, "id")
	return rec
}

// Wire returns the payload with the identifier stored under idField.
// A zero ID is omitted.
func (r Record) Wire(idField string) Fields {
	out := make(Fields, len(r.Fields)+1)
	for k, v := range r.Fields {
		out[k] = v
	}
	if r.ID != 0 {
		out[idField] = r.ID
	}
	return out
}

// NormalizeFields round-trips f through JSON so values take the same shape
// they have after being stored and read back (numbers become json.Number).
func NormalizeFields(f Fields) (Fields, error) {
	if f == nil {
		return Fields{}, nil
	}
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("domain.NormalizeFields: %w", err)
	}
	return DecodeFields(data)
}

// DecodeFields decodes a JSON object, keeping numbers as json.Number.
func DecodeFields(data []byte) (Fields, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var f Fields
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if f == nil {
		return nil, fmt.Errorf("decode record: payload is not a JSON object")
	}
	return f, nil
}

func parseID(v any) (int64, bool) {
	switch id := v.(type) {
	case json.Number:
		n, err := id.Int64()
		return n, err == nil
	case float64:
		if id != math.Trunc(id) {
			return 0, false
		}
		return int64(id), true
	case int:
		return int64(id), true
	case int64:
		return id, true
	case string:
		n, err := strconv.ParseInt(id, 10, 64)
		return n, err == nil
	}
	return 0, false
}
