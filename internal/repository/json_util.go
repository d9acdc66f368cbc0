package repository

import (
	"database/sql"
	"encoding/json"
	"time"
)

// nullableJSON maps an empty payload to SQL NULL for jsonb columns.
func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	var tmp any
	if err := json.Unmarshal(raw, &tmp); err != nil || tmp == nil {
		return nil
	}
	return string(raw)
}

func rawOrNil(b []byte) json.RawMessage {
	if len(b) == 0 {
		return nil
	}
	return json.RawMessage(b)
}

func nullFloat(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

func nullInt(i sql.NullInt64) *int {
	if !i.Valid {
		return nil
	}
	v := int(i.Int64)
	return &v
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

// ptrArg unwraps optional values for query arguments; nil pointers become NULL.
func ptrArg[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
