package storage

import (
	"time"

	"lifehub/internal/schema"
)

// TimestampLayout is the stored form of createdAt and updatedAt: UTC with
// millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Record is one row of a registry table.
type Record struct {
	ID        string // uuid, generated on insert when empty
	CreatedAt time.Time
	UpdatedAt time.Time
	Fields    map[string]any // payload columns only
}

// RecordFromMap splits a client payload into identifier and fields.
// Generated columns sent by the client are ignored.
func RecordFromMap(m map[string]any) Record {
	rec := Record{Fields: make(map[string]any, len(m))}
	for k, v := range m {
		switch k {
		case schema.IdentifierColumn:
			if s, ok := v.(string); ok {
				rec.ID = s
			}
		case schema.IDColumn, schema.CreatedAtColumn, schema.UpdatedAtColumn:
		default:
			rec.Fields[k] = v
		}
	}
	return rec
}

// Map flattens the record into a single map, as returned to clients.
func (r Record) Map() map[string]any {
	m := make(map[string]any, len(r.Fields)+3)
	for k, v := range r.Fields {
		m[k] = v
	}
	m[schema.IdentifierColumn] = r.ID
	m[schema.CreatedAtColumn] = FormatTimestamp(r.CreatedAt)
	m[schema.UpdatedAtColumn] = FormatTimestamp(r.UpdatedAt)
	return m
}

// FormatTimestamp formats t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a stored timestamp. RFC 3339 is accepted for rows
// written by other clients.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}, err
		}
	}
	return t.UTC(), nil
}
