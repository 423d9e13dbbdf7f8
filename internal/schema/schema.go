package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"
)

// Generated columns present on every table. They are never part of a payload.
const (
	// IDColumn is the client-side autoincrement key. Values sent by clients are ignored.
	IDColumn = "id"
	// IdentifierColumn holds the globally unique record identifier.
	IdentifierColumn = "uuid"
	// CreatedAtColumn is set once on insert.
	CreatedAtColumn = "createdAt"
	// UpdatedAtColumn is refreshed on every successful write.
	UpdatedAtColumn = "updatedAt"
)

// DateLayout is the accepted format for date columns.
const DateLayout = "2006-01-02"

// ColumnType is the storage type of a payload column.
type ColumnType string

const (
	TypeText    ColumnType = "text"
	TypeInteger ColumnType = "integer"
	TypeReal    ColumnType = "real"
	TypeDate    ColumnType = "date"
)

// SQLType returns the SQLite column affinity for the type.
func (t ColumnType) SQLType() string {
	switch t {
	case TypeInteger:
		return "INTEGER"
	case TypeReal:
		return "REAL"
	default:
		return "TEXT"
	}
}

// Column describes one payload column.
type Column struct {
	Name     string
	Type     ColumnType
	Required bool
}

// Table is the immutable configuration of one record table.
type Table struct {
	Name    string
	Key     []string // natural key columns, in order
	Columns []Column
}

// Column returns the column with the given name. The identifier column is
// reported as a text column so it can take part in natural keys.
func (t Table) Column(name string) (Column, bool) {
	if name == IdentifierColumn {
		return Column{Name: IdentifierColumn, Type: TypeText, Required: true}, true
	}
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// KeyUsesIdentifier reports whether the identifier is part of the natural key.
// Such tables cannot generate identifiers on insert.
func (t Table) KeyUsesIdentifier() bool {
	for _, k := range t.Key {
		if k == IdentifierColumn {
			return true
		}
	}
	return false
}

// Normalize validates a payload against the table and returns the values to
// persist, coerced to their column types. Generated and unknown columns are
// dropped. The identifier is passed separately because it is generated when
// absent (unless it is part of the key).
func (t Table) Normalize(identifier string, fields map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(t.Columns))

	for _, k := range t.Key {
		if k == IdentifierColumn {
			if identifier == "" {
				return nil, &ValidationError{Table: t.Name, Field: k, Message: "natural key column is missing"}
			}
			continue
		}
		v, ok := fields[k]
		if !ok || v == nil {
			return nil, &ValidationError{Table: t.Name, Field: k, Message: "natural key column is missing"}
		}
		if s, isString := v.(string); isString && s == "" {
			return nil, &ValidationError{Table: t.Name, Field: k, Message: "natural key column is empty"}
		}
	}

	for _, c := range t.Columns {
		raw, ok := fields[c.Name]
		if !ok || raw == nil {
			if c.Required {
				return nil, &ValidationError{Table: t.Name, Field: c.Name, Message: "required column is missing"}
			}
			continue
		}
		v, err := coerce(c.Type, raw)
		if err != nil {
			return nil, &ValidationError{Table: t.Name, Field: c.Name, Message: err.Error()}
		}
		out[c.Name] = v
	}

	return out, nil
}

// KeyValues returns the natural key tuple from normalized values.
func (t Table) KeyValues(identifier string, values map[string]any) []any {
	key := make([]any, len(t.Key))
	for i, k := range t.Key {
		if k == IdentifierColumn {
			key[i] = identifier
			continue
		}
		key[i] = values[k]
	}
	return key
}

func coerce(typ ColumnType, raw any) (any, error) {
	switch typ {
	case TypeText:
		switch v := raw.(type) {
		case string:
			return v, nil
		case json.Number:
			return v.String(), nil
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), nil
		case bool:
			return strconv.FormatBool(v), nil
		}
		return nil, fmt.Errorf("expected text, got %T", raw)

	case TypeDate:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected date string, got %T", raw)
		}
		if _, err := time.Parse(DateLayout, s); err != nil {
			return nil, fmt.Errorf("bad date format %q, want YYYY-MM-DD", s)
		}
		return s, nil

	case TypeInteger:
		switch v := raw.(type) {
		case bool:
			if v {
				return int64(1), nil
			}
			return int64(0), nil
		case int:
			return int64(v), nil
		case int64:
			return v, nil
		case float64:
			if v != math.Trunc(v) {
				return nil, fmt.Errorf("expected integer, got %v", v)
			}
			return int64(v), nil
		case json.Number:
			n, err := v.Int64()
			if err != nil {
				return nil, fmt.Errorf("expected integer, got %s", v)
			}
			return n, nil
		case string:
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("expected integer, got %q", v)
			}
			return n, nil
		}
		return nil, fmt.Errorf("expected integer, got %T", raw)

	case TypeReal:
		switch v := raw.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		case json.Number:
			f, err := v.Float64()
			if err != nil {
				return nil, fmt.Errorf("expected number, got %s", v)
			}
			return f, nil
		case string:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("expected number, got %q", v)
			}
			return f, nil
		}
		return nil, fmt.Errorf("expected number, got %T", raw)
	}
	return nil, fmt.Errorf("unknown column type %q", typ)
}

// Registry is a read-only set of tables, built once at startup.
type Registry struct {
	tables map[string]Table
	names  []string
}

// NewRegistry validates the given tables and returns a registry.
func NewRegistry(tables ...Table) (*Registry, error) {
	r := &Registry{tables: make(map[string]Table, len(tables))}
	for _, t := range tables {
		if t.Name == "" {
			return nil, fmt.Errorf("table with empty name")
		}
		if _, dup := r.tables[t.Name]; dup {
			return nil, fmt.Errorf("table %s declared twice", t.Name)
		}
		if len(t.Key) == 0 {
			return nil, fmt.Errorf("table %s has no natural key", t.Name)
		}
		seen := make(map[string]bool, len(t.Columns))
		for _, c := range t.Columns {
			switch c.Name {
			case IDColumn, IdentifierColumn, CreatedAtColumn, UpdatedAtColumn:
				return nil, fmt.Errorf("table %s: column %s is generated", t.Name, c.Name)
			}
			if seen[c.Name] {
				return nil, fmt.Errorf("table %s: column %s declared twice", t.Name, c.Name)
			}
			seen[c.Name] = true
		}
		for _, k := range t.Key {
			if _, ok := t.Column(k); !ok {
				return nil, fmt.Errorf("table %s: key column %s is not declared", t.Name, k)
			}
		}

		// Copy slices so callers cannot mutate the registry.
		t.Key = append([]string(nil), t.Key...)
		t.Columns = append([]Column(nil), t.Columns...)
		r.tables[t.Name] = t
		r.names = append(r.names, t.Name)
	}
	sort.Strings(r.names)
	return r, nil
}

// Table returns the table with the given name.
func (r *Registry) Table(name string) (Table, bool) {
	t, ok := r.tables[name]
	return t, ok
}

// Lookup is like Table but returns a ValidationError for unknown tables.
func (r *Registry) Lookup(name string) (Table, error) {
	t, ok := r.tables[name]
	if !ok {
		return Table{}, &ValidationError{Table: name, Message: "unknown table"}
	}
	return t, nil
}

// Tables returns all tables ordered by name.
func (r *Registry) Tables() []Table {
	out := make([]Table, 0, len(r.names))
	for _, n := range r.names {
		out = append(out, r.tables[n])
	}
	return out
}
