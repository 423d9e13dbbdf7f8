package schema

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDefault(t *testing.T) {
	r := Default()

	tests := []struct {
		table string
		key   []string
	}{
		{table: "DailyNotes", key: []string{"date"}},
		{table: "QuantifiableHabits", key: []string{"date", "habitKey"}},
		{table: "UserSettings", key: []string{"settingKey"}},
		{table: "Mood", key: []string{IdentifierColumn}},
	}

	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			tbl, ok := r.Table(tt.table)
			if !ok {
				t.Fatalf("Table(%q) not found", tt.table)
			}
			if len(tbl.Key) != len(tt.key) {
				t.Fatalf("Key = %v, want %v", tbl.Key, tt.key)
			}
			for i := range tt.key {
				if tbl.Key[i] != tt.key[i] {
					t.Errorf("Key[%d] = %s, want %s", i, tbl.Key[i], tt.key[i])
				}
			}
		})
	}

	names := r.Tables()
	for i := 1; i < len(names); i++ {
		if names[i-1].Name >= names[i].Name {
			t.Errorf("Tables() not sorted: %s before %s", names[i-1].Name, names[i].Name)
		}
	}
}

func TestNewRegistry_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		tables []Table
	}{
		{
			name:   "missing key",
			tables: []Table{{Name: "A", Columns: []Column{{Name: "x", Type: TypeText}}}},
		},
		{
			name:   "undeclared key column",
			tables: []Table{{Name: "A", Key: []string{"y"}, Columns: []Column{{Name: "x", Type: TypeText}}}},
		},
		{
			name: "duplicate table",
			tables: []Table{
				{Name: "A", Key: []string{"x"}, Columns: []Column{{Name: "x", Type: TypeText}}},
				{Name: "A", Key: []string{"x"}, Columns: []Column{{Name: "x", Type: TypeText}}},
			},
		},
		{
			name:   "generated column declared",
			tables: []Table{{Name: "A", Key: []string{"x"}, Columns: []Column{{Name: "x", Type: TypeText}, {Name: CreatedAtColumn, Type: TypeText}}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRegistry(tt.tables...); err == nil {
				t.Error("NewRegistry() expected error, got nil")
			}
		})
	}
}

func TestRegistry_Lookup(t *testing.T) {
	r := Default()

	if _, err := r.Lookup("DailyNotes"); err != nil {
		t.Errorf("Lookup(DailyNotes) error = %v", err)
	}

	_, err := r.Lookup("Nope")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Lookup(Nope) error = %v, want *ValidationError", err)
	}
	if verr.Table != "Nope" {
		t.Errorf("ValidationError.Table = %s, want Nope", verr.Table)
	}
}

func TestTable_Normalize(t *testing.T) {
	r := Default()
	habits, _ := r.Table("QuantifiableHabits")
	notes, _ := r.Table("DailyNotes")
	mood, _ := r.Table("Mood")

	tests := []struct {
		name      string
		table     Table
		id        string
		fields    map[string]any
		wantField string
		check     func(map[string]any) bool
	}{
		{
			name:   "valid habit with float value",
			table:  habits,
			fields: map[string]any{"date": "2024-02-01", "habitKey": "sleep", "value": float64(7)},
			check: func(v map[string]any) bool {
				return v["value"] == int64(7) && v["habitKey"] == "sleep"
			},
		},
		{
			name:   "json number and unknown column dropped",
			table:  habits,
			fields: map[string]any{"date": "2024-02-01", "habitKey": "sleep", "value": json.Number("3"), "synced": 1},
			check: func(v map[string]any) bool {
				_, hasSynced := v["synced"]
				return v["value"] == int64(3) && !hasSynced
			},
		},
		{
			name:      "missing key column",
			table:     habits,
			fields:    map[string]any{"date": "2024-02-01", "value": 1},
			wantField: "habitKey",
		},
		{
			name:      "empty key column",
			table:     notes,
			fields:    map[string]any{"date": ""},
			wantField: "date",
		},
		{
			name:      "bad date format",
			table:     notes,
			fields:    map[string]any{"date": "01/02/2024"},
			wantField: "date",
		},
		{
			name:      "fractional integer",
			table:     habits,
			fields:    map[string]any{"date": "2024-02-01", "habitKey": "sleep", "value": 1.5},
			wantField: "value",
		},
		{
			name:      "identifier key without identifier",
			table:     mood,
			fields:    map[string]any{"rating": 3},
			wantField: IdentifierColumn,
		},
		{
			name:   "identifier key with identifier",
			table:  mood,
			id:     "0b6f4c0e-8a59-4b53-9d0c-8a0f38f3f1aa",
			fields: map[string]any{"rating": 3, "comment": "ok"},
			check: func(v map[string]any) bool {
				return v["rating"] == int64(3) && v["comment"] == "ok"
			},
		},
		{
			name:   "boolean stored as integer",
			table:  habits,
			fields: map[string]any{"date": "2024-02-01", "habitKey": "run", "value": true},
			check: func(v map[string]any) bool {
				return v["value"] == int64(1)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.table.Normalize(tt.id, tt.fields)
			if tt.wantField != "" {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("Normalize() error = %v, want *ValidationError", err)
				}
				if verr.Field != tt.wantField {
					t.Errorf("ValidationError.Field = %s, want %s", verr.Field, tt.wantField)
				}
				return
			}
			if err != nil {
				t.Fatalf("Normalize() unexpected error: %v", err)
			}
			if tt.check != nil && !tt.check(got) {
				t.Errorf("Normalize() = %v, validation failed", got)
			}
		})
	}
}

func TestTable_KeyValues(t *testing.T) {
	habits, _ := Default().Table("QuantifiableHabits")
	key := habits.KeyValues("", map[string]any{"date": "2024-02-01", "habitKey": "sleep", "value": int64(1)})
	if len(key) != 2 || key[0] != "2024-02-01" || key[1] != "sleep" {
		t.Errorf("KeyValues() = %v", key)
	}

	mood, _ := Default().Table("Mood")
	key = mood.KeyValues("abc", map[string]any{})
	if len(key) != 1 || key[0] != "abc" {
		t.Errorf("KeyValues() = %v, want [abc]", key)
	}
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Table: "DailyNotes", Field: "date", Message: "natural key column is missing"}
	want := "validation error on DailyNotes.date: natural key column is missing"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	err = &ValidationError{Table: "Nope", Message: "unknown table"}
	want = "validation error on table Nope: unknown table"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
