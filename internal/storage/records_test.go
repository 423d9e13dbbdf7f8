package storage

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"lifehub/internal/schema"
)

func TestRecordRepo_Upsert(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	reg := schema.Default()
	notes, _ := reg.Table("DailyNotes")
	mood, _ := reg.Table("Mood")

	fixed := time.Date(2024, 1, 1, 8, 30, 0, 123456789, time.UTC)
	repo := NewRecordRepo().WithClock(func() time.Time { return fixed })

	t.Run("insert into empty table", func(t *testing.T) {
		got, err := repo.Upsert(ctx, db.SQL(), notes, Record{Fields: map[string]any{"date": "2024-01-01", "morningComment": "ok"}})
		if err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
		if got == nil {
			t.Fatal("Upsert() returned nil record")
		}
		if got.Fields["date"] != "2024-01-01" {
			t.Errorf("date = %v, want 2024-01-01", got.Fields["date"])
		}
		if got.Fields["morningComment"] != "ok" {
			t.Errorf("morningComment = %v, want ok", got.Fields["morningComment"])
		}
		if got.ID == "" {
			t.Error("ID is empty")
		}
		if !got.CreatedAt.Equal(got.UpdatedAt) {
			t.Errorf("CreatedAt = %v, UpdatedAt = %v, want equal", got.CreatedAt, got.UpdatedAt)
		}
		if want := fixed.Truncate(time.Millisecond); !got.CreatedAt.Equal(want) {
			t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, want)
		}
	})

	t.Run("re-insert same key is skipped", func(t *testing.T) {
		got, err := repo.Upsert(ctx, db.SQL(), notes, Record{Fields: map[string]any{"date": "2024-01-01", "morningComment": "changed"}})
		if err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
		if got != nil {
			t.Errorf("Upsert() = %+v, want nil", got)
		}
		n, err := repo.Count(ctx, db.SQL(), notes)
		if err != nil {
			t.Fatalf("Count() error = %v", err)
		}
		if n != 1 {
			t.Errorf("Count() = %d, want 1", n)
		}

		stored, err := repo.GetByKey(ctx, db.SQL(), notes, map[string]any{"date": "2024-01-01"})
		if err != nil {
			t.Fatalf("GetByKey() error = %v", err)
		}
		if stored.Fields["morningComment"] != "ok" {
			t.Errorf("existing record modified: morningComment = %v", stored.Fields["morningComment"])
		}
	})

	t.Run("validation error does not touch the store", func(t *testing.T) {
		_, err := repo.Upsert(ctx, db.SQL(), notes, Record{Fields: map[string]any{"morningComment": "no date"}})
		var verr *schema.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("Upsert() error = %v, want *schema.ValidationError", err)
		}
		if n, _ := repo.Count(ctx, db.SQL(), notes); n != 1 {
			t.Errorf("Count() = %d, want 1", n)
		}
	})

	t.Run("client identifier is kept", func(t *testing.T) {
		id := "6f1c2b8e-6f1e-4a43-9b59-3f9d7c1e2a10"
		got, err := repo.Upsert(ctx, db.SQL(), mood, Record{ID: id, Fields: map[string]any{"rating": 4}})
		if err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
		if got == nil || got.ID != id {
			t.Fatalf("Upsert() = %+v, want ID %s", got, id)
		}
		if got.Fields["rating"] != int64(4) {
			t.Errorf("rating = %v (%T), want int64 4", got.Fields["rating"], got.Fields["rating"])
		}
	})

	t.Run("identifier reused under another natural key", func(t *testing.T) {
		existing, err := repo.GetByKey(ctx, db.SQL(), notes, map[string]any{"date": "2024-01-01"})
		if err != nil {
			t.Fatalf("GetByKey() error = %v", err)
		}
		_, err = repo.Upsert(ctx, db.SQL(), notes, Record{ID: existing.ID, Fields: map[string]any{"date": "2024-01-02"}})
		var serr *StorageError
		if !errors.As(err, &serr) {
			t.Fatalf("Upsert() error = %v, want *StorageError", err)
		}
		if IsTxScope(err) {
			t.Error("constraint violation classified as transaction scope")
		}
	})
}

func TestRecordRepo_UpsertSeesEarlierInsertInSameTx(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	habits, _ := schema.Default().Table("QuantifiableHabits")
	repo := NewRecordRepo()

	var first, second *Record
	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		rec := Record{Fields: map[string]any{"date": "2024-02-01", "habitKey": "sleep", "value": 7}}
		if first, err = repo.Upsert(ctx, tx, habits, rec); err != nil {
			return err
		}
		second, err = repo.Upsert(ctx, tx, habits, rec)
		return err
	})
	if err != nil {
		t.Fatalf("WithTx() error = %v", err)
	}
	if first == nil {
		t.Error("first Upsert() returned nil")
	}
	if second != nil {
		t.Errorf("second Upsert() = %+v, want nil", second)
	}
}

func TestRecordRepo_List(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	pillars, _ := schema.Default().Table("Pillars")
	repo := NewRecordRepo()

	for _, name := range []string{"Health", "Work", "Family"} {
		if _, err := repo.Upsert(ctx, db.SQL(), pillars, Record{Fields: map[string]any{"name": name}}); err != nil {
			t.Fatalf("Upsert(%s) error = %v", name, err)
		}
	}

	got, err := repo.List(ctx, db.SQL(), pillars)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{"Health", "Work", "Family"}
	if len(got) != len(want) {
		t.Fatalf("List() returned %d records, want %d", len(got), len(want))
	}
	for i, rec := range got {
		if rec.Fields["name"] != want[i] {
			t.Errorf("List()[%d] = %v, want %s", i, rec.Fields["name"], want[i])
		}
		if _, ok := rec.Fields["description"]; ok {
			t.Errorf("List()[%d] has NULL column in Fields", i)
		}
	}
}

func TestRecordRepo_GetByKey_NotFound(t *testing.T) {
	db := newTestDB(t)
	notes, _ := schema.Default().Table("DailyNotes")

	_, err := NewRecordRepo().GetByKey(context.Background(), db.SQL(), notes, map[string]any{"date": "1999-01-01"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByKey() error = %v, want ErrNotFound", err)
	}
}

func TestRecordFromMap(t *testing.T) {
	rec := RecordFromMap(map[string]any{
		"id":        float64(12),
		"uuid":      "abc",
		"createdAt": "2020-01-01T00:00:00.000Z",
		"date":      "2024-01-01",
	})
	if rec.ID != "abc" {
		t.Errorf("ID = %s, want abc", rec.ID)
	}
	if len(rec.Fields) != 1 || rec.Fields["date"] != "2024-01-01" {
		t.Errorf("Fields = %v, want only date", rec.Fields)
	}

	m := rec.Map()
	if m["uuid"] != "abc" || m["date"] != "2024-01-01" {
		t.Errorf("Map() = %v", m)
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{in: "2024-01-01T08:30:00.123Z"},
		{in: "2024-01-01T08:30:00+02:00"},
		{in: "yesterday", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTimestamp() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got.Location() != time.UTC {
				t.Errorf("ParseTimestamp() location = %v, want UTC", got.Location())
			}
		})
	}
}

func TestRecordRepo_GetByIdentifier(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	pillars, _ := schema.Default().Table("Pillars")
	repo := NewRecordRepo()

	inserted, err := repo.Upsert(ctx, db.SQL(), pillars, Record{
		ID:     "5b0c6f1e-2d7a-4c1b-9a55-0f3f5e4d2c11",
		Fields: map[string]any{"name": "Health"},
	})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := repo.GetByIdentifier(ctx, db.SQL(), pillars, inserted.ID)
	if err != nil {
		t.Fatalf("GetByIdentifier() error = %v", err)
	}
	if got.ID != "5b0c6f1e-2d7a-4c1b-9a55-0f3f5e4d2c11" || got.Fields["name"] != "Health" {
		t.Errorf("GetByIdentifier() = %+v", got)
	}

	if _, err := repo.GetByIdentifier(ctx, db.SQL(), pillars, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByIdentifier(missing) error = %v, want ErrNotFound", err)
	}
}
