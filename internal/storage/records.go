package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_record_store.go -package=mocks lifehub/internal/storage RecordStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"lifehub/internal/schema"
)

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// RecordStore defines the record operations used by the ingest coordinator.
type RecordStore interface {
	// Upsert inserts rec unless a record with the same natural key exists.
	// Returns nil, nil when the record was skipped as a duplicate.
	Upsert(ctx context.Context, q Querier, table schema.Table, rec Record) (*Record, error)
}

// RecordRepo provides methods for record operations on any registry table.
// It implements the RecordStore interface.
type RecordRepo struct {
	now   func() time.Time
	newID func() string
}

// NewRecordRepo creates a new RecordRepo.
func NewRecordRepo() *RecordRepo {
	return &RecordRepo{
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// WithClock returns a copy of the repo that stamps records with now.
func (r *RecordRepo) WithClock(now func() time.Time) *RecordRepo {
	cp := *r
	cp.now = now
	return &cp
}

// Upsert validates rec against table and inserts it unless a record with the
// same natural key already exists in q, in which case it returns nil, nil.
// On insert the identifier is generated when absent, both timestamps are set
// to the same instant, and the persisted row is read back.
//
// A failed statement is returned as *StorageError; the enclosing transaction
// is left for the caller to resolve.
func (r *RecordRepo) Upsert(ctx context.Context, q Querier, table schema.Table, rec Record) (*Record, error) {
	values, err := table.Normalize(rec.ID, rec.Fields)
	if err != nil {
		return nil, err
	}

	key := table.KeyValues(rec.ID, values)
	exists, err := r.exists(ctx, q, table, key)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, nil
	}

	id := rec.ID
	if id == "" {
		id = r.newID()
	}
	stamp := FormatTimestamp(r.now())

	cols := []string{quoteIdent(schema.IdentifierColumn)}
	args := []any{id}
	for _, c := range table.Columns {
		v, ok := values[c.Name]
		if !ok {
			continue
		}
		cols = append(cols, quoteIdent(c.Name))
		args = append(args, v)
	}
	cols = append(cols, quoteIdent(schema.CreatedAtColumn), quoteIdent(schema.UpdatedAtColumn))
	args = append(args, stamp, stamp)

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table.Name), strings.Join(cols, ", "), placeholders(len(cols)))
	if _, err := q.ExecContext(ctx, stmt, args...); err != nil {
		return nil, &StorageError{Op: "insert", Table: table.Name, Err: err}
	}

	saved, err := r.GetByIdentifier(ctx, q, table, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &StorageError{Op: "insert", Table: table.Name, Err: fmt.Errorf("inserted record %s not readable", id)}
		}
		return nil, err
	}
	return saved, nil
}

func (r *RecordRepo) exists(ctx context.Context, q Querier, table schema.Table, key []any) (bool, error) {
	conds := make([]string, len(table.Key))
	for i, k := range table.Key {
		conds[i] = quoteIdent(k) + " = ?"
	}
	stmt := fmt.Sprintf("SELECT 1 FROM %s WHERE %s LIMIT 1", quoteIdent(table.Name), strings.Join(conds, " AND "))

	var one int
	err := q.QueryRowContext(ctx, stmt, key...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, &StorageError{Op: "lookup", Table: table.Name, Err: err}
	}
	return true, nil
}

// GetByIdentifier gets a record by its identifier.
// Returns nil and ErrNotFound if not found.
func (r *RecordRepo) GetByIdentifier(ctx context.Context, q Querier, table schema.Table, id string) (*Record, error) {
	stmt := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?",
		selectList(table), quoteIdent(table.Name), quoteIdent(schema.IdentifierColumn))
	rows, err := q.QueryContext(ctx, stmt, id)
	if err != nil {
		return nil, &StorageError{Op: "get", Table: table.Name, Err: err}
	}
	recs, err := scanRecords(rows, table)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrNotFound
	}
	return &recs[0], nil
}

// GetByKey gets a record by its natural key. key maps key column names to
// values; the identifier is given under schema.IdentifierColumn.
// Returns nil and ErrNotFound if not found.
func (r *RecordRepo) GetByKey(ctx context.Context, q Querier, table schema.Table, key map[string]any) (*Record, error) {
	conds := make([]string, len(table.Key))
	args := make([]any, len(table.Key))
	for i, k := range table.Key {
		conds[i] = quoteIdent(k) + " = ?"
		args[i] = key[k]
	}
	stmt := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s LIMIT 1",
		selectList(table), quoteIdent(table.Name), strings.Join(conds, " AND "), quoteIdent(schema.IDColumn))
	rows, err := q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, &StorageError{Op: "get", Table: table.Name, Err: err}
	}
	recs, err := scanRecords(rows, table)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrNotFound
	}
	return &recs[0], nil
}

// List returns every record of table in insertion order.
func (r *RecordRepo) List(ctx context.Context, q Querier, table schema.Table) ([]Record, error) {
	stmt := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		selectList(table), quoteIdent(table.Name), quoteIdent(schema.IDColumn))
	rows, err := q.QueryContext(ctx, stmt)
	if err != nil {
		return nil, &StorageError{Op: "list", Table: table.Name, Err: err}
	}
	return scanRecords(rows, table)
}

// Count returns the number of records in table.
func (r *RecordRepo) Count(ctx context.Context, q Querier, table schema.Table) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoteIdent(table.Name)).Scan(&n)
	if err != nil {
		return 0, &StorageError{Op: "count", Table: table.Name, Err: err}
	}
	return n, nil
}

func selectList(table schema.Table) string {
	cols := []string{
		quoteIdent(schema.IdentifierColumn),
		quoteIdent(schema.CreatedAtColumn),
		quoteIdent(schema.UpdatedAtColumn),
	}
	for _, c := range table.Columns {
		cols = append(cols, quoteIdent(c.Name))
	}
	return strings.Join(cols, ", ")
}

func scanRecords(rows *sql.Rows, table schema.Table) ([]Record, error) {
	defer func() { _ = rows.Close() }()

	var out []Record
	for rows.Next() {
		var (
			rec                  Record
			createdAt, updatedAt string
		)
		raw := make([]any, len(table.Columns))
		dest := []any{&rec.ID, &createdAt, &updatedAt}
		for i := range raw {
			dest = append(dest, &raw[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, &StorageError{Op: "scan", Table: table.Name, Err: err}
		}

		var err error
		if rec.CreatedAt, err = ParseTimestamp(createdAt); err != nil {
			return nil, &StorageError{Op: "scan", Table: table.Name, Err: err}
		}
		if rec.UpdatedAt, err = ParseTimestamp(updatedAt); err != nil {
			return nil, &StorageError{Op: "scan", Table: table.Name, Err: err}
		}

		rec.Fields = make(map[string]any, len(table.Columns))
		for i, c := range table.Columns {
			switch v := raw[i].(type) {
			case nil:
			case []byte:
				rec.Fields[c.Name] = string(v)
			default:
				rec.Fields[c.Name] = v
			}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "scan", Table: table.Name, Err: err}
	}
	return out, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
