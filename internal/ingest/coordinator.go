// Package ingest applies client record batches to the store.
package ingest

import (
	"context"
	"database/sql"
	"fmt"

	"lifehub/internal/contextutil"
	"lifehub/internal/schema"
	"lifehub/internal/storage"
)

// Outcome is the result of one record within a batch.
type Outcome int

const (
	// Inserted means the record was new and has been written.
	Inserted Outcome = iota
	// Skipped means a record with the same natural key already existed.
	Skipped
	// Failed means the record was rejected; see RecordResult.Err.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Outcome) UnmarshalText(text []byte) error {
	for _, c := range []Outcome{Inserted, Skipped, Failed} {
		if c.String() == string(text) {
			*o = c
			return nil
		}
	}
	return fmt.Errorf("unknown outcome %q", text)
}

// RecordResult is the outcome of the record at Index in the submitted batch.
type RecordResult struct {
	Index   int
	Outcome Outcome
	Record  *storage.Record // set when Inserted
	Err     error           // set when Failed
}

// BatchResult aggregates a committed batch. Skipped records count towards
// SkippedOrFailed; the per-record outcomes keep the distinction.
type BatchResult struct {
	Table           string
	Succeeded       int
	SkippedOrFailed int
	Results         []RecordResult
}

// BatchError reports a batch that was rolled back as a whole.
type BatchError struct {
	Table string
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch on %s rolled back: %v", e.Table, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// TxRunner runs a function inside one store transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// Coordinator runs record batches, one transaction per batch.
type Coordinator struct {
	db       TxRunner
	registry *schema.Registry
	records  storage.RecordStore
}

// NewCoordinator creates a new Coordinator.
func NewCoordinator(db TxRunner, registry *schema.Registry, records storage.RecordStore) *Coordinator {
	return &Coordinator{
		db:       db,
		registry: registry,
		records:  records,
	}
}

// RunBatch upserts records into table in order inside a single transaction.
//
// An unknown table is reported as *schema.ValidationError before the store is
// touched. Per-record validation and constraint errors are recorded as Failed
// and the batch continues. A transaction-scope failure (lock timeout, I/O
// error, commit failure) rolls back every record of the batch and is returned
// as *BatchError with no result.
//
// Once started, a batch runs to completion even if ctx is canceled.
func (c *Coordinator) RunBatch(ctx context.Context, tableName string, records []storage.Record) (BatchResult, error) {
	table, err := c.registry.Lookup(tableName)
	if err != nil {
		return BatchResult{}, err
	}

	logger := contextutil.LoggerFromContext(ctx).With("table", table.Name, "records", len(records))
	if len(records) == 0 {
		return BatchResult{Table: table.Name}, nil
	}

	ctx = context.WithoutCancel(ctx)

	var results []RecordResult
	err = c.db.WithTx(ctx, func(tx *sql.Tx) error {
		results = make([]RecordResult, 0, len(records))
		for i, rec := range records {
			saved, err := c.records.Upsert(ctx, tx, table, rec)
			switch {
			case err != nil && storage.IsTxScope(err):
				return err
			case err != nil:
				logger.Warn("record failed", "index", i, "error", err)
				results = append(results, RecordResult{Index: i, Outcome: Failed, Err: err})
			case saved == nil:
				logger.Debug("record skipped, natural key exists", "index", i)
				results = append(results, RecordResult{Index: i, Outcome: Skipped})
			default:
				results = append(results, RecordResult{Index: i, Outcome: Inserted, Record: saved})
			}
		}
		return nil
	})
	if err != nil {
		logger.Error("batch rolled back", "error", err)
		return BatchResult{}, &BatchError{Table: table.Name, Err: err}
	}

	res := BatchResult{Table: table.Name, Results: results}
	for _, r := range results {
		if r.Outcome == Inserted {
			res.Succeeded++
		} else {
			res.SkippedOrFailed++
		}
	}

	logger.Info("batch committed", "succeeded", res.Succeeded, "skipped_or_failed", res.SkippedOrFailed)
	return res, nil
}
