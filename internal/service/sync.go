package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_sync_service.go -package=mocks -mock_names=SyncService=MockSyncService lifehub/internal/service SyncService

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"lifehub/internal/backup"
	"lifehub/internal/contextutil"
	"lifehub/internal/ingest"
	"lifehub/internal/schema"
	"lifehub/internal/storage"
)

// JSONExportName is the file the client's JSON export is written to, next to
// the store file.
const JSONExportName = "database_backup.json"

// TableInfo describes one registry table and its current row count.
type TableInfo struct {
	Name    string
	Key     []string
	Columns []string
	Count   int
}

// ReplaceResult reports the backup taken after a database replacement.
// Backup is empty when rotation is disabled or failed.
type ReplaceResult struct {
	Backup string
	Pruned []string
}

// SyncService reconciles client data with the store.
type SyncService interface {
	// Tables lists the registry tables with their row counts.
	Tables(ctx context.Context) ([]TableInfo, error)
	// SyncTable upserts a batch of client records into one table.
	SyncTable(ctx context.Context, table string, records []map[string]any) (ingest.BatchResult, error)
	// ReplaceDatabase swaps the store for an uploaded SQLite file and rotates backups.
	ReplaceDatabase(ctx context.Context, src io.Reader) (ReplaceResult, error)
	// SaveJSONExport stores the client's JSON export next to the store file.
	SaveJSONExport(ctx context.Context, src io.Reader) (string, error)
	// ExportDatabase streams the store file to w.
	ExportDatabase(ctx context.Context, w io.Writer) (int64, error)
	// DatabaseName is the file name of the store, used for downloads.
	DatabaseName() string
}

type syncService struct {
	db          *storage.DB
	registry    *schema.Registry
	coordinator *ingest.Coordinator
	records     *storage.RecordRepo
	backups     *backup.Manager
}

// NewSyncService creates a new SyncService. backups may be nil, in which case
// database replacements are not snapshotted.
func NewSyncService(db *storage.DB, registry *schema.Registry, records *storage.RecordRepo, backups *backup.Manager) SyncService {
	return &syncService{
		db:          db,
		registry:    registry,
		coordinator: ingest.NewCoordinator(db, registry, records),
		records:     records,
		backups:     backups,
	}
}

func (s *syncService) Tables(ctx context.Context) ([]TableInfo, error) {
	tables := s.registry.Tables()
	infos := make([]TableInfo, 0, len(tables))

	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, t := range tables {
			n, err := s.records.Count(ctx, tx, t)
			if err != nil {
				return err
			}
			cols := make([]string, 0, len(t.Columns))
			for _, c := range t.Columns {
				cols = append(cols, c.Name)
			}
			infos = append(infos, TableInfo{Name: t.Name, Key: t.Key, Columns: cols, Count: n})
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err, "failed to count records")
	}
	return infos, nil
}

func (s *syncService) SyncTable(ctx context.Context, table string, records []map[string]any) (ingest.BatchResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	batch := make([]storage.Record, 0, len(records))
	for _, m := range records {
		batch = append(batch, storage.RecordFromMap(m))
	}

	res, err := s.coordinator.RunBatch(ctx, table, batch)
	if err != nil {
		var ve *schema.ValidationError
		if errors.As(err, &ve) {
			logger.WarnContext(ctx, "rejected sync batch", "table", table, "error", err)
			return ingest.BatchResult{}, classify(ErrInvalidInput, err)
		}
		return ingest.BatchResult{}, storeError(err, "failed to sync records")
	}

	logger.InfoContext(ctx, "sync batch committed",
		"table", res.Table,
		"succeeded", res.Succeeded,
		"skipped_or_failed", res.SkippedOrFailed,
	)
	return res, nil
}

func (s *syncService) ReplaceDatabase(ctx context.Context, src io.Reader) (ReplaceResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := s.db.Replace(ctx, src, s.registry); err != nil {
		if errors.Is(err, storage.ErrNotDatabase) {
			logger.WarnContext(ctx, "rejected database upload", "error", err)
			return ReplaceResult{}, classify(ErrInvalidInput, err)
		}
		logger.ErrorContext(ctx, "failed to replace database", "error", err)
		return ReplaceResult{}, storeError(err, "failed to replace database")
	}
	logger.InfoContext(ctx, "database replaced", "path", s.db.Path())

	if s.backups == nil {
		return ReplaceResult{}, nil
	}

	var res ReplaceResult
	err := s.db.Exclusive(func(path string) error {
		var err error
		res.Backup, res.Pruned, err = s.backups.Rotate(ctx, path)
		return err
	})
	if err != nil {
		// The replacement already succeeded; a missing snapshot is not fatal.
		logger.ErrorContext(ctx, "backup rotation failed", "error", err)
	}
	return res, nil
}

func (s *syncService) SaveJSONExport(ctx context.Context, src io.Reader) (string, error) {
	dir := filepath.Dir(s.db.Path())
	dst := filepath.Join(dir, JSONExportName)

	tmp, err := os.CreateTemp(dir, ".upload-*.json")
	if err != nil {
		return "", WrapError(err, "failed to save JSON export")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	_, copyErr := io.Copy(tmp, src)
	closeErr := tmp.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		return "", WrapError(err, "failed to save JSON export")
	}

	data, err := os.ReadFile(tmp.Name())
	if err != nil {
		return "", WrapError(err, "failed to save JSON export")
	}
	if !json.Valid(data) {
		return "", &ValidationError{Field: "file", Message: "not a valid JSON document"}
	}

	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", WrapError(err, "failed to save JSON export")
	}
	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "JSON export saved", "path", dst, "bytes", len(data))
	return dst, nil
}

func (s *syncService) ExportDatabase(ctx context.Context, w io.Writer) (int64, error) {
	n, err := s.db.CopyTo(w)
	if err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to export database", "error", err)
		return n, storeError(err, "failed to export database")
	}
	return n, nil
}

func (s *syncService) DatabaseName() string {
	return filepath.Base(s.db.Path())
}

// storeError maps a store failure onto the service taxonomy.
func storeError(err error, msg string) error {
	if storage.IsBusy(err) {
		return classify(ErrUnavailable, fmt.Errorf("%s: %w", msg, err))
	}
	return WrapError(err, msg)
}
