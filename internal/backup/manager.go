// Package backup keeps a bounded set of timestamped copies of the store file.
package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"

	"lifehub/internal/contextutil"
)

// DefaultRetain is the number of backups kept by Prune.
const DefaultRetain = 10

// timestampLayout sorts lexicographically in chronological order.
const timestampLayout = "20060102_150405"

// Manager creates and prunes backups named {base}_{YYYYMMDD}_{HHMMSS}.{ext}.
type Manager struct {
	dir    string
	base   string
	ext    string
	retain int
	now    func() time.Time

	pattern glob.Glob
	mu      sync.Mutex
}

// Config holds backup configuration.
type Config struct {
	Dir      string // backup directory, created if missing
	BaseName string // artifact name prefix, e.g. "LocalDB"
	Ext      string // artifact extension without the dot, e.g. "db"
	Retain   int    // backups kept by Prune; DefaultRetain when zero
}

// ConfigFor derives a Config for backups of the store file at storePath.
func ConfigFor(storePath, dir string, retain int) Config {
	name := filepath.Base(storePath)
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if ext == "" {
		ext = "db"
	}
	return Config{
		Dir:      dir,
		BaseName: strings.TrimSuffix(name, filepath.Ext(name)),
		Ext:      ext,
		Retain:   retain,
	}
}

// NewManager creates a new Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.BaseName == "" || cfg.Ext == "" {
		return nil, fmt.Errorf("backup base name and extension are required")
	}
	if cfg.Retain < 0 {
		return nil, fmt.Errorf("backup retention must not be negative, got %d", cfg.Retain)
	}
	if cfg.Retain == 0 {
		cfg.Retain = DefaultRetain
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	// Only {base}_{8 digits}_{6 digits}.{ext} is an artifact; anything else in
	// the directory is left alone.
	digits := func(n int) string { return strings.Repeat("[0-9]", n) }
	pattern, err := glob.Compile(glob.QuoteMeta(cfg.BaseName) + "_" + digits(8) + "_" + digits(6) + "." + glob.QuoteMeta(cfg.Ext))
	if err != nil {
		return nil, fmt.Errorf("failed to compile backup pattern: %w", err)
	}

	return &Manager{
		dir:     cfg.Dir,
		base:    cfg.BaseName,
		ext:     cfg.Ext,
		retain:  cfg.Retain,
		now:     time.Now,
		pattern: pattern,
	}, nil
}

// Dir returns the backup directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Retain returns the number of backups kept by Prune.
func (m *Manager) Retain() int {
	return m.retain
}

// Name returns the artifact name for a backup taken at t.
func (m *Manager) Name(t time.Time) string {
	return fmt.Sprintf("%s_%s.%s", m.base, t.Format(timestampLayout), m.ext)
}

// Matches reports whether name is a backup artifact of this manager.
func (m *Manager) Matches(name string) bool {
	return m.pattern.Match(name)
}

// Snapshot copies the file at src into the backup directory and returns the
// path of the new artifact. The copy is written to a temporary file first, so
// a failed snapshot never leaves a partial artifact. An artifact with the same
// timestamp is replaced, so the newest state within a second wins.
func (m *Manager) Snapshot(ctx context.Context, src string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot(ctx, src)
}

func (m *Manager) snapshot(ctx context.Context, src string) (string, error) {
	dst := filepath.Join(m.dir, m.Name(m.now()))
	_, statErr := os.Stat(dst)
	replacing := statErr == nil

	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("failed to open store file: %w", err)
	}
	defer func() { _ = in.Close() }()

	tmp, err := os.CreateTemp(m.dir, ".backup-*")
	if err != nil {
		return "", fmt.Errorf("failed to create backup: %w", err)
	}
	_, copyErr := io.Copy(tmp, in)
	syncErr := tmp.Sync()
	closeErr := tmp.Close()
	for _, err := range []error{copyErr, syncErr, closeErr} {
		if err != nil {
			_ = os.Remove(tmp.Name())
			return "", fmt.Errorf("failed to write backup: %w", err)
		}
	}

	if err := os.Rename(tmp.Name(), dst); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to finalize backup: %w", err)
	}

	if replacing {
		contextutil.LoggerFromContext(ctx).Info("backup replaced", "path", dst)
	} else {
		contextutil.LoggerFromContext(ctx).Info("backup created", "path", dst)
	}
	return dst, nil
}

// List returns the names of current artifacts, newest first.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && m.Matches(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// Prune deletes all but the newest Retain artifacts and returns the paths it
// removed. A file that cannot be deleted is logged and skipped.
func (m *Manager) Prune(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prune(ctx, m.retain)
}

// PruneTo is like Prune with an explicit retention count.
func (m *Manager) PruneTo(ctx context.Context, retain int) ([]string, error) {
	if retain < 0 {
		return nil, fmt.Errorf("retention must not be negative, got %d", retain)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prune(ctx, retain)
}

func (m *Manager) prune(ctx context.Context, retain int) ([]string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	names, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(names) <= retain {
		return nil, nil
	}

	var removed []string
	for _, name := range names[retain:] {
		path := filepath.Join(m.dir, name)
		if err := os.Remove(path); err != nil {
			logger.Error("failed to remove old backup", "path", path, "error", err)
			continue
		}
		logger.Info("removed old backup", "path", path)
		removed = append(removed, path)
	}
	return removed, nil
}

// Rotate takes a snapshot of src and prunes old artifacts.
func (m *Manager) Rotate(ctx context.Context, src string) (string, []string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	path, err := m.snapshot(ctx, src)
	if err != nil {
		return "", nil, err
	}
	removed, err := m.prune(ctx, m.retain)
	if err != nil {
		return path, nil, err
	}
	return path, removed, nil
}
