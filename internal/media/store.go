// Package media stores uploaded images in date partitions, discarding
// uploads whose bytes already exist in the partition.
package media

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"

	"lifehub/internal/contextutil"
)

// DateLayout is the accepted upload date format.
const DateLayout = "2006-01-02"

// ErrInvalidDate is returned when the upload date cannot be parsed.
var ErrInvalidDate = errors.New("invalid date, want YYYY-MM-DD")

// allowedExt maps accepted extensions to the extension the file is stored under.
var allowedExt = map[string]string{
	"jpg":  "jpg",
	"jpeg": "jpg",
	"png":  "png",
	"gif":  "gif",
}

// Upload is one incoming file. Open is called at most once.
type Upload struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// SaveResult summarizes one Save call.
type SaveResult struct {
	Partition  string   // partition path relative to the library root
	Saved      []string // stored file names, in upload order
	Duplicates int
	Rejected   int // unsupported file type
	Failed     int // unreadable upload or write failure
}

// Store writes uploads under root/{year}/{MM} {MonthName}.
type Store struct {
	root string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates a Store rooted at root, creating the directory if needed.
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image library: %w", err)
	}
	return &Store{root: root, locks: make(map[string]*sync.Mutex)}, nil
}

// Root returns the library root directory.
func (s *Store) Root() string {
	return s.root
}

// Partition returns the partition path for date, relative to the root.
func Partition(date time.Time) string {
	return filepath.Join(strconv.Itoa(date.Year()), fmt.Sprintf("%02d %s", int(date.Month()), date.Month()))
}

// Save stores uploads taken on date. Each upload is hashed while it is
// written to a hidden temporary file; if the digest matches a file already in
// the partition (or one saved earlier in this call) it is discarded,
// otherwise it is renamed to {date}_{seq}.{ext}, where seq is the smallest
// positive integer not yet used for the date in the partition. Per-upload failures are logged and counted; only an invalid
// date or an unusable partition directory fails the call.
func (s *Store) Save(ctx context.Context, date string, uploads []Upload) (SaveResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	day, err := time.Parse(DateLayout, date)
	if err != nil {
		return SaveResult{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}

	part := Partition(day)
	dir := filepath.Join(s.root, part)
	res := SaveResult{Partition: part, Saved: []string{}}

	unlock := s.lock(part)
	defer unlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return res, fmt.Errorf("failed to create partition %s: %w", part, err)
	}

	idx, err := scanPartition(ctx, dir, date)
	if err != nil {
		return res, err
	}

	for _, up := range uploads {
		ext, ok := allowedExt[strings.ToLower(strings.TrimPrefix(filepath.Ext(up.Name), "."))]
		if !ok {
			logger.Warn("unsupported file type", "file", up.Name)
			res.Rejected++
			continue
		}

		tmp, digest, err := s.spool(dir, up)
		if err != nil {
			logger.Error("failed to read upload", "file", up.Name, "error", err)
			res.Failed++
			continue
		}

		if existing, dup := idx.digests[digest]; dup {
			_ = os.Remove(tmp)
			logger.Info("duplicate image", "file", up.Name, "existing", existing)
			res.Duplicates++
			continue
		}

		seq := idx.nextSeq()
		name := fmt.Sprintf("%s_%d.%s", date, seq, ext)
		if err := os.Rename(tmp, filepath.Join(dir, name)); err != nil {
			_ = os.Remove(tmp)
			logger.Error("failed to store image", "file", up.Name, "error", err)
			res.Failed++
			continue
		}

		idx.used[seq] = true
		idx.digests[digest] = name
		res.Saved = append(res.Saved, name)
		logger.Info("saved image", "file", up.Name, "path", filepath.Join(part, name))
	}

	return res, nil
}

func (s *Store) lock(partition string) func() {
	s.mu.Lock()
	l, ok := s.locks[partition]
	if !ok {
		l = &sync.Mutex{}
		s.locks[partition] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// spool copies the upload into a hidden temp file in dir, returning its path
// and SHA-256 digest.
func (s *Store) spool(dir string, up Upload) (string, string, error) {
	src, err := up.Open()
	if err != nil {
		return "", "", err
	}
	defer func() { _ = src.Close() }()

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", "", err
	}

	hasher := sha256.New()
	_, copyErr := io.Copy(io.MultiWriter(tmp, hasher), src)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(tmp.Name())
		if copyErr != nil {
			return "", "", copyErr
		}
		return "", "", closeErr
	}
	return tmp.Name(), hex.EncodeToString(hasher.Sum(nil)), nil
}

type partitionIndex struct {
	digests map[string]string // digest -> file name
	used    map[int]bool      // sequences taken for the date
}

// nextSeq returns the smallest positive sequence not yet used.
func (idx *partitionIndex) nextSeq() int {
	seq := 1
	for idx.used[seq] {
		seq++
	}
	return seq
}

// scanPartition hashes every visible file in dir and collects the sequence
// numbers already used for date, whatever their extension.
func scanPartition(ctx context.Context, dir, date string) (*partitionIndex, error) {
	logger := contextutil.LoggerFromContext(ctx)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read partition: %w", err)
	}

	seqPattern := glob.MustCompile(glob.QuoteMeta(date) + "_*.*")
	idx := &partitionIndex{
		digests: make(map[string]string, len(entries)),
		used:    make(map[int]bool),
	}

	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") || !e.Type().IsRegular() {
			continue
		}

		digest, err := hashFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("failed to hash existing image", "file", name, "error", err)
		} else {
			idx.digests[digest] = name
		}

		if seqPattern.Match(name) {
			seq := strings.TrimSuffix(strings.TrimPrefix(name, date+"_"), filepath.Ext(name))
			if n, err := strconv.Atoi(seq); err == nil && n > 0 {
				idx.used[n] = true
			}
		}
	}
	return idx, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
