// Package library lists media collections on disk and resolves file
// requests without letting them escape the library root.
package library

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// ErrTraversal is returned when a requested path would leave the library root.
	ErrTraversal = errors.New("path escapes library root")
	// ErrNotFound is returned when a collection or file does not exist.
	ErrNotFound = errors.New("not found")
)

// File is a servable file within a collection.
type File struct {
	Name string // base name
	Path string // absolute path
}

// Catalog serves one library root, e.g. the music library. Collections are
// the first-level directories of the root (albums, books).
type Catalog struct {
	kind     string
	root     string // canonical: absolute with symlinks evaluated
	excluded map[string]bool
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithoutExtensions leaves files with the given extensions (".txt") out of
// Files. Matching ignores case. Such files can still be resolved by name.
func WithoutExtensions(exts ...string) Option {
	return func(c *Catalog) {
		for _, ext := range exts {
			c.excluded[strings.ToLower(ext)] = true
		}
	}
}

// NewCatalog creates a catalog for root, creating the directory if needed.
func NewCatalog(kind, root string, opts ...Option) (*Catalog, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s library: %w", kind, err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s library: %w", kind, err)
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s library: %w", kind, err)
	}
	c := &Catalog{kind: kind, root: canonical, excluded: map[string]bool{}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Kind returns the library kind.
func (c *Catalog) Kind() string {
	return c.kind
}

// Root returns the canonical library root.
func (c *Catalog) Root() string {
	return c.root
}

// Collections returns the names of visible first-level directories, sorted.
func (c *Catalog) Collections() ([]string, error) {
	entries, err := os.ReadDir(c.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s library: %w", c.kind, err)
	}

	names := []string{}
	for _, e := range entries {
		if hidden(e.Name()) {
			continue
		}
		if c.isDir(e) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Files returns the visible regular files directly inside collection, sorted
// by name. Excluded extensions are skipped.
func (c *Catalog) Files(collection string) ([]File, error) {
	dir, err := c.collectionDir(collection)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read collection %s: %w", collection, err)
	}

	files := []File{}
	for _, e := range entries {
		if hidden(e.Name()) || c.excluded[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		path, err := c.Resolve(collection, e.Name())
		if err != nil {
			// Directories, dangling links and links out of the root are not servable.
			continue
		}
		files = append(files, File{Name: e.Name(), Path: path})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Resolve returns the absolute path of name within collection. The result is
// always a regular file under the library root. Names that are not a single
// path element, or that resolve outside the root (including through
// symlinks), are rejected with ErrTraversal before the file is looked up;
// missing or non-regular files yield ErrNotFound.
func (c *Catalog) Resolve(collection, name string) (string, error) {
	if err := checkElement(collection); err != nil {
		return "", err
	}
	if err := checkElement(name); err != nil {
		return "", err
	}

	candidate, err := within(c.root, filepath.Join(c.root, collection, name))
	if err != nil {
		return "", err
	}

	canonical, err := filepath.EvalSymlinks(candidate)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to resolve %s/%s: %w", collection, name, err)
	}
	if _, err := within(c.root, canonical); err != nil {
		return "", err
	}

	info, err := os.Stat(canonical)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to stat %s/%s: %w", collection, name, err)
	}
	if !info.Mode().IsRegular() || hidden(name) {
		return "", ErrNotFound
	}
	return canonical, nil
}

func (c *Catalog) collectionDir(collection string) (string, error) {
	if err := checkElement(collection); err != nil {
		return "", err
	}
	candidate, err := within(c.root, filepath.Join(c.root, collection))
	if err != nil {
		return "", err
	}
	canonical, err := filepath.EvalSymlinks(candidate)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to resolve collection %s: %w", collection, err)
	}
	if _, err := within(c.root, canonical); err != nil {
		return "", err
	}
	info, err := os.Stat(canonical)
	if err != nil || !info.IsDir() || hidden(collection) {
		return "", ErrNotFound
	}
	return canonical, nil
}

func (c *Catalog) isDir(e os.DirEntry) bool {
	if e.IsDir() {
		return true
	}
	if e.Type()&os.ModeSymlink == 0 {
		return false
	}
	_, err := c.collectionDir(e.Name())
	return err == nil
}

// checkElement rejects anything but a single, plain path element.
func checkElement(name string) error {
	if name == "" || name == "." || name == ".." {
		return ErrTraversal
	}
	if strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return ErrTraversal
	}
	if filepath.VolumeName(name) != "" {
		return ErrTraversal
	}
	return nil
}

// within returns path cleaned if it lies strictly below root. root may be
// the filesystem root.
func within(root, path string) (string, error) {
	cleaned := filepath.Clean(path)
	rel, err := filepath.Rel(root, cleaned)
	if err != nil || rel == "." || rel == ".." || filepath.IsAbs(rel) ||
		strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", ErrTraversal
	}
	return cleaned, nil
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
