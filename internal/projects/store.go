// Package projects keeps the markdown project documents synced from the
// mobile client.
package projects

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"gopkg.in/yaml.v3"

	"lifehub/internal/contextutil"
)

// DefaultTitle is used when a document has no frontmatter title.
const DefaultTitle = "Untitled Project"

const ext = ".md"

var (
	// ErrNotFound is returned when no project has the requested ID.
	ErrNotFound = errors.New("project not found")
	// ErrNoProjects is returned when an upload contains no markdown files.
	ErrNoProjects = errors.New("no markdown files provided")
)

// Project is one markdown document. ID is the file name without extension.
type Project struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Markdown string `json:"markdown"`
}

// Upload is one incoming project file.
type Upload struct {
	Name string
	Open func() (io.ReadCloser, error)
}

type frontmatter struct {
	Title string `yaml:"title"`
}

// Store reads and replaces the project documents in a directory.
type Store struct {
	dir string
	md  goldmark.Markdown
	mu  sync.RWMutex
}

// NewStore creates a Store for dir, creating the directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create projects directory: %w", err)
	}
	return &Store{
		dir: dir,
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				extension.TaskList,
				extension.Typographer,
			),
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
			),
		),
	}, nil
}

// Replace swaps the whole project set for the uploaded markdown files and
// returns the stored file names. Files without the .md extension are
// ignored. New files are written before any existing document is removed,
// so a failed upload leaves the previous set intact.
func (s *Store) Replace(ctx context.Context, uploads []Upload) ([]string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	type staged struct{ tmp, name string }
	var files []staged
	cleanup := func() {
		for _, f := range files {
			_ = os.Remove(f.tmp)
		}
	}

	seen := make(map[string]bool)
	for _, up := range uploads {
		name := filepath.Base(strings.ReplaceAll(up.Name, `\`, "/"))
		if !strings.EqualFold(filepath.Ext(name), ext) || strings.HasPrefix(name, ".") {
			logger.Debug("ignoring non-markdown upload", "file", up.Name)
			continue
		}
		name = strings.TrimSuffix(name, filepath.Ext(name)) + ext
		if seen[name] {
			continue
		}
		seen[name] = true

		tmp, err := s.spool(up)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("failed to save %s: %w", name, err)
		}
		files = append(files, staged{tmp: tmp, name: name})
	}
	if len(files) == 0 {
		return nil, ErrNoProjects
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.ids()
	if err != nil {
		cleanup()
		return nil, err
	}
	for _, id := range existing {
		if seen[id+ext] {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, id+ext)); err != nil {
			logger.Warn("failed to remove old project", "id", id, "error", err)
		}
	}

	saved := make([]string, 0, len(files))
	for _, f := range files {
		if err := os.Rename(f.tmp, filepath.Join(s.dir, f.name)); err != nil {
			cleanup()
			return saved, fmt.Errorf("failed to save %s: %w", f.name, err)
		}
		saved = append(saved, f.name)
	}

	logger.Info("projects replaced", "count", len(saved))
	return saved, nil
}

func (s *Store) spool(up Upload) (string, error) {
	src, err := up.Open()
	if err != nil {
		return "", err
	}
	defer func() { _ = src.Close() }()

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", err
	}
	_, copyErr := io.Copy(tmp, src)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(tmp.Name())
		if copyErr != nil {
			return "", copyErr
		}
		return "", closeErr
	}
	return tmp.Name(), nil
}

// List returns every project, ordered by ID.
func (s *Store) List(ctx context.Context) ([]Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids, err := s.ids()
	if err != nil {
		return nil, err
	}

	projects := make([]Project, 0, len(ids))
	for _, id := range ids {
		p, err := s.read(id)
		if err != nil {
			contextutil.LoggerFromContext(ctx).Warn("failed to read project", "id", id, "error", err)
			continue
		}
		projects = append(projects, p)
	}
	return projects, nil
}

// Get returns the project with the given ID.
func (s *Store) Get(id string) (Project, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return Project{}, ErrNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, err := s.read(id)
	if errors.Is(err, os.ErrNotExist) {
		return Project{}, ErrNotFound
	}
	return p, err
}

// Render returns the project and its body rendered as HTML. The frontmatter
// block is not rendered.
func (s *Store) Render(id string) (Project, string, error) {
	p, err := s.Get(id)
	if err != nil {
		return Project{}, "", err
	}

	_, body := splitFrontmatter(p.Markdown)
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(body), &buf); err != nil {
		return Project{}, "", fmt.Errorf("convert markdown: %w", err)
	}
	return p, buf.String(), nil
}

func (s *Store) ids() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read projects directory: %w", err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ext {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ext))
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) read(id string) (Project, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, id+ext))
	if err != nil {
		return Project{}, err
	}
	content := string(data)
	return Project{ID: id, Title: titleOf(content), Markdown: content}, nil
}

// titleOf returns the frontmatter title, or DefaultTitle.
func titleOf(content string) string {
	fm, _ := splitFrontmatter(content)
	if fm == "" {
		return DefaultTitle
	}
	var meta frontmatter
	if err := yaml.Unmarshal([]byte(fm), &meta); err != nil {
		return DefaultTitle
	}
	if t := strings.TrimSpace(meta.Title); t != "" {
		return t
	}
	return DefaultTitle
}

// splitFrontmatter separates a leading "---" delimited YAML block from the body.
func splitFrontmatter(content string) (string, string) {
	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	if !strings.HasPrefix(normalized, "---\n") {
		return "", content
	}
	rest := normalized[len("---\n"):]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return "", content
	}
	fm := rest[:end]
	body := rest[end+len("\n---"):]
	if i := strings.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	} else {
		body = ""
	}
	return fm, body
}
