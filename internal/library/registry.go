package library

import (
	"fmt"
	"sort"
)

// Library kinds served by default.
const (
	KindMusic = "music"
	KindBooks = "books"
)

// kindOptions holds the catalog options of the default kinds. Book folders
// carry .txt notes that are not part of the book.
var kindOptions = map[string][]Option{
	KindBooks: {WithoutExtensions(".txt")},
}

// Registry manages the configured catalogs and provides lookup by kind.
type Registry struct {
	catalogs map[string]*Catalog
}

// NewRegistry creates a catalog for each kind -> root entry.
func NewRegistry(roots map[string]string) (*Registry, error) {
	r := &Registry{catalogs: make(map[string]*Catalog, len(roots))}
	for kind, root := range roots {
		if root == "" {
			continue
		}
		c, err := NewCatalog(kind, root, kindOptions[kind]...)
		if err != nil {
			return nil, err
		}
		r.catalogs[kind] = c
	}
	return r, nil
}

// Catalog returns the catalog for kind.
func (r *Registry) Catalog(kind string) (*Catalog, error) {
	c, ok := r.catalogs[kind]
	if !ok {
		return nil, fmt.Errorf("library %q: %w", kind, ErrNotFound)
	}
	return c, nil
}

// Kinds returns the configured kinds, sorted.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.catalogs))
	for k := range r.catalogs {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
