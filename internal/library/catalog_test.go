package library

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// newTestCatalog lays out:
//
//	root/AlbumX/01.mp3
//	root/AlbumX/02.mp3
//	root/AlbumX/.DS_Store
//	root/AlbumX/disc2/        (directory, not servable)
//	root/AlbumX/escape.mp3 -> outside/secret.mp3
//	root/AlbumX/inside.mp3 -> root/AlbumY/track.mp3
//	root/AlbumY/track.mp3
//	root/.hidden/x.mp3
//	root/Linked -> outside
//	root/loose.mp3
//	outside/secret.mp3
func newTestCatalog(t *testing.T) (*Catalog, string) {
	t.Helper()
	base := t.TempDir()
	root := filepath.Join(base, "music")
	outside := filepath.Join(base, "outside")

	mkdir := func(p string) {
		if err := os.MkdirAll(p, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	write := func(p string) {
		if err := os.WriteFile(p, []byte(filepath.Base(p)), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	link := func(target, p string) {
		if err := os.Symlink(target, p); err != nil {
			t.Skipf("symlinks not supported: %v", err)
		}
	}

	mkdir(filepath.Join(root, "AlbumX", "disc2"))
	mkdir(filepath.Join(root, "AlbumY"))
	mkdir(filepath.Join(root, ".hidden"))
	mkdir(outside)
	write(filepath.Join(root, "AlbumX", "01.mp3"))
	write(filepath.Join(root, "AlbumX", "02.mp3"))
	write(filepath.Join(root, "AlbumX", ".DS_Store"))
	write(filepath.Join(root, "AlbumY", "track.mp3"))
	write(filepath.Join(root, ".hidden", "x.mp3"))
	write(filepath.Join(root, "loose.mp3"))
	write(filepath.Join(outside, "secret.mp3"))
	link(filepath.Join(outside, "secret.mp3"), filepath.Join(root, "AlbumX", "escape.mp3"))
	link(filepath.Join(root, "AlbumY", "track.mp3"), filepath.Join(root, "AlbumX", "inside.mp3"))
	link(outside, filepath.Join(root, "Linked"))

	c, err := NewCatalog(KindMusic, root)
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}
	return c, outside
}

func TestCatalog_Collections(t *testing.T) {
	c, _ := newTestCatalog(t)

	got, err := c.Collections()
	if err != nil {
		t.Fatalf("Collections() error = %v", err)
	}
	want := []string{"AlbumX", "AlbumY"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Collections() = %v, want %v", got, want)
	}
}

func TestCatalog_Files(t *testing.T) {
	c, _ := newTestCatalog(t)

	tests := []struct {
		name       string
		collection string
		want       []string
		wantErr    error
	}{
		{name: "skips hidden, directories and escaping links", collection: "AlbumX", want: []string{"01.mp3", "02.mp3", "inside.mp3"}},
		{name: "single file", collection: "AlbumY", want: []string{"track.mp3"}},
		{name: "missing collection", collection: "Nope", wantErr: ErrNotFound},
		{name: "hidden collection", collection: ".hidden", wantErr: ErrNotFound},
		{name: "file is not a collection", collection: "loose.mp3", wantErr: ErrNotFound},
		{name: "collection linked outside root", collection: "Linked", wantErr: ErrTraversal},
		{name: "parent reference", collection: "..", wantErr: ErrTraversal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, err := c.Files(tt.collection)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Files() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Files() error = %v", err)
			}
			var names []string
			for _, f := range files {
				names = append(names, f.Name)
				if !filepath.IsAbs(f.Path) {
					t.Errorf("File.Path %s is not absolute", f.Path)
				}
			}
			if !reflect.DeepEqual(names, tt.want) {
				t.Errorf("Files() = %v, want %v", names, tt.want)
			}
		})
	}
}

func TestCatalog_Resolve(t *testing.T) {
	c, outside := newTestCatalog(t)

	// A file that really exists at the traversal target.
	if err := os.WriteFile(filepath.Join(filepath.Dir(outside), "passwd"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		collection string
		file       string
		want       string
		wantErr    error
	}{
		{name: "regular file", collection: "AlbumX", file: "01.mp3", want: filepath.Join(c.Root(), "AlbumX", "01.mp3")},
		{name: "link within root resolves to target", collection: "AlbumX", file: "inside.mp3", want: filepath.Join(c.Root(), "AlbumY", "track.mp3")},
		{name: "parent traversal", collection: "AlbumX", file: "../../etc/passwd", wantErr: ErrTraversal},
		{name: "traversal to existing file", collection: "AlbumX", file: "../../passwd", wantErr: ErrTraversal},
		{name: "traversal in collection", collection: "..", file: "passwd", wantErr: ErrTraversal},
		{name: "dot dot file", collection: "AlbumX", file: "..", wantErr: ErrTraversal},
		{name: "absolute file name", collection: "AlbumX", file: "/etc/passwd", wantErr: ErrTraversal},
		{name: "backslash separator", collection: "AlbumX", file: `..\..\secret`, wantErr: ErrTraversal},
		{name: "empty file name", collection: "AlbumX", file: "", wantErr: ErrTraversal},
		{name: "link escaping root", collection: "AlbumX", file: "escape.mp3", wantErr: ErrTraversal},
		{name: "collection link escaping root", collection: "Linked", file: "secret.mp3", wantErr: ErrTraversal},
		{name: "missing file", collection: "AlbumX", file: "03.mp3", wantErr: ErrNotFound},
		{name: "missing collection", collection: "Nope", file: "01.mp3", wantErr: ErrNotFound},
		{name: "directory", collection: "AlbumX", file: "disc2", wantErr: ErrNotFound},
		{name: "hidden file", collection: "AlbumX", file: ".DS_Store", wantErr: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Resolve(tt.collection, tt.file)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Resolve() error = %v, want %v", err, tt.wantErr)
				}
				if got != "" {
					t.Errorf("Resolve() returned path %s with error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Resolve() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	base := t.TempDir()
	r, err := NewRegistry(map[string]string{
		KindMusic: filepath.Join(base, "music"),
		KindBooks: filepath.Join(base, "books"),
		"unset":   "",
	})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	if got, want := r.Kinds(), []string{KindBooks, KindMusic}; !reflect.DeepEqual(got, want) {
		t.Errorf("Kinds() = %v, want %v", got, want)
	}

	c, err := r.Catalog(KindBooks)
	if err != nil {
		t.Fatalf("Catalog(books) error = %v", err)
	}
	if c.Kind() != KindBooks {
		t.Errorf("Kind() = %s, want books", c.Kind())
	}
	if _, err := os.Stat(c.Root()); err != nil {
		t.Errorf("library root not created: %v", err)
	}

	if _, err := r.Catalog("video"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Catalog(video) error = %v, want ErrNotFound", err)
	}
}

func TestCatalog_WithoutExtensions(t *testing.T) {
	root := filepath.Join(t.TempDir(), "books")
	book := filepath.Join(root, "Dune")
	if err := os.MkdirAll(book, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"dune.epub", "notes.txt", "README.TXT", "cover.jpg"} {
		if err := os.WriteFile(filepath.Join(book, name), []byte(name), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	c, err := NewCatalog(KindBooks, root, WithoutExtensions(".txt"))
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}
	files, err := c.Files("Dune")
	if err != nil {
		t.Fatalf("Files() error = %v", err)
	}
	var names []string
	for _, f := range files {
		names = append(names, f.Name)
	}
	if want := []string{"cover.jpg", "dune.epub"}; !reflect.DeepEqual(names, want) {
		t.Errorf("Files() = %v, want %v", names, want)
	}

	// Excluded files stay addressable by name.
	if _, err := c.Resolve("Dune", "notes.txt"); err != nil {
		t.Errorf("Resolve(notes.txt) error = %v", err)
	}

	plain, err := NewCatalog(KindMusic, root)
	if err != nil {
		t.Fatal(err)
	}
	all, err := plain.Files("Dune")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Errorf("Files() without exclusions returned %d files, want 4", len(all))
	}
}

func TestRegistry_BooksSkipText(t *testing.T) {
	base := t.TempDir()
	for _, p := range []string{"books/Dune/dune.epub", "books/Dune/notes.txt", "music/Album/notes.txt"} {
		full := filepath.Join(base, p)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(p), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	r, err := NewRegistry(map[string]string{
		KindBooks: filepath.Join(base, "books"),
		KindMusic: filepath.Join(base, "music"),
	})
	if err != nil {
		t.Fatal(err)
	}

	books, _ := r.Catalog(KindBooks)
	files, err := books.Files("Dune")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0].Name != "dune.epub" {
		t.Errorf("books Files() = %+v, want only dune.epub", files)
	}

	music, _ := r.Catalog(KindMusic)
	files, err = music.Files("Album")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0].Name != "notes.txt" {
		t.Errorf("music Files() = %+v, want notes.txt kept", files)
	}
}

func TestWithin(t *testing.T) {
	sep := string(os.PathSeparator)
	fsRoot := filepath.VolumeName(os.TempDir()) + sep
	tests := []struct {
		name    string
		root    string
		path    string
		wantErr bool
	}{
		{name: "child", root: filepath.Join(fsRoot, "srv", "music"), path: filepath.Join(fsRoot, "srv", "music", "a", "b.mp3")},
		{name: "root itself", root: filepath.Join(fsRoot, "srv", "music"), path: filepath.Join(fsRoot, "srv", "music"), wantErr: true},
		{name: "parent", root: filepath.Join(fsRoot, "srv", "music"), path: filepath.Join(fsRoot, "srv"), wantErr: true},
		{name: "sibling with shared prefix", root: filepath.Join(fsRoot, "srv", "music"), path: filepath.Join(fsRoot, "srv", "musicx", "a.mp3"), wantErr: true},
		{name: "dot-dot in path", root: filepath.Join(fsRoot, "srv", "music"), path: filepath.Join(fsRoot, "srv", "music") + sep + ".." + sep + "etc", wantErr: true},
		{name: "name starting with dots", root: filepath.Join(fsRoot, "srv", "music"), path: filepath.Join(fsRoot, "srv", "music", "..album")},
		{name: "filesystem root library", root: fsRoot, path: filepath.Join(fsRoot, "Album", "track.mp3")},
		{name: "filesystem root itself", root: fsRoot, path: fsRoot, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := within(tt.root, tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("within(%q, %q) error = %v, wantErr %v", tt.root, tt.path, err, tt.wantErr)
			}
			if !tt.wantErr && got != filepath.Clean(tt.path) {
				t.Errorf("within() = %q, want %q", got, filepath.Clean(tt.path))
			}
		})
	}
}
