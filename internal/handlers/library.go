package handlers

import (
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"lifehub/internal/contextutil"
	"lifehub/internal/service"
)

// contentTypes covers media formats missing from the system mime table.
var contentTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".m4b":  "audio/mp4",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".opus": "audio/ogg",
	".wav":  "audio/wav",
	".epub": "application/epub+zip",
	".pdf":  "application/pdf",
}

// LibraryHandler serves the music and book libraries.
type LibraryHandler struct {
	libraryService service.LibraryService
}

// NewLibraryHandler creates a new LibraryHandler.
func NewLibraryHandler(libraryService service.LibraryService) *LibraryHandler {
	return &LibraryHandler{libraryService: libraryService}
}

// FileResponse describes one servable file.
//
// swagger:model FileResponse
type FileResponse struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Collections lists the albums or books of a library kind.
func (h *LibraryHandler) Collections(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	kind, ok := pathParam(w, r, "kind")
	if !ok {
		return
	}

	names, err := h.libraryService.Collections(ctx, kind)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to list collections")
		return
	}
	writeJSON(w, http.StatusOK, names)
}

// Files lists the files of one collection.
//
// swagger:route GET /api/library/{kind}/{collection}/files listLibraryFiles
//
// # List the files of an album or book
//
// ---
// produces:
// - application/json
// parameters:
//   - in: path
//     name: kind
//     type: string
//     required: true
//   - in: path
//     name: collection
//     type: string
//     required: true
//
// responses:
//
//	'200':
//	  description: Files sorted by name
//	'400':
//	  description: Path escapes the library
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'404':
//	  description: Unknown kind or collection
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *LibraryHandler) Files(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	kind, ok := pathParam(w, r, "kind")
	if !ok {
		return
	}
	collection, ok := pathParam(w, r, "collection")
	if !ok {
		return
	}

	files, err := h.libraryService.Files(ctx, kind, collection)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to list files")
		return
	}

	resp := make([]FileResponse, 0, len(files))
	for _, f := range files {
		resp = append(resp, FileResponse{
			Name: f.Name,
			URL:  "/api/library/" + url.PathEscape(kind) + "/" + url.PathEscape(collection) + "/files/" + url.PathEscape(f.Name),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// File serves one file. Range requests are supported.
func (h *LibraryHandler) File(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, false)
}

// Download serves one file as an attachment.
func (h *LibraryHandler) Download(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, true)
}

func (h *LibraryHandler) serve(w http.ResponseWriter, r *http.Request, attachment bool) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	kind, ok := pathParam(w, r, "kind")
	if !ok {
		return
	}
	collection, ok := pathParam(w, r, "collection")
	if !ok {
		return
	}
	name, ok := pathParam(w, r, "file")
	if !ok {
		return
	}

	path, err := h.libraryService.Resolve(ctx, kind, collection, name)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to get file")
		return
	}

	f, err := os.Open(path)
	if err != nil {
		logger.ErrorContext(ctx, "failed to open library file", "path", path, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to get file")
		return
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		logger.ErrorContext(ctx, "failed to stat library file", "path", path, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to get file")
		return
	}

	w.Header().Set("Content-Type", contentTypeOf(name))
	if attachment {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	}
	http.ServeContent(w, r, name, info.ModTime(), f)
}

func contentTypeOf(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// pathParam returns the unescaped URL parameter, writing a 400 on bad encoding.
func pathParam(w http.ResponseWriter, r *http.Request, key string) (string, bool) {
	v, err := url.PathUnescape(chi.URLParam(r, key))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid path encoding")
		return "", false
	}
	return v, true
}
