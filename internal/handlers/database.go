package handlers

import (
	"mime"
	"net/http"

	"lifehub/internal/contextutil"
	"lifehub/internal/service"
)

// DatabaseHandler handles whole-database uploads and downloads.
type DatabaseHandler struct {
	syncService service.SyncService
}

// NewDatabaseHandler creates a new DatabaseHandler.
func NewDatabaseHandler(syncService service.SyncService) *DatabaseHandler {
	return &DatabaseHandler{syncService: syncService}
}

// ReplaceResponse is returned after a database upload.
//
// swagger:model ReplaceResponse
type ReplaceResponse struct {
	Message string   `json:"message"`
	Backup  string   `json:"backup,omitempty"`
	Pruned  []string `json:"pruned,omitempty"`
}

// UploadSQLite replaces the store with the uploaded "file" part.
//
// swagger:route POST /upload_sqlite uploadDatabase
//
// # Replace the store with an uploaded database
//
// ---
// consumes:
// - multipart/form-data
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: Store replaced
//	  schema:
//	    "$ref": "#/definitions/ReplaceResponse"
//	'400':
//	  description: Missing or invalid database
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *DatabaseHandler) UploadSQLite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	file, header, err := r.FormFile("file")
	if err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "missing database upload", "error", err)
		writeError(w, http.StatusBadRequest, "No file part in the request")
		return
	}
	defer func() { _ = file.Close() }()

	res, err := h.syncService.ReplaceDatabase(ctx, file)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to replace database")
		return
	}

	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "database uploaded", "file", header.Filename, "size", header.Size)
	writeJSON(w, http.StatusOK, ReplaceResponse{
		Message: "SQLite database uploaded successfully",
		Backup:  res.Backup,
		Pruned:  res.Pruned,
	})
}

// UploadJSON stores the uploaded "file" part as the JSON export.
func (h *DatabaseHandler) UploadJSON(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	file, _, err := r.FormFile("file")
	if err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "missing JSON upload", "error", err)
		writeError(w, http.StatusBadRequest, "No file part in the request")
		return
	}
	defer func() { _ = file.Close() }()

	if _, err := h.syncService.SaveJSONExport(ctx, file); err != nil {
		handleServiceError(ctx, w, err, "Failed to save JSON backup")
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "JSON backup uploaded successfully"})
}

// Download streams the store file as an attachment.
func (h *DatabaseHandler) Download(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	w.Header().Set("Content-Type", "application/x-sqlite3")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": h.syncService.DatabaseName(),
	}))

	n, err := h.syncService.ExportDatabase(ctx, w)
	if err != nil {
		if n == 0 {
			w.Header().Del("Content-Disposition")
			handleServiceError(ctx, w, err, "Failed to download database")
			return
		}
		// Headers are gone; the client sees a truncated body.
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "database download interrupted",
			"error", err, "bytes", n)
	}
}
