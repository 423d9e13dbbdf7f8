package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"lifehub/internal/contextutil"
	"lifehub/internal/ingest"
	"lifehub/internal/service"
)

// TablesHandler lists the synchronizable tables.
type TablesHandler struct {
	syncService service.SyncService
}

// NewTablesHandler creates a new TablesHandler.
func NewTablesHandler(syncService service.SyncService) *TablesHandler {
	return &TablesHandler{syncService: syncService}
}

// TableResponse describes one table.
//
// swagger:model TableResponse
type TableResponse struct {
	Name    string   `json:"name"`
	Key     []string `json:"key"`
	Columns []string `json:"columns"`
	Count   int      `json:"count"`
}

// ServeHTTP lists every table with its columns and row count.
//
// swagger:route GET /api/tables listTables
//
// # List synchronizable tables
//
// ---
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: Tables in registry order
//	'500':
//	  description: Store error
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *TablesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	infos, err := h.syncService.Tables(ctx)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to list tables")
		return
	}

	resp := make([]TableResponse, 0, len(infos))
	for _, info := range infos {
		resp = append(resp, TableResponse{Name: info.Name, Key: info.Key, Columns: info.Columns, Count: info.Count})
	}
	writeJSON(w, http.StatusOK, resp)
}

// SyncHandler applies a batch of client records to one table.
type SyncHandler struct {
	syncService service.SyncService
}

// NewSyncHandler creates a new SyncHandler.
func NewSyncHandler(syncService service.SyncService) *SyncHandler {
	return &SyncHandler{syncService: syncService}
}

// SyncRequest represents the HTTP request payload for a table sync.
//
// swagger:model SyncRequest
type SyncRequest struct {
	Records []map[string]any `json:"records"`
}

// RecordOutcome is the result for the record at Index of the request.
//
// swagger:model RecordOutcome
type RecordOutcome struct {
	Index   int            `json:"index"`
	Outcome ingest.Outcome `json:"outcome"`
	Record  map[string]any `json:"record,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// SyncResponse represents the HTTP response payload for a table sync.
//
// swagger:model SyncResponse
type SyncResponse struct {
	Table           string          `json:"table"`
	Succeeded       int             `json:"succeeded"`
	SkippedOrFailed int             `json:"skippedOrFailed"`
	Records         []RecordOutcome `json:"records"`
}

// swagger:route POST /api/sync/{table} syncTable
//
// # Apply a batch of client records to one table
//
// Records whose natural key already exists are skipped. Each record gets an
// outcome in request order.
//
// ---
// consumes:
// - application/json
// produces:
// - application/json
// parameters:
//   - in: path
//     name: table
//     type: string
//     required: true
//   - in: body
//     name: body
//     required: true
//     schema:
//     "$ref": "#/definitions/SyncRequest"
//
// responses:
//
//	'200':
//	  description: Per-record outcomes
//	  schema:
//	    "$ref": "#/definitions/SyncResponse"
//	'400':
//	  description: Unknown table or invalid body
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'503':
//	  description: Store is busy
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *SyncHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)
	table := chi.URLParam(r, "table")

	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var req SyncRequest
	if err := dec.Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Records == nil {
		writeError(w, http.StatusBadRequest, "Validation error: records is required")
		return
	}

	res, err := h.syncService.SyncTable(ctx, table, req.Records)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to sync records")
		return
	}

	resp := SyncResponse{
		Table:           res.Table,
		Succeeded:       res.Succeeded,
		SkippedOrFailed: res.SkippedOrFailed,
		Records:         make([]RecordOutcome, 0, len(res.Results)),
	}
	for _, rr := range res.Results {
		out := RecordOutcome{Index: rr.Index, Outcome: rr.Outcome}
		if rr.Record != nil {
			out.Record = rr.Record.Map()
		}
		if rr.Err != nil {
			out.Error = rr.Err.Error()
		}
		resp.Records = append(resp.Records, out)
	}
	writeJSON(w, http.StatusOK, resp)
}
