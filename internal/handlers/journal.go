package handlers

import (
	"encoding/json"
	"net/http"

	"lifehub/internal/contextutil"
	"lifehub/internal/service"
)

// JournalHandler handles HTTP requests for journal generation.
type JournalHandler struct {
	journalService service.JournalService
}

// NewJournalHandler creates a new JournalHandler.
func NewJournalHandler(journalService service.JournalService) *JournalHandler {
	return &JournalHandler{journalService: journalService}
}

// JournalRequest represents the HTTP request payload for journal generation.
//
// swagger:model JournalRequest
type JournalRequest struct {
	JournalEntries []json.RawMessage `json:"journalEntries"`
	StartDate      string            `json:"startDate"`
	EndDate        string            `json:"endDate"`
}

// JournalResponse represents the HTTP response payload for journal generation.
//
// swagger:model JournalResponse
type JournalResponse struct {
	Message        string `json:"message"`
	GeneratedEntry string `json:"generated_entry"`
}

// swagger:route POST /api/journal generateJournal
//
// # Summarize journal entries into one entry
//
// ---
// consumes:
// - application/json
// produces:
// - application/json
// parameters:
//   - in: body
//     name: body
//     required: true
//     schema:
//     "$ref": "#/definitions/JournalRequest"
//
// responses:
//
//	'200':
//	  description: Generated entry
//	  schema:
//	    "$ref": "#/definitions/JournalResponse"
//	'400':
//	  description: No entries
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'502':
//	  description: Summarizer failed
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'503':
//	  description: Summarizer not configured
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *JournalHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req JournalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.journalService.Generate(ctx, service.JournalRequest{
		Entries:   req.JournalEntries,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	})
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to generate journal entry")
		return
	}

	writeJSON(w, http.StatusOK, JournalResponse{
		Message:        "Journal entry generated successfully",
		GeneratedEntry: resp.Entry,
	})
}
