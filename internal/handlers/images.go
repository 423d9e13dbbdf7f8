package handlers

import (
	"io"
	"mime/multipart"
	"net/http"

	"lifehub/internal/contextutil"
	"lifehub/internal/media"
	"lifehub/internal/service"
)

// multipartMemory is the part of a multipart body kept in memory; the rest
// spills to temporary files.
const multipartMemory = 32 << 20

// ImagesHandler accepts image uploads for a date.
type ImagesHandler struct {
	mediaService service.MediaService
}

// NewImagesHandler creates a new ImagesHandler.
func NewImagesHandler(mediaService service.MediaService) *ImagesHandler {
	return &ImagesHandler{mediaService: mediaService}
}

// ImagesResponse summarizes an image upload.
//
// swagger:model ImagesResponse
type ImagesResponse struct {
	Partition  string   `json:"partition"`
	Saved      []string `json:"saved"`
	Duplicates int      `json:"duplicates"`
	Rejected   int      `json:"rejected"`
	Failed     int      `json:"failed"`
}

// swagger:route POST /api/images uploadImages
//
// # Store photos for a date
//
// ---
// consumes:
// - multipart/form-data
// produces:
// - application/json
// parameters:
//   - in: formData
//     name: date
//     type: string
//     required: true
//     description: YYYY-MM-DD
//   - in: formData
//     name: images
//     type: file
//     required: true
//
// responses:
//
//	'200':
//	  description: Upload summary
//	  schema:
//	    "$ref": "#/definitions/ImagesResponse"
//	'400':
//	  description: Invalid date or body
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *ImagesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "invalid multipart body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid multipart body")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := append(r.MultipartForm.File["images"], r.MultipartForm.File["images[]"]...)
	res, err := h.mediaService.SaveImages(ctx, r.FormValue("date"), imageUploads(headers))
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to save images")
		return
	}

	writeJSON(w, http.StatusOK, ImagesResponse{
		Partition:  res.Partition,
		Saved:      res.Saved,
		Duplicates: res.Duplicates,
		Rejected:   res.Rejected,
		Failed:     res.Failed,
	})
}

func imageUploads(headers []*multipart.FileHeader) []media.Upload {
	uploads := make([]media.Upload, 0, len(headers))
	for _, fh := range headers {
		fh := fh
		uploads = append(uploads, media.Upload{
			Name: fh.Filename,
			Open: func() (io.ReadCloser, error) { return fh.Open() },
		})
	}
	return uploads
}
