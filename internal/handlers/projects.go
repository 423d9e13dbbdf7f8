package handlers

import (
	"html/template"
	"io"
	"net/http"

	"lifehub/internal/contextutil"
	"lifehub/internal/projects"
	"lifehub/internal/service"
)

var projectPage = template.Must(template.New("project").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Title}}</title>
  <style>
    :root {
      color-scheme: dark;
    }
    body {
      font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif;
      margin: 0 auto;
      padding: 2rem;
      max-width: 900px;
      line-height: 1.7;
      background: #050b18;
      color: #e4ecff;
    }
    header {
      margin-bottom: 2rem;
      border-bottom: 1px solid rgba(148, 163, 184, 0.2);
      padding-bottom: 1.5rem;
    }
    h1 {
      margin-top: 0;
      color: #fff;
    }
    article {
      background: rgba(12, 19, 35, 0.85);
      border: 1px solid rgba(99, 102, 241, 0.2);
      border-radius: 16px;
      padding: 2rem;
    }
    pre {
      background: #0f172a;
      padding: 1rem;
      overflow-x: auto;
      border-radius: 10px;
    }
    a {
      color: #60a5fa;
    }
    .meta {
      color: #94a3b8;
      font-size: 0.95rem;
    }
    @media (max-width: 640px) {
      body {
        padding: 1rem;
      }
    }
  </style>
</head>
<body>
  <header>
    <h1>{{.Title}}</h1>
    <p class="meta">Project: {{.ID}}</p>
  </header>
  <article>{{.Content}}</article>
</body>
</html>`))

// projectPageData holds template data for rendered project pages.
type projectPageData struct {
	ID      string
	Title   string
	Content template.HTML
}

// ProjectsHandler uploads, lists and renders project documents.
type ProjectsHandler struct {
	projectService service.ProjectService
}

// NewProjectsHandler creates a new ProjectsHandler.
func NewProjectsHandler(projectService service.ProjectService) *ProjectsHandler {
	return &ProjectsHandler{projectService: projectService}
}

// ProjectsUploadResponse is returned after a project upload.
//
// swagger:model ProjectsUploadResponse
type ProjectsUploadResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Files   []string `json:"files"`
}

// Upload replaces all projects with the multipart "files" parts.
func (h *ProjectsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "invalid multipart body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid multipart body")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["files"]
	uploads := make([]projects.Upload, 0, len(headers))
	for _, fh := range headers {
		fh := fh
		uploads = append(uploads, projects.Upload{
			Name: fh.Filename,
			Open: func() (io.ReadCloser, error) { return fh.Open() },
		})
	}

	saved, err := h.projectService.Replace(ctx, uploads)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to save projects")
		return
	}
	writeJSON(w, http.StatusOK, ProjectsUploadResponse{
		Success: true,
		Message: "Projects uploaded successfully",
		Files:   saved,
	})
}

// List returns every project with its raw markdown.
func (h *ProjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	list, err := h.projectService.List(ctx)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to list projects")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Page renders one project as an HTML page.
func (h *ProjectsHandler) Page(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathParam(w, r, "id")
	if !ok {
		return
	}

	p, body, err := h.projectService.Render(ctx, id)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to render project")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := projectPage.Execute(w, projectPageData{
		ID:      p.ID,
		Title:   p.Title,
		Content: template.HTML(body),
	}); err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to execute project template", "id", id, "error", err)
	}
}
