package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"lifehub/internal/handlers"
	"lifehub/internal/library"
	"lifehub/internal/service"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Store             handlers.Pinger
	SyncService       service.SyncService
	MediaService      service.MediaService
	LibraryService    service.LibraryService
	ProjectService    service.ProjectService
	JournalService    service.JournalService
	SummarizerEnabled bool
	MaxUploadBytes    int64
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(CORS)
	r.Use(MaxBodySize(deps.MaxUploadBytes))

	health := handlers.NewHealthHandler(deps.Store, deps.SummarizerEnabled)
	tables := handlers.NewTablesHandler(deps.SyncService)
	sync := handlers.NewSyncHandler(deps.SyncService)
	database := handlers.NewDatabaseHandler(deps.SyncService)
	images := handlers.NewImagesHandler(deps.MediaService)
	libraries := handlers.NewLibraryHandler(deps.LibraryService)
	projects := handlers.NewProjectsHandler(deps.ProjectService)
	journal := handlers.NewJournalHandler(deps.JournalService)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/health", health)
		r.Method(http.MethodGet, "/tables", tables)
		r.Method(http.MethodPost, "/sync/{table}", sync)
		r.Method(http.MethodPost, "/images", images)

		r.Route("/library/{kind}", func(r chi.Router) {
			r.Get("/", libraries.Collections)
			r.Get("/{collection}/files", libraries.Files)
			r.Get("/{collection}/files/{file}", libraries.File)
		})

		r.Post("/projects", projects.Upload)
		r.Get("/projects", projects.List)
		r.Get("/projects/{id}", projects.Page)

		r.Method(http.MethodPost, "/journal", journal)
	})

	// Paths used by the mobile client.
	r.Post("/upload_sqlite", database.UploadSQLite)
	r.Post("/upload_json", database.UploadJSON)
	r.Get("/download_db", database.Download)
	r.Post("/upload_projects", projects.Upload)
	r.Get("/download_projects", projects.List)
	r.Method(http.MethodPost, "/generate_journal", journal)

	r.Route("/music", func(r chi.Router) {
		r.Use(LibraryKind(library.KindMusic))
		r.Get("/albums", libraries.Collections)
		r.Get("/albums/{collection}/files", libraries.Files)
		r.Post("/sync/{collection}", libraries.Files)
		r.Get("/file/{collection}/{file}", libraries.Download)
	})
	r.Route("/book", func(r chi.Router) {
		r.Use(LibraryKind(library.KindBooks))
		r.Get("/", libraries.Collections)
		r.Get("/{collection}/files", libraries.Files)
		r.Post("/sync/{collection}", libraries.Files)
		r.Get("/file/{collection}/{file}", libraries.Download)
	})

	return r
}
