package service

import (
	"context"
	"errors"

	"lifehub/internal/contextutil"
	"lifehub/internal/library"
	"lifehub/internal/media"
	"lifehub/internal/projects"
)

// MediaService stores uploaded images.
type MediaService interface {
	SaveImages(ctx context.Context, date string, uploads []media.Upload) (media.SaveResult, error)
}

type mediaService struct {
	store *media.Store
}

// NewMediaService creates a new MediaService.
func NewMediaService(store *media.Store) MediaService {
	return &mediaService{store: store}
}

func (s *mediaService) SaveImages(ctx context.Context, date string, uploads []media.Upload) (media.SaveResult, error) {
	if len(uploads) == 0 {
		return media.SaveResult{}, &ValidationError{Field: "images", Message: "no images provided"}
	}
	res, err := s.store.Save(ctx, date, uploads)
	if err != nil {
		if errors.Is(err, media.ErrInvalidDate) {
			return media.SaveResult{}, &ValidationError{Field: "date", Message: err.Error()}
		}
		return media.SaveResult{}, WrapError(err, "failed to save images")
	}
	return res, nil
}

// LibraryService browses the media libraries.
type LibraryService interface {
	Kinds() []string
	Collections(ctx context.Context, kind string) ([]string, error)
	Files(ctx context.Context, kind, collection string) ([]library.File, error)
	Resolve(ctx context.Context, kind, collection, name string) (string, error)
}

type libraryService struct {
	libraries *library.Registry
}

// NewLibraryService creates a new LibraryService.
func NewLibraryService(libraries *library.Registry) LibraryService {
	return &libraryService{libraries: libraries}
}

func (s *libraryService) Kinds() []string {
	return s.libraries.Kinds()
}

func (s *libraryService) Collections(ctx context.Context, kind string) ([]string, error) {
	c, err := s.libraries.Catalog(kind)
	if err != nil {
		return nil, libraryError(ctx, err)
	}
	names, err := c.Collections()
	if err != nil {
		return nil, libraryError(ctx, err)
	}
	return names, nil
}

func (s *libraryService) Files(ctx context.Context, kind, collection string) ([]library.File, error) {
	c, err := s.libraries.Catalog(kind)
	if err != nil {
		return nil, libraryError(ctx, err)
	}
	files, err := c.Files(collection)
	if err != nil {
		return nil, libraryError(ctx, err)
	}
	return files, nil
}

func (s *libraryService) Resolve(ctx context.Context, kind, collection, name string) (string, error) {
	c, err := s.libraries.Catalog(kind)
	if err != nil {
		return "", libraryError(ctx, err)
	}
	path, err := c.Resolve(collection, name)
	if err != nil {
		return "", libraryError(ctx, err)
	}
	return path, nil
}

func libraryError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, library.ErrTraversal):
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "rejected library path", "error", err)
		return classify(ErrInvalidPath, err)
	case errors.Is(err, library.ErrNotFound):
		return classify(ErrNotFound, err)
	}
	return WrapError(err, "failed to read library")
}

// ProjectService manages the markdown project documents.
type ProjectService interface {
	Replace(ctx context.Context, uploads []projects.Upload) ([]string, error)
	List(ctx context.Context) ([]projects.Project, error)
	Render(ctx context.Context, id string) (projects.Project, string, error)
}

type projectService struct {
	store *projects.Store
}

// NewProjectService creates a new ProjectService.
func NewProjectService(store *projects.Store) ProjectService {
	return &projectService{store: store}
}

func (s *projectService) Replace(ctx context.Context, uploads []projects.Upload) ([]string, error) {
	saved, err := s.store.Replace(ctx, uploads)
	if err != nil {
		if errors.Is(err, projects.ErrNoProjects) {
			return nil, &ValidationError{Field: "files", Message: err.Error()}
		}
		return nil, WrapError(err, "failed to replace projects")
	}
	return saved, nil
}

func (s *projectService) List(ctx context.Context) ([]projects.Project, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, WrapError(err, "failed to list projects")
	}
	return list, nil
}

func (s *projectService) Render(ctx context.Context, id string) (projects.Project, string, error) {
	p, html, err := s.store.Render(id)
	if err != nil {
		if errors.Is(err, projects.ErrNotFound) {
			return projects.Project{}, "", classify(ErrNotFound, err)
		}
		return projects.Project{}, "", WrapError(err, "failed to render project")
	}
	return p, html, nil
}
