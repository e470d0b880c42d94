package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apperrors "datamod/internal/errors"
	"datamod/internal/files"
	"datamod/internal/middleware"
)

// FilesHandler lists the files in the data and exports directories
type FilesHandler struct {
	discovery    *files.Discovery
	query        *middleware.QueryParamValidator
	errorHandler *apperrors.ErrorHandler
	logger       *slog.Logger
}

// NewFilesHandler creates a files handler
func NewFilesHandler(discovery *files.Discovery, errorHandler *apperrors.ErrorHandler, logger *slog.Logger) *FilesHandler {
	return &FilesHandler{
		discovery:    discovery,
		query:        middleware.NewQueryParamValidator(errorHandler),
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "files")),
	}
}

// Routes mounts the file listing under /api/files
func (h *FilesHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	return r
}

// List handles GET /api/files?location=data|exports
func (h *FilesHandler) List(w http.ResponseWriter, r *http.Request) {
	location, ok := h.query.ValidateEnum(w, r, "location", files.Locations(), files.LocationData)
	if !ok {
		return
	}

	list, err := h.discovery.List(location)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list files",
			slog.String("location", location),
			slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"location": location,
		"files":    list,
	})
}
