package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apperrors "datamod/internal/errors"
	"datamod/internal/units"
)

// UnitsHandler exposes the time unit conversion table
type UnitsHandler struct {
	converter    *units.Converter
	errorHandler *apperrors.ErrorHandler
	logger       *slog.Logger
}

// NewUnitsHandler creates a units handler. A nil converter uses the built-in
// factor table.
func NewUnitsHandler(converter *units.Converter, errorHandler *apperrors.ErrorHandler, logger *slog.Logger) *UnitsHandler {
	if converter == nil {
		converter = units.Default()
	}
	return &UnitsHandler{
		converter:    converter,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "units")),
	}
}

// Routes mounts the unit endpoints under /api/units
func (h *UnitsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/factor", h.Factor)
	return r
}

// List handles GET /api/units
func (h *UnitsHandler) List(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"units":   units.Units(),
		"factors": h.converter.Table(),
	})
}

// Factor handles GET /api/units/factor?from=&to=
func (h *UnitsHandler) Factor(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")

	factor, err := h.converter.Factor(from, to)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"from":   from,
		"to":     to,
		"factor": factor,
	})
}
