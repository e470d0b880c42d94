package http

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"datamod/internal/dataprocessing"
	"datamod/internal/dataset"
	apperrors "datamod/internal/errors"
	"datamod/internal/exporter"
	"datamod/internal/middleware"
	"datamod/internal/services"
)

// maxRowsPage caps the limit accepted by GET /api/session/rows
const maxRowsPage = 10000

// SessionHandler exposes the session controller over HTTP
type SessionHandler struct {
	session      *services.SessionService
	validator    *middleware.ValidationMiddleware
	query        *middleware.QueryParamValidator
	errorHandler *apperrors.ErrorHandler
	logger       *slog.Logger
}

// NewSessionHandler creates a session handler
func NewSessionHandler(session *services.SessionService, validator *middleware.ValidationMiddleware, errorHandler *apperrors.ErrorHandler, logger *slog.Logger) *SessionHandler {
	if session == nil {
		panic("session cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionHandler{
		session:      session,
		validator:    validator,
		query:        middleware.NewQueryParamValidator(errorHandler),
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "session")),
	}
}

// OpenRequest loads a file into the session
type OpenRequest struct {
	Path string `json:"path" validate:"required,safepath"`
}

// SelectionRequest names the cells to operate on. Omitted columns select
// every column and omitted rows select every row.
type SelectionRequest struct {
	Columns []string          `json:"columns,omitempty"`
	Rows    *dataset.RowRange `json:"rows,omitempty"`
}

// ApplyRequest runs one operation over a selection
type ApplyRequest struct {
	Selection SelectionRequest         `json:"selection"`
	Operation dataprocessing.Operation `json:"operation"`
}

// ConvertRequest converts the selected values between time units
type ConvertRequest struct {
	Selection SelectionRequest `json:"selection"`
	From      string           `json:"from" validate:"required"`
	To        string           `json:"to" validate:"required"`
}

// SaveRequest writes the modified table. An empty path uses the loaded
// file's name in the exports directory.
type SaveRequest struct {
	Path string `json:"path,omitempty" validate:"omitempty,safepath"`
	exporter.SaveOptions
}

// ChartRequest exports the before/after chart of one column
type ChartRequest struct {
	Path    string                `json:"path,omitempty" validate:"omitempty,safepath"`
	Column  string                `json:"column" validate:"required"`
	Rows    *dataset.RowRange     `json:"rows,omitempty"`
	Options exporter.ChartOptions `json:"options"`
}

// Routes mounts the session endpoints under /api/session
func (h *SessionHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.Info)
	r.Post("/open", h.Open)
	r.Post("/apply", h.Apply)
	r.Post("/convert", h.Convert)
	r.Post("/preview", h.Preview)
	r.Post("/undo", h.Undo)
	r.Post("/redo", h.Redo)
	r.Post("/reset", h.Reset)
	r.Get("/history", h.History)
	r.Get("/stats", h.Stats)
	r.Get("/rows", h.Rows)
	r.Post("/save", h.Save)
	r.Post("/chart", h.Chart)

	return r
}

// Info handles GET /api/session
func (h *SessionHandler) Info(w http.ResponseWriter, r *http.Request) {
	info, err := h.session.Info(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, info)
}

// Open handles POST /api/session/open
func (h *SessionHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req OpenRequest
	if err := h.validator.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	info, err := h.session.Open(r.Context(), req.Path)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "dataset opened",
		slog.String("path", info.Path),
		slog.Int("rows", info.Rows))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, info)
}

// Apply handles POST /api/session/apply
func (h *SessionHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var req ApplyRequest
	if err := h.validator.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	sel, err := h.selection(r, req.Selection)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	result, err := h.session.Apply(r.Context(), sel, req.Operation)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// Convert handles POST /api/session/convert
func (h *SessionHandler) Convert(w http.ResponseWriter, r *http.Request) {
	var req ConvertRequest
	if err := h.validator.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	sel, err := h.selection(r, req.Selection)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	result, err := h.session.Convert(r.Context(), sel, req.From, req.To)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// Preview handles POST /api/session/preview
func (h *SessionHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req ApplyRequest
	if err := h.validator.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	sel, err := h.selection(r, req.Selection)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	result, err := h.session.Preview(r.Context(), sel, req.Operation)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// Undo handles POST /api/session/undo
func (h *SessionHandler) Undo(w http.ResponseWriter, r *http.Request) {
	h.historyStep(w, r, h.session.Undo)
}

// Redo handles POST /api/session/redo
func (h *SessionHandler) Redo(w http.ResponseWriter, r *http.Request) {
	h.historyStep(w, r, h.session.Redo)
}

// Reset handles POST /api/session/reset
func (h *SessionHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.historyStep(w, r, h.session.Reset)
}

// History handles GET /api/session/history
func (h *SessionHandler) History(w http.ResponseWriter, r *http.Request) {
	view, err := h.session.History(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, view)
}

// Stats handles GET /api/session/stats?column=&rows=start:end, also
// accepting start= and end=. Without a range the whole column is compared.
func (h *SessionHandler) Stats(w http.ResponseWriter, r *http.Request) {
	column := r.URL.Query().Get("column")
	if column == "" {
		h.errorHandler.HandleError(w, r, apperrors.ErrValidation("column", "column is required"))
		return
	}

	rows, err := h.rowRange(r, r.URL.Query().Get("rows"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	// start and end override the matching bound of rows
	start, ok := h.query.ValidateInt(w, r, "start", 0, math.MaxInt32, rows.Start)
	if !ok {
		return
	}
	end, ok := h.query.ValidateInt(w, r, "end", 0, math.MaxInt32, rows.End)
	if !ok {
		return
	}
	rows = dataset.RowRange{Start: start, End: end}

	comparison, err := h.session.Stats(r.Context(), column, rows)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, comparison)
}

// Rows handles GET /api/session/rows?offset=&limit=&original=
func (h *SessionHandler) Rows(w http.ResponseWriter, r *http.Request) {
	offset, ok := h.query.ValidateInt(w, r, "offset", 0, math.MaxInt32, 0)
	if !ok {
		return
	}
	limit, ok := h.query.ValidateInt(w, r, "limit", 1, maxRowsPage, 100)
	if !ok {
		return
	}
	original, ok := h.query.ValidateBool(w, r, "original", false)
	if !ok {
		return
	}

	view, err := h.session.Rows(r.Context(), offset, limit, original)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, view)
}

// Save handles POST /api/session/save
func (h *SessionHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req SaveRequest
	if err := h.validator.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	path := req.Path
	if path == "" {
		info, err := h.session.Info(r.Context())
		if err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		path = info.Name
	}

	saved, err := h.session.Save(r.Context(), path, req.SaveOptions)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]interface{}{"path": saved})
}

// Chart handles POST /api/session/chart
func (h *SessionHandler) Chart(w http.ResponseWriter, r *http.Request) {
	var req ChartRequest
	if err := h.validator.Decode(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	var rows dataset.RowRange
	var err error
	if req.Rows != nil {
		rows = *req.Rows
	} else if rows, err = h.rowRange(r, ""); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	path := req.Path
	if path == "" {
		path = req.Column + "_chart"
	}

	result, err := h.session.ExportChart(r.Context(), path, req.Column, rows, req.Options)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, result)
}

func (h *SessionHandler) historyStep(w http.ResponseWriter, r *http.Request, step func(ctx context.Context) (services.HistoryResult, error)) {
	result, err := step(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// selection resolves omitted columns or rows against the loaded dataset
func (h *SessionHandler) selection(r *http.Request, req SelectionRequest) (dataset.Selection, error) {
	sel := dataset.Selection{Columns: req.Columns}
	if req.Rows != nil {
		sel.Rows = *req.Rows
	}
	if len(req.Columns) > 0 && req.Rows != nil {
		return sel, nil
	}
	info, err := h.session.Info(r.Context())
	if err != nil {
		return sel, err
	}
	if len(sel.Columns) == 0 {
		sel.Columns = info.Columns
	}
	if req.Rows == nil {
		sel.Rows = dataset.RowRange{Start: 0, End: info.Rows - 1}
	}
	return sel, nil
}

// rowRange parses s, or covers every loaded row when s is empty
func (h *SessionHandler) rowRange(r *http.Request, s string) (dataset.RowRange, error) {
	if s = strings.TrimSpace(s); s != "" {
		return dataset.ParseRowRange(s)
	}
	info, err := h.session.Info(r.Context())
	if err != nil {
		return dataset.RowRange{}, err
	}
	return dataset.RowRange{Start: 0, End: info.Rows - 1}, nil
}
