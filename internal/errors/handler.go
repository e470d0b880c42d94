package errors

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"runtime"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"golang.org/x/text/language"
)

// Problem types for request level failures
const (
	TypeValidation       = "/errors/validation"
	TypeNotFound         = "/errors/not-found"
	TypeRateLimit        = "/errors/rate-limit"
	TypeInternal         = "/errors/internal"
	TypeTimeout          = "/errors/timeout"
	TypePayloadTooLarge  = "/errors/payload-too-large"
	TypeUnsupportedMedia = "/errors/unsupported-media-type"
)

// Problem types for session failures
const (
	TypeFileLoad  = "/errors/file-load"
	TypeExport    = "/errors/export"
	TypeConfig    = "/errors/config"
	TypeBusy      = "/errors/session/busy"
	TypeNoDataset = "/errors/session/no-dataset"
	TypeHistory   = "/errors/session/history"
)

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError converts any error to RFC 7807 format and responds
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	reqID := middleware.GetReqID(r.Context())

	attrs := []any{
		slog.String("error", err.Error()),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("remote_addr", r.RemoteAddr),
	}

	// Expected domain failures are user errors, not server faults
	if appErr, ok := AsAppError(err); ok && appErr.Type != ErrTypeConfig {
		attrs = append(attrs, slog.String("category", string(appErr.Type)))
		h.logger.WarnContext(r.Context(), "request rejected", attrs...)
	} else {
		h.logger.ErrorContext(r.Context(), "request failed", attrs...)
	}

	problem := h.ErrorToProblem(err, r)
	problem.WithExtension("trace_id", reqID)

	if h.includeStack {
		problem.WithExtension("stack", getStackTrace())
	}

	render.Render(w, r, problem)
}

// ErrorToProblem converts an error to RFC 7807 Problem Details
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	lang := MatchLanguage(r.Header.Get("Accept-Language"))

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewProblemDetails(
			http.StatusGatewayTimeout,
			TypeTimeout,
			"Request Timeout",
			"The request took too long to process and was cancelled",
			r.URL.Path,
		)
	}

	if appErr, ok := AsAppError(err); ok {
		return appErrorToProblem(appErr, lang, r)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return h.apiErrorToProblem(apiErr, r)
	}

	if errors.Is(err, fs.ErrNotExist) {
		return NewProblemDetails(
			http.StatusNotFound,
			TypeNotFound,
			"Resource Not Found",
			"The requested file does not exist",
			r.URL.Path,
		)
	}

	return NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred while processing your request",
		r.URL.Path,
	)
}

// StatusForType maps an error category to its HTTP status and problem type
func StatusForType(errType ErrorType, code string) (int, string, string) {
	switch errType {
	case ErrTypeValidation:
		return http.StatusUnprocessableEntity, TypeValidation, "Validation Failed"
	case ErrTypeFileLoad:
		if code == CodeFileNotFound {
			return http.StatusNotFound, TypeFileLoad, "File Load Failed"
		}
		return http.StatusUnprocessableEntity, TypeFileLoad, "File Load Failed"
	case ErrTypeExport:
		return http.StatusInternalServerError, TypeExport, "Export Failed"
	case ErrTypeNotFound:
		return http.StatusNotFound, TypeNotFound, "Resource Not Found"
	case ErrTypeBusy:
		return http.StatusConflict, TypeBusy, "Operation In Progress"
	case ErrTypeState:
		if code == CodeNoDataset {
			return http.StatusConflict, TypeNoDataset, "No Dataset Loaded"
		}
		return http.StatusConflict, TypeHistory, "History Unavailable"
	case ErrTypeConfig:
		return http.StatusInternalServerError, TypeConfig, "Configuration Error"
	default:
		return http.StatusInternalServerError, TypeInternal, "Internal Server Error"
	}
}

// appErrorToProblem renders an AppError with a localized detail message
func appErrorToProblem(appErr *AppError, lang language.Tag, r *http.Request) *ProblemDetails {
	status, problemType, title := StatusForType(appErr.Type, appErr.Code)

	problem := NewProblemDetails(
		status,
		problemType,
		title,
		UserMessage(lang, appErr),
		r.URL.Path,
	).
		WithExtension("category", string(appErr.Type)).
		WithExtension("language", lang.String())

	if appErr.Code != "" {
		problem.WithExtension("error_code", appErr.Code)
	}
	if appErr.Message != "" {
		problem.WithExtension("reason", appErr.Message)
	}
	if len(appErr.Context) > 0 {
		problem.WithExtension("context", appErr.Context)
	}
	if appErr.Type == ErrTypeBusy {
		problem.WithExtension("retry_after", 1)
	}

	return problem
}

// apiErrorToProblem converts an APIError raised by request middleware
func (h *ErrorHandler) apiErrorToProblem(apiErr *APIError, r *http.Request) *ProblemDetails {
	problemType := TypeInternal
	switch apiErr.ErrorCode {
	case APICodeValidationFailed, APICodeInvalidRequest, APICodeInvalidJSON:
		problemType = TypeValidation
	case APICodePayloadTooLarge:
		problemType = TypePayloadTooLarge
	case APICodeUnsupportedMediaType:
		problemType = TypeUnsupportedMedia
	case APICodeRateLimitExceeded:
		problemType = TypeRateLimit
	case APICodeTimeout:
		problemType = TypeTimeout
	}

	problem := NewProblemDetails(
		apiErr.StatusCode,
		problemType,
		http.StatusText(apiErr.StatusCode),
		apiErr.Message,
		r.URL.Path,
	).WithExtension("error_code", apiErr.ErrorCode)

	if apiErr.Details != nil {
		problem.WithExtension("details", apiErr.Details)
	}
	if apiErr.ErrorCode == APICodeRateLimitExceeded {
		problem.WithExtension("retry_after", 1)
	}

	return problem
}

// HandlePanic recovers from panics and returns RFC 7807 error
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", string(debug.Stack())),
	)

	problem := NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred",
		r.URL.Path,
	).WithExtension("trace_id", reqID)

	if h.includeStack {
		problem.WithExtension("panic", fmt.Sprintf("%v", recovered))
		problem.WithExtension("stack", getStackTrace())
	}

	render.Render(w, r, problem)
}

// NotFound returns a standard 404 error
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusNotFound,
		TypeNotFound,
		"Not Found",
		"The requested resource was not found",
		r.URL.Path,
	).WithExtension("trace_id", middleware.GetReqID(r.Context()))

	render.Render(w, r, problem)
}

// MethodNotAllowed returns a standard 405 error
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusMethodNotAllowed,
		TypeInternal,
		"Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method),
		r.URL.Path,
	).WithExtension("trace_id", middleware.GetReqID(r.Context()))

	render.Render(w, r, problem)
}

// getStackTrace returns the current stack trace
func getStackTrace() string {
	buf := make([]byte, 1024*8)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// JSON helper for consistent JSON responses
func (h *ErrorHandler) JSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	render.Status(r, status)
	render.JSON(w, r, v)
}
