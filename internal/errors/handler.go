package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// ErrorHandler converts application errors into RFC 7807 responses.
type ErrorHandler struct {
	logger *slog.Logger
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger.With(slog.String("component", "error_handler")),
	}
}

// HandleError logs err and writes it as a problem+json response.
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	reqID := middleware.GetReqID(r.Context())

	h.logger.ErrorContext(r.Context(), "request failed",
		slog.String("error", err.Error()),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	problem := h.ErrorToProblem(err, r)
	problem.WithExtension("trace_id", reqID)

	render.Render(w, r, problem)
}

// ErrorToProblem maps an error to RFC 7807 Problem Details. AppError types
// carry the mapping; anything unrecognized becomes a 500.
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewProblemDetails(
			http.StatusGatewayTimeout,
			TypeTimeout,
			"Request Timeout",
			"The request took too long to process and was cancelled",
			r.URL.Path,
		)
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return h.appErrorToProblem(appErr, r)
	}

	return NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred while processing your request",
		r.URL.Path,
	)
}

// appErrorToProblem maps the AppError taxonomy onto HTTP statuses.
// Ingestion errors are client errors: the upload itself was unusable.
func (h *ErrorHandler) appErrorToProblem(appErr *AppError, r *http.Request) *ProblemDetails {
	var (
		status      int
		problemType string
		title       string
	)

	switch appErr.Type {
	case ErrTypeFormat:
		status, problemType, title = http.StatusUnprocessableEntity, TypeBadFormat, "Unparseable Input"
	case ErrTypeSizeExceeded:
		status, problemType, title = http.StatusRequestEntityTooLarge, TypePayloadTooLarge, "Payload Too Large"
	case ErrTypeEmptyInput:
		status, problemType, title = http.StatusUnprocessableEntity, TypeEmptyInput, "Empty Input"
	case ErrTypeValidation:
		status, problemType, title = http.StatusBadRequest, TypeValidation, "Validation Failed"
	case ErrTypeChartRequest:
		status, problemType, title = http.StatusBadRequest, TypeChartRequest, "Invalid Chart Request"
	case ErrTypeNotFound:
		status, problemType, title = http.StatusNotFound, TypeNotFound, "Resource Not Found"
	default:
		status, problemType, title = http.StatusInternalServerError, TypeInternal, "Internal Server Error"
	}

	problem := NewProblemDetails(status, problemType, title, appErr.Message, r.URL.Path).
		WithExtension("error_code", string(appErr.Type))

	for k, v := range appErr.Context {
		problem.WithExtension(k, v)
	}

	return problem
}

// HandlePanic recovers from panics and returns an RFC 7807 error.
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

	render.Render(w, r, problem)
}

// NotFound returns a standard 404 error.
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

// MethodNotAllowed returns a standard 405 error.
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
