package http

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	apierrors "salespulse/internal/errors"
	"salespulse/internal/ingest"
	"salespulse/pkg/contracts/domain"
)

// multipartMemoryLimit caps the in-memory part of multipart parsing;
// larger uploads spill to temp files.
const multipartMemoryLimit = 10 << 20

// SessionHandler serves the analysis pipeline over HTTP with RFC 7807
// error responses.
type SessionHandler struct {
	service      SessionServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(service SessionServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *SessionHandler {
	return &SessionHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "session_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the session routes.
func (h *SessionHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/", h.CreateSession)

	r.Route("/{sessionID}", func(r chi.Router) {
		r.Use(h.SessionCtx)
		r.Delete("/", h.DeleteSession)
		r.Get("/profile", h.GetProfile)
		r.Post("/clean", h.Clean)
		r.Get("/insights", h.GetInsights)
		r.Post("/charts", h.BuildChart)
		r.Get("/charts/auto", h.AutoCharts)
		r.Get("/export", h.Export)
		r.Get("/summary", h.GetSummary)
	})

	return r
}

// SessionCtx validates the session ID URL parameter.
func (h *SessionHandler) SessionCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		if _, err := uuid.Parse(id); err != nil {
			h.errorHandler.HandleError(w, r, apierrors.NewValidationError("session ID must be a UUID"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CreateSession handles POST /api/sessions: a multipart upload with a
// "file" part. The format is derived from the filename, overridable via
// the format query parameter.
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.NewValidationError("request must be multipart/form-data with a file part"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.NewValidationError("missing file part"))
		return
	}
	defer file.Close()

	var format ingest.Format
	if q := r.URL.Query().Get("format"); q != "" {
		format, err = ingest.ParseFormat(q)
	} else {
		format, err = ingest.FormatFromFilename(header.Filename)
	}
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	session, err := h.service.Ingest(r.Context(), file, format, header.Filename)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "session created",
		slog.String("session_id", session.ID),
		slog.String("filename", header.Filename))

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, session)
}

// DeleteSession handles DELETE /api/sessions/{id}.
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// GetProfile handles GET /api/sessions/{id}/profile.
func (h *SessionHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	profiles, err := h.service.Profile(r.Context(), id)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, profiles)
}

// Clean handles POST /api/sessions/{id}/clean.
func (h *SessionHandler) Clean(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	report, err := h.service.Clean(r.Context(), id)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, report)
}

// GetInsights handles GET /api/sessions/{id}/insights.
func (h *SessionHandler) GetInsights(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	insights, err := h.service.Analyze(r.Context(), id)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, insights)
}

// BuildChart handles POST /api/sessions/{id}/charts with a ChartSpec body.
func (h *SessionHandler) BuildChart(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	var spec domain.ChartSpec
	if err := render.DecodeJSON(r.Body, &spec); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.NewChartRequestError("request body is not a valid chart spec"))
		return
	}

	desc, err := h.service.Chart(r.Context(), id, spec)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, desc)
}

// AutoCharts handles GET /api/sessions/{id}/charts/auto.
func (h *SessionHandler) AutoCharts(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	charts, err := h.service.AutoCharts(r.Context(), id)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"charts": charts,
		"count":  len(charts),
	})
}

// Export handles GET /api/sessions/{id}/export?format=csv|xlsx. The
// table is serialized to a buffer first so errors still produce a
// problem response instead of a truncated download.
func (h *SessionHandler) Export(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	format := ingest.FormatCSV
	if q := r.URL.Query().Get("format"); q != "" {
		var err error
		format, err = ingest.ParseFormat(q)
		if err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
	}

	var buf bytes.Buffer
	if err := h.service.Export(r.Context(), id, format, &buf); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	switch format {
	case ingest.FormatXLSX:
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="cleaned.xlsx"`)
	default:
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="cleaned.csv"`)
	}
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// GetSummary handles GET /api/sessions/{id}/summary.
func (h *SessionHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	summary, err := h.service.Summary(r.Context(), id)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, summary)
}
