// Package services orchestrates the analysis pipeline around
// session-scoped state. The pipeline stages themselves are pure; all
// mutable state lives here, one entry per uploaded dataset.
package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"salespulse/internal/analysis"
	"salespulse/internal/chart"
	"salespulse/internal/cleaning"
	apperrors "salespulse/internal/errors"
	"salespulse/internal/exporter"
	"salespulse/internal/infrastructure"
	"salespulse/internal/ingest"
	"salespulse/internal/profile"
	"salespulse/pkg/contracts/domain"
)

// Session holds the state of one uploaded dataset as it moves through
// the pipeline. Raw is the ingested snapshot; Cleaned and the derived
// artifacts appear as the corresponding stages run.
type Session struct {
	ID        string                 `json:"id"`
	Filename  string                 `json:"filename,omitempty"`
	Language  string                 `json:"language"`
	CreatedAt time.Time              `json:"created_at"`
	Raw       *domain.Table          `json:"-"`
	Cleaned   *domain.Table          `json:"-"`
	Profiles  *domain.ProfileSet     `json:"-"`
	Report    *domain.CleaningReport `json:"-"`
	Insights  *domain.InsightSet     `json:"-"`

	mu sync.Mutex
}

// Summary is the compact per-session overview for UI consumption.
type Summary struct {
	ID                string    `json:"id"`
	Filename          string    `json:"filename,omitempty"`
	Language          string    `json:"language"`
	CreatedAt         time.Time `json:"created_at"`
	Rows              int       `json:"rows"`
	Columns           int       `json:"columns"`
	Cleaned           bool      `json:"cleaned"`
	CleanedRows       int       `json:"cleaned_rows,omitempty"`
	DuplicatesRemoved int       `json:"duplicates_removed,omitempty"`
	MissingFilled     int       `json:"missing_filled,omitempty"`
	OutliersFlagged   int       `json:"outliers_flagged,omitempty"`
	Observations      int       `json:"observations,omitempty"`
}

// SessionService runs the pipeline stages against stored sessions.
type SessionService struct {
	logger   *slog.Logger
	language string

	ingestor *ingest.Ingestor
	profiler *profile.Profiler
	cleaner  *cleaning.Cleaner
	engine   *analysis.Engine
	catalog  *chart.Catalog
	exporter *exporter.Exporter
	metrics  *infrastructure.PipelineMetrics

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionService wires the pipeline stages together. Metrics may be
// nil when observability is disabled.
func NewSessionService(
	logger *slog.Logger,
	language string,
	ingestor *ingest.Ingestor,
	profiler *profile.Profiler,
	cleaner *cleaning.Cleaner,
	engine *analysis.Engine,
	catalog *chart.Catalog,
	exp *exporter.Exporter,
	metrics *infrastructure.PipelineMetrics,
) *SessionService {
	if logger == nil {
		logger = slog.Default()
	}
	if language == "" {
		language = "en"
	}
	return &SessionService{
		logger:   logger.With(slog.String("component", "session_service")),
		language: language,
		ingestor: ingestor,
		profiler: profiler,
		cleaner:  cleaner,
		engine:   engine,
		catalog:  catalog,
		exporter: exp,
		metrics:  metrics,
		sessions: make(map[string]*Session),
	}
}

// Ingest parses an upload, profiles it, and opens a new session.
func (s *SessionService) Ingest(ctx context.Context, r io.Reader, format ingest.Format, filename string) (*Session, error) {
	table, err := s.ingestor.Ingest(ctx, r, format)
	if err != nil {
		return nil, err
	}

	session := &Session{
		ID:        uuid.New().String(),
		Filename:  filename,
		Language:  s.language,
		CreatedAt: time.Now().UTC(),
		Raw:       table,
		Profiles:  s.profiler.Profile(ctx, table),
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.UploadsTotal.Add(ctx, 1)
		s.metrics.ActiveSessions.Add(ctx, 1)
	}

	s.logger.InfoContext(ctx, "session opened",
		slog.String("session_id", session.ID),
		slog.String("filename", filename),
		slog.Int("rows", table.NumRows()),
		slog.Int("columns", table.NumCols()))

	return session, nil
}

// Get returns the session or a not-found error.
func (s *SessionService) Get(id string) (*Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("session %s", id))
	}
	return session, nil
}

// Delete removes a session. Unknown IDs are a not-found error.
func (s *SessionService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("session %s", id))
	}
	if s.metrics != nil {
		s.metrics.ActiveSessions.Add(ctx, -1)
	}
	return nil
}

// Profile returns the current profiles: the cleaned table's when
// cleaning has run, otherwise the raw upload's.
func (s *SessionService) Profile(ctx context.Context, id string) (*domain.ProfileSet, error) {
	session, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.Profiles, nil
}

// Clean runs the cleaning pipeline on the raw table. Re-running replaces
// the previous cleaned snapshot and invalidates derived insights.
func (s *SessionService) Clean(ctx context.Context, id string) (*domain.CleaningReport, error) {
	session, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()

	start := time.Now()
	profiles := s.profiler.Profile(ctx, session.Raw)
	cleaned, report, err := s.cleaner.Clean(ctx, session.Raw, profiles)
	if err != nil {
		return nil, err
	}

	session.Cleaned = cleaned
	session.Profiles = profiles
	session.Report = report
	session.Insights = nil

	if s.metrics != nil {
		s.metrics.RowsCleanedTotal.Add(ctx, int64(report.FinalRows))
		s.metrics.CleaningDuration.Record(ctx, time.Since(start).Seconds())
	}
	return report, nil
}

// Analyze computes insights for the cleaned table, cleaning first when
// needed. Results are cached on the session.
func (s *SessionService) Analyze(ctx context.Context, id string) (*domain.InsightSet, error) {
	session, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	return s.analyzeLocked(ctx, session)
}

// analyzeLocked computes (or returns cached) insights. Caller holds the
// session lock.
func (s *SessionService) analyzeLocked(ctx context.Context, session *Session) (*domain.InsightSet, error) {
	if session.Insights != nil {
		return session.Insights, nil
	}
	if session.Cleaned == nil {
		profiles := s.profiler.Profile(ctx, session.Raw)
		cleaned, report, err := s.cleaner.Clean(ctx, session.Raw, profiles)
		if err != nil {
			return nil, err
		}
		session.Cleaned = cleaned
		session.Profiles = profiles
		session.Report = report
	}
	session.Insights = s.engine.Analyze(ctx, session.Cleaned, session.Profiles, session.Report)
	return session.Insights, nil
}

// Chart builds one chart against the cleaned table.
func (s *SessionService) Chart(ctx context.Context, id string, spec domain.ChartSpec) (*domain.ChartDescription, error) {
	session, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()

	insights, err := s.analyzeLocked(ctx, session)
	if err != nil {
		return nil, err
	}

	desc, err := s.catalog.Build(ctx, spec, session.Cleaned, session.Profiles, insights)
	if err != nil {
		if s.metrics != nil {
			s.metrics.ChartErrorsTotal.Add(ctx, 1)
		}
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ChartsRendered.Add(ctx, 1)
	}
	return desc, nil
}

// AutoCharts builds the default chart deck for the session.
func (s *SessionService) AutoCharts(ctx context.Context, id string) ([]domain.ChartDescription, error) {
	session, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()

	insights, err := s.analyzeLocked(ctx, session)
	if err != nil {
		return nil, err
	}
	charts := s.catalog.AutoCharts(ctx, session.Cleaned, session.Profiles, insights)
	if s.metrics != nil {
		s.metrics.ChartsRendered.Add(ctx, int64(len(charts)))
	}
	return charts, nil
}

// Export writes the cleaned table (cleaning first when needed) in the
// requested format.
func (s *SessionService) Export(ctx context.Context, id string, format ingest.Format, w io.Writer) error {
	session, err := s.Get(id)
	if err != nil {
		return err
	}
	session.mu.Lock()
	defer session.mu.Unlock()

	if session.Cleaned == nil {
		profiles := s.profiler.Profile(ctx, session.Raw)
		cleaned, report, cerr := s.cleaner.Clean(ctx, session.Raw, profiles)
		if cerr != nil {
			return cerr
		}
		session.Cleaned = cleaned
		session.Profiles = profiles
		session.Report = report
	}

	switch format {
	case ingest.FormatCSV:
		err = s.exporter.ExportCSV(ctx, w, session.Cleaned)
	case ingest.FormatXLSX:
		err = s.exporter.ExportXLSX(ctx, w, session.Cleaned)
	default:
		return apperrors.NewValidationError(fmt.Sprintf("unsupported export format: %s", format))
	}
	if err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.ExportsTotal.Add(ctx, 1)
	}
	return nil
}

// Summary returns the compact session overview.
func (s *SessionService) Summary(ctx context.Context, id string) (*Summary, error) {
	session, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()

	sum := &Summary{
		ID:        session.ID,
		Filename:  session.Filename,
		Language:  session.Language,
		CreatedAt: session.CreatedAt,
		Rows:      session.Raw.NumRows(),
		Columns:   session.Raw.NumCols(),
	}
	if session.Cleaned != nil {
		sum.Cleaned = true
		sum.CleanedRows = session.Cleaned.NumRows()
	}
	if session.Report != nil {
		sum.DuplicatesRemoved = session.Report.DuplicatesRemoved
		sum.MissingFilled = session.Report.MissingFilled
		sum.OutliersFlagged = session.Report.TotalOutliers()
	}
	if session.Insights != nil {
		sum.Observations = len(session.Insights.Observations)
	}
	return sum, nil
}

// Count returns the number of live sessions.
func (s *SessionService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
