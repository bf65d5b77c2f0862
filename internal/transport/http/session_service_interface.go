package http

import (
	"context"
	"io"

	"salespulse/internal/ingest"
	"salespulse/internal/services"
	"salespulse/pkg/contracts/domain"
)

// SessionServiceInterface defines the pipeline operations the handlers
// need. Decoupling from the concrete service keeps handler tests cheap.
type SessionServiceInterface interface {
	Ingest(ctx context.Context, r io.Reader, format ingest.Format, filename string) (*services.Session, error)
	Delete(ctx context.Context, id string) error
	Profile(ctx context.Context, id string) (*domain.ProfileSet, error)
	Clean(ctx context.Context, id string) (*domain.CleaningReport, error)
	Analyze(ctx context.Context, id string) (*domain.InsightSet, error)
	Chart(ctx context.Context, id string, spec domain.ChartSpec) (*domain.ChartDescription, error)
	AutoCharts(ctx context.Context, id string) ([]domain.ChartDescription, error)
	Export(ctx context.Context, id string, format ingest.Format, w io.Writer) error
	Summary(ctx context.Context, id string) (*services.Summary, error)
}
