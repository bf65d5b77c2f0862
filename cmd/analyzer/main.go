// Command analyzer runs the full pipeline against a single file:
// ingest, profile, clean, analyze, then write the cleaned table, the
// report, and optionally the auto-chart descriptions.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"salespulse/internal/analysis"
	"salespulse/internal/chart"
	"salespulse/internal/cleaning"
	"salespulse/internal/config"
	"salespulse/internal/exporter"
	"salespulse/internal/infrastructure"
	"salespulse/internal/ingest"
	"salespulse/internal/profile"
	"salespulse/pkg/contracts/domain"
)

func main() {
	input := flag.String("input", "", "input file (.csv or .xlsx)")
	format := flag.String("format", "", "input format, derived from the extension when empty")
	out := flag.String("out", "", "cleaned output file (defaults to <input>_cleaned.csv)")
	outFormat := flag.String("out-format", "", "output format, derived from -out when empty")
	reportPath := flag.String("report", "", "write the cleaning report and insights as JSON")
	chartsDir := flag.String("charts-dir", "", "write auto-chart descriptions as JSON files")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "usage: analyzer -input data.csv [-out cleaned.csv] [-report report.json] [-charts-dir charts/]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Warn("failed to load config, using defaults", "error", err)
		cfg = config.Default()
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("failed to initialize logger", "error", err)
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()
	ctx := infrastructure.ContextWithTraceID(context.Background())

	if err := run(ctx, logger, cfg, *input, *format, *out, *outFormat, *reportPath, *chartsDir); err != nil {
		logger.ErrorContext(ctx, "analysis failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, cfg *config.Config, input, formatFlag, out, outFormatFlag, reportPath, chartsDir string) error {
	pipeline := cfg.Pipeline

	inFormat, err := resolveFormat(formatFlag, input)
	if err != nil {
		return err
	}
	if out == "" {
		ext := filepath.Ext(input)
		out = input[:len(input)-len(ext)] + "_cleaned.csv"
	}
	outFormat, err := resolveFormat(outFormatFlag, out)
	if err != nil {
		return err
	}

	file, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer file.Close()

	table, err := ingest.New(logger, pipeline.MaxUploadBytes).Ingest(ctx, file, inFormat)
	if err != nil {
		return err
	}

	profiler := profile.New(logger, profile.Options{
		MissingTokens:      pipeline.MissingTokens,
		DateFormats:        pipeline.DateFormats,
		TopCategoriesLimit: pipeline.TopCategoriesLimit,
	})
	profiles := profiler.Profile(ctx, table)

	cleaner := cleaning.New(logger, cleaning.Options{
		MissingTokens:        pipeline.MissingTokens,
		DateFormats:          pipeline.DateFormats,
		OutlierIQRMultiplier: pipeline.OutlierIQRMultiplier,
	})
	cleaned, report, err := cleaner.Clean(ctx, table, profiles)
	if err != nil {
		return err
	}

	engine := analysis.New(logger, analysis.Options{TopCategoriesLimit: pipeline.TopCategoriesLimit})
	insights := engine.Analyze(ctx, cleaned, profiles, report)

	if err := writeCleaned(ctx, logger, cleaned, out, outFormat); err != nil {
		return err
	}
	if reportPath != "" {
		if err := writeJSON(reportPath, map[string]interface{}{
			"report":   report,
			"profiles": profiles,
			"insights": insights,
		}); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}
	if chartsDir != "" {
		if err := writeAutoCharts(ctx, logger, cfg, cleaned, profiles, insights, chartsDir); err != nil {
			return err
		}
	}

	logger.InfoContext(ctx, "analysis complete",
		slog.String("input", input),
		slog.String("output", out),
		slog.Int("rows", cleaned.NumRows()),
		slog.Int("observations", len(insights.Observations)))
	return nil
}

func resolveFormat(flagValue, filename string) (ingest.Format, error) {
	if flagValue != "" {
		return ingest.ParseFormat(flagValue)
	}
	return ingest.FormatFromFilename(filename)
}

func writeCleaned(ctx context.Context, logger *slog.Logger, table *domain.Table, path string, format ingest.Format) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	defer file.Close()

	exp := exporter.New(logger)
	if format == ingest.FormatXLSX {
		return exp.ExportXLSX(ctx, file, table)
	}
	return exp.ExportCSV(ctx, file, table)
}

// writeAutoCharts builds the default chart deck and writes each chart
// as its own JSON file, in parallel.
func writeAutoCharts(ctx context.Context, logger *slog.Logger, cfg *config.Config, table *domain.Table, profiles *domain.ProfileSet, insights *domain.InsightSet, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create charts dir: %w", err)
	}

	catalog := chart.New(logger, chart.Options{
		HistogramBins:      cfg.Pipeline.HistogramBins,
		TopCategoriesLimit: cfg.Pipeline.TopCategoriesLimit,
	})
	charts := catalog.AutoCharts(ctx, table, profiles, insights)

	g, _ := errgroup.WithContext(ctx)
	for i := range charts {
		desc := charts[i]
		name := fmt.Sprintf("%02d_%s.json", i+1, desc.Kind)
		g.Go(func() error {
			return writeJSON(filepath.Join(dir, name), desc)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to write charts: %w", err)
	}
	logger.InfoContext(ctx, "auto charts written",
		slog.Int("count", len(charts)),
		slog.String("dir", dir))
	return nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
