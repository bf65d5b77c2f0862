package chart

import (
	"context"
	"log/slog"

	"salespulse/pkg/contracts/domain"
)

const (
	autoHistogramLimit = 6
	autoBarLimit       = 4
)

// AutoCharts builds the default chart deck for a cleaned table:
// histograms for the leading numeric columns, bar charts for the leading
// bounded categorical columns, a correlation heatmap when it is defined,
// and a line chart over the first datetime column.
func (c *Catalog) AutoCharts(ctx context.Context, table *domain.Table, profiles *domain.ProfileSet, insights *domain.InsightSet) []domain.ChartDescription {
	var specs []domain.ChartSpec

	histograms := 0
	for _, name := range profiles.NumericColumns() {
		if histograms == autoHistogramLimit {
			break
		}
		specs = append(specs, domain.ChartSpec{Kind: domain.ChartHistogram, Columns: []string{name}})
		histograms++
	}

	bars := 0
	for _, p := range profiles.Profiles {
		if bars == autoBarLimit {
			break
		}
		if p.Type != domain.ColumnTypeCategorical && p.Type != domain.ColumnTypeBoolean {
			continue
		}
		if p.Distinct > c.opts.TopCategoriesLimit*2 {
			continue
		}
		specs = append(specs, domain.ChartSpec{Kind: domain.ChartBar, Columns: []string{p.Name}})
		bars++
	}

	if insights != nil && len(insights.Correlation.Columns) >= 2 {
		specs = append(specs, domain.ChartSpec{Kind: domain.ChartHeatmap})
	}

	if dateCol := firstDatetime(profiles); dateCol != "" {
		if numeric := profiles.NumericColumns(); len(numeric) > 0 {
			specs = append(specs, domain.ChartSpec{
				Kind:    domain.ChartLine,
				Columns: []string{dateCol, numeric[0]},
			})
		}
	}

	charts := make([]domain.ChartDescription, 0, len(specs))
	for _, spec := range specs {
		desc, err := c.Build(ctx, spec, table, profiles, insights)
		if err != nil {
			// Auto charts are best-effort; a column that cannot be
			// charted is skipped, not fatal.
			c.logger.WarnContext(ctx, "auto chart skipped",
				slog.String("kind", string(spec.Kind)),
				slog.Any("columns", spec.Columns),
				slog.String("error", err.Error()))
			continue
		}
		charts = append(charts, *desc)
	}
	return charts
}

func firstDatetime(profiles *domain.ProfileSet) string {
	for _, p := range profiles.Profiles {
		if p.Type == domain.ColumnTypeDatetime {
			return p.Name
		}
	}
	return ""
}
