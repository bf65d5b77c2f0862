// Package chart builds renderable chart descriptions from a cleaned
// table. The catalog validates every request against the profiled
// column types before computing anything; it returns data and labels,
// never pixels.
package chart

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "salespulse/internal/errors"
	"salespulse/pkg/contracts/domain"
)

// Options control default binning and category caps.
type Options struct {
	// HistogramBins fixes the bin count; zero selects Sturges' rule.
	HistogramBins int

	// TopCategoriesLimit caps bar charts; pie charts allow twice it.
	TopCategoriesLimit int
}

// requirement describes what a chart kind needs from its columns.
type requirement struct {
	numericCols     int
	multiNumeric    bool // accepts any number of numeric columns >= numericCols
	categoricalCols int
	allowGroupBy    bool
	orderedX        bool // first column must be datetime or numeric
	boundedFirst    bool // first categorical column must fit the pie cap
	usesMatrix      bool
}

// kindRequirements is the fixed catalog. Requests for kinds outside it
// fail struct validation before reaching the registry.
var kindRequirements = map[domain.ChartKind]requirement{
	domain.ChartHistogram: {numericCols: 1},
	domain.ChartBox:       {numericCols: 1, multiNumeric: true, allowGroupBy: true},
	domain.ChartViolin:    {numericCols: 1, multiNumeric: true, allowGroupBy: true},
	domain.ChartScatter:   {numericCols: 2, allowGroupBy: true},
	domain.ChartLine:      {numericCols: 1, orderedX: true},
	domain.ChartBar:       {categoricalCols: 1},
	domain.ChartPie:       {categoricalCols: 1, boundedFirst: true},
	domain.ChartHeatmap:   {usesMatrix: true},
}

// Catalog validates chart requests and builds their descriptions.
type Catalog struct {
	logger   *slog.Logger
	opts     Options
	validate *validator.Validate
}

// New creates a chart catalog.
func New(logger *slog.Logger, opts Options) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.TopCategoriesLimit <= 0 {
		opts.TopCategoriesLimit = 10
	}
	return &Catalog{
		logger:   logger.With(slog.String("component", "chart_catalog")),
		opts:     opts,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Build validates the request and constructs the chart description.
// Invalid requests fail with a chart-request error naming the unmet
// constraint; they never affect the session.
func (c *Catalog) Build(ctx context.Context, spec domain.ChartSpec, table *domain.Table, profiles *domain.ProfileSet, insights *domain.InsightSet) (*domain.ChartDescription, error) {
	req, ok := kindRequirements[spec.Kind]
	if !ok {
		return nil, apperrors.NewChartRequestError(fmt.Sprintf("unknown chart kind %q", spec.Kind))
	}
	if !req.usesMatrix {
		if err := c.validate.Struct(spec); err != nil {
			return nil, apperrors.NewChartRequestError(fmt.Sprintf("invalid chart request: %v", err))
		}
	}
	if err := c.checkColumns(spec, req, table, profiles, insights); err != nil {
		return nil, err
	}

	var (
		desc *domain.ChartDescription
		err  error
	)
	switch spec.Kind {
	case domain.ChartHistogram:
		desc, err = c.buildHistogram(spec, table)
	case domain.ChartBox, domain.ChartViolin:
		desc, err = c.buildDistribution(spec, table)
	case domain.ChartScatter:
		desc, err = c.buildScatter(spec, table)
	case domain.ChartLine:
		desc, err = c.buildLine(spec, table, profiles)
	case domain.ChartBar:
		desc, err = c.buildBar(spec, table)
	case domain.ChartPie:
		desc, err = c.buildPie(spec, table)
	case domain.ChartHeatmap:
		desc, err = c.buildHeatmap(insights)
	default:
		err = apperrors.NewChartRequestError(fmt.Sprintf("unknown chart kind %q", spec.Kind))
	}
	if err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "chart built",
		slog.String("kind", string(spec.Kind)),
		slog.Any("columns", spec.Columns))

	return desc, nil
}

// checkColumns enforces the kind's requirement against the profiles.
func (c *Catalog) checkColumns(spec domain.ChartSpec, req requirement, table *domain.Table, profiles *domain.ProfileSet, insights *domain.InsightSet) error {
	if req.usesMatrix {
		if insights == nil || len(insights.Correlation.Columns) < 2 {
			return apperrors.NewChartRequestError("heatmap requires at least 2 numeric columns with defined correlation")
		}
		return nil
	}

	if req.multiNumeric {
		if len(spec.Columns) > req.numericCols {
			req.numericCols = len(spec.Columns)
		}
		if spec.GroupBy != "" && len(spec.Columns) > 1 {
			return apperrors.NewChartRequestError(
				fmt.Sprintf("%s grouping requires a single column, got %d", spec.Kind, len(spec.Columns)))
		}
	}

	want := req.numericCols + req.categoricalCols
	if req.orderedX {
		want++
	}
	if len(spec.Columns) != want {
		return apperrors.NewChartRequestError(
			fmt.Sprintf("%s requires exactly %d column(s), got %d", spec.Kind, want, len(spec.Columns)))
	}

	for _, name := range spec.Columns {
		if !table.HasColumn(name) {
			return apperrors.NewChartRequestError(fmt.Sprintf("column %q does not exist", name))
		}
	}

	idx := 0
	if req.orderedX {
		p := profiles.ByName(spec.Columns[0])
		if p == nil || (p.Type != domain.ColumnTypeDatetime && !p.Type.Numeric()) {
			return apperrors.NewChartRequestError(
				fmt.Sprintf("%s requires a datetime or numeric x column, %q is %s", spec.Kind, spec.Columns[0], profiledType(p)))
		}
		idx = 1
	}
	for n := 0; n < req.numericCols; n++ {
		p := profiles.ByName(spec.Columns[idx])
		if p == nil || !p.Type.Numeric() {
			return apperrors.NewChartRequestError(
				fmt.Sprintf("%s requires a numeric column, %q is %s", spec.Kind, spec.Columns[idx], profiledType(p)))
		}
		idx++
	}
	for n := 0; n < req.categoricalCols; n++ {
		p := profiles.ByName(spec.Columns[idx])
		if p == nil || (p.Type != domain.ColumnTypeCategorical && p.Type != domain.ColumnTypeBoolean) {
			return apperrors.NewChartRequestError(
				fmt.Sprintf("%s requires a categorical column, %q is %s", spec.Kind, spec.Columns[idx], profiledType(p)))
		}
		if req.boundedFirst && p.Distinct > c.opts.TopCategoriesLimit*2 {
			return apperrors.NewChartRequestError(
				fmt.Sprintf("pie requires at most %d distinct categories, %q has %d", c.opts.TopCategoriesLimit*2, p.Name, p.Distinct))
		}
		idx++
	}

	if spec.GroupBy != "" {
		if !req.allowGroupBy {
			return apperrors.NewChartRequestError(fmt.Sprintf("%s does not support grouping", spec.Kind))
		}
		p := profiles.ByName(spec.GroupBy)
		if p == nil || (p.Type != domain.ColumnTypeCategorical && p.Type != domain.ColumnTypeBoolean) {
			return apperrors.NewChartRequestError(
				fmt.Sprintf("group_by column %q must be categorical, is %s", spec.GroupBy, profiledType(p)))
		}
	}
	return nil
}

func profiledType(p *domain.ColumnProfile) string {
	if p == nil {
		return "unprofiled"
	}
	return string(p.Type)
}

// SturgesBins returns the rule-of-thumb bin count for n observations.
func SturgesBins(n int) int {
	if n <= 1 {
		return 1
	}
	return int(math.Ceil(math.Log2(float64(n)))) + 1
}

// binCount resolves the bin count: request, then config, then Sturges.
func (c *Catalog) binCount(spec domain.ChartSpec, n int) int {
	if spec.Bins > 0 {
		return spec.Bins
	}
	if c.opts.HistogramBins > 0 {
		return c.opts.HistogramBins
	}
	return SturgesBins(n)
}

func (c *Catalog) buildHistogram(spec domain.ChartSpec, table *domain.Table) (*domain.ChartDescription, error) {
	col, err := table.Column(spec.Columns[0])
	if err != nil {
		return nil, apperrors.NewChartRequestError(err.Error())
	}
	values := observedNumbers(col)
	if len(values) == 0 {
		return nil, apperrors.NewChartRequestError(fmt.Sprintf("column %q has no observed values", col.Name))
	}

	bins := Histogram(values, c.binCount(spec, len(values)))
	return &domain.ChartDescription{
		Kind:   domain.ChartHistogram,
		Title:  fmt.Sprintf("Distribution of %s", col.Name),
		XLabel: col.Name,
		YLabel: "count",
		Bins:   bins,
	}, nil
}

// Histogram buckets values into equal-width bins. A constant column
// collapses into one bin holding everything.
func Histogram(values []float64, bins int) []domain.HistogramBin {
	min, max := values[0], values[0]
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if min == max || bins < 1 {
		return []domain.HistogramBin{{Low: min, High: max, Count: len(values)}}
	}

	width := (max - min) / float64(bins)
	out := make([]domain.HistogramBin, bins)
	for i := range out {
		out[i] = domain.HistogramBin{Low: min + float64(i)*width, High: min + float64(i+1)*width}
	}
	out[bins-1].High = max
	for _, v := range values {
		idx := int((v - min) / width)
		if idx >= bins {
			idx = bins - 1
		}
		out[idx].Count++
	}
	return out
}

// buildDistribution serves box and violin charts. Multiple columns
// produce one series per column; a single column may instead be split
// into one series per group value.
func (c *Catalog) buildDistribution(spec domain.ChartSpec, table *domain.Table) (*domain.ChartDescription, error) {
	if len(spec.Columns) > 1 {
		desc := &domain.ChartDescription{
			Kind:   spec.Kind,
			Title:  fmt.Sprintf("Distribution of %s", strings.Join(spec.Columns, ", ")),
			YLabel: "value",
		}
		for _, name := range spec.Columns {
			col, err := table.Column(name)
			if err != nil {
				return nil, apperrors.NewChartRequestError(err.Error())
			}
			desc.Series = append(desc.Series, domain.ChartSeries{Name: name, Values: observedNumbers(col)})
		}
		return desc, nil
	}

	col, err := table.Column(spec.Columns[0])
	if err != nil {
		return nil, apperrors.NewChartRequestError(err.Error())
	}

	desc := &domain.ChartDescription{
		Kind:   spec.Kind,
		Title:  fmt.Sprintf("Distribution of %s", col.Name),
		YLabel: col.Name,
	}

	if spec.GroupBy == "" {
		desc.Series = []domain.ChartSeries{{Name: col.Name, Values: observedNumbers(col)}}
		return desc, nil
	}

	groupCol, err := table.Column(spec.GroupBy)
	if err != nil {
		return nil, apperrors.NewChartRequestError(err.Error())
	}
	desc.XLabel = spec.GroupBy
	desc.Series = groupedValues(col, groupCol)
	return desc, nil
}

func (c *Catalog) buildScatter(spec domain.ChartSpec, table *domain.Table) (*domain.ChartDescription, error) {
	xCol, err := table.Column(spec.Columns[0])
	if err != nil {
		return nil, apperrors.NewChartRequestError(err.Error())
	}
	yCol, err := table.Column(spec.Columns[1])
	if err != nil {
		return nil, apperrors.NewChartRequestError(err.Error())
	}

	desc := &domain.ChartDescription{
		Kind:   domain.ChartScatter,
		Title:  fmt.Sprintf("%s vs %s", yCol.Name, xCol.Name),
		XLabel: xCol.Name,
		YLabel: yCol.Name,
	}

	var groupCol *domain.Column
	if spec.GroupBy != "" {
		groupCol, err = table.Column(spec.GroupBy)
		if err != nil {
			return nil, apperrors.NewChartRequestError(err.Error())
		}
	}

	series := make(map[string]*domain.ChartSeries)
	var order []string
	for i := range xCol.Values {
		x, okX := xCol.Values[i].Number()
		y, okY := yCol.Values[i].Number()
		if !okX || !okY {
			continue
		}
		name := yCol.Name
		if groupCol != nil {
			if groupCol.Values[i].Missing() {
				continue
			}
			name = groupCol.Values[i].Render()
		}
		s, ok := series[name]
		if !ok {
			s = &domain.ChartSeries{Name: name}
			series[name] = s
			order = append(order, name)
		}
		s.Points = append(s.Points, domain.ChartPoint{
			X: fmtFloat(x),
			Y: y,
		})
	}
	for _, name := range order {
		desc.Series = append(desc.Series, *series[name])
	}
	return desc, nil
}

// buildLine plots a numeric column over an ordered x column, sorted by x.
func (c *Catalog) buildLine(spec domain.ChartSpec, table *domain.Table, profiles *domain.ProfileSet) (*domain.ChartDescription, error) {
	xCol, err := table.Column(spec.Columns[0])
	if err != nil {
		return nil, apperrors.NewChartRequestError(err.Error())
	}
	yCol, err := table.Column(spec.Columns[1])
	if err != nil {
		return nil, apperrors.NewChartRequestError(err.Error())
	}
	xProf := profiles.ByName(xCol.Name)

	type pt struct {
		sortKey float64
		point   domain.ChartPoint
	}
	var pts []pt
	for i := range xCol.Values {
		y, okY := yCol.Values[i].Number()
		if !okY || xCol.Values[i].Missing() {
			continue
		}
		xv := xCol.Values[i]
		var key float64
		var label string
		if xProf != nil && xProf.Type == domain.ColumnTypeDatetime && xv.Kind == domain.KindTime {
			key = float64(xv.Time.Unix())
			label = xv.Time.Format("2006-01-02")
		} else if f, ok := xv.Number(); ok {
			key = f
			label = fmtFloat(f)
		} else {
			continue
		}
		pts = append(pts, pt{sortKey: key, point: domain.ChartPoint{X: label, Y: y}})
	}
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].sortKey < pts[j].sortKey })

	points := make([]domain.ChartPoint, len(pts))
	for i, p := range pts {
		points[i] = p.point
	}
	return &domain.ChartDescription{
		Kind:   domain.ChartLine,
		Title:  fmt.Sprintf("%s over %s", yCol.Name, xCol.Name),
		XLabel: xCol.Name,
		YLabel: yCol.Name,
		Series: []domain.ChartSeries{{Name: yCol.Name, Points: points}},
	}, nil
}

// buildBar counts category frequencies, top-N with the rest dropped.
func (c *Catalog) buildBar(spec domain.ChartSpec, table *domain.Table) (*domain.ChartDescription, error) {
	col, err := table.Column(spec.Columns[0])
	if err != nil {
		return nil, apperrors.NewChartRequestError(err.Error())
	}
	limit := spec.TopN
	if limit <= 0 {
		limit = c.opts.TopCategoriesLimit
	}

	points := categoryPoints(col, limit, false)
	return &domain.ChartDescription{
		Kind:   domain.ChartBar,
		Title:  fmt.Sprintf("Top values of %s", col.Name),
		XLabel: col.Name,
		YLabel: "count",
		Series: []domain.ChartSeries{{Name: col.Name, Points: points}},
	}, nil
}

// buildPie is a bar chart with an aggregated "other" slice so the whole
// always sums to the row count.
func (c *Catalog) buildPie(spec domain.ChartSpec, table *domain.Table) (*domain.ChartDescription, error) {
	col, err := table.Column(spec.Columns[0])
	if err != nil {
		return nil, apperrors.NewChartRequestError(err.Error())
	}
	limit := spec.TopN
	if limit <= 0 {
		limit = c.opts.TopCategoriesLimit
	}

	points := categoryPoints(col, limit, true)
	return &domain.ChartDescription{
		Kind:   domain.ChartPie,
		Title:  fmt.Sprintf("Share of %s", col.Name),
		Series: []domain.ChartSeries{{Name: col.Name, Points: points}},
	}, nil
}

func (c *Catalog) buildHeatmap(insights *domain.InsightSet) (*domain.ChartDescription, error) {
	matrix := insights.Correlation
	return &domain.ChartDescription{
		Kind:   domain.ChartHeatmap,
		Title:  "Correlation matrix",
		Matrix: &matrix,
	}, nil
}

// categoryPoints counts category frequencies sorted by count descending,
// ties broken by first appearance.
func categoryPoints(col *domain.Column, limit int, withOther bool) []domain.ChartPoint {
	counts := make(map[string]int)
	order := make(map[string]int)
	for i, v := range col.Values {
		if v.Missing() {
			continue
		}
		key := v.Render()
		if _, seen := counts[key]; !seen {
			order[key] = i
		}
		counts[key]++
	}

	type kc struct {
		key   string
		count int
	}
	cats := make([]kc, 0, len(counts))
	for k, n := range counts {
		cats = append(cats, kc{k, n})
	}
	sort.Slice(cats, func(i, j int) bool {
		if cats[i].count != cats[j].count {
			return cats[i].count > cats[j].count
		}
		return order[cats[i].key] < order[cats[j].key]
	})

	var points []domain.ChartPoint
	other := 0
	for i, c := range cats {
		if i < limit {
			points = append(points, domain.ChartPoint{X: c.key, Y: float64(c.count)})
			continue
		}
		other += c.count
	}
	if withOther && other > 0 {
		points = append(points, domain.ChartPoint{X: "other", Y: float64(other)})
	}
	return points
}

// groupedValues splits a numeric column into one series per group value,
// in first-appearance order.
func groupedValues(col, groupCol *domain.Column) []domain.ChartSeries {
	series := make(map[string]*domain.ChartSeries)
	var order []string
	for i, v := range col.Values {
		f, ok := v.Number()
		if !ok || groupCol.Values[i].Missing() {
			continue
		}
		name := groupCol.Values[i].Render()
		s, exists := series[name]
		if !exists {
			s = &domain.ChartSeries{Name: name}
			series[name] = s
			order = append(order, name)
		}
		s.Values = append(s.Values, f)
	}
	out := make([]domain.ChartSeries, 0, len(order))
	for _, name := range order {
		out = append(out, *series[name])
	}
	return out
}

func observedNumbers(col *domain.Column) []float64 {
	out := make([]float64, 0, len(col.Values))
	for _, v := range col.Values {
		if f, ok := v.Number(); ok {
			out = append(out, f)
		}
	}
	return out
}

func fmtFloat(f float64) string {
	return fmt.Sprintf("%g", f)
}
