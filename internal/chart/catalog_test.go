package chart

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salespulse/internal/cleaning"
	apperrors "salespulse/internal/errors"
	"salespulse/internal/profile"
	"salespulse/pkg/contracts/domain"
)

func stringColumn(name string, tokens ...string) domain.Column {
	col := domain.Column{Name: name}
	for _, tok := range tokens {
		if tok == "" {
			col.Values = append(col.Values, domain.MissingValue())
			continue
		}
		col.Values = append(col.Values, domain.Value{Kind: domain.KindString, Str: tok, Raw: tok})
	}
	return col
}

// fixture profiles and coerces a small sales table so chart requests see
// typed cells, the way the session service hands them over.
func fixture(t *testing.T) (*domain.Table, *domain.ProfileSet) {
	t.Helper()
	ctx := context.Background()
	table := &domain.Table{Columns: []domain.Column{
		stringColumn("date", "2024-01-03", "2024-01-01", "2024-01-02", "2024-01-04"),
		stringColumn("sales", "10", "20", "30", "40"),
		stringColumn("qty", "5", "6", "7", "8"),
		stringColumn("region", "north", "south", "north", "east"),
	}}
	profiles := profile.New(nil, profile.Options{}).Profile(ctx, table)
	cleaned, _, err := cleaning.New(nil, cleaning.Options{}).Clean(ctx, table, profiles)
	require.NoError(t, err)
	return cleaned, profiles
}

func TestHistogramRejectsCategoricalColumn(t *testing.T) {
	table, profiles := fixture(t)
	c := New(nil, Options{})

	_, err := c.Build(context.Background(), domain.ChartSpec{
		Kind:    domain.ChartHistogram,
		Columns: []string{"region"},
	}, table, profiles, nil)

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeChartRequest))
	assert.Contains(t, err.Error(), "numeric")
}

func TestHistogramBinsOverride(t *testing.T) {
	table, profiles := fixture(t)
	c := New(nil, Options{})

	desc, err := c.Build(context.Background(), domain.ChartSpec{
		Kind:    domain.ChartHistogram,
		Columns: []string{"sales"},
		Bins:    2,
	}, table, profiles, nil)
	require.NoError(t, err)

	require.Len(t, desc.Bins, 2)
	total := 0
	for _, b := range desc.Bins {
		total += b.Count
	}
	assert.Equal(t, 4, total)
	assert.InDelta(t, 10.0, desc.Bins[0].Low, 1e-9)
	assert.InDelta(t, 40.0, desc.Bins[1].High, 1e-9)
}

func TestHistogramConstantColumnSingleBin(t *testing.T) {
	bins := Histogram([]float64{7, 7, 7}, 5)
	require.Len(t, bins, 1)
	assert.Equal(t, 3, bins[0].Count)
}

func TestSturgesBins(t *testing.T) {
	assert.Equal(t, 1, SturgesBins(1))
	assert.Equal(t, 4, SturgesBins(8))
	assert.Equal(t, 5, SturgesBins(9))
	assert.Equal(t, 8, SturgesBins(100))
}

func TestLineSortedByDate(t *testing.T) {
	table, profiles := fixture(t)
	c := New(nil, Options{})

	desc, err := c.Build(context.Background(), domain.ChartSpec{
		Kind:    domain.ChartLine,
		Columns: []string{"date", "sales"},
	}, table, profiles, nil)
	require.NoError(t, err)

	require.Len(t, desc.Series, 1)
	points := desc.Series[0].Points
	require.Len(t, points, 4)
	assert.Equal(t, "2024-01-01", points[0].X)
	assert.Equal(t, "2024-01-04", points[3].X)
	// Rows travel with their x value when sorting.
	assert.InDelta(t, 20.0, points[0].Y, 1e-9)
	assert.InDelta(t, 10.0, points[2].Y, 1e-9)
}

func TestLineRequiresOrderedX(t *testing.T) {
	table, profiles := fixture(t)
	c := New(nil, Options{})

	_, err := c.Build(context.Background(), domain.ChartSpec{
		Kind:    domain.ChartLine,
		Columns: []string{"region", "sales"},
	}, table, profiles, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeChartRequest))
}

func TestBarCountsCategories(t *testing.T) {
	table, profiles := fixture(t)
	c := New(nil, Options{})

	desc, err := c.Build(context.Background(), domain.ChartSpec{
		Kind:    domain.ChartBar,
		Columns: []string{"region"},
	}, table, profiles, nil)
	require.NoError(t, err)

	require.Len(t, desc.Series, 1)
	points := desc.Series[0].Points
	require.Len(t, points, 3)
	assert.Equal(t, "north", points[0].X)
	assert.InDelta(t, 2.0, points[0].Y, 1e-9)
}

func TestPieBoundedCardinality(t *testing.T) {
	table, profiles := fixture(t)
	// Cap of 1 means pie tolerates at most 2 distinct categories;
	// region has 3.
	c := New(nil, Options{TopCategoriesLimit: 1})

	_, err := c.Build(context.Background(), domain.ChartSpec{
		Kind:    domain.ChartPie,
		Columns: []string{"region"},
	}, table, profiles, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeChartRequest))
	assert.Contains(t, err.Error(), "distinct")
}

func TestPieOtherSlice(t *testing.T) {
	table, profiles := fixture(t)
	c := New(nil, Options{})

	desc, err := c.Build(context.Background(), domain.ChartSpec{
		Kind:    domain.ChartPie,
		Columns: []string{"region"},
		TopN:    1,
	}, table, profiles, nil)
	require.NoError(t, err)

	points := desc.Series[0].Points
	require.Len(t, points, 2)
	assert.Equal(t, "north", points[0].X)
	assert.Equal(t, "other", points[1].X)
	assert.InDelta(t, 2.0, points[1].Y, 1e-9)
}

func TestBoxMultipleColumns(t *testing.T) {
	table, profiles := fixture(t)
	c := New(nil, Options{})

	desc, err := c.Build(context.Background(), domain.ChartSpec{
		Kind:    domain.ChartBox,
		Columns: []string{"sales", "qty"},
	}, table, profiles, nil)
	require.NoError(t, err)

	// One box per column, in request order.
	require.Len(t, desc.Series, 2)
	assert.Equal(t, "sales", desc.Series[0].Name)
	assert.Equal(t, []float64{10, 20, 30, 40}, desc.Series[0].Values)
	assert.Equal(t, "qty", desc.Series[1].Name)
	assert.Equal(t, []float64{5, 6, 7, 8}, desc.Series[1].Values)
}

func TestBoxSingleColumnGrouped(t *testing.T) {
	table, profiles := fixture(t)
	c := New(nil, Options{})

	desc, err := c.Build(context.Background(), domain.ChartSpec{
		Kind:    domain.ChartBox,
		Columns: []string{"sales"},
		GroupBy: "region",
	}, table, profiles, nil)
	require.NoError(t, err)
	require.Len(t, desc.Series, 3)
	assert.Equal(t, "north", desc.Series[0].Name)
}

func TestBoxGroupingRequiresSingleColumn(t *testing.T) {
	table, profiles := fixture(t)
	c := New(nil, Options{})

	_, err := c.Build(context.Background(), domain.ChartSpec{
		Kind:    domain.ChartBox,
		Columns: []string{"sales", "qty"},
		GroupBy: "region",
	}, table, profiles, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeChartRequest))
	assert.Contains(t, err.Error(), "single column")
}

func TestBoxRejectsCategoricalAmongColumns(t *testing.T) {
	table, profiles := fixture(t)
	c := New(nil, Options{})

	_, err := c.Build(context.Background(), domain.ChartSpec{
		Kind:    domain.ChartBox,
		Columns: []string{"sales", "region"},
	}, table, profiles, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeChartRequest))
	assert.Contains(t, err.Error(), "numeric")
}

func TestScatterGrouped(t *testing.T) {
	table, profiles := fixture(t)
	c := New(nil, Options{})

	desc, err := c.Build(context.Background(), domain.ChartSpec{
		Kind:    domain.ChartScatter,
		Columns: []string{"sales", "qty"},
		GroupBy: "region",
	}, table, profiles, nil)
	require.NoError(t, err)

	// One series per region, in first-appearance order.
	require.Len(t, desc.Series, 3)
	assert.Equal(t, "north", desc.Series[0].Name)
	assert.Len(t, desc.Series[0].Points, 2)
}

func TestGroupByRejectedForHistogram(t *testing.T) {
	table, profiles := fixture(t)
	c := New(nil, Options{})

	_, err := c.Build(context.Background(), domain.ChartSpec{
		Kind:    domain.ChartHistogram,
		Columns: []string{"sales"},
		GroupBy: "region",
	}, table, profiles, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "grouping")
}

func TestUnknownChartKind(t *testing.T) {
	table, profiles := fixture(t)
	c := New(nil, Options{})

	_, err := c.Build(context.Background(), domain.ChartSpec{
		Kind:    domain.ChartKind("sparkline"),
		Columns: []string{"sales"},
	}, table, profiles, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeChartRequest))
}

func TestColumnCountValidation(t *testing.T) {
	table, profiles := fixture(t)
	c := New(nil, Options{})

	_, err := c.Build(context.Background(), domain.ChartSpec{
		Kind:    domain.ChartHistogram,
		Columns: []string{"sales", "qty"},
	}, table, profiles, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly 1")
}

func TestHeatmapRequiresCorrelation(t *testing.T) {
	table, profiles := fixture(t)
	c := New(nil, Options{})

	_, err := c.Build(context.Background(), domain.ChartSpec{Kind: domain.ChartHeatmap},
		table, profiles, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeChartRequest))

	insights := &domain.InsightSet{Correlation: domain.CorrelationMatrix{
		Columns: []string{"sales", "qty"},
		Values:  [][]float64{{1, 1}, {1, 1}},
	}}
	desc, err := c.Build(context.Background(), domain.ChartSpec{Kind: domain.ChartHeatmap},
		table, profiles, insights)
	require.NoError(t, err)
	require.NotNil(t, desc.Matrix)
	assert.Equal(t, []string{"sales", "qty"}, desc.Matrix.Columns)
}

func TestAutoChartsComposition(t *testing.T) {
	table, profiles := fixture(t)
	c := New(nil, Options{})

	insights := &domain.InsightSet{Correlation: domain.CorrelationMatrix{
		Columns: []string{"sales", "qty"},
		Values:  [][]float64{{1, 1}, {1, 1}},
	}}
	charts := c.AutoCharts(context.Background(), table, profiles, insights)

	kinds := make(map[domain.ChartKind]int)
	for _, d := range charts {
		kinds[d.Kind]++
	}
	// Histograms for sales and qty, a bar for region, the heatmap, and a
	// line of the first numeric column over the date column.
	assert.Equal(t, 2, kinds[domain.ChartHistogram])
	assert.Equal(t, 1, kinds[domain.ChartBar])
	assert.Equal(t, 1, kinds[domain.ChartHeatmap])
	assert.Equal(t, 1, kinds[domain.ChartLine])
}
