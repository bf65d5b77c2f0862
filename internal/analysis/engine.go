// Package analysis derives statistics and textual observations from a
// cleaned table: descriptive stats, a Pearson correlation matrix,
// categorical frequency tables, and rule-generated insights.
package analysis

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"salespulse/internal/stats"
	"salespulse/pkg/contracts/domain"
)

// StrongCorrelationThreshold is the |r| above which a pair is reported.
const StrongCorrelationThreshold = 0.7

// Options control frequency table sizing.
type Options struct {
	TopCategoriesLimit int
}

// Engine computes an InsightSet from a cleaned table and its profiles.
type Engine struct {
	logger *slog.Logger
	opts   Options
	rules  []Rule
}

// New creates an engine with the default rule set.
func New(logger *slog.Logger, opts Options) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.TopCategoriesLimit <= 0 {
		opts.TopCategoriesLimit = 10
	}
	return &Engine{
		logger: logger.With(slog.String("component", "analysis")),
		opts:   opts,
		rules:  DefaultRules(),
	}
}

// Analyze computes the full insight bundle. Columns whose statistics are
// undefined are excluded and reported, never fatal.
func (e *Engine) Analyze(ctx context.Context, table *domain.Table, profiles *domain.ProfileSet, report *domain.CleaningReport) *domain.InsightSet {
	set := &domain.InsightSet{
		Frequencies: make(map[string]domain.FrequencyTable),
	}

	numeric := profiles.NumericColumns()
	columns := make(map[string][]float64, len(numeric))
	for _, name := range numeric {
		col, err := table.Column(name)
		if err != nil {
			continue
		}
		values := observedNumbers(col)
		columns[name] = values
		if len(values) > 0 {
			set.Descriptive = append(set.Descriptive, describe(name, values))
		}
	}

	set.Correlation = e.correlate(numeric, columns)
	set.StrongPairs = strongPairs(&set.Correlation)

	for _, p := range profiles.Profiles {
		if p.Type != domain.ColumnTypeCategorical && p.Type != domain.ColumnTypeBoolean {
			continue
		}
		col, err := table.Column(p.Name)
		if err != nil {
			continue
		}
		set.Frequencies[p.Name] = frequencyTable(p.Name, col, e.opts.TopCategoriesLimit)
	}

	for _, rule := range e.rules {
		if obs, ok := rule.Evaluate(set, profiles, report); ok {
			set.Observations = append(set.Observations, obs)
		}
	}

	e.logger.InfoContext(ctx, "analysis completed",
		slog.Int("numeric_columns", len(set.Descriptive)),
		slog.Int("excluded_columns", len(set.Correlation.Excluded)),
		slog.Int("strong_pairs", len(set.StrongPairs)),
		slog.Int("observations", len(set.Observations)))

	return set
}

// describe computes the summary statistics for one numeric column.
func describe(name string, values []float64) domain.DescriptiveStats {
	min, max := stats.MinMax(values)
	mean := stats.Mean(values)
	std := stats.Std(values)

	cv := 0.0
	if mean != 0 {
		cv = std / math.Abs(mean) * 100
	}

	return domain.DescriptiveStats{
		Column:   name,
		Count:    len(values),
		Mean:     mean,
		Median:   stats.Median(values),
		Std:      std,
		Min:      min,
		Max:      max,
		Q1:       stats.Quantile(values, 0.25),
		Q3:       stats.Quantile(values, 0.75),
		Skewness: stats.Skewness(values),
		Kurtosis: stats.Kurtosis(values),
		CV:       cv,
	}
}

// correlate builds the symmetric Pearson matrix over the numeric columns
// whose correlation is defined. Zero-variance columns and columns whose
// observed lengths differ from the rest are excluded by name.
func (e *Engine) correlate(numeric []string, columns map[string][]float64) domain.CorrelationMatrix {
	matrix := domain.CorrelationMatrix{}

	rows := -1
	for _, name := range numeric {
		values := columns[name]
		if len(values) == 0 {
			matrix.Excluded = append(matrix.Excluded, name)
			continue
		}
		if stats.Variance(values) == 0 {
			matrix.Excluded = append(matrix.Excluded, name)
			continue
		}
		if rows == -1 {
			rows = len(values)
		}
		if len(values) != rows {
			matrix.Excluded = append(matrix.Excluded, name)
			continue
		}
		matrix.Columns = append(matrix.Columns, name)
	}

	n := len(matrix.Columns)
	matrix.Values = make([][]float64, n)
	for i := range matrix.Values {
		matrix.Values[i] = make([]float64, n)
		matrix.Values[i][i] = 1.0
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			r, ok := stats.Pearson(columns[matrix.Columns[i]], columns[matrix.Columns[j]])
			if !ok {
				r = 0
			}
			matrix.Values[i][j] = r
			matrix.Values[j][i] = r
		}
	}
	return matrix
}

// strongPairs extracts pairs above the threshold, strongest first.
func strongPairs(m *domain.CorrelationMatrix) []domain.CorrelationPair {
	var pairs []domain.CorrelationPair
	for i := 0; i < len(m.Columns); i++ {
		for j := i + 1; j < len(m.Columns); j++ {
			r := m.Values[i][j]
			if math.Abs(r) > StrongCorrelationThreshold {
				pairs = append(pairs, domain.CorrelationPair{
					ColumnA:     m.Columns[i],
					ColumnB:     m.Columns[j],
					Correlation: r,
				})
			}
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		return math.Abs(pairs[i].Correlation) > math.Abs(pairs[j].Correlation)
	})
	return pairs
}

// frequencyTable counts category frequencies and buckets the tail.
func frequencyTable(name string, col *domain.Column, limit int) domain.FrequencyTable {
	counts := make(map[string]int)
	order := make(map[string]int)
	total := 0
	for i, v := range col.Values {
		if v.Missing() {
			continue
		}
		key := v.Render()
		if _, seen := counts[key]; !seen {
			order[key] = i
		}
		counts[key]++
		total++
	}

	cats := make([]domain.CategoryCount, 0, len(counts))
	for v, c := range counts {
		cats = append(cats, domain.CategoryCount{Value: v, Count: c})
	}
	sort.Slice(cats, func(i, j int) bool {
		if cats[i].Count != cats[j].Count {
			return cats[i].Count > cats[j].Count
		}
		return order[cats[i].Value] < order[cats[j].Value]
	})

	table := domain.FrequencyTable{Column: name, Distinct: len(cats)}
	if len(cats) > limit {
		table.Top = cats[:limit]
		for _, c := range cats[limit:] {
			table.OtherCount += c.Count
		}
	} else {
		table.Top = cats
	}
	return table
}

// observedNumbers extracts the numeric cells of a column.
func observedNumbers(col *domain.Column) []float64 {
	out := make([]float64, 0, len(col.Values))
	for _, v := range col.Values {
		if f, ok := v.Number(); ok {
			out = append(out, f)
		}
	}
	return out
}
