// Package cleaning turns a raw ingested table into a typed, deduplicated
// table ready for analysis. Every transformation is recorded in a
// CleaningReport; nothing in this package ever aborts on a bad column.
package cleaning

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"salespulse/internal/profile"
	"salespulse/internal/stats"
	"salespulse/pkg/contracts/domain"
)

// Options control imputation token matching and outlier fencing.
type Options struct {
	MissingTokens        []string
	DateFormats          []string
	OutlierIQRMultiplier float64
}

// DefaultOptions returns the cleaning defaults.
func DefaultOptions() Options {
	prof := profile.DefaultOptions()
	return Options{
		MissingTokens:        prof.MissingTokens,
		DateFormats:          prof.DateFormats,
		OutlierIQRMultiplier: 1.5,
	}
}

// Cleaner applies the ordered cleaning steps: coercion, imputation,
// deduplication, type optimization, outlier flagging.
type Cleaner struct {
	logger *slog.Logger
	opts   Options
}

// New creates a cleaner. Zero-valued option fields fall back to defaults.
func New(logger *slog.Logger, opts Options) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultOptions()
	if len(opts.MissingTokens) == 0 {
		opts.MissingTokens = def.MissingTokens
	}
	if len(opts.DateFormats) == 0 {
		opts.DateFormats = def.DateFormats
	}
	if opts.OutlierIQRMultiplier <= 0 {
		opts.OutlierIQRMultiplier = def.OutlierIQRMultiplier
	}
	return &Cleaner{
		logger: logger.With(slog.String("component", "cleaner")),
		opts:   opts,
	}
}

// Clean runs the full pipeline against an immutable input table and its
// profiles. It returns the cleaned table and the report; the input is
// never modified.
func (c *Cleaner) Clean(ctx context.Context, table *domain.Table, profiles *domain.ProfileSet) (*domain.Table, *domain.CleaningReport, error) {
	report := &domain.CleaningReport{
		OriginalRows:  table.NumRows(),
		MissingBefore: make(map[string]int),
		OutlierCounts: make(map[string]int),
	}
	for _, p := range profiles.Profiles {
		if p.Missing > 0 {
			report.MissingBefore[p.Name] = p.Missing
		}
	}

	out := c.coerce(table, profiles)
	report.MemoryBefore = estimateMemory(out, profiles, false)

	c.impute(out, profiles, report)
	c.deduplicate(out, report)
	c.optimizeTypes(out, profiles, report)
	c.flagOutliers(out, profiles, report)

	report.FinalRows = out.NumRows()
	report.MemoryAfter = estimateMemory(out, profiles, true)

	c.logger.InfoContext(ctx, "cleaning completed",
		slog.Int("original_rows", report.OriginalRows),
		slog.Int("final_rows", report.FinalRows),
		slog.Int("duplicates_removed", report.DuplicatesRemoved),
		slog.Int("missing_filled", report.MissingFilled),
		slog.Int("outliers_flagged", report.TotalOutliers()))

	return out, report, nil
}

// coerce converts raw string cells into typed cells according to the
// profiled column types. Sentinel tokens become missing; tokens the
// profiled type cannot explain are kept as text.
func (c *Cleaner) coerce(table *domain.Table, profiles *domain.ProfileSet) *domain.Table {
	missingSet := profile.MissingTokenSet(c.opts.MissingTokens)
	out := table.Clone()

	for i := range out.Columns {
		col := &out.Columns[i]
		prof := profiles.ByName(col.Name)
		if prof == nil {
			continue
		}

		layout := ""
		if prof.Type == domain.ColumnTypeDatetime {
			layout = c.datetimeLayout(col, missingSet)
		}

		for j, v := range col.Values {
			if v.Kind != domain.KindString {
				continue
			}
			if profile.IsMissingToken(v.Str, missingSet) {
				col.Values[j] = domain.MissingValue()
				continue
			}
			col.Values[j] = coerceCell(v, prof.Type, layout)
		}
	}
	return out
}

// datetimeLayout re-detects the one layout that parses the whole column.
func (c *Cleaner) datetimeLayout(col *domain.Column, missingSet map[string]bool) string {
	var tokens []string
	for _, v := range col.Values {
		if v.Kind == domain.KindString && !profile.IsMissingToken(v.Str, missingSet) {
			tokens = append(tokens, strings.TrimSpace(v.Str))
		}
	}
	layout, _ := profile.DetectDateLayout(tokens, c.opts.DateFormats)
	return layout
}

// coerceCell converts one raw cell, preserving the original token.
func coerceCell(v domain.Value, t domain.ColumnType, layout string) domain.Value {
	switch t {
	case domain.ColumnTypeNumeric:
		if f, ok := profile.ParseNumeric(v.Str); ok {
			return domain.Value{Kind: domain.KindFloat, Float: f, Raw: v.Raw}
		}
	case domain.ColumnTypeInteger:
		if f, ok := profile.ParseNumeric(v.Str); ok {
			return domain.Value{Kind: domain.KindInt, Int: int64(f), Raw: v.Raw}
		}
	case domain.ColumnTypeBoolean:
		if b, ok := profile.ParseBool(v.Str); ok {
			return domain.Value{Kind: domain.KindBool, Bool: b, Raw: v.Raw}
		}
	case domain.ColumnTypeDatetime:
		if layout != "" {
			if t, ok := profile.ParseTimeLayout(v.Str, layout); ok {
				return domain.Value{Kind: domain.KindTime, Time: t, Raw: v.Raw}
			}
		}
	}
	return v
}

// impute fills missing cells: median for numeric columns, mode for
// everything else. A column with no observed values is skipped and the
// skip is recorded.
func (c *Cleaner) impute(table *domain.Table, profiles *domain.ProfileSet, report *domain.CleaningReport) {
	for i := range table.Columns {
		col := &table.Columns[i]
		prof := profiles.ByName(col.Name)
		if prof == nil {
			continue
		}

		missing := 0
		for _, v := range col.Values {
			if v.Missing() {
				missing++
			}
		}
		if missing == 0 {
			continue
		}
		if missing == len(col.Values) {
			report.Append(domain.CleaningEntry{
				Op:     domain.OpSkippedImputation,
				Column: col.Name,
				Detail: "column has no observed values",
			})
			continue
		}

		if prof.Type.Numeric() {
			c.imputeMedian(col, prof.Type, missing, report)
		} else {
			c.imputeMode(col, missing, report)
		}
		report.MissingFilled += missing
	}
}

// imputeMedian fills missing numeric cells with the column median.
func (c *Cleaner) imputeMedian(col *domain.Column, t domain.ColumnType, missing int, report *domain.CleaningReport) {
	observed := numericValues(col)
	median := stats.Median(observed)

	fill := domain.FloatValue(median)
	if t == domain.ColumnTypeInteger && median == float64(int64(median)) {
		fill = domain.IntValue(int64(median))
	}
	for j, v := range col.Values {
		if v.Missing() {
			col.Values[j] = fill
		}
	}

	report.Append(domain.CleaningEntry{
		Op:           domain.OpImputeMedian,
		Column:       col.Name,
		RowsAffected: missing,
		Detail:       fmt.Sprintf("filled with median %v", fill.Render()),
	})
}

// imputeMode fills missing cells with the most frequent value; ties go
// to the value encountered first in column order.
func (c *Cleaner) imputeMode(col *domain.Column, missing int, report *domain.CleaningReport) {
	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	rendered := make(map[string]domain.Value)

	for j, v := range col.Values {
		if v.Missing() {
			continue
		}
		key := v.Render()
		if _, seen := counts[key]; !seen {
			firstSeen[key] = j
			rendered[key] = v
		}
		counts[key]++
	}

	modeKey := ""
	best := -1
	for key, n := range counts {
		if n > best || (n == best && firstSeen[key] < firstSeen[modeKey]) {
			modeKey, best = key, n
		}
	}

	fill := rendered[modeKey]
	fill.Raw = "" // synthesized cell, renders from its typed payload
	if fill.Kind == domain.KindString {
		fill.Str = modeKey
	}
	for j, v := range col.Values {
		if v.Missing() {
			col.Values[j] = fill
		}
	}

	report.Append(domain.CleaningEntry{
		Op:           domain.OpImputeMode,
		Column:       col.Name,
		RowsAffected: missing,
		Detail:       fmt.Sprintf("filled with mode %q", modeKey),
	})
}

// deduplicate removes exact duplicate rows, keeping the first occurrence
// and preserving the order of survivors.
func (c *Cleaner) deduplicate(table *domain.Table, report *domain.CleaningReport) {
	rows := table.NumRows()
	seen := make(map[string]bool, rows)
	keep := make([]int, 0, rows)

	for i := 0; i < rows; i++ {
		key := strings.Join(table.Row(i), "\x1f")
		if seen[key] {
			continue
		}
		seen[key] = true
		keep = append(keep, i)
	}

	removed := rows - len(keep)
	if removed == 0 {
		return
	}

	for ci := range table.Columns {
		col := &table.Columns[ci]
		vals := make([]domain.Value, len(keep))
		for k, idx := range keep {
			vals[k] = col.Values[idx]
		}
		col.Values = vals
	}

	report.DuplicatesRemoved = removed
	report.Append(domain.CleaningEntry{
		Op:           domain.OpDeduplicate,
		RowsAffected: removed,
		Detail:       fmt.Sprintf("removed %d exact duplicate rows, first occurrence kept", removed),
	})
}

// optimizeTypes narrows float columns that hold only integral values and
// marks low-cardinality text columns as categorical. The profile set is
// updated in place so downstream stages see the optimized types.
func (c *Cleaner) optimizeTypes(table *domain.Table, profiles *domain.ProfileSet, report *domain.CleaningReport) {
	for i := range table.Columns {
		col := &table.Columns[i]
		prof := profiles.ByName(col.Name)
		if prof == nil {
			continue
		}

		switch prof.Type {
		case domain.ColumnTypeNumeric:
			if !allIntegral(col) {
				continue
			}
			for j, v := range col.Values {
				if v.Kind == domain.KindFloat {
					col.Values[j] = domain.Value{Kind: domain.KindInt, Int: int64(v.Float), Raw: v.Raw}
				}
			}
			prof.Type = domain.ColumnTypeInteger
			report.Append(domain.CleaningEntry{
				Op:           domain.OpNarrowInteger,
				Column:       col.Name,
				RowsAffected: len(col.Values),
				Detail:       "all values integral, narrowed to integer",
			})

		case domain.ColumnTypeText:
			nonNull, distinct := cardinality(col)
			if nonNull == 0 {
				continue
			}
			if float64(distinct)/float64(nonNull) < 0.05 || distinct < 20 {
				prof.Type = domain.ColumnTypeCategorical
				report.Append(domain.CleaningEntry{
					Op:     domain.OpMarkCategorical,
					Column: col.Name,
					Detail: fmt.Sprintf("%d distinct values across %d rows", distinct, nonNull),
				})
			}
		}
	}
}

// flagOutliers records values outside the Tukey fence per numeric column.
// Flagged rows stay in the table; only the report knows about them.
func (c *Cleaner) flagOutliers(table *domain.Table, profiles *domain.ProfileSet, report *domain.CleaningReport) {
	for i := range table.Columns {
		col := &table.Columns[i]
		prof := profiles.ByName(col.Name)
		if prof == nil || !prof.Type.Numeric() {
			continue
		}

		observed := numericValues(col)
		if len(observed) < 4 {
			report.Append(domain.CleaningEntry{
				Op:     domain.OpSkippedOutliers,
				Column: col.Name,
				Detail: fmt.Sprintf("only %d observed values, fence not computed", len(observed)),
			})
			continue
		}
		lower, upper := stats.IQRBounds(observed, c.opts.OutlierIQRMultiplier)

		var flagged []int
		for j, v := range col.Values {
			if f, ok := v.Number(); ok && (f < lower || f > upper) {
				flagged = append(flagged, j)
			}
		}
		if len(flagged) == 0 {
			continue
		}

		report.OutlierCounts[col.Name] = len(flagged)
		report.Append(domain.CleaningEntry{
			Op:           domain.OpFlagOutliers,
			Column:       col.Name,
			RowsAffected: len(flagged),
			FlaggedRows:  flagged,
			Detail:       fmt.Sprintf("outside [%.4g, %.4g]", lower, upper),
		})
	}
}

// numericValues extracts the observed numeric cells of a column.
func numericValues(col *domain.Column) []float64 {
	out := make([]float64, 0, len(col.Values))
	for _, v := range col.Values {
		if f, ok := v.Number(); ok {
			out = append(out, f)
		}
	}
	return out
}

func allIntegral(col *domain.Column) bool {
	any := false
	for _, v := range col.Values {
		f, ok := v.Number()
		if !ok {
			continue
		}
		any = true
		if f != float64(int64(f)) {
			return false
		}
	}
	return any
}

func cardinality(col *domain.Column) (nonNull, distinct int) {
	seen := make(map[string]bool)
	for _, v := range col.Values {
		if v.Missing() {
			continue
		}
		nonNull++
		seen[v.Render()] = true
	}
	return nonNull, len(seen)
}

// perCellBytes estimates the storage cost of one cell for the memory
// accounting in the report. Optimized integer columns count as downcast
// 32-bit storage; categorical columns count as dictionary codes.
func perCellBytes(t domain.ColumnType, optimized bool) int64 {
	switch t {
	case domain.ColumnTypeInteger:
		if optimized {
			return 4
		}
		return 8
	case domain.ColumnTypeNumeric, domain.ColumnTypeDatetime:
		return 8
	case domain.ColumnTypeBoolean:
		return 1
	case domain.ColumnTypeCategorical:
		return 4
	default:
		return 16
	}
}

// estimateMemory approximates the in-memory footprint of the table given
// its profiled types. Used only for the before/after report numbers.
func estimateMemory(table *domain.Table, profiles *domain.ProfileSet, optimized bool) int64 {
	var total int64
	rows := int64(table.NumRows())
	for _, col := range table.Columns {
		prof := profiles.ByName(col.Name)
		if prof == nil {
			total += rows * 16
			continue
		}
		t := prof.Type
		if !optimized && t == domain.ColumnTypeCategorical {
			t = domain.ColumnTypeText
		}
		total += rows * perCellBytes(t, optimized)
	}
	return total
}
