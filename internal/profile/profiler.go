// Package profile infers a logical schema for an ingested table. The
// profiler never mutates the table; it reports what each column looks
// like so the cleaner and the chart catalog can act on the types.
package profile

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"salespulse/pkg/contracts/domain"
)

// Options control type inference thresholds and token matching.
type Options struct {
	// MissingTokens are sentinel strings treated as missing in addition
	// to empty cells. Matched case-insensitively after trimming.
	MissingTokens []string

	// DateFormats are the layouts tried during datetime inference.
	DateFormats []string

	// CategoricalRatio marks a text column categorical when
	// distinct/non-null falls below it.
	CategoricalRatio float64

	// CategoricalLimit marks a text column categorical when the distinct
	// count falls below it regardless of ratio.
	CategoricalLimit int

	// TopCategoriesLimit caps the per-column top-categories list.
	TopCategoriesLimit int
}

// DefaultOptions returns the thresholds used when the caller passes none.
func DefaultOptions() Options {
	return Options{
		MissingTokens: []string{"", "NA", "N/A", "null", "-"},
		DateFormats: []string{
			"2006-01-02",
			"02/01/2006",
			"01/02/2006",
			"2006-01-02 15:04:05",
			"2006/01/02",
			"02.01.2006",
		},
		CategoricalRatio:   0.05,
		CategoricalLimit:   20,
		TopCategoriesLimit: 10,
	}
}

// Profiler infers column types and distribution summaries.
type Profiler struct {
	logger *slog.Logger
	opts   Options
}

// New creates a profiler with the given options. Zero-valued option
// fields fall back to defaults.
func New(logger *slog.Logger, opts Options) *Profiler {
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
	if opts.CategoricalRatio <= 0 {
		opts.CategoricalRatio = def.CategoricalRatio
	}
	if opts.CategoricalLimit <= 0 {
		opts.CategoricalLimit = def.CategoricalLimit
	}
	if opts.TopCategoriesLimit <= 0 {
		opts.TopCategoriesLimit = def.TopCategoriesLimit
	}
	return &Profiler{
		logger: logger.With(slog.String("component", "profiler")),
		opts:   opts,
	}
}

// Profile computes a profile for every column, in table order.
func (p *Profiler) Profile(ctx context.Context, table *domain.Table) *domain.ProfileSet {
	missingSet := MissingTokenSet(p.opts.MissingTokens)

	set := &domain.ProfileSet{Profiles: make([]domain.ColumnProfile, 0, table.NumCols())}
	for i := range table.Columns {
		set.Profiles = append(set.Profiles, p.profileColumn(&table.Columns[i], missingSet))
	}

	p.logger.InfoContext(ctx, "schema profiled",
		slog.Int("columns", table.NumCols()),
		slog.Int("rows", table.NumRows()),
		slog.Int("numeric_columns", len(set.NumericColumns())))

	return set
}

// profileColumn infers the type of a single column and summarizes it.
func (p *Profiler) profileColumn(col *domain.Column, missingSet map[string]bool) domain.ColumnProfile {
	prof := domain.ColumnProfile{Name: col.Name}

	var tokens []string
	typedKind := domain.KindMissing
	typedOnly := true

	for _, v := range col.Values {
		switch v.Kind {
		case domain.KindMissing:
			prof.Missing++
		case domain.KindString:
			if IsMissingToken(v.Str, missingSet) {
				prof.Missing++
				continue
			}
			tokens = append(tokens, strings.TrimSpace(v.Str))
			typedOnly = false
		default:
			// Cells coerced by an earlier cleaning pass keep their kind.
			if typedKind == domain.KindMissing {
				typedKind = v.Kind
			} else if typedKind != v.Kind && !(typedKind == domain.KindFloat && v.Kind == domain.KindInt) && !(typedKind == domain.KindInt && v.Kind == domain.KindFloat) {
				typedOnly = false
			}
			if typedKind == domain.KindInt && v.Kind == domain.KindFloat {
				typedKind = domain.KindFloat
			}
			tokens = append(tokens, v.Render())
		}
	}
	prof.NonNull = len(tokens)
	prof.Distinct = countDistinct(tokens)

	if prof.NonNull == 0 {
		prof.Type = domain.ColumnTypeText
		return prof
	}

	if typedOnly && typedKind != domain.KindMissing {
		prof.Type = typeForKind(typedKind)
	} else {
		prof.Type = p.inferType(tokens, prof.Distinct, prof.NonNull)
	}

	switch {
	case prof.Type.Numeric():
		p.numericBounds(col, missingSet, &prof)
	case prof.Type == domain.ColumnTypeCategorical || prof.Type == domain.ColumnTypeBoolean:
		prof.TopCategories = TopCategories(tokens, p.opts.TopCategoriesLimit)
	}

	rows := len(col.Values)
	prof.CandidateID = prof.Missing == 0 && prof.Distinct == rows && rows > 0
	lower := strings.ToLower(col.Name)
	prof.CandidateDate = prof.Type == domain.ColumnTypeDatetime ||
		strings.Contains(lower, "date") || strings.Contains(lower, "time")

	return prof
}

// inferType applies the inference order: numeric, datetime, boolean,
// then categorical or text by cardinality.
func (p *Profiler) inferType(tokens []string, distinct, nonNull int) domain.ColumnType {
	if allNumeric(tokens) {
		if allIntegral(tokens) {
			return domain.ColumnTypeInteger
		}
		return domain.ColumnTypeNumeric
	}
	if _, ok := DetectDateLayout(tokens, p.opts.DateFormats); ok {
		return domain.ColumnTypeDatetime
	}
	if isBooleanSet(tokens) {
		return domain.ColumnTypeBoolean
	}
	if float64(distinct)/float64(nonNull) < p.opts.CategoricalRatio || distinct < p.opts.CategoricalLimit {
		return domain.ColumnTypeCategorical
	}
	return domain.ColumnTypeText
}

// numericBounds records min and max over the parseable cells.
func (p *Profiler) numericBounds(col *domain.Column, missingSet map[string]bool, prof *domain.ColumnProfile) {
	first := true
	for _, v := range col.Values {
		f, ok := v.Number()
		if !ok {
			if v.Kind != domain.KindString || IsMissingToken(v.Str, missingSet) {
				continue
			}
			f, ok = ParseNumeric(v.Str)
			if !ok {
				continue
			}
		}
		if first {
			prof.Min, prof.Max = f, f
			first = false
			continue
		}
		if f < prof.Min {
			prof.Min = f
		}
		if f > prof.Max {
			prof.Max = f
		}
	}
}

// DetectDateLayout returns the first configured layout that parses every
// token, so a column is only datetime when one layout explains all of it.
func DetectDateLayout(tokens []string, layouts []string) (string, bool) {
	if len(tokens) == 0 {
		return "", false
	}
	for _, layout := range layouts {
		ok := true
		for _, tok := range tokens {
			if _, parsed := ParseTimeLayout(tok, layout); !parsed {
				ok = false
				break
			}
		}
		if ok {
			return layout, true
		}
	}
	return "", false
}

// TopCategories counts token frequencies and returns the limit most
// frequent, ties broken by first appearance in the column.
func TopCategories(tokens []string, limit int) []domain.CategoryCount {
	counts := make(map[string]int)
	order := make(map[string]int)
	for i, tok := range tokens {
		if _, seen := counts[tok]; !seen {
			order[tok] = i
		}
		counts[tok]++
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

	if len(cats) > limit {
		cats = cats[:limit]
	}
	return cats
}

func countDistinct(tokens []string) int {
	seen := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		seen[tok] = true
	}
	return len(seen)
}

func allNumeric(tokens []string) bool {
	for _, tok := range tokens {
		if _, ok := ParseNumeric(tok); !ok {
			return false
		}
	}
	return true
}

func allIntegral(tokens []string) bool {
	for _, tok := range tokens {
		f, ok := ParseNumeric(tok)
		if !ok || f != float64(int64(f)) {
			return false
		}
	}
	return true
}

// isBooleanSet reports whether the distinct tokens form a subset of one
// recognized boolean pair.
func isBooleanSet(tokens []string) bool {
	distinct := make(map[string]bool)
	for _, tok := range tokens {
		distinct[strings.ToLower(tok)] = true
		if len(distinct) > 2 {
			return false
		}
	}
	for _, pair := range booleanSets {
		if subsetOfPair(distinct, pair) {
			return true
		}
	}
	return false
}

func subsetOfPair(distinct map[string]bool, pair [2]string) bool {
	for tok := range distinct {
		if tok != pair[0] && tok != pair[1] {
			return false
		}
	}
	return true
}

func typeForKind(k domain.ValueKind) domain.ColumnType {
	switch k {
	case domain.KindFloat:
		return domain.ColumnTypeNumeric
	case domain.KindInt:
		return domain.ColumnTypeInteger
	case domain.KindBool:
		return domain.ColumnTypeBoolean
	case domain.KindTime:
		return domain.ColumnTypeDatetime
	default:
		return domain.ColumnTypeText
	}
}
