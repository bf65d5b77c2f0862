package domain

// DescriptiveStats holds per-column summary statistics for a numeric column.
type DescriptiveStats struct {
	Column   string  `json:"column"`
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	Median   float64 `json:"median"`
	Std      float64 `json:"std"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Q1       float64 `json:"q1"`
	Q3       float64 `json:"q3"`
	Skewness float64 `json:"skewness"`
	Kurtosis float64 `json:"kurtosis"`
	CV       float64 `json:"cv"` // coefficient of variation, percent
}

// CorrelationMatrix is a symmetric Pearson matrix over the included numeric
// columns. Zero-variance columns are excluded (their correlation is
// undefined) and listed in Excluded.
type CorrelationMatrix struct {
	Columns  []string    `json:"columns"`
	Values   [][]float64 `json:"values"`
	Excluded []string    `json:"excluded,omitempty"`
}

// At returns the correlation between two included columns. The second
// return is false when either column is not part of the matrix.
func (m *CorrelationMatrix) At(a, b string) (float64, bool) {
	ai, bi := -1, -1
	for i, c := range m.Columns {
		if c == a {
			ai = i
		}
		if c == b {
			bi = i
		}
	}
	if ai < 0 || bi < 0 {
		return 0, false
	}
	return m.Values[ai][bi], true
}

// CorrelationPair is one strongly correlated column pair.
type CorrelationPair struct {
	ColumnA     string  `json:"column_a"`
	ColumnB     string  `json:"column_b"`
	Correlation float64 `json:"correlation"`
}

// FrequencyTable lists the top categories of a categorical column, with an
// aggregated "other" bucket when more categories exist than the cap.
type FrequencyTable struct {
	Column     string          `json:"column"`
	Top        []CategoryCount `json:"top"`
	OtherCount int             `json:"other_count"`
	Distinct   int             `json:"distinct"`
}

// ObservationSeverity grades a generated observation.
type ObservationSeverity string

const (
	SeverityInfo    ObservationSeverity = "info"
	SeverityNotice  ObservationSeverity = "notice"
	SeverityWarning ObservationSeverity = "warning"
)

// Observation is one generated textual finding.
type Observation struct {
	Rule     string              `json:"rule"`
	Text     string              `json:"text"`
	Severity ObservationSeverity `json:"severity"`
}

// InsightSet is the full derived-statistics bundle for a cleaned table.
// It is stateless and can be recomputed from the table at any time.
type InsightSet struct {
	Descriptive  []DescriptiveStats        `json:"descriptive"`
	Correlation  CorrelationMatrix         `json:"correlation"`
	StrongPairs  []CorrelationPair         `json:"strong_pairs,omitempty"`
	Frequencies  map[string]FrequencyTable `json:"frequencies,omitempty"`
	Observations []Observation             `json:"observations,omitempty"`
}

// StatsFor returns the descriptive stats for a column, or nil.
func (s *InsightSet) StatsFor(column string) *DescriptiveStats {
	for i := range s.Descriptive {
		if s.Descriptive[i].Column == column {
			return &s.Descriptive[i]
		}
	}
	return nil
}
