package domain

// ColumnType is the inferred logical type of a column.
type ColumnType string

const (
	ColumnTypeNumeric     ColumnType = "numeric"
	ColumnTypeInteger     ColumnType = "integer"
	ColumnTypeBoolean     ColumnType = "boolean"
	ColumnTypeDatetime    ColumnType = "datetime"
	ColumnTypeCategorical ColumnType = "categorical"
	ColumnTypeText        ColumnType = "text"
)

// Numeric reports whether the type participates in numeric statistics.
func (t ColumnType) Numeric() bool {
	return t == ColumnTypeNumeric || t == ColumnTypeInteger
}

// CategoryCount is one entry of a column's top-categories list.
type CategoryCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// ColumnProfile summarizes one column's value distribution. Profiles are
// recomputed whenever the table changes; they are never updated in place.
type ColumnProfile struct {
	Name          string          `json:"name"`
	Type          ColumnType      `json:"type"`
	NonNull       int             `json:"non_null"`
	Missing       int             `json:"missing"`
	Distinct      int             `json:"distinct"`
	Min           float64         `json:"min,omitempty"`
	Max           float64         `json:"max,omitempty"`
	TopCategories []CategoryCount `json:"top_categories,omitempty"`
	CandidateID   bool            `json:"candidate_id,omitempty"`
	CandidateDate bool            `json:"candidate_date,omitempty"`
}

// MissingPercent returns the share of missing cells, 0..100.
func (p ColumnProfile) MissingPercent() float64 {
	total := p.NonNull + p.Missing
	if total == 0 {
		return 0
	}
	return float64(p.Missing) / float64(total) * 100
}

// ProfileSet indexes column profiles by name while preserving table order.
type ProfileSet struct {
	Profiles []ColumnProfile `json:"profiles"`
}

// ByName returns the profile for the named column, or nil.
func (s *ProfileSet) ByName(name string) *ColumnProfile {
	for i := range s.Profiles {
		if s.Profiles[i].Name == name {
			return &s.Profiles[i]
		}
	}
	return nil
}

// ColumnsOfType returns the names of all columns with the given type,
// in table order.
func (s *ProfileSet) ColumnsOfType(types ...ColumnType) []string {
	var names []string
	for _, p := range s.Profiles {
		for _, t := range types {
			if p.Type == t {
				names = append(names, p.Name)
				break
			}
		}
	}
	return names
}

// NumericColumns returns the names of numeric and integer columns.
func (s *ProfileSet) NumericColumns() []string {
	return s.ColumnsOfType(ColumnTypeNumeric, ColumnTypeInteger)
}
