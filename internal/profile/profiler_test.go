package profile

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

func profileOne(t *testing.T, col domain.Column) domain.ColumnProfile {
	t.Helper()
	p := New(nil, Options{})
	set := p.Profile(context.Background(), &domain.Table{Columns: []domain.Column{col}})
	require.Len(t, set.Profiles, 1)
	return set.Profiles[0]
}

func TestInferenceOrder(t *testing.T) {
	tests := []struct {
		name   string
		tokens []string
		want   domain.ColumnType
	}{
		{"integers", []string{"10", "20", "30"}, domain.ColumnTypeInteger},
		{"floats", []string{"1.5", "2.5", "3"}, domain.ColumnTypeNumeric},
		{"thousands separators", []string{"1,234.5", "2,000", "10"}, domain.ColumnTypeNumeric},
		{"misplaced separators", []string{"1,2,34", "2,3,45", "3,4,56"}, domain.ColumnTypeCategorical},
		{"dates", []string{"2024-01-05", "2024-02-10", "2024-03-15"}, domain.ColumnTypeDatetime},
		{"booleans", []string{"yes", "no", "yes"}, domain.ColumnTypeBoolean},
		{"single boolean token", []string{"true", "true"}, domain.ColumnTypeBoolean},
		{"low cardinality strings", []string{"north", "south", "north", "east"}, domain.ColumnTypeCategorical},
		{"numeric strings beat boolean", []string{"0", "1", "0", "1"}, domain.ColumnTypeInteger},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prof := profileOne(t, stringColumn("col", tt.tokens...))
			assert.Equal(t, tt.want, prof.Type)
		})
	}
}

func TestTextRequiresHighCardinality(t *testing.T) {
	tokens := make([]string, 40)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("unique remark %d", i)
	}
	prof := profileOne(t, stringColumn("notes", tokens...))
	assert.Equal(t, domain.ColumnTypeText, prof.Type)
}

func TestMissingTokensCountAsMissing(t *testing.T) {
	prof := profileOne(t, stringColumn("col", "10", "NA", "n/a", "null", "-", "", "20"))
	assert.Equal(t, 2, prof.NonNull)
	assert.Equal(t, 5, prof.Missing)
	assert.Equal(t, domain.ColumnTypeInteger, prof.Type)
	assert.InDelta(t, 5.0/7.0*100, prof.MissingPercent(), 1e-9)
}

func TestNumericBounds(t *testing.T) {
	prof := profileOne(t, stringColumn("price", "10", "3.5", "99.5"))
	assert.InDelta(t, 3.5, prof.Min, 1e-9)
	assert.InDelta(t, 99.5, prof.Max, 1e-9)
}

func TestMixedTokensStayText(t *testing.T) {
	// One non-numeric token disqualifies the whole column from numeric.
	prof := profileOne(t, stringColumn("col", "10", "20", "n. a."))
	assert.NotEqual(t, domain.ColumnTypeInteger, prof.Type)
	assert.NotEqual(t, domain.ColumnTypeNumeric, prof.Type)
}

func TestDetectDateLayoutRequiresConsistency(t *testing.T) {
	layouts := DefaultOptions().DateFormats

	layout, ok := DetectDateLayout([]string{"2024-01-05", "2024-12-31"}, layouts)
	require.True(t, ok)
	assert.Equal(t, "2006-01-02", layout)

	_, ok = DetectDateLayout([]string{"2024-01-05", "31.12.2024"}, layouts)
	assert.False(t, ok)
}

func TestCandidateID(t *testing.T) {
	unique := profileOne(t, stringColumn("order_id", "A1", "A2", "A3"))
	assert.True(t, unique.CandidateID)

	repeated := profileOne(t, stringColumn("region", "north", "north", "south"))
	assert.False(t, repeated.CandidateID)

	withMissing := profileOne(t, stringColumn("sku", "A1", "", "A3"))
	assert.False(t, withMissing.CandidateID)
}

func TestCandidateDate(t *testing.T) {
	byType := profileOne(t, stringColumn("when", "2024-01-05", "2024-02-10"))
	assert.True(t, byType.CandidateDate)

	byName := profileOne(t, stringColumn("order_date", "x1", "x2", "x3"))
	assert.True(t, byName.CandidateDate)

	neither := profileOne(t, stringColumn("region", "north", "south", "east"))
	assert.False(t, neither.CandidateDate)
}

func TestTopCategoriesOrderAndLimit(t *testing.T) {
	cats := TopCategories([]string{"b", "a", "a", "b", "c"}, 2)
	require.Len(t, cats, 2)
	// a and b tie at 2; b appeared first.
	assert.Equal(t, "b", cats[0].Value)
	assert.Equal(t, 2, cats[0].Count)
	assert.Equal(t, "a", cats[1].Value)
}

func TestProfileTypedCells(t *testing.T) {
	// Cells coerced by a cleaning pass keep their kinds; re-profiling
	// classifies them without re-parsing tokens.
	col := domain.Column{Name: "qty", Values: []domain.Value{
		domain.IntValue(1),
		domain.IntValue(2),
		domain.IntValue(2),
	}}
	prof := profileOne(t, col)
	assert.Equal(t, domain.ColumnTypeInteger, prof.Type)
	assert.Equal(t, 3, prof.NonNull)
	assert.Equal(t, 2, prof.Distinct)
}

func TestParseNumeric(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"10", 10, true},
		{" 2.5 ", 2.5, true},
		{"1,234.5", 1234.5, true},
		{"12,345,678", 12345678, true},
		{"-1,000", -1000, true},
		{"-3", -3, true},
		{"", 0, false},
		{"abc", 0, false},
		{"1,2,34", 0, false},
		{"1234,5", 0, false},
		{",123", 0, false},
		{"1.2,3", 0, false},
	}
	for _, tt := range tests {
		f, ok := ParseNumeric(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		if ok {
			assert.InDelta(t, tt.want, f, 1e-9, tt.in)
		}
	}
}

func TestParseBool(t *testing.T) {
	for _, tok := range []string{"true", "Yes", "Y", "t"} {
		b, ok := ParseBool(tok)
		require.True(t, ok, tok)
		assert.True(t, b, tok)
	}
	for _, tok := range []string{"false", "No", "n", "F"} {
		b, ok := ParseBool(tok)
		require.True(t, ok, tok)
		assert.False(t, b, tok)
	}
	_, ok := ParseBool("maybe")
	assert.False(t, ok)
}
