package analysis

import (
	"fmt"
	"math"

	"salespulse/pkg/contracts/domain"
)

// Rule produces at most one observation from the computed insights.
// Rules are evaluated in registration order; adding a rule never requires
// touching the existing ones.
type Rule interface {
	Name() string
	Evaluate(set *domain.InsightSet, profiles *domain.ProfileSet, report *domain.CleaningReport) (domain.Observation, bool)
}

// RuleFunc adapts a function to the Rule interface.
type RuleFunc struct {
	RuleName string
	Fn       func(set *domain.InsightSet, profiles *domain.ProfileSet, report *domain.CleaningReport) (domain.Observation, bool)
}

func (r RuleFunc) Name() string { return r.RuleName }

func (r RuleFunc) Evaluate(set *domain.InsightSet, profiles *domain.ProfileSet, report *domain.CleaningReport) (domain.Observation, bool) {
	return r.Fn(set, profiles, report)
}

// DefaultRules returns the built-in rule set, in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		RuleFunc{"strongest_correlation", strongestCorrelationRule},
		RuleFunc{"high_missing", highMissingRule},
		RuleFunc{"outlier_share", outlierShareRule},
		RuleFunc{"skewed_distribution", skewedDistributionRule},
		RuleFunc{"dominant_category", dominantCategoryRule},
		RuleFunc{"duplicates_removed", duplicatesRemovedRule},
	}
}

// strongestCorrelationRule reports the strongest pair above the threshold.
func strongestCorrelationRule(set *domain.InsightSet, _ *domain.ProfileSet, _ *domain.CleaningReport) (domain.Observation, bool) {
	if len(set.StrongPairs) == 0 {
		return domain.Observation{}, false
	}
	p := set.StrongPairs[0]
	direction := "positively"
	if p.Correlation < 0 {
		direction = "negatively"
	}
	return domain.Observation{
		Rule: "strongest_correlation",
		Text: fmt.Sprintf("%s and %s are strongly %s correlated (r=%.2f)",
			p.ColumnA, p.ColumnB, direction, p.Correlation),
		Severity: domain.SeverityNotice,
	}, true
}

// highMissingRule reports the column with the largest missing share
// before cleaning.
func highMissingRule(_ *domain.InsightSet, profiles *domain.ProfileSet, report *domain.CleaningReport) (domain.Observation, bool) {
	if report == nil || len(report.MissingBefore) == 0 {
		return domain.Observation{}, false
	}
	worst, worstCount := "", 0
	for col, n := range report.MissingBefore {
		if n > worstCount || (n == worstCount && col < worst) {
			worst, worstCount = col, n
		}
	}
	total := report.OriginalRows
	if total == 0 {
		return domain.Observation{}, false
	}
	pct := float64(worstCount) / float64(total) * 100
	severity := domain.SeverityInfo
	if pct > 20 {
		severity = domain.SeverityWarning
	}
	return domain.Observation{
		Rule: "high_missing",
		Text: fmt.Sprintf("%s had %.1f%% missing values before cleaning (%d of %d rows)",
			worst, pct, worstCount, total),
		Severity: severity,
	}, true
}

// outlierShareRule reports columns whose flagged outliers exceed 5% of rows.
func outlierShareRule(_ *domain.InsightSet, _ *domain.ProfileSet, report *domain.CleaningReport) (domain.Observation, bool) {
	if report == nil || report.FinalRows == 0 {
		return domain.Observation{}, false
	}
	worst, worstShare := "", 0.0
	for col, n := range report.OutlierCounts {
		share := float64(n) / float64(report.FinalRows)
		if share > worstShare || (share == worstShare && col < worst) {
			worst, worstShare = col, share
		}
	}
	if worstShare <= 0.05 {
		return domain.Observation{}, false
	}
	return domain.Observation{
		Rule: "outlier_share",
		Text: fmt.Sprintf("%s has %.1f%% of values flagged as outliers",
			worst, worstShare*100),
		Severity: domain.SeverityWarning,
	}, true
}

// skewedDistributionRule reports the most skewed numeric column when
// |skewness| exceeds 1.
func skewedDistributionRule(set *domain.InsightSet, _ *domain.ProfileSet, _ *domain.CleaningReport) (domain.Observation, bool) {
	var worst *domain.DescriptiveStats
	for i := range set.Descriptive {
		s := &set.Descriptive[i]
		if math.Abs(s.Skewness) <= 1 {
			continue
		}
		if worst == nil || math.Abs(s.Skewness) > math.Abs(worst.Skewness) {
			worst = s
		}
	}
	if worst == nil {
		return domain.Observation{}, false
	}
	direction := "right"
	if worst.Skewness < 0 {
		direction = "left"
	}
	return domain.Observation{
		Rule: "skewed_distribution",
		Text: fmt.Sprintf("%s is strongly %s-skewed (skewness %.2f); the median is more representative than the mean",
			worst.Column, direction, worst.Skewness),
		Severity: domain.SeverityInfo,
	}, true
}

// dominantCategoryRule reports a categorical column whose top value
// covers more than half the rows.
func dominantCategoryRule(set *domain.InsightSet, _ *domain.ProfileSet, _ *domain.CleaningReport) (domain.Observation, bool) {
	var bestCol string
	var bestCat domain.CategoryCount
	bestShare := 0.0
	for col, freq := range set.Frequencies {
		if len(freq.Top) == 0 {
			continue
		}
		total := freq.OtherCount
		for _, c := range freq.Top {
			total += c.Count
		}
		if total == 0 {
			continue
		}
		share := float64(freq.Top[0].Count) / float64(total)
		if share > bestShare || (share == bestShare && col < bestCol) {
			bestCol, bestCat, bestShare = col, freq.Top[0], share
		}
	}
	if bestShare <= 0.5 {
		return domain.Observation{}, false
	}
	return domain.Observation{
		Rule: "dominant_category",
		Text: fmt.Sprintf("%q accounts for %.1f%% of %s",
			bestCat.Value, bestShare*100, bestCol),
		Severity: domain.SeverityInfo,
	}, true
}

// duplicatesRemovedRule reports dedup work done during cleaning.
func duplicatesRemovedRule(_ *domain.InsightSet, _ *domain.ProfileSet, report *domain.CleaningReport) (domain.Observation, bool) {
	if report == nil || report.DuplicatesRemoved == 0 {
		return domain.Observation{}, false
	}
	return domain.Observation{
		Rule: "duplicates_removed",
		Text: fmt.Sprintf("%d exact duplicate rows were removed during cleaning",
			report.DuplicatesRemoved),
		Severity: domain.SeverityInfo,
	}, true
}
