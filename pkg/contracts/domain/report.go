package domain

// CleaningOp identifies one kind of cleaning operation.
type CleaningOp string

const (
	OpImputeMedian      CleaningOp = "impute_median"
	OpImputeMode        CleaningOp = "impute_mode"
	OpSkippedImputation CleaningOp = "skipped_imputation"
	OpDeduplicate       CleaningOp = "deduplicate"
	OpNarrowInteger     CleaningOp = "narrow_integer"
	OpMarkCategorical   CleaningOp = "mark_categorical"
	OpFlagOutliers      CleaningOp = "flag_outliers"
	OpSkippedOutliers   CleaningOp = "skipped_outliers"
)

// CleaningEntry records one applied (or skipped) cleaning operation.
type CleaningEntry struct {
	Op           CleaningOp `json:"op"`
	Column       string     `json:"column,omitempty"`
	RowsAffected int        `json:"rows_affected"`
	Detail       string     `json:"detail,omitempty"`
	FlaggedRows  []int      `json:"flagged_rows,omitempty"`
}

// CleaningReport is the ordered, immutable log of a cleaning run plus its
// aggregate counters. Non-fatal anomalies (a column whose imputation was
// skipped, for example) appear here instead of aborting the pipeline.
type CleaningReport struct {
	Entries           []CleaningEntry `json:"entries"`
	OriginalRows      int             `json:"original_rows"`
	FinalRows         int             `json:"final_rows"`
	DuplicatesRemoved int             `json:"duplicates_removed"`
	MissingFilled     int             `json:"missing_filled"`
	MissingBefore     map[string]int  `json:"missing_before,omitempty"`
	OutlierCounts     map[string]int  `json:"outlier_counts,omitempty"`
	MemoryBefore      int64           `json:"memory_before_bytes"`
	MemoryAfter       int64           `json:"memory_after_bytes"`
}

// Append adds an entry to the log.
func (r *CleaningReport) Append(e CleaningEntry) {
	r.Entries = append(r.Entries, e)
}

// EntriesFor returns all entries for the given operation, in log order.
func (r *CleaningReport) EntriesFor(op CleaningOp) []CleaningEntry {
	var out []CleaningEntry
	for _, e := range r.Entries {
		if e.Op == op {
			out = append(out, e)
		}
	}
	return out
}

// TotalOutliers returns the number of flagged cells across all columns.
func (r *CleaningReport) TotalOutliers() int {
	total := 0
	for _, n := range r.OutlierCounts {
		total += n
	}
	return total
}

// MemorySaved returns the byte estimate saved by type optimization.
func (r *CleaningReport) MemorySaved() int64 {
	return r.MemoryBefore - r.MemoryAfter
}
