// Package domain defines the shared data model of the analysis pipeline.
//
// The central type is Table, an ordered collection of equally sized typed
// columns. Every pipeline stage consumes a Table and returns a new one
// together with a stage-specific artifact:
//
//	ingest    → *Table
//	profile   → *ProfileSet
//	cleaning  → *Table + *CleaningReport
//	analysis  → *InsightSet
//	chart     → *ChartDescription
//
// Types here carry no behavior beyond accessors, so the packages that
// produce and consume them stay decoupled.
package domain
