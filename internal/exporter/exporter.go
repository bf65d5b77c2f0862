// Package exporter writes a cleaned table back out as CSV or XLSX.
// Column and row order are preserved, and cells the pipeline never
// touched render their original token byte-for-byte.
package exporter

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"

	apperrors "salespulse/internal/errors"
	"salespulse/pkg/contracts/domain"
)

// XLSXSheetName is the sheet cleaned data is written to.
const XLSXSheetName = "Cleaned Data"

// Exporter serializes tables.
type Exporter struct {
	logger *slog.Logger
}

// New creates an exporter.
func New(logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{logger: logger.With(slog.String("component", "exporter"))}
}

// ExportCSV writes the table as UTF-8 CSV with a BOM so Excel opens it
// with the right encoding.
func (e *Exporter) ExportCSV(ctx context.Context, w io.Writer, table *domain.Table) error {
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return apperrors.NewStorageError("failed to write BOM", err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(table.ColumnNames()); err != nil {
		return apperrors.NewStorageError("failed to write CSV header", err)
	}
	rows := table.NumRows()
	for i := 0; i < rows; i++ {
		if err := writer.Write(table.Row(i)); err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("failed to write CSV row %d", i+1), err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return apperrors.NewStorageError("failed to flush CSV output", err)
	}

	e.logger.InfoContext(ctx, "table exported",
		slog.String("format", "csv"),
		slog.Int("rows", rows),
		slog.Int("columns", table.NumCols()))
	return nil
}

// ExportXLSX writes the table as a single-sheet workbook using the
// stream writer, so wide tables do not hold a full cell grid in memory.
func (e *Exporter) ExportXLSX(ctx context.Context, w io.Writer, table *domain.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(XLSXSheetName)
	if err != nil {
		return apperrors.NewStorageError("failed to create sheet", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return apperrors.NewStorageError("failed to drop default sheet", err)
	}

	sw, err := f.NewStreamWriter(XLSXSheetName)
	if err != nil {
		return apperrors.NewStorageError("failed to create stream writer", err)
	}

	header := make([]interface{}, table.NumCols())
	for i, name := range table.ColumnNames() {
		header[i] = name
	}
	if err := sw.SetRow("A1", header); err != nil {
		return apperrors.NewStorageError("failed to write header row", err)
	}

	rows := table.NumRows()
	for i := 0; i < rows; i++ {
		cells := make([]interface{}, table.NumCols())
		for j, c := range table.Columns {
			cells[j] = cellForXLSX(c.Values[i])
		}
		cellRef, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return apperrors.NewStorageError("failed to compute cell reference", err)
		}
		if err := sw.SetRow(cellRef, cells); err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("failed to write row %d", i+1), err)
		}
	}
	if err := sw.Flush(); err != nil {
		return apperrors.NewStorageError("failed to flush sheet", err)
	}
	if err := f.Write(w); err != nil {
		return apperrors.NewStorageError("failed to write workbook", err)
	}

	e.logger.InfoContext(ctx, "table exported",
		slog.String("format", "xlsx"),
		slog.Int("rows", rows),
		slog.Int("columns", table.NumCols()))
	return nil
}

// cellForXLSX picks a native cell type where the value was synthesized,
// and the raw token where the source cell was untouched.
func cellForXLSX(v domain.Value) interface{} {
	if v.Raw != "" {
		return v.Raw
	}
	switch v.Kind {
	case domain.KindFloat:
		return v.Float
	case domain.KindInt:
		return v.Int
	case domain.KindBool:
		return v.Bool
	case domain.KindTime:
		return v.Time
	case domain.KindString:
		return v.Str
	default:
		return ""
	}
}
