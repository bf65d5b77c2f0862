package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "salespulse/internal/errors"
	"salespulse/pkg/contracts/domain"
)

// utf8BOM is stripped from CSV input; Excel prepends it when saving UTF-8.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Ingestor parses an uploaded byte buffer into a Table. It enforces the
// configured size ceiling and normalizes column names so every downstream
// stage can address columns by unique name.
type Ingestor struct {
	logger   *slog.Logger
	maxBytes int64
}

// New creates an ingestor with the given size ceiling.
func New(logger *slog.Logger, maxBytes int64) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{
		logger:   logger.With(slog.String("component", "ingestor")),
		maxBytes: maxBytes,
	}
}

// Ingest reads the full input (bounded by the size ceiling) and parses it
// according to the declared format.
func (ing *Ingestor) Ingest(ctx context.Context, r io.Reader, format Format) (*domain.Table, error) {
	// Read one byte past the limit so an oversized stream is detected
	// without buffering all of it.
	limited := io.LimitReader(r, ing.maxBytes+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to read upload", err)
	}
	if int64(len(data)) > ing.maxBytes {
		return nil, apperrors.NewSizeExceededError(ing.maxBytes)
	}
	return ing.IngestBytes(ctx, data, format)
}

// IngestBytes parses an in-memory buffer.
func (ing *Ingestor) IngestBytes(ctx context.Context, data []byte, format Format) (*domain.Table, error) {
	if int64(len(data)) > ing.maxBytes {
		return nil, apperrors.NewSizeExceededError(ing.maxBytes)
	}
	if len(data) == 0 {
		return nil, apperrors.NewEmptyInputError("upload is empty")
	}

	var (
		rows [][]string
		err  error
	)
	switch format {
	case FormatCSV:
		rows, err = parseCSV(data)
	case FormatXLSX:
		rows, err = parseXLSX(data)
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown format: %s", format))
	}
	if err != nil {
		return nil, err
	}

	table, err := buildTable(rows)
	if err != nil {
		return nil, err
	}

	ing.logger.InfoContext(ctx, "upload ingested",
		slog.String("format", string(format)),
		slog.Int("bytes", len(data)),
		slog.Int("rows", table.NumRows()),
		slog.Int("columns", table.NumCols()))

	return table, nil
}

// parseCSV parses delimited text. Rows shorter than the header are padded
// with missing cells; longer rows are rejected as unparseable.
func parseCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = false

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.NewFormatError("failed to parse CSV content", err)
	}
	if len(rows) == 0 {
		return nil, apperrors.NewEmptyInputError("CSV has no rows")
	}

	width := len(rows[0])
	for i, row := range rows[1:] {
		if len(row) > width {
			return nil, apperrors.NewFormatError(
				fmt.Sprintf("row %d has %d fields, header has %d", i+2, len(row), width), nil)
		}
	}
	return rows, nil
}

// parseXLSX parses a spreadsheet, using the first sheet that contains rows.
func parseXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.NewFormatError("failed to open spreadsheet", err)
	}
	defer f.Close()

	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			continue
		}
		if len(rows) > 0 {
			return rows, nil
		}
	}
	return nil, apperrors.NewEmptyInputError("spreadsheet has no data sheets")
}

// buildTable converts header+data rows into a column-oriented table.
func buildTable(rows [][]string) (*domain.Table, error) {
	headers := NormalizeHeaders(rows[0])
	if len(headers) == 0 {
		return nil, apperrors.NewEmptyInputError("input has no columns")
	}
	if len(rows) < 2 {
		return nil, apperrors.NewEmptyInputError("input has no data rows")
	}

	table := &domain.Table{Columns: make([]domain.Column, len(headers))}
	for j, name := range headers {
		table.Columns[j] = domain.Column{
			Name:   name,
			Values: make([]domain.Value, 0, len(rows)-1),
		}
	}

	for _, row := range rows[1:] {
		for j := range headers {
			var cell string
			if j < len(row) {
				cell = row[j]
			}
			table.Columns[j].Values = append(table.Columns[j].Values, cellValue(cell))
		}
	}

	return table, nil
}

// cellValue converts a raw token into a cell. Only genuinely empty cells
// become missing here; configurable sentinel tokens are the profiler's job.
func cellValue(s string) domain.Value {
	if strings.TrimSpace(s) == "" {
		return domain.MissingValue()
	}
	return domain.Value{Kind: domain.KindString, Str: s, Raw: s}
}

// NormalizeHeaders trims and uniquifies column names. Empty names become
// column_N; duplicates get a numeric suffix, keeping the first bare.
func NormalizeHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	used := make(map[string]bool, len(raw))

	for i, h := range raw {
		name := strings.Join(strings.Fields(h), " ")
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		if used[name] {
			base := name
			for n := 2; ; n++ {
				name = fmt.Sprintf("%s_%d", base, n)
				if !used[name] {
					break
				}
			}
		}
		used[name] = true
		headers[i] = name
	}
	return headers
}
