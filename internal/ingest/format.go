package ingest

import (
	"path/filepath"
	"strings"

	apperrors "salespulse/internal/errors"
)

// Format identifies a supported upload format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FormatFromFilename derives the format from a file extension.
func FormatFromFilename(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx", ".xls":
		return FormatXLSX, nil
	default:
		return "", apperrors.NewValidationError("only CSV and XLSX formats are supported")
	}
}

// ParseFormat validates a user-supplied format string.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "xlsx", "xls", "excel":
		return FormatXLSX, nil
	default:
		return "", apperrors.NewValidationError("only CSV and XLSX formats are supported")
	}
}
