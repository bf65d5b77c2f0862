package ingest

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apperrors "salespulse/internal/errors"
	"salespulse/pkg/contracts/domain"
)

func TestIngestCSV(t *testing.T) {
	ing := New(nil, 1<<20)

	table, err := ing.IngestBytes(context.Background(),
		[]byte("name,price\nwidget,10\ngadget,20\n"), FormatCSV)
	require.NoError(t, err)

	assert.Equal(t, 2, table.NumRows())
	assert.Equal(t, []string{"name", "price"}, table.ColumnNames())

	col, err := table.Column("price")
	require.NoError(t, err)
	assert.Equal(t, "10", col.Values[0].Render())
}

func TestIngestCSVStripsBOM(t *testing.T) {
	ing := New(nil, 1<<20)

	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("a,b\n1,2\n")...)
	table, err := ing.IngestBytes(context.Background(), data, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, table.ColumnNames())
}

func TestIngestCSVPadsShortRows(t *testing.T) {
	ing := New(nil, 1<<20)

	table, err := ing.IngestBytes(context.Background(),
		[]byte("a,b,c\n1,2\n4,5,6\n"), FormatCSV)
	require.NoError(t, err)

	col, err := table.Column("c")
	require.NoError(t, err)
	assert.True(t, col.Values[0].Missing())
	assert.Equal(t, "6", col.Values[1].Render())
}

func TestIngestCSVRejectsLongRows(t *testing.T) {
	ing := New(nil, 1<<20)

	_, err := ing.IngestBytes(context.Background(),
		[]byte("a,b\n1,2,3\n"), FormatCSV)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeFormat))
}

func TestIngestSizeCeiling(t *testing.T) {
	ing := New(nil, 16)

	data := []byte("a,b\n" + strings.Repeat("1,2\n", 100))

	t.Run("bytes", func(t *testing.T) {
		_, err := ing.IngestBytes(context.Background(), data, FormatCSV)
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeSizeExceeded))
	})

	t.Run("reader", func(t *testing.T) {
		_, err := ing.Ingest(context.Background(), bytes.NewReader(data), FormatCSV)
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeSizeExceeded))
	})
}

func TestIngestEmptyInput(t *testing.T) {
	ing := New(nil, 1<<20)

	tests := []struct {
		name string
		data string
	}{
		{"no bytes", ""},
		{"header only", "a,b\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ing.IngestBytes(context.Background(), []byte(tt.data), FormatCSV)
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrTypeEmptyInput))
		})
	}
}

func TestIngestWhitespaceCellsAreMissing(t *testing.T) {
	ing := New(nil, 1<<20)

	table, err := ing.IngestBytes(context.Background(),
		[]byte("a,b\n  ,x\n"), FormatCSV)
	require.NoError(t, err)

	col, err := table.Column("a")
	require.NoError(t, err)
	assert.Equal(t, domain.KindMissing, col.Values[0].Kind)
}

func TestIngestXLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"name", "qty"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"widget", 3}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{"gadget", 5}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	ing := New(nil, 1<<20)
	table, err := ing.IngestBytes(context.Background(), buf.Bytes(), FormatXLSX)
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "qty"}, table.ColumnNames())
	assert.Equal(t, 2, table.NumRows())

	col, err := table.Column("qty")
	require.NoError(t, err)
	assert.Equal(t, "3", col.Values[0].Render())
}

func TestIngestUnknownFormat(t *testing.T) {
	ing := New(nil, 1<<20)
	_, err := ing.IngestBytes(context.Background(), []byte("a\n1\n"), Format("parquet"))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}

func TestNormalizeHeaders(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "trim and collapse",
			in:   []string{"  unit   price ", "qty"},
			want: []string{"unit price", "qty"},
		},
		{
			name: "empty names",
			in:   []string{"", "a", ""},
			want: []string{"column_1", "a", "column_3"},
		},
		{
			name: "duplicates keep first bare",
			in:   []string{"a", "a", "a"},
			want: []string{"a", "a_2", "a_3"},
		},
		{
			name: "collision with explicit suffix",
			in:   []string{"a", "a_2", "a"},
			want: []string{"a", "a_2", "a_3"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeHeaders(tt.in))
		})
	}
}

func TestFormatFromFilename(t *testing.T) {
	f, err := FormatFromFilename("sales.CSV")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = FormatFromFilename("report.xlsx")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = FormatFromFilename("notes.txt")
	assert.Error(t, err)
}
