package exporter

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"salespulse/internal/ingest"
	"salespulse/pkg/contracts/domain"
)

func sampleTable() *domain.Table {
	return &domain.Table{Columns: []domain.Column{
		{Name: "name", Values: []domain.Value{
			{Kind: domain.KindString, Str: "widget", Raw: "widget"},
			{Kind: domain.KindString, Str: "gadget", Raw: "gadget"},
		}},
		{Name: "price", Values: []domain.Value{
			{Kind: domain.KindFloat, Float: 1250, Raw: "1,250"},
			domain.FloatValue(20.5), // synthesized, no raw token
		}},
	}}
}

func TestExportCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(nil).ExportCSV(context.Background(), &buf, sampleTable()))

	out := buf.Bytes()
	require.True(t, bytes.HasPrefix(out, []byte{0xEF, 0xBB, 0xBF}))

	r := csv.NewReader(bytes.NewReader(out[3:]))
	records, err := r.ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, []string{"name", "price"}, records[0])
	// Untouched cells reproduce their source token, thousands separator
	// included; imputed cells render from the typed payload.
	assert.Equal(t, []string{"widget", "1,250"}, records[1])
	assert.Equal(t, []string{"gadget", "20.5"}, records[2])
}

func TestExportCSVEmptyTable(t *testing.T) {
	var buf bytes.Buffer
	table := &domain.Table{Columns: []domain.Column{{Name: "a"}, {Name: "b"}}}
	require.NoError(t, New(nil).ExportCSV(context.Background(), &buf, table))

	content := strings.TrimPrefix(buf.String(), string([]byte{0xEF, 0xBB, 0xBF}))
	assert.Equal(t, "a,b\n", content)
}

func TestExportXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(nil).ExportXLSX(context.Background(), &buf, sampleTable()))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{XLSXSheetName}, f.GetSheetList())

	rows, err := f.GetRows(XLSXSheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"name", "price"}, rows[0])
	assert.Equal(t, []string{"widget", "1,250"}, rows[1])
	assert.Equal(t, "gadget", rows[2][0])
}

func TestExportIngestRoundTrip(t *testing.T) {
	src := "name,price,city\n" +
		"widget,10,london\n" +
		"gadget,20.5,paris\n" +
		"gizmo,1000,osaka\n"
	ctx := context.Background()
	ing := ingest.New(nil, 1<<20)

	table, err := ing.IngestBytes(ctx, []byte(src), ingest.FormatCSV)
	require.NoError(t, err)

	formats := map[string]struct {
		format ingest.Format
		export func(*domain.Table) ([]byte, error)
	}{
		"csv": {ingest.FormatCSV, func(tbl *domain.Table) ([]byte, error) {
			var buf bytes.Buffer
			err := New(nil).ExportCSV(ctx, &buf, tbl)
			return buf.Bytes(), err
		}},
		"xlsx": {ingest.FormatXLSX, func(tbl *domain.Table) ([]byte, error) {
			var buf bytes.Buffer
			err := New(nil).ExportXLSX(ctx, &buf, tbl)
			return buf.Bytes(), err
		}},
	}

	for name, tt := range formats {
		t.Run(name, func(t *testing.T) {
			data, err := tt.export(table)
			require.NoError(t, err)

			again, err := ing.IngestBytes(ctx, data, tt.format)
			require.NoError(t, err)

			assert.Equal(t, table.ColumnNames(), again.ColumnNames())
			require.Equal(t, table.NumRows(), again.NumRows())
			for i := 0; i < table.NumRows(); i++ {
				assert.Equal(t, table.Row(i), again.Row(i))
			}
		})
	}
}

func TestCellForXLSXTypes(t *testing.T) {
	assert.Equal(t, "1,250", cellForXLSX(domain.Value{Kind: domain.KindFloat, Float: 1250, Raw: "1,250"}))
	assert.Equal(t, int64(7), cellForXLSX(domain.IntValue(7)))
	assert.Equal(t, 2.5, cellForXLSX(domain.FloatValue(2.5)))
	assert.Equal(t, true, cellForXLSX(domain.Value{Kind: domain.KindBool, Bool: true}))
	assert.Equal(t, "", cellForXLSX(domain.MissingValue()))
}
