package sheet

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func generated(t *testing.T) (fixture, Detail) {
	t.Helper()
	f := newFixture()
	detail, err := f.svc.GenerateSheet(context.Background(), "b1", march)
	require.NoError(t, err)
	return f, detail
}

func TestExportCSVHasTermColumnsAndTotals(t *testing.T) {
	f, detail := generated(t)
	var buf bytes.Buffer

	sh, err := f.svc.ExportCSV(context.Background(), detail.ID, &buf)

	require.NoError(t, err)
	assert.Equal(t, detail.ID, sh.ID)
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Contains(t, records[0], "Books 1.5y")
	assert.Contains(t, records[0], "Books 5y")
	assert.Equal(t, "Final Salary", records[0][len(records[0])-1])
	assert.Equal(t, "Officer", records[1][0])
	assert.Equal(t, "10130.00", records[1][len(records[1])-1])
	assert.Equal(t, "TOTAL", records[3][0])
	assert.Equal(t, "30410.00", records[3][len(records[3])-1])
}

func TestExportXLSXWritesWorkbook(t *testing.T) {
	f, detail := generated(t)
	var buf bytes.Buffer

	_, err := f.svc.ExportXLSX(context.Background(), detail.ID, &buf)
	require.NoError(t, err)

	book, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer book.Close()
	rows, err := book.GetRows("2024-03")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Employee", rows[0][0])
	assert.Equal(t, "Manager", rows[2][0])
}

func TestExportPDF(t *testing.T) {
	f, detail := generated(t)
	var buf bytes.Buffer

	_, err := f.svc.ExportPDF(context.Background(), detail.ID, &buf)

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestExportUnknownSheet(t *testing.T) {
	f := newFixture()

	_, err := f.svc.ExportCSV(context.Background(), "missing", &bytes.Buffer{})

	assert.ErrorIs(t, err, ErrSheetNotFound)
}

func TestExportFilename(t *testing.T) {
	assert.Equal(t, "salary-sheet-2024-03-s1.csv", ExportFilename(Sheet{ID: "s1", Month: march}, "csv"))
}
