package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/xavierca1/ligue-crm/internal/usecase"
)

var sampleRows = []usecase.ExportRow{
	{
		Name: "Ada", Email: "ada@acme.io", Phone: "555", Company: `Acme, "The Best" Inc.`,
		Source: "Referral", Status: "Qualified", Priority: "High", Value: 1250.5,
		FollowUpDate: "3/15/2024", CreatedAt: "2/20/2024", NotesCount: 2,
	},
	{
		Name: "Bob", Email: "bob@x.io", Company: "Multi\nLine",
		Source: "Website", Status: "New", Priority: "Medium", CreatedAt: "1/5/2024",
	},
}

func TestCSVWriter_RoundTrips(t *testing.T) {
	var buf bytes.Buffer
	w, err := New(FormatCSV, &buf)
	require.NoError(t, err)
	for _, r := range sampleRows {
		require.NoError(t, w.Write(r))
	}
	require.NoError(t, w.Close())

	assert.Contains(t, buf.String(), `"Acme, ""The Best"" Inc."`)

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, usecase.ExportHeader, records[0])
	assert.Equal(t, `Acme, "The Best" Inc.`, records[1][3])
	assert.Equal(t, "1250.5", records[1][7])
	assert.Equal(t, "2", records[1][10])
	assert.Equal(t, "Multi\nLine", records[2][3])
	assert.Equal(t, "", records[2][8])
}

func TestCSVWriter_EmptyExportHasHeader(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewCSVWriter(&buf)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.Equal(t, strings.Join(usecase.ExportHeader, ",")+"\n", buf.String())
}

func TestXLSXWriter(t *testing.T) {
	var buf bytes.Buffer
	w, err := New(FormatXLSX, &buf)
	require.NoError(t, err)
	for _, r := range sampleRows {
		require.NoError(t, w.Write(r))
	}
	require.NoError(t, w.Close())

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, usecase.ExportHeader, rows[0])
	assert.Equal(t, "Ada", rows[1][0])
	assert.Equal(t, `Acme, "The Best" Inc.`, rows[1][3])
	assert.Equal(t, "1250.5", rows[1][7])
	assert.Equal(t, "2", rows[1][10])
}

func TestNew_UnsupportedFormat(t *testing.T) {
	_, err := New("pdf", &bytes.Buffer{})

	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestContentTypeAndFileName(t *testing.T) {
	assert.Equal(t, "leads-export.csv", FileName(""))
	assert.Equal(t, "leads-export.xlsx", FileName(FormatXLSX))
	assert.True(t, strings.HasPrefix(ContentType(FormatCSV), "text/csv"))
	assert.Contains(t, ContentType(FormatXLSX), "spreadsheetml")
}
