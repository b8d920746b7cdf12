package export

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rosterTable(rows int) Table {
	t := Table{
		Title:    "Roster",
		Subtitle: "Intro to Go (ABC123)",
		Columns: []Column{
			{Key: "name", Header: "Name", Width: 2},
			{Key: "email", Header: "Email", Width: 2},
			{Key: "status", Header: "Status"},
		},
	}
	for i := 0; i < rows; i++ {
		t.Rows = append(t.Rows, map[string]string{
			"name":   fmt.Sprintf("Student %d", i),
			"email":  fmt.Sprintf("s%d@example.com", i),
			"status": "confirmed",
		})
	}
	return t
}

func TestCSVRenderer(t *testing.T) {
	out, err := CSVRenderer{}.Render(rosterTable(2))
	require.NoError(t, err)
	assert.Equal(t, "Name,Email,Status\nStudent 0,s0@example.com,confirmed\nStudent 1,s1@example.com,confirmed\n", string(out))
}

func TestPDFRendererPaginates(t *testing.T) {
	out, err := PDFRenderer{}.Render(rosterTable(80))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestRenderRequiresColumns(t *testing.T) {
	_, err := RendererFor(FormatCSV).Render(Table{})
	assert.Error(t, err)
	_, err = RendererFor(FormatPDF).Render(Table{})
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat("pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", f.ContentType())

	_, err = ParseFormat("xlsx")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestColumnWidthsFillPage(t *testing.T) {
	widths := columnWidths(rosterTable(0).Columns)
	assert.InDelta(t, pdfUsableWidth, widths[0]+widths[1]+widths[2], 0.001)
	assert.InDelta(t, widths[0], 2*widths[2], 0.001)
}
