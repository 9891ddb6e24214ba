package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/pushkindt/pushkind-dantes/internal/upload"
)

func TestRenderCSV(t *testing.T) {
	file, err := Render("products", upload.FormatCSV,
		[]string{"sku", "name", "price"},
		[][]string{
			{"A1", "Widget", "10.5"},
			{"A2", "Gadget", "20"},
		})
	require.NoError(t, err)

	assert.Equal(t, "products.csv", file.Name)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.Equal(t, "sku,name,price\nA1,Widget,10.5\nA2,Gadget,20\n", string(file.Bytes))
}

func TestRenderCSVEscapesFormulaPrefixes(t *testing.T) {
	file, err := Render("products", upload.FormatCSV,
		[]string{"sku", "name"},
		[][]string{
			{"A1", "=HYPERLINK(\"http://evil\")"},
			{"A2", "+1"},
			{"A3", "-1"},
			{"A4", "@cmd"},
			{"A5", "plain"},
		})
	require.NoError(t, err)

	content := string(file.Bytes)
	assert.Contains(t, content, `"'=HYPERLINK(""http://evil"")"`)
	assert.Contains(t, content, "'+1")
	assert.Contains(t, content, "'-1")
	assert.Contains(t, content, "'@cmd")
	assert.Contains(t, content, "A5,plain")
}

func TestRenderXLSXRoundTrip(t *testing.T) {
	file, err := Render("benchmarks", upload.FormatXLSX,
		[]string{"sku", "name"},
		[][]string{
			{"B1", "Bench"},
			{"B2", "=SUM(A1)"},
		})
	require.NoError(t, err)

	assert.Equal(t, "benchmarks.xlsx", file.Name)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", file.ContentType)

	f, err := excelize.OpenReader(bytes.NewReader(file.Bytes))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"sku", "name"}, rows[0])
	assert.Equal(t, []string{"B1", "Bench"}, rows[1])
	assert.Equal(t, []string{"B2", "'=SUM(A1)"}, rows[2])
}
