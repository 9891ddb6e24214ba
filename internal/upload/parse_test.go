package upload

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func csvMeta(mode string) FileMeta {
	return FileMeta{
		FileName:    "catalog.csv",
		ContentType: "text/csv",
		Format:      "csv",
		Mode:        mode,
	}
}

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat(" CSV ")
	assert.NoError(t, err)
	assert.Equal(t, FormatCSV, format)

	format, err = ParseFormat("xlsx")
	assert.NoError(t, err)
	assert.Equal(t, FormatXLSX, format)

	_, err = ParseFormat("pdf")
	var uploadErr *Error
	require.True(t, errors.As(err, &uploadErr))
	assert.Equal(t, CodeInvalidFormat, uploadErr.Code)
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("Full")
	assert.NoError(t, err)
	assert.Equal(t, ModeFull, mode)

	mode, err = ParseMode("partial")
	assert.NoError(t, err)
	assert.Equal(t, ModePartial, mode)

	_, err = ParseMode("merge")
	var uploadErr *Error
	require.True(t, errors.As(err, &uploadErr))
	assert.Equal(t, CodeInvalidMode, uploadErr.Code)
}

func TestCheckFileMeta(t *testing.T) {
	assert.NoError(t, CheckFileMeta(FormatCSV, "products.csv", "text/csv"))
	assert.NoError(t, CheckFileMeta(FormatCSV, "products.CSV", "application/octet-stream"))
	assert.NoError(t, CheckFileMeta(FormatXLSX, "products.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"))
	// Browsers are allowed to omit or genericize the content type.
	assert.NoError(t, CheckFileMeta(FormatXLSX, "products.xlsx", ""))

	var uploadErr *Error

	err := CheckFileMeta(FormatCSV, "", "text/csv")
	require.True(t, errors.As(err, &uploadErr))
	assert.Equal(t, CodeFileRequired, uploadErr.Code)

	err = CheckFileMeta(FormatCSV, "products.xlsx", "text/csv")
	require.True(t, errors.As(err, &uploadErr))
	assert.Equal(t, CodeFormatMismatch, uploadErr.Code)

	err = CheckFileMeta(FormatXLSX, "products.xlsx", "text/csv")
	require.True(t, errors.As(err, &uploadErr))
	assert.Equal(t, CodeFormatMismatch, uploadErr.Code)
}

func TestParseFullModeCSV(t *testing.T) {
	data := []byte("SKU,Name,Category,Units,Price,Amount,Description,URL\n" +
		"A1, Widget ,tools,pcs,10.5,3,solid widget,https://example.com/a1\n")

	parsed, err := Parse(data, csvMeta("full"), TargetCrawlerProducts)
	require.NoError(t, err)

	assert.Equal(t, FormatCSV, parsed.Format)
	assert.Equal(t, ModeFull, parsed.Mode)
	assert.Equal(t, []string{"sku", "name", "category", "units", "price", "amount", "description", "url"}, parsed.Headers)
	require.Len(t, parsed.Rows, 1)
	assert.Equal(t, 2, parsed.Rows[0].Number)
	assert.Equal(t, "Widget", parsed.Rows[0].Values["name"])
	assert.Equal(t, "A1", parsed.Rows[0].Values["sku"])
}

func TestParseCSVWithUTF8ByteOrderMark(t *testing.T) {
	// Excel's "CSV UTF-8" export prepends a BOM; it must not leak into the
	// first header name.
	data := []byte("\xef\xbb\xbfsku,price\nA1,10.5\n")

	parsed, err := Parse(data, csvMeta("partial"), TargetCrawlerProducts)
	require.NoError(t, err)

	assert.Equal(t, []string{"sku", "price"}, parsed.Headers)
	assert.True(t, parsed.HasColumn("sku"))
	require.Len(t, parsed.Rows, 1)
	assert.Equal(t, "A1", parsed.Rows[0].Values["sku"])
}

func TestParseFullModeRejectsMissingColumn(t *testing.T) {
	data := []byte("sku,name,category,units,price,amount,description\nA1,x,c,u,1,1,d\n")

	_, err := Parse(data, csvMeta("full"), TargetCrawlerProducts)
	var uploadErr *Error
	require.True(t, errors.As(err, &uploadErr))
	assert.Equal(t, CodeHeaderValidation, uploadErr.Code)
	assert.Contains(t, uploadErr.Message, "full mode requires exact headers")
}

func TestParseFullModeRejectsExtraColumn(t *testing.T) {
	data := []byte("sku,name,category,units,price,amount,description,url,color\n")

	_, err := Parse(data, csvMeta("full"), TargetCrawlerProducts)
	var uploadErr *Error
	require.True(t, errors.As(err, &uploadErr))
	assert.Equal(t, CodeHeaderValidation, uploadErr.Code)
}

func TestParsePartialModeSubset(t *testing.T) {
	data := []byte("sku,price\nA1,9.99\nA2,\n")

	parsed, err := Parse(data, csvMeta("partial"), TargetCrawlerProducts)
	require.NoError(t, err)

	assert.Equal(t, []string{"sku", "price"}, parsed.Headers)
	assert.True(t, parsed.HasColumn("price"))
	assert.False(t, parsed.HasColumn("name"))
	require.Len(t, parsed.Rows, 2)
	assert.Equal(t, "", parsed.Rows[1].Values["price"])
}

func TestParsePartialModeRejectsUnknownColumn(t *testing.T) {
	data := []byte("sku,color\nA1,red\n")

	_, err := Parse(data, csvMeta("partial"), TargetCrawlerProducts)
	var uploadErr *Error
	require.True(t, errors.As(err, &uploadErr))
	assert.Equal(t, CodeHeaderValidation, uploadErr.Code)
	assert.Contains(t, uploadErr.Message, "unsupported column: color")
}

func TestParsePartialModeRequiresKeyColumn(t *testing.T) {
	data := []byte("name,price\nWidget,10\n")

	_, err := Parse(data, csvMeta("partial"), TargetCrawlerProducts)
	var uploadErr *Error
	require.True(t, errors.As(err, &uploadErr))
	assert.Equal(t, CodeHeaderValidation, uploadErr.Code)
	assert.Contains(t, uploadErr.Message, "partial mode requires sku column")
}

func TestParseRejectsDuplicateHeader(t *testing.T) {
	data := []byte("sku,price,Price\nA1,1,2\n")

	_, err := Parse(data, csvMeta("partial"), TargetCrawlerProducts)
	var uploadErr *Error
	require.True(t, errors.As(err, &uploadErr))
	assert.Equal(t, CodeHeaderValidation, uploadErr.Code)
	assert.Contains(t, uploadErr.Message, "duplicate header column: price")
}

func TestParseRejectsEmptyHeaderCell(t *testing.T) {
	data := []byte("sku,,price\nA1,x,1\n")

	_, err := Parse(data, csvMeta("partial"), TargetCrawlerProducts)
	var uploadErr *Error
	require.True(t, errors.As(err, &uploadErr))
	assert.Equal(t, CodeHeaderValidation, uploadErr.Code)
	assert.Contains(t, uploadErr.Message, "empty column name")
}

func TestParseRejectsEmptyFile(t *testing.T) {
	_, err := Parse([]byte(""), csvMeta("full"), TargetCrawlerProducts)
	var uploadErr *Error
	require.True(t, errors.As(err, &uploadErr))
	assert.Equal(t, CodeHeaderValidation, uploadErr.Code)
	assert.Contains(t, uploadErr.Message, "missing header row")
}

func TestParseHeaderOnlyFileYieldsNoRows(t *testing.T) {
	data := []byte("sku,price\n")

	parsed, err := Parse(data, csvMeta("partial"), TargetCrawlerProducts)
	require.NoError(t, err)
	assert.Empty(t, parsed.Rows)
}

func TestParsePadsShortRows(t *testing.T) {
	data := []byte("sku,name,price\nA1,Widget\n")

	parsed, err := Parse(data, csvMeta("partial"), TargetCrawlerProducts)
	require.NoError(t, err)
	require.Len(t, parsed.Rows, 1)
	assert.Equal(t, "", parsed.Rows[0].Values["price"])
}

func TestParseBenchmarkSchemaHasNoURLColumn(t *testing.T) {
	data := []byte("sku,url\nA1,https://example.com\n")

	_, err := Parse(data, csvMeta("partial"), TargetBenchmarks)
	var uploadErr *Error
	require.True(t, errors.As(err, &uploadErr))
	assert.Contains(t, uploadErr.Message, "unsupported column: url")
}

func TestParseXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"sku", "price"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"A1", 10.5}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	meta := FileMeta{
		FileName:    "catalog.xlsx",
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Format:      "xlsx",
		Mode:        "partial",
	}
	parsed, err := Parse(buf.Bytes(), meta, TargetCrawlerProducts)
	require.NoError(t, err)

	assert.Equal(t, FormatXLSX, parsed.Format)
	assert.Equal(t, []string{"sku", "price"}, parsed.Headers)
	require.Len(t, parsed.Rows, 1)
	assert.Equal(t, "A1", parsed.Rows[0].Values["sku"])
	assert.Equal(t, "10.5", parsed.Rows[0].Values["price"])
}

func TestParseXLSXRejectsGarbage(t *testing.T) {
	meta := FileMeta{
		FileName: "catalog.xlsx",
		Format:   "xlsx",
		Mode:     "full",
	}
	_, err := Parse([]byte("not a zip archive"), meta, TargetCrawlerProducts)
	var uploadErr *Error
	require.True(t, errors.As(err, &uploadErr))
	assert.Equal(t, CodeParseError, uploadErr.Code)
}
