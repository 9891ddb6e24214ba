// Package export renders catalog tables back into the same CSV/XLSX formats
// the upload engine accepts, so an exported file can be edited and re-uploaded
// in full mode without any column fixup.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/pushkindt/pushkind-dantes/internal/upload"
)

// File is a rendered download ready to be streamed to the client.
type File struct {
	Name        string
	ContentType string
	Bytes       []byte
}

// Render produces baseName.csv or baseName.xlsx from a header row plus data
// rows. Cell values are escaped against spreadsheet formula injection before
// rendering.
func Render(baseName string, format upload.Format, headers []string, rows [][]string) (*File, error) {
	if format == upload.FormatXLSX {
		return renderXLSX(baseName, headers, rows)
	}
	return renderCSV(baseName, headers, rows)
}

func renderCSV(baseName string, headers []string, rows [][]string) (*File, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		escaped := make([]string, len(row))
		for i, cell := range row {
			escaped[i] = escapeCell(cell)
		}
		if err := writer.Write(escaped); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}

	return &File{
		Name:        baseName + ".csv",
		ContentType: "text/csv",
		Bytes:       buf.Bytes(),
	}, nil
}

func renderXLSX(baseName string, headers []string, rows [][]string) (*File, error) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	headerRow := make([]interface{}, len(headers))
	for i, h := range headers {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		return nil, fmt.Errorf("write xlsx header: %w", err)
	}

	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, cell := range row {
			cells[j] = escapeCell(cell)
		}
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("compute xlsx cell: %w", err)
		}
		if err := f.SetSheetRow(sheet, axis, &cells); err != nil {
			return nil, fmt.Errorf("write xlsx row: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("serialize xlsx: %w", err)
	}

	return &File{
		Name:        baseName + ".xlsx",
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Bytes:       buf.Bytes(),
	}, nil
}

// escapeCell neutralizes spreadsheet formula injection: a leading = + - or @
// would be evaluated by Excel when the exported file is opened, so such cells
// are prefixed with a single quote.
func escapeCell(value string) string {
	if value == "" {
		return value
	}
	if strings.ContainsRune("=+-@", rune(value[0])) {
		return "'" + value
	}
	return value
}
