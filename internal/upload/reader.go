package upload

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// readRows dispatches on the declared format and returns the raw header row
// plus body rows as untrimmed string grids. The readers are the only code
// aware of the physical file encoding; trimming and case-folding happen once,
// later, in the normalizer.
func readRows(format Format, data []byte) ([]string, [][]string, error) {
	if format == FormatXLSX {
		return readXLSXRows(data)
	}
	return readCSVRows(data)
}

// utf8BOM is the byte order mark Excel prepends when saving "CSV UTF-8".
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func readCSVRows(data []byte) ([]string, [][]string, error) {
	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	// Rows may legitimately carry fewer cells than the header (trailing
	// blanks); the normalizer pads them, so disable the length check.
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, newError(CodeHeaderValidation, "missing header row")
	}
	if err != nil {
		return nil, nil, newError(CodeParseError, fmt.Sprintf("failed to parse CSV: %v", err))
	}

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, newError(CodeParseError, fmt.Sprintf("failed to parse CSV: %v", err))
		}
		rows = append(rows, record)
	}

	return header, rows, nil
}

func readXLSXRows(data []byte) ([]string, [][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, newError(CodeParseError, fmt.Sprintf("failed to open XLSX file: %v", err))
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, newError(CodeParseError, "uploaded file has no worksheet")
	}

	// Only the first worksheet is read; excelize returns empty cells as "".
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, newError(CodeParseError, fmt.Sprintf("failed to read worksheet: %v", err))
	}
	if len(rows) == 0 {
		return nil, nil, newError(CodeHeaderValidation, "missing header row")
	}

	return rows[0], rows[1:], nil
}
