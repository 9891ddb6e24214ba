package upload

import (
	"fmt"
	"strings"
)

// FileMeta describes an uploaded file the way the caller declared it. Nothing
// here is inferred from the file body.
type FileMeta struct {
	FileName    string
	ContentType string
	Format      string
	Mode        string
}

// Row is one parsed data row. Number is the 1-based source row (the header
// row is 1, so the first data row is 2) and Values maps every normalized
// header to the row's trimmed cell text.
type Row struct {
	Number int               `json:"rowNumber"`
	Values map[string]string `json:"values"`
}

// ParsedUpload is the uniform row model both format readers produce. Headers
// are lower-cased, trimmed, duplicate-free and already satisfy the mode
// contract for the chosen target schema.
type ParsedUpload struct {
	Format  Format
	Mode    Mode
	Headers []string
	Rows    []Row
}

// HasColumn reports whether the upload supplied the given column. In partial
// mode the reconciler inherits values for columns the upload did not carry.
func (p *ParsedUpload) HasColumn(name string) bool {
	for _, header := range p.Headers {
		if header == name {
			return true
		}
	}
	return false
}

// Parse validates the declared file metadata, reads the raw grid for the
// declared format, normalizes and contract-checks the header row, and builds
// the uniform row model. Every failure here is structural: nothing has been
// reconciled yet and the whole upload is rejected.
func Parse(data []byte, meta FileMeta, target Target) (*ParsedUpload, error) {
	format, err := ParseFormat(meta.Format)
	if err != nil {
		return nil, err
	}
	mode, err := ParseMode(meta.Mode)
	if err != nil {
		return nil, err
	}
	if err := CheckFileMeta(format, meta.FileName, meta.ContentType); err != nil {
		return nil, err
	}

	rawHeaders, rawRows, err := readRows(format, data)
	if err != nil {
		return nil, err
	}

	headers, err := normalizeHeaders(rawHeaders)
	if err != nil {
		return nil, err
	}
	if err := validateHeaders(target, mode, headers); err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(rawRows))
	for i, raw := range rawRows {
		values := make(map[string]string, len(headers))
		for col, header := range headers {
			value := ""
			if col < len(raw) {
				value = raw[col]
			}
			values[header] = strings.TrimSpace(value)
		}
		rows = append(rows, Row{Number: i + 2, Values: values})
	}

	return &ParsedUpload{
		Format:  format,
		Mode:    mode,
		Headers: headers,
		Rows:    rows,
	}, nil
}

// normalizeHeaders trims and lower-cases the raw header row and rejects empty
// or repeated column names, so everything downstream compares plain
// identifiers.
func normalizeHeaders(raw []string) ([]string, error) {
	if len(raw) == 0 {
		return nil, newError(CodeHeaderValidation, "missing header row")
	}

	normalized := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, header := range raw {
		name := strings.ToLower(strings.TrimSpace(header))
		if name == "" {
			return nil, newError(CodeHeaderValidation, "header contains empty column name")
		}
		if seen[name] {
			return nil, newError(CodeHeaderValidation, fmt.Sprintf("duplicate header column: %s", name))
		}
		seen[name] = true
		normalized = append(normalized, name)
	}

	return normalized, nil
}

// validateHeaders enforces the mode contract against the target schema.
// Full mode demands set equality with the full column list; partial mode
// demands the key column plus any subset of known columns. Unknown columns
// are rejected in both modes so a typo'd column name cannot silently drop
// data.
func validateHeaders(target Target, mode Mode, headers []string) error {
	expected := make(map[string]bool, len(target.Columns()))
	for _, column := range target.Columns() {
		expected[column] = true
	}

	switch mode {
	case ModeFull:
		if len(headers) != len(expected) {
			return fullModeError(target)
		}
		for _, header := range headers {
			if !expected[header] {
				return fullModeError(target)
			}
		}
	case ModePartial:
		hasKey := false
		for _, header := range headers {
			if !expected[header] {
				return newError(CodeHeaderValidation, fmt.Sprintf("unsupported column: %s", header))
			}
			if header == KeyColumn {
				hasKey = true
			}
		}
		if !hasKey {
			return newError(CodeHeaderValidation, fmt.Sprintf("partial mode requires %s column", KeyColumn))
		}
	}

	return nil
}

func fullModeError(target Target) error {
	return newError(CodeHeaderValidation,
		fmt.Sprintf("full mode requires exact headers: %s", strings.Join(target.Columns(), ",")))
}
