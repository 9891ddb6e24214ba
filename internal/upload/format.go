package upload

import (
	"fmt"
	"strings"
)

// Format identifies the physical encoding of an uploaded file.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat resolves a caller-declared format string. The declared format
// is authoritative; it is never sniffed from the file body.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "csv":
		return FormatCSV, nil
	case "xlsx":
		return FormatXLSX, nil
	default:
		return "", newError(CodeInvalidFormat, fmt.Sprintf("invalid upload format: %q", value))
	}
}

// Mode selects the header contract an upload must satisfy.
type Mode string

const (
	// ModeFull requires the header row to match the target schema exactly.
	ModeFull Mode = "full"
	// ModePartial allows a subset of columns (sku mandatory) for
	// incremental field updates.
	ModePartial Mode = "partial"
)

func ParseMode(value string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "full":
		return ModeFull, nil
	case "partial":
		return ModePartial, nil
	default:
		return "", newError(CodeInvalidMode, fmt.Sprintf("invalid upload mode: %q", value))
	}
}

// KeyColumn is the natural-key column every target schema carries.
const KeyColumn = "sku"

// Target selects which catalog an upload reconciles against.
type Target string

const (
	TargetCrawlerProducts Target = "crawler-products"
	TargetBenchmarks      Target = "benchmarks"
)

var (
	crawlerProductColumns = []string{"sku", "name", "category", "units", "price", "amount", "description", "url"}
	benchmarkColumns      = []string{"sku", "name", "category", "units", "price", "amount", "description"}

	crawlerProductRequired = []string{"name", "price"}
	benchmarkRequired      = []string{"name", "category", "units", "price", "amount", "description"}
)

// Columns returns the target's full ordered column set.
func (t Target) Columns() []string {
	if t == TargetBenchmarks {
		return benchmarkColumns
	}
	return crawlerProductColumns
}

// RequiredColumns returns the non-key columns that must be non-empty to
// create a brand-new record (the partial-mode create-gate).
func (t Target) RequiredColumns() []string {
	if t == TargetBenchmarks {
		return benchmarkRequired
	}
	return crawlerProductRequired
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Browsers and HTTP clients disagree wildly on the MIME type for CSV:
// Windows/Excel sends application/vnd.ms-excel, curl and some browsers fall
// back to application/octet-stream or text/plain. The extension check above
// is the real gate; the content-type check only rejects types that clearly
// name a different format.
var csvContentTypes = map[string]bool{
	"text/csv":                 true,
	"application/csv":          true,
	"application/vnd.ms-excel": true,
	"application/octet-stream": true,
	"text/plain":               true,
}

// CheckFileMeta verifies that the declared format agrees with the uploaded
// file's name suffix and, when supplied, its content type. A mismatch is a
// structural error distinct from a parse failure so the caller can tell the
// operator "you said csv but uploaded an .xlsx".
func CheckFileMeta(format Format, fileName, contentType string) error {
	if strings.TrimSpace(fileName) == "" {
		return newError(CodeFileRequired, "uploaded file is missing")
	}

	lower := strings.ToLower(fileName)
	extensionOK := strings.HasSuffix(lower, ".csv")
	if format == FormatXLSX {
		extensionOK = strings.HasSuffix(lower, ".xlsx")
	}
	if !extensionOK {
		return newError(CodeFormatMismatch, "uploaded file extension does not match selected format")
	}

	if contentType == "" {
		return nil
	}
	mime := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	contentTypeOK := csvContentTypes[mime]
	if format == FormatXLSX {
		// octet-stream is allowed for the same browser-compat reason as CSV.
		contentTypeOK = mime == xlsxContentType || mime == "application/octet-stream"
	}
	if !contentTypeOK {
		return newError(CodeFormatMismatch, "uploaded file content type does not match selected format")
	}

	return nil
}
