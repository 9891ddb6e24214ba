package upload

// UploadRowError explains why a single row was skipped. SKU is empty when the
// key could not be extracted from the row.
type UploadRowError struct {
	RowNumber int    `json:"rowNumber"`
	SKU       string `json:"sku,omitempty"`
	Message   string `json:"message"`
}

// UploadReport is the aggregated outcome of one reconciliation run.
// Invariants: TotalRows == Created + Updated + Skipped, and every skip is
// explained by exactly one entry in Errors.
type UploadReport struct {
	TotalRows int              `json:"totalRows"`
	Created   int              `json:"created"`
	Updated   int              `json:"updated"`
	Skipped   int              `json:"skipped"`
	Errors    []UploadRowError `json:"errors"`
}

func newReport(totalRows int) *UploadReport {
	return &UploadReport{
		TotalRows: totalRows,
		Errors:    []UploadRowError{},
	}
}

// pushError records a row failure and counts the row as skipped.
func (r *UploadReport) pushError(rowNumber int, sku, message string) {
	r.Skipped++
	r.Errors = append(r.Errors, UploadRowError{
		RowNumber: rowNumber,
		SKU:       sku,
		Message:   message,
	})
}
