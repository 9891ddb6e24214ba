package upload

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pushkindt/pushkind-dantes/internal/models"
)

// ProductStore is the storage collaborator for crawler-product reconciliation.
// Lookups and writes are scoped to one crawler; key uniqueness inside that
// scope is the storage layer's responsibility.
type ProductStore interface {
	ListBySKU(crawlerID uuid.UUID, sku string) ([]models.CrawlerProduct, error)
	Create(product *models.CrawlerProduct) error
	Update(id uuid.UUID, product *models.CrawlerProduct) error
}

// BenchmarkStore is the storage collaborator for benchmark reconciliation,
// scoped to a hub.
type BenchmarkStore interface {
	ListBySKU(hubID string, sku string) ([]models.Benchmark, error)
	Create(benchmark *models.Benchmark) error
	Update(id uuid.UUID, benchmark *models.Benchmark) error
}

// Row error messages shared by both targets.
const (
	msgMissingSKU       = "missing sku"
	msgDuplicateSKU     = "duplicate sku in uploaded file"
	msgMultipleExisting = "multiple existing records found for sku"
	msgCreateGate       = "partial mode create requires all required fields"
	msgCreateFailed     = "failed to create record"
	msgUpdateFailed     = "failed to update record"
)

var urlValidator = validator.New()

// ReconcileCrawlerProducts applies a validated upload against one crawler's
// catalog, row by row. Rows are independent: a failing row is recorded in the
// report and the batch continues. Only a lookup failure aborts, since without
// the existing records no create-vs-update decision can be made safely.
func ReconcileCrawlerProducts(parsed *ParsedUpload, crawlerID uuid.UUID, store ProductStore, logger *logrus.Entry) (*UploadReport, error) {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	report := newReport(len(parsed.Rows))
	seen := make(map[string]bool)

	for _, row := range parsed.Rows {
		sku, ok := extractSKU(row, seen, report)
		if !ok {
			continue
		}

		existing, err := store.ListBySKU(crawlerID, sku)
		if err != nil {
			logger.WithError(err).Error("Failed to look up products by sku")
			return nil, fmt.Errorf("lookup products by sku: %w", err)
		}
		if len(existing) > 1 {
			report.pushError(row.Number, sku, msgMultipleExisting)
			continue
		}

		values := copyValues(row.Values)
		if parsed.Mode == ModePartial && len(existing) == 1 {
			inheritProductFields(values, parsed, &existing[0])
		}

		if len(existing) == 1 {
			product, msg := buildProduct(values, crawlerID)
			if msg != "" {
				report.pushError(row.Number, sku, msg)
				continue
			}
			if err := store.Update(existing[0].ID, product); err != nil {
				logger.WithError(err).WithField("sku", sku).Error("Failed to update product")
				report.pushError(row.Number, sku, msgUpdateFailed)
				continue
			}
			report.Updated++
			continue
		}

		if parsed.Mode == ModePartial && !gateSatisfied(values, TargetCrawlerProducts) {
			report.pushError(row.Number, sku, msgCreateGate)
			continue
		}

		product, msg := buildProduct(values, crawlerID)
		if msg != "" {
			report.pushError(row.Number, sku, msg)
			continue
		}
		if err := store.Create(product); err != nil {
			logger.WithError(err).WithField("sku", sku).Error("Failed to create product")
			report.pushError(row.Number, sku, msgCreateFailed)
			continue
		}
		report.Created++
	}

	return report, nil
}

// ReconcileBenchmarks is the benchmark counterpart of
// ReconcileCrawlerProducts; the per-row algorithm is identical, only the
// record shape and required fields differ.
func ReconcileBenchmarks(parsed *ParsedUpload, hubID string, store BenchmarkStore, logger *logrus.Entry) (*UploadReport, error) {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	report := newReport(len(parsed.Rows))
	seen := make(map[string]bool)

	for _, row := range parsed.Rows {
		sku, ok := extractSKU(row, seen, report)
		if !ok {
			continue
		}

		existing, err := store.ListBySKU(hubID, sku)
		if err != nil {
			logger.WithError(err).Error("Failed to look up benchmarks by sku")
			return nil, fmt.Errorf("lookup benchmarks by sku: %w", err)
		}
		if len(existing) > 1 {
			report.pushError(row.Number, sku, msgMultipleExisting)
			continue
		}

		values := copyValues(row.Values)
		if parsed.Mode == ModePartial && len(existing) == 1 {
			inheritBenchmarkFields(values, parsed, &existing[0])
		}

		if len(existing) == 1 {
			benchmark, msg := buildBenchmark(values, hubID)
			if msg != "" {
				report.pushError(row.Number, sku, msg)
				continue
			}
			if err := store.Update(existing[0].ID, benchmark); err != nil {
				logger.WithError(err).WithField("sku", sku).Error("Failed to update benchmark")
				report.pushError(row.Number, sku, msgUpdateFailed)
				continue
			}
			report.Updated++
			continue
		}

		if parsed.Mode == ModePartial && !gateSatisfied(values, TargetBenchmarks) {
			report.pushError(row.Number, sku, msgCreateGate)
			continue
		}

		benchmark, msg := buildBenchmark(values, hubID)
		if msg != "" {
			report.pushError(row.Number, sku, msg)
			continue
		}
		if err := store.Create(benchmark); err != nil {
			logger.WithError(err).WithField("sku", sku).Error("Failed to create benchmark")
			report.pushError(row.Number, sku, msgCreateFailed)
			continue
		}
		report.Created++
	}

	return report, nil
}

// extractSKU pulls the key cell out of a row, rejecting empty keys and keys
// already seen earlier in the same upload. In-file de-duplication runs before
// any database lookup so same-key rows never reach storage twice.
func extractSKU(row Row, seen map[string]bool, report *UploadReport) (string, bool) {
	sku := strings.TrimSpace(row.Values[KeyColumn])
	if sku == "" {
		report.pushError(row.Number, "", msgMissingSKU)
		return "", false
	}
	if seen[sku] {
		report.pushError(row.Number, sku, msgDuplicateSKU)
		return "", false
	}
	seen[sku] = true
	return sku, true
}

func copyValues(values map[string]string) map[string]string {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return copied
}

// gateSatisfied checks the partial-mode create-gate: a brand-new record may
// only be created when every schema-required field is non-empty after
// inheritance. Presence is checked before type validation so the operator
// sees one actionable message instead of a cascade of per-field failures.
func gateSatisfied(values map[string]string, target Target) bool {
	for _, field := range target.RequiredColumns() {
		if strings.TrimSpace(values[field]) == "" {
			return false
		}
	}
	return true
}

// inheritProductFields fills columns absent from the upload's header set with
// the existing record's values. Only columns the upload did not carry are
// inherited; an empty cell under a supplied column means "clear", not "keep".
func inheritProductFields(values map[string]string, parsed *ParsedUpload, current *models.CrawlerProduct) {
	inherit := func(column, value string) {
		if !parsed.HasColumn(column) {
			values[column] = value
		}
	}
	inherit("name", current.Name)
	inherit("price", formatFloat(current.Price))
	inherit("category", deref(current.Category))
	inherit("units", deref(current.Units))
	inherit("amount", formatOptionalFloat(current.Amount))
	inherit("description", deref(current.Description))
	inherit("url", deref(current.URL))
}

func inheritBenchmarkFields(values map[string]string, parsed *ParsedUpload, current *models.Benchmark) {
	inherit := func(column, value string) {
		if !parsed.HasColumn(column) {
			values[column] = value
		}
	}
	inherit("name", current.Name)
	inherit("category", current.Category)
	inherit("units", current.Units)
	inherit("price", formatFloat(current.Price))
	inherit("amount", formatFloat(current.Amount))
	inherit("description", current.Description)
}

// buildProduct validates the merged cells and assembles a crawler product.
// The returned message is empty on success and names the offending field
// otherwise.
func buildProduct(values map[string]string, crawlerID uuid.UUID) (*models.CrawlerProduct, string) {
	sku, msg := requireField(values, "sku")
	if msg != "" {
		return nil, msg
	}
	name, msg := requireField(values, "name")
	if msg != "" {
		return nil, msg
	}

	price, msg := parsePrice(values["price"])
	if msg != "" {
		return nil, msg
	}
	amount, msg := parseOptionalAmount(values["amount"])
	if msg != "" {
		return nil, msg
	}

	var url *string
	if raw := strings.TrimSpace(values["url"]); raw != "" {
		if err := urlValidator.Var(raw, "url"); err != nil {
			return nil, "url must be a valid URL"
		}
		url = &raw
	}

	return &models.CrawlerProduct{
		CrawlerID:   crawlerID,
		Name:        name,
		SKU:         sku,
		Category:    optionalString(values["category"]),
		Units:       optionalString(values["units"]),
		Price:       price,
		Amount:      amount,
		Description: optionalString(values["description"]),
		URL:         url,
	}, ""
}

func buildBenchmark(values map[string]string, hubID string) (*models.Benchmark, string) {
	sku, msg := requireField(values, "sku")
	if msg != "" {
		return nil, msg
	}
	name, msg := requireField(values, "name")
	if msg != "" {
		return nil, msg
	}
	category, msg := requireField(values, "category")
	if msg != "" {
		return nil, msg
	}
	units, msg := requireField(values, "units")
	if msg != "" {
		return nil, msg
	}
	description, msg := requireField(values, "description")
	if msg != "" {
		return nil, msg
	}

	price, msg := parsePrice(values["price"])
	if msg != "" {
		return nil, msg
	}
	amount, msg := parseAmount(values["amount"])
	if msg != "" {
		return nil, msg
	}

	return &models.Benchmark{
		HubID:       hubID,
		Name:        name,
		SKU:         sku,
		Category:    category,
		Units:       units,
		Price:       price,
		Amount:      amount,
		Description: description,
	}, ""
}

func requireField(values map[string]string, field string) (string, string) {
	value := strings.TrimSpace(values[field])
	if value == "" {
		return "", fmt.Sprintf("%s cannot be empty", field)
	}
	return value, ""
}

func parsePrice(raw string) (float64, string) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsInf(value, 0) || math.IsNaN(value) {
		return 0, "invalid numeric value for price"
	}
	if value < 0 {
		return 0, "price must be zero or greater"
	}
	return value, ""
}

func parseAmount(raw string) (float64, string) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsInf(value, 0) || math.IsNaN(value) {
		return 0, "invalid numeric value for amount"
	}
	if value <= 0 {
		return 0, "amount must be greater than zero"
	}
	return value, ""
}

func parseOptionalAmount(raw string) (*float64, string) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, ""
	}
	value, msg := parseAmount(trimmed)
	if msg != "" {
		return nil, msg
	}
	return &value, ""
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func formatOptionalFloat(value *float64) string {
	if value == nil {
		return ""
	}
	return formatFloat(*value)
}
