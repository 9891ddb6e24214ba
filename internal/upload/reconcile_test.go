package upload

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pushkindt/pushkind-dantes/internal/models"
)

type mockProductStore struct {
	mock.Mock
}

func (m *mockProductStore) ListBySKU(crawlerID uuid.UUID, sku string) ([]models.CrawlerProduct, error) {
	args := m.Called(crawlerID, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CrawlerProduct), args.Error(1)
}

func (m *mockProductStore) Create(product *models.CrawlerProduct) error {
	return m.Called(product).Error(0)
}

func (m *mockProductStore) Update(id uuid.UUID, product *models.CrawlerProduct) error {
	return m.Called(id, product).Error(0)
}

type mockBenchmarkStore struct {
	mock.Mock
}

func (m *mockBenchmarkStore) ListBySKU(hubID string, sku string) ([]models.Benchmark, error) {
	args := m.Called(hubID, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Benchmark), args.Error(1)
}

func (m *mockBenchmarkStore) Create(benchmark *models.Benchmark) error {
	return m.Called(benchmark).Error(0)
}

func (m *mockBenchmarkStore) Update(id uuid.UUID, benchmark *models.Benchmark) error {
	return m.Called(id, benchmark).Error(0)
}

func fullUpload(mode Mode, rows ...Row) *ParsedUpload {
	return &ParsedUpload{
		Format:  FormatCSV,
		Mode:    mode,
		Headers: crawlerProductColumns,
		Rows:    rows,
	}
}

func productRow(number int, sku, name, price string) Row {
	return Row{
		Number: number,
		Values: map[string]string{
			"sku": sku, "name": name, "category": "", "units": "",
			"price": price, "amount": "", "description": "", "url": "",
		},
	}
}

func assertReportInvariant(t *testing.T, report *UploadReport) {
	t.Helper()
	assert.Equal(t, report.TotalRows, report.Created+report.Updated+report.Skipped)
	assert.Len(t, report.Errors, report.Skipped)
}

func TestReconcileCreatesNewProduct(t *testing.T) {
	crawlerID := uuid.New()
	store := new(mockProductStore)
	store.On("ListBySKU", crawlerID, "A1").Return([]models.CrawlerProduct{}, nil)
	store.On("Create", mock.MatchedBy(func(p *models.CrawlerProduct) bool {
		return p.SKU == "A1" && p.Name == "Widget" && p.Price == 10.5 && p.CrawlerID == crawlerID
	})).Return(nil)

	parsed := fullUpload(ModeFull, productRow(2, "A1", "Widget", "10.5"))
	report, err := ReconcileCrawlerProducts(parsed, crawlerID, store, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 0, report.Updated)
	assert.Equal(t, 0, report.Skipped)
	assertReportInvariant(t, report)
	store.AssertExpectations(t)
}

func TestReconcileUpdatesExistingProduct(t *testing.T) {
	crawlerID := uuid.New()
	existingID := uuid.New()
	store := new(mockProductStore)
	store.On("ListBySKU", crawlerID, "A1").Return([]models.CrawlerProduct{
		{ID: existingID, CrawlerID: crawlerID, SKU: "A1", Name: "Old", Price: 1},
	}, nil)
	store.On("Update", existingID, mock.MatchedBy(func(p *models.CrawlerProduct) bool {
		return p.Name == "New" && p.Price == 2
	})).Return(nil)

	parsed := fullUpload(ModeFull, productRow(2, "A1", "New", "2"))
	report, err := ReconcileCrawlerProducts(parsed, crawlerID, store, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, report.Created)
	assert.Equal(t, 1, report.Updated)
	assertReportInvariant(t, report)
	store.AssertExpectations(t)
}

func TestReconcileIsIdempotentPerRowDecision(t *testing.T) {
	// Re-uploading the same file against the state it produced turns every
	// create into an update; nothing is duplicated.
	crawlerID := uuid.New()
	existingID := uuid.New()
	store := new(mockProductStore)
	store.On("ListBySKU", crawlerID, "A1").Return([]models.CrawlerProduct{
		{ID: existingID, CrawlerID: crawlerID, SKU: "A1", Name: "Widget", Price: 10.5},
	}, nil)
	store.On("Update", existingID, mock.Anything).Return(nil)

	parsed := fullUpload(ModeFull, productRow(2, "A1", "Widget", "10.5"))
	report, err := ReconcileCrawlerProducts(parsed, crawlerID, store, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, report.Created)
	assert.Equal(t, 1, report.Updated)
	store.AssertExpectations(t)
}

func TestReconcileRejectsMissingSKU(t *testing.T) {
	store := new(mockProductStore)

	parsed := fullUpload(ModeFull, productRow(2, "  ", "Widget", "10"))
	report, err := ReconcileCrawlerProducts(parsed, uuid.New(), store, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Skipped)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, 2, report.Errors[0].RowNumber)
	assert.Empty(t, report.Errors[0].SKU)
	assert.Equal(t, "missing sku", report.Errors[0].Message)
	assertReportInvariant(t, report)
	// No lookup happens for a row without a key.
	store.AssertNotCalled(t, "ListBySKU", mock.Anything, mock.Anything)
}

func TestReconcileRejectsDuplicateSKUInFile(t *testing.T) {
	crawlerID := uuid.New()
	store := new(mockProductStore)
	store.On("ListBySKU", crawlerID, "A1").Return([]models.CrawlerProduct{}, nil).Once()
	store.On("Create", mock.Anything).Return(nil).Once()

	parsed := fullUpload(ModeFull,
		productRow(2, "A1", "Widget", "10"),
		productRow(3, "A1", "Widget again", "11"),
	)
	report, err := ReconcileCrawlerProducts(parsed, crawlerID, store, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, 3, report.Errors[0].RowNumber)
	assert.Equal(t, "duplicate sku in uploaded file", report.Errors[0].Message)
	assertReportInvariant(t, report)
	store.AssertExpectations(t)
}

func TestReconcileRejectsMultipleExistingMatches(t *testing.T) {
	crawlerID := uuid.New()
	store := new(mockProductStore)
	store.On("ListBySKU", crawlerID, "A1").Return([]models.CrawlerProduct{
		{ID: uuid.New(), SKU: "A1"},
		{ID: uuid.New(), SKU: "A1"},
	}, nil)

	parsed := fullUpload(ModeFull, productRow(2, "A1", "Widget", "10"))
	report, err := ReconcileCrawlerProducts(parsed, crawlerID, store, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Skipped)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "multiple existing records found for sku", report.Errors[0].Message)
	store.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "Create", mock.Anything)
}

func TestReconcileAbortsOnLookupFailure(t *testing.T) {
	crawlerID := uuid.New()
	store := new(mockProductStore)
	store.On("ListBySKU", crawlerID, "A1").Return(nil, errors.New("connection refused"))

	parsed := fullUpload(ModeFull, productRow(2, "A1", "Widget", "10"))
	report, err := ReconcileCrawlerProducts(parsed, crawlerID, store, nil)

	assert.Error(t, err)
	assert.Nil(t, report)
}

func TestReconcileRecordsWriteFailuresAsRowErrors(t *testing.T) {
	crawlerID := uuid.New()
	store := new(mockProductStore)
	store.On("ListBySKU", crawlerID, "A1").Return([]models.CrawlerProduct{}, nil)
	store.On("ListBySKU", crawlerID, "A2").Return([]models.CrawlerProduct{}, nil)
	store.On("Create", mock.MatchedBy(func(p *models.CrawlerProduct) bool { return p.SKU == "A1" })).
		Return(errors.New("constraint violation"))
	store.On("Create", mock.MatchedBy(func(p *models.CrawlerProduct) bool { return p.SKU == "A2" })).
		Return(nil)

	parsed := fullUpload(ModeFull,
		productRow(2, "A1", "Widget", "10"),
		productRow(3, "A2", "Gadget", "20"),
	)
	report, err := ReconcileCrawlerProducts(parsed, crawlerID, store, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "failed to create record", report.Errors[0].Message)
	assertReportInvariant(t, report)
}

func TestReconcileRejectsInvalidPrice(t *testing.T) {
	crawlerID := uuid.New()
	store := new(mockProductStore)
	store.On("ListBySKU", crawlerID, mock.Anything).Return([]models.CrawlerProduct{}, nil)

	parsed := fullUpload(ModeFull,
		productRow(2, "A1", "Widget", "abc"),
		productRow(3, "A2", "Widget", "-5"),
	)
	report, err := ReconcileCrawlerProducts(parsed, crawlerID, store, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Skipped)
	require.Len(t, report.Errors, 2)
	assert.Equal(t, "invalid numeric value for price", report.Errors[0].Message)
	assert.Equal(t, "price must be zero or greater", report.Errors[1].Message)
	store.AssertNotCalled(t, "Create", mock.Anything)
}

func TestReconcileRejectsInvalidURL(t *testing.T) {
	crawlerID := uuid.New()
	store := new(mockProductStore)
	store.On("ListBySKU", crawlerID, "A1").Return([]models.CrawlerProduct{}, nil)

	row := productRow(2, "A1", "Widget", "10")
	row.Values["url"] = "not a url"
	report, err := ReconcileCrawlerProducts(fullUpload(ModeFull, row), crawlerID, store, nil)
	require.NoError(t, err)

	require.Len(t, report.Errors, 1)
	assert.Equal(t, "url must be a valid URL", report.Errors[0].Message)
}

func TestReconcilePartialUpdateInheritsAbsentColumns(t *testing.T) {
	crawlerID := uuid.New()
	existingID := uuid.New()
	category := "tools"
	description := "solid widget"
	store := new(mockProductStore)
	store.On("ListBySKU", crawlerID, "A1").Return([]models.CrawlerProduct{
		{
			ID: existingID, CrawlerID: crawlerID, SKU: "A1", Name: "Widget",
			Price: 10, Category: &category, Description: &description,
		},
	}, nil)
	store.On("Update", existingID, mock.MatchedBy(func(p *models.CrawlerProduct) bool {
		return p.Price == 12.5 && p.Name == "Widget" &&
			p.Category != nil && *p.Category == "tools" &&
			p.Description != nil && *p.Description == "solid widget"
	})).Return(nil)

	parsed := &ParsedUpload{
		Format:  FormatCSV,
		Mode:    ModePartial,
		Headers: []string{"sku", "price"},
		Rows: []Row{
			{Number: 2, Values: map[string]string{"sku": "A1", "price": "12.5"}},
		},
	}
	report, err := ReconcileCrawlerProducts(parsed, crawlerID, store, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Updated)
	store.AssertExpectations(t)
}

func TestReconcilePartialUpdateClearsSuppliedEmptyColumn(t *testing.T) {
	// An empty cell under a supplied column clears the field; absence of the
	// column keeps it.
	crawlerID := uuid.New()
	existingID := uuid.New()
	description := "solid widget"
	store := new(mockProductStore)
	store.On("ListBySKU", crawlerID, "A1").Return([]models.CrawlerProduct{
		{ID: existingID, CrawlerID: crawlerID, SKU: "A1", Name: "Widget", Price: 10, Description: &description},
	}, nil)
	store.On("Update", existingID, mock.MatchedBy(func(p *models.CrawlerProduct) bool {
		return p.Description == nil
	})).Return(nil)

	parsed := &ParsedUpload{
		Format:  FormatCSV,
		Mode:    ModePartial,
		Headers: []string{"sku", "description"},
		Rows: []Row{
			{Number: 2, Values: map[string]string{"sku": "A1", "description": ""}},
		},
	}
	report, err := ReconcileCrawlerProducts(parsed, crawlerID, store, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Updated)
	store.AssertExpectations(t)
}

func TestReconcilePartialCreateGate(t *testing.T) {
	crawlerID := uuid.New()
	store := new(mockProductStore)
	store.On("ListBySKU", crawlerID, mock.Anything).Return([]models.CrawlerProduct{}, nil)
	store.On("Create", mock.MatchedBy(func(p *models.CrawlerProduct) bool {
		return p.SKU == "A2"
	})).Return(nil)

	parsed := &ParsedUpload{
		Format:  FormatCSV,
		Mode:    ModePartial,
		Headers: []string{"sku", "name", "price"},
		Rows: []Row{
			// Price empty: no existing record, create blocked.
			{Number: 2, Values: map[string]string{"sku": "A1", "name": "Widget", "price": ""}},
			// All required fields present: create allowed.
			{Number: 3, Values: map[string]string{"sku": "A2", "name": "Gadget", "price": "5"}},
		},
	}
	report, err := ReconcileCrawlerProducts(parsed, crawlerID, store, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, 2, report.Errors[0].RowNumber)
	assert.Equal(t, "partial mode create requires all required fields", report.Errors[0].Message)
	assertReportInvariant(t, report)
	store.AssertExpectations(t)
}

func TestReconcilePartialCreateGateMissingColumn(t *testing.T) {
	// A column the upload never carried counts as empty for the gate.
	crawlerID := uuid.New()
	store := new(mockProductStore)
	store.On("ListBySKU", crawlerID, "A1").Return([]models.CrawlerProduct{}, nil)

	parsed := &ParsedUpload{
		Format:  FormatCSV,
		Mode:    ModePartial,
		Headers: []string{"sku", "price"},
		Rows: []Row{
			{Number: 2, Values: map[string]string{"sku": "A1", "price": "5"}},
		},
	}
	report, err := ReconcileCrawlerProducts(parsed, crawlerID, store, nil)
	require.NoError(t, err)

	require.Len(t, report.Errors, 1)
	assert.Equal(t, "partial mode create requires all required fields", report.Errors[0].Message)
	store.AssertNotCalled(t, "Create", mock.Anything)
}

func TestReconcileBenchmarksRequiresAllFields(t *testing.T) {
	store := new(mockBenchmarkStore)
	store.On("ListBySKU", "hub-1", "B1").Return([]models.Benchmark{}, nil)

	parsed := &ParsedUpload{
		Format:  FormatCSV,
		Mode:    ModeFull,
		Headers: benchmarkColumns,
		Rows: []Row{
			{Number: 2, Values: map[string]string{
				"sku": "B1", "name": "Bench", "category": "tools", "units": "pcs",
				"price": "10", "amount": "1", "description": "",
			}},
		},
	}
	report, err := ReconcileBenchmarks(parsed, "hub-1", store, nil)
	require.NoError(t, err)

	require.Len(t, report.Errors, 1)
	assert.Equal(t, "description cannot be empty", report.Errors[0].Message)
	store.AssertNotCalled(t, "Create", mock.Anything)
}

func TestReconcileBenchmarksRejectsZeroAmount(t *testing.T) {
	store := new(mockBenchmarkStore)
	store.On("ListBySKU", "hub-1", "B1").Return([]models.Benchmark{}, nil)

	parsed := &ParsedUpload{
		Format:  FormatCSV,
		Mode:    ModeFull,
		Headers: benchmarkColumns,
		Rows: []Row{
			{Number: 2, Values: map[string]string{
				"sku": "B1", "name": "Bench", "category": "tools", "units": "pcs",
				"price": "10", "amount": "0", "description": "ok",
			}},
		},
	}
	report, err := ReconcileBenchmarks(parsed, "hub-1", store, nil)
	require.NoError(t, err)

	require.Len(t, report.Errors, 1)
	assert.Equal(t, "amount must be greater than zero", report.Errors[0].Message)
}

func TestReconcileBenchmarksCreatesAndUpdates(t *testing.T) {
	existingID := uuid.New()
	store := new(mockBenchmarkStore)
	store.On("ListBySKU", "hub-1", "B1").Return([]models.Benchmark{}, nil)
	store.On("ListBySKU", "hub-1", "B2").Return([]models.Benchmark{
		{ID: existingID, HubID: "hub-1", SKU: "B2", Name: "Old", Category: "c", Units: "u", Price: 1, Amount: 1, Description: "d"},
	}, nil)
	store.On("Create", mock.MatchedBy(func(b *models.Benchmark) bool {
		return b.SKU == "B1" && b.HubID == "hub-1" && b.Amount == 2
	})).Return(nil)
	store.On("Update", existingID, mock.MatchedBy(func(b *models.Benchmark) bool {
		return b.Name == "New"
	})).Return(nil)

	row := func(number int, sku, name string) Row {
		return Row{Number: number, Values: map[string]string{
			"sku": sku, "name": name, "category": "tools", "units": "pcs",
			"price": "10", "amount": "2", "description": "ok",
		}}
	}
	parsed := &ParsedUpload{
		Format:  FormatCSV,
		Mode:    ModeFull,
		Headers: benchmarkColumns,
		Rows:    []Row{row(2, "B1", "Bench"), row(3, "B2", "New")},
	}
	report, err := ReconcileBenchmarks(parsed, "hub-1", store, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 0, report.Skipped)
	assertReportInvariant(t, report)
	store.AssertExpectations(t)
}
