package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/pushkindt/pushkind-dantes/internal/events"
	"github.com/pushkindt/pushkind-dantes/internal/export"
	"github.com/pushkindt/pushkind-dantes/internal/middleware"
	"github.com/pushkindt/pushkind-dantes/internal/models"
	"github.com/pushkindt/pushkind-dantes/internal/repository"
	"github.com/pushkindt/pushkind-dantes/internal/upload"
)

type BenchmarksHandler struct {
	benchmarksRepo *repository.BenchmarksRepository
	publisher      *events.Publisher
	logger         *logrus.Logger
}

func NewBenchmarksHandler(benchmarksRepo *repository.BenchmarksRepository, publisher *events.Publisher, logger *logrus.Logger) *BenchmarksHandler {
	return &BenchmarksHandler{
		benchmarksRepo: benchmarksRepo,
		publisher:      publisher,
		logger:         logger,
	}
}

// GetBenchmarks returns one page of the hub's benchmarks
// @Summary List benchmarks
// @Tags benchmarks
// @Produce json
// @Success 200 {object} models.BenchmarkListResponse
// @Router /benchmarks [get]
func (h *BenchmarksHandler) GetBenchmarks(c *gin.Context) {
	hubID := middleware.GetHubID(c)

	page, limit := paginationParams(c)
	benchmarks, total, err := h.benchmarksRepo.GetBenchmarks(hubID, page, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list benchmarks")
		respondInternalError(c, "Failed to list benchmarks")
		return
	}

	c.JSON(http.StatusOK, models.BenchmarkListResponse{
		Success:    true,
		Data:       benchmarks,
		Pagination: buildPagination(page, limit, total),
	})
}

// GetBenchmark returns a single benchmark
// @Summary Get benchmark
// @Tags benchmarks
// @Produce json
// @Param id path string true "Benchmark ID"
// @Success 200 {object} models.SuccessResponse
// @Router /benchmarks/{id} [get]
func (h *BenchmarksHandler) GetBenchmark(c *gin.Context) {
	hubID := middleware.GetHubID(c)

	benchmarkID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_ID",
				Message: "Invalid benchmark ID format",
			},
		})
		return
	}

	benchmark, err := h.benchmarksRepo.GetBenchmarkByID(hubID, benchmarkID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondBenchmarkNotFound(c)
			return
		}
		h.logger.WithError(err).WithField("benchmarkId", benchmarkID).Error("Failed to load benchmark")
		respondInternalError(c, "Failed to load benchmark")
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: benchmark})
}

// CreateBenchmark creates a single benchmark by hand
// @Summary Create benchmark
// @Tags benchmarks
// @Accept json
// @Produce json
// @Param benchmark body models.CreateBenchmarkRequest true "Benchmark"
// @Success 201 {object} models.SuccessResponse
// @Router /benchmarks [post]
func (h *BenchmarksHandler) CreateBenchmark(c *gin.Context) {
	hubID := middleware.GetHubID(c)

	var req models.CreateBenchmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_REQUEST",
				Message: "Invalid benchmark payload",
			},
		})
		return
	}

	if field, ok := missingBenchmarkField(&req); !ok {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: fmt.Sprintf("%s is required", field),
				Field:   field,
			},
		})
		return
	}

	benchmark := &models.Benchmark{
		HubID:       hubID,
		Name:        strings.TrimSpace(req.Name),
		SKU:         strings.TrimSpace(req.SKU),
		Category:    strings.TrimSpace(req.Category),
		Units:       strings.TrimSpace(req.Units),
		Price:       req.Price,
		Amount:      req.Amount,
		Description: strings.TrimSpace(req.Description),
	}

	existing, err := h.benchmarksRepo.ListBySKU(hubID, benchmark.SKU)
	if err != nil {
		h.logger.WithError(err).Error("Failed to check benchmark sku")
		respondInternalError(c, "Failed to create benchmark")
		return
	}
	if len(existing) > 0 {
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "DUPLICATE_SKU",
				Message: fmt.Sprintf("Benchmark with sku %q already exists", benchmark.SKU),
				Field:   "sku",
			},
		})
		return
	}

	if err := h.benchmarksRepo.Create(benchmark); err != nil {
		h.logger.WithError(err).Error("Failed to create benchmark")
		respondInternalError(c, "Failed to create benchmark")
		return
	}

	c.JSON(http.StatusCreated, models.SuccessResponse{Success: true, Data: benchmark})
}

// ImportBenchmarks bulk-uploads the hub's benchmark set
// @Summary Import benchmarks from CSV/XLSX
// @Tags benchmarks
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Benchmark file"
// @Param format formData string true "csv or xlsx"
// @Param mode formData string true "full or partial"
// @Success 200 {object} models.SuccessResponse
// @Router /benchmarks/import [post]
func (h *BenchmarksHandler) ImportBenchmarks(c *gin.Context) {
	hubID := middleware.GetHubID(c)

	data, meta, ok := readUploadFile(c)
	if !ok {
		return
	}

	parsed, err := upload.Parse(data, meta, upload.TargetBenchmarks)
	if err != nil {
		respondUploadError(c, err)
		return
	}

	logger := h.logger.WithFields(logrus.Fields{
		"hubId":    hubID,
		"fileName": meta.FileName,
		"mode":     parsed.Mode,
	})
	report, err := upload.ReconcileBenchmarks(parsed, hubID, h.benchmarksRepo, logger)
	if err != nil {
		respondInternalError(c, "Failed to reconcile uploaded benchmarks")
		return
	}

	logger.WithFields(logrus.Fields{
		"totalRows": report.TotalRows,
		"created":   report.Created,
		"updated":   report.Updated,
		"skipped":   report.Skipped,
	}).Info("Benchmark upload reconciled")

	c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Data:    report,
	})
}

// ExportBenchmarks downloads the hub's benchmarks as CSV or XLSX
// @Summary Export benchmarks
// @Tags benchmarks
// @Produce octet-stream
// @Param format query string false "csv or xlsx" default(csv)
// @Router /benchmarks/export [get]
func (h *BenchmarksHandler) ExportBenchmarks(c *gin.Context) {
	hubID := middleware.GetHubID(c)

	format, ok := exportFormat(c)
	if !ok {
		return
	}

	benchmarks, err := h.benchmarksRepo.GetAllBenchmarks(hubID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load benchmarks for export")
		respondInternalError(c, "Failed to export benchmarks")
		return
	}

	headers := upload.TargetBenchmarks.Columns()
	rows := make([][]string, 0, len(benchmarks))
	for _, b := range benchmarks {
		rows = append(rows, []string{
			b.SKU,
			b.Name,
			b.Category,
			b.Units,
			formatPrice(b.Price),
			formatPrice(b.Amount),
			b.Description,
		})
	}

	file, err := export.Render("benchmarks", format, headers, rows)
	if err != nil {
		h.logger.WithError(err).Error("Failed to render benchmark export")
		respondInternalError(c, "Failed to export benchmarks")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", file.Name))
	c.Data(http.StatusOK, file.ContentType, file.Bytes)
}

// StartMatch enqueues a benchmark matching job for the hub
// @Summary Start benchmark matching
// @Tags benchmarks
// @Accept json
// @Produce json
// @Success 202 {object} models.SuccessResponse
// @Router /benchmarks/match [post]
func (h *BenchmarksHandler) StartMatch(c *gin.Context) {
	hubID := middleware.GetHubID(c)

	if h.publisher == nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "JOBS_UNAVAILABLE",
				Message: "Job queue is not configured",
			},
		})
		return
	}

	// Optional body narrowing the job to specific benchmarks.
	var req struct {
		BenchmarkIDs []uuid.UUID `json:"benchmarkIds"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "INVALID_REQUEST",
					Message: "Invalid match request payload",
				},
			})
			return
		}
	}

	if err := h.publisher.PublishMatch(events.MatchJob{
		HubID:        hubID,
		BenchmarkIDs: req.BenchmarkIDs,
	}); err != nil {
		respondInternalError(c, "Failed to enqueue match job")
		return
	}

	if err := h.benchmarksRepo.SetProcessing(hubID, req.BenchmarkIDs, true); err != nil {
		h.logger.WithError(err).WithField("hubId", hubID).Warn("Failed to flag benchmarks as processing")
	}

	message := "Match job enqueued"
	c.JSON(http.StatusAccepted, models.SuccessResponse{Success: true, Message: &message})
}

func missingBenchmarkField(req *models.CreateBenchmarkRequest) (string, bool) {
	required := []struct {
		name  string
		value string
	}{
		{"sku", req.SKU},
		{"name", req.Name},
		{"category", req.Category},
		{"units", req.Units},
		{"description", req.Description},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return field.name, false
		}
	}
	if req.Price < 0 {
		return "price", false
	}
	if req.Amount <= 0 {
		return "amount", false
	}
	return "", true
}

func respondBenchmarkNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    "NOT_FOUND",
			Message: "Benchmark not found",
		},
	})
}
