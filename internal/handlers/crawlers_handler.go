package handlers

import (
	"errors"
	"fmt"
	"net/http"

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

type CrawlersHandler struct {
	crawlersRepo *repository.CrawlersRepository
	productsRepo *repository.ProductsRepository
	publisher    *events.Publisher
	logger       *logrus.Logger
}

func NewCrawlersHandler(crawlersRepo *repository.CrawlersRepository, productsRepo *repository.ProductsRepository, publisher *events.Publisher, logger *logrus.Logger) *CrawlersHandler {
	return &CrawlersHandler{
		crawlersRepo: crawlersRepo,
		productsRepo: productsRepo,
		publisher:    publisher,
		logger:       logger,
	}
}

// GetCrawlers returns the hub's crawlers
// @Summary List crawlers
// @Tags crawlers
// @Produce json
// @Success 200 {object} models.CrawlerListResponse
// @Router /crawlers [get]
func (h *CrawlersHandler) GetCrawlers(c *gin.Context) {
	hubID := middleware.GetHubID(c)

	crawlers, err := h.crawlersRepo.GetCrawlers(hubID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list crawlers")
		respondInternalError(c, "Failed to list crawlers")
		return
	}

	c.JSON(http.StatusOK, models.CrawlerListResponse{
		Success: true,
		Data:    crawlers,
	})
}

// GetCrawlerProducts returns one page of a crawler's products
// @Summary List crawler products
// @Tags crawlers
// @Produce json
// @Param id path string true "Crawler ID"
// @Success 200 {object} models.ProductListResponse
// @Router /crawlers/{id}/products [get]
func (h *CrawlersHandler) GetCrawlerProducts(c *gin.Context) {
	crawler, ok := h.hubCrawler(c)
	if !ok {
		return
	}

	page, limit := paginationParams(c)
	products, total, err := h.productsRepo.GetProducts(crawler.ID, page, limit)
	if err != nil {
		h.logger.WithError(err).WithField("crawlerId", crawler.ID).Error("Failed to list products")
		respondInternalError(c, "Failed to list products")
		return
	}

	c.JSON(http.StatusOK, models.ProductListResponse{
		Success:    true,
		Data:       products,
		Pagination: buildPagination(page, limit, total),
	})
}

// ImportProducts bulk-uploads a product catalog for one crawler
// @Summary Import crawler products from CSV/XLSX
// @Tags crawlers
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Crawler ID"
// @Param file formData file true "Catalog file"
// @Param format formData string true "csv or xlsx"
// @Param mode formData string true "full or partial"
// @Success 200 {object} models.SuccessResponse
// @Router /crawlers/{id}/products/import [post]
func (h *CrawlersHandler) ImportProducts(c *gin.Context) {
	crawler, ok := h.hubCrawler(c)
	if !ok {
		return
	}

	data, meta, ok := readUploadFile(c)
	if !ok {
		return
	}

	parsed, err := upload.Parse(data, meta, upload.TargetCrawlerProducts)
	if err != nil {
		respondUploadError(c, err)
		return
	}

	logger := h.logger.WithFields(logrus.Fields{
		"crawlerId": crawler.ID,
		"hubId":     crawler.HubID,
		"fileName":  meta.FileName,
		"mode":      parsed.Mode,
	})
	report, err := upload.ReconcileCrawlerProducts(parsed, crawler.ID, h.productsRepo, logger)
	if err != nil {
		respondInternalError(c, "Failed to reconcile uploaded catalog")
		return
	}

	if err := h.crawlersRepo.RefreshProductCount(crawler.ID); err != nil {
		logger.WithError(err).Warn("Failed to refresh product count")
	}

	logger.WithFields(logrus.Fields{
		"totalRows": report.TotalRows,
		"created":   report.Created,
		"updated":   report.Updated,
		"skipped":   report.Skipped,
	}).Info("Catalog upload reconciled")

	c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Data:    report,
	})
}

// ExportProducts downloads a crawler's catalog as CSV or XLSX
// @Summary Export crawler products
// @Tags crawlers
// @Produce octet-stream
// @Param id path string true "Crawler ID"
// @Param format query string false "csv or xlsx" default(csv)
// @Router /crawlers/{id}/products/export [get]
func (h *CrawlersHandler) ExportProducts(c *gin.Context) {
	crawler, ok := h.hubCrawler(c)
	if !ok {
		return
	}

	format, ok := exportFormat(c)
	if !ok {
		return
	}

	products, err := h.productsRepo.GetAllProducts(crawler.ID)
	if err != nil {
		h.logger.WithError(err).WithField("crawlerId", crawler.ID).Error("Failed to load products for export")
		respondInternalError(c, "Failed to export products")
		return
	}

	headers := upload.TargetCrawlerProducts.Columns()
	rows := make([][]string, 0, len(products))
	for _, p := range products {
		rows = append(rows, []string{
			p.SKU,
			p.Name,
			derefString(p.Category),
			derefString(p.Units),
			formatPrice(p.Price),
			derefFloat(p.Amount),
			derefString(p.Description),
			derefString(p.URL),
		})
	}

	file, err := export.Render("products", format, headers, rows)
	if err != nil {
		h.logger.WithError(err).Error("Failed to render product export")
		respondInternalError(c, "Failed to export products")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", file.Name))
	c.Data(http.StatusOK, file.ContentType, file.Bytes)
}

// StartCrawl enqueues a full crawl job for the crawler
// @Summary Start a crawl
// @Tags crawlers
// @Produce json
// @Param id path string true "Crawler ID"
// @Success 202 {object} models.SuccessResponse
// @Router /crawlers/{id}/crawl [post]
func (h *CrawlersHandler) StartCrawl(c *gin.Context) {
	crawler, ok := h.hubCrawler(c)
	if !ok {
		return
	}
	if !h.requirePublisher(c) {
		return
	}
	if crawler.Processing {
		respondConflict(c, "Crawler is already processing a job")
		return
	}

	if err := h.publisher.PublishCrawl(events.CrawlJob{
		CrawlerID: crawler.ID,
		HubID:     crawler.HubID,
		Selector:  crawler.Selector,
		URL:       crawler.URL,
	}); err != nil {
		respondInternalError(c, "Failed to enqueue crawl job")
		return
	}

	if err := h.crawlersRepo.SetProcessing(crawler.ID, true); err != nil {
		h.logger.WithError(err).WithField("crawlerId", crawler.ID).Warn("Failed to flag crawler as processing")
	}

	message := "Crawl job enqueued"
	c.JSON(http.StatusAccepted, models.SuccessResponse{Success: true, Message: &message})
}

// StartPriceUpdate enqueues a price-update job over the crawler's product URLs
// @Summary Start a price update
// @Tags crawlers
// @Produce json
// @Param id path string true "Crawler ID"
// @Success 202 {object} models.SuccessResponse
// @Router /crawlers/{id}/price-update [post]
func (h *CrawlersHandler) StartPriceUpdate(c *gin.Context) {
	crawler, ok := h.hubCrawler(c)
	if !ok {
		return
	}
	if !h.requirePublisher(c) {
		return
	}
	if crawler.Processing {
		respondConflict(c, "Crawler is already processing a job")
		return
	}

	urls, err := h.productsRepo.GetProductURLs(crawler.ID)
	if err != nil {
		h.logger.WithError(err).WithField("crawlerId", crawler.ID).Error("Failed to collect product URLs")
		respondInternalError(c, "Failed to enqueue price-update job")
		return
	}
	if len(urls) == 0 {
		c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "NO_PRODUCT_URLS",
				Message: "Crawler has no product URLs to update prices for",
			},
		})
		return
	}

	if err := h.publisher.PublishPriceUpdate(events.PriceUpdateJob{
		CrawlerID: crawler.ID,
		HubID:     crawler.HubID,
		Selector:  crawler.Selector,
		URLs:      urls,
	}); err != nil {
		respondInternalError(c, "Failed to enqueue price-update job")
		return
	}

	if err := h.crawlersRepo.SetProcessing(crawler.ID, true); err != nil {
		h.logger.WithError(err).WithField("crawlerId", crawler.ID).Warn("Failed to flag crawler as processing")
	}

	message := "Price-update job enqueued"
	c.JSON(http.StatusAccepted, models.SuccessResponse{Success: true, Message: &message})
}

// hubCrawler loads the :id crawler and verifies it belongs to the caller's
// hub. Foreign crawlers are reported as not found so IDs do not leak across
// hubs.
func (h *CrawlersHandler) hubCrawler(c *gin.Context) (*models.Crawler, bool) {
	crawlerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_ID",
				Message: "Invalid crawler ID format",
			},
		})
		return nil, false
	}

	crawler, err := h.crawlersRepo.GetCrawlerByID(crawlerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondCrawlerNotFound(c)
			return nil, false
		}
		h.logger.WithError(err).WithField("crawlerId", crawlerID).Error("Failed to load crawler")
		respondInternalError(c, "Failed to load crawler")
		return nil, false
	}
	if crawler.HubID != middleware.GetHubID(c) {
		respondCrawlerNotFound(c)
		return nil, false
	}

	return crawler, true
}

func (h *CrawlersHandler) requirePublisher(c *gin.Context) bool {
	if h.publisher == nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "JOBS_UNAVAILABLE",
				Message: "Job queue is not configured",
			},
		})
		return false
	}
	return true
}

func respondCrawlerNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    "NOT_FOUND",
			Message: "Crawler not found",
		},
	})
}

func respondInternalError(c *gin.Context, message string) {
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    "INTERNAL_ERROR",
			Message: message,
		},
	})
}

func respondConflict(c *gin.Context, message string) {
	c.JSON(http.StatusConflict, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    "ALREADY_PROCESSING",
			Message: message,
		},
	})
}

func buildPagination(page, limit int, total int64) *models.PaginationInfo {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &models.PaginationInfo{
		Page:        page,
		Limit:       limit,
		Total:       total,
		TotalPages:  totalPages,
		HasNext:     page < totalPages,
		HasPrevious: page > 1,
	}
}
