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
	"github.com/pushkindt/pushkind-dantes/internal/middleware"
	"github.com/pushkindt/pushkind-dantes/internal/models"
	"github.com/pushkindt/pushkind-dantes/internal/repository"
)

type CategoriesHandler struct {
	categoriesRepo *repository.CategoriesRepository
	crawlersRepo   *repository.CrawlersRepository
	productsRepo   *repository.ProductsRepository
	benchmarksRepo *repository.BenchmarksRepository
	publisher      *events.Publisher
	logger         *logrus.Logger
}

func NewCategoriesHandler(
	categoriesRepo *repository.CategoriesRepository,
	crawlersRepo *repository.CrawlersRepository,
	productsRepo *repository.ProductsRepository,
	benchmarksRepo *repository.BenchmarksRepository,
	publisher *events.Publisher,
	logger *logrus.Logger,
) *CategoriesHandler {
	return &CategoriesHandler{
		categoriesRepo: categoriesRepo,
		crawlersRepo:   crawlersRepo,
		productsRepo:   productsRepo,
		benchmarksRepo: benchmarksRepo,
		publisher:      publisher,
		logger:         logger,
	}
}

// GetCategories returns all categories of the hub
// @Summary List categories
// @Tags categories
// @Produce json
// @Success 200 {object} models.CategoryListResponse
// @Router /categories [get]
func (h *CategoriesHandler) GetCategories(c *gin.Context) {
	hubID := middleware.GetHubID(c)

	categories, err := h.categoriesRepo.GetCategories(hubID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list categories")
		respondInternalError(c, "Failed to list categories")
		return
	}

	c.JSON(http.StatusOK, models.CategoryListResponse{Success: true, Data: categories})
}

// CreateCategory adds a category to the hub
// @Summary Create category
// @Tags categories
// @Accept json
// @Produce json
// @Param category body models.CategoryRequest true "Category"
// @Success 201 {object} models.SuccessResponse
// @Router /categories [post]
func (h *CategoriesHandler) CreateCategory(c *gin.Context) {
	hubID := middleware.GetHubID(c)

	name, ok := bindCategoryName(c)
	if !ok {
		return
	}

	if _, err := h.categoriesRepo.GetCategoryByName(hubID, name); err == nil {
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "DUPLICATE_NAME",
				Message: fmt.Sprintf("Category %q already exists", name),
				Field:   "name",
			},
		})
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		h.logger.WithError(err).Error("Failed to check category name")
		respondInternalError(c, "Failed to create category")
		return
	}

	category := &models.Category{HubID: hubID, Name: name}
	if err := h.categoriesRepo.Create(category); err != nil {
		h.logger.WithError(err).Error("Failed to create category")
		respondInternalError(c, "Failed to create category")
		return
	}

	c.JSON(http.StatusCreated, models.SuccessResponse{Success: true, Data: category})
}

// UpdateCategory renames a category
// @Summary Rename category
// @Tags categories
// @Accept json
// @Produce json
// @Param id path string true "Category ID"
// @Param category body models.CategoryRequest true "Category"
// @Success 200 {object} models.SuccessResponse
// @Router /categories/{id} [put]
func (h *CategoriesHandler) UpdateCategory(c *gin.Context) {
	hubID := middleware.GetHubID(c)

	categoryID, ok := parseCategoryID(c)
	if !ok {
		return
	}
	name, ok := bindCategoryName(c)
	if !ok {
		return
	}

	category, ok := h.hubCategory(c, hubID, categoryID)
	if !ok {
		return
	}

	if err := h.categoriesRepo.UpdateName(hubID, categoryID, name); err != nil {
		h.logger.WithError(err).WithField("categoryId", categoryID).Error("Failed to rename category")
		respondInternalError(c, "Failed to rename category")
		return
	}

	category.Name = name
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: category})
}

// DeleteCategory removes a category from the hub
// @Summary Delete category
// @Tags categories
// @Produce json
// @Param id path string true "Category ID"
// @Success 200 {object} models.SuccessResponse
// @Router /categories/{id} [delete]
func (h *CategoriesHandler) DeleteCategory(c *gin.Context) {
	hubID := middleware.GetHubID(c)

	categoryID, ok := parseCategoryID(c)
	if !ok {
		return
	}
	if _, ok := h.hubCategory(c, hubID, categoryID); !ok {
		return
	}

	if err := h.categoriesRepo.Delete(hubID, categoryID); err != nil {
		h.logger.WithError(err).WithField("categoryId", categoryID).Error("Failed to delete category")
		respondInternalError(c, "Failed to delete category")
		return
	}

	message := "Category deleted"
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: &message})
}

// SetProductCategory manually assigns a category to a crawler product
// @Summary Set product category
// @Tags categories
// @Accept json
// @Produce json
// @Param id path string true "Product ID"
// @Param assignment body models.SetProductCategoryRequest true "Assignment"
// @Success 200 {object} models.SuccessResponse
// @Router /products/{id}/category [put]
func (h *CategoriesHandler) SetProductCategory(c *gin.Context) {
	hubID := middleware.GetHubID(c)

	var req models.SetProductCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.CategoryID == uuid.Nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_REQUEST",
				Message: "categoryId is required",
				Field:   "categoryId",
			},
		})
		return
	}

	product, ok := h.hubProduct(c, hubID)
	if !ok {
		return
	}
	category, ok := h.hubCategory(c, hubID, req.CategoryID)
	if !ok {
		return
	}

	if err := h.productsRepo.SetCategory(product.ID, product.CrawlerID, &category.Name); err != nil {
		h.logger.WithError(err).WithField("productId", product.ID).Error("Failed to set product category")
		respondInternalError(c, "Failed to set product category")
		return
	}

	product.Category = &category.Name
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: product})
}

// ClearProductCategory removes a product's category assignment
// @Summary Clear product category
// @Tags categories
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} models.SuccessResponse
// @Router /products/{id}/category [delete]
func (h *CategoriesHandler) ClearProductCategory(c *gin.Context) {
	hubID := middleware.GetHubID(c)

	product, ok := h.hubProduct(c, hubID)
	if !ok {
		return
	}

	if err := h.productsRepo.SetCategory(product.ID, product.CrawlerID, nil); err != nil {
		h.logger.WithError(err).WithField("productId", product.ID).Error("Failed to clear product category")
		respondInternalError(c, "Failed to clear product category")
		return
	}

	product.Category = nil
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: product})
}

// StartCategoryMatch enqueues a hub-wide category matching job
// @Summary Start category matching
// @Tags categories
// @Produce json
// @Success 202 {object} models.SuccessResponse
// @Router /categories/match [post]
func (h *CategoriesHandler) StartCategoryMatch(c *gin.Context) {
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

	// Category matching reads the hub's catalogs wholesale, so it waits for
	// any running crawl, price-update or benchmark-match job to finish.
	busy, err := h.hubHasActiveProcessing(hubID)
	if err != nil {
		h.logger.WithError(err).WithField("hubId", hubID).Error("Failed to read processing state")
		respondInternalError(c, "Failed to start category matching")
		return
	}
	if busy {
		respondConflict(c, "Category matching is unavailable while other jobs are running")
		return
	}

	if err := h.publisher.PublishCategoryMatch(events.CategoryMatchJob{HubID: hubID}); err != nil {
		respondInternalError(c, "Failed to enqueue category match job")
		return
	}

	message := "Category match job enqueued"
	c.JSON(http.StatusAccepted, models.SuccessResponse{Success: true, Message: &message})
}

func (h *CategoriesHandler) hubHasActiveProcessing(hubID string) (bool, error) {
	busy, err := h.crawlersRepo.HasProcessing(hubID)
	if err != nil || busy {
		return busy, err
	}
	return h.benchmarksRepo.HasProcessing(hubID)
}

// hubCategory loads a category and answers foreign-hub or unknown IDs with
// 404, never revealing which of the two it was.
func (h *CategoriesHandler) hubCategory(c *gin.Context, hubID string, categoryID uuid.UUID) (*models.Category, bool) {
	category, err := h.categoriesRepo.GetCategoryByID(hubID, categoryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "NOT_FOUND",
					Message: "Category not found",
				},
			})
			return nil, false
		}
		h.logger.WithError(err).WithField("categoryId", categoryID).Error("Failed to load category")
		respondInternalError(c, "Failed to load category")
		return nil, false
	}
	return category, true
}

// hubProduct loads the product from the :id path param and verifies its
// owning crawler belongs to the hub.
func (h *CategoriesHandler) hubProduct(c *gin.Context, hubID string) (*models.CrawlerProduct, bool) {
	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_ID",
				Message: "Invalid product ID format",
			},
		})
		return nil, false
	}

	product, err := h.productsRepo.GetProductByID(productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondProductNotFound(c)
			return nil, false
		}
		h.logger.WithError(err).WithField("productId", productID).Error("Failed to load product")
		respondInternalError(c, "Failed to load product")
		return nil, false
	}

	crawler, err := h.crawlersRepo.GetCrawlerByID(product.CrawlerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondProductNotFound(c)
			return nil, false
		}
		h.logger.WithError(err).WithField("crawlerId", product.CrawlerID).Error("Failed to load crawler")
		respondInternalError(c, "Failed to load product")
		return nil, false
	}
	if crawler.HubID != hubID {
		respondProductNotFound(c)
		return nil, false
	}

	return product, true
}

func parseCategoryID(c *gin.Context) (uuid.UUID, bool) {
	categoryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_ID",
				Message: "Invalid category ID format",
			},
		})
		return uuid.Nil, false
	}
	return categoryID, true
}

func bindCategoryName(c *gin.Context) (string, bool) {
	var req models.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "INVALID_REQUEST",
				Message: "Invalid category payload",
			},
		})
		return "", false
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "VALIDATION_ERROR",
				Message: "name is required",
				Field:   "name",
			},
		})
		return "", false
	}
	return name, true
}

func respondProductNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    "NOT_FOUND",
			Message: "Product not found",
		},
	})
}
