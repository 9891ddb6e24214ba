package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/pushkindt/pushkind-dantes/internal/models"
)

const ProductListCacheTTL = 2 * time.Minute

type ProductsRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewProductsRepository(db *gorm.DB, redis *redis.Client) *ProductsRepository {
	return &ProductsRepository{db: db, redis: redis}
}

// ListBySKU returns every product of the crawler carrying the given sku.
// The composite unique index keeps this at most one row in practice; callers
// treat more than one match as data corruption.
func (r *ProductsRepository) ListBySKU(crawlerID uuid.UUID, sku string) ([]models.CrawlerProduct, error) {
	var products []models.CrawlerProduct
	err := r.db.Where("crawler_id = ? AND sku = ?", crawlerID, sku).Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// Create inserts a new product and invalidates the crawler's list caches.
func (r *ProductsRepository) Create(product *models.CrawlerProduct) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	product.CreatedAt = time.Now()
	product.UpdatedAt = time.Now()

	err := r.db.Create(product).Error
	if err == nil {
		r.invalidateProductListCaches(context.Background(), product.CrawlerID)
	}
	return err
}

// Update overwrites every mutable column of an existing product. Optional
// fields are written explicitly so a nil pointer clears the column instead of
// being skipped by gorm's zero-value handling.
func (r *ProductsRepository) Update(productID uuid.UUID, product *models.CrawlerProduct) error {
	err := r.db.Model(&models.CrawlerProduct{}).
		Where("id = ?", productID).
		Updates(map[string]interface{}{
			"name":        product.Name,
			"category":    product.Category,
			"units":       product.Units,
			"price":       product.Price,
			"amount":      product.Amount,
			"description": product.Description,
			"url":         product.URL,
			"updated_at":  time.Now(),
		}).Error

	if err == nil {
		r.invalidateProductListCaches(context.Background(), product.CrawlerID)
	}
	return err
}

// GetProductByID retrieves a product by its primary key. Hub scoping happens
// at the caller through the owning crawler.
func (r *ProductsRepository) GetProductByID(productID uuid.UUID) (*models.CrawlerProduct, error) {
	var product models.CrawlerProduct
	if err := r.db.Where("id = ?", productID).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// SetCategory writes just the category column of a product. A nil category
// clears a manual assignment.
func (r *ProductsRepository) SetCategory(productID uuid.UUID, crawlerID uuid.UUID, category *string) error {
	err := r.db.Model(&models.CrawlerProduct{}).
		Where("id = ?", productID).
		Updates(map[string]interface{}{
			"category":   category,
			"updated_at": time.Now(),
		}).Error

	if err == nil {
		r.invalidateProductListCaches(context.Background(), crawlerID)
	}
	return err
}

// GetProducts retrieves one crawler's products with pagination and caching.
func (r *ProductsRepository) GetProducts(crawlerID uuid.UUID, page, limit int) ([]models.CrawlerProduct, int64, error) {
	ctx := context.Background()
	cacheKey := fmt.Sprintf("%sproducts:list:%s:%d:%d", cacheKeyPrefix, crawlerID.String(), page, limit)

	type listResult struct {
		Products []models.CrawlerProduct `json:"products"`
		Total    int64                   `json:"total"`
	}

	if r.redis != nil {
		val, err := r.redis.Get(ctx, cacheKey).Result()
		if err == nil {
			var cached listResult
			if err := json.Unmarshal([]byte(val), &cached); err == nil {
				return cached.Products, cached.Total, nil
			}
		}
	}

	var products []models.CrawlerProduct
	var total int64

	query := r.db.Model(&models.CrawlerProduct{}).Where("crawler_id = ?", crawlerID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Order("sku ASC").Offset(offset).Limit(limit).Find(&products).Error; err != nil {
		return nil, 0, err
	}

	if r.redis != nil {
		if data, err := json.Marshal(listResult{Products: products, Total: total}); err == nil {
			r.redis.Set(ctx, cacheKey, data, ProductListCacheTTL)
		}
	}

	return products, total, nil
}

// GetAllProducts retrieves the crawler's entire catalog for export, ordered by
// sku so repeated exports diff cleanly.
func (r *ProductsRepository) GetAllProducts(crawlerID uuid.UUID) ([]models.CrawlerProduct, error) {
	var products []models.CrawlerProduct
	err := r.db.Where("crawler_id = ?", crawlerID).Order("sku ASC").Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// GetProductURLs returns the distinct non-null product URLs of a crawler,
// used as the work list for price-update jobs.
func (r *ProductsRepository) GetProductURLs(crawlerID uuid.UUID) ([]string, error) {
	var urls []string
	err := r.db.Model(&models.CrawlerProduct{}).
		Where("crawler_id = ? AND url IS NOT NULL AND url <> ''", crawlerID).
		Distinct().
		Pluck("url", &urls).Error
	if err != nil {
		return nil, err
	}
	return urls, nil
}

func (r *ProductsRepository) invalidateProductListCaches(ctx context.Context, crawlerID uuid.UUID) {
	if r.redis == nil {
		return
	}
	deleteByPattern(ctx, r.redis, fmt.Sprintf("%sproducts:list:%s:*", cacheKeyPrefix, crawlerID.String()))
}
