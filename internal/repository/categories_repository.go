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

const CategoryListCacheTTL = 5 * time.Minute

type CategoriesRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewCategoriesRepository(db *gorm.DB, redis *redis.Client) *CategoriesRepository {
	return &CategoriesRepository{db: db, redis: redis}
}

// GetCategories retrieves a hub's categories with caching. Category sets are
// small, so the whole list is returned unpaginated, ordered by name.
func (r *CategoriesRepository) GetCategories(hubID string) ([]models.Category, error) {
	ctx := context.Background()
	cacheKey := fmt.Sprintf("%scategories:list:%s", cacheKeyPrefix, hubID)

	if r.redis != nil {
		val, err := r.redis.Get(ctx, cacheKey).Result()
		if err == nil {
			var categories []models.Category
			if err := json.Unmarshal([]byte(val), &categories); err == nil {
				return categories, nil
			}
		}
	}

	var categories []models.Category
	if err := r.db.Where("hub_id = ?", hubID).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, err
	}

	if r.redis != nil {
		if data, err := json.Marshal(categories); err == nil {
			r.redis.Set(ctx, cacheKey, data, CategoryListCacheTTL)
		}
	}

	return categories, nil
}

// GetCategoryByID retrieves a category scoped to its hub, so one hub can
// never address another hub's category by ID.
func (r *CategoriesRepository) GetCategoryByID(hubID string, categoryID uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := r.db.Where("hub_id = ? AND id = ?", hubID, categoryID).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// GetCategoryByName looks a category up by its hub-unique name.
func (r *CategoriesRepository) GetCategoryByName(hubID string, name string) (*models.Category, error) {
	var category models.Category
	if err := r.db.Where("hub_id = ? AND name = ?", hubID, name).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// Create inserts a new category and invalidates the hub's list cache.
func (r *CategoriesRepository) Create(category *models.Category) error {
	if category.ID == uuid.Nil {
		category.ID = uuid.New()
	}
	category.CreatedAt = time.Now()
	category.UpdatedAt = time.Now()

	err := r.db.Create(category).Error
	if err == nil {
		r.invalidateCategoryListCache(context.Background(), category.HubID)
	}
	return err
}

// UpdateName renames a category.
func (r *CategoriesRepository) UpdateName(hubID string, categoryID uuid.UUID, name string) error {
	err := r.db.Model(&models.Category{}).
		Where("hub_id = ? AND id = ?", hubID, categoryID).
		Updates(map[string]interface{}{
			"name":       name,
			"updated_at": time.Now(),
		}).Error

	if err == nil {
		r.invalidateCategoryListCache(context.Background(), hubID)
	}
	return err
}

// Delete removes a category. Products keep the category text they already
// carry; only the label itself disappears from the hub.
func (r *CategoriesRepository) Delete(hubID string, categoryID uuid.UUID) error {
	err := r.db.Where("hub_id = ? AND id = ?", hubID, categoryID).Delete(&models.Category{}).Error
	if err == nil {
		r.invalidateCategoryListCache(context.Background(), hubID)
	}
	return err
}

func (r *CategoriesRepository) invalidateCategoryListCache(ctx context.Context, hubID string) {
	if r.redis == nil {
		return
	}
	_ = r.redis.Del(ctx, fmt.Sprintf("%scategories:list:%s", cacheKeyPrefix, hubID)).Err()
}
