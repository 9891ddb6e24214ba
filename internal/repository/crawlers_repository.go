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

// Cache TTL constants
const (
	CrawlerCacheTTL     = 5 * time.Minute
	CrawlerListCacheTTL = 2 * time.Minute // refreshed often while crawls run
)

const cacheKeyPrefix = "dantes:"

type CrawlersRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewCrawlersRepository(db *gorm.DB, redis *redis.Client) *CrawlersRepository {
	return &CrawlersRepository{db: db, redis: redis}
}

// GetCrawlers retrieves all crawlers for a hub with caching.
func (r *CrawlersRepository) GetCrawlers(hubID string) ([]models.Crawler, error) {
	ctx := context.Background()
	cacheKey := fmt.Sprintf("%scrawlers:list:%s", cacheKeyPrefix, hubID)

	if r.redis != nil {
		val, err := r.redis.Get(ctx, cacheKey).Result()
		if err == nil {
			var crawlers []models.Crawler
			if err := json.Unmarshal([]byte(val), &crawlers); err == nil {
				return crawlers, nil
			}
		}
	}

	var crawlers []models.Crawler
	if err := r.db.Where("hub_id = ?", hubID).Order("name ASC").Find(&crawlers).Error; err != nil {
		return nil, err
	}

	if r.redis != nil {
		if data, err := json.Marshal(crawlers); err == nil {
			r.redis.Set(ctx, cacheKey, data, CrawlerListCacheTTL)
		}
	}

	return crawlers, nil
}

// GetCrawlerByID retrieves a crawler by ID with caching.
func (r *CrawlersRepository) GetCrawlerByID(crawlerID uuid.UUID) (*models.Crawler, error) {
	ctx := context.Background()
	cacheKey := fmt.Sprintf("%scrawler:%s", cacheKeyPrefix, crawlerID.String())

	if r.redis != nil {
		val, err := r.redis.Get(ctx, cacheKey).Result()
		if err == nil {
			var crawler models.Crawler
			if err := json.Unmarshal([]byte(val), &crawler); err == nil {
				return &crawler, nil
			}
		}
	}

	var crawler models.Crawler
	if err := r.db.Where("id = ?", crawlerID).First(&crawler).Error; err != nil {
		return nil, err
	}

	if r.redis != nil {
		if data, err := json.Marshal(crawler); err == nil {
			r.redis.Set(ctx, cacheKey, data, CrawlerCacheTTL)
		}
	}

	return &crawler, nil
}

// SetProcessing flags a crawler as busy while a crawl or price-update job is
// in flight.
func (r *CrawlersRepository) SetProcessing(crawlerID uuid.UUID, processing bool) error {
	err := r.db.Model(&models.Crawler{}).
		Where("id = ?", crawlerID).
		Updates(map[string]interface{}{
			"processing": processing,
			"updated_at": time.Now(),
		}).Error

	if err == nil {
		r.invalidateCrawlerCaches(context.Background(), crawlerID)
	}
	return err
}

// HasProcessing reports whether any crawler of the hub currently has a job in
// flight. Category matching reads hub catalogs as-is, so it stays unavailable
// while crawls or price updates are rewriting them.
func (r *CrawlersRepository) HasProcessing(hubID string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Crawler{}).
		Where("hub_id = ? AND processing = ?", hubID, true).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// RefreshProductCount recomputes the cached product counter from the products
// table. Called after every bulk upload so list views stay accurate without
// counting on each read.
func (r *CrawlersRepository) RefreshProductCount(crawlerID uuid.UUID) error {
	err := r.db.Model(&models.Crawler{}).
		Where("id = ?", crawlerID).
		Updates(map[string]interface{}{
			"num_products": gorm.Expr("(SELECT COUNT(*) FROM crawler_products WHERE crawler_id = ?)", crawlerID),
			"updated_at":   time.Now(),
		}).Error

	if err == nil {
		r.invalidateCrawlerCaches(context.Background(), crawlerID)
	}
	return err
}

// invalidateCrawlerCaches drops the single-crawler key and every hub list key.
// The hub is not known here, so list keys are matched by pattern.
func (r *CrawlersRepository) invalidateCrawlerCaches(ctx context.Context, crawlerID uuid.UUID) {
	if r.redis == nil {
		return
	}
	_ = r.redis.Del(ctx, fmt.Sprintf("%scrawler:%s", cacheKeyPrefix, crawlerID.String())).Err()
	deleteByPattern(ctx, r.redis, cacheKeyPrefix+"crawlers:list:*")
}

// deleteByPattern removes all keys matching the pattern via SCAN, so cache
// invalidation never blocks Redis the way KEYS would.
func deleteByPattern(ctx context.Context, client *redis.Client, pattern string) {
	iter := client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		_ = client.Del(ctx, iter.Val()).Err()
	}
}
