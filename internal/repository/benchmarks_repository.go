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

const BenchmarkListCacheTTL = 2 * time.Minute

type BenchmarksRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewBenchmarksRepository(db *gorm.DB, redis *redis.Client) *BenchmarksRepository {
	return &BenchmarksRepository{db: db, redis: redis}
}

// ListBySKU returns every benchmark of the hub carrying the given sku.
func (r *BenchmarksRepository) ListBySKU(hubID string, sku string) ([]models.Benchmark, error) {
	var benchmarks []models.Benchmark
	err := r.db.Where("hub_id = ? AND sku = ?", hubID, sku).Find(&benchmarks).Error
	if err != nil {
		return nil, err
	}
	return benchmarks, nil
}

// Create inserts a new benchmark and invalidates the hub's list caches.
func (r *BenchmarksRepository) Create(benchmark *models.Benchmark) error {
	if benchmark.ID == uuid.Nil {
		benchmark.ID = uuid.New()
	}
	benchmark.CreatedAt = time.Now()
	benchmark.UpdatedAt = time.Now()

	err := r.db.Create(benchmark).Error
	if err == nil {
		r.invalidateBenchmarkListCaches(context.Background(), benchmark.HubID)
	}
	return err
}

// Update overwrites every mutable column of an existing benchmark.
func (r *BenchmarksRepository) Update(benchmarkID uuid.UUID, benchmark *models.Benchmark) error {
	err := r.db.Model(&models.Benchmark{}).
		Where("id = ?", benchmarkID).
		Updates(map[string]interface{}{
			"name":        benchmark.Name,
			"category":    benchmark.Category,
			"units":       benchmark.Units,
			"price":       benchmark.Price,
			"amount":      benchmark.Amount,
			"description": benchmark.Description,
			"updated_at":  time.Now(),
		}).Error

	if err == nil {
		r.invalidateBenchmarkListCaches(context.Background(), benchmark.HubID)
	}
	return err
}

// GetBenchmarkByID retrieves a benchmark scoped to its hub. The hub filter is
// part of the query so one hub can never address another hub's record by ID.
func (r *BenchmarksRepository) GetBenchmarkByID(hubID string, benchmarkID uuid.UUID) (*models.Benchmark, error) {
	var benchmark models.Benchmark
	if err := r.db.Where("hub_id = ? AND id = ?", hubID, benchmarkID).First(&benchmark).Error; err != nil {
		return nil, err
	}
	return &benchmark, nil
}

// GetBenchmarks retrieves a hub's benchmarks with pagination and caching.
func (r *BenchmarksRepository) GetBenchmarks(hubID string, page, limit int) ([]models.Benchmark, int64, error) {
	ctx := context.Background()
	cacheKey := fmt.Sprintf("%sbenchmarks:list:%s:%d:%d", cacheKeyPrefix, hubID, page, limit)

	type listResult struct {
		Benchmarks []models.Benchmark `json:"benchmarks"`
		Total      int64              `json:"total"`
	}

	if r.redis != nil {
		val, err := r.redis.Get(ctx, cacheKey).Result()
		if err == nil {
			var cached listResult
			if err := json.Unmarshal([]byte(val), &cached); err == nil {
				return cached.Benchmarks, cached.Total, nil
			}
		}
	}

	var benchmarks []models.Benchmark
	var total int64

	query := r.db.Model(&models.Benchmark{}).Where("hub_id = ?", hubID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Order("sku ASC").Offset(offset).Limit(limit).Find(&benchmarks).Error; err != nil {
		return nil, 0, err
	}

	if r.redis != nil {
		if data, err := json.Marshal(listResult{Benchmarks: benchmarks, Total: total}); err == nil {
			r.redis.Set(ctx, cacheKey, data, BenchmarkListCacheTTL)
		}
	}

	return benchmarks, total, nil
}

// GetAllBenchmarks retrieves the hub's entire benchmark set for export.
func (r *BenchmarksRepository) GetAllBenchmarks(hubID string) ([]models.Benchmark, error) {
	var benchmarks []models.Benchmark
	err := r.db.Where("hub_id = ?", hubID).Order("sku ASC").Find(&benchmarks).Error
	if err != nil {
		return nil, err
	}
	return benchmarks, nil
}

// HasProcessing reports whether any benchmark of the hub is queued for
// matching.
func (r *BenchmarksRepository) HasProcessing(hubID string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Benchmark{}).
		Where("hub_id = ? AND processing = ?", hubID, true).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// SetProcessing flags benchmarks as queued for matching. An empty ID list
// flags the whole hub.
func (r *BenchmarksRepository) SetProcessing(hubID string, benchmarkIDs []uuid.UUID, processing bool) error {
	query := r.db.Model(&models.Benchmark{}).Where("hub_id = ?", hubID)
	if len(benchmarkIDs) > 0 {
		query = query.Where("id IN ?", benchmarkIDs)
	}

	err := query.Updates(map[string]interface{}{
		"processing": processing,
		"updated_at": time.Now(),
	}).Error

	if err == nil {
		r.invalidateBenchmarkListCaches(context.Background(), hubID)
	}
	return err
}

func (r *BenchmarksRepository) invalidateBenchmarkListCaches(ctx context.Context, hubID string) {
	if r.redis == nil {
		return
	}
	deleteByPattern(ctx, r.redis, fmt.Sprintf("%sbenchmarks:list:%s:*", cacheKeyPrefix, hubID))
}
