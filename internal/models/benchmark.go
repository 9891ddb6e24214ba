package models

import (
	"time"

	"github.com/google/uuid"
)

// Benchmark represents a reference item operators compare crawler products
// against. Unlike crawler products every descriptive field is mandatory,
// because a benchmark with holes cannot be matched meaningfully.
type Benchmark struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	HubID       string    `json:"hubId" gorm:"not null;index:idx_benchmarks_hub_id;index:idx_benchmarks_hub_sku,unique"`
	Name        string    `json:"name" gorm:"not null"`
	SKU         string    `json:"sku" gorm:"not null;index:idx_benchmarks_hub_sku,unique"`
	Category    string    `json:"category" gorm:"not null"`
	Units       string    `json:"units" gorm:"not null"`
	Price       float64   `json:"price" gorm:"not null"`
	Amount      float64   `json:"amount" gorm:"not null"`
	Description string    `json:"description" gorm:"not null"`
	Processing  bool      `json:"processing" gorm:"not null;default:false"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TableName returns the table name for the Benchmark model
func (Benchmark) TableName() string {
	return "benchmarks"
}

// CreateBenchmarkRequest is the JSON payload for creating a single benchmark
// by hand; the bulk path goes through the upload engine instead.
type CreateBenchmarkRequest struct {
	Name        string  `json:"name"`
	SKU         string  `json:"sku"`
	Category    string  `json:"category"`
	Units       string  `json:"units"`
	Price       float64 `json:"price"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}
