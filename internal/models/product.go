package models

import (
	"time"

	"github.com/google/uuid"
)

// CrawlerProduct represents a catalog record scoped to a crawler.
// SKU is the natural key within the crawler: the composite unique index
// backs the upsert semantics of the bulk upload path.
type CrawlerProduct struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CrawlerID   uuid.UUID `json:"crawlerId" gorm:"type:uuid;not null;index:idx_products_crawler_id;index:idx_products_crawler_sku,unique"`
	Name        string    `json:"name" gorm:"not null"`
	SKU         string    `json:"sku" gorm:"not null;index:idx_products_crawler_sku,unique"`
	Category    *string   `json:"category,omitempty"`
	Units       *string   `json:"units,omitempty"`
	Price       float64   `json:"price" gorm:"not null"`
	Amount      *float64  `json:"amount,omitempty"`
	Description *string   `json:"description,omitempty"`
	URL         *string   `json:"url,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TableName returns the table name for the CrawlerProduct model
func (CrawlerProduct) TableName() string {
	return "crawler_products"
}
