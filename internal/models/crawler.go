package models

import (
	"time"

	"github.com/google/uuid"
)

// Crawler represents a configured site crawler owned by a hub.
// Products harvested by the crawler (or bulk-uploaded by an operator)
// hang off it via CrawlerProduct.
type Crawler struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	HubID       string    `json:"hubId" gorm:"not null;index:idx_crawlers_hub_id"`
	Name        string    `json:"name" gorm:"not null"`
	URL         string    `json:"url" gorm:"not null"`
	Selector    string    `json:"selector" gorm:"not null"` // routing token for the crawl worker
	Processing  bool      `json:"processing" gorm:"not null;default:false"`
	NumProducts int64     `json:"numProducts" gorm:"not null;default:0"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TableName returns the table name for the Crawler model
func (Crawler) TableName() string {
	return "crawlers"
}
