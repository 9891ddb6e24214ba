package models

import (
	"time"

	"github.com/google/uuid"
)

// Category is a hub-level label crawler products get sorted into, either by
// the external matching worker or by an operator setting it manually.
type Category struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	HubID     string    `json:"hubId" gorm:"not null;index:idx_categories_hub_id;index:idx_categories_hub_name,unique"`
	Name      string    `json:"name" gorm:"not null;index:idx_categories_hub_name,unique"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName returns the table name for the Category model
func (Category) TableName() string {
	return "categories"
}

// CategoryRequest is the JSON payload for creating or renaming a category.
type CategoryRequest struct {
	Name string `json:"name"`
}

// SetProductCategoryRequest assigns a hub category to a crawler product.
type SetProductCategoryRequest struct {
	CategoryID uuid.UUID `json:"categoryId"`
}
