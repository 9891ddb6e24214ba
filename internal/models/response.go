package models

// Error carries a machine-readable code plus a human-readable message.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type ErrorResponse struct {
	Success bool  `json:"success"`
	Error   Error `json:"error"`
}

type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message *string     `json:"message,omitempty"`
}

// PaginationInfo describes the page window of a list response.
type PaginationInfo struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"totalPages"`
	HasNext     bool  `json:"hasNext"`
	HasPrevious bool  `json:"hasPrevious"`
}

// CrawlerListResponse is the envelope for GET /crawlers.
type CrawlerListResponse struct {
	Success bool      `json:"success"`
	Data    []Crawler `json:"data"`
}

// ProductListResponse is the envelope for GET /crawlers/:id/products.
type ProductListResponse struct {
	Success    bool             `json:"success"`
	Data       []CrawlerProduct `json:"data"`
	Pagination *PaginationInfo  `json:"pagination,omitempty"`
}

// CategoryListResponse is the envelope for GET /categories.
type CategoryListResponse struct {
	Success bool       `json:"success"`
	Data    []Category `json:"data"`
}

// BenchmarkListResponse is the envelope for GET /benchmarks.
type BenchmarkListResponse struct {
	Success    bool            `json:"success"`
	Data       []Benchmark     `json:"data"`
	Pagination *PaginationInfo `json:"pagination,omitempty"`
}
