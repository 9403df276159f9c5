package domain

// Product is a row in the internal product catalog
type Product struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Brand          string `json:"brand,omitempty"`
	Barcode        string `json:"barcode,omitempty"`
	Category       string `json:"category"`
	Status         string `json:"status"` // "approved", "pending" or "flagged"
	Country        string `json:"country,omitempty"`
	State          string `json:"state,omitempty"`
	NutritionGrade string `json:"nutritionGrade,omitempty"`
	ImageURL       string `json:"imageUrl,omitempty"`
}

// Catalog product statuses
const (
	StatusApproved = "approved"
	StatusPending  = "pending"
	StatusFlagged  = "flagged"
)

// SearchFilters narrows an internal catalog search. Zero values mean
// "no filter"; NutritionGrades becomes an IN predicate.
type SearchFilters struct {
	Category        string   `json:"category,omitempty"`
	NutritionGrades []string `json:"nutritionGrades,omitempty"`
	Country         string   `json:"country,omitempty"`
	State           string   `json:"state,omitempty"`
	Limit           int      `json:"limit,omitempty"`
}

// SearchRequest is an enhanced-search request from the UI
type SearchRequest struct {
	Query   string        `json:"query" binding:"required"`
	Filters SearchFilters `json:"filters"`
}

// CombinedItem is one entry of the merged search result list,
// tagged with where it came from.
type CombinedItem struct {
	Origin         string `json:"source"` // "internal" or "external"
	ID             string `json:"id"`
	Name           string `json:"name"`
	Brand          string `json:"brand,omitempty"`
	Category       string `json:"category,omitempty"`
	Verified       bool   `json:"verified"`
	Registry       Source `json:"registry,omitempty"`
	NutritionGrade string `json:"nutritionGrade,omitempty"`
	ImageURL       string `json:"imageUrl,omitempty"`
}

// SearchResponse is the façade's three-part search result
type SearchResponse struct {
	Internal []Product         `json:"internal"`
	External []ExternalProduct `json:"external"`
	Combined []CombinedItem    `json:"combined"`
}
