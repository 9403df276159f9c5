package domain

import (
	"encoding/json"
	"time"
)

// Source identifies which registry produced a validation result
type Source string

const (
	SourceOpenFood  Source = "openfoodfacts"
	SourceDrugs     Source = "drugregistry"
	SourceCosmetics Source = "cosmeticsdb"
	SourceBarcode   Source = "barcodedb"
	SourceNAFDAC    Source = "nafdac"
	SourceInternal  Source = "internal"
	SourceError     Source = "error"
)

// RiskLevel classifies how much a consumer should trust a product
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Product categories used for adapter routing
const (
	CategoryFood       = "food"
	CategoryBeverage   = "beverage"
	CategoryDrug       = "drug"
	CategoryMedication = "medication"
	CategorySupplement = "supplement"
	CategoryCosmetics  = "cosmetics"
)

// ExternalProduct is a product record returned by an external registry.
// IDs are adapter-local and not unique across sources. Instances are
// built per call and never mutated afterwards.
type ExternalProduct struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Brand              string          `json:"brand,omitempty"`
	Manufacturer       string          `json:"manufacturer,omitempty"`
	Category           string          `json:"category,omitempty"`
	Verified           bool            `json:"verified"`
	Source             Source          `json:"source"`
	ImageURL           string          `json:"imageUrl,omitempty"`
	NutritionGrade     string          `json:"nutritionGrade,omitempty"`
	RegistrationNumber string          `json:"registrationNumber,omitempty"`
	RegistrationDate   string          `json:"registrationDate,omitempty"`
	Status             string          `json:"status,omitempty"`
	Raw                json.RawMessage `json:"-"`
}

// ValidationResult is the normalized outcome of a single adapter call.
// Invariants: Verified implies Found; Confidence == 0 implies not Found.
type ValidationResult struct {
	Found        bool              `json:"found"`
	Verified     bool              `json:"verified"`
	Confidence   float64           `json:"confidence"`
	Source       Source            `json:"source"`
	Product      *ExternalProduct  `json:"product,omitempty"`
	Alternatives []ExternalProduct `json:"alternatives"`
}

// NotFoundResult builds the universal miss/failure result for a source.
func NotFoundResult(source Source) *ValidationResult {
	return &ValidationResult{
		Found:        false,
		Verified:     false,
		Confidence:   0,
		Source:       source,
		Alternatives: []ExternalProduct{},
	}
}

// VerifyRequest is a product verification request
type VerifyRequest struct {
	ProductName string   `json:"productName" binding:"required"`
	Barcode     string   `json:"barcode,omitempty"`
	Category    string   `json:"category,omitempty"`
	Ingredients []string `json:"ingredients,omitempty"`
	UserID      string   `json:"userId,omitempty"`
}

// InternalFinding is the internal-catalog half of an aggregate verdict
type InternalFinding struct {
	Found   bool     `json:"found"`
	Product *Product `json:"product,omitempty"`
}

// SourceBreakdown carries both halves of the aggregation for the caller
type SourceBreakdown struct {
	Internal InternalFinding   `json:"internal"`
	External *ValidationResult `json:"external"`
}

// AggregatedResult is the full verdict for one verification request.
// Recomputed on every call; never persisted beyond the validation log.
type AggregatedResult struct {
	ProductName     string          `json:"productName"`
	OverallVerified bool            `json:"overallVerified"`
	Confidence      float64         `json:"confidence"`
	Sources         SourceBreakdown `json:"sources"`
	Recommendations []string        `json:"recommendations"`
	RiskLevel       RiskLevel       `json:"riskLevel"`
	Summary         string          `json:"summary"`
}

// SourcesChecked records which halves of the aggregation ran for a log entry
type SourcesChecked struct {
	Internal bool `json:"internal"`
	External bool `json:"external"`
}

// ValidationLogEntry is one row in the validation-log sink, kept for
// analytics dashboards. Write failures are non-critical.
type ValidationLogEntry struct {
	ID             int64          `json:"id,omitempty"`
	UserID         string         `json:"userId,omitempty"`
	ProductName    string         `json:"productName"`
	ResultSummary  string         `json:"resultSummary"`
	RiskLevel      RiskLevel      `json:"riskLevel"`
	Confidence     float64        `json:"confidence"`
	SourcesChecked SourcesChecked `json:"sourcesChecked"`
	CreatedAt      time.Time      `json:"createdAt"`
}
