package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/veriscan/backend/internal/domain"
)

// OpenFoodAdapter validates food and beverage products against the
// Open Food Facts database.
type OpenFoodAdapter struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	confidence float64
	log        *logrus.Logger
}

// NewOpenFoodAdapter creates the open food database adapter
func NewOpenFoodAdapter(opts Options) *OpenFoodAdapter {
	return &OpenFoodAdapter{
		httpClient: newHTTPClient(),
		limiter:    newLimiter(opts.RequestsPerSec),
		baseURL:    opts.BaseURL,
		confidence: opts.Confidence,
		log:        ensureLogger(opts.Logger),
	}
}

// Source identifies this adapter
func (a *OpenFoodAdapter) Source() domain.Source {
	return domain.SourceOpenFood
}

// Eligible reports whether this adapter applies to a category
func (a *OpenFoodAdapter) Eligible(category string) bool {
	return category == "" || category == domain.CategoryFood || category == domain.CategoryBeverage
}

// openFoodProduct mirrors the subset of the Open Food Facts search
// payload we care about.
type openFoodProduct struct {
	Code           string `json:"code"`
	ProductName    string `json:"product_name"`
	Brands         string `json:"brands"`
	Categories     string `json:"categories"`
	ImageURL       string `json:"image_url"`
	NutritionGrade string `json:"nutrition_grades"`
}

type openFoodSearchResponse struct {
	Count    int               `json:"count"`
	Products []openFoodProduct `json:"products"`
}

// Validate queries Open Food Facts for the product name
func (a *OpenFoodAdapter) Validate(ctx context.Context, name, barcode, category string) *domain.ValidationResult {
	entry := a.log.WithFields(logrus.Fields{"adapter": a.Source(), "query": name})

	endpoint := fmt.Sprintf("%s/cgi/search.pl", a.baseURL)
	params := url.Values{}
	params.Add("search_terms", name)
	params.Add("search_simple", "1")
	params.Add("action", "process")
	params.Add("json", "1")
	params.Add("page_size", "5")

	body, err := getJSON(ctx, a.httpClient, a.limiter, entry, endpoint+"?"+params.Encode())
	if err != nil {
		entry.WithError(err).Debug("open food lookup failed")
		return domain.NotFoundResult(a.Source())
	}

	var searchResp openFoodSearchResponse
	if err := json.Unmarshal(body, &searchResp); err != nil {
		entry.WithError(err).Debug("open food response decode failed")
		return domain.NotFoundResult(a.Source())
	}

	if len(searchResp.Products) == 0 {
		return domain.NotFoundResult(a.Source())
	}

	products := make([]domain.ExternalProduct, 0, len(searchResp.Products))
	for _, p := range searchResp.Products {
		if p.ProductName == "" {
			continue
		}
		products = append(products, domain.ExternalProduct{
			ID:             p.Code,
			Name:           p.ProductName,
			Brand:          p.Brands,
			Category:       domain.CategoryFood,
			Verified:       true,
			Source:         a.Source(),
			ImageURL:       p.ImageURL,
			NutritionGrade: p.NutritionGrade,
			Raw:            body,
		})
	}
	if len(products) == 0 {
		return domain.NotFoundResult(a.Source())
	}

	entry.WithField("hits", len(products)).Debug("open food results")

	return &domain.ValidationResult{
		Found:        true,
		Verified:     true,
		Confidence:   a.confidence,
		Source:       a.Source(),
		Product:      &products[0],
		Alternatives: products[1:],
	}
}
