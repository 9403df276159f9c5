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

// CosmeticsAdapter validates cosmetics against an ingredient safety
// database. Listings there describe ingredients rather than attest to
// registration, so results are found but never verified.
type CosmeticsAdapter struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	confidence float64
	log        *logrus.Logger
}

// NewCosmeticsAdapter creates the cosmetics ingredient database adapter
func NewCosmeticsAdapter(opts Options) *CosmeticsAdapter {
	return &CosmeticsAdapter{
		httpClient: newHTTPClient(),
		limiter:    newLimiter(opts.RequestsPerSec),
		baseURL:    opts.BaseURL,
		confidence: opts.Confidence,
		log:        ensureLogger(opts.Logger),
	}
}

// Source identifies this adapter
func (a *CosmeticsAdapter) Source() domain.Source {
	return domain.SourceCosmetics
}

// Eligible reports whether this adapter applies to a category
func (a *CosmeticsAdapter) Eligible(category string) bool {
	return category == "" || category == domain.CategoryCosmetics
}

type cosmeticsProduct struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Brand    string `json:"brand"`
	ImageURL string `json:"image_url"`
}

type cosmeticsSearchResponse struct {
	Products []cosmeticsProduct `json:"products"`
	Total    int                `json:"total"`
}

// Validate queries the cosmetics database for the product name
func (a *CosmeticsAdapter) Validate(ctx context.Context, name, barcode, category string) *domain.ValidationResult {
	entry := a.log.WithFields(logrus.Fields{"adapter": a.Source(), "query": name})

	endpoint := fmt.Sprintf("%s/v1/products", a.baseURL)
	params := url.Values{}
	params.Add("name", name)
	params.Add("limit", "5")

	body, err := getJSON(ctx, a.httpClient, a.limiter, entry, endpoint+"?"+params.Encode())
	if err != nil {
		entry.WithError(err).Debug("cosmetics lookup failed")
		return domain.NotFoundResult(a.Source())
	}

	var searchResp cosmeticsSearchResponse
	if err := json.Unmarshal(body, &searchResp); err != nil {
		entry.WithError(err).Debug("cosmetics response decode failed")
		return domain.NotFoundResult(a.Source())
	}

	if len(searchResp.Products) == 0 {
		return domain.NotFoundResult(a.Source())
	}

	products := make([]domain.ExternalProduct, 0, len(searchResp.Products))
	for _, p := range searchResp.Products {
		products = append(products, domain.ExternalProduct{
			ID:       p.ID,
			Name:     p.Name,
			Brand:    p.Brand,
			Category: domain.CategoryCosmetics,
			Verified: false,
			Source:   a.Source(),
			ImageURL: p.ImageURL,
			Raw:      body,
		})
	}

	entry.WithField("hits", len(products)).Debug("cosmetics results")

	return &domain.ValidationResult{
		Found:        true,
		Verified:     false,
		Confidence:   a.confidence,
		Source:       a.Source(),
		Product:      &products[0],
		Alternatives: products[1:],
	}
}
