package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/veriscan/backend/internal/domain"
)

// DrugRegistryAdapter validates medications against the openFDA drug
// label database.
type DrugRegistryAdapter struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	confidence float64
	log        *logrus.Logger
}

// NewDrugRegistryAdapter creates the drug database adapter
func NewDrugRegistryAdapter(opts Options) *DrugRegistryAdapter {
	return &DrugRegistryAdapter{
		httpClient: newHTTPClient(),
		limiter:    newLimiter(opts.RequestsPerSec),
		baseURL:    opts.BaseURL,
		confidence: opts.Confidence,
		log:        ensureLogger(opts.Logger),
	}
}

// Source identifies this adapter
func (a *DrugRegistryAdapter) Source() domain.Source {
	return domain.SourceDrugs
}

// Eligible reports whether this adapter applies to a category
func (a *DrugRegistryAdapter) Eligible(category string) bool {
	switch category {
	case "", domain.CategoryDrug, domain.CategoryMedication, domain.CategorySupplement:
		return true
	}
	return false
}

type drugLabelResult struct {
	ID      string `json:"id"`
	OpenFDA struct {
		BrandName        []string `json:"brand_name"`
		GenericName      []string `json:"generic_name"`
		ManufacturerName []string `json:"manufacturer_name"`
		ProductNDC       []string `json:"product_ndc"`
	} `json:"openfda"`
}

type drugSearchResponse struct {
	Results []drugLabelResult `json:"results"`
}

// Validate queries the drug label database for the product name
func (a *DrugRegistryAdapter) Validate(ctx context.Context, name, barcode, category string) *domain.ValidationResult {
	entry := a.log.WithFields(logrus.Fields{"adapter": a.Source(), "query": name})

	endpoint := fmt.Sprintf("%s/label.json", a.baseURL)
	params := url.Values{}
	params.Add("search", fmt.Sprintf("openfda.brand_name:%q", name))
	params.Add("limit", "5")

	body, err := getJSON(ctx, a.httpClient, a.limiter, entry, endpoint+"?"+params.Encode())
	if err != nil {
		entry.WithError(err).Debug("drug registry lookup failed")
		return domain.NotFoundResult(a.Source())
	}

	var searchResp drugSearchResponse
	if err := json.Unmarshal(body, &searchResp); err != nil {
		entry.WithError(err).Debug("drug registry response decode failed")
		return domain.NotFoundResult(a.Source())
	}

	if len(searchResp.Results) == 0 {
		return domain.NotFoundResult(a.Source())
	}

	products := make([]domain.ExternalProduct, 0, len(searchResp.Results))
	for _, r := range searchResp.Results {
		products = append(products, domain.ExternalProduct{
			ID:                 r.ID,
			Name:               firstOr(r.OpenFDA.BrandName, firstOr(r.OpenFDA.GenericName, name)),
			Manufacturer:       firstOr(r.OpenFDA.ManufacturerName, ""),
			Category:           domain.CategoryDrug,
			Verified:           true,
			Source:             a.Source(),
			RegistrationNumber: firstOr(r.OpenFDA.ProductNDC, ""),
			Raw:                body,
		})
	}

	entry.WithField("hits", len(products)).Debug("drug registry results")

	return &domain.ValidationResult{
		Found:        true,
		Verified:     true,
		Confidence:   a.confidence,
		Source:       a.Source(),
		Product:      &products[0],
		Alternatives: products[1:],
	}
}

func firstOr(values []string, fallback string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return fallback
}
