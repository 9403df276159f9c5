package registry

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/veriscan/backend/internal/domain"
)

// BarcodeAdapter resolves UPC/EAN codes through a barcode registry.
// A hit only proves the code exists, not that the product is
// registered with any regulator, so results are never verified.
type BarcodeAdapter struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	confidence float64
	log        *logrus.Logger
}

// NewBarcodeAdapter creates the barcode registry adapter
func NewBarcodeAdapter(opts Options) *BarcodeAdapter {
	return &BarcodeAdapter{
		httpClient: newHTTPClient(),
		limiter:    newLimiter(opts.RequestsPerSec),
		baseURL:    opts.BaseURL,
		confidence: opts.Confidence,
		log:        ensureLogger(opts.Logger),
	}
}

// Source identifies this adapter
func (a *BarcodeAdapter) Source() domain.Source {
	return domain.SourceBarcode
}

// Eligible applies to every category; a missing barcode is handled in
// Validate instead.
func (a *BarcodeAdapter) Eligible(category string) bool {
	return true
}

// Validate looks up the barcode. Without a barcode there is nothing
// to resolve and the adapter reports not found.
func (a *BarcodeAdapter) Validate(ctx context.Context, name, barcode, category string) *domain.ValidationResult {
	if barcode == "" {
		return domain.NotFoundResult(a.Source())
	}

	entry := a.log.WithFields(logrus.Fields{"adapter": a.Source(), "barcode": barcode})

	endpoint := fmt.Sprintf("%s/v1/lookup", a.baseURL)
	params := url.Values{}
	params.Add("upc", barcode)

	body, err := getJSON(ctx, a.httpClient, a.limiter, entry, endpoint+"?"+params.Encode())
	if err != nil {
		entry.WithError(err).Debug("barcode lookup failed")
		return domain.NotFoundResult(a.Source())
	}

	// Barcode registries answer with loosely shaped JSON; pick what we
	// need instead of binding the whole payload.
	payload := string(body)
	if code := gjson.Get(payload, "code").String(); code != "" && code != "OK" {
		return domain.NotFoundResult(a.Source())
	}

	items := gjson.Get(payload, "items").Array()
	if len(items) == 0 {
		return domain.NotFoundResult(a.Source())
	}

	products := make([]domain.ExternalProduct, 0, len(items))
	for _, item := range items {
		title := item.Get("title").String()
		if title == "" {
			continue
		}
		products = append(products, domain.ExternalProduct{
			ID:       barcode,
			Name:     title,
			Brand:    item.Get("brand").String(),
			Category: item.Get("category").String(),
			Verified: false,
			Source:   a.Source(),
			ImageURL: item.Get("images.0").String(),
			Raw:      body,
		})
	}
	if len(products) == 0 {
		return domain.NotFoundResult(a.Source())
	}

	entry.WithField("hits", len(products)).Debug("barcode results")

	return &domain.ValidationResult{
		Found:        true,
		Verified:     false,
		Confidence:   a.confidence,
		Source:       a.Source(),
		Product:      &products[0],
		Alternatives: products[1:],
	}
}
