package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/veriscan/backend/internal/domain"
	"github.com/veriscan/backend/internal/infrastructure/cache"
)

// NAFDACOptions configures the regulator lookup adapter
type NAFDACOptions struct {
	BaseURL    string
	APIKey     string
	Confidence float64
	EnableMock bool
	Cache      domain.CacheRepository
	CacheTTL   time.Duration
	Logger     *logrus.Logger
}

// NAFDACAdapter queries the Nigerian regulator's product registry.
// Lookups are cached by hashed query so repeated verifications within
// the TTL cost a single network call. When the live endpoint fails and
// mock mode is on, the adapter fabricates a deterministic registration
// record; fabricated products carry status "simulated".
type NAFDACAdapter struct {
	client     *retryablehttp.Client
	baseURL    string
	apiKey     string
	confidence float64
	enableMock bool
	cache      domain.CacheRepository
	cacheTTL   time.Duration
	log        *logrus.Logger
}

// NewNAFDACAdapter creates the regulator lookup adapter
func NewNAFDACAdapter(opts NAFDACOptions) *NAFDACAdapter {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = 15 * time.Second
	client.Logger = nil

	ttl := opts.CacheTTL
	if ttl == 0 {
		ttl = 24 * time.Hour
	}

	return &NAFDACAdapter{
		client:     client,
		baseURL:    opts.BaseURL,
		apiKey:     opts.APIKey,
		confidence: opts.Confidence,
		enableMock: opts.EnableMock,
		cache:      opts.Cache,
		cacheTTL:   ttl,
		log:        ensureLogger(opts.Logger),
	}
}

// Source identifies this adapter
func (a *NAFDACAdapter) Source() domain.Source {
	return domain.SourceNAFDAC
}

// Eligible always answers true: the regulator lookup runs for every
// category.
func (a *NAFDACAdapter) Eligible(category string) bool {
	return true
}

// Validate resolves the product against the regulator registry,
// serving from cache when a fresh entry exists.
func (a *NAFDACAdapter) Validate(ctx context.Context, name, barcode, category string) *domain.ValidationResult {
	entry := a.log.WithFields(logrus.Fields{"adapter": a.Source(), "query": name})

	key := cache.QueryKey("nafdac " + name)

	if a.cache != nil {
		if payload, err := a.cache.Get(ctx, key); err == nil {
			var result domain.ValidationResult
			jsonErr := json.Unmarshal(payload, &result)
			if jsonErr == nil {
				entry.Debug("regulator lookup served from cache")
				return &result
			}
			entry.WithError(jsonErr).Warn("corrupt regulator cache entry, refetching")
		} else if !errors.Is(err, domain.ErrCacheMiss) {
			entry.WithError(err).Warn("regulator cache read failed")
		}
	}

	result, err := a.lookup(ctx, name)
	if err != nil {
		entry.WithError(err).Debug("regulator lookup failed")
		if !a.enableMock {
			return domain.NotFoundResult(a.Source())
		}
		entry.Warn("serving simulated regulator data")
		result = a.mockResult(name)
	}

	if a.cache != nil {
		if payload, err := json.Marshal(result); err == nil {
			if err := a.cache.Set(ctx, key, payload, a.cacheTTL); err != nil {
				entry.WithError(err).Warn("regulator cache write failed")
			}
		}
	}

	return result
}

// lookup performs the actual registry call
func (a *NAFDACAdapter) lookup(ctx context.Context, name string) (*domain.ValidationResult, error) {
	reqBody, err := json.Marshal(map[string]interface{}{
		"searchQuery": name,
		"limit":       5,
	})
	if err != nil {
		return nil, err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/search", reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "VeriScan/1.0")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRegistryFailure, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", domain.ErrRegistryFailure, resp.StatusCode)
	}

	return a.parseResponse(body, name)
}

// parseResponse maps the regulator payload into a ValidationResult.
// The endpoint is scraped and loosely shaped, so fields are picked
// individually rather than bound to a struct.
func (a *NAFDACAdapter) parseResponse(body []byte, name string) (*domain.ValidationResult, error) {
	payload := string(body)
	if !gjson.Valid(payload) {
		return nil, fmt.Errorf("%w: invalid response body", domain.ErrRegistryFailure)
	}

	if !gjson.Get(payload, "found").Bool() {
		return domain.NotFoundResult(a.Source()), nil
	}

	products := mapNAFDACProducts(gjson.Get(payload, "products").Array(), body)
	if len(products) == 0 {
		return domain.NotFoundResult(a.Source()), nil
	}
	alternatives := mapNAFDACProducts(gjson.Get(payload, "alternatives").Array(), body)

	return &domain.ValidationResult{
		Found:        true,
		Verified:     gjson.Get(payload, "verified").Bool(),
		Confidence:   a.confidence,
		Source:       a.Source(),
		Product:      &products[0],
		Alternatives: append(products[1:], alternatives...),
	}, nil
}

func mapNAFDACProducts(items []gjson.Result, raw []byte) []domain.ExternalProduct {
	products := make([]domain.ExternalProduct, 0, len(items))
	for _, item := range items {
		name := item.Get("name").String()
		if name == "" {
			continue
		}
		products = append(products, domain.ExternalProduct{
			ID:                 item.Get("id").String(),
			Name:               name,
			Manufacturer:       item.Get("manufacturer").String(),
			Category:           item.Get("category").String(),
			Verified:           item.Get("verified").Bool(),
			Source:             domain.SourceNAFDAC,
			RegistrationNumber: item.Get("registrationNumber").String(),
			RegistrationDate:   item.Get("registrationDate").String(),
			Status:             item.Get("status").String(),
			Raw:                raw,
		})
	}
	return products
}

// mockResult fabricates a deterministic registration record for a
// product name.
func (a *NAFDACAdapter) mockResult(name string) *domain.ValidationResult {
	normalized := cache.Normalize(name)

	var sum uint32
	for _, r := range normalized {
		sum = sum*31 + uint32(r)
	}

	product := domain.ExternalProduct{
		ID:                 fmt.Sprintf("nafdac-mock-%04d", sum%10000),
		Name:               name,
		Manufacturer:       "Simulated Manufacturer Ltd",
		Category:           domain.CategoryFood,
		Verified:           true,
		Source:             a.Source(),
		RegistrationNumber: fmt.Sprintf("A4-%04d", sum%10000),
		RegistrationDate:   "2022-01-15",
		Status:             "simulated",
	}

	return &domain.ValidationResult{
		Found:        true,
		Verified:     true,
		Confidence:   a.confidence,
		Source:       a.Source(),
		Product:      &product,
		Alternatives: []domain.ExternalProduct{},
	}
}
