package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veriscan/backend/internal/domain"
)

func newBarcodeAdapter(baseURL string) *BarcodeAdapter {
	return NewBarcodeAdapter(Options{
		BaseURL:        baseURL,
		Confidence:     0.7,
		RequestsPerSec: 100,
	})
}

func TestBarcodeAdapter_EligibleForEverything(t *testing.T) {
	adapter := newBarcodeAdapter("http://example.com")

	for _, category := range []string{"", domain.CategoryFood, domain.CategoryDrug, domain.CategoryCosmetics} {
		assert.True(t, adapter.Eligible(category), "category %q", category)
	}
}

func TestBarcodeAdapter_NoBarcodeNoLookup(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	adapter := newBarcodeAdapter(server.URL)
	result := adapter.Validate(context.Background(), "some product", "", "")

	assert.False(t, called, "adapter must not call the registry without a barcode")
	assertNotFound(t, result, domain.SourceBarcode)
}

func TestBarcodeAdapter_ValidateSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/lookup", r.URL.Path)
		assert.Equal(t, "6154000011123", r.URL.Query().Get("upc"))

		w.Write([]byte(`{
			"code": "OK",
			"total": 1,
			"items": [
				{"title": "Peak Evaporated Milk 170g", "brand": "Peak", "category": "Food, Beverages & Tobacco", "images": ["https://img.example/peak.jpg"]}
			]
		}`))
	}))
	defer server.Close()

	adapter := newBarcodeAdapter(server.URL)
	result := adapter.Validate(context.Background(), "peak milk", "6154000011123", "")

	require.NotNil(t, result)
	assert.True(t, result.Found)
	// A barcode hit proves existence, not registration
	assert.False(t, result.Verified)
	assert.InDelta(t, 0.7, result.Confidence, 0.0001)
	require.NotNil(t, result.Product)
	assert.Equal(t, "Peak Evaporated Milk 170g", result.Product.Name)
	assert.Equal(t, "https://img.example/peak.jpg", result.Product.ImageURL)
}

func TestBarcodeAdapter_ValidateRegistryRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code": "INVALID_UPC", "message": "invalid UPC"}`))
	}))
	defer server.Close()

	adapter := newBarcodeAdapter(server.URL)
	result := adapter.Validate(context.Background(), "", "not-a-upc", "")

	assertNotFound(t, result, domain.SourceBarcode)
}

func TestBarcodeAdapter_ValidateEmptyItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code": "OK", "total": 0, "items": []}`))
	}))
	defer server.Close()

	adapter := newBarcodeAdapter(server.URL)
	result := adapter.Validate(context.Background(), "", "0000000000000", "")

	assertNotFound(t, result, domain.SourceBarcode)
}
