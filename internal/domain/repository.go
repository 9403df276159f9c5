package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations.
// Values are opaque JSON payloads; expiry is enforced at read time.
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// SourceAdapter is one external product registry. Validate never
// returns an error: transport or parse failures collapse into a
// not-found result for the adapter's own source.
type SourceAdapter interface {
	Source() Source
	Eligible(category string) bool
	Validate(ctx context.Context, name, barcode, category string) *ValidationResult
}

// CatalogRepository defines the interface for the internal product catalog
type CatalogRepository interface {
	FindApproved(ctx context.Context, name, barcode string) (*Product, error)
	Search(ctx context.Context, query string, filters SearchFilters) ([]Product, int, error)
}

// ValidationLogRepository is the analytics sink for verification attempts
type ValidationLogRepository interface {
	Append(ctx context.Context, entry *ValidationLogEntry) error
	Recent(ctx context.Context, limit int) ([]ValidationLogEntry, error)
}
