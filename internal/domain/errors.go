package domain

import "errors"

var (
	// ErrProductNotFound is returned when a product cannot be found in any registry
	ErrProductNotFound = errors.New("product not found")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable is returned when the cache backend cannot be reached
	ErrCacheUnavailable = errors.New("cache unavailable")

	// ErrRegistryFailure is returned when an external registry request fails
	ErrRegistryFailure = errors.New("registry request failed")

	// ErrCatalogUnavailable is returned when the internal catalog cannot be queried
	ErrCatalogUnavailable = errors.New("catalog unavailable")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")
)
