package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/veriscan/backend/internal/domain"
)

// validateAll fans out to every adapter concurrently and waits for
// all of them. Results come back in adapter order so confidence ties
// resolve by iteration order. Each call runs under its own timeout; a
// slow adapter resolves to not-found instead of stalling the whole
// aggregate.
func validateAll(
	ctx context.Context,
	log *logrus.Logger,
	adapters []domain.SourceAdapter,
	name, barcode, category string,
	snap AdapterSettings,
) []*domain.ValidationResult {
	results := make([]*domain.ValidationResult, len(adapters))

	var wg sync.WaitGroup
	for i, adapter := range adapters {
		wg.Add(1)
		go func(i int, adapter domain.SourceAdapter) {
			defer wg.Done()
			results[i] = validateWithTimeout(ctx, log, adapter, name, barcode, category, snap.Timeout)
		}(i, adapter)
	}
	wg.Wait()

	for _, result := range results {
		applyConfidenceWeight(result, snap)
		sanitizeResult(result)
	}
	return results
}

// validateWithTimeout runs one adapter under a deadline. Timeouts and
// panics both collapse into a not-found result for that source.
func validateWithTimeout(
	ctx context.Context,
	log *logrus.Logger,
	adapter domain.SourceAdapter,
	name, barcode, category string,
	timeout time.Duration,
) *domain.ValidationResult {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan *domain.ValidationResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.WithFields(logrus.Fields{"adapter": adapter.Source(), "panic": r}).Error("adapter panicked")
				done <- domain.NotFoundResult(adapter.Source())
			}
		}()
		done <- adapter.Validate(tctx, name, barcode, category)
	}()

	select {
	case result := <-done:
		if result == nil {
			result = domain.NotFoundResult(adapter.Source())
		}
		return result
	case <-tctx.Done():
		log.WithFields(logrus.Fields{"adapter": adapter.Source(), "timeout": timeout}).Warn("adapter timed out")
		return domain.NotFoundResult(adapter.Source())
	}
}

// applyConfidenceWeight overrides found-result confidence with the
// configured per-source weight, keeping scoring replaceable without
// touching adapters.
func applyConfidenceWeight(result *domain.ValidationResult, snap AdapterSettings) {
	if result == nil || !result.Found {
		return
	}
	if weight, ok := snap.Confidence[result.Source]; ok {
		result.Confidence = weight
	}
}

// sanitizeResult enforces the adapter result invariants:
// verified implies found, and zero confidence implies not found.
func sanitizeResult(result *domain.ValidationResult) {
	if result == nil {
		return
	}
	if result.Alternatives == nil {
		result.Alternatives = []domain.ExternalProduct{}
	}
	if !result.Found {
		result.Verified = false
		result.Confidence = 0
		return
	}
	if result.Confidence <= 0 {
		result.Found = false
		result.Verified = false
		result.Confidence = 0
		result.Product = nil
	}
}
