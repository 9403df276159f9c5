// Package registry holds one adapter per external product registry.
// Every adapter normalizes its registry's answer into a
// domain.ValidationResult and swallows transport and parse failures:
// the aggregator only ever sees found or not-found.
package registry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/veriscan/backend/internal/domain"
)

const maxAttempts = 3

// Options configures a single registry adapter
type Options struct {
	BaseURL        string
	Confidence     float64
	RequestsPerSec float64
	Logger         *logrus.Logger
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 15 * time.Second,
	}
}

func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		rps = 1
	}
	return rate.NewLimiter(rate.Limit(rps), 5)
}

func ensureLogger(log *logrus.Logger) *logrus.Logger {
	if log == nil {
		log = logrus.New()
		log.SetLevel(logrus.WarnLevel)
	}
	return log
}

// getJSON executes a rate-limited GET with retries for transient
// failures and returns the raw response body.
func getJSON(ctx context.Context, client *http.Client, limiter *rate.Limiter, log *logrus.Entry, reqURL string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", "VeriScan/1.0")
		req.Header.Set("Accept", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			log.WithError(err).WithField("attempt", attempt).Debug("registry request error")
			lastErr = fmt.Errorf("%w: %v", domain.ErrRegistryFailure, err)
			if !sleepBackoff(ctx, attempt) {
				return nil, lastErr
			}
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return nil, domain.ErrProductNotFound
		}
		if resp.StatusCode != http.StatusOK {
			log.WithFields(logrus.Fields{"attempt": attempt, "status": resp.StatusCode}).Debug("registry non-OK status")
			lastErr = fmt.Errorf("%w: status %d", domain.ErrRegistryFailure, resp.StatusCode)
			if !sleepBackoff(ctx, attempt) {
				return nil, lastErr
			}
			continue
		}

		return body, nil
	}
	return nil, lastErr
}

// sleepBackoff waits out a linear backoff, honoring cancellation.
// Returns false when the context died while waiting.
func sleepBackoff(ctx context.Context, attempt int) bool {
	if attempt >= maxAttempts {
		return true
	}
	timer := time.NewTimer(time.Duration(attempt) * 500 * time.Millisecond)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
