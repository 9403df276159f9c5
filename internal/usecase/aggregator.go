package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/veriscan/backend/internal/domain"
	"github.com/veriscan/backend/internal/infrastructure/cache"
)

// Fixed recommendation strings, appended per risk branch
const (
	recVerifiedBoth       = "Product verified in both the internal catalog and an external registry."
	recInternalOnly       = "Product found in the internal catalog."
	recExternalVerified   = "Product verified by an external registry."
	recExternalUnverified = "Product was found externally but could not be verified. Double-check the packaging and registration number."
	recNotFound           = "Product not found in any database. Purchase with caution and report suspicious packaging."
	recConsultPro         = "Consult a licensed pharmacist or doctor before using this product."
	recSystemError        = "Verification could not be completed due to a system error. Please try again."
)

// Aggregate-result cache TTL shares the adapter cache default
const defaultAggregateTTL = 1 * time.Hour

// confidenceCap bounds the overall confidence of any verdict
const confidenceCap = 0.95

// AggregatorConfig holds tunables for the aggregator
type AggregatorConfig struct {
	CacheTTL time.Duration
}

// Aggregator fans a verification request out to the internal catalog
// and every eligible registry adapter, then folds the answers into one
// verdict. Aggregate is total: it never returns an error and never
// panics through to the caller.
type Aggregator struct {
	catalog  domain.CatalogRepository
	adapters []domain.SourceAdapter
	cache    domain.CacheRepository
	logs     domain.ValidationLogRepository
	settings *SettingsStore
	cacheTTL time.Duration
	log      *logrus.Logger
}

// NewAggregator creates an aggregator with its dependencies
func NewAggregator(
	catalog domain.CatalogRepository,
	adapters []domain.SourceAdapter,
	cacheRepo domain.CacheRepository,
	logs domain.ValidationLogRepository,
	settings *SettingsStore,
	config AggregatorConfig,
	log *logrus.Logger,
) *Aggregator {
	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = defaultAggregateTTL
	}
	if settings == nil {
		settings = NewSettingsStore(AdapterSettings{})
	}
	if log == nil {
		log = logrus.New()
	}

	return &Aggregator{
		catalog:  catalog,
		adapters: adapters,
		cache:    cacheRepo,
		logs:     logs,
		settings: settings,
		cacheTTL: cacheTTL,
		log:      log,
	}
}

// Aggregate verifies one product across all sources.
// Flow: check cache -> internal lookup + external fan-out in parallel
// -> pick best external -> classify risk -> recommend -> cache -> log.
func (a *Aggregator) Aggregate(ctx context.Context, req *domain.VerifyRequest) (result *domain.AggregatedResult) {
	defer func() {
		if r := recover(); r != nil {
			a.log.WithField("panic", r).Error("aggregation failed")
			name := ""
			if req != nil {
				name = req.ProductName
			}
			result = errorResult(name)
		}
	}()

	if req == nil || strings.TrimSpace(req.ProductName) == "" {
		return errorResult("")
	}

	category := RouteCategory(req.Category)
	cacheKey := aggregateCacheKey(req, category)

	if cached := a.readCachedResult(ctx, cacheKey); cached != nil {
		a.logAttempt(ctx, req, cached, domain.SourcesChecked{})
		return cached
	}

	snap := a.settings.Snapshot()

	// Internal catalog lookup and external fan-out have no ordering
	// dependency; run them side by side.
	var wg sync.WaitGroup
	var internalProduct *domain.Product

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				a.log.WithField("panic", r).Error("catalog lookup panicked")
			}
		}()
		p, err := a.catalog.FindApproved(ctx, req.ProductName, req.Barcode)
		if err == nil {
			internalProduct = p
			return
		}
		if !errors.Is(err, domain.ErrProductNotFound) {
			// Catalog trouble is treated as "not found internally";
			// the external half still decides the verdict.
			a.log.WithError(err).Warn("internal catalog lookup failed")
		}
	}()

	external := a.validateExternal(ctx, req, category, snap)
	wg.Wait()

	internalFound := internalProduct != nil
	result = a.buildResult(req, category, internalProduct, external, internalFound)

	a.writeCachedResult(ctx, cacheKey, result)
	a.logAttempt(ctx, req, result, domain.SourcesChecked{Internal: true, External: true})

	return result
}

// validateExternal runs all eligible adapters and folds their answers
// into the single best external result.
func (a *Aggregator) validateExternal(ctx context.Context, req *domain.VerifyRequest, category string, snap AdapterSettings) *domain.ValidationResult {
	var eligible []domain.SourceAdapter
	for _, adapter := range a.adapters {
		if !snap.adapterEnabled(adapter.Source()) {
			continue
		}
		if !adapter.Eligible(category) {
			continue
		}
		eligible = append(eligible, adapter)
	}

	if len(eligible) == 0 {
		return domain.NotFoundResult(domain.SourceError)
	}

	results := validateAll(ctx, a.log, eligible, req.ProductName, req.Barcode, category, snap)

	// Highest confidence wins; ties go to the earlier adapter. The
	// tie-break carries no meaning beyond determinism.
	var best *domain.ValidationResult
	var others []*domain.ValidationResult
	for _, result := range results {
		if result == nil || !result.Found {
			continue
		}
		if best == nil || result.Confidence > best.Confidence {
			if best != nil {
				others = append(others, best)
			}
			best = result
		} else {
			others = append(others, result)
		}
	}

	if best == nil {
		return domain.NotFoundResult(domain.SourceError)
	}

	merged := *best
	merged.Alternatives = append([]domain.ExternalProduct{}, best.Alternatives...)
	for _, other := range others {
		if other.Product != nil {
			merged.Alternatives = append(merged.Alternatives, *other.Product)
		}
		merged.Alternatives = append(merged.Alternatives, other.Alternatives...)
	}
	if len(merged.Alternatives) > 10 {
		merged.Alternatives = merged.Alternatives[:10]
	}
	return &merged
}

// buildResult folds both halves into the final verdict
func (a *Aggregator) buildResult(
	req *domain.VerifyRequest,
	category string,
	internalProduct *domain.Product,
	external *domain.ValidationResult,
	internalFound bool,
) *domain.AggregatedResult {
	risk := classifyRisk(internalFound, external.Found, external.Verified)
	overallVerified := internalFound || (external.Found && external.Verified)

	confidence := 0.6 * external.Confidence
	if internalFound {
		confidence += 0.4
	}
	if confidence > confidenceCap {
		confidence = confidenceCap
	}

	recommendations := a.buildRecommendations(req, category, internalProduct, external, risk)

	return &domain.AggregatedResult{
		ProductName:     req.ProductName,
		OverallVerified: overallVerified,
		Confidence:      confidence,
		Sources: domain.SourceBreakdown{
			Internal: domain.InternalFinding{Found: internalFound, Product: internalProduct},
			External: external,
		},
		Recommendations: recommendations,
		RiskLevel:       risk,
		Summary:         summaryFor(req.ProductName, risk),
	}
}

// classifyRisk is the documented risk matrix, evaluated in order
func classifyRisk(internalFound, externalFound, externalVerified bool) domain.RiskLevel {
	switch {
	case internalFound && externalFound && externalVerified:
		return domain.RiskLow
	case internalFound || (externalFound && externalVerified):
		return domain.RiskLow
	case externalFound && !externalVerified:
		return domain.RiskMedium
	default:
		return domain.RiskHigh
	}
}

// buildRecommendations appends the fixed per-branch strings plus the
// category, nutrition-grade and allergen add-ons.
func (a *Aggregator) buildRecommendations(
	req *domain.VerifyRequest,
	category string,
	internalProduct *domain.Product,
	external *domain.ValidationResult,
	risk domain.RiskLevel,
) []string {
	internalFound := internalProduct != nil
	recommendations := []string{}

	switch {
	case internalFound && external.Found && external.Verified:
		recommendations = append(recommendations, recVerifiedBoth)
	case internalFound:
		recommendations = append(recommendations, recInternalOnly)
	case external.Found && external.Verified:
		recommendations = append(recommendations, recExternalVerified)
	case external.Found:
		recommendations = append(recommendations, recExternalUnverified)
	default:
		recommendations = append(recommendations, recNotFound)
	}

	if isMedicinal(category) && risk != domain.RiskLow {
		recommendations = append(recommendations, recConsultPro)
	}

	if category == domain.CategoryFood || category == domain.CategoryBeverage || category == "" {
		if grade := bestNutritionGrade(internalProduct, external); isPoorNutritionGrade(grade) {
			recommendations = append(recommendations,
				fmt.Sprintf("This product has a poor nutrition grade (%s). Consider healthier alternatives.", strings.ToLower(grade)))
		}
	}

	for _, allergen := range DetectAllergens(req.Ingredients) {
		recommendations = append(recommendations,
			fmt.Sprintf("Contains a possible allergen: %s.", allergen))
	}

	return recommendations
}

// bestNutritionGrade prefers the external registry's grade, falling
// back to the catalog's.
func bestNutritionGrade(internalProduct *domain.Product, external *domain.ValidationResult) string {
	if external != nil && external.Product != nil && external.Product.NutritionGrade != "" {
		return external.Product.NutritionGrade
	}
	if internalProduct != nil {
		return internalProduct.NutritionGrade
	}
	return ""
}

func summaryFor(name string, risk domain.RiskLevel) string {
	switch risk {
	case domain.RiskLow:
		return fmt.Sprintf("%q appears genuine.", name)
	case domain.RiskMedium:
		return fmt.Sprintf("%q was found but could not be fully verified.", name)
	default:
		return fmt.Sprintf("%q could not be verified.", name)
	}
}

// errorResult is the universal fallback verdict: high risk, zero
// confidence, fixed message.
func errorResult(name string) *domain.AggregatedResult {
	return &domain.AggregatedResult{
		ProductName:     name,
		OverallVerified: false,
		Confidence:      0,
		Sources: domain.SourceBreakdown{
			Internal: domain.InternalFinding{Found: false},
			External: domain.NotFoundResult(domain.SourceError),
		},
		Recommendations: []string{recSystemError},
		RiskLevel:       domain.RiskHigh,
		Summary:         "Verification failed due to a system error.",
	}
}

// aggregateCacheKey covers every request field the verdict depends
// on. Ingredients feed the allergen recommendations, so they are part
// of the key; normalized and sorted so ingredient order does not
// split the cache.
func aggregateCacheKey(req *domain.VerifyRequest, category string) string {
	parts := []string{"aggregate", req.ProductName, req.Barcode, category}

	if len(req.Ingredients) > 0 {
		ingredients := make([]string, 0, len(req.Ingredients))
		for _, ingredient := range req.Ingredients {
			if normalized := cache.Normalize(ingredient); normalized != "" {
				ingredients = append(ingredients, normalized)
			}
		}
		sort.Strings(ingredients)
		parts = append(parts, ingredients...)
	}

	return cache.QueryKey(strings.Join(parts, " "))
}

func (a *Aggregator) readCachedResult(ctx context.Context, key string) *domain.AggregatedResult {
	if a.cache == nil {
		return nil
	}
	payload, err := a.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			a.log.WithError(err).Warn("aggregate cache read failed")
		}
		return nil
	}
	var cached domain.AggregatedResult
	if err := json.Unmarshal(payload, &cached); err != nil {
		a.log.WithError(err).Warn("corrupt aggregate cache entry")
		return nil
	}
	return &cached
}

func (a *Aggregator) writeCachedResult(ctx context.Context, key string, result *domain.AggregatedResult) {
	if a.cache == nil {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := a.cache.Set(ctx, key, payload, a.cacheTTL); err != nil {
		a.log.WithError(err).Warn("aggregate cache write failed")
	}
}

// logAttempt appends the verification attempt to the analytics sink.
// checked records which halves actually ran; a cache hit ran neither.
// Failures are logged and swallowed; the sink is never on the critical
// path.
func (a *Aggregator) logAttempt(ctx context.Context, req *domain.VerifyRequest, result *domain.AggregatedResult, checked domain.SourcesChecked) {
	if a.logs == nil {
		return
	}
	entry := &domain.ValidationLogEntry{
		UserID:         req.UserID,
		ProductName:    req.ProductName,
		ResultSummary:  result.Summary,
		RiskLevel:      result.RiskLevel,
		Confidence:     result.Confidence,
		SourcesChecked: checked,
		CreatedAt:      time.Now().UTC(),
	}
	if err := a.logs.Append(ctx, entry); err != nil {
		a.log.WithError(err).Warn("validation log write failed")
	}
}
