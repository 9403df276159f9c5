package usecase

import (
	"context"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/veriscan/backend/internal/domain"
)

// SearchService is the enhanced-search façade: one internal catalog
// query merged with the external registries' answers.
type SearchService struct {
	catalog  domain.CatalogRepository
	adapters []domain.SourceAdapter
	settings *SettingsStore
	log      *logrus.Logger
}

// NewSearchService creates the façade with its dependencies
func NewSearchService(
	catalog domain.CatalogRepository,
	adapters []domain.SourceAdapter,
	settings *SettingsStore,
	log *logrus.Logger,
) *SearchService {
	if settings == nil {
		settings = NewSettingsStore(AdapterSettings{})
	}
	if log == nil {
		log = logrus.New()
	}
	return &SearchService{
		catalog:  catalog,
		adapters: adapters,
		settings: settings,
		log:      log,
	}
}

// Search runs the catalog query and the external fan-out side by side
// and merges everything into one three-part response.
func (s *SearchService) Search(ctx context.Context, req *domain.SearchRequest) (*domain.SearchResponse, error) {
	if req == nil || strings.TrimSpace(req.Query) == "" {
		return nil, domain.ErrInvalidRequest
	}

	bucket := RouteCategory(req.Filters.Category)
	snap := s.settings.Snapshot()

	var wg sync.WaitGroup
	var internal []domain.Product

	wg.Add(1)
	go func() {
		defer wg.Done()
		products, _, err := s.catalog.Search(ctx, req.Query, req.Filters)
		if err != nil {
			// A catalog failure degrades to an empty internal list;
			// external results still go out.
			s.log.WithError(err).Warn("catalog search failed")
			return
		}
		internal = products
	}()

	external := s.searchExternal(ctx, req, bucket, snap)
	wg.Wait()

	if len(req.Filters.NutritionGrades) > 0 {
		external = filterByNutritionGrade(external, req.Filters.NutritionGrades)
	}

	return &domain.SearchResponse{
		Internal: internal,
		External: external,
		Combined: combine(internal, external),
	}, nil
}

// searchExternal fans out to the category-routed adapters plus the
// regulator lookup, which runs for every search.
func (s *SearchService) searchExternal(ctx context.Context, req *domain.SearchRequest, bucket string, snap AdapterSettings) []domain.ExternalProduct {
	var eligible []domain.SourceAdapter
	for _, adapter := range s.adapters {
		if !snap.adapterEnabled(adapter.Source()) {
			continue
		}
		if adapter.Source() != domain.SourceNAFDAC && !adapter.Eligible(bucket) {
			continue
		}
		eligible = append(eligible, adapter)
	}
	if len(eligible) == 0 {
		return []domain.ExternalProduct{}
	}

	results := validateAll(ctx, s.log, eligible, req.Query, "", bucket, snap)

	external := []domain.ExternalProduct{}
	for _, result := range results {
		if result == nil || !result.Found {
			continue
		}
		if result.Product != nil {
			external = append(external, *result.Product)
		}
		external = append(external, result.Alternatives...)
	}
	return external
}

// filterByNutritionGrade is the post-hoc pass for a filter the
// adapters cannot apply natively.
func filterByNutritionGrade(products []domain.ExternalProduct, grades []string) []domain.ExternalProduct {
	allowed := make(map[string]bool, len(grades))
	for _, g := range grades {
		allowed[strings.ToLower(strings.TrimSpace(g))] = true
	}

	filtered := []domain.ExternalProduct{}
	for _, p := range products {
		if allowed[strings.ToLower(p.NutritionGrade)] {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// combine concatenates both result sets with a provenance tag
func combine(internal []domain.Product, external []domain.ExternalProduct) []domain.CombinedItem {
	combined := make([]domain.CombinedItem, 0, len(internal)+len(external))
	for _, p := range internal {
		combined = append(combined, domain.CombinedItem{
			Origin:         "internal",
			ID:             p.ID,
			Name:           p.Name,
			Brand:          p.Brand,
			Category:       p.Category,
			Verified:       p.Status == domain.StatusApproved,
			Registry:       domain.SourceInternal,
			NutritionGrade: p.NutritionGrade,
			ImageURL:       p.ImageURL,
		})
	}
	for _, p := range external {
		combined = append(combined, domain.CombinedItem{
			Origin:         "external",
			ID:             p.ID,
			Name:           p.Name,
			Brand:          p.Brand,
			Category:       p.Category,
			Verified:       p.Verified,
			Registry:       p.Source,
			NutritionGrade: p.NutritionGrade,
			ImageURL:       p.ImageURL,
		})
	}
	return combined
}
