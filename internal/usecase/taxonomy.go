package usecase

import (
	"strings"

	"github.com/veriscan/backend/internal/domain"
)

// categoryRouting maps UI categories onto the adapter-eligibility
// taxonomy. Categories not listed here land in the food bucket; most
// consumer products are food-like and that is the documented default.
var categoryRouting = map[string]string{
	"food":          domain.CategoryFood,
	"foods":         domain.CategoryFood,
	"groceries":     domain.CategoryFood,
	"snacks":        domain.CategoryFood,
	"beverage":      domain.CategoryBeverage,
	"beverages":     domain.CategoryBeverage,
	"drinks":        domain.CategoryBeverage,
	"drug":          domain.CategoryDrug,
	"drugs":         domain.CategoryDrug,
	"medication":    domain.CategoryMedication,
	"medications":   domain.CategoryMedication,
	"medicine":      domain.CategoryMedication,
	"pharmacy":      domain.CategoryMedication,
	"supplement":    domain.CategorySupplement,
	"supplements":   domain.CategorySupplement,
	"vitamins":      domain.CategorySupplement,
	"cosmetics":     domain.CategoryCosmetics,
	"beauty":        domain.CategoryCosmetics,
	"skincare":      domain.CategoryCosmetics,
	"personal care": domain.CategoryCosmetics,
}

// RouteCategory resolves a UI category to its adapter bucket. Empty
// stays empty (meaning "all adapters apply").
func RouteCategory(category string) string {
	if category == "" {
		return ""
	}
	normalized := strings.ToLower(strings.TrimSpace(category))
	if bucket, ok := categoryRouting[normalized]; ok {
		return bucket
	}
	return domain.CategoryFood
}

// allergenKeywords is the fixed list matched against ingredient names
var allergenKeywords = []string{
	"peanut", "tree nut", "almond", "cashew", "walnut", "hazelnut",
	"milk", "lactose", "egg", "soy", "wheat", "gluten",
	"shellfish", "shrimp", "crab", "lobster", "fish", "sesame",
}

// DetectAllergens returns the allergen keywords present in the
// ingredient list, in keyword order, without duplicates.
func DetectAllergens(ingredients []string) []string {
	if len(ingredients) == 0 {
		return nil
	}

	joined := strings.ToLower(strings.Join(ingredients, " "))

	var matched []string
	for _, keyword := range allergenKeywords {
		if strings.Contains(joined, keyword) {
			matched = append(matched, keyword)
		}
	}
	return matched
}

// isPoorNutritionGrade reports whether a nutrition grade warrants a
// warning.
func isPoorNutritionGrade(grade string) bool {
	switch strings.ToLower(strings.TrimSpace(grade)) {
	case "d", "e":
		return true
	}
	return false
}

// isMedicinal reports whether a category bucket calls for professional
// advice on anything less than low risk.
func isMedicinal(category string) bool {
	switch category {
	case domain.CategoryDrug, domain.CategoryMedication, domain.CategorySupplement:
		return true
	}
	return false
}
