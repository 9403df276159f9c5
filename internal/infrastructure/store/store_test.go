package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/veriscan/backend/internal/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedProducts(t *testing.T, db *DB) {
	t.Helper()
	ctx := context.Background()
	products := []domain.Product{
		{ID: "p1", Name: "Peak Evaporated Milk", Brand: "Peak", Barcode: "6154000011123", Category: domain.CategoryFood, Status: domain.StatusApproved, Country: "NG", State: "Lagos", NutritionGrade: "b"},
		{ID: "p2", Name: "Indomie Instant Noodles", Brand: "Indomie", Category: domain.CategoryFood, Status: domain.StatusApproved, Country: "NG", State: "Ogun", NutritionGrade: "d"},
		{ID: "p3", Name: "Aspirin 500mg", Brand: "Bayer", Barcode: "4005800398315", Category: domain.CategoryDrug, Status: domain.StatusApproved, Country: "NG"},
		{ID: "p4", Name: "Fake Aspirin", Category: domain.CategoryDrug, Status: domain.StatusFlagged},
	}
	for _, p := range products {
		if err := db.InsertProduct(ctx, &p); err != nil {
			t.Fatalf("InsertProduct(%s) error = %v", p.ID, err)
		}
	}
}

func TestFindApproved_ByBarcode(t *testing.T) {
	db := openTestDB(t)
	seedProducts(t, db)

	p, err := db.FindApproved(context.Background(), "", "6154000011123")
	if err != nil {
		t.Fatalf("FindApproved() error = %v", err)
	}
	if p.ID != "p1" {
		t.Errorf("FindApproved() ID = %s, want p1", p.ID)
	}
}

func TestFindApproved_ByName(t *testing.T) {
	db := openTestDB(t)
	seedProducts(t, db)

	p, err := db.FindApproved(context.Background(), "aspirin 500", "")
	if err != nil {
		t.Fatalf("FindApproved() error = %v", err)
	}
	if p.ID != "p3" {
		t.Errorf("FindApproved() ID = %s, want p3", p.ID)
	}
}

func TestFindApproved_SkipsUnapproved(t *testing.T) {
	db := openTestDB(t)
	seedProducts(t, db)

	// "Fake Aspirin" is flagged and must never match
	p, err := db.FindApproved(context.Background(), "Fake Aspirin", "")
	if err == nil && p.ID == "p4" {
		t.Error("FindApproved() returned a flagged product")
	}
}

func TestFindApproved_NotFound(t *testing.T) {
	db := openTestDB(t)
	seedProducts(t, db)

	_, err := db.FindApproved(context.Background(), "Unknown Product XYZ", "")
	if !errors.Is(err, domain.ErrProductNotFound) {
		t.Errorf("FindApproved() error = %v, want ErrProductNotFound", err)
	}
}

func TestSearch_Filters(t *testing.T) {
	db := openTestDB(t)
	seedProducts(t, db)
	ctx := context.Background()

	tests := []struct {
		name    string
		query   string
		filters domain.SearchFilters
		wantIDs []string
	}{
		{
			name:    "by name fragment",
			query:   "milk",
			wantIDs: []string{"p1"},
		},
		{
			name:    "by category",
			filters: domain.SearchFilters{Category: domain.CategoryFood},
			wantIDs: []string{"p2", "p1"}, // ordered by name
		},
		{
			name:    "by state",
			filters: domain.SearchFilters{State: "Lagos"},
			wantIDs: []string{"p1"},
		},
		{
			name:    "by nutrition grades",
			filters: domain.SearchFilters{NutritionGrades: []string{"a", "b"}},
			wantIDs: []string{"p1"},
		},
		{
			name:    "no match",
			query:   "nonexistent",
			wantIDs: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products, total, err := db.Search(ctx, tt.query, tt.filters)
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if total != len(tt.wantIDs) {
				t.Errorf("Search() total = %d, want %d", total, len(tt.wantIDs))
			}
			if len(products) != len(tt.wantIDs) {
				t.Fatalf("Search() returned %d products, want %d", len(products), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if products[i].ID != id {
					t.Errorf("Search()[%d].ID = %s, want %s", i, products[i].ID, id)
				}
			}
		})
	}
}

func TestSearch_ExcludesUnapproved(t *testing.T) {
	db := openTestDB(t)
	seedProducts(t, db)

	products, _, err := db.Search(context.Background(), "Fake", domain.SearchFilters{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(products) != 0 {
		t.Errorf("Search() returned %d flagged products, want 0", len(products))
	}
}

func TestValidationLog_AppendAndRecent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, risk := range []domain.RiskLevel{domain.RiskLow, domain.RiskMedium, domain.RiskHigh} {
		entry := &domain.ValidationLogEntry{
			UserID:         "user-1",
			ProductName:    "Product",
			ResultSummary:  "summary",
			RiskLevel:      risk,
			Confidence:     0.5,
			SourcesChecked: domain.SourcesChecked{Internal: true, External: true},
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		}
		if err := db.Append(ctx, entry); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	entries, err := db.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Recent() returned %d entries, want 2", len(entries))
	}
	// Newest first
	if entries[0].RiskLevel != domain.RiskHigh {
		t.Errorf("Recent()[0].RiskLevel = %s, want high", entries[0].RiskLevel)
	}
	if entries[1].RiskLevel != domain.RiskMedium {
		t.Errorf("Recent()[1].RiskLevel = %s, want medium", entries[1].RiskLevel)
	}
	if !entries[0].SourcesChecked.Internal || !entries[0].SourcesChecked.External {
		t.Error("Recent() lost the sources-checked flags")
	}
}
