package main

import (
	"fmt"

	"github.com/veriscan/backend/config"
	httpDelivery "github.com/veriscan/backend/internal/delivery/http"
	"github.com/veriscan/backend/internal/domain"
	"github.com/veriscan/backend/internal/infrastructure/cache"
	"github.com/veriscan/backend/internal/infrastructure/registry"
	"github.com/veriscan/backend/internal/infrastructure/store"
	"github.com/veriscan/backend/internal/logging"
	"github.com/veriscan/backend/internal/usecase"

	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	log := logging.New(cfg.Server.Environment)
	if cfg.Server.LogLevel != "" {
		logging.SetLevel(log, cfg.Server.LogLevel)
	}
	log.WithFields(logrus.Fields{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"cache":       cfg.Cache.Type,
	}).Info("Starting VeriScan Backend v1.0.0")

	// Open the catalog store (also backs the validation log and the
	// sqlite cache option)
	db, err := store.Open(cfg.Catalog.Path)
	if err != nil {
		log.WithError(err).Fatal("Failed to open catalog store")
	}
	defer db.Close()

	cacheRepo, err := buildCache(cfg, db)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize cache")
	}
	log.WithField("ttl", cfg.Cache.TTL).Info("Result cache ready")

	// Registry adapters
	adapters := buildAdapters(cfg, cacheRepo, log)
	if cfg.NAFDAC.EnableMock {
		log.Warn("NAFDAC mock fallback enabled - failed regulator lookups will serve simulated data")
	}

	// Runtime-tunable adapter settings, seeded from config
	settings := usecase.NewSettingsStore(settingsFromConfig(cfg))

	// Usecase layer
	aggregator := usecase.NewAggregator(
		db, adapters, cacheRepo, db, settings,
		usecase.AggregatorConfig{CacheTTL: cfg.Cache.TTL},
		log,
	)
	searchService := usecase.NewSearchService(db, adapters, settings, log)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(aggregator, searchService, settings, db)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.WithField("addr", addr).Info("Server listening")

	if err := router.Run(addr); err != nil {
		log.WithError(err).Fatal("Failed to start server")
	}
}

// buildCache selects the cache backend from config
func buildCache(cfg *config.Config, db *store.DB) (domain.CacheRepository, error) {
	switch cfg.Cache.Type {
	case "sqlite":
		return store.NewSQLCache(db), nil
	case "redis":
		return cache.NewRedisCache(cfg.Cache.RedisURL)
	default:
		return cache.NewMemoryCache(), nil
	}
}

// buildAdapters wires every registry adapter from config
func buildAdapters(cfg *config.Config, cacheRepo domain.CacheRepository, log *logrus.Logger) []domain.SourceAdapter {
	confidence := func(source domain.Source, fallback float64) float64 {
		if weight, ok := cfg.Adapters.Confidence[string(source)]; ok {
			return weight
		}
		return fallback
	}

	return []domain.SourceAdapter{
		registry.NewOpenFoodAdapter(registry.Options{
			BaseURL:        cfg.Adapters.OpenFood.BaseURL,
			Confidence:     confidence(domain.SourceOpenFood, 0.8),
			RequestsPerSec: cfg.Adapters.OpenFood.RequestsPerSec,
			Logger:         log,
		}),
		registry.NewDrugRegistryAdapter(registry.Options{
			BaseURL:        cfg.Adapters.Drugs.BaseURL,
			Confidence:     confidence(domain.SourceDrugs, 0.6),
			RequestsPerSec: cfg.Adapters.Drugs.RequestsPerSec,
			Logger:         log,
		}),
		registry.NewCosmeticsAdapter(registry.Options{
			BaseURL:        cfg.Adapters.Cosmetics.BaseURL,
			Confidence:     confidence(domain.SourceCosmetics, 0.5),
			RequestsPerSec: cfg.Adapters.Cosmetics.RequestsPerSec,
			Logger:         log,
		}),
		registry.NewBarcodeAdapter(registry.Options{
			BaseURL:        cfg.Adapters.Barcode.BaseURL,
			Confidence:     confidence(domain.SourceBarcode, 0.7),
			RequestsPerSec: cfg.Adapters.Barcode.RequestsPerSec,
			Logger:         log,
		}),
		registry.NewNAFDACAdapter(registry.NAFDACOptions{
			BaseURL:    cfg.NAFDAC.BaseURL,
			APIKey:     cfg.NAFDAC.APIKey,
			Confidence: confidence(domain.SourceNAFDAC, 0.8),
			EnableMock: cfg.NAFDAC.EnableMock,
			Cache:      cacheRepo,
			CacheTTL:   cfg.Cache.TTL,
			Logger:     log,
		}),
	}
}

// settingsFromConfig seeds the runtime settings store
func settingsFromConfig(cfg *config.Config) usecase.AdapterSettings {
	settings := usecase.AdapterSettings{
		Enabled:    make(map[domain.Source]bool, len(cfg.Adapters.Enabled)),
		Confidence: make(map[domain.Source]float64, len(cfg.Adapters.Confidence)),
		Timeout:    cfg.Adapters.Timeout,
	}
	for source, enabled := range cfg.Adapters.Enabled {
		settings.Enabled[domain.Source(source)] = enabled
	}
	for source, weight := range cfg.Adapters.Confidence {
		settings.Confidence[domain.Source(source)] = weight
	}
	return settings
}
