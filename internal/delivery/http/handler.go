package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/veriscan/backend/internal/domain"
	"github.com/veriscan/backend/internal/usecase"
)

// Verifier aggregates a verification request into a single verdict
type Verifier interface {
	Aggregate(ctx context.Context, req *domain.VerifyRequest) *domain.AggregatedResult
}

// Searcher runs the enhanced product search
type Searcher interface {
	Search(ctx context.Context, req *domain.SearchRequest) (*domain.SearchResponse, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	verifier Verifier
	searcher Searcher
	settings *usecase.SettingsStore
	logs     domain.ValidationLogRepository
}

// NewHandler creates a new HTTP handler
func NewHandler(verifier Verifier, searcher Searcher, settings *usecase.SettingsStore, logs domain.ValidationLogRepository) *Handler {
	return &Handler{
		verifier: verifier,
		searcher: searcher,
		settings: settings,
		logs:     logs,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "veriscan-backend",
		"version": "1.0.0",
	})
}

// Verify handles product verification requests
func (h *Handler) Verify(c *gin.Context) {
	if h.verifier == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "verification service unavailable"})
		return
	}

	var req domain.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "productName is required"})
		return
	}

	// Aggregate is total: whatever happens, the client gets a verdict.
	result := h.verifier.Aggregate(c.Request.Context(), &req)
	c.JSON(http.StatusOK, result)
}

// Search handles enhanced search requests
func (h *Handler) Search(c *gin.Context) {
	if h.searcher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search service unavailable"})
		return
	}

	var req domain.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}

	result, err := h.searcher.Search(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid search request"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed, please try again"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetAdapterSettings returns the current adapter configuration
func (h *Handler) GetAdapterSettings(c *gin.Context) {
	if h.settings == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "settings unavailable"})
		return
	}
	c.JSON(http.StatusOK, h.settings.Snapshot())
}

// UpdateAdapterSettings applies a partial adapter configuration update
func (h *Handler) UpdateAdapterSettings(c *gin.Context) {
	if h.settings == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "settings unavailable"})
		return
	}

	var update usecase.SettingsUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settings payload"})
		return
	}

	settings, err := h.settings.Update(update)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, settings)
}

// RecentVerifications returns the newest validation-log entries
func (h *Handler) RecentVerifications(c *gin.Context) {
	if h.logs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "verification log unavailable"})
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	entries, err := h.logs.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not read verification log"})
		return
	}
	if entries == nil {
		entries = []domain.ValidationLogEntry{}
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}
