package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"catalog-aggregator-api/internal/models"
)

func (h *Handler) products(c *gin.Context) {
	q, err := h.parseQuery(c)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response, err := h.service.Evaluate(c.Request.Context(), c.Query("catalog"), q)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) brands(c *gin.Context) {
	brands, err := h.service.Brands(c.Query("catalog"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    brands,
	})
}

func (h *Handler) refresh(c *gin.Context) {
	report, err := h.service.RefreshFromSources(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    report,
	})
}

func (h *Handler) ingest(c *gin.Context) {
	var items []json.RawMessage
	if err := c.ShouldBindJSON(&items); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_body",
			Code:    http.StatusBadRequest,
			Message: "body must be a JSON array of records",
			Details: err.Error(),
		})
		return
	}

	report, err := h.service.Ingest(c.Request.Context(), c.Param("id"), items)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    report,
	})
}

func (h *Handler) health(c *gin.Context) {
	catalogs := gin.H{}
	for _, catalog := range h.service.Catalogs() {
		catalogs[catalog.ID] = gin.H{
			"products":     catalog.Len(),
			"generation":   catalog.Generation,
			"refreshed_at": catalog.RefreshedAt.Format(time.RFC3339),
		}
	}

	health := gin.H{
		"status":   "healthy",
		"service":  "catalog-aggregator-api",
		"version":  h.config.Version,
		"catalogs": catalogs,
		"cache":    "redis unavailable",
	}
	if h.cacheAvailable() {
		health["cache"] = "redis connected"
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) info(c *gin.Context) {
	endpoints := map[string]string{
		"GET /products":              "Filtered, sorted, paginated products with statistics",
		"GET /brands":                "Distinct brands of a catalog",
		"POST /refresh":              "Fetch all sources and replace the catalog",
		"POST /catalogs/:id/records": "Replace a catalog from raw records",
		"GET /health":                "Health check",
		"GET /cache/stats":           "Cache statistics",
		"GET /api/info":              "API information",
	}

	c.JSON(http.StatusOK, gin.H{
		"name":           "Catalog Aggregator API",
		"version":        h.config.Version,
		"description":    "Normalized product catalog aggregated from e-shop listings",
		"features":       []string{"Multi-source scraping", "Normalization", "Filtering", "Sorting", "Pagination", "Price statistics", "Redis caching"},
		"endpoints":      endpoints,
		"filters":        []string{models.FilterReasonablePrice, models.FilterRecentlyReleased},
		"sorts":          []string{models.SortPriceAsc, models.SortPriceDesc, models.SortDateAsc, models.SortDateDesc},
		"sources":        h.service.Sources(),
		"default_paging": gin.H{"size": h.config.DefaultPageSize, "max_size": h.config.MaxPageSize},
	})
}

func (h *Handler) rateLimitStatus(c *gin.Context) {
	ip := c.ClientIP()
	limiter := h.limiter.get(ip)

	c.JSON(http.StatusOK, gin.H{
		"ip":               ip,
		"limit_per_second": limiter.Limit(),
		"burst_capacity":   limiter.Burst(),
		"tokens_available": limiter.Tokens(),
		"next_token_at":    time.Now().Add(time.Duration(float64(time.Second) / float64(limiter.Limit()))),
	})
}

func (h *Handler) cacheStats(c *gin.Context) {
	if !h.cacheAvailable() {
		h.cacheUnavailable(c)
		return
	}

	c.JSON(http.StatusOK, h.cache.GetStats(c.Request.Context()))
}

func (h *Handler) cacheDebug(c *gin.Context) {
	if !h.cacheAvailable() {
		h.cacheUnavailable(c)
		return
	}

	ctx := c.Request.Context()
	keys := h.cache.GetAllKeys(ctx)
	keyDetails := make([]gin.H, 0, len(keys))
	for _, key := range keys {
		ttl := h.cache.GetKeyTTL(ctx, key)
		keyDetails = append(keyDetails, gin.H{
			"key":         key,
			"ttl_seconds": int(ttl.Seconds()),
			"expires_in":  ttl.String(),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"total_keys":  len(keys),
		"cache_keys":  keyDetails,
		"cache_stats": h.cache.GetStats(ctx),
		"timestamp":   time.Now().Format(time.RFC3339),
	})
}

func (h *Handler) cacheFlush(c *gin.Context) {
	if !h.cacheAvailable() {
		h.cacheUnavailable(c)
		return
	}

	removed, err := h.cache.FlushCache(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "cache_flush_failed",
			Code:    http.StatusInternalServerError,
			Message: "failed to flush cache",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "cache flushed successfully",
		"removed":   removed,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// parseQuery reads page, size (or limit), brand, filter and sort. Missing
// page and size take defaults; present but malformed values are rejected.
func (h *Handler) parseQuery(c *gin.Context) (models.Query, error) {
	q := models.Query{
		Page:   1,
		Size:   h.config.DefaultPageSize,
		Brand:  c.Query("brand"),
		Filter: c.Query("filter"),
		Sort:   c.Query("sort"),
	}

	if p, ok := c.GetQuery("page"); ok {
		page, err := strconv.Atoi(p)
		if err != nil {
			return q, &models.InvalidQueryError{Field: "page", Reason: "must be an integer"}
		}
		q.Page = page
	}

	size, ok := c.GetQuery("size")
	if !ok {
		size, ok = c.GetQuery("limit")
	}
	if ok {
		n, err := strconv.Atoi(size)
		if err != nil {
			return q, &models.InvalidQueryError{Field: "size", Reason: "must be an integer"}
		}
		if n > h.config.MaxPageSize {
			return q, &models.InvalidQueryError{Field: "size", Reason: "must be at most " + strconv.Itoa(h.config.MaxPageSize)}
		}
		q.Size = n
	}

	return q, nil
}

func (h *Handler) writeError(c *gin.Context, err error) {
	var (
		invalid *models.InvalidQueryError
		failure *models.RefreshFailure
		status  = http.StatusInternalServerError
		code    = "internal_error"
	)

	switch {
	case errors.As(err, &invalid):
		status, code = http.StatusBadRequest, "invalid_query"
	case errors.Is(err, models.ErrCatalogNotFound):
		status, code = http.StatusNotFound, "catalog_not_found"
	case errors.As(err, &failure):
		status, code = http.StatusBadGateway, "refresh_failed"
	default:
		h.logger.WithError(err).WithField("path", c.Request.URL.Path).Error("request failed")
	}

	c.JSON(status, models.ErrorResponse{
		Error:   code,
		Code:    status,
		Message: err.Error(),
	})
}

func (h *Handler) cacheAvailable() bool {
	return h.cache != nil && h.cache.IsAvailable()
}

func (h *Handler) cacheUnavailable(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error": "cache not available",
	})
}
