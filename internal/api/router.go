package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"catalog-aggregator-api/internal/services"
)

// CacheAdmin is the operational surface of the response cache.
type CacheAdmin interface {
	IsAvailable() bool
	GetStats(ctx context.Context) map[string]interface{}
	GetAllKeys(ctx context.Context) []string
	GetKeyTTL(ctx context.Context, key string) time.Duration
	FlushCache(ctx context.Context) (int, error)
}

type Config struct {
	DefaultPageSize int
	MaxPageSize     int
	RateLimitRPS    float64
	RateLimitBurst  int
	Version         string
}

type Handler struct {
	service *services.CatalogService
	cache   CacheAdmin
	limiter *ipRateLimiter
	logger  logrus.FieldLogger
	config  Config
}

// NewRouter wires every route. cache may be nil.
func NewRouter(service *services.CatalogService, cache CacheAdmin, logger logrus.FieldLogger, cfg Config) *gin.Engine {
	if cfg.DefaultPageSize < 1 {
		cfg.DefaultPageSize = 12
	}
	if cfg.MaxPageSize < cfg.DefaultPageSize {
		cfg.MaxPageSize = cfg.DefaultPageSize
	}
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 10
	}
	if cfg.RateLimitBurst < 1 {
		cfg.RateLimitBurst = 20
	}
	if cfg.Version == "" {
		cfg.Version = "1.0.0"
	}

	h := &Handler{
		service: service,
		cache:   cache,
		limiter: newIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		logger:  logger,
		config:  cfg,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())
	r.Use(requestLogMiddleware(logger))
	r.Use(h.limiter.middleware())

	r.GET("/health", h.health)
	r.GET("/api/info", h.info)
	r.GET("/rate-limit/status", h.rateLimitStatus)

	r.GET("/products", h.products)
	r.GET("/brands", h.brands)
	r.POST("/refresh", h.refresh)
	r.POST("/catalogs/:id/records", h.ingest)

	r.GET("/cache/stats", h.cacheStats)
	r.GET("/cache/debug", h.cacheDebug)
	r.DELETE("/cache/flush", h.cacheFlush)

	return r
}
