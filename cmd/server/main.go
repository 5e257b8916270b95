package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"catalog-aggregator-api/internal/api"
	"catalog-aggregator-api/internal/config"
	"catalog-aggregator-api/internal/scrapers"
	"catalog-aggregator-api/internal/services"
	"catalog-aggregator-api/pkg/browser"
	"catalog-aggregator-api/pkg/cache"
	"catalog-aggregator-api/pkg/logger"
)

const version = "1.0.0"

func main() {
	cfg, loadedEnvFile, err := config.Load(".env")
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	if !loadedEnvFile {
		log.Info("No .env file found")
	}
	if log.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisCache := cache.NewRedisCache(ctx, cfg.Redis, log)
	defer redisCache.Close()

	// A nil *RedisCache must not leak into the interfaces as a non-nil value.
	var (
		resultCache services.ResultCache
		cacheAdmin  api.CacheAdmin
	)
	if redisCache != nil {
		resultCache = redisCache
		cacheAdmin = redisCache
	}

	sources := buildSources(cfg, log)
	service := services.NewCatalogService(
		services.NewCatalogStore(),
		services.NewNormalizer(scrapers.DedicatedBrand),
		sources,
		resultCache,
		log,
		services.Options{
			DefaultCatalog: cfg.CatalogID,
			RefreshTimeout: cfg.RefreshTimeout,
		},
	)

	go runScheduler(ctx, service, cfg, log)

	router := api.NewRouter(service, cacheAdmin, log, api.Config{
		DefaultPageSize: cfg.DefaultPageSize,
		MaxPageSize:     cfg.MaxPageSize,
		RateLimitRPS:    cfg.RateLimitRPS,
		RateLimitBurst:  cfg.RateLimitBurst,
		Version:         version,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{"port": cfg.Port, "sources": service.Sources()}).Info("Starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
}

// buildSources turns the scraper settings into the ordered source list.
// Sources whose URL is empty are left out.
func buildSources(cfg config.AppConfig, log logrus.FieldLogger) []services.Source {
	scraperCfg := scrapers.Config{
		UserAgent: cfg.Scraper.UserAgent,
		Delay:     cfg.Scraper.Delay,
		Timeout:   cfg.Scraper.Timeout,
	}

	var sources []services.Source
	if cfg.Scraper.DedicatedAPIURL != "" {
		sources = append(sources, scrapers.NewDedicatedScraper(cfg.Scraper.DedicatedAPIURL, cfg.Scraper.DedicatedBaseURL, scraperCfg, log))
	}
	if cfg.Scraper.DedicatedShopURL != "" {
		sources = append(sources, scrapers.NewListingScraper("dedicated-shop", cfg.Scraper.DedicatedShopURL, scrapers.DedicatedBrand, scrapers.DedicatedSelectors, scraperCfg, log))
	}
	if cfg.Scraper.BrowserEnabled && cfg.Scraper.BrowserURL != "" {
		sources = append(sources, browser.NewChromeSource("dedicated-browser", cfg.Scraper.BrowserURL, scrapers.DedicatedBrand, scrapers.DedicatedSelectors, browser.Options{
			ExecPath:  cfg.Scraper.BrowserExecPath,
			UserAgent: cfg.Scraper.UserAgent,
			Settle:    cfg.Scraper.BrowserSettle,
			Timeout:   cfg.Scraper.Timeout,
		}, log))
	}

	if len(sources) == 0 {
		log.Warn("no scrape sources configured, catalogs can only be filled through ingestion")
	}
	return sources
}

// runScheduler refreshes the default catalog on start (when enabled) and
// then every RefreshInterval until ctx ends. A failed refresh keeps the
// previous catalog and waits for the next tick.
func runScheduler(ctx context.Context, service *services.CatalogService, cfg config.AppConfig, log logrus.FieldLogger) {
	if len(service.Sources()) == 0 {
		return
	}

	refresh := func() {
		report, err := service.RefreshFromSources(ctx)
		if err != nil {
			log.WithError(err).Warn("scheduled refresh failed")
			return
		}
		log.WithFields(logrus.Fields{
			"generation": report.Generation,
			"accepted":   report.Accepted,
			"duration":   report.Duration,
		}).Info("scheduled refresh completed")
	}

	if cfg.RefreshOnStart {
		refresh()
	}
	if cfg.RefreshInterval <= 0 {
		return
	}

	ticker := time.NewTicker(cfg.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh()
		}
	}
}
