package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"catalog-aggregator-api/internal/models"
)

// Source produces raw records for one scrape target. A nil slice with an
// error means nothing usable was fetched.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]models.RawRecord, error)
}

// ResultCache stores evaluated responses. Implementations must tolerate
// being unavailable.
type ResultCache interface {
	IsAvailable() bool
	GenerateProductsKey(catalog models.CatalogInfo, q models.Query, day models.Date) string
	GetProducts(ctx context.Context, key string) (*models.ProductsResponse, error)
	SetProducts(ctx context.Context, key string, response *models.ProductsResponse) error
}

type Options struct {
	DefaultCatalog string
	RefreshTimeout time.Duration
	Now            func() time.Time
}

// CatalogService is the single read path (Evaluate) and write path
// (Refresh) over the catalog store.
type CatalogService struct {
	store      *CatalogStore
	normalizer *Normalizer
	sources    []Source
	cache      ResultCache
	logger     logrus.FieldLogger

	defaultCatalog string
	refreshTimeout time.Duration
	now            func() time.Time

	refreshMu sync.Mutex
}

func NewCatalogService(store *CatalogStore, normalizer *Normalizer, sources []Source, cache ResultCache, logger logrus.FieldLogger, opts Options) *CatalogService {
	if opts.DefaultCatalog == "" {
		opts.DefaultCatalog = "products"
	}
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if normalizer.Now == nil {
		normalizer.Now = opts.Now
	}

	return &CatalogService{
		store:          store,
		normalizer:     normalizer,
		sources:        sources,
		cache:          cache,
		logger:         logger,
		defaultCatalog: opts.DefaultCatalog,
		refreshTimeout: opts.RefreshTimeout,
		now:            opts.Now,
	}
}

func (s *CatalogService) DefaultCatalog() string {
	return s.defaultCatalog
}

// Sources lists the configured source names in fetch order.
func (s *CatalogService) Sources() []string {
	names := make([]string, 0, len(s.sources))
	for _, source := range s.sources {
		names = append(names, source.Name())
	}
	return names
}

// Catalogs returns the current snapshot of every populated catalog.
func (s *CatalogService) Catalogs() []*models.Catalog {
	var catalogs []*models.Catalog
	for _, id := range s.store.IDs() {
		if catalog, err := s.store.Get(id); err == nil {
			catalogs = append(catalogs, catalog)
		}
	}
	return catalogs
}

// Evaluate answers q against the current snapshot of catalogID (the default
// catalog when empty).
func (s *CatalogService) Evaluate(ctx context.Context, catalogID string, q models.Query) (*models.ProductsResponse, error) {
	startTime := time.Now()

	if err := ValidateQuery(q); err != nil {
		return nil, err
	}

	catalog, err := s.snapshot(catalogID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	info := models.CatalogInfo{ID: catalog.ID, Generation: catalog.Generation}

	cacheKey := ""
	if s.cacheAvailable() {
		cacheKey = s.cache.GenerateProductsKey(info, q, models.DateOf(now))
		if cached, err := s.cache.GetProducts(ctx, cacheKey); err == nil && cached != nil {
			cached.Cached = true
			cached.Duration = time.Since(startTime).String()
			s.logger.WithField("key", cacheKey).Debug("cache hit")
			return cached, nil
		} else if err != nil {
			s.logger.WithError(err).WithField("key", cacheKey).Warn("cache read failed")
		}
		s.logger.WithField("key", cacheKey).Debug("cache miss")
	}

	page, stats, err := Evaluate(catalog.Products, q, now)
	if err != nil {
		return nil, err
	}

	response := &models.ProductsResponse{
		Success: true,
		Data: models.ProductsData{
			Result: page.Items,
			Meta:   page.Meta(),
			Stats:  stats,
			Query:  q,
			Source: info,
		},
		Duration: time.Since(startTime).String(),
	}

	if cacheKey != "" {
		if err := s.cache.SetProducts(ctx, cacheKey, response); err != nil {
			s.logger.WithError(err).WithField("key", cacheKey).Warn("failed to cache results")
		}
	}

	return response, nil
}

// Brands lists the distinct brands of a catalog in lexical order.
func (s *CatalogService) Brands(catalogID string) ([]string, error) {
	catalog, err := s.snapshot(catalogID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	brands := make([]string, 0)
	for _, product := range catalog.Products {
		if _, ok := seen[product.Brand]; ok {
			continue
		}
		seen[product.Brand] = struct{}{}
		brands = append(brands, product.Brand)
	}
	sort.Strings(brands)

	return brands, nil
}

// snapshot resolves a catalog id. The default catalog reads as empty until
// its first refresh; other unknown ids are not found.
func (s *CatalogService) snapshot(catalogID string) (*models.Catalog, error) {
	if catalogID == "" {
		catalogID = s.defaultCatalog
	}

	catalog, err := s.store.Get(catalogID)
	if errors.Is(err, models.ErrCatalogNotFound) && catalogID == s.defaultCatalog {
		return &models.Catalog{ID: catalogID, Products: []models.Product{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("catalog %q: %w", catalogID, err)
	}
	return catalog, nil
}

func (s *CatalogService) cacheAvailable() bool {
	return s.cache != nil && s.cache.IsAvailable()
}
