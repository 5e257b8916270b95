package services

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"catalog-aggregator-api/internal/models"
)

// CatalogStore keeps the latest snapshot of every catalog. Readers load a
// snapshot pointer and never block; a replacement becomes visible in one
// atomic swap.
type CatalogStore struct {
	writeMu  sync.Mutex
	catalogs sync.Map // catalog id -> *atomic.Pointer[models.Catalog]
}

func NewCatalogStore() *CatalogStore {
	return &CatalogStore{}
}

// Replace publishes products as the new snapshot of catalogID. The slice is
// copied so later changes by the caller cannot leak into readers.
func (s *CatalogStore) Replace(catalogID string, products []models.Product, refreshedAt time.Time) *models.Catalog {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	slot := s.slot(catalogID)

	var generation uint64 = 1
	if prev := slot.Load(); prev != nil {
		generation = prev.Generation + 1
	}

	snapshot := &models.Catalog{
		ID:          catalogID,
		Generation:  generation,
		Products:    append(make([]models.Product, 0, len(products)), products...),
		RefreshedAt: refreshedAt,
	}
	slot.Store(snapshot)

	return snapshot
}

func (s *CatalogStore) Get(catalogID string) (*models.Catalog, error) {
	v, ok := s.catalogs.Load(catalogID)
	if !ok {
		return nil, models.ErrCatalogNotFound
	}
	snapshot := v.(*atomic.Pointer[models.Catalog]).Load()
	if snapshot == nil {
		return nil, models.ErrCatalogNotFound
	}
	return snapshot, nil
}

// IDs lists the catalogs that have been populated at least once.
func (s *CatalogStore) IDs() []string {
	var ids []string
	s.catalogs.Range(func(key, value any) bool {
		if value.(*atomic.Pointer[models.Catalog]).Load() != nil {
			ids = append(ids, key.(string))
		}
		return true
	})
	sort.Strings(ids)
	return ids
}

func (s *CatalogStore) slot(catalogID string) *atomic.Pointer[models.Catalog] {
	v, _ := s.catalogs.LoadOrStore(catalogID, &atomic.Pointer[models.Catalog]{})
	return v.(*atomic.Pointer[models.Catalog])
}
