package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"catalog-aggregator-api/internal/models"
)

// maxReportedErrors caps the rejection reasons kept in a report.
const maxReportedErrors = 20

// Refresh normalizes records and replaces catalogID with the result.
// Malformed records are skipped. When nothing usable remains, or ctx ends
// first, the previous snapshot stays in place and a RefreshFailure is
// returned.
func (s *CatalogService) Refresh(ctx context.Context, catalogID string, records []models.RawRecord) (*models.RefreshReport, error) {
	if catalogID == "" {
		catalogID = s.defaultCatalog
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	return s.refreshLocked(ctx, catalogID, records, nil)
}

// Ingest decodes each element of a JSON batch on its own and refreshes
// catalogID with the result. An element that does not decode is rejected
// like any other malformed record; the rest of the batch still counts.
func (s *CatalogService) Ingest(ctx context.Context, catalogID string, items []json.RawMessage) (*models.RefreshReport, error) {
	if catalogID == "" {
		catalogID = s.defaultCatalog
	}

	records := make([]models.RawRecord, 0, len(items))
	var rejected []error
	for i, item := range items {
		var record models.RawRecord
		if err := json.Unmarshal(item, &record); err != nil {
			rejected = append(rejected, &models.NormalizationError{
				Field:  "record",
				Reason: fmt.Sprintf("item %d: %v", i, err),
			})
			continue
		}
		records = append(records, record)
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	return s.refreshLocked(ctx, catalogID, records, rejected)
}

// RefreshFromSources fetches every configured source concurrently and
// refreshes the default catalog with the merged records.
func (s *CatalogService) RefreshFromSources(ctx context.Context) (*models.RefreshReport, error) {
	if len(s.sources) == 0 {
		return nil, &models.RefreshFailure{CatalogID: s.defaultCatalog, Reason: "no sources configured"}
	}

	ctx, cancel := context.WithTimeout(ctx, s.refreshTimeout)
	defer cancel()

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	records, fetched, sourceErrs := s.fetchAllSources(ctx)
	if len(records) == 0 {
		failure := &models.RefreshFailure{
			CatalogID: s.defaultCatalog,
			Reason:    "sources returned no records",
			Err:       errors.Join(sourceErrs...),
		}
		s.logger.WithError(failure).Error("refresh from sources failed, keeping previous catalog")
		return nil, failure
	}

	report, err := s.refreshLocked(ctx, s.defaultCatalog, records, nil)
	if err != nil {
		return nil, err
	}
	report.Sources = fetched
	for _, sourceErr := range sourceErrs {
		report.Errors = append(report.Errors, sourceErr.Error())
	}

	return report, nil
}

// refreshLocked replaces catalogID with the normalized records. rejected
// holds records that were already refused before normalization.
func (s *CatalogService) refreshLocked(ctx context.Context, catalogID string, records []models.RawRecord, rejected []error) (*models.RefreshReport, error) {
	startTime := time.Now()
	logger := s.logger.WithField("catalog", catalogID)

	if len(records) == 0 && len(rejected) == 0 {
		failure := &models.RefreshFailure{CatalogID: catalogID, Reason: "no records received"}
		logger.WithError(failure).Error("refresh failed, keeping previous catalog")
		return nil, failure
	}

	products, report := s.normalizeAll(records)
	report.CatalogID = catalogID
	for _, err := range rejected {
		report.Received++
		report.Rejected++
		if len(report.Errors) < maxReportedErrors {
			report.Errors = append(report.Errors, err.Error())
		}
		logger.WithError(err).Warn("skipping undecodable record")
	}

	if len(products) == 0 {
		failure := &models.RefreshFailure{
			CatalogID: catalogID,
			Reason:    fmt.Sprintf("all %d records were rejected", report.Received),
		}
		logger.WithError(failure).Error("refresh failed, keeping previous catalog")
		return nil, failure
	}

	if err := ctx.Err(); err != nil {
		failure := &models.RefreshFailure{CatalogID: catalogID, Reason: "refresh interrupted", Err: err}
		logger.WithError(failure).Error("refresh failed, keeping previous catalog")
		return nil, failure
	}

	now := s.now()
	snapshot := s.store.Replace(catalogID, products, now)

	report.Generation = snapshot.Generation
	report.FinishedAt = now
	report.Duration = time.Since(startTime).String()

	logger.WithFields(logrus.Fields{
		"generation": report.Generation,
		"accepted":   report.Accepted,
		"rejected":   report.Rejected,
		"duplicates": report.Duplicates,
	}).Info("catalog refreshed")

	return report, nil
}

// normalizeAll collapses records sharing a link into one product. The
// product keeps the position of the first occurrence and the fields of
// the last one.
func (s *CatalogService) normalizeAll(records []models.RawRecord) ([]models.Product, *models.RefreshReport) {
	report := &models.RefreshReport{Received: len(records)}
	products := make([]models.Product, 0, len(records))
	positions := make(map[uuid.UUID]int, len(records))

	for _, raw := range records {
		product, err := s.normalizer.Normalize(raw)
		if err != nil {
			report.Rejected++
			if len(report.Errors) < maxReportedErrors {
				report.Errors = append(report.Errors, err.Error())
			}
			s.logger.WithError(err).WithField("link", raw.Link).Warn("skipping malformed record")
			continue
		}

		if i, ok := positions[product.UUID]; ok {
			products[i] = product
			report.Duplicates++
			continue
		}
		positions[product.UUID] = len(products)
		products = append(products, product)
	}
	report.Accepted = len(products)

	return products, report
}

// fetchAllSources runs every source concurrently. Records are merged in
// source order so refreshes are reproducible.
func (s *CatalogService) fetchAllSources(ctx context.Context) ([]models.RawRecord, []string, []error) {
	results := make([][]models.RawRecord, len(s.sources))
	errs := make([]error, len(s.sources))

	var wg sync.WaitGroup
	for i, source := range s.sources {
		wg.Add(1)
		go func(i int, source Source) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("%s: panic: %v", source.Name(), r)
				}
			}()

			records, err := source.Fetch(ctx)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", source.Name(), err)
			}
			results[i] = records
		}(i, source)
	}
	wg.Wait()

	var (
		merged     []models.RawRecord
		fetched    []string
		sourceErrs []error
	)
	for i, source := range s.sources {
		logger := s.logger.WithField("source", source.Name())
		if errs[i] != nil {
			logger.WithError(errs[i]).Error("source fetch failed")
			sourceErrs = append(sourceErrs, errs[i])
		}
		if len(results[i]) > 0 {
			logger.WithField("records", len(results[i])).Info("source fetch completed")
			fetched = append(fetched, source.Name())
			merged = append(merged, results[i]...)
		}
	}

	return merged, fetched, sourceErrs
}
