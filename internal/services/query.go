package services

import (
	"sort"
	"time"

	"catalog-aggregator-api/internal/models"
)

// ReasonablePriceLimit is the exclusive upper bound of the
// reasonable-price filter, in whole currency units.
const ReasonablePriceLimit = 50

// Evaluate applies q to products: filter, stable sort, statistics over
// the matched set, then pagination. products is never modified.
func Evaluate(products []models.Product, q models.Query, now time.Time) (models.Page, models.Statistics, error) {
	if err := ValidateQuery(q); err != nil {
		return models.Page{}, models.Statistics{}, err
	}

	filtered := applyFilters(products, q, models.DateOf(now))
	applySorting(filtered, q.Sort)
	stats := ComputeStatistics(len(products), filtered, now)
	page := applyPagination(filtered, q.Page, q.Size)

	return page, stats, nil
}

func ValidateQuery(q models.Query) error {
	if q.Page < 1 {
		return &models.InvalidQueryError{Field: "page", Reason: "must be at least 1"}
	}
	if q.Size < 1 {
		return &models.InvalidQueryError{Field: "size", Reason: "must be at least 1"}
	}
	return nil
}

// applyFilters always returns a fresh slice so sorting never touches the
// catalog snapshot.
func applyFilters(products []models.Product, q models.Query, today models.Date) []models.Product {
	filtered := make([]models.Product, 0, len(products))

	for _, product := range products {
		if q.Brand != "" && product.Brand != q.Brand {
			continue
		}

		switch q.Filter {
		case models.FilterReasonablePrice:
			if product.Price >= ReasonablePriceLimit {
				continue
			}
		case models.FilterRecentlyReleased:
			if !isRecent(product.Released, today) {
				continue
			}
		}

		filtered = append(filtered, product)
	}

	return filtered
}

func applySorting(products []models.Product, sortName string) {
	var less func(a, b models.Product) bool

	switch sortName {
	case models.SortPriceAsc:
		less = func(a, b models.Product) bool { return a.Price < b.Price }
	case models.SortPriceDesc:
		less = func(a, b models.Product) bool { return a.Price > b.Price }
	case models.SortDateAsc:
		less = func(a, b models.Product) bool { return a.Released.Before(b.Released) }
	case models.SortDateDesc:
		less = func(a, b models.Product) bool { return a.Released.After(b.Released) }
	default:
		return
	}

	sort.SliceStable(products, func(i, j int) bool {
		return less(products[i], products[j])
	})
}

func applyPagination(products []models.Product, page, size int) models.Page {
	total := len(products)
	pageCount := total / size
	if total%size != 0 {
		pageCount++
	}
	if pageCount < 1 {
		pageCount = 1
	}

	result := models.Page{
		Items:       []models.Product{},
		CurrentPage: page,
		PageCount:   pageCount,
		PageSize:    size,
		Count:       total,
	}

	if page > pageCount || total == 0 {
		return result
	}

	start := (page - 1) * size
	end := start + size
	if end > total {
		end = total
	}
	result.Items = products[start:end]

	return result
}
