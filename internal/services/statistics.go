package services

import (
	"sort"
	"time"

	"catalog-aggregator-api/internal/models"
)

// RecentWindowDays is the trailing window used for "new" products.
const RecentWindowDays = 14

var percentiles = [3]float64{0.50, 0.90, 0.95}

// ComputeStatistics summarises the filtered (pre-pagination) set. total is
// the unfiltered catalog size.
func ComputeStatistics(total int, filtered []models.Product, now time.Time) models.Statistics {
	stats := models.Statistics{
		TotalCount:   total,
		MatchedCount: len(filtered),
	}
	if len(filtered) == 0 {
		return stats
	}

	today := models.DateOf(now)
	brands := make(map[string]struct{})
	prices := make([]int, 0, len(filtered))

	for _, product := range filtered {
		brands[product.Brand] = struct{}{}
		prices = append(prices, product.Price)

		if isRecent(product.Released, today) {
			stats.NewCount++
		}
		if product.Released.After(stats.LastReleasedDate) {
			stats.LastReleasedDate = product.Released
		}
	}
	stats.BrandCount = len(brands)

	sort.Ints(prices)
	stats.P50 = nearestRank(prices, percentiles[0])
	stats.P90 = nearestRank(prices, percentiles[1])
	stats.P95 = nearestRank(prices, percentiles[2])

	return stats
}

// nearestRank reads index floor(n*q) of an ascending slice, clamped to the
// last element. An empty slice yields 0.
func nearestRank(sorted []int, q float64) int {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)) * q)
	if idx > len(sorted)-1 {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// isRecent reports whether released falls in the trailing window ending at
// today. Dates after today count as recent.
func isRecent(released, today models.Date) bool {
	if released.IsZero() {
		return false
	}
	return !released.Before(today.AddDays(-RecentWindowDays))
}
