package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"catalog-aggregator-api/internal/models"
)

func TestComputeStatistics_Percentiles(t *testing.T) {
	var filtered []models.Product
	// prices 100, 99, ... 1 so the input order is the reverse of the ranking
	for i := 100; i >= 1; i-- {
		filtered = append(filtered, product(fmt.Sprintf("https://a.example.com/%d", i), "A", i, daysAgo(100-i)))
	}

	stats := ComputeStatistics(250, filtered, fixedNow)

	assert.Equal(t, 250, stats.TotalCount)
	assert.Equal(t, 100, stats.MatchedCount)
	assert.Equal(t, 51, stats.P50)
	assert.Equal(t, 91, stats.P90)
	assert.Equal(t, 96, stats.P95)
	assert.Equal(t, 15, stats.NewCount)
	assert.Equal(t, daysAgo(0), stats.LastReleasedDate)
}

func TestComputeStatistics_SingleItem(t *testing.T) {
	stats := ComputeStatistics(1, []models.Product{product("https://a.example.com/1", "A", 42, daysAgo(3))}, fixedNow)

	assert.Equal(t, 42, stats.P50)
	assert.Equal(t, 42, stats.P90)
	assert.Equal(t, 42, stats.P95)
	assert.Equal(t, 1, stats.BrandCount)
	assert.Equal(t, daysAgo(3), stats.LastReleasedDate)
}

func TestComputeStatistics_PercentilesOrdered(t *testing.T) {
	for n := 1; n <= 40; n++ {
		var filtered []models.Product
		for i := 0; i < n; i++ {
			filtered = append(filtered, product(fmt.Sprintf("https://a.example.com/%d", i), "A", (i*53)%31, daysAgo(i)))
		}

		stats := ComputeStatistics(n, filtered, fixedNow)

		assert.LessOrEqual(t, stats.P50, stats.P90, "n=%d", n)
		assert.LessOrEqual(t, stats.P90, stats.P95, "n=%d", n)
	}
}

func TestComputeStatistics_Empty(t *testing.T) {
	stats := ComputeStatistics(7, []models.Product{}, fixedNow)

	assert.Equal(t, models.Statistics{TotalCount: 7}, stats)
	assert.Equal(t, models.UnknownDate, stats.LastReleasedDate.String())
}

func TestNearestRank(t *testing.T) {
	sorted := []int{1, 2, 3, 4}

	assert.Equal(t, 3, nearestRank(sorted, 0.50))
	assert.Equal(t, 4, nearestRank(sorted, 0.90))
	assert.Equal(t, 4, nearestRank(sorted, 0.95))
	assert.Equal(t, 0, nearestRank(nil, 0.5))
}
