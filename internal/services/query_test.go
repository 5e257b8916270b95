package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-aggregator-api/internal/models"
)

func product(link string, brand string, price int, released models.Date) models.Product {
	return models.Product{
		UUID:     ProductID(link),
		Name:     link,
		Brand:    brand,
		Price:    price,
		Link:     link,
		Released: released,
	}
}

func daysAgo(n int) models.Date {
	return models.DateOf(fixedNow).AddDays(-n)
}

func prices(products []models.Product) []int {
	out := make([]int, 0, len(products))
	for _, p := range products {
		out = append(out, p.Price)
	}
	return out
}

func sampleCatalog() []models.Product {
	return []models.Product{
		product("https://a.example.com/1", "DEDICATED", 10, daysAgo(0)),
		product("https://a.example.com/2", "DEDICATED", 60, daysAgo(30)),
		product("https://a.example.com/3", "DEDICATED", 30, daysAgo(5)),
	}
}

func TestEvaluate_ReasonablePriceScenario(t *testing.T) {
	page, stats, err := Evaluate(sampleCatalog(), models.Query{
		Page: 1, Size: 2, Filter: models.FilterReasonablePrice, Sort: models.SortPriceAsc,
	}, fixedNow)

	require.NoError(t, err)
	assert.Equal(t, []int{10, 30}, prices(page.Items))
	assert.Equal(t, 2, page.Count)
	assert.Equal(t, 1, page.PageCount)
	assert.Equal(t, 1, page.CurrentPage)
	assert.Equal(t, 2, page.PageSize)

	assert.Equal(t, 3, stats.TotalCount)
	assert.Equal(t, 2, stats.MatchedCount)
	assert.Equal(t, 2, stats.NewCount)
	assert.Equal(t, 1, stats.BrandCount)
	assert.Equal(t, 30, stats.P50)
	assert.Equal(t, 30, stats.P90)
	assert.Equal(t, 30, stats.P95)
	assert.Equal(t, daysAgo(0), stats.LastReleasedDate)
}

func TestEvaluate_NewCountIgnoresOldItems(t *testing.T) {
	_, stats, err := Evaluate(sampleCatalog(), models.Query{Page: 1, Size: 10}, fixedNow)

	require.NoError(t, err)
	assert.Equal(t, 3, stats.MatchedCount)
	assert.Equal(t, 2, stats.NewCount)
}

func TestEvaluate_EmptyCatalog(t *testing.T) {
	page, stats, err := Evaluate(nil, models.Query{Page: 3, Size: 5, Sort: models.SortDateDesc}, fixedNow)

	require.NoError(t, err)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
	assert.Equal(t, 0, page.Count)
	assert.Equal(t, 1, page.PageCount)
	assert.Equal(t, 0, stats.P50)
	assert.Equal(t, 0, stats.P90)
	assert.Equal(t, 0, stats.P95)
	assert.True(t, stats.LastReleasedDate.IsZero())
	assert.Equal(t, models.UnknownDate, stats.LastReleasedDate.String())
}

func TestEvaluate_InvalidQuery(t *testing.T) {
	catalog := sampleCatalog()
	before := append([]models.Product(nil), catalog...)

	for _, q := range []models.Query{{Page: 1, Size: 0}, {Page: 0, Size: 5}, {Page: -1, Size: -1}} {
		_, _, err := Evaluate(catalog, q, fixedNow)

		var invalid *models.InvalidQueryError
		assert.True(t, errors.As(err, &invalid), "query %+v", q)
	}
	assert.Equal(t, before, catalog)
}

func TestEvaluate_BrandFilter(t *testing.T) {
	catalog := append(sampleCatalog(), product("https://b.example.com/1", "ADRESSE", 45, daysAgo(1)))

	page, stats, err := Evaluate(catalog, models.Query{Page: 1, Size: 10, Brand: "ADRESSE"}, fixedNow)

	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "ADRESSE", page.Items[0].Brand)
	assert.Equal(t, 4, stats.TotalCount)
	assert.Equal(t, 1, stats.BrandCount)

	_, stats, err = Evaluate(catalog, models.Query{Page: 1, Size: 10}, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.BrandCount)
}

func TestEvaluate_RecentlyReleasedFilter(t *testing.T) {
	catalog := append(sampleCatalog(),
		product("https://a.example.com/4", "DEDICATED", 20, daysAgo(14)),
		product("https://a.example.com/5", "DEDICATED", 25, daysAgo(15)),
	)

	page, _, err := Evaluate(catalog, models.Query{Page: 1, Size: 10, Filter: models.FilterRecentlyReleased}, fixedNow)

	require.NoError(t, err)
	assert.Equal(t, []int{10, 30, 20}, prices(page.Items))
}

func TestEvaluate_UnknownFilterAndSortPassThrough(t *testing.T) {
	page, _, err := Evaluate(sampleCatalog(), models.Query{Page: 1, Size: 10, Filter: "cheap", Sort: "name"}, fixedNow)

	require.NoError(t, err)
	assert.Equal(t, []int{10, 60, 30}, prices(page.Items))
}

func TestEvaluate_Sorts(t *testing.T) {
	cases := map[string][]int{
		"":                   {10, 60, 30},
		models.SortPriceAsc:  {10, 30, 60},
		models.SortPriceDesc: {60, 30, 10},
		models.SortDateAsc:   {60, 30, 10},
		models.SortDateDesc:  {10, 30, 60},
	}

	for sortName, want := range cases {
		page, _, err := Evaluate(sampleCatalog(), models.Query{Page: 1, Size: 10, Sort: sortName}, fixedNow)
		require.NoError(t, err)
		assert.Equal(t, want, prices(page.Items), sortName)
	}
}

func TestEvaluate_SortIsStable(t *testing.T) {
	catalog := []models.Product{
		product("https://a.example.com/x", "A", 20, daysAgo(1)),
		product("https://a.example.com/y", "A", 10, daysAgo(1)),
		product("https://a.example.com/z", "A", 20, daysAgo(1)),
		product("https://a.example.com/w", "A", 10, daysAgo(1)),
	}

	page, _, err := Evaluate(catalog, models.Query{Page: 1, Size: 10, Sort: models.SortPriceAsc}, fixedNow)
	require.NoError(t, err)
	links := []string{}
	for _, p := range page.Items {
		links = append(links, p.Link)
	}
	assert.Equal(t, []string{
		"https://a.example.com/y", "https://a.example.com/w",
		"https://a.example.com/x", "https://a.example.com/z",
	}, links)

	again, _, err := Evaluate(page.Items, models.Query{Page: 1, Size: 10, Sort: models.SortPriceAsc}, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, page.Items, again.Items)
}

func TestEvaluate_DoesNotReorderCatalog(t *testing.T) {
	catalog := sampleCatalog()

	_, _, err := Evaluate(catalog, models.Query{Page: 1, Size: 10, Sort: models.SortPriceDesc}, fixedNow)
	require.NoError(t, err)

	assert.Equal(t, []int{10, 60, 30}, prices(catalog))
}

func TestEvaluate_PagesCoverFilteredSet(t *testing.T) {
	var catalog []models.Product
	for i := 0; i < 23; i++ {
		catalog = append(catalog, product(fmt.Sprintf("https://a.example.com/%d", i), "A", (i*37)%97, daysAgo(i)))
	}

	for _, size := range []int{1, 4, 5, 23, 50} {
		q := models.Query{Page: 1, Size: size, Sort: models.SortPriceAsc}
		all, _, err := Evaluate(catalog, models.Query{Page: 1, Size: len(catalog), Sort: models.SortPriceAsc}, fixedNow)
		require.NoError(t, err)

		first, _, err := Evaluate(catalog, q, fixedNow)
		require.NoError(t, err)

		var joined []models.Product
		for p := 1; p <= first.PageCount; p++ {
			q.Page = p
			page, _, err := Evaluate(catalog, q, fixedNow)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(page.Items), size)
			joined = append(joined, page.Items...)
		}

		assert.Equal(t, all.Items, joined, "size %d", size)
		assert.Equal(t, len(catalog), first.Count)
	}
}

func TestEvaluate_PageOutOfRange(t *testing.T) {
	page, stats, err := Evaluate(sampleCatalog(), models.Query{Page: 7, Size: 2}, fixedNow)

	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 2, page.PageCount)
	assert.Equal(t, 3, page.Count)
	assert.Equal(t, 7, page.CurrentPage)
	assert.Equal(t, 3, stats.MatchedCount)
}
