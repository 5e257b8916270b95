package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"catalog-aggregator-api/internal/models"
)

func TestGenerateProductsKey(t *testing.T) {
	var r *RedisCache
	day := models.DateOf(time.Date(2024, 3, 20, 8, 0, 0, 0, time.UTC))
	info := models.CatalogInfo{ID: "products", Generation: 4}

	plain := r.GenerateProductsKey(info, models.Query{Page: 2, Size: 12}, day)
	assert.Equal(t, "products:products:g4:d2024-03-20:p2:s12", plain)

	full := r.GenerateProductsKey(info, models.Query{
		Page: 2, Size: 12, Brand: "ADRESSE PARIS", Filter: models.FilterReasonablePrice, Sort: models.SortPriceAsc,
	}, day)
	assert.True(t, strings.HasPrefix(full, plain))
	assert.Contains(t, full, ":bADRESSE+PARIS")
	assert.Contains(t, full, ":freasonable-price")
	assert.Contains(t, full, ":oprice-asc")

	nextGen := r.GenerateProductsKey(models.CatalogInfo{ID: "products", Generation: 5}, models.Query{Page: 2, Size: 12}, day)
	nextDay := r.GenerateProductsKey(info, models.Query{Page: 2, Size: 12}, day.AddDays(1))
	assert.NotEqual(t, plain, nextGen)
	assert.NotEqual(t, plain, nextDay)
}

func TestRedisCache_NilIsUnavailable(t *testing.T) {
	var r *RedisCache
	ctx := context.Background()

	assert.False(t, r.IsAvailable())
	assert.Equal(t, "unavailable", r.GetStats(ctx)["status"])
	assert.Empty(t, r.GetAllKeys(ctx))
	assert.Zero(t, r.GetKeyTTL(ctx, "products:x"))
	assert.NoError(t, r.Close())

	_, err := r.GetProducts(ctx, "products:x")
	assert.Error(t, err)
	assert.Error(t, r.SetProducts(ctx, "products:x", &models.ProductsResponse{}))
	_, err = r.FlushCache(ctx)
	assert.Error(t, err)
}

func TestNewRedisCache_Disabled(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	assert.Nil(t, NewRedisCache(context.Background(), Config{}, logger))
	assert.Nil(t, NewRedisCache(context.Background(), Config{URL: "mysql://nope"}, logger))
}
