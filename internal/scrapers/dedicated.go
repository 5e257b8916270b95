package scrapers

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"

	"catalog-aggregator-api/internal/models"
)

const DedicatedBrand = "DEDICATED"

type dedicatedPayload struct {
	Products []dedicatedProduct `json:"products"`
}

type dedicatedProduct struct {
	CanonicalURI string `json:"canonicalUri"`
	Name         string `json:"name"`
	Price        struct {
		PriceAsNumber *float64 `json:"priceAsNumber"`
	} `json:"price"`
	Image []string `json:"image"`
}

// DedicatedScraper reads the dedicatedbrand.com product listing API.
type DedicatedScraper struct {
	apiURL  string
	baseURL string
	config  Config
	logger  logrus.FieldLogger
}

// NewDedicatedScraper takes the listing endpoint and the base that product
// canonical URIs are appended to.
func NewDedicatedScraper(apiURL, baseURL string, cfg Config, logger logrus.FieldLogger) *DedicatedScraper {
	return &DedicatedScraper{
		apiURL:  apiURL,
		baseURL: baseURL,
		config:  cfg,
		logger:  logger.WithField("source", "dedicated-api"),
	}
}

func (d *DedicatedScraper) Name() string {
	return "dedicated-api"
}

func (d *DedicatedScraper) Fetch(ctx context.Context) ([]models.RawRecord, error) {
	c, err := newCollector(ctx, d.apiURL, d.config, "application/json", d.logger)
	if err != nil {
		return nil, err
	}

	var (
		records  []models.RawRecord
		parseErr error
	)
	c.OnResponse(func(r *colly.Response) {
		d.logger.WithField("status", r.StatusCode).Debug("listing api response")
		records, parseErr = ParseDedicatedProducts(r.Body, d.baseURL)
	})

	d.logger.WithField("url", d.apiURL).Info("fetching products")
	if err := c.Visit(d.apiURL); err != nil {
		return nil, fmt.Errorf("visit %s: %w", d.apiURL, err)
	}
	if parseErr != nil {
		return nil, parseErr
	}

	d.logger.WithField("records", len(records)).Info("products fetched")
	return records, nil
}

// ParseDedicatedProducts decodes the listing API body. Entries without a
// canonical URI are not products and are dropped.
func ParseDedicatedProducts(body []byte, baseURL string) ([]models.RawRecord, error) {
	var payload dedicatedPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode dedicated products: %w", err)
	}

	base := strings.TrimRight(baseURL, "/") + "/"
	records := make([]models.RawRecord, 0, len(payload.Products))
	for _, p := range payload.Products {
		if p.CanonicalURI == "" {
			continue
		}

		record := models.RawRecord{
			Link:  base + strings.TrimLeft(p.CanonicalURI, "/"),
			Name:  p.Name,
			Brand: DedicatedBrand,
		}
		if p.Price.PriceAsNumber != nil {
			record.Price = strconv.FormatFloat(*p.Price.PriceAsNumber, 'f', -1, 64)
		}
		if len(p.Image) > 0 {
			record.Photo = p.Image[0]
		}
		records = append(records, record)
	}

	return records, nil
}
