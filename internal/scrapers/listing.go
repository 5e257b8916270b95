package scrapers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"

	"catalog-aggregator-api/internal/models"
)

// SelectorSet describes where listing fields live in a page. Each field
// takes fallbacks, tried in order until one yields a value.
type SelectorSet struct {
	Items []string
	Name  []string
	Price []string
	Link  []string
	Photo []string
}

// DedicatedSelectors matches the dedicatedbrand.com product grid.
var DedicatedSelectors = SelectorSet{
	Items: []string{".productList-container .productList", ".productList"},
	Name:  []string{".productList-title"},
	Price: []string{".productList-price"},
	Link:  []string{"a.productList-link", "a"},
	Photo: []string{".productList-image img", "img"},
}

// ListingScraper scrapes an HTML listing page into raw records.
type ListingScraper struct {
	name      string
	pageURL   string
	brand     string
	selectors SelectorSet
	config    Config
	logger    logrus.FieldLogger
}

func NewListingScraper(name, pageURL, brand string, selectors SelectorSet, cfg Config, logger logrus.FieldLogger) *ListingScraper {
	return &ListingScraper{
		name:      name,
		pageURL:   pageURL,
		brand:     brand,
		selectors: selectors,
		config:    cfg,
		logger:    logger.WithField("source", name),
	}
}

func (l *ListingScraper) Name() string {
	return l.name
}

func (l *ListingScraper) Fetch(ctx context.Context) ([]models.RawRecord, error) {
	c, err := newCollector(ctx, l.pageURL, l.config, "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8", l.logger)
	if err != nil {
		return nil, err
	}

	var (
		records  []models.RawRecord
		parseErr error
	)
	c.OnResponse(func(r *colly.Response) {
		l.logger.WithFields(logrus.Fields{
			"status": r.StatusCode,
			"bytes":  len(r.Body),
		}).Debug("listing page received")
		records, parseErr = ParseProductList(bytes.NewReader(r.Body), r.Request.URL, l.brand, l.selectors)
	})

	l.logger.WithField("url", l.pageURL).Info("scraping listing page")
	if err := c.Visit(l.pageURL); err != nil {
		return nil, fmt.Errorf("visit %s: %w", l.pageURL, err)
	}
	if parseErr != nil {
		return nil, parseErr
	}

	l.logger.WithField("records", len(records)).Info("listing scraped")
	return records, nil
}

// ParseProductList extracts raw records from a listing page. Relative links
// and photos are resolved against pageURL.
func ParseProductList(body io.Reader, pageURL *url.URL, brand string, selectors SelectorSet) ([]models.RawRecord, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse listing html: %w", err)
	}

	records := make([]models.RawRecord, 0)
	for _, itemSelector := range selectors.Items {
		items := doc.Find(itemSelector)
		if items.Length() == 0 {
			continue
		}

		items.Each(func(_ int, item *goquery.Selection) {
			records = append(records, models.RawRecord{
				Name:  firstText(item, selectors.Name),
				Price: firstText(item, selectors.Price),
				Link:  resolve(pageURL, firstAttr(item, selectors.Link, "href")),
				Photo: resolve(pageURL, firstAttr(item, selectors.Photo, "src", "data-src")),
				Brand: brand,
			})
		})
		break
	}

	return records, nil
}

func firstText(item *goquery.Selection, selectors []string) string {
	for _, selector := range selectors {
		if text := strings.TrimSpace(item.Find(selector).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

func firstAttr(item *goquery.Selection, selectors []string, attrs ...string) string {
	for _, selector := range selectors {
		node := item.Find(selector).First()
		for _, attr := range attrs {
			if value, ok := node.Attr(attr); ok && strings.TrimSpace(value) != "" {
				return strings.TrimSpace(value)
			}
		}
	}
	return ""
}

func resolve(base *url.URL, ref string) string {
	if ref == "" || base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
